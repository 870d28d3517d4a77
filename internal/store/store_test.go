package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	"oficio/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathLayout(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"contract", store.ContractPath("c1"), "contracts/c1"},
		{"agenda day", store.AgendaDayPath("w1", "2025-03-10"), "agenda/w1/2025-03-10"},
		{"agenda root", store.AgendaPath("w1"), "agenda/w1"},
		{"notification", store.NotificationPath("u1", "n1"), "notifications/u1/n1"},
		{"notifications root", store.NotificationsPath("u1"), "notifications/u1"},
		{"chat messages", store.ChatMessagesPath("c1"), "chats/c1/messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.path)
		})
	}
}

func TestScopeOf(t *testing.T) {
	assert.Equal(t, store.ScopeContracts, store.ScopeOf("contracts/abc"))
	assert.Equal(t, store.ScopeAgenda, store.ScopeOf("agenda/w1/2025-03-10"))
	assert.Equal(t, store.Scope("contracts"), store.ScopeOf("contracts"))
}

func TestMemoryStore_GetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	type doc struct {
		Name string `json:"name"`
	}

	err := s.Set(ctx, "contracts/c1", doc{Name: "first"})
	require.NoError(t, err)

	var got doc
	require.NoError(t, s.Get(ctx, "contracts/c1", &got))
	assert.Equal(t, "first", got.Name)

	require.NoError(t, s.Remove(ctx, "contracts/c1"))
	err = s.Get(ctx, "contracts/c1", &got)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// removing an absent path is success
	assert.NoError(t, s.Remove(ctx, "contracts/c1"))
}

func TestMemoryStore_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Set(ctx, "agenda/w1/2025-03-10", map[string]any{
		"status":   "pending",
		"clientId": "c1",
	}))

	require.NoError(t, s.Update(ctx, "agenda/w1/2025-03-10", map[string]any{
		"status": "confirmed",
	}))

	var got map[string]any
	require.NoError(t, s.Get(ctx, "agenda/w1/2025-03-10", &got))
	assert.Equal(t, "confirmed", got["status"])
	assert.Equal(t, "c1", got["clientId"])
}

func TestMemoryStore_UpdateCreatesWhenAbsent(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Update(ctx, "contracts/c9", map[string]any{"contractState": "active"}))

	var got map[string]any
	require.NoError(t, s.Get(ctx, "contracts/c9", &got))
	assert.Equal(t, "active", got["contractState"])
}

func TestMemoryStore_PushAndList(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	id1, err := s.Push(ctx, "notifications/u1", map[string]any{"kind": "proposal"})
	require.NoError(t, err)
	id2, err := s.Push(ctx, "notifications/u1", map[string]any{"kind": "refusal"})
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	children, err := s.List(ctx, "notifications/u1")
	require.NoError(t, err)
	assert.Len(t, children, 2)
	assert.Contains(t, children, id1)
	assert.Contains(t, children, id2)
}

func TestMemoryStore_ListIsImmediateChildrenOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	require.NoError(t, s.Set(ctx, "agenda/w1/2025-03-10", map[string]any{"status": "pending"}))
	require.NoError(t, s.Set(ctx, "agenda/w2/2025-03-10", map[string]any{"status": "pending"}))

	children, err := s.List(ctx, "agenda/w1")
	require.NoError(t, err)
	require.Len(t, children, 1)

	var slot map[string]any
	require.NoError(t, json.Unmarshal(children["2025-03-10"], &slot))
	assert.Equal(t, "pending", slot["status"])
}

func TestMemoryStore_SubscribeReceivesScopedChanges(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	feed, cancel := s.Subscribe(store.ScopeContracts)
	defer cancel()

	require.NoError(t, s.Set(ctx, "contracts/c1", map[string]any{"contractState": "awaiting_acceptance"}))
	require.NoError(t, s.Set(ctx, "agenda/w1/2025-03-10", map[string]any{"status": "pending"}))
	require.NoError(t, s.Remove(ctx, "contracts/c1"))

	event := receiveEvent(t, feed)
	assert.Equal(t, store.OpSet, event.Op)
	assert.Equal(t, "contracts/c1", event.Path)

	event = receiveEvent(t, feed)
	assert.Equal(t, store.OpRemove, event.Op)
	assert.Equal(t, "contracts/c1", event.Path)

	select {
	case extra := <-feed:
		t.Fatalf("unexpected cross-scope event: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStore_CancelClosesFeed(t *testing.T) {
	s := store.NewMemoryStore()

	feed, cancel := s.Subscribe(store.ScopeAgenda)
	cancel()

	_, open := <-feed
	assert.False(t, open)
}

func receiveEvent(t *testing.T, feed <-chan store.ChangeEvent) store.ChangeEvent {
	t.Helper()
	select {
	case event := <-feed:
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change event")
		return store.ChangeEvent{}
	}
}
