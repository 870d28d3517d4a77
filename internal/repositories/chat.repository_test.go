package repositories

import (
	"context"
	"testing"
	"time"

	"oficio/internal/models"
	"oficio/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndListOldestFirst(t *testing.T) {
	repo := NewChatRepository(store.NewMemoryStore(), nil)
	ctx := context.Background()

	base := time.Now().UTC()
	_, err := repo.Append(ctx, "k1", models.ChatMessage{SenderID: "c1", Body: "bom dia", SentAt: base})
	require.NoError(t, err)
	_, err = repo.Append(ctx, "k1", models.ChatMessage{SenderID: "w1", Body: "chego às 9h", SentAt: base.Add(time.Minute)})
	require.NoError(t, err)

	messages, err := repo.List(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "bom dia", messages[0].Body)
	assert.Equal(t, "chego às 9h", messages[1].Body)
	assert.NotEmpty(t, messages[0].ID)
}

func TestListSeparatesContracts(t *testing.T) {
	repo := NewChatRepository(store.NewMemoryStore(), nil)
	ctx := context.Background()

	_, err := repo.Append(ctx, "k1", models.ChatMessage{SenderID: "c1", Body: "oi"})
	require.NoError(t, err)

	messages, err := repo.List(ctx, "k2")
	require.NoError(t, err)
	assert.Empty(t, messages)
}
