package repositories

import (
	"context"
	"testing"

	"oficio/internal/models"
	"oficio/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAgendaFixture(t *testing.T) (AgendaRepository, store.Store) {
	t.Helper()
	recordStore := store.NewMemoryStore()
	return NewAgendaRepository(recordStore), recordStore
}

func pendingSlot(clientID, date, contractID string) models.CalendarSlot {
	return models.CalendarSlot{
		Date:              date,
		Status:            models.SlotPending,
		ClientID:          clientID,
		ClientName:        "Client " + clientID,
		Service:           "pintura",
		RelatedContractID: contractID,
	}
}

func TestCreatePendingWritesSingleSlotDay(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	slotID, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)
	assert.NotEmpty(t, slotID)

	day, err := repo.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.DaySingle, day.Shape)
	assert.Equal(t, models.SlotPending, day.Single.Status)
	assert.Equal(t, "k1", day.Single.RelatedContractID)
}

func TestCreatePendingPromotesDayToMulti(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	first, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)
	second, err := repo.CreatePending(ctx, "w1", pendingSlot("c2", "2025-03-10", "k2"))
	require.NoError(t, err)

	day, err := repo.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DayMulti, day.Shape)
	assert.Len(t, day.Multi, 2)
	assert.Equal(t, "c1", day.Multi[first].ClientID)
	assert.Equal(t, "c2", day.Multi[second].ClientID)
}

func TestConfirmSingleSlotDay(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	_, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)

	require.NoError(t, repo.Confirm(ctx, "w1", "2025-03-10", "k1"))

	day, err := repo.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.SlotConfirmed, day.Single.Status)

	// Re-confirming an already confirmed slot stays a no-op.
	require.NoError(t, repo.Confirm(ctx, "w1", "2025-03-10", "k1"))
}

func TestConfirmTargetsOnlyTheLinkedSlot(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	_, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)
	_, err = repo.CreatePending(ctx, "w1", pendingSlot("c2", "2025-03-10", "k2"))
	require.NoError(t, err)

	require.NoError(t, repo.Confirm(ctx, "w1", "2025-03-10", "k2"))

	day, err := repo.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DayMulti, day.Shape)
	for _, slot := range day.Multi {
		switch slot.RelatedContractID {
		case "k2":
			assert.Equal(t, models.SlotConfirmed, slot.Status)
		default:
			assert.Equal(t, models.SlotPending, slot.Status)
		}
	}
}

func TestConfirmMissingDayReturnsNotFound(t *testing.T) {
	repo, _ := newAgendaFixture(t)

	err := repo.Confirm(context.Background(), "w1", "2025-03-10", "k1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetBusyDatesOnlyCountsConfirmed(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	_, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)
	_, err = repo.CreatePending(ctx, "w1", pendingSlot("c2", "2025-03-11", "k2"))
	require.NoError(t, err)

	busy, err := repo.GetBusyDates(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, busy, "pending holds must stay invisible")

	require.NoError(t, repo.Confirm(ctx, "w1", "2025-03-11", "k2"))

	busy, err = repo.GetBusyDates(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, busy, 1)
	assert.True(t, busy["2025-03-11"].Marked)
	assert.True(t, busy["2025-03-11"].Disabled)
}

func TestListSlotsJoinsContractDetails(t *testing.T) {
	repo, recordStore := newAgendaFixture(t)
	ctx := context.Background()

	contract := models.Contract{
		ID:         "k1",
		ClientID:   "c1",
		WorkerID:   "w1",
		ClientName: "Ana",
		State:      models.ContractAwaitingAcceptance,
		Proposal: models.Proposal{
			Amount:      decimal.RequireFromString("150.00"),
			ServiceTags: []string{"pintura"},
			Description: "pintar sala",
			Address:     "Rua A, 12",
			ServiceDate: "2025-03-10",
		},
	}
	require.NoError(t, recordStore.Set(ctx, store.ContractPath("k1"), contract))

	_, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)

	entries, err := repo.ListSlots(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "150.00", entries[0].Amount)
	assert.Equal(t, "Rua A, 12", entries[0].Address)
	assert.Equal(t, "pintar sala", entries[0].Description)
	assert.Equal(t, "2025-03-10", entries[0].Date)
}

func TestListSlotsFallsBackWhenContractMissing(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	_, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "gone"))
	require.NoError(t, err)

	entries, err := repo.ListSlots(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Amount)
	assert.Equal(t, "pintura", entries[0].Service)
	assert.Equal(t, "Client c1", entries[0].ClientName)
}

func TestRemoveSlotCollapsesEmptyDay(t *testing.T) {
	repo, _ := newAgendaFixture(t)
	ctx := context.Background()

	first, err := repo.CreatePending(ctx, "w1", pendingSlot("c1", "2025-03-10", "k1"))
	require.NoError(t, err)
	second, err := repo.CreatePending(ctx, "w1", pendingSlot("c2", "2025-03-10", "k2"))
	require.NoError(t, err)

	require.NoError(t, repo.RemoveSlot(ctx, "w1", "2025-03-10", first))

	day, err := repo.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DayMulti, day.Shape)
	assert.Len(t, day.Multi, 1)

	require.NoError(t, repo.RemoveSlot(ctx, "w1", "2025-03-10", second))

	day, err = repo.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.DayEmpty, day.Shape)

	// Removing from a day that no longer exists is fine.
	require.NoError(t, repo.RemoveSlot(ctx, "w1", "2025-03-10", second))
}
