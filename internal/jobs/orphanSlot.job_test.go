package jobs

import (
	"context"
	"testing"
	"time"

	"oficio/internal/models"
	"oficio/internal/repositories"
	"oficio/internal/services"
	"oficio/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticWorkerList []string

func (s staticWorkerList) ListWorkerIDs(ctx context.Context) ([]string, error) { return s, nil }
func (s staticWorkerList) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, assert.AnError
}
func (s staticWorkerList) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, assert.AnError
}
func (s staticWorkerList) Create(ctx context.Context, user *models.User) error { return nil }
func (s staticWorkerList) Update(ctx context.Context, user *models.User) error { return nil }
func (s staticWorkerList) SearchWorkersByTag(ctx context.Context, tag string) ([]models.User, error) {
	return nil, nil
}

func TestOrphanSweepRemovesOnlyStaleOrphans(t *testing.T) {
	recordStore := store.NewMemoryStore()
	contracts := repositories.NewContractRepository(recordStore)
	agenda := repositories.NewAgendaRepository(recordStore)
	ctx := context.Background()

	contractID, err := contracts.Create(ctx, &models.Contract{ClientID: "c1", WorkerID: "w1"})
	require.NoError(t, err)

	stale := time.Now().UTC().Add(-2 * time.Hour)

	// Backed by a live contract: must survive.
	_, err = agenda.CreatePending(ctx, "w1", models.CalendarSlot{
		Date: "2025-03-10", ClientID: "c1", RelatedContractID: contractID, CreatedAt: stale,
	})
	require.NoError(t, err)

	// Orphaned by a refusal: must be swept.
	orphanID, err := agenda.CreatePending(ctx, "w1", models.CalendarSlot{
		Date: "2025-03-10", ClientID: "c2", RelatedContractID: "refused-and-gone", CreatedAt: stale,
	})
	require.NoError(t, err)

	// Orphaned but fresh: inside the grace period, must survive this run.
	_, err = agenda.CreatePending(ctx, "w1", models.CalendarSlot{
		Date: "2025-03-11", ClientID: "c3", RelatedContractID: "also-gone", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	job := NewOrphanSlotJob(staticWorkerList{"w1"}, contracts, agenda, recordStore, services.Daily)
	require.NoError(t, job.Execute(ctx))

	day, err := agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DayMulti, day.Shape)
	assert.Len(t, day.Multi, 1)
	assert.NotContains(t, day.Multi, orphanID)

	day, err = agenda.GetDay(ctx, "w1", "2025-03-11")
	require.NoError(t, err)
	assert.Equal(t, models.DaySingle, day.Shape)
}

func TestOrphanSweepIgnoresConfirmedSlots(t *testing.T) {
	recordStore := store.NewMemoryStore()
	contracts := repositories.NewContractRepository(recordStore)
	agenda := repositories.NewAgendaRepository(recordStore)
	ctx := context.Background()

	// A completed engagement: contract gone, slot confirmed. That slot is
	// the worker's history and must never be reclaimed.
	_, err := agenda.CreatePending(ctx, "w1", models.CalendarSlot{
		Date: "2025-03-10", ClientID: "c1", RelatedContractID: "completed-and-gone",
		CreatedAt: time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)
	require.NoError(t, agenda.Confirm(ctx, "w1", "2025-03-10", "completed-and-gone"))

	job := NewOrphanSlotJob(staticWorkerList{"w1"}, contracts, agenda, recordStore, services.Daily)
	require.NoError(t, job.Execute(ctx))

	day, err := agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DaySingle, day.Shape)
	assert.Equal(t, models.SlotConfirmed, day.Single.Status)
}
