package jobs

import (
	"context"
	"errors"
	"time"

	logger "github.com/Bparsons0904/goLogger"

	"oficio/internal/models"
	"oficio/internal/repositories"
	"oficio/internal/services"
	"oficio/internal/store"
)

// orphanGracePeriod keeps freshly written holds out of reach so the sweep
// never races a proposal whose slot write landed before its contract read
// becomes visible.
const orphanGracePeriod = time.Hour

// OrphanSlotJob reclaims pending agenda holds whose contract no longer
// exists. Refusals delete the contract but deliberately leave the hold
// behind; this job is the only thing that ever removes a slot.
type OrphanSlotJob struct {
	users       repositories.UserRepository
	contracts   repositories.ContractRepository
	agenda      repositories.AgendaRepository
	recordStore store.Store
	log         logger.Logger
	schedule    services.Schedule
}

func NewOrphanSlotJob(
	users repositories.UserRepository,
	contracts repositories.ContractRepository,
	agenda repositories.AgendaRepository,
	recordStore store.Store,
	schedule services.Schedule,
) *OrphanSlotJob {
	log := logger.New("orphanSlotJob")
	log.Info("Creating new orphan slot job", "schedule", schedule)

	return &OrphanSlotJob{
		users:       users,
		contracts:   contracts,
		agenda:      agenda,
		recordStore: recordStore,
		log:         log,
		schedule:    schedule,
	}
}

func (j *OrphanSlotJob) Name() string {
	return "OrphanPendingSlotSweep"
}

func (j *OrphanSlotJob) Schedule() services.Schedule {
	return j.schedule
}

func (j *OrphanSlotJob) Execute(ctx context.Context) error {
	log := j.log.Function("Execute")

	workerIDs, err := j.users.ListWorkerIDs(ctx)
	if err != nil {
		return log.Err("failed to list workers", err)
	}

	swept := 0
	for _, workerID := range workerIDs {
		n, err := j.sweepWorker(ctx, workerID)
		if err != nil {
			log.Er("failed to sweep worker agenda", err, "workerID", workerID)
			continue
		}
		swept += n
	}

	log.Info("Orphan slot sweep completed", "workers", len(workerIDs), "swept", swept)
	return nil
}

func (j *OrphanSlotJob) sweepWorker(ctx context.Context, workerID string) (int, error) {
	days, err := j.recordStore.List(ctx, store.AgendaPath(workerID))
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().UTC().Add(-orphanGracePeriod)
	swept := 0

	for date, raw := range days {
		day, err := models.DecodeDay(raw)
		if err != nil {
			j.log.Er("skipping malformed agenda day", err, "workerID", workerID, "date", date)
			continue
		}

		for _, slot := range day.All() {
			if !j.isOrphan(ctx, slot, cutoff) {
				continue
			}
			if err := j.agenda.RemoveSlot(ctx, workerID, date, slot.ID); err != nil {
				j.log.Er("failed to remove orphan slot", err, "workerID", workerID, "date", date, "slotID", slot.ID)
				continue
			}
			swept++
		}
	}

	return swept, nil
}

func (j *OrphanSlotJob) isOrphan(ctx context.Context, slot models.CalendarSlot, cutoff time.Time) bool {
	if slot.Status != models.SlotPending {
		return false
	}
	if slot.RelatedContractID == "" {
		return false
	}
	if !slot.CreatedAt.IsZero() && slot.CreatedAt.After(cutoff) {
		return false
	}

	_, err := j.contracts.Get(ctx, slot.RelatedContractID)
	return errors.Is(err, store.ErrNotFound)
}
