package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/store"

	"github.com/google/uuid"
)

type AgendaRepository interface {
	CreatePending(ctx context.Context, workerID string, slot models.CalendarSlot) (string, error)
	Confirm(ctx context.Context, workerID, date, relatedContractID string) error
	GetDay(ctx context.Context, workerID, date string) (models.DaySlots, error)
	GetBusyDates(ctx context.Context, workerID string) (map[string]models.BusyMarker, error)
	ListSlots(ctx context.Context, workerID string) ([]models.AgendaEntry, error)
	RemoveSlot(ctx context.Context, workerID, date, slotID string) error
}

type agendaRepository struct {
	store store.Store
	log   logger.Logger
}

func NewAgendaRepository(recordStore store.Store) AgendaRepository {
	return &agendaRepository{
		store: recordStore,
		log:   logger.New("agendaRepository"),
	}
}

func (r *agendaRepository) GetDay(ctx context.Context, workerID, date string) (models.DaySlots, error) {
	var raw json.RawMessage
	err := r.store.Get(ctx, store.AgendaDayPath(workerID, date), &raw)
	if errors.Is(err, store.ErrNotFound) {
		return models.DaySlots{Shape: models.DayEmpty}, nil
	}
	if err != nil {
		return models.DaySlots{}, err
	}
	return models.DecodeDay(raw)
}

// CreatePending records a tentative hold on the worker's day. An empty day is
// written as a single flat slot document; a second hold on the same date
// promotes the day to a map of slots keyed by id so simultaneous offers from
// different clients can coexist.
func (r *agendaRepository) CreatePending(ctx context.Context, workerID string, slot models.CalendarSlot) (string, error) {
	log := r.log.Function("CreatePending")

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.Status == "" {
		slot.Status = models.SlotPending
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}

	day, err := r.GetDay(ctx, workerID, slot.Date)
	if err != nil {
		return "", log.Err("failed to read agenda day", err, "workerID", workerID, "date", slot.Date)
	}

	dayPath := store.AgendaDayPath(workerID, slot.Date)

	switch day.Shape {
	case models.DayEmpty:
		if err := r.store.Set(ctx, dayPath, slot); err != nil {
			return "", log.Err("failed to write pending slot", err, "workerID", workerID, "date", slot.Date)
		}

	case models.DaySingle:
		existing := *day.Single
		if existing.ID == "" {
			existing.ID = uuid.NewString()
		}
		multi := map[string]models.CalendarSlot{
			existing.ID: existing,
			slot.ID:     slot,
		}
		if err := r.store.Set(ctx, dayPath, multi); err != nil {
			return "", log.Err("failed to promote day to multi-slot", err, "workerID", workerID, "date", slot.Date)
		}

	case models.DayMulti:
		if err := r.store.Update(ctx, dayPath, map[string]any{slot.ID: slot}); err != nil {
			return "", log.Err("failed to append pending slot", err, "workerID", workerID, "date", slot.Date)
		}
	}

	return slot.ID, nil
}

// Confirm flips the slot tied to the contract to confirmed. An already
// confirmed slot is left untouched so repeated confirmations stay harmless.
func (r *agendaRepository) Confirm(ctx context.Context, workerID, date, relatedContractID string) error {
	log := r.log.Function("Confirm")

	day, err := r.GetDay(ctx, workerID, date)
	if err != nil {
		return log.Err("failed to read agenda day", err, "workerID", workerID, "date", date)
	}
	if day.Shape == models.DayEmpty {
		return store.ErrNotFound
	}

	slot := day.Find(relatedContractID)
	if slot == nil && day.Shape == models.DaySingle {
		// Older single-slot records may predate contract linkage.
		slot = day.Single
	}
	if slot == nil {
		return store.ErrNotFound
	}
	if slot.Status == models.SlotConfirmed {
		return nil
	}

	dayPath := store.AgendaDayPath(workerID, date)

	if day.Shape == models.DaySingle {
		err = r.store.Update(ctx, dayPath, map[string]any{"status": models.SlotConfirmed})
	} else {
		confirmed := *slot
		confirmed.Status = models.SlotConfirmed
		err = r.store.Update(ctx, dayPath, map[string]any{confirmed.ID: confirmed})
	}
	if err != nil {
		return log.Err("failed to confirm slot", err, "workerID", workerID, "date", date)
	}

	return nil
}

// GetBusyDates returns one marker per date holding at least one confirmed
// slot. Pending holds never surface here.
func (r *agendaRepository) GetBusyDates(ctx context.Context, workerID string) (map[string]models.BusyMarker, error) {
	log := r.log.Function("GetBusyDates")

	days, err := r.store.List(ctx, store.AgendaPath(workerID))
	if err != nil {
		return nil, log.Err("failed to list agenda", err, "workerID", workerID)
	}

	busy := make(map[string]models.BusyMarker)
	for date, raw := range days {
		day, err := models.DecodeDay(raw)
		if err != nil {
			log.Er("skipping malformed agenda day", err, "workerID", workerID, "date", date)
			continue
		}
		for _, slot := range day.All() {
			if slot.Status == models.SlotConfirmed {
				busy[date] = models.BusyMarker{Marked: true, Disabled: true}
				break
			}
		}
	}

	return busy, nil
}

// ListSlots returns every slot on the worker's agenda, denormalized with the
// linked contract's amount, address and description when the contract still
// exists. A missing contract leaves the slot-local fields as the fallback.
func (r *agendaRepository) ListSlots(ctx context.Context, workerID string) ([]models.AgendaEntry, error) {
	log := r.log.Function("ListSlots")

	days, err := r.store.List(ctx, store.AgendaPath(workerID))
	if err != nil {
		return nil, log.Err("failed to list agenda", err, "workerID", workerID)
	}

	entries := make([]models.AgendaEntry, 0, len(days))
	for date, raw := range days {
		day, err := models.DecodeDay(raw)
		if err != nil {
			log.Er("skipping malformed agenda day", err, "workerID", workerID, "date", date)
			continue
		}
		for _, slot := range day.All() {
			slot.Date = date
			entry := models.AgendaEntry{CalendarSlot: slot}
			if slot.RelatedContractID != "" {
				var contract models.Contract
				if err := r.store.Get(ctx, store.ContractPath(slot.RelatedContractID), &contract); err == nil {
					entry.Amount = contract.Proposal.Amount.String()
					entry.Address = contract.Proposal.Address
					entry.Description = contract.Proposal.Description
					entry.Service = contract.ServiceLabel()
					if entry.ClientName == "" {
						entry.ClientName = contract.ClientName
					}
				}
			}
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date < entries[j].Date
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	return entries, nil
}

// RemoveSlot deletes a single slot from a day, collapsing the day record when
// it empties. Used by the orphan sweeper, never by the booking flow.
func (r *agendaRepository) RemoveSlot(ctx context.Context, workerID, date, slotID string) error {
	log := r.log.Function("RemoveSlot")

	day, err := r.GetDay(ctx, workerID, date)
	if err != nil {
		return log.Err("failed to read agenda day", err, "workerID", workerID, "date", date)
	}

	dayPath := store.AgendaDayPath(workerID, date)

	switch day.Shape {
	case models.DayEmpty:
		return nil

	case models.DaySingle:
		if day.Single.ID != slotID && slotID != "" {
			return nil
		}
		if err := r.store.Remove(ctx, dayPath); err != nil {
			return log.Err("failed to remove slot", err, "workerID", workerID, "date", date)
		}

	case models.DayMulti:
		if _, ok := day.Multi[slotID]; !ok {
			return nil
		}
		delete(day.Multi, slotID)
		if len(day.Multi) == 0 {
			err = r.store.Remove(ctx, dayPath)
		} else {
			err = r.store.Set(ctx, dayPath, day.Multi)
		}
		if err != nil {
			return log.Err("failed to remove slot", err, "workerID", workerID, "date", date, "slotID", slotID)
		}
	}

	return nil
}
