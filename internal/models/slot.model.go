package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type SlotStatus string

const (
	SlotPending   SlotStatus = "pending"
	SlotConfirmed SlotStatus = "confirmed"
)

// CalendarSlot is one tentative or confirmed hold on a worker's day.
// Slots are created pending when a proposal is issued and only ever move
// forward to confirmed; the coordinator never deletes them.
type CalendarSlot struct {
	ID                string     `json:"id,omitempty"`
	Date              string     `json:"date,omitempty"` // YYYY-MM-DD
	Status            SlotStatus `json:"status"`
	ClientID          string     `json:"clientId"`
	ClientName        string     `json:"clientName,omitempty"`
	Service           string     `json:"service,omitempty"`
	RelatedContractID string     `json:"relatedContractId,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type DayShape int

const (
	DayEmpty DayShape = iota
	DaySingle
	DayMulti
)

// DaySlots is the decoded value of one agenda day. Stored day records come in
// two shapes: a single flat slot document, or a map of slot id to slot when a
// worker holds several simultaneous offers for the same date. Both shapes are
// decoded behind this discriminated type instead of duck-typing at call sites.
type DaySlots struct {
	Shape  DayShape
	Single *CalendarSlot
	Multi  map[string]CalendarSlot
}

// DecodeDay parses a raw agenda day record into its tagged shape. A document
// with slot fields at the root is a single-slot day; otherwise every value is
// expected to be a slot keyed by id.
func DecodeDay(raw json.RawMessage) (DaySlots, error) {
	if len(raw) == 0 {
		return DaySlots{Shape: DayEmpty}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return DaySlots{}, fmt.Errorf("malformed agenda day record: %w", err)
	}
	if len(probe) == 0 {
		return DaySlots{Shape: DayEmpty}, nil
	}

	_, hasStatus := probe["status"]
	_, hasClient := probe["clientId"]
	_, hasContract := probe["relatedContractId"]
	if hasStatus || hasClient || hasContract {
		var slot CalendarSlot
		if err := json.Unmarshal(raw, &slot); err != nil {
			return DaySlots{}, fmt.Errorf("malformed single-slot day record: %w", err)
		}
		return DaySlots{Shape: DaySingle, Single: &slot}, nil
	}

	multi := make(map[string]CalendarSlot, len(probe))
	for id, rawSlot := range probe {
		var slot CalendarSlot
		if err := json.Unmarshal(rawSlot, &slot); err != nil {
			return DaySlots{}, fmt.Errorf("malformed slot %q in day record: %w", id, err)
		}
		slot.ID = id
		multi[id] = slot
	}
	return DaySlots{Shape: DayMulti, Multi: multi}, nil
}

// All flattens the day into a slice regardless of shape.
func (d DaySlots) All() []CalendarSlot {
	switch d.Shape {
	case DaySingle:
		return []CalendarSlot{*d.Single}
	case DayMulti:
		slots := make([]CalendarSlot, 0, len(d.Multi))
		for _, slot := range d.Multi {
			slots = append(slots, slot)
		}
		return slots
	}
	return nil
}

// Find returns the slot linked to the given contract, or nil.
func (d DaySlots) Find(relatedContractID string) *CalendarSlot {
	switch d.Shape {
	case DaySingle:
		if d.Single.RelatedContractID == relatedContractID {
			return d.Single
		}
	case DayMulti:
		for id, slot := range d.Multi {
			if slot.RelatedContractID == relatedContractID {
				slot.ID = id
				return &slot
			}
		}
	}
	return nil
}

// BusyMarker marks a date as unavailable in a worker's public calendar.
// Only confirmed slots produce markers; pending holds stay invisible to
// other prospective clients.
type BusyMarker struct {
	Marked   bool `json:"marked"`
	Disabled bool `json:"disabled"`
}

// AgendaEntry is a slot denormalized with contract details for display.
// Missing or partial contract joins fall back to the slot-local fields.
type AgendaEntry struct {
	CalendarSlot
	Amount      string `json:"amount,omitempty"`
	Address     string `json:"address,omitempty"`
	Description string `json:"description,omitempty"`
}
