package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	NotificationProposal NotificationKind = "proposal"
	NotificationRefusal  NotificationKind = "refusal"
)

// NotificationPayload carries the structured body of a notification.
// Proposal notifications mirror the contract's proposal fields so the worker
// can review the full offer before accepting; refusals carry only who refused
// and which service it was about.
type NotificationPayload struct {
	ActorID      string          `json:"actorId,omitempty"`
	ActorName    string          `json:"actorName,omitempty"`
	Amount       decimal.Decimal `json:"amount,omitempty"`
	ServiceTags  []string        `json:"serviceTags,omitempty"`
	Description  string          `json:"description,omitempty"`
	Address      string          `json:"address,omitempty"`
	ServiceDate  string          `json:"serviceDate,omitempty"`
	ServiceLabel string          `json:"serviceLabel,omitempty"`
}

// Notification is a fire-and-forget one-way message owned by its recipient.
// The recipient deletes it after acting on it; nothing else purges it.
type Notification struct {
	ID                string              `json:"id,omitempty"`
	Kind              NotificationKind    `json:"kind"`
	Title             string              `json:"title,omitempty"`
	Payload           NotificationPayload `json:"payload"`
	RelatedContractID string              `json:"relatedContractId,omitempty"`
	Read              bool                `json:"read"`
	CreatedAt         time.Time           `json:"createdAt"`
}

// NewProposalNotification builds the notification pushed to the worker when a
// client initiates a proposal.
func NewProposalNotification(from Party, contractID string, proposal Proposal) Notification {
	return Notification{
		Kind:  NotificationProposal,
		Title: "Nova proposta de serviço",
		Payload: NotificationPayload{
			ActorID:     from.ID,
			ActorName:   from.Name,
			Amount:      proposal.Amount,
			ServiceTags: proposal.ServiceTags,
			Description: proposal.Description,
			Address:     proposal.Address,
			ServiceDate: proposal.ServiceDate,
		},
		RelatedContractID: contractID,
		CreatedAt:         time.Now().UTC(),
	}
}

// NewRefusalNotification builds the notification pushed to the counterparty
// when a contract is refused.
func NewRefusalNotification(actor Party, serviceLabel string) Notification {
	return Notification{
		Kind:  NotificationRefusal,
		Title: "Proposta recusada",
		Payload: NotificationPayload{
			ActorID:      actor.ID,
			ActorName:    actor.Name,
			ServiceLabel: serviceLabel,
		},
		CreatedAt: time.Now().UTC(),
	}
}
