package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ContractState string

const (
	ContractAwaitingAcceptance       ContractState = "awaiting_acceptance"
	ContractActive                   ContractState = "active"
	ContractAwaitingMutualCompletion ContractState = "awaiting_mutual_completion"
)

// Proposal is the offer payload a client sends when opening a contract.
// Amount marshals as a decimal string ("150.00") on the wire.
type Proposal struct {
	Amount      decimal.Decimal `json:"amount"`
	ServiceTags []string        `json:"serviceTags"`
	Description string          `json:"description,omitempty"`
	Address     string          `json:"address"`
	ServiceDate string          `json:"serviceDate"` // YYYY-MM-DD
}

// Contract is the negotiated agreement for one service engagement between a
// client and a worker, keyed by conversation id. Deletion of the record is the
// only terminal signal; there is no archived state.
type Contract struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"clientId"`
	WorkerID        string          `json:"workerId"`
	ClientName      string          `json:"clientName,omitempty"`
	Proposal        Proposal        `json:"proposal"`
	State           ContractState   `json:"contractState"`
	CompletionFlags map[string]bool `json:"completionFlags,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Party identifies one side of a contract. Identity comes from the auth
// collaborator and is treated as opaque here.
type Party struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// OtherParty returns the counterparty id for the given actor, empty when the
// actor is not a party to the contract.
func (c *Contract) OtherParty(actorID string) string {
	switch actorID {
	case c.ClientID:
		return c.WorkerID
	case c.WorkerID:
		return c.ClientID
	}
	return ""
}

func (c *Contract) IsParty(actorID string) bool {
	return actorID == c.ClientID || actorID == c.WorkerID
}

// ServiceLabel is the short human label for the contracted service, used in
// refusal notifications. Falls back when no tags were recorded.
func (c *Contract) ServiceLabel() string {
	if len(c.Proposal.ServiceTags) > 0 {
		return c.Proposal.ServiceTags[0]
	}
	return "serviço"
}

// CanTransition reports whether moving to the target state is legal.
// Deletion is allowed from every state and is not modeled here.
func (s ContractState) CanTransition(to ContractState) bool {
	switch s {
	case ContractAwaitingAcceptance:
		return to == ContractActive
	case ContractActive:
		return to == ContractAwaitingMutualCompletion
	}
	return false
}
