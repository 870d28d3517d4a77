package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/store"

	"github.com/google/uuid"
)

// ErrIllegalTransition is returned when a contract is asked to move to a
// state its current state does not allow.
var ErrIllegalTransition = errors.New("illegal contract state transition")

type ContractRepository interface {
	Get(ctx context.Context, contractID string) (*models.Contract, error)
	Create(ctx context.Context, contract *models.Contract) (string, error)
	Transition(ctx context.Context, contractID string, to models.ContractState) (*models.Contract, error)
	SetCompletionFlag(ctx context.Context, contractID, partyID string) (*models.Contract, error)
	Delete(ctx context.Context, contractID string) error
}

type contractRepository struct {
	store store.Store
	log   logger.Logger
}

func NewContractRepository(recordStore store.Store) ContractRepository {
	return &contractRepository{
		store: recordStore,
		log:   logger.New("contractRepository"),
	}
}

func (r *contractRepository) Get(ctx context.Context, contractID string) (*models.Contract, error) {
	var contract models.Contract
	if err := r.store.Get(ctx, store.ContractPath(contractID), &contract); err != nil {
		return nil, err
	}
	contract.ID = contractID
	return &contract, nil
}

func (r *contractRepository) Create(ctx context.Context, contract *models.Contract) (string, error) {
	log := r.log.Function("Create")

	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	if contract.State == "" {
		contract.State = models.ContractAwaitingAcceptance
	}
	now := time.Now().UTC()
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = now
	}
	contract.UpdatedAt = now

	if err := r.store.Set(ctx, store.ContractPath(contract.ID), contract); err != nil {
		return "", log.Err("failed to persist contract", err, "contractID", contract.ID)
	}

	return contract.ID, nil
}

func (r *contractRepository) Transition(ctx context.Context, contractID string, to models.ContractState) (*models.Contract, error) {
	log := r.log.Function("Transition")

	contract, err := r.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.State.CanTransition(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, contract.State, to)
	}

	contract.State = to
	contract.UpdatedAt = time.Now().UTC()

	fields := map[string]any{
		"contractState": contract.State,
		"updatedAt":     contract.UpdatedAt,
	}
	if err := r.store.Update(ctx, store.ContractPath(contractID), fields); err != nil {
		return nil, log.Err("failed to update contract state", err, "contractID", contractID, "to", string(to))
	}

	return contract, nil
}

func (r *contractRepository) SetCompletionFlag(ctx context.Context, contractID, partyID string) (*models.Contract, error) {
	log := r.log.Function("SetCompletionFlag")

	contract, err := r.Get(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if contract.State != models.ContractActive && contract.State != models.ContractAwaitingMutualCompletion {
		return nil, fmt.Errorf("%w: cannot flag completion while %s", ErrIllegalTransition, contract.State)
	}
	if !contract.IsParty(partyID) {
		return nil, fmt.Errorf("%w: %s is not a party to contract %s", ErrIllegalTransition, partyID, contractID)
	}

	if contract.CompletionFlags == nil {
		contract.CompletionFlags = make(map[string]bool)
	}
	contract.CompletionFlags[partyID] = true
	contract.State = models.ContractAwaitingMutualCompletion
	contract.UpdatedAt = time.Now().UTC()

	fields := map[string]any{
		"completionFlags": contract.CompletionFlags,
		"contractState":   contract.State,
		"updatedAt":       contract.UpdatedAt,
	}
	if err := r.store.Update(ctx, store.ContractPath(contractID), fields); err != nil {
		return nil, log.Err("failed to record completion flag", err, "contractID", contractID, "partyID", partyID)
	}

	return contract, nil
}

// Delete removes the contract record. A contract that is already gone is
// treated as a successful delete.
func (r *contractRepository) Delete(ctx context.Context, contractID string) error {
	return r.store.Remove(ctx, store.ContractPath(contractID))
}
