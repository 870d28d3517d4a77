package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"oficio/internal/events"
	"oficio/internal/logger"
	"oficio/internal/models"
	"oficio/internal/repositories"
	"oficio/internal/store"
	"oficio/internal/utils"
)

// ErrValidation marks a request rejected before any state was touched.
var ErrValidation = errors.New("invalid booking request")

type CompletionOutcome string

const (
	// BothCompleted means the second completion signal arrived and the
	// contract record has been closed out.
	BothCompleted CompletionOutcome = "both_completed"

	// WaitingOnOtherParty means the actor's flag is recorded and the
	// counterparty has not signalled yet.
	WaitingOnOtherParty CompletionOutcome = "waiting_on_other_party"

	// ContractGone means the contract no longer existed when the signal
	// arrived, which callers treat as already resolved.
	ContractGone CompletionOutcome = "contract_gone"
)

// BookingService drives the proposal -> contract -> booking -> completion
// lifecycle across the contract ledger, the worker's agenda and the
// notification inbox. Each step is a separate single-record write; a crash
// between steps leaves partial state that the read paths tolerate.
type BookingService struct {
	contracts     repositories.ContractRepository
	agenda        repositories.AgendaRepository
	notifications repositories.NotificationRepository
	eventBus      *events.EventBus
	log           logger.Logger
	now           func() time.Time
}

func NewBookingService(repos repositories.Repository, eventBus *events.EventBus) *BookingService {
	return &BookingService{
		contracts:     repos.Contract,
		agenda:        repos.Agenda,
		notifications: repos.Notification,
		eventBus:      eventBus,
		log:           logger.New("bookingService"),
		now:           time.Now,
	}
}

// InitiateProposal opens a contract in awaiting_acceptance, places a pending
// hold on the worker's agenda for the service date, and drops a proposal
// notification in the worker's inbox. The pending hold is invisible to other
// clients until the worker accepts.
func (s *BookingService) InitiateProposal(
	ctx context.Context,
	client models.Party,
	worker models.Party,
	proposal models.Proposal,
) (*models.Contract, error) {
	log := s.log.Function("InitiateProposal")

	if err := s.validateProposal(client, worker, proposal); err != nil {
		return nil, err
	}

	contract := &models.Contract{
		ClientID:   client.ID,
		WorkerID:   worker.ID,
		ClientName: client.Name,
		Proposal:   proposal,
		State:      models.ContractAwaitingAcceptance,
		CreatedAt:  s.now().UTC(),
	}

	contractID, err := s.contracts.Create(ctx, contract)
	if err != nil {
		return nil, err
	}

	slot := models.CalendarSlot{
		Date:              proposal.ServiceDate,
		Status:            models.SlotPending,
		ClientID:          client.ID,
		ClientName:        client.Name,
		Service:           contract.ServiceLabel(),
		RelatedContractID: contractID,
		CreatedAt:         s.now().UTC(),
	}
	if _, err := s.agenda.CreatePending(ctx, worker.ID, slot); err != nil {
		return nil, err
	}

	notification := models.NewProposalNotification(client, contractID, proposal)
	if _, err := s.notifications.Send(ctx, worker.ID, notification); err != nil {
		// The offer still exists and the worker can find it once the inbox
		// recovers; do not unwind the contract over a notification failure.
		log.Er("proposal notification failed", err, "contractID", contractID, "workerID", worker.ID)
	}

	s.publish(events.CONTRACT_UPDATED, contract)

	log.Info("proposal initiated",
		"contractID", contractID, "clientID", client.ID, "workerID", worker.ID, "serviceDate", proposal.ServiceDate)

	return contract, nil
}

// AcceptProposal activates the contract and confirms the worker's agenda
// slot. Only the contract's worker may accept. Accepting a contract that is
// already active re-runs the confirmation side effects and succeeds, so a
// double-tap or a replayed offline write converges to the same state. A
// contract that no longer exists is treated as already resolved.
func (s *BookingService) AcceptProposal(ctx context.Context, contractID, actorID string) (*models.Contract, error) {
	log := s.log.Function("AcceptProposal")

	contract, err := s.contracts.Get(ctx, contractID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("accept on missing contract ignored", "contractID", contractID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if actorID != contract.WorkerID {
		return nil, fmt.Errorf("%w: only the worker may accept", ErrValidation)
	}

	if contract.State != models.ContractActive {
		contract, err = s.contracts.Transition(ctx, contractID, models.ContractActive)
		if err != nil {
			return nil, err
		}
	}

	err = s.agenda.Confirm(ctx, contract.WorkerID, contract.Proposal.ServiceDate, contractID)
	if errors.Is(err, store.ErrNotFound) {
		// The hold can be missing when the agenda write was lost; the
		// contract is still the source of truth for the engagement.
		log.Warn("no agenda slot to confirm", "contractID", contractID, "workerID", contract.WorkerID)
	} else if err != nil {
		return nil, err
	}

	if err := s.notifications.DismissByContract(ctx, contract.WorkerID, contractID); err != nil {
		log.Er("failed to clear proposal notifications", err, "contractID", contractID)
	}

	s.publish(events.CONTRACT_UPDATED, contract)
	s.publish(events.SLOT_UPDATED, contract)

	log.Info("proposal accepted", "contractID", contractID, "workerID", contract.WorkerID)

	return contract, nil
}

// RefuseProposal deletes the contract and tells the counterparty. Either
// party may refuse. The pending agenda hold is intentionally left in place;
// the orphan sweeper reclaims it later. Refusing a contract that is already
// gone succeeds without sending anything.
func (s *BookingService) RefuseProposal(ctx context.Context, contractID string, actor models.Party) error {
	log := s.log.Function("RefuseProposal")

	contract, err := s.contracts.Get(ctx, contractID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("refusal on missing contract ignored", "contractID", contractID)
		return nil
	}
	if err != nil {
		return err
	}

	counterpartyID := contract.OtherParty(actor.ID)
	if counterpartyID == "" {
		return fmt.Errorf("%w: %s is not a party to this contract", ErrValidation, actor.ID)
	}

	serviceLabel := contract.ServiceLabel()

	if err := s.contracts.Delete(ctx, contractID); err != nil {
		return err
	}

	// Clear the dead offer from both inboxes before announcing the refusal.
	for _, partyID := range []string{contract.ClientID, contract.WorkerID} {
		if err := s.notifications.DismissByContract(ctx, partyID, contractID); err != nil {
			log.Er("failed to clear stale notifications", err, "contractID", contractID, "partyID", partyID)
		}
	}

	refusal := models.NewRefusalNotification(actor, serviceLabel)
	if _, err := s.notifications.Send(ctx, counterpartyID, refusal); err != nil {
		log.Er("refusal notification failed", err, "contractID", contractID, "recipientID", counterpartyID)
	}

	s.publish(events.CONTRACT_DELETED, contract)

	log.Info("proposal refused", "contractID", contractID, "actorID", actor.ID)

	return nil
}

// SignalCompletion records the actor's completion flag. The first signal
// moves the contract to awaiting_mutual_completion; the second closes the
// engagement by deleting the contract record. The confirmed agenda slot stays
// behind as the worker's history. Signalling a contract that is already gone
// reports ContractGone and no error, so the party that arrives after closure
// sees success.
func (s *BookingService) SignalCompletion(
	ctx context.Context,
	contractID, actorID string,
) (CompletionOutcome, *models.Contract, error) {
	log := s.log.Function("SignalCompletion")

	contract, err := s.contracts.Get(ctx, contractID)
	if errors.Is(err, store.ErrNotFound) {
		log.Info("completion on missing contract ignored", "contractID", contractID)
		return ContractGone, nil, nil
	}
	if err != nil {
		return "", nil, err
	}

	if !contract.IsParty(actorID) {
		return "", nil, fmt.Errorf("%w: %s is not a party to this contract", ErrValidation, actorID)
	}

	contract, err = s.contracts.SetCompletionFlag(ctx, contractID, actorID)
	if err != nil {
		return "", nil, err
	}

	if contract.CompletionFlags[contract.ClientID] && contract.CompletionFlags[contract.WorkerID] {
		if err := s.contracts.Delete(ctx, contractID); err != nil {
			return "", nil, err
		}
		s.publish(events.CONTRACT_DELETED, contract)
		log.Info("contract completed by both parties", "contractID", contractID)
		return BothCompleted, contract, nil
	}

	s.publish(events.CONTRACT_UPDATED, contract)
	log.Info("completion signalled", "contractID", contractID, "actorID", actorID)

	return WaitingOnOtherParty, contract, nil
}

// GetContract is a read-through for handlers; missing contracts surface
// store.ErrNotFound.
func (s *BookingService) GetContract(ctx context.Context, contractID string) (*models.Contract, error) {
	return s.contracts.Get(ctx, contractID)
}

func (s *BookingService) publish(eventType events.MessageType, contract *models.Contract) {
	if s.eventBus == nil || contract == nil {
		return
	}
	userIDs := []string{contract.ClientID, contract.WorkerID}
	if err := s.eventBus.PublishBookingEvent(eventType, userIDs, contract); err != nil {
		s.log.Er("failed to publish booking event", err, "eventType", string(eventType), "contractID", contract.ID)
	}
}

func (s *BookingService) validateProposal(client, worker models.Party, proposal models.Proposal) error {
	if client.ID == "" || worker.ID == "" {
		return fmt.Errorf("%w: both parties are required", ErrValidation)
	}
	if client.ID == worker.ID {
		return fmt.Errorf("%w: client and worker must differ", ErrValidation)
	}
	if len(proposal.ServiceTags) < 1 || len(proposal.ServiceTags) > 3 {
		return fmt.Errorf("%w: between one and three service tags are required", ErrValidation)
	}
	if _, err := utils.ParseServiceDate(proposal.ServiceDate); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if utils.IsPastDate(proposal.ServiceDate, s.now()) {
		return fmt.Errorf("%w: service date must not be in the past", ErrValidation)
	}
	if proposal.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if proposal.Address == "" {
		return fmt.Errorf("%w: address is required", ErrValidation)
	}
	return nil
}
