package services

import (
	"context"
	"testing"
	"time"

	"oficio/internal/models"
	"oficio/internal/repositories"
	"oficio/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ana   = models.Party{ID: "c1", Name: "Ana"}
	bruno = models.Party{ID: "w1", Name: "Bruno"}
	carla = models.Party{ID: "c2", Name: "Carla"}
)

type bookingFixture struct {
	service *BookingService
	repos   repositories.Repository
	store   store.Store
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	recordStore := store.NewMemoryStore()
	repos := repositories.Repository{
		Contract:     repositories.NewContractRepository(recordStore),
		Agenda:       repositories.NewAgendaRepository(recordStore),
		Notification: repositories.NewNotificationRepository(recordStore, nil),
	}

	service := NewBookingService(repos, nil)
	service.now = func() time.Time {
		return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	}

	return &bookingFixture{service: service, repos: repos, store: recordStore}
}

func paintingProposal() models.Proposal {
	return models.Proposal{
		Amount:      decimal.RequireFromString("150.00"),
		ServiceTags: []string{"pintura"},
		Description: "pintar a sala",
		Address:     "Rua A, 12",
		ServiceDate: "2025-03-10",
	}
}

func (f *bookingFixture) propose(t *testing.T, client, worker models.Party) *models.Contract {
	t.Helper()
	contract, err := f.service.InitiateProposal(context.Background(), client, worker, paintingProposal())
	require.NoError(t, err)
	require.NotNil(t, contract)
	return contract
}

func TestInitiateProposalCreatesContractSlotAndNotification(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)
	assert.Equal(t, models.ContractAwaitingAcceptance, contract.State)
	assert.Equal(t, "c1", contract.ClientID)
	assert.Equal(t, "w1", contract.WorkerID)

	day, err := f.repos.Agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DaySingle, day.Shape)
	assert.Equal(t, models.SlotPending, day.Single.Status)
	assert.Equal(t, contract.ID, day.Single.RelatedContractID)
	assert.Equal(t, "Ana", day.Single.ClientName)

	notifications, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, models.NotificationProposal, notifications[0].Kind)
	assert.Equal(t, contract.ID, notifications[0].RelatedContractID)
}

func TestProposalNotificationMirrorsTheOffer(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	f.propose(t, ana, bruno)

	notifications, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)

	payload := notifications[0].Payload
	assert.Equal(t, "c1", payload.ActorID)
	assert.Equal(t, "Ana", payload.ActorName)
	assert.Equal(t, "150.00", payload.Amount.String())
	assert.Equal(t, []string{"pintura"}, payload.ServiceTags)
	assert.Equal(t, "Rua A, 12", payload.Address)
	assert.Equal(t, "2025-03-10", payload.ServiceDate)
}

func TestInitiateProposalValidation(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		client models.Party
		worker models.Party
		mutate func(*models.Proposal)
	}{
		{name: "missing worker", client: ana, worker: models.Party{}},
		{name: "self hire", client: ana, worker: ana},
		{
			name: "malformed date", client: ana, worker: bruno,
			mutate: func(p *models.Proposal) { p.ServiceDate = "10/03/2025" },
		},
		{
			name: "past date", client: ana, worker: bruno,
			mutate: func(p *models.Proposal) { p.ServiceDate = "2025-02-20" },
		},
		{
			name: "no service tags", client: ana, worker: bruno,
			mutate: func(p *models.Proposal) { p.ServiceTags = nil },
		},
		{
			name: "too many service tags", client: ana, worker: bruno,
			mutate: func(p *models.Proposal) {
				p.ServiceTags = []string{"pintura", "reforma", "eletricista", "jardinagem"}
			},
		},
		{
			name: "negative amount", client: ana, worker: bruno,
			mutate: func(p *models.Proposal) { p.Amount = decimal.RequireFromString("-1") },
		},
		{
			name: "missing address", client: ana, worker: bruno,
			mutate: func(p *models.Proposal) { p.Address = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposal := paintingProposal()
			if tt.mutate != nil {
				tt.mutate(&proposal)
			}
			_, err := f.service.InitiateProposal(ctx, tt.client, tt.worker, proposal)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// A rejected request must not leave anything behind.
	busy, err := f.repos.Agenda.GetBusyDates(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, busy)
	notifications, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, notifications)
}

func TestPendingHoldInvisibleUntilAccepted(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	busy, err := f.repos.Agenda.GetBusyDates(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, busy, "pending hold must not mark the date busy")

	_, err = f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)

	busy, err = f.repos.Agenda.GetBusyDates(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, busy["2025-03-10"].Marked)
}

func TestAcceptProposalActivatesAndCleansInbox(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	accepted, err := f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)
	require.NotNil(t, accepted)
	assert.Equal(t, models.ContractActive, accepted.State)

	day, err := f.repos.Agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.SlotConfirmed, day.Single.Status)

	notifications, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, notifications, "proposal notification should be dismissed on acceptance")
}

func TestAcceptProposalIsIdempotent(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	first, err := f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)
	second, err := f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)

	assert.Equal(t, models.ContractActive, first.State)
	assert.Equal(t, models.ContractActive, second.State)
}

func TestAcceptProposalGuards(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	// The client cannot accept their own offer.
	_, err := f.service.AcceptProposal(ctx, contract.ID, "c1")
	assert.ErrorIs(t, err, ErrValidation)

	// Accepting a contract that no longer exists is silently fine.
	accepted, err := f.service.AcceptProposal(ctx, "gone", "w1")
	require.NoError(t, err)
	assert.Nil(t, accepted)
}

func TestRefuseProposalDeletesContractAndNotifiesCounterparty(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	require.NoError(t, f.service.RefuseProposal(ctx, contract.ID, bruno))

	_, err := f.repos.Contract.Get(ctx, contract.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The worker's own proposal notification is gone.
	workerInbox, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, workerInbox)

	// The client got exactly one refusal.
	clientInbox, err := f.repos.Notification.List(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, clientInbox, 1)
	assert.Equal(t, models.NotificationRefusal, clientInbox[0].Kind)
	assert.Equal(t, "Bruno", clientInbox[0].Payload.ActorName)
	assert.Equal(t, "pintura", clientInbox[0].Payload.ServiceLabel)
}

func TestRefusalLeavesPendingSlotBehind(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)
	require.NoError(t, f.service.RefuseProposal(ctx, contract.ID, bruno))

	// The hold survives the refusal; only the sweeper reclaims it.
	day, err := f.repos.Agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DaySingle, day.Shape)
	assert.Equal(t, models.SlotPending, day.Single.Status)
	assert.Equal(t, contract.ID, day.Single.RelatedContractID)
}

func TestRefuseProposalGuards(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	err := f.service.RefuseProposal(ctx, contract.ID, models.Party{ID: "intruder"})
	assert.ErrorIs(t, err, ErrValidation)

	// Refusing twice: the second call sees no contract and succeeds quietly.
	require.NoError(t, f.service.RefuseProposal(ctx, contract.ID, ana))
	require.NoError(t, f.service.RefuseProposal(ctx, contract.ID, ana))

	workerInbox, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, workerInbox, 1, "only the first refusal may notify")
}

func TestMutualCompletionClosesContract(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)
	_, err := f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)

	outcome, updated, err := f.service.SignalCompletion(ctx, contract.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, WaitingOnOtherParty, outcome)
	assert.Equal(t, models.ContractAwaitingMutualCompletion, updated.State)

	outcome, _, err = f.service.SignalCompletion(ctx, contract.ID, "w1")
	require.NoError(t, err)
	assert.Equal(t, BothCompleted, outcome)

	_, err = f.repos.Contract.Get(ctx, contract.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The confirmed slot stays behind as history.
	day, err := f.repos.Agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, models.SlotConfirmed, day.Single.Status)
}

func TestCompletionAfterClosureIsTolerated(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)
	_, err := f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)

	_, _, err = f.service.SignalCompletion(ctx, contract.ID, "c1")
	require.NoError(t, err)
	_, _, err = f.service.SignalCompletion(ctx, contract.ID, "w1")
	require.NoError(t, err)

	// A third signal races the closure and must still look like success.
	outcome, updated, err := f.service.SignalCompletion(ctx, contract.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, ContractGone, outcome)
	assert.Nil(t, updated)
}

func TestCompletionGuards(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	contract := f.propose(t, ana, bruno)

	// Completion before acceptance is an illegal transition.
	_, _, err := f.service.SignalCompletion(ctx, contract.ID, "c1")
	assert.ErrorIs(t, err, repositories.ErrIllegalTransition)

	_, err = f.service.AcceptProposal(ctx, contract.ID, "w1")
	require.NoError(t, err)

	_, _, err = f.service.SignalCompletion(ctx, contract.ID, "intruder")
	assert.ErrorIs(t, err, ErrValidation)

	// Repeated signals from the same party keep waiting on the other one.
	outcome, _, err := f.service.SignalCompletion(ctx, contract.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, WaitingOnOtherParty, outcome)
	outcome, _, err = f.service.SignalCompletion(ctx, contract.ID, "c1")
	require.NoError(t, err)
	assert.Equal(t, WaitingOnOtherParty, outcome)
}

func TestTwoClientsCanCourtTheSameDate(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	first := f.propose(t, ana, bruno)
	second := f.propose(t, carla, bruno)

	day, err := f.repos.Agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	require.Equal(t, models.DayMulti, day.Shape)
	assert.Len(t, day.Multi, 2)

	// Accepting one offer confirms only its own slot.
	_, err = f.service.AcceptProposal(ctx, second.ID, "w1")
	require.NoError(t, err)

	day, err = f.repos.Agenda.GetDay(ctx, "w1", "2025-03-10")
	require.NoError(t, err)
	for _, slot := range day.Multi {
		switch slot.RelatedContractID {
		case second.ID:
			assert.Equal(t, models.SlotConfirmed, slot.Status)
		case first.ID:
			assert.Equal(t, models.SlotPending, slot.Status)
		}
	}

	// The worker's inbox keeps the unresolved offer only.
	notifications, err := f.repos.Notification.List(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, notifications, 1)
	assert.Equal(t, first.ID, notifications[0].RelatedContractID)
}
