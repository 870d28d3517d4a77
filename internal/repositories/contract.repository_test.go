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

func newContractFixture(t *testing.T) ContractRepository {
	t.Helper()
	return NewContractRepository(store.NewMemoryStore())
}

func draftContract() *models.Contract {
	return &models.Contract{
		ClientID:   "c1",
		WorkerID:   "w1",
		ClientName: "Ana",
		Proposal: models.Proposal{
			Amount:      decimal.RequireFromString("150.00"),
			ServiceTags: []string{"pintura"},
			ServiceDate: "2025-03-10",
		},
	}
}

func TestCreateDefaultsToAwaitingAcceptance(t *testing.T) {
	repo := newContractFixture(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, draftContract())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	contract, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ContractAwaitingAcceptance, contract.State)
	assert.Equal(t, "c1", contract.ClientID)
	assert.True(t, contract.Proposal.Amount.Equal(decimal.RequireFromString("150.00")))
	assert.False(t, contract.CreatedAt.IsZero())
}

func TestGetMissingContractReturnsNotFound(t *testing.T) {
	repo := newContractFixture(t)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTransitionFollowsLifecycle(t *testing.T) {
	repo := newContractFixture(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, draftContract())
	require.NoError(t, err)

	contract, err := repo.Transition(ctx, id, models.ContractActive)
	require.NoError(t, err)
	assert.Equal(t, models.ContractActive, contract.State)

	stored, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ContractActive, stored.State)
}

func TestTransitionRejectsIllegalMoves(t *testing.T) {
	repo := newContractFixture(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, draftContract())
	require.NoError(t, err)

	// Skipping acceptance is not allowed.
	_, err = repo.Transition(ctx, id, models.ContractAwaitingMutualCompletion)
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = repo.Transition(ctx, id, models.ContractActive)
	require.NoError(t, err)

	// Accepting twice is a ledger-level violation.
	_, err = repo.Transition(ctx, id, models.ContractActive)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestSetCompletionFlagTracksBothParties(t *testing.T) {
	repo := newContractFixture(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, draftContract())
	require.NoError(t, err)
	_, err = repo.Transition(ctx, id, models.ContractActive)
	require.NoError(t, err)

	contract, err := repo.SetCompletionFlag(ctx, id, "c1")
	require.NoError(t, err)
	assert.Equal(t, models.ContractAwaitingMutualCompletion, contract.State)
	assert.True(t, contract.CompletionFlags["c1"])
	assert.False(t, contract.CompletionFlags["w1"])

	contract, err = repo.SetCompletionFlag(ctx, id, "w1")
	require.NoError(t, err)
	assert.True(t, contract.CompletionFlags["c1"])
	assert.True(t, contract.CompletionFlags["w1"])
}

func TestSetCompletionFlagGuardsStateAndParties(t *testing.T) {
	repo := newContractFixture(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, draftContract())
	require.NoError(t, err)

	// Cannot flag completion before acceptance.
	_, err = repo.SetCompletionFlag(ctx, id, "c1")
	assert.ErrorIs(t, err, ErrIllegalTransition)

	_, err = repo.Transition(ctx, id, models.ContractActive)
	require.NoError(t, err)

	// Strangers cannot flag completion.
	_, err = repo.SetCompletionFlag(ctx, id, "intruder")
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

func TestDeleteIsIdempotent(t *testing.T) {
	repo := newContractFixture(t)
	ctx := context.Background()

	id, err := repo.Create(ctx, draftContract())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, id))
	require.NoError(t, repo.Delete(ctx, id))

	_, err = repo.Get(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
