// AngelaMos | 2026
// entitlement_test.go

package persona

import (
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelamos/personaforge/internal/core"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func seedPersona(t *testing.T, repo *memRepo, id, userID string) {
	t.Helper()

	p := &Persona{
		ID:              id,
		Type:            TypeB2CIndividual,
		BusinessContext: testBusinessContext(),
		PersonaData:     []byte(validIndividualJSON),
		IsComplete:      true,
	}
	if userID != "" {
		p.UserID = &userID
	}
	require.NoError(t, repo.Create(t.Context(), p))
}

func TestUnlockWithFreeCreditHappyPath(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	svc := NewEntitlementService(repo, credits, discardLogger())

	seedPersona(t, repo, "p1", "u1")

	err := svc.UnlockWithFreeCredit(t.Context(), "u1", "p1")
	require.NoError(t, err)

	p, err := repo.GetByID(t.Context(), "p1")
	require.NoError(t, err)
	assert.True(t, p.IsUnlocked)

	used, err := credits.FreeCreditUsed(t.Context(), "u1")
	require.NoError(t, err)
	assert.True(t, used)
}

func TestUnlockIsOncePerUser(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	svc := NewEntitlementService(repo, credits, discardLogger())

	seedPersona(t, repo, "p1", "u1")
	seedPersona(t, repo, "p2", "u1")

	require.NoError(t, svc.UnlockWithFreeCredit(t.Context(), "u1", "p1"))

	err := svc.UnlockWithFreeCredit(t.Context(), "u1", "p2")
	assert.ErrorIs(t, err, ErrCreditAlreadyUsed)

	p2, err := repo.GetByID(t.Context(), "p2")
	require.NoError(t, err)
	assert.False(t, p2.IsUnlocked)
}

func TestUnlockPreconditionOrdering(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	svc := NewEntitlementService(repo, credits, discardLogger())

	seedPersona(t, repo, "owned", "u1")
	seedPersona(t, repo, "foreign", "u2")

	t.Run("anonymous", func(t *testing.T) {
		err := svc.UnlockWithFreeCredit(t.Context(), "", "owned")
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})

	t.Run("missing persona", func(t *testing.T) {
		err := svc.UnlockWithFreeCredit(t.Context(), "u1", "nope")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("foreign persona", func(t *testing.T) {
		err := svc.UnlockWithFreeCredit(t.Context(), "u1", "foreign")
		assert.ErrorIs(t, err, ErrNotOwner)
	})

	t.Run("already unlocked", func(t *testing.T) {
		require.NoError(t, svc.UnlockWithFreeCredit(t.Context(), "u1", "owned"))
		err := svc.UnlockWithFreeCredit(t.Context(), "u1", "owned")
		assert.ErrorIs(t, err, ErrAlreadyUnlocked)
	})

	t.Run("spent credit reported before ownership", func(t *testing.T) {
		// u1's credit is now spent; unlocking u2's persona must surface
		// the credit rejection, not the ownership one.
		err := svc.UnlockWithFreeCredit(t.Context(), "u1", "foreign")
		assert.ErrorIs(t, err, ErrCreditAlreadyUsed)
	})
}

func TestUnlockCompensatesWhenCreditWriteFails(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	credits.consumeErr = errors.New("users table is on fire")
	svc := NewEntitlementService(repo, credits, discardLogger())

	seedPersona(t, repo, "p1", "u1")

	err := svc.UnlockWithFreeCredit(t.Context(), "u1", "p1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCompensationFailed)

	// The relock must have undone the unlock.
	p, getErr := repo.GetByID(t.Context(), "p1")
	require.NoError(t, getErr)
	assert.False(t, p.IsUnlocked)
}

func TestUnlockCreditConflictAfterStaleRead(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	svc := NewEntitlementService(repo, credits, discardLogger())

	seedPersona(t, repo, "p1", "u1")

	// The credit was spent between the early read and the conditional
	// write; the write-time conflict must win and relock the persona.
	credits.used["u1"] = true
	credits.staleRead = true

	err := svc.UnlockWithFreeCredit(t.Context(), "u1", "p1")
	assert.ErrorIs(t, err, ErrCreditAlreadyUsed)

	p, getErr := repo.GetByID(t.Context(), "p1")
	require.NoError(t, getErr)
	assert.False(t, p.IsUnlocked)
}

func TestUnlockCompensationFailureIsLoud(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	credits.consumeErr = errors.New("credit write failed")
	svc := NewEntitlementService(repo, credits, discardLogger())

	seedPersona(t, repo, "p1", "u1")
	repo.failOn("relock", errors.New("relock also failed"))

	err := svc.UnlockWithFreeCredit(t.Context(), "u1", "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCompensationFailed)
}

func TestUnlockConcurrentSpendsExactlyOneCredit(t *testing.T) {
	repo := newMemRepo()
	credits := newMemCredits()
	svc := NewEntitlementService(repo, credits, discardLogger())

	ids := []string{"p1", "p2", "p3", "p4"}
	for _, id := range ids {
		seedPersona(t, repo, id, "u1")
	}

	var wg sync.WaitGroup
	results := make([]error, len(ids))

	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = svc.UnlockWithFreeCredit(t.Context(), "u1", id)
		}(i, id)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrCreditAlreadyUsed)
		}
	}
	assert.Equal(t, 1, successes, "exactly one unlock must win")

	unlocked, err := repo.CountUnlocked(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, unlocked,
		"losing unlocks must be compensated back to locked")
	assert.Equal(t, 1, credits.consumedCnt)
}
