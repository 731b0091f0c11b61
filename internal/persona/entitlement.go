// AngelaMos | 2026
// entitlement.go

package persona

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/angelamos/personaforge/internal/core"
)

var (
	ErrNotAuthenticated   = errors.New("authentication required")
	ErrCreditAlreadyUsed  = errors.New("free persona credit already used")
	ErrNotOwner           = errors.New("persona is not owned by the caller")
	ErrAlreadyUnlocked    = errors.New("persona is already unlocked")
	ErrCompensationFailed = errors.New("unlock compensation failed")
)

// UserCredits is the slice of the user store the entitlement machine
// needs: the free_persona_used column, with conditional writes.
type UserCredits interface {
	FreeCreditUsed(ctx context.Context, userID string) (bool, error)
	// ConsumeFreeCredit flips free_persona_used false->true; it returns
	// core.ErrConflict when the credit was already spent at write time.
	ConsumeFreeCredit(ctx context.Context, userID string) error
}

// EntitlementService owns the free-unlock state machine across the
// persona and user rows. The two writes are not transactional; a failed
// second write is compensated by re-locking the persona.
type EntitlementService struct {
	personas Repository
	credits  UserCredits
	logger   *slog.Logger
}

func NewEntitlementService(
	personas Repository,
	credits UserCredits,
	logger *slog.Logger,
) *EntitlementService {
	return &EntitlementService{
		personas: personas,
		credits:  credits,
		logger:   logger.With("component", "entitlement"),
	}
}

// UnlockWithFreeCredit spends the caller's single free credit on one of
// their personas. Preconditions are checked in a fixed order so every
// rejection reason is distinct and stable for clients.
func (s *EntitlementService) UnlockWithFreeCredit(
	ctx context.Context,
	userID, personaID string,
) error {
	if userID == "" {
		return ErrNotAuthenticated
	}

	used, err := s.credits.FreeCreditUsed(ctx, userID)
	if err != nil {
		return fmt.Errorf("check free credit: %w", err)
	}
	if used {
		return ErrCreditAlreadyUsed
	}

	p, err := s.personas.GetByID(ctx, personaID)
	if err != nil {
		return err
	}

	if !p.IsOwnedBy(userID) {
		return ErrNotOwner
	}

	if p.IsUnlocked {
		return ErrAlreadyUnlocked
	}

	// Step 1: unlock the persona. The conditional update loses cleanly to
	// a concurrent unlock of the same row.
	if err := s.personas.MarkUnlocked(ctx, personaID); err != nil {
		if errors.Is(err, core.ErrConflict) {
			return ErrAlreadyUnlocked
		}
		return fmt.Errorf("unlock persona: %w", err)
	}

	// Step 2: spend the credit. The conditional update is what enforces
	// "at most one unlock per user" across instances.
	if err := s.credits.ConsumeFreeCredit(ctx, userID); err != nil {
		if rbErr := s.personas.Relock(ctx, personaID); rbErr != nil {
			// The persona is unlocked but the credit state is unknown.
			// This must be an operational alarm, never a silent swallow.
			s.logger.Error("unlock compensation failed",
				"user_id", userID,
				"persona_id", personaID,
				"credit_error", err.Error(),
				"relock_error", rbErr.Error(),
			)
			return fmt.Errorf(
				"%w: relock failed: %v (credit error: %v)",
				ErrCompensationFailed, rbErr, err,
			)
		}

		if errors.Is(err, core.ErrConflict) {
			return ErrCreditAlreadyUsed
		}
		return fmt.Errorf("consume free credit: %w", err)
	}

	s.logger.Info("persona unlocked with free credit",
		"user_id", userID,
		"persona_id", personaID,
	)

	return nil
}
