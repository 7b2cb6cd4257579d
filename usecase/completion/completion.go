package completion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/repository"
)

// Verifier checks a completion token and returns the reminder it names.
type Verifier interface {
	Verify(raw string) (int64, error)
}

type UseCase struct {
	reminders    repository.ReminderRepository
	tokens       Verifier
	storeTimeout time.Duration
	logger       *zap.Logger
}

func New(reminders repository.ReminderRepository, tokens Verifier, storeTimeout time.Duration, logger *zap.Logger) *UseCase {
	if storeTimeout <= 0 {
		storeTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		reminders:    reminders,
		tokens:       tokens,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Complete verifies raw and marks the reminder completed. Token failures are
// returned as token.ErrExpired or token.ErrInvalid; an unknown reminder as
// domain.ErrReminderNotFound. Completing twice is not an error.
func (uc *UseCase) Complete(ctx context.Context, raw string) (int64, error) {
	id, err := uc.tokens.Verify(raw)
	if err != nil {
		return 0, err
	}

	storeCtx, cancel := context.WithTimeout(ctx, uc.storeTimeout)
	defer cancel()
	if err := uc.reminders.MarkCompleted(storeCtx, id); err != nil {
		return id, err
	}

	uc.logger.Info("reminder completed", zap.Int64("reminder_id", id))
	return id, nil
}
