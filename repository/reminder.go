package repository

import (
	"context"
	"time"

	"github.com/fastygo/reminders/domain"
)

type ReminderFilter struct {
	ClientID int64
	// Completed filters by completion state when non-nil.
	Completed *bool
	Limit     int
	Offset    int
}

// CandidateFilter pages through the notifiable projection by ascending id.
type CandidateFilter struct {
	AfterID int64
	Limit   int
}

type ReminderRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Reminder, error)
	List(ctx context.Context, filter ReminderFilter) ([]domain.Reminder, error)
	Create(ctx context.Context, reminder *domain.Reminder) (*domain.Reminder, error)
	// Update rewrites the schedule fields only. Completion and notification
	// history are owned by MarkCompleted and MarkNotified.
	Update(ctx context.Context, reminder *domain.Reminder) error

	// ListNotifiable returns incomplete reminders whose client has an email.
	ListNotifiable(ctx context.Context, filter CandidateFilter) ([]domain.Candidate, error)
	GetCandidate(ctx context.Context, id int64) (*domain.Candidate, error)

	// MarkNotified records a delivery. The stored value never moves backwards.
	MarkNotified(ctx context.Context, id int64, at time.Time) error
	// MarkCompleted is idempotent.
	MarkCompleted(ctx context.Context, id int64) error
}
