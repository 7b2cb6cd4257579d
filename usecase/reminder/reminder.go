package reminder

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/repository"
)

// SourceDocument marks a due date produced by document extraction, which
// may arrive in day-first layouts.
const SourceDocument = "document"

// Input is the caller-supplied shape of a reminder. Dates and times stay
// strings until validated here.
type Input struct {
	ClientID    *int64
	DueDate     string
	DueTime     string
	Frequency   string
	Description string
	Source      string
}

type UseCase struct {
	reminders repository.ReminderRepository
	clients   repository.ClientRepository
	logger    *zap.Logger
}

func New(reminders repository.ReminderRepository, clients repository.ClientRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		reminders: reminders,
		clients:   clients,
		logger:    logger,
	}
}

func (uc *UseCase) ListReminders(ctx context.Context, filter repository.ReminderFilter) ([]domain.Reminder, error) {
	return uc.reminders.List(ctx, filter)
}

func (uc *UseCase) GetReminder(ctx context.Context, id int64) (*domain.Reminder, error) {
	return uc.reminders.GetByID(ctx, id)
}

// CreateReminder validates in and stores a new open reminder. Malformed
// dates, times and frequencies are rejected, never defaulted.
func (uc *UseCase) CreateReminder(ctx context.Context, in Input) (*domain.Reminder, error) {
	reminder, err := uc.build(ctx, in)
	if err != nil {
		return nil, err
	}
	created, err := uc.reminders.Create(ctx, reminder)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("reminder created",
		zap.Int64("reminder_id", created.ID),
		zap.String("frequency", string(created.Frequency)),
		zap.Stringer("due_date", created.DueDate))
	return created, nil
}

// UpdateReminder rewrites the schedule of an existing reminder. Completion
// and notification history are left as stored.
func (uc *UseCase) UpdateReminder(ctx context.Context, id int64, in Input) (*domain.Reminder, error) {
	reminder, err := uc.build(ctx, in)
	if err != nil {
		return nil, err
	}
	reminder.ID = id
	if err := uc.reminders.Update(ctx, reminder); err != nil {
		return nil, err
	}
	return reminder, nil
}

func (uc *UseCase) build(ctx context.Context, in Input) (*domain.Reminder, error) {
	parseDate := domain.ParseDate
	if strings.EqualFold(strings.TrimSpace(in.Source), SourceDocument) {
		parseDate = domain.ParseExtractedDate
	}
	dueDate, err := parseDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	reminder := &domain.Reminder{
		ClientID:    in.ClientID,
		DueDate:     dueDate,
		Description: in.Description,
	}
	if strings.TrimSpace(in.DueTime) != "" {
		dueTime, err := domain.ParseTimeOfDay(in.DueTime)
		if err != nil {
			return nil, err
		}
		reminder.DueTime = &dueTime
	}
	if reminder.Frequency, err = domain.ParseFrequency(in.Frequency); err != nil {
		return nil, err
	}
	if err := reminder.Normalize(); err != nil {
		return nil, err
	}

	if reminder.ClientID != nil {
		if _, err := uc.clients.GetByID(ctx, *reminder.ClientID); err != nil {
			return nil, err
		}
	}
	return reminder, nil
}
