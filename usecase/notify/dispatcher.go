package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/mail"
	"github.com/fastygo/reminders/repository"
	"github.com/fastygo/reminders/usecase"
)

// Result describes what a single dispatch did.
type Result string

const (
	ResultSent               Result = "sent"
	ResultSkippedCompleted   Result = "skipped_completed"
	ResultSkippedNoRecipient Result = "skipped_no_recipient"
	ResultSkippedNotDue      Result = "skipped_not_due"
	ResultFailed             Result = "failed"
)

// TokenMinter issues completion tokens.
type TokenMinter interface {
	Mint(reminderID int64) (string, error)
}

type Config struct {
	BaseURL      string
	Location     *time.Location
	StoreTimeout time.Duration
	SendTimeout  time.Duration
}

// Dispatcher sends one reminder email and records the delivery.
type Dispatcher struct {
	reminders repository.ReminderRepository
	tokens    TokenMinter
	renderer  *mail.Renderer
	sender    mail.Sender
	buffer    usecase.DeliveryBuffer
	clock     clock.Clock
	cfg       Config
	logger    *zap.Logger
}

func NewDispatcher(
	reminders repository.ReminderRepository,
	tokens TokenMinter,
	renderer *mail.Renderer,
	sender mail.Sender,
	buffer usecase.DeliveryBuffer,
	clk clock.Clock,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if clk == nil {
		clk = clock.New()
	}
	if renderer == nil {
		renderer = mail.NewRenderer("")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 30 * time.Second
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		reminders: reminders,
		tokens:    tokens,
		renderer:  renderer,
		sender:    sender,
		buffer:    buffer,
		clock:     clk,
		cfg:       cfg,
		logger:    logger,
	}
}

// Dispatch re-reads the reminder, sends it if it is still due and records the
// dispatch instant. A send failure leaves last-notified untouched so the next
// cycle retries.
func (d *Dispatcher) Dispatch(ctx context.Context, reminderID int64) (Result, error) {
	log := d.logger.With(zap.Int64("reminder_id", reminderID))

	candidate, err := d.fetch(ctx, reminderID)
	if err != nil {
		return ResultFailed, err
	}

	now := d.clock.Now()
	switch {
	case candidate.Completed:
		log.Debug("reminder already completed")
		return ResultSkippedCompleted, nil
	case !candidate.HasRecipient():
		log.Warn("reminder has no recipient email")
		return ResultSkippedNoRecipient, nil
	case !domain.IsDue(candidate.Reminder, now, d.cfg.Location):
		log.Debug("reminder no longer due")
		return ResultSkippedNotDue, nil
	}

	token, err := d.tokens.Mint(candidate.ID)
	if err != nil {
		return ResultFailed, fmt.Errorf("mint completion token: %w", err)
	}

	msg, err := d.renderer.Render(mail.Notice{
		To:            candidate.ClientEmail,
		ClientName:    candidate.ClientName,
		Description:   candidate.Description,
		DueDate:       candidate.DueDate,
		DueTime:       candidate.DueTime,
		CompletionURL: d.cfg.BaseURL + "/complete/" + token,
	})
	if err != nil {
		return ResultFailed, fmt.Errorf("render reminder email: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	err = d.sender.Send(sendCtx, msg)
	cancel()
	if err != nil {
		log.Warn("reminder email not sent", zap.Error(err))
		return ResultFailed, fmt.Errorf("send reminder %d: %w", reminderID, err)
	}

	if err := d.record(ctx, reminderID, now); err != nil {
		log.Error("reminder sent but delivery not recorded", zap.Error(err))
		if d.buffer == nil {
			return ResultSent, err
		}
		if parkErr := d.buffer.ParkDelivery(ctx, reminderID, now, err); parkErr != nil {
			return ResultSent, errors.Join(err, fmt.Errorf("park delivery: %w", parkErr))
		}
		log.Warn("delivery parked for replay")
	}

	log.Info("reminder sent", zap.String("frequency", string(candidate.Frequency)))
	return ResultSent, nil
}

func (d *Dispatcher) fetch(ctx context.Context, id int64) (*domain.Candidate, error) {
	storeCtx, cancel := context.WithTimeout(ctx, d.cfg.StoreTimeout)
	defer cancel()
	return d.reminders.GetCandidate(storeCtx, id)
}

// record outlives cancellation of ctx: the email is already out.
func (d *Dispatcher) record(ctx context.Context, id int64, at time.Time) error {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.StoreTimeout)
	defer cancel()
	return d.reminders.MarkNotified(storeCtx, id, at)
}
