package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/infrastructure/buffer"
	"github.com/fastygo/reminders/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// ProcessorConfig controls how buffered deliveries are replayed.
type ProcessorConfig struct {
	BatchSize    int
	MaxRetries   int
	Retention    time.Duration
	StoreTimeout time.Duration
}

// BufferProcessor replays delivery records parked after a failed
// last-notified write. The scheduler drains it before each scan so a
// recorded send is visible to the policy before the reminder is re-evaluated.
type BufferProcessor struct {
	store     *buffer.Store
	monitor   ConnectionHealth
	reminders repository.ReminderRepository
	logger    *zap.Logger
	cfg       ProcessorConfig
}

func NewBufferProcessor(
	store *buffer.Store,
	monitor ConnectionHealth,
	reminders repository.ReminderRepository,
	logger *zap.Logger,
	cfg ProcessorConfig,
) *BufferProcessor {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 72 * time.Hour
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BufferProcessor{
		store:     store,
		monitor:   monitor,
		reminders: reminders,
		logger:    logger,
		cfg:       cfg,
	}
}

// Drain replays buffered deliveries synchronously and returns how many were applied.
func (bp *BufferProcessor) Drain(ctx context.Context) (int, error) {
	if bp == nil || bp.store == nil {
		return 0, nil
	}
	if bp.monitor != nil && !bp.monitor.IsOnline() {
		bp.logger.Debug("skipping buffer drain (offline)")
		return 0, nil
	}

	if removed, err := bp.store.Cleanup(time.Now().Add(-bp.cfg.Retention)); err != nil {
		bp.logger.Warn("buffer cleanup failed", zap.Error(err))
	} else if removed > 0 {
		bp.logger.Warn("expired buffered deliveries dropped", zap.Int("count", removed))
	}

	records, err := bp.store.GetBatch(bp.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, record := range records {
		if ctx.Err() != nil {
			return applied, ctx.Err()
		}
		err := bp.replay(ctx, record)
		switch {
		case err == nil:
			applied++
		case errors.Is(err, domain.ErrReminderNotFound):
			bp.logger.Warn("dropping buffered delivery for missing reminder", zap.Int64("reminder_id", record.ReminderID))
		default:
			bp.logger.Error("failed to replay buffered delivery",
				zap.String("record_id", record.ID),
				zap.Int64("reminder_id", record.ReminderID),
				zap.Error(err))

			record.Retries++
			record.LastError = err.Error()
			if record.Retries >= bp.cfg.MaxRetries {
				bp.logger.Warn("dropping buffered delivery (max retries reached)", zap.String("record_id", record.ID))
				_ = bp.store.Remove(record)
				continue
			}
			if err := bp.store.Requeue(record); err != nil {
				bp.logger.Error("failed to requeue buffered delivery", zap.Error(err))
			}
			continue
		}

		if err := bp.store.Remove(record); err != nil {
			bp.logger.Warn("failed to purge replayed delivery", zap.Error(err))
		}
	}
	return applied, nil
}

// replay writes one parked record under its own store deadline so a hung
// store cannot hold the scheduler cycle open.
func (bp *BufferProcessor) replay(ctx context.Context, record buffer.Record) error {
	storeCtx, cancel := context.WithTimeout(ctx, bp.cfg.StoreTimeout)
	defer cancel()
	return bp.reminders.MarkNotified(storeCtx, record.ReminderID, record.NotifiedAt)
}

// Park persists a delivery record for later replay.
func (bp *BufferProcessor) Park(record buffer.Record) error {
	if bp == nil || bp.store == nil {
		return fmt.Errorf("buffer processor not configured")
	}
	return bp.store.Enqueue(record)
}

// Size returns the number of buffered deliveries.
func (bp *BufferProcessor) Size() int {
	if bp == nil || bp.store == nil {
		return 0
	}
	size, err := bp.store.Size()
	if err != nil {
		return 0
	}
	return size
}
