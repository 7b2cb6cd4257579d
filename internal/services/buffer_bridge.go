package services

import (
	"context"
	"time"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/infrastructure/buffer"
	"github.com/fastygo/reminders/usecase"
)

type BufferBridge struct {
	processor *BufferProcessor
}

func NewBufferBridge(processor *BufferProcessor) *BufferBridge {
	return &BufferBridge{processor: processor}
}

func (b *BufferBridge) ParkDelivery(_ context.Context, reminderID int64, notifiedAt time.Time, cause error) error {
	if b.processor == nil || reminderID <= 0 {
		return domain.ErrInvalidPayload
	}
	record := buffer.Record{
		ReminderID: reminderID,
		NotifiedAt: notifiedAt,
	}
	if cause != nil {
		record.LastError = cause.Error()
	}
	return b.processor.Park(record)
}

var _ usecase.DeliveryBuffer = (*BufferBridge)(nil)
