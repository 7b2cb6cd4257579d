package usecase

import (
	"context"
	"time"
)

// DeliveryBuffer parks a delivery whose last-notified write failed so it can
// be replayed later. Use cases stay storage-agnostic.
type DeliveryBuffer interface {
	ParkDelivery(ctx context.Context, reminderID int64, notifiedAt time.Time, cause error) error
}
