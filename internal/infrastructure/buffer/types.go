package buffer

import (
	"time"

	"github.com/google/uuid"
)

// Record is a delivery whose last-notified write could not be persisted.
// Replaying it applies the write once the store is reachable again.
type Record struct {
	ID         string    `json:"id"`
	ReminderID int64     `json:"reminder_id"`
	NotifiedAt time.Time `json:"notified_at"`
	Retries    int       `json:"retries"`
	LastError  string    `json:"last_error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	bucketKey []byte
}

func (r *Record) normalize() {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
}
