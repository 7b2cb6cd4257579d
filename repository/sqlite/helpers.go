package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/fastygo/reminders/domain"
)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullClientID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func nullTimeOfDay(t *domain.TimeOfDay) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.String(), Valid: true}
}

func createdAtOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return 100
	}
	return limit
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// reminderRow holds the raw column values shared by reminder and candidate scans.
type reminderRow struct {
	id           int64
	clientID     sql.NullInt64
	dueDate      string
	dueTime      sql.NullString
	frequency    string
	description  string
	completed    bool
	lastNotified sql.NullInt64
	createdAt    int64
}

func (r *reminderRow) targets() []interface{} {
	return []interface{}{
		&r.id,
		&r.clientID,
		&r.dueDate,
		&r.dueTime,
		&r.frequency,
		&r.description,
		&r.completed,
		&r.lastNotified,
		&r.createdAt,
	}
}

func (r *reminderRow) decode() (domain.Reminder, error) {
	reminder := domain.Reminder{
		ID:          r.id,
		Frequency:   domain.Frequency(r.frequency),
		Description: r.description,
		Completed:   r.completed,
		CreatedAt:   fromMillis(r.createdAt),
	}
	if r.clientID.Valid {
		clientID := r.clientID.Int64
		reminder.ClientID = &clientID
	}

	dueDate, err := domain.ParseDate(r.dueDate)
	if err != nil {
		return domain.Reminder{}, fmt.Errorf("reminder %d: stored due date: %w", r.id, err)
	}
	reminder.DueDate = dueDate

	if r.dueTime.Valid {
		dueTime, err := domain.ParseTimeOfDay(r.dueTime.String)
		if err != nil {
			return domain.Reminder{}, fmt.Errorf("reminder %d: stored due time: %w", r.id, err)
		}
		reminder.DueTime = &dueTime
	}
	if r.lastNotified.Valid {
		last := fromMillis(r.lastNotified.Int64)
		reminder.LastNotifiedAt = &last
	}
	return reminder, nil
}
