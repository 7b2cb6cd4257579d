package postgres

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/fastygo/reminders/domain"
)

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func encodeDate(d domain.Date) time.Time {
	return d.In(time.UTC)
}

func encodeTimeOfDay(t *domain.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	seconds := int64(t.Hour*3600 + t.Minute*60)
	return pgtype.Time{Microseconds: seconds * int64(time.Second/time.Microsecond), Valid: true}
}

func decodeTimeOfDay(t pgtype.Time) *domain.TimeOfDay {
	if !t.Valid {
		return nil
	}
	minutes := t.Microseconds / int64(time.Minute/time.Microsecond)
	return &domain.TimeOfDay{Hour: int(minutes / 60), Minute: int(minutes % 60)}
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
