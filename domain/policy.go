package domain

import "time"

const (
	// WeeklyInterval is elapsed time, not calendar-week alignment.
	WeeklyInterval = 7 * 24 * time.Hour
	// MonthlyInterval approximates a month as 30 days.
	MonthlyInterval = 30 * 24 * time.Hour
)

// IsDue decides whether a notification is owed for r at now. Calendar
// comparisons are made in loc. The decision is derived only from persisted
// history, so a missed scheduler cycle is caught up on the next one.
func IsDue(r Reminder, now time.Time, loc *time.Location) bool {
	if r.Completed {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	if now.Before(r.DueMoment(loc)) {
		return false
	}

	last := r.LastNotifiedAt
	switch r.Frequency {
	case FrequencyOnce:
		return last == nil
	case FrequencyDaily:
		return last == nil || DateOf(last.In(loc)).Before(DateOf(now.In(loc)))
	case FrequencyWeekly:
		return last == nil || now.Sub(*last) >= WeeklyInterval
	case FrequencyMonthly:
		return last == nil || now.Sub(*last) >= MonthlyInterval
	default:
		return false
	}
}
