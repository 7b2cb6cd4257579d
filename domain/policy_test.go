package domain

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

func mustDate(t *testing.T, value string) Date {
	t.Helper()
	d, err := ParseDate(value)
	require.NoError(t, err)
	return d
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.ParseInLocation("2006-01-02T15:04:05", value, kolkata)
	require.NoError(t, err)
	return parsed
}

func ptr[T any](v T) *T { return &v }

func TestIsDue_CompletedIsNeverDue(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	frequencies := []Frequency{FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly, "Yearly"}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, kolkata)

	for i := 0; i < 2000; i++ {
		due := base.Add(time.Duration(rng.Int63n(int64(400 * 24 * time.Hour))))
		r := Reminder{
			DueDate:   DateOf(due),
			Frequency: frequencies[rng.Intn(len(frequencies))],
			Completed: true,
		}
		if rng.Intn(2) == 0 {
			r.DueTime = &TimeOfDay{Hour: rng.Intn(24), Minute: rng.Intn(60)}
		}
		if rng.Intn(2) == 0 {
			r.LastNotifiedAt = ptr(base.Add(time.Duration(rng.Int63n(int64(400 * 24 * time.Hour)))))
		}
		now := base.Add(time.Duration(rng.Int63n(int64(800 * 24 * time.Hour))))

		require.False(t, IsDue(r, now, kolkata), "completed reminder judged due: %+v at %s", r, now)
	}
}

func TestIsDue_NotBeforeDueMoment(t *testing.T) {
	r := Reminder{
		DueDate:   mustDate(t, "2024-03-10"),
		DueTime:   &TimeOfDay{Hour: 9, Minute: 30},
		Frequency: FrequencyDaily,
	}

	assert.False(t, IsDue(r, at(t, "2024-03-10T09:29:59"), kolkata))
	assert.True(t, IsDue(r, at(t, "2024-03-10T09:30:00"), kolkata))
}

func TestIsDue_MissingTimeMeansStartOfDay(t *testing.T) {
	r := Reminder{DueDate: mustDate(t, "2024-03-10"), Frequency: FrequencyOnce}

	assert.False(t, IsDue(r, at(t, "2024-03-09T23:59:59"), kolkata))
	assert.True(t, IsDue(r, at(t, "2024-03-10T00:00:00"), kolkata))
}

func TestIsDue_Once(t *testing.T) {
	r := Reminder{DueDate: mustDate(t, "2024-01-01"), Frequency: FrequencyOnce}
	now := at(t, "2024-01-05T10:00:00")
	require.True(t, IsDue(r, now, kolkata))

	r.LastNotifiedAt = &now
	for _, later := range []time.Duration{0, time.Minute, 24 * time.Hour, 365 * 24 * time.Hour} {
		assert.False(t, IsDue(r, now.Add(later), kolkata))
	}
}

func TestIsDue_DailyFollowsCalendarDays(t *testing.T) {
	r := Reminder{
		DueDate:        mustDate(t, "2024-01-01"),
		Frequency:      FrequencyDaily,
		LastNotifiedAt: ptr(at(t, "2024-01-05T00:10:00")),
	}

	assert.False(t, IsDue(r, at(t, "2024-01-05T00:10:01"), kolkata))
	assert.False(t, IsDue(r, at(t, "2024-01-05T23:59:59"), kolkata))
	assert.True(t, IsDue(r, at(t, "2024-01-06T00:00:00"), kolkata))
}

func TestIsDue_DailyUsesConfiguredZone(t *testing.T) {
	// 20:00 UTC on Jan 5 is already Jan 6 in IST.
	r := Reminder{
		DueDate:        mustDate(t, "2024-01-01"),
		Frequency:      FrequencyDaily,
		LastNotifiedAt: ptr(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)),
	}
	now := time.Date(2024, 1, 5, 20, 0, 0, 0, time.UTC)

	assert.True(t, IsDue(r, now, kolkata))
	assert.False(t, IsDue(r, now, time.UTC))
}

func TestIsDue_WeeklyScenario(t *testing.T) {
	r := Reminder{
		DueDate:        mustDate(t, "2024-01-01"),
		DueTime:        &TimeOfDay{Hour: 9},
		Frequency:      FrequencyWeekly,
		LastNotifiedAt: ptr(at(t, "2024-01-03T09:00:00")),
	}

	assert.False(t, IsDue(r, at(t, "2024-01-09T09:00:00"), kolkata))
	assert.False(t, IsDue(r, at(t, "2024-01-10T08:59:59"), kolkata))
	assert.True(t, IsDue(r, at(t, "2024-01-10T09:00:00"), kolkata))
}

func TestIsDue_MonthlyUsesThirtyDays(t *testing.T) {
	r := Reminder{
		DueDate:        mustDate(t, "2024-01-31"),
		Frequency:      FrequencyMonthly,
		LastNotifiedAt: ptr(at(t, "2024-01-31T00:00:00")),
	}

	assert.False(t, IsDue(r, at(t, "2024-02-29T23:59:59"), kolkata))
	assert.True(t, IsDue(r, at(t, "2024-03-01T00:00:00"), kolkata))
}

func TestIsDue_FirstNotificationForRecurring(t *testing.T) {
	for _, f := range []Frequency{FrequencyDaily, FrequencyWeekly, FrequencyMonthly} {
		r := Reminder{DueDate: mustDate(t, "2024-01-01"), Frequency: f}
		assert.True(t, IsDue(r, at(t, "2024-01-01T00:00:00"), kolkata), string(f))
	}
}

func TestIsDue_UnknownFrequency(t *testing.T) {
	r := Reminder{DueDate: mustDate(t, "2024-01-01"), Frequency: "Fortnightly"}
	assert.False(t, IsDue(r, at(t, "2024-06-01T00:00:00"), kolkata))
}
