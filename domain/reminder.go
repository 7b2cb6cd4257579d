package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency controls how often a reminder is re-notified once it is due.
type Frequency string

const (
	FrequencyOnce    Frequency = "Once"
	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
)

// ParseFrequency resolves a frequency name case-insensitively. An empty value
// means Once.
func ParseFrequency(value string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "once":
		return FrequencyOnce, nil
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return "", WrapError(ErrCodeInvalid, "invalid frequency", fmt.Errorf("unknown value %q", value))
	}
}

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyOnce, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

const (
	dateLayout      = "2006-01-02"
	timeOfDayLayout = "15:04"
)

// extractedDateLayouts are accepted from upstream document extraction in
// addition to the canonical layout. Day comes before month.
var extractedDateLayouts = []string{
	dateLayout,
	"02/01/2006",
	"02-01-2006",
}

// Date is a calendar date without time-of-day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a canonical YYYY-MM-DD date.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return Date{}, WrapError(ErrCodeInvalid, "invalid due date", err)
	}
	return DateOf(t), nil
}

// ParseExtractedDate parses a date produced by document extraction. It accepts
// YYYY-MM-DD, DD/MM/YYYY and DD-MM-YYYY and rejects everything else.
func ParseExtractedDate(value string) (Date, error) {
	value = strings.TrimSpace(value)
	for _, layout := range extractedDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, WrapError(ErrCodeInvalid, "invalid due date", fmt.Errorf("unrecognized date %q", value))
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) String() string {
	return d.In(time.UTC).Format(dateLayout)
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeOfDay is a wall-clock time with minute precision.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses a 24h HH:MM value.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	t, err := time.Parse(timeOfDayLayout, strings.TrimSpace(value))
	if err != nil {
		return TimeOfDay{}, WrapError(ErrCodeInvalid, "invalid due time", err)
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Reminder is a deadline-bound obligation that may be notified repeatedly.
type Reminder struct {
	ID             int64      `json:"id"`
	ClientID       *int64     `json:"client_id,omitempty"`
	DueDate        Date       `json:"due_date"`
	DueTime        *TimeOfDay `json:"due_time,omitempty"`
	Frequency      Frequency  `json:"frequency"`
	Description    string     `json:"description"`
	Completed      bool       `json:"completed"`
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// DueMoment combines the due date and time in loc. A missing time means
// start of day.
func (r *Reminder) DueMoment(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	at := r.DueDate.In(loc)
	if r.DueTime != nil {
		at = time.Date(r.DueDate.Year, r.DueDate.Month, r.DueDate.Day, r.DueTime.Hour, r.DueTime.Minute, 0, 0, loc)
	}
	return at
}

// Normalize validates the fields callers are allowed to set.
func (r *Reminder) Normalize() error {
	if r == nil {
		return ErrInvalidPayload
	}
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return ErrEmptyDescription
	}
	if r.DueDate.IsZero() {
		return ErrInvalidDueDate
	}
	if r.Frequency == "" {
		r.Frequency = FrequencyOnce
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if r.ClientID != nil && *r.ClientID <= 0 {
		r.ClientID = nil
	}
	return nil
}

// Candidate is a reminder joined with the delivery details of its client.
type Candidate struct {
	Reminder
	ClientName  string `json:"client_name,omitempty"`
	ClientEmail string `json:"client_email,omitempty"`
}

// HasRecipient reports whether the candidate can be emailed.
func (c *Candidate) HasRecipient() bool {
	return c != nil && strings.TrimSpace(c.ClientEmail) != ""
}
