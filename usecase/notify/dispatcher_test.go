package notify

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
	sqlitestore "github.com/fastygo/reminders/internal/infrastructure/sqlite"
	"github.com/fastygo/reminders/internal/mail"
	"github.com/fastygo/reminders/internal/token"
	"github.com/fastygo/reminders/repository"
	sqliterepo "github.com/fastygo/reminders/repository/sqlite"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

type fakeSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeBuffer struct {
	parked []int64
	err    error
}

func (f *fakeBuffer) ParkDelivery(_ context.Context, reminderID int64, _ time.Time, _ error) error {
	if f.err != nil {
		return f.err
	}
	f.parked = append(f.parked, reminderID)
	return nil
}

type failingMarks struct {
	repository.ReminderRepository
	err error
}

func (f failingMarks) MarkNotified(context.Context, int64, time.Time) error {
	return f.err
}

type fixture struct {
	reminders repository.ReminderRepository
	clients   repository.ClientRepository
	tokens    *token.Service
	clock     *clock.Mock
	sender    *fakeSender
	buffer    *fakeBuffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "reminders.db"), true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 10, 10, 0, 0, 0, kolkata))
	tokens, err := token.New("secret", "reminder-completion", token.WithClock(mock))
	require.NoError(t, err)

	return &fixture{
		reminders: sqliterepo.NewReminderRepository(db),
		clients:   sqliterepo.NewClientRepository(db),
		tokens:    tokens,
		clock:     mock,
		sender:    &fakeSender{},
		buffer:    &fakeBuffer{},
	}
}

func (f *fixture) dispatcher(reminders repository.ReminderRepository) *Dispatcher {
	return NewDispatcher(reminders, f.tokens, mail.NewRenderer("Test"), f.sender, f.buffer, f.clock, Config{
		BaseURL:  "https://example.com",
		Location: kolkata,
	}, nil)
}

func (f *fixture) seed(t *testing.T, email string, freq domain.Frequency) *domain.Reminder {
	t.Helper()
	ctx := context.Background()
	client, err := f.clients.Create(ctx, &domain.Client{Name: "Asha", Email: email})
	require.NoError(t, err)
	reminder, err := f.reminders.Create(ctx, &domain.Reminder{
		ClientID:    &client.ID,
		DueDate:     domain.Date{Year: 2024, Month: 1, Day: 3},
		DueTime:     &domain.TimeOfDay{Hour: 9},
		Frequency:   freq,
		Description: "GST filing",
	})
	require.NoError(t, err)
	return reminder
}

func TestDispatch_SendsAndRecords(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "asha@example.com", domain.FrequencyWeekly)

	result, err := f.dispatcher(f.reminders).Dispatch(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultSent, result)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "asha@example.com", msg.To)
	assert.Equal(t, "Reminder: GST filing Due on 2024-01-03", msg.Subject)

	idx := strings.Index(msg.Text, "https://example.com/complete/")
	require.GreaterOrEqual(t, idx, 0)
	link := strings.Fields(msg.Text[idx:])[0]
	id, err := f.tokens.Verify(strings.TrimPrefix(link, "https://example.com/complete/"))
	require.NoError(t, err)
	assert.Equal(t, reminder.ID, id)

	stored, err := f.reminders.GetByID(context.Background(), reminder.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastNotifiedAt)
	assert.True(t, stored.LastNotifiedAt.Equal(f.clock.Now()))
}

func TestDispatch_SecondDispatchSameInstantIsNotDue(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "asha@example.com", domain.FrequencyOnce)
	d := f.dispatcher(f.reminders)

	_, err := d.Dispatch(context.Background(), reminder.ID)
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultSkippedNotDue, result)
	assert.Len(t, f.sender.sent, 1)
}

func TestDispatch_SkipsCompleted(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "asha@example.com", domain.FrequencyDaily)
	require.NoError(t, f.reminders.MarkCompleted(context.Background(), reminder.ID))

	result, err := f.dispatcher(f.reminders).Dispatch(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultSkippedCompleted, result)
	assert.Empty(t, f.sender.sent)
}

func TestDispatch_SkipsMissingRecipient(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "", domain.FrequencyDaily)

	result, err := f.dispatcher(f.reminders).Dispatch(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultSkippedNoRecipient, result)
	assert.Empty(t, f.sender.sent)
}

func TestDispatch_SendFailureLeavesHistoryUntouched(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "asha@example.com", domain.FrequencyDaily)
	f.sender.err = errors.New("relay refused")

	result, err := f.dispatcher(f.reminders).Dispatch(context.Background(), reminder.ID)
	require.Error(t, err)
	assert.Equal(t, ResultFailed, result)

	stored, err := f.reminders.GetByID(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastNotifiedAt)
	assert.Empty(t, f.buffer.parked)
}

func TestDispatch_RecordFailureParksDelivery(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "asha@example.com", domain.FrequencyDaily)
	broken := failingMarks{ReminderRepository: f.reminders, err: errors.New("database is locked")}

	result, err := f.dispatcher(broken).Dispatch(context.Background(), reminder.ID)
	require.NoError(t, err)
	assert.Equal(t, ResultSent, result)
	assert.Equal(t, []int64{reminder.ID}, f.buffer.parked)
}

func TestDispatch_RecordAndParkFailureIsSurfaced(t *testing.T) {
	f := newFixture(t)
	reminder := f.seed(t, "asha@example.com", domain.FrequencyDaily)
	f.buffer.err = errors.New("bolt closed")
	broken := failingMarks{ReminderRepository: f.reminders, err: errors.New("database is locked")}

	result, err := f.dispatcher(broken).Dispatch(context.Background(), reminder.ID)
	require.Error(t, err)
	assert.Equal(t, ResultSent, result)
	assert.Contains(t, err.Error(), "bolt closed")
	assert.Len(t, f.sender.sent, 1)
}

func TestDispatch_UnknownReminder(t *testing.T) {
	f := newFixture(t)

	result, err := f.dispatcher(f.reminders).Dispatch(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrReminderNotFound)
	assert.Equal(t, ResultFailed, result)
}
