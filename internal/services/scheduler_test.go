package services

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/reminders/domain"
	"github.com/fastygo/reminders/internal/mail"
	sqlitestore "github.com/fastygo/reminders/internal/infrastructure/sqlite"
	"github.com/fastygo/reminders/repository"
	sqliterepo "github.com/fastygo/reminders/repository/sqlite"
	"github.com/fastygo/reminders/usecase/notify"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

type recordingDispatcher struct {
	mu      sync.Mutex
	ids     []int64
	fail    map[int64]bool
	panics  map[int64]bool
	entered chan struct{}
	release chan struct{}
}

func (d *recordingDispatcher) Dispatch(_ context.Context, id int64) (notify.Result, error) {
	if d.entered != nil {
		d.entered <- struct{}{}
		<-d.release
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	if d.panics[id] {
		panic("nil renderer")
	}
	if d.fail[id] {
		return notify.ResultFailed, errors.New("relay refused")
	}
	return notify.ResultSent, nil
}

func (d *recordingDispatcher) dispatched() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]int64(nil), d.ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type failingScan struct {
	repository.ReminderRepository
	calls int
}

func (f *failingScan) ListNotifiable(ctx context.Context, filter repository.CandidateFilter) ([]domain.Candidate, error) {
	f.calls++
	if f.calls > 1 {
		return nil, errors.New("connection reset")
	}
	return f.ReminderRepository.ListNotifiable(ctx, filter)
}

type funcReplayer func(ctx context.Context) (int, error)

func (f funcReplayer) Drain(ctx context.Context) (int, error) { return f(ctx) }

type busyLock struct{}

func (busyLock) TryAcquire(context.Context) (func(context.Context) error, bool, error) {
	return nil, false, nil
}

type schedulerFixture struct {
	reminders repository.ReminderRepository
	clientID  int64
	clock     *clock.Mock
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	db, err := sqlitestore.Open(context.Background(), filepath.Join(t.TempDir(), "reminders.db"), true, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	client, err := sqliterepo.NewClientRepository(db).Create(context.Background(), &domain.Client{Name: "Asha", Email: "asha@example.com"})
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 1, 10, 9, 0, 0, 0, kolkata))
	return &schedulerFixture{
		reminders: sqliterepo.NewReminderRepository(db),
		clientID:  client.ID,
		clock:     mock,
	}
}

func (f *schedulerFixture) seed(t *testing.T, due domain.Date, freq domain.Frequency, last *time.Time) int64 {
	t.Helper()
	ctx := context.Background()
	r, err := f.reminders.Create(ctx, &domain.Reminder{
		ClientID:    &f.clientID,
		DueDate:     due,
		DueTime:     &domain.TimeOfDay{Hour: 9},
		Frequency:   freq,
		Description: "obligation",
	})
	require.NoError(t, err)
	if last != nil {
		require.NoError(t, f.reminders.MarkNotified(ctx, r.ID, *last))
	}
	return r.ID
}

func (f *schedulerFixture) scheduler(reminders repository.ReminderRepository, d Dispatcher, pageSize int) *Scheduler {
	return NewScheduler(reminders, d, nil, nil, f.clock, SchedulerConfig{
		Interval: time.Hour,
		Workers:  3,
		PageSize: pageSize,
		Location: kolkata,
	}, nil)
}

func ago(c clock.Clock, d time.Duration) *time.Time {
	t := c.Now().Add(-d)
	return &t
}

func TestRunCycle_DispatchesOnlyDueCandidates(t *testing.T) {
	f := newSchedulerFixture(t)
	jan3 := domain.Date{Year: 2024, Month: 1, Day: 3}

	sixDays := f.seed(t, jan3, domain.FrequencyWeekly, ago(f.clock, 6*24*time.Hour))
	sevenDays := f.seed(t, jan3, domain.FrequencyWeekly, ago(f.clock, 7*24*time.Hour))
	never := f.seed(t, jan3, domain.FrequencyOnce, nil)
	future := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 11}, domain.FrequencyDaily, nil)
	done := f.seed(t, jan3, domain.FrequencyDaily, nil)
	require.NoError(t, f.reminders.MarkCompleted(context.Background(), done))

	d := &recordingDispatcher{}
	report, err := f.scheduler(f.reminders, d, 100).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{sevenDays, never}, d.dispatched())
	assert.NotContains(t, d.dispatched(), sixDays)
	assert.NotContains(t, d.dispatched(), future)
	assert.Equal(t, 4, report.Scanned)
	assert.Equal(t, 2, report.Due)
	assert.Equal(t, 2, report.Sent)
	assert.True(t, report.Now.Equal(f.clock.Now()))
}

func TestRunCycle_PagesThroughAllCandidates(t *testing.T) {
	f := newSchedulerFixture(t)
	var ids []int64
	for i := 0; i < 5; i++ {
		ids = append(ids, f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil))
	}

	d := &recordingDispatcher{}
	report, err := f.scheduler(f.reminders, d, 2).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, report.Scanned)
	assert.Equal(t, ids, d.dispatched())
}

func TestRunCycle_StoreFailureAbortsBeforeDispatch(t *testing.T) {
	f := newSchedulerFixture(t)
	for i := 0; i < 3; i++ {
		f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)
	}

	d := &recordingDispatcher{}
	_, err := f.scheduler(&failingScan{ReminderRepository: f.reminders}, d, 2).RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, d.dispatched())
}

func TestRunCycle_FailureDoesNotStopSiblings(t *testing.T) {
	f := newSchedulerFixture(t)
	a := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)
	b := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)
	c := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)

	d := &recordingDispatcher{fail: map[int64]bool{b: true}}
	report, err := f.scheduler(f.reminders, d, 100).RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int64{a, b, c}, d.dispatched())
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
}

func TestRunCycle_DoesNotOverlap(t *testing.T) {
	f := newSchedulerFixture(t)
	f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)

	d := &recordingDispatcher{entered: make(chan struct{}), release: make(chan struct{})}
	s := f.scheduler(f.reminders, d, 100)

	done := make(chan CycleReport)
	go func() {
		report, _ := s.RunCycle(context.Background())
		done <- report
	}()
	<-d.entered

	second, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Overlapped)

	close(d.release)
	first := <-done
	assert.False(t, first.Overlapped)
	assert.Equal(t, 1, first.Sent)
	assert.Len(t, d.dispatched(), 1)
}

func TestRunCycle_LockHeldElsewhere(t *testing.T) {
	f := newSchedulerFixture(t)
	f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)

	d := &recordingDispatcher{}
	s := NewScheduler(f.reminders, d, nil, busyLock{}, f.clock, SchedulerConfig{Location: kolkata}, nil)
	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)

	assert.True(t, report.NotLeader)
	assert.Empty(t, d.dispatched())
}

func TestRunCycle_ReplaysBeforeScanning(t *testing.T) {
	f := newSchedulerFixture(t)
	id := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyOnce, nil)

	// The replayed delivery records the earlier send, so the Once reminder is no longer due.
	replayer := funcReplayer(func(ctx context.Context) (int, error) {
		return 1, f.reminders.MarkNotified(ctx, id, f.clock.Now().Add(-time.Hour))
	})
	d := &recordingDispatcher{}
	s := NewScheduler(f.reminders, d, replayer, nil, f.clock, SchedulerConfig{Location: kolkata}, nil)

	report, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Replayed)
	assert.Zero(t, report.Due)
	assert.Empty(t, d.dispatched())
}

func TestScheduler_StartRunsImmediatelyAndStops(t *testing.T) {
	f := newSchedulerFixture(t)
	f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)

	d := &recordingDispatcher{entered: make(chan struct{}), release: make(chan struct{})}
	s := f.scheduler(f.reminders, d, 100)
	require.NoError(t, s.Start())
	assert.ErrorIs(t, s.Start(), ErrSchedulerStarted)

	select {
	case <-d.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not run on start")
	}
	close(d.release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Len(t, d.dispatched(), 1)
}

type stalledSender struct {
	entered   chan struct{}
	cancelled chan error
}

func (s *stalledSender) Send(ctx context.Context, _ mail.Message) error {
	s.entered <- struct{}{}
	<-ctx.Done()
	s.cancelled <- ctx.Err()
	return ctx.Err()
}

type staticMinter struct{}

func (staticMinter) Mint(int64) (string, error) { return "tok", nil }

func TestScheduler_StopTimeoutCancelsInFlightDispatch(t *testing.T) {
	f := newSchedulerFixture(t)
	id := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)

	sender := &stalledSender{entered: make(chan struct{}, 1), cancelled: make(chan error, 1)}
	dispatcher := notify.NewDispatcher(f.reminders, staticMinter{}, nil, sender, nil, f.clock, notify.Config{
		BaseURL:     "https://reminders.example.com",
		Location:    kolkata,
		SendTimeout: time.Minute,
	}, nil)
	s := f.scheduler(f.reminders, dispatcher, 100)
	require.NoError(t, s.Start())

	select {
	case <-sender.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle did not reach the sender")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case cause := <-sender.cancelled:
		assert.ErrorIs(t, cause, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight send was not cancelled")
	}

	stored, err := f.reminders.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, stored.LastNotifiedAt)
}

func TestRunCycle_DispatchPanicIsIsolated(t *testing.T) {
	f := newSchedulerFixture(t)
	a := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)
	b := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)
	c := f.seed(t, domain.Date{Year: 2024, Month: 1, Day: 1}, domain.FrequencyDaily, nil)

	d := &recordingDispatcher{panics: map[int64]bool{b: true}}
	s := f.scheduler(f.reminders, d, 100)
	var fatal error
	s.OnFatal(func(err error) { fatal = err })

	var report CycleReport
	require.NotPanics(t, func() {
		var err error
		report, err = s.RunCycle(context.Background())
		require.NoError(t, err)
	})

	assert.Equal(t, []int64{a, b, c}, d.dispatched())
	assert.Equal(t, 2, report.Sent)
	assert.Equal(t, 1, report.Failed)
	assert.NoError(t, fatal)
}

func TestScheduler_PanicIsFatal(t *testing.T) {
	f := newSchedulerFixture(t)
	replayer := funcReplayer(func(context.Context) (int, error) { panic("bolt corrupted") })
	s := NewScheduler(f.reminders, &recordingDispatcher{}, replayer, nil, f.clock, SchedulerConfig{Location: kolkata}, nil)

	var fatal error
	s.OnFatal(func(err error) { fatal = err })
	s.tick()

	require.Error(t, fatal)
	assert.Contains(t, fatal.Error(), "bolt corrupted")
}

func TestLocalLock(t *testing.T) {
	var l LocalLock
	release, ok, err := l.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, release(context.Background()))
	_, ok, _ = l.TryAcquire(context.Background())
	assert.True(t, ok)
}
