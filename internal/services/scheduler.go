package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fastygo/reminders/domain"
	appLogger "github.com/fastygo/reminders/pkg/logger"
	"github.com/fastygo/reminders/repository"
	"github.com/fastygo/reminders/usecase/notify"
)

// Dispatcher sends a single due reminder.
type Dispatcher interface {
	Dispatch(ctx context.Context, reminderID int64) (notify.Result, error)
}

// DeliveryReplayer applies parked delivery records.
type DeliveryReplayer interface {
	Drain(ctx context.Context) (int, error)
}

// CycleLock grants the right to run a cycle. ok is false while another
// holder runs one.
type CycleLock interface {
	TryAcquire(ctx context.Context) (release func(context.Context) error, ok bool, err error)
}

// LocalLock is a CycleLock for single-instance deployments.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) TryAcquire(context.Context) (func(context.Context) error, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, true, nil
}

type SchedulerConfig struct {
	Interval     time.Duration
	Workers      int
	PageSize     int
	StoreTimeout time.Duration
	Location     *time.Location
}

// CycleReport summarises one scheduler cycle.
type CycleReport struct {
	Now        time.Time
	Replayed   int
	Scanned    int
	Due        int
	Sent       int
	Skipped    int
	Failed     int
	Overlapped bool
	NotLeader  bool
}

var ErrSchedulerStarted = errors.New("scheduler already started")

// Scheduler periodically scans notifiable reminders and dispatches the due
// ones. Cycles never overlap: a trigger arriving while a cycle runs is
// skipped.
type Scheduler struct {
	reminders  repository.ReminderRepository
	dispatcher Dispatcher
	replayer   DeliveryReplayer
	lock       CycleLock
	clock      clock.Clock
	cfg        SchedulerConfig
	logger     *zap.Logger
	onFatal    func(error)

	cron    *cron.Cron
	running atomic.Bool
	started atomic.Bool
	wg      sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

func NewScheduler(
	reminders repository.ReminderRepository,
	dispatcher Dispatcher,
	replayer DeliveryReplayer,
	lock CycleLock,
	clk clock.Clock,
	cfg SchedulerConfig,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 30 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if lock == nil {
		lock = &LocalLock{}
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cronLogger := appLogger.NewCronLogger(logger)
	return &Scheduler{
		reminders:  reminders,
		dispatcher: dispatcher,
		replayer:   replayer,
		lock:       lock,
		clock:      clk,
		cfg:        cfg,
		logger:     logger,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger)),
		),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// OnFatal registers fn to be called when the trigger itself breaks.
func (s *Scheduler) OnFatal(fn func(error)) {
	s.onFatal = fn
}

// Start registers the periodic trigger, runs the first cycle immediately and
// returns. A trigger that cannot be registered is returned as an error.
func (s *Scheduler) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrSchedulerStarted
	}
	spec := "@every " + s.cfg.Interval.String()
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return fmt.Errorf("register scheduler trigger %q: %w", spec, err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.tick()
	}()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("workers", s.cfg.Workers),
		zap.String("timezone", s.cfg.Location.String()))
	return nil
}

// Stop halts the trigger and waits for the running cycle. When ctx expires
// first, in-flight dispatches are cancelled; their deliveries were not
// recorded, so the next start retries them.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopCtx := s.cron.Stop()

	done := make(chan struct{})
	go func() {
		<-stopCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		s.logger.Warn("scheduler stopped with in-flight dispatches abandoned")
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("scheduler cycle panicked: %v", r)
			s.logger.Error("scheduler trigger failed", zap.Error(err))
			if s.onFatal != nil {
				s.onFatal(err)
			}
		}
	}()

	report, err := s.RunCycle(s.baseCtx)
	if err != nil {
		s.logger.Error("scheduler cycle failed", zap.Error(err))
		return
	}
	if report.Overlapped || report.NotLeader {
		return
	}
	s.logger.Info("scheduler cycle finished",
		zap.Time("now", report.Now),
		zap.Int("replayed", report.Replayed),
		zap.Int("scanned", report.Scanned),
		zap.Int("due", report.Due),
		zap.Int("sent", report.Sent),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
}

// RunCycle performs one scan. Every candidate is evaluated against the same
// instant. A store failure while collecting candidates aborts the cycle
// before anything is dispatched. A failing or panicking dispatch only counts
// against its own reminder.
func (s *Scheduler) RunCycle(ctx context.Context) (CycleReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Warn("scheduler cycle still running, trigger skipped")
		return CycleReport{Overlapped: true}, nil
	}
	defer s.running.Store(false)

	release, ok, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return CycleReport{}, fmt.Errorf("acquire cycle lock: %w", err)
	}
	if !ok {
		s.logger.Debug("cycle lock held elsewhere, trigger skipped")
		return CycleReport{NotLeader: true}, nil
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("failed to release cycle lock", zap.Error(err))
		}
	}()

	report := CycleReport{Now: s.clock.Now().In(s.cfg.Location)}

	if s.replayer != nil {
		replayed, err := s.replayer.Drain(ctx)
		if err != nil {
			s.logger.Warn("delivery replay failed", zap.Error(err))
		}
		report.Replayed = replayed
	}

	candidates, err := s.collect(ctx)
	if err != nil {
		return report, fmt.Errorf("collect candidates: %w", err)
	}
	report.Scanned = len(candidates)

	var due []int64
	for i := range candidates {
		if domain.IsDue(candidates[i].Reminder, report.Now, s.cfg.Location) {
			due = append(due, candidates[i].ID)
		}
	}
	report.Due = len(due)

	var sent, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for _, id := range due {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					failed.Add(1)
					s.logger.Error("dispatch panicked",
						zap.Int64("reminder_id", id),
						zap.Any("panic", r),
						zap.Stack("stack"))
				}
			}()
			result, err := s.dispatcher.Dispatch(gctx, id)
			switch {
			case err != nil && result != notify.ResultSent:
				failed.Add(1)
				s.logger.Warn("dispatch failed", zap.Int64("reminder_id", id), zap.Error(err))
			case err != nil:
				sent.Add(1)
				s.logger.Error("dispatch sent but not recorded", zap.Int64("reminder_id", id), zap.Error(err))
			case result == notify.ResultSent:
				sent.Add(1)
			default:
				skipped.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Sent = int(sent.Load())
	report.Skipped = int(skipped.Load())
	report.Failed = int(failed.Load())
	return report, nil
}

// collect pages through the notifiable projection under a single store
// timeout and returns the whole snapshot or an error.
func (s *Scheduler) collect(ctx context.Context) ([]domain.Candidate, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	var (
		all   []domain.Candidate
		after int64
	)
	for {
		page, err := s.reminders.ListNotifiable(storeCtx, repository.CandidateFilter{AfterID: after, Limit: s.cfg.PageSize})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return all, nil
		}
		all = append(all, page...)
		after = page[len(page)-1].ID
	}
}
