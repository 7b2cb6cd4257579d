package monitor

import (
	"context"
	"sync"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fastygo/reminders/internal/infrastructure/buffer"
)

// Pinger checks that the primary store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function, e.g. (*sql.DB).PingContext, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Monitor struct {
	store       Pinger
	storeDriver string
	redis       *redislib.Client
	buffer      *buffer.Store

	status   Status
	mu       sync.RWMutex
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	logger   *zap.Logger
}

// New builds a monitor. redis may be nil when the deployment does not use it.
func New(store Pinger, storeDriver string, redis *redislib.Client, buf *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		store:       store,
		storeDriver: storeDriver,
		redis:       redis,
		buffer:      buf,
		interval:    interval,
		stopCh:      make(chan struct{}),
		logger:      logger,
	}
}

func (m *Monitor) Start() {
	go m.loop()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsOnline reports whether the store and, when configured, Redis answered the last ping.
func (m *Monitor) IsOnline() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status.Store && (!m.status.RedisEnabled || m.status.Redis)
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.refresh()
	for {
		select {
		case <-ticker.C:
			m.refresh()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Monitor) refresh() {
	bufferOK, bufferSize := m.checkBuffer()
	status := Status{
		Store:        m.checkStore(),
		StoreDriver:  m.storeDriver,
		Redis:        m.checkRedis(),
		RedisEnabled: m.redis != nil,
		Buffer:       bufferOK,
		BufferSize:   bufferSize,
		LastCheck:    time.Now(),
	}

	if prev := m.GetStatus(); !prev.LastCheck.IsZero() && prev.Store && !status.Store {
		m.logger.Warn("store became unreachable", zap.String("driver", m.storeDriver))
	}

	m.mu.Lock()
	m.status = status
	m.mu.Unlock()
}

func (m *Monitor) checkStore() bool {
	if m.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return m.store.Ping(ctx) == nil
}

func (m *Monitor) checkRedis() bool {
	if m.redis == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return m.redis.Ping(ctx).Err() == nil
}

func (m *Monitor) checkBuffer() (bool, int) {
	if m.buffer == nil {
		return false, 0
	}
	size, err := m.buffer.Size()
	if err != nil {
		m.logger.Warn("buffer size check failed", zap.Error(err))
		return false, size
	}
	return true, size
}
