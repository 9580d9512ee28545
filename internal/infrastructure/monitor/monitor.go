// Package monitor keeps a periodically refreshed snapshot of dependency
// health for the health endpoint.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redislib "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taskhub/backend/internal/infrastructure/buffer"
)

// Status is the latest probe snapshot.
type Status struct {
	PostgreSQL bool      `json:"postgresql"`
	Redis      bool      `json:"redis"`
	Outbox     bool      `json:"outbox"`
	OutboxSize int       `json:"outbox_size"`
	LastCheck  time.Time `json:"last_check"`
}

// Monitor probes Postgres, Redis and the event outbox on an interval.
type Monitor struct {
	pg     *pgxpool.Pool
	redis  *redislib.Client
	outbox *buffer.Store

	interval time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	status Status
	stopCh chan struct{}
}

func New(pg *pgxpool.Pool, redis *redislib.Client, outbox *buffer.Store, interval time.Duration, logger *zap.Logger) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		pg:       pg,
		redis:    redis,
		outbox:   outbox,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start probes once immediately, then on every tick until Stop.
func (m *Monitor) Start() {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()

		m.probe()
		for {
			select {
			case <-ticker.C:
				m.probe()
			case <-m.stopCh:
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	close(m.stopCh)
}

func (m *Monitor) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Monitor) probe() {
	snapshot := Status{LastCheck: time.Now()}

	if m.pg != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		snapshot.PostgreSQL = m.pg.Ping(ctx) == nil
		cancel()
	}

	if m.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		snapshot.Redis = m.redis.Ping(ctx).Err() == nil
		cancel()
	}

	if m.outbox != nil {
		size, err := m.outbox.Size()
		if err != nil {
			m.logger.Warn("outbox size check failed", zap.Error(err))
		} else {
			snapshot.Outbox = true
			snapshot.OutboxSize = size
		}
	}

	m.mu.Lock()
	m.status = snapshot
	m.mu.Unlock()
}
