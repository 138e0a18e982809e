package core

import (
	"context"
	"sync"
	"time"
)

// pingTimeout bounds a single background ping.
const pingTimeout = 5 * time.Second

// Health is the outcome of the most recent background ping.
type Health struct {
	Healthy   bool
	LastError error
	LastCheck time.Time
}

// monitor pings the pool at a fixed interval until stopped.
type monitor struct {
	db       *DB
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup

	mu   sync.RWMutex
	last Health
}

// WithHealthCheck pings the pool every interval in the background. The first
// ping runs immediately. Read the result with DB.Health.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		if interval > 0 {
			db.monitor = &monitor{db: db, interval: interval, stop: make(chan struct{})}
		}
	}
}

func (m *monitor) start() {
	m.wg.Add(1)
	go m.run()
}

func (m *monitor) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.check()
	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *monitor) check() {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	err := m.db.sqlDB.PingContext(ctx)

	m.mu.Lock()
	m.last = Health{Healthy: err == nil, LastError: err, LastCheck: time.Now()}
	m.mu.Unlock()

	if err != nil {
		m.db.logger.Warn("database health check failed", "error", err)
	} else {
		m.db.logger.Debug("database health check passed")
	}
}

func (m *monitor) shutdown() {
	m.once.Do(func() { close(m.stop) })
	m.wg.Wait()
}

func (m *monitor) health() Health {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Health reports the last background ping. Without WithHealthCheck it pings
// once, synchronously.
func (db *DB) Health(ctx context.Context) Health {
	if db.monitor != nil {
		return db.monitor.health()
	}
	err := db.sqlDB.PingContext(ctx)
	return Health{Healthy: err == nil, LastError: err, LastCheck: time.Now()}
}
