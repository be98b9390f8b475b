package server

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	ErrLimiterClosed  = errors.New("limiter is closed")
	ErrAcquireTimeout = errors.New("timeout waiting for a detection slot")
)

// Limiter bounds how many detections run at once. It hands out slots, not
// sessions: every detection still builds its own engine session.
type Limiter struct {
	slots   chan struct{}
	size    int
	timeout time.Duration

	mu     sync.Mutex
	closed bool

	metricsMu sync.RWMutex
	metrics   Metrics
}

type Metrics struct {
	Size            int           `json:"size"`
	InUse           int           `json:"in_use"`
	TotalAcquired   int64         `json:"total_acquired"`
	TotalReleased   int64         `json:"total_released"`
	AcquireFailures int64         `json:"acquire_failures"`
	WaitTime        time.Duration `json:"wait_time_ns"`
}

func NewLimiter(size int, timeout time.Duration) *Limiter {
	if size <= 0 {
		size = 1
	}
	return &Limiter{
		slots:   make(chan struct{}, size),
		size:    size,
		timeout: timeout,
		metrics: Metrics{Size: size},
	}
}

// Acquire blocks until a slot is free, the timeout passes or ctx is done.
// Each successful Acquire must be paired with a Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrLimiterClosed
	}

	start := time.Now()
	defer func() {
		l.metricsMu.Lock()
		l.metrics.WaitTime += time.Since(start)
		l.metricsMu.Unlock()
	}()

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.metricsMu.Lock()
		l.metrics.InUse++
		l.metrics.TotalAcquired++
		l.metricsMu.Unlock()
		return nil
	case <-timer.C:
		l.metricsMu.Lock()
		l.metrics.AcquireFailures++
		l.metricsMu.Unlock()
		return ErrAcquireTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Limiter) Release() {
	<-l.slots

	l.metricsMu.Lock()
	l.metrics.InUse--
	l.metrics.TotalReleased++
	l.metricsMu.Unlock()
}

// Close makes further Acquire calls fail. Slots already held can still be
// released.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *Limiter) Metrics() Metrics {
	l.metricsMu.RLock()
	defer l.metricsMu.RUnlock()
	return l.metrics
}
