package core

// export_limiter.go bounds the number of exports rendering at once.
//
// Each export reads the full registration list into memory, so the limiter
// caps parallel exports with a semaphore channel. A request that finds every
// slot busy waits up to maxWait and then fails with ErrTooManyExports.
// Drain blocks until running exports finish, for graceful shutdown.

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyExports is returned when no export slot frees up in time.
var ErrTooManyExports = errors.New("too many concurrent exports, please try again later")

const (
	DefaultMaxConcurrentExports = 3
	DefaultExportWait           = 10 * time.Second
)

// ExportLimiter is a counting semaphore for export requests.
type ExportLimiter struct {
	slots   chan struct{}
	maxWait time.Duration

	mu     sync.Mutex
	active int
}

// ExportLimiterStatus is a snapshot of the limiter for the health endpoint.
type ExportLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// NewExportLimiter allows maxConcurrent exports; callers wait up to maxWait.
// Non-positive arguments fall back to the defaults.
func NewExportLimiter(maxConcurrent int, maxWait time.Duration) *ExportLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentExports
	}
	if maxWait <= 0 {
		maxWait = DefaultExportWait
	}
	return &ExportLimiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
	}
}

// Acquire takes a slot. The caller must Release it when the export is done.
// Cancellation of ctx is reported as ctx.Err(), a wait timeout as
// ErrTooManyExports.
func (l *ExportLimiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.mu.Lock()
		l.active++
		l.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyExports
	}
}

// Release frees a slot taken by Acquire.
func (l *ExportLimiter) Release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.slots
}

// ActiveCount returns the number of exports currently running.
func (l *ExportLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Status returns the current limiter state.
func (l *ExportLimiter) Status() ExportLimiterStatus {
	return ExportLimiterStatus{
		Active:        l.ActiveCount(),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// Drain blocks until no export is running or ctx is done.
func (l *ExportLimiter) Drain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
