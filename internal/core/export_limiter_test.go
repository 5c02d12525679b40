package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestExportLimiter_AcquireRelease(t *testing.T) {
	l := NewExportLimiter(2, time.Second)
	ctx := context.Background()

	if got := l.Status().Available; got != 2 {
		t.Errorf("initial Available = %d, want 2", got)
	}

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire: %v", err)
	}

	status := l.Status()
	if status.Active != 2 || status.Available != 0 {
		t.Errorf("Status = %+v, want active 2 available 0", status)
	}

	l.Release()
	l.Release()

	if got := l.ActiveCount(); got != 0 {
		t.Errorf("ActiveCount after release = %d, want 0", got)
	}
}

func TestExportLimiter_TimesOutWhenFull(t *testing.T) {
	l := NewExportLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	if err := l.Acquire(ctx); !errors.Is(err, ErrTooManyExports) {
		t.Errorf("Acquire on full limiter = %v, want ErrTooManyExports", err)
	}
}

func TestExportLimiter_ContextCancellation(t *testing.T) {
	l := NewExportLimiter(1, 5*time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Acquire(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Acquire = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire did not return after cancellation")
	}
}

func TestExportLimiter_NeverExceedsMax(t *testing.T) {
	const max = 2
	l := NewExportLimiter(max, time.Second)

	var wg sync.WaitGroup
	var mu sync.Mutex
	peak := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer l.Release()

			mu.Lock()
			if n := l.ActiveCount(); n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(5 * time.Millisecond)
		}()
	}
	wg.Wait()

	if peak > max {
		t.Errorf("peak active = %d, want <= %d", peak, max)
	}
}

func TestExportLimiter_Drain(t *testing.T) {
	l := NewExportLimiter(1, time.Second)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- l.Drain(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Drain returned while an export was active")
	case <-time.After(30 * time.Millisecond):
	}

	l.Release()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Drain = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Drain did not return after release")
	}
}

func TestExportLimiter_Defaults(t *testing.T) {
	l := NewExportLimiter(0, 0)
	if got := l.Status().MaxConcurrent; got != DefaultMaxConcurrentExports {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentExports)
	}
}
