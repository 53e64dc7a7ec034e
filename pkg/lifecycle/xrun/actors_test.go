package xrun

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestTicker_RunsUntilCanceled(t *testing.T) {
	var count atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- Ticker(time.Millisecond, false, func(ctx context.Context) error {
			if count.Add(1) == 3 {
				cancel()
			}
			return nil
		})(ctx)
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
	if count.Load() < 3 {
		t.Errorf("expected at least 3 ticks, got %d", count.Load())
	}
}

func TestTicker_Immediate(t *testing.T) {
	stop := errors.New("stop")
	var count atomic.Int32

	err := Ticker(time.Hour, true, func(ctx context.Context) error {
		count.Add(1)
		return stop
	})(context.Background())

	if !errors.Is(err, stop) {
		t.Errorf("expected stop, got %v", err)
	}
	if count.Load() != 1 {
		t.Errorf("expected 1 call, got %d", count.Load())
	}
}

func TestTicker_ImmediateSkippedWhenCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	err := Ticker(time.Hour, true, func(ctx context.Context) error {
		called.Store(true)
		return nil
	})(ctx)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called.Load() {
		t.Error("fn must not run on a canceled context")
	}
}

func TestTicker_InvalidArgs(t *testing.T) {
	noop := func(ctx context.Context) error { return nil }
	if err := Ticker(0, false, noop)(context.Background()); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
	if err := Ticker(-time.Second, false, noop)(context.Background()); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("expected ErrInvalidInterval, got %v", err)
	}
	if err := Ticker(time.Second, false, nil)(context.Background()); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}

func TestTimer_Fires(t *testing.T) {
	var called atomic.Bool
	start := time.Now()
	err := Timer(5*time.Millisecond, func(ctx context.Context) error {
		called.Store(true)
		return nil
	})(context.Background())

	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if !called.Load() {
		t.Error("fn was not called")
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("fn ran before delay elapsed")
	}
}

func TestTimer_ZeroDelay(t *testing.T) {
	var called atomic.Bool
	if err := Timer(0, func(ctx context.Context) error {
		called.Store(true)
		return nil
	})(context.Background()); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if !called.Load() {
		t.Error("fn was not called")
	}
}

func TestTimer_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Bool
	fn := func(ctx context.Context) error {
		called.Store(true)
		return nil
	}
	if err := Timer(time.Hour, fn)(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := Timer(0, fn)(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if called.Load() {
		t.Error("fn must not run on a canceled context")
	}
}

func TestTimer_InvalidArgs(t *testing.T) {
	if err := Timer(-time.Second, func(ctx context.Context) error { return nil })(context.Background()); !errors.Is(err, ErrInvalidDelay) {
		t.Errorf("expected ErrInvalidDelay, got %v", err)
	}
	if err := Timer(time.Second, nil)(context.Background()); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}
