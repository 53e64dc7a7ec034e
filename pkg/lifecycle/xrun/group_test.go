package xrun

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestGroup_Empty(t *testing.T) {
	g, _ := NewGroup(context.Background())
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestGroup_SingleService(t *testing.T) {
	var executed atomic.Bool

	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		executed.Store(true)
		return nil
	})

	if err := g.Wait(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
	if !executed.Load() {
		t.Error("service was not executed")
	}
}

func TestGroup_ErrorCancelsOthers(t *testing.T) {
	trigger := errors.New("trigger")
	var stopped atomic.Bool

	g, ctx := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Store(true)
		return ctx.Err()
	})
	g.Go(func(ctx context.Context) error {
		return trigger
	})

	if err := g.Wait(); !errors.Is(err, trigger) {
		t.Errorf("expected %v, got %v", trigger, err)
	}
	if ctx.Err() == nil {
		t.Error("group context should be canceled")
	}
	if !stopped.Load() {
		t.Error("sibling service did not observe cancellation")
	}
}

func TestGroup_NilFunc(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(nil)
	if err := g.Wait(); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}

	g, _ = NewGroup(context.Background())
	g.GoWithName("nil", nil)
	if err := g.Wait(); !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}

func TestGroup_NilContextAndOption(t *testing.T) {
	//nolint:staticcheck // 测试 nil context 归一化
	g, ctx := NewGroup(nil, nil, WithName(""))
	if ctx == nil {
		t.Fatal("context should not be nil")
	}
	if g.opts.name != "xrun" {
		t.Errorf("empty name should keep default, got %q", g.opts.name)
	}
	if err := g.Wait(); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestGroup_CancelWithCause(t *testing.T) {
	cause := errors.New("shutdown requested")

	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(cause)

	if err := g.Wait(); !errors.Is(err, cause) {
		t.Errorf("expected cause %v, got %v", cause, err)
	}
}

func TestGroup_CancelNilCause(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	g.Cancel(nil)

	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestGroup_CauseKeptWhenServicesReturnNil(t *testing.T) {
	cause := errors.New("stop")

	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	g.Cancel(cause)

	if err := g.Wait(); !errors.Is(err, cause) {
		t.Errorf("expected cause %v, got %v", cause, err)
	}
}

func TestGroup_InternalCanceledNotFiltered(t *testing.T) {
	g, _ := NewGroup(context.Background())
	g.Go(func(ctx context.Context) error {
		return context.Canceled
	})

	if err := g.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestGroup_ParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	g, _ := NewGroup(parent)
	g.Go(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	cancel()

	if err := g.Wait(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if g.Context().Err() == nil {
		t.Error("Context() should be canceled")
	}
}

func TestGroup_GoWithNameLogs(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := xlog.New().SetOutput(&buf).SetLevel(xlog.LevelDebug).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = cleanup() }() //nolint:errcheck // test cleanup

	g, _ := NewGroup(context.Background(), WithName("test-group"), WithLogger(logger))
	g.GoWithName("worker", func(ctx context.Context) error {
		return errors.New("boom")
	})
	_ = g.Wait() //nolint:errcheck // 只检查日志

	out := buf.String()
	for _, want := range []string{"service starting", "service exited with error", "group=test-group", "service=worker", "boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_Signal(t *testing.T) {
	sigc := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigc)

	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	sigc <- syscall.SIGTERM

	select {
	case err := <-errc:
		if !errors.Is(err, ErrSignal) {
			t.Fatalf("expected ErrSignal, got %v", err)
		}
		var sigErr *SignalError
		if !errors.As(err, &sigErr) || sigErr.Signal != syscall.SIGTERM {
			t.Errorf("expected SIGTERM SignalError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after signal")
	}
}

func TestRun_CustomSignals(t *testing.T) {
	sigc := make(chan os.Signal, 1)
	ctx := withTestSigChan(context.Background(), sigc)

	errc := make(chan error, 1)
	go func() {
		errc <- RunWithOptions(ctx, []Option{WithSignals([]os.Signal{syscall.SIGUSR1})},
			func(ctx context.Context) error {
				<-ctx.Done()
				return nil
			})
	}()
	sigc <- syscall.SIGUSR1

	select {
	case err := <-errc:
		var sigErr *SignalError
		if !errors.As(err, &sigErr) || sigErr.Signal != syscall.SIGUSR1 {
			t.Errorf("expected SIGUSR1 SignalError, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("RunWithOptions did not return after signal")
	}
}

func TestRun_ParentCancelReturnsNil(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		errc <- Run(ctx, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_WithoutSignalHandler(t *testing.T) {
	err := RunWithOptions(context.Background(), []Option{WithoutSignalHandler()},
		func(ctx context.Context) error { return nil })
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestRun_ServiceReturnStopsOthers(t *testing.T) {
	stopped := make(chan struct{})
	err := Run(context.Background(),
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		})
	if err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Error("long-running service was not stopped")
	}
}

func TestRun_ServiceErrorWins(t *testing.T) {
	boom := errors.New("boom")
	err := Run(context.Background(),
		func(ctx context.Context) error { return boom },
		func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestRun_NilService(t *testing.T) {
	err := RunWithOptions(context.Background(), []Option{WithoutSignalHandler()}, nil)
	if !errors.Is(err, ErrNilFunc) {
		t.Errorf("expected ErrNilFunc, got %v", err)
	}
}

func TestSignalError(t *testing.T) {
	err := &SignalError{Signal: syscall.SIGINT}
	if !errors.Is(err, ErrSignal) {
		t.Error("SignalError should match ErrSignal")
	}
	if err.Error() != "received signal interrupt" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if (&SignalError{}).Error() != "received signal <nil>" {
		t.Error("nil signal message mismatch")
	}
}

func TestDefaultSignalsReturnsCopy(t *testing.T) {
	a := DefaultSignals()
	a[0] = syscall.SIGUSR2
	if DefaultSignals()[0] == syscall.SIGUSR2 {
		t.Error("DefaultSignals should return a fresh slice")
	}
}
