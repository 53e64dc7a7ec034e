package xrun

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/sync/errgroup"

	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
)

// Group 基于 errgroup + context 管理多个任务的并发运行和协调关闭。
//
// 任一任务返回错误或 context 被取消时，所有任务都会收到取消信号。
// Go、GoWithName、Cancel 可并发调用，Wait 应仅调用一次。
//
//	g, ctx := xrun.NewGroup(ctx, xrun.WithName("demo"))
//	g.GoWithName("task-a", func(ctx context.Context) error {
//	    km.Lock("key-1")
//	    defer km.Unlock("key-1")
//	    return work(ctx)
//	})
//	if err := g.Wait(); err != nil {
//	    return err
//	}
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *groupOptions
}

// NewGroup 创建新的 Group，返回的 context 在任一任务出错时被取消。
// nil ctx 视为 context.Background()，nil Option 被忽略。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)

	return &Group{
		eg:       eg,
		ctx:      egCtx,
		causeCtx: causeCtx,
		cancel:   cancel,
		opts:     options,
	}, egCtx
}

// Go 启动一个 goroutine 执行 fn。fn 返回非 nil 错误时取消其他任务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 与 Go 相同，并在日志中以 service 字段记录任务的启停。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		svc := slog.String("service", name)
		g.log(slog.LevelDebug, "service starting", svc)
		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.log(slog.LevelWarn, "service exited with error", svc, xlog.Err(err))
		} else {
			g.log(slog.LevelDebug, "service stopped", svc)
		}
		return err
	})
}

// Wait 等待所有任务完成，返回第一个非 nil 错误。
//
// context.Canceled 被过滤：若 Group 经 Cancel(cause) 或信号处理取消，
// 返回该 cause（如 *SignalError），否则返回 nil。
// 任务内部自行产生的 context.Canceled 原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	g.log(slog.LevelDebug, "all services stopped")

	if errors.Is(err, context.Canceled) {
		if g.causeCtx.Err() != nil {
			return g.cause()
		}
		return err
	}
	if err == nil && g.causeCtx.Err() != nil {
		return g.cause()
	}
	return err
}

// cause 返回显式的取消原因，普通取消返回 nil。
func (g *Group) cause() error {
	if c := context.Cause(g.causeCtx); c != nil && !errors.Is(c, context.Canceled) {
		return c
	}
	return nil
}

// Cancel 主动取消所有任务，Wait 会返回 cause。
// cause 不应包装 context.Canceled，否则会被视为普通取消而过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

// Context 返回 Group 的 context。
func (g *Group) Context() context.Context {
	return g.ctx
}

// log 在未设置 logger 时直接返回，所有记录都带 group 字段。
func (g *Group) log(level slog.Level, msg string, attrs ...slog.Attr) {
	l := g.opts.logger
	if l == nil {
		return
	}
	attrs = append(attrs, slog.String("group", g.opts.name))
	switch {
	case level >= slog.LevelWarn:
		l.Warn(g.causeCtx, msg, attrs...)
	case level >= slog.LevelInfo:
		l.Info(g.causeCtx, msg, attrs...)
	default:
		l.Debug(g.causeCtx, msg, attrs...)
	}
}

// watchSignals 返回信号监听任务：收到信号时以 *SignalError 取消 Group，
// Group 先被取消时直接退出。
func (g *Group) watchSignals(signals []os.Signal) func(ctx context.Context) error {
	// signal.Notify 不带参数会订阅所有信号，空列表改用默认信号。
	if len(signals) == 0 {
		signals = DefaultSignals()
	}
	return func(ctx context.Context) error {
		testc := testSigChan(ctx)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, signals...)
		defer signal.Stop(sigCh)

		var sig os.Signal
		select {
		case sig = <-testc:
		case sig = <-sigCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		g.log(slog.LevelInfo, "received signal", slog.String("signal", sig.String()))
		g.cancel(&SignalError{Signal: sig})
		return nil
	}
}

// Run 监听信号并运行 services，直到下列任一情况发生：
//   - 某个 service 返回：返回 nil 时正常结束，其余 service 随之取消
//   - 某个 service 出错：返回该错误
//   - 收到信号：返回 *SignalError
//   - ctx 被取消：返回 nil
//
// 没有 service 时只等待信号或 ctx 取消。
func Run(ctx context.Context, services ...func(ctx context.Context) error) error {
	return RunWithOptions(ctx, nil, services...)
}

// RunWithOptions 与 Run 相同，但支持配置选项。
func RunWithOptions(ctx context.Context, opts []Option, services ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)
	if !g.opts.noSignalHandler {
		g.Go(g.watchSignals(g.opts.signals))
	}
	for _, svc := range services {
		g.Go(g.stopOnReturn(svc))
	}
	return g.Wait()
}

// stopOnReturn 包装 service：正常返回时取消整个 Group。
// 出错时由 errgroup 负责取消，错误作为 Wait 的结果。
func (g *Group) stopOnReturn(svc func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if svc == nil {
			return ErrNilFunc
		}
		err := svc(ctx)
		if err == nil {
			g.cancel(nil)
		}
		return err
	}
}
