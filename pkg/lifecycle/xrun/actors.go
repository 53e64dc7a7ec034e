package xrun

import (
	"context"
	"os"
	"syscall"
	"time"
)

// DefaultSignals 返回默认监听的系统信号列表：SIGHUP、SIGINT、SIGTERM、SIGQUIT。
// 每次调用返回新的切片，调用者可安全修改。
func DefaultSignals() []os.Signal {
	return []os.Signal{
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	}
}

// 设计决策: testSigChan 定义在非测试文件中，runGroup 从 context 取测试通道，
// 测试无需向进程发送真实信号。
type testSigChanKey struct{}

func testSigChan(ctx context.Context) <-chan os.Signal {
	c, ok := ctx.Value(testSigChanKey{}).(<-chan os.Signal)
	if !ok {
		return nil
	}
	return c
}

func withTestSigChan(ctx context.Context, c <-chan os.Signal) context.Context {
	return context.WithValue(ctx, testSigChanKey{}, c)
}

// Ticker 返回周期性执行 fn 的服务函数。
//
// interval 必须为正数，否则返回的服务函数会返回 ErrInvalidInterval。
// immediate 为 true 时，启动时先执行一次。
// fn 返回错误时服务结束并返回该错误；ctx 取消时返回 ctx.Err()。
//
//	go xrun.Ticker(10*time.Second, false, func(ctx context.Context) error {
//	    km.Sweep()
//	    return nil
//	})(ctx)
func Ticker(interval time.Duration, immediate bool, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}
		if fn == nil {
			return ErrNilFunc
		}

		// 已取消的 context 不触发立即执行。
		if immediate {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err := fn(ctx); err != nil {
				return err
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					return err
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Timer 返回延迟 delay 后执行一次 fn 的服务函数。
//
// delay 为负数时返回 ErrInvalidDelay，为 0 时立即执行。
// 等待期间 ctx 取消则返回 ctx.Err()，fn 不会执行。
func Timer(delay time.Duration, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if delay < 0 {
			return ErrInvalidDelay
		}
		if fn == nil {
			return ErrNilFunc
		}
		if delay == 0 {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fn(ctx)
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			return fn(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
