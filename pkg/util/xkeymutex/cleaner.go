package xkeymutex

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/omeyang/xkeymutex/pkg/lifecycle/xrun"
	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
)

const spanNameSweep = "xkeymutex.sweep"

// cleaner 是一个运行中的周期性清理任务。
type cleaner struct {
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// RegisterCleaner 启动周期性清理任务，每隔 interval 删除所有未加锁的条目。
// interval <= 0 时使用 WithCleanerInterval 配置的周期（默认 10s）。
//
// 幂等：已有 Cleaner 运行时为空操作（不会改变已运行任务的周期）。
// KeyedMutex 已 Close 时为空操作。
func (km *KeyedMutex) RegisterCleaner(interval time.Duration) {
	if interval <= 0 {
		interval = km.opts.cleanerInterval
	}

	km.cleanerMu.Lock()
	defer km.cleanerMu.Unlock()

	if km.cleaner != nil || km.closed.Load() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &cleaner{
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	km.cleaner = c

	run := xrun.Ticker(interval, false, func(ctx context.Context) error {
		km.sweep(ctx)
		return nil
	})
	go func() {
		defer close(c.done)
		_ = run(ctx) //nolint:errcheck // 仅在 ctx 取消时返回
	}()

	if km.logger != nil {
		km.logger.Info(ctx, "xkeymutex: cleaner started", slog.Duration("interval", interval))
	}
}

// UnregisterCleaner 停止清理任务并等待其退出。
// 幂等：未注册或重复调用均为空操作。
func (km *KeyedMutex) UnregisterCleaner() {
	km.cleanerMu.Lock()
	defer km.cleanerMu.Unlock()

	c := km.cleaner
	if c == nil {
		return
	}
	km.cleaner = nil
	c.cancel()
	<-c.done

	if km.logger != nil {
		km.logger.Info(context.Background(), "xkeymutex: cleaner stopped")
	}
}

// CleanerRunning 报告当前是否有 Cleaner 在运行。
func (km *KeyedMutex) CleanerRunning() bool {
	km.cleanerMu.Lock()
	defer km.cleanerMu.Unlock()
	return km.cleaner != nil
}

// CleanerInterval 返回运行中 Cleaner 的扫描周期，未运行时返回 0。
func (km *KeyedMutex) CleanerInterval() time.Duration {
	km.cleanerMu.Lock()
	defer km.cleanerMu.Unlock()
	if km.cleaner == nil {
		return 0
	}
	return km.cleaner.interval
}

// Sweep 同步执行一次清理，返回被删除的 key 数量。
// Cleaner 的每个周期调用的就是同一逻辑，Sweep 可用于手动回收。
func (km *KeyedMutex) Sweep() int {
	return km.sweep(context.Background())
}

// sweep 逐个分片删除未加锁的条目。
// 未加锁意味着等待队列为空（Mutex 不变量），删除不会遗弃任何等待者。
func (km *KeyedMutex) sweep(ctx context.Context) int {
	ctx, span := km.tracer.Start(ctx, spanNameSweep)
	defer span.End()

	evicted := 0
	for i := range km.shards {
		s := &km.shards[i]
		s.mu.Lock()
		for key, mu := range s.entries {
			if !mu.IsLocked() {
				delete(s.entries, key)
				evicted++
			}
		}
		s.mu.Unlock()
	}
	if evicted > 0 {
		km.keyCount.Add(-int64(evicted))
	}
	remaining := km.Len()

	span.SetAttributes(
		attribute.Int("evicted", evicted),
		attribute.Int("remaining", remaining),
	)
	km.metrics.recordSweep(ctx, evicted)

	if evicted > 0 && km.logger != nil {
		km.logger.Debug(ctx, "xkeymutex: idle keys evicted",
			xlog.Count(int64(evicted)), slog.Int("remaining", remaining))
	}
	return evicted
}
