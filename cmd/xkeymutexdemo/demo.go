package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/omeyang/xkeymutex/pkg/lifecycle/xrun"
	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
	"github.com/omeyang/xkeymutex/pkg/util/xkeymutex"
)

// task 一次加锁演示：对 key 加锁并持有 hold 后释放。
type task struct {
	name  string
	key   string
	delay time.Duration
	hold  time.Duration
}

// demoTasks 返回三个任务：A 与 B 竞争 key-1（B 晚 stagger 启动，排在 A 之后），
// C 独占 key-2，与前两者并行。
func demoTasks(cfg DemoConfig) []task {
	return []task{
		{name: "A", key: "key-1", hold: cfg.HoldA},
		{name: "B", key: "key-1", delay: cfg.Stagger, hold: cfg.HoldB},
		{name: "C", key: "key-2", hold: cfg.HoldC},
	}
}

// runTasks 并发运行 tasks，全部释放锁后返回。
// ctx 取消时持有者提前释放，排队中的任务拿到锁后立即释放。
func runTasks(ctx context.Context, km *xkeymutex.KeyedMutex, logger xlog.Logger, tasks []task) error {
	g, _ := xrun.NewGroup(ctx, xrun.WithName("tasks"), xrun.WithLogger(logger))
	start := time.Now()
	for _, t := range tasks {
		fn := t.run(km, logger, start)
		if t.delay > 0 {
			fn = xrun.Timer(t.delay, fn)
		}
		g.GoWithName("task-"+t.name, fn)
	}
	return g.Wait()
}

func (t task) run(km *xkeymutex.KeyedMutex, logger xlog.Logger, start time.Time) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		attrs := func(extra ...slog.Attr) []slog.Attr {
			return append([]slog.Attr{
				slog.String("task", t.name),
				xlog.Key(t.key),
				slog.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
			}, extra...)
		}

		logger.Info(ctx, "lock requested", attrs()...)
		requested := time.Now()
		km.Lock(t.key)
		logger.Info(ctx, "lock acquired", attrs(xlog.Duration(time.Since(requested)))...)

		hold := time.NewTimer(t.hold)
		defer hold.Stop()

		var err error
		select {
		case <-hold.C:
		case <-ctx.Done():
			err = ctx.Err()
		}

		// 先记录再释放，保证日志顺序与所有权移交顺序一致。
		logger.Info(ctx, "releasing lock", attrs()...)
		km.Unlock(t.key)
		return err
	}
}

// applyConfig 把热更新的配置应用到运行中的组件。
// 只有 Cleaner 开关、周期和日志级别可以在运行时变更。
// Cleaner 保持关闭时周期变化不生效，也不重启 Cleaner。
func applyConfig(ctx context.Context, km *xkeymutex.KeyedMutex, leveler xlog.Leveler, logger xlog.Logger, prev, next Config) {
	if cleanerChanged(prev.KeyMutex, next.KeyMutex) {
		km.UnregisterCleaner()
		if next.KeyMutex.Cleaner {
			km.RegisterCleaner(next.KeyMutex.CleanerInterval)
		}
		logger.Info(ctx, "cleaner reconfigured",
			slog.Bool("enabled", next.KeyMutex.Cleaner),
			slog.Duration("interval", km.CleanerInterval()))
	}
	if prev.Log.Level != next.Log.Level {
		leveler.SetLevel(next.Log.Level)
		logger.Info(ctx, "log level changed", slog.String("new_level", next.Log.Level.String()))
	}
	if prev.KeyMutex.ShardCount != next.KeyMutex.ShardCount ||
		prev.Log.Format != next.Log.Format || prev.Log.File != next.Log.File {
		logger.Warn(ctx, "shard_count and log output changes take effect on restart")
	}
}

func cleanerChanged(prev, next KeyMutexConfig) bool {
	if prev.Cleaner != next.Cleaner {
		return true
	}
	return next.Cleaner && prev.CleanerInterval != next.CleanerInterval
}
