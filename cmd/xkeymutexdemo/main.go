// xkeymutexdemo 演示按 key 加锁的 FIFO 互斥锁。
//
// 用法:
//
//	xkeymutexdemo [选项]
//
// 选项:
//
//	-c, --config            配置文件路径（.yaml/.yml/.json）
//	--watch                 监视配置文件并热更新 Cleaner 与日志级别
//	--log-level             日志级别 (debug/info/warn/error)
//	--log-format            日志格式 (text/json)
//	--log-file              日志文件路径，按大小轮转
//	--cleaner               是否启动 Cleaner
//	--cleaner-interval      Cleaner 扫描周期
//
// 运行过程:
//
//	任务 A 对 key-1 加锁并持有 2s；10ms 后任务 B 对 key-1 加锁，排在 A 之后，
//	A 释放后获得锁并持有 3s；任务 C 对 key-2 加锁并持有 6s，与 A/B 互不影响。
//	每次加锁与释放都带 run_id 记录日志。
//
// 退出码:
//
//	0: 正常结束
//	1: 运行失败
//	2: 参数或配置错误
//	130: 收到终止信号
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xkeymutex/pkg/config/xconf"
	"github.com/omeyang/xkeymutex/pkg/lifecycle/xrun"
	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
	"github.com/omeyang/xkeymutex/pkg/util/xkeymutex"
)

const (
	flagConfig          = "config"
	flagWatch           = "watch"
	flagLogLevel        = "log-level"
	flagLogFormat       = "log-format"
	flagLogFile         = "log-file"
	flagCleaner         = "cleaner"
	flagCleanerInterval = "cleaner-interval"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

func createApp(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "xkeymutexdemo",
		Usage:     "按 key 加锁的 FIFO 互斥锁演示",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "配置文件路径（.yaml/.yml/.json）",
			},
			&cli.BoolFlag{
				Name:  flagWatch,
				Usage: "监视配置文件并热更新 Cleaner 与日志级别",
			},
			&cli.StringFlag{
				Name:  flagLogLevel,
				Usage: "日志级别 (debug/info/warn/error)",
			},
			&cli.StringFlag{
				Name:  flagLogFormat,
				Usage: "日志格式 (text/json)",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "日志文件路径，为空时输出到 stdout",
			},
			&cli.BoolFlag{
				Name:  flagCleaner,
				Usage: "是否启动 Cleaner（默认关闭）",
			},
			&cli.DurationFlag{
				Name:  flagCleanerInterval,
				Usage: "Cleaner 扫描周期（默认 10s）",
			},
		},
		Action: action,
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return &usageError{err: err}
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，由 run() 统一映射退出码。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(stderr, err)
			}
		},
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	err := createApp(stdout, stderr).Run(ctx, args)
	if err == nil {
		return 0
	}

	var usageErr *usageError
	switch {
	case errors.Is(err, xrun.ErrSignal):
		return 130
	case errors.As(err, &usageErr),
		errors.Is(err, xconf.ErrUnsupportedFormat),
		errors.Is(err, xconf.ErrEmptyPath),
		errors.Is(err, xkeymutex.ErrInvalidShardCount),
		errors.Is(err, xkeymutex.ErrInvalidInterval):
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}
}

func action(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, src, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	b := xlog.New().
		SetOutput(cmd.Root().Writer).
		SetLevel(cfg.Log.Level).
		SetFormat(cfg.Log.Format)
	if cfg.Log.File != "" {
		b.SetRotation(cfg.Log.File)
	}
	base, cleanup, err := b.Build()
	if err != nil {
		return &usageError{err: err}
	}
	defer func() { err = errors.Join(err, cleanup()) }()

	logger := base.With(slog.String("run_id", uuid.NewString()))

	km, err := xkeymutex.New(
		xkeymutex.WithCleaner(cfg.KeyMutex.Cleaner),
		xkeymutex.WithCleanerInterval(cfg.KeyMutex.CleanerInterval),
		xkeymutex.WithShardCount(cfg.KeyMutex.ShardCount),
		xkeymutex.WithLogger(logger.With(xlog.Component("xkeymutex"))),
	)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, km.Close()) }()

	logger.Info(ctx, "demo starting",
		slog.Bool("cleaner", km.CleanerRunning()),
		slog.Duration("cleaner_interval", km.CleanerInterval()),
		slog.Int("shard_count", cfg.KeyMutex.ShardCount))

	// 任务全部结束后 RunWithOptions 返回，同时停止配置监视。
	services := []func(ctx context.Context) error{
		func(ctx context.Context) error {
			return runTasks(ctx, km, logger, demoTasks(cfg.Demo))
		},
	}
	if cmd.Bool(flagWatch) && src != nil {
		services = append(services, watchService(cmd, src, km, base, logger, cfg))
	}

	if err := xrun.RunWithOptions(ctx, []xrun.Option{
		xrun.WithName("xkeymutexdemo"),
		xrun.WithLogger(logger),
	}, services...); err != nil {
		return err
	}

	logger.Info(ctx, "demo finished",
		slog.Int("keys", km.Len()),
		slog.Any("registered", km.Keys()))
	return nil
}

// watchService 返回监视配置文件的服务，ctx 取消时停止监视。
func watchService(cmd *cli.Command, src xconf.Config, km *xkeymutex.KeyedMutex,
	leveler xlog.Leveler, logger xlog.Logger, initial Config) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		current := initial
		w, err := xconf.Watch(src, func(_ xconf.Config, err error) {
			if err != nil {
				logger.Warn(ctx, "config reload failed", xlog.Err(err))
				return
			}
			next, err := reloadConfig(cmd, src)
			if err != nil {
				logger.Warn(ctx, "config rejected", xlog.Err(err))
				return
			}
			applyConfig(ctx, km, leveler, logger, current, next)
			current = next
		})
		if err != nil {
			return err
		}
		w.StartAsync()
		logger.Info(ctx, "watching config", slog.String("path", src.Path()))

		<-ctx.Done()
		return w.Stop()
	}
}
