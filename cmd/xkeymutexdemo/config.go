package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xkeymutex/pkg/config/xconf"
	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
	"github.com/omeyang/xkeymutex/pkg/util/xkeymutex"
)

// Config 演示程序配置。优先级：命令行参数 > 配置文件 > 默认值。
type Config struct {
	KeyMutex KeyMutexConfig `koanf:"keymutex"`
	Log      LogConfig      `koanf:"log"`
	Demo     DemoConfig     `koanf:"demo"`
}

// KeyMutexConfig 注册表与 Cleaner 配置，cleaner 与 cleaner_interval 支持热更新。
type KeyMutexConfig struct {
	Cleaner         bool          `koanf:"cleaner"`
	CleanerInterval time.Duration `koanf:"cleaner_interval"`
	ShardCount      int           `koanf:"shard_count"`
}

// LogConfig 日志配置，level 支持热更新。
type LogConfig struct {
	Level  xlog.Level `koanf:"level"`
	Format string     `koanf:"format"`
	File   string     `koanf:"file"` // 为空时输出到 stdout
}

// DemoConfig 三个加锁任务的持有时长，以及任务 B 相对任务 A 的启动延迟。
type DemoConfig struct {
	HoldA   time.Duration `koanf:"hold_a"`
	HoldB   time.Duration `koanf:"hold_b"`
	HoldC   time.Duration `koanf:"hold_c"`
	Stagger time.Duration `koanf:"stagger"`
}

func defaultConfig() Config {
	return Config{
		KeyMutex: KeyMutexConfig{
			Cleaner:         false,
			CleanerInterval: xkeymutex.DefaultCleanerInterval,
			ShardCount:      32,
		},
		Log: LogConfig{
			Level:  xlog.LevelInfo,
			Format: "text",
		},
		Demo: DemoConfig{
			HoldA:   2 * time.Second,
			HoldB:   3 * time.Second,
			HoldC:   6 * time.Second,
			Stagger: 10 * time.Millisecond,
		},
	}
}

// loadConfig 在默认值之上叠加配置文件和命令行参数。
// 返回的 xconf.Config 用于后续监视，未指定配置文件时为 nil。
func loadConfig(cmd *cli.Command) (Config, xconf.Config, error) {
	cfg := defaultConfig()

	var src xconf.Config
	if path := cmd.String(flagConfig); path != "" {
		var err error
		src, err = xconf.New(path)
		if err != nil {
			return cfg, nil, err
		}
		if err := src.Unmarshal("", &cfg); err != nil {
			return cfg, nil, err
		}
	}

	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, nil, err
	}
	if err := cfg.validate(); err != nil {
		return cfg, nil, err
	}
	return cfg, src, nil
}

// reloadConfig 从已加载的配置源重新构建 Config，命令行参数仍然优先。
func reloadConfig(cmd *cli.Command, src xconf.Config) (Config, error) {
	cfg := defaultConfig()
	if err := src.Unmarshal("", &cfg); err != nil {
		return cfg, err
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

// applyFlags 只覆盖显式设置的参数。
func applyFlags(cmd *cli.Command, cfg *Config) error {
	if cmd.IsSet(flagLogLevel) {
		level, err := xlog.ParseLevel(cmd.String(flagLogLevel))
		if err != nil {
			return &usageError{err: err}
		}
		cfg.Log.Level = level
	}
	if cmd.IsSet(flagLogFormat) {
		cfg.Log.Format = cmd.String(flagLogFormat)
	}
	if cmd.IsSet(flagLogFile) {
		cfg.Log.File = cmd.String(flagLogFile)
	}
	if cmd.IsSet(flagCleaner) {
		cfg.KeyMutex.Cleaner = cmd.Bool(flagCleaner)
	}
	if cmd.IsSet(flagCleanerInterval) {
		cfg.KeyMutex.CleanerInterval = cmd.Duration(flagCleanerInterval)
	}
	return nil
}

func (c Config) validate() error {
	if c.KeyMutex.CleanerInterval < 0 {
		return &usageError{err: fmt.Errorf("cleaner interval must not be negative, got %s", c.KeyMutex.CleanerInterval)}
	}
	for name, d := range map[string]time.Duration{
		"hold_a":  c.Demo.HoldA,
		"hold_b":  c.Demo.HoldB,
		"hold_c":  c.Demo.HoldC,
		"stagger": c.Demo.Stagger,
	} {
		if d < 0 {
			return &usageError{err: fmt.Errorf("demo.%s must not be negative, got %s", name, d)}
		}
	}
	return nil
}

// usageError 参数或配置错误，对应退出码 2。
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }
