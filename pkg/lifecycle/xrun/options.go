package xrun

import (
	"os"

	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
)

// Option 配置 Group 的选项函数。
type Option func(*groupOptions)

type groupOptions struct {
	logger          xlog.Logger // 可能为 nil
	name            string
	signals         []os.Signal
	noSignalHandler bool
}

func defaultOptions() *groupOptions {
	return &groupOptions{name: "xrun"}
}

// WithLogger 设置日志记录器，记录服务启停和信号事件。
// 默认不输出日志。
func WithLogger(logger xlog.Logger) Option {
	return func(o *groupOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 Group 名称，出现在日志的 group 字段中。默认 "xrun"。
func WithName(name string) Option {
	return func(o *groupOptions) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 设置 Run/RunWithOptions 监听的信号列表，默认 [DefaultSignals]。
func WithSignals(signals []os.Signal) Option {
	// 设计决策: 在创建时拷贝，避免调用方后续修改切片导致配置漂移。
	copied := append([]os.Signal(nil), signals...)
	return func(o *groupOptions) {
		o.signals = copied
	}
}

// WithoutSignalHandler 禁用 Run/RunWithOptions 的自动信号处理。
func WithoutSignalHandler() Option {
	return func(o *groupOptions) {
		o.noSignalHandler = true
	}
}
