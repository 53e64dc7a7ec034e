package xconf

import "time"

// Option 配置加载选项。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

func defaultOptions() *options {
	return &options{
		delim: ".",
		tag:   "koanf",
	}
}

// WithDelim 设置配置键分隔符，默认 "."，例如 "keymutex.cleaner_interval"。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签名，默认 "koanf"。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

// WatchOption 监视器选项。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// DefaultDebounce 默认防抖时间。
const DefaultDebounce = 100 * time.Millisecond

func defaultWatchOptions() *watchOptions {
	return &watchOptions{debounce: DefaultDebounce}
}

// WithDebounce 设置防抖时间，窗口内的多次变更只触发一次重载。
// d <= 0 时使用 DefaultDebounce。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}
