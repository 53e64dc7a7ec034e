package xkeymutex

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
)

const (
	// DefaultCleanerInterval 是 Cleaner 的默认扫描周期。
	DefaultCleanerInterval = 10 * time.Second

	defaultShardCount = 32
	maxShardCount     = 1 << 16 // 65536
)

// Option 定义 KeyedMutex 可选配置。
type Option func(*options)

type options struct {
	shardCount      int
	cleaner         bool
	cleanerInterval time.Duration
	logger          xlog.Logger
	meterProvider   metric.MeterProvider
	tracerProvider  trace.TracerProvider
}

func defaultOptions() options {
	return options{
		shardCount:      defaultShardCount,
		cleanerInterval: DefaultCleanerInterval,
	}
}

// WithCleaner 设置是否在创建时启动 Cleaner。默认不启动。
func WithCleaner(enabled bool) Option {
	return func(o *options) {
		o.cleaner = enabled
	}
}

// WithCleanerInterval 设置 Cleaner 的默认扫描周期。
// 对 WithCleaner(true) 以及 RegisterCleaner(0) 生效。
// d == 0 表示使用 [DefaultCleanerInterval]，负数使 New 返回 [ErrInvalidInterval]。
func WithCleanerInterval(d time.Duration) Option {
	return func(o *options) {
		o.cleanerInterval = d
	}
}

// WithShardCount 设置注册表分片数量。
// n 必须为正整数且为 2 的幂，上限 65536，否则 New 返回错误。默认 32。
func WithShardCount(n int) Option {
	return func(o *options) {
		o.shardCount = n
	}
}

// WithLogger 设置日志记录器，记录 Cleaner 启停、回收和空操作 Unlock。
// 不设置时不输出日志。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeterProvider 设置 OpenTelemetry MeterProvider。
// 不设置时不收集指标。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider 设置 OpenTelemetry TracerProvider，用于 sweep span。
// 不设置时使用全局 TracerProvider（otel.GetTracerProvider()）。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

func (o *options) validate() error {
	sc := o.shardCount
	if sc <= 0 || sc > maxShardCount || sc&(sc-1) != 0 {
		return fmt.Errorf("%w: must be a positive power of 2 (max %d), got %d",
			ErrInvalidShardCount, maxShardCount, sc)
	}
	if o.cleanerInterval < 0 {
		return fmt.Errorf("%w: got %s", ErrInvalidInterval, o.cleanerInterval)
	}
	if o.cleanerInterval == 0 {
		o.cleanerInterval = DefaultCleanerInterval
	}
	return nil
}
