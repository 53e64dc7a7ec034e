package xkeymutex

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "xkeymutex"

	metricNameLockTotal   = "xkeymutex.lock.total"
	metricNameLockWait    = "xkeymutex.lock.wait"
	metricNameUnlockTotal = "xkeymutex.unlock.total"
	metricNameSweepTotal  = "xkeymutex.sweep.total"
	metricNameEvictTotal  = "xkeymutex.evict.total"
	metricNameKeys        = "xkeymutex.keys"

	attrContended = "contended"
	attrNoop      = "noop"
)

// waitBuckets 等待耗时直方图的桶边界（秒）
var waitBuckets = []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5, 30}

// 预构建的属性集合，避免热路径分配。
var (
	lockContendedAttrs   = metric.WithAttributes(attribute.Bool(attrContended, true))
	lockUncontendedAttrs = metric.WithAttributes(attribute.Bool(attrContended, false))
	unlockNoopAttrs      = metric.WithAttributes(attribute.Bool(attrNoop, true))
	unlockHeldAttrs      = metric.WithAttributes(attribute.Bool(attrNoop, false))
)

// metrics KeyedMutex 指标收集器。
// 所有 record 方法对 nil 接收者安全，未配置 MeterProvider 时为空操作。
type metrics struct {
	lockTotal   metric.Int64Counter
	lockWait    metric.Float64Histogram
	unlockTotal metric.Int64Counter
	sweepTotal  metric.Int64Counter
	evictTotal  metric.Int64Counter
	keysReg     metric.Registration
}

// newMetrics 创建指标收集器，mp 为 nil 时返回 nil。
// keys 用于 xkeymutex.keys 观测型 gauge 的回调。
func newMetrics(mp metric.MeterProvider, keys func() int64) (*metrics, error) {
	if mp == nil {
		return nil, nil
	}
	meter := mp.Meter(instrumentationName)

	m := &metrics{}
	var err error
	if m.lockTotal, err = meter.Int64Counter(metricNameLockTotal,
		metric.WithDescription("加锁次数"), metric.WithUnit("{lock}")); err != nil {
		return nil, err
	}
	if m.lockWait, err = meter.Float64Histogram(metricNameLockWait,
		metric.WithDescription("排队等待加锁的耗时"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(waitBuckets...)); err != nil {
		return nil, err
	}
	if m.unlockTotal, err = meter.Int64Counter(metricNameUnlockTotal,
		metric.WithDescription("解锁次数，noop=true 表示对未加锁或不存在的 key 解锁"),
		metric.WithUnit("{unlock}")); err != nil {
		return nil, err
	}
	if m.sweepTotal, err = meter.Int64Counter(metricNameSweepTotal,
		metric.WithDescription("Cleaner 扫描次数"), metric.WithUnit("{sweep}")); err != nil {
		return nil, err
	}
	if m.evictTotal, err = meter.Int64Counter(metricNameEvictTotal,
		metric.WithDescription("Cleaner 回收的空闲 key 数量"), metric.WithUnit("{key}")); err != nil {
		return nil, err
	}

	gauge, err := meter.Int64ObservableGauge(metricNameKeys,
		metric.WithDescription("注册表中的 key 数量"), metric.WithUnit("{key}"))
	if err != nil {
		return nil, err
	}
	if m.keysReg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(gauge, keys())
		return nil
	}, gauge); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *metrics) recordLock(contended bool, wait time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	if !contended {
		m.lockTotal.Add(ctx, 1, lockUncontendedAttrs)
		return
	}
	m.lockTotal.Add(ctx, 1, lockContendedAttrs)
	m.lockWait.Record(ctx, wait.Seconds())
}

func (m *metrics) recordUnlock(noop bool) {
	if m == nil {
		return
	}
	if noop {
		m.unlockTotal.Add(context.Background(), 1, unlockNoopAttrs)
		return
	}
	m.unlockTotal.Add(context.Background(), 1, unlockHeldAttrs)
}

func (m *metrics) recordSweep(ctx context.Context, evicted int) {
	if m == nil {
		return
	}
	m.sweepTotal.Add(ctx, 1)
	if evicted > 0 {
		m.evictTotal.Add(ctx, int64(evicted))
	}
}

// unregister 注销 gauge 回调，Close 时调用。
func (m *metrics) unregister() error {
	if m == nil || m.keysReg == nil {
		return nil
	}
	return m.keysReg.Unregister()
}
