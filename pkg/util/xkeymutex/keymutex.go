package xkeymutex

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xkeymutex/pkg/observability/xlog"
	"github.com/omeyang/xkeymutex/pkg/util/xmutex"
)

// KeyedMutex 为每个 key 维护一个惰性创建的 FIFO 互斥锁。
// 所有方法都是并发安全的，且都不会失败。
type KeyedMutex struct {
	shards   []shard
	mask     uint64
	opts     options
	keyCount atomic.Int64
	metrics  *metrics
	tracer   trace.Tracer
	logger   xlog.Logger // 可能为 nil
	closed   atomic.Bool

	cleanerMu sync.Mutex
	cleaner   *cleaner
}

// shard 是注册表的一个分片。
// mu 保护 entries 的查找、创建和删除，以及在条目 Mutex 上登记加锁请求。
type shard struct {
	mu      sync.Mutex
	entries map[string]*xmutex.Mutex
}

// New 创建 KeyedMutex。配置无效时返回错误（如分片数不是 2 的幂）。
// 启用 WithCleaner(true) 时立即启动 Cleaner，使用完毕后应调用 Close。
func New(opts ...Option) (*KeyedMutex, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if err := o.validate(); err != nil {
		return nil, err
	}

	km := &KeyedMutex{
		shards: make([]shard, o.shardCount),
		mask:   uint64(o.shardCount - 1), // validate 保证 shardCount ∈ [1, 65536]
		opts:   o,
		logger: o.logger,
	}
	for i := range km.shards {
		km.shards[i].entries = make(map[string]*xmutex.Mutex)
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	km.tracer = tp.Tracer(instrumentationName)

	m, err := newMetrics(o.meterProvider, km.keyCount.Load)
	if err != nil {
		return nil, err
	}
	km.metrics = m

	if o.cleaner {
		km.RegisterCleaner(o.cleanerInterval)
	}
	return km, nil
}

func (km *KeyedMutex) shard(key string) *shard {
	return &km.shards[xxhash.Sum64String(key)&km.mask]
}

// IsLocked 报告 key 当前是否被持有。不存在的 key 返回 false。
func (km *KeyedMutex) IsLocked(key string) bool {
	s := km.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.entries[key]
	return ok && mu.IsLocked()
}

// Lock 获取 key 对应的锁，被占用时阻塞，同一 key 的等待者按调用顺序获得锁。
// key 不存在时创建新的 Mutex。锁不可重入：持有者再次 Lock 同一 key 会永久阻塞。
func (km *KeyedMutex) Lock(key string) {
	s := km.shard(key)
	s.mu.Lock()
	mu, ok := s.entries[key]
	if !ok {
		mu = xmutex.New()
		s.entries[key] = mu
		km.keyCount.Add(1)
	}
	// 在分片锁内登记请求，Cleaner 因此看到的是已加锁的 Mutex。
	ready, immediate := mu.Acquire()
	s.mu.Unlock()

	if immediate {
		km.metrics.recordLock(false, 0)
		return
	}
	start := time.Now()
	<-ready
	km.metrics.recordLock(true, time.Since(start))
}

// Unlock 释放 key 对应的锁。若有等待者，所有权直接移交给最早的等待者。
// key 不存在或未加锁时为空操作。Unlock 从不阻塞。
func (km *KeyedMutex) Unlock(key string) {
	s := km.shard(key)
	s.mu.Lock()
	mu, ok := s.entries[key]
	noop := !ok || !mu.IsLocked()
	if ok {
		mu.Unlock()
	}
	s.mu.Unlock()

	km.metrics.recordUnlock(noop)
	if noop && km.logger != nil {
		km.logger.Debug(context.Background(), "xkeymutex: unlock of unlocked key ignored",
			xlog.Key(key), slog.Bool("present", ok))
	}
}

// Len 返回注册表中的 key 数量（单次原子读取，瞬时快照）。
// 包含已解锁但尚未被 Cleaner 回收的 key。
func (km *KeyedMutex) Len() int {
	return int(max(km.keyCount.Load(), 0))
}

// Keys 返回注册表中的 key 列表，仅用于调试。
// 返回值是快照，不保证跨分片原子性。
func (km *KeyedMutex) Keys() []string {
	keys := make([]string, 0, km.Len())
	for i := range km.shards {
		s := &km.shards[i]
		s.mu.Lock()
		for k := range s.entries {
			keys = append(keys, k)
		}
		s.mu.Unlock()
	}
	return keys
}

// Close 停止 Cleaner 并注销指标回调。
// Close 之后 Lock/Unlock/IsLocked 仍可正常使用，但 RegisterCleaner 不再生效。
// 重复调用返回 nil。
func (km *KeyedMutex) Close() error {
	if !km.closed.CompareAndSwap(false, true) {
		return nil
	}
	km.UnregisterCleaner()
	return km.metrics.unregister()
}
