// Package xkeymutex 提供按 key 划分的进程内 FIFO 互斥锁。
//
// 每个 key 对应一个 [xmutex.Mutex]，首次 Lock 时惰性创建；同一 key 的等待者
// 严格按调用顺序获得锁，不同 key 之间互不阻塞。
//
// # 特性
//
//   - Lock/Unlock/IsLocked 不返回错误、不 panic：Unlock 未加锁或不存在的 key 是空操作
//   - 分片 map（xxhash 选片，默认 32 分片），减少注册表锁争用
//   - Cleaner：周期性删除未加锁的条目，防止注册表无限增长
//   - 可选 OpenTelemetry 指标（锁争用、等待耗时、空操作 Unlock、回收数量）与 sweep span
//
// # Cleaner 与并发安全
//
// 查找或创建条目，以及在条目的 Mutex 上登记加锁请求，都在所属分片的锁内完成。
// 一旦登记，Mutex 即处于加锁状态（立即获得或排队），Cleaner 在同一分片锁内只删除
// 未加锁的条目，因此不会删除仍有调用方正在获取的 Mutex。
// 被删除的 key 再次 Lock 时会创建全新的 Mutex，与从未使用过的 key 行为一致。
//
// # 使用示例
//
//	km, err := xkeymutex.New(xkeymutex.WithCleaner(true))
//	if err != nil {
//		return err
//	}
//	defer km.Close()
//
//	km.Lock("order:42")
//	defer km.Unlock("order:42")
package xkeymutex
