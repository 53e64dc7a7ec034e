// Package xmutex 提供先进先出（FIFO）公平排队的进程内互斥锁。
//
// 与 sync.Mutex 的区别：sync.Mutex 在饥饿模式之外允许新到达的 goroutine 插队，
// xmutex.Mutex 则严格按照 Lock 调用顺序授予所有权。
//
// # 所有权移交
//
// Unlock 时若队列非空，所有权直接移交给队首等待者，locked 状态始终保持为 true；
// 只有队列为空时才真正解锁。因此在 Unlock 与等待者恢复之间，任何新的 Lock
// 调用都无法"抢先"获得锁。
//
// # 特性
//
//   - 零值可用：var mu xmutex.Mutex
//   - Unlock 对未加锁的 Mutex 是空操作（不 panic，不影响后续行为）
//   - Acquire 非阻塞地登记一次加锁请求，返回的 channel 关闭即表示获得所有权
//   - 不可重入；不支持超时与取消；不做死锁检测
//
// # 不变量
//
//   - 等待队列非空 ⇒ 已加锁
//   - 未加锁 ⇒ 等待队列为空
package xmutex
