package xmutex

import (
	"sync"

	"github.com/eapache/queue"
)

// granted 是已关闭的 channel，Acquire 立即获得所有权时返回。
// 所有 Mutex 共享同一实例，接收方不会修改它。
var granted = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// Mutex 是 FIFO 公平互斥锁。
// 零值是未加锁的可用状态。Mutex 在首次使用后不得复制。
type Mutex struct {
	mu      sync.Mutex
	locked  bool
	waiters *queue.Queue // 元素类型为 chan struct{}，首次排队时创建
}

// New 创建一个未加锁的 Mutex。
func New() *Mutex {
	return &Mutex{}
}

// IsLocked 报告当前是否有持有者。
func (m *Mutex) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

// Waiters 返回排队等待的请求数量（瞬时快照）。
func (m *Mutex) Waiters() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiters == nil {
		return 0
	}
	return m.waiters.Length()
}

// Acquire 登记一次加锁请求，不阻塞。
//
// 未加锁时立即获得所有权，返回已关闭的 channel 且 immediate 为 true。
// 否则请求追加到队尾，返回的 channel 会在轮到该请求时被关闭。
//
// 调用方必须最终从 ready 接收：请求一旦登记就无法撤回，
// 放弃等待会使该请求在轮到时永久持有锁。
func (m *Mutex) Acquire() (ready <-chan struct{}, immediate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.locked {
		m.locked = true
		return granted, true
	}

	if m.waiters == nil {
		m.waiters = queue.New()
	}
	ch := make(chan struct{})
	m.waiters.Add(ch)
	return ch, false
}

// Lock 获取锁，锁被占用时阻塞直到按 FIFO 顺序轮到本次调用。
func (m *Mutex) Lock() {
	ready, _ := m.Acquire()
	<-ready
}

// Unlock 释放锁。
//
// 队列非空时所有权直接移交给队首等待者，locked 保持为 true。
// 未加锁时调用是空操作。Unlock 从不阻塞。
func (m *Mutex) Unlock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiters != nil && m.waiters.Length() > 0 {
		close(m.waiters.Remove().(chan struct{}))
		return
	}
	m.locked = false
}
