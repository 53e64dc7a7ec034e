// Package util 提供进程内同步原语相关的子包。
//
// 子包列表：
//   - xmutex: FIFO 公平互斥锁，解锁时把所有权直接移交给最早的等待者
//   - xkeymutex: 按 key 惰性创建 xmutex.Mutex 的分片注册表，可选周期性回收空闲 key
//
// 设计原则：
//   - 加锁与解锁都不会失败，误用（重复解锁）是空操作
//   - 同一 key 的等待者按调用顺序获得锁
package util
