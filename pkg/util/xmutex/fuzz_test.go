package xmutex

import "testing"

// FuzzOperations 以字节序列驱动 Acquire/Unlock，校验不变量与 FIFO 顺序。
// 字节的最低位决定操作：0 = Acquire，1 = Unlock。
func FuzzOperations(f *testing.F) {
	f.Add([]byte{0, 1})
	f.Add([]byte{0, 0, 0, 1, 1, 1})
	f.Add([]byte{1, 1, 0, 1, 1})
	f.Add([]byte{0, 0, 1, 0, 1, 1, 1, 0})

	f.Fuzz(func(t *testing.T, ops []byte) {
		mu := New()
		var pending []<-chan struct{} // 已登记但尚未获得所有权的请求，按 FIFO 排列
		holders := 0                  // 已获得所有权且未释放的请求数

		for i, op := range ops {
			if op&1 == 0 {
				ready, immediate := mu.Acquire()
				if immediate {
					holders++
				} else {
					pending = append(pending, ready)
				}
			} else {
				mu.Unlock()
				if holders > 0 {
					holders--
				}
				if len(pending) > 0 {
					select {
					case <-pending[0]:
					default:
						t.Fatalf("op %d: front waiter not granted after Unlock", i)
					}
					pending = pending[1:]
					holders++
				}
				for j, ch := range pending {
					select {
					case <-ch:
						t.Fatalf("op %d: waiter %d granted out of order", i, j)
					default:
					}
				}
			}

			if holders > 1 {
				t.Fatalf("op %d: %d holders at once", i, holders)
			}
			if got := mu.Waiters(); got != len(pending) {
				t.Fatalf("op %d: Waiters() = %d, want %d", i, got, len(pending))
			}
			if mu.Waiters() > 0 && !mu.IsLocked() {
				t.Fatalf("op %d: waiters present but mutex unlocked", i)
			}
			if mu.IsLocked() != (holders == 1) {
				t.Fatalf("op %d: IsLocked() = %v with %d holders", i, mu.IsLocked(), holders)
			}
		}
	})
}
