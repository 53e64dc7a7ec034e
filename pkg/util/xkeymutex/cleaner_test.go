package xkeymutex

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanerEvictsIdleKeys(t *testing.T) {
	km := newForTest(t, WithCleaner(true), WithCleanerInterval(10*time.Millisecond))
	require.True(t, km.CleanerRunning())
	assert.Equal(t, 10*time.Millisecond, km.CleanerInterval())

	km.Lock("y")
	km.Unlock("y")
	assert.Equal(t, 1, km.Len())

	require.Eventually(t, func() bool { return km.Len() == 0 }, time.Second, 5*time.Millisecond)
	assert.False(t, km.IsLocked("y"))

	// 回收后重新加锁会创建新条目。
	km.Lock("y")
	assert.True(t, km.IsLocked("y"))
	km.Unlock("y")
}

func TestCleanerKeepsLockedKeys(t *testing.T) {
	km := newForTest(t)

	km.Lock("held")
	km.Lock("idle")
	km.Unlock("idle")

	km.RegisterCleaner(5 * time.Millisecond)
	require.Eventually(t, func() bool { return km.Len() == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"held"}, km.Keys())
	assert.True(t, km.IsLocked("held"))
	km.Unlock("held")
}

func TestCleanerKeepsKeysWithWaiters(t *testing.T) {
	km := newForTest(t, WithCleaner(true), WithCleanerInterval(time.Millisecond))

	km.Lock("k")
	done := make(chan struct{})
	go func() {
		defer close(done)
		km.Lock("k")
	}()
	require.Eventually(t, func() bool { return km.waiters("k") == 1 }, time.Second, time.Millisecond)

	// 若干个清理周期后条目仍在，等待者也未丢失。
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, km.Len())

	km.Unlock("k")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter orphaned by cleaner")
	}
	assert.True(t, km.IsLocked("k"))
	km.Unlock("k")
}

func TestRegisterCleanerIdempotent(t *testing.T) {
	km := newForTest(t)

	km.RegisterCleaner(time.Hour)
	km.RegisterCleaner(time.Millisecond)
	assert.True(t, km.CleanerRunning())
	assert.Equal(t, time.Hour, km.CleanerInterval(), "second register must not replace running task")

	km.UnregisterCleaner()
	assert.False(t, km.CleanerRunning())
	assert.Zero(t, km.CleanerInterval())

	// 只注册过一个任务，注销后不再有任何回收。
	km.Lock("z")
	km.Unlock("z")
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, 1, km.Len())
}

func TestRegisterCleanerDefaultInterval(t *testing.T) {
	km := newForTest(t, WithCleanerInterval(time.Minute))

	km.RegisterCleaner(0)
	assert.Equal(t, time.Minute, km.CleanerInterval())
	km.UnregisterCleaner()

	km.RegisterCleaner(-time.Second)
	assert.Equal(t, time.Minute, km.CleanerInterval())
}

func TestDefaultCleanerInterval(t *testing.T) {
	km := newForTest(t, WithCleaner(true))
	assert.Equal(t, DefaultCleanerInterval, km.CleanerInterval())
}

func TestUnregisterCleanerIdempotent(t *testing.T) {
	km := newForTest(t)

	assert.NotPanics(t, km.UnregisterCleaner, "unregister without register")

	km.RegisterCleaner(time.Millisecond)
	km.UnregisterCleaner()
	km.UnregisterCleaner()
	assert.False(t, km.CleanerRunning())
}

func TestCleanerReregister(t *testing.T) {
	km := newForTest(t)

	km.RegisterCleaner(time.Hour)
	km.UnregisterCleaner()
	km.RegisterCleaner(5 * time.Millisecond)
	assert.Equal(t, 5*time.Millisecond, km.CleanerInterval())

	km.Lock("a")
	km.Unlock("a")
	require.Eventually(t, func() bool { return km.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCloseStopsCleaner(t *testing.T) {
	km, err := New(WithCleaner(true), WithCleanerInterval(time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, km.Close())
	assert.False(t, km.CleanerRunning())

	km.RegisterCleaner(time.Millisecond)
	assert.False(t, km.CleanerRunning(), "register after Close is a no-op")
}

func TestSweep(t *testing.T) {
	km := newForTest(t)

	for i := range 10 {
		km.Lock(fmt.Sprintf("k%d", i))
	}
	for i := range 5 {
		km.Unlock(fmt.Sprintf("k%d", i))
	}

	assert.Equal(t, 5, km.Sweep())
	assert.Equal(t, 5, km.Len())
	assert.Equal(t, 0, km.Sweep())

	for i := 5; i < 10; i++ {
		key := fmt.Sprintf("k%d", i)
		assert.True(t, km.IsLocked(key))
		km.Unlock(key)
	}
	assert.Equal(t, 5, km.Sweep())
	assert.Equal(t, 0, km.Len())
	assert.Empty(t, km.Keys())
}

func TestConcurrentLockAndSweep(t *testing.T) {
	km := newForTest(t, WithCleaner(true), WithCleanerInterval(time.Millisecond))

	const (
		numGoroutines = 20
		numIterations = 200
	)

	var (
		wg      sync.WaitGroup
		counter [4]int // 每个 key 一个计数，仅在持锁时修改
	)
	for g := range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range numIterations {
				idx := (g + i) % len(counter)
				key := fmt.Sprintf("hot-%d", idx)
				km.Lock(key)
				counter[idx]++
				km.Unlock(key)
				if i%16 == 0 {
					km.Sweep()
				}
			}
		}()
	}
	wg.Wait()

	total := 0
	for _, c := range counter {
		total += c
	}
	assert.Equal(t, numGoroutines*numIterations, total)

	km.UnregisterCleaner()
	km.Sweep()
	assert.Equal(t, 0, km.Len())
}
