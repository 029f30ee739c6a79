package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestChatLockSerializesProperty runs concurrent read-modify-write cycles on a
// shared counter and checks none is lost.
func TestChatLockSerializesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatID := rapid.Int64Range(-1_000_000_000_000, -1).Draw(t, "chatID")
		numOps := rapid.IntRange(2, 30).Draw(t, "numOps")
		step := rapid.IntRange(-50, 50).Draw(t, "step")

		cl := NewChatLock()
		counter := 0

		var wg sync.WaitGroup
		wg.Add(numOps)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = cl.WithLock(chatID, func() error {
					counter += step
					return nil
				})
			}()
		}
		wg.Wait()

		if counter != numOps*step {
			t.Fatalf("expected %d, got %d", numOps*step, counter)
		}
		if cl.size() != 0 {
			t.Fatalf("expected no tracked mutexes after release, got %d", cl.size())
		}
	})
}

// TestChatLocksIndependentProperty checks that chats do not share a mutex.
func TestChatLocksIndependentProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numChats := rapid.IntRange(2, 10).Draw(t, "numChats")
		opsPerChat := rapid.IntRange(1, 15).Draw(t, "opsPerChat")

		cl := NewChatLock()
		counters := make([]int, numChats)

		var wg sync.WaitGroup
		wg.Add(numChats * opsPerChat)
		for c := 0; c < numChats; c++ {
			for j := 0; j < opsPerChat; j++ {
				go func(c int) {
					defer wg.Done()
					cl.Lock(int64(-c - 1))
					defer cl.Unlock(int64(-c - 1))
					counters[c]++
				}(c)
			}
		}
		wg.Wait()

		for c, got := range counters {
			if got != opsPerChat {
				t.Fatalf("chat %d: expected %d, got %d", c, opsPerChat, got)
			}
		}
	})
}

func TestChatLock_TryLock(t *testing.T) {
	cl := NewChatLock()
	const chat int64 = -42

	require.True(t, cl.TryLock(chat))
	assert.True(t, cl.IsLocked(chat))
	assert.False(t, cl.TryLock(chat))
	assert.True(t, cl.TryLock(-43), "other chats are free")

	cl.Unlock(chat)
	cl.Unlock(-43)
	assert.False(t, cl.IsLocked(chat))
	assert.Equal(t, 0, cl.size())
}

func TestChatLock_ConcurrentTryLock(t *testing.T) {
	cl := NewChatLock()
	const chat int64 = -7

	require.True(t, cl.TryLock(chat))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cl.TryLock(chat) {
				wins.Add(1)
				cl.Unlock(chat)
			}
		}()
	}
	wg.Wait()

	assert.Zero(t, wins.Load())
	cl.Unlock(chat)
	assert.True(t, cl.TryLock(chat))
	cl.Unlock(chat)
}

func TestChatLock_WithLockContextTimeout(t *testing.T) {
	cl := NewChatLock()
	const chat int64 = -9

	cl.Lock(chat)
	called := false
	err := cl.WithLockContext(context.Background(), chat, 20*time.Millisecond, func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.False(t, called)

	cl.Unlock(chat)

	require.Eventually(t, func() bool {
		return cl.TryLock(chat)
	}, time.Second, 5*time.Millisecond, "abandoned waiter hands the lock back")
	cl.Unlock(chat)
}

func TestChatLock_WithLockContextCancelled(t *testing.T) {
	cl := NewChatLock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cl.WithLockContext(ctx, -1, time.Second, func() error {
		return nil
	})
	assert.Error(t, err)
}
