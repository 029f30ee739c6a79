// Package lock provides per-chat locking for match lifecycle transitions.
//
// Starting, stopping and drawing in a chat run under the chat's lock so a
// draw and its announcements never interleave with a reset of the same match.
package lock

import (
	"context"
	"sync"
	"time"
)

// chatMutex wraps a mutex with the number of holders and waiters.
type chatMutex struct {
	mu   sync.Mutex
	refs int
}

// ChatLock hands out one mutex per chat ID. Mutexes are created on demand and
// dropped once nobody holds or waits for them.
type ChatLock struct {
	mu    sync.Mutex
	locks map[int64]*chatMutex
}

// NewChatLock creates an empty ChatLock.
func NewChatLock() *ChatLock {
	return &ChatLock{locks: make(map[int64]*chatMutex)}
}

// acquire returns the chat's mutex with its reference count incremented.
func (cl *ChatLock) acquire(chatID int64) *chatMutex {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m, ok := cl.locks[chatID]
	if !ok {
		m = &chatMutex{}
		cl.locks[chatID] = m
	}
	m.refs++
	return m
}

// release drops a reference and forgets the mutex when it is unused.
func (cl *ChatLock) release(chatID int64, m *chatMutex) {
	cl.mu.Lock()
	defer cl.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(cl.locks, chatID)
	}
}

// Lock blocks until the chat's lock is held.
func (cl *ChatLock) Lock(chatID int64) {
	cl.acquire(chatID).mu.Lock()
}

// Unlock releases the chat's lock. Unlocking a chat that is not locked is a no-op.
func (cl *ChatLock) Unlock(chatID int64) {
	cl.mu.Lock()
	m, ok := cl.locks[chatID]
	cl.mu.Unlock()
	if !ok {
		return
	}
	m.mu.Unlock()
	cl.release(chatID, m)
}

// TryLock acquires the chat's lock without blocking.
func (cl *ChatLock) TryLock(chatID int64) bool {
	m := cl.acquire(chatID)
	if m.mu.TryLock() {
		return true
	}
	cl.release(chatID, m)
	return false
}

// LockWithTimeout waits for the chat's lock until timeout or ctx expires.
func (cl *ChatLock) LockWithTimeout(ctx context.Context, chatID int64, timeout time.Duration) bool {
	m := cl.acquire(chatID)

	done := make(chan struct{})
	go func() {
		m.mu.Lock()
		close(done)
	}()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case <-done:
		return true
	case <-timeoutCtx.Done():
		// The waiter still gets the mutex eventually; hand it straight back.
		go func() {
			<-done
			m.mu.Unlock()
			cl.release(chatID, m)
		}()
		return false
	}
}

// WithLock runs fn while holding the chat's lock.
func (cl *ChatLock) WithLock(chatID int64, fn func() error) error {
	cl.Lock(chatID)
	defer cl.Unlock(chatID)
	return fn()
}

// WithLockContext runs fn while holding the chat's lock, giving up with
// ErrLockTimeout if the lock is not acquired within timeout.
func (cl *ChatLock) WithLockContext(ctx context.Context, chatID int64, timeout time.Duration, fn func() error) error {
	if !cl.LockWithTimeout(ctx, chatID, timeout) {
		return ErrLockTimeout
	}
	defer cl.Unlock(chatID)

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fn()
	}
}

// IsLocked reports whether the chat's lock is currently held.
// The answer may be stale by the time the caller acts on it.
func (cl *ChatLock) IsLocked(chatID int64) bool {
	cl.mu.Lock()
	m, ok := cl.locks[chatID]
	cl.mu.Unlock()
	if !ok {
		return false
	}
	if m.mu.TryLock() {
		m.mu.Unlock()
		return false
	}
	return true
}

// size returns the number of tracked chat mutexes.
func (cl *ChatLock) size() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return len(cl.locks)
}
