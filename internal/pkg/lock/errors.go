package lock

import "errors"

var (
	// ErrLockTimeout is returned when a chat lock cannot be acquired in time.
	ErrLockTimeout = errors.New("chat lock acquisition timeout")
)
