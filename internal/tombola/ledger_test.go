package tombola

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedStore holds IncrementPlayerScore open after the write landed until
// release is closed.
type gatedStore struct {
	*memStore
	landed  chan struct{}
	release chan struct{}
}

func (s *gatedStore) IncrementPlayerScore(ctx context.Context, groupID, playerID int64, delta int) error {
	if err := s.memStore.IncrementPlayerScore(ctx, groupID, playerID, delta); err != nil {
		return err
	}
	close(s.landed)
	<-s.release
	return nil
}

func TestGame_LoadOverallWaitsForFlush(t *testing.T) {
	store := &gatedStore{
		memStore: newMemStore(),
		landed:   make(chan struct{}),
		release:  make(chan struct{}),
	}
	g := newTestGame(store, DefaultSettings())
	g.mu.Lock()
	g.pending[playerA] = 50
	g.mu.Unlock()

	flushed := make(chan error, 1)
	go func() { flushed <- g.FlushPending(context.Background()) }()
	<-store.landed

	loaded := make(chan error, 1)
	go func() { loaded <- g.LoadOverall(context.Background()) }()

	select {
	case <-loaded:
		t.Fatal("LoadOverall returned while a flush was in progress")
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-flushed)
	require.NoError(t, <-loaded)

	assert.Equal(t, map[int64]int{playerA: 50}, store.group(testChatID))
	assert.Equal(t, map[int64]int{playerA: 50}, g.OverallScores())
	assert.Empty(t, g.PendingScores())
}

func TestGame_ClearOverallDropsPending(t *testing.T) {
	store := newMemStore()
	store.scores[testChatID] = map[int64]int{playerA: 10}
	store.failFor[playerB] = true
	g := newTestGame(store, DefaultSettings())
	require.NoError(t, g.LoadOverall(context.Background()))

	g.mu.Lock()
	g.pending[playerB] = 25
	g.mu.Unlock()
	require.ErrorIs(t, g.FlushPending(context.Background()), ErrScoresNotDurable)

	require.NoError(t, g.ClearOverall(context.Background()))
	assert.Empty(t, g.PendingScores())

	// A later retry has nothing to write back.
	store.failFor[playerB] = false
	require.NoError(t, g.FlushPending(context.Background()))
	assert.Empty(t, store.group(testChatID))
	assert.Empty(t, g.OverallScores())
}
