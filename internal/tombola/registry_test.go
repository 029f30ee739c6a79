package tombola

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreate(t *testing.T) {
	store := newMemStore()
	created := 0
	r := NewRegistry(func(chatID int64) *Game {
		created++
		return NewGame(chatID, store, WithRand(testRand(uint64(-chatID))))
	})

	_, ok := r.Get(-100)
	assert.False(t, ok)

	g1 := r.GetOrCreate(-100)
	g2 := r.GetOrCreate(-100)
	require.NotNil(t, g1)
	assert.Same(t, g1, g2)
	assert.Equal(t, 1, created)

	got, ok := r.Get(-100)
	assert.True(t, ok)
	assert.Same(t, g1, got)
}

func TestRegistry_ListSortedByChat(t *testing.T) {
	r := NewRegistry(func(chatID int64) *Game {
		return NewGame(chatID, newMemStore())
	})
	for _, id := range []int64{-3, -1, -2} {
		r.GetOrCreate(id)
	}

	games := r.List()
	require.Len(t, games, 3)
	assert.Equal(t, int64(-3), games[0].ChatID())
	assert.Equal(t, int64(-2), games[1].ChatID())
	assert.Equal(t, int64(-1), games[2].ChatID())
	assert.Equal(t, 3, r.Count())
}

func TestRegistry_ConcurrentCreate(t *testing.T) {
	var mu sync.Mutex
	created := 0
	r := NewRegistry(func(chatID int64) *Game {
		mu.Lock()
		created++
		mu.Unlock()
		return NewGame(chatID, newMemStore())
	})

	var wg sync.WaitGroup
	results := make([]*Game, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate(testChatID)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	for _, g := range results {
		assert.Same(t, results[0], g)
	}
}
