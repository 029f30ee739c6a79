package tombola

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"sync"
)

const testChatID int64 = -1001234567890

// memStore is an in-memory ScoreStore that counts writes and can fail on demand.
type memStore struct {
	mu         sync.Mutex
	scores     map[int64]map[int64]int
	increments int
	saves      int
	failFor    map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		scores:  make(map[int64]map[int64]int),
		failFor: make(map[int64]bool),
	}
}

var errStoreDown = errors.New("store unavailable")

func (s *memStore) LoadOverallScores(ctx context.Context, groupID int64) (map[int64]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.scores[groupID]), nil
}

func (s *memStore) SaveOverallScores(ctx context.Context, groupID int64, scores map[int64]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	s.scores[groupID] = maps.Clone(scores)
	return nil
}

func (s *memStore) IncrementPlayerScore(ctx context.Context, groupID, playerID int64, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[playerID] {
		return errStoreDown
	}
	s.increments++
	if s.scores[groupID] == nil {
		s.scores[groupID] = make(map[int64]int)
	}
	s.scores[groupID][playerID] += delta
	return nil
}

func (s *memStore) group(groupID int64) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.scores[groupID])
}

func testRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newTestGame(store ScoreStore, s Settings) *Game {
	return NewGame(testChatID, store, WithRand(testRand(1)), WithSettings(s))
}

// plainSettings has every special disabled so draws only yield numbers.
func plainSettings() Settings {
	s := DefaultSettings()
	s.Specials = 0
	return s
}

// setCard replaces a joined player's card with fixed rows.
func setCard(g *Game, playerID int64, rows [Rows][RowSize]int) {
	var c Card
	for i, r := range rows {
		for j, n := range r {
			c[i][j] = Cell{Number: n}
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards[playerID] = &c
}

// setBag replaces the undrawn balls with a fixed order.
func setBag(g *Game, balls ...Ball) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pool = &Pool{undrawn: balls}
}

func numbers(from, to int) []Ball {
	balls := make([]Ball, 0, to-from+1)
	for n := from; n <= to; n++ {
		balls = append(balls, Ball{Number: n})
	}
	return balls
}
