package tombola

import (
	"sort"
	"sync"
)

// Factory builds the game of a chat on first access.
type Factory func(chatID int64) *Game

// Registry owns the games of all chats. Games are created lazily and kept
// for the process lifetime.
type Registry struct {
	games   map[int64]*Game
	factory Factory
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry using factory to build games.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		games:   make(map[int64]*Game),
		factory: factory,
	}
}

// GetOrCreate returns the game of a chat, creating it on first use.
func (r *Registry) GetOrCreate(chatID int64) *Game {
	r.mu.RLock()
	g, ok := r.games[chatID]
	r.mu.RUnlock()
	if ok {
		return g
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if g, ok := r.games[chatID]; ok {
		return g
	}
	g = r.factory(chatID)
	r.games[chatID] = g
	return g
}

// Get returns the game of a chat if it exists.
func (r *Registry) Get(chatID int64) (*Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[chatID]
	return g, ok
}

// List returns all games ordered by chat id.
// The returned slice is a copy, so modifications won't affect the registry.
func (r *Registry) List() []*Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]*Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool {
		return games[i].chatID < games[j].chatID
	})
	return games
}

// Count returns the number of known games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
