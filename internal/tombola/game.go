// Package tombola implements the game engine of the Italian tombola: cards,
// the number pool, prize detection and the per-match score ledger.
package tombola

import (
	"context"
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Game holds the state of the tombola match of a single chat.
//
// Join and Draw are serialized by their own mutexes; mu guards the fields
// and is only held for in-memory work, never across store calls.
type Game struct {
	chatID int64
	store  ScoreStore

	joinMu  sync.Mutex
	drawMu  sync.Mutex
	flushMu sync.Mutex
	mu      sync.Mutex

	rng      *rand.Rand
	matchID  string
	threadID int
	settings Settings

	pool    *Pool
	players map[int64]struct{}
	cards   map[int64]*Card
	names   map[int64]string
	winners map[Prize]int64

	// completions counts full cards awarded in the match (tombola, tombolino).
	completions int

	matchScores map[int64]int
	pending     map[int64]int
	overall     map[int64]int

	active            bool
	extractionStarted bool
	interrupted       bool

	autoCancel context.CancelFunc
}

// Option configures a Game.
type Option func(*Game)

// WithRand sets the random source used for cards, shuffles and tie breaks.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) {
		g.rng = r
	}
}

// WithSettings sets the initial group settings.
func WithSettings(s Settings) Option {
	return func(g *Game) {
		g.settings = s
	}
}

// NewGame creates a joinable game for a chat.
func NewGame(chatID int64, store ScoreStore, opts ...Option) *Game {
	g := &Game{
		chatID:   chatID,
		store:    store,
		settings: DefaultSettings(),
		overall:  make(map[int64]int),
		pending:  make(map[int64]int),
		names:    make(map[int64]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		seed := uint64(time.Now().UnixNano())
		g.rng = rand.New(rand.NewPCG(seed, uint64(chatID)))
	}
	g.resetLocked()
	return g
}

// resetLocked reinitializes the per-match state. Overall and pending scores
// are kept. The caller must hold mu or own g exclusively.
func (g *Game) resetLocked() {
	if g.autoCancel != nil {
		g.autoCancel()
		g.autoCancel = nil
	}
	g.matchID = uuid.NewString()
	g.pool = NewPool(g.rng, g.settings.Specials)
	g.players = make(map[int64]struct{})
	g.cards = make(map[int64]*Card)
	g.winners = make(map[Prize]int64)
	g.matchScores = make(map[int64]int)
	g.completions = 0
	g.active = true
	g.extractionStarted = false
	g.interrupted = false
}

// Reset starts a fresh joinable match, keeping the overall scores and
// cancelling any automatic extraction still attached to the game.
func (g *Game) Reset() {
	g.drawMu.Lock()
	defer g.drawMu.Unlock()
	g.joinMu.Lock()
	defer g.joinMu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()

	g.resetLocked()
}

// Join gives the player a new card. It returns false if extraction has
// started, the match is over, or the player already holds a card.
func (g *Game) Join(playerID int64) bool {
	g.joinMu.Lock()
	defer g.joinMu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.extractionStarted {
		return false
	}
	if _, ok := g.cards[playerID]; ok {
		return false
	}

	card := GenerateCard(g.rng)
	g.cards[playerID] = &card
	g.players[playerID] = struct{}{}
	g.matchScores[playerID] = 0
	return true
}

// StartExtraction closes the match to new players. Calling it again is a no-op.
func (g *Game) StartExtraction() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.extractionStarted = true
}

// Mark marks number on the player's card. It returns true only the first time
// the number gets marked.
func (g *Game) Mark(playerID int64, number int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	card, ok := g.cards[playerID]
	if !ok {
		return false
	}
	return card.mark(number)
}

// ApplySettings replaces the group settings used by subsequent draws.
func (g *Game) ApplySettings(s Settings) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings = s
}

// Settings returns the settings snapshot in use.
func (g *Game) Settings() Settings {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.settings
}

// SetName caches the display name of a player.
func (g *Game) SetName(playerID int64, name string) {
	if name == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.names[playerID] = name
}

// DisplayName returns the cached name of a player or a Player_<id> placeholder.
func (g *Game) DisplayName(playerID int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.displayNameLocked(playerID)
}

// HasName reports whether a display name is cached for the player.
func (g *Game) HasName(playerID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.names[playerID]
	return ok
}

func (g *Game) displayNameLocked(playerID int64) string {
	if name, ok := g.names[playerID]; ok {
		return name
	}
	return fmt.Sprintf("Player_%d", playerID)
}

// StartAuto attaches the cancel function of an automatic extraction loop.
// It returns false if a loop is already attached.
func (g *Game) StartAuto(cancel context.CancelFunc) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.autoCancel != nil {
		return false
	}
	g.autoCancel = cancel
	return true
}

// StopAuto cancels and forgets the automatic extraction loop, if any.
func (g *Game) StopAuto() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.autoCancel != nil {
		g.autoCancel()
		g.autoCancel = nil
	}
}

// AutoRunning reports whether an automatic extraction loop is attached.
func (g *Game) AutoRunning() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.autoCancel != nil
}

// ChatID returns the chat the game belongs to.
func (g *Game) ChatID() int64 {
	return g.chatID
}

// MatchID identifies the current match in logs.
func (g *Game) MatchID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.matchID
}

// ThreadID returns the forum topic announcements go to.
func (g *Game) ThreadID() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.threadID
}

// SetThreadID sets the forum topic announcements go to.
func (g *Game) SetThreadID(threadID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.threadID = threadID
}

// Active reports whether the match accepts draws.
func (g *Game) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// ExtractionStarted reports whether joins are closed.
func (g *Game) ExtractionStarted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.extractionStarted
}

// Interrupted reports whether the last match was stopped by hand.
func (g *Game) Interrupted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.interrupted
}

// IsPlaying reports whether the player holds a card in the current match.
func (g *Game) IsPlaying(playerID int64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.players[playerID]
	return ok
}

// Players returns the ids of the joined players in ascending order.
func (g *Game) Players() []int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.memberIDsLocked()
}

// PlayerCount returns the number of joined players.
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

func (g *Game) memberIDsLocked() []int64 {
	return slices.Sorted(maps.Keys(g.players))
}

// Card returns a copy of the player's card.
func (g *Game) Card(playerID int64) (Card, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	card, ok := g.cards[playerID]
	if !ok {
		return Card{}, false
	}
	return *card, true
}

// Winners returns the awarded prizes and their winners.
func (g *Game) Winners() map[Prize]int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Clone(g.winners)
}

// Completions returns how many full cards have been awarded in the match.
func (g *Game) Completions() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.completions
}

// Drawn returns the balls drawn so far in draw order.
func (g *Game) Drawn() []Ball {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pool.Drawn()
}

// Remaining returns the number of balls left in the bag.
func (g *Game) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pool.Remaining()
}

// MatchScores returns a copy of the current match tally.
func (g *Game) MatchScores() map[int64]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Clone(g.matchScores)
}

// OverallScores returns a copy of the group leaderboard as last loaded or flushed.
func (g *Game) OverallScores() map[int64]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Clone(g.overall)
}

// PendingScores returns deltas of ended matches not yet written to the store.
func (g *Game) PendingScores() map[int64]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return maps.Clone(g.pending)
}
