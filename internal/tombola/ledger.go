package tombola

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog/log"
)

// EndMatch deactivates the match. An interrupted match discards its tally.
// Otherwise every nonzero match delta is moved to the pending ledger and
// flushed to the score store; deltas the store rejects stay pending and the
// returned error wraps ErrScoresNotDurable.
func (g *Game) EndMatch(ctx context.Context, interrupted bool) error {
	g.mu.Lock()
	g.active = false
	if interrupted {
		g.interrupted = true
		clear(g.matchScores)
		g.mu.Unlock()

		log.Info().
			Int64("chat_id", g.chatID).
			Str("match_id", g.matchID).
			Msg("Match interrupted, scores discarded")
		return nil
	}

	for id, delta := range g.matchScores {
		if delta != 0 {
			g.pending[id] += delta
		}
	}
	clear(g.matchScores)
	g.mu.Unlock()

	return g.FlushPending(ctx)
}

// FlushPending writes pending deltas to the score store. It is safe to call
// repeatedly; a delta leaves the ledger only after the store accepted it.
func (g *Game) FlushPending(ctx context.Context) error {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	g.mu.Lock()
	snapshot := maps.Clone(g.pending)
	g.mu.Unlock()

	if len(snapshot) == 0 {
		return nil
	}

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(snapshot)) {
		delta := snapshot[id]
		if err := g.store.IncrementPlayerScore(ctx, g.chatID, id, delta); err != nil {
			errs = append(errs, fmt.Errorf("player %d: %w", id, err))
			continue
		}

		g.mu.Lock()
		g.pending[id] -= delta
		if g.pending[id] == 0 {
			delete(g.pending, id)
		}
		g.overall[id] += delta
		g.mu.Unlock()
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Error().
			Err(err).
			Int64("chat_id", g.chatID).
			Int("failed", len(errs)).
			Msg("Failed to persist match scores")
		return fmt.Errorf("%w: %w", ErrScoresNotDurable, err)
	}

	log.Info().
		Int64("chat_id", g.chatID).
		Int("players", len(snapshot)).
		Msg("Match scores persisted")
	return nil
}

// LoadOverall refreshes the leaderboard from the score store. It waits for a
// running flush so a delta is never counted both in the store and in memory.
func (g *Game) LoadOverall(ctx context.Context) error {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	scores, err := g.store.LoadOverallScores(ctx, g.chatID)
	if err != nil {
		return fmt.Errorf("failed to load overall scores: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.overall = maps.Clone(scores)
	if g.overall == nil {
		g.overall = make(map[int64]int)
	}
	return nil
}

// ClearOverall wipes the group leaderboard in the store and in memory,
// dropping deltas still waiting for a flush.
func (g *Game) ClearOverall(ctx context.Context) error {
	g.flushMu.Lock()
	defer g.flushMu.Unlock()

	if err := g.store.SaveOverallScores(ctx, g.chatID, map[int64]int{}); err != nil {
		return fmt.Errorf("failed to clear overall scores: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.overall = make(map[int64]int)
	clear(g.pending)
	return nil
}
