package service

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"tombola-bot/internal/pkg/lock"
	"tombola-bot/internal/pkg/metrics"
	"tombola-bot/internal/tombola"
)

// MatchConfig tunes the match service.
type MatchConfig struct {
	AutoInterval      time.Duration
	NotifyConcurrency int
	LockTimeout       time.Duration
}

// MatchService drives the tombola games of all chats.
//
// Start, draw and stop of a chat run under the chat's lock, so a draw and the
// delivery of its events never interleave with a reset of the same game.
type MatchService struct {
	registry  *tombola.Registry
	settings  *SettingsService
	announcer Announcer
	identity  IdentityResolver
	locks     *lock.ChatLock
	cfg       MatchConfig

	baseCtx context.Context
	cancel  context.CancelFunc
	loops   conc.WaitGroup
}

// NewMatchService creates a new MatchService instance.
func NewMatchService(
	registry *tombola.Registry,
	settings *SettingsService,
	announcer Announcer,
	identity IdentityResolver,
	cfg MatchConfig,
) *MatchService {
	if cfg.NotifyConcurrency < 1 {
		cfg.NotifyConcurrency = 1
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &MatchService{
		registry:  registry,
		settings:  settings,
		announcer: announcer,
		identity:  identity,
		locks:     lock.NewChatLock(),
		cfg:       cfg,
		baseCtx:   ctx,
		cancel:    cancel,
	}
}

// Shutdown stops every automatic extraction loop and waits for them to exit.
func (s *MatchService) Shutdown() {
	s.cancel()
	s.loops.Wait()
}

func (s *MatchService) withChat(ctx context.Context, chatID int64, fn func() error) error {
	return s.locks.WithLockContext(ctx, chatID, s.cfg.LockTimeout, fn)
}

// StartMatch opens a fresh joinable match in a chat. A match whose extraction
// has started must be stopped first.
func (s *MatchService) StartMatch(ctx context.Context, chatID int64, threadID int) error {
	return s.withChat(ctx, chatID, func() error {
		g := s.registry.GetOrCreate(chatID)
		if g.Active() && g.ExtractionStarted() {
			return ErrMatchInProgress
		}

		settings, err := s.settings.Get(ctx, chatID)
		if err != nil {
			return err
		}
		g.ApplySettings(settings)
		g.Reset()
		g.SetThreadID(threadID)

		if err := g.LoadOverall(ctx); err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Starting match without overall scores")
		}
		if len(g.PendingScores()) > 0 {
			if err := g.FlushPending(ctx); err != nil {
				metrics.RecordFlushFailure()
			}
		}

		log.Info().
			Int64("chat_id", chatID).
			Str("match_id", g.MatchID()).
			Int("thread_id", threadID).
			Msg("Match started")
		s.updateActiveGauge()
		return nil
	})
}

// Join gives the player a card in the chat's match.
func (s *MatchService) Join(ctx context.Context, chatID int64, p Player) (tombola.Card, error) {
	g, ok := s.registry.Get(chatID)
	if !ok || !g.Active() {
		return tombola.Card{}, ErrNoActiveMatch
	}

	g.SetName(p.ID, p.Name)
	if !g.Join(p.ID) {
		switch {
		case g.IsPlaying(p.ID):
			return tombola.Card{}, ErrAlreadyJoined
		case g.ExtractionStarted():
			return tombola.Card{}, ErrJoinClosed
		default:
			return tombola.Card{}, ErrNoActiveMatch
		}
	}

	card, _ := g.Card(p.ID)
	log.Info().
		Int64("chat_id", chatID).
		Int64("user_id", p.ID).
		Int("players", g.PlayerCount()).
		Msg("Player joined")
	return card, nil
}

// Card returns the player's card in the chat's match.
func (s *MatchService) Card(chatID, playerID int64) (tombola.Card, bool) {
	g, ok := s.registry.Get(chatID)
	if !ok {
		return tombola.Card{}, false
	}
	return g.Card(playerID)
}

// PlayerCount returns the number of players in the chat's active match.
func (s *MatchService) PlayerCount(chatID int64) (int, error) {
	g, ok := s.registry.Get(chatID)
	if !ok || !g.Active() {
		return 0, ErrNoActiveMatch
	}
	return g.PlayerCount(), nil
}

// Draw extracts one ball in manual mode, or starts the automatic loop when the
// group uses automatic extraction.
func (s *MatchService) Draw(ctx context.Context, chatID int64) error {
	return s.withChat(ctx, chatID, func() error {
		g, ok := s.registry.Get(chatID)
		if !ok || !g.Active() {
			return ErrNoActiveMatch
		}

		settings, err := s.settings.Get(ctx, chatID)
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Drawing with cached settings")
		} else {
			g.ApplySettings(settings)
		}
		g.StartExtraction()

		if g.Settings().Mode == tombola.ModeAuto {
			return s.startAuto(g)
		}
		s.drawOnce(ctx, g)
		return nil
	})
}

// drawOnce draws a ball, delivers its events and ends the match when the draw
// says so. It reports whether the match is over. The caller holds the chat lock.
func (s *MatchService) drawOnce(ctx context.Context, g *tombola.Game) bool {
	start := time.Now()
	res, ok := g.Draw()
	if !ok {
		if res.MatchOver {
			s.announce(ctx, g, FormatEnd(res.End))
			s.finish(ctx, g, res.End)
		}
		return true
	}

	s.dispatch(ctx, g, res)

	kind := "number"
	if res.Ball.IsSpecial() {
		kind = "special"
	}
	metrics.RecordDraw(kind, time.Since(start))

	log.Debug().
		Int64("chat_id", g.ChatID()).
		Str("ball", res.Ball.String()).
		Int("events", len(res.Events)).
		Int("remaining", g.Remaining()).
		Msg("Ball drawn")

	if res.MatchOver {
		s.announce(ctx, g, FormatEnd(res.End))
		s.finish(ctx, g, res.End)
		return true
	}
	return false
}

// finish flushes the match scores and posts the final leaderboard.
func (s *MatchService) finish(ctx context.Context, g *tombola.Game, reason tombola.EndReason) {
	g.StopAuto()
	err := g.EndMatch(ctx, false)
	if err != nil {
		metrics.RecordFlushFailure()
		s.announce(ctx, g, "⚠️ Non è stato possibile salvare i punteggi, riproverò più tardi.")
	}

	metrics.RecordMatchEnd(reason.String())
	s.updateActiveGauge()

	standings := s.standings(ctx, g)
	s.announce(ctx, g, FormatLeaderboard("🏆 Classifica finale:", standings))

	log.Info().
		Int64("chat_id", g.ChatID()).
		Str("match_id", g.MatchID()).
		Str("reason", reason.String()).
		Bool("durable", err == nil).
		Msg("Match ended")
}

// Stop interrupts the chat's match. Its points are not counted.
func (s *MatchService) Stop(ctx context.Context, chatID int64) error {
	return s.withChat(ctx, chatID, func() error {
		g, ok := s.registry.Get(chatID)
		if !ok || !g.Active() {
			return ErrNoActiveMatch
		}

		g.StopAuto()
		if err := g.EndMatch(ctx, true); err != nil {
			return fmt.Errorf("failed to stop match: %w", err)
		}
		metrics.RecordMatchEnd("interrupted")
		s.updateActiveGauge()

		s.announce(ctx, g, "⚠️ Il gioco è stato interrotto")
		s.announce(ctx, g, "⚠️ Punti non conteggiati perché la partita è stata interrotta.")
		return nil
	})
}

// Leaderboard reloads and returns the chat's standings, zero scores excluded.
func (s *MatchService) Leaderboard(ctx context.Context, chatID int64) ([]Standing, error) {
	g := s.registry.GetOrCreate(chatID)
	if err := g.LoadOverall(ctx); err != nil {
		return nil, err
	}
	return s.standings(ctx, g), nil
}

// standings merges durable and pending scores, best first.
func (s *MatchService) standings(ctx context.Context, g *tombola.Game) []Standing {
	totals := g.OverallScores()
	for id, delta := range g.PendingScores() {
		totals[id] += delta
	}

	ids := slices.SortedFunc(maps.Keys(totals), func(a, b int64) int {
		if c := cmp.Compare(totals[b], totals[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	out := make([]Standing, 0, len(ids))
	for _, id := range ids {
		if totals[id] == 0 {
			continue
		}
		out = append(out, Standing{
			Rank:     len(out) + 1,
			PlayerID: id,
			Name:     s.resolveName(ctx, g, id),
			Score:    totals[id],
		})
	}
	return out
}

func (s *MatchService) resolveName(ctx context.Context, g *tombola.Game, id int64) string {
	if g.HasName(id) || s.identity == nil {
		return g.DisplayName(id)
	}
	name, err := s.identity.DisplayName(ctx, id)
	if err != nil || name == "" {
		log.Debug().Err(err).Int64("user_id", id).Msg("Falling back to placeholder name")
		return g.DisplayName(id)
	}
	g.SetName(id, name)
	return name
}

// ResetLeaderboard wipes the chat's overall scores.
func (s *MatchService) ResetLeaderboard(ctx context.Context, chatID int64) error {
	return s.withChat(ctx, chatID, func() error {
		g := s.registry.GetOrCreate(chatID)
		if err := g.ClearOverall(ctx); err != nil {
			return err
		}
		log.Info().Int64("chat_id", chatID).Msg("Leaderboard reset")
		return nil
	})
}

// RetryPendingFlushes writes deltas left over by failed flushes in every chat.
// It returns the number of chats still holding pending deltas.
func (s *MatchService) RetryPendingFlushes(ctx context.Context) int {
	failed := 0
	for _, g := range s.registry.List() {
		if len(g.PendingScores()) == 0 {
			continue
		}
		if err := g.FlushPending(ctx); err != nil {
			metrics.RecordFlushFailure()
			failed++
			continue
		}
		s.announce(ctx, g, "✅ I punteggi dell'ultima partita sono stati salvati.")
	}
	return failed
}

func (s *MatchService) announce(ctx context.Context, g *tombola.Game, text string) {
	if err := s.announcer.Announce(ctx, g.ChatID(), g.ThreadID(), text); err != nil {
		metrics.RecordNotificationFailure("group")
		log.Warn().Err(err).Int64("chat_id", g.ChatID()).Msg("Failed to announce to group")
	}
}

func (s *MatchService) updateActiveGauge() {
	active := 0
	for _, g := range s.registry.List() {
		if g.Active() {
			active++
		}
	}
	metrics.SetActiveMatches(active)
}

// IsActive reports whether the chat has a match accepting draws.
func (s *MatchService) IsActive(chatID int64) bool {
	g, ok := s.registry.Get(chatID)
	return ok && g.Active()
}
