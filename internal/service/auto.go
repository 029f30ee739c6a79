package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"tombola-bot/internal/tombola"
)

// startAuto attaches an automatic extraction loop to the game. The caller
// holds the chat lock.
func (s *MatchService) startAuto(g *tombola.Game) error {
	loopCtx, cancel := context.WithCancel(s.baseCtx)
	if !g.StartAuto(cancel) {
		cancel()
		return ErrAutoRunning
	}

	log.Info().
		Int64("chat_id", g.ChatID()).
		Str("match_id", g.MatchID()).
		Dur("interval", s.cfg.AutoInterval).
		Msg("Automatic extraction started")

	s.loops.Go(func() {
		s.runAuto(loopCtx, g)
	})
	return nil
}

// runAuto draws one ball right away and then one per interval until the match
// ends or the loop is cancelled by a stop, a reset or shutdown.
func (s *MatchService) runAuto(ctx context.Context, g *tombola.Game) {
	ticker := time.NewTicker(s.cfg.AutoInterval)
	defer ticker.Stop()

	for {
		if over := s.autoStep(ctx, g); over {
			return
		}
		select {
		case <-ctx.Done():
			log.Debug().Int64("chat_id", g.ChatID()).Msg("Automatic extraction cancelled")
			return
		case <-ticker.C:
		}
	}
}

// autoStep draws under the chat lock. It reports whether the loop must exit.
func (s *MatchService) autoStep(ctx context.Context, g *tombola.Game) bool {
	over := false
	err := s.withChat(ctx, g.ChatID(), func() error {
		// The loop may have been cancelled while waiting for the lock.
		if ctx.Err() != nil || !g.Active() {
			over = true
			return nil
		}
		over = s.drawOnce(s.baseCtx, g)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		log.Warn().Err(err).Int64("chat_id", g.ChatID()).Msg("Skipping automatic draw")
	}
	return over
}
