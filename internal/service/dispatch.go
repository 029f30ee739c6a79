package service

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"tombola-bot/internal/pkg/metrics"
	"tombola-bot/internal/tombola"
)

// dispatch delivers the events of a draw. Group messages keep the order of
// the draw; private notes to players are sent concurrently and a failure to
// reach one player never blocks the others.
func (s *MatchService) dispatch(ctx context.Context, g *tombola.Game, res tombola.DrawResult) {
	if !res.Ball.IsSpecial() {
		s.announce(ctx, g, FormatBall(res.Ball))
	}

	private := pool.New().WithMaxGoroutines(s.cfg.NotifyConcurrency)
	for _, ev := range res.Events {
		if ev.Kind == tombola.EventNumberMarked {
			private.Go(func() {
				s.notify(ctx, ev.PlayerID, FormatNumberMarked(ev))
			})
			continue
		}

		if ev.Kind == tombola.EventPrize {
			metrics.RecordPrize(string(ev.Prize))
		}
		if text, ok := FormatEvent(ev); ok {
			s.announce(ctx, g, text)
		}
	}
	private.Wait()
}

func (s *MatchService) notify(ctx context.Context, userID int64, text string) {
	if err := s.announcer.Notify(ctx, userID, text); err != nil {
		metrics.RecordNotificationFailure("private")
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to notify player")
	}
}
