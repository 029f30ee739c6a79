package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/pkg/lock"
	"tombola-bot/internal/service"
)

// RankingHandler handles the group leaderboard commands.
type RankingHandler struct {
	matches *service.MatchService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(matches *service.MatchService) *RankingHandler {
	return &RankingHandler{
		matches: matches,
	}
}

// HandleLeaderboard handles /classifica.
func (h *RankingHandler) HandleLeaderboard(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()

	standings, err := h.matches.Leaderboard(ctx, chat.ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to load leaderboard")
		return c.Reply("❌ Impossibile caricare la classifica, riprova più tardi.")
	}
	return sendInThread(c, service.FormatLeaderboard("🏆 Classifica:", standings), nil)
}

// HandleReset handles /azzera and wipes the group leaderboard.
func (h *RankingHandler) HandleReset(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()

	err := h.matches.ResetLeaderboard(ctx, chat.ID)
	switch {
	case errors.Is(err, lock.ErrLockTimeout):
		return c.Reply("⏳ Il gruppo è occupato, riprova tra poco.")
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to reset leaderboard")
		return c.Reply("❌ Non è stato possibile azzerare la classifica.")
	}
	return c.Reply("🚾 Complimenti, hai scartato tutti i punteggi.")
}
