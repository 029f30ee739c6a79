// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/panel"
	"tombola-bot/internal/pkg/lock"
	"tombola-bot/internal/service"
)

// Gate decides whether the sender of an update may run a restricted action.
type Gate interface {
	Allowed(ctx context.Context, c tele.Context) bool
}

// Notifier sends private messages to players.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// alertLimit is the longest text Telegram shows in a callback alert.
const alertLimit = 200

// MatchHandler handles the match commands and the lobby buttons.
type MatchHandler struct {
	matches  *service.MatchService
	notifier Notifier
	gate     Gate
}

// NewMatchHandler creates a new MatchHandler.
func NewMatchHandler(matches *service.MatchService, notifier Notifier, gate Gate) *MatchHandler {
	return &MatchHandler{
		matches:  matches,
		notifier: notifier,
		gate:     gate,
	}
}

// threadOf returns the forum topic of the update, or 0 outside topics.
func threadOf(c tele.Context) int {
	if msg := c.Message(); msg != nil && msg.TopicMessage {
		return msg.ThreadID
	}
	return 0
}

// playerName is the name shown for a user in announcements.
func playerName(u *tele.User) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return fmt.Sprintf("Player_%d", u.ID)
}

func sendInThread(c tele.Context, text string, markup *tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ThreadID: threadOf(c)}
	if markup != nil {
		opts.ReplyMarkup = markup
	}
	return c.Send(text, opts)
}

// HandleBotStart greets users who start the bot in private.
func (h *MatchHandler) HandleBotStart(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	msg := fmt.Sprintf("👋 Benvenuto %s!\n\n", playerName(sender))
	msg += "Aggiungimi a un gruppo e gioca a Tombola con i tuoi amici.\n"
	msg += "Con /impostazioni gestisci le impostazioni del gruppo, con /tombola dai inizio alla partita.\n\n"
	msg += "Ora che mi hai avviato posso mandarti la cartella in privato. Buona fortuna!"
	return c.Send(msg)
}

// HandleStartMatch handles /tombola and opens a new match.
func (h *MatchHandler) HandleStartMatch(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()

	err := h.matches.StartMatch(ctx, chat.ID, threadOf(c))
	switch {
	case errors.Is(err, service.ErrMatchInProgress):
		return c.Reply("⚠️ C'è già una partita in corso, usa /stop per interromperla.")
	case errors.Is(err, lock.ErrLockTimeout):
		return c.Reply("⏳ Il gruppo è occupato, riprova tra poco.")
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to start match")
		return c.Reply("❌ Non è stato possibile avviare la partita, riprova.")
	}

	msg := "🆕 Partita di tombola cominciata!\n\n"
	msg += "🔽 Premi 'Unisciti' per entrare, ma prima accertati di aver avviato il bot in privato.\n\n"
	msg += "🔜 Quando siete pronti avviate l'estrazione con /estrai, per interromperla usate /stop. "
	msg += "Per qualunque dubbio usate /regole."
	return sendInThread(c, msg, panel.BuildLobbyPanel())
}

// join adds the sender to the match and returns the text to show them.
func (h *MatchHandler) join(ctx context.Context, c tele.Context) string {
	chat := c.Chat()
	sender := c.Sender()

	card, err := h.matches.Join(ctx, chat.ID, service.Player{ID: sender.ID, Name: playerName(sender)})
	switch {
	case errors.Is(err, service.ErrNoActiveMatch):
		return "🚫 Non ci sono partite in corso in questo gruppo."
	case errors.Is(err, service.ErrJoinClosed):
		return "🚫 La partita è già iniziata, non puoi unirti ora. Aspetta la prossima partita!"
	case errors.Is(err, service.ErrAlreadyJoined):
		return "⚠️ Sei già in partita!"
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chat.ID).Int64("user_id", sender.ID).Msg("Failed to join match")
		return "❌ Non puoi unirti alla partita ora."
	}

	if err := sendInThread(c, fmt.Sprintf("👤 %s si è unito alla partita!", playerName(sender)), nil); err != nil {
		log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to announce join")
	}

	if err := h.notifier.Notify(ctx, sender.ID, service.FormatCard(chat.Title, card)); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to send card")
		return "✅ Sei in partita, ma non riesco a inviarti la cartella in privato. Avvia una chat con me e usa 'Vedi cartella'."
	}
	return "✅ Cartella inviata in privato!"
}

// HandleJoin handles /unisciti.
func (h *MatchHandler) HandleJoin(c tele.Context) error {
	return c.Reply(h.join(context.Background(), c))
}

// draw runs a draw and returns the text for the sender, empty on success.
func (h *MatchHandler) draw(ctx context.Context, c tele.Context) string {
	chat := c.Chat()

	err := h.matches.Draw(ctx, chat.ID)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, service.ErrNoActiveMatch):
		return "🚫 Assicurati di aver iniziato una partita prima."
	case errors.Is(err, service.ErrAutoRunning):
		return "🔁 L'estrazione automatica è già in corso."
	case errors.Is(err, lock.ErrLockTimeout):
		return "⏳ Un'estrazione è già in corso, riprova tra poco."
	default:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to draw")
		return "❌ Estrazione non riuscita, riprova."
	}
}

// HandleDraw handles /estrai.
func (h *MatchHandler) HandleDraw(c tele.Context) error {
	if msg := h.draw(context.Background(), c); msg != "" {
		return c.Reply(msg)
	}
	return nil
}

// HandleStop handles /stop.
func (h *MatchHandler) HandleStop(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()

	err := h.matches.Stop(ctx, chat.ID)
	switch {
	case errors.Is(err, service.ErrNoActiveMatch):
		return c.Reply("🚫 Non ci sono partite in corso al momento.")
	case errors.Is(err, lock.ErrLockTimeout):
		return c.Reply("⏳ Il gruppo è occupato, riprova tra poco.")
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to stop match")
		return c.Reply("❌ Non è stato possibile interrompere la partita.")
	}
	return nil
}

// HandlePlayers handles /giocatori.
func (h *MatchHandler) HandlePlayers(c tele.Context) error {
	count, err := h.matches.PlayerCount(c.Chat().ID)
	switch {
	case errors.Is(err, service.ErrNoActiveMatch):
		return c.Reply("🚫 Non ci sono partite in corso al momento.")
	case count == 0:
		return c.Reply("🤷‍♂️ Nessuno si è unito alla partita ancora!")
	default:
		return c.Reply(fmt.Sprintf("👥 Utenti in partita: %d", count))
	}
}

// cardAlert renders the sender's card for a callback alert.
func (h *MatchHandler) cardAlert(c tele.Context) string {
	card, ok := h.matches.Card(c.Chat().ID, c.Sender().ID)
	if !ok {
		return "⛔️ Non sei in partita!"
	}
	text := "La tua cartella:\n\n" + card.String()
	if runes := []rune(text); len(runes) > alertLimit {
		text = string(runes[:alertLimit-3]) + "..."
	}
	return text
}

// HandleGameCallback handles the lobby buttons.
func (h *MatchHandler) HandleGameCallback(c tele.Context) error {
	ctx := context.Background()
	callback := c.Callback()
	if callback == nil || c.Sender() == nil || c.Chat() == nil {
		return nil
	}

	action, _ := panel.DecodeCallback(panel.GamePrefix, callback.Data)
	switch action {
	case panel.ActionJoin:
		return c.Respond(&tele.CallbackResponse{Text: h.join(ctx, c), ShowAlert: true})

	case panel.ActionCard:
		return c.Respond(&tele.CallbackResponse{Text: h.cardAlert(c), ShowAlert: true})

	case panel.ActionDraw:
		if !h.gate.Allowed(ctx, c) {
			return c.Respond(&tele.CallbackResponse{
				Text:      "🚫 Solo gli amministratori possono estrarre.",
				ShowAlert: true,
			})
		}
		if msg := h.draw(ctx, c); msg != "" {
			return c.Respond(&tele.CallbackResponse{Text: msg, ShowAlert: true})
		}
		return c.Respond(&tele.CallbackResponse{Text: "🎱 Numero estratto!"})

	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Operazione non valida"})
	}
}
