package bot

import (
	"context"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/config"
	"tombola-bot/internal/tombola"
)

// SettingsReader returns the settings of a group.
type SettingsReader interface {
	Get(ctx context.Context, groupID int64) (tombola.Settings, error)
}

// MemberChecker looks up the membership of a user in a chat.
type MemberChecker interface {
	ChatMemberOf(chat, user tele.Recipient) (*tele.ChatMember, error)
}

// WhitelistMiddleware ignores updates from groups that are not whitelisted.
// Private chats always pass so players can start the bot and receive cards.
func WhitelistMiddleware(cfg *config.Config) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil || c.Sender() == nil {
				return nil
			}

			if chat.Type != tele.ChatPrivate && !cfg.IsChatAllowed(chat.ID) {
				log.Debug().
					Int64("chat_id", chat.ID).
					Msg("Ignoring update from non-whitelisted chat")
				return nil
			}
			return next(c)
		}
	}
}

// GroupOnlyMiddleware rejects commands sent outside groups.
func GroupOnlyMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return nil
			}
			if chat.Type != tele.ChatGroup && chat.Type != tele.ChatSuperGroup {
				return c.Reply("⚠️ Questo comando funziona solo nei gruppi.")
			}
			return next(c)
		}
	}
}

// AdminGate decides who may manage matches and settings in a group.
type AdminGate struct {
	cfg      *config.Config
	settings SettingsReader
	members  MemberChecker
}

// NewAdminGate creates a new AdminGate.
func NewAdminGate(cfg *config.Config, settings SettingsReader, members MemberChecker) *AdminGate {
	return &AdminGate{cfg: cfg, settings: settings, members: members}
}

// Allowed reports whether the sender of c may run a restricted command.
// Bot owners always may. Otherwise the group's admin-only setting decides
// whether chat administrators are required.
func (g *AdminGate) Allowed(ctx context.Context, c tele.Context) bool {
	sender := c.Sender()
	chat := c.Chat()
	if sender == nil || chat == nil {
		return false
	}
	if g.cfg.IsAdmin(sender.ID) {
		return true
	}

	settings, err := g.settings.Get(ctx, chat.ID)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Checking admin without group settings")
		settings = tombola.DefaultSettings()
	}
	if !settings.AdminOnly {
		return true
	}

	// Anonymous admins post as the group itself.
	if msg := c.Message(); msg != nil && msg.SenderChat != nil && msg.SenderChat.ID == chat.ID {
		return true
	}

	member, err := g.members.ChatMemberOf(chat, sender)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", chat.ID).Int64("user_id", sender.ID).Msg("Failed to get chat member")
		return false
	}
	return member.Role == tele.Creator || member.Role == tele.Administrator
}

// Middleware guards a handler group with the gate.
func (g *AdminGate) Middleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if !g.Allowed(context.Background(), c) {
				log.Warn().
					Int64("user_id", c.Sender().ID).
					Str("command", c.Text()).
					Msg("Non-admin attempted restricted command")
				return c.Reply("🚫 Solo gli amministratori possono usare questo comando.")
			}
			return next(c)
		}
	}
}

// LoggingMiddleware creates a middleware that logs all incoming updates.
func LoggingMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			sender := c.Sender()
			chat := c.Chat()

			logEvent := log.Debug()
			if sender != nil {
				logEvent = logEvent.
					Int64("user_id", sender.ID).
					Str("username", sender.Username)
			}
			if chat != nil {
				logEvent = logEvent.
					Int64("chat_id", chat.ID).
					Str("chat_type", string(chat.Type))
			}
			if cb := c.Callback(); cb != nil {
				logEvent = logEvent.Str("callback", cb.Data)
			}
			logEvent.
				Str("text", c.Text()).
				Msg("Received update")

			return next(c)
		}
	}
}

// RecoveryMiddleware creates a middleware that recovers from panics.
func RecoveryMiddleware() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Msg("Recovered from panic in handler")
					err = c.Reply("❌ Si è verificato un errore interno, riprova più tardi.")
				}
			}()
			return next(c)
		}
	}
}
