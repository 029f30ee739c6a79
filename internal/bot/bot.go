// Package bot provides the Telegram bot initialization and handler registration.
package bot

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/config"
	"tombola-bot/internal/handler"
	"tombola-bot/internal/panel"
	"tombola-bot/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot       *tele.Bot
	cfg       *config.Config
	announcer *Announcer

	// Handlers
	matchHandler    *handler.MatchHandler
	rankingHandler  *handler.RankingHandler
	settingsHandler *handler.SettingsHandler
}

// Dependencies holds the services the bot handlers need.
type Dependencies struct {
	Matches  *service.MatchService
	Settings *service.SettingsService
}

// New creates the Telegram client. Handlers are added by Register once the
// services built on top of Announcer exist.
func New(cfg *config.Config) (*Bot, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	pref := tele.Settings{
		Token:  cfg.Bot.Token,
		Poller: &tele.LongPoller{Timeout: cfg.Bot.PollTimeout},
	}

	teleBot, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		bot:       teleBot,
		cfg:       cfg,
		announcer: NewAnnouncer(teleBot, cfg.Tombola.AnnounceRatePerMinute),
	}, nil
}

// Announcer returns the rate-limited sender bound to this bot.
func (b *Bot) Announcer() *Announcer {
	return b.announcer
}

// Register builds the handlers and wires middleware and routes.
func (b *Bot) Register(deps *Dependencies) {
	gate := NewAdminGate(b.cfg, deps.Settings, b.bot)

	b.matchHandler = handler.NewMatchHandler(deps.Matches, b.announcer, gate)
	b.rankingHandler = handler.NewRankingHandler(deps.Matches)
	b.settingsHandler = handler.NewSettingsHandler(deps.Settings, b.announcer, gate)

	b.registerMiddleware()
	b.registerHandlers(gate)
}

// registerMiddleware registers all middleware.
func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(WhitelistMiddleware(b.cfg))
	b.bot.Use(LoggingMiddleware())
}

// registerHandlers registers all command and callback handlers.
func (b *Bot) registerHandlers(gate *AdminGate) {
	b.bot.Handle("/start", b.handleStart)

	group := b.bot.Group()
	group.Use(GroupOnlyMiddleware())
	group.Handle("/unisciti", b.matchHandler.HandleJoin)
	group.Handle("/giocatori", b.matchHandler.HandlePlayers)
	group.Handle("/classifica", b.rankingHandler.HandleLeaderboard)
	group.Handle("/regole", b.settingsHandler.HandleRules)

	// Restricted to admins when the group enables admin_only.
	admin := b.bot.Group()
	admin.Use(GroupOnlyMiddleware(), gate.Middleware())
	admin.Handle("/tombola", b.matchHandler.HandleStartMatch)
	admin.Handle("/estrai", b.matchHandler.HandleDraw)
	admin.Handle("/stop", b.matchHandler.HandleStop)
	admin.Handle("/azzera", b.rankingHandler.HandleReset)
	admin.Handle("/impostazioni", b.settingsHandler.HandleSettings)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleStart greets players in private chats. Groups start matches with /tombola.
func (b *Bot) handleStart(c tele.Context) error {
	chat := c.Chat()
	if chat != nil && chat.Type == tele.ChatPrivate {
		return b.matchHandler.HandleBotStart(c)
	}
	return nil
}

// handleCallback routes callbacks to appropriate handlers
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}

	// Telebot v3 may add a \f prefix to callback data
	data := strings.TrimPrefix(callback.Data, "\f")

	switch {
	case strings.HasPrefix(data, panel.GamePrefix):
		return b.matchHandler.HandleGameCallback(c)
	case strings.HasPrefix(data, panel.SettingsPrefix):
		return b.settingsHandler.HandleSettingsCallback(c)
	}

	log.Debug().Str("data", data).Msg("Unknown callback")
	return c.Respond()
}

// Start starts the bot polling.
func (b *Bot) Start() {
	log.Info().Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
