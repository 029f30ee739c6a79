package handler

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/panel"
	"tombola-bot/internal/service"
	"tombola-bot/internal/tombola"
)

// SettingsHandler handles the settings panel and the rules.
type SettingsHandler struct {
	settings *service.SettingsService
	notifier Notifier
	gate     Gate
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settings *service.SettingsService, notifier Notifier, gate Gate) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		notifier: notifier,
		gate:     gate,
	}
}

// HandleSettings handles /impostazioni and opens the settings panel.
func (h *SettingsHandler) HandleSettings(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()

	settings, err := h.settings.Get(ctx, chat.ID)
	if err != nil {
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to load settings")
		return c.Reply("❌ Impossibile caricare le impostazioni, riprova più tardi.")
	}

	text, markup := panel.Render(panel.MenuMain, settings)
	return sendInThread(c, text, markup)
}

// HandleRules handles /regole and sends the rules in private.
func (h *SettingsHandler) HandleRules(c tele.Context) error {
	ctx := context.Background()
	chat := c.Chat()
	sender := c.Sender()

	settings, err := h.settings.Get(ctx, chat.ID)
	if err != nil {
		settings = tombola.DefaultSettings()
	}

	if err := h.notifier.Notify(ctx, sender.ID, service.FormatRules(settings)); err != nil {
		log.Warn().Err(err).Int64("user_id", sender.ID).Msg("Failed to send rules")
		return c.Reply("⚠️ Non riesco a scriverti in privato, avvia prima una chat con me.")
	}
	return c.Reply("📩 " + playerName(sender) + " ti ho inviato le regole in chat privata!")
}

// HandleSettingsCallback handles the settings panel buttons.
func (h *SettingsHandler) HandleSettingsCallback(c tele.Context) error {
	ctx := context.Background()
	callback := c.Callback()
	chat := c.Chat()
	if callback == nil || chat == nil || c.Sender() == nil {
		return nil
	}

	if !h.gate.Allowed(ctx, c) {
		return c.Respond(&tele.CallbackResponse{
			Text:      "🚫 Solo gli amministratori possono modificare le impostazioni.",
			ShowAlert: true,
		})
	}

	action, param := panel.DecodeCallback(panel.SettingsPrefix, callback.Data)

	step, ok := panel.Navigate(action, param)
	var settings tombola.Settings
	var err error
	if ok {
		if step.Close {
			if err := c.Delete(); err != nil {
				log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to close settings panel")
			}
			return c.Respond()
		}
		settings, err = h.settings.Get(ctx, chat.ID)
	} else {
		settings, err = h.settings.Update(ctx, chat.ID, func(current tombola.Settings) (tombola.Settings, error) {
			next, s, err := panel.Apply(current, action, param)
			step = s
			return next, err
		})
	}

	switch {
	case errors.Is(err, panel.ErrUnknownAction), errors.Is(err, tombola.ErrUnknownPrize):
		return c.Respond(&tele.CallbackResponse{Text: "❌ Operazione non valida"})
	case err != nil:
		log.Error().Err(err).Int64("chat_id", chat.ID).Msg("Failed to update settings")
		return c.Respond(&tele.CallbackResponse{Text: "❌ Impostazioni non salvate, riprova.", ShowAlert: true})
	}

	text, markup := panel.Render(step.Menu, settings)
	if err := c.Edit(text, markup); err != nil && !errors.Is(err, tele.ErrMessageNotModified) && !errors.Is(err, tele.ErrSameMessageContent) {
		log.Warn().Err(err).Int64("chat_id", chat.ID).Msg("Failed to edit settings panel")
	}

	if step.Changed {
		return c.Respond(&tele.CallbackResponse{Text: "✅ Impostazioni salvate"})
	}
	return c.Respond()
}
