// Package panel builds the inline keyboards of the tombola bot: the match
// buttons and the group settings panel.
package panel

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/tombola"
)

// Callback data prefixes
const (
	GamePrefix     = "tgame_" // tgame_join, tgame_draw, tgame_card
	SettingsPrefix = "tset_"  // tset_menu_points, tset_pt_ambo_+10
)

// Game button actions
const (
	ActionJoin = "join"
	ActionDraw = "draw"
	ActionCard = "card"
)

// Menu identifies a page of the settings panel.
type Menu string

const (
	MenuMain     Menu = "main"
	MenuMode     Menu = "mode"
	MenuAdmin    Menu = "admin"
	MenuPoints   Menu = "points"
	MenuSpecials Menu = "specials"
)

// EncodeCallback encodes an action and parameter into callback data.
func EncodeCallback(prefix, action, param string) string {
	if param != "" {
		return fmt.Sprintf("%s%s_%s", prefix, action, param)
	}
	return prefix + action
}

// DecodeCallback decodes callback data into action and parameter.
func DecodeCallback(prefix, data string) (action string, param string) {
	data = strings.TrimPrefix(data, "\f")
	if !strings.HasPrefix(data, prefix) {
		return "", ""
	}

	content := strings.TrimPrefix(data, prefix)
	parts := strings.SplitN(content, "_", 2)
	action = parts[0]
	if len(parts) > 1 {
		param = parts[1]
	}
	return action, param
}

func gameButton(text, action string) tele.InlineButton {
	return tele.InlineButton{Text: text, Data: EncodeCallback(GamePrefix, action, "")}
}

func settingsButton(text, action, param string) tele.InlineButton {
	return tele.InlineButton{Text: text, Data: EncodeCallback(SettingsPrefix, action, param)}
}

// BuildLobbyPanel is attached to the match announcement.
func BuildLobbyPanel() *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.InlineKeyboard = [][]tele.InlineButton{
		{gameButton("➕ Unisciti", ActionJoin), gameButton("🎫 Vedi cartella", ActionCard)},
		{gameButton("🎱 Estrai", ActionDraw)},
	}
	return markup
}

func check(on bool) string {
	if on {
		return " ✅"
	}
	return ""
}

func backRow() []tele.InlineButton {
	return []tele.InlineButton{settingsButton("🔙 Indietro", "menu", string(MenuMain))}
}

// Render returns the text and keyboard of a settings page.
func Render(menu Menu, s tombola.Settings) (string, *tele.ReplyMarkup) {
	markup := &tele.ReplyMarkup{}

	switch menu {
	case MenuMode:
		markup.InlineKeyboard = [][]tele.InlineButton{
			{
				settingsButton("Manuale"+check(s.Mode == tombola.ModeManual), "mode", string(tombola.ModeManual)),
				settingsButton("Automatica"+check(s.Mode == tombola.ModeAuto), "mode", string(tombola.ModeAuto)),
			},
			backRow(),
		}
		return "🔁 Scegli se estrarre i numeri a mano oppure lasciare che il bot estragga da solo:", markup

	case MenuAdmin:
		markup.InlineKeyboard = [][]tele.InlineButton{
			{
				settingsButton("Sì"+check(s.AdminOnly), "admin", "on"),
				settingsButton("No"+check(!s.AdminOnly), "admin", "off"),
			},
			backRow(),
		}
		return "🛂 Solo gli admin possono avviare, estrarre e interrompere la partita?", markup

	case MenuPoints:
		var rows [][]tele.InlineButton
		for _, p := range []tombola.Prize{tombola.PrizeAmbo, tombola.PrizeTerno, tombola.PrizeQuaterna, tombola.PrizeCinquina, tombola.PrizeTombola} {
			name := string(p)
			rows = append(rows,
				[]tele.InlineButton{settingsButton(fmt.Sprintf("%s: %d💰", strings.ToUpper(name[:1])+name[1:], s.Points.For(p)), "noop", "")},
				[]tele.InlineButton{
					settingsButton("➖1", "pt", name+"_-1"),
					settingsButton("➕1", "pt", name+"_+1"),
					settingsButton("➖10", "pt", name+"_-10"),
					settingsButton("➕10", "pt", name+"_+10"),
				},
			)
		}
		rows = append(rows,
			[]tele.InlineButton{settingsButton("🔄 Reset Punti", "ptreset", "")},
			backRow(),
		)
		markup.InlineKeyboard = rows
		return "💰 Dai a ogni premio il punteggio che ritieni giusto:", markup

	case MenuSpecials:
		var rows [][]tele.InlineButton
		for _, sp := range tombola.AllSpecials {
			rows = append(rows, []tele.InlineButton{
				settingsButton(fmt.Sprintf("%s %d%s", effectIcon(sp), sp.Label(), check(s.Specials.Has(sp))), "sp", sp.Key()),
			})
		}
		rows = append(rows,
			[]tele.InlineButton{settingsButton("🥈 Tombolino"+check(s.Tombolino), "tombolino", "")},
			backRow(),
		)
		markup.InlineKeyboard = rows
		return "☯️ Attiva o disattiva i singoli bonus/malus e il tombolino:", markup

	default:
		markup.InlineKeyboard = [][]tele.InlineButton{
			{
				settingsButton("🔁 Estrazione", "menu", string(MenuMode)),
				settingsButton("🛂 Admin", "menu", string(MenuAdmin)),
			},
			{
				settingsButton("💰 Premi", "menu", string(MenuPoints)),
				settingsButton("☯️ Bonus/Malus", "menu", string(MenuSpecials)),
			},
			{settingsButton("❌ Chiudi", "close", "")},
		}
		return "📱 Benvenuto nel pannello di controllo!\n\n📲 Da dove vogliamo cominciare la configurazione?", markup
	}
}

func effectIcon(s tombola.Special) string {
	if s.Effect() == tombola.EffectBonus {
		return "🟢 Bonus"
	}
	return "🔴 Malus"
}
