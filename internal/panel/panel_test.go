package panel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"

	"tombola-bot/internal/tombola"
)

func TestEncodeDecodeCallback(t *testing.T) {
	data := EncodeCallback(SettingsPrefix, "pt", "ambo_-10")
	assert.Equal(t, "tset_pt_ambo_-10", data)

	action, param := DecodeCallback(SettingsPrefix, "\f"+data)
	assert.Equal(t, "pt", action)
	assert.Equal(t, "ambo_-10", param)

	action, param = DecodeCallback(GamePrefix, EncodeCallback(GamePrefix, ActionJoin, ""))
	assert.Equal(t, ActionJoin, action)
	assert.Empty(t, param)

	action, _ = DecodeCallback(GamePrefix, data)
	assert.Empty(t, action)
}

// press runs the button whose text starts with text through Apply.
func press(t *testing.T, s tombola.Settings, markup *tele.ReplyMarkup, text string) (tombola.Settings, Step) {
	t.Helper()
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			if strings.HasPrefix(btn.Text, text) {
				action, param := DecodeCallback(SettingsPrefix, btn.Data)
				next, step, err := Apply(s, action, param)
				require.NoError(t, err)
				return next, step
			}
		}
	}
	t.Fatalf("button %q not found", text)
	return s, Step{}
}

func TestApply_Mode(t *testing.T) {
	s := tombola.DefaultSettings()
	_, markup := Render(MenuMode, s)

	s, step := press(t, s, markup, "Automatica")
	assert.Equal(t, tombola.ModeAuto, s.Mode)
	assert.Equal(t, Step{Menu: MenuMode, Changed: true}, step)

	_, markup = Render(MenuMode, s)
	assert.Equal(t, "Automatica ✅", markup.InlineKeyboard[0][1].Text)

	_, _, err := Apply(s, "mode", "turbo")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestApply_Admin(t *testing.T) {
	s := tombola.DefaultSettings()
	_, markup := Render(MenuAdmin, s)

	s, _ = press(t, s, markup, "No")
	assert.False(t, s.AdminOnly)
	s, _ = press(t, s, markup, "Sì")
	assert.True(t, s.AdminOnly)
}

func TestApply_Points(t *testing.T) {
	s := tombola.DefaultSettings()
	_, markup := Render(MenuPoints, s)

	// The first "➕10" belongs to ambo.
	s, step := press(t, s, markup, "➕10")
	assert.Equal(t, 15, s.Points.Ambo)
	assert.Equal(t, MenuPoints, step.Menu)

	for range 3 {
		s, _, _ = Apply(s, "pt", "terno_-10")
	}
	assert.Equal(t, 0, s.Points.Terno, "points never go negative")

	s, _ = press(t, s, markup, "🔄 Reset Punti")
	assert.Equal(t, tombola.DefaultPoints(), s.Points)

	_, _, err := Apply(s, "pt", "jackpot_+1")
	assert.ErrorIs(t, err, tombola.ErrUnknownPrize)
	_, _, err = Apply(s, "pt", "ambo_lots")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestApply_Specials(t *testing.T) {
	s := tombola.DefaultSettings()
	_, markup := Render(MenuSpecials, s)

	s, _ = press(t, s, markup, "🔴 Malus 666")
	assert.False(t, s.Specials.Has(tombola.Malus666))
	assert.True(t, s.Specials.Has(tombola.Malus404))

	_, markup = Render(MenuSpecials, s)
	s, _ = press(t, s, markup, "🔴 Malus 666")
	assert.True(t, s.Specials.Has(tombola.Malus666))

	s, _ = press(t, s, markup, "🥈 Tombolino")
	assert.False(t, s.Tombolino)
}

func TestNavigate(t *testing.T) {
	step, ok := Navigate("menu", string(MenuPoints))
	require.True(t, ok)
	assert.Equal(t, MenuPoints, step.Menu)

	step, ok = Navigate("menu", "bogus")
	require.True(t, ok)
	assert.Equal(t, MenuMain, step.Menu)

	step, ok = Navigate("close", "")
	require.True(t, ok)
	assert.True(t, step.Close)

	_, ok = Navigate("pt", "ambo_+1")
	assert.False(t, ok)
}

func TestRender_MainMenu(t *testing.T) {
	text, markup := Render(MenuMain, tombola.DefaultSettings())
	assert.Contains(t, text, "pannello di controllo")
	require.Len(t, markup.InlineKeyboard, 3)
	assert.Equal(t, "tset_close", markup.InlineKeyboard[2][0].Data)
}

func TestBuildLobbyPanel(t *testing.T) {
	markup := BuildLobbyPanel()
	require.Len(t, markup.InlineKeyboard, 2)

	var actions []string
	for _, row := range markup.InlineKeyboard {
		for _, btn := range row {
			action, _ := DecodeCallback(GamePrefix, btn.Data)
			actions = append(actions, action)
		}
	}
	assert.Equal(t, []string{ActionJoin, ActionCard, ActionDraw}, actions)
}
