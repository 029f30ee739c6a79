package service

import (
	"fmt"
	"strings"

	"tombola-bot/internal/tombola"
)

// Standing is one line of a group leaderboard.
type Standing struct {
	Rank     int
	PlayerID int64
	Name     string
	Score    int
}

var prizeTitles = map[tombola.Prize]string{
	tombola.PrizeAmbo:      "AMBO",
	tombola.PrizeTerno:     "TERNO",
	tombola.PrizeQuaterna:  "QUATERNA",
	tombola.PrizeCinquina:  "CINQUINA",
	tombola.PrizeTombola:   "TOMBOLA",
	tombola.PrizeTombolino: "TOMBOLINO",
}

// PrizeTitle returns the upper-case name of a prize.
func PrizeTitle(p tombola.Prize) string {
	if title, ok := prizeTitles[p]; ok {
		return title
	}
	return strings.ToUpper(string(p))
}

var specialTitles = map[tombola.Special]string{
	tombola.Bonus104: "♿️ Bonus 104",
	tombola.Bonus110: "🧑‍🎓 Bonus 110",
	tombola.Malus404: "🆘 Malus 404",
	tombola.Malus666: "🛐 Malus 666",
}

// SpecialTitle returns the display name of a special.
func SpecialTitle(s tombola.Special) string {
	return specialTitles[s]
}

// FormatBall announces a drawn number.
func FormatBall(b tombola.Ball) string {
	return fmt.Sprintf("📤 È stato estratto il numero %02d", b.Number)
}

// FormatEvent renders a group announcement for a draw event. The second result
// is false for events that are delivered privately.
func FormatEvent(ev tombola.Event) (string, bool) {
	switch ev.Kind {
	case tombola.EventPrize:
		return fmt.Sprintf("🎉 %s ha fatto %s! (+%d punti)", ev.Name, PrizeTitle(ev.Prize), ev.Points), true
	case tombola.EventSpecial:
		if ev.Points >= 0 {
			return fmt.Sprintf("%s estratto!\n\n🆒 %s ha guadagnato %d punti", SpecialTitle(ev.Special), ev.Name, ev.Points), true
		}
		return fmt.Sprintf("%s estratto!\n\n🆒 %s ha perso %d punti", SpecialTitle(ev.Special), ev.Name, -ev.Points), true
	case tombola.EventSpecialSkipped:
		return fmt.Sprintf("%s estratto, ma nessuno è in partita.", SpecialTitle(ev.Special)), true
	default:
		return "", false
	}
}

// FormatNumberMarked is the private note sent when a drawn number was on the card.
func FormatNumberMarked(ev tombola.Event) string {
	return fmt.Sprintf("🔒 Avevi il numero %02d!\n\n%s", ev.Number, ev.Card.String())
}

// FormatCard introduces a player's card.
func FormatCard(groupTitle string, card tombola.Card) string {
	return fmt.Sprintf("🏁 Sei ufficialmente nella partita del gruppo %s, ecco la tua cartella:\n\n%s", groupTitle, card.String())
}

// FormatEnd explains why a match stopped.
func FormatEnd(reason tombola.EndReason) string {
	switch reason {
	case tombola.EndExhausted:
		return "⚠️ Tutti i numeri sono stati estratti. Il gioco è finito!"
	case tombola.EndAllDisabled:
		return "⚠️ Nel sacchetto restano solo bonus/malus disattivati. Il gioco è finito!"
	default:
		return "🏁 La partita è terminata!"
	}
}

// FormatLeaderboard renders standings under title.
func FormatLeaderboard(title string, standings []Standing) string {
	if len(standings) == 0 {
		return "📊 Nessuna classifica disponibile."
	}
	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteString("\n\n")
	for i, s := range standings {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s: %d punti", s.Rank, s.Name, s.Score)
	}
	return sb.String()
}

// FormatRules lists the prize values of a group.
func FormatRules(s tombola.Settings) string {
	var sb strings.Builder
	sb.WriteString("ℹ️ REGOLAMENTO\n\n")
	sb.WriteString("🏆 Punteggi in uso nel gruppo:\n\n")
	for i, p := range []tombola.Prize{tombola.PrizeAmbo, tombola.PrizeTerno, tombola.PrizeQuaterna, tombola.PrizeCinquina, tombola.PrizeTombola} {
		fmt.Fprintf(&sb, "%d. %s vale %d punti\n", i+1, PrizeTitle(p), s.Points.For(p))
	}
	if s.Tombolino {
		fmt.Fprintf(&sb, "6. TOMBOLINO vale %d punti\n", s.Points.For(tombola.PrizeTombolino))
	}

	sb.WriteString("\n☯️ Bonus/Malus attivi: ")
	if keys := s.Specials.Keys(); len(keys) > 0 {
		names := make([]string, 0, len(keys))
		for _, k := range keys {
			sp, _ := tombola.ParseSpecial(k)
			names = append(names, SpecialTitle(sp))
		}
		sb.WriteString(strings.Join(names, ", "))
		fmt.Fprintf(&sb, "\nOgni bonus/malus estratto assegna o toglie da %d a %d punti a un giocatore a caso.",
			tombola.SpecialMinPoints, tombola.SpecialMaxPoints)
	} else {
		sb.WriteString("nessuno")
	}

	sb.WriteString("\n\n🔁 Estrazione: ")
	if s.Mode == tombola.ModeAuto {
		sb.WriteString("automatica")
	} else {
		sb.WriteString("manuale")
	}
	return sb.String()
}
