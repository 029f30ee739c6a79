package tombola

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPrize is returned for prize names that have no configurable value.
var ErrUnknownPrize = errors.New("unknown prize")

// Prize identifies a prize tier.
type Prize string

const (
	PrizeAmbo      Prize = "ambo"
	PrizeTerno     Prize = "terno"
	PrizeQuaterna  Prize = "quaterna"
	PrizeCinquina  Prize = "cinquina"
	PrizeTombola   Prize = "tombola"
	PrizeTombolino Prize = "tombolino"
)

// RowPrizes are the row milestones in ascending order.
var RowPrizes = []Prize{PrizeAmbo, PrizeTerno, PrizeQuaterna, PrizeCinquina}

// ParsePrize resolves a configurable prize name, case-insensitively.
func ParsePrize(name string) (Prize, error) {
	switch p := Prize(strings.ToLower(strings.TrimSpace(name))); p {
	case PrizeAmbo, PrizeTerno, PrizeQuaterna, PrizeCinquina, PrizeTombola:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPrize, name)
	}
}

// Points holds the configured value of each prize tier.
type Points struct {
	Ambo     int `json:"ambo"`
	Terno    int `json:"terno"`
	Quaterna int `json:"quaterna"`
	Cinquina int `json:"cinquina"`
	Tombola  int `json:"tombola"`
}

// DefaultPoints returns the standard prize table.
func DefaultPoints() Points {
	return Points{Ambo: 5, Terno: 10, Quaterna: 15, Cinquina: 20, Tombola: 50}
}

// For returns the value of a prize. Tombolino is worth half a tombola.
func (p Points) For(prize Prize) int {
	switch prize {
	case PrizeAmbo:
		return p.Ambo
	case PrizeTerno:
		return p.Terno
	case PrizeQuaterna:
		return p.Quaterna
	case PrizeCinquina:
		return p.Cinquina
	case PrizeTombola:
		return p.Tombola
	case PrizeTombolino:
		return p.Tombola / 2
	default:
		return 0
	}
}

// Adjust returns a copy with delta added to a prize, clamped at zero.
func (p Points) Adjust(prize Prize, delta int) (Points, error) {
	field := p.field(prize)
	if field == nil {
		return p, fmt.Errorf("%w: %q", ErrUnknownPrize, prize)
	}
	*field = max(0, *field+delta)
	return p, nil
}

// Set returns a copy with a prize set to value, clamped at zero.
func (p Points) Set(prize Prize, value int) (Points, error) {
	field := p.field(prize)
	if field == nil {
		return p, fmt.Errorf("%w: %q", ErrUnknownPrize, prize)
	}
	*field = max(0, value)
	return p, nil
}

func (p *Points) field(prize Prize) *int {
	switch prize {
	case PrizeAmbo:
		return &p.Ambo
	case PrizeTerno:
		return &p.Terno
	case PrizeQuaterna:
		return &p.Quaterna
	case PrizeCinquina:
		return &p.Cinquina
	case PrizeTombola:
		return &p.Tombola
	default:
		return nil
	}
}

// ExtractionMode selects between manual and timed draws.
type ExtractionMode string

const (
	ModeManual ExtractionMode = "manual"
	ModeAuto   ExtractionMode = "auto"
)

// Settings is a per-group configuration snapshot. It is a value type and is
// never shared by reference between games.
type Settings struct {
	Mode      ExtractionMode
	AdminOnly bool
	Tombolino bool
	Specials  SpecialSet
	Points    Points
}

// DefaultSettings returns the configuration a group starts with.
func DefaultSettings() Settings {
	return Settings{
		Mode:      ModeManual,
		AdminOnly: true,
		Tombolino: true,
		Specials:  AllSpecialsEnabled,
		Points:    DefaultPoints(),
	}
}
