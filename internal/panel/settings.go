package panel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tombola-bot/internal/tombola"
)

// ErrUnknownAction is returned for callback data the panel does not handle.
var ErrUnknownAction = errors.New("unknown settings action")

// Step is the outcome of a settings panel button.
type Step struct {
	// Menu is the page to show next.
	Menu Menu
	// Changed is set when the settings must be saved.
	Changed bool
	// Close removes the panel.
	Close bool
}

// Navigate resolves a button that does not change the settings.
func Navigate(action, param string) (Step, bool) {
	switch action {
	case "menu":
		switch Menu(param) {
		case MenuMode, MenuAdmin, MenuPoints, MenuSpecials:
			return Step{Menu: Menu(param)}, true
		default:
			return Step{Menu: MenuMain}, true
		}
	case "close":
		return Step{Close: true}, true
	case "noop":
		return Step{Menu: MenuPoints}, true
	default:
		return Step{}, false
	}
}

// Apply returns s modified by a settings button.
func Apply(s tombola.Settings, action, param string) (tombola.Settings, Step, error) {
	switch action {
	case "mode":
		mode := tombola.ExtractionMode(param)
		if mode != tombola.ModeManual && mode != tombola.ModeAuto {
			return s, Step{}, fmt.Errorf("%w: mode %q", ErrUnknownAction, param)
		}
		s.Mode = mode
		return s, Step{Menu: MenuMode, Changed: true}, nil

	case "admin":
		s.AdminOnly = param == "on"
		return s, Step{Menu: MenuAdmin, Changed: true}, nil

	case "pt":
		name, delta, ok := strings.Cut(param, "_")
		if !ok {
			return s, Step{}, fmt.Errorf("%w: points %q", ErrUnknownAction, param)
		}
		prize, err := tombola.ParsePrize(name)
		if err != nil {
			return s, Step{}, err
		}
		n, err := strconv.Atoi(delta)
		if err != nil {
			return s, Step{}, fmt.Errorf("%w: delta %q", ErrUnknownAction, delta)
		}
		points, err := s.Points.Adjust(prize, n)
		if err != nil {
			return s, Step{}, err
		}
		s.Points = points
		return s, Step{Menu: MenuPoints, Changed: true}, nil

	case "ptreset":
		s.Points = tombola.DefaultPoints()
		return s, Step{Menu: MenuPoints, Changed: true}, nil

	case "sp":
		sp, ok := tombola.ParseSpecial(param)
		if !ok {
			return s, Step{}, fmt.Errorf("%w: special %q", ErrUnknownAction, param)
		}
		s.Specials = s.Specials.With(sp, !s.Specials.Has(sp))
		return s, Step{Menu: MenuSpecials, Changed: true}, nil

	case "tombolino":
		s.Tombolino = !s.Tombolino
		return s, Step{Menu: MenuSpecials, Changed: true}, nil

	default:
		return s, Step{}, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}
