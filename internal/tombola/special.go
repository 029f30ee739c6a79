package tombola

import (
	"fmt"
	"strings"
)

// Special is a bonus or malus marker mixed into the number pool.
// Specials are a closed set and never share identity with the 1-90 numbers.
type Special uint8

const (
	SpecialNone Special = iota
	Bonus104
	Bonus110
	Malus404
	Malus666
)

// AllSpecials lists every special marker in pool order.
var AllSpecials = []Special{Bonus104, Bonus110, Malus404, Malus666}

// Effect tells whether a special adds or removes points.
type Effect int

const (
	EffectBonus Effect = 1
	EffectMalus Effect = -1
)

const (
	// SpecialMinPoints and SpecialMaxPoints bound the random magnitude of a bonus or malus.
	SpecialMinPoints = 1
	SpecialMaxPoints = 49
)

// Label returns the number printed for the special when it is drawn.
func (s Special) Label() int {
	switch s {
	case Bonus104:
		return 104
	case Bonus110:
		return 110
	case Malus404:
		return 404
	case Malus666:
		return 666
	default:
		return 0
	}
}

// Key returns the settings key of the special.
func (s Special) Key() string {
	if s == SpecialNone {
		return ""
	}
	return fmt.Sprintf("%d", s.Label())
}

// Effect returns the direction of the point change.
func (s Special) Effect() Effect {
	switch s {
	case Malus404, Malus666:
		return EffectMalus
	default:
		return EffectBonus
	}
}

func (s Special) String() string {
	if s == SpecialNone {
		return "none"
	}
	if s.Effect() == EffectMalus {
		return "malus_" + s.Key()
	}
	return "bonus_" + s.Key()
}

// ParseSpecial resolves a settings key ("104", "malus_666", ...) to a Special.
func ParseSpecial(key string) (Special, bool) {
	key = strings.TrimPrefix(strings.TrimPrefix(strings.ToLower(key), "bonus_"), "malus_")
	for _, s := range AllSpecials {
		if s.Key() == key {
			return s, true
		}
	}
	return SpecialNone, false
}

// SpecialSet is an immutable set of enabled specials.
type SpecialSet uint8

// AllSpecialsEnabled has every special marker switched on.
const AllSpecialsEnabled SpecialSet = 1<<Bonus104 | 1<<Bonus110 | 1<<Malus404 | 1<<Malus666

// Has reports whether s is in the set.
func (set SpecialSet) Has(s Special) bool {
	return s != SpecialNone && set&(1<<s) != 0
}

// With returns a copy of the set with s enabled or disabled.
func (set SpecialSet) With(s Special, enabled bool) SpecialSet {
	if s == SpecialNone {
		return set
	}
	if enabled {
		return set | 1<<s
	}
	return set &^ (1 << s)
}

// Keys returns the settings keys of the specials in the set.
func (set SpecialSet) Keys() []string {
	keys := make([]string, 0, len(AllSpecials))
	for _, s := range AllSpecials {
		if set.Has(s) {
			keys = append(keys, s.Key())
		}
	}
	return keys
}

// SpecialSetFromKeys builds a set from settings keys, ignoring unknown ones.
func SpecialSetFromKeys(keys []string) SpecialSet {
	var set SpecialSet
	for _, k := range keys {
		if s, ok := ParseSpecial(k); ok {
			set = set.With(s, true)
		}
	}
	return set
}
