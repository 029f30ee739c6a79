package tombola

// EventKind classifies announcement events produced by a draw.
type EventKind int

const (
	// EventNumberMarked tells a player the drawn number was on their card.
	EventNumberMarked EventKind = iota + 1
	// EventPrize announces a prize winner to the group.
	EventPrize
	// EventSpecial announces a bonus or malus applied to a player.
	EventSpecial
	// EventSpecialSkipped reports a special drawn while nobody was playing.
	EventSpecialSkipped
)

func (k EventKind) String() string {
	switch k {
	case EventNumberMarked:
		return "number_marked"
	case EventPrize:
		return "prize"
	case EventSpecial:
		return "special"
	case EventSpecialSkipped:
		return "special_skipped"
	default:
		return "unknown"
	}
}

// Event is a side effect of a draw that the caller is expected to deliver.
// The game never sends messages itself.
type Event struct {
	Kind     EventKind
	PlayerID int64
	Name     string
	Number   int
	Card     Card
	Prize    Prize
	Special  Special
	Points   int
}

// EndReason explains why a match stopped accepting draws.
type EndReason int

const (
	EndNone EndReason = iota
	// EndExhausted means every ball has been drawn.
	EndExhausted
	// EndAllDisabled means only disabled specials are left in the bag.
	EndAllDisabled
	// EndPrize means the final prize (tombola or tombolino) was awarded.
	EndPrize
)

func (r EndReason) String() string {
	switch r {
	case EndExhausted:
		return "exhausted"
	case EndAllDisabled:
		return "all_disabled"
	case EndPrize:
		return "prize"
	default:
		return "none"
	}
}

// DrawResult is the outcome of a single draw.
type DrawResult struct {
	Ball      Ball
	Events    []Event
	MatchOver bool
	End       EndReason
}
