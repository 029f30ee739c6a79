package tombola

import (
	"fmt"
	"math/rand/v2"
)

// Ball is a drawable value: either a number from 1 to 90 or a special marker.
type Ball struct {
	Number  int
	Special Special
}

// IsSpecial reports whether the ball is a bonus or malus marker.
func (b Ball) IsSpecial() bool {
	return b.Special != SpecialNone
}

// Label returns the number shown to players when the ball is drawn.
func (b Ball) Label() int {
	if b.IsSpecial() {
		return b.Special.Label()
	}
	return b.Number
}

func (b Ball) String() string {
	if b.IsSpecial() {
		return b.Special.String()
	}
	return fmt.Sprintf("%02d", b.Number)
}

// Pool is the shuffled bag of undrawn balls plus the drawn history.
type Pool struct {
	undrawn []Ball
	drawn   []Ball
}

// NewPool shuffles 1-90 together with the given specials.
func NewPool(r *rand.Rand, specials SpecialSet) *Pool {
	balls := make([]Ball, 0, MaxNumber+len(AllSpecials))
	for n := 1; n <= MaxNumber; n++ {
		balls = append(balls, Ball{Number: n})
	}
	for _, s := range AllSpecials {
		if specials.Has(s) {
			balls = append(balls, Ball{Special: s})
		}
	}
	r.Shuffle(len(balls), func(i, j int) {
		balls[i], balls[j] = balls[j], balls[i]
	})
	return &Pool{undrawn: balls}
}

// next removes the first ball allowed by enabled and appends it to the drawn
// history. Disabled specials are skipped but stay in the bag. The second
// result is false when nothing can be drawn; exhausted tells whether the bag
// was empty or only held disabled specials.
func (p *Pool) next(enabled SpecialSet) (ball Ball, ok bool, exhausted bool) {
	if len(p.undrawn) == 0 {
		return Ball{}, false, true
	}
	for i, b := range p.undrawn {
		if b.IsSpecial() && !enabled.Has(b.Special) {
			continue
		}
		p.undrawn = append(p.undrawn[:i], p.undrawn[i+1:]...)
		p.drawn = append(p.drawn, b)
		return b, true, false
	}
	return Ball{}, false, false
}

// Remaining returns the number of balls still in the bag.
func (p *Pool) Remaining() int {
	return len(p.undrawn)
}

// Drawn returns a copy of the drawn history in draw order.
func (p *Pool) Drawn() []Ball {
	out := make([]Ball, len(p.drawn))
	copy(out, p.drawn)
	return out
}
