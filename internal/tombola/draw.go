package tombola

import (
	"slices"

	"github.com/rs/zerolog/log"
)

// Draw extracts the next ball, marks it on every card and evaluates prizes.
//
// The second result is false when no ball was produced: either the match is
// not active, or the bag is exhausted or holds only disabled specials. In the
// latter two cases the match is deactivated and the result has MatchOver set.
func (g *Game) Draw() (DrawResult, bool) {
	g.drawMu.Lock()
	defer g.drawMu.Unlock()
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active {
		return DrawResult{}, false
	}
	g.extractionStarted = true

	ball, ok, exhausted := g.pool.next(g.settings.Specials)
	if !ok {
		g.active = false
		end := EndAllDisabled
		if exhausted {
			end = EndExhausted
		}
		return DrawResult{MatchOver: true, End: end}, false
	}

	res := DrawResult{Ball: ball}
	ids := g.memberIDsLocked()

	if ball.IsSpecial() {
		res.Events = append(res.Events, g.applySpecialLocked(ball.Special, ids))
	} else {
		for _, id := range ids {
			card := g.cards[id]
			if card.mark(ball.Number) {
				res.Events = append(res.Events, Event{
					Kind:     EventNumberMarked,
					PlayerID: id,
					Name:     g.displayNameLocked(id),
					Number:   ball.Number,
					Card:     *card,
				})
			}
		}
	}

	res.Events = append(res.Events, g.evaluateRowsLocked(ids)...)
	events, over := g.evaluateFullCardsLocked(ids)
	res.Events = append(res.Events, events...)

	if over {
		g.active = false
		res.MatchOver = true
		res.End = EndPrize
	}
	return res, true
}

// applySpecialLocked gives a random player a bonus or malus of 1-49 points.
func (g *Game) applySpecialLocked(s Special, ids []int64) Event {
	if len(ids) == 0 {
		log.Warn().
			Int64("chat_id", g.chatID).
			Str("special", s.String()).
			Msg("Special drawn with no players in the match")
		return Event{Kind: EventSpecialSkipped, Special: s}
	}

	player := ids[g.rng.IntN(len(ids))]
	magnitude := SpecialMinPoints + g.rng.IntN(SpecialMaxPoints-SpecialMinPoints+1)
	delta := magnitude * int(s.Effect())
	g.matchScores[player] += delta

	return Event{
		Kind:     EventSpecial,
		PlayerID: player,
		Name:     g.displayNameLocked(player),
		Special:  s,
		Points:   delta,
	}
}

// evaluateRowsLocked awards the row prizes still open. All players are
// considered together and ties are broken uniformly at random. A player wins
// at most one row prize per draw.
func (g *Game) evaluateRowsLocked(ids []int64) []Event {
	var events []Event
	awarded := make(map[int64]bool)

	for i, prize := range RowPrizes {
		if _, taken := g.winners[prize]; taken {
			continue
		}
		need := i + 2

		var qualifiers []int64
		for _, id := range ids {
			if awarded[id] {
				continue
			}
			for _, row := range g.cards[id] {
				if row.Marks() == need {
					qualifiers = append(qualifiers, id)
					break
				}
			}
		}
		if len(qualifiers) == 0 {
			continue
		}

		winner := g.pickLocked(qualifiers)
		awarded[winner] = true
		events = append(events, g.awardLocked(prize, winner))
	}
	return events
}

// evaluateFullCardsLocked handles tombola and tombolino. The second result
// reports whether the match is over.
func (g *Game) evaluateFullCardsLocked(ids []int64) ([]Event, bool) {
	var complete []int64
	for _, id := range ids {
		if g.cards[id].Complete() {
			complete = append(complete, id)
		}
	}

	var events []Event
	tombolaWinner, tombolaTaken := g.winners[PrizeTombola]

	if !tombolaTaken {
		if len(complete) == 0 {
			return nil, false
		}
		tombolaWinner = g.pickLocked(complete)
		g.completions++
		events = append(events, g.awardLocked(PrizeTombola, tombolaWinner))
	}

	if !g.settings.Tombolino {
		return events, true
	}

	candidates := slices.DeleteFunc(complete, func(id int64) bool {
		return id == tombolaWinner
	})
	if len(candidates) == 0 {
		return events, false
	}

	winner := g.pickLocked(candidates)
	g.completions++
	events = append(events, g.awardLocked(PrizeTombolino, winner))
	return events, true
}

func (g *Game) pickLocked(ids []int64) int64 {
	if len(ids) == 1 {
		return ids[0]
	}
	return ids[g.rng.IntN(len(ids))]
}

func (g *Game) awardLocked(prize Prize, winner int64) Event {
	points := g.settings.Points.For(prize)
	g.winners[prize] = winner
	g.matchScores[winner] += points

	log.Info().
		Int64("chat_id", g.chatID).
		Str("match_id", g.matchID).
		Str("prize", string(prize)).
		Int64("player_id", winner).
		Int("points", points).
		Msg("Prize awarded")

	return Event{
		Kind:     EventPrize,
		PlayerID: winner,
		Name:     g.displayNameLocked(winner),
		Prize:    prize,
		Points:   points,
	}
}
