package tombola

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

const (
	// MaxNumber is the highest standard number in the pool.
	MaxNumber = 90
	// Rows is the number of rows on a card.
	Rows = 3
	// RowSize is the number of cells in each row.
	RowSize = 5
	// CardSize is the total number of cells on a card.
	CardSize = Rows * RowSize
)

// Cell is a single number on a card.
type Cell struct {
	Number int
	Marked bool
}

// Row holds five cells sorted by number.
type Row [RowSize]Cell

// Marks counts the marked cells of the row.
func (r Row) Marks() int {
	n := 0
	for _, c := range r {
		if c.Marked {
			n++
		}
	}
	return n
}

// Card is a player's tombola card.
type Card [Rows]Row

// GenerateCard draws 15 distinct numbers from 1-90 and lays them out in three
// ascending rows of five.
func GenerateCard(r *rand.Rand) Card {
	perm := r.Perm(MaxNumber)

	var card Card
	for i := 0; i < Rows; i++ {
		nums := make([]int, RowSize)
		for j := 0; j < RowSize; j++ {
			nums[j] = perm[i*RowSize+j] + 1
		}
		sort.Ints(nums)
		for j, n := range nums {
			card[i][j] = Cell{Number: n}
		}
	}
	return card
}

// Numbers returns all numbers on the card, row by row.
func (c Card) Numbers() []int {
	nums := make([]int, 0, CardSize)
	for _, row := range c {
		for _, cell := range row {
			nums = append(nums, cell.Number)
		}
	}
	return nums
}

// Contains reports whether n appears on the card.
func (c Card) Contains(n int) bool {
	for _, row := range c {
		for _, cell := range row {
			if cell.Number == n {
				return true
			}
		}
	}
	return false
}

// mark flags n as drawn. It returns false when n is missing or already marked.
func (c *Card) mark(n int) bool {
	for i := range c {
		for j := range c[i] {
			if c[i][j].Number == n {
				if c[i][j].Marked {
					return false
				}
				c[i][j].Marked = true
				return true
			}
		}
	}
	return false
}

// Complete reports whether every number on the card is marked.
func (c Card) Complete() bool {
	for _, row := range c {
		if row.Marks() != RowSize {
			return false
		}
	}
	return true
}

// MarkedCount returns the total number of marked cells.
func (c Card) MarkedCount() int {
	n := 0
	for _, row := range c {
		n += row.Marks()
	}
	return n
}

// String renders the card with two-digit numbers and a cross for marked cells.
func (c Card) String() string {
	var b strings.Builder
	for i, row := range c {
		cells := make([]string, 0, RowSize)
		for _, cell := range row {
			if cell.Marked {
				cells = append(cells, "✖️")
			} else {
				cells = append(cells, fmt.Sprintf("%02d", cell.Number))
			}
		}
		b.WriteString(strings.Join(cells, "  "))
		if i < Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
