package tombola

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestGenerateCardProperty checks that every card has 15 distinct numbers in
// 1-90, five per row, each row sorted ascending.
func TestGenerateCardProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.Uint64().Draw(t, "seed")
		card := GenerateCard(testRand(seed))

		seen := make(map[int]bool)
		for i, row := range card {
			nums := make([]int, 0, RowSize)
			for _, cell := range row {
				if cell.Number < 1 || cell.Number > MaxNumber {
					t.Fatalf("row %d: number %d out of range", i, cell.Number)
				}
				if seen[cell.Number] {
					t.Fatalf("number %d repeated on card", cell.Number)
				}
				if cell.Marked {
					t.Fatalf("new card has marked cell %d", cell.Number)
				}
				seen[cell.Number] = true
				nums = append(nums, cell.Number)
			}
			if !sort.IntsAreSorted(nums) {
				t.Fatalf("row %d not sorted: %v", i, nums)
			}
		}
		if len(seen) != CardSize {
			t.Fatalf("expected %d numbers, got %d", CardSize, len(seen))
		}
	})
}

func TestCard_MarkAndComplete(t *testing.T) {
	card := GenerateCard(testRand(7))
	nums := card.Numbers()
	require.Len(t, nums, CardSize)

	missing := 1
	for card.Contains(missing) {
		missing++
	}
	assert.False(t, card.mark(missing), "number not on card")

	assert.True(t, card.mark(nums[0]))
	assert.False(t, card.mark(nums[0]), "second mark is a no-op")
	assert.Equal(t, 1, card.MarkedCount())
	assert.False(t, card.Complete())

	for _, n := range nums[1:] {
		card.mark(n)
	}
	assert.True(t, card.Complete())
}

func TestCard_String(t *testing.T) {
	var card Card
	for i := range card {
		for j := range card[i] {
			card[i][j] = Cell{Number: i*RowSize + j + 1}
		}
	}
	card.mark(3)

	lines := strings.Split(card.String(), "\n")
	require.Len(t, lines, Rows)
	assert.Equal(t, "01  02  ✖️  04  05", lines[0])
	assert.Equal(t, "06  07  08  09  10", lines[1])
}
