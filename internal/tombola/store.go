package tombola

import (
	"context"
	"errors"
)

// ErrScoresNotDurable is returned when match scores could not be written to the
// score store. The deltas are kept and FlushPending can be retried.
var ErrScoresNotDurable = errors.New("scores not yet durable")

// ScoreStore persists the overall leaderboard of each group.
// IncrementPlayerScore must be safe for concurrent callers updating different
// players of the same group.
type ScoreStore interface {
	LoadOverallScores(ctx context.Context, groupID int64) (map[int64]int, error)
	SaveOverallScores(ctx context.Context, groupID int64, scores map[int64]int) error
	IncrementPlayerScore(ctx context.Context, groupID, playerID int64, delta int) error
}
