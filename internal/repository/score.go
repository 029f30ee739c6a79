// Package repository provides the PostgreSQL and Redis stores behind the
// tombola leaderboard and group settings.
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ScoreRepository stores group leaderboards in PostgreSQL.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository instance.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// LoadOverallScores returns the leaderboard of a group keyed by user ID.
func (r *ScoreRepository) LoadOverallScores(ctx context.Context, groupID int64) (map[int64]int, error) {
	const query = `
		SELECT user_id, score
		FROM group_scores
		WHERE group_id = $1
	`

	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[int64]int)
	for rows.Next() {
		var userID int64
		var score int
		if err := rows.Scan(&userID, &score); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores[userID] = score
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scores: %w", err)
	}

	return scores, nil
}

// SaveOverallScores replaces the whole leaderboard of a group in one transaction.
func (r *ScoreRepository) SaveOverallScores(ctx context.Context, groupID int64, scores map[int64]int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM group_scores WHERE group_id = $1`, groupID); err != nil {
		return fmt.Errorf("failed to clear scores: %w", err)
	}

	if len(scores) > 0 {
		const insert = `
			INSERT INTO group_scores (group_id, user_id, score, updated_at)
			VALUES ($1, $2, $3, NOW())
		`
		batch := &pgx.Batch{}
		for userID, score := range scores {
			batch.Queue(insert, groupID, userID, score)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert scores: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit scores: %w", err)
	}
	return nil
}

// IncrementPlayerScore adds delta to one player's score atomically.
func (r *ScoreRepository) IncrementPlayerScore(ctx context.Context, groupID, playerID int64, delta int) error {
	const query = `
		INSERT INTO group_scores (group_id, user_id, score, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (group_id, user_id)
		DO UPDATE SET score = group_scores.score + EXCLUDED.score, updated_at = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, groupID, playerID, delta); err != nil {
		return fmt.Errorf("failed to increment score: %w", err)
	}
	return nil
}
