package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migrations are applied in order on every start and must be idempotent.
var migrations = []struct {
	name string
	sql  string
}{
	{
		name: "group_scores",
		sql: `
			CREATE TABLE IF NOT EXISTS group_scores (
				group_id BIGINT NOT NULL,
				user_id BIGINT NOT NULL,
				score INT NOT NULL DEFAULT 0,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				PRIMARY KEY (group_id, user_id)
			);
			CREATE INDEX IF NOT EXISTS idx_group_scores_rank ON group_scores(group_id, score DESC);
		`,
	},
	{
		name: "group_settings",
		sql: `
			CREATE TABLE IF NOT EXISTS group_settings (
				group_id BIGINT PRIMARY KEY,
				mode VARCHAR(16) NOT NULL DEFAULT 'manual',
				admin_only BOOLEAN NOT NULL DEFAULT TRUE,
				tombolino BOOLEAN NOT NULL DEFAULT TRUE,
				enabled_specials TEXT[] NOT NULL DEFAULT ARRAY['104', '110', '404', '666'],
				ambo INT NOT NULL DEFAULT 5,
				terno INT NOT NULL DEFAULT 10,
				quaterna INT NOT NULL DEFAULT 15,
				cinquina INT NOT NULL DEFAULT 20,
				tombola INT NOT NULL DEFAULT 50,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);
		`,
	},
}

// Migrate creates the tables used by the PostgreSQL stores.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
