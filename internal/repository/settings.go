package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tombola-bot/internal/model"
	"tombola-bot/internal/tombola"
)

// ErrSettingsNotFound is returned when a group has never saved settings.
var ErrSettingsNotFound = errors.New("group settings not found")

// SettingsRepository stores group settings in PostgreSQL.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// LoadSettings returns the settings of a group or ErrSettingsNotFound.
func (r *SettingsRepository) LoadSettings(ctx context.Context, groupID int64) (tombola.Settings, error) {
	const query = `
		SELECT group_id, mode, admin_only, tombolino, enabled_specials,
			ambo, terno, quaterna, cinquina, tombola, updated_at
		FROM group_settings
		WHERE group_id = $1
	`

	var row model.GroupSettings
	err := r.pool.QueryRow(ctx, query, groupID).Scan(
		&row.GroupID,
		&row.Mode,
		&row.AdminOnly,
		&row.Tombolino,
		&row.EnabledSpecials,
		&row.Ambo,
		&row.Terno,
		&row.Quaterna,
		&row.Cinquina,
		&row.Tombola,
		&row.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tombola.Settings{}, ErrSettingsNotFound
		}
		return tombola.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	return settingsFromRow(row), nil
}

// SaveSettings upserts the settings of a group.
func (r *SettingsRepository) SaveSettings(ctx context.Context, groupID int64, s tombola.Settings) error {
	const query = `
		INSERT INTO group_settings (group_id, mode, admin_only, tombolino, enabled_specials,
			ambo, terno, quaterna, cinquina, tombola, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		ON CONFLICT (group_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			admin_only = EXCLUDED.admin_only,
			tombolino = EXCLUDED.tombolino,
			enabled_specials = EXCLUDED.enabled_specials,
			ambo = EXCLUDED.ambo,
			terno = EXCLUDED.terno,
			quaterna = EXCLUDED.quaterna,
			cinquina = EXCLUDED.cinquina,
			tombola = EXCLUDED.tombola,
			updated_at = NOW()
	`

	row := settingsToRow(groupID, s)
	_, err := r.pool.Exec(ctx, query,
		row.GroupID, row.Mode, row.AdminOnly, row.Tombolino, row.EnabledSpecials,
		row.Ambo, row.Terno, row.Quaterna, row.Cinquina, row.Tombola,
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func settingsToRow(groupID int64, s tombola.Settings) model.GroupSettings {
	return model.GroupSettings{
		GroupID:         groupID,
		Mode:            string(s.Mode),
		AdminOnly:       s.AdminOnly,
		Tombolino:       s.Tombolino,
		EnabledSpecials: s.Specials.Keys(),
		Ambo:            s.Points.Ambo,
		Terno:           s.Points.Terno,
		Quaterna:        s.Points.Quaterna,
		Cinquina:        s.Points.Cinquina,
		Tombola:         s.Points.Tombola,
	}
}

// settingsFromRow converts a stored row, falling back to manual mode for
// unknown values.
func settingsFromRow(row model.GroupSettings) tombola.Settings {
	mode := tombola.ExtractionMode(row.Mode)
	if mode != tombola.ModeAuto {
		mode = tombola.ModeManual
	}
	return tombola.Settings{
		Mode:      mode,
		AdminOnly: row.AdminOnly,
		Tombolino: row.Tombolino,
		Specials:  tombola.SpecialSetFromKeys(row.EnabledSpecials),
		Points: tombola.Points{
			Ambo:     max(0, row.Ambo),
			Terno:    max(0, row.Terno),
			Quaterna: max(0, row.Quaterna),
			Cinquina: max(0, row.Cinquina),
			Tombola:  max(0, row.Tombola),
		},
	}
}
