package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"

	"tombola-bot/internal/pkg/lock"
	"tombola-bot/internal/repository"
	"tombola-bot/internal/tombola"
)

// SettingsService serves group settings from a TTL cache in front of the store.
type SettingsService struct {
	store SettingsStore
	cache *expirable.LRU[int64, tombola.Settings]
	locks *lock.ChatLock
}

// NewSettingsService creates a SettingsService caching up to size groups for ttl.
func NewSettingsService(store SettingsStore, size int, ttl time.Duration) *SettingsService {
	return &SettingsService{
		store: store,
		cache: expirable.NewLRU[int64, tombola.Settings](size, nil, ttl),
		locks: lock.NewChatLock(),
	}
}

// Get returns the settings of a group, or the defaults if it never saved any.
func (s *SettingsService) Get(ctx context.Context, groupID int64) (tombola.Settings, error) {
	if settings, ok := s.cache.Get(groupID); ok {
		return settings, nil
	}
	return s.load(ctx, groupID)
}

func (s *SettingsService) load(ctx context.Context, groupID int64) (tombola.Settings, error) {
	settings, err := s.store.LoadSettings(ctx, groupID)
	if err != nil {
		if !errors.Is(err, repository.ErrSettingsNotFound) {
			return tombola.Settings{}, fmt.Errorf("failed to get settings: %w", err)
		}
		settings = tombola.DefaultSettings()
	}
	s.cache.Add(groupID, settings)
	return settings, nil
}

// Update applies fn to the current settings of a group and saves the result.
// Updates of the same group are serialized.
func (s *SettingsService) Update(ctx context.Context, groupID int64, fn func(tombola.Settings) (tombola.Settings, error)) (tombola.Settings, error) {
	var updated tombola.Settings
	err := s.locks.WithLock(groupID, func() error {
		current, err := s.load(ctx, groupID)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := s.store.SaveSettings(ctx, groupID, next); err != nil {
			s.cache.Remove(groupID)
			return fmt.Errorf("failed to update settings: %w", err)
		}
		s.cache.Add(groupID, next)
		updated = next
		return nil
	})
	if err != nil {
		return tombola.Settings{}, err
	}

	log.Info().
		Int64("chat_id", groupID).
		Str("mode", string(updated.Mode)).
		Bool("admin_only", updated.AdminOnly).
		Bool("tombolino", updated.Tombolino).
		Strs("specials", updated.Specials.Keys()).
		Msg("Group settings updated")
	return updated, nil
}
