package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"

	"tombola-bot/internal/model"
	"tombola-bot/internal/tombola"
)

func scoresKey(groupID int64) string {
	return fmt.Sprintf("tombola:scores:%d", groupID)
}

func settingsKey(groupID int64) string {
	return fmt.Sprintf("tombola:settings:%d", groupID)
}

// RedisScoreStore keeps each group leaderboard in a hash of user ID to score.
type RedisScoreStore struct {
	rdb *redis.Client
}

// NewRedisScoreStore creates a new RedisScoreStore instance.
func NewRedisScoreStore(rdb *redis.Client) *RedisScoreStore {
	return &RedisScoreStore{rdb: rdb}
}

// LoadOverallScores returns the leaderboard of a group keyed by user ID.
func (s *RedisScoreStore) LoadOverallScores(ctx context.Context, groupID int64) (map[int64]int, error) {
	fields, err := s.rdb.HGetAll(ctx, scoresKey(groupID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}

	scores := make(map[int64]int, len(fields))
	for field, value := range fields {
		userID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", field, err)
		}
		score, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid score for user %d: %w", userID, err)
		}
		scores[userID] = score
	}
	return scores, nil
}

// SaveOverallScores replaces the leaderboard of a group atomically.
func (s *RedisScoreStore) SaveOverallScores(ctx context.Context, groupID int64, scores map[int64]int) error {
	key := scoresKey(groupID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(scores) == 0 {
			return nil
		}
		values := make(map[string]interface{}, len(scores))
		for userID, score := range scores {
			values[strconv.FormatInt(userID, 10)] = score
		}
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}
	return nil
}

// IncrementPlayerScore adds delta to one player's score with HINCRBY.
func (s *RedisScoreStore) IncrementPlayerScore(ctx context.Context, groupID, playerID int64, delta int) error {
	field := strconv.FormatInt(playerID, 10)
	if err := s.rdb.HIncrBy(ctx, scoresKey(groupID), field, int64(delta)).Err(); err != nil {
		return fmt.Errorf("failed to increment score: %w", err)
	}
	return nil
}

// RedisSettingsStore keeps group settings as JSON documents.
type RedisSettingsStore struct {
	rdb *redis.Client
}

// NewRedisSettingsStore creates a new RedisSettingsStore instance.
func NewRedisSettingsStore(rdb *redis.Client) *RedisSettingsStore {
	return &RedisSettingsStore{rdb: rdb}
}

// LoadSettings returns the settings of a group or ErrSettingsNotFound.
func (s *RedisSettingsStore) LoadSettings(ctx context.Context, groupID int64) (tombola.Settings, error) {
	data, err := s.rdb.Get(ctx, settingsKey(groupID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return tombola.Settings{}, ErrSettingsNotFound
		}
		return tombola.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}

	var row model.GroupSettings
	if err := json.Unmarshal(data, &row); err != nil {
		return tombola.Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return settingsFromRow(row), nil
}

// SaveSettings stores the settings of a group.
func (s *RedisSettingsStore) SaveSettings(ctx context.Context, groupID int64, settings tombola.Settings) error {
	data, err := json.Marshal(settingsToRow(groupID, settings))
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := s.rdb.Set(ctx, settingsKey(groupID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}
