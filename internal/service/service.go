// Package service orchestrates tombola matches: lifecycle, draws, delivery of
// draw events, group settings and the leaderboard.
package service

import (
	"context"
	"errors"

	"tombola-bot/internal/tombola"
)

// Errors returned to handlers so they can pick a reply.
var (
	ErrNoActiveMatch   = errors.New("no active match")
	ErrMatchInProgress = errors.New("match already in progress")
	ErrJoinClosed      = errors.New("extraction already started")
	ErrAlreadyJoined   = errors.New("player already joined")
	ErrAutoRunning     = errors.New("automatic extraction already running")
)

// Announcer delivers plain-text messages to groups and players.
type Announcer interface {
	// Announce posts to a group, inside a forum topic when threadID is nonzero.
	Announce(ctx context.Context, chatID int64, threadID int, text string) error
	// Notify sends a private message to a player.
	Notify(ctx context.Context, userID int64, text string) error
}

// IdentityResolver looks up the display name of a player.
type IdentityResolver interface {
	DisplayName(ctx context.Context, userID int64) (string, error)
}

// SettingsStore persists group settings. LoadSettings returns
// repository.ErrSettingsNotFound for groups without saved settings.
type SettingsStore interface {
	LoadSettings(ctx context.Context, groupID int64) (tombola.Settings, error)
	SaveSettings(ctx context.Context, groupID int64, s tombola.Settings) error
}

// Player identifies who is acting on a match.
type Player struct {
	ID   int64
	Name string
}
