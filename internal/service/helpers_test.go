package service

import (
	"context"
	"errors"
	"maps"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"tombola-bot/internal/repository"
	"tombola-bot/internal/tombola"
)

const testChat int64 = -1001

var errStoreDown = errors.New("store down")

type sentMessage struct {
	chatID   int64
	threadID int
	text     string
}

// fakeAnnouncer records everything it is asked to send.
type fakeAnnouncer struct {
	mu       sync.Mutex
	group    []sentMessage
	private  map[int64][]string
	failUser int64
}

func newFakeAnnouncer() *fakeAnnouncer {
	return &fakeAnnouncer{private: make(map[int64][]string)}
}

func (a *fakeAnnouncer) Announce(_ context.Context, chatID int64, threadID int, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.group = append(a.group, sentMessage{chatID: chatID, threadID: threadID, text: text})
	return nil
}

func (a *fakeAnnouncer) Notify(_ context.Context, userID int64, text string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if userID == a.failUser {
		return errors.New("bot was blocked by the user")
	}
	a.private[userID] = append(a.private[userID], text)
	return nil
}

func (a *fakeAnnouncer) groupTexts() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.group))
	for _, m := range a.group {
		out = append(out, m.text)
	}
	return out
}

func (a *fakeAnnouncer) privateCount(userID int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.private[userID])
}

func (a *fakeAnnouncer) said(substr string) bool {
	for _, text := range a.groupTexts() {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

type fakeIdentity map[int64]string

func (f fakeIdentity) DisplayName(_ context.Context, userID int64) (string, error) {
	if name, ok := f[userID]; ok {
		return name, nil
	}
	return "", errors.New("user not found")
}

// memScores is an in-memory tombola.ScoreStore that can be switched off.
type memScores struct {
	mu     sync.Mutex
	scores map[int64]map[int64]int
	fail   bool
}

func newMemScores() *memScores {
	return &memScores{scores: make(map[int64]map[int64]int)}
}

func (m *memScores) LoadOverallScores(_ context.Context, groupID int64) (map[int64]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return nil, errStoreDown
	}
	return maps.Clone(m.scores[groupID]), nil
}

func (m *memScores) SaveOverallScores(_ context.Context, groupID int64, scores map[int64]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.scores[groupID] = maps.Clone(scores)
	return nil
}

func (m *memScores) IncrementPlayerScore(_ context.Context, groupID, playerID int64, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	if m.scores[groupID] == nil {
		m.scores[groupID] = make(map[int64]int)
	}
	m.scores[groupID][playerID] += delta
	return nil
}

func (m *memScores) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *memScores) score(groupID, playerID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scores[groupID][playerID]
}

// memSettings is an in-memory SettingsStore.
type memSettings struct {
	mu       sync.Mutex
	settings map[int64]tombola.Settings
	saves    int
	fail     bool
}

func newMemSettings() *memSettings {
	return &memSettings{settings: make(map[int64]tombola.Settings)}
}

func (m *memSettings) LoadSettings(_ context.Context, groupID int64) (tombola.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return tombola.Settings{}, errStoreDown
	}
	s, ok := m.settings[groupID]
	if !ok {
		return tombola.Settings{}, repository.ErrSettingsNotFound
	}
	return s, nil
}

func (m *memSettings) SaveSettings(_ context.Context, groupID int64, s tombola.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.settings[groupID] = s
	m.saves++
	return nil
}

// plainSettings disables specials so every draw is a number.
func plainSettings() tombola.Settings {
	s := tombola.DefaultSettings()
	s.Specials = 0
	return s
}

type testEnv struct {
	svc       *MatchService
	announcer *fakeAnnouncer
	scores    *memScores
	settings  *memSettings
}

func newTestEnv(t *testing.T, settings tombola.Settings, interval time.Duration) *testEnv {
	t.Helper()

	scores := newMemScores()
	settingsStore := newMemSettings()
	settingsStore.settings[testChat] = settings

	registry := tombola.NewRegistry(func(chatID int64) *tombola.Game {
		return tombola.NewGame(chatID, scores, tombola.WithRand(rand.New(rand.NewPCG(uint64(-chatID), 42))))
	})
	announcer := newFakeAnnouncer()
	svc := NewMatchService(
		registry,
		NewSettingsService(settingsStore, 16, time.Minute),
		announcer,
		fakeIdentity{3: "Anna"},
		MatchConfig{AutoInterval: interval, NotifyConcurrency: 4, LockTimeout: 5 * time.Second},
	)
	t.Cleanup(svc.Shutdown)

	return &testEnv{svc: svc, announcer: announcer, scores: scores, settings: settingsStore}
}
