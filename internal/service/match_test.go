package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tombola-bot/internal/tombola"
)

// drawUntilOver draws manually until the match stops accepting draws.
func drawUntilOver(t *testing.T, env *testEnv) int {
	t.Helper()
	ctx := context.Background()

	draws := 0
	for env.svc.IsActive(testChat) {
		require.NoError(t, env.svc.Draw(ctx, testChat))
		draws++
		require.LessOrEqual(t, draws, tombola.MaxNumber+1, "match never ended")
	}
	return draws
}

func TestMatchService_Lifecycle(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	ctx := context.Background()

	_, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	assert.ErrorIs(t, err, ErrNoActiveMatch)
	assert.ErrorIs(t, env.svc.Draw(ctx, testChat), ErrNoActiveMatch)

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 7))

	card, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)
	assert.Len(t, card.Numbers(), tombola.CardSize)

	_, err = env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	assert.ErrorIs(t, err, ErrAlreadyJoined)

	count, err := env.svc.PlayerCount(testChat)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Restarting an open lobby is allowed.
	require.NoError(t, env.svc.StartMatch(ctx, testChat, 7))
	count, _ = env.svc.PlayerCount(testChat)
	assert.Equal(t, 0, count)
	_, err = env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Draw(ctx, testChat))
	assert.True(t, env.announcer.said("📤 È stato estratto il numero"))
	for _, m := range env.announcer.group {
		assert.Equal(t, 7, m.threadID)
	}

	_, err = env.svc.Join(ctx, testChat, Player{ID: 2, Name: "Luigi"})
	assert.ErrorIs(t, err, ErrJoinClosed)
	assert.ErrorIs(t, env.svc.StartMatch(ctx, testChat, 7), ErrMatchInProgress)
}

func TestMatchService_PlaysToExhaustion(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	_, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)

	// A lone player takes every row prize and the tombola; the tombolino stays
	// open so the bag is emptied.
	draws := drawUntilOver(t, env)
	assert.Equal(t, tombola.MaxNumber+1, draws)

	assert.Equal(t, 100, env.scores.score(testChat, 1))
	assert.Equal(t, tombola.CardSize, env.announcer.privateCount(1))
	assert.True(t, env.announcer.said("🎉 Mario ha fatto TOMBOLA! (+50 punti)"))
	assert.True(t, env.announcer.said("Tutti i numeri sono stati estratti"))
	assert.True(t, env.announcer.said("🏆 Classifica finale:\n\n1. Mario: 100 punti"))

	assert.ErrorIs(t, env.svc.Draw(ctx, testChat), ErrNoActiveMatch)

	// A new match can start once the previous one is over.
	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
}

func TestMatchService_TombolaEndsMatchWithoutTombolino(t *testing.T) {
	settings := plainSettings()
	settings.Tombolino = false
	env := newTestEnv(t, settings, time.Second)
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	_, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)

	draws := drawUntilOver(t, env)
	assert.Less(t, draws, tombola.MaxNumber+1)
	assert.True(t, env.announcer.said("🏁 La partita è terminata!"))
	assert.Equal(t, 100, env.scores.score(testChat, 1))
}

func TestMatchService_Stop(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	_, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)
	for range 20 {
		require.NoError(t, env.svc.Draw(ctx, testChat))
	}

	require.NoError(t, env.svc.Stop(ctx, testChat))
	assert.True(t, env.announcer.said("⚠️ Il gioco è stato interrotto"))
	assert.True(t, env.announcer.said("Punti non conteggiati"))
	assert.Zero(t, env.scores.score(testChat, 1))

	assert.ErrorIs(t, env.svc.Stop(ctx, testChat), ErrNoActiveMatch)
	assert.ErrorIs(t, env.svc.Draw(ctx, testChat), ErrNoActiveMatch)
}

func TestMatchService_PrivateFailureDoesNotBlockOthers(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	env.announcer.failUser = 1
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	for _, id := range []int64{1, 2} {
		_, err := env.svc.Join(ctx, testChat, Player{ID: id, Name: "P"})
		require.NoError(t, err)
	}

	for range 30 {
		require.NoError(t, env.svc.Draw(ctx, testChat))
	}

	card, ok := env.svc.Card(testChat, 2)
	require.True(t, ok)
	assert.Equal(t, card.MarkedCount(), env.announcer.privateCount(2))
	assert.Zero(t, env.announcer.privateCount(1))
}

func TestMatchService_ConcurrentManualDraws(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	ctx := context.Background()
	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, env.svc.Draw(ctx, testChat))
		}()
	}
	wg.Wait()

	g, ok := env.svc.registry.Get(testChat)
	require.True(t, ok)
	drawn := g.Drawn()
	assert.Len(t, drawn, 10)

	seen := make(map[int]bool)
	for _, b := range drawn {
		assert.False(t, seen[b.Number], "ball %d drawn twice", b.Number)
		seen[b.Number] = true
	}
}

func TestMatchService_AutoExtraction(t *testing.T) {
	settings := plainSettings()
	settings.Mode = tombola.ModeAuto
	env := newTestEnv(t, settings, time.Millisecond)
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	_, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Draw(ctx, testChat))
	require.Eventually(t, func() bool {
		return !env.svc.IsActive(testChat)
	}, 10*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return env.scores.score(testChat, 1) == 100
	}, 5*time.Second, 10*time.Millisecond)

	g, _ := env.svc.registry.Get(testChat)
	assert.Eventually(t, func() bool { return !g.AutoRunning() }, time.Second, 10*time.Millisecond)
}

func TestMatchService_AutoAlreadyRunningAndStop(t *testing.T) {
	settings := plainSettings()
	settings.Mode = tombola.ModeAuto
	env := newTestEnv(t, settings, time.Hour)
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	require.NoError(t, env.svc.Draw(ctx, testChat))
	assert.ErrorIs(t, env.svc.Draw(ctx, testChat), ErrAutoRunning)

	g, _ := env.svc.registry.Get(testChat)
	require.Eventually(t, func() bool { return len(g.Drawn()) == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, env.svc.Stop(ctx, testChat))
	assert.False(t, g.AutoRunning())
	assert.Len(t, g.Drawn(), 1)
}

func TestMatchService_FlushFailureRetried(t *testing.T) {
	settings := plainSettings()
	settings.Tombolino = false
	env := newTestEnv(t, settings, time.Second)
	ctx := context.Background()

	require.NoError(t, env.svc.StartMatch(ctx, testChat, 0))
	_, err := env.svc.Join(ctx, testChat, Player{ID: 1, Name: "Mario"})
	require.NoError(t, err)

	env.scores.setFail(true)
	drawUntilOver(t, env)
	assert.True(t, env.announcer.said("Non è stato possibile salvare i punteggi"))
	assert.True(t, env.announcer.said("1. Mario: 100 punti"), "pending points count in the final leaderboard")

	assert.Equal(t, 1, env.svc.RetryPendingFlushes(ctx))

	env.scores.setFail(false)
	assert.Equal(t, 0, env.svc.RetryPendingFlushes(ctx))
	assert.Equal(t, 100, env.scores.score(testChat, 1))
	assert.True(t, env.announcer.said("sono stati salvati"))

	// Nothing left to write.
	assert.Equal(t, 0, env.svc.RetryPendingFlushes(ctx))
	assert.Equal(t, 100, env.scores.score(testChat, 1))
}

func TestMatchService_Leaderboard(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	ctx := context.Background()
	require.NoError(t, env.scores.SaveOverallScores(ctx, testChat, map[int64]int{1: 10, 2: 0, 3: 30, 4: 10}))

	standings, err := env.svc.Leaderboard(ctx, testChat)
	require.NoError(t, err)
	require.Len(t, standings, 3)

	assert.Equal(t, Standing{Rank: 1, PlayerID: 3, Name: "Anna", Score: 30}, standings[0])
	assert.Equal(t, Standing{Rank: 2, PlayerID: 1, Name: "Player_1", Score: 10}, standings[1])
	assert.Equal(t, Standing{Rank: 3, PlayerID: 4, Name: "Player_4", Score: 10}, standings[2])

	env.scores.setFail(true)
	_, err = env.svc.Leaderboard(ctx, testChat)
	assert.ErrorIs(t, err, errStoreDown)
}

func TestMatchService_ResetLeaderboard(t *testing.T) {
	env := newTestEnv(t, plainSettings(), time.Second)
	ctx := context.Background()
	require.NoError(t, env.scores.SaveOverallScores(ctx, testChat, map[int64]int{1: 10}))

	require.NoError(t, env.svc.ResetLeaderboard(ctx, testChat))
	standings, err := env.svc.Leaderboard(ctx, testChat)
	require.NoError(t, err)
	assert.Empty(t, standings)
	assert.Equal(t, "📊 Nessuna classifica disponibile.", FormatLeaderboard("📊 Classifica", standings))
}
