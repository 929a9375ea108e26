package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRoomPhaseRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveRoomPhase(ctx, "AB1C", "waiting"))
	require.NoError(t, s.SaveRoomPhase(ctx, "AB1C", "drawing"))
	require.NoError(t, s.SaveRoomPhase(ctx, "ZZ99", "ended"))

	require.NoError(t, s.ResetUnfinished(ctx))

	var phase string
	require.NoError(t, s.db.QueryRow(`SELECT phase FROM rooms WHERE code = 'AB1C'`).Scan(&phase))
	assert.Equal(t, "waiting", phase, "in-progress rooms reset to waiting on startup")

	require.NoError(t, s.db.QueryRow(`SELECT phase FROM rooms WHERE code = 'ZZ99'`).Scan(&phase))
	assert.Equal(t, "ended", phase, "ended rooms stay ended")
}

func TestScoreAndGamesPlayedAccumulate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddScore(ctx, "u1", "alice", 130))
	require.NoError(t, s.AddScore(ctx, "u1", "alice", 20))
	require.NoError(t, s.AddGamePlayed(ctx, "u1", "alice"))
	require.NoError(t, s.AddGamePlayed(ctx, "u2", "bob"))

	u, err := s.Profile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 150, u.Score)
	assert.Equal(t, 1, u.GamesPlayed)

	_, err = s.Profile(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLeaderboardOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddScore(ctx, "u1", "alice", 100))
	require.NoError(t, s.AddScore(ctx, "u2", "bob", 300))
	require.NoError(t, s.AddScore(ctx, "u3", "carol", 200))

	users, err := s.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Name)
	assert.Equal(t, "carol", users[1].Name)
}
