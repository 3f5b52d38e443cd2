package leaderboard

import (
	"context"
	"testing"
	"time"

	"convtrainer/internal/models"
	"convtrainer/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, store.Store) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	gs, err := store.NewGormStore(db)
	require.NoError(t, err)
	return NewService(gs), gs
}

func TestTokenReplayRejected(t *testing.T) {
	svc, s := newTestService(t)
	ctx := context.Background()

	sessionID := uuid.New().String()
	require.NoError(t, s.GameSessions().Insert(ctx, models.GameSessionToken{
		SessionID: sessionID,
		UserID:    "u1",
		Mode:      models.ModeClassic,
		Conv:      models.ConvBinaryStandalone,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(2 * time.Hour),
	}))

	err := svc.SubmitScore(ctx, SubmitScoreInput{SessionID: sessionID, UserID: "u1", Mode: models.ModeClassic, Conv: models.ConvBinaryStandalone, Score: 20})
	require.NoError(t, err)

	err = svc.SubmitScore(ctx, SubmitScoreInput{SessionID: sessionID, UserID: "u1", Mode: models.ModeClassic, Conv: models.ConvBinaryStandalone, Score: 20})
	require.ErrorIs(t, err, ErrTokenAlreadyUsed)

	progress, err := svc.GetProgress(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, 0, progress.TotalXp) // SubmitScore doesn't award XP directly; UpdateProgress does
}

func TestXPMonotonicity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	var last int
	for i := 0; i < 5; i++ {
		p, err := svc.UpdateProgress(ctx, UpdateProgressInput{UserID: "u2", XPEarned: 10})
		require.NoError(t, err)
		require.GreaterOrEqual(t, p.TotalXp, last)
		last = p.TotalXp
	}
}
