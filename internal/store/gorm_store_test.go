package store

import (
	"context"
	"testing"
	"time"

	"convtrainer/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	s, err := NewGormStore(db)
	require.NoError(t, err)
	return s
}

func TestGameSessionConsumeAtomicSingleUse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	token := models.GameSessionToken{
		SessionID: uuid.New().String(),
		UserID:    "u1",
		Mode:      models.ModeClassic,
		Conv:      models.ConvBinaryStandalone,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(2 * time.Hour),
	}
	require.NoError(t, s.GameSessions().Insert(ctx, token))

	status, err := s.GameSessions().ConsumeAtomic(ctx, token.SessionID, "u1", models.ModeClassic, models.ConvBinaryStandalone)
	require.NoError(t, err)
	require.Equal(t, models.ConsumeOK, status)

	status, err = s.GameSessions().ConsumeAtomic(ctx, token.SessionID, "u1", models.ModeClassic, models.ConvBinaryStandalone)
	require.NoError(t, err)
	require.Equal(t, models.ConsumeAlreadyUsed, status)
}

func TestGameSessionConsumeAtomicMismatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	token := models.GameSessionToken{
		SessionID: uuid.New().String(),
		UserID:    "u1",
		Mode:      models.ModeClassic,
		Conv:      models.ConvBinaryStandalone,
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(2 * time.Hour),
	}
	require.NoError(t, s.GameSessions().Insert(ctx, token))

	status, err := s.GameSessions().ConsumeAtomic(ctx, token.SessionID, "other-user", models.ModeClassic, models.ConvBinaryStandalone)
	require.NoError(t, err)
	require.Equal(t, models.ConsumeMismatch, status)
}

func TestScoreInsertUniqueOnSessionID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	sessionID := uuid.New().String()
	row := models.ConversionScore{UserID: "u1", Mode: models.ModeClassic, Conv: models.ConvBinaryStandalone, Score: 5, SessionID: sessionID, CreatedAt: time.Now()}

	require.NoError(t, s.Scores().Insert(ctx, row))
	err := s.Scores().Insert(ctx, row)
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestProgressUpsertMonotonicXP(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p1, err := s.Progress().UpsertAtomic(ctx, "u1", ProgressDelta{XPEarned: 10, Now: time.Now()})
	require.NoError(t, err)
	require.Equal(t, 10, p1.TotalXp)

	p2, err := s.Progress().UpsertAtomic(ctx, "u1", ProgressDelta{XPEarned: 5, Now: time.Now()})
	require.NoError(t, err)
	require.Equal(t, 15, p2.TotalXp)
	require.GreaterOrEqual(t, p2.TotalXp, p1.TotalXp)
}

func TestProgressDailyStreakAdvancesOnConsecutiveDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	day1 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	p1, err := s.Progress().UpsertAtomic(ctx, "u1", ProgressDelta{RecordPlayed: true, Now: day1})
	require.NoError(t, err)
	require.Equal(t, 1, p1.DailyStreak)

	p2, err := s.Progress().UpsertAtomic(ctx, "u1", ProgressDelta{RecordPlayed: true, Now: day2})
	require.NoError(t, err)
	require.Equal(t, 2, p2.DailyStreak)
}

func TestAchievementUnlockIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	unlocked, err := s.Achievements().InsertIfAbsent(ctx, "u1", "first-win")
	require.NoError(t, err)
	require.True(t, unlocked)

	unlocked, err = s.Achievements().InsertIfAbsent(ctx, "u1", "first-win")
	require.NoError(t, err)
	require.False(t, unlocked)
}
