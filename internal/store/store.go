// Package store defines the narrow persistence contract consumed by the
// Session & Auth Adapter and the Leaderboard & Progress Service, and a
// gorm-backed implementation of it.
package store

import (
	"context"
	"errors"
	"time"

	"convtrainer/internal/models"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// ProgressDelta is applied server-side with monotonic-max semantics by
// Progress.UpsertAtomic.
type ProgressDelta struct {
	XPEarned          int
	BestStreak        int
	BestClassicStreak int
	BestSpeedRound    int
	BestSurvival      int
	BestNibbleSprint  int
	RecordPlayed      bool
	Now               time.Time
}

// Store is the full persistence contract from spec §6.5, grouped by
// sub-resource the way the teacher groups services by domain
// (currency.Service, tournament.Service).
type Store interface {
	Users() UserStore
	GameSessions() GameSessionStore
	Scores() ScoreStore
	Progress() ProgressStore
	Achievements() AchievementStore
	Leaderboards() LeaderboardStore
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

type GameSessionStore interface {
	Insert(ctx context.Context, token models.GameSessionToken) error
	ConsumeAtomic(ctx context.Context, sessionID, userID string, mode models.Mode, conv models.Conv) (models.ConsumeStatus, error)
}

type ScoreStore interface {
	// Insert is unique on SessionID; a duplicate insert returns
	// ErrAlreadyExists rather than failing silently.
	Insert(ctx context.Context, row models.ConversionScore) error
}

type ProgressStore interface {
	UpsertAtomic(ctx context.Context, userID string, delta ProgressDelta) (models.ConversionProgress, error)
	Get(ctx context.Context, userID string) (models.ConversionProgress, error)
}

type AchievementStore interface {
	InsertIfAbsent(ctx context.Context, userID, achievementID string) (unlocked bool, err error)
}

type LeaderboardRow struct {
	UserID    string
	UserName  string
	Score     int
	TotalXp   int
	Level     int
	DailyStreak int
	CreatedAt time.Time
}

type LeaderboardStore interface {
	Top(ctx context.Context, mode models.Mode, conv models.Conv, limit int) ([]LeaderboardRow, error)
	DailyStreakTop(ctx context.Context, limit int) ([]LeaderboardRow, error)
	XpTop(ctx context.Context, limit int) ([]LeaderboardRow, error)
}
