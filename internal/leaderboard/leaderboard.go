// Package leaderboard implements the Leaderboard & Progress Service:
// score submission with anti-cheat token consumption, XP/level/streak
// bookkeeping, achievement unlocks, and leaderboard queries. Generalized
// from internal/currency.Service's transactional chip-ledger idiom.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"convtrainer/internal/models"
	"convtrainer/internal/store"

	"github.com/google/uuid"
)

var (
	ErrTokenNotFound    = errors.New("leaderboard: session token not found")
	ErrTokenMismatch    = errors.New("leaderboard: session token mode/conv mismatch")
	ErrTokenExpired     = errors.New("leaderboard: session token expired")
	ErrTokenAlreadyUsed = errors.New("leaderboard: session token already used")
)

// Service mirrors currency.Service: a narrow struct over the Store it
// needs, every externally visible operation wrapped so partial failure
// never leaves XP/score inconsistent.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

type SubmitScoreInput struct {
	SessionID string
	UserID    string
	Mode      models.Mode
	Conv      models.Conv
	Score     int
	Metadata  map[string]interface{}
}

// SubmitScore consumes the token, inserts the score row, and folds the
// result into ConversionProgress with monotonic-max semantics — the same
// "consume credential, then apply effect" shape as
// currency.Service.DeductChips followed by an audit-row insert.
func (s *Service) SubmitScore(ctx context.Context, in SubmitScoreInput) error {
	status, err := s.store.GameSessions().ConsumeAtomic(ctx, in.SessionID, in.UserID, in.Mode, in.Conv)
	if err != nil {
		return err
	}
	switch status {
	case models.ConsumeNotFound:
		return ErrTokenNotFound
	case models.ConsumeMismatch:
		return ErrTokenMismatch
	case models.ConsumeExpired:
		return ErrTokenExpired
	case models.ConsumeAlreadyUsed:
		return ErrTokenAlreadyUsed
	}

	metadataJSON, _ := json.Marshal(in.Metadata)
	row := models.ConversionScore{
		ID:        uuid.New().String(),
		UserID:    in.UserID,
		Mode:      in.Mode,
		Conv:      in.Conv,
		Score:     in.Score,
		Metadata:  string(metadataJSON),
		SessionID: in.SessionID,
		CreatedAt: time.Now(),
	}
	if err := s.store.Scores().Insert(ctx, row); err != nil {
		return err
	}

	delta := store.ProgressDelta{Now: time.Now()}
	switch in.Mode {
	case models.ModeSpeedRound:
		delta.BestSpeedRound = in.Score
	case models.ModeNibbleSprint:
		delta.BestNibbleSprint = in.Score
	case models.ModeSurvival:
		delta.BestSurvival = in.Score
	}
	_, err = s.store.Progress().UpsertAtomic(ctx, in.UserID, delta)
	return err
}

type UpdateProgressInput struct {
	UserID            string
	XPEarned          int
	BestStreak        int
	BestClassicStreak int
	RecordPlayed      bool
}

// UpdateProgress applies XP/streak deltas with monotonic-max semantics.
func (s *Service) UpdateProgress(ctx context.Context, in UpdateProgressInput) (models.ConversionProgress, error) {
	return s.store.Progress().UpsertAtomic(ctx, in.UserID, store.ProgressDelta{
		XPEarned:          in.XPEarned,
		BestStreak:        in.BestStreak,
		BestClassicStreak: in.BestClassicStreak,
		RecordPlayed:      in.RecordPlayed,
		Now:               time.Now(),
	})
}

// UnlockAchievement is idempotent; a repeat unlock is a silent no-op.
func (s *Service) UnlockAchievement(ctx context.Context, userID, achievementID string) (bool, error) {
	return s.store.Achievements().InsertIfAbsent(ctx, userID, achievementID)
}

func (s *Service) GetProgress(ctx context.Context, userID string) (models.ConversionProgress, error) {
	return s.store.Progress().Get(ctx, userID)
}

func (s *Service) GetLeaderboard(ctx context.Context, mode models.Mode, conv models.Conv, limit int) ([]store.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.store.Leaderboards().Top(ctx, mode, conv, limit)
}

func (s *Service) GetDailyStreakLeaderboard(ctx context.Context, limit int) ([]store.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.store.Leaderboards().DailyStreakTop(ctx, limit)
}

func (s *Service) GetXPLeaderboard(ctx context.Context, limit int) ([]store.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.store.Leaderboards().XpTop(ctx, limit)
}
