package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"convtrainer/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRow is the persisted shape of a GameSessionToken. Kept separate
// from models.GameSessionToken so the in-memory type stays free of gorm
// tags, matching the teacher's split between internal/models (wire
// shapes) and per-service persisted rows.
type sessionRow struct {
	SessionID string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	RoomID    string
	Mode      string
	Conv      string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

func (sessionRow) TableName() string { return "game_sessions" }

// GormStore is the production Store implementation, grounded on
// internal/currency.Service and internal/tournament.Service: a *gorm.DB
// held by the struct, transactions with row locks for anything that must
// be atomic, sentinel errors translated at the boundary.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore runs AutoMigrate for every row type this store owns and
// returns a ready Store. Migration failures are fatal at startup, the
// same way the teacher treats a failed initial DB connection.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(
		&models.User{},
		&sessionRow{},
		&models.ConversionScore{},
		&models.ConversionProgress{},
		&models.Achievement{},
	); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Users() UserStore               { return (*userStore)(s) }
func (s *GormStore) GameSessions() GameSessionStore { return (*gameSessionStore)(s) }
func (s *GormStore) Scores() ScoreStore             { return (*scoreStore)(s) }
func (s *GormStore) Progress() ProgressStore        { return (*progressStore)(s) }
func (s *GormStore) Achievements() AchievementStore { return (*achievementStore)(s) }
func (s *GormStore) Leaderboards() LeaderboardStore { return (*leaderboardStore)(s) }

type userStore GormStore

func (u *userStore) Get(ctx context.Context, userID string) (*models.User, error) {
	var row models.User
	if err := u.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (u *userStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var row models.User
	if err := u.db.WithContext(ctx).First(&row, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

type gameSessionStore GormStore

func (g *gameSessionStore) Insert(ctx context.Context, token models.GameSessionToken) error {
	row := sessionRow{
		SessionID: token.SessionID,
		UserID:    token.UserID,
		RoomID:    token.RoomID,
		Mode:      string(token.Mode),
		Conv:      string(token.Conv),
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return err
	}
	return nil
}

// ConsumeAtomic row-locks the session and compares-and-marks inside a
// single transaction, exactly like currency.Service.deductChipsInTx
// row-locks the user balance before mutating it.
func (g *gameSessionStore) ConsumeAtomic(ctx context.Context, sessionID, userID string, mode models.Mode, conv models.Conv) (models.ConsumeStatus, error) {
	var status models.ConsumeStatus
	err := (*gorm.DB)(g.db).Transaction(func(tx *gorm.DB) error {
		var row sessionRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "session_id = ?", sessionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = models.ConsumeNotFound
			return nil
		}
		if err != nil {
			return err
		}
		if row.Consumed {
			status = models.ConsumeAlreadyUsed
			return nil
		}
		if row.UserID != userID || row.Mode != string(mode) || row.Conv != string(conv) {
			status = models.ConsumeMismatch
			return nil
		}
		if time.Now().After(row.ExpiresAt) {
			status = models.ConsumeExpired
			return nil
		}
		row.Consumed = true
		status = models.ConsumeOK
		return tx.Save(&row).Error
	})
	return status, err
}

type scoreStore GormStore

func (s *scoreStore) Insert(ctx context.Context, row models.ConversionScore) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	err := s.db.WithContext(ctx).Create(&row).Error
	if err != nil && isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

type progressStore GormStore

// UpsertAtomic applies monotonic-max semantics under a row lock, mirroring
// currency.Service's pattern of locking the mutated row before computing
// the new value from the old one.
func (p *progressStore) UpsertAtomic(ctx context.Context, userID string, delta ProgressDelta) (models.ConversionProgress, error) {
	var result models.ConversionProgress
	err := (*gorm.DB)(p.db).Transaction(func(tx *gorm.DB) error {
		var row models.ConversionProgress
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&row, "user_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = models.ConversionProgress{UserID: userID}
		} else if err != nil {
			return err
		}

		row.TotalXp += delta.XPEarned
		if row.TotalXp < 0 {
			row.TotalXp = 0
		}
		row.Level = row.TotalXp / 100
		row.BestStreak = max(row.BestStreak, delta.BestStreak)
		row.BestClassicStreak = max(row.BestClassicStreak, delta.BestClassicStreak)
		row.BestSpeedRound = max(row.BestSpeedRound, delta.BestSpeedRound)
		row.BestSurvival = max(row.BestSurvival, delta.BestSurvival)
		row.BestNibbleSprint = max(row.BestNibbleSprint, delta.BestNibbleSprint)

		if delta.RecordPlayed {
			today := dayString(delta.Now)
			switch {
			case row.LastPlayedDate == "":
				row.DailyStreak = 1
			case row.LastPlayedDate == today:
				// unchanged
			case row.LastPlayedDate == dayString(delta.Now.AddDate(0, 0, -1)):
				row.DailyStreak++
			default:
				row.DailyStreak = 1
			}
			row.LastPlayedDate = today
		}
		row.UpdatedAt = time.Now()

		result = row
		return tx.Save(&row).Error
	})
	return result, err
}

func (p *progressStore) Get(ctx context.Context, userID string) (models.ConversionProgress, error) {
	var row models.ConversionProgress
	err := p.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ConversionProgress{UserID: userID}, nil
	}
	return row, err
}

func dayString(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

type achievementStore GormStore

func (a *achievementStore) InsertIfAbsent(ctx context.Context, userID, achievementID string) (bool, error) {
	row := models.Achievement{UserID: userID, AchievementID: achievementID, UnlockedAt: time.Now()}
	result := a.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

type leaderboardStore GormStore

func (l *leaderboardStore) Top(ctx context.Context, mode models.Mode, conv models.Conv, limit int) ([]LeaderboardRow, error) {
	var rows []struct {
		UserID    string
		Score     int
		CreatedAt time.Time
	}
	q := l.db.WithContext(ctx).Model(&models.ConversionScore{})
	if mode != "" {
		q = q.Where("mode = ?", mode)
	}
	if conv != "" {
		q = q.Where("conv = ?", conv)
	}
	if err := q.Order("score desc, created_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardRow{UserID: r.UserID, UserName: r.UserID, Score: r.Score, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

func (l *leaderboardStore) DailyStreakTop(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []models.ConversionProgress
	if err := l.db.WithContext(ctx).Order("daily_streak desc, updated_at asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardRow{UserID: r.UserID, UserName: r.UserID, DailyStreak: r.DailyStreak})
	}
	return out, nil
}

func (l *leaderboardStore) XpTop(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	var rows []models.ConversionProgress
	if err := l.db.WithContext(ctx).Order("total_xp desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]LeaderboardRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, LeaderboardRow{UserID: r.UserID, UserName: r.UserID, TotalXp: r.TotalXp, Level: r.Level})
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	// MySQL and SQLite drivers both surface unique-constraint failures as
	// plain *errors.errorString with no shared sentinel; match on the
	// substrings both drivers are known to produce rather than import
	// driver-specific error types into the store.
	msg := err.Error()
	for _, sub := range []string{"UNIQUE constraint", "Duplicate entry", "duplicate key"} {
		if strings.Contains(msg, sub) {
			return true
		}
	}
	return false
}
