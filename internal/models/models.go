// Package models holds the in-memory and persisted shapes shared across
// the conversion trainer service.
package models

import "time"

// Role is a Principal's authorization level.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Principal is resolved from a request by the Session & Auth Adapter.
// A guest Principal has no UserID.
type Principal struct {
	UserID string
	Role   Role
}

func (p Principal) IsGuest() bool {
	return p.Role == RoleGuest || p.UserID == ""
}

// ParticipantRole distinguishes scored players from spectators.
type ParticipantRole string

const (
	ParticipantPlayer    ParticipantRole = "player"
	ParticipantSpectator ParticipantRole = "spectator"
)

// RoomStatus is the Room Core state machine position. It only moves
// forward: lobby -> syncing -> playing -> ended.
type RoomStatus string

const (
	RoomLobby   RoomStatus = "lobby"
	RoomSyncing RoomStatus = "syncing"
	RoomPlaying RoomStatus = "playing"
	RoomEnded   RoomStatus = "ended"
)

// Visibility controls who may join a Room without a tournament bracket.
type Visibility string

const (
	VisibilityPrivate       Visibility = "private"
	VisibilityPublic        Visibility = "public"
	VisibilityPublicPass    Visibility = "public_password"
)

// EndReason records why a Room transitioned to ended.
type EndReason string

const (
	EndGoalReached EndReason = "goal_reached"
	EndTimeUp      EndReason = "time_up"
	EndHostEnded   EndReason = "host_ended"
	EndAllLeft     EndReason = "all_left"
)

// GoalType selects the end-condition policy for a Room.
type GoalType string

const (
	GoalFirstTo    GoalType = "first_to"
	GoalMostInTime GoalType = "most_in_time"
	GoalTimed      GoalType = "timed"
	GoalStreak     GoalType = "streak"
)

// Mode selects the game-mode specific scoring/pacing rules.
type Mode string

const (
	ModeClassic         Mode = "classic"
	ModeStreakChallenge Mode = "streak-challenge"
	ModeSurvival        Mode = "survival"
	ModeSpeedRound      Mode = "speed-round"
	ModeNibbleSprint    Mode = "nibble-sprint"
)

// Conv selects the conversion kind driving question generation.
type Conv string

const (
	ConvBinaryStandalone Conv = "binary-standalone"
	ConvHexStandalone    Conv = "hex-standalone"
	ConvIPv4Full         Conv = "ipv4-full"
	ConvIPv6Hextet       Conv = "ipv6-hextet"
)

// GoalValue is a loosely-typed goal payload; which fields are populated
// depends on GoalType/Mode (FirstTo, TimeSeconds, Lives).
type GoalValue struct {
	FirstTo     int `json:"firstTo,omitempty"`
	TimeSeconds int `json:"timeSeconds,omitempty"`
	Lives       int `json:"lives,omitempty"`
}

// RoomConfig is the immutable-after-creation configuration of a Room.
type RoomConfig struct {
	Mode             Mode       `json:"mode"`
	Conv             Conv       `json:"conv"`
	GoalType         GoalType   `json:"goalType"`
	GoalValue        GoalValue  `json:"goalValue"`
	Visibility       Visibility `json:"visibility"`
	PasswordHash     string     `json:"-"`
	MaxPlayers       int        `json:"maxPlayers"`
	ShowLeaderboard  bool       `json:"showLeaderboard"`
	ShowPowerTable   bool       `json:"showPowerTable"`
}

// TournamentRef back-links a bracket Room to its owning Tournament.
type TournamentRef struct {
	TournamentID string
	BracketIndex int
}

// Question is the currently-live prompt for a Room or a single player,
// depending on pacing. CanonicalAnswer is never serialized to clients.
type Question struct {
	Index           int    `json:"index"`
	Value           string `json:"value"`
	CanonicalAnswer string `json:"-"`
	FirstCorrectAt  time.Time `json:"-"`
}

// Participant is one joined identity in a Room.
type Participant struct {
	ParticipantID         string
	DisplayName           string
	Role                  ParticipantRole
	IsHost                bool
	Score                 int
	Lives                 int
	Eliminated            bool
	BestStreakThisSession int
	CurrentStreak         int
	Connected             bool
	DisconnectedAt        time.Time
	UserID                string
	GuestTag              string
	ScoreReachedAt        time.Time
}

func (p *Participant) IsGuest() bool {
	return p.UserID == ""
}

// ChatMessage is transient; a Room retains only the last 100.
type ChatMessage struct {
	ParticipantID string    `json:"participantId"`
	DisplayName   string    `json:"displayName"`
	Message       string    `json:"message"`
	Timestamp     time.Time `json:"timestamp"`
}

// LeaderboardEntry is a ranked view of one participant for WS/HTTP output.
type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	IsGuest     bool   `json:"isGuest"`
}

// TournamentStatus mirrors RoomStatus at the tournament granularity.
type TournamentStatus string

const (
	TournamentLobby   TournamentStatus = "lobby"
	TournamentRunning TournamentStatus = "running"
	TournamentEnded   TournamentStatus = "ended"
)

// GameSessionToken is a one-shot anti-cheat credential binding a score
// submission to a server-issued game instance.
type GameSessionToken struct {
	SessionID string
	UserID    string
	RoomID    string
	Mode      Mode
	Conv      Conv
	IssuedAt  time.Time
	ExpiresAt time.Time
	Consumed  bool
}

// ConsumeStatus is the result of GameSessions.ConsumeAtomic.
type ConsumeStatus string

const (
	ConsumeOK           ConsumeStatus = "OK"
	ConsumeNotFound     ConsumeStatus = "NOT_FOUND"
	ConsumeMismatch     ConsumeStatus = "MISMATCH"
	ConsumeExpired      ConsumeStatus = "EXPIRED"
	ConsumeAlreadyUsed  ConsumeStatus = "ALREADY_USED"
)

// ConversionScore is a persisted, immutable score row.
type ConversionScore struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index" json:"userId"`
	Mode      Mode      `json:"mode"`
	Conv      Conv      `json:"conv"`
	Score     int       `json:"score"`
	Metadata  string    `json:"metadata"`
	SessionID string    `gorm:"uniqueIndex" json:"sessionId"`
	CreatedAt time.Time `json:"createdAt"`
}

// ConversionProgress is the single persisted per-user progress row.
type ConversionProgress struct {
	UserID            string    `gorm:"primaryKey" json:"userId"`
	TotalXp           int       `json:"totalXp"`
	Level             int       `json:"level"`
	BestStreak        int       `json:"bestStreak"`
	BestClassicStreak int       `json:"bestClassicStreak"`
	DailyStreak       int       `json:"dailyStreak"`
	LastPlayedDate    string    `json:"lastPlayedDate"` // YYYY-MM-DD, UTC
	BestSpeedRound    int       `json:"bestSpeedRound"`
	BestSurvival      int       `json:"bestSurvival"`
	BestNibbleSprint  int       `json:"bestNibbleSprint"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Achievement is a persisted, idempotent per-user unlock.
type Achievement struct {
	UserID        string    `gorm:"primaryKey;uniqueIndex:idx_user_achievement" json:"userId"`
	AchievementID string    `gorm:"primaryKey;uniqueIndex:idx_user_achievement" json:"achievementId"`
	UnlockedAt    time.Time `json:"unlockedAt"`
}

// User is the external, consumed identity. Updated only by out-of-core
// flows; the core treats it as read-only.
type User struct {
	UserID    string    `gorm:"primaryKey" json:"userId"`
	Name      string    `json:"name"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}
