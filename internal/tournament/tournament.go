// Package tournament implements the Tournament Orchestrator: bracket
// allocation into fixed-size Rooms, admin-gated start, and aggregate
// completion. Generalized from internal/tournament.Service's
// registration/capacity bookkeeping. There is no background auto-start:
// a tournament starts only through Start.
package tournament

import (
	"errors"
	"math"
	"sync"

	"convtrainer/internal/models"
	"convtrainer/internal/room"
)

var (
	ErrNotFound       = errors.New("tournament: not found")
	ErrForbidden      = errors.New("tournament: forbidden, admin required")
	ErrFull           = errors.New("tournament: full")
	ErrAlreadyStarted = errors.New("tournament: already started")
)

// RoomFactory creates a fresh bracket Room; supplied by the wiring layer
// so this package never imports internal/registry or internal/hub.
type RoomFactory func(id, code string, config models.RoomConfig, hostDisplayName string) (*room.Room, string)

// Tournament owns many bracket Rooms under one tournamentId. Mutations
// (Join, Start) are serialized by mu, the direct analog of the bracket
// allocation "single serial region per tournament" required by spec §4.E.
type Tournament struct {
	mu sync.Mutex

	id            string
	code          string
	name          string
	config        models.RoomConfig
	bracketSize   int
	maxPlayers    int
	creatorUserID string
	status        models.TournamentStatus

	brackets []*room.Room

	onBracketCreated func(*room.Room)
	onEnded          func(*Tournament)

	createFactory RoomFactory
	newRoomID     func() string
	newRoomCode   func() string
}

func New(id, code, name string, config models.RoomConfig, bracketSize, maxPlayers int, creatorUserID string, factory RoomFactory, newRoomID, newRoomCode func() string, onBracketCreated func(*room.Room), onEnded func(*Tournament)) *Tournament {
	return &Tournament{
		id:               id,
		code:             code,
		name:             name,
		config:           config,
		bracketSize:      bracketSize,
		maxPlayers:       maxPlayers,
		creatorUserID:    creatorUserID,
		status:           models.TournamentLobby,
		createFactory:    factory,
		newRoomID:        newRoomID,
		newRoomCode:      newRoomCode,
		onBracketCreated: onBracketCreated,
		onEnded:          onEnded,
	}
}

func (t *Tournament) ID() string   { return t.id }
func (t *Tournament) Code() string { return t.code }

func (t *Tournament) maxBrackets() int {
	return int(math.Ceil(float64(t.maxPlayers) / float64(t.bracketSize)))
}

// Join atomically selects the target bracket per spec §3 invariants:
// the first bracket with spare capacity and status==lobby, or a freshly
// appended bracket if none qualifies and the tournament has room for one.
func (t *Tournament) Join(displayName string) (participantID string, bracketIndex int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.totalPlayerCountLocked() >= t.maxPlayers {
		return "", 0, ErrFull
	}

	for i, b := range t.brackets {
		snap := b.GetState()
		if snap.Status != models.RoomLobby {
			continue
		}
		if t.playerCount(snap) >= t.bracketSize {
			continue
		}
		res, joinErr := b.Join(room.JoinInput{DisplayName: displayName})
		if joinErr != nil {
			continue
		}
		return res.ParticipantID, i, nil
	}

	if len(t.brackets) >= t.maxBrackets() {
		return "", 0, ErrFull
	}

	bracketIndex = len(t.brackets)
	roomID := t.newRoomID()
	roomCode := t.newRoomCode()
	bracket, hostParticipantID := t.createFactory(roomID, roomCode, t.config, displayName)
	bracket.SetTournamentRef(models.TournamentRef{TournamentID: t.id, BracketIndex: bracketIndex})
	t.brackets = append(t.brackets, bracket)
	if t.onBracketCreated != nil {
		t.onBracketCreated(bracket)
	}
	return hostParticipantID, bracketIndex, nil
}

func (t *Tournament) playerCount(snap room.RoomSnapshot) int {
	n := 0
	for _, p := range snap.Participants {
		if p.Role == models.ParticipantPlayer {
			n++
		}
	}
	return n
}

// totalPlayerCountLocked sums players across every bracket, the overall
// tournament-wide ceiling independent of maxBrackets' per-bracket rounding.
func (t *Tournament) totalPlayerCountLocked() int {
	total := 0
	for _, b := range t.brackets {
		total += t.playerCount(b.GetState())
	}
	return total
}

// Start transitions every lobby bracket to syncing atomically. Only an
// admin Principal may call this.
func (t *Tournament) Start(principal models.Principal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if principal.Role != models.RoleAdmin {
		return ErrForbidden
	}
	if len(t.brackets) == 0 {
		return ErrNotFound
	}
	for _, b := range t.brackets {
		if b.GetState().Status == models.RoomLobby {
			_ = b.StartFromTournament()
		}
	}
	t.status = models.TournamentRunning
	return nil
}

// BracketEnded is invoked (by the wiring layer, via each Room's onEnded
// callback) whenever a bracket reaches ended. Once every bracket has
// ended, the tournament transitions to ended and the aggregate
// leaderboard is emitted on the control channel.
func (t *Tournament) BracketEnded(bracketIndex int) {
	t.mu.Lock()
	allEnded := true
	for _, b := range t.brackets {
		if b.GetState().Status != models.RoomEnded {
			allEnded = false
			break
		}
	}
	if allEnded && t.status != models.TournamentEnded {
		t.status = models.TournamentEnded
	}
	shouldFire := allEnded
	t.mu.Unlock()

	if shouldFire && t.onEnded != nil {
		t.onEnded(t)
	}
}

type BracketSummary struct {
	BracketIndex     int
	Status           models.RoomStatus
	ParticipantCount int
}

func (t *Tournament) Brackets() []BracketSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]BracketSummary, 0, len(t.brackets))
	for i, b := range t.brackets {
		snap := b.GetState()
		out = append(out, BracketSummary{BracketIndex: i, Status: snap.Status, ParticipantCount: t.playerCount(snap)})
	}
	return out
}

func (t *Tournament) AggregateLeaderboard() []models.LeaderboardEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []models.LeaderboardEntry
	for _, b := range t.brackets {
		all = append(all, b.GetState().Leaderboard...)
	}
	return all
}

func (t *Tournament) Status() models.TournamentStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Tournament) ParticipantCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalPlayerCountLocked()
}

func (t *Tournament) Name() string             { return t.name }
func (t *Tournament) Config() models.RoomConfig { return t.config }
func (t *Tournament) BracketSize() int          { return t.bracketSize }
func (t *Tournament) MaxPlayers() int           { return t.maxPlayers }
func (t *Tournament) CreatorUserID() string     { return t.creatorUserID }
