// Package room implements the Room Core: the per-room state machine,
// roster, scoring, question pacing, and end-condition evaluation. It is
// the generalization of the poker engine's Game/Table pair — a single
// mutex-guarded struct with an onEvent callback fired for every observable
// state change, and a GetState snapshot accessor for readers.
package room

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"convtrainer/internal/models"
	"convtrainer/internal/question"

	"github.com/google/uuid"
)

var (
	ErrRoomStarted      = errors.New("room: already started")
	ErrRoomFull         = errors.New("room: full")
	ErrPasswordRequired = errors.New("room: password required")
	ErrPasswordInvalid  = errors.New("room: invalid password")
	ErrNameInvalid      = errors.New("room: display name invalid")
	ErrForbidden        = errors.New("room: forbidden")
	ErrInvalidState     = errors.New("room: operation invalid in current state")
	ErrParticipantGone  = errors.New("room: participant not found")
)

const (
	allLeftGrace      = 30 * time.Second
	reconnectGrace    = 30 * time.Second
	syncRoundWatchdog = 5 * time.Second
	maxChatHistory    = 100
	speedRoundTime    = 60 * time.Second
	nibbleSprintTime  = 30 * time.Second
)

// Event is emitted synchronously, inside the Room's lock, for every
// observable state change. The WS Hub subscribes to these and fans them
// out to connections.
type Event struct {
	RoomID  string
	Type    string
	Payload interface{}
}

// CheckPassword is supplied by the caller (internal/auth.CheckRoomPassword)
// so this package never depends on golang.org/x/crypto directly.
type CheckPassword func(hash, candidate string) bool

// Room owns one room's state. All public methods lock mu for their
// entire duration, the same discipline as engine.Game: "Protects all
// game state modifications."
type Room struct {
	mu sync.Mutex

	id   string
	code string

	config models.RoomConfig
	status models.RoomStatus

	participants map[string]*models.Participant
	order        []string // insertion order, for host-transfer tie-break

	hostParticipantID string

	syncRound int
	syncAcked map[string]bool

	sharedQuestion    *models.Question
	perPlayerQuestion map[string]*models.Question
	questionIndex     int

	chat []models.ChatMessage

	createdAt    time.Time
	startedAt    time.Time
	endedAt      time.Time
	endReason    models.EndReason
	lastActivity time.Time

	protocolErrors map[string][]time.Time

	endTimer     *time.Timer
	allLeftTimer *time.Timer
	graceTimers  map[string]*time.Timer
	syncWatchdog *time.Timer

	tournamentRef *models.TournamentRef

	onEvent       func(Event)
	onEnded       func(*Room)
	checkPassword CheckPassword
}

// New constructs a Room in lobby state. onEvent is invoked synchronously
// under the lock for every emitted message; onEnded is invoked once,
// after the lock is released, when the room reaches ended.
func New(id, code string, config models.RoomConfig, hostDisplayName string, checkPassword CheckPassword, onEvent func(Event), onEnded func(*Room)) (*Room, string) {
	now := time.Now()
	r := &Room{
		id:                id,
		code:              code,
		config:            config,
		status:            models.RoomLobby,
		participants:      make(map[string]*models.Participant),
		syncAcked:         make(map[string]bool),
		perPlayerQuestion: make(map[string]*models.Question),
		protocolErrors:    make(map[string][]time.Time),
		graceTimers:       make(map[string]*time.Timer),
		createdAt:         now,
		lastActivity:      now,
		onEvent:           onEvent,
		onEnded:           onEnded,
		checkPassword:     checkPassword,
	}
	participantID := newOpaqueID()
	r.hostParticipantID = participantID
	r.participants[participantID] = &models.Participant{
		ParticipantID: participantID,
		DisplayName:   hostDisplayName,
		Role:          models.ParticipantPlayer,
		IsHost:        true,
		Connected:     true,
	}
	r.order = append(r.order, participantID)
	return r, participantID
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Code() string { return r.code }

func (r *Room) IsTerminal() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status == models.RoomEnded
}

func (r *Room) LastActivity() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) touch() { r.lastActivity = time.Now() }

// JoinInput is the public Join request.
type JoinInput struct {
	DisplayName string
	AsSpectator bool
	Password    string
	UserID      string
	GuestTag    string
}

type JoinResult struct {
	ParticipantID string
	Snapshot      RoomSnapshot
}

// Join admits a new participant per spec §4.D operation 1.
func (r *Room) Join(in JoinInput) (JoinResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	name := strings.TrimSpace(in.DisplayName)
	if n := len([]rune(name)); n < 1 || n > 40 {
		return JoinResult{}, ErrNameInvalid
	}

	role := models.ParticipantPlayer
	if in.AsSpectator {
		role = models.ParticipantSpectator
	}

	if role == models.ParticipantPlayer && r.status != models.RoomLobby {
		return JoinResult{}, ErrRoomStarted
	}
	if r.status == models.RoomEnded {
		return JoinResult{}, ErrRoomStarted
	}

	if r.config.Visibility == models.VisibilityPublicPass {
		if in.Password == "" {
			return JoinResult{}, ErrPasswordRequired
		}
		if r.checkPassword == nil || !r.checkPassword(r.config.PasswordHash, in.Password) {
			return JoinResult{}, ErrPasswordInvalid
		}
	}

	if role == models.ParticipantPlayer && r.playerCount() >= r.config.MaxPlayers {
		return JoinResult{}, ErrRoomFull
	}

	participantID := newOpaqueID()
	p := &models.Participant{
		ParticipantID: participantID,
		DisplayName:   name,
		Role:          role,
		Connected:     true,
		UserID:        in.UserID,
		GuestTag:      in.GuestTag,
	}
	r.participants[participantID] = p
	r.order = append(r.order, participantID)

	r.emit("roster_changed", nil)
	return JoinResult{ParticipantID: participantID, Snapshot: r.snapshotLocked()}, nil
}

// Leave removes a participant from the roster per spec §4.D operation 2.
func (r *Room) Leave(participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	p, ok := r.participants[participantID]
	if !ok {
		return ErrParticipantGone
	}
	wasHost := p.IsHost
	delete(r.participants, participantID)
	r.removeFromOrder(participantID)

	if wasHost {
		r.transferHostLocked()
	}

	if r.playerCount() == 0 && (r.status == models.RoomPlaying || r.status == models.RoomSyncing) {
		r.scheduleAllLeftLocked()
	}

	r.emit("roster_changed", nil)
	return nil
}

// Disconnect marks a participant disconnected and starts its reconnect
// grace window, per §4.F connection lifecycle step 5. If the departing
// participant is host, host transfer only happens once the grace window
// elapses with them still disconnected (Open Question resolved this way
// in SPEC_FULL.md §9).
func (r *Room) Disconnect(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.participants[participantID]
	if !ok || !p.Connected {
		return
	}
	p.Connected = false
	p.DisconnectedAt = time.Now()

	if t, exists := r.graceTimers[participantID]; exists {
		t.Stop()
	}
	r.graceTimers[participantID] = time.AfterFunc(reconnectGrace, func() {
		r.onGraceExpired(participantID)
	})
}

func (r *Room) onGraceExpired(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantID]
	if !ok || p.Connected {
		return
	}
	if p.IsHost {
		r.transferHostLocked()
	}
	if r.connectedPlayerCount() == 0 && (r.status == models.RoomPlaying || r.status == models.RoomSyncing) {
		r.scheduleAllLeftLocked()
	}
	r.emit("roster_changed", nil)
}

// Reconnect restores a previously-disconnected participant within its
// grace window.
func (r *Room) Reconnect(participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[participantID]
	if !ok {
		return ErrParticipantGone
	}
	if t, exists := r.graceTimers[participantID]; exists {
		t.Stop()
		delete(r.graceTimers, participantID)
	}
	p.Connected = true
	r.emit("roster_changed", nil)
	return nil
}

func (r *Room) transferHostLocked() {
	var next string
	var nextTime time.Time
	for _, id := range r.order {
		p, ok := r.participants[id]
		if !ok || p.Role != models.ParticipantPlayer || !p.Connected {
			continue
		}
		if next == "" || p.DisconnectedAt.Before(nextTime) {
			next = id
			nextTime = p.DisconnectedAt
		}
	}
	if next == "" {
		return
	}
	if old, ok := r.participants[r.hostParticipantID]; ok {
		old.IsHost = false
	}
	r.hostParticipantID = next
	r.participants[next].IsHost = true
}

func (r *Room) scheduleAllLeftLocked() {
	if r.allLeftTimer != nil {
		return
	}
	r.allLeftTimer = time.AfterFunc(allLeftGrace, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.connectedPlayerCount() > 0 || r.status == models.RoomEnded {
			r.allLeftTimer = nil
			return
		}
		r.endLocked(models.EndAllLeft)
	})
}

// SyncAck records a sync round acknowledgement per spec §4.D operation 3.
func (r *Room) SyncAck(participantID string, round int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	if r.status != models.RoomSyncing {
		return ErrInvalidState
	}
	p, ok := r.participants[participantID]
	if !ok || p.Role != models.ParticipantPlayer {
		return ErrParticipantGone
	}
	if round != r.syncRound {
		return nil // stale ack, ignore
	}
	r.syncAcked[participantID] = true

	allReady := true
	for _, id := range r.order {
		pp := r.participants[id]
		if pp.Role != models.ParticipantPlayer {
			continue
		}
		if !r.syncAcked[id] {
			allReady = false
			break
		}
	}
	r.emit("sync_round_complete", map[string]interface{}{"round": r.syncRound, "allReady": allReady})

	if allReady {
		r.stopSyncWatchdogLocked()
		if r.syncRound >= 3 {
			r.beginPlayingLocked()
		} else {
			r.syncRound++
			r.syncAcked = make(map[string]bool)
			r.scheduleSyncWatchdogLocked()
		}
	}
	return nil
}

// scheduleSyncWatchdogLocked arms the per-round sync watchdog (spec §5:
// 5s per round). If the round isn't unanimously acked in time, it forces
// the round forward exactly as an all-ready ack would, so a single
// unresponsive client can't stall the lobby indefinitely.
func (r *Room) scheduleSyncWatchdogLocked() {
	round := r.syncRound
	r.syncWatchdog = time.AfterFunc(syncRoundWatchdog, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.status != models.RoomSyncing || r.syncRound != round {
			return
		}
		r.emit("sync_round_complete", map[string]interface{}{"round": r.syncRound, "allReady": true, "timedOut": true})
		if r.syncRound >= 3 {
			r.beginPlayingLocked()
		} else {
			r.syncRound++
			r.syncAcked = make(map[string]bool)
			r.scheduleSyncWatchdogLocked()
		}
	})
}

func (r *Room) stopSyncWatchdogLocked() {
	if r.syncWatchdog != nil {
		r.syncWatchdog.Stop()
		r.syncWatchdog = nil
	}
}

// StartGame transitions lobby -> syncing. Only the host (or, for
// bracketed rooms, the owning Tournament Orchestrator) may call this.
func (r *Room) StartGame(participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	if r.status != models.RoomLobby {
		return ErrInvalidState
	}
	if participantID != "" && participantID != r.hostParticipantID {
		return ErrForbidden
	}
	r.enterSyncingLocked()
	return nil
}

// StartFromTournament is StartGame's tournament-authorized twin; it never
// checks hostParticipantID since the orchestrator itself is the caller.
func (r *Room) StartFromTournament() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	if r.status != models.RoomLobby {
		return ErrInvalidState
	}
	r.enterSyncingLocked()
	return nil
}

func (r *Room) enterSyncingLocked() {
	r.status = models.RoomSyncing
	r.syncRound = 0
	r.syncAcked = make(map[string]bool)
	for _, p := range r.participants {
		if p.Role == models.ParticipantPlayer {
			p.Score = 0
			p.Lives = 0
			p.Eliminated = false
			p.CurrentStreak = 0
			p.BestStreakThisSession = 0
		}
	}
	r.emit("sync_round_complete", map[string]interface{}{"round": 0, "allReady": false})
	r.scheduleSyncWatchdogLocked()
}

func (r *Room) beginPlayingLocked() {
	r.status = models.RoomPlaying
	r.startedAt = time.Now()
	r.questionIndex = 0

	if r.config.Mode == models.ModeSurvival {
		for _, p := range r.participants {
			if p.Role == models.ParticipantPlayer {
				p.Lives = r.config.GoalValue.Lives
				if p.Lives <= 0 {
					p.Lives = 1
				}
			}
		}
	}

	r.emit("game_started", nil)

	if isSharedPace(r.config.Mode) {
		g := question.Generate(r.config.Conv, r.config.Mode)
		r.sharedQuestion = &models.Question{Index: 0, Value: g.Value, CanonicalAnswer: g.Answer}
		r.emit("question", map[string]interface{}{"value": g.Value, "index": 0})
	} else {
		for _, id := range r.order {
			p := r.participants[id]
			if p.Role != models.ParticipantPlayer {
				continue
			}
			g := question.Generate(r.config.Conv, r.config.Mode)
			r.perPlayerQuestion[id] = &models.Question{Index: 0, Value: g.Value, CanonicalAnswer: g.Answer}
			r.emit("question:"+id, map[string]interface{}{"value": g.Value, "index": 0})
		}
	}

	if d, ok := timedDuration(r.config); ok {
		r.endTimer = time.AfterFunc(d, func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.status == models.RoomPlaying {
				r.endLocked(models.EndTimeUp)
			}
		})
	}
}

func isSharedPace(mode models.Mode) bool {
	return mode == models.ModeSpeedRound || mode == models.ModeNibbleSprint
}

func timedDuration(config models.RoomConfig) (time.Duration, bool) {
	switch config.Mode {
	case models.ModeSpeedRound:
		return speedRoundTime, true
	case models.ModeNibbleSprint:
		return nibbleSprintTime, true
	}
	if config.GoalType == models.GoalMostInTime || config.GoalType == models.GoalTimed {
		if config.GoalValue.TimeSeconds > 0 {
			return time.Duration(config.GoalValue.TimeSeconds) * time.Second, true
		}
	}
	return 0, false
}

// SubmitAnswer evaluates a player's answer per spec §4.D operation 4.
func (r *Room) SubmitAnswer(participantID, raw string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	if r.status != models.RoomPlaying {
		return ErrInvalidState
	}
	p, ok := r.participants[participantID]
	if !ok || p.Role != models.ParticipantPlayer {
		return ErrParticipantGone
	}
	if p.Eliminated {
		return ErrInvalidState
	}

	var q *models.Question
	if isSharedPace(r.config.Mode) {
		q = r.sharedQuestion
	} else {
		q = r.perPlayerQuestion[participantID]
	}
	if q == nil {
		return ErrInvalidState
	}

	correct := question.IsCorrect(raw, q.CanonicalAnswer, r.config.Conv)
	if correct {
		p.Score++
		p.CurrentStreak++
		if p.CurrentStreak > p.BestStreakThisSession {
			p.BestStreakThisSession = p.CurrentStreak
		}
		p.ScoreReachedAt = time.Now()
		r.emit("answer_result:"+participantID, map[string]interface{}{"correct": true})
		r.advanceQuestionLocked(participantID)
		r.emit("leaderboard", r.leaderboardLocked())
		r.checkEndConditionLocked()
	} else {
		p.CurrentStreak = 0
		r.emit("answer_result:"+participantID, map[string]interface{}{"correct": false})
		if r.config.Mode == models.ModeSurvival {
			p.Lives--
			if p.Lives <= 0 {
				p.Lives = 0
				p.Eliminated = true
			}
			r.checkEndConditionLocked()
		}
	}
	return nil
}

func (r *Room) advanceQuestionLocked(participantID string) {
	if isSharedPace(r.config.Mode) {
		r.questionIndex++
		g := question.Generate(r.config.Conv, r.config.Mode)
		r.sharedQuestion = &models.Question{Index: r.questionIndex, Value: g.Value, CanonicalAnswer: g.Answer}
		r.emit("question", map[string]interface{}{"value": g.Value, "index": r.questionIndex})
		return
	}
	cur := r.perPlayerQuestion[participantID]
	idx := 0
	if cur != nil {
		idx = cur.Index + 1
	}
	g := question.Generate(r.config.Conv, r.config.Mode)
	r.perPlayerQuestion[participantID] = &models.Question{Index: idx, Value: g.Value, CanonicalAnswer: g.Answer}
	r.emit("question:"+participantID, map[string]interface{}{"value": g.Value, "index": idx})
}

func (r *Room) checkEndConditionLocked() {
	if r.status != models.RoomPlaying {
		return
	}
	switch r.config.GoalType {
	case models.GoalFirstTo:
		target := r.config.GoalValue.FirstTo
		for _, id := range r.order {
			p := r.participants[id]
			if p.Role == models.ParticipantPlayer && p.Score >= target && target > 0 {
				r.endLocked(models.EndGoalReached)
				return
			}
		}
	}
	if r.config.Mode == models.ModeSurvival {
		allDone := true
		aliveCount := 0
		for _, id := range r.order {
			p := r.participants[id]
			if p.Role != models.ParticipantPlayer {
				continue
			}
			if !p.Eliminated {
				aliveCount++
			}
			allDone = allDone && p.Eliminated
		}
		if allDone || aliveCount <= 1 {
			r.endLocked(models.EndGoalReached)
		}
	}
}

// Chat appends a message to the retained ring buffer and broadcasts it.
func (r *Room) Chat(participantID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()

	p, ok := r.participants[participantID]
	if !ok {
		return ErrParticipantGone
	}
	message = strings.TrimSpace(message)
	if len(message) == 0 {
		return nil
	}
	if len([]rune(message)) > 500 {
		message = string([]rune(message)[:500])
	}
	msg := models.ChatMessage{ParticipantID: participantID, DisplayName: p.DisplayName, Message: message, Timestamp: time.Now()}
	r.chat = append(r.chat, msg)
	if len(r.chat) > maxChatHistory {
		r.chat = r.chat[len(r.chat)-maxChatHistory:]
	}
	r.emit("chat_message", msg)
	return nil
}

// HostEnd ends the room early; only the host may call it.
func (r *Room) HostEnd(participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touch()
	if participantID != r.hostParticipantID {
		return ErrForbidden
	}
	if r.status == models.RoomEnded {
		return nil
	}
	r.endLocked(models.EndHostEnded)
	return nil
}

// RecordProtocolError tracks malformed-message counts per spec §4.D
// failure semantics; returns true once the peer has exceeded 5 errors in
// 30s and the connection should be closed.
func (r *Room) RecordProtocolError(participantID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-30 * time.Second)
	kept := r.protocolErrors[participantID][:0]
	for _, t := range r.protocolErrors[participantID] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	r.protocolErrors[participantID] = kept
	return len(kept) > 5
}

func (r *Room) endLocked(reason models.EndReason) {
	if r.status == models.RoomEnded {
		return
	}
	r.status = models.RoomEnded
	r.endReason = reason
	r.endedAt = time.Now()
	if r.endTimer != nil {
		r.endTimer.Stop()
	}
	if r.allLeftTimer != nil {
		r.allLeftTimer.Stop()
		r.allLeftTimer = nil
	}
	r.stopSyncWatchdogLocked()
	for _, t := range r.graceTimers {
		t.Stop()
	}
	board := r.leaderboardLocked()
	r.emit("game_ended", map[string]interface{}{"leaderboard": board, "reason": string(reason)})
	if r.onEnded != nil {
		room := r
		go room.onEnded(room)
	}
}

func (r *Room) playerCount() int {
	n := 0
	for _, p := range r.participants {
		if p.Role == models.ParticipantPlayer {
			n++
		}
	}
	return n
}

func (r *Room) connectedPlayerCount() int {
	n := 0
	for _, p := range r.participants {
		if p.Role == models.ParticipantPlayer && p.Connected {
			n++
		}
	}
	return n
}

func (r *Room) removeFromOrder(participantID string) {
	for i, id := range r.order {
		if id == participantID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

// leaderboardLocked ranks players by score desc, first-reached-that-score
// asc, participantId asc — the tie-break chain from spec §4.D. For
// GoalStreak games the ranking key is bestStreakThisSession instead of
// Score, since Score (one point per correct answer) and the best run
// diverge once a miss resets CurrentStreak.
func (r *Room) leaderboardLocked() []models.LeaderboardEntry {
	type ranked struct {
		id string
		p  *models.Participant
	}
	var players []ranked
	for _, id := range r.order {
		p := r.participants[id]
		if p.Role == models.ParticipantPlayer {
			players = append(players, ranked{id, p})
		}
	}
	streakMode := r.config.GoalType == models.GoalStreak
	rankKey := func(p *models.Participant) int {
		if streakMode {
			return p.BestStreakThisSession
		}
		return p.Score
	}
	sort.Slice(players, func(i, j int) bool {
		a, b := players[i], players[j]
		if ak, bk := rankKey(a.p), rankKey(b.p); ak != bk {
			return ak > bk
		}
		if !a.p.ScoreReachedAt.Equal(b.p.ScoreReachedAt) {
			if a.p.ScoreReachedAt.IsZero() {
				return false
			}
			if b.p.ScoreReachedAt.IsZero() {
				return true
			}
			return a.p.ScoreReachedAt.Before(b.p.ScoreReachedAt)
		}
		return a.id < b.id
	})
	entries := make([]models.LeaderboardEntry, 0, len(players))
	for i, rk := range players {
		entries = append(entries, models.LeaderboardEntry{
			Rank:        i + 1,
			DisplayName: rk.p.DisplayName,
			Score:       rankKey(rk.p),
			IsGuest:     rk.p.IsGuest(),
		})
	}
	return entries
}

func (r *Room) emit(eventType string, payload interface{}) {
	if r.onEvent == nil {
		return
	}
	r.onEvent(Event{RoomID: r.id, Type: eventType, Payload: payload})
}

// RoomSnapshot is the copy-on-read view handed to HTTP/WS readers; it
// never exposes internal maps or the mutex.
type RoomSnapshot struct {
	ID                string
	Code              string
	Status            models.RoomStatus
	Config            models.RoomConfig
	SyncRound         int
	HostParticipantID string
	Participants      []models.Participant
	EndReason         models.EndReason
	Leaderboard       []models.LeaderboardEntry
}

func (r *Room) GetState() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomSnapshot {
	participants := make([]models.Participant, 0, len(r.participants))
	for _, id := range r.order {
		participants = append(participants, *r.participants[id])
	}
	return RoomSnapshot{
		ID:                r.id,
		Code:              r.code,
		Status:            r.status,
		Config:            r.config,
		SyncRound:         r.syncRound,
		HostParticipantID: r.hostParticipantID,
		Participants:      participants,
		EndReason:         r.endReason,
		Leaderboard:       r.leaderboardLocked(),
	}
}

// Result is handed to the Leaderboard & Progress Service once the room
// reaches ended.
type Result struct {
	Mode        models.Mode
	Conv        models.Conv
	Leaderboard []models.LeaderboardEntry
	Reason      models.EndReason
}

func (r *Room) Result() Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Result{Mode: r.config.Mode, Conv: r.config.Conv, Leaderboard: r.leaderboardLocked(), Reason: r.endReason}
}

// SetTournamentRef back-links a bracket Room to its owning Tournament.
func (r *Room) SetTournamentRef(ref models.TournamentRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournamentRef = &ref
}

// TournamentRef reports the owning Tournament, if this Room is a bracket.
func (r *Room) TournamentRef() *models.TournamentRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tournamentRef
}

// newOpaqueID mints a fresh participant id.
func newOpaqueID() string {
	return uuid.New().String()
}
