// Package registry is the process-wide home for every live Room and
// Tournament, generalized from the poker engine's TableManager to hold
// two entity kinds plus their code-lookup maps.
package registry

import (
	"sync"
	"time"
)

// RoomEntry is the minimal surface the Registry needs from a Room; the
// room package's *room.Room satisfies it.
type RoomEntry interface {
	ID() string
	Code() string
	IsTerminal() bool
	LastActivity() time.Time
}

// TournamentEntry is the analogous surface for a Tournament.
type TournamentEntry interface {
	ID() string
	Code() string
}

// Registry guards two maps (rooms, tournaments) plus their secondary
// code-lookup maps behind a single sync.RWMutex, mirroring
// engine.TableManager's mu sync.RWMutex over its tables map. Writes
// (register/deregister) are serialized; reads (Get) take the read lock
// and never block each other.
type Registry struct {
	mu              sync.RWMutex
	rooms           map[string]RoomEntry
	roomCodes       map[string]string // roomCode -> roomId, active only
	tournaments     map[string]TournamentEntry
	tournamentCodes map[string]string // tournamentCode -> tournamentId
}

func New() *Registry {
	return &Registry{
		rooms:           make(map[string]RoomEntry),
		roomCodes:       make(map[string]string),
		tournaments:     make(map[string]TournamentEntry),
		tournamentCodes: make(map[string]string),
	}
}

func (r *Registry) RegisterRoom(room RoomEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rooms[room.ID()] = room
	r.roomCodes[room.Code()] = room.ID()
}

func (r *Registry) DeregisterRoom(roomID, roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	delete(r.roomCodes, roomCode)
}

func (r *Registry) GetRoom(roomID string) (RoomEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	return room, ok
}

func (r *Registry) GetRoomByCode(roomCode string) (RoomEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.roomCodes[roomCode]
	if !ok {
		return nil, false
	}
	room, ok := r.rooms[roomID]
	return room, ok
}

func (r *Registry) RoomCodeTaken(roomCode string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roomCodes[roomCode]
	return ok
}

func (r *Registry) RegisterTournament(t TournamentEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tournaments[t.ID()] = t
	r.tournamentCodes[t.Code()] = t.ID()
}

func (r *Registry) GetTournament(tournamentID string) (TournamentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tournaments[tournamentID]
	return t, ok
}

func (r *Registry) GetTournamentByCode(code string) (TournamentEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tournamentCodes[code]
	if !ok {
		return nil, false
	}
	t, ok := r.tournaments[id]
	return t, ok
}

func (r *Registry) TournamentCodeTaken(code string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tournamentCodes[code]
	return ok
}

// SweepIdleRooms removes every ended Room whose LastActivity predates
// cutoff (the 60s post-ended retention window) and every Room whose
// LastActivity predates idleLobbyCutoff (ROOM_IDLE_TTL). The idle check
// does not look at status, so an idle syncing or playing Room is removed
// as well as an idle lobby. Call on a ticker from the entrypoint.
func (r *Registry) SweepIdleRooms(cutoff time.Time, idleLobbyCutoff time.Time) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []string
	for id, room := range r.rooms {
		stale := room.IsTerminal() && room.LastActivity().Before(cutoff)
		stale = stale || room.LastActivity().Before(idleLobbyCutoff)
		if stale {
			delete(r.rooms, id)
			delete(r.roomCodes, room.Code())
			removed = append(removed, id)
		}
	}
	return removed
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
