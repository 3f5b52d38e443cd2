package httpapi

import (
	"strings"

	"convtrainer/internal/hub"
	"convtrainer/internal/room"
	"convtrainer/internal/tournament"
)

// roomEvent fans a Room's onEvent callback out to the Hub. A type of the
// form "base:participantId" is a single-recipient frame (a player's own
// question or answer result); anything else broadcasts to the whole room,
// per spec §6.2/§6.3 framing.
func (s *Server) roomEvent(e room.Event) {
	msgType := e.Type
	if idx := strings.Index(msgType, ":"); idx >= 0 {
		base := msgType[:idx]
		participantID := msgType[idx+1:]
		data, err := hub.Envelope(base, e.Payload)
		if err != nil {
			return
		}
		s.hub.SendTo(e.RoomID, participantID, data, base)
		return
	}
	data, err := hub.Envelope(msgType, e.Payload)
	if err != nil {
		return
	}
	s.hub.Broadcast(e.RoomID, data, msgType)
	go s.notifyBracketUpdate(e.RoomID)
}

// notifyBracketUpdate pushes a bracket_update frame on the owning
// tournament's control channel whenever a bracket Room's state changes.
// roomEvent runs it on its own goroutine: roomEvent is called with the
// Room's lock held, and this reads the Room again through its locking
// accessors.
func (s *Server) notifyBracketUpdate(roomID string) {
	entry, ok := s.registry.GetRoom(roomID)
	if !ok {
		return
	}
	r, ok := entry.(*room.Room)
	if !ok {
		return
	}
	ref := r.TournamentRef()
	if ref == nil {
		return
	}
	snap := r.GetState()
	data, err := hub.Envelope("bracket_update", map[string]interface{}{
		"bracketIndex":     ref.BracketIndex,
		"status":           snap.Status,
		"participantCount": len(snap.Participants),
	})
	if err != nil {
		return
	}
	s.hub.Broadcast("tournament:"+ref.TournamentID, data, "bracket_update")
}

// roomEnded runs once a Room reaches ended: if it is a tournament bracket,
// the owning Tournament is notified so it can aggregate completion.
func (s *Server) roomEnded(r *room.Room) {
	ref := r.TournamentRef()
	if ref == nil {
		return
	}
	entry, ok := s.registry.GetTournament(ref.TournamentID)
	if !ok {
		return
	}
	t, ok := entry.(*tournament.Tournament)
	if !ok {
		return
	}
	t.BracketEnded(ref.BracketIndex)
}

// tournamentEnded broadcasts the aggregate leaderboard on the tournament's
// control channel once every bracket has ended.
func (s *Server) tournamentEnded(t *tournament.Tournament) {
	data, err := hub.Envelope("tournament_ended", map[string]interface{}{
		"leaderboard": t.AggregateLeaderboard(),
	})
	if err != nil {
		return
	}
	s.hub.Broadcast("tournament:"+t.ID(), data, "tournament_ended")
}
