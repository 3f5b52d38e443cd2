package httpapi

import (
	"encoding/json"
	"log"
	"net/http"

	"convtrainer/internal/hub"
	"convtrainer/internal/models"
	"convtrainer/internal/room"
	"convtrainer/internal/tournament"
	"convtrainer/internal/validation"

	"github.com/gin-gonic/gin"
)

// handleRoomWS upgrades `/ws/rooms/{roomId}?participantId=...` per spec
// §6.2, the generalization of internal/server/websocket.HandleWebSocket.
func (s *Server) handleRoomWS(c *gin.Context) {
	roomID := c.Param("roomId")
	participantID := c.Query("participantId")
	if participantID == "" {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "participantId required")
		return
	}
	entry, ok := s.registry.GetRoom(roomID)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "room not found")
		return
	}
	r := entry.(*room.Room)
	snap := r.GetState()
	participantKnown := false
	for _, p := range snap.Participants {
		if p.ParticipantID == participantID {
			participantKnown = true
			break
		}
	}
	if !participantKnown {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "participant not in room")
		return
	}

	conn, err := hub.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed for room %s: %v", roomID, err)
		return
	}

	client := hub.NewClient(conn, roomID, participantID, func(cl *hub.Client) {
		s.hub.Unregister(cl)
		r.Disconnect(participantID)
	})
	s.hub.Register(client)
	r.Reconnect(participantID)

	if data, err := hub.Envelope("room_state", map[string]interface{}{
		"participants":    snap.Participants,
		"status":          snap.Status,
		"config":          snap.Config,
		"showLeaderboard": snap.Config.ShowLeaderboard,
		"syncRound":       snap.SyncRound,
	}); err == nil {
		client.Send(data, "room_state")
	}

	go client.WritePump()
	client.ReadPump(func(cl *hub.Client, raw []byte) {
		s.handleRoomInbound(r, cl, raw)
	})
}

type roomInbound struct {
	Type   string `json:"type"`
	Round  int    `json:"round"`
	Answer string `json:"answer"`
	Message string `json:"message"`
}

// handleRoomInbound dispatches one inbound frame per spec §6.2's inbound
// catalog: sync_ack, answer_submit, chat, end_game_request, ping.
func (s *Server) handleRoomInbound(r *room.Room, cl *hub.Client, raw []byte) {
	if !s.wsLimiter.AllowAction(cl.ParticipantID) {
		s.sendProtocolError(r.ID(), cl, "RATE_LIMIT")
		return
	}

	var msg roomInbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.recordProtocolError(r, cl)
		return
	}

	var opErr error
	switch msg.Type {
	case "sync_ack":
		opErr = r.SyncAck(cl.ParticipantID, msg.Round)
	case "answer_submit":
		opErr = r.SubmitAnswer(cl.ParticipantID, msg.Answer)
	case "chat":
		sanitized, err := validation.ValidateChatMessage(msg.Message)
		if err != nil {
			s.sendProtocolError(r.ID(), cl, "UNSAFE_CONTENT")
			return
		}
		opErr = r.Chat(cl.ParticipantID, sanitized)
	case "end_game_request":
		opErr = r.HostEnd(cl.ParticipantID)
	case "ping":
		if data, err := hub.Envelope("pong", nil); err == nil {
			cl.Send(data, "pong")
		}
		return
	default:
		s.recordProtocolError(r, cl)
		return
	}
	if opErr != nil {
		s.sendProtocolError(r.ID(), cl, opErr.Error())
	}
}

func (s *Server) recordProtocolError(r *room.Room, cl *hub.Client) {
	exceeded := r.RecordProtocolError(cl.ParticipantID)
	s.sendProtocolError(r.ID(), cl, "UNKNOWN_TYPE")
	if exceeded {
		cl.Close("PROTOCOL_ERROR")
	}
}

func (s *Server) sendProtocolError(roomID string, cl *hub.Client, code string) {
	data, err := hub.Envelope("protocol_error", map[string]interface{}{"code": code})
	if err != nil {
		return
	}
	cl.Send(data, "protocol_error")
}

// handleTournamentControlWS upgrades `/ws/tournaments/{id}/control` per
// spec §6.3: a read-only admin channel fed by bracket_update and
// tournament_ended, keyed in the Hub under a synthetic "tournament:<id>"
// room id since it carries no Room participants of its own.
func (s *Server) handleTournamentControlWS(c *gin.Context) {
	tournamentID := c.Param("id")
	entry, ok := s.registry.GetTournament(tournamentID)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "tournament not found")
		return
	}
	t, ok := entry.(*tournament.Tournament)
	if !ok {
		respondError(c, http.StatusInternalServerError, "INTERNAL", "registry entry type mismatch")
		return
	}
	principal := s.authService.ResolvePrincipal(c.Request)
	if principal.Role != models.RoleAdmin {
		respondError(c, http.StatusForbidden, "FORBIDDEN", "admin required")
		return
	}

	conn, err := hub.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade failed for tournament control %s: %v", tournamentID, err)
		return
	}
	channelID := "tournament:" + t.ID()
	client := hub.NewClient(conn, channelID, "admin-"+principal.UserID, func(cl *hub.Client) {
		s.hub.Unregister(cl)
	})
	s.hub.Register(client)

	if data, err := hub.Envelope("bracket_update", map[string]interface{}{"brackets": t.Brackets()}); err == nil {
		client.Send(data, "bracket_update")
	}

	go client.WritePump()
	client.ReadPump(func(cl *hub.Client, raw []byte) {
		// Control channel is read-only besides liveness; any frame is a ping.
	})
}
