package httpapi

import (
	"net/http"

	"convtrainer/internal/auth"
	"convtrainer/internal/models"
	"convtrainer/internal/room"
	"convtrainer/internal/validation"

	"github.com/gin-gonic/gin"
)

// newRoom constructs a Room wired to this Server's event fan-out and
// registers it, the shared factory used by both direct room creation and
// the Tournament Orchestrator's RoomFactory.
func (s *Server) newRoom(id, code string, config models.RoomConfig, hostDisplayName string) (*room.Room, string) {
	r, hostID := room.New(id, code, config, hostDisplayName, auth.CheckRoomPassword, s.roomEvent, s.roomEnded)
	s.registry.RegisterRoom(r)
	return r, hostID
}

type createRoomRequest struct {
	DisplayName     string           `json:"displayName" binding:"required"`
	Mode            models.Mode      `json:"mode" binding:"required"`
	Conv            models.Conv      `json:"conv" binding:"required"`
	GoalType        models.GoalType  `json:"goalType" binding:"required"`
	GoalValue       models.GoalValue `json:"goalValue"`
	Visibility      models.Visibility `json:"visibility" binding:"required"`
	Password        string           `json:"password"`
	MaxPlayers      int              `json:"maxPlayers"`
	ShowLeaderboard bool             `json:"showLeaderboard"`
	ShowPowerTable  bool             `json:"showPowerTable"`
}

// handleCreateRoom implements POST /api/mp/rooms per spec §6.1.
func (s *Server) handleCreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	if req.MaxPlayers <= 0 {
		req.MaxPlayers = 8
	}
	displayName, err := validation.ValidateDisplayName(req.DisplayName)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	req.DisplayName = displayName

	cfg := models.RoomConfig{
		Mode:            req.Mode,
		Conv:            req.Conv,
		GoalType:        req.GoalType,
		GoalValue:       req.GoalValue,
		Visibility:      req.Visibility,
		MaxPlayers:      req.MaxPlayers,
		ShowLeaderboard: req.ShowLeaderboard,
		ShowPowerTable:  req.ShowPowerTable,
	}
	if cfg.Visibility == models.VisibilityPublicPass {
		if req.Password == "" {
			respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", "password required for public_password rooms")
			return
		}
		hash, err := auth.HashRoomPassword(req.Password)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "INTERNAL", "failed to hash password")
			return
		}
		cfg.PasswordHash = hash
	}

	code := s.allocateCode("codegen:rooms", func() string { return newRoomCode(s.registry.RoomCodeTaken) })
	id := newRoomID()
	r, hostID := s.newRoom(id, code, cfg, req.DisplayName)

	c.JSON(http.StatusCreated, gin.H{
		"roomId":        r.ID(),
		"roomCode":      r.Code(),
		"participantId": hostID,
		"state":         r.GetState(),
	})
}

type joinRoomRequest struct {
	RoomCode    string `json:"roomCode" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
	AsSpectator bool   `json:"asSpectator"`
	Password    string `json:"password"`
}

// handleJoinRoom implements POST /api/mp/rooms/join per spec §6.1.
func (s *Server) handleJoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	displayName, err := validation.ValidateDisplayName(req.DisplayName)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	entry, ok := s.registry.GetRoomByCode(req.RoomCode)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "room not found")
		return
	}
	r := entry.(*room.Room)

	principal := s.authService.ResolvePrincipal(c.Request)
	res, err := r.Join(room.JoinInput{
		DisplayName: displayName,
		AsSpectator: req.AsSpectator,
		Password:    req.Password,
		UserID:      principal.UserID,
	})
	if err != nil {
		status, code := errorStatus(err)
		respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"roomId":        r.ID(),
		"participantId": res.ParticipantID,
		"state":         res.Snapshot,
	})
}

// handleStartRoom implements POST /api/mp/rooms/{roomCode}/start.
func (s *Server) handleStartRoom(c *gin.Context) {
	roomCode := c.Param("roomCode")
	var req struct {
		ParticipantID string `json:"participantId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	entry, ok := s.registry.GetRoomByCode(roomCode)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "room not found")
		return
	}
	r := entry.(*room.Room)
	if err := r.StartGame(req.ParticipantID); err != nil {
		status, code := errorStatus(err)
		respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": r.GetState()})
}
