package httpapi

import (
	"net/http"

	"convtrainer/internal/models"
	"convtrainer/internal/tournament"
	"convtrainer/internal/validation"

	"github.com/gin-gonic/gin"
)

type createTournamentRequest struct {
	Name            string           `json:"name" binding:"required"`
	Mode            models.Mode      `json:"mode" binding:"required"`
	Conv            models.Conv      `json:"conv" binding:"required"`
	GoalType        models.GoalType  `json:"goalType" binding:"required"`
	GoalValue       models.GoalValue `json:"goalValue"`
	BracketSize     int              `json:"bracketSize"`
	MaxPlayers      int              `json:"maxPlayers"`
	ShowLeaderboard bool             `json:"showLeaderboard"`
}

// handleCreateTournament implements POST /api/tournaments; routed behind
// adminMiddleware, so only an admin Principal may create one.
func (s *Server) handleCreateTournament(c *gin.Context) {
	var req createTournamentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	if req.BracketSize <= 0 {
		req.BracketSize = 4
	}
	if req.MaxPlayers <= 0 {
		req.MaxPlayers = req.BracketSize * 4
	}
	principal := principalFrom(c)

	cfg := models.RoomConfig{
		Mode:            req.Mode,
		Conv:            req.Conv,
		GoalType:        req.GoalType,
		GoalValue:       req.GoalValue,
		Visibility:      models.VisibilityPrivate,
		MaxPlayers:      req.BracketSize,
		ShowLeaderboard: req.ShowLeaderboard,
	}

	code := s.allocateCode("codegen:tournaments", func() string { return newTournamentCode(s.registry.TournamentCodeTaken) })
	id := newRoomID()
	t := tournament.New(id, code, req.Name, cfg, req.BracketSize, req.MaxPlayers, principal.UserID,
		s.newRoom, newRoomID, func() string { return newRoomCode(s.registry.RoomCodeTaken) },
		nil, s.tournamentEnded)
	s.registry.RegisterTournament(t)

	c.JSON(http.StatusCreated, gin.H{
		"tournamentId": t.ID(),
		"code":         t.Code(),
		"name":         t.Name(),
	})
}

func (s *Server) lookupTournament(c *gin.Context) (*tournament.Tournament, bool) {
	code := c.Param("code")
	entry, ok := s.registry.GetTournamentByCode(code)
	if !ok {
		respondError(c, http.StatusNotFound, "NOT_FOUND", "tournament not found")
		return nil, false
	}
	t, ok := entry.(*tournament.Tournament)
	if !ok {
		respondError(c, http.StatusInternalServerError, "INTERNAL", "registry entry type mismatch")
		return nil, false
	}
	return t, true
}

// handleGetTournament implements GET /api/tournaments/{code}.
func (s *Server) handleGetTournament(c *gin.Context) {
	t, ok := s.lookupTournament(c)
	if !ok {
		return
	}
	principal := s.authService.ResolvePrincipal(c.Request)
	c.JSON(http.StatusOK, gin.H{
		"tournamentId":     t.ID(),
		"code":             t.Code(),
		"name":             t.Name(),
		"status":           t.Status(),
		"config":           t.Config(),
		"bracketSize":      t.BracketSize(),
		"maxPlayers":       t.MaxPlayers(),
		"participantCount": t.ParticipantCount(),
		"canStart":         principal.Role == models.RoleAdmin,
	})
}

// handleJoinTournament implements POST /api/tournaments/{code}/join.
func (s *Server) handleJoinTournament(c *gin.Context) {
	t, ok := s.lookupTournament(c)
	if !ok {
		return
	}
	var req struct {
		DisplayName string `json:"displayName" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	displayName, err := validation.ValidateDisplayName(req.DisplayName)
	if err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	participantID, bracketIndex, err := t.Join(displayName)
	if err != nil {
		status, code := errorStatus(err)
		respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tournamentId":  t.ID(),
		"participantId": participantID,
		"bracketIndex":  bracketIndex,
	})
}

// handleStartTournament implements POST /api/tournaments/{code}/start;
// only an admin Principal may start.
func (s *Server) handleStartTournament(c *gin.Context) {
	t, ok := s.lookupTournament(c)
	if !ok {
		return
	}
	principal := principalFrom(c)
	if err := t.Start(principal); err != nil {
		status, code := errorStatus(err)
		respondError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": t.Status()})
}

// handleGetBrackets implements GET /api/tournaments/{code}/brackets.
func (s *Server) handleGetBrackets(c *gin.Context) {
	t, ok := s.lookupTournament(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"brackets": t.Brackets()})
}
