package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"convtrainer/internal/leaderboard"
	"convtrainer/internal/models"

	"github.com/gin-gonic/gin"
)

// handleCreateSession implements POST /api/conversion/session: it issues
// the one-shot anti-cheat token a subsequent score submission must name.
func (s *Server) handleCreateSession(c *gin.Context) {
	var req struct {
		Mode models.Mode `json:"mode" binding:"required"`
		Conv models.Conv `json:"conv" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	principal := principalFrom(c)
	ctx, cancel := withTimeout()
	defer cancel()
	sessionID, err := s.authService.IssueGameSessionToken(ctx, principal, req.Mode, req.Conv)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sessionId": sessionID})
}

// handleSubmitScore implements POST /api/conversion/scores.
func (s *Server) handleSubmitScore(c *gin.Context) {
	var req struct {
		SessionID string                 `json:"sessionId" binding:"required"`
		Mode      models.Mode            `json:"mode" binding:"required"`
		Conv      models.Conv            `json:"conv" binding:"required"`
		Score     int                    `json:"score"`
		Metadata  map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	principal := principalFrom(c)
	ctx, cancel := withTimeout()
	defer cancel()
	err := s.leaderboard.SubmitScore(ctx, leaderboard.SubmitScoreInput{
		SessionID: req.SessionID,
		UserID:    principal.UserID,
		Mode:      req.Mode,
		Conv:      req.Conv,
		Score:     req.Score,
		Metadata:  req.Metadata,
	})
	if err != nil {
		status, code := scoreErrorStatus(err)
		respondError(c, status, code, err.Error())
		return
	}
	c.Status(http.StatusNoContent)
}

func scoreErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, leaderboard.ErrTokenNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, leaderboard.ErrTokenMismatch):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, leaderboard.ErrTokenExpired):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, leaderboard.ErrTokenAlreadyUsed):
		return http.StatusConflict, "CONFLICT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		return 20
	}
	return limit
}

// handleLeaderboard implements GET /api/conversion/leaderboard.
func (s *Server) handleLeaderboard(c *gin.Context) {
	mode := models.Mode(c.Query("mode"))
	conv := models.Conv(c.Query("conv"))
	ctx, cancel := withTimeout()
	defer cancel()
	rows, err := s.leaderboard.GetLeaderboard(ctx, mode, conv, parseLimit(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows})
}

// handleXPLeaderboard implements GET /api/conversion/xp-leaderboard.
func (s *Server) handleXPLeaderboard(c *gin.Context) {
	ctx, cancel := withTimeout()
	defer cancel()
	rows, err := s.leaderboard.GetXPLeaderboard(ctx, parseLimit(c))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": rows})
}

// handleGetProgress implements GET /api/conversion/progress.
func (s *Server) handleGetProgress(c *gin.Context) {
	principal := principalFrom(c)
	ctx, cancel := withTimeout()
	defer cancel()
	progress, err := s.leaderboard.GetProgress(ctx, principal.UserID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, progress)
}

// handleUpdateProgress implements POST /api/conversion/progress.
func (s *Server) handleUpdateProgress(c *gin.Context) {
	var req struct {
		XPEarned          int  `json:"xpEarned"`
		BestStreak        int  `json:"bestStreak"`
		BestClassicStreak int  `json:"bestClassicStreak"`
		RecordPlayed      bool `json:"recordPlayed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	principal := principalFrom(c)
	ctx, cancel := withTimeout()
	defer cancel()
	progress, err := s.leaderboard.UpdateProgress(ctx, leaderboard.UpdateProgressInput{
		UserID:            principal.UserID,
		XPEarned:          req.XPEarned,
		BestStreak:        req.BestStreak,
		BestClassicStreak: req.BestClassicStreak,
		RecordPlayed:      req.RecordPlayed,
	})
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, progress)
}

// handleUnlockAchievement implements POST /api/conversion/achievements/{id}/unlock.
func (s *Server) handleUnlockAchievement(c *gin.Context) {
	achievementID := c.Param("id")
	principal := principalFrom(c)
	ctx, cancel := withTimeout()
	defer cancel()
	unlocked, err := s.leaderboard.UnlockAchievement(ctx, principal.UserID, achievementID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"unlocked": unlocked})
}
