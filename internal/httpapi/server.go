// Package httpapi is the thin REST and WS surface from spec §6: gin
// router, route groups, handlers, and the WS upgrade endpoints that bind
// internal/hub connections to internal/room and internal/tournament
// operations. Grounded on cmd/server/server.go's gin.Default() +
// gin-contrib/cors + authorized-group pattern.
package httpapi

import (
	"context"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"convtrainer/internal/auth"
	"convtrainer/internal/config"
	"convtrainer/internal/hub"
	"convtrainer/internal/leaderboard"
	"convtrainer/internal/locks"
	"convtrainer/internal/models"
	"convtrainer/internal/ratelimit"
	"convtrainer/internal/registry"
	"convtrainer/internal/room"
	"convtrainer/internal/tournament"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Server wires every service the HTTP and WS surfaces need, the
// generalization of cmd/server.Server.
type Server struct {
	cfg         *config.Config
	registry    *registry.Registry
	authService *auth.Service
	leaderboard *leaderboard.Service
	hub         *hub.Hub
	lockManager *locks.Manager
	httpLimiter *ratelimit.Limiter
	wsLimiter   *ratelimit.Limiter
}

func NewServer(cfg *config.Config, reg *registry.Registry, authService *auth.Service, lb *leaderboard.Service, h *hub.Hub, lockManager *locks.Manager) *Server {
	return &Server{
		cfg:         cfg,
		registry:    reg,
		authService: authService,
		leaderboard: lb,
		hub:         h,
		lockManager: lockManager,
		httpLimiter: ratelimit.New(ratelimit.DefaultConfig),
		wsLimiter:   ratelimit.NewWSActionLimiter(),
	}
}

// Router builds the gin engine and routes, mirroring cmd/server/server.go's
// setupRoutes: gin.Default(), a cors.New(...) group, a public set, an
// authorized group gated by authMiddleware.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(origin string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}))
	r.Use(s.rateLimitMiddleware())

	api := r.Group("/api")
	api.POST("/mp/rooms", s.handleCreateRoom)
	api.POST("/mp/rooms/join", s.handleJoinRoom)
	api.POST("/mp/rooms/:roomCode/start", s.handleStartRoom)

	api.GET("/tournaments/:code", s.handleGetTournament)
	api.POST("/tournaments/:code/join", s.handleJoinTournament)
	api.GET("/tournaments/:code/brackets", s.handleGetBrackets)

	api.GET("/conversion/leaderboard", s.handleLeaderboard)
	api.GET("/conversion/xp-leaderboard", s.handleXPLeaderboard)

	authorized := api.Group("/")
	authorized.Use(s.authMiddleware())
	authorized.POST("/conversion/session", s.handleCreateSession)
	authorized.POST("/conversion/scores", s.handleSubmitScore)
	authorized.GET("/conversion/progress", s.handleGetProgress)
	authorized.POST("/conversion/progress", s.handleUpdateProgress)
	authorized.POST("/conversion/achievements/:id/unlock", s.handleUnlockAchievement)

	adminOnly := api.Group("/")
	adminOnly.Use(s.authMiddleware(), s.adminMiddleware())
	adminOnly.POST("/tournaments", s.handleCreateTournament)
	adminOnly.POST("/tournaments/:code/start", s.handleStartTournament)

	r.GET("/ws/rooms/:roomId", s.handleRoomWS)
	r.GET("/ws/tournaments/:id/control", s.handleTournamentControlWS)

	return r
}

func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.httpLimiter.Allow(c.ClientIP()) {
			respondError(c, http.StatusTooManyRequests, "RATE_LIMIT", "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

const principalKey = "principal"

// authMiddleware resolves a Principal from the session cookie and
// rejects guests, the generalization of cmd/server.authMiddleware.
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := s.authService.ResolvePrincipal(c.Request)
		if principal.IsGuest() {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "sign in required")
			c.Abort()
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// adminMiddleware rejects any Principal that isn't models.RoleAdmin;
// stacked after authMiddleware, which has already ruled out guests. Spec
// §6.1 reserves tournament creation for admins, not every signed-in user.
func (s *Server) adminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if principalFrom(c).Role != models.RoleAdmin {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "admin required")
			c.Abort()
			return
		}
		c.Next()
	}
}

func principalFrom(c *gin.Context) models.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(models.Principal); ok {
			return p
		}
	}
	return models.Principal{Role: models.RoleGuest}
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": code, "message": message})
}

// errorStatus maps the sentinel errors from internal/room and
// internal/tournament onto the HTTP status catalog in spec §7.
func errorStatus(err error) (int, string) {
	switch {
	case err == room.ErrRoomFull:
		return http.StatusConflict, "ROOM_FULL"
	case err == room.ErrRoomStarted:
		return http.StatusConflict, "ROOM_STARTED"
	case err == room.ErrPasswordRequired:
		return http.StatusUnauthorized, "PASSWORD_REQUIRED"
	case err == room.ErrPasswordInvalid:
		return http.StatusUnauthorized, "PASSWORD_INVALID"
	case err == room.ErrNameInvalid:
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	case err == room.ErrForbidden || err == tournament.ErrForbidden:
		return http.StatusForbidden, "FORBIDDEN"
	case err == room.ErrInvalidState:
		return http.StatusConflict, "ROOM_STARTED"
	case err == room.ErrParticipantGone:
		return http.StatusNotFound, "NOT_FOUND"
	case err == tournament.ErrFull:
		return http.StatusConflict, "ROOM_FULL"
	case err == tournament.ErrNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case err == tournament.ErrAlreadyStarted:
		return http.StatusConflict, "ROOM_STARTED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// newRoomCode and newTournamentCode mint collision-checked codes by
// rejection sampling over an alphabet that excludes easily confused
// glyphs (no 0/O, 1/I), per spec §6.4.
func newRoomCode(taken func(string) bool) string { return newCode(6, taken) }

func newTournamentCode(taken func(string) bool) string { return newCode(8, taken) }

const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

func newCode(length int, taken func(string) bool) string {
	for attempt := 0; attempt < 10; attempt++ {
		b := make([]byte, length)
		for i := range b {
			b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
		}
		code := string(b)
		if taken == nil || !taken(code) {
			return code
		}
	}
	return strings.ToUpper(uuid.New().String()[:length])
}

func newRoomID() string { return uuid.New().String() }

func withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

// allocateCode serializes code generation across every server instance via
// the distributed lock, per SPEC_FULL §4.J; a single-instance deployment
// with no Redis configured just calls gen directly.
func (s *Server) allocateCode(lockName string, gen func() string) string {
	if s.lockManager == nil {
		return gen()
	}
	ctx, cancel := withTimeout()
	defer cancel()
	lock, err := s.lockManager.Acquire(ctx, lockName, locks.DefaultLockTTL)
	if err != nil {
		return gen()
	}
	defer lock.Release(ctx)
	return gen()
}
