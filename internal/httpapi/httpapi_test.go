package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"convtrainer/internal/auth"
	"convtrainer/internal/config"
	"convtrainer/internal/hub"
	"convtrainer/internal/leaderboard"
	"convtrainer/internal/models"
	"convtrainer/internal/registry"
	"convtrainer/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	gormStore, err := store.NewGormStore(db)
	require.NoError(t, err)

	cfg := &config.Config{SessionCookieName: "ct_session", SessionSigningKey: "test-secret"}
	reg := registry.New()
	authService := auth.NewService([]byte(cfg.SessionSigningKey), cfg.SessionCookieName, gormStore.GameSessions())
	lb := leaderboard.NewService(gormStore)
	h := hub.New()

	return NewServer(cfg, reg, authService, lb, h, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateJoinAndStartRoom(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/mp/rooms", createRoomRequest{
		DisplayName: "Host",
		Mode:        models.ModeClassic,
		Conv:        models.ConvBinaryStandalone,
		GoalType:    models.GoalFirstTo,
		GoalValue:   models.GoalValue{FirstTo: 3},
		Visibility:  models.VisibilityPublic,
		MaxPlayers:  4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		RoomID        string `json:"roomId"`
		RoomCode      string `json:"roomCode"`
		ParticipantID string `json:"participantId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.RoomCode)
	require.Len(t, created.RoomCode, 6)

	rec = doJSON(t, router, http.MethodPost, "/api/mp/rooms/join", joinRoomRequest{
		RoomCode:    created.RoomCode,
		DisplayName: "Guest",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var joined struct {
		ParticipantID string `json:"participantId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &joined))
	require.NotEmpty(t, joined.ParticipantID)

	rec = doJSON(t, router, http.MethodPost, "/api/mp/rooms/"+created.RoomCode+"/start", map[string]string{
		"participantId": created.ParticipantID,
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestJoinRoomNotFoundReturns404(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/mp/rooms/join", joinRoomRequest{
		RoomCode:    "ZZZZZZ",
		DisplayName: "Guest",
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConversionSessionRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/conversion/session", map[string]string{
		"mode": "classic",
		"conv": "binary-standalone",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateTournamentAndAllocateBrackets(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	cookie, err := s.authService.IssueSessionCookieValue("admin-1", "admin", hourTTL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tournaments", bytes.NewReader(mustJSON(t, createTournamentRequest{
		Name:        "Cup",
		Mode:        models.ModeClassic,
		Conv:        models.ConvBinaryStandalone,
		GoalType:    models.GoalFirstTo,
		BracketSize: 2,
		MaxPlayers:  4,
	})))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "ct_session", Value: cookie})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, router, http.MethodPost, "/api/tournaments/"+created.Code+"/join", map[string]string{"displayName": "P1"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/tournaments/"+created.Code+"/join", map[string]string{"displayName": "P2"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/tournaments/"+created.Code+"/join", map[string]string{"displayName": "P3"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/tournaments/"+created.Code+"/brackets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateTournamentRequiresAdmin(t *testing.T) {
	s := newTestServer(t)
	router := s.Router()

	cookie, err := s.authService.IssueSessionCookieValue("user-1", "user", hourTTL)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/tournaments", bytes.NewReader(mustJSON(t, createTournamentRequest{
		Name:        "Cup",
		Mode:        models.ModeClassic,
		Conv:        models.ConvBinaryStandalone,
		GoalType:    models.GoalFirstTo,
		BracketSize: 2,
		MaxPlayers:  4,
	})))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: "ct_session", Value: cookie})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

const hourTTL = 3600_000_000_000 // 1h in time.Duration nanoseconds, avoiding an extra import

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
