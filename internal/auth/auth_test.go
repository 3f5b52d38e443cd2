package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convtrainer/internal/models"

	"github.com/stretchr/testify/require"
)

func TestResolvePrincipalGuestWithoutCookie(t *testing.T) {
	s := NewService([]byte("secret"), "session", nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	p := s.ResolvePrincipal(r)
	require.True(t, p.IsGuest())
}

func TestIssueAndResolveSessionCookie(t *testing.T) {
	s := NewService([]byte("secret"), "session", nil)
	value, err := s.IssueSessionCookieValue("user-1", models.RoleUser, time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "session", Value: value})
	p := s.ResolvePrincipal(r)
	require.False(t, p.IsGuest())
	require.Equal(t, "user-1", p.UserID)
	require.Equal(t, models.RoleUser, p.Role)
}

func TestRoomPasswordHashAndCheck(t *testing.T) {
	hash, err := HashRoomPassword("s3cret")
	require.NoError(t, err)
	require.True(t, CheckRoomPassword(hash, "s3cret"))
	require.False(t, CheckRoomPassword(hash, "wrong"))
}
