// Package auth resolves Principals from session cookies and issues the
// anti-cheat GameSessionToken consumed by score submissions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"convtrainer/internal/models"
	"convtrainer/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrSessionTokenExpired     = errors.New("auth: session signing key invalid or token expired")
	ErrGuestCannotHaveSessions = errors.New("auth: guest principals cannot hold game session tokens")
)

// Service resolves Principals and manages GameSessionTokens. Modeled on
// internal/auth.Service: a small struct over a signing secret plus
// whatever store it needs, with bcrypt for anything password-shaped.
type Service struct {
	signingKey   []byte
	cookieName   string
	sessionStore store.GameSessionStore
}

func NewService(signingKey []byte, cookieName string, sessionStore store.GameSessionStore) *Service {
	return &Service{signingKey: signingKey, cookieName: cookieName, sessionStore: sessionStore}
}

type sessionClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// IssueSessionCookieValue signs a session token for an authenticated
// user; out-of-core login flows call this after validating credentials.
func (s *Service) IssueSessionCookieValue(userID string, role models.Role, ttl time.Duration) (string, error) {
	claims := sessionClaims{
		UserID: userID,
		Role:   string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.signingKey)
}

// ResolvePrincipal reads the session cookie and validates it. Absence or
// an invalid token resolves to a guest Principal rather than an error —
// only core operations that require a non-guest Principal reject guests.
func (s *Service) ResolvePrincipal(r *http.Request) models.Principal {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return models.Principal{Role: models.RoleGuest}
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, claims, func(t *jwt.Token) (interface{}, error) {
		return s.signingKey, nil
	})
	if err != nil || !token.Valid {
		return models.Principal{Role: models.RoleGuest}
	}
	role := models.Role(claims.Role)
	if role != models.RoleAdmin && role != models.RoleUser {
		role = models.RoleUser
	}
	return models.Principal{UserID: claims.UserID, Role: role}
}

// IssueGameSessionToken writes a fresh, unconsumed token to the Store and
// returns its sessionId. Only non-guest Principals may obtain one.
func (s *Service) IssueGameSessionToken(ctx context.Context, principal models.Principal, mode models.Mode, conv models.Conv) (string, error) {
	if principal.IsGuest() {
		return "", ErrGuestCannotHaveSessions
	}
	sessionID, err := randomID()
	if err != nil {
		return "", err
	}
	now := time.Now()
	token := models.GameSessionToken{
		SessionID: sessionID,
		UserID:    principal.UserID,
		Mode:      mode,
		Conv:      conv,
		IssuedAt:  now,
		ExpiresAt: now.Add(2 * time.Hour),
	}
	if err := s.sessionStore.Insert(ctx, token); err != nil {
		return "", err
	}
	return sessionID, nil
}

// ConsumeGameSessionToken performs the atomic compare-and-mark required
// before any score submission is accepted.
func (s *Service) ConsumeGameSessionToken(ctx context.Context, sessionID, userID string, mode models.Mode, conv models.Conv) (models.ConsumeStatus, error) {
	return s.sessionStore.ConsumeAtomic(ctx, sessionID, userID, mode, conv)
}

// HashRoomPassword and CheckRoomPassword use bcrypt rather than a
// bespoke digest; bcrypt.CompareHashAndPassword is constant-time by
// construction, satisfying the PASSWORD_INVALID requirement with no
// hand-rolled subtle.ConstantTimeCompare bookkeeping. Rooms are
// ephemeral so cost 10 is used, lower than account-password cost 14.
func HashRoomPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckRoomPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func randomID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
