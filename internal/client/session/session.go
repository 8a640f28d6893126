// Package session holds the authenticated owner identity and token pair for
// the lifetime of a sign-in. The engine reads the owner from here; clearing
// the session is the last step of sign-out.
package session

import (
	"sync"

	"github.com/golang-jwt/jwt/v5"
	"github.com/offlinehq/tidesync/internal/common"
)

type claims struct {
	jwt.RegisteredClaims
	UserID string
}

// Session is safe for concurrent use.
type Session struct {
	mu           sync.RWMutex
	owner        string
	accessToken  string
	refreshToken string
}

func New() *Session {
	return &Session{}
}

// SetTokens installs a token pair and derives the owner id from the access
// token's UserID claim. The signature is not verified here; the server is
// the trust boundary and the client only needs the scoping value.
func (s *Session) SetTokens(accessToken, refreshToken string) error {
	c := &claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(accessToken, c); err != nil {
		return common.ErrInvalidToken
	}
	if c.UserID == "" {
		return common.ErrInvalidToken
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = c.UserID
	s.accessToken = accessToken
	s.refreshToken = refreshToken
	return nil
}

// Owner returns the authenticated owner id, or "" when signed out.
func (s *Session) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Authenticated reports whether an owner is signed in.
func (s *Session) Authenticated() bool {
	return s.Owner() != ""
}

// Clear discards the owner and both tokens.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = ""
	s.accessToken = ""
	s.refreshToken = ""
}
