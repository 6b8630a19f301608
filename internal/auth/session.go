package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the login state of a session
type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "anonymous"
}

// Session is the identity bound to one client session token. Anonymous
// sessions exist only to carry a CSRF token.
type Session struct {
	ID        string    `json:"id"`
	Identity  string    `json:"identity,omitempty"`
	CSRFToken string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewSession creates a session with a random ID and CSRF token
func NewSession(identity string, now time.Time, ttl time.Duration) (*Session, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	csrf, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	return &Session{
		ID:        id.String(),
		Identity:  identity,
		CSRFToken: csrf,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// State reports whether the session carries an identity
func (s *Session) State() State {
	if s.Identity == "" {
		return Anonymous
	}
	return Authenticated
}

// IsExpired checks if the session has expired at now
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// generateToken returns 32 random bytes, hex encoded
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
