package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "warden"

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenManager signs and verifies session tokens
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

// SessionClaims represents the JWT claims of a session cookie. The
// registered ID is the session ID.
type SessionClaims struct {
	Identity  string `json:"idn,omitempty"`
	CSRFToken string `json:"csrf"`
	jwt.RegisteredClaims
}

// NewTokenManager creates a token manager signing with secret
func NewTokenManager(secret []byte, now func() time.Time) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("session secret must be at least 32 bytes")
	}
	if now == nil {
		now = time.Now
	}
	return &TokenManager{
		secret: secret,
		now:    now,
	}, nil
}

// GenerateToken generates a signed token for a session
func (tm *TokenManager) GenerateToken(session *Session) (string, error) {
	claims := SessionClaims{
		Identity:  session.Identity,
		CSRFToken: session.CSRFToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Issuer:    tokenIssuer,
			Subject:   session.Identity,
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a token and returns the session it carries
func (tm *TokenManager) ValidateToken(tokenString string) (*Session, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	switch {
	case err == nil && token.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}

	if claims.ID == "" || claims.CSRFToken == "" {
		return nil, ErrTokenInvalid
	}

	session := &Session{
		ID:        claims.ID,
		Identity:  claims.Identity,
		CSRFToken: claims.CSRFToken,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}
	return session, nil
}

// GenerateSecret generates a new random signing secret
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 64)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}
