package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/accelerated-industries/warden/internal/config"
)

// dummyPassword seeds the hash compared against when a username is unknown
const dummyPassword = "warden-unknown-user-placeholder"

// CredentialStore maps usernames to bcrypt hashes. It is read-only after
// construction and safe for concurrent use.
type CredentialStore struct {
	hashes map[string][]byte
	dummy  []byte
}

// NewCredentialStore creates a store from username -> bcrypt hash pairs
func NewCredentialStore(users map[string]string) (*CredentialStore, error) {
	hashes := make(map[string][]byte, len(users))
	cost := bcrypt.DefaultCost
	for name, hash := range users {
		c, err := bcrypt.Cost([]byte(hash))
		if err != nil {
			return nil, fmt.Errorf("invalid password hash for user %s: %w", name, err)
		}
		if c > cost || len(hashes) == 0 {
			cost = c
		}
		hashes[name] = []byte(hash)
	}

	// Unknown users still pay for a comparison of the same cost
	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to create dummy hash: %w", err)
	}

	return &CredentialStore{
		hashes: hashes,
		dummy:  dummy,
	}, nil
}

// NewCredentialStoreFromConfig hashes plaintext demo passwords with cost and
// takes configured hashes as they are.
func NewCredentialStoreFromConfig(users []config.UserConfig, cost int) (*CredentialStore, error) {
	hashes := make(map[string]string, len(users))
	for _, u := range users {
		if u.PasswordHash != "" {
			hashes[u.Name] = u.PasswordHash
			continue
		}
		hash, err := HashPassword(u.Password, cost)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", u.Name, err)
		}
		hashes[u.Name] = hash
	}
	return NewCredentialStore(hashes)
}

// Verify reports whether candidate is the password of username. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *CredentialStore) Verify(username, candidate string) bool {
	hash, ok := s.hashes[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(candidate))
		return false
	}
	return VerifyPassword(candidate, hash)
}

// HashPassword generates a bcrypt hash of a password
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(password string, hash []byte) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
