package auth

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/accelerated-industries/warden/internal/logging"
)

const component = "auth"

var validate = validator.New()

// Verifier checks a username/password pair
type Verifier interface {
	Verify(username, password string) bool
}

// Limiter admits and records login attempts per client key
type Limiter interface {
	Attempt(key string) bool
	RetryAfter(key string) time.Duration
}

// Credentials is a submitted login form. Malformed input is treated as a
// wrong password.
type Credentials struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=72"`
}

// AuthManager runs the login and logout flow
type AuthManager struct {
	credentials Verifier
	limiter     Limiter
	sessions    *SessionManager
	clientKeys  *ClientKeyResolver
	logger      *logging.Logger
}

// NewAuthManager creates a new authentication manager
func NewAuthManager(credentials Verifier, limiter Limiter, sessions *SessionManager, clientKeys *ClientKeyResolver, logger *logging.Logger) *AuthManager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &AuthManager{
		credentials: credentials,
		limiter:     limiter,
		sessions:    sessions,
		clientKeys:  clientKeys,
		logger:      logger,
	}
}

// Login authenticates the submitted credentials and, on success, replaces
// the client's session with an authenticated one.
//
// The client key is charged an attempt before the credentials are looked
// at, whatever the outcome. A limited client gets ErrRateLimited without its
// credentials being consulted; a failed check gets ErrInvalidCredentials.
func (am *AuthManager) Login(w http.ResponseWriter, r *http.Request, creds Credentials) (*Session, error) {
	key := am.clientKeys.Resolve(r)

	if !am.limiter.Attempt(key) {
		am.logger.Warn(component, "login_rate_limited", map[string]interface{}{
			"client_key": key,
		})
		return nil, ErrRateLimited
	}

	if err := validate.Struct(creds); err != nil {
		am.logger.Info(component, "login_failed", map[string]interface{}{
			"client_key": key,
			"reason":     "malformed",
		})
		return nil, ErrInvalidCredentials
	}

	if !am.credentials.Verify(creds.Username, creds.Password) {
		am.logger.Info(component, "login_failed", map[string]interface{}{
			"client_key": key,
			"username":   creds.Username,
		})
		return nil, ErrInvalidCredentials
	}

	session, err := am.sessions.Create(w, r, creds.Username)
	if err != nil {
		return nil, err
	}

	am.logger.Info(component, "login_succeeded", map[string]interface{}{
		"client_key": key,
		"username":   creds.Username,
	})
	return session, nil
}

// Logout clears the client's session
func (am *AuthManager) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := am.sessions.Current(r)
	am.sessions.Clear(w, r)
	if ok {
		am.logger.Info(component, "logout", map[string]interface{}{
			"username": identity,
		})
	}
}

// RetryAfter returns how long the requesting client must wait for a login slot
func (am *AuthManager) RetryAfter(r *http.Request) time.Duration {
	return am.limiter.RetryAfter(am.clientKeys.Resolve(r))
}
