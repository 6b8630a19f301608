package auth

import (
	"fmt"
	"net/http"
	"time"
)

const DefaultCookieName = "warden_session"

// SessionManager binds sessions to clients through a signed cookie. The
// cookie is always HttpOnly, SameSite=Lax and Secure.
type SessionManager struct {
	tokens     *TokenManager
	store      *SessionStore
	cookieName string
	ttl        time.Duration
	now        func() time.Time
}

// NewSessionManager creates a session manager
func NewSessionManager(tokens *TokenManager, store *SessionStore, cookieName string, ttl time.Duration) *SessionManager {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &SessionManager{
		tokens:     tokens,
		store:      store,
		cookieName: cookieName,
		ttl:        ttl,
		now:        tokens.now,
	}
}

// Load returns the session carried by the request, or nil if the cookie is
// missing, forged, expired or belongs to a cleared session.
func (m *SessionManager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := m.tokens.ValidateToken(cookie.Value)
	if err != nil {
		return nil
	}

	if session.State() == Authenticated {
		bound := m.store.Get(session.ID)
		if bound == nil || bound.Identity != session.Identity || bound.IsExpired(m.now()) {
			return nil
		}
	}
	return session
}

// Current returns the authenticated identity of the request, if any
func (m *SessionManager) Current(r *http.Request) (string, bool) {
	session := m.Load(r)
	if session == nil || session.State() != Authenticated {
		return "", false
	}
	return session.Identity, true
}

// CSRFToken returns the CSRF token of the request's session
func (m *SessionManager) CSRFToken(r *http.Request) (string, bool) {
	session := m.Load(r)
	if session == nil {
		return "", false
	}
	return session.CSRFToken, true
}

// Ensure returns the request's session, issuing an anonymous one (with a
// fresh CSRF token) when there is none.
func (m *SessionManager) Ensure(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if session := m.Load(r); session != nil {
		return session, nil
	}

	session, err := NewSession("", m.now(), m.ttl)
	if err != nil {
		return nil, err
	}
	if err := m.writeCookie(w, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Create replaces whatever session the request had with a new one for
// identity. The old session is revoked first and never reused.
func (m *SessionManager) Create(w http.ResponseWriter, r *http.Request, identity string) (*Session, error) {
	m.revoke(r)

	session, err := NewSession(identity, m.now(), m.ttl)
	if err != nil {
		return nil, err
	}
	m.store.Create(session)

	if err := m.writeCookie(w, session); err != nil {
		m.store.Delete(session.ID)
		return nil, err
	}
	return session, nil
}

// Clear revokes the request's session and expires the cookie
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) {
	m.revoke(r)
	http.SetCookie(w, m.cookie("", -1, time.Unix(0, 0)))
}

// CleanupExpired drops expired sessions from the store
func (m *SessionManager) CleanupExpired() int {
	return m.store.CleanupExpired(m.now())
}

func (m *SessionManager) revoke(r *http.Request) {
	if session := m.Load(r); session != nil {
		m.store.Delete(session.ID)
	}
}

func (m *SessionManager) writeCookie(w http.ResponseWriter, session *Session) error {
	token, err := m.tokens.GenerateToken(session)
	if err != nil {
		return fmt.Errorf("failed to issue session cookie: %w", err)
	}
	http.SetCookie(w, m.cookie(token, int(m.ttl.Seconds()), session.ExpiresAt))
	return nil
}

func (m *SessionManager) cookie(value string, maxAge int, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}
