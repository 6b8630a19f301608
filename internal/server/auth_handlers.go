package server

import (
	"errors"
	"net/http"

	"github.com/accelerated-industries/warden/internal/auth"
)

const (
	loginFailedMessage      = "Invalid username or password."
	loginRateLimitedMessage = "Too many attempts. Please try again later."
)

// handleLoginForm handles GET /login
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "login", &view{Title: "Login"})
}

// handleLogin handles POST /login. Every failure shows the same message so
// the response never tells which part of the credentials was wrong.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds := auth.Credentials{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	_, err := s.auth.Login(w, r, creds)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusFound)

	case errors.Is(err, auth.ErrRateLimited):
		w.Header().Set("Retry-After", retryAfterSeconds(s.auth.RetryAfter(r)))
		s.render(w, r, http.StatusTooManyRequests, "login", &view{
			Title: "Login - Rate Limited",
			Error: loginRateLimitedMessage,
		})

	case errors.Is(err, auth.ErrInvalidCredentials):
		s.render(w, r, http.StatusOK, "login", &view{
			Title:    "Login",
			Error:    loginFailedMessage,
			Username: creds.Username,
		})

	default:
		s.logger.Error(component, "login_error", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeError(w, http.StatusInternalServerError)
	}
}

// handleLogout handles GET /logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.auth.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}
