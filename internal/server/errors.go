package server

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/accelerated-industries/warden/internal/guard"
)

// errorMessages are the only texts an error page ever shows
var errorMessages = map[int]string{
	http.StatusBadRequest:          "The request could not be processed.",
	http.StatusNotFound:            "The page you requested does not exist.",
	http.StatusMethodNotAllowed:    "That method is not allowed here.",
	http.StatusInternalServerError: "Something went wrong. Please try again.",
}

// errorPage is the view model of views/error.html
type errorPage struct {
	Title    string
	Identity string
	Status   int
	Message  string
}

// writeError renders the generic page for status. Nothing about the cause
// reaches the client.
func (s *Server) writeError(w http.ResponseWriter, status int) {
	message, ok := errorMessages[status]
	if !ok {
		status = http.StatusInternalServerError
		message = errorMessages[status]
	}

	data := errorPage{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	}
	if err := s.renderer.Render(w, status, "error", data); err != nil {
		s.logger.Error(component, "render_failed", map[string]interface{}{
			"page":  "error",
			"error": err.Error(),
		})
		writeFallbackError(w, status, message)
	}
}

// writeFallbackError is used when the error template itself fails
func writeFallbackError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><title>%s</title><p>%s</p>",
		guard.Escape(http.StatusText(status)), guard.Escape(message))
}

func (s *Server) notFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed)
}

func (s *Server) csrfRejected(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn(component, "csrf_rejected", map[string]interface{}{
		"method":     r.Method,
		"path":       r.URL.Path,
		"client_key": s.clientKeys.Resolve(r),
	})
	s.writeError(w, http.StatusBadRequest)
}

// retryAfterSeconds rounds d up to whole seconds, at least one
func retryAfterSeconds(d time.Duration) string {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
