package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger writes one access log line per request. Only the method,
// path, status, duration and client key are logged; never bodies, query
// strings, cookies or headers.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		fields := map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      status,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_key":  s.clientKeys.Resolve(r),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error(component, "request", fields)
			return
		}
		s.logger.Info(component, "request", fields)
	})
}
