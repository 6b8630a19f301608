package guard

import (
	"crypto/subtle"
	"errors"
	"net/http"
)

const (
	// FormField is the form field carrying the CSRF token
	FormField = "csrf_token"
	// HeaderName is the request header alternative to FormField
	HeaderName = "X-CSRF-Token"

	// MaxBodyBytes caps state-changing request bodies
	MaxBodyBytes = 64 << 10
)

var ErrCSRFRejected = errors.New("csrf token missing or invalid")

// TokenSource returns the CSRF token bound to the request's session
type TokenSource func(r *http.Request) (string, bool)

// CSRF returns middleware that checks state-changing requests against the
// session's token. Rejected requests go to reject and never reach next.
func CSRF(source TokenSource, reject http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

			if Verify(r, source) != nil {
				reject.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Verify checks the token submitted with r against the session's token
func Verify(r *http.Request, source TokenSource) error {
	expected, ok := source(r)
	if !ok || expected == "" {
		return ErrCSRFRejected
	}

	submitted := r.Header.Get(HeaderName)
	if submitted == "" {
		submitted = r.PostFormValue(FormField)
	}
	if submitted == "" {
		return ErrCSRFRejected
	}

	if subtle.ConstantTimeCompare([]byte(submitted), []byte(expected)) != 1 {
		return ErrCSRFRejected
	}
	return nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
