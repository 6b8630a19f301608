package guard

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "0123456789abcdef0123456789abcdef"

func staticSource(token string) TokenSource {
	return func(*http.Request) (string, bool) {
		return token, token != ""
	}
}

// csrfHarness wires CSRF around a handler that counts how often it ran
func csrfHarness(source TokenSource) (http.Handler, *int, *int) {
	var reached, rejected int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		w.WriteHeader(http.StatusOK)
	})
	reject := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rejected++
		w.WriteHeader(http.StatusBadRequest)
	})
	return CSRF(source, reject)(next), &reached, &rejected
}

func formRequest(method string, form url.Values) *http.Request {
	req := httptest.NewRequest(method, "/comment", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestSecureHeaders(t *testing.T) {
	handler := SecureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "default-src 'self'; style-src 'self' 'unsafe-inline'", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "max-age=31536000; includeSubDomains", rec.Header().Get("Strict-Transport-Security"))
}

func TestCSRF_SafeMethodsPass(t *testing.T) {
	handler, reached, rejected := csrfHarness(staticSource(""))

	for _, method := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code, method)
	}
	assert.Equal(t, 3, *reached)
	assert.Zero(t, *rejected)
}

func TestCSRF_StateChangingRequests(t *testing.T) {
	tests := []struct {
		name   string
		source TokenSource
		build  func() *http.Request
		ok     bool
	}{
		{
			name:   "matching form field",
			source: staticSource(testToken),
			build: func() *http.Request {
				return formRequest(http.MethodPost, url.Values{FormField: {testToken}, "text": {"hi"}})
			},
			ok: true,
		},
		{
			name:   "matching header",
			source: staticSource(testToken),
			build: func() *http.Request {
				req := httptest.NewRequest(http.MethodDelete, "/comment", nil)
				req.Header.Set(HeaderName, testToken)
				return req
			},
			ok: true,
		},
		{
			name:   "missing token",
			source: staticSource(testToken),
			build: func() *http.Request {
				return formRequest(http.MethodPost, url.Values{"text": {"hi"}})
			},
		},
		{
			name:   "mismatched token",
			source: staticSource(testToken),
			build: func() *http.Request {
				return formRequest(http.MethodPost, url.Values{FormField: {"deadbeef"}})
			},
		},
		{
			name:   "no session",
			source: staticSource(""),
			build: func() *http.Request {
				return formRequest(http.MethodPost, url.Values{FormField: {""}})
			},
		},
		{
			name:   "token in query string only",
			source: staticSource(testToken),
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/comment?csrf_token="+testToken, nil)
			},
		},
		{
			name:   "put without token",
			source: staticSource(testToken),
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodPut, "/comment", nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, reached, rejected := csrfHarness(tt.source)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.build())

			if tt.ok {
				assert.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, 1, *reached)
				assert.Zero(t, *rejected)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.Zero(t, *reached, "rejected request must not reach the handler")
				assert.Equal(t, 1, *rejected)
			}
		})
	}
}

func TestCSRF_OversizedBodyRejected(t *testing.T) {
	handler, reached, _ := csrfHarness(staticSource(testToken))

	body := url.Values{"text": {strings.Repeat("a", MaxBodyBytes)}, FormField: {testToken}}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, formRequest(http.MethodPost, body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, *reached)
}

func TestEscape(t *testing.T) {
	escaped := Escape(`<script>alert("x") & 'y'</script>`)

	for _, c := range []string{"<", ">", `"`, "'"} {
		assert.NotContains(t, escaped, c)
	}
	assert.Equal(t, "&lt;b&gt;", Escape("<b>"))
	assert.Equal(t, "&amp;amp;", Escape("&amp;"))
}

func TestEscapeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		`<img src=x onerror="alert(1)">`,
		"&lt; already escaped",
		"tom & jerry's \"show\"",
		"ünïcødé <>",
	}
	for _, s := range inputs {
		assert.Equal(t, s, Unescape(Escape(s)))
	}
}

func testViews() fstest.MapFS {
	return fstest.MapFS{
		"shared/base.html": {Data: []byte(`{{define "base"}}<html><body>{{template "content" .}}</body></html>{{end}}`)},
		"echo.html":        {Data: []byte(`{{template "base" .}}{{define "content"}}<p>{{.Text}}</p><a href="/search?q={{.Text}}">again</a>{{end}}`)},
		"errors/404.html":  {Data: []byte(`{{template "base" .}}{{define "content"}}not found{{end}}`)},
		"notes.txt":        {Data: []byte(`ignored`)},
	}
}

func TestRenderer_Render(t *testing.T) {
	renderer, err := NewRenderer(testViews())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	err = renderer.Render(rec, http.StatusOK, "echo", map[string]string{"Text": `<script>alert("x")</script>`})
	require.NoError(t, err)

	body := rec.Body.String()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "<html><body>")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "/search?q=%3cscript%3e")
}

func TestRenderer_NestedPageAndStatus(t *testing.T) {
	renderer, err := NewRenderer(testViews())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	require.NoError(t, renderer.Render(rec, http.StatusNotFound, "errors/404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestRenderer_UnknownPage(t *testing.T) {
	renderer, err := NewRenderer(testViews())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, renderer.Render(rec, http.StatusOK, "missing", nil))
	assert.Zero(t, rec.Body.Len())

	assert.Error(t, renderer.Render(rec, http.StatusOK, "shared/base", nil), "shared templates are not pages")
}

func TestRenderer_FailedExecutionWritesNothing(t *testing.T) {
	renderer, err := NewRenderer(fstest.MapFS{
		"broken.html": {Data: []byte(`{{template "nope" .}}`)},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	assert.Error(t, renderer.Render(rec, http.StatusOK, "broken", nil))
	assert.Zero(t, rec.Body.Len())
}

func TestNewRenderer_ParseError(t *testing.T) {
	_, err := NewRenderer(fstest.MapFS{
		"bad.html": {Data: []byte(`{{if}}`)},
	})
	assert.Error(t, err)
}
