package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/accelerated-industries/warden/internal/board"
	"github.com/accelerated-industries/warden/internal/catalog"
)

const anonymousAuthor = "anonymous"

var validate = validator.New()

// view is the data every page template receives. Values are raw; the
// templates escape them.
type view struct {
	Title     string
	Identity  string
	CSRFToken string

	Error    string
	Username string
	Query    string
	Results  []catalog.Product
	Comments []board.Comment
	Text     string
}

// commentForm is a submitted comment
type commentForm struct {
	Text string `validate:"required,max=2000"`
}

// render fills in the session fields of v and renders page. A client
// without a session gets an anonymous one so its forms carry a CSRF token.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, v *view) {
	session, err := s.sessions.Ensure(w, r)
	if err != nil {
		s.logger.Error(component, "session_error", map[string]interface{}{
			"error": err.Error(),
		})
		s.writeError(w, http.StatusInternalServerError)
		return
	}
	v.Identity = session.Identity
	v.CSRFToken = session.CSRFToken

	if err := s.renderer.Render(w, status, page, v); err != nil {
		s.logger.Error(component, "render_failed", map[string]interface{}{
			"page":  page,
			"error": err.Error(),
		})
		s.writeError(w, http.StatusInternalServerError)
	}
}

// handleHome handles GET /
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "home", &view{Title: "Home - Secured App"})
}

// handleSearch handles GET /search. Lookup errors are logged and shown as
// an empty result.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")

	results, err := s.catalog.Search(r.Context(), q)
	if err != nil {
		s.logger.Warn(component, "search_failed", map[string]interface{}{
			"error": err.Error(),
		})
		results = nil
	}

	s.render(w, r, http.StatusOK, "search", &view{
		Title:   "Search - Secured",
		Query:   q,
		Results: results,
	})
}

// handleComments handles GET /comment
func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "comments", &view{
		Title:    "Comments",
		Comments: s.board.List(),
	})
}

// handleComment handles POST /comment
func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	form := commentForm{Text: r.PostFormValue("comment")}
	if err := validate.Struct(form); err != nil {
		s.writeError(w, http.StatusBadRequest)
		return
	}

	author, ok := s.sessions.Current(r)
	if !ok {
		author = anonymousAuthor
	}
	s.board.Add(author, form.Text)

	http.Redirect(w, r, "/comment", http.StatusSeeOther)
}

// handleEcho handles GET /echo
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "echo", &view{
		Title: "Echo - Secured",
		Text:  r.URL.Query().Get("text"),
	})
}
