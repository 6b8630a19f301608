package guard

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"slices"
	"strconv"
	"strings"
)

// SharedDir holds layouts and partials available to every page
const SharedDir = "shared"

var exts = []string{".html", ".tmpl", ".tpl"}

// Renderer executes html/template pages. Every value reaching a page is
// escaped for the context it lands in, so handlers pass raw strings.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses the shared templates of fsys and then every page,
// keyed by path without extension ("login", "errors/404").
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	root := template.New("root")

	err := sourceTemplates(fsys, SharedDir, func(content []byte, key string) error {
		var err error
		root, err = root.New(key).Parse(string(content))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse shared templates: %w", err)
	}

	pages := make(map[string]*template.Template)
	err = sourceTemplates(fsys, ".", func(content []byte, key string) error {
		if strings.HasPrefix(key, SharedDir+"/") {
			return nil
		}
		templ, err := root.Clone()
		if err != nil {
			return err
		}
		pages[key], err = templ.New(key).Parse(string(content))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}

	return &Renderer{pages: pages}, nil
}

// Render executes page into a buffer and only then writes the status and
// body, so a failing template never leaves a half-written response.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data any) error {
	templ, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("template %s not found", page)
	}

	var buf bytes.Buffer
	if err := templ.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", page, err)
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func sourceTemplates(fsys fs.FS, base string, fn func(content []byte, key string) error) error {
	return fs.WalkDir(fsys, base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// a missing shared directory is fine
			if p == base && base != "." && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := path.Ext(d.Name())
		if !slices.Contains(exts, ext) {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		return fn(content, strings.TrimSuffix(p, ext))
	})
}
