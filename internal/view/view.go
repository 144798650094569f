// Package view renders the server-side pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/registration"
)

//go:embed templates/*.html
var files embed.FS

// Page is the data every template receives
type Page struct {
	Title   string
	Path    string
	Flash   *browser.Flash
	User    *model.User
	IsAdmin bool
	// Form echoes submitted values back into the form
	Form   map[string]string
	Errors map[string]string
	Data   any
}

// Renderer holds one parsed template set per page, each combined with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"maskPhone":       registration.MaskPhone,
	"formatRemaining": registration.FormatRemaining,
	"money": func(v float64) string {
		return fmt.Sprintf("৳%.2f", v)
	},
	"active": func(cur, href string) bool {
		return cur == href
	},
	"fieldOf": func(p Page, name string) field {
		return field{Name: name, Errors: p.Errors}
	},
}

type field struct {
	Name   string
	Errors map[string]string
}

func New() (*Renderer, error) {
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := path.Base(name)
		if strings.HasPrefix(base, "_") {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(files, "templates/_*.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Render writes page with status. Nothing is written if execution fails.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) error {
	t, ok := r.pages[page]
	if !ok {
		return fmt.Errorf("view: unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return fmt.Errorf("view: render %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Has reports whether page exists.
func (r *Renderer) Has(page string) bool {
	_, ok := r.pages[page]
	return ok
}
