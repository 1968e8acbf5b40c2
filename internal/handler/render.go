// Package handler contains the HTTP handlers: the HTML pages (home, login,
// creator dashboard), the tracked download links and the JSON API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the request (query, form, multipart, JSON)
//  2. Call one service method
//  3. Render a page, redirect, or write JSON
//
// Decisions such as "where does a creator land after sign-in" live in
// internal/dashboard; handlers only apply them.
package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/sakif/livt/internal/dashboard"
	"github.com/sakif/livt/internal/model"
)

// Page template names. Each is parsed together with base.html, which
// renders the shared header and calls {{template "content" .}}.
const (
	pageIndex     = "index"
	pageLogin     = "login"
	pageDashboard = "dashboard"
	pageError     = "error"
)

// Renderer holds the parsed page templates. Parsing happens once at
// startup; a broken template fails New instead of the first request.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// NewRenderer parses base.html plus one file per page from templateDir.
func NewRenderer(templateDir string, logger *slog.Logger) (*Renderer, error) {
	base := filepath.Join(templateDir, "base.html")
	pages := make(map[string]*template.Template)
	for _, name := range []string{pageIndex, pageLogin, pageDashboard, pageError} {
		tmpl, err := template.ParseFiles(base, filepath.Join(templateDir, name+".html"))
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// Render executes page into a buffer and writes it with status. Rendering
// into a buffer first means a template error becomes a clean 500 instead
// of half a page.
func (rd *Renderer) Render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := rd.pages[page]
	if !ok {
		rd.logger.Error("unknown page template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// RenderError shows the error page for err with its mapped status.
func (rd *Renderer) RenderError(w http.ResponseWriter, viewer *model.User, err error) {
	status, _ := errorStatus(err)
	rd.Render(w, status, pageError, errorView{
		layout:  newLayout(http.StatusText(status), viewer),
		Heading: http.StatusText(status),
		Message: messageFor(err),
	})
}

// layout is the data every page shares with base.html. Page views embed it.
type layout struct {
	Title     string
	WhoAmI    string
	SignedIn  bool
	IsCreator bool
}

func newLayout(title string, viewer *model.User) layout {
	return layout{
		Title:     title,
		WhoAmI:    dashboard.WhoAmI(viewer),
		SignedIn:  viewer != nil,
		IsCreator: viewer.IsCreator(),
	}
}

type errorView struct {
	layout
	Heading string
	Message string
}
