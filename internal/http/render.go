package http

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

var pageTemplates = []string{
	"login.html",
	"register.html",
	"dashboard.html",
	"add_transaction.html",
	"goals.html",
}

var templateFuncs = template.FuncMap{
	"money": formatMoney,
	"date":  func(d core.Date) string { return d.String() },
	"monthLabel": func(m core.MonthKey) string {
		return m.Label()
	},
	"lower": strings.ToLower,
}

// renderer holds one template set per page, each parsed together with the
// shared layout.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(fsys fs.FS) (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(pageTemplates))}
	for _, page := range pageTemplates {
		t, err := template.New("layout.html").Funcs(templateFuncs).
			ParseFS(fsys, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// pageData is what every page template receives.
type pageData struct {
	Title      string
	User       auth.Identity
	LoggedIn   bool
	Flash      *flashMessage
	Error      string
	Categories []string
	Data       any
}

// render executes into a buffer first so a template error still produces
// a clean 500 instead of a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	t, ok := s.renderer.pages[page]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	data.User, data.LoggedIn = auth.IdentityFrom(r.Context())
	if data.Flash == nil {
		data.Flash = s.takeFlash(w, r)
	}
	if data.Categories == nil {
		data.Categories = s.categories
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			log.FieldComponent, log.ComponentTemplate,
			"template", page,
			log.FieldError, err.Error())
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

const flashCookieName = "fintrack_flash"

type flashMessage struct {
	Kind    string
	Message string
}

// setFlash stores a one-shot message shown on the next rendered page.
func (s *Server) setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(kind + "|" + message),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) takeFlash(w http.ResponseWriter, r *http.Request) *flashMessage {
	c, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Value: "", Path: "/", MaxAge: -1})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	if kind != "success" && kind != "error" {
		kind = "info"
	}
	return &flashMessage{Kind: kind, Message: message}
}
