package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"agendaconsole/internal/api"
	"agendaconsole/internal/branding"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
	"agendaconsole/internal/segment"
	"agendaconsole/internal/session"
)

//go:embed templates/*.html static/*
var embedded embed.FS

// Raw HTML in notes is escaped; WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

var funcs = template.FuncMap{
	"markdown": func(md string) template.HTML {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(md), &buf); err != nil {
			return template.HTML(template.HTMLEscapeString(md))
		}
		return template.HTML(buf.String())
	},
	"str":   model.Str,
	"deref": func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	},
	"money": func(v float64) string {
		return "R$ " + strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
	},
	"checked": func(ok bool) template.HTMLAttr {
		if ok {
			return "checked"
		}
		return ""
	},
	"selected": func(a, b any) template.HTMLAttr {
		if plain(a) == plain(b) {
			return "selected"
		}
		return ""
	},
	"active": func(p *bool) bool { return p == nil || *p },
	"list":   func(v ...string) []string { return v },
}

// plain formats v for comparison, following pointers; nil is "".
func plain(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return ""
	}
	return fmt.Sprint(rv.Interface())
}

type renderer struct {
	pages map[string]*template.Template
}

// newRenderer parses every page together with the layout and partials.
func newRenderer() (*renderer, error) {
	names, err := fs.Glob(embedded, "templates/*.html")
	if err != nil {
		return nil, err
	}
	shared := []string{"templates/layout.html", "templates/partials.html"}
	r := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" || base == "partials.html" {
			continue
		}
		t, err := template.New(base).Funcs(funcs).ParseFS(embedded, append(shared, name)...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", base, err)
		}
		r.pages[base] = t
	}
	return r, nil
}

// pageData is what every template receives.
type pageData struct {
	Title        string
	Nav          string
	Theme        branding.Theme
	ThemeCSS     template.CSS
	Labels       segment.Labels
	CasesEnabled bool
	User         *model.User
	Flash        string
	Notice       string
	CSRF         template.HTML
	IdleSeconds  int
	Data         any
}

// render executes root ("layout" or a standalone root) of page into a
// buffer first so a template error never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, status int, page, root string, data *pageData) {
	t, ok := s.views.pages[page]
	if !ok {
		appLog.Error("unknown template", errors.New("not found"), "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, root, data); err != nil {
		appLog.Error("render failed", err, "page", page)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// page builds the common data for an authenticated page: theme, labels,
// pending alert and CSRF field. Settings failures fall back to the
// configured branding, except a 401, which resets the session and reports
// false; the handler must return.
func (s *Server) page(w http.ResponseWriter, r *http.Request, title, nav string, data any) (*pageData, bool) {
	sess, _ := sessionFrom(r.Context())
	settings, err := s.tenantSettings(r.Context(), sess)
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		s.resetSession(w, r, sess)
		return nil, false
	case err != nil:
		appLog.Error("settings unavailable, using configured branding", err, "company", sess.CompanyID)
	}
	theme := s.themeFor(settings)
	user := sess.User
	return &pageData{
		Title:        title,
		Nav:          nav,
		Theme:        theme,
		ThemeCSS:     template.CSS(theme.CSS()),
		Labels:       segment.For(settingStr(settingsSegment(settings))),
		CasesEnabled: segment.CasesEnabled(settingStr(settingsSegment(settings))),
		User:         &user,
		Flash:        s.sessions.PopFlash(sess.ID),
		CSRF:         csrf.TemplateField(r),
		IdleSeconds:  int(s.sessions.IdleTimeout() / time.Second),
		Data:         data,
	}, true
}

// publicPage is page for visitors without a session.
func (s *Server) publicPage(r *http.Request, title string, settings *model.Settings, data any) *pageData {
	theme := s.themeFor(settings)
	return &pageData{
		Title:    title,
		Theme:    theme,
		ThemeCSS: template.CSS(theme.CSS()),
		Labels:   segment.For(settingStr(settingsSegment(settings))),
		CSRF:     csrf.TemplateField(r),
		Data:     data,
	}
}

func settingsSegment(s *model.Settings) *string {
	if s == nil {
		return nil
	}
	return s.Segment
}

// themeFor applies tenant settings over the configured branding.
func (s *Server) themeFor(settings *model.Settings) branding.Theme {
	base := model.Settings{}
	if s.cfg.Branding.PrimaryColor != "" {
		primary := s.cfg.Branding.PrimaryColor
		base.PrimaryColor = &primary
	}
	merged := base
	if settings != nil {
		merged = *settings
		if merged.PrimaryColor == nil {
			merged.PrimaryColor = base.PrimaryColor
		}
	}
	return branding.Apply(&merged).WithFallback(s.cfg.Branding.BrandName, s.cfg.Branding.FaviconURL)
}

// tenantSettings returns the cached settings of the session's company. The
// returned pointer is nil when nothing is known.
func (s *Server) tenantSettings(ctx context.Context, sess session.Session) (*model.Settings, error) {
	if s.settings == nil || sess.ID == "" {
		return nil, nil
	}
	res, err := s.settings.Get(ctx, s.api.WithAuth(sess.Auth), sess.CompanyID)
	if err != nil {
		return nil, err
	}
	return &res.Settings, nil
}

func settingStr(p *string) string {
	return strings.TrimSpace(model.Str(p))
}

// staticFileServer serves the embedded stylesheet and scripts under /assets/.
func staticFileServer() http.Handler {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "assets not available", http.StatusServiceUnavailable)
		})
	}
	files := http.StripPrefix("/assets/", http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/") || strings.Contains(r.Header.Get("Accept"), "application/json")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
