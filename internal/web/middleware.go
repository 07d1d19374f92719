package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"agendaconsole/internal/api"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/segment"
	"agendaconsole/internal/session"
)

type ctxKey int

const sessionKey ctxKey = iota

func sessionFrom(ctx context.Context) (session.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(session.Session)
	return sess, ok
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()
		next.ServeHTTP(ww, r)
		if r.URL.Path == "/health" {
			return
		}
		appLog.Info("http request",
			"id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; img-src 'self' data: https:; style-src 'self' 'unsafe-inline'; script-src 'self' 'unsafe-inline'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// maxUploadBody bounds a multipart request: the file plus room for the
// other fields and part headers.
const maxUploadBody = maxImportSize + 1<<20

// limitUploads caps multipart bodies before anything parses them. It must
// run ahead of the CSRF middleware, which reads the whole form to find the
// token.
func limitUploads(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := strings.ToLower(r.Header.Get("Content-Type"))
		if r.Method == http.MethodPost && strings.HasPrefix(ct, "multipart/form-data") {
			if r.ContentLength > maxUploadBody {
				appLog.Warn("upload rejected", "path", r.URL.Path, "bytes", r.ContentLength)
				http.Error(w, "Arquivo maior que 10 MB.", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
		}
		next.ServeHTTP(w, r)
	})
}

// csrfTransport tells the CSRF middleware whether the request came over
// plain HTTP; without it every local POST fails the origin check.
func (s *Server) csrfTransport(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.skipCSRF {
			r = csrf.UnsafeSkipCheck(r)
		}
		if r.TLS == nil && !s.cfg.SecureCookies {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCSRFFailure(w http.ResponseWriter, r *http.Request) {
	appLog.Warn("csrf check failed", "path", r.URL.Path, "reason", csrf.FailureReason(r))
	http.Error(w, "Formulário expirado. Recarregue a página e tente novamente.", http.StatusForbidden)
}

// requireSession loads and touches the console session. Expired sessions
// go to /inactive, missing ones to /login.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := session.IDFromRequest(r)
		if id == "" {
			s.redirectLogin(w, r)
			return
		}
		sess, err := s.sessions.Touch(id)
		switch {
		case errors.Is(err, session.ErrExpired):
			session.ClearCookie(w, s.cfg.SecureCookies)
			http.Redirect(w, r, "/inactive", http.StatusSeeOther)
			return
		case err != nil:
			session.ClearCookie(w, s.cfg.SecureCookies)
			s.redirectLogin(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

func (s *Server) redirectLogin(w http.ResponseWriter, r *http.Request) {
	if isJSONRequest(r) {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// requireCases hides the cases section for tenants outside the law segment.
func (s *Server) requireCases(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, _ := sessionFrom(r.Context())
		settings, err := s.tenantSettings(r.Context(), sess)
		if err != nil && errors.Is(err, api.ErrUnauthorized) {
			s.resetSession(w, r, sess)
			return
		}
		if !segment.CasesEnabled(settingStr(settingsSegment(settings))) {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// resetSession drops the console session after the API rejected its
// credentials and sends the user back to the login page.
func (s *Server) resetSession(w http.ResponseWriter, r *http.Request, sess session.Session) {
	appLog.Warn("upstream rejected credentials; resetting session", "user", sess.User.ID)
	s.sessions.Delete(sess.ID)
	session.ClearCookie(w, s.cfg.SecureCookies)
	s.redirectLogin(w, r)
}
