package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"agendaconsole/internal/api"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/session"
)

// client returns the API client authenticated as the request's session.
func (s *Server) client(r *http.Request) (*api.Client, session.Session) {
	sess, _ := sessionFrom(r.Context())
	return s.api.WithAuth(sess.Auth), sess
}

// check turns an upstream error into a notice for the page being rendered.
// A 401 resets the session and reports stop; the handler must return.
func (s *Server) check(w http.ResponseWriter, r *http.Request, err error, fallback string) (notice string, stop bool) {
	if err == nil {
		return "", false
	}
	if errors.Is(err, api.ErrUnauthorized) {
		sess, _ := sessionFrom(r.Context())
		s.resetSession(w, r, sess)
		return "", true
	}
	appLog.Error("upstream call failed", err, "path", r.URL.Path)
	return api.Message(err, fallback), false
}

// fail ends a form action that the API rejected: a flash alert and a
// redirect back to the page the form came from.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback, back string) {
	if _, stop := s.check(w, r, err, fallback); stop {
		return
	}
	s.done(w, r, back, api.Message(err, fallback))
}

// done sets the flash alert (if any) and redirects with 303.
func (s *Server) done(w http.ResponseWriter, r *http.Request, back, msg string) {
	if sess, ok := sessionFrom(r.Context()); ok && msg != "" {
		s.sessions.SetFlash(sess.ID, msg)
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// pathID parses the {id} route parameter; 0 when absent or invalid.
func pathID(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func queryID(r *http.Request, key string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(key)), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}

func formStr(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// formOpt returns nil for an empty field.
func formOpt(r *http.Request, key string) *string {
	v := formStr(r, key)
	if v == "" {
		return nil
	}
	return &v
}

func formInt64(r *http.Request, key string) int64 {
	n, _ := strconv.ParseInt(formStr(r, key), 10, 64)
	return n
}

func formInt64Opt(r *http.Request, key string) *int64 {
	n, err := strconv.ParseInt(formStr(r, key), 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

func formInt(r *http.Request, key string) int {
	n, _ := strconv.Atoi(formStr(r, key))
	return n
}

func formIntOpt(r *http.Request, key string) *int {
	n, err := strconv.Atoi(formStr(r, key))
	if err != nil {
		return nil
	}
	return &n
}

// formFloat accepts both "12.50" and "12,50".
func formFloat(r *http.Request, key string) float64 {
	f, _ := strconv.ParseFloat(strings.Replace(formStr(r, key), ",", ".", 1), 64)
	return f
}

func formFloatOpt(r *http.Request, key string) *float64 {
	v := formStr(r, key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil {
		return nil
	}
	return &f
}

func formBool(r *http.Request, key string) *bool {
	v := formStr(r, key) != ""
	return &v
}
