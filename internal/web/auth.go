package web

import (
	"errors"
	"net/http"

	"agendaconsole/internal/api"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/session"
)

type loginView struct {
	Email string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if id := session.IDFromRequest(r); id != "" {
		if _, err := s.sessions.Get(id); err == nil {
			http.Redirect(w, r, "/agenda", http.StatusFound)
			return
		}
	}
	s.render(w, http.StatusOK, "login.html", "layout", s.publicPage(r, "Entrar", nil, loginView{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := formStr(r, "email")
	password := r.PostFormValue("password")

	res, err := s.api.Login(r.Context(), email, password)
	if err != nil {
		msg := "Falha ao entrar. Tente novamente."
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, api.ErrUnauthorized):
			msg, status = "E-mail ou senha inválidos.", http.StatusUnauthorized
		case api.StatusOf(err) == 0 && (email == "" || password == ""):
			msg, status = "Informe e-mail e senha.", http.StatusBadRequest
		case api.StatusOf(err) >= 400 && api.StatusOf(err) < 500:
			msg, status = api.Message(err, msg), http.StatusBadRequest
		default:
			appLog.Error("login failed", err)
		}
		s.render(w, status, "login.html", "layout", s.publicPage(r, "Entrar", nil, loginView{Email: email, Error: msg}))
		return
	}

	sess := s.sessions.Create(res.User, res.Auth)
	session.SetCookie(w, sess.ID, s.cfg.SecureCookies)
	appLog.Info("console login", "user", res.User.ID, "company", sess.CompanyID)
	http.Redirect(w, r, "/agenda", http.StatusSeeOther)
}

// handleInactive clears the cookie of a dead session. A live session is
// left untouched; only the idle check ends it.
func (s *Server) handleInactive(w http.ResponseWriter, r *http.Request) {
	if id := session.IDFromRequest(r); id != "" {
		if _, err := s.sessions.Get(id); err != nil {
			session.ClearCookie(w, s.cfg.SecureCookies)
		}
	}
	s.render(w, http.StatusOK, "inactive.html", "layout", s.publicPage(r, "Sessão encerrada", nil, nil))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := session.IDFromRequest(r); id != "" {
		if sess, err := s.sessions.Get(id); err == nil {
			if err := s.api.WithAuth(sess.Auth).Logout(r.Context()); err != nil {
				appLog.Warn("upstream logout failed", "error", err)
			}
		}
		s.sessions.Delete(id)
	}
	session.ClearCookie(w, s.cfg.SecureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
