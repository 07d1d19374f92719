// Package session keeps console sessions in memory. A session dies after
// a period without activity; every authenticated request touches it.
package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"agendaconsole/internal/api"
	"agendaconsole/internal/model"
)

const CookieName = "agendaconsole_session"

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

type Session struct {
	ID        string
	User      model.User
	Auth      api.Auth
	CompanyID int64
	Flash     string
	CreatedAt time.Time
	LastSeen  time.Time
}

type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idle     time.Duration
	now      func() time.Time
}

func NewStore(idle time.Duration) *Store {
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &Store{
		sessions: make(map[string]*Session),
		idle:     idle,
		now:      time.Now,
	}
}

// IdleTimeout is the inactivity window after which a session expires.
func (s *Store) IdleTimeout() time.Duration { return s.idle }

func (s *Store) Create(user model.User, auth api.Auth) Session {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		Auth:      auth,
		CompanyID: user.CompanyID(),
		CreatedAt: now,
		LastSeen:  now,
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return *sess
}

// lookup returns the live session or removes an expired one. Callers hold mu.
func (s *Store) lookup(id string) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().Sub(sess.LastSeen) >= s.idle {
		delete(s.sessions, id)
		return nil, ErrExpired
	}
	return sess, nil
}

// Get returns a copy of the session without extending it.
func (s *Store) Get(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	return *sess, nil
}

// Touch records activity and pushes the idle deadline forward.
func (s *Store) Touch(id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.lookup(id)
	if err != nil {
		return Session{}, err
	}
	sess.LastSeen = s.now()
	return *sess, nil
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// SetFlash stores a one-shot alert shown on the next rendered page.
func (s *Store) SetFlash(id, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		sess.Flash = msg
	}
}

// PopFlash returns and clears the pending alert.
func (s *Store) PopFlash(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ""
	}
	msg := sess.Flash
	sess.Flash = ""
	return msg
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.LastSeen) >= s.idle {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// Active returns copies of the live sessions.
func (s *Store) Active() []Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if now.Sub(sess.LastSeen) < s.idle {
			out = append(out, *sess)
		}
	}
	return out
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// SetCookie writes the session cookie.
func SetCookie(w http.ResponseWriter, id string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// IDFromRequest returns the session id carried by r, or "".
func IDFromRequest(r *http.Request) string {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return ck.Value
}
