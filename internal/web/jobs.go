package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"agendaconsole/internal/capture"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/session"
)

// RefreshSettings re-fetches the settings of every company that has a live
// console session, using that session's credentials. Failures keep the
// cached copy.
func (s *Server) RefreshSettings(ctx context.Context) {
	if s.settings == nil {
		return
	}
	seen := make(map[int64]bool)
	failed := 0
	for _, sess := range s.sessions.Active() {
		if sess.CompanyID == 0 || seen[sess.CompanyID] {
			continue
		}
		seen[sess.CompanyID] = true
		if _, err := s.settings.Refresh(ctx, s.api.WithAuth(sess.Auth), sess.CompanyID); err != nil {
			failed++
			appLog.Warn("settings refresh failed", "company", sess.CompanyID, "error", err)
		}
	}
	appLog.Debug("settings refresh done", "companies", len(seen), "failed", failed)
}

// SweepSessions drops sessions idle past the timeout.
func (s *Server) SweepSessions() {
	if n := s.sessions.Sweep(); n > 0 {
		appLog.Info("expired console sessions removed", "count", n, "active", s.sessions.Len())
	}
}

// Snapshot renders the month's print page to cfg.SnapshotPath. It logs in
// with the configured snapshot account, serves the console on an ephemeral
// loopback port and points headless Chromium at it with that session.
func (s *Server) Snapshot(ctx context.Context, month time.Time) error {
	if s.cfg.SnapshotEmail == "" || s.cfg.SnapshotPassword == "" {
		return errors.New("snapshot: snapshot_email and AGENDA_SNAPSHOT_PASSWORD are required")
	}

	res, err := s.api.Login(ctx, s.cfg.SnapshotEmail, s.cfg.SnapshotPassword)
	if err != nil {
		return fmt.Errorf("snapshot: login: %w", err)
	}
	sess := s.sessions.Create(res.User, res.Auth)
	defer s.sessions.Delete(sess.ID)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("snapshot: listen: %w", err)
	}
	srv := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Error("snapshot server stopped", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	target := capture.PrintURL("http://"+ln.Addr().String(), month)
	started := time.Now()
	err = capture.SnapshotAgenda(ctx, capture.Options{
		URL:        target,
		OutputPath: s.cfg.SnapshotPath,
		Cookies:    []*http.Cookie{{Name: session.CookieName, Value: sess.ID, Path: "/"}},
	})
	if err != nil {
		return err
	}
	appLog.Info("agenda snapshot written",
		"path", s.cfg.SnapshotPath,
		"month", month.Format("2006-01"),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}
