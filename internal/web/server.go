// Package web serves the admin console: server-rendered pages over the
// booking API, plus a few JSON endpoints.
package web

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"

	"agendaconsole/internal/api"
	"agendaconsole/internal/config"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/session"
)

const csrfCookieName = "agendaconsole_csrf"

// Server wires the console routes to the API client and session store.
type Server struct {
	cfg      *config.Config
	api      *api.Client
	sessions *session.Store
	settings *api.SettingsCache
	views    *renderer
	loc      *time.Location
	router   chi.Router

	csrfKey []byte
	// skipCSRF disables token checks; tests only.
	skipCSRF bool

	now func() time.Time
}

func NewServer(cfg *config.Config, client *api.Client, sessions *session.Store, cache *api.SettingsCache) (*Server, error) {
	views, err := newRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		api:      client,
		sessions: sessions,
		settings: cache,
		views:    views,
		loc:      cfg.Location(),
		csrfKey:  csrfKey(cfg.SessionSecret),
		now:      time.Now,
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Sessions() *session.Store { return s.sessions }

// csrfKey derives the 32-byte CSRF key. Without a configured secret a random
// key is used, so tokens do not survive a restart.
func csrfKey(secret string) []byte {
	if secret != "" {
		sum := sha256.Sum256([]byte(secret))
		return sum[:]
	}
	appLog.Warn("session_secret not set; using an ephemeral CSRF key")
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("csrf key: %v", err))
	}
	return key
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(securityHeaders)
	r.Use(limitUploads)
	r.Use(s.csrfTransport)
	r.Use(csrf.Protect(s.csrfKey,
		csrf.Secure(s.cfg.SecureCookies),
		csrf.Path("/"),
		csrf.CookieName(csrfCookieName),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(s.handleCSRFFailure)),
	))

	r.Get("/health", s.handleHealth)
	r.Handle("/assets/*", staticFileServer())

	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Get("/inactive", s.handleInactive)
	r.Post("/logout", s.handleLogout)

	r.Get("/public/appointment", s.handlePublicPage)
	r.Post("/public/appointment", s.handlePublicSubmit)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/agenda", http.StatusFound)
		})

		r.Get("/agenda", s.handleAgenda)
		r.Get("/agenda/day", s.handleAgendaDay)
		r.Get("/agenda/print", s.handleAgendaPrint)
		r.Get("/agenda.ics", s.handleAgendaICS)
		r.Get("/agenda.xlsx", s.handleAgendaXLSX)
		r.Post("/appointments", s.handleAppointmentSave)
		r.Post("/appointments/{id}", s.handleAppointmentSave)
		r.Post("/appointments/{id}/delete", s.handleAppointmentDelete)

		r.Get("/clients", s.handleClients)
		r.Post("/clients", s.handleClientSave)
		r.Post("/clients/import", s.handleClientImport)
		r.Post("/clients/{id}", s.handleClientSave)
		r.Post("/clients/{id}/delete", s.handleClientDelete)

		r.Get("/professionals", s.handleProfessionals)
		r.Post("/professionals", s.handleProfessionalSave)
		r.Post("/professionals/{id}", s.handleProfessionalSave)
		r.Post("/professionals/{id}/delete", s.handleProfessionalDelete)
		r.Get("/professionals/{id}/permissions", s.handlePermissions)
		r.Post("/professionals/{id}/permissions", s.handlePermissionsSave)

		r.Get("/services", s.handleServices)
		r.Post("/services", s.handleServiceSave)
		r.Post("/services/{id}", s.handleServiceSave)
		r.Post("/services/{id}/delete", s.handleServiceDelete)

		r.Get("/products", s.handleProducts)
		r.Post("/products", s.handleProductSave)
		r.Post("/products/{id}", s.handleProductSave)
		r.Post("/products/{id}/delete", s.handleProductDelete)

		r.Get("/stocks", s.handleStocks)
		r.Get("/stocks.xlsx", s.handleStocksXLSX)
		r.Post("/stocks", s.handleStockSave)
		r.Post("/stocks/{id}", s.handleStockSave)
		r.Post("/stocks/{id}/delete", s.handleStockDelete)

		r.Get("/movements", s.handleMovements)
		r.Post("/movements", s.handleMovementCreate)
		r.Post("/movements/{id}/delete", s.handleMovementDelete)

		r.Route("/cases", func(r chi.Router) {
			r.Use(s.requireCases)
			r.Get("/", s.handleCases)
			r.Post("/", s.handleCaseSave)
			r.Post("/{id}", s.handleCaseSave)
			r.Post("/{id}/delete", s.handleCaseDelete)
		})

		r.Get("/billing", s.handleBilling)
		r.Post("/billing/checkout", s.handleCheckout)
		r.Get("/billing/invoices/{id}/download", s.handleInvoiceDownload)

		r.Get("/settings", s.handleSettings)
		r.Post("/settings", s.handleSettingsSave)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/notifications", s.handleNotifications)

		r.Get("/api/calendar", s.handleCalendarJSON)
		r.Get("/api/theme", s.handleThemeJSON)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Start serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func Start(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "api", s.api.BaseURL())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		appLog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
