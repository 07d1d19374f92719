package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendaconsole/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func TestSanitizeBase(t *testing.T) {
	assert.Equal(t, "http://localhost:5267/api/", SanitizeBase("http://localhost:5267/"))
	assert.Equal(t, "http://localhost:5267/api/", SanitizeBase("http://localhost:5267"))
}

func TestUnwrap(t *testing.T) {
	assert.JSONEq(t, `[1,2]`, string(Unwrap([]byte(`{"dados":[1,2],"data":[3]}`))))
	assert.JSONEq(t, `[3]`, string(Unwrap([]byte(`{"dados":null,"data":[3]}`))))
	assert.JSONEq(t, `{"id":1}`, string(Unwrap([]byte(`{"id":1}`))))
	assert.JSONEq(t, `[4]`, string(Unwrap([]byte(` [4] `))))
	assert.Empty(t, Unwrap(nil))
}

func TestListEndpointsTolerateEnvelopes(t *testing.T) {
	bodies := map[string]string{
		"/api/Clients":                `[{"id":1,"name":"Ana","email":"ana@example.com"}]`,
		"/api/cases":                  `{"dados":[{"id":9,"title":"Inventário","client_id":3}]}`,
		"/api/notifications":          `{"data":{"unexpected":"object"}}`,
		"/api/Appointments/company/7": `{"data":[{"id":2,"startAt":"2026-02-14 09:00","durationMinutes":30}]}`,
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	})
	ctx := context.Background()

	clients, err := c.Clients(ctx)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Ana", clients[0].Name)

	cases, err := c.Cases(ctx)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.NotNil(t, cases[0].ClientID)
	assert.Equal(t, int64(3), *cases[0].ClientID)

	notes, err := c.Notifications(ctx)
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	appts, err := c.AppointmentsByCompany(ctx, 7)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, 30, appts[0].DurationMinutes)
}

func TestAuthHeadersAndCookiesAreForwarded(t *testing.T) {
	var gotAuth, gotCookie string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if ck, err := r.Cookie("sid"); err == nil {
			gotCookie = ck.Value
		}
		_, _ = io.WriteString(w, `[]`)
	})

	authed := c.WithAuth(Auth{Token: "tok", Cookies: []*http.Cookie{{Name: "sid", Value: "abc"}}})
	_, err := authed.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "abc", gotCookie)

	gotAuth = ""
	_, err = c.Products(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "WithAuth must not leak into the parent client")
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Sessão expirada"}`)
	})
	_, err := c.Clients(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
	assert.Equal(t, "Sessão expirada", Message(err, "falhou"))
}

func TestErrorMessageFromEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"data":{"error":"Horário indisponível"}}`)
	})
	_, err := c.CreateAppointment(context.Background(), model.Appointment{ProfessionalID: 1})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, "Horário indisponível", Message(err, "x"))
	assert.Equal(t, "x", Message(errors.New("boom"), "x"))
}

func TestLoginCapturesTokenAndCookies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/Auth/login", r.URL.Path)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "auth", Value: "c00kie", HttpOnly: true})
		_, _ = io.WriteString(w, `{"data":{"user":{"id":4,"name":"Bia","email":"bia@example.com","empresaId":7},"token":"jwt"}}`)
	})

	res, err := c.Login(context.Background(), " bia@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(7), res.User.CompanyID())
	assert.Equal(t, "jwt", res.Auth.Token)
	require.Len(t, res.Auth.Cookies, 1)
	assert.Equal(t, "c00kie", res.Auth.Cookies[0].Value)

	_, err = c.Login(context.Background(), "bia@example.com", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = c.Login(context.Background(), "", "x")
	assert.Error(t, err)
}

func TestAvailableSlotsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/appointment-requests/public/availability", r.URL.Path)
		assert.Equal(t, "7", r.URL.Query().Get("companyId"))
		assert.Equal(t, "2026-02-14", r.URL.Query().Get("date"))
		_, _ = io.WriteString(w, `{"dados":["09:00","09:30"]}`)
	})
	slots, err := c.AvailableSlots(context.Background(), 7, "2026-02-14")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30"}, slots)
}

func TestProfessionalPermissionsShapes(t *testing.T) {
	wrapped := true
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			var body map[string][]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{}, body["permissions"])
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if wrapped {
			_, _ = io.WriteString(w, `{"data":{"permissions":["agenda.read"]}}`)
			return
		}
		_, _ = io.WriteString(w, `{"permissions":["clients.write"]}`)
	})
	ctx := context.Background()

	got, err := c.ProfessionalPermissions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"agenda.read"}, got)

	wrapped = false
	got, err = c.ProfessionalPermissions(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"clients.write"}, got)

	require.NoError(t, c.SetProfessionalPermissions(ctx, 3, nil))
}

func TestCheckoutRejectsUnknownPlan(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)
	_, err := c.Checkout(context.Background(), "gold", 1)
	assert.Error(t, err)
}

func TestDownloadInvoice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/billing/invoices/in_1/download", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="INV-0001.pdf"`)
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	d, err := c.DownloadInvoice(context.Background(), "in_1")
	require.NoError(t, err)
	assert.Equal(t, "INV-0001.pdf", d.Filename)
	assert.Equal(t, "%PDF-1.4", string(d.Body))
}

func TestCreateMovementValidatesType(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)
	_, err := c.CreateMovement(context.Background(), model.StockMovement{MovementType: "SIDEWAYS"})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/api/Clients", redactURL("https://user:pw@api.example.com/api/Clients"))
	assert.Equal(t, "https://api.example.com/api/x?redacted", redactURL("https://api.example.com/api/x?token=abc"))
	assert.Equal(t, "api://...(redacted)", redactURL("not a url"))
}

func TestSettingsCacheFallsBackToDisk(t *testing.T) {
	healthy := true
	brand := "Studio"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !healthy {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": model.Settings{BrandName: &brand}})
	})
	dir := t.TempDir()
	cache := NewSettingsCache(dir, time.Minute)
	ctx := context.Background()

	res, err := cache.Get(ctx, c, 7)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, "Studio", model.Str(res.Settings.BrandName))
	assert.FileExists(t, filepath.Join(dir, "company-7", "settings.json"))

	res, err = cache.Get(ctx, c, 7)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.False(t, res.Stale)

	healthy = false
	fresh := NewSettingsCache(dir, time.Minute)
	res, err = fresh.Get(ctx, c, 7)
	require.NoError(t, err)
	assert.True(t, res.Stale)
	assert.Equal(t, "Studio", model.Str(res.Settings.BrandName))

	_, err = fresh.Get(ctx, c, 8)
	assert.Error(t, err)
}

func TestSettingsCacheDoesNotMaskUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "company-1"), 0o700))
	cache := NewSettingsCache(dir, time.Minute)
	cache.Put(1, model.Settings{})
	cache.Invalidate(1)

	_, err := cache.Get(context.Background(), c, 1)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestSettingsCacheConcurrentPutsLeaveReadableCopy(t *testing.T) {
	dir := t.TempDir()
	cache := NewSettingsCache(dir, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			brand := "brand-" + strconv.Itoa(i) + "-" + strings.Repeat("x", 4096)
			cache.Put(7, model.Settings{BrandName: &brand})
		}(i)
	}
	wg.Wait()

	s, at, err := cache.load(7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(model.Str(s.BrandName), "brand-"))
	assert.False(t, at.IsZero())

	entries, err := os.ReadDir(filepath.Join(dir, "company-7"))
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"meta.json", "settings.json"}, names)
}
