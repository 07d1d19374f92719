package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendaconsole/internal/api"
	"agendaconsole/internal/config"
	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
	"agendaconsole/internal/session"
)

// fakeAPI is a minimal booking API for company 7.
type fakeAPI struct {
	mu             sync.Mutex
	reject         bool
	rejectSettings bool
	segment        string
	posted         []model.Appointment
	created        []model.Client
	publicReqs     []model.PublicAppointmentRequest
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reply := func(v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/")
	public := strings.HasPrefix(path, "public/") || strings.HasPrefix(path, "appointment-requests/public")

	if path == "Auth/login" {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			reply(map[string]string{"message": "Credenciais inválidas"})
			return
		}
		reply(map[string]any{"dados": map[string]any{
			"user":  map[string]any{"id": 1, "name": "Ana", "email": "ana@example.com", "empresaId": 7},
			"token": "tok",
		}})
		return
	}
	if !public && (f.reject || r.Header.Get("Authorization") != "Bearer tok") {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.Method + " " + path {
	case "GET settings":
		if f.rejectSettings {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		reply(map[string]any{"data": map[string]any{
			"brand_name":    "Studio Ana",
			"primary_color": "#0ea5e9",
			"segment":       f.segment,
		}})
	case "GET Appointments/company/7":
		reply(map[string]any{"dados": []map[string]any{
			{"id": 10, "companyId": 7, "professionalId": 3, "clientId": 4, "serviceId": 5, "startAt": "2026-02-14T09:30:00", "durationMinutes": 60},
			{"id": 11, "companyId": 7, "professionalId": 3, "clientId": 4, "serviceId": 5, "startAt": "not a date", "durationMinutes": 30},
		}})
	case "POST Appointments":
		var a model.Appointment
		_ = json.NewDecoder(r.Body).Decode(&a)
		f.posted = append(f.posted, a)
		a.ID = 99
		reply(a)
	case "GET Clients":
		reply([]map[string]any{{"id": 4, "name": "Maria", "email": "maria@example.com"}})
	case "POST Clients":
		var cl model.Client
		_ = json.NewDecoder(r.Body).Decode(&cl)
		f.created = append(f.created, cl)
		cl.ID = 40
		reply(cl)
	case "GET Professionals/company/7":
		reply([]map[string]any{{"id": 3, "companyId": 7, "name": "João", "email": "joao@example.com"}})
	case "GET Services/company/7":
		reply([]map[string]any{{"id": 5, "companyId": 7, "name": "Corte", "price": 50, "durationMinutes": 60}})
	case "GET cases":
		reply([]map[string]any{{"id": 1, "title": "Ação trabalhista", "status": "aberto"}})
	case "GET public/companies/7":
		reply(map[string]any{"id": 7, "name": "Studio Ana", "settings": map[string]any{"public_working_days": "1,2,3,4,5"}})
	case "GET appointment-requests/public/availability":
		reply([]string{"09:00", "10:00"})
	case "POST appointment-requests/public":
		var req model.PublicAppointmentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.publicReqs = append(f.publicReqs, req)
		w.WriteHeader(http.StatusCreated)
		reply(map[string]bool{"ok": true})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeAPI) setReject(v bool) {
	f.mu.Lock()
	f.reject = v
	f.mu.Unlock()
}

var testNow = time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, f *fakeAPI, idle time.Duration) *Server {
	t.Helper()
	appLog.SetOutput(io.Discard)

	upstream := httptest.NewServer(f)
	t.Cleanup(upstream.Close)

	cfg := config.DefaultConfig()
	cfg.APIBaseURL = upstream.URL
	cfg.Timezone = "UTC"
	cfg.SessionSecret = "test-secret"
	cfg.CacheDir = t.TempDir()

	s, err := NewServer(cfg,
		api.New(cfg.APIBaseURL, 5*time.Second),
		session.NewStore(idle),
		api.NewSettingsCache(cfg.CacheDir, time.Minute),
	)
	require.NoError(t, err)
	s.skipCSRF = true
	s.now = func() time.Time { return testNow }
	return s
}

func do(s *Server, method, target string, form url.Values, cookie string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func loginAs(t *testing.T, s *Server) string {
	t.Helper()
	rec := do(s, http.MethodPost, "/login", url.Values{"email": {"ana@example.com"}, "password": {"secret"}}, "")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/agenda", rec.Header().Get("Location"))
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c.Value
		}
	}
	t.Fatal("no session cookie set")
	return ""
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	rec := do(s, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestTemplatesParse(t *testing.T) {
	r, err := newRenderer()
	require.NoError(t, err)
	for _, page := range []string{
		"agenda.html", "day.html", "print.html", "login.html", "inactive.html",
		"clients.html", "professionals.html", "permissions.html", "services.html",
		"products.html", "stocks.html", "movements.html", "cases.html",
		"billing.html", "settings.html", "dashboard.html", "public.html",
	} {
		assert.Contains(t, r.pages, page)
	}
}

func TestProtectedPagesRedirectToLogin(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)

	rec := do(s, http.MethodGet, "/agenda", nil, "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = do(s, http.MethodGet, "/api/calendar", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginAndAgenda(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)
	assert.Equal(t, 1, s.sessions.Len())

	rec := do(s, http.MethodGet, "/agenda?month=2026-02", nil, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "fevereiro de 2026")
	assert.Contains(t, body, "Maria · Corte")
	assert.Contains(t, body, "09:30")
	assert.Contains(t, body, "--primary:#0ea5e9")
	assert.Contains(t, body, "Studio Ana")
	assert.Contains(t, body, "1 agendamento(s) sem data válida")
}

func TestLoginRejectsBadPassword(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	rec := do(s, http.MethodPost, "/login", url.Values{"email": {"ana@example.com"}, "password": {"wrong"}}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "E-mail ou senha inválidos.")
	assert.Equal(t, 0, s.sessions.Len())
}

func TestUpstreamUnauthorizedResetsSession(t *testing.T) {
	f := &fakeAPI{}
	s := newTestServer(t, f, 0)
	sid := loginAs(t, s)

	f.setReject(true)
	rec := do(s, http.MethodGet, "/agenda", nil, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, 0, s.sessions.Len())
}

func TestIdleSessionGoesToInactive(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, time.Millisecond)
	sess := s.sessions.Create(model.User{ID: 1}, api.Auth{Token: "tok"})
	time.Sleep(5 * time.Millisecond)

	rec := do(s, http.MethodGet, "/agenda", nil, sess.ID)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/inactive", rec.Header().Get("Location"))
}

func TestCasesOnlyForLawSegment(t *testing.T) {
	f := &fakeAPI{segment: "beauty-salon"}
	s := newTestServer(t, f, 0)
	sid := loginAs(t, s)
	rec := do(s, http.MethodGet, "/cases", nil, sid)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	law := newTestServer(t, &fakeAPI{segment: "law"}, 0)
	sid = loginAs(t, law)
	rec = do(law, http.MethodGet, "/cases", nil, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Ação trabalhista")
	assert.Contains(t, rec.Body.String(), "<h1>Casos</h1>")
}

func TestThemeJSON(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodGet, "/api/theme", nil, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	var got themeJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Studio Ana", got.Title)
	assert.Equal(t, "#0ea5e9", got.Vars["--primary"])
	assert.Equal(t, "#ffffff", got.Vars["--primary-foreground"])
	assert.Equal(t, "#0ea5e9", got.Vars["--accent"])
}

func TestCalendarJSON(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodGet, "/api/calendar?month=2026-02", nil, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	var got calendarJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2026-02", got.Month)
	assert.Equal(t, "sunday", got.WeekStart)
	assert.Equal(t, 0, got.Leading)
	require.Len(t, got.Days, 28)
	assert.Equal(t, 1, got.Unscheduled)

	day := got.Days[13]
	assert.Equal(t, "2026-02-14", day.Date)
	require.Len(t, day.Items, 1)
	assert.Equal(t, "09:30", day.Items[0].Time)
	assert.Equal(t, "Maria · Corte", day.Items[0].Title)
	assert.True(t, got.Days[9].Today)
}

func TestAppointmentSaveWarnsOnConflict(t *testing.T) {
	f := &fakeAPI{}
	s := newTestServer(t, f, 0)
	sid := loginAs(t, s)

	form := url.Values{
		"date":            {"2026-02-14"},
		"time":            {"10:00"},
		"durationMinutes": {"30"},
		"clientId":        {"4"},
		"professionalId":  {"3"},
		"serviceId":       {"5"},
	}
	rec := do(s, http.MethodPost, "/appointments", form, sid)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/agenda?month=2026-02", rec.Header().Get("Location"))

	f.mu.Lock()
	require.Len(t, f.posted, 1)
	assert.Equal(t, "2026-02-14T10:00:00", f.posted[0].StartAt)
	assert.Equal(t, int64(7), f.posted[0].CompanyID)
	f.mu.Unlock()

	rec = do(s, http.MethodGet, "/agenda?month=2026-02", nil, sid)
	assert.Contains(t, rec.Body.String(), "conflita com 1 agendamento(s)")
}

func TestAppointmentSaveValidatesForm(t *testing.T) {
	f := &fakeAPI{}
	s := newTestServer(t, f, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodPost, "/appointments", url.Values{"date": {"2026-02-14"}, "time": {"25:00"}}, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, f.posted)
}

func TestAgendaICS(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodGet, "/agenda.ics?month=2026-02", nil, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/calendar")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "agenda-2026-02.ics")
	assert.Contains(t, rec.Body.String(), "BEGIN:VCALENDAR")
	assert.Contains(t, rec.Body.String(), "BEGIN:VEVENT")
}

func TestAgendaPrintIsReady(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodGet, "/agenda/print?month=2026-02", nil, sid)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-ready="true"`)
	assert.NotContains(t, rec.Body.String(), `class="sidebar"`)
}

func TestPublicBooking(t *testing.T) {
	f := &fakeAPI{}
	s := newTestServer(t, f, 0)

	rec := do(s, http.MethodGet, "/public/appointment?company=7&date=2026-02-16", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "10:00")

	// Saturday is not a working day for this company.
	rec = do(s, http.MethodGet, "/public/appointment?company=7&date=2026-02-14", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	form := url.Values{
		"company": {"7"},
		"date":    {"2026-02-16"},
		"time":    {"11:00"},
		"name":    {"Bia"},
		"phone":   {"11999990000"},
	}
	rec = do(s, http.MethodPost, "/public/appointment", form, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	form.Set("time", "10:00")
	rec = do(s, http.MethodPost, "/public/appointment", form, "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "Solicitação enviada")

	f.mu.Lock()
	defer f.mu.Unlock()
	require.Len(t, f.publicReqs, 1)
	assert.Equal(t, int64(7), f.publicReqs[0].CompanyID)
	assert.Equal(t, "10:00", f.publicReqs[0].Time)
}

func TestLogoutClearsSession(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodPost, "/logout", url.Values{}, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, 0, s.sessions.Len())
}

func TestPlain(t *testing.T) {
	n := int64(5)
	var nilPtr *int64
	assert.Equal(t, "5", plain(&n))
	assert.Equal(t, "5", plain(int64(5)))
	assert.Equal(t, "", plain(nilPtr))
	assert.Equal(t, "", plain(nil))
}

func TestInactiveKeepsLiveSession(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodGet, "/inactive", nil, sid)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.sessions.Len())
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, session.CookieName, c.Name)
	}

	rec = do(s, http.MethodGet, "/agenda", nil, sid)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInactiveClearsExpiredSession(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, time.Millisecond)
	sess := s.sessions.Create(model.User{ID: 1}, api.Auth{Token: "tok"})
	time.Sleep(5 * time.Millisecond)

	rec := do(s, http.MethodGet, "/inactive", nil, sess.ID)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, s.sessions.Len())

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestSettingsUnauthorizedResetsSession(t *testing.T) {
	f := &fakeAPI{rejectSettings: true}
	s := newTestServer(t, f, 0)
	sid := loginAs(t, s)

	rec := do(s, http.MethodGet, "/agenda", nil, sid)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Equal(t, 0, s.sessions.Len())
}

var csrfField = regexp.MustCompile(`name="gorilla\.csrf\.Token" value="([^"]+)"`)

// csrfFrom returns the form token rendered in rec and the cookie it pairs with.
func csrfFrom(t *testing.T, rec *httptest.ResponseRecorder) (string, *http.Cookie) {
	t.Helper()
	m := csrfField.FindStringSubmatch(rec.Body.String())
	require.Len(t, m, 2, "no csrf field rendered")
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			return m[1], c
		}
	}
	t.Fatal("no csrf cookie set")
	return "", nil
}

func send(s *Server, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func upload(t *testing.T, token string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("gorilla.csrf.Token", token))
	fw, err := mw.CreateFormFile("file", "clientes.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(bytes.Repeat([]byte("a"), size))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestCSRFGuardsLogin(t *testing.T) {
	s := newTestServer(t, &fakeAPI{}, 0)
	s.skipCSRF = false

	rec := send(s, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token, cookie := csrfFrom(t, rec)

	creds := url.Values{"email": {"ana@example.com"}, "password": {"secret"}}
	rec = send(s, postForm("/login", creds), cookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, s.sessions.Len())

	creds.Set("gorilla.csrf.Token", token)
	rec = send(s, postForm("/login", creds), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/agenda", rec.Header().Get("Location"))
	assert.Equal(t, 1, s.sessions.Len())
}

func TestCSRFGuardsClientForms(t *testing.T) {
	f := &fakeAPI{}
	s := newTestServer(t, f, 0)
	s.skipCSRF = false
	company := int64(7)
	sess := s.sessions.Create(model.User{ID: 1, EmpresaID: &company}, api.Auth{Token: "tok"})
	sessCookie := &http.Cookie{Name: session.CookieName, Value: sess.ID}

	rec := send(s, httptest.NewRequest(http.MethodGet, "/clients", nil), sessCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	token, csrfCookie := csrfFrom(t, rec)

	client := url.Values{"name": {"Bia"}, "email": {"bia@example.com"}}
	rec = send(s, postForm("/clients", client), sessCookie, csrfCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	client.Set("gorilla.csrf.Token", token)
	rec = send(s, postForm("/clients", client), sessCookie, csrfCookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/clients", rec.Header().Get("Location"))

	f.mu.Lock()
	require.Len(t, f.created, 1)
	assert.Equal(t, "Bia", f.created[0].Name)
	f.mu.Unlock()
}

func TestClientImportSizeCapWithCSRF(t *testing.T) {
	f := &fakeAPI{}
	s := newTestServer(t, f, 0)
	s.skipCSRF = false
	company := int64(7)
	sess := s.sessions.Create(model.User{ID: 1, EmpresaID: &company}, api.Auth{Token: "tok"})
	sessCookie := &http.Cookie{Name: session.CookieName, Value: sess.ID}

	rec := send(s, httptest.NewRequest(http.MethodGet, "/clients", nil), sessCookie)
	require.Equal(t, http.StatusOK, rec.Code)
	token, csrfCookie := csrfFrom(t, rec)

	// A small file passes the token check and reaches the spreadsheet reader.
	body, ct := upload(t, token, 1024)
	req := httptest.NewRequest(http.MethodPost, "/clients/import", body)
	req.Header.Set("Content-Type", ct)
	rec = send(s, req, sessCookie, csrfCookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/clients", rec.Header().Get("Location"))
	flash := s.sessions.PopFlash(sess.ID)
	assert.Contains(t, flash, "Não foi possível ler a planilha")

	// Declared length over the cap: rejected before anything reads the body.
	body, ct = upload(t, token, 12<<20)
	req = httptest.NewRequest(http.MethodPost, "/clients/import", body)
	req.Header.Set("Content-Type", ct)
	rec = send(s, req, sessCookie, csrfCookie)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, s.sessions.PopFlash(sess.ID))

	// Unknown length: the capped reader stops the form parse, so the token
	// is never found.
	body, ct = upload(t, token, 12<<20)
	req = httptest.NewRequest(http.MethodPost, "/clients/import", body)
	req.Header.Set("Content-Type", ct)
	req.ContentLength = -1
	rec = send(s, req, sessCookie, csrfCookie)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, s.sessions.PopFlash(sess.ID))

	f.mu.Lock()
	assert.Empty(t, f.created)
	f.mu.Unlock()
}
