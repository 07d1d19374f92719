package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendaconsole/internal/api"
	"agendaconsole/internal/model"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestStore(idle time.Duration) (*Store, *clock) {
	c := &clock{t: time.Date(2026, 2, 14, 9, 0, 0, 0, time.UTC)}
	s := NewStore(idle)
	s.now = c.now
	return s, c
}

func TestIdleTimeoutResetsOnTouch(t *testing.T) {
	store, clk := newTestStore(5 * time.Minute)
	company := int64(7)
	sess := store.Create(model.User{ID: 1, EmpresaID: &company}, api.Auth{Token: "tok"})
	assert.Equal(t, company, sess.CompanyID)

	clk.t = clk.t.Add(4 * time.Minute)
	_, err := store.Touch(sess.ID)
	require.NoError(t, err)

	clk.t = clk.t.Add(4 * time.Minute)
	got, err := store.Get(sess.ID)
	require.NoError(t, err, "touch must push the deadline")
	assert.Equal(t, "tok", got.Auth.Token)

	clk.t = clk.t.Add(time.Minute)
	_, err = store.Touch(sess.ID)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrNotFound, "expired sessions are removed")
}

func TestGetDoesNotExtend(t *testing.T) {
	store, clk := newTestStore(time.Minute)
	sess := store.Create(model.User{}, api.Auth{})

	clk.t = clk.t.Add(50 * time.Second)
	_, err := store.Get(sess.ID)
	require.NoError(t, err)

	clk.t = clk.t.Add(20 * time.Second)
	_, err = store.Get(sess.ID)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestFlashIsOneShot(t *testing.T) {
	store, _ := newTestStore(time.Minute)
	sess := store.Create(model.User{}, api.Auth{})

	store.SetFlash(sess.ID, "Falha ao salvar")
	assert.Equal(t, "Falha ao salvar", store.PopFlash(sess.ID))
	assert.Empty(t, store.PopFlash(sess.ID))
	assert.Empty(t, store.PopFlash("missing"))
}

func TestSweepAndActive(t *testing.T) {
	store, clk := newTestStore(time.Minute)
	old := store.Create(model.User{ID: 1}, api.Auth{})
	clk.t = clk.t.Add(45 * time.Second)
	fresh := store.Create(model.User{ID: 2}, api.Auth{})
	clk.t = clk.t.Add(30 * time.Second)

	active := store.Active()
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID)

	assert.Equal(t, 1, store.Sweep())
	assert.Equal(t, 1, store.Len())
	_, err := store.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCookieRoundTrip(t *testing.T) {
	rec := httptest.NewRecorder()
	SetCookie(rec, "abc", true)
	res := rec.Result()
	cookies := res.Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	assert.Equal(t, "abc", IDFromRequest(req))
	assert.Empty(t, IDFromRequest(httptest.NewRequest(http.MethodGet, "/", nil)))
}
