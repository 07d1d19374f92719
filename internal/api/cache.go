package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	appLog "agendaconsole/internal/log"
	"agendaconsole/internal/model"
)

// SettingsResult is the outcome of a settings lookup.
type SettingsResult struct {
	Settings  model.Settings
	FromCache bool      // served from memory or disk instead of a fresh fetch
	Stale     bool      // upstream failed and a previously saved copy was used
	UpdatedAt time.Time // when the copy was fetched upstream
}

type cacheMeta struct {
	CompanyID int64     `json:"company_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type memEntry struct {
	settings  model.Settings
	updatedAt time.Time
}

// SettingsCache keeps the last settings seen per company, in memory for ttl
// and on disk under dir. When the API is unreachable the disk copy keeps
// the tenant's branding alive.
type SettingsCache struct {
	dir string
	ttl time.Duration

	mu  sync.RWMutex
	mem map[int64]memEntry

	// saveMu serializes disk writes so settings.json and meta.json stay paired.
	saveMu sync.Mutex

	now func() time.Time
}

func NewSettingsCache(dir string, ttl time.Duration) *SettingsCache {
	if dir == "" {
		dir = "./var/cache"
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SettingsCache{
		dir: dir,
		ttl: ttl,
		mem: make(map[int64]memEntry),
		now: time.Now,
	}
}

// Get returns the settings for companyID, fetching with c when the memory
// copy is older than ttl. A 401 is returned as is; any other upstream
// failure falls back to the last saved copy.
func (sc *SettingsCache) Get(ctx context.Context, c *Client, companyID int64) (SettingsResult, error) {
	sc.mu.RLock()
	e, ok := sc.mem[companyID]
	sc.mu.RUnlock()
	if ok && sc.now().Sub(e.updatedAt) < sc.ttl {
		return SettingsResult{Settings: e.settings, FromCache: true, UpdatedAt: e.updatedAt}, nil
	}
	return sc.Refresh(ctx, c, companyID)
}

// Refresh always asks upstream, then behaves like Get on failure.
func (sc *SettingsCache) Refresh(ctx context.Context, c *Client, companyID int64) (SettingsResult, error) {
	s, err := c.Settings(ctx)
	if err == nil {
		sc.Put(companyID, s)
		return SettingsResult{Settings: s, UpdatedAt: sc.now()}, nil
	}
	if errors.Is(err, ErrUnauthorized) {
		return SettingsResult{}, err
	}

	if cached, at, cacheErr := sc.load(companyID); cacheErr == nil {
		appLog.Error("settings fetch failed, using cached copy", err, "company", companyID, "cached_at", at.Format(time.RFC3339))
		return SettingsResult{Settings: cached, FromCache: true, Stale: true, UpdatedAt: at}, nil
	}
	return SettingsResult{}, err
}

// Put records fresh settings, typically right after a successful update.
func (sc *SettingsCache) Put(companyID int64, s model.Settings) {
	now := sc.now()
	sc.mu.Lock()
	sc.mem[companyID] = memEntry{settings: s, updatedAt: now}
	sc.mu.Unlock()

	if err := sc.save(companyID, s, now); err != nil {
		appLog.Error("settings cache save failed", err, "company", companyID)
	}
}

// Invalidate drops the memory copy so the next Get fetches again. The disk
// copy is kept as the outage fallback.
func (sc *SettingsCache) Invalidate(companyID int64) {
	sc.mu.Lock()
	delete(sc.mem, companyID)
	sc.mu.Unlock()
}

func (sc *SettingsCache) pathFor(companyID int64) string {
	return filepath.Join(sc.dir, "company-"+strconv.FormatInt(companyID, 10))
}

func (sc *SettingsCache) load(companyID int64) (model.Settings, time.Time, error) {
	dir := sc.pathFor(companyID)

	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return model.Settings{}, time.Time{}, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return model.Settings{}, time.Time{}, fmt.Errorf("decode cache meta: %w", err)
	}

	body, err := os.ReadFile(filepath.Join(dir, "settings.json"))
	if err != nil {
		return model.Settings{}, time.Time{}, err
	}
	var s model.Settings
	if err := json.Unmarshal(body, &s); err != nil {
		return model.Settings{}, time.Time{}, fmt.Errorf("decode cached settings: %w", err)
	}
	return s, meta.UpdatedAt, nil
}

func (sc *SettingsCache) save(companyID int64, s model.Settings, at time.Time) error {
	dir := sc.pathFor(companyID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	body, err := json.MarshalIndent(&s, "", "  ")
	if err != nil {
		return err
	}
	meta, err := json.MarshalIndent(cacheMeta{CompanyID: companyID, UpdatedAt: at.UTC()}, "", "  ")
	if err != nil {
		return err
	}

	sc.saveMu.Lock()
	defer sc.saveMu.Unlock()
	// Body first so meta never points at a missing body.
	if err := writeFileAtomic(filepath.Join(dir, "settings.json"), body); err != nil {
		return err
	}
	return writeFileAtomic(filepath.Join(dir, "meta.json"), meta)
}

// writeFileAtomic replaces path via a temp file in the same directory and a
// rename, so readers see either the old or the new content.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
