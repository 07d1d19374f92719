package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// BrandingConfig holds fallback branding used before (or when) the upstream
// settings endpoint answers.
type BrandingConfig struct {
	BrandName    string `yaml:"brand_name" json:"brand_name"`
	PrimaryColor string `yaml:"primary_color" json:"primary_color"`
	FaviconURL   string `yaml:"favicon_url" json:"favicon_url"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the console.
	Listen string `yaml:"listen" json:"listen"`

	// APIBaseURL is the root of the booking REST API, without the /api suffix
	// (e.g. "http://localhost:5267").
	APIBaseURL string `yaml:"api_base_url" json:"api_base_url"`

	// RequestTimeout bounds every upstream call, as a Go duration string.
	RequestTimeout string `yaml:"request_timeout" json:"request_timeout"`

	// PublicBaseURL is used to compose the shareable public booking link.
	// Empty means "derive from the incoming request".
	PublicBaseURL string `yaml:"public_base_url" json:"public_base_url"`

	// Timezone is the IANA zone used to bucket appointments into days.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is "sunday" (default, matches the booking API's locale) or "monday".
	WeekStart string `yaml:"week_start" json:"week_start"`

	// MaxVisiblePerDay caps the appointments drawn inside one calendar cell.
	MaxVisiblePerDay int `yaml:"max_visible_per_day" json:"max_visible_per_day"`

	// IdleTimeout logs a console session out after this much inactivity.
	IdleTimeout string `yaml:"idle_timeout" json:"idle_timeout"`

	// SessionSecret keys the CSRF cookie. Must be 32 bytes once decoded;
	// shorter values are stretched by the web layer.
	SessionSecret string `yaml:"session_secret" json:"-"`

	// SecureCookies marks session and CSRF cookies Secure (HTTPS only).
	SecureCookies bool `yaml:"secure_cookies" json:"secure_cookies"`

	// Refresh is the cron spec for refreshing cached tenant settings.
	Refresh string `yaml:"refresh" json:"refresh"`

	// SnapshotCron, if set, periodically captures the printable agenda to
	// SnapshotPath via headless Chromium.
	SnapshotCron string `yaml:"snapshot_cron" json:"snapshot_cron"`
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`

	// SnapshotEmail/SnapshotPassword is the account the snapshot job logs in
	// with. The password only comes from AGENDA_SNAPSHOT_PASSWORD.
	SnapshotEmail    string `yaml:"snapshot_email" json:"snapshot_email"`
	SnapshotPassword string `yaml:"-" json:"-"`

	// CacheDir stores the last known settings per company.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	LogLevel string `yaml:"log_level" json:"log_level"`

	Branding BrandingConfig `yaml:"branding" json:"branding"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:           "127.0.0.1:8080",
		APIBaseURL:       "http://localhost:5267",
		RequestTimeout:   "15s",
		Timezone:         "America/Sao_Paulo",
		WeekStart:        "sunday",
		MaxVisiblePerDay: 3,
		IdleTimeout:      "5m",
		Refresh:          "*/15 * * * *",
		SnapshotPath:     "./var/agenda.png",
		CacheDir:         "./var/cache",
		LogLevel:         "info",
		Branding: BrandingConfig{
			BrandName: "Agenda",
		},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
		c.RequestTimeout = d.RequestTimeout
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	switch strings.ToLower(c.WeekStart) {
	case "sunday", "monday":
		c.WeekStart = strings.ToLower(c.WeekStart)
	default:
		c.WeekStart = d.WeekStart
	}
	if c.MaxVisiblePerDay <= 0 {
		c.MaxVisiblePerDay = d.MaxVisiblePerDay
	}
	if dur, err := time.ParseDuration(c.IdleTimeout); err != nil || dur <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.Refresh == "" {
		c.Refresh = d.Refresh
	}
	if c.SnapshotPath == "" {
		c.SnapshotPath = d.SnapshotPath
	}
	if c.CacheDir == "" {
		c.CacheDir = d.CacheDir
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Branding.BrandName == "" {
		c.Branding.BrandName = d.Branding.BrandName
	}
}

// IdleTimeoutDuration returns IdleTimeout parsed; Normalize guarantees it is valid.
func (c *Config) IdleTimeoutDuration() time.Duration {
	dur, err := time.ParseDuration(c.IdleTimeout)
	if err != nil || dur <= 0 {
		return 5 * time.Minute
	}
	return dur
}

func (c *Config) RequestTimeoutDuration() time.Duration {
	dur, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || dur <= 0 {
		return 15 * time.Second
	}
	return dur
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
//
// Environment overrides (see ApplyEnv) are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	cfg.Normalize()

	return &cfg, nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from AGENDA_* environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("AGENDA_API_BASE_URL")); v != "" {
		c.APIBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("AGENDA_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("AGENDA_SESSION_SECRET"); v != "" {
		c.SessionSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENDA_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENDA_TIMEZONE")); v != "" {
		c.Timezone = v
	}
	if v := strings.TrimSpace(os.Getenv("AGENDA_SNAPSHOT_EMAIL")); v != "" {
		c.SnapshotEmail = v
	}
	if v := os.Getenv("AGENDA_SNAPSHOT_PASSWORD"); v != "" {
		c.SnapshotPassword = v
	}
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".agendaconsole-config-*.tmp")
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

func (c *Config) Save(path string) error {
	return Save(path, c)
}
