package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AnchorLayout is the date layout of SemesterConfig.AnchorMonday and of
// the anchor query parameter.
const AnchorLayout = "2006-01-02"

// SemesterConfig describes where one semester's course dataset comes from.
type SemesterConfig struct {
	// ID is an internal identifier used in URLs and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label, also the workbook title.
	Name string `yaml:"name" json:"name"`
	// Path is a local JSON dataset file. Takes precedence over URL.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	// URL is an HTTP endpoint serving the JSON dataset.
	URL string `yaml:"url,omitempty" json:"url,omitempty"`
	// AnchorMonday is the default week-1 Monday ("2024-09-02"), optional.
	AnchorMonday string `yaml:"anchor_monday,omitempty" json:"anchor_monday,omitempty"`
}

// Anchor parses AnchorMonday. ok is false when it is unset.
func (s SemesterConfig) Anchor() (t time.Time, ok bool, err error) {
	if s.AnchorMonday == "" {
		return time.Time{}, false, nil
	}
	t, err = time.ParseInLocation(AnchorLayout, s.AnchorMonday, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("semester %q anchor_monday: %w", s.ID, err)
	}
	return t, true, nil
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// PublicURL is the externally reachable base URL used in share links
	// and QR codes. Derived from Listen when empty.
	PublicURL string `yaml:"public_url" json:"public_url"`

	// Timezone is the label written as X-WR-TIMEZONE into exported calendars.
	// Event times stay local wall-clock; no conversion happens.
	Timezone string `yaml:"timezone" json:"timezone"`

	// CalendarName is the X-WR-CALNAME used when a request does not name one.
	CalendarName string `yaml:"calendar_name" json:"calendar_name"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule for re-fetching URL datasets.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// CacheDir holds fetched dataset bodies and their HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ShareTTLMinutes bounds how long a shared calendar reference stays valid.
	ShareTTLMinutes int `yaml:"share_ttl_minutes" json:"share_ttl_minutes"`

	// Semesters lists the selectable datasets. The first one is the default.
	Semesters []SemesterConfig `yaml:"semesters" json:"semesters"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health and /share/*.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		Timezone:        "Asia/Shanghai",
		CalendarName:    "课表",
		LogLevel:        "info",
		RefreshCron:     "0 */6 * * *",
		CacheDir:        "/var/lib/coursecal/cache",
		ShareTTLMinutes: 10,
		Semesters:       []SemesterConfig{},
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.PublicURL == "" {
		c.PublicURL = "http://" + c.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.CalendarName == "" {
		c.CalendarName = def.CalendarName
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.ShareTTLMinutes <= 0 {
		c.ShareTTLMinutes = def.ShareTTLMinutes
	}
	if c.Semesters == nil {
		c.Semesters = []SemesterConfig{}
	}
	for i := range c.Semesters {
		if c.Semesters[i].ID == "" {
			c.Semesters[i].ID = fmt.Sprintf("semester-%d", i+1)
		}
		if c.Semesters[i].Name == "" {
			c.Semesters[i].Name = c.Semesters[i].ID
		}
	}
}

// ShareTTL returns ShareTTLMinutes as a duration.
func (c *Config) ShareTTL() time.Duration {
	return time.Duration(c.ShareTTLMinutes) * time.Minute
}

// Semester looks up a semester by ID. An empty ID selects the first one.
func (c *Config) Semester(id string) (SemesterConfig, bool) {
	if len(c.Semesters) == 0 {
		return SemesterConfig{}, false
	}
	if id == "" {
		return c.Semesters[0], true
	}
	for _, s := range c.Semesters {
		if s.ID == id {
			return s, true
		}
	}
	return SemesterConfig{}, false
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
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

	tmp, err := os.CreateTemp(dir, ".coursecal-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
