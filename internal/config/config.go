package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"dayplan/internal/ics"
	"dayplan/internal/model"
	"dayplan/internal/plan"
	"dayplan/internal/tasks"
)

const (
	defaultListen      = "127.0.0.1:8080"
	defaultRefreshCron = "*/15 * * * *"
	defaultWorkStart   = "08:00"
	defaultWorkEnd     = "22:00"
	defaultSlotMinutes = 15
	defaultDataDir     = "./var/dayplan"
)

// ICSConfig describes a single calendar feed.
type ICSConfig struct {
	// URL is an http(s) feed, a file:// URL or a local .ics path.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup and logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TaskConfig is a seed task entry.
type TaskConfig struct {
	ID        string `yaml:"id,omitempty" json:"id,omitempty"`
	Title     string `yaml:"title" json:"title"`
	Minutes   int    `yaml:"minutes" json:"minutes"`
	Priority  string `yaml:"priority" json:"priority"`
	Completed bool   `yaml:"completed,omitempty" json:"completed,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone the day is planned in. Empty means the
	// system local zone.
	Timezone string `yaml:"timezone" json:"timezone"`

	// RefreshCron is a cron expression for re-fetching calendar events
	// while serving.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// LogLevel is one of debug, info, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// DataDir holds tasks.json, plan.json and the ICS cache.
	DataDir string `yaml:"data_dir" json:"data_dir"`

	// MarkdownPath is where a saved plan is written. Defaults to
	// <data_dir>/daily-plan.md.
	MarkdownPath string `yaml:"markdown_path,omitempty" json:"markdown_path,omitempty"`

	// WorkStart / WorkEnd bound the working window ("HH:MM").
	WorkStart string `yaml:"work_start" json:"work_start"`
	WorkEnd   string `yaml:"work_end" json:"work_end"`

	// SlotMinutes is the cursor step used when searching for a free slot.
	SlotMinutes int `yaml:"slot_minutes" json:"slot_minutes"`

	// ICS is the list of calendar feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// DefaultTasks seeds the task list when nothing is persisted yet.
	DefaultTasks []TaskConfig `yaml:"default_tasks" json:"default_tasks"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	seed := tasks.Defaults()
	defaults := make([]TaskConfig, 0, len(seed))
	for _, t := range seed {
		defaults = append(defaults, TaskConfig{
			ID:       t.ID,
			Title:    t.Title,
			Minutes:  t.EstimatedDuration,
			Priority: string(t.Priority),
		})
	}

	return &Config{
		Listen:       defaultListen,
		RefreshCron:  defaultRefreshCron,
		LogLevel:     "info",
		DataDir:      defaultDataDir,
		WorkStart:    defaultWorkStart,
		WorkEnd:      defaultWorkEnd,
		SlotMinutes:  defaultSlotMinutes,
		ICS:          []ICSConfig{},
		DefaultTasks: defaults,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.WorkStart == "" {
		c.WorkStart = defaultWorkStart
	}
	if c.WorkEnd == "" {
		c.WorkEnd = defaultWorkEnd
	}
	if c.SlotMinutes <= 0 {
		c.SlotMinutes = defaultSlotMinutes
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	if c.DefaultTasks == nil {
		c.DefaultTasks = []TaskConfig{}
	}
}

// Window parses the working window settings.
func (c *Config) Window() (plan.Window, error) {
	start, err := parseClock(c.WorkStart)
	if err != nil {
		return plan.Window{}, goerr.Wrap(err, "invalid work_start", goerr.V("value", c.WorkStart))
	}
	end, err := parseClock(c.WorkEnd)
	if err != nil {
		return plan.Window{}, goerr.Wrap(err, "invalid work_end", goerr.V("value", c.WorkEnd))
	}
	w := plan.Window{Start: start, End: end, Step: time.Duration(c.SlotMinutes) * time.Minute}
	if err := w.Validate(); err != nil {
		return plan.Window{}, goerr.Wrap(err, "invalid working window")
	}
	return w, nil
}

// parseClock turns "HH:MM" into an offset from midnight. "24:00" is allowed
// as an end of day.
func parseClock(s string) (time.Duration, error) {
	if s == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// Location resolves Timezone, falling back to time.Local when empty.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid timezone", goerr.V("timezone", c.Timezone))
	}
	return loc, nil
}

// Sources converts the ICS entries into fetch sources, skipping entries
// without a URL. The id falls back to the name, then the URL.
func (c *Config) Sources() []ics.Source {
	sources := make([]ics.Source, 0, len(c.ICS))
	for _, csrc := range c.ICS {
		if csrc.URL == "" {
			continue
		}
		id := csrc.ID
		if id == "" {
			if csrc.Name != "" {
				id = csrc.Name
			} else {
				id = csrc.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: csrc.URL})
	}
	return sources
}

// SeedTasks converts DefaultTasks into model tasks.
func (c *Config) SeedTasks() []model.Task {
	out := make([]model.Task, 0, len(c.DefaultTasks))
	for _, tc := range c.DefaultTasks {
		p, err := model.ParsePriority(tc.Priority)
		if err != nil {
			p = model.PriorityMedium
		}
		out = append(out, model.Task{
			ID:                tc.ID,
			Title:             tc.Title,
			EstimatedDuration: tc.Minutes,
			Priority:          p,
			Completed:         tc.Completed,
		})
	}
	return out
}

// CacheDir is the ICS cache directory under DataDir.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "ics-cache")
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.Window(); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms (creating parent directories) and returned.
//   - Otherwise the YAML is decoded, normalized and validated.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, goerr.Wrap(err, "failed to read config", goerr.V("path", path))
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config", goerr.V("path", path))
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid config", goerr.V("path", path))
	}

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file + rename, with 0600
// permissions on the final file and 0700 on a created parent directory.
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
		return goerr.Wrap(err, "failed to create config dir", goerr.V("dir", dir))
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to encode config")
	}

	tmp, err := os.CreateTemp(dir, ".dayplan-config-*.tmp")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp config", goerr.V("dir", dir))
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
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename config into place: %w", err)
	}

	return nil
}
