package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/openmined/snipsync/internal/utils"
	"github.com/openmined/snipsync/internal/watch"
	"gopkg.in/yaml.v3"
)

var (
	home, _           = os.UserHomeDir()
	DefaultPrimaryDir = filepath.Join(home, "Library", "Developer", "Xcode", "UserData", "CodeSnippets")
	DefaultMirrorDir  = filepath.Join(home, "Desktop")
	DefaultFilter     = ".codesnippet"
	DefaultLatency    = watch.DefaultLatency
	DefaultBackend    = string(watch.BackendNotify)
	DefaultStateDir   = filepath.Join(home, ".snipsync")
	DefaultConfigPath = filepath.Join(DefaultStateDir, "config.yaml")
	DefaultJournal    = true
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	logFileName     = "snipsync.log"
	journalFileName = "journal.db"
)

type Config struct {
	PrimaryDir   string        `yaml:"primary_dir" mapstructure:"primary_dir"`
	MirrorDir    string        `yaml:"mirror_dir" mapstructure:"mirror_dir"`
	Filter       string        `yaml:"filter" mapstructure:"filter"`
	Ignore       []string      `yaml:"ignore,omitempty" mapstructure:"ignore"`
	Latency      time.Duration `yaml:"latency" mapstructure:"latency"`
	Backend      string        `yaml:"backend" mapstructure:"backend"`
	CreateMirror bool          `yaml:"create_mirror" mapstructure:"create_mirror"`
	SeedMirror   bool          `yaml:"seed_mirror" mapstructure:"seed_mirror"`
	SeedPrimary  bool          `yaml:"seed_primary" mapstructure:"seed_primary"`
	Force        bool          `yaml:"force" mapstructure:"force"`
	StateDir     string        `yaml:"state_dir" mapstructure:"state_dir"`
	Journal      bool          `yaml:"journal" mapstructure:"journal"`
	Verbose      bool          `yaml:"-" mapstructure:"verbose"`
	Path         string        `yaml:"-" mapstructure:"-"`
}

// Default returns a config populated with the default directories and settings.
func Default() *Config {
	return &Config{
		PrimaryDir: DefaultPrimaryDir,
		MirrorDir:  DefaultMirrorDir,
		Filter:     DefaultFilter,
		Latency:    DefaultLatency,
		Backend:    DefaultBackend,
		StateDir:   DefaultStateDir,
		Journal:    DefaultJournal,
		Path:       DefaultConfigPath,
	}
}

// Validate resolves every path to an absolute one and checks the remaining
// settings. It does not touch the watched directories.
func (c *Config) Validate() error {
	var err error

	if c.PrimaryDir, err = utils.ResolvePath(c.PrimaryDir); err != nil {
		return fmt.Errorf("%w: primary dir: %w", ErrInvalidConfig, err)
	}
	if c.MirrorDir, err = utils.ResolvePath(c.MirrorDir); err != nil {
		return fmt.Errorf("%w: mirror dir: %w", ErrInvalidConfig, err)
	}
	if c.PrimaryDir == c.MirrorDir {
		return fmt.Errorf("%w: primary and mirror dir are both %q", ErrInvalidConfig, c.PrimaryDir)
	}

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if c.StateDir, err = utils.ResolvePath(c.StateDir); err != nil {
		return fmt.Errorf("%w: state dir: %w", ErrInvalidConfig, err)
	}

	if c.Path != "" {
		if c.Path, err = utils.ResolvePath(c.Path); err != nil {
			return fmt.Errorf("%w: config path: %w", ErrInvalidConfig, err)
		}
	}

	switch {
	case c.Latency == 0:
		c.Latency = DefaultLatency
	case c.Latency < 0:
		return fmt.Errorf("%w: latency must not be negative, got %s", ErrInvalidConfig, c.Latency)
	}

	if _, err := watch.ParseBackend(c.Backend); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := c.NameFilter(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// NameFilter compiles the filter and ignore lines.
func (c *Config) NameFilter() (*watch.Filter, error) {
	return watch.NewFilter(c.Filter, c.Ignore...)
}

func (c *Config) WatchBackend() watch.Backend {
	b, _ := watch.ParseBackend(c.Backend)
	return b
}

func (c *Config) LogFilePath() string {
	return filepath.Join(c.StateDir, "logs", logFileName)
}

func (c *Config) JournalPath() string {
	return filepath.Join(c.StateDir, journalFileName)
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Load reads a YAML config. Fields missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	cfg.Path = path

	return cfg, nil
}
