// Package config persists user settings as YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	FileName           = "config.yaml"
	DefaultDownloadDir = "downloads"
)

var ErrInvalid = errors.New("invalid configuration")

type S3Config struct {
	Bucket  string `yaml:"bucket"`
	Prefix  string `yaml:"prefix,omitempty"`
	Profile string `yaml:"profile,omitempty"`
	Region  string `yaml:"region,omitempty"`
}

type GitConfig struct {
	URL     string `yaml:"url"`
	RawBase string `yaml:"raw_base,omitempty"`
	Ref     string `yaml:"ref,omitempty"`
	Token   string `yaml:"token,omitempty"`
	SSHKey  string `yaml:"ssh_key,omitempty"`
}

type GDriveConfig struct {
	Folders     map[string]string `yaml:"folders"`
	APIKey      string            `yaml:"api_key,omitempty"`
	Credentials string            `yaml:"credentials,omitempty"`
	Token       string            `yaml:"token,omitempty"`
}

type SourcesConfig struct {
	Feeds  map[string][]string `yaml:"feeds,omitempty"`
	S3     *S3Config           `yaml:"s3,omitempty"`
	Git    *GitConfig          `yaml:"git,omitempty"`
	GDrive *GDriveConfig       `yaml:"gdrive,omitempty"`
}

type Config struct {
	DownloadsDirectory *string       `yaml:"downloads_directory"`
	EnabledSources     []string      `yaml:"enabled_sources"`
	MaxRunning         int           `yaml:"max_running,omitempty"`
	SourceTimeout      time.Duration `yaml:"source_timeout,omitempty"`
	Sources            SourcesConfig `yaml:"sources,omitempty"`

	path string
}

// DefaultPath is $XDG_CONFIG_HOME/rominator/config.yaml or the platform
// equivalent.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error locating config directory: %v", err)
	}
	return filepath.Join(dir, "rominator", FileName), nil
}

// Defaults enables every known source and leaves the download directory unset.
func Defaults(knownSources []string) *Config {
	return &Config{EnabledSources: slices.Clone(knownSources)}
}

// Load reads path. A missing file is initialized with Defaults and written.
func Load(path string, knownSources []string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := Defaults(knownSources)
		cfg.path = path
		log.Debug().Str("op", "config/load").Msgf("initializing %s", path)
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config: %v", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}
	cfg.path = path
	return cfg, nil
}

func (c *Config) validate() error {
	if c.MaxRunning < 0 {
		return fmt.Errorf("max_running must not be negative")
	}
	if c.SourceTimeout < 0 {
		return fmt.Errorf("source_timeout must not be negative")
	}
	if c.Sources.S3 != nil && c.Sources.S3.Bucket == "" {
		return fmt.Errorf("sources.s3.bucket is required")
	}
	if c.Sources.Git != nil && c.Sources.Git.URL == "" {
		return fmt.Errorf("sources.git.url is required")
	}
	if g := c.Sources.GDrive; g != nil && g.APIKey == "" && g.Credentials == "" {
		return fmt.Errorf("sources.gdrive needs api_key or credentials")
	}
	return nil
}

func (c *Config) Path() string {
	return c.path
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("error encoding config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %v", err)
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("error writing config: %v", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("error writing config: %v", err)
	}
	return nil
}

// DownloadsRoot returns the configured directory or ./downloads.
func (c *Config) DownloadsRoot() string {
	if c.DownloadsDirectory == nil || *c.DownloadsDirectory == "" {
		return DefaultDownloadDir
	}
	return *c.DownloadsDirectory
}

func (c *Config) SetDownloadsDirectory(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("error resolving %s: %v", dir, err)
	}
	c.DownloadsDirectory = &abs
	return c.Save()
}

func (c *Config) IsSourceEnabled(id string) bool {
	return slices.Contains(c.EnabledSources, id)
}

func (c *Config) SetSourceEnabled(id string, enabled bool) error {
	if c.IsSourceEnabled(id) == enabled {
		return nil
	}
	if enabled {
		c.EnabledSources = append(c.EnabledSources, id)
	} else {
		c.EnabledSources = slices.DeleteFunc(c.EnabledSources, func(s string) bool { return s == id })
	}
	return c.Save()
}

// ToggleSource flips id and returns the new state.
func (c *Config) ToggleSource(id string) (bool, error) {
	enabled := !c.IsSourceEnabled(id)
	return enabled, c.SetSourceEnabled(id, enabled)
}
