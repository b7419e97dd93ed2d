package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/wavecast/internal/logging"
)

const appName = "wavecast"

// Storage drivers.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	Session  SessionConfig  `koanf:"session"`
	Storage  StorageConfig  `koanf:"storage"`
	Metadata MetadataConfig `koanf:"metadata"`

	// Remote receiver (enables cast hand-off when configured)
	Remote RemoteConfig `koanf:"remote"`

	// Last.fm scrobbling (enables scrobbling when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Log     LogConfig     `koanf:"log"`
	Desktop DesktopConfig `koanf:"desktop"`
	Palette PaletteConfig `koanf:"palette"`
}

// SessionConfig holds the coordinator timings.
type SessionConfig struct {
	PersistDelay      time.Duration `koanf:"persist_delay"`      // debounce before saving on track change (default: 1s)
	RegisterThreshold time.Duration `koanf:"register_threshold"` // position at which a play counts (default: 10s)
	ProgressInterval  time.Duration `koanf:"progress_interval"`  // local progress tick (default: 1s)
}

// StorageConfig selects where the session is persisted.
type StorageConfig struct {
	Driver        string `koanf:"driver"` // "sqlite", "redis", or "memory" (default: "sqlite")
	Path          string `koanf:"path"`   // sqlite file (default: XDG data dir)
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`
	RedisPrefix   string `koanf:"redis_prefix"`
}

// MetadataConfig points at the lyrics and play count service.
type MetadataConfig struct {
	BaseURL string        `koanf:"base_url"` // e.g., "http://localhost:4533/api"
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"` // default: 10s
}

// RemoteConfig holds the MPD receiver settings.
type RemoteConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Address  string `koanf:"address"` // host:port; discovered over mDNS when empty
	Password string `koanf:"password"`
	Discover *bool  `koanf:"discover"` // browse mDNS when no address is set (default: true)
}

// LastfmConfig holds Last.fm scrobbling configuration.
type LastfmConfig struct {
	APIKey     string `koanf:"api_key"`
	APISecret  string `koanf:"api_secret"`
	SessionKey string `koanf:"session_key"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level      string `koanf:"level"` // "debug", "info", "warn", "error" (default: "info")
	File       string `koanf:"file"`
	MaxSize    int    `koanf:"max_size"`    // megabytes (default: 10)
	MaxBackups int    `koanf:"max_backups"` // default: 3
	MaxAge     int    `koanf:"max_age"`     // days (default: 28)
	Compress   bool   `koanf:"compress"`
}

// DesktopConfig toggles desktop integration on Linux.
type DesktopConfig struct {
	MPRIS         *bool `koanf:"mpris"`         // default: true
	Notifications *bool `koanf:"notifications"` // default: true
}

// PaletteConfig controls artwork color extraction.
type PaletteConfig struct {
	Enabled *bool `koanf:"enabled"` // default: true
	Size    int   `koanf:"size"`    // colors per track (1-16, default: 5)
}

// Load reads the config files and applies defaults. When explicit paths are
// given they must exist and replace the default search paths.
func Load(paths ...string) (*Config, error) {
	k := koanf.New(".")

	if len(paths) > 0 {
		for _, path := range paths {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	} else {
		// Try config files in order of priority (last wins)
		for _, path := range getConfigPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
					return nil, fmt.Errorf("load %s: %w", path, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Normalize() //nolint:errcheck // the zero config is always valid
	return cfg
}

// Normalize applies defaults, expands paths, and validates enumerations.
func (c *Config) Normalize() error {
	if c.Session.PersistDelay <= 0 {
		c.Session.PersistDelay = time.Second
	}
	if c.Session.RegisterThreshold <= 0 {
		c.Session.RegisterThreshold = 10 * time.Second
	}
	if c.Session.ProgressInterval <= 0 {
		c.Session.ProgressInterval = time.Second
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case "":
		c.Storage.Driver = DriverSQLite
	case DriverSQLite, DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	c.Storage.Path = expandPath(c.Storage.Path)
	if c.Storage.Driver == DriverRedis && c.Storage.RedisAddr == "" {
		c.Storage.RedisAddr = "localhost:6379"
	}

	// Normalize metadata URL (remove trailing slash)
	c.Metadata.BaseURL = strings.TrimSuffix(c.Metadata.BaseURL, "/")
	if c.Metadata.Timeout <= 0 {
		c.Metadata.Timeout = 10 * time.Second
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.File = expandPath(c.Log.File)
	if c.Log.MaxSize <= 0 {
		c.Log.MaxSize = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAge <= 0 {
		c.Log.MaxAge = 28
	}

	if c.Palette.Size <= 0 || c.Palette.Size > 16 {
		c.Palette.Size = 5
	}
	return nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/wavecast/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./config.toml (pwd, highest priority)
		"config.toml",
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// HasMetadataConfig returns true if the metadata service is configured.
func (c *Config) HasMetadataConfig() bool {
	return c.Metadata.BaseURL != ""
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// HasRemoteConfig returns true if a remote receiver should be used.
func (c *Config) HasRemoteConfig() bool {
	return c.Remote.Enabled && (c.Remote.Address != "" || c.DiscoverRemote())
}

// DiscoverRemote reports whether an unset remote address is resolved over mDNS.
func (c *Config) DiscoverRemote() bool {
	return boolOr(c.Remote.Discover, true)
}

// MPRISEnabled reports whether the MPRIS service is published.
func (c *Config) MPRISEnabled() bool {
	return boolOr(c.Desktop.MPRIS, true)
}

// NotificationsEnabled reports whether track changes raise notifications.
func (c *Config) NotificationsEnabled() bool {
	return boolOr(c.Desktop.Notifications, true)
}

// PaletteEnabled reports whether artwork palettes are extracted.
func (c *Config) PaletteEnabled() bool {
	return boolOr(c.Palette.Enabled, true)
}

// LoggingConfig converts the log section for the logging package.
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:      c.Log.Level,
		File:       c.Log.File,
		MaxSize:    c.Log.MaxSize,
		MaxBackups: c.Log.MaxBackups,
		MaxAge:     c.Log.MaxAge,
		Compress:   c.Log.Compress,
	}
}
