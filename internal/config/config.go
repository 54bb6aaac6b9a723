package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
)

// Remote kinds.
const (
	RemoteNone     = "none"
	RemoteDir      = "dir"
	RemoteS3       = "s3"
	RemotePostgres = "postgres"
)

// EnvConfigFile names the environment variable consulted when no --config
// flag is given.
const EnvConfigFile = "XJOURNAL_CONFIG"

var ErrInvalidConfig = errors.New("invalid config")

// Config holds runtime settings for the xjournal CLI.
type Config struct {
	DBPath    string
	VaultPath string
	Journal   string
	LogLevel  string
	LogFormat string
	Remote    RemoteConfig
	Sync      SyncConfig
}

// RemoteConfig selects and configures the object store entries are synced to.
type RemoteConfig struct {
	Kind string

	Dir string

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string

	PostgresDSN string

	// ProbeAddr is dialed to decide whether the remote is reachable. Empty
	// means the remote is treated as always reachable.
	ProbeAddr     string
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration
}

// SyncConfig tunes the sync engine.
type SyncConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	RetryFailed bool
	// Interval is the period of background passes in watch mode.
	Interval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DBPath = "xjournal.db"
	c.VaultPath = "xjournal.vault"
	c.Journal = "default"
	c.LogLevel = "info"
	c.LogFormat = "text"

	c.Remote = RemoteConfig{
		Kind:          RemoteNone,
		Dir:           "xjournal-remote",
		S3Region:      "us-east-1",
		S3Prefix:      "appDataFolder",
		ProbeInterval: 3 * time.Second,
		ProbeTimeout:  2 * time.Second,
	}

	c.Sync = SyncConfig{
		MaxAttempts: 3,
		RetryFailed: true,
		Interval:    time.Minute,
	}
}

// Load builds a Config from defaults and, if path is not empty, the JSON file
// at path. When path is empty, XJOURNAL_CONFIG is consulted.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := parseJSON(fs, path, cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Validate checks values that cannot be caught by flag parsing.
func (c *Config) Validate() error {
	switch c.Remote.Kind {
	case RemoteNone, RemoteDir, RemoteS3, RemotePostgres:
	default:
		return fmt.Errorf("%w: unknown remote kind %q", ErrInvalidConfig, c.Remote.Kind)
	}
	if c.Remote.Kind == RemoteS3 && c.Remote.S3Bucket == "" {
		return fmt.Errorf("%w: s3 remote needs a bucket", ErrInvalidConfig)
	}
	if c.Remote.Kind == RemotePostgres && c.Remote.PostgresDSN == "" {
		return fmt.Errorf("%w: postgres remote needs a dsn", ErrInvalidConfig)
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	}
	if c.Journal == "" {
		return fmt.Errorf("%w: journal must not be empty", ErrInvalidConfig)
	}
	return nil
}
