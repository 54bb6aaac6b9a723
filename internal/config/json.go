package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// Duration accepts "3s"-style strings or integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		dur, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = dur
	default:
		return fmt.Errorf("invalid duration: %s", string(b))
	}
	return nil
}

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer fields
// tell an absent key from a zero value.
type JsonConfig struct {
	DBPath    *string `json:"db_path"`
	VaultPath *string `json:"vault_path"`
	Journal   *string `json:"journal"`
	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`

	Remote *struct {
		Kind          *string   `json:"kind"`
		Dir           *string   `json:"dir"`
		S3Endpoint    *string   `json:"s3_endpoint"`
		S3Region      *string   `json:"s3_region"`
		S3Bucket      *string   `json:"s3_bucket"`
		S3Prefix      *string   `json:"s3_prefix"`
		S3AccessKey   *string   `json:"s3_access_key"`
		S3SecretKey   *string   `json:"s3_secret_key"`
		PostgresDSN   *string   `json:"postgres_dsn"`
		ProbeAddr     *string   `json:"probe_addr"`
		ProbeInterval *Duration `json:"probe_interval"`
		ProbeTimeout  *Duration `json:"probe_timeout"`
	} `json:"remote"`

	Sync *struct {
		MaxAttempts *int      `json:"max_attempts"`
		RetryDelay  *Duration `json:"retry_delay"`
		RetryFailed *bool     `json:"retry_failed"`
		Interval    *Duration `json:"interval"`
	} `json:"sync"`
}

// parseJSON overlays cfg with the keys present in the JSON file at path.
func parseJSON(fs afero.Fs, path string, cfg *Config) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	set(&cfg.DBPath, jc.DBPath)
	set(&cfg.VaultPath, jc.VaultPath)
	set(&cfg.Journal, jc.Journal)
	set(&cfg.LogLevel, jc.LogLevel)
	set(&cfg.LogFormat, jc.LogFormat)

	if r := jc.Remote; r != nil {
		set(&cfg.Remote.Kind, r.Kind)
		set(&cfg.Remote.Dir, r.Dir)
		set(&cfg.Remote.S3Endpoint, r.S3Endpoint)
		set(&cfg.Remote.S3Region, r.S3Region)
		set(&cfg.Remote.S3Bucket, r.S3Bucket)
		set(&cfg.Remote.S3Prefix, r.S3Prefix)
		set(&cfg.Remote.S3AccessKey, r.S3AccessKey)
		set(&cfg.Remote.S3SecretKey, r.S3SecretKey)
		set(&cfg.Remote.PostgresDSN, r.PostgresDSN)
		set(&cfg.Remote.ProbeAddr, r.ProbeAddr)
		setDuration(&cfg.Remote.ProbeInterval, r.ProbeInterval)
		setDuration(&cfg.Remote.ProbeTimeout, r.ProbeTimeout)
	}

	if s := jc.Sync; s != nil {
		set(&cfg.Sync.MaxAttempts, s.MaxAttempts)
		setDuration(&cfg.Sync.RetryDelay, s.RetryDelay)
		set(&cfg.Sync.RetryFailed, s.RetryFailed)
		setDuration(&cfg.Sync.Interval, s.Interval)
	}
	return nil
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *Duration) {
	if src != nil {
		*dst = src.Duration
	}
}
