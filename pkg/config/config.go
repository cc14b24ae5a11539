// Package config loads docvault's TOML configuration file into typed
// structs, decoding driver-specific option blocks with mapstructure the
// same way the teacher's cmd/revad/internal/config package does.
package config

import (
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config is the top-level docvault configuration.
type Config struct {
	HTTPAddress    string `mapstructure:"http_address" toml:"http_address"`
	MetricsAddress string `mapstructure:"metrics_address" toml:"metrics_address"`

	DB    DBConfig    `mapstructure:"db" toml:"db"`
	NATS  NATSConfig  `mapstructure:"nats" toml:"nats"`
	Redis RedisConfig `mapstructure:"redis" toml:"redis"`

	NASMountPath   string `mapstructure:"nas_mount_path" toml:"nas_mount_path"`
	CacheMountPath string `mapstructure:"cache_mount_path" toml:"cache_mount_path"`

	PartSizeBytes           int64 `mapstructure:"part_size_bytes" toml:"part_size_bytes"`
	MultipartThresholdBytes int64 `mapstructure:"multipart_threshold_bytes" toml:"multipart_threshold_bytes"`
	MaxActiveSessions       int   `mapstructure:"max_active_sessions" toml:"max_active_sessions"`
	MaxTotalUploadBytes     int64 `mapstructure:"max_total_upload_bytes" toml:"max_total_upload_bytes"`

	SyncMaxRetries      int `mapstructure:"sync_max_retries" toml:"sync_max_retries"`
	SyncBackoffMs       int `mapstructure:"sync_backoff_ms" toml:"sync_backoff_ms"`
	SyncConcurrency     int `mapstructure:"sync_concurrency" toml:"sync_concurrency"`
	LockTTLMs           int `mapstructure:"lock_ttl_ms" toml:"lock_ttl_ms"`
	LockRenewIntervalMs int `mapstructure:"lock_renew_interval_ms" toml:"lock_renew_interval_ms"`
	LockWaitTimeoutMs   int `mapstructure:"lock_wait_timeout_ms" toml:"lock_wait_timeout_ms"`

	HealthProbeIntervalMs int `mapstructure:"health_probe_interval_ms" toml:"health_probe_interval_ms"`
	TrashRetentionDays    int `mapstructure:"trash_retention_days" toml:"trash_retention_days"`

	LogMode  string `mapstructure:"log_mode" toml:"log_mode"`
	LogLevel string `mapstructure:"log_level" toml:"log_level"`
}

// DBConfig configures the metadata store's database/sql connection.
type DBConfig struct {
	Driver string `mapstructure:"driver" toml:"driver"`
	DSN    string `mapstructure:"dsn" toml:"dsn"`
}

// NATSConfig configures the job-queue adapter.
type NATSConfig struct {
	Address   string `mapstructure:"address" toml:"address"`
	ClusterID string `mapstructure:"cluster_id" toml:"cluster_id"`
}

// RedisConfig configures the distributed-lock adapter.
type RedisConfig struct {
	Address  string `mapstructure:"address" toml:"address"`
	Password string `mapstructure:"password" toml:"password"`
	DB       int    `mapstructure:"db" toml:"db"`
}

// Default returns the configuration defaults named in the spec: 10MB parts,
// a 100MB multipart threshold, a 3-attempt/3s sync backoff, a 60s lock TTL
// auto-renewed every 25s with a 30s wait timeout, and sync concurrency 5.
func Default() *Config {
	return &Config{
		HTTPAddress:             ":8080",
		MetricsAddress:          ":9090",
		NASMountPath:            "/var/lib/docvault/nas",
		CacheMountPath:          "/var/lib/docvault/cache",
		PartSizeBytes:           10 << 20,
		MultipartThresholdBytes: 100 << 20,
		MaxActiveSessions:       10,
		MaxTotalUploadBytes:     10 << 30,
		SyncMaxRetries:          3,
		SyncBackoffMs:           3000,
		SyncConcurrency:         5,
		LockTTLMs:               60000,
		LockRenewIntervalMs:     25000,
		LockWaitTimeoutMs:       30000,
		HealthProbeIntervalMs:   15000,
		TrashRetentionDays:      30,
		LogMode:                 "dev",
		LogLevel:                "info",
	}
}

// Read decodes TOML from r into a generic map, the way the teacher's
// cmd/revad/internal/config.Read does, so callers can mapstructure.Decode
// driver-specific sub-blocks independently.
func Read(r io.Reader) (map[string]interface{}, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "config: error reading from reader")
	}

	v := map[string]interface{}{}
	if err := toml.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "config: error decoding toml data")
	}
	return v, nil
}

// LoadFromFile reads fn into a generic map via Read, then mapstructure.Decodes
// it over the defaults, the same two-step TOML-to-map-to-struct path as the
// teacher's cmd/revad/internal/config — going through the generic map (rather
// than decoding the file straight into Config) is what lets the DB/NATS/Redis
// sub-blocks above tolerate a config file that only sets some of their keys.
func LoadFromFile(fn string) (*Config, error) {
	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrap(err, "config: cannot open file")
	}
	defer f.Close()

	raw, err := Read(f)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return nil, errors.Wrap(err, "config: cannot build decoder")
	}
	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "config: cannot decode toml into Config")
	}
	return cfg, nil
}
