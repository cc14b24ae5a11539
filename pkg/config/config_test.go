package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cernbox/docvault/pkg/config"
)

func TestDefaultMatchesDocumentedDefaults(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, int64(10<<20), cfg.PartSizeBytes)
	require.Equal(t, int64(100<<20), cfg.MultipartThresholdBytes)
	require.Equal(t, 3, cfg.SyncMaxRetries)
	require.Equal(t, 3000, cfg.SyncBackoffMs)
	require.Equal(t, 5, cfg.SyncConcurrency)
	require.Equal(t, 60000, cfg.LockTTLMs)
	require.Equal(t, 25000, cfg.LockRenewIntervalMs)
	require.Equal(t, 30000, cfg.LockWaitTimeoutMs)
	require.Equal(t, 30, cfg.TrashRetentionDays)
	require.Equal(t, "dev", cfg.LogMode)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFromFileOverridesOnlyProvidedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "docvault.toml")
	contents := `
http_address = ":9999"
log_level = "debug"

[db]
driver = "mysql"
dsn = "user:pass@tcp(127.0.0.1:3306)/docvault"

[nats]
address = "nats://127.0.0.1:4222"
cluster_id = "docvault-test"

[redis]
address = "127.0.0.1:6379"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.LoadFromFile(path)
	require.NoError(t, err)

	require.Equal(t, ":9999", cfg.HTTPAddress)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, "mysql", cfg.DB.Driver)
	require.Equal(t, "user:pass@tcp(127.0.0.1:3306)/docvault", cfg.DB.DSN)
	require.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.Address)
	require.Equal(t, "docvault-test", cfg.NATS.ClusterID)
	require.Equal(t, "127.0.0.1:6379", cfg.Redis.Address)

	// Fields not present in the file keep the package defaults.
	require.Equal(t, ":9090", cfg.MetricsAddress)
	require.Equal(t, int64(10<<20), cfg.PartSizeBytes)
	require.Equal(t, "dev", cfg.LogMode)
}

func TestLoadFromFileMissingFileReturnsError(t *testing.T) {
	_, err := config.LoadFromFile("/nonexistent/docvault.toml")
	require.Error(t, err)
}

func TestReadDecodesArbitraryTOMLIntoMap(t *testing.T) {
	v, err := config.Read(strings.NewReader(`[db]
driver = "mysql"
`))
	require.NoError(t, err)
	db, ok := v["db"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "mysql", db["driver"])
}

func TestReadInvalidTOMLReturnsError(t *testing.T) {
	_, err := config.Read(strings.NewReader(`not = [valid`))
	require.Error(t, err)
}
