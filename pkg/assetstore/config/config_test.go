package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msmehub/assetstore/pkg/assetstore/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory", cfg.RegistryType)
	assert.Equal(t, "memory", cfg.LedgerType)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, time.Hour, cfg.SweepInterval)
	assert.Zero(t, cfg.CapacityBytes)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LEDGER_TYPE", "fs")
	t.Setenv("LEDGER_DIR", "/var/lib/assetstore/chunks")
	t.Setenv("CAPACITY_BYTES", "1073741824")
	t.Setenv("SESSION_TTL", "2h")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "fs", cfg.LedgerType)
	assert.Equal(t, "/var/lib/assetstore/chunks", cfg.LedgerDir)
	assert.Equal(t, int64(1073741824), cfg.CapacityBytes)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*config.ServerConfig)
		expectErr bool
	}{
		{
			name:   "defaults are valid",
			mutate: func(*config.ServerConfig) {},
		},
		{
			name:      "postgres registry needs a database url",
			mutate:    func(c *config.ServerConfig) { c.RegistryType = "postgres" },
			expectErr: true,
		},
		{
			name: "postgres registry with url is valid",
			mutate: func(c *config.ServerConfig) {
				c.RegistryType = "postgres"
				c.DatabaseURL = "postgres://localhost/assetstore"
			},
		},
		{
			name:      "unknown registry type",
			mutate:    func(c *config.ServerConfig) { c.RegistryType = "cassandra" },
			expectErr: true,
		},
		{
			name:      "s3 ledger needs a bucket",
			mutate:    func(c *config.ServerConfig) { c.LedgerType = "s3" },
			expectErr: true,
		},
		{
			name: "s3 ledger with bucket is valid",
			mutate: func(c *config.ServerConfig) {
				c.LedgerType = "s3"
				c.S3.Bucket = "assets"
			},
		},
		{
			name:      "unknown ledger type",
			mutate:    func(c *config.ServerConfig) { c.LedgerType = "tape" },
			expectErr: true,
		},
		{
			name:      "session ttl must be positive",
			mutate:    func(c *config.ServerConfig) { c.SessionTTL = 0 },
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildServiceInMemory(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService()
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestBuildServiceWithBoltLedger(t *testing.T) {
	t.Setenv("LEDGER_TYPE", "bolt")
	t.Setenv("LEDGER_BOLT_PATH", t.TempDir()+"/chunks.db")

	cfg, err := config.Load()
	require.NoError(t, err)

	svc, err := cfg.BuildService()
	require.NoError(t, err)
	assert.NotNil(t, svc)
}
