package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.False(t, cfg.Storage.Disabled)

	assert.Equal(t, 30*time.Second, cfg.Lease.Staleness)
	assert.Equal(t, 10*time.Second, cfg.Lease.Renewal)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoadOrDefault(t *testing.T) {
	cfg := LoadOrDefault()

	assert.NotNil(t, cfg)
	assert.Equal(t, "8090", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":             "9000",
		"HOST":             "127.0.0.1",
		"DATA_DIR":         "/var/lib/webterm",
		"STORAGE_DISABLED": "true",
		"LEASE_STALENESS":  "45s",
		"LEASE_RENEWAL":    "5s",
		"LOG_LEVEL":        "debug",
		"LOG_DEV":          "true",
	}

	for key, value := range envVars {
		err := os.Setenv(key, value)
		require.NoError(t, err)
		defer os.Unsetenv(key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "/var/lib/webterm", cfg.Storage.DataDir)
	assert.True(t, cfg.Storage.Disabled)
	assert.Equal(t, 45*time.Second, cfg.Lease.Staleness)
	assert.Equal(t, 5*time.Second, cfg.Lease.Renewal)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadWithPartialEnvironmentVariables(t *testing.T) {
	err := os.Setenv("PORT", "3000")
	require.NoError(t, err)
	defer os.Unsetenv("PORT")

	err = os.Setenv("LOG_LEVEL", "warn")
	require.NoError(t, err)
	defer os.Unsetenv("LOG_LEVEL")

	cfg, err := Load()
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)

	// Defaults still apply
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, 30*time.Second, cfg.Lease.Staleness)
}

func TestLeaseConfig(t *testing.T) {
	tests := []struct {
		name          string
		staleness     string
		renewal       string
		wantStaleness time.Duration
		wantRenewal   time.Duration
	}{
		{
			name:          "default values",
			wantStaleness: 30 * time.Second,
			wantRenewal:   10 * time.Second,
		},
		{
			name:          "custom staleness",
			staleness:     "2m",
			wantStaleness: 2 * time.Minute,
			wantRenewal:   10 * time.Second,
		},
		{
			name:          "custom renewal",
			renewal:       "1s",
			wantStaleness: 30 * time.Second,
			wantRenewal:   time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Unsetenv("LEASE_STALENESS")
			os.Unsetenv("LEASE_RENEWAL")

			if tt.staleness != "" {
				err := os.Setenv("LEASE_STALENESS", tt.staleness)
				require.NoError(t, err)
				defer os.Unsetenv("LEASE_STALENESS")
			}
			if tt.renewal != "" {
				err := os.Setenv("LEASE_RENEWAL", tt.renewal)
				require.NoError(t, err)
				defer os.Unsetenv("LEASE_RENEWAL")
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantStaleness, cfg.Lease.Staleness)
			assert.Equal(t, tt.wantRenewal, cfg.Lease.Renewal)
		})
	}
}
