package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Tracker config
	assert.Equal(t, "https://ac.cnstrc.com", cfg.Tracker.ServiceURL)
	assert.Empty(t, cfg.Tracker.APIKey)
	assert.True(t, cfg.Tracker.SendReferrer)

	// Queue config
	assert.True(t, cfg.Queue.SendTrackingEvents)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.TrackingSendDelay)

	// Storage config
	assert.Empty(t, cfg.Storage.Path)
	assert.Zero(t, cfg.Storage.LocalQuotaBytes)

	// Transport config
	assert.Equal(t, 5*time.Second, cfg.Transport.RequestTimeout)
	assert.Zero(t, cfg.Transport.RateLimitRPS)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"CIO_API_KEY":              "key-123",
		"CIO_SERVICE_URL":          "https://tracking.example.com",
		"CIO_USER_ID":              "user-9",
		"CIO_SEGMENTS":             "us,mobile",
		"CIO_SEND_TRACKING_EVENTS": "false",
		"CIO_TRACKING_SEND_DELAY":  "1s",
		"CIO_STORAGE_PATH":         "/tmp/cio.db",
		"CIO_LOCAL_QUOTA_BYTES":    "4096",
		"CIO_REQUEST_TIMEOUT":      "2s",
		"CIO_RATE_LIMIT_RPS":       "10",
		"CIO_STATUS_ADDR":          ":9090",
		"LOG_LEVEL":                "debug",
		"LOG_DEV":                  "true",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "key-123", cfg.Tracker.APIKey)
	assert.Equal(t, "https://tracking.example.com", cfg.Tracker.ServiceURL)
	assert.Equal(t, "user-9", cfg.Tracker.UserID)
	assert.Equal(t, []string{"us", "mobile"}, cfg.Tracker.Segments)

	assert.False(t, cfg.Queue.SendTrackingEvents)
	assert.Equal(t, time.Second, cfg.Queue.TrackingSendDelay)

	assert.Equal(t, "/tmp/cio.db", cfg.Storage.Path)
	assert.Equal(t, int64(4096), cfg.Storage.LocalQuotaBytes)

	assert.Equal(t, 2*time.Second, cfg.Transport.RequestTimeout)
	assert.Equal(t, 10.0, cfg.Transport.RateLimitRPS)
	assert.Equal(t, ":9090", cfg.Status.Addr)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)

	require.NoError(t, cfg.Validate())
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("CIO_REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 5*time.Second, cfg.Transport.RequestTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing api key", func(c *Config) { c.Tracker.APIKey = " " }, "CIO_API_KEY"},
		{"relative service url", func(c *Config) { c.Tracker.ServiceURL = "/tracking" }, "CIO_SERVICE_URL"},
		{"negative delay", func(c *Config) { c.Queue.TrackingSendDelay = -time.Second }, "CIO_TRACKING_SEND_DELAY"},
		{"negative quota", func(c *Config) { c.Storage.LocalQuotaBytes = -1 }, "CIO_LOCAL_QUOTA_BYTES"},
		{"zero timeout", func(c *Config) { c.Transport.RequestTimeout = 0 }, "CIO_REQUEST_TIMEOUT"},
		{"negative rate", func(c *Config) { c.Transport.RateLimitRPS = -2 }, "CIO_RATE_LIMIT_RPS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Tracker.APIKey = "key"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
