package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration.
type Config struct {
	Tracker   TrackerConfig
	Queue     QueueConfig
	Storage   StorageConfig
	Transport TransportConfig
	Status    StatusConfig
	Logging   LogConfig
}

// TrackerConfig holds the parameters sent with every tracking request.
type TrackerConfig struct {
	APIKey       string   `envconfig:"CIO_API_KEY"`
	ServiceURL   string   `envconfig:"CIO_SERVICE_URL" default:"https://ac.cnstrc.com"`
	UserID       string   `envconfig:"CIO_USER_ID"`
	Segments     []string `envconfig:"CIO_SEGMENTS"`
	UserAgent    string   `envconfig:"CIO_USER_AGENT"`
	Referrer     string   `envconfig:"CIO_REFERRER"`
	SendReferrer bool     `envconfig:"CIO_SEND_REFERRER" default:"true"`
}

// QueueConfig holds request queue options.
type QueueConfig struct {
	SendTrackingEvents bool          `envconfig:"CIO_SEND_TRACKING_EVENTS" default:"true"`
	TrackingSendDelay  time.Duration `envconfig:"CIO_TRACKING_SEND_DELAY" default:"250ms"`
}

// StorageConfig holds backlog storage configuration. An empty Path keeps
// the backlog in memory.
type StorageConfig struct {
	Path            string `envconfig:"CIO_STORAGE_PATH"`
	LocalQuotaBytes int64  `envconfig:"CIO_LOCAL_QUOTA_BYTES" default:"0"`
}

// TransportConfig holds HTTP sender configuration.
type TransportConfig struct {
	RequestTimeout time.Duration `envconfig:"CIO_REQUEST_TIMEOUT" default:"5s"`
	RateLimitRPS   float64       `envconfig:"CIO_RATE_LIMIT_RPS" default:"0"`
}

// StatusConfig holds status server configuration. An empty Addr disables it.
type StatusConfig struct {
	Addr string `envconfig:"CIO_STATUS_ADDR"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Tracker: TrackerConfig{
			ServiceURL:   "https://ac.cnstrc.com",
			SendReferrer: true,
		},
		Queue: QueueConfig{
			SendTrackingEvents: true,
			TrackingSendDelay:  250 * time.Millisecond,
		},
		Transport: TransportConfig{
			RequestTimeout: 5 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}

// Validate reports every setting that would make the client unusable.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Tracker.APIKey) == "" {
		errs = append(errs, errors.New("CIO_API_KEY is required"))
	}
	if u, err := url.ParseRequestURI(c.Tracker.ServiceURL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("CIO_SERVICE_URL %q is not an absolute url", c.Tracker.ServiceURL))
	}
	if c.Queue.TrackingSendDelay < 0 {
		errs = append(errs, errors.New("CIO_TRACKING_SEND_DELAY must not be negative"))
	}
	if c.Storage.LocalQuotaBytes < 0 {
		errs = append(errs, errors.New("CIO_LOCAL_QUOTA_BYTES must not be negative"))
	}
	if c.Transport.RequestTimeout <= 0 {
		errs = append(errs, errors.New("CIO_REQUEST_TIMEOUT must be positive"))
	}
	if c.Transport.RateLimitRPS < 0 {
		errs = append(errs, errors.New("CIO_RATE_LIMIT_RPS must not be negative"))
	}

	return errors.Join(errs...)
}
