// Package transport dispatches queued tracking requests over HTTP.
//
// HTTPSender is the queue.Sender used in production. It issues exactly one
// attempt per entry: retries are disabled at both the resty and the pooled
// transport layer, and a failed tracking request is dropped.
// A per-request timeout, an optional rate limit and a circuit breaker keep a
// dead endpoint from stalling the drain.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/constructorio-go/internal/queue"
	"github.com/GriffinCanCode/constructorio-go/internal/shared/codec"
)

// Config configures an HTTPSender
type Config struct {
	// Timeout bounds each request; zero means DefaultTimeout
	Timeout time.Duration
	// RateLimit caps requests per second; zero or less is unlimited
	RateLimit float64
	// UserAgent is sent with every request
	UserAgent string
	// FailureThreshold and Cooldown configure the circuit breaker
	FailureThreshold uint32
	Cooldown         time.Duration
}

// DefaultTimeout bounds a tracking request when Config.Timeout is zero
const DefaultTimeout = 5 * time.Second

// StatusError reports a non-2xx response
type StatusError struct {
	Method string
	URL    string
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// HTTPSender sends queue entries with resty
type HTTPSender struct {
	client  *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
	logger  *logging.Logger
}

// NewHTTPSender creates a sender with the given configuration
func NewHTTPSender(cfg Config, logger *logging.Logger) *HTTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "constructorio-go"
	}

	logger = logging.Or(logger).Component("transport")

	// Pooled transport from retryablehttp; retrying stays off
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 0
	retryClient.Logger = nil

	client := resty.New().
		SetTransport(retryClient.HTTPClient.Transport).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", cfg.UserAgent)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	breaker := resilience.New("tracking", resilience.Settings{
		FailureThreshold: cfg.FailureThreshold,
		Cooldown:         cfg.Cooldown,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Info("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &HTTPSender{
		client:  client,
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// Send issues entry as a single HTTP request. GET entries carry no body;
// POST entries carry their body as JSON.
func (s *HTTPSender) Send(ctx context.Context, entry queue.Entry) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit error: %w", err)
	}

	return s.breaker.Do(func() error {
		req := s.client.R().SetContext(ctx)

		if entry.Method == http.MethodPost {
			body, err := encodeBody(entry.Body)
			if err != nil {
				return err
			}
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		resp, err := req.Execute(entry.Method, entry.URL)
		if err != nil {
			return fmt.Errorf("%s %s: %w", entry.Method, entry.URL, err)
		}
		if resp.IsError() {
			return &StatusError{Method: entry.Method, URL: entry.URL, Code: resp.StatusCode()}
		}
		return nil
	})
}

// BreakerState returns the current circuit breaker state
func (s *HTTPSender) BreakerState() resilience.State {
	return s.breaker.State()
}

func encodeBody(body interface{}) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return []byte("{}"), nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := codec.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, nil
	}
}
