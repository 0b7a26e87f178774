package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/constructorio-go/internal/queue"
)

type captured struct {
	method      string
	path        string
	query       string
	contentType string
	body        string
}

func newServer(t *testing.T, status int) (*httptest.Server, chan captured) {
	t.Helper()

	requests := make(chan captured, 16)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- captured{
			method:      r.Method,
			path:        r.URL.Path,
			query:       r.URL.RawQuery,
			contentType: r.Header.Get("Content-Type"),
			body:        string(body),
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, requests
}

func TestSendGet(t *testing.T) {
	server, requests := newServer(t, http.StatusNoContent)
	sender := NewHTTPSender(Config{}, nil)

	err := sender.Send(context.Background(), queue.NewEntry(server.URL+"/behavior?action=focus", "GET", nil))
	require.NoError(t, err)

	got := <-requests
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/behavior", got.path)
	assert.Equal(t, "action=focus", got.query)
	assert.Empty(t, got.body)
}

func TestSendPostEncodesBody(t *testing.T) {
	server, requests := newServer(t, http.StatusOK)
	sender := NewHTTPSender(Config{}, nil)

	entry := queue.NewEntry(server.URL+"/v2/behavioral_action/purchase", "POST", map[string]interface{}{
		"order_id": "123",
		"revenue":  9.5,
	})
	require.NoError(t, sender.Send(context.Background(), entry))

	got := <-requests
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "application/json", got.contentType)
	assert.JSONEq(t, `{"order_id":"123","revenue":9.5}`, got.body)
}

func TestSendPostRawBody(t *testing.T) {
	server, requests := newServer(t, http.StatusOK)
	sender := NewHTTPSender(Config{}, nil)

	entry := queue.Entry{URL: server.URL, Method: "POST", Body: json.RawMessage(`{"a":1}`)}
	require.NoError(t, sender.Send(context.Background(), entry))

	assert.JSONEq(t, `{"a":1}`, (<-requests).body)
}

func TestSendReportsStatusErrors(t *testing.T) {
	server, _ := newServer(t, http.StatusBadRequest)
	sender := NewHTTPSender(Config{}, nil)

	err := sender.Send(context.Background(), queue.NewEntry(server.URL, "GET", nil))

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Code)
}

func TestSendDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := NewHTTPSender(Config{}, nil)
	assert.Error(t, sender.Send(context.Background(), queue.NewEntry(server.URL, "GET", nil)))
	assert.Equal(t, int32(1), hits.Load())
}

func TestSendTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	sender := NewHTTPSender(Config{Timeout: 50 * time.Millisecond}, nil)

	start := time.Now()
	err := sender.Send(context.Background(), queue.NewEntry(server.URL, "GET", nil))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBreakerOpensAfterFailures(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sender := NewHTTPSender(Config{FailureThreshold: 2, Cooldown: time.Hour}, nil)
	for i := 0; i < 4; i++ {
		_ = sender.Send(context.Background(), queue.NewEntry(server.URL, "GET", nil))
	}

	assert.Equal(t, resilience.StateOpen, sender.BreakerState())
	assert.Equal(t, int32(2), hits.Load())

	err := sender.Send(context.Background(), queue.NewEntry(server.URL, "GET", nil))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
}

func TestRateLimitHonorsContext(t *testing.T) {
	server, _ := newServer(t, http.StatusOK)
	sender := NewHTTPSender(Config{RateLimit: 0.001}, nil)

	require.NoError(t, sender.Send(context.Background(), queue.NewEntry(server.URL, "GET", nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, sender.Send(ctx, queue.NewEntry(server.URL, "GET", nil)))
}
