// Package tracker turns behavioral events into tracking requests.
//
// Every Track method validates its arguments, builds the request URL (and
// JSON body for POST events) from the event fields plus the parameters
// common to all requests, then queues the request and asks the queue to
// send. Tracking never panics on bad input: invalid arguments come back as
// a *ValidationError, and nothing is queued. Dropping events for bots or
// disabled tracking is the queue's job and is silent.
package tracker

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// DefaultServiceURL is the tracking API endpoint
const DefaultServiceURL = "https://ac.cnstrc.com"

// Version is reported in the c parameter
const Version = "cio-go-1.0.0"

// Queuer is the request queue the tracker feeds
type Queuer interface {
	Queue(url, method string, body interface{})
	Send()
}

// Config holds the parameters common to every tracking request
type Config struct {
	APIKey     string
	ServiceURL string
	ClientID   string
	SessionID  int
	UserID     string
	Segments   []string
	// TestCells are sent as ef-<name>=<value>
	TestCells map[string]string
	// Referrer is sent as origin_referrer when SendReferrer is set
	Referrer     string
	SendReferrer bool
	// AnalyticsTags are added to POST bodies
	AnalyticsTags map[string]string
	Version       string
	// Now overrides the clock used for the _dt timestamp
	Now func() time.Time
}

// Deps are the collaborators of a Tracker
type Deps struct {
	Queue Queuer
	// Session holds the purchase dedup set; optional
	Session storage.Store
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// Tracker is the behavioral tracking facade
type Tracker struct {
	cfg      Config
	queue    Queuer
	session  storage.Store
	validate *validator.Validate
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu sync.RWMutex
}

// New creates a tracker. A missing API key or queue is a programming error
// and is reported here rather than on each call.
func New(cfg Config, deps Deps) (*Tracker, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if deps.Queue == nil {
		return nil, ErrMissingQueue
	}

	if cfg.ServiceURL == "" {
		cfg.ServiceURL = DefaultServiceURL
	}
	cfg.ServiceURL = strings.TrimRight(cfg.ServiceURL, "/")
	if _, err := url.ParseRequestURI(cfg.ServiceURL); err != nil {
		return nil, fmt.Errorf("invalid service url: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = Version
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Tracker{
		cfg:      cfg,
		queue:    deps.Queue,
		session:  deps.Session,
		validate: newValidator(),
		logger:   logging.Or(deps.Logger).Component("tracker"),
		metrics:  deps.Metrics,
	}, nil
}

// SetUserID changes the user id sent with later requests
func (t *Tracker) SetUserID(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.UserID = userID
}

// SetSessionID changes the session id sent with later requests
func (t *Tracker) SetSessionID(sessionID int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.SessionID = sessionID
}

// SetSegments changes the user segments sent with later requests
func (t *Tracker) SetSegments(segments []string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg.Segments = append([]string(nil), segments...)
}

func (t *Tracker) config() Config {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cfg
}

// commonQuery returns the parameters every GET request carries
func (t *Tracker) commonQuery(cfg Config) url.Values {
	q := url.Values{}
	q.Set("key", cfg.APIKey)
	q.Set("c", cfg.Version)
	if cfg.ClientID != "" {
		q.Set("i", cfg.ClientID)
	}
	if cfg.SessionID > 0 {
		q.Set("s", strconv.Itoa(cfg.SessionID))
	}
	if cfg.UserID != "" {
		q.Set("ui", cfg.UserID)
	}
	for _, segment := range cfg.Segments {
		q.Add("us", segment)
	}
	for name, value := range cfg.TestCells {
		q.Set("ef-"+name, value)
	}
	if cfg.SendReferrer && cfg.Referrer != "" {
		q.Set("origin_referrer", cfg.Referrer)
	}
	q.Set("_dt", strconv.FormatInt(cfg.Now().UnixMilli(), 10))
	return q
}

// commonBody returns the fields every POST body carries
func (t *Tracker) commonBody(cfg Config) map[string]interface{} {
	body := map[string]interface{}{
		"key":    cfg.APIKey,
		"c":      cfg.Version,
		"beacon": true,
		"_dt":    cfg.Now().UnixMilli(),
	}
	if cfg.ClientID != "" {
		body["i"] = cfg.ClientID
	}
	if cfg.SessionID > 0 {
		body["s"] = cfg.SessionID
	}
	if cfg.UserID != "" {
		body["ui"] = cfg.UserID
	}
	if len(cfg.Segments) > 0 {
		body["us"] = cfg.Segments
	}
	if len(cfg.TestCells) > 0 {
		cells := make(map[string]string, len(cfg.TestCells))
		for name, value := range cfg.TestCells {
			cells["ef-"+name] = value
		}
		body["experiment_cells"] = cells
	}
	if cfg.SendReferrer && cfg.Referrer != "" {
		body["origin_referrer"] = cfg.Referrer
	}
	if len(cfg.AnalyticsTags) > 0 {
		body["analytics_tags"] = cfg.AnalyticsTags
	}
	return body
}

// get queues a GET request to path with the event parameters merged over
// the common ones
func (t *Tracker) get(event, path string, params url.Values) {
	cfg := t.config()

	q := t.commonQuery(cfg)
	for k, vs := range params {
		q[k] = vs
	}

	t.enqueue(event, cfg.ServiceURL+path+"?"+q.Encode(), "GET", nil)
}

// post queues a POST request to path with fields merged over the common body
func (t *Tracker) post(event, path string, fields map[string]interface{}) {
	cfg := t.config()

	q := url.Values{}
	q.Set("key", cfg.APIKey)
	q.Set("c", cfg.Version)

	body := t.commonBody(cfg)
	for k, v := range fields {
		body[k] = v
	}

	t.enqueue(event, cfg.ServiceURL+path+"?"+q.Encode(), "POST", body)
}

func (t *Tracker) enqueue(event, requestURL, method string, body interface{}) {
	t.queue.Queue(requestURL, method, body)
	t.queue.Send()

	// The queue may still drop the request; cio_queue_dropped_total counts that
	t.logger.Debug("tracking event submitted", zap.String("event", event), zap.String("method", method))
	t.metrics.RecordEvent(event, monitoring.EventSubmitted)
}

// check validates params, reporting failures to metrics
func (t *Tracker) check(event string, params interface{}) error {
	if err := t.validate.Struct(params); err != nil {
		return t.reject(event, fromValidator(event, err))
	}
	return nil
}

func (t *Tracker) reject(event string, err error) error {
	t.logger.Debug("tracking event rejected", zap.String("event", event), zap.Error(err))
	t.metrics.RecordEvent(event, monitoring.EventInvalid)
	return err
}

// termPath escapes a search term for use as a path segment
func termPath(term string) string {
	term = strings.TrimSpace(strings.ReplaceAll(term, "\u00a0", " "))
	return url.PathEscape(term)
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func putIf(m map[string]interface{}, key string, value interface{}) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return
		}
	case int:
		if v == 0 {
			return
		}
	case float64:
		if v == 0 {
			return
		}
	case bool:
		if !v {
			return
		}
	case nil:
		return
	}
	m[key] = value
}
