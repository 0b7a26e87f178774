package queue

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/constructorio-go/internal/lifecycle"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// DefaultTrackingSendDelay is the delay hosts apply before the first send
const DefaultTrackingSendDelay = 250 * time.Millisecond

// Sender dispatches one entry. Its error only affects logging and metrics.
type Sender interface {
	Send(ctx context.Context, entry Entry) error
}

// SenderFunc adapts a function to Sender
type SenderFunc func(ctx context.Context, entry Entry) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, entry Entry) error {
	return f(ctx, entry)
}

// Classifier is the bot heuristic consulted before queueing and sending
type Classifier interface {
	IsBot() bool
	IsHuman() bool
}

// Options configures a RequestQueue
type Options struct {
	// SendTrackingEvents enables the queue; when false every entry is dropped
	SendTrackingEvents bool
	// TrackingSendDelay is carried for hosts that delay sending; the queue
	// itself does not wait.
	TrackingSendDelay time.Duration
}

// Deps are the collaborators of a RequestQueue
type Deps struct {
	// Store holds the shared backlog; required
	Store storage.Store
	// Human gates queueing and sending; nil disables gating
	Human Classifier
	// Sender dispatches entries; required
	Sender Sender
	// Events delivers the unload signal; optional
	Events  lifecycle.Source
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
}

// RequestQueue accumulates tracking requests in the shared backlog and
// drains it one request at a time.
//
// States: idle or queued while no drain runs, sending while this instance
// has a request in flight, flushing once the unload signal fired. Flushing
// is permanent for the instance.
type RequestQueue struct {
	opts    Options
	backlog *Backlog
	human   Classifier
	sender  Sender
	logger  *logging.Logger
	metrics *monitoring.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	off    func()

	mu             sync.Mutex
	pending        bool
	flushScheduled bool
	closed         bool
	// done is closed when the latest drain stops; nil before the first one
	done chan struct{}
}

// New creates a queue bound to the backlog in deps.Store and subscribes it
// to the unload signal.
func New(opts Options, deps Deps) *RequestQueue {
	if opts.TrackingSendDelay == 0 {
		opts.TrackingSendDelay = DefaultTrackingSendDelay
	}

	logger := logging.Or(deps.Logger).Component("queue")
	ctx, cancel := context.WithCancel(context.Background())

	q := &RequestQueue{
		opts:    opts,
		backlog: NewBacklog(deps.Store, logger),
		human:   deps.Human,
		sender:  deps.Sender,
		logger:  logger,
		metrics: deps.Metrics,
		ctx:     ctx,
		cancel:  cancel,
	}

	if deps.Events != nil {
		q.off = deps.Events.On(lifecycle.BeforeUnload, q.Flush)
	}
	q.metrics.SetBacklog(len(q.backlog.Get()))
	return q
}

// Options returns the queue options
func (q *RequestQueue) Options() Options {
	return q.opts
}

// Queue appends a request to the backlog. It never sends; call Send after.
// The entry is dropped when tracking is disabled or the client is a bot.
func (q *RequestQueue) Queue(url, method string, body interface{}) {
	if !q.opts.SendTrackingEvents {
		q.metrics.RecordDropped(monitoring.DropDisabled)
		return
	}
	if q.human != nil && q.human.IsBot() {
		q.logger.Debug("dropping tracking request from bot", zap.String("url", url))
		q.metrics.RecordDropped(monitoring.DropBot)
		return
	}

	n, err := q.backlog.Append(NewEntry(url, method, body))
	if err != nil {
		q.logger.Debug("failed to queue tracking request", zap.String("url", url), zap.Error(err))
		q.metrics.RecordDropped(monitoring.DropStorage)
		return
	}
	q.metrics.RecordEnqueued(n)
}

// Accepting reports whether Queue would keep a request rather than drop it
func (q *RequestQueue) Accepting() bool {
	if !q.opts.SendTrackingEvents {
		return false
	}
	return q.human == nil || !q.human.IsBot()
}

// Send starts draining the backlog unless this instance is already sending,
// has flushed, the client is not yet human, or there is nothing to send.
// It returns immediately; Wait blocks until the drain stops.
func (q *RequestQueue) Send() {
	if !q.isHuman() {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pending || q.flushScheduled || q.closed {
		return
	}
	if len(q.backlog.Get()) == 0 {
		return
	}

	q.pending = true
	done := make(chan struct{})
	q.done = done
	go q.drain(done)
}

// drain sends entries until the backlog is empty or sending is blocked.
// Every completion, success or failure, advances to the next entry.
func (q *RequestQueue) drain(done chan struct{}) {
	defer close(done)

	for {
		entry, ok := q.next()
		if !ok {
			return
		}
		q.dispatch(entry)
	}
}

func (q *RequestQueue) next() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.flushScheduled || q.closed || !q.isHuman() {
		q.pending = false
		return Entry{}, false
	}

	entry, remaining, ok := q.backlog.PopFront()
	if !ok {
		q.pending = false
		return Entry{}, false
	}
	q.metrics.SetBacklog(remaining)
	return entry, true
}

func (q *RequestQueue) dispatch(entry Entry) {
	timer := monitoring.NewTimer(q.metrics, entry.Method)

	if err := q.sender.Send(q.ctx, entry); err != nil {
		q.logger.Debug("tracking request failed",
			zap.String("method", entry.Method),
			zap.String("url", entry.URL),
			zap.Error(err))
		timer.Stop(monitoring.OutcomeFailure)
		return
	}
	timer.Stop(monitoring.OutcomeSuccess)
}

// Flush handles the unload signal: it stops this instance from sending for
// good and writes the backlog back so siblings and later loads adopt it.
func (q *RequestQueue) Flush() {
	q.mu.Lock()
	q.flushScheduled = true
	q.mu.Unlock()

	q.metrics.IncFlushes()

	// Rewrite in place so entries appended or popped by siblings meanwhile
	// are neither lost nor resurrected
	entries, err := q.backlog.Update(func(entries []Entry) []Entry { return entries })
	if err != nil {
		q.logger.Debug("failed to flush backlog", zap.Error(err))
		return
	}
	q.metrics.SetBacklog(len(entries))
}

// Pending reports whether this instance has a drain in flight
func (q *RequestQueue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// FlushScheduled reports whether the unload signal fired for this instance
func (q *RequestQueue) FlushScheduled() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushScheduled
}

// Get returns the persisted backlog shared by this queue
func (q *RequestQueue) Get() []Entry {
	return q.backlog.Get()
}

// Wait blocks until the latest drain, if any, has stopped. It may be called
// concurrently with Send.
func (q *RequestQueue) Wait() {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()

	if done != nil {
		<-done
	}
}

// Close stops sending, cancels the in-flight request and waits for the
// drain to stop. The backlog is left in storage.
func (q *RequestQueue) Close() {
	q.mu.Lock()
	q.closed = true
	off := q.off
	q.off = nil
	q.mu.Unlock()

	if off != nil {
		off()
	}
	q.cancel()
	q.Wait()
}

func (q *RequestQueue) isHuman() bool {
	return q.human == nil || q.human.IsHuman()
}
