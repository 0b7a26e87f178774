package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/constructorio-go/internal/lifecycle"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

type fakeHuman struct {
	bot   atomic.Bool
	human atomic.Bool
}

func (f *fakeHuman) IsBot() bool   { return f.bot.Load() }
func (f *fakeHuman) IsHuman() bool { return f.human.Load() }

func human() *fakeHuman {
	h := &fakeHuman{}
	h.human.Store(true)
	return h
}

// recorder is a Sender that records dispatched entries. When gate is set,
// each Send blocks until a value is received from it.
type recorder struct {
	mu      sync.Mutex
	entries []Entry

	gate        chan struct{}
	started     chan struct{}
	err         error
	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (r *recorder) Send(ctx context.Context, entry Entry) error {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		max := r.maxInFlight.Load()
		if n <= max || r.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}

	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	return r.err
}

func (r *recorder) urls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	urls := make([]string, len(r.entries))
	for i, e := range r.entries {
		urls[i] = e.URL
	}
	return urls
}

func newQueue(store storage.Store, h Classifier, s Sender) *RequestQueue {
	return New(Options{SendTrackingEvents: true}, Deps{Store: store, Human: h, Sender: s})
}

func urlsOf(entries []Entry) []string {
	urls := make([]string, len(entries))
	for i, e := range entries {
		urls[i] = e.URL
	}
	return urls
}

func TestSendDrainsInOrder(t *testing.T) {
	store := storage.NewMemoryStore()
	sender := &recorder{}
	q := newQueue(store, human(), sender)

	q.Queue("url1", "GET", nil)
	q.Queue("url2", "GET", nil)
	q.Queue("url3", "GET", nil)
	assert.Equal(t, []string{"url1", "url2", "url3"}, urlsOf(q.Get()))

	q.Send()
	q.Wait()

	assert.Equal(t, []string{"url1", "url2", "url3"}, sender.urls())
	assert.Empty(t, q.Get())
	assert.False(t, q.Pending())
	assert.Equal(t, int32(1), sender.maxInFlight.Load())

	q.Flush()
	_, ok, err := store.Get(StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSendWithoutHumanDispatchesNothing(t *testing.T) {
	sender := &recorder{}
	q := newQueue(storage.NewMemoryStore(), &fakeHuman{}, sender)

	q.Queue("url1", "GET", nil)
	q.Queue("url2", "GET", nil)
	q.Queue("url3", "GET", nil)

	q.Send()
	q.Wait()

	assert.Empty(t, sender.urls())
	assert.Equal(t, []string{"url1", "url2", "url3"}, urlsOf(q.Get()))
}

func TestQueueDisabledIsNoop(t *testing.T) {
	store := storage.NewMemoryStore()
	q := New(Options{}, Deps{Store: store, Human: human(), Sender: &recorder{}})

	q.Queue("url1", "GET", nil)

	assert.Empty(t, Get(store))
	assert.Empty(t, store.Keys())
}

func TestQueueDropsBots(t *testing.T) {
	h := human()
	h.bot.Store(true)
	sender := &recorder{}
	q := newQueue(storage.NewMemoryStore(), h, sender)

	q.Queue("url1", "GET", nil)
	q.Send()
	q.Wait()

	assert.Empty(t, q.Get())
	assert.Empty(t, sender.urls())
}

func TestQueueDoesNotSend(t *testing.T) {
	sender := &recorder{}
	q := newQueue(storage.NewMemoryStore(), human(), sender)

	q.Queue("url1", "GET", nil)
	q.Wait()

	assert.Empty(t, sender.urls())
	assert.Len(t, q.Get(), 1)
}

func TestFlushBlocksSendingPermanently(t *testing.T) {
	events := lifecycle.NewEmitter()
	sender := &recorder{}
	q := New(Options{SendTrackingEvents: true}, Deps{
		Store:  storage.NewMemoryStore(),
		Human:  human(),
		Sender: sender,
		Events: events,
	})

	q.Queue("url1", "GET", nil)
	events.Emit(lifecycle.BeforeUnload)
	assert.True(t, q.FlushScheduled())

	q.Send()
	q.Wait()
	q.Queue("url2", "GET", nil)
	q.Send()
	q.Wait()

	assert.Empty(t, sender.urls())
	assert.Equal(t, []string{"url1", "url2"}, urlsOf(q.Get()))
}

func TestFlushStopsDrainAfterInFlightRequest(t *testing.T) {
	sender := &recorder{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	q := newQueue(storage.NewMemoryStore(), human(), sender)

	q.Queue("url1", "GET", nil)
	q.Queue("url2", "GET", nil)
	q.Send()

	<-sender.started
	q.Flush()
	sender.gate <- struct{}{}
	q.Wait()

	assert.Equal(t, []string{"url1"}, sender.urls())
	assert.Equal(t, []string{"url2"}, urlsOf(q.Get()))
}

func TestSingleRequestInFlightPerInstance(t *testing.T) {
	sender := &recorder{gate: make(chan struct{}), started: make(chan struct{}, 3)}
	q := newQueue(storage.NewMemoryStore(), human(), sender)

	for i := 1; i <= 3; i++ {
		q.Queue(fmt.Sprintf("url%d", i), "GET", nil)
	}

	q.Send()
	<-sender.started
	assert.True(t, q.Pending())

	// Already sending: these are no-ops
	q.Send()
	q.Send()

	for i := 0; i < 3; i++ {
		sender.gate <- struct{}{}
	}
	q.Wait()

	assert.Equal(t, []string{"url1", "url2", "url3"}, sender.urls())
	assert.Equal(t, int32(1), sender.maxInFlight.Load())
}

func TestFailuresAdvanceTheDrain(t *testing.T) {
	sender := &recorder{err: errors.New("connection refused")}
	q := newQueue(storage.NewMemoryStore(), human(), sender)

	q.Queue("url1", "GET", nil)
	q.Queue("url2", "POST", map[string]string{"a": "b"})
	q.Send()
	q.Wait()

	assert.Equal(t, []string{"url1", "url2"}, sender.urls())
	assert.Empty(t, q.Get())
}

func TestInstancesShareThePersistedBacklog(t *testing.T) {
	stores := map[string]func(t *testing.T) storage.Store{
		"memory": func(t *testing.T) storage.Store { return storage.NewMemoryStore() },
		"sqlite": func(t *testing.T) storage.Store {
			s, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "q.db"), 0)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}

	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)

			seed := make([]Entry, 5)
			for i := range seed {
				seed[i] = NewEntry(fmt.Sprintf("url%d", i+1), "GET", nil)
			}
			require.NoError(t, NewBacklog(store, nil).Set(seed))

			sender := &recorder{}
			first := newQueue(store, human(), sender)
			second := newQueue(store, human(), sender)

			first.Send()
			second.Send()
			first.Wait()
			second.Wait()

			assert.ElementsMatch(t, []string{"url1", "url2", "url3", "url4", "url5"}, sender.urls())
			assert.Empty(t, Get(store))

			first.Flush()
			second.Flush()
			_, ok, err := store.Get(StorageKey)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestLegacyEntriesSendAsGet(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey, []byte(`["legacy1",{"url":"modern","method":"GET"},"legacy2"]`)))

	sender := &recorder{}
	q := newQueue(store, human(), sender)

	entries := q.Get()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, "GET", e.Method)
		assert.Nil(t, e.Body)
	}

	q.Send()
	q.Wait()

	assert.Equal(t, []string{"legacy1", "modern", "legacy2"}, sender.urls())
}

func TestPersistedBacklogSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	store, err := storage.OpenSQLite(ctx, path, 0)
	require.NoError(t, err)

	events := lifecycle.NewEmitter()
	first := New(Options{SendTrackingEvents: true}, Deps{
		Store:  store,
		Human:  &fakeHuman{},
		Sender: &recorder{},
		Events: events,
	})
	first.Queue("https://ac.cnstrc.com/v2/behavioral_action/purchase?key=k", "post", map[string]interface{}{"order_id": "o-1"})
	first.Queue("https://ac.cnstrc.com/behavior?action=focus", "GET", nil)
	events.Emit(lifecycle.BeforeUnload)
	first.Close()
	require.NoError(t, store.Close())

	reopened, err := storage.OpenSQLite(ctx, path, 0)
	require.NoError(t, err)
	defer reopened.Close()

	sender := &recorder{}
	second := newQueue(reopened, human(), sender)
	second.Send()
	second.Wait()

	require.Len(t, sender.entries, 2)
	assert.Equal(t, "POST", sender.entries[0].Method)
	body, err := json.Marshal(sender.entries[0].Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"order_id":"o-1"}`, string(body))
	assert.Equal(t, "GET", sender.entries[1].Method)
}

func TestUnreadableBacklogReadsEmpty(t *testing.T) {
	store := storage.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey, []byte(`{"not":"a list"}`)))
	assert.Empty(t, Get(store))

	require.NoError(t, store.Set(StorageKey, []byte(`[42, null, {"method":"GET"}, "ok"]`)))
	assert.Equal(t, []string{"ok"}, urlsOf(Get(store)))
}

func TestOverflowKeepsQueueing(t *testing.T) {
	durable := storage.NewMemoryStoreWithQuota(64)
	store := storage.NewOverflowStore(durable)
	q := newQueue(store, &fakeHuman{}, &recorder{})

	for i := 0; i < 5; i++ {
		q.Queue(fmt.Sprintf("https://example.com/event/%d", i), "GET", nil)
	}

	assert.Len(t, q.Get(), 5)
	assert.True(t, store.Overflowed(StorageKey))
}

func TestCloseCancelsInFlightRequest(t *testing.T) {
	sender := &recorder{gate: make(chan struct{}), started: make(chan struct{}, 1)}
	q := newQueue(storage.NewMemoryStore(), human(), sender)

	q.Queue("url1", "GET", nil)
	q.Queue("url2", "GET", nil)
	q.Send()
	<-sender.started

	done := make(chan struct{})
	go func() {
		q.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return")
	}

	// The cancelled request was consumed; the rest stays for a later queue
	assert.Empty(t, sender.urls())
	assert.Equal(t, []string{"url2"}, urlsOf(q.Get()))
}

func TestQueueRecordsMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	h := human()
	q := New(Options{SendTrackingEvents: true}, Deps{
		Store:   storage.NewMemoryStore(),
		Human:   h,
		Sender:  &recorder{},
		Metrics: metrics,
	})

	q.Queue("url1", "GET", nil)
	q.Queue("url2", "POST", map[string]int{"n": 1})
	h.bot.Store(true)
	q.Queue("url3", "GET", nil)

	q.Send()
	q.Wait()

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Enqueued))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues(monitoring.DropBot)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Sent.WithLabelValues("POST", monitoring.OutcomeSuccess)))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.Backlog))
}

func TestNewEntryNormalizesMethod(t *testing.T) {
	assert.Equal(t, Entry{URL: "u", Method: "GET"}, NewEntry("u", "", "ignored"))
	assert.Equal(t, Entry{URL: "u", Method: "POST", Body: 1}, NewEntry("u", " post ", 1))
	assert.Equal(t, "GET", NewEntry("u", "delete", nil).Method)
}

func TestOptionsDefaults(t *testing.T) {
	q := newQueue(storage.NewMemoryStore(), nil, &recorder{})
	assert.Equal(t, DefaultTrackingSendDelay, q.Options().TrackingSendDelay)
	assert.True(t, q.Options().SendTrackingEvents)
}

func TestWaitConcurrentWithSend(t *testing.T) {
	sender := &recorder{}
	q := newQueue(storage.NewMemoryStore(), human(), sender)
	defer q.Close()

	const producers, perProducer = 4, 25

	stop := make(chan struct{})
	waiters := make(chan struct{})
	go func() {
		defer close(waiters)
		for {
			select {
			case <-stop:
				return
			default:
				q.Wait()
			}
		}
	}()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Queue(fmt.Sprintf("url-%d-%d", p, i), "GET", nil)
				q.Send()
			}
		}(p)
	}
	wg.Wait()

	// A final Send picks up anything appended after the last drain emptied
	// the backlog
	q.Send()
	q.Wait()
	close(stop)
	<-waiters

	assert.Len(t, sender.urls(), producers*perProducer)
	assert.Empty(t, q.Get())
}

func TestAccepting(t *testing.T) {
	bot := &fakeHuman{}
	bot.bot.Store(true)

	assert.True(t, newQueue(storage.NewMemoryStore(), human(), &recorder{}).Accepting())
	assert.True(t, newQueue(storage.NewMemoryStore(), nil, &recorder{}).Accepting())
	assert.False(t, newQueue(storage.NewMemoryStore(), bot, &recorder{}).Accepting())

	disabled := New(Options{}, Deps{Store: storage.NewMemoryStore(), Human: human(), Sender: &recorder{}})
	assert.False(t, disabled.Accepting())
}
