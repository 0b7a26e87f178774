package lifecycle

import "sync"

// Subscription is a group of handlers removed together
type Subscription struct {
	mu   sync.Mutex
	offs []func()
	done bool
}

// Once subscribes fn to every event in events. The first event to fire
// cancels the whole subscription and runs fn; later firings are ignored.
func Once(src Source, events []string, fn func()) *Subscription {
	sub := &Subscription{}
	var fire sync.Once

	offs := make([]func(), 0, len(events))
	for _, event := range events {
		offs = append(offs, src.On(event, func() {
			fire.Do(func() {
				sub.Cancel()
				fn()
			})
		}))
	}

	sub.mu.Lock()
	sub.offs = offs
	cancelled := sub.done
	sub.mu.Unlock()

	if cancelled {
		sub.Cancel()
	}
	return sub
}

// Cancel removes every handler in the subscription
func (s *Subscription) Cancel() {
	s.mu.Lock()
	offs := s.offs
	s.offs = nil
	s.done = true
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
}

// Active reports whether the subscription still has handlers registered
func (s *Subscription) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.done
}
