// Package humanity classifies the current client as bot or human.
//
// A client is a bot while it has not proven itself human and its user agent
// matches a known crawler pattern or it reports browser automation. The proof
// of humanity is a session-scoped latch set the first time any user activity
// event fires; once set it is never cleared by this package.
package humanity

import (
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/constructorio-go/internal/infrastructure/logging"
	"github.com/GriffinCanCode/constructorio-go/internal/lifecycle"
	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// StorageKey holds the humanity latch in session storage
const StorageKey = "_constructorio_is_human"

// Environment describes the client the library runs for
type Environment struct {
	UserAgent string
	// Webdriver is true when the client reports browser automation
	Webdriver bool
}

// Detector implements the bot heuristic and the humanity latch
type Detector struct {
	env     Environment
	session storage.Store
	logger  *logging.Logger

	mu    sync.Mutex
	human bool
	sub   *lifecycle.Subscription
}

// New creates a detector. When events is non-nil and the session has not yet
// proven human, the detector listens for the first human activity event.
func New(env Environment, session storage.Store, events lifecycle.Source, logger *logging.Logger) *Detector {
	d := &Detector{
		env:     env,
		session: session,
		logger:  logging.Or(logger).Component("humanity"),
	}

	d.human = d.latched()
	if !d.human && events != nil {
		d.sub = lifecycle.Once(events, lifecycle.HumanEvents, d.MarkHuman)
	}
	return d
}

// IsHuman reports whether the session has shown human activity
func (d *Detector) IsHuman() bool {
	d.mu.Lock()
	human := d.human
	d.mu.Unlock()

	return human || d.latched()
}

// IsBot reports whether the client should be treated as automated.
// A session that proved human is never classified as a bot.
func (d *Detector) IsBot() bool {
	if d.IsHuman() {
		return false
	}
	return MatchesBot(d.env.UserAgent) || d.env.Webdriver
}

// MarkHuman sets the humanity latch and stops listening for activity
func (d *Detector) MarkHuman() {
	d.mu.Lock()
	d.human = true
	sub := d.sub
	d.sub = nil
	d.mu.Unlock()

	if sub != nil {
		sub.Cancel()
	}
	if d.session == nil {
		return
	}
	if err := storage.SetJSON(d.session, StorageKey, true); err != nil {
		d.logger.Debug("failed to persist humanity latch", zap.Error(err))
	}
}

// Listening reports whether the detector still waits for activity events
func (d *Detector) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sub != nil && d.sub.Active()
}

func (d *Detector) latched() bool {
	if d.session == nil {
		return false
	}

	var human bool
	if _, err := storage.GetJSON(d.session, StorageKey, &human); err != nil {
		d.logger.Debug("failed to read humanity latch", zap.Error(err))
		return false
	}
	return human
}
