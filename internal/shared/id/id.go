// Package id provides the client and session identifiers sent with every
// tracking request.
//
// A client id is a random UUID that identifies one device across sessions.
// A session id is a small counter: it advances when the client comes back
// after SessionTimeout of inactivity, which is also when hosts should track
// a session start.
package id

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/constructorio-go/internal/storage"
)

// Storage keys shared with other clients of the same API
const (
	ClientIDKey = "ConstructorioID_client_id"
	SessionKey  = "ConstructorioID_session"
)

// SessionTimeout is the inactivity window after which a new session starts
const SessionTimeout = 30 * time.Minute

// ClientID identifies a device
type ClientID string

// NewClientID generates a random client id
func NewClientID() ClientID {
	return ClientID(uuid.NewString())
}

// ParseClientID validates s as a client id
func ParseClientID(s string) (ClientID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid client id %q: %w", s, err)
	}
	return ClientID(u.String()), nil
}

// String returns the id as a string
func (c ClientID) String() string {
	return string(c)
}

// LoadClientID returns the client id persisted in store, generating and
// persisting a new one when absent or invalid.
func LoadClientID(store storage.Store) (ClientID, error) {
	var stored string
	if ok, err := storage.GetJSON(store, ClientIDKey, &stored); err == nil && ok {
		if c, err := ParseClientID(stored); err == nil {
			return c, nil
		}
	}

	c := NewClientID()
	if err := storage.SetJSON(store, ClientIDKey, c.String()); err != nil {
		return c, fmt.Errorf("failed to persist client id: %w", err)
	}
	return c, nil
}

type sessionState struct {
	SessionID int   `json:"sessionId"`
	LastTime  int64 `json:"lastTime"`
}

// Sessions numbers sessions for one client
type Sessions struct {
	store storage.Store
	now   func() time.Time

	mu sync.Mutex
}

// NewSessions creates a session counter over store
func NewSessions(store storage.Store) *Sessions {
	return &Sessions{store: store, now: time.Now}
}

// Touch records activity and returns the current session id. started is
// true when this call began a new session.
func (s *Sessions) Touch() (sessionID int, started bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var state sessionState
	ok, _ := storage.GetJSON(s.store, SessionKey, &state)

	switch {
	case !ok || state.SessionID < 1:
		state.SessionID = 1
		started = true
	case now.Sub(time.UnixMilli(state.LastTime)) > SessionTimeout:
		state.SessionID++
		started = true
	}
	state.LastTime = now.UnixMilli()

	if err := storage.SetJSON(s.store, SessionKey, state); err != nil {
		return state.SessionID, started, fmt.Errorf("failed to persist session: %w", err)
	}
	return state.SessionID, started, nil
}
