package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"cteview/internal/dataset"
)

// Session is one user's interactive lifetime: its selection state and its
// private dataset cache.
//
// The mutex serialises event handling so each event runs to completion
// before the next one is applied, even if a client fires requests in
// parallel.
type Session struct {
	ID      string
	Created time.Time
	Data    *dataset.Cache

	mu    sync.Mutex
	state State
}

// New creates a session with a fresh ID, the initial state and its own cache
// over loader.
func New(loader dataset.Loader) *Session {
	return &Session{
		ID:      uuid.NewString(),
		Created: time.Now().UTC(),
		Data:    dataset.NewCache(loader),
		state:   NewState(),
	}
}

// State returns a snapshot of the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply reduces ev into the session state and returns the new state.
func (s *Session) Apply(ev Event) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := Reduce(s.state, ev)
	if err != nil {
		return s.state, err
	}
	s.state = next
	return next, nil
}

// Do runs fn with the session locked, so a render sees a consistent state
// and no event interleaves with it.
func (s *Session) Do(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}
