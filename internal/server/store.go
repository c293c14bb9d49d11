package server

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cteview/internal/dataset"
	"cteview/internal/logging"
	"cteview/internal/metrics"
	"cteview/internal/session"
)

// Store keeps live sessions with a sliding idle TTL. Every Get pushes the
// expiry out by ttl; an expired or deleted session is torn down (its
// dataset cache flushed).
type Store struct {
	ttl    time.Duration
	loader dataset.Loader
	items  *gocache.Cache
	log    logging.Logger
}

// NewStore builds a store creating sessions over loader.
func NewStore(ttl time.Duration, loader dataset.Loader, log logging.Logger) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if log == nil {
		log = logging.NewNop()
	}
	s := &Store{
		ttl:    ttl,
		loader: loader,
		items:  gocache.New(ttl, ttl/2),
		log:    log,
	}
	s.items.OnEvicted(s.teardown)
	return s
}

func (s *Store) teardown(id string, v any) {
	sess, ok := v.(*session.Session)
	if !ok {
		return
	}
	sess.Data.Flush()
	metrics.IncCounter(metrics.SessionsTotal, 1, metrics.Labels{"event": "closed"})
	s.log.Debug("session closed",
		logging.String("session", id),
		logging.Duration("age", time.Since(sess.Created)),
	)
}

// Create starts a new session.
func (s *Store) Create() *session.Session {
	sess := session.New(s.loader)
	s.items.Set(sess.ID, sess, s.ttl)
	metrics.IncCounter(metrics.SessionsTotal, 1, metrics.Labels{"event": "created"})
	s.log.Debug("session created", logging.String("session", sess.ID))
	return sess
}

// Get returns the live session id and refreshes its expiry.
func (s *Store) Get(id string) (*session.Session, bool) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, false
	}
	sess := v.(*session.Session)
	s.items.Set(id, sess, s.ttl)
	return sess, true
}

// Delete tears the session down. It reports whether it existed.
func (s *Store) Delete(id string) bool {
	if _, ok := s.items.Get(id); !ok {
		return false
	}
	s.items.Delete(id)
	return true
}

// Len is the number of live sessions.
func (s *Store) Len() int {
	return s.items.ItemCount()
}

// Close tears down every session.
func (s *Store) Close() {
	for id := range s.items.Items() {
		s.items.Delete(id)
	}
}
