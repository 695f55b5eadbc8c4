// Package pending holds the short-lived pairing state for image-dependent
// requests that arrived without an attachment. Each (user, chat) owns at
// most one slot; a newer request replaces the older one, and the slot is
// gone the moment it is consumed or its window lapses.
package pending

import (
	"sync"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/intent"
)

// Request is one unresolved image-dependent intent waiting for a photo.
type Request struct {
	Kind          intent.Kind
	Channel       string
	ChatID        string
	UserID        string
	CorrelationID string
	CreatedAt     time.Time
	ExpiresAt     time.Time
}

func (r Request) key() string {
	return slotKey(r.Channel, r.ChatID, r.UserID)
}

func slotKey(channel, chatID, userID string) string {
	return channel + ":" + chatID + ":" + userID
}

// Store is the keyed slot arena. All transitions are atomic under one
// mutex so concurrent event delivery cannot observe two live slots for
// the same key.
type Store struct {
	mu     sync.Mutex
	window time.Duration
	slots  map[string]Request
}

func NewStore(window time.Duration) *Store {
	return &Store{
		window: window,
		slots:  make(map[string]Request),
	}
}

// Put installs a slot for the request's key, replacing any live one.
// Returns true when an unexpired slot was overwritten.
func (s *Store) Put(req Request) bool {
	if req.ExpiresAt.IsZero() {
		req.ExpiresAt = req.CreatedAt.Add(s.window)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	old, existed := s.slots[req.key()]
	s.slots[req.key()] = req
	return existed && req.CreatedAt.Before(old.ExpiresAt)
}

// Consume removes and returns the live slot for the key. An expired slot
// is dropped on the way out and reported as absent.
func (s *Store) Consume(channel, chatID, userID string, now time.Time) (Request, bool) {
	key := slotKey(channel, chatID, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.slots[key]
	if !ok {
		return Request{}, false
	}
	delete(s.slots, key)
	if now.After(req.ExpiresAt) {
		return Request{}, false
	}
	return req, true
}

// Sweep drops every expired slot and returns how many were removed.
// Lazy expiry in Consume already keeps answers correct; the sweep only
// bounds memory between pairings that never happen.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, req := range s.slots {
		if now.After(req.ExpiresAt) {
			delete(s.slots, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of slots currently held, expired or not.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.slots)
}
