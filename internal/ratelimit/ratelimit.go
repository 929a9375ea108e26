// Package ratelimit provides per-connection admission control for socket actions.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter admits at most count calls per sliding window. It keeps a log of
// admitted timestamps and prunes entries older than the window before counting,
// so a burst is re-admitted only once the whole window has passed.
type Limiter struct {
	mu     sync.Mutex
	count  int
	window time.Duration
	hits   []time.Time
	now    func() time.Time
}

func New(count int, window time.Duration) *Limiter {
	return &Limiter{count: count, window: window, now: time.Now}
}

// Allow reports whether the action is permitted now and, if so, records it.
// Denial has no side effect.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)
	for len(l.hits) > 0 && !l.hits[0].After(cutoff) {
		l.hits = l.hits[1:]
	}
	if len(l.hits) >= l.count {
		return false
	}
	l.hits = append(l.hits, now)
	return true
}

// Action categories throttled independently per connection.
const (
	ActionChat      = "chat"
	ActionDraw      = "draw"
	ActionCreate    = "create_room"
	ActionJoin      = "join_room"
	ActionStartGame = "start_game"
)

// Set holds one limiter per action category for a single connection.
// Limiters are never shared across connections or categories.
type Set struct {
	limiters map[string]*Limiter
}

func NewSet() *Set {
	return &Set{limiters: map[string]*Limiter{
		ActionChat:      New(5, time.Second),
		ActionDraw:      New(120, time.Second),
		ActionCreate:    New(3, 10*time.Second),
		ActionJoin:      New(5, 10*time.Second),
		ActionStartGame: New(2, 5*time.Second),
	}}
}

func (s *Set) Allow(action string) bool {
	l, ok := s.limiters[action]
	if !ok {
		return true
	}
	return l.Allow()
}
