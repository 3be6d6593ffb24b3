package token

import (
	"sync"
	"time"
)

// SessionDenylist refuses the access tokens of a login session until a
// deadline, normally the moment the last token issued for it expires.
type SessionDenylist interface {
	Deny(sessionID string, until time.Time)
	Denied(sessionID string, at time.Time) bool
	// Prune forgets deadlines that passed before at and reports how many.
	Prune(at time.Time) int
}

type memoryDenylist struct {
	mu       sync.Mutex
	deadline map[string]time.Time
}

func NewMemoryDenylist() SessionDenylist {
	return &memoryDenylist{deadline: map[string]time.Time{}}
}

func (d *memoryDenylist) Deny(sessionID string, until time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.deadline[sessionID]; !ok || until.After(cur) {
		d.deadline[sessionID] = until
	}
}

func (d *memoryDenylist) Denied(sessionID string, at time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.deadline[sessionID]
	if !ok {
		return false
	}
	if at.After(until) {
		delete(d.deadline, sessionID)
		return false
	}
	return true
}

func (d *memoryDenylist) Prune(at time.Time) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for id, until := range d.deadline {
		if at.After(until) {
			delete(d.deadline, id)
			n++
		}
	}
	return n
}
