package loginsession

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

var _ Repo = (*InMemoryLoginSessionRepo)(nil)

// InMemoryLoginSessionRepo is an in-memory implementation of Repo
type InMemoryLoginSessionRepo struct {
	mu       sync.RWMutex
	sessions map[int64]map[string]Session // userID -> sessionID -> Session
	owners   map[string]int64             // sessionID -> userID
}

// NewInMemoryLoginSessionRepo creates a new in-memory login session repository
func NewInMemoryLoginSessionRepo() *InMemoryLoginSessionRepo {
	return &InMemoryLoginSessionRepo{
		sessions: make(map[int64]map[string]Session),
		owners:   make(map[string]int64),
	}
}

// Upsert creates or updates a login session
func (r *InMemoryLoginSessionRepo) Upsert(session Session) error {
	if session.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.UserID]; !ok {
		r.sessions[session.UserID] = make(map[string]Session)
	}
	r.sessions[session.UserID][session.ID] = session
	r.owners[session.ID] = session.UserID
	return nil
}

func (r *InMemoryLoginSessionRepo) Get(sessionID string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.owners[sessionID]
	if !ok {
		return Session{}, ErrNotFound
	}
	return r.sessions[userID][sessionID], nil
}

// Delete removes a login session. Deleting an unknown session is not an
// error.
func (r *InMemoryLoginSessionRepo) Delete(sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[sessionID]
	if !ok {
		return nil
	}
	delete(r.owners, sessionID)

	userSessions := r.sessions[userID]
	delete(userSessions, sessionID)
	if len(userSessions) == 0 {
		delete(r.sessions, userID)
	}
	return nil
}

// ListByUser returns the sessions of a user, most recently used first.
func (r *InMemoryLoginSessionRepo) ListByUser(userID int64) ([]Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Session, 0, len(r.sessions[userID]))
	for _, s := range r.sessions[userID] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastUsedAt.After(out[j].LastUsedAt)
	})
	return out, nil
}

func (r *InMemoryLoginSessionRepo) Touch(sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[sessionID]
	if !ok {
		return ErrNotFound
	}
	s := r.sessions[userID][sessionID]
	s.LastUsedAt = at
	r.sessions[userID][sessionID] = s
	return nil
}
