package config

import (
	"strings"
	"time"
)

// PersistencePolicy decides which storage receives the session.
type PersistencePolicy string

const (
	// PersistAlways writes the session to persistent storage regardless of
	// the remember choice.
	PersistAlways PersistencePolicy = "always"
	// PersistRemember writes to persistent storage only when the user asked
	// to be remembered, otherwise to session storage.
	PersistRemember PersistencePolicy = "remember"
	// PersistNever keeps the session in session storage only.
	PersistNever PersistencePolicy = "never"
)

func ParsePersistencePolicy(s string) (PersistencePolicy, bool) {
	switch p := PersistencePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case PersistAlways, PersistRemember, PersistNever:
		return p, true
	}
	return PersistRemember, false
}

type SessionConfig interface {
	GetPersistencePolicy() PersistencePolicy
	GetRedisAddr() string
	GetLogoutGrace() time.Duration
	GetUnauthorizedTTL() time.Duration
}

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetPersistencePolicy() PersistencePolicy {
	p, _ := ParsePersistencePolicy(GetEnv("WAREHOUSE_SESSION_PERSISTENCE", string(PersistRemember)))
	return p
}

func (Session) GetRedisAddr() string {
	return GetEnv("WAREHOUSE_REDIS_ADDR", "")
}

func (Session) GetLogoutGrace() time.Duration {
	return GetDuration("WAREHOUSE_LOGOUT_GRACE", time.Second)
}

func (Session) GetUnauthorizedTTL() time.Duration {
	return GetDuration("WAREHOUSE_UNAUTHORIZED_TTL", 5*time.Second)
}
