// Package storage is the key/value persistence used for session and client
// preferences. Two scopes exist: persistent storage survives restarts,
// session storage lives as long as the process.
package storage

import (
	"encoding/json"

	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
)

const (
	KeyUser               = "auth_user"
	KeyToken              = "auth_token"
	KeyRefreshToken       = "auth_refresh_token"
	KeyRemember           = "auth_remember"
	KeyRememberPreference = "user_remember_preference"
	KeyLocale             = "locale"
	KeyMaintenanceMode    = "maintenance_mode"

	// Written by older clients, only ever removed.
	KeySessionExpiry = "auth_session_expiry"
	KeyLastActivity  = "auth_last_activity"
)

// SessionKeys are removed from every scope on logout.
var SessionKeys = []string{
	KeyUser,
	KeyToken,
	KeyRefreshToken,
	KeyRemember,
	KeySessionExpiry,
	KeyLastActivity,
}

// Store is a string key/value store.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Remove(keys ...string) error
}

// GetJSON decodes the value at key into v. A missing key leaves v untouched
// and returns errs.ErrNotFound, a value that does not parse returns
// errs.ErrCorruptSession.
func GetJSON(s Store, key string, v any) error {
	raw, ok := s.Get(key)
	if !ok || raw == "" {
		return errs.ErrNotFound
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return errs.Wrapf(errs.ErrCorruptSession, "[storage.GetJSON] key %s: %v", key, err)
	}
	return nil
}

func SetJSON(s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errs.Wrapf(err, "[storage.SetJSON] key %s", key)
	}
	return s.Set(key, string(b))
}

// GetBool reads "true"/"false". Anything else reports false.
func GetBool(s Store, key string) bool {
	v, ok := s.Get(key)
	return ok && v == "true"
}

func SetBool(s Store, key string, b bool) error {
	if b {
		return s.Set(key, "true")
	}
	return s.Set(key, "false")
}
