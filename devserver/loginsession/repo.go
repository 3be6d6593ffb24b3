// Package loginsession tracks the devices a user is logged in on.
package loginsession

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Session is one login of a user on one device.
type Session struct {
	ID         string
	UserID     int64
	Name       string
	IPAddress  string
	Platform   string
	Browser    string
	DeviceType string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

type Repo interface {
	Upsert(session Session) error
	Get(sessionID string) (Session, error)
	Delete(sessionID string) error
	ListByUser(userID int64) ([]Session, error)
	Touch(sessionID string, at time.Time) error
}
