package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrUnknownToken = errors.New("unknown refresh token")
	ErrExpiredToken = errors.New("refresh token expired")
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Config is the part of the dev server configuration refresh tokens need.
type Config interface {
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
}

// Manager handles refresh token creation, validation, and rotation
type Manager struct {
	repo   Repo
	config Config
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg Config) *Manager {
	return &Manager{
		repo:   repo,
		config: cfg,
	}
}

// Create generates a new refresh token for a login session, replacing the
// one the session held before.
func (m *Manager) Create(userID int64, sessionID string) (string, error) {
	if existing, err := m.repo.GetBySessionID(sessionID); err == nil && existing != nil {
		if err := m.repo.Delete(existing.Token); err != nil {
			return "", errors.Wrap(err, "[Manager.Create] delete existing refresh token")
		}
	}

	tokenBytes := make([]byte, m.config.GetRefreshTokenLength())
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[Manager.Create] generate random bytes")
	}

	tokenStr := hex.EncodeToString(tokenBytes)
	if err := m.repo.Upsert(&StoredRefreshToken{
		Token:     tokenStr,
		UserID:    userID,
		SessionID: sessionID,
		Iat:       NowTimeFunc(),
	}); err != nil {
		return "", errors.Wrap(err, "[Manager.Create] store refresh token")
	}
	return tokenStr, nil
}

// Rotate exchanges a refresh token for a new one bound to the same
// session. The old token is unusable afterwards.
func (m *Manager) Rotate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil || rt == nil {
		return nil, ErrUnknownToken
	}
	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, ErrExpiredToken
	}
	next, err := m.Create(rt.UserID, rt.SessionID)
	if err != nil {
		return nil, err
	}
	return m.repo.Get(next)
}

// Get retrieves a refresh token from storage
func (m *Manager) Get(token string) (*StoredRefreshToken, error) {
	return m.repo.Get(token)
}

// RevokeSession removes the refresh token of a login session, if any.
func (m *Manager) RevokeSession(sessionID string) error {
	rt, err := m.repo.GetBySessionID(sessionID)
	if err != nil || rt == nil {
		return nil
	}
	return m.repo.Delete(rt.Token)
}

func (m *Manager) RevokeUser(userID int64) error {
	return m.repo.DeleteByUserID(userID)
}

// IsExpired checks if a refresh token has expired
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return NowTimeFunc().Sub(rt.Iat) > m.config.GetRefreshTokenExpiry()
}
