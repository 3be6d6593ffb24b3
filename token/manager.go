// Package token issues and validates the access tokens of the development
// backend.
package token

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidToken = errors.New("invalid access token")
	ErrRevoked      = errors.New("access token revoked")
)

// Claims is what an access token says about its bearer.
type Claims struct {
	ID        string
	UserID    int64
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type Manager struct {
	signer            Signer
	issuer            string
	denylist          SessionDenylist
	accessTokenExpiry time.Duration
	generation        atomic.Int64
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(d time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = d
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithSessionDenylist(d SessionDenylist) ManagerOption {
	return func(m *Manager) {
		m.denylist = d
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:   signer,
		issuer:   "warehouse-devserver",
		denylist: NewMemoryDenylist(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 15 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// CreateAccessToken signs a token for one login session of a user.
func (m *Manager) CreateAccessToken(userID int64, sessionID string) (string, error) {
	now := m.nowFunc()
	claims := jwt.MapClaims{
		"iss": m.issuer,
		"sub": strconv.FormatInt(userID, 10),
		"sid": sessionID,
		"gen": m.generation.Load(),
		"iat": now.Unix(),
		"exp": now.Add(m.accessTokenExpiry).Unix(),
		"jti": uuid.New().String(),
	}
	signed, err := m.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Manager.CreateAccessToken]")
	}
	return signed, nil
}

// Validate verifies signature, expiry, issuer and revocation.
func (m *Manager) Validate(raw string) (*Claims, error) {
	parsed, err := jwt.Parse(raw, m.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.nowFunc),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, err := mc.GetSubject()
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, "malformed subject")
	}
	sid, _ := mc["sid"].(string)
	jti, _ := mc["jti"].(string)
	gen, _ := mc["gen"].(float64)
	if int64(gen) < m.generation.Load() {
		return nil, ErrRevoked
	}
	if sid != "" && m.denylist.Denied(sid, m.nowFunc()) {
		return nil, ErrRevoked
	}

	claims := &Claims{ID: jti, UserID: userID, SessionID: sid}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}

// RevokeSession rejects every access token already issued for sessionID.
func (m *Manager) RevokeSession(sessionID string) error {
	now := m.nowFunc()
	if n := m.denylist.Prune(now); n > 0 {
		log.Debug().Int("pruned", n).Msg("revoked sessions expired")
	}
	m.denylist.Deny(sessionID, now.Add(m.accessTokenExpiry))
	return nil
}

// ExpireAll rejects every access token issued so far, as if they had all
// expired. Refresh tokens stay valid.
func (m *Manager) ExpireAll() {
	m.generation.Add(1)
}

func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessTokenExpiry
}
