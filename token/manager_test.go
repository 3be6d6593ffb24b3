package token_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bazrganidrwst/warehouse-client/token"
	"github.com/bazrganidrwst/warehouse-client/token/refresh"
	refreshrepofake "github.com/bazrganidrwst/warehouse-client/token/refresh/repofake"
)

const (
	secretStr     = "1234"
	testUserID    = int64(42)
	testSessionID = "session-1"
)

type testFixture struct {
	now     time.Time
	manager *token.Manager
	refresh *refresh.Manager
}

type refreshConfig struct{}

func (refreshConfig) GetRefreshTokenExpiry() time.Duration { return time.Hour }
func (refreshConfig) GetRefreshTokenLength() int           { return 16 }

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	f.manager = token.New(token.NewHMACSigner(secretStr),
		token.WithAccessTokenExpiry(time.Minute),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	f.refresh = refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), refreshConfig{})
	return f
}

func TestAccessTokenRoundTrip(t *testing.T) {
	f := setupTestFixture(t)

	raw, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)

	claims, err := f.manager.Validate(raw)
	require.NoError(t, err)
	require.Equal(t, testUserID, claims.UserID)
	require.Equal(t, testSessionID, claims.SessionID)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, f.now.Add(time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	raw, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)

	f.now = f.now.Add(2 * time.Minute)
	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestForeignSignatureIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	other := token.New(token.NewHMACSigner("other"), token.WithNowFunc(func() time.Time { return f.now }))
	raw, err := other.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)

	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestRevokedSessionIsRejected(t *testing.T) {
	f := setupTestFixture(t)
	raw, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)
	otherRaw, err := f.manager.CreateAccessToken(testUserID, "session-2")
	require.NoError(t, err)

	require.NoError(t, f.manager.RevokeSession(testSessionID))
	_, err = f.manager.Validate(raw)
	require.ErrorIs(t, err, token.ErrRevoked)
	_, err = f.manager.Validate(otherRaw)
	require.NoError(t, err)
}

func TestRevocationEndsWithAccessTokenLifetime(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.manager.RevokeSession(testSessionID))

	f.now = f.now.Add(30 * time.Second)
	early, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)
	_, err = f.manager.Validate(early)
	require.ErrorIs(t, err, token.ErrRevoked)

	f.now = f.now.Add(time.Minute)
	late, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)
	_, err = f.manager.Validate(late)
	require.NoError(t, err)
}

func TestMemoryDenylist(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	d := token.NewMemoryDenylist()

	d.Deny("a", at.Add(time.Minute))
	d.Deny("a", at.Add(30*time.Second))
	d.Deny("b", at.Add(10*time.Second))

	require.True(t, d.Denied("a", at.Add(45*time.Second)))
	require.False(t, d.Denied("b", at.Add(20*time.Second)))
	require.False(t, d.Denied("c", at))

	d.Deny("c", at.Add(5*time.Second))
	require.Equal(t, 1, d.Prune(at.Add(10*time.Second)))
	require.True(t, d.Denied("a", at.Add(time.Minute)))
	require.False(t, d.Denied("a", at.Add(time.Minute+time.Second)))
}

func TestExpireAllRejectsEarlierTokens(t *testing.T) {
	f := setupTestFixture(t)
	before, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)

	f.manager.ExpireAll()
	_, err = f.manager.Validate(before)
	require.ErrorIs(t, err, token.ErrRevoked)

	after, err := f.manager.CreateAccessToken(testUserID, testSessionID)
	require.NoError(t, err)
	_, err = f.manager.Validate(after)
	require.NoError(t, err)
}

func TestRefreshTokenRotation(t *testing.T) {
	f := setupTestFixture(t)
	first, err := f.refresh.Create(testUserID, testSessionID)
	require.NoError(t, err)
	require.Len(t, first, 32)

	next, err := f.refresh.Rotate(first)
	require.NoError(t, err)
	require.NotEqual(t, first, next.Token)
	require.Equal(t, testSessionID, next.SessionID)

	_, err = f.refresh.Rotate(first)
	require.ErrorIs(t, err, refresh.ErrUnknownToken)
}

func TestRefreshTokenOnePerSession(t *testing.T) {
	f := setupTestFixture(t)
	first, err := f.refresh.Create(testUserID, testSessionID)
	require.NoError(t, err)
	second, err := f.refresh.Create(testUserID, testSessionID)
	require.NoError(t, err)

	_, err = f.refresh.Get(first)
	require.Error(t, err)
	_, err = f.refresh.Get(second)
	require.NoError(t, err)

	require.NoError(t, f.refresh.RevokeUser(testUserID))
	_, err = f.refresh.Get(second)
	require.Error(t, err)
}

func TestExpiredRefreshToken(t *testing.T) {
	f := setupTestFixture(t)
	orig := refresh.NowTimeFunc
	t.Cleanup(func() { refresh.NowTimeFunc = orig })

	now := time.Now()
	refresh.NowTimeFunc = func() time.Time { return now }
	rt, err := f.refresh.Create(testUserID, testSessionID)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = f.refresh.Rotate(rt)
	require.ErrorIs(t, err, refresh.ErrExpiredToken)
}
