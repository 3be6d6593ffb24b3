// Package auth owns the client session: tokens, the logged in user and
// where they are persisted.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/internal/config"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/router"
	"github.com/bazrganidrwst/warehouse-client/storage"
)

const (
	MsgLoginSuccess  = "Login successful"
	MsgLoginFailed   = "Login failed"
	MsgLogoutSuccess = "Logout successful"
	MsgMissingLogin  = "Username and password are required"
)

var (
	_ apiclient.Session = (*Store)(nil)
	_ router.AuthState  = (*Store)(nil)
)

// Store is the session store. It satisfies apiclient.Session so the API
// pipeline can refresh and end the session, and router.AuthState for the
// navigation guard.
type Store struct {
	api             apiclient.Doer
	local           storage.Store
	session         storage.Store
	policy          config.PersistencePolicy
	notifier        notify.Notifier
	logoutGrace     time.Duration
	unauthorizedTTL time.Duration

	mu                sync.RWMutex
	user              *AuthUser
	currentUser       *UserData
	token             string
	refreshToken      string
	remember          bool
	loggedIn          bool
	loggedOut         bool
	loading           bool
	initialized       bool
	lastErr           string
	unauthorizedErr   string
	unauthorizedTimer *time.Timer
	logoutTimer       *time.Timer
	listeners         []func(*UserData)
}

type Option func(*Store)

func WithPolicy(p config.PersistencePolicy) Option {
	return func(s *Store) { s.policy = p }
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithLogoutGrace sets how long IsLoggedOut stays true after a logout.
func WithLogoutGrace(d time.Duration) Option {
	return func(s *Store) { s.logoutGrace = d }
}

func WithUnauthorizedTTL(d time.Duration) Option {
	return func(s *Store) { s.unauthorizedTTL = d }
}

// NewStore creates a session store. local survives restarts, session lives
// with the process.
func NewStore(api apiclient.Doer, local, session storage.Store, opts ...Option) *Store {
	s := &Store{
		api:             api,
		local:           local,
		session:         session,
		policy:          config.PersistRemember,
		notifier:        notify.Nop,
		logoutGrace:     time.Second,
		unauthorizedTTL: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func NewStoreFromConfig(api apiclient.Doer, local, session storage.Store, cfg config.SessionConfig, opts ...Option) *Store {
	base := []Option{
		WithPolicy(cfg.GetPersistencePolicy()),
		WithLogoutGrace(cfg.GetLogoutGrace()),
		WithUnauthorizedTTL(cfg.GetUnauthorizedTTL()),
	}
	return NewStore(api, local, session, append(base, opts...)...)
}

// LoadStoredAuth restores a persisted session. Later calls return the
// current state without reading storage again.
func (s *Store) LoadStoredAuth() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return s.token != ""
	}
	s.initialized = true

	for _, st := range s.readOrder() {
		token, ok := st.Get(storage.KeyToken)
		if !ok || token == "" {
			continue
		}
		var user AuthUser
		err := storage.GetJSON(st, storage.KeyUser, &user)
		if errs.Is(err, errs.ErrCorruptSession) {
			log.Warn().Err(err).Msg("discarding stored session")
			if rmErr := st.Remove(storage.SessionKeys...); rmErr != nil {
				log.Err(rmErr).Msg("remove corrupt session")
			}
			continue
		}
		if err == nil {
			s.user = &user
		}
		s.token = token
		s.refreshToken, _ = st.Get(storage.KeyRefreshToken)
		s.remember = storage.GetBool(st, storage.KeyRemember)
		break
	}
	s.loggedIn = s.token != ""
	return s.loggedIn
}

func (s *Store) readOrder() []storage.Store {
	switch s.policy {
	case config.PersistAlways:
		return []storage.Store{s.local}
	case config.PersistNever:
		return []storage.Store{s.session}
	}
	return []storage.Store{s.local, s.session}
}

// target returns the storage the session belongs in and the one that must
// not hold it.
func (s *Store) target(remember bool) (storage.Store, storage.Store) {
	switch {
	case s.policy == config.PersistAlways:
		return s.local, s.session
	case s.policy == config.PersistNever:
		return s.session, s.local
	case remember:
		return s.local, s.session
	}
	return s.session, s.local
}

// Login authenticates against the backend. Request failures are already
// reported to the user by the pipeline.
func (s *Store) Login(ctx context.Context, req LoginRequest) error {
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		notify.Error(s.notifier, MsgMissingLogin)
		return errs.Wrap(errs.ErrInvalidInput, "[Store.Login] "+MsgMissingLogin)
	}

	s.mu.Lock()
	s.user, s.currentUser = nil, nil
	s.token, s.refreshToken = "", ""
	s.loggedIn = false
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	defer s.setLoading(false)

	r := apiclient.Post(endpoint.Login, req.payload())
	r.SkipRecovery = true
	env, err := apiclient.Send[LoginData](ctx, s.api, r)
	if err != nil {
		s.setError(apiclient.Message(err))
		return err
	}
	if env.Data.Token == "" {
		notify.Error(s.notifier, env.MessageOr(MsgLoginFailed))
		s.setError(MsgLoginFailed)
		return &apiclient.Error{Kind: apiclient.KindBadResponse, Status: http.StatusOK, Message: MsgLoginFailed}
	}

	user := env.Data.User
	s.mu.Lock()
	s.token = env.Data.Token
	s.refreshToken = env.Data.RefreshToken
	s.user = &user
	s.remember = req.Remember
	s.loggedOut = false
	s.initialized = true
	s.mu.Unlock()

	if err := s.persist(req.Remember); err != nil {
		log.Err(err).Msg("persist session")
	}
	if err := storage.SetBool(s.local, storage.KeyRememberPreference, req.Remember); err != nil {
		log.Err(err).Msg("persist remember preference")
	}

	if _, err := s.FetchCurrentUser(ctx); err != nil {
		log.Debug().Err(err).Msg("continuing login without full user data")
	}

	s.mu.Lock()
	s.loggedIn = true
	s.mu.Unlock()

	notify.Success(s.notifier, env.MessageOr(MsgLoginSuccess))
	return nil
}

func (s *Store) persist(remember bool) error {
	s.mu.RLock()
	user, token, refresh := s.user, s.token, s.refreshToken
	s.mu.RUnlock()

	target, other := s.target(remember)
	if err := other.Remove(storage.SessionKeys...); err != nil {
		return errs.Wrap(err, "[Store.persist] clear other storage")
	}
	if err := target.Remove(storage.KeySessionExpiry, storage.KeyLastActivity); err != nil {
		return errs.Wrap(err, "[Store.persist] clear legacy keys")
	}
	if user != nil {
		if err := storage.SetJSON(target, storage.KeyUser, user); err != nil {
			return err
		}
	}
	if err := target.Set(storage.KeyToken, token); err != nil {
		return errs.Wrap(err, "[Store.persist] token")
	}
	if err := target.Set(storage.KeyRefreshToken, refresh); err != nil {
		return errs.Wrap(err, "[Store.persist] refresh token")
	}
	return storage.SetBool(target, storage.KeyRemember, remember)
}

// Logout ends the session locally first, then tells the backend. The
// backend call is best effort and its failure is not returned.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	oldToken := s.token
	s.user, s.currentUser = nil, nil
	s.token, s.refreshToken = "", ""
	s.loggedIn = false
	s.remember = false
	s.loggedOut = true
	if s.logoutTimer != nil {
		s.logoutTimer.Stop()
	}
	s.logoutTimer = time.AfterFunc(s.logoutGrace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.loggedOut = false
	})
	listeners := append([]func(*UserData){}, s.listeners...)
	s.mu.Unlock()

	for _, st := range []storage.Store{s.local, s.session} {
		if err := st.Remove(storage.SessionKeys...); err != nil {
			log.Err(err).Msg("clear stored session")
		}
	}
	if err := s.local.Remove(storage.KeyRememberPreference); err != nil {
		log.Err(err).Msg("clear remember preference")
	}
	for _, l := range listeners {
		l(nil)
	}

	if oldToken == "" {
		return nil
	}
	r := apiclient.Post(endpoint.Logout, map[string]any{})
	r.Silent = true
	r.SkipRecovery = true
	r.Header = http.Header{"Authorization": {"Bearer " + oldToken}}
	env, err := apiclient.Send[json.RawMessage](ctx, s.api, r)
	if err != nil {
		s.setError(apiclient.Message(err))
		log.Debug().Err(err).Msg("backend logout failed")
		return nil
	}
	notify.Success(s.notifier, env.MessageOr(MsgLogoutSuccess))
	return nil
}

// FetchCurrentUser loads the full profile. During maintenance it returns
// nil without error and leaves the session alone.
func (s *Store) FetchCurrentUser(ctx context.Context) (*UserData, error) {
	if s.Token() == "" {
		return nil, errs.ErrNotLoggedIn
	}
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	defer s.setLoading(false)

	env, err := apiclient.Send[*UserData](ctx, s.api, apiclient.Get(endpoint.Me, url.Values{"relations": {endpoint.MeRelations}}))
	if err != nil {
		s.setError(apiclient.Message(err))
		if errs.Is(err, errs.ErrMaintenance) {
			return nil, nil
		}
		return nil, err
	}
	if env.Data == nil {
		return nil, nil
	}

	s.mu.Lock()
	s.currentUser = env.Data
	s.loggedIn = true
	listeners := append([]func(*UserData){}, s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		l(env.Data)
	}
	return env.Data, nil
}

// RefreshUserData reloads the profile and shares it with listeners.
func (s *Store) RefreshUserData(ctx context.Context) bool {
	if s.Token() == "" {
		return false
	}
	user, err := s.FetchCurrentUser(ctx)
	return err == nil && user != nil
}

// UpdateTokens stores a refreshed token pair.
func (s *Store) UpdateTokens(token, refreshToken string) error {
	s.mu.Lock()
	s.token = token
	s.refreshToken = refreshToken
	remember := s.remember
	s.mu.Unlock()

	target, _ := s.target(remember)
	if err := target.Set(storage.KeyToken, token); err != nil {
		return errs.Wrap(err, "[Store.UpdateTokens] token")
	}
	return errs.Wrap(target.Set(storage.KeyRefreshToken, refreshToken), "[Store.UpdateTokens] refresh token")
}

// SetCurrentUser replaces the profile, for example after a profile update.
func (s *Store) SetCurrentUser(u *UserData) {
	s.mu.Lock()
	s.currentUser = u
	listeners := append([]func(*UserData){}, s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(u)
	}
}

// OnUserData registers fn to receive every profile change. fn receives nil
// on logout.
func (s *Store) OnUserData(fn func(*UserData)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// RememberPreference is the remember choice of the last login, for display.
func (s *Store) RememberPreference() bool {
	return storage.GetBool(s.local, storage.KeyRememberPreference)
}

// TokenExpiry reads the exp claim of the access token without verifying
// the signature.
func (s *Store) TokenExpiry() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// SetUnauthorizedError records a permission failure for display. It clears
// itself after the unauthorized TTL.
func (s *Store) SetUnauthorizedError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorizedErr = message
	if s.unauthorizedTimer != nil {
		s.unauthorizedTimer.Stop()
	}
	s.unauthorizedTimer = time.AfterFunc(s.unauthorizedTTL, s.ClearUnauthorizedError)
}

func (s *Store) ClearUnauthorizedError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unauthorizedErr = ""
}

func (s *Store) UnauthorizedError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unauthorizedErr
}

func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

func (s *Store) IsLoggedOut() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedOut
}

func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) Remember() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.remember
}

func (s *Store) User() *AuthUser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Store) CurrentUser() *UserData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentUser
}

// UserType prefers the full profile and falls back to the login user.
func (s *Store) UserType() router.UserType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.currentUser != nil && s.currentUser.Type != "":
		return router.UserType(s.currentUser.Type)
	case s.user != nil:
		return router.UserType(s.user.Type)
	}
	return ""
}

func (s *Store) setLoading(b bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = b
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}
