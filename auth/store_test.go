package auth_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/internal/config"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/router"
	"github.com/bazrganidrwst/warehouse-client/storage"
	"github.com/bazrganidrwst/warehouse-client/storage/memstore"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "aram"
	testPassword = "secret"
	testToken    = "access-1"
	testRefresh  = "refresh-1"
)

// fakeBackend answers the auth routes.
type fakeBackend struct {
	mu           sync.Mutex
	loginBody    map[string]any
	logoutAuth   string
	logoutStatus int
	meStatus     int
	logouts      int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.URL.Path {
	case "/api/login":
		b.loginBody = map[string]any{}
		_ = json.NewDecoder(r.Body).Decode(&b.loginBody)
		if b.loginBody["password"] != testPassword {
			writeJSON(w, http.StatusUnauthorized, `{"status":"error","message":"Invalid credentials"}`)
			return
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(`{"status":"success","message":"Welcome back","data":{
			"user":{"id":1,"name":"Aram","type":"employee","username":"aram"},
			"token":%q,"refresh_token":%q}}`, testToken, testRefresh))
	case "/api/me":
		if b.meStatus != 0 {
			writeJSON(w, b.meStatus, `{"status":"error","message":"Down"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"success","data":{"id":1,"name":"Aram","type":"employee",
			"username":"aram","branch":{"id":2,"name":"Erbil"},"sticky_notes":[{"id":3,"content":"call supplier"}]}}`)
	case "/api/logout":
		b.logouts++
		b.logoutAuth = r.Header.Get("Authorization")
		status := b.logoutStatus
		if status == 0 {
			status = http.StatusOK
		}
		writeJSON(w, status, `{"status":"success","message":"Bye"}`)
	case "/api/refresh":
		writeJSON(w, http.StatusOK, `{"status":"success","data":{"token":"access-2","refresh_token":"refresh-2"}}`)
	case "/api/items":
		if r.Header.Get("Authorization") != "Bearer access-2" {
			writeJSON(w, http.StatusUnauthorized, `{"status":"error","message":"Unauthenticated."}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"success","data":[]}`)
	default:
		writeJSON(w, http.StatusNotFound, `{"status":"error","message":"not found"}`)
	}
}

func (b *fakeBackend) with(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

type testFixture struct {
	backend *fakeBackend
	local   *memstore.Store
	session *memstore.Store
	notes   *notify.Recorder
	client  *apiclient.Client
	store   *auth.Store
}

func setupTestFixture(t *testing.T, policy config.PersistencePolicy) *testFixture {
	t.Helper()
	f := &testFixture{
		backend: &fakeBackend{},
		local:   memstore.New(),
		session: memstore.New(),
		notes:   &notify.Recorder{},
	}
	srv := httptest.NewServer(f.backend)
	t.Cleanup(srv.Close)

	c, err := apiclient.New(srv.URL+"/api", apiclient.WithNotifier(f.notes), apiclient.WithStorage(f.local, f.session))
	require.NoError(t, err)
	f.client = c
	f.store = auth.NewStore(c, f.local, f.session,
		auth.WithPolicy(policy),
		auth.WithNotifier(f.notes),
		auth.WithLogoutGrace(20*time.Millisecond),
		auth.WithUnauthorizedTTL(20*time.Millisecond),
	)
	c.UseSession(f.store)
	return f
}

func (f *testFixture) login(t *testing.T, remember bool) {
	t.Helper()
	require.NoError(t, f.store.Login(context.Background(), auth.LoginRequest{
		Username: testUsername,
		Password: testPassword,
		Remember: remember,
	}))
}

func TestLoginPersistsByPolicy(t *testing.T) {
	tests := []struct {
		policy       config.PersistencePolicy
		remember     bool
		wantInLocal  bool
		wantInMemory bool
	}{
		{policy: config.PersistRemember, remember: true, wantInLocal: true},
		{policy: config.PersistRemember, remember: false, wantInMemory: true},
		{policy: config.PersistAlways, remember: false, wantInLocal: true},
		{policy: config.PersistNever, remember: true, wantInMemory: true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s remember=%v", tt.policy, tt.remember), func(t *testing.T) {
			f := setupTestFixture(t, tt.policy)
			f.login(t, tt.remember)

			_, inLocal := f.local.Get(storage.KeyToken)
			_, inMemory := f.session.Get(storage.KeyToken)
			require.Equal(t, tt.wantInLocal, inLocal)
			require.Equal(t, tt.wantInMemory, inMemory)
			require.Equal(t, tt.remember, f.store.RememberPreference())
		})
	}
}

func TestLogin(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	require.NoError(t, f.store.Login(context.Background(), auth.LoginRequest{
		Username:       testUsername,
		Password:       testPassword,
		Remember:       true,
		RecaptchaToken: "captcha",
	}))

	f.backend.with(func(b *fakeBackend) {
		require.Equal(t, float64(1), b.loginBody["remember"])
		require.Equal(t, "captcha", b.loginBody["g-recaptcha-response"])
	})

	require.True(t, f.store.LoggedIn())
	require.Equal(t, testToken, f.store.Token())
	require.Equal(t, testRefresh, f.store.RefreshToken())
	require.Equal(t, "aram", f.store.User().Username)
	require.Equal(t, "Erbil", f.store.CurrentUser().Branch.Name)
	require.Len(t, f.store.CurrentUser().StickyNotes, 1)
	require.Equal(t, router.UserEmployee, f.store.UserType())

	positives := f.notes.OfType(notify.Positive)
	require.Len(t, positives, 1)
	require.Equal(t, "Welcome back", positives[0].Message)
}

func TestLoginFailure(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)

	err := f.store.Login(context.Background(), auth.LoginRequest{Username: testUsername, Password: "wrong"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.False(t, f.store.LoggedIn())
	require.Empty(t, f.store.Token())
	require.Equal(t, "Invalid credentials", f.store.Err())

	negatives := f.notes.OfType(notify.Negative)
	require.Len(t, negatives, 1)
	require.Equal(t, "Invalid credentials", negatives[0].Message)

	err = f.store.Login(context.Background(), auth.LoginRequest{Username: " "})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestLogoutClearsStorageWhenBackendFails(t *testing.T) {
	f := setupTestFixture(t, config.PersistAlways)
	f.login(t, true)
	f.backend.with(func(b *fakeBackend) { b.logoutStatus = http.StatusInternalServerError })
	f.notes.Reset()

	var cleared bool
	f.store.OnUserData(func(u *auth.UserData) { cleared = u == nil })

	require.NoError(t, f.store.Logout(context.Background()))

	for _, key := range []string{storage.KeyUser, storage.KeyToken, storage.KeyRefreshToken, storage.KeyRememberPreference} {
		_, ok := f.local.Get(key)
		require.False(t, ok, key)
	}
	require.Empty(t, f.store.Token())
	require.Nil(t, f.store.CurrentUser())
	require.True(t, cleared)
	f.backend.with(func(b *fakeBackend) { require.Equal(t, "Bearer "+testToken, b.logoutAuth) })
	require.Empty(t, f.notes.All())

	require.True(t, f.store.IsLoggedOut())
	require.Eventually(t, func() bool { return !f.store.IsLoggedOut() }, time.Second, 5*time.Millisecond)
}

func TestLogoutNotifiesOnSuccess(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	f.login(t, false)
	f.notes.Reset()

	require.NoError(t, f.store.Logout(context.Background()))
	positives := f.notes.OfType(notify.Positive)
	require.Len(t, positives, 1)
	require.Equal(t, "Bye", positives[0].Message)

	_, ok := f.session.Get(storage.KeyToken)
	require.False(t, ok)
}

func TestLoadStoredAuth(t *testing.T) {
	t.Run("valid session", func(t *testing.T) {
		f := setupTestFixture(t, config.PersistRemember)
		require.NoError(t, f.local.Set(storage.KeyToken, "stored"))
		require.NoError(t, f.local.Set(storage.KeyRefreshToken, "stored-refresh"))
		require.NoError(t, f.local.Set(storage.KeyUser, `{"id":4,"name":"Dara","type":"admin","username":"dara"}`))
		require.NoError(t, f.local.Set(storage.KeyRemember, "true"))

		require.True(t, f.store.LoadStoredAuth())
		require.Equal(t, "stored", f.store.Token())
		require.Equal(t, "stored-refresh", f.store.RefreshToken())
		require.Equal(t, router.UserAdmin, f.store.UserType())
		require.True(t, f.store.Remember())

		require.NoError(t, f.local.Remove(storage.KeyToken))
		require.True(t, f.store.LoadStoredAuth())
	})

	t.Run("corrupt user is discarded", func(t *testing.T) {
		f := setupTestFixture(t, config.PersistRemember)
		require.NoError(t, f.local.Set(storage.KeyToken, "stored"))
		require.NoError(t, f.local.Set(storage.KeyUser, "{broken"))

		require.False(t, f.store.LoadStoredAuth())
		require.Empty(t, f.store.Token())
		_, ok := f.local.Get(storage.KeyToken)
		require.False(t, ok)
	})

	t.Run("session storage fallback", func(t *testing.T) {
		f := setupTestFixture(t, config.PersistRemember)
		require.NoError(t, f.session.Set(storage.KeyToken, "tab"))
		require.True(t, f.store.LoadStoredAuth())
		require.Equal(t, "tab", f.store.Token())
		require.Nil(t, f.store.User())
	})
}

func TestUpdateTokens(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	f.login(t, true)

	require.NoError(t, f.store.UpdateTokens("access-2", "refresh-2"))
	v, _ := f.local.Get(storage.KeyToken)
	require.Equal(t, "access-2", v)
	v, _ = f.local.Get(storage.KeyRefreshToken)
	require.Equal(t, "refresh-2", v)
}

func TestFetchCurrentUserDuringMaintenance(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	f.login(t, true)
	f.backend.with(func(b *fakeBackend) { b.meStatus = http.StatusServiceUnavailable })

	user, err := f.store.FetchCurrentUser(context.Background())
	require.NoError(t, err)
	require.Nil(t, user)
	require.Equal(t, testToken, f.store.Token())
	require.True(t, f.client.InMaintenance())
}

func TestRefreshUserDataWithoutSession(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	require.False(t, f.store.RefreshUserData(context.Background()))
	_, err := f.store.FetchCurrentUser(context.Background())
	require.ErrorIs(t, err, errs.ErrNotLoggedIn)
}

func TestTokenExpiry(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	_, ok := f.store.TokenExpiry()
	require.False(t, ok)

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateTokens(signed, "r"))

	got, ok := f.store.TokenExpiry()
	require.True(t, ok)
	require.True(t, exp.Equal(got))
}

func TestUnauthorizedErrorExpires(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	p := router.NewPermissions(f.store.UserType, f.store.SetUnauthorizedError)

	require.False(t, p.Require(router.SectionAdmin, ""))
	require.Equal(t, "You don't have permission to access admin-section", f.store.UnauthorizedError())
	require.Eventually(t, func() bool { return f.store.UnauthorizedError() == "" }, time.Second, 5*time.Millisecond)
}

func TestPipelineRefreshPersistsRotatedTokens(t *testing.T) {
	f := setupTestFixture(t, config.PersistRemember)
	f.login(t, true)

	_, err := f.client.Do(context.Background(), apiclient.Get("/items", nil))
	require.NoError(t, err)

	require.Equal(t, "access-2", f.store.Token())
	v, _ := f.local.Get(storage.KeyToken)
	require.Equal(t, "access-2", v)
	v, _ = f.local.Get(storage.KeyRefreshToken)
	require.Equal(t, "refresh-2", v)
}
