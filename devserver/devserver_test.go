package devserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/devserver"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/internal/utils"
	"github.com/bazrganidrwst/warehouse-client/inventory"
	"github.com/bazrganidrwst/warehouse-client/notifications"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/storage"
	"github.com/bazrganidrwst/warehouse-client/storage/memstore"
)

type testConfig struct{}

func (testConfig) GetPort() string                      { return ":0" }
func (testConfig) GetJWTSecret() string                 { return "test-secret" }
func (testConfig) GetAccessTokenExpiry() time.Duration  { return time.Hour }
func (testConfig) GetRefreshTokenExpiry() time.Duration { return 24 * time.Hour }
func (testConfig) GetRefreshTokenLength() int           { return 16 }
func (testConfig) GetStartInMaintenance() bool          { return false }

// hitCounter counts requests per path.
type hitCounter struct {
	mu   sync.Mutex
	hits map[string]int
	next http.Handler
}

func (h *hitCounter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.hits[r.URL.Path]++
	h.mu.Unlock()
	h.next.ServeHTTP(w, r)
}

func (h *hitCounter) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits[path]
}

type testFixture struct {
	server  *devserver.Server
	counter *hitCounter
	baseURL string
}

type testClient struct {
	local  *memstore.Store
	notes  *notify.Recorder
	api    *apiclient.Client
	auth   *auth.Store
	stores *inventory.Stores
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	srv, err := devserver.New(testConfig{})
	require.NoError(t, err)

	counter := &hitCounter{hits: map[string]int{}, next: srv}
	hs := httptest.NewServer(counter)
	t.Cleanup(hs.Close)
	return &testFixture{server: srv, counter: counter, baseURL: hs.URL + devserver.APIPrefix}
}

func (f *testFixture) newClient(t *testing.T) *testClient {
	t.Helper()
	c := &testClient{local: memstore.New(), notes: &notify.Recorder{}}
	api, err := apiclient.New(f.baseURL, apiclient.WithNotifier(c.notes), apiclient.WithStorage(c.local, memstore.New()))
	require.NoError(t, err)
	c.api = api
	c.auth = auth.NewStore(api, c.local, memstore.New(), auth.WithNotifier(c.notes), auth.WithLogoutGrace(10*time.Millisecond))
	api.UseSession(c.auth)
	c.stores = inventory.New(api, c.notes, c.auth)
	c.stores.ResetOnLogout(c.auth)
	return c
}

func (f *testFixture) login(t *testing.T, username, password string) *testClient {
	t.Helper()
	c := f.newClient(t)
	require.NoError(t, c.auth.Login(context.Background(), auth.LoginRequest{
		Username: username,
		Password: password,
		Remember: true,
	}))
	return c
}

func TestLoginLoadsProfile(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.EmployeeUsername, devserver.EmployeePassword)

	require.True(t, c.auth.LoggedIn())
	require.Equal(t, "employee", c.auth.User().Type)
	require.NotNil(t, c.auth.CurrentUser())
	require.Equal(t, "Erbil", c.auth.CurrentUser().Branch.Name)

	stored, ok := c.local.Get(storage.KeyToken)
	require.True(t, ok)
	require.Equal(t, c.auth.Token(), stored)
}

func TestLoginWithWrongPassword(t *testing.T) {
	f := setupTestFixture(t)
	c := f.newClient(t)

	err := c.auth.Login(context.Background(), auth.LoginRequest{Username: devserver.AdminUsername, Password: "nope"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	require.False(t, c.auth.LoggedIn())
	require.Equal(t, "Invalid credentials", c.auth.Err())
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)
	oldToken, oldRefresh := c.auth.Token(), c.auth.RefreshToken()

	f.server.ExpireAccessTokens()

	var wg sync.WaitGroup
	errCh := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := apiclient.Send[[]json.RawMessage](context.Background(), c.api, apiclient.Get(endpoint.Items, nil))
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	require.Equal(t, 1, f.counter.count(devserver.APIPrefix+endpoint.Refresh))
	require.NotEqual(t, oldToken, c.auth.Token())
	require.NotEqual(t, oldRefresh, c.auth.RefreshToken())
	require.True(t, c.auth.LoggedIn())
}

func TestLogoutAllEndsOtherSessions(t *testing.T) {
	f := setupTestFixture(t)
	first := f.login(t, devserver.AdminUsername, devserver.AdminPassword)
	second := f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	devices, err := first.stores.Profile.FetchDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	require.NoError(t, first.stores.Profile.LogoutAll(context.Background()))

	err = second.stores.Branches.Fetch(context.Background(), inventory.ListQuery{})
	require.ErrorIs(t, err, errs.ErrSessionExpired)
	require.False(t, second.auth.LoggedIn())
	_, ok := second.local.Get(storage.KeyToken)
	require.False(t, ok)

	require.NoError(t, first.stores.Branches.Fetch(context.Background(), inventory.ListQuery{}))
	require.True(t, first.auth.LoggedIn())
}

func TestRevokeDevice(t *testing.T) {
	f := setupTestFixture(t)
	first := f.login(t, devserver.AdminUsername, devserver.AdminPassword)
	f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	devices, err := first.stores.Profile.FetchDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 2)

	var other inventory.FlexID
	for _, d := range devices {
		if !d.Current {
			other = d.ID
		}
	}
	require.NotEmpty(t, other)
	require.NoError(t, first.stores.Profile.RevokeDevice(context.Background(), other))

	devices, err = first.stores.Profile.FetchDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].Current)
}

func TestMaintenanceIsNotNotified(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)
	c.notes.Reset()

	f.server.SetMaintenance(true)
	err := c.stores.Branches.Fetch(context.Background(), inventory.ListQuery{})
	require.ErrorIs(t, err, errs.ErrMaintenance)
	require.True(t, c.api.InMaintenance())
	require.Empty(t, c.notes.OfType(notify.Negative))
	require.True(t, c.auth.LoggedIn())

	f.server.SetMaintenance(false)
	require.NoError(t, c.stores.Branches.Fetch(context.Background(), inventory.ListQuery{}))
}

func TestValidationErrorsAreNormalized(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	_, err := c.stores.Branches.Create(context.Background(), inventory.BranchPayload{Name: "Sulaymaniyah"})
	require.ErrorIs(t, err, errs.ErrValidation)

	apiErr, ok := apiclient.AsError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, []string{"location_id", "phone"}, apiErr.FieldOrder)
	require.Equal(t, "The location id field is required. The phone field is required.", apiErr.Message)
	require.Len(t, c.notes.OfType(notify.Negative), 1)
}

func TestCollectionPaginationAndSearch(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	require.NoError(t, c.stores.Items.Fetch(context.Background(), inventory.ListQuery{Page: 2, PerPage: 1}, 0))
	require.Len(t, c.stores.Items.Items(), 1)
	p := c.stores.Items.Pagination()
	require.NotNil(t, p)
	require.Equal(t, 2, p.CurrentPage)
	require.Equal(t, 2, p.LastPage)
	require.Equal(t, 2, p.Total)

	found, err := c.stores.Items.Search(context.Background(), "oil", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "OIL-5", found[0].SKU)

	require.NoError(t, c.stores.Customers.Fetch(context.Background(), inventory.All(), inventory.CustomerTypeSupplier))
	require.Len(t, c.stores.Customers.Items(), 1)
	require.Nil(t, c.stores.Customers.Pagination())
}

func TestCreateItemRejectsDuplicateSKU(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	item, err := c.stores.Items.Create(context.Background(), inventory.ItemPayload{SKU: "SUGAR-1", Name: "Sugar 1kg", MinQty: utils.Ptr(5)})
	require.NoError(t, err)
	require.NotZero(t, item.ID)

	_, err = c.stores.Items.Create(context.Background(), inventory.ItemPayload{SKU: "sugar-1", Name: "Sugar again"})
	require.ErrorIs(t, err, errs.ErrValidation)
	require.Equal(t, "The sku has already been taken.", apiclient.Message(err))
}

func TestStaffAccountCanLogin(t *testing.T) {
	f := setupTestFixture(t)
	admin := f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	require.NoError(t, admin.stores.Branches.Fetch(context.Background(), inventory.All()))
	branch := admin.stores.Branches.Items()[0].ID

	_, err := admin.stores.Employees.Create(context.Background(), inventory.StaffPayload{
		Name:                 "Hawre Jalal",
		Role:                 "Driver",
		Phone:                "07509998877",
		Username:             "hawre",
		Password:             "driver2024",
		PasswordConfirmation: "driver2024",
		BranchID:             &branch,
	})
	require.NoError(t, err)

	hawre := f.login(t, "hawre", "driver2024")
	require.Equal(t, "employee", hawre.auth.User().Type)
	require.Equal(t, branch, hawre.auth.CurrentUser().Branch.ID)
}

func TestEmployeeCannotListAdmins(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.EmployeeUsername, devserver.EmployeePassword)

	err := c.stores.Admins.Fetch(context.Background(), inventory.ListQuery{})
	require.ErrorIs(t, err, errs.ErrForbidden)
	require.True(t, c.auth.LoggedIn())
}

func TestCashboxFlow(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AccountantUsername, devserver.AccountantPassword)
	ctx := context.Background()
	box := c.stores.Cashbox

	require.NoError(t, c.stores.Branches.Fetch(ctx, inventory.All()))
	branch := c.stores.Branches.Items()[0].ID

	err := box.Deposit(ctx, branch, inventory.CashMovement{USDAmount: utils.Ptr(100.0)})
	require.Error(t, err)
	require.Equal(t, "Cashbox is closed", box.Err())

	err = box.Open(ctx, branch, "wrong-password")
	require.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, box.Open(ctx, branch, devserver.AccountantPassword))
	require.NoError(t, box.Deposit(ctx, branch, inventory.CashMovement{USDAmount: utils.Ptr(100.0), IQDAmount: utils.Ptr(50000.0)}))
	require.Equal(t, 100.0, box.Current().USDBalance)

	err = box.Withdraw(ctx, branch, inventory.CashMovement{USDAmount: utils.Ptr(150.0)})
	require.Error(t, err)
	require.Equal(t, "Insufficient balance", box.Err())

	require.NoError(t, box.Withdraw(ctx, branch, inventory.CashMovement{USDAmount: utils.Ptr(40.0)}))
	require.Equal(t, 60.0, box.Current().USDBalance)
	require.NoError(t, box.Close(ctx, branch, devserver.AccountantPassword))
	require.False(t, box.Current().IsOpened)
}

func TestNotifications(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)
	ctx := context.Background()
	store := notifications.NewStore(c.api, c.notes)

	require.NoError(t, store.Fetch(ctx))
	require.Equal(t, 2, store.UnreadCount())

	first := store.Notifications()[0].ID
	require.NoError(t, store.MarkAsRead(ctx, first))
	require.Equal(t, 1, store.UnreadCount())

	f.server.PushNotification(f.server.UserID(devserver.AdminUsername), "Cashbox", "The Erbil cashbox was closed.")
	require.NoError(t, store.Refresh(ctx))
	require.Equal(t, 2, store.UnreadCount())

	require.NoError(t, store.MarkAllAsRead(ctx))
	require.Zero(t, store.UnreadCount())
	require.NoError(t, store.Refresh(ctx))
	require.Empty(t, store.Notifications())
}

func TestChangePasswordLogsOutOtherDevices(t *testing.T) {
	f := setupTestFixture(t)
	first := f.login(t, devserver.AccountantUsername, devserver.AccountantPassword)
	second := f.login(t, devserver.AccountantUsername, devserver.AccountantPassword)
	ctx := context.Background()

	require.NoError(t, first.stores.Profile.ChangePassword(ctx, inventory.PasswordChange{
		CurrentPassword:      devserver.AccountantPassword,
		Password:             "ledger2025",
		PasswordConfirmation: "ledger2025",
	}))

	_, err := second.stores.Profile.Fetch(ctx)
	require.ErrorIs(t, err, errs.ErrSessionExpired)

	_, err = first.stores.Profile.Fetch(ctx)
	require.NoError(t, err)

	third := f.newClient(t)
	err = third.auth.Login(ctx, auth.LoginRequest{Username: devserver.AccountantUsername, Password: devserver.AccountantPassword})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
	f.login(t, devserver.AccountantUsername, "ledger2025")
}

func TestStickyNotes(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)
	ctx := context.Background()
	profile := c.stores.Profile

	note, err := profile.CreateNote(ctx, "Call Zagros about the oil delivery")
	require.NoError(t, err)
	_, err = profile.UpdateNote(ctx, note.ID, "Zagros delivery moved to Sunday")
	require.NoError(t, err)

	user, err := c.auth.FetchCurrentUser(ctx)
	require.NoError(t, err)
	require.Len(t, user.StickyNotes, 1)
	require.Equal(t, "Zagros delivery moved to Sunday", user.StickyNotes[0].Content)

	require.NoError(t, profile.DeleteNote(ctx, note.ID))
	require.Empty(t, profile.Notes())
}

func TestDashboard(t *testing.T) {
	f := setupTestFixture(t)
	c := f.login(t, devserver.AdminUsername, devserver.AdminPassword)

	d, err := c.stores.Dashboard.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, d.Counters.Users.Admins)
	require.Equal(t, 1, d.Counters.Users.Employees)
	require.Equal(t, 2, d.Counters.Users.Customers)
	require.Equal(t, 5000.0, d.Branches["Erbil"].Capacity)
	require.Equal(t, 1310.0, d.ExchangeRates["usd_iqd"])
}
