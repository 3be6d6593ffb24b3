package inventory_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/auth"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/internal/utils"
	"github.com/bazrganidrwst/warehouse-client/inventory"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/storage/memstore"
)

type reply struct {
	status int
	body   string
}

type recorded struct {
	method      string
	path        string
	query       url.Values
	body        string
	contentType string
}

// fakeBackend answers "METHOD /path" routes with canned replies and records
// every request it sees.
type fakeBackend struct {
	mu       sync.Mutex
	routes   map[string]reply
	requests []recorded
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/api")

	b.mu.Lock()
	b.requests = append(b.requests, recorded{
		method:      r.Method,
		path:        path,
		query:       r.URL.Query(),
		body:        string(body),
		contentType: r.Header.Get("Content-Type"),
	})
	rep, ok := b.routes[r.Method+" "+path]
	b.mu.Unlock()

	if !ok {
		rep = reply{http.StatusNotFound, `{"status":"error","message":"Not found"}`}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func (b *fakeBackend) with(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) route(key string, status int, body string) {
	b.with(func(b *fakeBackend) { b.routes[key] = reply{status, body} })
}

func (b *fakeBackend) sent() []recorded {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recorded(nil), b.requests...)
}

func (b *fakeBackend) last() recorded {
	reqs := b.sent()
	if len(reqs) == 0 {
		return recorded{}
	}
	return reqs[len(reqs)-1]
}

type userSink struct {
	mu   sync.Mutex
	user *auth.UserData
}

func (s *userSink) SetCurrentUser(u *auth.UserData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = u
}

type testFixture struct {
	backend *fakeBackend
	notes   *notify.Recorder
	sink    *userSink
	stores  *inventory.Stores
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		backend: &fakeBackend{routes: map[string]reply{}},
		notes:   &notify.Recorder{},
		sink:    &userSink{},
	}
	srv := httptest.NewServer(f.backend)
	t.Cleanup(srv.Close)

	c, err := apiclient.New(srv.URL+"/api", apiclient.WithNotifier(f.notes), apiclient.WithStorage(memstore.New(), memstore.New()))
	require.NoError(t, err)
	f.stores = inventory.New(c, f.notes, f.sink)
	return f
}

const branchPage = `{"status":"success","data":[{"id":1,"name":"Erbil","is_active":true},{"id":2,"name":"Duhok","is_active":false}],
	"pagination":{"current_page":2,"last_page":3,"per_page":2,"total":6}}`

func TestFetchBuildsQueryAndKeepsPagination(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("GET /branches", http.StatusOK, branchPage)

	err := f.stores.Branches.Fetch(context.Background(), inventory.ListQuery{Page: 2, Search: "er"})
	require.NoError(t, err)

	q := f.backend.last().query
	require.Equal(t, "true", q.Get("paginate"))
	require.Equal(t, "2", q.Get("page"))
	require.Equal(t, "er", q.Get("query"))
	require.Equal(t, "warehouses,location", q.Get("relations"))

	require.Len(t, f.stores.Branches.Items(), 2)
	require.Equal(t, "2/3", f.stores.Branches.PageLabel())
	require.False(t, f.stores.Branches.Loading())
	require.Empty(t, f.stores.Branches.Err())
}

func TestUnpaginatedQuery(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("GET /expenses/categories", http.StatusOK, `{"status":"success","data":[{"id":1,"name":"Fuel"}]}`)

	cats, err := f.stores.ExpenseCategories.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	require.Empty(t, f.backend.last().query.Get("paginate"))
	require.Empty(t, f.stores.ExpenseCategories.Items(), "search results do not replace the listed page")
}

func TestCreateNotifiesAndReloadsListedPage(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.route("GET /branches", http.StatusOK, branchPage)
	f.backend.route("POST /branches", http.StatusOK, `{"status":"success","data":{"id":7,"name":"Zakho"}}`)

	require.NoError(t, f.stores.Branches.Fetch(ctx, inventory.ListQuery{Page: 2}))
	created, err := f.stores.Branches.Create(ctx, inventory.BranchPayload{Name: "Zakho"})
	require.NoError(t, err)
	require.Equal(t, int64(7), created.ID)

	reqs := f.backend.sent()
	require.Len(t, reqs, 3)
	require.Equal(t, http.MethodPost, reqs[1].method)
	require.Contains(t, reqs[1].body, `"name":"Zakho"`)
	require.Equal(t, http.MethodGet, reqs[2].method)
	require.Equal(t, "2", reqs[2].query.Get("page"))

	positive := f.notes.OfType(notify.Positive)
	require.Len(t, positive, 1)
	require.Equal(t, "Branch created successfully", positive[0].Message)
}

func TestCreateWithoutListingDoesNotReload(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("POST /locations", http.StatusOK, `{"status":"success","message":"Saved","data":{"id":3,"name":"Soran"}}`)

	_, err := f.stores.Locations.Create(context.Background(), inventory.Location{Name: "Soran"})
	require.NoError(t, err)
	require.Len(t, f.backend.sent(), 1)
	require.Equal(t, "Saved", f.notes.OfType(notify.Positive)[0].Message)
}

func TestValidationFailureIsNotSent(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.stores.Items.Create(context.Background(), inventory.ItemPayload{Name: "Bolt"})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	require.Empty(t, f.backend.sent())
	require.Equal(t, "SKU and name are required", f.stores.Items.Err())
	require.Len(t, f.notes.OfType(notify.Negative), 1)
}

func TestServerValidationIsNotifiedOnce(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("POST /customers", http.StatusUnprocessableEntity,
		`{"message":"The given data was invalid.","errors":{"phone":["The phone has already been taken."]}}`)

	_, err := f.stores.Customers.Create(context.Background(), inventory.CustomerPayload{FName: "Aram", Type: inventory.CustomerTypeCustomer})
	require.ErrorIs(t, err, errs.ErrValidation)

	var apiErr *apiclient.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, "The phone has already been taken.", apiErr.FieldError("phone"))
	require.Len(t, f.notes.OfType(notify.Negative), 1)
	require.NotEmpty(t, f.stores.Customers.Err())
}

func TestEnvelopeErrorStatusFails(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("POST /cashbox/4/open", http.StatusOK, `{"status":"error","message":"Cashbox is already open"}`)

	err := f.stores.Cashbox.Open(context.Background(), 4, "secret")
	require.ErrorIs(t, err, errs.ErrServer)
	require.Equal(t, "Cashbox is already open", f.stores.Cashbox.Err())

	negative := f.notes.OfType(notify.Negative)
	require.Len(t, negative, 1)
	require.Equal(t, "Cashbox is already open", negative[0].Message)
	require.Len(t, f.backend.sent(), 1, "the cashbox is not reloaded after a failure")
}

func TestCashMovementNeedsAnAmount(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.route("POST /cashbox/4/deposit", http.StatusOK, `{"status":"success","data":{}}`)
	f.backend.route("GET /cashbox/4", http.StatusOK, `{"status":"success","data":{"iqd_balance":250000,"usd_balance":40,"is_opened":true}}`)

	err := f.stores.Cashbox.Deposit(ctx, 4, inventory.CashMovement{})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	err = f.stores.Cashbox.Deposit(ctx, 4, inventory.CashMovement{IQDAmount: utils.Ptr(1000.0), USDAmount: utils.Ptr(-1.0)})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	require.Empty(t, f.backend.sent())

	require.NoError(t, f.stores.Cashbox.Deposit(ctx, 4, inventory.CashMovement{USDAmount: utils.Ptr(40.0)}))
	reqs := f.backend.sent()
	require.Len(t, reqs, 2)
	require.JSONEq(t, `{"usd_amount":40}`, reqs[0].body)
	require.Equal(t, "sessions,transactions", reqs[1].query.Get("relations"))
	require.Equal(t, 40.0, f.stores.Cashbox.Current().USDBalance)
}

func TestTransferTransitionUpdatesBothLists(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	list := `{"status":"success","data":[{"id":9,"status":"pending"},{"id":10,"status":"pending"}]}`
	f.backend.route("GET /warehouse/items/transfer/requests", http.StatusOK, list)
	f.backend.route("GET /warehouse/items/transfer/incoming-transfers", http.StatusOK, list)
	f.backend.route("POST /warehouse/items/transfer/9/approve", http.StatusOK, `{"status":"success","data":null}`)

	require.NoError(t, f.stores.Transfers.Fetch(ctx, inventory.ListQuery{}))
	require.NoError(t, f.stores.Transfers.FetchIncoming(ctx, inventory.ListQuery{}))
	require.NoError(t, f.stores.Transfers.Approve(ctx, 9))

	require.Equal(t, inventory.TransferApproved, f.stores.Transfers.Items()[0].Status)
	require.Equal(t, inventory.TransferPending, f.stores.Transfers.Items()[1].Status)
	require.Equal(t, inventory.TransferApproved, f.stores.Transfers.Incoming().Items()[0].Status)
	require.Equal(t, "Transfer approved successfully", f.notes.OfType(notify.Positive)[0].Message)
}

func TestTransferBetweenSameWarehouseIsRejected(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.stores.Transfers.Request(context.Background(), inventory.TransferPayload{
		FromWarehouseID: 3,
		ToWarehouseID:   3,
		Details:         []inventory.TransferLine{{ItemID: 1, Quantity: 2}},
	})
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	require.Empty(t, f.backend.sent())
}

func TestOfferStatusChange(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.route("GET /offers", http.StatusOK, `{"status":"success","data":[{"id":5,"status":"draft"}]}`)
	f.backend.route("PATCH /offers/5/accepted", http.StatusOK, `{"status":"success","data":{"id":5,"status":"accepted"}}`)

	require.NoError(t, f.stores.Offers.Fetch(ctx, inventory.ListQuery{}))
	require.Equal(t, "25", f.backend.last().query.Get("per_page"))

	require.ErrorIs(t, f.stores.Offers.ChangeStatus(ctx, 5, "archived"), errs.ErrInvalidInput)
	require.NoError(t, f.stores.Offers.ChangeStatus(ctx, 5, inventory.OfferAccepted))
	require.Equal(t, inventory.OfferAccepted, f.stores.Offers.Items()[0].Status)
}

func TestReportsApplyDatesToLedgersOnly(t *testing.T) {
	f := setupTestFixture(t)
	for _, path := range []string{"branches", "warehouses", "item-categories", "purchases", "sells"} {
		f.backend.route("GET /reports/get/"+path, http.StatusOK, `{"status":"success","data":[{"name":"`+path+`"}]}`)
	}

	err := f.stores.Reports.FetchAll(context.Background(), inventory.DateRange{From: "2024-01-01", To: "2024-01-31"})
	require.NoError(t, err)

	for _, r := range f.backend.sent() {
		ledger := strings.HasSuffix(r.path, "/purchases") || strings.HasSuffix(r.path, "/sells")
		require.Equal(t, ledger, r.query.Get("from_date") == "2024-01-01", r.path)
	}
	for _, kind := range inventory.ReportKinds {
		require.Len(t, f.stores.Reports.Table(kind).Items(), 1, kind)
	}
}

func TestProfileSyncsSessionUser(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("GET /me", http.StatusOK,
		`{"status":"success","data":{"id":1,"name":"Shilan","username":"shilan","type":"admin","sticky_notes":[{"id":4,"content":"count stock"}]}}`)

	u, err := f.stores.Profile.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "stickyNotes,branch", f.backend.last().query.Get("relations"))
	require.Equal(t, "shilan", u.Username)
	require.Len(t, f.stores.Profile.Notes(), 1)
	require.Equal(t, "Shilan", f.sink.user.Name)
}

func TestChangePasswordLogsOutOthers(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.route("POST /change-password", http.StatusOK, `{"status":"success","data":null}`)

	err := f.stores.Profile.ChangePassword(ctx, inventory.PasswordChange{CurrentPassword: "a", Password: "b", PasswordConfirmation: "c"})
	require.ErrorIs(t, err, errs.ErrInvalidInput)

	require.NoError(t, f.stores.Profile.ChangePassword(ctx, inventory.PasswordChange{CurrentPassword: "a", Password: "b", PasswordConfirmation: "b"}))
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.backend.last().body), &body))
	require.Equal(t, true, body["logout_others"])
	require.Equal(t, "b", body["password"])
}

func TestUpdateImageSendsMultipart(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.route("POST /change-profile-image", http.StatusOK, `{"status":"success","data":{"id":1,"image":"u/1.png"}}`)

	u, err := f.stores.Profile.UpdateImage(context.Background(), "me.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	require.Equal(t, "u/1.png", u.Image)

	last := f.backend.last()
	require.True(t, strings.HasPrefix(last.contentType, "multipart/form-data; boundary="))
	require.Contains(t, last.body, `filename="me.png"`)
	require.Contains(t, last.body, "png-bytes")
}

func TestRevokeDeviceDropsItLocally(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.route("GET /authenticated-devices", http.StatusOK,
		`{"status":"success","data":[{"id":11,"name":"laptop","current":true},{"id":"12","name":"phone"}]}`)
	f.backend.route("DELETE /revoke-token", http.StatusOK, `{"status":"success","data":null}`)

	devices, err := f.stores.Profile.FetchDevices(ctx)
	require.NoError(t, err)
	require.Equal(t, inventory.FlexID("12"), devices[1].ID)

	require.NoError(t, f.stores.Profile.RevokeDevice(ctx, "12"))
	require.JSONEq(t, `{"token_id":"12"}`, f.backend.last().body)
	require.Len(t, f.stores.Profile.Devices(), 1)
	require.Equal(t, inventory.MsgDeviceRevoked, f.notes.OfType(notify.Positive)[0].Message)
}

func TestResetDropsLoadedRecords(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	f.backend.route("GET /branches", http.StatusOK, branchPage)
	f.backend.route("GET /exchange-rates/active-rate", http.StatusOK, `{"status":"success","data":{"id":1,"usd_iqd_rate":1460}}`)

	require.NoError(t, f.stores.Branches.Fetch(ctx, inventory.ListQuery{}))
	_, err := f.stores.ExchangeRates.Active(ctx, false)
	require.NoError(t, err)
	_, err = f.stores.ExchangeRates.Active(ctx, false)
	require.NoError(t, err)
	require.Len(t, f.backend.sent(), 2, "the active rate is cached")

	f.stores.Reset()
	require.Empty(t, f.stores.Branches.Items())
	require.Nil(t, f.stores.Branches.Pagination())
	require.Nil(t, f.stores.ExchangeRates.Current())
}
