package notifications_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/notifications"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/storage/memstore"
	"github.com/stretchr/testify/require"
)

type item struct {
	id      int64
	read    bool
	created string
}

// fakeBackend serves the notification routes from a mutable list.
type fakeBackend struct {
	mu        sync.Mutex
	items     []item
	fetches   int
	status    int
	markedIDs []string
	markedAll int
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch {
	case r.URL.Path == "/api/notifications/get-unreads":
		b.fetches++
		if b.status != 0 {
			writeJSON(w, b.status, `{"status":"error","message":"Unauthenticated."}`)
			return
		}
		parts := make([]string, 0, len(b.items))
		for _, it := range b.items {
			parts = append(parts, fmt.Sprintf(`{"id":%d,"title":"t%d","message":"m%d","read":%t,"created_at":%q}`,
				it.id, it.id, it.id, it.read, it.created))
		}
		writeJSON(w, http.StatusOK, `{"status":"success","data":[`+strings.Join(parts, ",")+`]}`)
	case r.URL.Path == "/api/notifications/unreads/mark-all-as-read":
		b.markedAll++
		writeJSON(w, http.StatusOK, `{"status":"success","data":{"message":"done"}}`)
	case strings.HasSuffix(r.URL.Path, "/mark-as-read"):
		b.markedIDs = append(b.markedIDs, strings.Split(r.URL.Path, "/")[3])
		writeJSON(w, http.StatusOK, `{"status":"success","data":{}}`)
	default:
		writeJSON(w, http.StatusNotFound, `{"status":"error","message":"not found"}`)
	}
}

func (b *fakeBackend) with(fn func(b *fakeBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *fakeBackend) fetchCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fetches
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// manualScheduler fires scheduled jobs only when Tick is called.
type manualScheduler struct {
	mu   sync.Mutex
	next int
	jobs map[int]func()
}

func (s *manualScheduler) Every(_ time.Duration, job func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.jobs == nil {
		s.jobs = map[int]func(){}
	}
	id := s.next
	s.next++
	s.jobs[id] = job
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.jobs, id)
	}
}

func (s *manualScheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *manualScheduler) Tick() {
	s.mu.Lock()
	jobs := make([]func(), 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()
	for _, j := range jobs {
		j()
	}
}

type testFixture struct {
	backend   *fakeBackend
	notes     *notify.Recorder
	store     *notifications.Store
	scheduler *manualScheduler
	alerts    []notifications.Notification
	alertsMu  sync.Mutex
	refresher *notifications.AutoRefresher
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{
		backend: &fakeBackend{items: []item{
			{id: 1, read: true, created: "2024-05-01 10:00:00"},
			{id: 2, created: "2024-05-01 09:00:00"},
			{id: 3, created: "2024-05-02T08:00:00Z"},
		}},
		notes:     &notify.Recorder{},
		scheduler: &manualScheduler{},
	}
	srv := httptest.NewServer(f.backend)
	t.Cleanup(srv.Close)

	c, err := apiclient.New(srv.URL+"/api", apiclient.WithNotifier(f.notes), apiclient.WithStorage(memstore.New(), memstore.New()))
	require.NoError(t, err)
	f.store = notifications.NewStore(c, f.notes)
	f.refresher = notifications.NewAutoRefresher(f.store,
		notifications.WithScheduler(f.scheduler),
		notifications.WithInterval(time.Minute),
		notifications.WithAlerter(notifications.AlerterFunc(func(n notifications.Notification) {
			f.alertsMu.Lock()
			defer f.alertsMu.Unlock()
			f.alerts = append(f.alerts, n)
		})),
	)
	t.Cleanup(f.refresher.Stop)
	return f
}

func (f *testFixture) alerted() []int64 {
	f.alertsMu.Lock()
	defer f.alertsMu.Unlock()
	ids := make([]int64, 0, len(f.alerts))
	for _, n := range f.alerts {
		ids = append(ids, n.ID)
	}
	return ids
}

func ids(items []notifications.Notification) []int64 {
	out := make([]int64, 0, len(items))
	for _, n := range items {
		out = append(out, n.ID)
	}
	return out
}

func TestFetchSortsUnreadFirstThenNewest(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Fetch(context.Background()))

	require.Equal(t, []int64{3, 2, 1}, ids(f.store.Notifications()))
	require.Equal(t, 2, f.store.UnreadCount())
	require.Empty(t, f.store.Err())
}

func TestEnsureSkipsWhenLoaded(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Ensure(ctx))
	require.NoError(t, f.store.Ensure(ctx))
	require.Equal(t, 1, f.backend.fetchCount())

	require.NoError(t, f.store.Refresh(ctx))
	require.Equal(t, 2, f.backend.fetchCount())
}

func TestMarkAsRead(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Fetch(ctx))

	require.NoError(t, f.store.MarkAsRead(ctx, 3))
	require.Equal(t, []int64{2, 3, 1}, ids(f.store.Notifications()))
	require.Equal(t, 1, f.store.UnreadCount())
	f.backend.with(func(b *fakeBackend) {
		require.Equal(t, []string{"3"}, b.markedIDs)
	})
	require.Len(t, f.notes.OfType(notify.Positive), 1)
	require.Equal(t, notifications.MsgMarkedRead, f.notes.OfType(notify.Positive)[0].Message)

	require.NoError(t, f.store.MarkAllAsRead(ctx))
	require.Zero(t, f.store.UnreadCount())

	f.store.Clear()
	require.Empty(t, f.store.Notifications())
}

func TestFetchAuthFailureIsAuthError(t *testing.T) {
	f := setupTestFixture(t)
	f.backend.with(func(b *fakeBackend) { b.status = http.StatusUnauthorized })

	err := f.store.Fetch(context.Background())
	require.Error(t, err)
	require.True(t, notifications.IsAuthError(err))
	require.Empty(t, f.notes.OfType(notify.Negative))
}

func TestHiddenViewPausesPolling(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	f.refresher.Start(ctx)
	require.Equal(t, 1, f.backend.fetchCount())
	require.Equal(t, 1, f.scheduler.Active())

	f.refresher.Start(ctx)
	require.Equal(t, 1, f.scheduler.Active(), "second start must not add a timer")

	f.refresher.SetVisible(false)
	require.Zero(t, f.scheduler.Active())
	f.scheduler.Tick()
	require.Equal(t, 1, f.backend.fetchCount())

	f.refresher.SetVisible(true)
	require.Equal(t, 2, f.backend.fetchCount(), "becoming visible refreshes immediately")
	require.Equal(t, 1, f.scheduler.Active())

	f.scheduler.Tick()
	require.Equal(t, 3, f.backend.fetchCount())
}

func TestNewArrivalsAreAlerted(t *testing.T) {
	f := setupTestFixture(t)
	f.refresher.Start(context.Background())
	require.Empty(t, f.alerted(), "first load never alerts")

	f.backend.with(func(b *fakeBackend) {
		b.items = append(b.items, item{id: 4, created: "2024-05-03 08:00:00"})
	})
	f.scheduler.Tick()
	require.Equal(t, []int64{4}, f.alerted())

	f.scheduler.Tick()
	require.Equal(t, []int64{4}, f.alerted())
}

func TestAuthFailureStopsPolling(t *testing.T) {
	f := setupTestFixture(t)
	f.refresher.Start(context.Background())
	require.True(t, f.refresher.Running())

	f.backend.with(func(b *fakeBackend) { b.status = http.StatusUnauthorized })
	f.scheduler.Tick()
	require.False(t, f.refresher.Running())
	require.Zero(t, f.scheduler.Active())

	f.scheduler.Tick()
	require.Equal(t, 2, f.backend.fetchCount())
}

func TestDoneClosesWhenPollingStops(t *testing.T) {
	f := setupTestFixture(t)
	require.Nil(t, f.refresher.Done())
	f.refresher.Start(context.Background())
	done := f.refresher.Done()

	select {
	case <-done:
		t.Fatal("done closed while polling")
	default:
	}

	f.backend.with(func(b *fakeBackend) { b.status = http.StatusUnauthorized })
	f.scheduler.Tick()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("done not closed after auth failure")
	}

	f.refresher.Start(context.Background())
	require.NotEqual(t, done, f.refresher.Done())
}

func TestStartWhileHiddenWaitsForVisibility(t *testing.T) {
	f := setupTestFixture(t)
	f.refresher.SetVisible(false)
	f.refresher.Start(context.Background())
	require.Zero(t, f.backend.fetchCount())
	require.Zero(t, f.scheduler.Active())

	f.refresher.SetVisible(true)
	require.Equal(t, 1, f.backend.fetchCount())
	require.Empty(t, f.alerted())
}

func TestTogglePopupLoadsOnOpen(t *testing.T) {
	f := setupTestFixture(t)
	open, err := f.store.TogglePopup(context.Background())
	require.NoError(t, err)
	require.True(t, open)
	require.Equal(t, 1, f.backend.fetchCount())

	open, err = f.store.TogglePopup(context.Background())
	require.NoError(t, err)
	require.False(t, open)
	require.Equal(t, 1, f.backend.fetchCount())
}
