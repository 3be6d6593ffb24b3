package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bazrganidrwst/warehouse-client/internal/config"
	"github.com/bazrganidrwst/warehouse-client/notifications"
	"github.com/bazrganidrwst/warehouse-client/notify"
	"github.com/bazrganidrwst/warehouse-client/router"
)

func setupTestApp(t *testing.T, handler http.HandlerFunc) *app {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("WAREHOUSE_API_URL", srv.URL+"/api")
	t.Setenv("WAREHOUSE_DATA_DIR", t.TempDir())
	t.Setenv("WAREHOUSE_REDIS_ADDR", "")
	t.Setenv("WAREHOUSE_METRICS_ADDR", "")

	a, err := newApp(context.Background(), config.New(), &notify.Recorder{})
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestWatchReturnsWhenPollingHitsAuthFailure(t *testing.T) {
	a := setupTestApp(t, respond(http.StatusUnauthorized, `{"status":"error","message":"Unauthenticated."}`))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := a.watch(ctx, notifications.NewStore(a.api, a.notifier))
	require.ErrorIs(t, err, errPollingStopped)
	require.Less(t, time.Since(start), 4*time.Second)
}

func TestWatchStopsWhenNavigatingToLogin(t *testing.T) {
	a := setupTestApp(t, respond(http.StatusOK, `{"status":"success","data":[]}`))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- a.watch(ctx, notifications.NewStore(a.api, a.notifier)) }()

	var got error
	require.Eventually(t, func() bool {
		a.history.Replace(router.RouteLogin)
		select {
		case got = <-errCh:
			return true
		default:
			return false
		}
	}, 4*time.Second, 20*time.Millisecond)
	require.ErrorIs(t, got, errPollingStopped)
}
