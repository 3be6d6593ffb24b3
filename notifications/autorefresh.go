package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/internal/config"
	"github.com/bazrganidrwst/warehouse-client/internal/obs"
)

// Alerter is told about notifications that arrived since the last poll.
type Alerter interface {
	Alert(n Notification)
}

type AlerterFunc func(n Notification)

func (f AlerterFunc) Alert(n Notification) { f(n) }

// AutoRefresher polls a Store on a fixed interval while the view is
// visible. Hiding the view pauses polling; showing it again refreshes
// immediately and resumes. An auth failure stops polling altogether.
type AutoRefresher struct {
	store     *Store
	scheduler Scheduler
	interval  time.Duration
	alerter   Alerter
	metrics   *obs.ClientMetrics

	mu      sync.Mutex
	running bool
	visible bool
	ctx     context.Context
	stopCtx context.CancelFunc
	cancel  func()
	seen    map[int64]struct{}
	primed  bool
	done    chan struct{}
	// owned is the scheduler created by Start when none was supplied.
	owned *CronScheduler
}

type RefresherOption func(*AutoRefresher)

func WithScheduler(s Scheduler) RefresherOption {
	return func(a *AutoRefresher) { a.scheduler = s }
}

func WithInterval(d time.Duration) RefresherOption {
	return func(a *AutoRefresher) { a.interval = d }
}

func WithAlerter(al Alerter) RefresherOption {
	return func(a *AutoRefresher) { a.alerter = al }
}

func WithMetrics(m *obs.ClientMetrics) RefresherOption {
	return func(a *AutoRefresher) { a.metrics = m }
}

func NewAutoRefresher(store *Store, opts ...RefresherOption) *AutoRefresher {
	a := &AutoRefresher{
		store:    store,
		interval: 50 * time.Second,
		visible:  true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func NewAutoRefresherFromConfig(store *Store, cfg config.NotificationConfig, opts ...RefresherOption) *AutoRefresher {
	return NewAutoRefresher(store, append([]RefresherOption{WithInterval(cfg.GetNotificationInterval())}, opts...)...)
}

// Start loads the notifications once and begins polling. Calling Start on a
// running refresher does nothing. The first load never raises alerts.
func (a *AutoRefresher) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.primed = false
	a.seen = make(map[int64]struct{})
	a.done = make(chan struct{})
	if a.scheduler == nil {
		a.owned = NewCronScheduler()
		a.scheduler = a.owned
	}
	a.ctx, a.stopCtx = context.WithCancel(ctx)
	visible := a.visible
	if visible {
		a.scheduleLocked()
	}
	a.mu.Unlock()

	log.Info().Dur("interval", a.interval).Msg("notification auto-refresh started")
	if visible {
		a.poll()
	}
}

// Stop cancels the timer and any poll in flight.
func (a *AutoRefresher) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	a.unscheduleLocked()
	a.stopCtx()
	close(a.done)
	if a.owned != nil {
		// Stop may run inside a scheduled poll, so do not wait for jobs.
		a.owned.c.Stop()
		a.owned, a.scheduler = nil, nil
	}
	a.mu.Unlock()
	log.Info().Msg("notification auto-refresh stopped")
}

// SetVisible records whether the view is shown.
func (a *AutoRefresher) SetVisible(visible bool) {
	a.mu.Lock()
	changed := a.visible != visible
	a.visible = visible
	if !a.running || !changed {
		a.mu.Unlock()
		return
	}
	if !visible {
		a.unscheduleLocked()
		a.mu.Unlock()
		log.Debug().Msg("notification auto-refresh paused")
		return
	}
	a.scheduleLocked()
	a.mu.Unlock()

	log.Debug().Msg("notification auto-refresh resumed")
	a.poll()
}

// Done is closed when polling stops, either through Stop or after an auth
// failure. It is nil before the first Start.
func (a *AutoRefresher) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

func (a *AutoRefresher) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *AutoRefresher) Visible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.visible
}

func (a *AutoRefresher) scheduleLocked() {
	a.unscheduleLocked()
	a.cancel = a.scheduler.Every(a.interval, a.poll)
}

func (a *AutoRefresher) unscheduleLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

func (a *AutoRefresher) poll() {
	a.mu.Lock()
	if !a.running || !a.visible {
		a.mu.Unlock()
		return
	}
	ctx := a.ctx
	a.mu.Unlock()

	err := a.store.fetch(ctx, true)
	switch {
	case err == nil:
		a.metrics.Poll("ok")
	case ctx.Err() != nil:
		return
	case IsAuthError(err):
		a.metrics.Poll("auth_error")
		log.Warn().Err(err).Msg("stopping notification auto-refresh after auth failure")
		a.Stop()
		return
	default:
		a.metrics.Poll("error")
		log.Debug().Err(err).Msg("notification poll failed")
		return
	}

	for _, n := range a.arrivals() {
		if a.alerter != nil {
			a.alerter.Alert(n)
		}
	}
}

// arrivals returns unread notifications not seen by an earlier poll.
func (a *AutoRefresher) arrivals() []Notification {
	unread := a.store.Unread()
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.running {
		return nil
	}
	var fresh []Notification
	for _, n := range unread {
		if _, ok := a.seen[n.ID]; ok {
			continue
		}
		a.seen[n.ID] = struct{}{}
		if a.primed {
			fresh = append(fresh, n)
		}
	}
	a.primed = true
	return fresh
}
