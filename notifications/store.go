package notifications

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/notify"
)

const (
	MsgFetchFailed       = "Failed to fetch notifications"
	MsgMarkedRead        = "Notification marked as read"
	MsgMarkReadFailed    = "Failed to mark notification as read"
	MsgAllMarkedRead     = "All notifications marked as read"
	MsgMarkAllReadFailed = "Failed to mark all notifications as read"
)

// Store holds the notifications last returned by the backend, sorted unread
// first and then newest first.
type Store struct {
	api      apiclient.Doer
	notifier notify.Notifier

	mu      sync.RWMutex
	items   []Notification
	loading bool
	lastErr string
	open    bool
}

func NewStore(api apiclient.Doer, n notify.Notifier) *Store {
	if n == nil {
		n = notify.Nop
	}
	return &Store{api: api, notifier: n}
}

// Fetch loads the unread notifications from the backend.
func (s *Store) Fetch(ctx context.Context) error {
	return s.fetch(ctx, false)
}

// Ensure fetches only when nothing is loaded yet or the last fetch failed.
func (s *Store) Ensure(ctx context.Context) error {
	s.mu.RLock()
	skip := s.loading || (len(s.items) > 0 && s.lastErr == "")
	s.mu.RUnlock()
	if skip {
		return nil
	}
	return s.fetch(ctx, false)
}

// Refresh drops the loaded notifications and fetches again.
func (s *Store) Refresh(ctx context.Context) error {
	s.Clear()
	return s.fetch(ctx, false)
}

// fetch runs the request. Background polls pass silent so a flaky
// connection does not raise a toast every interval.
func (s *Store) fetch(ctx context.Context, silent bool) error {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.mu.Unlock()
	}()

	req := apiclient.Get(endpoint.UnreadNotifications, nil)
	req.Silent = silent
	env, err := apiclient.Send[[]Notification](ctx, s.api, req)
	if err != nil {
		s.setError(apiclient.Message(err))
		return err
	}
	if !env.Succeeded() {
		msg := env.MessageOr(MsgFetchFailed)
		s.setError(msg)
		if !silent && !mentionsAuth(msg) {
			notify.Error(s.notifier, msg)
		}
		return &apiclient.Error{Kind: apiclient.KindServer, Status: http.StatusOK, Message: msg}
	}

	items := env.Data
	sortNotifications(items)
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

func (s *Store) MarkAsRead(ctx context.Context, id int64) error {
	env, err := apiclient.Send[Notification](ctx, s.api, apiclient.Post(endpoint.MarkNotificationRead(id), nil))
	if err != nil {
		return err
	}
	if !env.Succeeded() {
		notify.Error(s.notifier, env.MessageOr(MsgMarkReadFailed))
		return errs.Wrapf(errs.ErrServer, "[Store.MarkAsRead] %s", env.MessageOr(MsgMarkReadFailed))
	}

	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			break
		}
	}
	sortNotifications(s.items)
	s.mu.Unlock()
	notify.Success(s.notifier, MsgMarkedRead)
	return nil
}

func (s *Store) MarkAllAsRead(ctx context.Context) error {
	env, err := apiclient.Send[struct{}](ctx, s.api, apiclient.Post(endpoint.MarkAllNotifications, nil))
	if err != nil {
		return err
	}
	if !env.Succeeded() {
		notify.Error(s.notifier, env.MessageOr(MsgMarkAllReadFailed))
		return errs.Wrapf(errs.ErrServer, "[Store.MarkAllAsRead] %s", env.MessageOr(MsgMarkAllReadFailed))
	}

	s.mu.Lock()
	for i := range s.items {
		s.items[i].Read = true
	}
	s.mu.Unlock()
	notify.Success(s.notifier, MsgAllMarkedRead)
	return nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.lastErr = ""
}

// TogglePopup flips the popup state and loads notifications when it opens.
func (s *Store) TogglePopup(ctx context.Context) (bool, error) {
	s.mu.Lock()
	s.open = !s.open
	open := s.open
	s.mu.Unlock()
	if !open {
		return false, nil
	}
	return true, s.Ensure(ctx)
}

// Notifications returns a copy of the sorted notifications.
func (s *Store) Notifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Store) Unread() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Notification
	for _, n := range s.items {
		if !n.Read {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) UnreadCount() int {
	return len(s.Unread())
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

func (s *Store) setError(msg string) {
	if msg == "" {
		msg = MsgFetchFailed
	}
	s.mu.Lock()
	s.lastErr = msg
	s.mu.Unlock()
}

// sortNotifications orders unread before read, then newest first.
func sortNotifications(items []Notification) {
	slices.SortStableFunc(items, func(a, b Notification) int {
		if a.Read != b.Read {
			if a.Read {
				return 1
			}
			return -1
		}
		return b.CreatedAt.Compare(a.CreatedAt.Time)
	})
}

func mentionsAuth(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "unauthenticated") || strings.Contains(lower, "unauthorized")
}

// IsAuthError reports whether err means polling can no longer succeed
// without a new login.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errs.Is(err, errs.ErrSessionExpired) {
		return true
	}
	if apiErr, ok := apiclient.AsError(err); ok {
		if apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden {
			return true
		}
		return mentionsAuth(apiErr.Message)
	}
	return mentionsAuth(err.Error())
}
