// Package inventory holds the per-domain stores of the warehouse client.
// Every store keeps the state a view renders (loading, last error, listed
// items, the current record and pagination) and talks to the backend only
// through the API pipeline, which already reports request failures to the
// user. Stores report successes and their own input validation failures.
package inventory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
	"github.com/bazrganidrwst/warehouse-client/internal/utils"
	"github.com/bazrganidrwst/warehouse-client/notify"
)

// State is the observable state of a store.
type State[T any] struct {
	mu         sync.RWMutex
	loading    bool
	err        string
	items      []T
	current    *T
	pagination *apiclient.Pagination
	lastQuery  ListQuery
	listed     bool
}

func (s *State[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err is the message of the last failed operation, empty after a success.
func (s *State[T]) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *State[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

func (s *State[T]) Current() *T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *State[T]) Pagination() *apiclient.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// PageLabel renders the pagination as "current/last".
func (s *State[T]) PageLabel() string {
	p := s.Pagination()
	if p == nil {
		return "-"
	}
	return strconv.Itoa(p.CurrentPage) + "/" + strconv.Itoa(p.LastPage)
}

func (s *State[T]) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

func (s *State[T]) end() {
	s.mu.Lock()
	s.loading = false
	s.mu.Unlock()
}

func (s *State[T]) fail(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *State[T]) setItems(items []T, p *apiclient.Pagination, q ListQuery) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.pagination = p
	s.lastQuery = q
	s.listed = true
}

func (s *State[T]) setCurrent(v *T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = v
}

func (s *State[T]) update(fn func(items []T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.items)
}

func (s *State[T]) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items, s.current, s.pagination = nil, nil, nil
	s.err = ""
	s.lastQuery = ListQuery{}
	s.listed = false
}

func (s *State[T]) query() (ListQuery, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastQuery, s.listed
}

// tracker is the part of State the request helper drives.
type tracker interface {
	begin()
	end()
	fail(msg string)
}

// ListQuery builds list and search query strings.
type ListQuery struct {
	Page      int
	PerPage   int
	Search    string
	Relations []string
	Filters   map[string]string

	// Paginate defaults to true.
	Paginate *bool
}

// All returns a query for the unpaginated collection.
func All() ListQuery {
	return ListQuery{Paginate: utils.Ptr(false)}
}

func (q ListQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if utils.ValueOr(q.Paginate, true) {
		v.Set("paginate", "true")
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if q.Search != "" {
		v.Set("query", q.Search)
	}
	if len(q.Relations) > 0 {
		v.Set("relations", strings.Join(q.Relations, ","))
	}
	for k, val := range q.Filters {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

func (q ListQuery) withDefaults(relations []string) ListQuery {
	if len(q.Relations) == 0 {
		q.Relations = relations
	}
	return q
}

func (q ListQuery) filter(key, value string) ListQuery {
	f := make(map[string]string, len(q.Filters)+1)
	for k, v := range q.Filters {
		f[k] = v
	}
	f[key] = value
	q.Filters = f
	return q
}

// conn is what every store needs to reach the backend.
type conn struct {
	api      apiclient.Doer
	notifier notify.Notifier
}

// call sends req and decodes the envelope into R. A non empty success
// message is shown after a successful call, preferring the server message.
func call[R any](ctx context.Context, c conn, t tracker, req *apiclient.Request, success string) (*apiclient.Envelope[R], error) {
	t.begin()
	defer t.end()

	env, err := apiclient.Send[R](ctx, c.api, req)
	if err != nil {
		t.fail(apiclient.Message(err))
		return nil, err
	}
	if env.Status == apiclient.StatusError {
		msg := env.MessageOr(apiclient.MsgGeneric)
		t.fail(msg)
		notify.Error(c.notifier, msg)
		return nil, &apiclient.Error{Kind: apiclient.KindServer, Status: http.StatusOK, Message: msg}
	}
	if success != "" {
		notify.Success(c.notifier, env.MessageOr(success))
	}
	return env, nil
}

// invalid reports a request rejected before it was sent.
func invalid(c conn, t tracker, op, msg string) error {
	t.fail(msg)
	notify.Error(c.notifier, msg)
	return errs.Wrapf(errs.ErrInvalidInput, "[%s] %s", op, msg)
}

// resource implements the list/get/create/update/remove calls shared by the
// collection stores.
type resource[T any] struct {
	conn
	state     *State[T]
	path      string
	noun      string
	relations []string
}

func newResource[T any](c conn, path, noun string, relations ...string) resource[T] {
	return resource[T]{conn: c, state: &State[T]{}, path: path, noun: noun, relations: relations}
}

func (r resource[T]) list(ctx context.Context, q ListQuery) error {
	q = q.withDefaults(r.relations)
	env, err := call[[]T](ctx, r.conn, r.state, apiclient.Get(r.path, q.values()), "")
	if err != nil {
		return err
	}
	r.state.setItems(env.Data, env.Pagination, q)
	return nil
}

// search returns matches without replacing the listed items.
func (r resource[T]) search(ctx context.Context, q ListQuery) ([]T, error) {
	q = q.withDefaults(r.relations)
	if q.Paginate == nil {
		q.Paginate = utils.Ptr(false)
	}
	env, err := call[[]T](ctx, r.conn, r.state, apiclient.Get(r.path, q.values()), "")
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (r resource[T]) get(ctx context.Context, id int64, relations ...string) (*T, error) {
	var query url.Values
	if len(relations) > 0 {
		query = url.Values{"relations": {strings.Join(relations, ",")}}
	}
	env, err := call[T](ctx, r.conn, r.state, apiclient.Get(r.itemPath(id), query), "")
	if err != nil {
		return nil, err
	}
	r.state.setCurrent(&env.Data)
	return &env.Data, nil
}

func (r resource[T]) create(ctx context.Context, body any) (*T, error) {
	env, err := call[T](ctx, r.conn, r.state, apiclient.Post(r.path, body), r.noun+" created successfully")
	if err != nil {
		return nil, err
	}
	r.reload(ctx)
	return &env.Data, nil
}

func (r resource[T]) update(ctx context.Context, id int64, body any) (*T, error) {
	env, err := call[T](ctx, r.conn, r.state, apiclient.Put(r.itemPath(id), body), r.noun+" updated successfully")
	if err != nil {
		return nil, err
	}
	r.state.setCurrent(&env.Data)
	r.reload(ctx)
	return &env.Data, nil
}

func (r resource[T]) remove(ctx context.Context, id int64) error {
	if _, err := call[json.RawMessage](ctx, r.conn, r.state, apiclient.Delete(r.itemPath(id)), r.noun+" deleted successfully"); err != nil {
		return err
	}
	r.reload(ctx)
	return nil
}

// reload lists the page that was last shown. It is a no-op when nothing was
// listed yet.
func (r resource[T]) reload(ctx context.Context) {
	q, listed := r.state.query()
	if !listed {
		return
	}
	if p := r.state.Pagination(); p != nil && p.CurrentPage > 0 {
		q.Page = p.CurrentPage
	}
	if err := r.list(ctx, q); err != nil {
		log.Debug().Err(err).Str("path", r.path).Msg("reload after change failed")
	}
}

func (r resource[T]) itemPath(id int64) string {
	return r.path + "/" + strconv.FormatInt(id, 10)
}
