package inventory

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
)

// ReportKind selects one of the report tables.
type ReportKind string

const (
	ReportBranches       ReportKind = "branches"
	ReportWarehouses     ReportKind = "warehouses"
	ReportItemCategories ReportKind = "item-categories"
	ReportPurchases      ReportKind = "purchases"
	ReportSells          ReportKind = "sells"
)

var reportPaths = map[ReportKind]string{
	ReportBranches:       endpoint.ReportBranches,
	ReportWarehouses:     endpoint.ReportWarehouses,
	ReportItemCategories: endpoint.ReportItemCategories,
	ReportPurchases:      endpoint.ReportPurchases,
	ReportSells:          endpoint.ReportSells,
}

// ReportKinds lists every report in display order.
var ReportKinds = []ReportKind{ReportBranches, ReportWarehouses, ReportItemCategories, ReportPurchases, ReportSells}

// DateRange filters the purchase and sell reports. Dates are YYYY-MM-DD.
type DateRange struct {
	From string
	To   string
}

func (r DateRange) values() url.Values {
	v := url.Values{}
	if r.From != "" {
		v.Set("from_date", r.From)
	}
	if r.To != "" {
		v.Set("to_date", r.To)
	}
	return v
}

// Reports keeps one table per report kind.
type Reports struct {
	conn
	mu     sync.Mutex
	tables map[ReportKind]*State[ReportRow]
}

func newReports(c conn) *Reports {
	return &Reports{conn: c, tables: map[ReportKind]*State[ReportRow]{}}
}

// Table returns the state of one report.
func (s *Reports) Table(kind ReportKind) *State[ReportRow] {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.tables[kind]
	if !ok {
		st = &State[ReportRow]{}
		s.tables[kind] = st
	}
	return st
}

// Fetch loads one report. The date range applies to purchases and sells
// only.
func (s *Reports) Fetch(ctx context.Context, kind ReportKind, dates DateRange) ([]ReportRow, error) {
	path, ok := reportPaths[kind]
	st := s.Table(kind)
	if !ok {
		return nil, invalid(s.conn, st, "Reports.Fetch", "Unknown report "+string(kind))
	}
	var query url.Values
	if kind == ReportPurchases || kind == ReportSells {
		query = dates.values()
	}
	env, err := call[[]ReportRow](ctx, s.conn, st, apiclient.Get(path, query), "")
	if err != nil {
		return nil, err
	}
	st.setItems(env.Data, env.Pagination, ListQuery{})
	return env.Data, nil
}

// FetchAll loads every report concurrently and returns the first error.
func (s *Reports) FetchAll(ctx context.Context, dates DateRange) error {
	var wg sync.WaitGroup
	errs := make([]error, len(ReportKinds))
	for i, kind := range ReportKinds {
		wg.Add(1)
		go func(i int, kind ReportKind) {
			defer wg.Done()
			_, errs[i] = s.Fetch(ctx, kind, dates)
		}(i, kind)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// DashboardStore holds the home dashboard.
type DashboardStore struct {
	*State[Dashboard]
	conn

	mu          sync.Mutex
	lastUpdated time.Time
}

func newDashboard(c conn) *DashboardStore {
	return &DashboardStore{State: &State[Dashboard]{}, conn: c}
}

func (s *DashboardStore) Fetch(ctx context.Context) (*Dashboard, error) {
	env, err := call[Dashboard](ctx, s.conn, s.State, apiclient.Get(endpoint.Dashboard, nil), "")
	if err != nil {
		return nil, err
	}
	s.setCurrent(&env.Data)
	s.mu.Lock()
	s.lastUpdated = time.Now()
	s.mu.Unlock()
	return &env.Data, nil
}

func (s *DashboardStore) LastUpdated() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdated
}

// ActivityLogs lists the audit log.
type ActivityLogs struct {
	*State[ActivityLog]
	conn
}

func newActivityLogs(c conn) *ActivityLogs {
	return &ActivityLogs{State: &State[ActivityLog]{}, conn: c}
}

func (s *ActivityLogs) Fetch(ctx context.Context, q ListQuery) error {
	env, err := call[[]ActivityLog](ctx, s.conn, s.State, apiclient.Get(endpoint.ActivityLogs, q.values()), "")
	if err != nil {
		return err
	}
	s.setItems(env.Data, env.Pagination, q)
	return nil
}

func (s *ActivityLogs) Get(ctx context.Context, id int64) (*ActivityLog, error) {
	env, err := call[ActivityLog](ctx, s.conn, s.State, apiclient.Get(endpoint.ActivityLog(id), nil), "")
	if err != nil {
		return nil, err
	}
	s.setCurrent(&env.Data)
	return &env.Data, nil
}

func (s *Reports) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.tables {
		st.reset()
	}
}
