package inventory

import (
	"context"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
)

type Customers struct {
	*State[Customer]
	res resource[Customer]
}

func newCustomers(c conn) *Customers {
	res := newResource[Customer](c, endpoint.Customers, "Customer", "location")
	return &Customers{State: res.state, res: res}
}

// Fetch lists customers. An empty kind lists suppliers and customers.
func (s *Customers) Fetch(ctx context.Context, q ListQuery, kind CustomerType) error {
	if kind != "" {
		q = q.filter("type", string(kind))
	}
	return s.res.list(ctx, q)
}

func (s *Customers) Search(ctx context.Context, query string, kind CustomerType) ([]Customer, error) {
	q := ListQuery{Search: query}
	if kind != "" {
		q = q.filter("type", string(kind))
	}
	return s.res.search(ctx, q)
}

func (s *Customers) Get(ctx context.Context, id int64) (*Customer, error) {
	return s.res.get(ctx, id, "location")
}

func (s *Customers) Create(ctx context.Context, p CustomerPayload) (*Customer, error) {
	if p.FName == "" || (p.Type != CustomerTypeSupplier && p.Type != CustomerTypeCustomer) {
		return nil, invalid(s.res.conn, s.State, "Customers.Create", "Customer name and a valid type are required")
	}
	return s.res.create(ctx, p)
}

func (s *Customers) Update(ctx context.Context, id int64, p CustomerPayload) (*Customer, error) {
	return s.res.update(ctx, id, p)
}

// CreateAccount creates a login for the customer and returns the generated
// credentials.
func (s *Customers) CreateAccount(ctx context.Context, id int64) (*CustomerAccount, error) {
	env, err := call[CustomerAccount](ctx, s.res.conn, s.State, apiclient.Post(endpoint.CustomerAccount(id), nil), "Customer account created successfully")
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// Borrowing returns what the customer owes or is owed, as reported by the
// backend.
func (s *Customers) Borrowing(ctx context.Context, id int64) (map[string]any, error) {
	env, err := call[map[string]any](ctx, s.res.conn, s.State, apiclient.Get(endpoint.CustomerBorrowing(id), nil), "")
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

func (s *Customers) BulkPayment(ctx context.Context, id int64, p BulkPayment) error {
	if p.Amount <= 0 {
		return invalid(s.res.conn, s.State, "Customers.BulkPayment", "Payment amount must be greater than zero")
	}
	_, err := call[map[string]any](ctx, s.res.conn, s.State, apiclient.Post(endpoint.CustomerBulkPayment(id), p), "Payment received successfully")
	return err
}

// StaffStore manages one kind of staff account: employees, accountants or
// admins.
type StaffStore struct {
	*State[Staff]
	res resource[Staff]
}

func newStaff(c conn, path, noun string, relations ...string) *StaffStore {
	res := newResource[Staff](c, path, noun, relations...)
	return &StaffStore{State: res.state, res: res}
}

func (s *StaffStore) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

func (s *StaffStore) Search(ctx context.Context, query string) ([]Staff, error) {
	return s.res.search(ctx, ListQuery{Search: query})
}

func (s *StaffStore) Get(ctx context.Context, id int64) (*Staff, error) {
	return s.res.get(ctx, id, s.res.relations...)
}

func (s *StaffStore) Create(ctx context.Context, p StaffPayload) (*Staff, error) {
	if p.Username == "" || p.Password == "" {
		return nil, invalid(s.res.conn, s.State, s.res.noun+".Create", "Username and password are required")
	}
	if p.Password != p.PasswordConfirmation {
		return nil, invalid(s.res.conn, s.State, s.res.noun+".Create", "Password confirmation does not match")
	}
	return s.res.create(ctx, p)
}

func (s *StaffStore) Update(ctx context.Context, id int64, p StaffPayload) (*Staff, error) {
	if p.Password != p.PasswordConfirmation {
		return nil, invalid(s.res.conn, s.State, s.res.noun+".Update", "Password confirmation does not match")
	}
	return s.res.update(ctx, id, p)
}
