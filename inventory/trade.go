package inventory

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
)

// Transactions manages purchase and sell transactions.
type Transactions struct {
	*State[Transaction]
	conn
}

func newTransactions(c conn) *Transactions {
	return &Transactions{State: &State[Transaction]{}, conn: c}
}

func (s *Transactions) Fetch(ctx context.Context, t endpoint.TransactionType, q ListQuery) error {
	q = q.withDefaults([]string{"customer", "warehouse", "items"})
	env, err := call[[]Transaction](ctx, s.conn, s.State, apiclient.Get(endpoint.Transactions(t), q.values()), "")
	if err != nil {
		return err
	}
	s.setItems(env.Data, env.Pagination, q)
	return nil
}

// Get loads one transaction with amounts in currency (USD or IQD).
func (s *Transactions) Get(ctx context.Context, id int64, currency string) (*Transaction, error) {
	query := url.Values{"relations": {"customer,warehouse,items"}}
	if currency != "" {
		query.Set("currency", currency)
	}
	env, err := call[Transaction](ctx, s.conn, s.State, apiclient.Get(endpoint.Transaction(id), query), "")
	if err != nil {
		return nil, err
	}
	s.setCurrent(&env.Data)
	return &env.Data, nil
}

func (s *Transactions) Create(ctx context.Context, t endpoint.TransactionType, p TransactionPayload) (*Transaction, error) {
	switch {
	case t != endpoint.Purchase && t != endpoint.Sell:
		return nil, invalid(s.conn, s.State, "Transactions.Create", "Unknown transaction type")
	case p.CustomerID <= 0 || p.WarehouseID <= 0:
		return nil, invalid(s.conn, s.State, "Transactions.Create", "Customer and warehouse are required")
	case len(p.Details) == 0:
		return nil, invalid(s.conn, s.State, "Transactions.Create", "At least one item is required")
	}
	for _, d := range p.Details {
		if d.Quantity <= 0 {
			return nil, invalid(s.conn, s.State, "Transactions.Create", "Item quantities must be greater than zero")
		}
	}
	env, err := call[Transaction](ctx, s.conn, s.State, apiclient.Post(endpoint.CreateTransaction(t), p), "Transaction created successfully")
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (s *Transactions) PaySupplier(ctx context.Context, id int64, p Payment) error {
	return s.payment(ctx, "Transactions.PaySupplier", endpoint.PaySupplier(id), p, "Payment completed successfully")
}

func (s *Transactions) ReceiveFromCustomer(ctx context.Context, id int64, p Payment) error {
	return s.payment(ctx, "Transactions.ReceiveFromCustomer", endpoint.ReceiveCustomer(id), p, "Payment received successfully")
}

func (s *Transactions) payment(ctx context.Context, op, path string, p Payment, success string) error {
	if p.Amount <= 0 {
		return invalid(s.conn, s.State, op, "Payment amount must be greater than zero")
	}
	_, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Post(path, p), success)
	return err
}

func (s *Transactions) Refund(ctx context.Context, p RefundPayload) error {
	if p.TransactionID <= 0 || len(p.Details) == 0 {
		return invalid(s.conn, s.State, "Transactions.Refund", "Transaction and refunded items are required")
	}
	_, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Post(endpoint.TransactionRefund, p), "Refund completed successfully")
	return err
}

// Release frees the items a reserved transaction holds.
func (s *Transactions) Release(ctx context.Context, id int64) error {
	_, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Put(endpoint.TransactionFreeding(id), nil), "Transaction updated successfully")
	return err
}

type Offers struct {
	*State[Offer]
	res resource[Offer]
}

func newOffers(c conn) *Offers {
	res := newResource[Offer](c, endpoint.Offers, "Offer")
	return &Offers{State: res.state, res: res}
}

func (s *Offers) Fetch(ctx context.Context, q ListQuery) error {
	if q.PerPage == 0 {
		q.PerPage = 25
	}
	return s.res.list(ctx, q)
}

func (s *Offers) Get(ctx context.Context, id int64) (*Offer, error) { return s.res.get(ctx, id) }

func (s *Offers) Create(ctx context.Context, p OfferPayload) (*Offer, error) {
	if p.CustomerID <= 0 || len(p.Details) == 0 {
		return nil, invalid(s.res.conn, s.State, "Offers.Create", "Customer and at least one item are required")
	}
	return s.res.create(ctx, p)
}

func (s *Offers) Update(ctx context.Context, id int64, p OfferPayload) (*Offer, error) {
	return s.res.update(ctx, id, p)
}

func (s *Offers) ChangeStatus(ctx context.Context, id int64, status OfferStatus) error {
	if !status.Valid() {
		return invalid(s.res.conn, s.State, "Offers.ChangeStatus", "Unknown offer status "+string(status))
	}
	env, err := call[Offer](ctx, s.res.conn, s.State, apiclient.Patch(endpoint.OfferStatus(id, string(status)), nil),
		"Offer status changed to "+string(status)+" successfully")
	if err != nil {
		return err
	}
	s.update(func(items []Offer) {
		for i := range items {
			if items[i].ID == id {
				items[i].Status = status
			}
		}
	})
	if cur := s.Current(); cur != nil && cur.ID == id {
		s.setCurrent(&env.Data)
	}
	return nil
}

// Transfers manages item transfers between warehouses: requests that need
// approval and direct transfers.
type Transfers struct {
	*State[Transfer]
	conn
	incoming *State[Transfer]
}

func newTransfers(c conn) *Transfers {
	return &Transfers{State: &State[Transfer]{}, conn: c, incoming: &State[Transfer]{}}
}

func (s *Transfers) Fetch(ctx context.Context, q ListQuery) error {
	q = q.withDefaults([]string{"fromWarehouse", "toWarehouse", "items"})
	env, err := call[[]Transfer](ctx, s.conn, s.State, apiclient.Get(endpoint.TransferRequests, q.values()), "")
	if err != nil {
		return err
	}
	s.setItems(env.Data, env.Pagination, q)
	return nil
}

func (s *Transfers) FetchIncoming(ctx context.Context, q ListQuery) error {
	q = q.withDefaults([]string{"fromWarehouse", "toWarehouse", "items"})
	env, err := call[[]Transfer](ctx, s.conn, s.incoming, apiclient.Get(endpoint.TransferIncoming, q.values()), "")
	if err != nil {
		return err
	}
	s.incoming.setItems(env.Data, env.Pagination, q)
	return nil
}

func (s *Transfers) Incoming() *State[Transfer] { return s.incoming }

// Request asks the owner of the source warehouse to approve a transfer.
func (s *Transfers) Request(ctx context.Context, p TransferPayload) (*Transfer, error) {
	return s.create(ctx, "Transfers.Request", endpoint.TransferRequest, p, "Transfer request created successfully")
}

// Transfer moves items directly, without approval.
func (s *Transfers) Transfer(ctx context.Context, p TransferPayload) (*Transfer, error) {
	return s.create(ctx, "Transfers.Transfer", endpoint.TransferDirect, p, "Transfer created successfully")
}

func (s *Transfers) create(ctx context.Context, op, path string, p TransferPayload, success string) (*Transfer, error) {
	switch {
	case p.FromWarehouseID <= 0 || p.ToWarehouseID <= 0:
		return nil, invalid(s.conn, s.State, op, "Source and target warehouses are required")
	case p.FromWarehouseID == p.ToWarehouseID:
		return nil, invalid(s.conn, s.State, op, "Source and target warehouses must differ")
	case len(p.Details) == 0:
		return nil, invalid(s.conn, s.State, op, "At least one item is required")
	}
	env, err := call[Transfer](ctx, s.conn, s.State, apiclient.Post(path, p), success)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (s *Transfers) Approve(ctx context.Context, id int64) error {
	return s.transition(ctx, endpoint.TransferApprove(id), id, TransferApproved, "Transfer approved successfully")
}

func (s *Transfers) Complete(ctx context.Context, id int64) error {
	return s.transition(ctx, endpoint.TransferComplete(id), id, TransferCompleted, "Transfer completed successfully")
}

func (s *Transfers) Reject(ctx context.Context, id int64) error {
	return s.transition(ctx, endpoint.TransferReject(id), id, TransferRejected, "Transfer rejected successfully")
}

func (s *Transfers) transition(ctx context.Context, path string, id int64, to TransferStatus, success string) error {
	if _, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Post(path, nil), success); err != nil {
		return err
	}
	mark := func(items []Transfer) {
		for i := range items {
			if items[i].ID == id {
				items[i].Status = to
			}
		}
	}
	s.update(mark)
	s.incoming.update(mark)
	return nil
}
