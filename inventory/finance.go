package inventory

import (
	"context"
	"net/url"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
)

// CashboxStore holds the cashbox of one branch at a time.
type CashboxStore struct {
	*State[Cashbox]
	conn
}

func newCashbox(c conn) *CashboxStore {
	return &CashboxStore{State: &State[Cashbox]{}, conn: c}
}

func (s *CashboxStore) Fetch(ctx context.Context, branchID int64) (*Cashbox, error) {
	query := url.Values{"relations": {"sessions,transactions"}}
	env, err := call[Cashbox](ctx, s.conn, s.State, apiclient.Get(endpoint.Cashbox(branchID), query), "")
	if err != nil {
		return nil, err
	}
	s.setCurrent(&env.Data)
	return &env.Data, nil
}

func (s *CashboxStore) Open(ctx context.Context, branchID int64, password string) error {
	if password == "" {
		return invalid(s.conn, s.State, "CashboxStore.Open", "Password is required")
	}
	return s.act(ctx, branchID, endpoint.CashboxOpen(branchID), map[string]string{"password": password}, "Cashbox opened successfully")
}

func (s *CashboxStore) Close(ctx context.Context, branchID int64, password string) error {
	if password == "" {
		return invalid(s.conn, s.State, "CashboxStore.Close", "Password is required")
	}
	return s.act(ctx, branchID, endpoint.CashboxClose(branchID), map[string]string{"password": password}, "Cashbox closed successfully")
}

func (s *CashboxStore) Deposit(ctx context.Context, branchID int64, m CashMovement) error {
	if !m.valid() {
		return invalid(s.conn, s.State, "CashboxStore.Deposit", "Enter an IQD or USD amount")
	}
	return s.act(ctx, branchID, endpoint.CashboxDeposit(branchID), m, "Deposit completed successfully")
}

func (s *CashboxStore) Withdraw(ctx context.Context, branchID int64, m CashMovement) error {
	if !m.valid() {
		return invalid(s.conn, s.State, "CashboxStore.Withdraw", "Enter an IQD or USD amount")
	}
	return s.act(ctx, branchID, endpoint.CashboxWithdraw(branchID), m, "Withdrawal completed successfully")
}

// act runs a cashbox action and reloads the cashbox so balances and
// transactions are current.
func (s *CashboxStore) act(ctx context.Context, branchID int64, path string, body any, success string) error {
	if _, err := call[Cashbox](ctx, s.conn, s.State, apiclient.Post(path, body), success); err != nil {
		return err
	}
	_, err := s.Fetch(ctx, branchID)
	return err
}

func (m CashMovement) valid() bool {
	iqd, usd := m.IQDAmount != nil && *m.IQDAmount > 0, m.USDAmount != nil && *m.USDAmount > 0
	neg := (m.IQDAmount != nil && *m.IQDAmount < 0) || (m.USDAmount != nil && *m.USDAmount < 0)
	return (iqd || usd) && !neg
}

type ExpenseCategories struct {
	*State[ExpenseCategory]
	res resource[ExpenseCategory]
}

func newExpenseCategories(c conn) *ExpenseCategories {
	res := newResource[ExpenseCategory](c, endpoint.ExpenseCategory, "Expense category")
	return &ExpenseCategories{State: res.state, res: res}
}

func (s *ExpenseCategories) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

// FetchAll loads every category, for pickers.
func (s *ExpenseCategories) FetchAll(ctx context.Context) ([]ExpenseCategory, error) {
	return s.res.search(ctx, All())
}

func (s *ExpenseCategories) Search(ctx context.Context, query string, page int) error {
	return s.res.list(ctx, ListQuery{Search: query, Page: page})
}

func (s *ExpenseCategories) Get(ctx context.Context, id int64) (*ExpenseCategory, error) {
	return s.res.get(ctx, id)
}

func (s *ExpenseCategories) Create(ctx context.Context, c ExpenseCategory) (*ExpenseCategory, error) {
	if c.Name == "" {
		return nil, invalid(s.res.conn, s.State, "ExpenseCategories.Create", "Category name is required")
	}
	return s.res.create(ctx, c)
}

func (s *ExpenseCategories) Update(ctx context.Context, id int64, c ExpenseCategory) (*ExpenseCategory, error) {
	return s.res.update(ctx, id, c)
}

func (s *ExpenseCategories) Delete(ctx context.Context, id int64) error { return s.res.remove(ctx, id) }

type Expenses struct {
	*State[Expense]
	res resource[Expense]
}

func newExpenses(c conn) *Expenses {
	res := newResource[Expense](c, endpoint.Expenses, "Expense", "category")
	return &Expenses{State: res.state, res: res}
}

func (s *Expenses) Fetch(ctx context.Context, q ListQuery) error { return s.res.list(ctx, q) }

func (s *Expenses) Search(ctx context.Context, query string, page int) error {
	return s.res.list(ctx, ListQuery{Search: query, Page: page})
}

func (s *Expenses) Get(ctx context.Context, id int64) (*Expense, error) {
	return s.res.get(ctx, id, "category")
}

func (s *Expenses) Create(ctx context.Context, e Expense) (*Expense, error) {
	if e.CategoryID <= 0 || e.Title == "" {
		return nil, invalid(s.res.conn, s.State, "Expenses.Create", "Category and title are required")
	}
	if e.ExpensedIQD <= 0 && e.ExpensedUSD <= 0 {
		return nil, invalid(s.res.conn, s.State, "Expenses.Create", "Enter an IQD or USD amount")
	}
	return s.res.create(ctx, e)
}

// ExchangeRates keeps the active USD/IQD and EUR/USD rates.
type ExchangeRates struct {
	*State[ExchangeRate]
	conn
}

func newExchangeRates(c conn) *ExchangeRates {
	return &ExchangeRates{State: &State[ExchangeRate]{}, conn: c}
}

// Active loads the active rate. A cached rate is returned without a
// request unless force is set.
func (s *ExchangeRates) Active(ctx context.Context, force bool) (*ExchangeRate, error) {
	if cur := s.Current(); cur != nil && !force {
		return cur, nil
	}
	env, err := call[ExchangeRate](ctx, s.conn, s.State, apiclient.Get(endpoint.ActiveExchangeRate, nil), "")
	if err != nil {
		return nil, err
	}
	s.setCurrent(&env.Data)
	return &env.Data, nil
}

func (s *ExchangeRates) Create(ctx context.Context, p ExchangeRatePayload) (*ExchangeRate, error) {
	if p.USDIQDRate <= 0 {
		return nil, invalid(s.conn, s.State, "ExchangeRates.Create", "USD to IQD rate must be greater than zero")
	}
	env, err := call[ExchangeRate](ctx, s.conn, s.State, apiclient.Post(endpoint.ExchangeRates, p), "Exchange rate created successfully")
	if err != nil {
		return nil, err
	}
	s.setCurrent(&env.Data)
	return &env.Data, nil
}
