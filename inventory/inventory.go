package inventory

import (
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/notify"
)

// Stores bundles every domain store over one API pipeline.
type Stores struct {
	Branches          *Branches
	Locations         *Locations
	ItemCategories    *ItemCategories
	Warehouses        *Warehouses
	Items             *Items
	Customers         *Customers
	Employees         *StaffStore
	Accountants       *StaffStore
	Admins            *StaffStore
	Transactions      *Transactions
	Offers            *Offers
	Transfers         *Transfers
	Cashbox           *CashboxStore
	ExpenseCategories *ExpenseCategories
	Expenses          *Expenses
	ExchangeRates     *ExchangeRates
	Reports           *Reports
	Dashboard         *DashboardStore
	ActivityLogs      *ActivityLogs
	Profile           *Profile
}

// New builds the stores. sink may be nil; when set it receives the profile
// after every profile load or change.
func New(api apiclient.Doer, n notify.Notifier, sink UserSink) *Stores {
	if n == nil {
		n = notify.Nop
	}
	c := conn{api: api, notifier: n}
	return &Stores{
		Branches:          newBranches(c),
		Locations:         newLocations(c),
		ItemCategories:    newItemCategories(c),
		Warehouses:        newWarehouses(c),
		Items:             newItems(c),
		Customers:         newCustomers(c),
		Employees:         newStaff(c, endpoint.Employees, "Employee", "branch"),
		Accountants:       newStaff(c, endpoint.Accountants, "Accountant", "branch"),
		Admins:            newStaff(c, endpoint.Admins, "Admin"),
		Transactions:      newTransactions(c),
		Offers:            newOffers(c),
		Transfers:         newTransfers(c),
		Cashbox:           newCashbox(c),
		ExpenseCategories: newExpenseCategories(c),
		Expenses:          newExpenses(c),
		ExchangeRates:     newExchangeRates(c),
		Reports:           newReports(c),
		Dashboard:         newDashboard(c),
		ActivityLogs:      newActivityLogs(c),
		Profile:           newProfile(c, sink),
	}
}

// Reset drops every loaded record, for use when the user changes.
func (s *Stores) Reset() {
	s.Branches.reset()
	s.Branches.report.reset()
	s.Locations.reset()
	s.ItemCategories.reset()
	s.Warehouses.reset()
	s.Warehouses.stock.reset()
	s.Warehouses.branch.reset()
	s.Items.reset()
	s.Customers.reset()
	s.Employees.reset()
	s.Accountants.reset()
	s.Admins.reset()
	s.Transactions.reset()
	s.Offers.reset()
	s.Transfers.reset()
	s.Transfers.incoming.reset()
	s.Cashbox.reset()
	s.ExpenseCategories.reset()
	s.Expenses.reset()
	s.ExchangeRates.reset()
	s.Reports.reset()
	s.Dashboard.reset()
	s.ActivityLogs.reset()
	s.Profile.Reset()
}

// ResetOnLogout clears the stores whenever the session store drops its user.
func (s *Stores) ResetOnLogout(a *auth.Store) {
	a.OnUserData(func(u *auth.UserData) {
		if u == nil {
			log.Debug().Msg("user cleared, resetting inventory stores")
			s.Reset()
		}
	})
}
