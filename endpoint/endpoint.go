// Package endpoint lists the backend routes, relative to the API base URL.
package endpoint

import "fmt"

// TransactionType selects the purchase or sell ledger.
type TransactionType string

const (
	Purchase TransactionType = "purchase"
	Sell     TransactionType = "sell"
)

// Auth and account
const (
	Login          = "/login"
	Logout         = "/logout"
	Refresh        = "/refresh"
	LogoutAll      = "/logout-all"
	Me             = "/me"
	MeRelations    = "stickyNotes,branch"
	UpdateProfile  = "/update-profile"
	ChangePassword = "/change-password"
	ProfileImage   = "/change-profile-image"
	Devices        = "/authenticated-devices"
	RevokeToken    = "/revoke-token"
	SystemDetails  = "/details"
	Dashboard      = "/dashboard"
)

// Notifications
const (
	UnreadNotifications  = "/notifications/get-unreads"
	MarkAllNotifications = "/notifications/unreads/mark-all-as-read"
)

func MarkNotificationRead(id int64) string {
	return fmt.Sprintf("/notifications/%d/mark-as-read", id)
}

const StickyNotes = "/sticky-notes"

func StickyNote(id int64) string { return fmt.Sprintf("/sticky-notes/%d", id) }

// Exchange rates and logs
const (
	ExchangeRates      = "/exchange-rates"
	ActiveExchangeRate = "/exchange-rates/active-rate"
	ActivityLogs       = "/activity-logs"
)

func ActivityLog(id int64) string { return fmt.Sprintf("/activity-logs/%d", id) }

// Collection roots. Item routes are Collection + "/" + id.
const (
	Admins          = "/admins"
	Accountants     = "/accountants"
	Employees       = "/employees"
	Customers       = "/customers"
	Locations       = "/locations"
	Items           = "/items"
	ItemCategories  = "/item-categories"
	Branches        = "/branches"
	Warehouses      = "/warehouses"
	Offers          = "/offers"
	ExpenseCategory = "/expenses/categories"
	Expenses        = "/expenses/expenses"
)

// Resource joins a collection root and an id.
func Resource(collection string, id int64) string {
	return fmt.Sprintf("%s/%d", collection, id)
}

func CustomerAccount(id int64) string { return fmt.Sprintf("/customers/%d/create-account", id) }

func CustomerBorrowing(id int64) string { return fmt.Sprintf("/customers/%d/borrowing", id) }

func CustomerBulkPayment(id int64) string {
	return fmt.Sprintf("/transactions/%d/bulk-payment/receive/customer", id)
}

func BranchToggleActive(id int64) string { return fmt.Sprintf("/branches/toggle-active/%d", id) }

func BranchReport(id int64) string { return fmt.Sprintf("/branches/warehouses/items/%d", id) }

func CategoryToggleStatus(id int64) string {
	return fmt.Sprintf("/item-categories/toggle-status/%d", id)
}

// Warehouses
const WarehouseListRelations = "items"

func WarehouseItemsOverview(id int64) string { return fmt.Sprintf("/warehouses/%d/get/items", id) }

func WarehouseToggleActive(id int64) string { return fmt.Sprintf("/warehouses/toggle-active/%d", id) }

func BranchWarehouses(branchID int64) string { return fmt.Sprintf("/warehouses/%d/index", branchID) }

func WarehouseItems(warehouseID int64) string { return fmt.Sprintf("/warehouses/%d/items", warehouseID) }

func WarehouseItem(warehouseID, itemID int64) string {
	return fmt.Sprintf("/warehouses/%d/items/%d", warehouseID, itemID)
}

// Item transactions
const TransactionRefund = "/transactions/refund/items"

func CreateTransaction(t TransactionType) string { return fmt.Sprintf("/transactions/items/%s", t) }

func Transactions(t TransactionType) string { return fmt.Sprintf("/transactions/%s/index", t) }

func Transaction(id int64) string { return fmt.Sprintf("/transactions/%d", id) }

func TransactionFreeding(id int64) string { return fmt.Sprintf("/transactions/freeding/%d", id) }

func PaySupplier(id int64) string {
	return fmt.Sprintf("/transactions/%d/payment/pay/supplier/normal", id)
}

func ReceiveCustomer(id int64) string {
	return fmt.Sprintf("/transactions/%d/payment/receive/customer/normal", id)
}

// Reports
const (
	ReportBranches       = "/reports/get/branches"
	ReportWarehouses     = "/reports/get/warehouses"
	ReportItemCategories = "/reports/get/item-categories"
	ReportPurchases      = "/reports/get/purchases"
	ReportSells          = "/reports/get/sells"
)

func OfferStatus(id int64, status string) string { return fmt.Sprintf("/offers/%d/%s", id, status) }

// Warehouse item transfers
const (
	TransferRequests = "/warehouse/items/transfer/requests"
	TransferIncoming = "/warehouse/items/transfer/incoming-transfers"
	TransferRequest  = "/warehouse/items/transfer/request"
	TransferDirect   = "/warehouse/items/transfer/transfer"
)

func TransferApprove(id int64) string { return fmt.Sprintf("/warehouse/items/transfer/%d/approve", id) }

func TransferComplete(id int64) string {
	return fmt.Sprintf("/warehouse/items/transfer/%d/complete", id)
}

func TransferReject(id int64) string { return fmt.Sprintf("/warehouse/items/transfer/%d/reject", id) }

// Cashbox
func Cashbox(branchID int64) string         { return fmt.Sprintf("/cashbox/%d", branchID) }
func CashboxOpen(branchID int64) string     { return fmt.Sprintf("/cashbox/%d/open", branchID) }
func CashboxClose(branchID int64) string    { return fmt.Sprintf("/cashbox/%d/close", branchID) }
func CashboxDeposit(branchID int64) string  { return fmt.Sprintf("/cashbox/%d/deposit", branchID) }
func CashboxWithdraw(branchID int64) string { return fmt.Sprintf("/cashbox/%d/withdraw", branchID) }
