package inventory

import "encoding/json"

// Ref is the id/name pair the backend embeds for related records.
type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type Branch struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Code       string      `json:"code,omitempty"`
	LocationID int64       `json:"location_id"`
	Phone      string      `json:"phone"`
	IsActive   bool        `json:"is_active"`
	Location   *Ref        `json:"location,omitempty"`
	Warehouses []Warehouse `json:"warehouses,omitempty"`
	CreatedAt  string      `json:"created_at,omitempty"`
	UpdatedAt  string      `json:"updated_at,omitempty"`
}

type BranchPayload struct {
	Name       string `json:"name"`
	Code       string `json:"code,omitempty"`
	LocationID int64  `json:"location_id"`
	Phone      string `json:"phone"`
	IsActive   bool   `json:"is_active"`
}

// BranchStockItem is one row of the branch stock report.
type BranchStockItem struct {
	ItemID            int64   `json:"item_id"`
	Name              string  `json:"name"`
	UnitCost          float64 `json:"unit_cost"`
	SoloUnitPrice     float64 `json:"solo_unit_price"`
	BulkUnitPrice     float64 `json:"bulk_unit_price"`
	PacketUnits       int     `json:"packet_units"`
	PackageUnits      int     `json:"package_units"`
	TotalQuantity     string  `json:"total_quantity"`
	TotalReservations string  `json:"total_reservations"`
}

type Location struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Parent    map[string]any `json:"parent,omitempty"`
	PhoneCode string         `json:"phone_code,omitempty"`
	Timezone  string         `json:"timezone,omitempty"`
	CreatedAt string         `json:"created_at,omitempty"`
}

type Warehouse struct {
	ID        int64           `json:"id"`
	BranchID  int64           `json:"branch_id"`
	Name      string          `json:"name"`
	Code      string          `json:"code"`
	Address   string          `json:"address"`
	Capacity  float64         `json:"capacity"`
	IsActive  bool            `json:"is_active"`
	Items     []WarehouseItem `json:"items,omitempty"`
	CreatedAt string          `json:"created_at,omitempty"`
}

type WarehousePayload struct {
	BranchID int64   `json:"branch_id"`
	Name     string  `json:"name"`
	Code     string  `json:"code"`
	Address  string  `json:"address"`
	Capacity float64 `json:"capacity"`
}

// BranchWarehouses is the branch with its warehouses.
type BranchWarehouses struct {
	Branch     Ref         `json:"branch"`
	Warehouses []Warehouse `json:"warehouses"`
}

// WarehouseItem is an item as stocked in one warehouse.
type WarehouseItem struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	UnitCost      string `json:"unit_cost"`
	SoloUnitPrice string `json:"solo_unit_price"`
	BulkUnitPrice string `json:"bulk_unit_price"`
	Packets       *int   `json:"packets,omitempty"`
	Packages      *int   `json:"packages,omitempty"`
	Pieces        int    `json:"pieces"`
	Quantity      int    `json:"quantity"`
	Reservations  int    `json:"reservations"`
	CreatedAt     string `json:"created_at,omitempty"`
}

type Item struct {
	ID             int64   `json:"id"`
	SKU            string  `json:"sku"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	Category       *Ref    `json:"category,omitempty"`
	ItemCategoryID any     `json:"item_category_id,omitempty"`
	WeightKg       float64 `json:"weight_kg"`
	Volume         float64 `json:"volume"`
	UnitCost       float64 `json:"unit_cost"`
	SoloUnitPrice  float64 `json:"solo_unit_price"`
	BulkUnitPrice  float64 `json:"bulk_unit_price"`
	MinQty         *int    `json:"min_qty,omitempty"`
	Packets        int     `json:"packets"`
	Packages       int     `json:"packages"`
	Pieces         int     `json:"pieces"`
	TotalQuantity  int     `json:"total_quantity"`
	Image          string  `json:"image,omitempty"`
	CanEdit        bool    `json:"can_edit"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// ItemPayload creates or updates an item. Nil fields are sent as null.
type ItemPayload struct {
	SKU            string   `json:"sku"`
	ItemCategoryID *int64   `json:"item_category_id"`
	Name           string   `json:"name"`
	Description    *string  `json:"description"`
	WeightKg       *float64 `json:"weight_kg"`
	Volume         *float64 `json:"volume"`
	PacketUnits    *int     `json:"packet_units"`
	PackageUnits   *int     `json:"package_units"`
	MinQty         *int     `json:"min_qty"`
}

type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type CategoryPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CustomerType string

const (
	CustomerTypeSupplier CustomerType = "supplier"
	CustomerTypeCustomer CustomerType = "customer"
)

type Customer struct {
	ID               int64        `json:"id"`
	FName            string       `json:"fname"`
	SName            string       `json:"sname"`
	Type             CustomerType `json:"type"`
	Location         *Ref         `json:"location,omitempty"`
	Place            string       `json:"place"`
	FPhone           string       `json:"fphone"`
	SPhone           string       `json:"sphone"`
	Note             string       `json:"note,omitempty"`
	SellBorrow       float64      `json:"sell_borrow,omitempty"`
	PurchaseBorrow   float64      `json:"purchase_borrow,omitempty"`
	HasBorrowedPrice bool         `json:"has_borrowed_price,omitempty"`
	CreatedAt        string       `json:"created_at,omitempty"`
}

type CustomerPayload struct {
	FName      string       `json:"fname"`
	SName      string       `json:"sname"`
	Type       CustomerType `json:"type"`
	LocationID int64        `json:"location_id"`
	Place      string       `json:"place"`
	FPhone     string       `json:"fphone"`
	SPhone     string       `json:"sphone"`
	Note       string       `json:"note,omitempty"`
}

// CustomerAccount is the login created for a customer.
type CustomerAccount struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// BulkPayment settles several of a customer's open transactions at once.
type BulkPayment struct {
	Amount     float64 `json:"amount"`
	USDIQDRate float64 `json:"usd_iqd_rate,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// Staff covers admins, accountants and employees.
type Staff struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Gender    string `json:"gender,omitempty"`
	IsMale    *bool  `json:"is_male,omitempty"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	Username  string `json:"username"`
	Image     string `json:"image,omitempty"`
	BranchID  *int64 `json:"branch_id,omitempty"`
	Branch    *Ref   `json:"branch,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type StaffPayload struct {
	Name                 string `json:"name"`
	IsMale               *bool  `json:"is_male,omitempty"`
	Role                 string `json:"role"`
	Phone                string `json:"phone"`
	Username             string `json:"username"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
	BranchID             *int64 `json:"branch_id,omitempty"`
}

type PaymentType string

const (
	PaymentCash   PaymentType = "cash"
	PaymentBorrow PaymentType = "borrow"
)

type TransactionLine struct {
	ItemID        int64   `json:"item_id"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	SoloUnitPrice float64 `json:"solo_unit_price"`
	BulkUnitPrice float64 `json:"bulk_unit_price"`
}

type TransactionPayload struct {
	CustomerID  int64             `json:"customer_id"`
	WarehouseID int64             `json:"warehouse_id"`
	PaymentType PaymentType       `json:"payment_type"`
	Note        string            `json:"note"`
	Details     []TransactionLine `json:"details"`
}

type TransactionItem struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	SoloUnitPrice float64 `json:"solo_unit_price,omitempty"`
	BulkUnitPrice float64 `json:"bulk_unit_price,omitempty"`
}

type Transaction struct {
	ID              int64             `json:"id"`
	Type            string            `json:"type"`
	Customer        *Ref              `json:"customer,omitempty"`
	Warehouse       *Ref              `json:"warehouse,omitempty"`
	PaymentType     PaymentType       `json:"payment_type"`
	Items           []TransactionItem `json:"items,omitempty"`
	DiscountedRate  float64           `json:"discounted_rate,omitempty"`
	TotalPrice      float64           `json:"total_price"`
	DiscountedPrice float64           `json:"discounted_price,omitempty"`
	PaidPrice       float64           `json:"paid_price"`
	UnpaidPrice     float64           `json:"unpaid_price"`
	USDIQDRate      float64           `json:"usd_iqd_rate"`
	Note            string            `json:"note"`
	Status          string            `json:"status,omitempty"`
	IsEditable      bool              `json:"is_editable,omitempty"`
	Refunded        *Refund           `json:"refunded,omitempty"`
	CreatedAt       string            `json:"created_at,omitempty"`
}

type Refund struct {
	ID          int64   `json:"id"`
	RefundPrice float64 `json:"refund_price"`
	USDIQDRate  float64 `json:"usd_iqd_rate"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

type RefundLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type RefundPayload struct {
	TransactionID int64        `json:"transaction_id"`
	RefundPrice   float64      `json:"refund_price"`
	USDIQDRate    float64      `json:"usd_iqd_rate"`
	Reason        string       `json:"reason"`
	Details       []RefundLine `json:"details"`
}

// Payment pays a supplier or receives from a customer against a transaction.
type Payment struct {
	Amount     float64 `json:"amount"`
	USDIQDRate float64 `json:"usd_iqd_rate,omitempty"`
	Note       string  `json:"note,omitempty"`
}

type OfferStatus string

const (
	OfferDraft    OfferStatus = "draft"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferDraft, OfferAccepted, OfferRejected:
		return true
	}
	return false
}

type OfferItem struct {
	ID          int64   `json:"id"`
	ItemID      int64   `json:"item_id,omitempty"`
	ItemName    string  `json:"item_name"`
	ItemSKU     string  `json:"item_sku"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type Offer struct {
	ID              int64       `json:"id"`
	Title           string      `json:"title"`
	ValidUntil      string      `json:"valid_until"`
	Note            string      `json:"note"`
	DiscountedRate  float64     `json:"discounted_rate"`
	DiscountedPrice float64     `json:"discounted_price"`
	TotalPrice      float64     `json:"total_price"`
	Status          OfferStatus `json:"status"`
	Reference       string      `json:"reference"`
	Items           []OfferItem `json:"items"`
	Customer        *Ref        `json:"customer,omitempty"`
	CreatedBy       *Ref        `json:"created_by,omitempty"`
	CreatedAt       string      `json:"created_at,omitempty"`
}

type OfferLine struct {
	ItemID      int64   `json:"item_id"`
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type OfferPayload struct {
	CustomerID     int64       `json:"customer_id"`
	Title          string      `json:"title"`
	ValidUntil     string      `json:"valid_until"`
	Note           string      `json:"note"`
	DiscountedRate float64     `json:"discounted_rate"`
	Details        []OfferLine `json:"details"`
}

type ExpenseCategory struct {
	ID          int64  `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

type Expense struct {
	ID              int64   `json:"id,omitempty"`
	CategoryID      int64   `json:"category_id"`
	Category        *Ref    `json:"category,omitempty"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	ExpensedUSD     float64 `json:"expensed_usd,omitempty"`
	ExpensedIQD     float64 `json:"expensed_iqd,omitempty"`
	IQDReturnAmount float64 `json:"iqd_return_amount,omitempty"`
	USDReturnAmount float64 `json:"usd_return_amount,omitempty"`
	Payee           string  `json:"payee"`
	PaidAt          string  `json:"paid_at"`
	PaymentMethod   string  `json:"payment_method"`
	ReferenceNumber string  `json:"reference_number,omitempty"`
	CreatedAt       string  `json:"created_at,omitempty"`
}

type Cashbox struct {
	IQDBalance   float64         `json:"iqd_balance"`
	USDBalance   float64         `json:"usd_balance"`
	IsOpened     bool            `json:"is_opened"`
	Sessions     json.RawMessage `json:"sessions,omitempty"`
	Transactions json.RawMessage `json:"transactions,omitempty"`
}

// CashMovement is a deposit or withdrawal. At least one amount is required.
type CashMovement struct {
	IQDAmount *float64 `json:"iqd_amount,omitempty"`
	USDAmount *float64 `json:"usd_amount,omitempty"`
	Note      string   `json:"note,omitempty"`
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferApproved  TransferStatus = "approved"
	TransferCompleted TransferStatus = "completed"
	TransferRejected  TransferStatus = "rejected"
)

type TransferLine struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

type TransferPayload struct {
	FromWarehouseID int64          `json:"from_warehouse_id"`
	ToWarehouseID   int64          `json:"to_warehouse_id"`
	Note            string         `json:"note"`
	Details         []TransferLine `json:"details"`
}

type Transfer struct {
	ID              int64          `json:"id"`
	FromWarehouseID int64          `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   int64          `json:"to_warehouse_id,omitempty"`
	Note            string         `json:"note"`
	Status          TransferStatus `json:"status"`
	Source          *Ref           `json:"source,omitempty"`
	Target          *Ref           `json:"target,omitempty"`
	Details         []TransferLine `json:"details,omitempty"`
	CreatedAt       string         `json:"created_at,omitempty"`
}

type ExchangeRatePayload struct {
	USDIQDRate float64 `json:"usd_iqd_rate"`
	EURUSDRate float64 `json:"eur_usd_rate"`
	Source     string  `json:"source"`
	Note       string  `json:"note"`
}

type ExchangeRate struct {
	ID         int64   `json:"id"`
	USDIQDRate float64 `json:"usd_iqd_rate"`
	EURUSDRate float64 `json:"eur_usd_rate"`
	Source     string  `json:"source"`
	Note       string  `json:"note"`
	CreatedBy  string  `json:"created_by"`
	CreatedAt  string  `json:"created_at,omitempty"`
}

type ActivityLog struct {
	ID        FlexID          `json:"id"`
	User      *Ref            `json:"user,omitempty"`
	Title     string          `json:"title"`
	Entity    string          `json:"entity"`
	EntityID  FlexID          `json:"entity_id"`
	OldData   json.RawMessage `json:"old_data,omitempty"`
	NewData   json.RawMessage `json:"new_data,omitempty"`
	IPAddress string          `json:"ip_address"`
	Platform  string          `json:"platform"`
	Browser   string          `json:"browser"`
	CreatedAt string          `json:"created_at"`
}

// ReportRow is one row of a report table. Report columns differ per report
// and are kept as decoded JSON.
type ReportRow map[string]any

// FlexID is an id the backend sends either as a number or a string.
type FlexID string

func (id *FlexID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = FlexID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = FlexID(s)
	return nil
}

// Device is a session token issued to one of the user's devices.
type Device struct {
	ID              FlexID `json:"id"`
	Name            string `json:"name"`
	IPAddress       string `json:"ip_address,omitempty"`
	Platform        string `json:"platform,omitempty"`
	Browser         string `json:"browser,omitempty"`
	Device          string `json:"device,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	LastUsedAt      string `json:"last_used_at,omitempty"`
	LastUsedAtHuman string `json:"last_used_at_human,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	Current         bool   `json:"current,omitempty"`
}

type ProfilePayload struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Username string `json:"username"`
}

type PasswordChange struct {
	CurrentPassword      string `json:"current_password"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type SystemDetails map[string]any

type Dashboard struct {
	Counters      DashboardCounters          `json:"counters"`
	Branches      map[string]DashboardBranch `json:"branches"`
	Prices        PriceSummary               `json:"prices"`
	ExchangeRates map[string]float64         `json:"exchange_rates"`
	ActivityLogs  map[string]DashboardLog    `json:"activity_logs"`
}

type DashboardCounters struct {
	Users struct {
		Admins      int `json:"admins"`
		Accountants int `json:"accountants"`
		Employees   int `json:"employees"`
		Customers   int `json:"customers"`
	} `json:"users"`
	Items        map[string]int `json:"items"`
	Transactions struct {
		Purchases CashBorrow `json:"purchases"`
		Sells     CashBorrow `json:"sells"`
	} `json:"transactions"`
}

type CashBorrow struct {
	Cash   float64 `json:"cash"`
	Borrow float64 `json:"borrow"`
}

type DashboardBranch struct {
	ID         int64   `json:"id"`
	Capacity   float64 `json:"capacity"`
	Warehouses int     `json:"warehouses"`
	Users      int     `json:"users"`
}

type PriceSummary struct {
	Totals struct {
		Purchased float64 `json:"purchased"`
		Sold      float64 `json:"sold"`
	} `json:"totals"`
	Borrows struct {
		Supplier float64 `json:"supplier"`
		Customer float64 `json:"customer"`
	} `json:"borrows"`
}

type DashboardLog struct {
	Title     string `json:"title"`
	User      string `json:"user"`
	CreatedAt struct {
		Datetime string `json:"datetime"`
		Humans   string `json:"humans"`
	} `json:"created_at"`
}
