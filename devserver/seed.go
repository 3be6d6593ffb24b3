package devserver

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/users"
)

// Seeded accounts. Passwords are for local use only.
const (
	AdminUsername      = "admin"
	AdminPassword      = "admin1234"
	EmployeeUsername   = "employee"
	EmployeePassword   = "employee1234"
	AccountantUsername = "accountant"
	AccountantPassword = "accountant1234"
)

var staffPaths = map[users.Type]string{
	users.TypeAdmin:      endpoint.Admins,
	users.TypeAccountant: endpoint.Accountants,
	users.TypeEmployee:   endpoint.Employees,
}

// AddUser stores an account with the given password. Staff accounts are
// listed in their staff collection too.
func (s *Server) AddUser(u *users.User, password string) error {
	if !u.Type.Valid() {
		return errors.Errorf("[Server.AddUser] unknown user type %q", u.Type)
	}
	if err := u.SetPassword(password); err != nil {
		return errors.Wrap(err, "[Server.AddUser] hash password")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.users.Upsert(u); err != nil {
		return errors.Wrap(err, "[Server.AddUser] store user")
	}
	if path, ok := staffPaths[u.Type]; ok {
		now := time.Now().Format(timeLayout)
		rec := record{
			"id":         u.ID,
			"name":       u.Name,
			"username":   u.Username,
			"role":       u.Role,
			"phone":      u.Phone,
			"gender":     u.Gender,
			"created_at": now,
			"updated_at": now,
		}
		if u.BranchID != 0 {
			rec["branch_id"] = u.BranchID
		}
		c := s.collection(path)
		if i := c.find(u.ID); i >= 0 {
			c.records[i] = rec
		} else {
			c.records = append(c.records, rec)
		}
	}
	return nil
}

// UserID returns the id of a stored account, zero when unknown.
func (s *Server) UserID(username string) int64 {
	u, err := s.accountByUsername(username)
	if err != nil {
		return 0
	}
	return u.ID
}

// initialise loads the fixtures. Without seeding only the admin account
// exists.
func (s *Server) initialise() error {
	admin := &users.User{Name: "System Admin", Username: AdminUsername, Type: users.TypeAdmin, Role: "Owner", Gender: "male"}
	if err := s.AddUser(admin, AdminPassword); err != nil {
		return err
	}
	if !s.seed {
		return nil
	}

	s.mu.Lock()
	erbil := s.insert(endpoint.Locations, record{"name": "Erbil", "type": "city", "phone_code": "+964", "timezone": "Asia/Baghdad"})
	duhok := s.insert(endpoint.Locations, record{"name": "Duhok", "type": "city", "phone_code": "+964", "timezone": "Asia/Baghdad"})
	erbilBranch := s.insert(endpoint.Branches, record{"name": "Erbil", "code": "EBL", "location_id": erbil, "phone": "07501234567", "is_active": true})
	duhokBranch := s.insert(endpoint.Branches, record{"name": "Duhok", "code": "DHK", "location_id": duhok, "phone": "07507654321", "is_active": true})
	s.insert(endpoint.Warehouses, record{"branch_id": erbilBranch, "name": "Erbil Central", "code": "EBL-01", "address": "100m Road", "capacity": float64(5000), "is_active": true})
	s.insert(endpoint.Warehouses, record{"branch_id": duhokBranch, "name": "Duhok North", "code": "DHK-01", "address": "Zakho Road", "capacity": float64(2500), "is_active": true})
	food := s.insert(endpoint.ItemCategories, record{"name": "Food", "description": "Dry food", "is_active": true})
	s.insert(endpoint.Items, record{"sku": "RICE-25", "name": "Rice 25kg", "item_category_id": food, "unit_cost": float64(18), "solo_unit_price": float64(22), "bulk_unit_price": float64(20), "packet_units": float64(1), "package_units": float64(40)})
	s.insert(endpoint.Items, record{"sku": "OIL-5", "name": "Sunflower Oil 5L", "item_category_id": food, "unit_cost": float64(6), "solo_unit_price": float64(8), "bulk_unit_price": float64(7), "packet_units": float64(4), "package_units": float64(24)})
	s.insert(endpoint.Customers, record{"fname": "Karwan", "sname": "Aziz", "type": "customer", "location_id": erbil, "place": "Ankawa", "fphone": "07701112233"})
	s.insert(endpoint.Customers, record{"fname": "Zagros", "sname": "Trading", "type": "supplier", "location_id": erbil, "place": "Industrial Zone", "fphone": "07704445566"})
	s.insert(endpoint.ExpenseCategory, record{"name": "Utilities", "description": "Power and water"})
	s.nextID++
	s.rates = append(s.rates, exchangeRate{
		ID: s.nextID, USDIQDRate: 1310, EURUSDRate: 1.08, Source: "market",
		CreatedBy: admin.Name, CreatedAt: time.Now().Format(timeLayout),
	})
	s.pushNotificationLocked(admin.ID, "Low stock", "Sunflower Oil 5L is below its minimum quantity.", "/items")
	s.pushNotificationLocked(admin.ID, "Transfer request", "Duhok North requested 20 packages of Rice 25kg.", "/warehouse-transfers")
	s.mu.Unlock()

	fixtures := []struct {
		user     *users.User
		password string
	}{
		{&users.User{Name: "Shilan Omar", Username: EmployeeUsername, Type: users.TypeEmployee, Role: "Storekeeper", Gender: "female", BranchID: erbilBranch}, EmployeePassword},
		{&users.User{Name: "Rebin Salar", Username: AccountantUsername, Type: users.TypeAccountant, Role: "Accountant", Gender: "male"}, AccountantPassword},
	}
	for _, f := range fixtures {
		if err := s.AddUser(f.user, f.password); err != nil {
			return err
		}
	}
	log.Debug().Int("users", len(fixtures)+1).Msg("fixtures loaded")
	return nil
}

// insert adds a record and returns its id. Callers hold s.mu.
func (s *Server) insert(path string, rec record) int64 {
	s.nextID++
	rec["id"] = s.nextID
	now := time.Now().Format(timeLayout)
	rec["created_at"], rec["updated_at"] = now, now
	c := s.collection(path)
	c.records = append(c.records, rec)
	return s.nextID
}

func (s *Server) handleDevMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		On bool `json:"on"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	s.SetMaintenance(req.On)
	writeData(w, "", map[string]bool{"maintenance": req.On})
}

func (s *Server) handleDevExpireTokens(w http.ResponseWriter, _ *http.Request) {
	s.ExpireAccessTokens()
	writeData(w, "", nil)
}

func (s *Server) handleDevNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Title    string `json:"title"`
		Message  string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if req.Username == "" {
		req.Username = AdminUsername
	}
	userID := s.UserID(req.Username)
	if userID == 0 {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}
	fe := &fieldErrors{}
	fe.required("title", req.Title)
	if !fe.empty() {
		writeValidation(w, fe)
		return
	}
	writeData(w, "", map[string]int64{"id": s.PushNotification(userID, req.Title, req.Message)})
}
