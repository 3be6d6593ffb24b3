package devserver

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/users"
)

const (
	defaultPerPage = 10
	timeLayout     = "2006-01-02 15:04:05"
)

// record is one row of a collection as the client sent it.
type record map[string]any

func (r record) id() int64 {
	switch v := r["id"].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

// collection is a generic CRUD resource. Staff collections mirror their
// records into the user repository so the accounts can log in.
type collection struct {
	path     string
	noun     string
	required []string
	unique   string
	toggle   string
	// togglePath flips toggle, relative to path.
	togglePath string
	staff      users.Type
	records    []record
}

func newCollections() map[string]*collection {
	all := []*collection{
		{path: endpoint.Locations, noun: "Location", required: []string{"name", "type"}},
		{path: endpoint.Branches, noun: "Branch", required: []string{"name", "location_id", "phone"}, toggle: "is_active", togglePath: "/toggle-active/{id}"},
		{path: endpoint.Warehouses, noun: "Warehouse", required: []string{"branch_id", "name", "code"}, unique: "code", toggle: "is_active", togglePath: "/toggle-active/{id}"},
		{path: endpoint.ItemCategories, noun: "Category", required: []string{"name"}, toggle: "is_active", togglePath: "/toggle-status/{id}"},
		{path: endpoint.Items, noun: "Item", required: []string{"sku", "name"}, unique: "sku"},
		{path: endpoint.Customers, noun: "Customer", required: []string{"fname", "type", "fphone"}},
		{path: endpoint.Offers, noun: "Offer", required: []string{"customer_id", "title", "valid_until"}},
		{path: endpoint.ExpenseCategory, noun: "Expense category", required: []string{"name"}},
		{path: endpoint.Expenses, noun: "Expense", required: []string{"category_id", "title", "payee", "paid_at", "payment_method"}},
		{path: endpoint.Admins, noun: "Admin", required: []string{"name", "username"}, unique: "username", staff: users.TypeAdmin},
		{path: endpoint.Accountants, noun: "Accountant", required: []string{"name", "username"}, unique: "username", staff: users.TypeAccountant},
		{path: endpoint.Employees, noun: "Employee", required: []string{"name", "username", "branch_id"}, unique: "username", staff: users.TypeEmployee},
	}
	out := make(map[string]*collection, len(all))
	for _, c := range all {
		out[c.path] = c
	}
	return out
}

func (s *Server) collection(path string) *collection {
	return s.collections[path]
}

func (s *Server) routeCollection(r chi.Router, c *collection) {
	r.Route(c.path, func(r chi.Router) {
		r.Get("/", s.listRecords(c))
		r.Post("/", s.createRecord(c))
		r.Get("/{id}", s.getRecord(c))
		r.Put("/{id}", s.updateRecord(c))
		r.Delete("/{id}", s.deleteRecord(c))
		if c.togglePath != "" {
			r.Put(c.togglePath, s.toggleRecord(c))
		}
		if c.path == endpoint.Customers {
			r.Post("/{id}/create-account", s.createCustomerAccount)
		}
	})
}

func (s *Server) listRecords(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		matched := filterRecords(c.records, r)
		s.mu.Unlock()
		writeRecords(w, r, matched)
	}
}

func filterRecords(records []record, r *http.Request) []record {
	q := r.URL.Query()
	search := strings.ToLower(strings.TrimSpace(q.Get("query")))

	out := make([]record, 0, len(records))
	for _, rec := range records {
		if search != "" && !rec.matches(search) {
			continue
		}
		if !rec.hasFields(q) {
			continue
		}
		out = append(out, rec.clone())
	}
	return out
}

var reservedParams = map[string]bool{
	"page": true, "per_page": true, "paginate": true, "query": true, "relations": true,
}

func (r record) matches(search string) bool {
	for _, v := range r {
		if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), search) {
			return true
		}
	}
	return false
}

// hasFields applies every non-reserved query parameter as an equality
// filter.
// filterAliases maps query filters onto the stored field they compare.
var filterAliases = map[string]string{"category_id": "item_category_id"}

func (r record) hasFields(q map[string][]string) bool {
	for k, vals := range q {
		if reservedParams[k] || len(vals) == 0 || vals[0] == "" {
			continue
		}
		if field, ok := filterAliases[k]; ok {
			k = field
		}
		if fmt.Sprint(r[k]) != vals[0] {
			return false
		}
	}
	return true
}

func (r record) clone() record {
	out := make(record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// writeRecords answers a list request. Unless paginate=true is sent the
// whole list is returned without pagination.
func writeRecords[T any](w http.ResponseWriter, r *http.Request, all []T) {
	q := r.URL.Query()
	if q.Get("paginate") != "true" {
		writePage(w, all, nil)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	if perPage < 1 {
		perPage = defaultPerPage
	}

	total := len(all)
	p := &pagination{
		CurrentPage: page,
		LastPage:    int(math.Max(1, math.Ceil(float64(total)/float64(perPage)))),
		PerPage:     perPage,
		Total:       total,
	}
	start := (page - 1) * perPage
	if start >= total {
		writePage(w, []T{}, p)
		return
	}
	end := min(start+perPage, total)
	p.From, p.To = start+1, end
	writePage(w, all[start:end], p)
}

func (s *Server) getRecord(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := c.find(urlID(r))
		if i < 0 {
			writeError(w, http.StatusNotFound, c.noun+" not found.")
			return
		}
		writeData(w, "", c.records[i].clone())
	}
}

func (s *Server) createRecord(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec record
		if err := decodeBody(r, &rec); err != nil || rec == nil {
			rec = record{}
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		fe := c.validate(rec, 0)
		if c.staff != "" {
			s.validateStaff(rec, 0, true, fe)
		}
		if !fe.empty() {
			writeValidation(w, fe)
			return
		}

		now := time.Now().Format(timeLayout)
		rec["created_at"], rec["updated_at"] = now, now
		if c.toggle != "" {
			if _, ok := rec[c.toggle]; !ok {
				rec[c.toggle] = true
			}
		}
		if c.staff != "" {
			if err := s.saveStaff(c, rec, 0); err != nil {
				log.Err(err).Str("collection", c.path).Msg("save staff account")
				writeError(w, http.StatusInternalServerError, "Server error.")
				return
			}
		} else {
			s.nextID++
			rec["id"] = s.nextID
		}
		c.records = append(c.records, rec)
		writeData(w, c.noun+" created successfully", rec.clone())
	}
}

func (s *Server) updateRecord(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var changes record
		if err := decodeBody(r, &changes); err != nil || changes == nil {
			changes = record{}
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		id := urlID(r)
		i := c.find(id)
		if i < 0 {
			writeError(w, http.StatusNotFound, c.noun+" not found.")
			return
		}
		merged := c.records[i].clone()
		for k, v := range changes {
			merged[k] = v
		}
		merged["id"] = id

		fe := c.validate(merged, id)
		if c.staff != "" {
			s.validateStaff(merged, id, false, fe)
		}
		if !fe.empty() {
			writeValidation(w, fe)
			return
		}
		if c.staff != "" {
			if err := s.saveStaff(c, merged, id); err != nil {
				log.Err(err).Str("collection", c.path).Msg("save staff account")
				writeError(w, http.StatusInternalServerError, "Server error.")
				return
			}
		}
		merged["updated_at"] = time.Now().Format(timeLayout)
		c.records[i] = merged
		writeData(w, c.noun+" updated successfully", merged.clone())
	}
}

func (s *Server) deleteRecord(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		id := urlID(r)
		i := c.find(id)
		if i < 0 {
			writeError(w, http.StatusNotFound, c.noun+" not found.")
			return
		}
		if c.staff != "" {
			s.dropAccount(id)
		}
		c.records = append(c.records[:i], c.records[i+1:]...)
		writeData(w, c.noun+" deleted successfully", nil)
	}
}

// toggleRecord flips the collection's toggle field.
func (s *Server) toggleRecord(c *collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		i := c.find(urlID(r))
		if i < 0 {
			writeError(w, http.StatusNotFound, c.noun+" not found.")
			return
		}
		on, _ := c.records[i][c.toggle].(bool)
		c.records[i][c.toggle] = !on
		writeData(w, c.noun+" status changed successfully", c.records[i].clone())
	}
}

func (c *collection) find(id int64) int {
	for i, rec := range c.records {
		if rec.id() == id {
			return i
		}
	}
	return -1
}

func (c *collection) validate(rec record, id int64) *fieldErrors {
	fe := &fieldErrors{}
	for _, field := range c.required {
		fe.required(field, rec[field])
	}
	if c.unique == "" {
		return fe
	}
	value := strings.ToLower(fmt.Sprint(rec[c.unique]))
	for _, other := range c.records {
		if other.id() != id && strings.ToLower(fmt.Sprint(other[c.unique])) == value {
			fe.add(c.unique, "The "+c.unique+" has already been taken.")
			break
		}
	}
	return fe
}

func (s *Server) validateStaff(rec record, id int64, creating bool, fe *fieldErrors) {
	password, _ := rec["password"].(string)
	if creating || password != "" {
		fe.required("password", password)
		if password != "" {
			if err := users.ValidatePasswordStrength(password); err != nil {
				fe.add("password", err.Error())
			} else if confirm, _ := rec["password_confirmation"].(string); confirm != password {
				fe.add("password", "The password field confirmation does not match.")
			}
		}
	}
	username, _ := rec["username"].(string)
	if existing, err := s.users.GetByUsername(username); err == nil && existing.ID != id {
		fe.add("username", "The username has already been taken.")
	}
}

// saveStaff writes the account behind a staff record. New accounts take
// their id from the user repository.
func (s *Server) saveStaff(c *collection, rec record, id int64) error {
	u := &users.User{ID: id, Type: c.staff}
	if id != 0 {
		existing, err := s.users.GetByID(id)
		if err != nil {
			return err
		}
		u = existing
	}
	u.Name, _ = rec["name"].(string)
	u.Username, _ = rec["username"].(string)
	u.Phone, _ = rec["phone"].(string)
	u.Role, _ = rec["role"].(string)
	if branch, ok := rec["branch_id"].(float64); ok {
		u.BranchID = int64(branch)
	}
	if male, ok := rec["is_male"].(bool); ok {
		u.Gender = "female"
		if male {
			u.Gender = "male"
		}
		rec["gender"] = u.Gender
	}
	if password, _ := rec["password"].(string); password != "" {
		if err := u.SetPassword(password); err != nil {
			return err
		}
	}
	delete(rec, "password")
	delete(rec, "password_confirmation")

	if err := s.users.Upsert(u); err != nil {
		return err
	}
	rec["id"] = u.ID
	return nil
}

// dropAccount deletes a user and ends every session it holds.
func (s *Server) dropAccount(userID int64) {
	s.revokeUserSessions(userID, "")
	if err := s.users.Delete(userID); err != nil {
		log.Debug().Err(err).Int64("user", userID).Msg("delete account")
	}
}

// createCustomerAccount gives a customer a login and answers with the
// generated credentials.
func (s *Server) createCustomerAccount(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(endpoint.Customers)
	i := c.find(urlID(r))
	if i < 0 {
		writeError(w, http.StatusNotFound, c.noun+" not found.")
		return
	}
	rec := c.records[i]
	if _, ok := rec["user_id"]; ok {
		writeRejected(w, "Customer already has an account")
		return
	}

	fname, _ := rec["fname"].(string)
	u := &users.User{
		Name:     strings.TrimSpace(fmt.Sprint(rec["fname"], " ", rec["sname"])),
		Username: fmt.Sprintf("%s%d", strings.ToLower(strings.ReplaceAll(fname, " ", "")), rec.id()),
		Type:     users.TypeCustomer,
	}
	password := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	if err := u.SetPassword(password); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if err := s.users.Upsert(u); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	rec["user_id"] = u.ID
	writeData(w, "Customer account created successfully", map[string]string{
		"username": u.Username,
		"password": password,
	})
}

func urlID(r *http.Request) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
