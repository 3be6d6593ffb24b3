package devserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/users"
)

type cashbox struct {
	IQDBalance   float64          `json:"iqd_balance"`
	USDBalance   float64          `json:"usd_balance"`
	IsOpened     bool             `json:"is_opened"`
	Sessions     []cashboxSession `json:"sessions"`
	Transactions []cashboxEntry   `json:"transactions"`
}

type cashboxSession struct {
	OpenedBy string `json:"opened_by"`
	OpenedAt string `json:"opened_at"`
	ClosedAt string `json:"closed_at,omitempty"`
}

type cashboxEntry struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	IQDAmount float64 `json:"iqd_amount"`
	USDAmount float64 `json:"usd_amount"`
	Note      string  `json:"note,omitempty"`
	User      string  `json:"user"`
	CreatedAt string  `json:"created_at"`
}

type cashMovement struct {
	IQDAmount float64 `json:"iqd_amount"`
	USDAmount float64 `json:"usd_amount"`
	Note      string  `json:"note"`
}

// branchCashbox returns the cashbox of a branch, creating an empty one on
// first use. It is nil when the branch does not exist. Callers hold s.mu.
func (s *Server) branchCashbox(r *http.Request) *cashbox {
	branchID, err := strconv.ParseInt(chi.URLParam(r, "branch"), 10, 64)
	if err != nil || s.collection(endpoint.Branches).find(branchID) < 0 {
		return nil
	}
	box, ok := s.cashboxes[branchID]
	if !ok {
		box = &cashbox{Sessions: []cashboxSession{}, Transactions: []cashboxEntry{}}
		s.cashboxes[branchID] = box
	}
	return box
}

func (s *Server) handleCashbox(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	box := s.branchCashbox(r)
	if box == nil {
		writeError(w, http.StatusNotFound, "Branch not found.")
		return
	}
	writeData(w, "", box)
}

// cashboxPassword checks the caller's own password, which guards opening
// and closing.
func (s *Server) cashboxPassword(w http.ResponseWriter, r *http.Request) bool {
	var req struct {
		Password string `json:"password"`
	}
	_ = decodeBody(r, &req)
	fe := &fieldErrors{}
	fe.required("password", req.Password)
	if fe.empty() {
		u, err := s.users.GetByID(principalFrom(r.Context()).user.ID)
		if err != nil || !u.CheckPassword(req.Password) {
			fe.add("password", "The password is incorrect.")
		}
	}
	if !fe.empty() {
		writeValidation(w, fe)
		return false
	}
	return true
}

func (s *Server) handleCashboxOpen(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	box := s.branchCashbox(r)
	if box == nil {
		writeError(w, http.StatusNotFound, "Branch not found.")
		return
	}
	if !s.cashboxPassword(w, r) {
		return
	}
	if box.IsOpened {
		writeRejected(w, "Cashbox is already open")
		return
	}
	box.IsOpened = true
	box.Sessions = append(box.Sessions, cashboxSession{
		OpenedBy: principalFrom(r.Context()).user.Name,
		OpenedAt: time.Now().Format(timeLayout),
	})
	writeData(w, "Cashbox opened successfully", box)
}

func (s *Server) handleCashboxClose(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	box := s.branchCashbox(r)
	if box == nil {
		writeError(w, http.StatusNotFound, "Branch not found.")
		return
	}
	if !s.cashboxPassword(w, r) {
		return
	}
	if !box.IsOpened {
		writeRejected(w, "Cashbox is closed")
		return
	}
	box.IsOpened = false
	if n := len(box.Sessions); n > 0 {
		box.Sessions[n-1].ClosedAt = time.Now().Format(timeLayout)
	}
	writeData(w, "Cashbox closed successfully", box)
}

func (s *Server) handleCashboxDeposit(w http.ResponseWriter, r *http.Request) {
	s.moveCash(w, r, "deposit")
}

func (s *Server) handleCashboxWithdraw(w http.ResponseWriter, r *http.Request) {
	s.moveCash(w, r, "withdraw")
}

func (s *Server) moveCash(w http.ResponseWriter, r *http.Request, kind string) {
	var m cashMovement
	if err := decodeBody(r, &m); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	box := s.branchCashbox(r)
	if box == nil {
		writeError(w, http.StatusNotFound, "Branch not found.")
		return
	}
	if m.IQDAmount < 0 || m.USDAmount < 0 || (m.IQDAmount == 0 && m.USDAmount == 0) {
		fe := &fieldErrors{}
		fe.add("amount", "Enter an IQD or USD amount.")
		writeValidation(w, fe)
		return
	}
	if !box.IsOpened {
		writeRejected(w, "Cashbox is closed")
		return
	}

	message := "Deposit completed successfully"
	if kind == "withdraw" {
		if m.IQDAmount > box.IQDBalance || m.USDAmount > box.USDBalance {
			writeRejected(w, "Insufficient balance")
			return
		}
		box.IQDBalance -= m.IQDAmount
		box.USDBalance -= m.USDAmount
		message = "Withdrawal completed successfully"
	} else {
		box.IQDBalance += m.IQDAmount
		box.USDBalance += m.USDAmount
	}
	s.nextID++
	box.Transactions = append(box.Transactions, cashboxEntry{
		ID:        s.nextID,
		Type:      kind,
		IQDAmount: m.IQDAmount,
		USDAmount: m.USDAmount,
		Note:      m.Note,
		User:      principalFrom(r.Context()).user.Name,
		CreatedAt: time.Now().Format(timeLayout),
	})
	writeData(w, message, box)
}

type exchangeRate struct {
	ID         int64   `json:"id"`
	USDIQDRate float64 `json:"usd_iqd_rate"`
	EURUSDRate float64 `json:"eur_usd_rate"`
	Source     string  `json:"source"`
	Note       string  `json:"note"`
	CreatedBy  string  `json:"created_by"`
	CreatedAt  string  `json:"created_at"`
}

// activeRate is the most recently created rate. Callers hold s.mu.
func (s *Server) activeRate() *exchangeRate {
	if len(s.rates) == 0 {
		return nil
	}
	rate := s.rates[len(s.rates)-1]
	return &rate
}

func (s *Server) handleExchangeRates(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]exchangeRate, len(s.rates))
	for i := range s.rates {
		out[len(s.rates)-1-i] = s.rates[i]
	}
	s.mu.Unlock()
	writeRecords(w, r, out)
}

func (s *Server) handleActiveExchangeRate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rate := s.activeRate()
	s.mu.Unlock()
	if rate == nil {
		writeError(w, http.StatusNotFound, "No exchange rate has been set.")
		return
	}
	writeData(w, "", rate)
}

func (s *Server) handleCreateExchangeRate(w http.ResponseWriter, r *http.Request) {
	var rate exchangeRate
	if err := decodeBody(r, &rate); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if rate.USDIQDRate <= 0 {
		fe := &fieldErrors{}
		fe.add("usd_iqd_rate", "The usd iqd rate must be greater than 0.")
		writeValidation(w, fe)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rate.ID = s.nextID
	rate.CreatedBy = principalFrom(r.Context()).user.Name
	rate.CreatedAt = time.Now().Format(timeLayout)
	s.rates = append(s.rates, rate)
	writeData(w, "Exchange rate created successfully", rate)
}

// handleDashboard reports record counters and per-branch capacity.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	staffCount := map[users.Type]int{}
	all, _ := s.users.List(0, 0)
	branchUsers := map[int64]int{}
	for _, u := range all {
		staffCount[u.Type]++
		if u.BranchID != 0 {
			branchUsers[u.BranchID]++
		}
	}

	warehouses := s.collection(endpoint.Warehouses).records
	branches := map[string]any{}
	for _, b := range s.collection(endpoint.Branches).records {
		id := b.id()
		var capacity float64
		count := 0
		for _, wh := range warehouses {
			if int64(asFloat(wh["branch_id"])) == id {
				count++
				capacity += asFloat(wh["capacity"])
			}
		}
		name, _ := b["name"].(string)
		branches[name] = map[string]any{
			"id":         id,
			"capacity":   capacity,
			"warehouses": count,
			"users":      branchUsers[id],
		}
	}

	rates := map[string]float64{}
	if rate := s.activeRate(); rate != nil {
		rates["usd_iqd"] = rate.USDIQDRate
		rates["eur_usd"] = rate.EURUSDRate
	}

	writeData(w, "", map[string]any{
		"counters": map[string]any{
			"users": map[string]int{
				"admins":      staffCount[users.TypeAdmin],
				"accountants": staffCount[users.TypeAccountant],
				"employees":   staffCount[users.TypeEmployee],
				"customers":   len(s.collection(endpoint.Customers).records),
			},
			"items": map[string]int{
				"items":      len(s.collection(endpoint.Items).records),
				"categories": len(s.collection(endpoint.ItemCategories).records),
			},
			"transactions": map[string]any{
				"purchases": map[string]float64{"cash": 0, "borrow": 0},
				"sells":     map[string]float64{"cash": 0, "borrow": 0},
			},
		},
		"branches":       branches,
		"prices":         map[string]any{"totals": map[string]float64{"purchased": 0, "sold": 0}, "borrows": map[string]float64{"supplier": 0, "customer": 0}},
		"exchange_rates": rates,
		"activity_logs":  map[string]any{},
	})
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	}
	return 0
}
