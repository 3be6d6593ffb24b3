package devserver

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/devserver/loginsession"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
	"github.com/bazrganidrwst/warehouse-client/users"
)

const maxImageSize = 2 << 20

type loginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Remember  any    `json:"remember"`
	Recaptcha string `json:"g-recaptcha-response"`
}

type tokenPair struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	fe := &fieldErrors{}
	fe.required("username", req.Username)
	fe.required("password", req.Password)
	if !fe.empty() {
		writeValidation(w, fe)
		return
	}

	user, err := s.accountByUsername(req.Username)
	if err != nil || !user.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.Blocked {
		writeError(w, http.StatusForbidden, "Your account has been blocked.")
		return
	}

	now := time.Now()
	session := loginsession.Session{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		IPAddress:  clientIP(r),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	session.Platform, session.Browser, session.DeviceType = describeAgent(r.UserAgent())
	session.Name = session.Browser + " on " + session.Platform
	if err := s.sessions.Upsert(session); err != nil {
		log.Err(err).Msg("store login session")
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	pair, err := s.issueTokens(user.ID, session.ID)
	if err != nil {
		log.Err(err).Int64("user", user.ID).Msg("issue tokens")
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	if err := s.users.SetLoggedIn(user.ID, now); err != nil {
		log.Debug().Err(err).Int64("user", user.ID).Msg("record last login")
	}

	log.Info().Str("username", user.Username).Str("session", session.ID).Msg("user logged in")
	writeData(w, "Login successful", struct {
		User auth.AuthUser `json:"user"`
		tokenPair
	}{User: authUser(user), tokenPair: pair})
}

func (s *Server) accountByUsername(username string) (*users.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.users.GetByUsername(username)
	if err != nil {
		return nil, err
	}
	cp := *u
	return &cp, nil
}

func (s *Server) issueTokens(userID int64, sessionID string) (tokenPair, error) {
	access, err := s.tokens.CreateAccessToken(userID, sessionID)
	if err != nil {
		return tokenPair{}, err
	}
	refreshToken, err := s.refresh.Create(userID, sessionID)
	if err != nil {
		return tokenPair{}, err
	}
	return tokenPair{Token: access, RefreshToken: refreshToken}, nil
}

// handleRefresh rotates the refresh token and issues a new access token for
// the same login session.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeBody(r, &req); err != nil || req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	rt, err := s.refresh.Rotate(req.RefreshToken)
	if err != nil {
		log.Debug().Err(err).Msg("refresh rejected")
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	if _, err := s.sessions.Get(rt.SessionID); err != nil {
		_ = s.refresh.RevokeSession(rt.SessionID)
		writeError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}
	access, err := s.tokens.CreateAccessToken(rt.UserID, rt.SessionID)
	if err != nil {
		log.Err(err).Int64("user", rt.UserID).Msg("issue access token")
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	writeData(w, "", tokenPair{Token: access, RefreshToken: rt.Token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.endSession(p.session.ID)
	writeData(w, "Logged out successfully", nil)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.revokeUserSessions(p.user.ID, p.session.ID)
	writeData(w, "Logged out from all other devices successfully", nil)
}

func (s *Server) endSession(sessionID string) {
	if err := s.tokens.RevokeSession(sessionID); err != nil {
		log.Err(err).Str("session", sessionID).Msg("revoke access tokens")
	}
	if err := s.refresh.RevokeSession(sessionID); err != nil {
		log.Err(err).Str("session", sessionID).Msg("revoke refresh token")
	}
	if err := s.sessions.Delete(sessionID); err != nil {
		log.Err(err).Str("session", sessionID).Msg("delete login session")
	}
}

// revokeUserSessions ends every session of a user except keep.
func (s *Server) revokeUserSessions(userID int64, keep string) {
	list, err := s.sessions.ListByUser(userID)
	if err != nil {
		log.Err(err).Int64("user", userID).Msg("list login sessions")
		return
	}
	for _, session := range list {
		if session.ID != keep {
			s.endSession(session.ID)
		}
	}
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	writeData(w, "", s.userData(p.user, r.URL.Query().Get("relations")))
}

// userData renders the profile. Relations are a comma separated list of
// stickyNotes and branch. Callers hold s.mu.
func (s *Server) userData(u *users.User, relations string) auth.UserData {
	data := auth.UserData{
		ID:       u.ID,
		Name:     u.Name,
		Gender:   u.Gender,
		Type:     string(u.Type),
		Role:     u.Role,
		Phone:    u.Phone,
		Image:    u.Image,
		Username: u.Username,
	}
	if first, _, ok := strings.Cut(u.Name, " "); ok {
		data.FName = first
	} else {
		data.FName = u.Name
	}
	for _, rel := range strings.Split(relations, ",") {
		switch strings.TrimSpace(rel) {
		case "stickyNotes":
			data.StickyNotes = append([]auth.StickyNote{}, s.notes[u.ID]...)
		case "branch":
			if u.BranchID == 0 {
				continue
			}
			branches := s.collection(endpoint.Branches)
			if i := branches.find(u.BranchID); i >= 0 {
				name, _ := branches.records[i]["name"].(string)
				data.Branch = &auth.BranchRef{ID: u.BranchID, Name: name}
			}
		}
	}
	return data
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Phone    string `json:"phone"`
		Username string `json:"username"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	p := principalFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()

	fe := &fieldErrors{}
	fe.required("name", req.Name)
	fe.required("username", req.Username)
	if other, err := s.users.GetByUsername(req.Username); err == nil && other.ID != p.user.ID {
		fe.add("username", "The username has already been taken.")
	}
	if !fe.empty() {
		writeValidation(w, fe)
		return
	}

	u, err := s.users.GetByID(p.user.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	u.Name, u.Phone, u.Username = req.Name, req.Phone, req.Username
	if err := s.users.Upsert(u); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	s.syncStaffRecord(u)
	writeData(w, "Profile updated successfully", s.userData(u, endpoint.MeRelations))
}

// syncStaffRecord copies profile changes to the staff collection the account
// is listed in. Callers hold s.mu.
func (s *Server) syncStaffRecord(u *users.User) {
	for _, c := range s.collections {
		if c.staff != u.Type {
			continue
		}
		if i := c.find(u.ID); i >= 0 {
			c.records[i]["name"] = u.Name
			c.records[i]["phone"] = u.Phone
			c.records[i]["username"] = u.Username
			c.records[i]["image"] = u.Image
		}
	}
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword      string `json:"current_password"`
		Password             string `json:"password"`
		PasswordConfirmation string `json:"password_confirmation"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	p := principalFrom(r.Context())

	s.mu.Lock()
	u, err := s.users.GetByID(p.user.ID)
	if err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}

	fe := &fieldErrors{}
	fe.required("current_password", req.CurrentPassword)
	fe.required("password", req.Password)
	if req.CurrentPassword != "" && !u.CheckPassword(req.CurrentPassword) {
		fe.add("current_password", "The current password is incorrect.")
	}
	if req.Password != "" {
		if err := users.ValidatePasswordStrength(req.Password); err != nil {
			fe.add("password", err.Error())
		} else if req.Password != req.PasswordConfirmation {
			fe.add("password", "The password field confirmation does not match.")
		}
	}
	if !fe.empty() {
		s.mu.Unlock()
		writeValidation(w, fe)
		return
	}
	err = u.SetPassword(req.Password)
	s.mu.Unlock()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}

	s.revokeUserSessions(u.ID, p.session.ID)
	writeData(w, "Password changed successfully", nil)
}

func (s *Server) handleProfileImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		fe := &fieldErrors{}
		fe.add("image", "The image field is required.")
		writeValidation(w, fe)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		fe := &fieldErrors{}
		fe.add("image", "The image field is required.")
		writeValidation(w, fe)
		return
	}
	defer file.Close()
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeError(w, http.StatusBadRequest, "Upload failed.")
		return
	}

	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.users.GetByID(p.user.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	u.Image = fmt.Sprintf("/storage/users/%d/%s%s", u.ID, uuid.New().String(), strings.ToLower(filepath.Ext(header.Filename)))
	s.syncStaffRecord(u)
	writeData(w, "Profile image updated successfully", s.userData(u, endpoint.MeRelations))
}

type device struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	IPAddress       string `json:"ip_address,omitempty"`
	Platform        string `json:"platform,omitempty"`
	Browser         string `json:"browser,omitempty"`
	DeviceType      string `json:"device_type,omitempty"`
	LastUsedAt      string `json:"last_used_at,omitempty"`
	LastUsedAtHuman string `json:"last_used_at_human,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
	Current         bool   `json:"current,omitempty"`
}

func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	list, err := s.sessions.ListByUser(p.user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error.")
		return
	}
	now := time.Now()
	out := make([]device, 0, len(list))
	for _, session := range list {
		out = append(out, device{
			ID:              session.ID,
			Name:            session.Name,
			IPAddress:       session.IPAddress,
			Platform:        session.Platform,
			Browser:         session.Browser,
			DeviceType:      session.DeviceType,
			LastUsedAt:      session.LastUsedAt.Format(timeLayout),
			LastUsedAtHuman: humanize(now.Sub(session.LastUsedAt)),
			CreatedAt:       session.CreatedAt.Format(timeLayout),
			Current:         session.ID == p.session.ID,
		})
	}
	writeData(w, "", out)
}

// handleRevokeDevice ends one of the caller's other sessions. token_id may
// be sent as a string or a number.
func (s *Server) handleRevokeDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenID any `json:"token_id"`
	}
	if err := decodeBody(r, &req); err != nil || isBlank(req.TokenID) {
		fe := &fieldErrors{}
		fe.add("token_id", "The token id field is required.")
		writeValidation(w, fe)
		return
	}
	id := fmt.Sprint(req.TokenID)
	if f, ok := req.TokenID.(float64); ok {
		id = strconv.FormatFloat(f, 'f', -1, 64)
	}

	p := principalFrom(r.Context())
	session, err := s.sessions.Get(id)
	if err != nil || session.UserID != p.user.ID {
		writeError(w, http.StatusNotFound, "Device not found.")
		return
	}
	s.endSession(session.ID)
	writeData(w, "Device access revoked successfully", nil)
}

func (s *Server) handleDetails(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	rate := s.activeRate()
	s.mu.Unlock()

	details := map[string]any{
		"app_name":         "Warehouse",
		"environment":      s.env,
		"server_time":      time.Now().Format(timeLayout),
		"maintenance":      s.maintenance.Load(),
		"access_token_ttl": s.tokens.AccessTokenExpiry().String(),
	}
	if rate != nil {
		details["usd_iqd_rate"] = rate.USDIQDRate
	}
	writeData(w, "", details)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	fe := &fieldErrors{}
	fe.required("content", req.Content)
	if !fe.empty() {
		writeValidation(w, fe)
		return
	}

	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now().UTC().Truncate(time.Second)
	note := auth.StickyNote{ID: s.nextID, Content: req.Content, UserID: p.user.ID, CreatedAt: now, UpdatedAt: now}
	s.notes[p.user.ID] = append(s.notes[p.user.ID], note)
	writeData(w, "Note saved successfully", note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	fe := &fieldErrors{}
	fe.required("content", req.Content)
	if !fe.empty() {
		writeValidation(w, fe)
		return
	}

	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes[p.user.ID]
	for i := range notes {
		if notes[i].ID == urlID(r) {
			notes[i].Content = req.Content
			notes[i].UpdatedAt = time.Now().UTC().Truncate(time.Second)
			writeData(w, "Note updated successfully", notes[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Note not found.")
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes[p.user.ID]
	for i := range notes {
		if notes[i].ID == urlID(r) {
			s.notes[p.user.ID] = append(notes[:i], notes[i+1:]...)
			writeData(w, "Note deleted successfully", nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Note not found.")
}

func authUser(u *users.User) auth.AuthUser {
	return auth.AuthUser{
		ID:       u.ID,
		Name:     u.Name,
		Gender:   u.Gender,
		Image:    u.Image,
		Type:     string(u.Type),
		Username: u.Username,
		Phone:    u.Phone,
	}
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// describeAgent makes a rough platform, browser and device type out of a
// User-Agent header.
func describeAgent(ua string) (platform, browser, deviceType string) {
	lower := strings.ToLower(ua)
	platform, browser, deviceType = "Unknown", "Unknown", "desktop"

	switch {
	case strings.Contains(lower, "android"):
		platform, deviceType = "Android", "mobile"
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"):
		platform, deviceType = "iOS", "mobile"
	case strings.Contains(lower, "windows"):
		platform = "Windows"
	case strings.Contains(lower, "mac os"):
		platform = "macOS"
	case strings.Contains(lower, "linux"):
		platform = "Linux"
	}
	switch {
	case strings.Contains(lower, "whctl"):
		browser, deviceType = "whctl", "cli"
	case strings.Contains(lower, "go-http-client"):
		browser, deviceType = "Go", "cli"
	case strings.Contains(lower, "edg/"):
		browser = "Edge"
	case strings.Contains(lower, "chrome"):
		browser = "Chrome"
	case strings.Contains(lower, "firefox"):
		browser = "Firefox"
	case strings.Contains(lower, "safari"):
		browser = "Safari"
	}
	return platform, browser, deviceType
}

func humanize(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	}
	return plural(int(d.Hours()/24), "day") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.Itoa(n) + " " + unit + "s"
}
