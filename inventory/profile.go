package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bazrganidrwst/warehouse-client/apiclient"
	"github.com/bazrganidrwst/warehouse-client/auth"
	"github.com/bazrganidrwst/warehouse-client/endpoint"
	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
)

const (
	MsgProfileUpdated  = "Profile updated successfully"
	MsgPasswordChanged = "Password changed successfully"
	MsgImageUpdated    = "Profile image updated successfully"
	MsgDeviceRevoked   = "Device access revoked successfully"
	MsgLoggedOutAll    = "Logged out from all devices successfully"
	MsgNoteSaved       = "Note saved successfully"
	MsgNoteUpdated     = "Note updated successfully"
	MsgNoteDeleted     = "Note deleted successfully"
)

// UserSink receives profile data so the session store shows the same user.
type UserSink interface {
	SetCurrentUser(u *auth.UserData)
}

// Profile manages the logged in user's own account: details, password,
// image, devices and sticky notes.
type Profile struct {
	*State[auth.UserData]
	conn
	sink UserSink

	mu      sync.RWMutex
	devices []Device
	notes   []auth.StickyNote
}

func newProfile(c conn, sink UserSink) *Profile {
	return &Profile{State: &State[auth.UserData]{}, conn: c, sink: sink}
}

func (s *Profile) Fetch(ctx context.Context) (*auth.UserData, error) {
	query := url.Values{"relations": {endpoint.MeRelations}}
	env, err := call[auth.UserData](ctx, s.conn, s.State, apiclient.Get(endpoint.Me, query), "")
	if err != nil {
		return nil, err
	}
	s.setUser(&env.Data)
	return &env.Data, nil
}

func (s *Profile) setUser(u *auth.UserData) {
	s.setCurrent(u)
	s.mu.Lock()
	s.notes = append([]auth.StickyNote(nil), u.StickyNotes...)
	s.mu.Unlock()
	if s.sink != nil {
		s.sink.SetCurrentUser(u)
	}
}

func (s *Profile) Update(ctx context.Context, p ProfilePayload) (*auth.UserData, error) {
	if strings.TrimSpace(p.Name) == "" || strings.TrimSpace(p.Username) == "" {
		return nil, invalid(s.conn, s.State, "Profile.Update", "Name and username are required")
	}
	env, err := call[auth.UserData](ctx, s.conn, s.State, apiclient.Put(endpoint.UpdateProfile, p), MsgProfileUpdated)
	if err != nil {
		return nil, err
	}
	s.setUser(&env.Data)
	return &env.Data, nil
}

// ChangePassword changes the password and signs out the other devices.
func (s *Profile) ChangePassword(ctx context.Context, p PasswordChange) error {
	if p.CurrentPassword == "" || p.Password == "" {
		return invalid(s.conn, s.State, "Profile.ChangePassword", "Current and new password are required")
	}
	if p.Password != p.PasswordConfirmation {
		return invalid(s.conn, s.State, "Profile.ChangePassword", "Password confirmation does not match")
	}
	body := struct {
		PasswordChange
		LogoutOthers bool `json:"logout_others"`
	}{p, true}
	_, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Post(endpoint.ChangePassword, body), MsgPasswordChanged)
	return err
}

// UpdateImage uploads a new profile image as multipart form data.
func (s *Profile) UpdateImage(ctx context.Context, filename string, image io.Reader) (*auth.UserData, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, errs.Wrap(err, "[Profile.UpdateImage] create form file")
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, errs.Wrap(err, "[Profile.UpdateImage] read image")
	}
	if err := mw.Close(); err != nil {
		return nil, errs.Wrap(err, "[Profile.UpdateImage] close form")
	}

	req := apiclient.Post(endpoint.ProfileImage, buf.Bytes())
	req.Header = http.Header{"Content-Type": {mw.FormDataContentType()}}
	env, err := call[auth.UserData](ctx, s.conn, s.State, req, MsgImageUpdated)
	if err != nil {
		return nil, err
	}
	s.setUser(&env.Data)
	return &env.Data, nil
}

func (s *Profile) FetchDevices(ctx context.Context) ([]Device, error) {
	env, err := call[[]Device](ctx, s.conn, s.State, apiclient.Get(endpoint.Devices, nil), "")
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.devices = env.Data
	s.mu.Unlock()
	return env.Data, nil
}

func (s *Profile) Devices() []Device {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Device(nil), s.devices...)
}

// RevokeDevice ends the session of another device. Failures of this call
// never end the current session.
func (s *Profile) RevokeDevice(ctx context.Context, id FlexID) error {
	req := &apiclient.Request{Method: http.MethodDelete, Path: endpoint.RevokeToken, Body: map[string]FlexID{"token_id": id}}
	if _, err := call[json.RawMessage](ctx, s.conn, s.State, req, MsgDeviceRevoked); err != nil {
		return err
	}
	s.mu.Lock()
	kept := s.devices[:0]
	for _, d := range s.devices {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	s.devices = kept
	s.mu.Unlock()
	return nil
}

func (s *Profile) LogoutAll(ctx context.Context) error {
	if _, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Post(endpoint.LogoutAll, nil), MsgLoggedOutAll); err != nil {
		return err
	}
	s.mu.Lock()
	s.devices = nil
	s.mu.Unlock()
	return nil
}

func (s *Profile) Notes() []auth.StickyNote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]auth.StickyNote(nil), s.notes...)
}

func (s *Profile) CreateNote(ctx context.Context, content string) (*auth.StickyNote, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid(s.conn, s.State, "Profile.CreateNote", "Note cannot be empty")
	}
	env, err := call[auth.StickyNote](ctx, s.conn, s.State, apiclient.Post(endpoint.StickyNotes, map[string]string{"content": content}), MsgNoteSaved)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.notes = append(s.notes, env.Data)
	s.mu.Unlock()
	return &env.Data, nil
}

func (s *Profile) UpdateNote(ctx context.Context, id int64, content string) (*auth.StickyNote, error) {
	if strings.TrimSpace(content) == "" {
		return nil, invalid(s.conn, s.State, "Profile.UpdateNote", "Note cannot be empty")
	}
	env, err := call[auth.StickyNote](ctx, s.conn, s.State, apiclient.Put(endpoint.StickyNote(id), map[string]string{"content": content}), MsgNoteUpdated)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	for i := range s.notes {
		if s.notes[i].ID == id {
			s.notes[i] = env.Data
		}
	}
	s.mu.Unlock()
	return &env.Data, nil
}

func (s *Profile) DeleteNote(ctx context.Context, id int64) error {
	if _, err := call[json.RawMessage](ctx, s.conn, s.State, apiclient.Delete(endpoint.StickyNote(id)), MsgNoteDeleted); err != nil {
		return err
	}
	s.mu.Lock()
	kept := s.notes[:0]
	for _, n := range s.notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notes = kept
	s.mu.Unlock()
	return nil
}

// SystemDetails returns backend settings shown on the profile page, such
// as token lifetimes and the accepted phone formats.
func (s *Profile) SystemDetails(ctx context.Context) (SystemDetails, error) {
	env, err := call[SystemDetails](ctx, s.conn, s.State, apiclient.Get(endpoint.SystemDetails, nil), "")
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}

// Reset drops everything loaded for the previous user.
func (s *Profile) Reset() {
	s.reset()
	s.mu.Lock()
	s.devices, s.notes = nil, nil
	s.mu.Unlock()
}
