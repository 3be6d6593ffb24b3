package devserver

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type notification struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	CreatedAt string `json:"created_at"`
	Read      bool   `json:"read"`
	UserID    int64  `json:"user_id"`
}

// PushNotification queues an unread notification for a user and returns its
// id.
func (s *Server) PushNotification(userID int64, title, message string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushNotificationLocked(userID, title, message, "")
}

func (s *Server) pushNotificationLocked(userID int64, title, message, action string) int64 {
	s.nextID++
	s.notifications[userID] = append(s.notifications[userID], notification{
		ID:        s.nextID,
		Title:     title,
		Message:   message,
		Action:    action,
		CreatedAt: time.Now().Format(timeLayout),
		UserID:    userID,
	})
	log.Debug().Int64("user", userID).Int64("id", s.nextID).Msg("notification queued")
	return s.nextID
}

func (s *Server) handleUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()

	unread := make([]notification, 0)
	for _, n := range s.notifications[p.user.ID] {
		if !n.Read {
			unread = append(unread, n)
		}
	}
	writeData(w, "", unread)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifications[p.user.ID]
	for i := range list {
		if list[i].ID == urlID(r) {
			list[i].Read = true
			writeData(w, "Notification marked as read", list[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Notification not found.")
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r.Context())
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.notifications[p.user.ID]
	for i := range list {
		list[i].Read = true
	}
	writeData(w, "All notifications marked as read", struct{}{})
}
