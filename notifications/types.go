// Package notifications keeps the user's unread notifications and polls the
// backend for new ones while the view is visible.
package notifications

import (
	"encoding/json"
	"strings"
	"time"

	errs "github.com/bazrganidrwst/warehouse-client/internal/errors"
)

type Notification struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Action    string          `json:"action,omitempty"`
	CreatedAt Timestamp       `json:"created_at"`
	Read      bool            `json:"read,omitempty"`
	UserID    *int64          `json:"user_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp accepts the date formats the backend emits.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return errs.Wrapf(errs.ErrBadResponse, "[Timestamp.UnmarshalJSON] unknown time format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}
