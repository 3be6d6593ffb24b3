package refresh

import (
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string).
type StoredRefreshToken struct {
	Token     string    // The actual random token string (sent to client)
	UserID    int64     // Owner of the login session
	SessionID string    // Login session (device) the token belongs to
	Iat       time.Time // Issued at time
}

// Repo manages server-side storage of refresh token metadata, keyed by the
// token string. A login session holds at most one refresh token.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	GetBySessionID(sessionID string) (*StoredRefreshToken, error)
	DeleteByUserID(userID int64) error
}
