package auth

import "time"

// AuthUser is the user block returned with a login.
type AuthUser struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Gender   string `json:"gender,omitempty"`
	Image    string `json:"image,omitempty"`
	Type     string `json:"type"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
}

// UserData is the full profile returned by the me endpoint.
type UserData struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	FName       string       `json:"fname,omitempty"`
	Gender      string       `json:"gender,omitempty"`
	Type        string       `json:"type"`
	Role        string       `json:"role,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	Image       string       `json:"image,omitempty"`
	Username    string       `json:"username"`
	StickyNotes []StickyNote `json:"sticky_notes,omitempty"`
	Branch      *BranchRef   `json:"branch,omitempty"`
}

type StickyNote struct {
	ID        int64     `json:"id,omitempty"`
	Content   string    `json:"content"`
	UserID    int64     `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type BranchRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// LoginRequest carries the login form. RecaptchaToken is optional.
type LoginRequest struct {
	Username       string
	Password       string
	Remember       bool
	RecaptchaToken string
}

func (r LoginRequest) payload() map[string]any {
	remember := 0
	if r.Remember {
		remember = 1
	}
	body := map[string]any{
		"username": r.Username,
		"password": r.Password,
		"remember": remember,
	}
	if r.RecaptchaToken != "" {
		body["g-recaptcha-response"] = r.RecaptchaToken
	}
	return body
}

// LoginData is the data block of a successful login.
type LoginData struct {
	User         AuthUser `json:"user"`
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
}
