package domain

import "time"

// User represents a person known to the service, keyed by their Telegram identity.
type User struct {
	ID         int64     `json:"id"`
	TelegramID int64     `json:"telegram_id"`
	Username   string    `json:"username,omitempty"`
	FirstName  string    `json:"first_name,omitempty"`
	LastName   string    `json:"last_name,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Identity carries the external identity attached to an inbound request.
// TelegramID is the only stable part; the name fields are display attributes
// the platform may or may not supply on any given request.
type Identity struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
}
