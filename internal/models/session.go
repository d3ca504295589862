package models

import "time"

// Session is an audit row for a login. The tokens themselves are
// stateless; the row correlates them through the session ID.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    int64     `json:"user_id"`
	UserAgent string    `json:"user_agent"`
	ClientIP  string    `json:"client_ip"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
