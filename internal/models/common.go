package models

//nolint:gosec //file not handles sensitive data
const (
	MwAPIKeyHeader = "X-API-Key"

	MwUserIDKey    = "userID"
	MwUserEmailKey = "userEmail"
	MwUserRoleKey  = "userRole"
	MwSessionIDKey = "sessionID"
	MwTokenKey     = "token"
)

// ClientMetadata captures request attribution recorded with a session.
type ClientMetadata struct {
	UserAgent string `json:"user_agent"`
	IPAddress string `json:"ip_address"`
}
