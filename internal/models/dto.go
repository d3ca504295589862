package models

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PlaybackURLResponse struct {
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expires_at"`
}

type StreamResponse struct {
	VideoID    string `json:"video_id"`
	StorageKey string `json:"storage_key"`
}

type CapabilityRequest struct {
	Permissions []string `json:"permissions"`
}

type CapabilityResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type CapabilityVerifyRequest struct {
	Token      string `json:"token"`
	Permission string `json:"permission"`
}

// InternalGrantRequest is the server-to-server issuance payload used by
// the website backend.
type InternalGrantRequest struct {
	UserID     string `json:"user_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}
