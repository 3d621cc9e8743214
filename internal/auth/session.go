package auth

// SessionData represents the authenticated context for a request
type SessionData struct {
	UserID     string `json:"user_id"`
	TelegramID *int64 `json:"telegram_id,omitempty"`
	Username   string `json:"username,omitempty"`
	IsAdmin    bool   `json:"is_admin"`
	AuthMethod string `json:"auth_method"` // "telegram", "jwt", "dev"
}
