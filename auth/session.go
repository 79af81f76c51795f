package auth

import "time"

// Auth state change events, mirroring the identity provider's contract.
const (
	EventSignedIn       = "SIGNED_IN"
	EventSignedOut      = "SIGNED_OUT"
	EventInitialSession = "INITIAL_SESSION"
)

// Session is an authenticated session with the identity provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	UserID       string `json:"user_id"`
	Email        string `json:"email"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

// Expired reports whether the access token is past its expiry.
func (s *Session) Expired() bool {
	return s.ExpiresAt > 0 && time.Now().Unix() >= s.ExpiresAt
}

// TokenStore persists the session across restarts so a relaunch rehydrates
// the signed-in state instead of forcing a fresh login (and the local data
// wipe that comes with one).
type TokenStore interface {
	LoadSession() (string, error)
	SaveSession(value string) error
	ClearSession() error
}
