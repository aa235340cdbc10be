// Package oauth2 models the persisted OAuth2 credential set and the status
// slice around it (§3 oauth2 slice); actual token acquisition is out of
// scope (§1) and supplied by the AuthProvider collaborator in internal/auth.
package oauth2

// TokenSet is the JSON shape persisted under a single well-known secure
// storage key (§6 Persisted state).
type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAtMs  int64  `json:"expires_at_ms"`
}

// Status mirrors the store's generic oauth2.status tri-state.
type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)
