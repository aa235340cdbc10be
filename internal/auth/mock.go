package auth

import "context"

// MockProvider is a test double returning canned tokens, tracking how many
// times a forced refresh was requested so tests can assert the Remote
// Client's exactly-once-retry behavior (S5).
type MockProvider struct {
	Token        string
	RefreshToken string
	RefreshCalls int
	RefreshErr   error
}

// GetAuthorization returns "Bearer "+Token, bumping Token to RefreshToken and
// incrementing RefreshCalls whenever forceRefresh is set.
func (m *MockProvider) GetAuthorization(ctx context.Context, forceRefresh bool) (string, error) {
	if forceRefresh {
		m.RefreshCalls++
		if m.RefreshErr != nil {
			return "", m.RefreshErr
		}
		m.Token = m.RefreshToken
	}
	return "Bearer " + m.Token, nil
}
