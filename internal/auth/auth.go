// Package auth implements the vault core's AuthProvider collaborator (§4.C,
// §9): an abstract bearer-token supplier with a forced-refresh signal, backed
// by securestorage for the single persisted OAuth2 token set and an injected
// TokenRefresher for actual OAuth2 token acquisition (out of scope, §1).
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/koofr/vault-sub003/internal/oauth2"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/securestorage"
)

// DefaultStorageKey is the single well-known secure-storage key the OAuth2
// token set is persisted under (§6).
const DefaultStorageKey = "vaultcore.oauth2.token"

// TokenRefresher performs the actual OAuth2 token exchange. It is injected so
// the auth package never talks to an OAuth2 endpoint directly.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (oauth2.TokenSet, error)
}

// AuthProvider is the collaborator the Remote Client calls before every
// request (§4.C step 1).
type AuthProvider interface {
	// GetAuthorization returns the bearer header value ("Bearer <token>").
	// forceRefresh bypasses any cached token and always exchanges the
	// refresh token, used after a 401/InvalidToken response.
	GetAuthorization(ctx context.Context, forceRefresh bool) (string, error)
}

// Provider is the production AuthProvider.
type Provider struct {
	mu         sync.Mutex
	storage    securestorage.SecureStorage
	refresher  TokenRefresher
	rt         runtime.Runtime
	storageKey string
	cached     *oauth2.TokenSet
}

// NewProvider constructs a Provider. storageKey defaults to
// DefaultStorageKey when empty.
func NewProvider(storage securestorage.SecureStorage, refresher TokenRefresher, rt runtime.Runtime, storageKey string) *Provider {
	if storageKey == "" {
		storageKey = DefaultStorageKey
	}
	return &Provider{storage: storage, refresher: refresher, rt: rt, storageKey: storageKey}
}

// GetAuthorization returns the current bearer header, refreshing first when
// forceRefresh is set or the cached token is known to have expired.
func (p *Provider) GetAuthorization(ctx context.Context, forceRefresh bool) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		if err := p.loadLocked(); err != nil {
			return "", err
		}
	}

	needsRefresh := forceRefresh
	if p.cached != nil && p.rt.Now() >= p.cached.ExpiresAtMs {
		needsRefresh = true
	}

	if needsRefresh {
		if p.cached == nil || p.cached.RefreshToken == "" {
			return "", fmt.Errorf("auth: no refresh token available")
		}
		next, err := p.refresher.Refresh(ctx, p.cached.RefreshToken)
		if err != nil {
			return "", err
		}
		if err := p.saveLocked(&next); err != nil {
			return "", err
		}
	}

	return "Bearer " + p.cached.AccessToken, nil
}

func (p *Provider) loadLocked() error {
	raw, ok, err := p.storage.Get(p.storageKey)
	if err != nil {
		return err
	}
	if !ok {
		p.cached = &oauth2.TokenSet{}
		return nil
	}
	var set oauth2.TokenSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return fmt.Errorf("auth: stored token set is corrupt: %w", err)
	}
	p.cached = &set
	return nil
}

func (p *Provider) saveLocked(set *oauth2.TokenSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	if err := p.storage.Set(p.storageKey, string(raw)); err != nil {
		return err
	}
	p.cached = set
	return nil
}

// Seed installs a known token set directly, persisting it to secure storage
// and replacing the cached set — used right after interactive OAuth2 login
// completes.
func (p *Provider) Seed(ctx context.Context, set oauth2.TokenSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveLocked(&set)
}
