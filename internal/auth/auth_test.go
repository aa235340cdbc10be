package auth

import (
	"context"
	"testing"

	"github.com/koofr/vault-sub003/internal/oauth2"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/securestorage"
)

type fakeRefresher struct {
	calls int
	next  oauth2.TokenSet
	err   error
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (oauth2.TokenSet, error) {
	f.calls++
	return f.next, f.err
}

func TestProviderRefreshesExpiredToken(t *testing.T) {
	storage := securestorage.NewInMemory()
	fake := runtime.NewFake(1_000)
	refresher := &fakeRefresher{next: oauth2.TokenSet{AccessToken: "new", RefreshToken: "r2", ExpiresAtMs: 10_000}}
	provider := NewProvider(storage, refresher, fake, "")

	if err := provider.Seed(context.Background(), oauth2.TokenSet{AccessToken: "old", RefreshToken: "r1", ExpiresAtMs: 500}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	header, err := provider.GetAuthorization(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAuthorization failed: %v", err)
	}
	if header != "Bearer new" {
		t.Fatalf("expected refreshed token, got %q", header)
	}
	if refresher.calls != 1 {
		t.Fatalf("expected exactly one refresh, got %d", refresher.calls)
	}
}

func TestProviderForceRefresh(t *testing.T) {
	storage := securestorage.NewInMemory()
	fake := runtime.NewFake(1_000)
	refresher := &fakeRefresher{next: oauth2.TokenSet{AccessToken: "fresh", RefreshToken: "r2", ExpiresAtMs: 1_000_000}}
	provider := NewProvider(storage, refresher, fake, "")
	_ = provider.Seed(context.Background(), oauth2.TokenSet{AccessToken: "still-valid", RefreshToken: "r1", ExpiresAtMs: 1_000_000})

	header, err := provider.GetAuthorization(context.Background(), true)
	if err != nil {
		t.Fatalf("GetAuthorization failed: %v", err)
	}
	if header != "Bearer fresh" {
		t.Fatalf("expected forced refresh to replace token, got %q", header)
	}
}

func TestProviderPersistsAcrossInstances(t *testing.T) {
	storage := securestorage.NewInMemory()
	fake := runtime.NewFake(1_000)
	refresher := &fakeRefresher{}
	provider := NewProvider(storage, refresher, fake, "")
	_ = provider.Seed(context.Background(), oauth2.TokenSet{AccessToken: "persisted", RefreshToken: "r1", ExpiresAtMs: 1_000_000})

	reloaded := NewProvider(storage, refresher, fake, "")
	header, err := reloaded.GetAuthorization(context.Background(), false)
	if err != nil {
		t.Fatalf("GetAuthorization failed: %v", err)
	}
	if header != "Bearer persisted" {
		t.Fatalf("expected persisted token to survive reload, got %q", header)
	}
	if refresher.calls != 0 {
		t.Fatalf("did not expect a refresh for a still-valid token")
	}
}
