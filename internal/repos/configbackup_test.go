package repos

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"testing"

	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
)

// TestConfigBackupGenerateRoundTrips asserts a correct password produces a
// gzip-compressed JSON blob that decompresses back to the repo's
// configuration, without disturbing the repo's actual lock state.
func TestConfigBackupGenerateRoundTrips(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	seedRepo(t, st, "r1", "p", nil)

	svc := NewService(st, rt, &fakeRemote{})
	backup := NewConfigBackupService(svc)

	blob, err := backup.Generate(context.Background(), "r1", "p")
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatalf("expected valid gzip, got error: %v", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(gr); err != nil {
		t.Fatalf("failed reading decompressed backup: %v", err)
	}

	var cfg RepoConfig
	if err := json.Unmarshal(buf.Bytes(), &cfg); err != nil {
		t.Fatalf("failed to decode backup JSON: %v", err)
	}
	if cfg.RepoId != "r1" || cfg.Name != "my-vault" {
		t.Fatalf("unexpected backup contents: %+v", cfg)
	}

	var repo *store.Repo
	_ = st.WithState(func(s *store.State) { repo = s.Repos.ById["r1"] })
	if repo.State != store.RepoLocked {
		t.Fatalf("expected config backup to leave the repo Locked (untouched), got %v", repo.State)
	}
}

// TestConfigBackupGenerateWrongPassword asserts a wrong password surfaces
// InvalidPassword rather than a generic decrypt error.
func TestConfigBackupGenerateWrongPassword(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	seedRepo(t, st, "r1", "p", nil)

	svc := NewService(st, rt, &fakeRemote{})
	backup := NewConfigBackupService(svc)

	_, err := backup.Generate(context.Background(), "r1", "wrong")
	if vaulterrors.KindOf(err) != vaulterrors.KindInvalidPassword {
		t.Fatalf("expected KindInvalidPassword, got %v", err)
	}
}
