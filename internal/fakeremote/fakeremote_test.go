package fakeremote

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/koofr/vault-sub003/internal/remote"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
)

func TestPutThenGetRoundTrips(t *testing.T) {
	f := New(runtime.NewFake(0))
	ctx := context.Background()

	if _, err := f.PutFile(ctx, "primary", "/docs/a.txt", bytes.NewReader([]byte("hello")), 5, nil); err != nil {
		t.Fatalf("PutFile failed: %v", err)
	}

	body, size, err := f.GetFileReader(ctx, "primary", "/docs/a.txt")
	if err != nil {
		t.Fatalf("GetFileReader failed: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "hello" || size != 5 {
		t.Fatalf("expected %q (5 bytes), got %q (%d bytes)", "hello", data, size)
	}
}

func TestPutFileCreatesParentDirectories(t *testing.T) {
	f := New(runtime.NewFake(0))
	ctx := context.Background()

	if _, err := f.PutFile(ctx, "primary", "/a/b/c.txt", bytes.NewReader([]byte("x")), 1, nil); err != nil {
		t.Fatalf("PutFile failed: %v", err)
	}

	listing, err := f.ListFiles(ctx, "primary", "/a")
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(listing) != 1 || listing[0].Name != "b" || listing[0].Type != "dir" {
		t.Fatalf("expected one dir entry %q, got %v", "b", listing)
	}
}

func TestMoveFileConflictRequiresOverwrite(t *testing.T) {
	f := New(runtime.NewFake(0))
	ctx := context.Background()
	_, _ = f.PutFile(ctx, "primary", "/src.txt", bytes.NewReader([]byte("s")), 1, nil)
	_, _ = f.PutFile(ctx, "primary", "/dest.txt", bytes.NewReader([]byte("d")), 1, nil)

	err := f.MoveFile(ctx, "primary", "/src.txt", "/dest.txt", false)
	if vaulterrors.KindOf(err) != vaulterrors.KindConflict {
		t.Fatalf("expected KindConflict, got %v", err)
	}

	if err := f.MoveFile(ctx, "primary", "/src.txt", "/dest.txt", true); err != nil {
		t.Fatalf("expected the overwrite move to succeed, got %v", err)
	}
	if _, _, err := f.GetFileReader(ctx, "primary", "/src.txt"); err == nil {
		t.Fatal("expected the source to no longer exist after a move")
	}
}

func TestConditionalWritePreconditionFails(t *testing.T) {
	f := New(runtime.NewFake(0))
	ctx := context.Background()
	rec, err := f.PutFile(ctx, "primary", "/a.txt", bytes.NewReader([]byte("v1")), 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	wrongHash := rec.Hash + "x"

	_, err = f.PutFile(ctx, "primary", "/a.txt", bytes.NewReader([]byte("v2")), 2, &remote.ConditionalWrite{IfHash: wrongHash})
	if vaulterrors.KindOf(err) != vaulterrors.KindConflict {
		t.Fatalf("expected KindConflict for a hash mismatch, got %v", err)
	}

	_, err = f.PutFile(ctx, "primary", "/a.txt", bytes.NewReader([]byte("v2")), 2, &remote.ConditionalWrite{IfHash: rec.Hash})
	if err != nil {
		t.Fatalf("expected a matching precondition to succeed, got %v", err)
	}
}

func TestCreateListRemoveVaultRepo(t *testing.T) {
	f := New(runtime.NewFake(0))
	ctx := context.Background()

	dto, err := f.CreateVaultRepo(ctx, remote.CreateVaultRepoRequest{Name: "vault", MountId: "primary", Path: "/vault"})
	if err != nil {
		t.Fatalf("CreateVaultRepo failed: %v", err)
	}
	if dto.Id == "" {
		t.Fatal("expected a generated repo id")
	}

	repos, err := f.ListVaultRepos(ctx)
	if err != nil || len(repos) != 1 {
		t.Fatalf("expected one repo listed, got %v err=%v", repos, err)
	}

	if err := f.RemoveVaultRepo(ctx, dto.Id); err != nil {
		t.Fatalf("RemoveVaultRepo failed: %v", err)
	}
	if _, err := f.GetVaultRepoConfig(ctx, dto.Id); vaulterrors.KindOf(err) != vaulterrors.KindRepoNotFound {
		t.Fatalf("expected KindRepoNotFound after removal, got %v", err)
	}
}
