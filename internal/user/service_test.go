package user

import (
	"context"
	"errors"
	"testing"

	"github.com/koofr/vault-sub003/internal/store"
)

type fakeRemote struct {
	dto *UserDTO
	err error
}

func (f *fakeRemote) GetUser(ctx context.Context) (*UserDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.dto, nil
}

func TestRefreshStoresUserAndMarksLoaded(t *testing.T) {
	st := store.New(nil)
	remote := &fakeRemote{dto: &UserDTO{Id: "u1", FullName: "Jordan Example", Email: "jordan@example.com"}}
	svc := NewService(st, remote)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var us store.UserState
	_ = st.WithState(func(s *store.State) { us = s.User })
	if us.Status != store.StatusLoaded {
		t.Fatalf("expected StatusLoaded, got %v", us.Status)
	}
	if us.User == nil || us.User.Id != "u1" || us.User.Email != "jordan@example.com" {
		t.Fatalf("expected the fetched user to be stored, got %+v", us.User)
	}
}

func TestRefreshFailureMarksError(t *testing.T) {
	st := store.New(nil)
	remote := &fakeRemote{err: errors.New("boom")}
	svc := NewService(st, remote)

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected Refresh to propagate the remote error")
	}
	var status store.Status
	_ = st.WithState(func(s *store.State) { status = s.User.Status })
	if status != store.StatusError {
		t.Fatalf("expected StatusError, got %v", status)
	}
}
