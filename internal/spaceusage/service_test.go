package spaceusage

import (
	"context"
	"errors"
	"testing"

	"github.com/koofr/vault-sub003/internal/store"
)

type fakeRemote struct {
	usage *SpaceUsageDTO
	err   error
}

func (f *fakeRemote) GetSpaceUsage(ctx context.Context, mountId string) (*SpaceUsageDTO, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.usage, nil
}

func TestRefreshMergesUsageAndMarksLoaded(t *testing.T) {
	st := store.New(nil)
	remote := &fakeRemote{usage: &SpaceUsageDTO{Used: 10, Total: 100}}
	svc := NewService(st, remote)

	if err := svc.Refresh(context.Background(), "m1"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var su store.SpaceUsageState
	_ = st.WithState(func(s *store.State) { su = s.SpaceUsage })
	if su.Status != store.StatusLoaded {
		t.Fatalf("expected StatusLoaded, got %v", su.Status)
	}
	if got := su.ByMount["m1"]; got.Used != 10 || got.Total != 100 {
		t.Fatalf("expected Used=10 Total=100, got %+v", got)
	}
}

func TestRefreshFailureMarksError(t *testing.T) {
	st := store.New(nil)
	remote := &fakeRemote{err: errors.New("boom")}
	svc := NewService(st, remote)

	if err := svc.Refresh(context.Background(), "m1"); err == nil {
		t.Fatal("expected Refresh to propagate the remote error")
	}
	var status store.Status
	_ = st.WithState(func(s *store.State) { status = s.SpaceUsage.Status })
	if status != store.StatusError {
		t.Fatalf("expected StatusError, got %v", status)
	}
}
