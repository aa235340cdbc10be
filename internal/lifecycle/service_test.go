package lifecycle

import (
	"testing"

	"github.com/koofr/vault-sub003/internal/store"
)

func TestSetAppVisibilityTransitionsAndNoops(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)

	var seen []store.MutationEvent
	st.Subscribe(nil, func(e store.MutationEvent) { seen = append(seen, e) })

	if err := svc.SetAppVisibility(store.AppHidden); err != nil {
		t.Fatalf("SetAppVisibility failed: %v", err)
	}
	var vis store.AppVisibility
	_ = st.WithState(func(s *store.State) { vis = s.Lifecycle.AppVisibility })
	if vis != store.AppHidden {
		t.Fatalf("expected AppHidden, got %v", vis)
	}
	if len(seen) != 1 {
		t.Fatalf("expected one notification for the transition, got %d", len(seen))
	}

	if err := svc.SetAppVisibility(store.AppHidden); err != nil {
		t.Fatalf("SetAppVisibility failed: %v", err)
	}
	if len(seen) != 1 {
		t.Fatalf("expected setting the same visibility again not to notify, got %d events", len(seen))
	}
}
