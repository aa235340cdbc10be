package selection

import (
	"testing"

	"github.com/koofr/vault-sub003/internal/store"
)

func TestToggleAddsThenRemoves(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)

	if err := svc.Toggle("a"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	selected, err := svc.IsSelected("a")
	if err != nil || !selected {
		t.Fatalf("expected %q selected, got %v err=%v", "a", selected, err)
	}

	if err := svc.Toggle("a"); err != nil {
		t.Fatalf("Toggle failed: %v", err)
	}
	selected, _ = svc.IsSelected("a")
	if selected {
		t.Fatal("expected the second Toggle to deselect")
	}
}

func TestSelectAllReplacesSelection(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)
	_ = svc.Toggle("stale")

	if err := svc.SelectAll([]string{"a", "b"}); err != nil {
		t.Fatalf("SelectAll failed: %v", err)
	}
	for _, key := range []string{"a", "b"} {
		if ok, _ := svc.IsSelected(key); !ok {
			t.Fatalf("expected %q selected after SelectAll", key)
		}
	}
	if ok, _ := svc.IsSelected("stale"); ok {
		t.Fatal("expected SelectAll to replace the prior selection")
	}
}

func TestClearEmptiesSelection(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)
	_ = svc.SelectAll([]string{"a", "b"})

	if err := svc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if ok, _ := svc.IsSelected("a"); ok {
		t.Fatal("expected Clear to empty the selection")
	}
}
