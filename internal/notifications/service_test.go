package notifications

import (
	"testing"

	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
)

func TestPushAppendsAndDismissRemoves(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)

	id, err := svc.Push(store.NotificationInfo, "hello")
	if err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	var items []store.Notification
	_ = st.WithState(func(s *store.State) { items = s.Notifications.Items })
	if len(items) != 1 || items[0].Id != id || items[0].Message != "hello" {
		t.Fatalf("expected one notification %d=%q, got %v", id, "hello", items)
	}

	if err := svc.Dismiss(id); err != nil {
		t.Fatalf("Dismiss failed: %v", err)
	}
	_ = st.WithState(func(s *store.State) { items = s.Notifications.Items })
	if len(items) != 0 {
		t.Fatalf("expected Dismiss to remove the notification, got %v", items)
	}
}

func TestPushErrorUsesUserMessage(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)

	_, err := svc.PushError(vaulterrors.New(vaulterrors.KindRepoLocked, "debug detail"))
	if err != nil {
		t.Fatalf("PushError failed: %v", err)
	}

	var items []store.Notification
	_ = st.WithState(func(s *store.State) { items = s.Notifications.Items })
	if len(items) != 1 {
		t.Fatalf("expected one notification, got %v", items)
	}
	if items[0].Level != store.NotificationError {
		t.Fatalf("expected NotificationError, got %v", items[0].Level)
	}
	if items[0].Message != "This vault is locked." {
		t.Fatalf("expected the user-facing message, got %q", items[0].Message)
	}
}

func TestClearEmptiesNotifications(t *testing.T) {
	st := store.New(nil)
	svc := NewService(st)
	_, _ = svc.Push(store.NotificationInfo, "a")
	_, _ = svc.Push(store.NotificationInfo, "b")

	if err := svc.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	var items []store.Notification
	_ = st.WithState(func(s *store.State) { items = s.Notifications.Items })
	if len(items) != 0 {
		t.Fatalf("expected Clear to empty the slice, got %v", items)
	}
}
