// Package notifications implements the vault core's user-facing
// notification slice (§2 row J): transient info/error messages surfaced
// from any other service's failure, pushed and dismissed independently of
// whatever raised them.
package notifications

import (
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
)

// Service mutates the notifications slice.
type Service struct {
	st *store.Store
}

// NewService constructs a notifications service.
func NewService(st *store.Store) *Service {
	return &Service{st: st}
}

// Push appends a notification at the given level and returns its id.
func (s *Service) Push(level store.NotificationLevel, message string) (uint64, error) {
	var id uint64
	err := s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		id = st.Notifications.NextNotificationId()
		st.Notifications.Items = append(st.Notifications.Items, store.Notification{
			Id:      id,
			Level:   level,
			Message: message,
		})
		notify(store.EventNotifications)
	})
	return id, err
}

// PushError pushes err's UserMessage as a NotificationError, or a generic
// message if err is not a *vaulterrors.Error.
func (s *Service) PushError(err error) (uint64, error) {
	ve, ok := vaulterrors.Of(err)
	message := "An unexpected error occurred."
	if ok {
		message = ve.UserMessage()
	}
	return s.Push(store.NotificationError, message)
}

// Dismiss removes the notification with the given id, if present.
func (s *Service) Dismiss(id uint64) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		items := st.Notifications.Items
		for i, n := range items {
			if n.Id == id {
				st.Notifications.Items = append(items[:i], items[i+1:]...)
				notify(store.EventNotifications)
				return
			}
		}
	})
}

// Clear removes every notification.
func (s *Service) Clear() error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		if len(st.Notifications.Items) == 0 {
			return
		}
		st.Notifications.Items = nil
		notify(store.EventNotifications)
	})
}
