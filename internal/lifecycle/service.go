// Package lifecycle implements the vault core's app-visibility slice (§2
// row J): whether the host app is foregrounded, consulted by
// internal/repos' auto-lock sweeper for repos configured with
// AutoLock.OnAppHidden.
package lifecycle

import "github.com/koofr/vault-sub003/internal/store"

// Service mutates the app-lifecycle slice.
type Service struct {
	st *store.Store
}

// NewService constructs a lifecycle service.
func NewService(st *store.Store) *Service {
	return &Service{st: st}
}

// SetAppVisibility records the host app's foreground/background transition.
func (s *Service) SetAppVisibility(v store.AppVisibility) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		if st.Lifecycle.AppVisibility == v {
			return
		}
		st.Lifecycle.AppVisibility = v
		notify(store.EventLifecycle)
	})
}
