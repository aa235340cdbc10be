// Package sortorder implements the vault core's file-listing sort-order
// slice (§2 row J): the field a listing is sorted by and its direction.
package sortorder

import "github.com/koofr/vault-sub003/internal/store"

// Service mutates the sort slice.
type Service struct {
	st *store.Store
}

// NewService constructs a sort-order service.
func NewService(st *store.Store) *Service {
	return &Service{st: st}
}

// Set replaces the sort field and direction outright.
func (s *Service) Set(field store.SortField, ascending bool) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		st.Sort.Field = field
		st.Sort.Ascending = ascending
		notify(store.EventSort)
	})
}

// ToggleField sets field as the sort field; if it already was, it flips
// direction instead of resetting to ascending — matching how a UI's
// column-header click conventionally behaves.
func (s *Service) ToggleField(field store.SortField) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		if st.Sort.Field == field {
			st.Sort.Ascending = !st.Sort.Ascending
		} else {
			st.Sort.Field = field
			st.Sort.Ascending = true
		}
		notify(store.EventSort)
	})
}
