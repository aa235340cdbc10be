// Package selection implements the vault core's multi-select slice (§2 row
// J): the set of encrypted paths currently selected in a file listing,
// independent of which listing they came from.
package selection

import "github.com/koofr/vault-sub003/internal/store"

// Service mutates the selection slice.
type Service struct {
	st *store.Store
}

// NewService constructs a selection service.
func NewService(st *store.Store) *Service {
	return &Service{st: st}
}

// Toggle adds key to the selection if absent, removes it if present.
func (s *Service) Toggle(key string) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		if _, ok := st.Selection.Selected[key]; ok {
			delete(st.Selection.Selected, key)
		} else {
			st.Selection.Selected[key] = struct{}{}
		}
		notify(store.EventSelection)
	})
}

// SelectAll replaces the selection with exactly the given keys.
func (s *Service) SelectAll(keys []string) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		st.Selection.Selected = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			st.Selection.Selected[k] = struct{}{}
		}
		notify(store.EventSelection)
	})
}

// Clear empties the selection.
func (s *Service) Clear() error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		if len(st.Selection.Selected) == 0 {
			return
		}
		st.Selection.Selected = make(map[string]struct{})
		notify(store.EventSelection)
	})
}

// IsSelected reports whether key is currently selected.
func (s *Service) IsSelected(key string) (bool, error) {
	var selected bool
	err := s.st.WithState(func(st *store.State) {
		_, selected = st.Selection.Selected[key]
	})
	return selected, err
}
