// Package spaceusage implements the vault core's per-mount used/total byte
// counters (§2 row J), refreshed on demand from Remote.
package spaceusage

import (
	"context"

	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// SpaceUsageDTO mirrors internal/remote.SpaceUsageDTO locally so this
// package does not need to import internal/remote's full DTO surface.
type SpaceUsageDTO struct {
	Used  int64
	Total int64
}

// RemoteClient is the narrow slice of internal/remote.Client this package
// needs.
type RemoteClient interface {
	GetSpaceUsage(ctx context.Context, mountId string) (*SpaceUsageDTO, error)
}

// Service refreshes the space-usage slice.
type Service struct {
	st     *store.Store
	remote RemoteClient
}

// NewService constructs a space-usage service.
func NewService(st *store.Store, remote RemoteClient) *Service {
	return &Service{st: st, remote: remote}
}

// Refresh fetches mountId's current usage from Remote and merges it into
// the slice, marking it Loaded. A failed fetch marks the slice's Status
// Error but leaves any previously-loaded value for other mounts untouched.
func (s *Service) Refresh(ctx context.Context, mountId vaulttypes.MountId) error {
	usage, err := s.remote.GetSpaceUsage(ctx, string(mountId))
	if err != nil {
		_ = s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
			st.SpaceUsage.Status = store.StatusError
			notify(store.EventSpaceUsage)
		})
		return err
	}
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		st.SpaceUsage.Status = store.StatusLoaded
		st.SpaceUsage.ByMount[mountId] = store.SpaceUsage{Used: usage.Used, Total: usage.Total}
		notify(store.EventSpaceUsage)
	})
}
