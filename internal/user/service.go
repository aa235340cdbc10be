// Package user implements the vault core's authenticated-user profile
// slice (§2 row J), refreshed on demand from Remote.
package user

import (
	"context"

	"github.com/koofr/vault-sub003/internal/store"
)

// UserDTO mirrors internal/remote.UserDTO locally so this package does not
// need to import internal/remote's full DTO surface.
type UserDTO struct {
	Id             string
	FirstName      string
	LastName       string
	FullName       string
	Email          string
	ProfilePicture []byte
}

// RemoteClient is the narrow slice of internal/remote.Client this package
// needs.
type RemoteClient interface {
	GetUser(ctx context.Context) (*UserDTO, error)
}

// Service refreshes the authenticated user's profile.
type Service struct {
	st     *store.Store
	remote RemoteClient
}

// NewService constructs a user service.
func NewService(st *store.Store, remote RemoteClient) *Service {
	return &Service{st: st, remote: remote}
}

// Refresh fetches the current user's profile from Remote.
func (s *Service) Refresh(ctx context.Context) error {
	dto, err := s.remote.GetUser(ctx)
	if err != nil {
		_ = s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
			st.User.Status = store.StatusError
			notify(store.EventUser)
		})
		return err
	}
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		st.User.Status = store.StatusLoaded
		st.User.User = &store.User{
			Id:             dto.Id,
			FirstName:      dto.FirstName,
			LastName:       dto.LastName,
			FullName:       dto.FullName,
			Email:          dto.Email,
			ProfilePicture: dto.ProfilePicture,
		}
		notify(store.EventUser)
	})
}
