// Package remoteadapter converts between internal/remote's wire DTOs and the
// narrow per-package mirror types internal/repos, internal/repofiles,
// internal/transfers, internal/user and internal/spaceusage each declare
// locally. Go interface satisfaction is structural on the method set but
// exact on named parameter/return types, so a *remote.Client (or a
// internal/fakeremote.FakeRemote, which shares its method surface) cannot be
// passed directly where those packages expect their own local interface —
// this package is the one place that bridges the two.
package remoteadapter

import (
	"context"
	"io"

	"github.com/koofr/vault-sub003/internal/remote"
	"github.com/koofr/vault-sub003/internal/repofiles"
	"github.com/koofr/vault-sub003/internal/repos"
	"github.com/koofr/vault-sub003/internal/spaceusage"
	"github.com/koofr/vault-sub003/internal/transfers"
	"github.com/koofr/vault-sub003/internal/user"
)

// RemoteSurface is the full internal/remote.Client method set. Both
// *remote.Client and *internal/fakeremote.FakeRemote satisfy it, since both
// are written against internal/remote's exact DTO types.
type RemoteSurface interface {
	ListFiles(ctx context.Context, mountId, path string) ([]remote.FileRecord, error)
	GetFileReader(ctx context.Context, mountId, path string) (io.ReadCloser, int64, error)
	PutFile(ctx context.Context, mountId, path string, content io.Reader, size int64, cond *remote.ConditionalWrite) (*remote.FileRecord, error)
	DeleteFile(ctx context.Context, mountId, path string) error
	MoveFile(ctx context.Context, mountId, src, dest string, overwrite bool) error
	CopyFile(ctx context.Context, mountId, src, dest string, overwrite bool) error
	ListMounts(ctx context.Context) ([]remote.MountDTO, error)
	GetSpaceUsage(ctx context.Context, mountId string) (*remote.SpaceUsageDTO, error)
	GetUser(ctx context.Context) (*remote.UserDTO, error)
	ListVaultRepos(ctx context.Context) ([]remote.VaultRepoDTO, error)
	CreateVaultRepo(ctx context.Context, req remote.CreateVaultRepoRequest) (*remote.VaultRepoDTO, error)
	RemoveVaultRepo(ctx context.Context, repoId string) error
	GetVaultRepoConfig(ctx context.Context, repoId string) (*remote.VaultRepoDTO, error)
}

type reposAdapter struct{ rs RemoteSurface }

// ForRepos wraps rs as internal/repos.RemoteClient.
func ForRepos(rs RemoteSurface) repos.RemoteClient { return reposAdapter{rs} }

func (a reposAdapter) CreateVaultRepo(ctx context.Context, req repos.CreateVaultRepoRequest) (*repos.VaultRepoDTO, error) {
	dto, err := a.rs.CreateVaultRepo(ctx, remote.CreateVaultRepoRequest{
		Name:                       req.Name,
		MountId:                    req.MountId,
		Path:                       req.Path,
		Salt:                       req.Salt,
		PasswordValidator:          req.PasswordValidator,
		PasswordValidatorEncrypted: req.PasswordValidatorEncrypted,
	})
	if err != nil {
		return nil, err
	}
	return &repos.VaultRepoDTO{
		Id:                         dto.Id,
		Name:                       dto.Name,
		MountId:                    dto.MountId,
		Path:                       dto.Path,
		Salt:                       dto.Salt,
		PasswordValidator:          dto.PasswordValidator,
		PasswordValidatorEncrypted: dto.PasswordValidatorEncrypted,
		AddedMs:                    dto.AddedMs,
	}, nil
}

func (a reposAdapter) RemoveVaultRepo(ctx context.Context, repoId string) error {
	return a.rs.RemoveVaultRepo(ctx, repoId)
}

type repofilesAdapter struct{ rs RemoteSurface }

// ForRepoFiles wraps rs as internal/repofiles.RemoteFiles.
func ForRepoFiles(rs RemoteSurface) repofiles.RemoteFiles { return repofilesAdapter{rs} }

func (a repofilesAdapter) ListFiles(ctx context.Context, mountId, path string) ([]repofiles.FileRecord, error) {
	records, err := a.rs.ListFiles(ctx, mountId, path)
	if err != nil {
		return nil, err
	}
	out := make([]repofiles.FileRecord, len(records))
	for i, r := range records {
		out[i] = repofiles.FileRecord{
			Name:        r.Name,
			Type:        r.Type,
			Modified:    r.Modified,
			Size:        r.Size,
			ContentType: r.ContentType,
			Hash:        r.Hash,
			Tags:        r.Tags,
		}
	}
	return out, nil
}

func (a repofilesAdapter) MoveFile(ctx context.Context, mountId, src, dest string, overwrite bool) error {
	return a.rs.MoveFile(ctx, mountId, src, dest, overwrite)
}

func (a repofilesAdapter) CopyFile(ctx context.Context, mountId, src, dest string, overwrite bool) error {
	return a.rs.CopyFile(ctx, mountId, src, dest, overwrite)
}

type transfersAdapter struct{ rs RemoteSurface }

// ForTransfers wraps rs as internal/transfers.RemoteTransfers.
func ForTransfers(rs RemoteSurface) transfers.RemoteTransfers { return transfersAdapter{rs} }

func (a transfersAdapter) PutFile(ctx context.Context, mountId, path string, content io.Reader, size int64, cond *transfers.ConditionalWrite) (*transfers.FileRecord, error) {
	var remoteCond *remote.ConditionalWrite
	if cond != nil {
		remoteCond = &remote.ConditionalWrite{IfHash: cond.IfMatch}
		if cond.IfNoneMatch == "*" {
			// The remote has no "must not already exist" condition: an
			// empty ConditionalWrite sets no conditional header, so this
			// write is unconditional.
			remoteCond = &remote.ConditionalWrite{}
		}
	}
	record, err := a.rs.PutFile(ctx, mountId, path, content, size, remoteCond)
	if err != nil {
		return nil, err
	}
	return &transfers.FileRecord{
		Name:        record.Name,
		Type:        record.Type,
		Modified:    record.Modified,
		Size:        record.Size,
		ContentType: record.ContentType,
		Hash:        record.Hash,
	}, nil
}

func (a transfersAdapter) GetFileReader(ctx context.Context, mountId, path string) (io.ReadCloser, int64, error) {
	return a.rs.GetFileReader(ctx, mountId, path)
}

type userAdapter struct{ rs RemoteSurface }

// ForUser wraps rs as internal/user.RemoteClient.
func ForUser(rs RemoteSurface) user.RemoteClient { return userAdapter{rs} }

func (a userAdapter) GetUser(ctx context.Context) (*user.UserDTO, error) {
	dto, err := a.rs.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	return &user.UserDTO{
		Id:             dto.Id,
		FirstName:      dto.FirstName,
		LastName:       dto.LastName,
		FullName:       dto.FullName,
		Email:          dto.Email,
		ProfilePicture: dto.ProfilePicture,
	}, nil
}

type spaceUsageAdapter struct{ rs RemoteSurface }

// ForSpaceUsage wraps rs as internal/spaceusage.RemoteClient.
func ForSpaceUsage(rs RemoteSurface) spaceusage.RemoteClient { return spaceUsageAdapter{rs} }

func (a spaceUsageAdapter) GetSpaceUsage(ctx context.Context, mountId string) (*spaceusage.SpaceUsageDTO, error) {
	dto, err := a.rs.GetSpaceUsage(ctx, mountId)
	if err != nil {
		return nil, err
	}
	return &spaceusage.SpaceUsageDTO{Used: dto.Used, Total: dto.Total}, nil
}
