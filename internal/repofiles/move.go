package repofiles

import (
	"context"

	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// Mode selects whether MoveOrCopy moves or copies its sources.
type Mode string

const (
	ModeMove Mode = "move"
	ModeCopy Mode = "copy"
)

// ConflictResolution is the caller's decision when the remote reports that
// a destination name already exists.
type ConflictResolution string

const (
	ConflictOverwrite  ConflictResolution = "overwrite"
	ConflictSkip       ConflictResolution = "skip"
	ConflictAutorename ConflictResolution = "autorename"
)

// OnNameConflict resolves a Conflict response for one src/dest pair.
type OnNameConflict func(src, dest vaulttypes.EncryptedPath) ConflictResolution

// MoveOrCopy iterates srcPaths; for each, it constructs the encrypted
// destination under destDir (preserving the source's encrypted name — move
// and copy never re-derive a filename's encryption), invokes Remote's
// files-move or files-copy, and on a reported Conflict applies
// onNameConflict's resolution. The operation is not atomic: a failure
// partway through leaves earlier items already moved/copied observable in
// the store; callers requiring atomicity must serialize elsewhere (§4.F).
func (s *Service) MoveOrCopy(ctx context.Context, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, srcPaths []vaulttypes.EncryptedPath, destDir vaulttypes.EncryptedPath, mode Mode, onNameConflict OnNameConflict) error {
	if err := s.repos.TouchActivity(repoId); err != nil {
		return err
	}

	for _, src := range srcPaths {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		name := vaulttypes.RemotePath(src).Name()
		dest := vaulttypes.EncryptedPath(vaulttypes.RemotePath(destDir).Join(name))

		if err := s.doMoveOrCopy(ctx, mountId, src, dest, mode, false); err != nil {
			ve, ok := vaulterrors.Of(err)
			if !ok || ve.Kind != vaulterrors.KindConflict {
				return err
			}

			switch onNameConflict(src, dest) {
			case ConflictSkip:
				continue
			case ConflictOverwrite:
				if err := s.doMoveOrCopy(ctx, mountId, src, dest, mode, true); err != nil {
					return err
				}
			case ConflictAutorename:
				dest = autorename(dest)
				if err := s.doMoveOrCopy(ctx, mountId, src, dest, mode, false); err != nil {
					return err
				}
			default:
				return err
			}
		}
	}
	return nil
}

func (s *Service) doMoveOrCopy(ctx context.Context, mountId vaulttypes.MountId, src, dest vaulttypes.EncryptedPath, mode Mode, overwrite bool) error {
	if mode == ModeCopy {
		return s.remote.CopyFile(ctx, string(mountId), string(src), string(dest), overwrite)
	}
	return s.remote.MoveFile(ctx, string(mountId), string(src), string(dest), overwrite)
}

// autorename appends a numeric suffix to dest's final segment so a retried
// move/copy lands on a name the remote has not reported as conflicting yet.
func autorename(dest vaulttypes.EncryptedPath) vaulttypes.EncryptedPath {
	path := vaulttypes.RemotePath(dest)
	parent := path.Parent()
	name := string(path.Name()) + "-1"
	return vaulttypes.EncryptedPath(parent.Join(vaulttypes.RemoteName(name)))
}
