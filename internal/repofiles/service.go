// Package repofiles implements the vault core's decrypted file-listing
// projections over a repo (§4.F): listing, recursive listing as a lazy
// finite stream, and move/copy orchestration with a caller-supplied
// conflict-resolution policy.
package repofiles

import (
	"context"

	"github.com/koofr/vault-sub003/internal/cipher"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// RepoCiphers is the narrow slice of internal/repos.Service this package
// needs: resolving the live cipher for an unlocked repo, and touching its
// activity timestamp on every access (§4.E: "any access via Repo Files
// Service MUST touch").
type RepoCiphers interface {
	CipherFor(repoId vaulttypes.RepoId) (*cipher.Cipher, error)
	TouchActivity(repoId vaulttypes.RepoId) error
}

// RemoteFiles is the narrow slice of internal/remote.Client this package
// needs.
type RemoteFiles interface {
	ListFiles(ctx context.Context, mountId, path string) ([]FileRecord, error)
	MoveFile(ctx context.Context, mountId, src, dest string, overwrite bool) error
	CopyFile(ctx context.Context, mountId, src, dest string, overwrite bool) error
}

// FileRecord mirrors internal/remote.FileRecord locally so this package does
// not need to import internal/remote's full DTO surface.
type FileRecord struct {
	Name        string
	Type        string
	Modified    int64
	Size        int64
	ContentType string
	Hash        string
	Tags        map[string][]string
}

// Service projects a repo's encrypted remote listings into decrypted views.
type Service struct {
	st     *store.Store
	remote RemoteFiles
	repos  RepoCiphers
}

// NewService constructs a repo files service.
func NewService(st *store.Store, remote RemoteFiles, repos RepoCiphers) *Service {
	return &Service{st: st, remote: remote, repos: repos}
}

// List fetches encryptedDir's children from Remote, decrypts each name,
// computes plaintext size from ciphertext size, and merges the result into
// repo_files. A per-entry name-decryption failure is recorded on that entry
// rather than failing the whole listing (§4.F).
func (s *Service) List(ctx context.Context, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, encryptedDir vaulttypes.EncryptedPath) ([]store.RepoFile, error) {
	if err := s.repos.TouchActivity(repoId); err != nil {
		return nil, err
	}
	c, err := s.repos.CipherFor(repoId)
	if err != nil {
		return nil, err
	}

	records, err := s.remote.ListFiles(ctx, string(mountId), string(encryptedDir))
	if err != nil {
		return nil, err
	}

	files := make([]store.RepoFile, 0, len(records))
	for _, rec := range records {
		encPath := vaulttypes.EncryptedPath(vaulttypes.RemotePath(encryptedDir).Join(vaulttypes.RemoteName(rec.Name)))
		rf := store.RepoFile{
			EncryptedPath: encPath,
			Type:          store.RemoteFileType(rec.Type),
			Modified:      rec.Modified,
		}
		name, derr := c.DecryptFilename(rec.Name)
		if derr != nil {
			rf.NameError = vaulterrors.New(vaulterrors.KindDecryptFilename, "failed to decrypt file name")
		} else {
			rf.DecryptedName = name
		}
		if rec.Type == "file" {
			rf.Size = c.DecryptedSize(rec.Size)
		}
		files = append(files, rf)
	}

	if err := s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		byPath, ok := st.RepoFiles.ByEncryptedPath[repoId]
		if !ok {
			byPath = make(map[vaulttypes.EncryptedPath]*store.RepoFile)
			st.RepoFiles.ByEncryptedPath[repoId] = byPath
		}
		for i := range files {
			f := files[i]
			byPath[f.EncryptedPath] = &f
		}
		notify(store.EventRepoFiles)
	}); err != nil {
		return nil, err
	}

	return files, nil
}
