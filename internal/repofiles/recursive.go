package repofiles

import (
	"context"

	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// ItemKind distinguishes the two shapes a ListRecursive item can take.
type ItemKind string

const (
	ItemFile  ItemKind = "file"
	ItemError ItemKind = "error"
)

// Item is one element of the lazy stream ListRecursive produces. Per-item
// failures never terminate the stream (§4.F, S4): a directory that fails to
// list, or an entry whose name fails to decrypt, surfaces as an ItemError
// alongside its siblings' ItemFile entries.
type Item struct {
	Kind ItemKind

	RelativePath vaulttypes.DecryptedPath
	File         store.RepoFile

	MountId    vaulttypes.MountId
	RemotePath vaulttypes.RemotePath
	Err        error
}

// ListRecursive returns a channel of Items depth-first walking encryptedDir.
// The channel is lazy (items are produced as the walk proceeds, not
// pre-computed), finite (it closes once the walk completes), and
// non-restartable (callers needing to walk again must call ListRecursive
// again) — matching §4.F's LazySequence contract. Cancelling ctx stops the
// walk and closes the channel without a final item.
func (s *Service) ListRecursive(ctx context.Context, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, encryptedDir vaulttypes.EncryptedPath) <-chan Item {
	out := make(chan Item)
	go func() {
		defer close(out)
		s.walk(ctx, repoId, mountId, encryptedDir, vaulttypes.DecryptedPath("/"), out)
	}()
	return out
}

func (s *Service) walk(ctx context.Context, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, dir vaulttypes.EncryptedPath, relBase vaulttypes.DecryptedPath, out chan<- Item) {
	files, err := s.List(ctx, repoId, mountId, dir)
	if err != nil {
		emit(ctx, out, Item{Kind: ItemError, MountId: mountId, RemotePath: vaulttypes.RemotePath(dir), Err: err})
		return
	}

	for _, f := range files {
		if ctx.Err() != nil {
			return
		}

		if f.NameError != nil {
			if !emit(ctx, out, Item{Kind: ItemError, MountId: mountId, RemotePath: vaulttypes.RemotePath(f.EncryptedPath), Err: f.NameError}) {
				return
			}
			continue
		}

		relPath := vaulttypes.DecryptedPath(vaulttypes.RemotePath(relBase).Join(vaulttypes.RemoteName(f.DecryptedName)))

		if f.Type == store.RemoteFileTypeDir {
			s.walk(ctx, repoId, mountId, f.EncryptedPath, relPath, out)
			continue
		}

		if !emit(ctx, out, Item{Kind: ItemFile, RelativePath: relPath, File: f}) {
			return
		}
	}
}

// emit sends item on out, returning false if ctx was cancelled first.
func emit(ctx context.Context, out chan<- Item, item Item) bool {
	select {
	case out <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
