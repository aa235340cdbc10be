package transfers

import (
	"context"
	"io"

	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// Upload queues an upload of uploadable to mountId/path under repoId's
// cipher and returns its transfer id immediately; the transfer itself runs
// on a worker once one of Concurrency slots frees up. The caller observes
// progress and terminal state through the store's transfers slice.
func (e *Engine) Upload(ctx context.Context, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, path vaulttypes.EncryptedPath, uploadable Uploadable) vaulttypes.TransferId {
	id, jobCtx := e.enqueue(ctx, store.TransferUpload, uploadable.Size(), uploadable.IsRetriable())
	e.rt.Spawn(func() {
		e.runUpload(jobCtx, id, repoId, mountId, path, uploadable)
	})
	return id
}

// Download queues a download of mountId/path, decrypted under repoId's
// cipher, writing into dest. Returns its transfer id immediately.
func (e *Engine) Download(ctx context.Context, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, path vaulttypes.EncryptedPath, size int64, dest DownloadWriter) vaulttypes.TransferId {
	id, jobCtx := e.enqueue(ctx, store.TransferDownload, size, true)
	e.rt.Spawn(func() {
		e.runDownload(jobCtx, id, repoId, mountId, path, dest)
	})
	return id
}

func (e *Engine) runUpload(ctx context.Context, id vaulttypes.TransferId, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, path vaulttypes.EncryptedPath, uploadable Uploadable) {
	if !e.acquire(ctx) {
		e.setStatus(id, store.TransferAborted, -1, ctx.Err())
		e.untrack(id)
		return
	}
	defer e.release()
	defer e.untrack(id)

	e.setStatus(id, store.TransferProcessing, -1, nil)

	for {
		attempt := e.incrementAttempts(id)

		if ctx.Err() != nil {
			e.setStatus(id, store.TransferAborted, -1, ctx.Err())
			return
		}

		if err := e.attemptUpload(ctx, id, repoId, mountId, path, uploadable); err != nil {
			if attempt < e.maxAttempts && isRetriableFailure(err, uploadable) {
				if sleepErr := e.rt.Sleep(ctx, retryDelay(attempt)); sleepErr != nil {
					e.setStatus(id, store.TransferAborted, -1, sleepErr)
					return
				}
				continue
			}
			e.setStatus(id, store.TransferFailed, -1, err)
			return
		}
		e.setStatus(id, store.TransferDone, uploadable.Size(), nil)
		return
	}
}

func (e *Engine) attemptUpload(ctx context.Context, id vaulttypes.TransferId, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, path vaulttypes.EncryptedPath, uploadable Uploadable) error {
	if err := e.repos.TouchActivity(repoId); err != nil {
		return err
	}
	c, err := e.repos.CipherFor(repoId)
	if err != nil {
		return err
	}

	reader, err := uploadable.Reader()
	if err != nil {
		return err
	}
	e.trackCloser(id, reader)
	defer reader.Close()

	encReader, err := c.EncryptStream(reader)
	if err != nil {
		return err
	}
	encSize := c.EncryptedSize(uploadable.Size())

	_, err = e.remote.PutFile(ctx, string(mountId), string(path), encReader, encSize, nil)
	return err
}

func (e *Engine) runDownload(ctx context.Context, id vaulttypes.TransferId, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, path vaulttypes.EncryptedPath, dest DownloadWriter) {
	if !e.acquire(ctx) {
		e.setStatus(id, store.TransferAborted, -1, ctx.Err())
		e.untrack(id)
		return
	}
	defer e.release()
	defer e.untrack(id)

	e.setStatus(id, store.TransferProcessing, -1, nil)

	for {
		attempt := e.incrementAttempts(id)

		if ctx.Err() != nil {
			e.setStatus(id, store.TransferAborted, -1, ctx.Err())
			return
		}

		n, err := e.attemptDownload(ctx, id, repoId, mountId, path, dest)
		if err != nil {
			if attempt < e.maxAttempts && networkRetriable(err) {
				if sleepErr := e.rt.Sleep(ctx, retryDelay(attempt)); sleepErr != nil {
					e.setStatus(id, store.TransferAborted, -1, sleepErr)
					return
				}
				continue
			}
			e.setStatus(id, store.TransferFailed, -1, err)
			return
		}
		e.setStatus(id, store.TransferDone, n, nil)
		return
	}
}

func (e *Engine) attemptDownload(ctx context.Context, id vaulttypes.TransferId, repoId vaulttypes.RepoId, mountId vaulttypes.MountId, path vaulttypes.EncryptedPath, dest DownloadWriter) (int64, error) {
	if err := e.repos.TouchActivity(repoId); err != nil {
		return 0, err
	}
	c, err := e.repos.CipherFor(repoId)
	if err != nil {
		return 0, err
	}

	body, _, err := e.remote.GetFileReader(ctx, string(mountId), string(path))
	if err != nil {
		return 0, err
	}
	e.trackCloser(id, body)
	defer body.Close()

	decReader, err := c.DecryptStream(body)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dest, decReader)
	if err != nil {
		return n, err
	}
	return n, nil
}
