// Package transfers implements the vault core's upload/download pipeline
// engine (§4.G): a bounded-concurrency queue of Transfers, streamed through
// the repo's cipher and the Remote's chunked PUT/GET, with exponential
// backoff retry and cooperative abort.
package transfers

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/koofr/vault-sub003/internal/cipher"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// Uploadable is the caller-supplied source for an upload: its size, whether
// a failed attempt may be retried, and a fresh reader for each attempt
// (§4.G — a retried upload must be able to re-read from the start).
type Uploadable interface {
	Size() int64
	IsRetriable() bool
	Reader() (io.ReadCloser, error)
}

// DownloadWriter is the caller-supplied sink a download's decrypted content
// is written into (an open file, an in-memory buffer — left external per
// §1: the core never touches disk directly).
type DownloadWriter interface {
	io.Writer
	io.Closer
}

// RepoCiphers is the narrow slice of internal/repos.Service this package
// needs.
type RepoCiphers interface {
	CipherFor(repoId vaulttypes.RepoId) (*cipher.Cipher, error)
	TouchActivity(repoId vaulttypes.RepoId) error
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

// RemoteTransfers is the narrow slice of internal/remote.Client this package
// needs. PutFile's conditional-write precondition is left nil here: transfer
// uploads always overwrite whatever is at path (§4.G — conflict policy is
// internal/repofiles' concern, not the transfer engine's).
type RemoteTransfers interface {
	PutFile(ctx context.Context, mountId, path string, content io.Reader, size int64, cond *ConditionalWrite) (*FileRecord, error)
	GetFileReader(ctx context.Context, mountId, path string) (io.ReadCloser, int64, error)
}

// ConditionalWrite mirrors internal/remote.ConditionalWrite locally.
type ConditionalWrite struct {
	IfMatch     string
	IfNoneMatch string
}

const (
	backoffInitial = 500 * time.Millisecond
	backoffMax     = 10 * time.Second
)

// Engine pulls up to Concurrency transfers at a time off the queue, funnels
// their content through the repo cipher, and into the Remote.
type Engine struct {
	st     *store.Store
	rt     runtime.Runtime
	remote RemoteTransfers
	repos  RepoCiphers

	maxAttempts int
	sem         chan struct{}

	mu      sync.Mutex
	cancels map[vaulttypes.TransferId]context.CancelFunc
	closers map[vaulttypes.TransferId]io.Closer
}

// NewEngine constructs a transfer engine bounded to concurrency simultaneous
// transfers, each attempted at most maxAttempts times, retrying when both the failure and
// the Uploadable agree it is retriable.
func NewEngine(st *store.Store, rt runtime.Runtime, remote RemoteTransfers, repos RepoCiphers, concurrency, maxAttempts int) *Engine {
	return &Engine{
		st:          st,
		rt:          rt,
		remote:      remote,
		repos:       repos,
		maxAttempts: maxAttempts,
		sem:         make(chan struct{}, concurrency),
		cancels:     make(map[vaulttypes.TransferId]context.CancelFunc),
		closers:     make(map[vaulttypes.TransferId]io.Closer),
	}
}

func (e *Engine) enqueue(ctx context.Context, kind store.TransferKind, size int64, retryable bool) (vaulttypes.TransferId, context.Context) {
	jobCtx, cancel := context.WithCancel(ctx)
	var id vaulttypes.TransferId
	_ = e.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		id = st.Transfers.NextTransferId()
		st.Transfers.Order = append(st.Transfers.Order, id)
		st.Transfers.ById[id] = &store.Transfer{
			Id:        id,
			Kind:      kind,
			Status:    store.TransferQueued,
			Size:      size,
			Retryable: retryable,
		}
		notify(store.EventTransfers)
	})
	e.mu.Lock()
	e.cancels[id] = cancel
	e.mu.Unlock()
	return id, jobCtx
}

func (e *Engine) setStatus(id vaulttypes.TransferId, status store.TransferStatus, progress int64, lastErr error) {
	_ = e.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		t, ok := st.Transfers.ById[id]
		if !ok {
			return
		}
		t.Status = status
		if progress >= 0 {
			t.Progress = progress
		}
		t.LastError = lastErr
		notify(store.EventTransfers)
	})
}

func (e *Engine) incrementAttempts(id vaulttypes.TransferId) int {
	var attempts int
	_ = e.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		t, ok := st.Transfers.ById[id]
		if !ok {
			return
		}
		t.Attempts++
		attempts = t.Attempts
		notify(store.EventTransfers)
	})
	return attempts
}

func (e *Engine) trackCloser(id vaulttypes.TransferId, c io.Closer) {
	e.mu.Lock()
	e.closers[id] = c
	e.mu.Unlock()
}

func (e *Engine) untrack(id vaulttypes.TransferId) {
	e.mu.Lock()
	delete(e.cancels, id)
	delete(e.closers, id)
	e.mu.Unlock()
}

// Abort cancels id's in-flight request and closes its active reader,
// transitioning it to Aborted. Safe to call on a transfer that has already
// finished (a no-op in that case).
func (e *Engine) Abort(id vaulttypes.TransferId) {
	e.mu.Lock()
	cancel := e.cancels[id]
	closer := e.closers[id]
	e.mu.Unlock()
	if cancel == nil {
		return
	}

	if cancel != nil {
		cancel()
	}
	if closer != nil {
		_ = closer.Close()
	}
	e.setStatus(id, store.TransferAborted, -1, vaulterrors.New(vaulterrors.KindAborted, "transfer aborted"))
	e.untrack(id)
}

func (e *Engine) acquire(ctx context.Context) bool {
	select {
	case e.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) release() { <-e.sem }

// retryDelay returns the exponential backoff delay for the given attempt
// count (1-indexed), capped at backoffMax.
func retryDelay(attempt int) time.Duration {
	d := backoffInitial
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	return d
}

func networkRetriable(err error) bool {
	ve, ok := vaulterrors.Of(err)
	return ok && ve.Kind == vaulterrors.KindNetwork && ve.Retriable
}

func isRetriableFailure(err error, uploadable interface{ IsRetriable() bool }) bool {
	return networkRetriable(err) && uploadable.IsRetriable()
}
