package transfers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/koofr/vault-sub003/internal/cipher"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

type fakeRepoCiphers struct {
	cipher *cipher.Cipher
	locked bool
}

func (f *fakeRepoCiphers) CipherFor(repoId vaulttypes.RepoId) (*cipher.Cipher, error) {
	if f.locked {
		return nil, vaulterrors.New(vaulterrors.KindRepoLocked, "locked")
	}
	return f.cipher, nil
}

func (f *fakeRepoCiphers) TouchActivity(repoId vaulttypes.RepoId) error { return nil }

func newTestCipher(t *testing.T) *cipher.Cipher {
	t.Helper()
	c, err := cipher.Derive("p", "s")
	if err != nil {
		t.Fatalf("cipher.Derive failed: %v", err)
	}
	return c
}

type fakeRemoteTransfers struct {
	mu        sync.Mutex
	puts      map[string][]byte
	failNext  []error
	downloads map[string][]byte
}

func newFakeRemoteTransfers() *fakeRemoteTransfers {
	return &fakeRemoteTransfers{puts: make(map[string][]byte), downloads: make(map[string][]byte)}
}

func (f *fakeRemoteTransfers) PutFile(ctx context.Context, mountId, path string, content io.Reader, size int64, cond *ConditionalWrite) (*FileRecord, error) {
	f.mu.Lock()
	var next error
	if len(f.failNext) > 0 {
		next = f.failNext[0]
		f.failNext = f.failNext[1:]
	}
	f.mu.Unlock()
	if next != nil {
		return nil, next
	}
	body, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.puts[mountId+path] = body
	f.mu.Unlock()
	return &FileRecord{Name: path, Size: int64(len(body))}, nil
}

func (f *fakeRemoteTransfers) GetFileReader(ctx context.Context, mountId, path string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	body := f.downloads[mountId+path]
	f.mu.Unlock()
	return io.NopCloser(bytes.NewReader(body)), int64(len(body)), nil
}

type bytesUploadable struct {
	data      []byte
	retriable bool
	reads     int
}

func (b *bytesUploadable) Size() int64       { return int64(len(b.data)) }
func (b *bytesUploadable) IsRetriable() bool { return b.retriable }
func (b *bytesUploadable) Reader() (io.ReadCloser, error) {
	b.reads++
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

type bufferSink struct {
	bytes.Buffer
}

func (b *bufferSink) Close() error { return nil }

func waitForTerminal(t *testing.T, st *store.Store, id vaulttypes.TransferId) *store.Transfer {
	t.Helper()
	var out *store.Transfer
	for i := 0; i < 1000; i++ {
		_ = st.WithState(func(s *store.State) {
			tr, ok := s.Transfers.ById[id]
			if !ok {
				return
			}
			if tr.Status == store.TransferDone || tr.Status == store.TransferFailed || tr.Status == store.TransferAborted {
				cp := *tr
				out = &cp
			}
		})
		if out != nil {
			return out
		}
	}
	t.Fatalf("transfer %v never reached a terminal state", id)
	return nil
}

func TestUploadEncryptsAndCompletes(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	remote := newFakeRemoteTransfers()
	c := newTestCipher(t)
	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{cipher: c}, 4, 5)

	up := &bytesUploadable{data: []byte("hello world"), retriable: true}
	id := engine.Upload(context.Background(), "r1", "m1", "/a.enc", up)

	tr := waitForTerminal(t, st, id)
	if tr.Status != store.TransferDone {
		t.Fatalf("expected Done, got %v (err=%v)", tr.Status, tr.LastError)
	}

	stored := remote.puts["m1/a.enc"]
	if bytes.Equal(stored, up.data) {
		t.Fatal("expected the remote to receive ciphertext, not plaintext")
	}
	if int64(len(stored)) != c.EncryptedSize(up.Size()) {
		t.Fatalf("expected ciphertext size %d, got %d", c.EncryptedSize(up.Size()), len(stored))
	}
}

func TestUploadRetriesOnRetriableNetworkFailure(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	remote := newFakeRemoteTransfers()
	remote.failNext = []error{vaulterrors.Network(errors.New("timeout"), true)}
	c := newTestCipher(t)
	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{cipher: c}, 4, 5)

	up := &bytesUploadable{data: []byte("retry me"), retriable: true}
	id := engine.Upload(context.Background(), "r1", "m1", "/b.enc", up)

	tr := waitForTerminal(t, st, id)
	if tr.Status != store.TransferDone {
		t.Fatalf("expected Done after retry, got %v (err=%v)", tr.Status, tr.LastError)
	}
	if tr.Attempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", tr.Attempts)
	}
	if up.reads != 2 {
		t.Fatalf("expected the uploadable to be re-read on retry, got %d reads", up.reads)
	}
}

func TestUploadFailsWhenUploadableIsNotRetriable(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	remote := newFakeRemoteTransfers()
	remote.failNext = []error{vaulterrors.Network(errors.New("timeout"), true)}
	c := newTestCipher(t)
	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{cipher: c}, 4, 5)

	up := &bytesUploadable{data: []byte("no retry"), retriable: false}
	id := engine.Upload(context.Background(), "r1", "m1", "/c.enc", up)

	tr := waitForTerminal(t, st, id)
	if tr.Status != store.TransferFailed {
		t.Fatalf("expected Failed, got %v", tr.Status)
	}
	if tr.Attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", tr.Attempts)
	}
}

func TestUploadFailsAfterMaxAttemptsExhausted(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	remote := newFakeRemoteTransfers()
	for i := 0; i < 10; i++ {
		remote.failNext = append(remote.failNext, vaulterrors.Network(errors.New("timeout"), true))
	}
	c := newTestCipher(t)
	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{cipher: c}, 4, 3)

	up := &bytesUploadable{data: []byte("always fails"), retriable: true}
	id := engine.Upload(context.Background(), "r1", "m1", "/d.enc", up)

	tr := waitForTerminal(t, st, id)
	if tr.Status != store.TransferFailed {
		t.Fatalf("expected Failed, got %v", tr.Status)
	}
	if tr.Attempts != 3 {
		t.Fatalf("expected 3 attempts (maxAttempts), got %d", tr.Attempts)
	}
}

func TestDownloadDecrypts(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	remote := newFakeRemoteTransfers()
	c := newTestCipher(t)

	plaintext := []byte("downloaded content")
	encReader, err := c.EncryptStream(bytes.NewReader(plaintext))
	if err != nil {
		t.Fatal(err)
	}
	ciphertext, err := io.ReadAll(encReader)
	if err != nil {
		t.Fatal(err)
	}
	remote.downloads["m1/e.enc"] = ciphertext

	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{cipher: c}, 4, 5)
	sink := &bufferSink{}
	id := engine.Download(context.Background(), "r1", "m1", "/e.enc", int64(len(plaintext)), sink)

	tr := waitForTerminal(t, st, id)
	if tr.Status != store.TransferDone {
		t.Fatalf("expected Done, got %v (err=%v)", tr.Status, tr.LastError)
	}
	if sink.String() != string(plaintext) {
		t.Fatalf("expected decrypted content %q, got %q", plaintext, sink.String())
	}
}

func TestAbortStopsAndMarksTransferAborted(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	rt.Async = true
	remote := newFakeRemoteTransfers()
	c := newTestCipher(t)
	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{cipher: c}, 1, 5)

	up := &bytesUploadable{data: []byte("will be aborted"), retriable: true}
	id := engine.Upload(context.Background(), "r1", "m1", "/f.enc", up)
	engine.Abort(id)
	rt.Drain()

	var tr *store.Transfer
	_ = st.WithState(func(s *store.State) {
		cp := *s.Transfers.ById[id]
		tr = &cp
	})
	if tr.Status != store.TransferAborted {
		t.Fatalf("expected Aborted, got %v", tr.Status)
	}
}

func TestUploadFailsImmediatelyWhenRepoIsLocked(t *testing.T) {
	st := store.New(nil)
	rt := runtime.NewFake(0)
	remote := newFakeRemoteTransfers()
	engine := NewEngine(st, rt, remote, &fakeRepoCiphers{locked: true}, 4, 5)

	up := &bytesUploadable{data: []byte("locked"), retriable: true}
	id := engine.Upload(context.Background(), "r1", "m1", "/g.enc", up)

	tr := waitForTerminal(t, st, id)
	if tr.Status != store.TransferFailed {
		t.Fatalf("expected Failed for a locked repo, got %v", tr.Status)
	}
	if vaulterrors.KindOf(tr.LastError) != vaulterrors.KindRepoLocked {
		t.Fatalf("expected KindRepoLocked, got %v", tr.LastError)
	}
}
