package repos

import (
	"strconv"
	"sync"

	"github.com/koofr/vault-sub003/internal/cipher"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// cipherRegistry is the process-local table of unlocked repo ciphers (§3
// Ownership: "Unlocked repo ciphers are owned by a per-process cipher
// registry keyed by RepoId"). Repo.CipherHandle is an opaque key into this
// table rather than the RepoId itself so a handle captured before a
// lock/relock cycle can never silently resolve to a newer cipher installed
// under the same repo id.
type cipherRegistry struct {
	mu      sync.RWMutex
	nextID  vaulttypes.NextId
	ciphers map[string]*cipher.Cipher
}

func newCipherRegistry() *cipherRegistry {
	return &cipherRegistry{ciphers: make(map[string]*cipher.Cipher)}
}

// install stores c under a freshly allocated handle and returns it.
func (r *cipherRegistry) install(c *cipher.Cipher) string {
	handle := strconv.FormatUint(r.nextID.Next(), 10)
	r.mu.Lock()
	r.ciphers[handle] = c
	r.mu.Unlock()
	return handle
}

// get resolves handle to its cipher, if still registered.
func (r *cipherRegistry) get(handle string) (*cipher.Cipher, bool) {
	if handle == "" {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ciphers[handle]
	return c, ok
}

// drop discards handle's cipher, if any. Idempotent.
func (r *cipherRegistry) drop(handle string) {
	if handle == "" {
		return
	}
	r.mu.Lock()
	delete(r.ciphers, handle)
	r.mu.Unlock()
}
