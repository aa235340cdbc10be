// Package repos implements the vault core's repository lifecycle (§4.E):
// the Locked/Unlocking/Unlocked state machine, the process-local cipher
// registry backing it, the 1Hz auto-lock sweeper, logout, and the
// create/remove/config-backup operations a real vault cannot do without
// (§4.G.1, §4.G.2 of SPEC_FULL.md).
package repos

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/koofr/vault-sub003/internal/cipher"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/store"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// RemoteClient is the narrow slice of internal/remote.Client this package
// needs, kept local to avoid every service importing remote's full surface.
type RemoteClient interface {
	CreateVaultRepo(ctx context.Context, req CreateVaultRepoRequest) (*VaultRepoDTO, error)
	RemoveVaultRepo(ctx context.Context, repoId string) error
}

// CreateVaultRepoRequest and VaultRepoDTO mirror internal/remote's wire DTOs
// locally so this package does not need to import internal/remote just to
// name the RemoteClient interface's method signatures.
type CreateVaultRepoRequest struct {
	Name                       string
	MountId                    string
	Path                       string
	Salt                       string
	PasswordValidator          string
	PasswordValidatorEncrypted string
}

type VaultRepoDTO struct {
	Id                         string
	Name                       string
	MountId                    string
	Path                       string
	Salt                       string
	PasswordValidator          string
	PasswordValidatorEncrypted string
	AddedMs                    int64
}

// Service drives the repo lifecycle state machine described by §4.E.
type Service struct {
	st       *store.Store
	rt       runtime.Runtime
	remote   RemoteClient
	registry *cipherRegistry
}

// NewService constructs a repo lifecycle service.
func NewService(st *store.Store, rt runtime.Runtime, remote RemoteClient) *Service {
	return &Service{st: st, rt: rt, remote: remote, registry: newCipherRegistry()}
}

type repoSnapshot struct {
	name                       string
	mountId                    vaulttypes.MountId
	path                       vaulttypes.RemotePath
	salt                       string
	passwordValidator          string
	passwordValidatorEncrypted string
}

func (s *Service) snapshot(repoId vaulttypes.RepoId) (repoSnapshot, error) {
	var snap repoSnapshot
	found := false
	err := s.st.WithState(func(st *store.State) {
		r, ok := st.Repos.ById[repoId]
		if !ok {
			return
		}
		found = true
		snap = repoSnapshot{
			name:                       r.Name,
			mountId:                    r.MountId,
			path:                       r.Path,
			salt:                       r.Salt,
			passwordValidator:          r.PasswordValidator,
			passwordValidatorEncrypted: r.PasswordValidatorEncrypted,
		}
	})
	if err != nil {
		return repoSnapshot{}, err
	}
	if !found {
		return repoSnapshot{}, vaulterrors.New(vaulterrors.KindRepoNotFound, "repo not found")
	}
	return snap, nil
}

// Unlock implements §4.E's unlock flow: mark Unlocking under the writer
// lock, derive the cipher and validate the password outside it, then
// install the cipher and transition to Unlocked (or back to Locked on
// mismatch) under the lock again.
func (s *Service) Unlock(ctx context.Context, repoId vaulttypes.RepoId, password string) error {
	snap, err := s.snapshot(repoId)
	if err != nil {
		return err
	}

	if err := s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		r, ok := st.Repos.ById[repoId]
		if !ok {
			return
		}
		r.State = store.RepoUnlocking
		notify(store.EventRepos)
	}); err != nil {
		return err
	}

	c, err := cipher.Derive(password, snap.salt)
	if err != nil {
		_ = s.setLocked(repoId)
		return err
	}
	valid, err := c.CheckPasswordValidator(snap.passwordValidatorEncrypted)
	if err != nil {
		_ = s.setLocked(repoId)
		return err
	}
	if !valid {
		_ = s.setLocked(repoId)
		return vaulterrors.New(vaulterrors.KindInvalidPassword, "incorrect password")
	}

	handle := s.registry.install(c)
	now := s.rt.Now()
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		r, ok := st.Repos.ById[repoId]
		if !ok {
			s.registry.drop(handle)
			return
		}
		r.State = store.RepoUnlocked
		r.CipherHandle = handle
		r.LastActivityMs = now
		notify(store.EventRepos)
	})
}

func (s *Service) setLocked(repoId vaulttypes.RepoId) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		r, ok := st.Repos.ById[repoId]
		if !ok {
			return
		}
		r.State = store.RepoLocked
		notify(store.EventRepos)
	})
}

// Lock drops repoId's cipher from the registry and transitions it to
// Locked. Idempotent on an already-locked repo.
func (s *Service) Lock(repoId vaulttypes.RepoId) error {
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		r, ok := st.Repos.ById[repoId]
		if !ok {
			return
		}
		if r.CipherHandle != "" {
			s.registry.drop(r.CipherHandle)
		}
		r.State = store.RepoLocked
		r.CipherHandle = ""
		r.LastActivityMs = 0
		notify(store.EventRepos)
	})
}

// TouchActivity refreshes repoId's LastActivityMs if it is Unlocked; any
// access through the Repo Files Service MUST call this (§4.E).
func (s *Service) TouchActivity(repoId vaulttypes.RepoId) error {
	now := s.rt.Now()
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		r, ok := st.Repos.ById[repoId]
		if !ok || r.State != store.RepoUnlocked {
			return
		}
		r.LastActivityMs = now
		notify(store.EventRepos)
	})
}

// CipherFor resolves the live cipher for an Unlocked repo, used by
// internal/repofiles and internal/transfers to encrypt/decrypt names and
// content. Returns KindRepoLocked if the repo is not currently unlocked.
func (s *Service) CipherFor(repoId vaulttypes.RepoId) (*cipher.Cipher, error) {
	var handle string
	found := false
	if err := s.st.WithState(func(st *store.State) {
		r, ok := st.Repos.ById[repoId]
		if !ok || r.State != store.RepoUnlocked {
			return
		}
		handle = r.CipherHandle
		found = true
	}); err != nil {
		return nil, err
	}
	if !found {
		return nil, vaulterrors.New(vaulterrors.KindRepoLocked, "repo is locked")
	}
	c, ok := s.registry.get(handle)
	if !ok {
		return nil, vaulterrors.New(vaulterrors.KindRepoLocked, "repo is locked")
	}
	return c, nil
}

// SweepAutoLock runs one tick of the auto-lock sweeper (§4.E): any Unlocked
// repo whose inactivity exceeds AutoLock.After, or whose AutoLock.OnAppHidden
// fires while the app is Hidden, is locked.
func (s *Service) SweepAutoLock() error {
	now := s.rt.Now()
	var toLock []vaulttypes.RepoId
	if err := s.st.WithState(func(st *store.State) {
		hidden := st.Lifecycle.AppVisibility == store.AppHidden
		for id, r := range st.Repos.ById {
			if r.State != store.RepoUnlocked || r.AutoLock == nil {
				continue
			}
			shouldLock := now-r.LastActivityMs > r.AutoLock.After
			if r.AutoLock.OnAppHidden && hidden {
				shouldLock = true
			}
			if shouldLock {
				toLock = append(toLock, id)
			}
		}
	}); err != nil {
		return err
	}
	for _, id := range toLock {
		if err := s.Lock(id); err != nil {
			return err
		}
	}
	return nil
}

// RunAutoLockSweeper runs SweepAutoLock once per interval until ctx is
// cancelled or the sweep itself fails (e.g. a poisoned store).
func (s *Service) RunAutoLockSweeper(ctx context.Context, interval time.Duration) error {
	for {
		if err := s.SweepAutoLock(); err != nil {
			return err
		}
		if err := s.rt.Sleep(ctx, interval); err != nil {
			return nil
		}
	}
}

// Logout locks every unlocked repo, then resets every slice in the store
// (§4.E) — callers must not skip the lock pass, since Store.Reset alone
// would drop Repo entries without releasing their registered ciphers.
func (s *Service) Logout() error {
	var ids []vaulttypes.RepoId
	if err := s.st.WithState(func(st *store.State) {
		for id, r := range st.Repos.ById {
			if r.State == store.RepoUnlocked {
				ids = append(ids, id)
			}
		}
	}); err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.Lock(id); err != nil {
			return err
		}
	}
	return s.st.Reset()
}

// CreateRepo registers a new encrypted vault at (mountId, path): it derives
// a fresh cipher from password and a freshly generated salt, asks Remote to
// create the repo entry, and stores it Locked (§4.G.2 supplement — spec.md
// names repo lifecycle but a repo that can only ever be unlocked, never
// created, would be untestable end-to-end).
func (s *Service) CreateRepo(ctx context.Context, name string, mountId vaulttypes.MountId, path vaulttypes.RemotePath, password string) (vaulttypes.RepoId, error) {
	salt, err := generateSalt()
	if err != nil {
		return "", err
	}
	c, err := cipher.Derive(password, salt)
	if err != nil {
		return "", err
	}
	encryptedValidator, err := c.EncryptPasswordValidator()
	if err != nil {
		return "", err
	}

	dto, err := s.remote.CreateVaultRepo(ctx, CreateVaultRepoRequest{
		Name:                       name,
		MountId:                    string(mountId),
		Path:                       string(path),
		Salt:                       salt,
		PasswordValidator:          cipher.PasswordValidator,
		PasswordValidatorEncrypted: encryptedValidator,
	})
	if err != nil {
		return "", err
	}

	repoId := vaulttypes.RepoId(dto.Id)
	if err := s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		st.Repos.ById[repoId] = &store.Repo{
			Id:                         repoId,
			Name:                       dto.Name,
			MountId:                    vaulttypes.MountId(dto.MountId),
			Path:                       vaulttypes.RemotePath(dto.Path),
			Salt:                       dto.Salt,
			PasswordValidator:          dto.PasswordValidator,
			PasswordValidatorEncrypted: dto.PasswordValidatorEncrypted,
			AddedMs:                    dto.AddedMs,
			State:                      store.RepoLocked,
		}
		notify(store.EventRepos)
	}); err != nil {
		return "", err
	}
	return repoId, nil
}

// RemoveRepo locks repoId (dropping its cipher, if any), asks Remote to
// delete the vault entry, then removes it from the store.
func (s *Service) RemoveRepo(ctx context.Context, repoId vaulttypes.RepoId) error {
	if err := s.Lock(repoId); err != nil {
		return err
	}
	if err := s.remote.RemoveVaultRepo(ctx, string(repoId)); err != nil {
		return err
	}
	return s.st.Mutate(func(st *store.State, notify store.NotifyFunc) {
		delete(st.Repos.ById, repoId)
		notify(store.EventRepos)
	})
}

func generateSalt() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
