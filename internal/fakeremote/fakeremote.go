// Package fakeremote is an in-memory stand-in for internal/remote.Client,
// implementing the same wire surface against a map instead of an HTTP
// server. Used to exercise internal/repos, internal/repofiles, and
// internal/transfers end-to-end without a network (§6).
package fakeremote

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/koofr/vault-sub003/internal/remote"
	"github.com/koofr/vault-sub003/internal/runtime"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

type node struct {
	record  remote.FileRecord
	content []byte // nil for directories
}

// FakeRemote is a single in-memory mount-and-repo backend.
type FakeRemote struct {
	rt runtime.Runtime

	mu    sync.Mutex
	files map[string]map[vaulttypes.RemotePath]*node // mountId -> path -> node
	mounts []remote.MountDTO
	repos  map[string]*remote.VaultRepoDTO
	usage  map[string]remote.SpaceUsageDTO
	user   remote.UserDTO
}

// New constructs an empty FakeRemote seeded with one primary mount.
func New(rt runtime.Runtime) *FakeRemote {
	f := &FakeRemote{
		rt:    rt,
		files: make(map[string]map[vaulttypes.RemotePath]*node),
		repos: make(map[string]*remote.VaultRepoDTO),
		usage: make(map[string]remote.SpaceUsageDTO),
	}
	f.mounts = []remote.MountDTO{{Id: "primary", Name: "My files", Online: true, IsPrimary: true}}
	f.files["primary"] = map[vaulttypes.RemotePath]*node{
		"/": {record: remote.FileRecord{Name: "", Type: "dir"}},
	}
	return f
}

// SetUser seeds the authenticated user's profile.
func (f *FakeRemote) SetUser(u remote.UserDTO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = u
}

// SetSpaceUsage seeds the used/total byte counters reported for mountId.
func (f *FakeRemote) SetSpaceUsage(mountId string, usage remote.SpaceUsageDTO) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usage[mountId] = usage
}

func (f *FakeRemote) mount(mountId string) map[vaulttypes.RemotePath]*node {
	m, ok := f.files[mountId]
	if !ok {
		m = map[vaulttypes.RemotePath]*node{"/": {record: remote.FileRecord{Name: "", Type: "dir"}}}
		f.files[mountId] = m
	}
	return m
}

// ListFiles returns path's direct children, sorted by name for a stable
// listing order.
func (f *FakeRemote) ListFiles(ctx context.Context, mountId, path string) ([]remote.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := vaulttypes.NormalizeRemotePath(path)
	m := f.mount(mountId)
	if n, ok := m[dir]; !ok || n.record.Type != "dir" {
		return nil, vaulterrors.New(vaulterrors.KindApiError, "directory not found")
	}

	var out []remote.FileRecord
	for p, n := range m {
		if p == "/" || p.Parent() != dir {
			continue
		}
		out = append(out, n.record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetFileReader returns path's content.
func (f *FakeRemote) GetFileReader(ctx context.Context, mountId, path string) (io.ReadCloser, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n, ok := f.mount(mountId)[vaulttypes.NormalizeRemotePath(path)]
	if !ok || n.record.Type != "file" {
		return nil, 0, vaulterrors.New(vaulterrors.KindApiError, "file not found")
	}
	return io.NopCloser(bytes.NewReader(n.content)), int64(len(n.content)), nil
}

// PutFile writes content at path, creating any missing parent directories,
// honoring cond's optimistic-concurrency precondition if set.
func (f *FakeRemote) PutFile(ctx context.Context, mountId, path string, content io.Reader, size int64, cond *remote.ConditionalWrite) (*remote.FileRecord, error) {
	body, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p := vaulttypes.NormalizeRemotePath(path)
	m := f.mount(mountId)

	if existing, ok := m[p]; ok && cond != nil {
		if cond.IfModified != nil && existing.record.Modified != *cond.IfModified {
			return nil, vaulterrors.New(vaulterrors.KindConflict, "modified precondition failed")
		}
		if cond.IfSize != nil && existing.record.Size != *cond.IfSize {
			return nil, vaulterrors.New(vaulterrors.KindConflict, "size precondition failed")
		}
		if cond.IfHash != "" && existing.record.Hash != cond.IfHash {
			return nil, vaulterrors.New(vaulterrors.KindConflict, "hash precondition failed")
		}
	}

	f.mkdirAll(m, p.Parent())

	sum := sha256.Sum256(body)
	record := remote.FileRecord{
		Name:        string(p.Name()),
		Type:        "file",
		Modified:    f.rt.Now(),
		Size:        int64(len(body)),
		ContentType: "application/octet-stream",
		Hash:        hex.EncodeToString(sum[:]),
	}
	m[p] = &node{record: record, content: body}
	return &record, nil
}

func (f *FakeRemote) mkdirAll(m map[vaulttypes.RemotePath]*node, dir vaulttypes.RemotePath) {
	if dir == "/" {
		return
	}
	if _, ok := m[dir]; ok {
		return
	}
	f.mkdirAll(m, dir.Parent())
	m[dir] = &node{record: remote.FileRecord{Name: string(dir.Name()), Type: "dir", Modified: f.rt.Now()}}
}

// DeleteFile removes path and, if it is a directory, everything beneath it.
func (f *FakeRemote) DeleteFile(ctx context.Context, mountId, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	p := vaulttypes.NormalizeRemotePath(path)
	m := f.mount(mountId)
	prefix := string(p) + "/"
	for candidate := range m {
		if candidate == p || strings.HasPrefix(string(candidate), prefix) {
			delete(m, candidate)
		}
	}
	return nil
}

func (f *FakeRemote) moveOrCopy(ctx context.Context, mountId, src, dest string, overwrite, remove bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	srcPath := vaulttypes.NormalizeRemotePath(src)
	destPath := vaulttypes.NormalizeRemotePath(dest)
	m := f.mount(mountId)

	n, ok := m[srcPath]
	if !ok {
		return vaulterrors.New(vaulterrors.KindApiError, "source not found")
	}
	if _, exists := m[destPath]; exists && !overwrite {
		return vaulterrors.New(vaulterrors.KindConflict, "destination already exists")
	}

	f.mkdirAll(m, destPath.Parent())
	moved := *n
	moved.record.Name = string(destPath.Name())
	m[destPath] = &moved
	if remove {
		delete(m, srcPath)
	}
	return nil
}

// MoveFile relocates src to dest, failing with KindConflict if dest exists
// and overwrite is false.
func (f *FakeRemote) MoveFile(ctx context.Context, mountId, src, dest string, overwrite bool) error {
	return f.moveOrCopy(ctx, mountId, src, dest, overwrite, true)
}

// CopyFile duplicates src at dest, failing with KindConflict if dest exists
// and overwrite is false.
func (f *FakeRemote) CopyFile(ctx context.Context, mountId, src, dest string, overwrite bool) error {
	return f.moveOrCopy(ctx, mountId, src, dest, overwrite, false)
}

// ListMounts returns the seeded mounts.
func (f *FakeRemote) ListMounts(ctx context.Context) ([]remote.MountDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.MountDTO, len(f.mounts))
	copy(out, f.mounts)
	return out, nil
}

// GetSpaceUsage returns the seeded usage for mountId, or zero values.
func (f *FakeRemote) GetSpaceUsage(ctx context.Context, mountId string) (*remote.SpaceUsageDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	usage := f.usage[mountId]
	return &usage, nil
}

// GetUser returns the seeded user profile.
func (f *FakeRemote) GetUser(ctx context.Context) (*remote.UserDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.user
	return &u, nil
}

// ListVaultRepos returns every repo created via CreateVaultRepo.
func (f *FakeRemote) ListVaultRepos(ctx context.Context) ([]remote.VaultRepoDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.VaultRepoDTO, 0, len(f.repos))
	for _, r := range f.repos {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Id < out[j].Id })
	return out, nil
}

// CreateVaultRepo registers a new repo entry under a fresh uuid.
func (f *FakeRemote) CreateVaultRepo(ctx context.Context, req remote.CreateVaultRepoRequest) (*remote.VaultRepoDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dto := &remote.VaultRepoDTO{
		Id:                         uuid.NewString(),
		Name:                       req.Name,
		MountId:                    req.MountId,
		Path:                       req.Path,
		Salt:                       req.Salt,
		PasswordValidator:          req.PasswordValidator,
		PasswordValidatorEncrypted: req.PasswordValidatorEncrypted,
		AddedMs:                    f.rt.Now(),
	}
	f.repos[dto.Id] = dto
	cp := *dto
	return &cp, nil
}

// RemoveVaultRepo deletes repoId's entry.
func (f *FakeRemote) RemoveVaultRepo(ctx context.Context, repoId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.repos[repoId]; !ok {
		return vaulterrors.New(vaulterrors.KindRepoNotFound, "repo not found")
	}
	delete(f.repos, repoId)
	return nil
}

// GetVaultRepoConfig returns repoId's entry.
func (f *FakeRemote) GetVaultRepoConfig(ctx context.Context, repoId string) (*remote.VaultRepoDTO, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dto, ok := f.repos[repoId]
	if !ok {
		return nil, vaulterrors.New(vaulterrors.KindRepoNotFound, "repo not found")
	}
	cp := *dto
	return &cp, nil
}
