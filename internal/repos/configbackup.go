package repos

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/klauspost/compress/gzip"

	"github.com/koofr/vault-sub003/internal/cipher"
	"github.com/koofr/vault-sub003/internal/vaulterrors"
	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// RepoConfig is the exported shape of a repo's configuration, serialized as
// gzip-compressed JSON by ConfigBackupService.Generate (§4.G.1).
type RepoConfig struct {
	RepoId                     vaulttypes.RepoId     `json:"repoId"`
	Name                       string                `json:"name"`
	MountId                    vaulttypes.MountId    `json:"mountId"`
	Path                       vaulttypes.RemotePath  `json:"path"`
	Salt                       string                `json:"salt,omitempty"`
	PasswordValidator          string                `json:"passwordValidator"`
	PasswordValidatorEncrypted string                `json:"passwordValidatorEncrypted"`
}

// ConfigBackupService produces a downloadable config-backup blob for a repo,
// reusing Service's password-validation path without disturbing the repo's
// actual lock state (§4.G.1 — spec.md names "config backup" as part of Repo
// Lifecycle without detailing it; original_source's repo_config_backup
// module drives this off the same unlock flow).
type ConfigBackupService struct {
	repos *Service
}

// NewConfigBackupService constructs a ConfigBackupService sharing repos'
// snapshot/cipher-derivation logic.
func NewConfigBackupService(repos *Service) *ConfigBackupService {
	return &ConfigBackupService{repos: repos}
}

// Generate validates password against repoId exactly as Unlock does, then
// returns a gzip-compressed JSON RepoConfig blob on success.
func (b *ConfigBackupService) Generate(ctx context.Context, repoId vaulttypes.RepoId, password string) ([]byte, error) {
	snap, err := b.repos.snapshot(repoId)
	if err != nil {
		return nil, err
	}

	c, err := cipher.Derive(password, snap.salt)
	if err != nil {
		return nil, err
	}
	valid, err := c.CheckPasswordValidator(snap.passwordValidatorEncrypted)
	if err != nil {
		return nil, err
	}
	if !valid {
		return nil, vaulterrors.New(vaulterrors.KindInvalidPassword, "incorrect password")
	}

	cfg := RepoConfig{
		RepoId:                     repoId,
		Name:                       snap.name,
		MountId:                    snap.mountId,
		Path:                       snap.path,
		Salt:                       snap.salt,
		PasswordValidator:          snap.passwordValidator,
		PasswordValidatorEncrypted: snap.passwordValidatorEncrypted,
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(raw); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
