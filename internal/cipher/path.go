package cipher

import (
	"strings"

	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

// EncryptPath maps each segment of a normalized path through EncryptFilename,
// preserving normalization and the root (Testable Property 3:
// encrypt_path(root) == root).
func (c *Cipher) EncryptPath(path vaulttypes.RemotePath) (vaulttypes.EncryptedPath, error) {
	segments := path.Segments()
	if len(segments) == 0 {
		return vaulttypes.EncryptedPath("/"), nil
	}
	encrypted := make([]string, 0, len(segments))
	for _, segment := range segments {
		enc, err := c.EncryptFilename(segment)
		if err != nil {
			return "", err
		}
		encrypted = append(encrypted, enc)
	}
	return vaulttypes.EncryptedPath("/" + strings.Join(encrypted, "/")), nil
}

// DecryptPath inverts EncryptPath segment-by-segment. A per-segment failure
// is returned immediately with DecryptFilenameError; callers that need
// partial-failure tolerance (§4.F listing) decrypt names individually
// instead of calling DecryptPath on a whole directory tree.
func (c *Cipher) DecryptPath(path vaulttypes.EncryptedPath) (vaulttypes.DecryptedPath, error) {
	segments := vaulttypes.RemotePath(path).Segments()
	if len(segments) == 0 {
		return vaulttypes.DecryptedPath("/"), nil
	}
	decrypted := make([]string, 0, len(segments))
	for _, segment := range segments {
		dec, err := c.DecryptFilename(segment)
		if err != nil {
			return "", err
		}
		decrypted = append(decrypted, dec)
	}
	return vaulttypes.DecryptedPath("/" + strings.Join(decrypted, "/")), nil
}
