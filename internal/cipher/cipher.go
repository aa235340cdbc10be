// Package cipher implements the vault core's repository cryptography:
// deterministic filename/path encryption and streaming content encryption,
// both derived from a passphrase and optional salt, grounded on the
// chacha20poly1305 AEAD + scrypt KDF stack the example pack uses for
// symmetric encryption (golang.org/x/crypto).
package cipher

import (
	stdcipher "crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// PasswordValidator is the fixed public plaintext whose ciphertext under the
// repo key is stored as PasswordValidatorEncrypted; unlocking compares the
// decrypted value against this constant instead of trusting a generic
// decrypt success (§4.B).
const PasswordValidator = "Koofr-Vault-Password-Validator"

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	keyLen       = chacha20poly1305.KeySize
	nameKeyLabel = "vaultcore-filename-v1:"
)

// DecryptFilenameError is returned by DecryptFilename/DecryptPath when a
// segment fails to decrypt — a corrupt or foreign-key name, not a generic
// crypto failure.
var DecryptFilenameError = errors.New("cipher: filename could not be decrypted")

// Cipher is a keyed encryptor/decryptor derived from a passphrase and an
// optional salt. It is never serialized; the repos package stores only an
// opaque handle into the process-local cipher registry (§3 Ownership).
type Cipher struct {
	key  []byte
	aead stdcipher.AEAD
}

// Derive builds a Cipher from (passphrase, salt). An empty salt is valid —
// callers that omit a salt get a cipher derived from the passphrase alone.
func Derive(passphrase, salt string) (*Cipher, error) {
	key, err := scrypt.Key([]byte(passphrase), []byte(salt), scryptN, scryptR, scryptP, keyLen)
	if err != nil {
		return nil, fmt.Errorf("cipher: key derivation failed: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("cipher: aead init failed: %w", err)
	}
	return &Cipher{key: key, aead: aead}, nil
}

// EncryptPasswordValidator encrypts PasswordValidator under this cipher for
// storage as Repo.PasswordValidatorEncrypted at repo-creation time.
func (c *Cipher) EncryptPasswordValidator() (string, error) {
	return c.encryptDeterministic("password-validator", PasswordValidator)
}

// CheckPasswordValidator decrypts encryptedValidator and compares it against
// PasswordValidator bit-for-bit. A ciphertext this cipher cannot open (a
// wrong password or corrupt data alike) and a decrypted value that does not
// match both yield (false, nil); the returned error is always nil.
func (c *Cipher) CheckPasswordValidator(encryptedValidator string) (bool, error) {
	plain, err := c.decryptDeterministic("password-validator", encryptedValidator)
	if err != nil {
		return false, nil
	}
	return hmac.Equal([]byte(plain), []byte(PasswordValidator)), nil
}

// nonceFor derives a deterministic per-purpose, per-plaintext nonce so
// repeated calls with the same input are byte-identical (required for
// EncryptFilename's determinism invariant) while different inputs get
// different nonces.
func (c *Cipher) nonceFor(purpose, plaintext string) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(nameKeyLabel))
	mac.Write([]byte(purpose))
	mac.Write([]byte{0})
	mac.Write([]byte(plaintext))
	sum := mac.Sum(nil)
	return sum[:c.aead.NonceSize()]
}

func (c *Cipher) encryptDeterministic(purpose, plaintext string) (string, error) {
	nonce := c.nonceFor(purpose, plaintext)
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	out := append(append([]byte(nil), nonce...), sealed...)
	return base64.RawURLEncoding.EncodeToString(out), nil
}

func (c *Cipher) decryptDeterministic(purpose, encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", DecryptFilenameError
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", DecryptFilenameError
	}
	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", DecryptFilenameError
	}
	_ = purpose
	return string(plain), nil
}

// EncryptFilename deterministically maps a plaintext name to its encrypted
// form: repeated calls with the same name yield byte-identical output
// (Testable Property 2).
func (c *Cipher) EncryptFilename(name string) (string, error) {
	return c.encryptDeterministic("filename", name)
}

// DecryptFilename inverts EncryptFilename, returning DecryptFilenameError
// (never a generic error) on failure.
func (c *Cipher) DecryptFilename(encrypted string) (string, error) {
	return c.decryptDeterministic("filename", encrypted)
}
