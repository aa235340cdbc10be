package cipher

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/koofr/vault-sub003/internal/vaulttypes"
)

func mustDerive(t *testing.T, passphrase, salt string) *Cipher {
	t.Helper()
	c, err := Derive(passphrase, salt)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}
	return c
}

func TestFilenameDeterminism(t *testing.T) {
	c := mustDerive(t, "hunter2", "abc")

	first, err := c.EncryptFilename("budget.xlsx")
	if err != nil {
		t.Fatalf("EncryptFilename failed: %v", err)
	}
	second, err := c.EncryptFilename("budget.xlsx")
	if err != nil {
		t.Fatalf("EncryptFilename failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected deterministic output, got %q and %q", first, second)
	}

	decrypted, err := c.DecryptFilename(first)
	if err != nil {
		t.Fatalf("DecryptFilename failed: %v", err)
	}
	if decrypted != "budget.xlsx" {
		t.Fatalf("round-trip mismatch: got %q", decrypted)
	}
}

func TestDecryptFilenameRejectsGarbage(t *testing.T) {
	c := mustDerive(t, "hunter2", "abc")
	if _, err := c.DecryptFilename("not-valid-base64!!"); err != DecryptFilenameError {
		t.Fatalf("expected DecryptFilenameError, got %v", err)
	}
}

func TestPasswordValidatorRoundTrip(t *testing.T) {
	c := mustDerive(t, "correct-horse", "salt1")
	encrypted, err := c.EncryptPasswordValidator()
	if err != nil {
		t.Fatalf("EncryptPasswordValidator failed: %v", err)
	}

	ok, err := c.CheckPasswordValidator(encrypted)
	if err != nil {
		t.Fatalf("CheckPasswordValidator returned unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected password validator to match")
	}

	wrong := mustDerive(t, "wrong-password", "salt1")
	ok, err = wrong.CheckPasswordValidator(encrypted)
	if err != nil {
		t.Fatalf("CheckPasswordValidator returned unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected password validator mismatch for wrong passphrase")
	}
}

func TestPathRoundTripAndRootPreserved(t *testing.T) {
	c := mustDerive(t, "hunter2", "abc")

	root, err := c.EncryptPath(vaulttypes.NormalizeRemotePath("/"))
	if err != nil {
		t.Fatalf("EncryptPath(root) failed: %v", err)
	}
	if root != vaulttypes.EncryptedPath("/") {
		t.Fatalf("expected encrypt_path(root) == root, got %q", root)
	}

	path := vaulttypes.NormalizeRemotePath("/docs/2024/report.pdf")
	encrypted, err := c.EncryptPath(path)
	if err != nil {
		t.Fatalf("EncryptPath failed: %v", err)
	}
	decrypted, err := c.DecryptPath(encrypted)
	if err != nil {
		t.Fatalf("DecryptPath failed: %v", err)
	}
	if string(decrypted) != string(path) {
		t.Fatalf("path round-trip mismatch: got %q want %q", decrypted, path)
	}
}

func TestPathNormalizationIsIdempotent(t *testing.T) {
	raw := "/a/./b/../c//d/"
	once := vaulttypes.NormalizeRemotePath(raw)
	twice := once.Normalize()
	if once != twice {
		t.Fatalf("normalize(normalize(p)) != normalize(p): %q vs %q", twice, once)
	}
}

func TestStreamRoundTripSmall(t *testing.T) {
	c := mustDerive(t, "hunter2", "abc")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	encReader, err := c.EncryptStream(bytes.NewReader(plaintext))
	if err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}
	ciphertext, err := io.ReadAll(encReader)
	if err != nil {
		t.Fatalf("reading ciphertext failed: %v", err)
	}

	decReader, err := c.DecryptStream(bytes.NewReader(ciphertext))
	if err != nil {
		t.Fatalf("DecryptStream failed: %v", err)
	}
	recovered, err := io.ReadAll(decReader)
	if err != nil {
		t.Fatalf("reading plaintext failed: %v", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("round-trip mismatch: got %q want %q", recovered, plaintext)
	}

	if int64(len(ciphertext)) != c.EncryptedSize(int64(len(plaintext))) {
		t.Fatalf("EncryptedSize mismatch: predicted %d, actual %d", c.EncryptedSize(int64(len(plaintext))), len(ciphertext))
	}
}

func TestStreamRoundTripMultiChunk(t *testing.T) {
	c := mustDerive(t, "hunter2", "abc")
	plaintext := bytes.Repeat([]byte("0123456789abcdef"), chunkSize/8) // spans several chunks

	encReader, err := c.EncryptStream(bytes.NewReader(plaintext))
	if err != nil {
		t.Fatalf("EncryptStream failed: %v", err)
	}
	ciphertext, err := io.ReadAll(encReader)
	if err != nil {
		t.Fatalf("reading ciphertext failed: %v", err)
	}

	decReader, err := c.DecryptStream(bytes.NewReader(ciphertext))
	if err != nil {
		t.Fatalf("DecryptStream failed: %v", err)
	}
	recovered, err := io.ReadAll(decReader)
	if err != nil {
		t.Fatalf("reading plaintext failed: %v", err)
	}

	if !bytes.Equal(recovered, plaintext) {
		t.Fatalf("multi-chunk round-trip mismatch (lengths %d vs %d)", len(recovered), len(plaintext))
	}
}

func TestStreamDecryptRejectsTamperedCiphertext(t *testing.T) {
	c := mustDerive(t, "hunter2", "abc")
	encReader, _ := c.EncryptStream(strings.NewReader("hello vault"))
	ciphertext, _ := io.ReadAll(encReader)
	ciphertext[len(ciphertext)-1] ^= 0xFF

	decReader, _ := c.DecryptStream(bytes.NewReader(ciphertext))
	if _, err := io.ReadAll(decReader); err != ErrDecryptContent {
		t.Fatalf("expected ErrDecryptContent, got %v", err)
	}
}
