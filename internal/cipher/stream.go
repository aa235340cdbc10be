package cipher

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// chunkSize bounds how much plaintext is buffered per encrypted block — the
// streaming property requires chunks to be produced as input arrives, never
// the whole payload at once.
const chunkSize = 64 * 1024

// noncePrefixSize is the random portion of each chunk's nonce; the
// remaining bytes hold a big-endian chunk counter, guaranteeing nonce
// uniqueness across the whole stream without storing a nonce per chunk.
const noncePrefixSize = 16

// headerSize is the constant per-stream overhead EncryptStream adds before
// any ciphertext: the random nonce prefix. Combined with a fixed per-chunk
// tag, ciphertext size is an affine function of plaintext size (§4.B).
const headerSize = noncePrefixSize

// ErrDecryptContent is returned when streaming decryption fails integrity
// verification.
var ErrDecryptContent = errors.New("cipher: content could not be decrypted")

// EncryptedSize returns the ciphertext size EncryptStream produces for a
// plaintext of the given size — header plus one authentication tag per
// chunk.
func (c *Cipher) EncryptedSize(plaintextSize int64) int64 {
	if plaintextSize <= 0 {
		return headerSize
	}
	tagSize := int64(c.aead.Overhead())
	chunks := plaintextSize / chunkSize
	if plaintextSize%chunkSize != 0 {
		chunks++
	}
	return headerSize + plaintextSize + chunks*tagSize
}

// DecryptedSize inverts EncryptedSize given the cipher's fixed per-chunk and
// header overhead.
func (c *Cipher) DecryptedSize(ciphertextSize int64) int64 {
	tagSize := int64(c.aead.Overhead())
	encryptedBody := ciphertextSize - headerSize
	if encryptedBody <= 0 {
		return 0
	}
	fullChunk := int64(chunkSize) + tagSize
	chunks := encryptedBody / fullChunk
	remainder := encryptedBody % fullChunk
	plain := chunks * chunkSize
	if remainder > 0 {
		plain += remainder - tagSize
	}
	if plain < 0 {
		plain = 0
	}
	return plain
}

// EncryptStream wraps r so that Read returns the encrypted byte stream,
// producing one output chunk per chunkSize-bounded input read — it never
// buffers the whole payload.
func (c *Cipher) EncryptStream(r io.Reader) (io.Reader, error) {
	prefix := make([]byte, noncePrefixSize)
	if _, err := rand.Read(prefix); err != nil {
		return nil, fmt.Errorf("cipher: nonce generation failed: %w", err)
	}
	return &encryptReader{cipher: c, src: r, prefix: prefix, headerSent: false}, nil
}

type encryptReader struct {
	cipher     *Cipher
	src        io.Reader
	prefix     []byte
	headerSent bool
	buf        []byte // undelivered encrypted bytes
	counter    uint64
	eof        bool
}

func (e *encryptReader) Read(p []byte) (int, error) {
	if !e.headerSent {
		e.buf = append(e.buf, e.prefix...)
		e.headerSent = true
	}
	for len(e.buf) == 0 {
		if e.eof {
			return 0, io.EOF
		}
		chunk := make([]byte, chunkSize)
		n, err := io.ReadFull(e.src, chunk)
		if n > 0 {
			nonce := e.nonce()
			sealed := e.cipher.aead.Seal(nil, nonce, chunk[:n], nil)
			e.buf = append(e.buf, sealed...)
			e.counter++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			e.eof = true
		} else if err != nil {
			return 0, err
		}
	}
	n := copy(p, e.buf)
	e.buf = e.buf[n:]
	return n, nil
}

func (e *encryptReader) nonce() []byte {
	nonce := make([]byte, noncePrefixSize+8)
	copy(nonce, e.prefix)
	binary.BigEndian.PutUint64(nonce[noncePrefixSize:], e.counter)
	return nonce[:e.cipher.aead.NonceSize()]
}

// DecryptStream inverts EncryptStream, yielding plaintext chunks as the
// underlying ciphertext arrives.
func (c *Cipher) DecryptStream(r io.Reader) (io.Reader, error) {
	return &decryptReader{cipher: c, src: r}, nil
}

type decryptReader struct {
	cipher      *Cipher
	src         io.Reader
	prefix      []byte
	prefixRead  bool
	buf         []byte
	counter     uint64
	eof         bool
	sealedChunk int
}

func (d *decryptReader) Read(p []byte) (int, error) {
	if !d.prefixRead {
		prefix := make([]byte, noncePrefixSize)
		if _, err := io.ReadFull(d.src, prefix); err != nil {
			if err == io.EOF {
				return 0, io.EOF
			}
			return 0, ErrDecryptContent
		}
		d.prefix = prefix
		d.prefixRead = true
		d.sealedChunk = chunkSize + d.cipher.aead.Overhead()
	}
	for len(d.buf) == 0 {
		if d.eof {
			return 0, io.EOF
		}
		sealed := make([]byte, d.sealedChunk)
		n, err := io.ReadFull(d.src, sealed)
		if n > 0 {
			nonce := make([]byte, noncePrefixSize+8)
			copy(nonce, d.prefix)
			binary.BigEndian.PutUint64(nonce[noncePrefixSize:], d.counter)
			plain, openErr := d.cipher.aead.Open(nil, nonce[:d.cipher.aead.NonceSize()], sealed[:n], nil)
			if openErr != nil {
				return 0, ErrDecryptContent
			}
			d.buf = append(d.buf, plain...)
			d.counter++
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			d.eof = true
		} else if err != nil {
			return 0, err
		}
	}
	n := copy(p, d.buf)
	d.buf = d.buf[n:]
	return n, nil
}
