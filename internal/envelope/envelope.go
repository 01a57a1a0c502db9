// Package envelope seals file contents into self-contained authenticated
// blobs and opens them again.
//
// A sealed blob is laid out as
//
//	nonce (12 bytes) || tag (16 bytes) || ciphertext
//
// where the ciphertext is the zlib-compressed plaintext encrypted with an
// AEAD cipher under a 256-bit key. Open never returns data whose tag did not
// verify.
package envelope

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/crypto/chacha20poly1305"
)

const (
	NonceSize = 12
	TagSize   = 16
	// Overhead is the smallest possible sealed blob.
	Overhead = NonceSize + TagSize
)

// Suite names the AEAD construction used by a Codec. Both suites share the
// same nonce and tag sizes, so the blob layout does not change.
type Suite string

const (
	SuiteAESGCM           Suite = "aes-256-gcm"
	SuiteChaCha20Poly1305 Suite = "chacha20-poly1305"
)

// Codec seals and opens blobs with a fixed key. It is safe for concurrent use.
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCodec builds a Codec for the given key and suite. An empty suite selects
// AES-256-GCM.
func NewCodec(key *KeyMaterial, suite Suite) (*Codec, error) {
	if key == nil {
		return nil, fmt.Errorf("envelope: nil key material")
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch suite {
	case SuiteAESGCM, "":
		var block cipher.Block
		block, err = aes.NewCipher(key.key)
		if err != nil {
			return nil, err
		}
		aead, err = cipher.NewGCM(block)
	case SuiteChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key.key)
	default:
		return nil, fmt.Errorf("envelope: unknown cipher suite %q", suite)
	}
	if err != nil {
		return nil, err
	}

	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// Seal compresses plaintext, encrypts it under a fresh random nonce and
// returns nonce || tag || ciphertext.
func (c *Codec) Seal(plaintext []byte) ([]byte, error) {
	compressed, err := compress(plaintext)
	if err != nil {
		return nil, fmt.Errorf("envelope: compress: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("envelope: nonce: %w", err)
	}

	// AEAD output is ciphertext || tag; the blob stores the tag first.
	sealed := c.aead.Seal(nil, nonce, compressed, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, Overhead+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)
	return blob, nil
}

// Open verifies and decrypts a blob produced by Seal and returns the original
// plaintext. It fails with common.ErrMalformedEnvelope for blobs shorter than
// Overhead or whose authenticated payload does not decompress, and with
// common.ErrAuthenticationFailed when the tag does not verify.
func (c *Codec) Open(blob []byte) ([]byte, error) {
	if len(blob) < Overhead {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", common.ErrMalformedEnvelope, len(blob), Overhead)
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize:Overhead]
	ct := blob[Overhead:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	compressed, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrAuthenticationFailed
	}

	plaintext, err := decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedEnvelope, err)
	}
	return plaintext, nil
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
