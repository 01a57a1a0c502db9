package envelope

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/dmitrijs2005/cryptocloud/internal/common"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/argon2"
)

// KeySize is the length of the symmetric key in bytes (256 bits).
const KeySize = 32

// KeyMaterial holds the 256-bit secret used by a Codec. It is created once at
// process start and passed explicitly to whoever needs it. Its String and
// Fingerprint methods never reveal the key itself.
type KeyMaterial struct {
	key []byte
}

// NewKeyMaterial copies key into a new handle. The key must be KeySize bytes.
func NewKeyMaterial(key []byte) (*KeyMaterial, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("envelope: key must be %d bytes, got %d", KeySize, len(key))
	}
	k := make([]byte, KeySize)
	copy(k, key)
	return &KeyMaterial{key: k}, nil
}

// KeyFromBase64 decodes a standard base64 encoded 256-bit key.
func KeyFromBase64(s string) (*KeyMaterial, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("envelope: decode key: %w", err)
	}
	defer common.WipeByteArray(raw)
	return NewKeyMaterial(raw)
}

// GenerateKey returns a fresh random key.
func GenerateKey() *KeyMaterial {
	return &KeyMaterial{key: common.GenerateRandByteArray(KeySize)}
}

// DeriveKey stretches a passphrase into key material with Argon2id.
func DeriveKey(passphrase, salt []byte) *KeyMaterial {
	return &KeyMaterial{key: argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeySize)}
}

// Fingerprint returns a short BLAKE3 digest of the key, safe to log.
func (k *KeyMaterial) Fingerprint() string {
	sum := blake3.Sum256(k.key)
	return hex.EncodeToString(sum[:8])
}

// Base64 exports the key. Only the client uses it, to print a freshly
// generated key once.
func (k *KeyMaterial) Base64() string {
	return base64.StdEncoding.EncodeToString(k.key)
}

// Wipe zeroes the key. The handle is unusable afterwards.
func (k *KeyMaterial) Wipe() {
	common.WipeByteArray(k.key)
}

func (k *KeyMaterial) String() string {
	return "KeyMaterial(" + k.Fingerprint() + ")"
}
