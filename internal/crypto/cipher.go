// Package crypto provides symmetric encryption for credential secrets at
// rest. The cipher is AES-256-GCM with a key derived from the process-wide
// secret via HKDF, so the stored secret never doubles as the raw key.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/sabercontabilidade/onboarding/internal/types"
)

// keyInfo binds the derived key to this purpose; changing it invalidates all
// stored ciphertexts.
const keyInfo = "onboarding/credential-token-cipher/v1"

// TokenCipher encrypts and decrypts credential secrets. It is safe for
// concurrent use.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a 32-byte AES key from the given process secret and
// returns a ready cipher. The secret must be at least 32 bytes of entropy
// (enforced at config validation).
func NewTokenCipher(secret types.SecretString) (*TokenCipher, error) {
	raw := secret.Unmask()
	if raw == "" {
		return nil, types.NewAppError(types.ErrCodeInternalCrypto, "empty cipher secret", nil)
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(raw), nil, []byte(keyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCrypto, "deriving cipher key", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCrypto, "creating AES cipher", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalCrypto, "creating GCM", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext),
// suitable for a text column. Each call uses a fresh random nonce, so
// encrypting the same value twice yields different ciphertexts.
func (c *TokenCipher) Encrypt(plaintext types.SecretString) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", types.NewAppError(types.ErrCodeInternalCrypto, "generating nonce", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext.Unmask()), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Tampered or truncated input
// fails authentication and returns an error.
func (c *TokenCipher) Decrypt(encoded string) (types.SecretString, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalCrypto, "decoding ciphertext", err)
	}

	ns := c.aead.NonceSize()
	if len(sealed) < ns {
		return "", types.NewAppError(types.ErrCodeInternalCrypto,
			fmt.Sprintf("ciphertext shorter than nonce (%d bytes)", len(sealed)), nil)
	}

	plain, err := c.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return "", types.NewAppError(types.ErrCodeInternalCrypto, "opening ciphertext", err)
	}
	return types.SecretString(plain), nil
}
