package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

var (
	ErrEncryptionFailed = errors.New("token encryption failed")
	ErrDecryptionFailed = errors.New("token decryption failed")
)

// hkdfInfo binds derived keys to this usage so the same configured secret
// cannot silently serve another purpose elsewhere.
const hkdfInfo = "platform-connect/token-cipher/v1"

// TokenCipher performs authenticated encryption of secret strings with a
// process-held key. The key is supplied once at construction and never logged.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a 256-bit AES-GCM key from the configured key string.
// The configured key may be any non-empty string; HKDF stretches it to the
// required size.
func NewTokenCipher(key string) (*TokenCipher, error) {
	if key == "" {
		return nil, errors.New("encryption key must not be empty")
	}

	derived := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(key), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("derive cipher key: %w", err)
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}

	return &TokenCipher{aead: aead}, nil
}

// Encrypt seals the plaintext and returns base64(nonce || ciphertext || tag).
// Each call uses a fresh random nonce, so encrypting the same plaintext twice
// yields distinct ciphertexts.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Tampered ciphertext or a cipher
// built from a different key fails with ErrDecryptionFailed; corrupted
// plaintext is never returned.
func (c *TokenCipher) Decrypt(ciphertext string) (string, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding", ErrDecryptionFailed)
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, data := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, data, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}
