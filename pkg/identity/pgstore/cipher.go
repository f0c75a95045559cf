package pgstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const masterKeySize = 32

// KeyCipher seals identity private keys at rest with AES-256-GCM. Each identity
// gets its own data key, derived from the master key with HKDF using the
// identity name as info, so a ciphertext cannot be moved between rows.
type KeyCipher struct {
	masterKey []byte
}

// NewKeyCipher returns a cipher for a 32-byte master key.
func NewKeyCipher(masterKey []byte) (*KeyCipher, error) {
	if len(masterKey) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(masterKey))
	}
	return &KeyCipher{masterKey: append([]byte(nil), masterKey...)}, nil
}

// MasterKeyFromBase64 decodes a base64-encoded master key
func MasterKeyFromBase64(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode master key: %w", err)
	}
	if len(key) != masterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", masterKeySize, len(key))
	}
	return key, nil
}

// Encrypt seals plaintext for the named identity.
// Output is base64(nonce || ciphertext || tag).
func (c *KeyCipher) Encrypt(name string, plaintext []byte) (string, error) {
	gcm, err := c.aead(name)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

// Decrypt opens a value produced by Encrypt for the same identity name.
func (c *KeyCipher) Decrypt(name, encoded string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	gcm, err := c.aead(name)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key for %s: %w", name, err)
	}
	return plaintext, nil
}

func (c *KeyCipher) aead(name string) (cipher.AEAD, error) {
	key := make([]byte, masterKeySize)
	r := hkdf.New(sha256.New, c.masterKey, nil, []byte("cbdc-gateway/identity-key/"+name))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
