// Package vault seals stored credentials, typically LLM API keys, with
// AES-256-GCM under a passphrase-derived key.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

type Vault struct {
	key [32]byte
}

// New derives the AES key from the passphrase via Argon2id. The salt is
// the SHA-256 of the passphrase, so the same passphrase opens secrets
// sealed before a restart.
func New(passphrase string) *Vault {
	salt := sha256.Sum256([]byte(passphrase))
	key := argon2.IDKey([]byte(passphrase), salt[:16], 1, 64*1024, 4, 32)

	v := &Vault{}
	copy(v.key[:], key)
	return v
}

func (v *Vault) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(v.key[:])
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return gcm, nil
}

// Seal encrypts plaintext with a fresh random nonce.
func (v *Vault) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	gcm, err := v.aead()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts a sealed value. A wrong passphrase or tampered
// ciphertext fails authentication.
func (v *Vault) Open(ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := v.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// SealString seals a credential value for storage.
func (v *Vault) SealString(value string) (ciphertext, nonce []byte, err error) {
	return v.Seal([]byte(value))
}

// OpenString opens a stored credential value.
func (v *Vault) OpenString(ciphertext, nonce []byte) (string, error) {
	plaintext, err := v.Open(ciphertext, nonce)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
