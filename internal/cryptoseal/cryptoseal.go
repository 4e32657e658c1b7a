// Package cryptoseal provides a concrete AES-256-GCM "sealed box"
// implementation of the wavwriter.Encryptor contract: each sealed
// chunk is a self-contained nonce ∥ ciphertext ∥ tag byte string, so a
// reader never needs out-of-band state beyond the key to decrypt a
// chunk in isolation.
//
// This is a reference/demo encryptor, not a production key-management
// solution: callers are responsible for generating and protecting the
// 32-byte key.
package cryptoseal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	// KeySize is the required AES-256 key length in bytes.
	KeySize = 32
	// nonceSize is the GCM standard nonce length in bytes.
	nonceSize = 12
	// tagSize is the GCM authentication tag length in bytes.
	tagSize = 16
)

// Encryptor seals plaintext chunks with AES-256-GCM using a fixed key
// and a fresh random nonce per call.
type Encryptor struct {
	aead cipher.AEAD
	keyID string
}

// New constructs an Encryptor from a 32-byte AES-256 key. keyID is an
// opaque identifier surfaced in RecordingMetadata; it is never derived
// from or related to the key material itself.
func New(key []byte, keyID string) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("cryptoseal: key must be %d bytes, got %d", KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptoseal: create AES cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cryptoseal: create GCM mode: %w", err)
	}
	return &Encryptor{aead: aead, keyID: keyID}, nil
}

// Algorithm returns the name of the sealed-box algorithm, as recorded
// in RecordingMetadata.
func (e *Encryptor) Algorithm() string { return "AES-256-GCM" }

// KeyID returns the opaque key identifier this encryptor was
// constructed with.
func (e *Encryptor) KeyID() string { return e.keyID }

// Encrypt seals plaintext into nonce ∥ ciphertext ∥ tag.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptoseal: generate nonce: %w", err)
	}
	sealed := e.aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, nonceSize+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens a sealed box produced by Encrypt, verifying the
// authentication tag.
func (e *Encryptor) Decrypt(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+tagSize {
		return nil, fmt.Errorf("cryptoseal: sealed box too short")
	}
	nonce := sealed[:nonceSize]
	ciphertext := sealed[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptoseal: authentication failed: %w", err)
	}
	return plaintext, nil
}
