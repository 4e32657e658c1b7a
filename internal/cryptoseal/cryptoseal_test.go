package cryptoseal

import (
	"bytes"
	"testing"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := New(testKey(), "key-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plaintext := []byte("hello, recording")
	sealed, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	got, err := enc.Decrypt(sealed)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}
}

func TestEncryptProducesDistinctNonces(t *testing.T) {
	enc, err := New(testKey(), "key-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plaintext := []byte("same plaintext")
	a, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Errorf("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestEncryptLength(t *testing.T) {
	enc, err := New(testKey(), "key-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	plaintext := make([]byte, 100)
	sealed, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if len(sealed) != len(plaintext)+28 {
		t.Errorf("sealed length = %d, want %d", len(sealed), len(plaintext)+28)
	}
}

func TestTamperedCiphertextFailsDecryption(t *testing.T) {
	enc, err := New(testKey(), "key-1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sealed, err := enc.Encrypt([]byte("integrity matters"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	sealed[len(sealed)-1] ^= 0xFF
	if _, err := enc.Decrypt(sealed); err == nil {
		t.Errorf("expected decryption failure on tampered ciphertext")
	}
}

func TestNewRejectsWrongKeySize(t *testing.T) {
	if _, err := New(make([]byte, 16), "key-1"); err == nil {
		t.Errorf("expected error for undersized key")
	}
}
