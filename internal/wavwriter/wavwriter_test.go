package wavwriter

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

// nullEncryptor is a test double that "seals" a chunk by appending a
// fixed 12-byte fake nonce before the data and a fixed 16-byte fake
// tag after it, so chunk-framing math can be exercised without a real
// cipher.
type nullEncryptor struct{}

func (nullEncryptor) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, 0, 12+len(plaintext)+16)
	out = append(out, make([]byte, 12)...)
	out = append(out, plaintext...)
	out = append(out, make([]byte, 16)...)
	return out, nil
}

func (nullEncryptor) Algorithm() string { return "null" }

func TestHeaderOnlyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	w := New()
	if err := w.Open(path, Config{SampleRate: 48000, Channels: 2, BitDepth: 16}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	checksum, err := w.Close(0, 2, 16)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(contents) != 44 {
		t.Fatalf("file size = %d, want 44", len(contents))
	}
	if got := binary.LittleEndian.Uint32(contents[4:8]); got != 36 {
		t.Errorf("chunk_size = %d, want 36", got)
	}
	if got := binary.LittleEndian.Uint32(contents[40:44]); got != 0 {
		t.Errorf("data_size = %d, want 0", got)
	}
	want := sha256.Sum256(contents)
	if checksum != hex.EncodeToString(want[:]) {
		t.Errorf("checksum mismatch")
	}
}

func TestRateFixup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.wav")

	w := New()
	if err := w.Open(path, Config{SampleRate: 48000, Channels: 2, BitDepth: 16}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := w.Close(16000, 2, 16); err != nil {
		t.Fatalf("Close: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got := binary.LittleEndian.Uint32(contents[24:28]); got != 16000 {
		t.Errorf("sample rate = %d, want 16000", got)
	}
	if got := binary.LittleEndian.Uint32(contents[28:32]); got != 64000 {
		t.Errorf("byte rate = %d, want 64000", got)
	}
	if got := binary.LittleEndian.Uint16(contents[32:34]); got != 4 {
		t.Errorf("block align = %d, want 4", got)
	}
}

func TestWriteEncryptedChunkFraming(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.enc.wav")

	w := New()
	if err := w.Open(path, Config{SampleRate: 48000, Channels: 2, BitDepth: 16, Encryptor: nullEncryptor{}}); err != nil {
		t.Fatalf("Open: %v", err)
	}
	payload := []byte{1, 2, 3, 4}
	if err := w.Write(payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantBytesWritten := int64(44 + 4 + 12 + len(payload) + 16)
	if w.BytesWritten() != wantBytesWritten {
		t.Errorf("BytesWritten() = %d, want %d", w.BytesWritten(), wantBytesWritten)
	}

	if _, err := w.Close(0, 2, 16); err != nil {
		t.Fatalf("Close: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != wantBytesWritten {
		t.Errorf("file size = %d, want %d", info.Size(), wantBytesWritten)
	}

	contents, _ := os.ReadFile(path)
	chunkLen := binary.LittleEndian.Uint32(contents[44:48])
	if chunkLen != uint32(12+len(payload)+16) {
		t.Errorf("chunk length prefix = %d, want %d", chunkLen, 12+len(payload)+16)
	}
}

func TestWriteRequiresOpen(t *testing.T) {
	w := New()
	if err := w.Write([]byte{1}); err == nil {
		t.Errorf("expected error writing to closed writer")
	}
}
