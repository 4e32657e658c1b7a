// Package wavwriter implements a streaming WAV file writer with a
// deferred header fix-up on close, optional per-chunk authenticated
// encryption, and a SHA-256 checksum of the finalized file.
package wavwriter

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

const headerSize = 44

// Encryptor seals a plaintext chunk into a self-contained authenticated
// ciphertext (nonce ∥ ciphertext ∥ tag for AES-256-GCM). It is the
// sole point where the writer touches a cipher.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Algorithm() string
}

// Config describes the WAV stream a Writer produces.
type Config struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Encryptor  Encryptor // nil for plaintext output
}

type state int

const (
	stateClosed state = iota
	stateOpen
)

// Writer is a streaming WAV file writer. It is not safe for concurrent
// use; the capture session's processing loop is its sole owner between
// Open and Close.
type Writer struct {
	file         *os.File
	path         string
	cfg          Config
	state        state
	bytesWritten int64
}

// New constructs an unopened Writer.
func New() *Writer {
	return &Writer{state: stateClosed}
}

// Path returns the file path of the most recently opened writer.
func (w *Writer) Path() string {
	return w.path
}

// BytesWritten returns the number of bytes written to the file so far,
// including the 44-byte header.
func (w *Writer) BytesWritten() int64 {
	return w.bytesWritten
}

// Open creates (or truncates) the file at path, writes a 44-byte
// canonical WAV header with placeholder sizes, and transitions the
// writer to Open. Calling Open a second time on an already-open writer
// is a no-op.
func (w *Writer) Open(path string, cfg Config) error {
	if w.state == stateOpen {
		return nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav file %s: %w", path, err)
	}

	header := generateHeader(0, cfg.SampleRate, cfg.Channels, cfg.BitDepth)
	if _, err := f.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write wav header: %w", err)
	}

	w.file = f
	w.path = path
	w.cfg = cfg
	w.state = stateOpen
	w.bytesWritten = headerSize
	return nil
}

// Write appends data to the stream. If the writer has no configured
// encryptor, data is appended verbatim. Otherwise data is sealed via
// the encryptor into an authenticated ciphertext blob and written as a
// 4-byte little-endian length prefix followed by the blob.
func (w *Writer) Write(data []byte) error {
	if w.state != stateOpen {
		return fmt.Errorf("wavwriter: write on closed writer")
	}

	if w.cfg.Encryptor == nil {
		n, err := w.file.Write(data)
		if err != nil {
			return fmt.Errorf("write wav payload: %w", err)
		}
		w.bytesWritten += int64(n)
		return nil
	}

	blob, err := w.cfg.Encryptor.Encrypt(data)
	if err != nil {
		return fmt.Errorf("encrypt chunk: %w", err)
	}

	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(blob)))
	if _, err := w.file.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("write chunk length prefix: %w", err)
	}
	if _, err := w.file.Write(blob); err != nil {
		return fmt.Errorf("write encrypted chunk: %w", err)
	}
	w.bytesWritten += int64(4 + len(blob))
	return nil
}

// Close patches the header's size fields (and, if actualSampleRate is
// non-zero, the rate-derived fields), flushes and closes the file,
// reads it back, and returns the lowercase hex SHA-256 digest of the
// finalized contents.
func (w *Writer) Close(actualSampleRate, channels, bitDepth int) (checksum string, err error) {
	if w.state != stateOpen {
		return "", fmt.Errorf("wavwriter: close on a writer that is not open")
	}
	defer func() {
		w.state = stateClosed
	}()

	fileSize := w.bytesWritten

	if err := patchUint32(w.file, 4, uint32(fileSize-8)); err != nil {
		return "", fmt.Errorf("patch riff chunk size: %w", err)
	}

	if actualSampleRate != 0 {
		byteRate := uint32(actualSampleRate * channels * bitDepth / 8)
		blockAlign := uint16(channels * bitDepth / 8)
		if err := patchUint32(w.file, 24, uint32(actualSampleRate)); err != nil {
			return "", fmt.Errorf("patch sample rate: %w", err)
		}
		if err := patchUint32(w.file, 28, byteRate); err != nil {
			return "", fmt.Errorf("patch byte rate: %w", err)
		}
		if err := patchUint16(w.file, 32, blockAlign); err != nil {
			return "", fmt.Errorf("patch block align: %w", err)
		}
	}

	if err := patchUint32(w.file, 40, uint32(fileSize-headerSize)); err != nil {
		return "", fmt.Errorf("patch data chunk size: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		return "", fmt.Errorf("sync wav file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return "", fmt.Errorf("close wav file: %w", err)
	}

	contents, err := os.ReadFile(w.path)
	if err != nil {
		return "", fmt.Errorf("read finalized wav file: %w", err)
	}
	sum := sha256.Sum256(contents)
	return hex.EncodeToString(sum[:]), nil
}

func patchUint32(f *os.File, offset int64, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, err := f.WriteAt(b[:], offset)
	return err
}

func patchUint16(f *os.File, offset int64, v uint16) error {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, err := f.WriteAt(b[:], offset)
	return err
}

// generateHeader builds the 44-byte canonical PCM WAV header.
func generateHeader(dataSize, sampleRate, channels, bitDepth int) []byte {
	h := make([]byte, headerSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], uint32(36+dataSize))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	byteRate := uint32(sampleRate * channels * bitDepth / 8)
	binary.LittleEndian.PutUint32(h[28:32], byteRate)
	blockAlign := uint16(channels * bitDepth / 8)
	binary.LittleEndian.PutUint16(h[32:34], blockAlign)
	binary.LittleEndian.PutUint16(h[34:36], uint16(bitDepth))
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], uint32(dataSize))
	return h
}
