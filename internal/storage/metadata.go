// Package storage persists RecordingMetadata as a JSON sidecar file
// alongside a finished recording.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/audiolibrelab/jamcapture/internal/capture"
)

type trackDTO struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type metadataDTO struct {
	ID                  string     `json:"id"`
	DurationSeconds     float64    `json:"duration_seconds"`
	Path                string     `json:"path"`
	Checksum            string     `json:"checksum"`
	IsEncrypted         bool       `json:"is_encrypted"`
	CreatedAt           time.Time  `json:"created_at"`
	Tracks              []trackDTO `json:"tracks"`
	EncryptionAlgorithm string     `json:"encryption_algorithm,omitempty"`
	KeyID               string     `json:"key_id,omitempty"`
}

// sidecarPath replaces recordingPath's extension with ".metadata.json".
func sidecarPath(recordingPath string) string {
	if idx := strings.LastIndex(recordingPath, "."); idx >= 0 {
		return recordingPath[:idx] + ".metadata.json"
	}
	return recordingPath + ".metadata.json"
}

// WriteMetadata writes meta as a pretty-printed JSON sidecar next to
// recordingPath.
func WriteMetadata(meta capture.RecordingMetadata, recordingPath string) error {
	dto := metadataDTO{
		ID:                  meta.ID,
		DurationSeconds:     meta.Duration.Seconds(),
		Path:                meta.Path,
		Checksum:            meta.Checksum,
		IsEncrypted:         meta.IsEncrypted,
		CreatedAt:           meta.CreatedAt,
		EncryptionAlgorithm: meta.EncryptionAlgorithm,
		KeyID:               meta.KeyID,
	}
	for _, tr := range meta.Tracks {
		dto.Tracks = append(dto.Tracks, trackDTO{Type: tr.Type.String(), Channel: tr.Channel.String()})
	}

	data, err := json.MarshalIndent(dto, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recording metadata: %w", err)
	}

	path := sidecarPath(recordingPath)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata sidecar %s: %w", path, err)
	}
	return nil
}

// ReadMetadata reads back the JSON sidecar for recordingPath.
func ReadMetadata(recordingPath string) (capture.RecordingMetadata, error) {
	path := sidecarPath(recordingPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return capture.RecordingMetadata{}, fmt.Errorf("read metadata sidecar %s: %w", path, err)
	}

	var dto metadataDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return capture.RecordingMetadata{}, fmt.Errorf("unmarshal metadata sidecar %s: %w", path, err)
	}

	meta := capture.RecordingMetadata{
		ID:                  dto.ID,
		Duration:            time.Duration(dto.DurationSeconds * float64(time.Second)),
		Path:                dto.Path,
		Checksum:            dto.Checksum,
		IsEncrypted:         dto.IsEncrypted,
		CreatedAt:           dto.CreatedAt,
		EncryptionAlgorithm: dto.EncryptionAlgorithm,
		KeyID:               dto.KeyID,
	}
	for _, tr := range dto.Tracks {
		trackType := capture.TrackMic
		if tr.Type == "system" {
			trackType = capture.TrackSystem
		}
		channel := capture.ChannelCenter
		if tr.Channel == "stereo" {
			channel = capture.ChannelStereo
		}
		meta.Tracks = append(meta.Tracks, capture.Track{Type: trackType, Channel: channel})
	}
	return meta, nil
}
