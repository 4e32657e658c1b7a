package capture

import (
	"time"

	"github.com/google/uuid"
)

// Configuration is the immutable-within-a-session capture
// configuration.
type Configuration struct {
	SampleRate    float64
	BitDepth      int
	Channels      int
	OutputDir     string
	MaxDuration   time.Duration // zero means unbounded
	MicDeviceID   string        // empty means default device
	EnableMic     bool
	EnableSystem  bool
	Encryptor     Encryptor // nil means unencrypted output
}

// DefaultConfiguration returns the configuration defaults from the
// external interface surface: 48kHz/16-bit/stereo, both sources
// enabled, no limit, no encryption.
func DefaultConfiguration() Configuration {
	return Configuration{
		SampleRate:   48000,
		BitDepth:     16,
		Channels:     2,
		EnableMic:    true,
		EnableSystem: true,
	}
}

// Validate checks the configuration against the invariants configure()
// enforces, returning a ConfigurationFailed *Error describing the
// first violation found.
func (c Configuration) Validate() error {
	if c.SampleRate <= 0 {
		return newError(ErrKindConfigurationFailed, "sample_rate must be positive", nil)
	}
	switch c.BitDepth {
	case 16, 24, 32:
	default:
		return newError(ErrKindConfigurationFailed, "bit_depth must be 16, 24, or 32", nil)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return newError(ErrKindConfigurationFailed, "channels must be 1 or 2", nil)
	}
	return nil
}

// State is the tagged capture-session state.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateReady
	StateCapturing
	StatePaused
	StateStopping
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConfiguring:
		return "Configuring"
	case StateReady:
		return "Ready"
	case StateCapturing:
		return "Capturing"
	case StatePaused:
		return "Paused"
	case StateStopping:
		return "Stopping"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether s is a state from which no further
// transition is possible without constructing a new session.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// AudioLevels holds the most recently measured mic/system levels.
// Peaks are monotone non-decreasing within a single capture.
type AudioLevels struct {
	MicRMS      float32
	SystemRMS   float32
	MicPeak     float32
	SystemPeak  float32
}

// Diagnostics accumulates monotone-non-decreasing counters describing
// a capture in progress.
type Diagnostics struct {
	MicCallbackCount    int64
	SystemCallbackCount int64
	TotalMicSamples     int64
	TotalSystemSamples  int64
	LastMicFormat       string
	LastSystemFormat    string
	BytesWritten        int64
	MixCycles           int64
}

// TrackType distinguishes mic and system-audio tracks in a recording.
type TrackType int

const (
	TrackMic TrackType = iota
	TrackSystem
)

func (t TrackType) String() string {
	if t == TrackMic {
		return "mic"
	}
	return "system"
}

// TrackChannel describes how a track's audio is laid out.
type TrackChannel int

const (
	ChannelCenter TrackChannel = iota
	ChannelStereo
)

func (c TrackChannel) String() string {
	if c == ChannelCenter {
		return "center"
	}
	return "stereo"
}

// Track is one logical track within RecordingMetadata.
type Track struct {
	Type    TrackType
	Channel TrackChannel
}

// RecordingMetadata describes a finished recording independent of its
// file contents.
type RecordingMetadata struct {
	ID                  string
	Duration            time.Duration
	Path                string
	Checksum            string
	IsEncrypted         bool
	CreatedAt           time.Time
	Tracks              []Track
	EncryptionAlgorithm string // empty when not encrypted
	KeyID               string // opaque, empty when not encrypted
}

// NewStereoRecordingMetadata builds the metadata for a standard
// mic(center)+system(stereo) recording.
func NewStereoRecordingMetadata(path string, duration time.Duration, checksum string, enc Encryptor) RecordingMetadata {
	m := RecordingMetadata{
		ID:        uuid.New().String(),
		Duration:  duration,
		Path:      path,
		Checksum:  checksum,
		CreatedAt: time.Now(),
		Tracks: []Track{
			{Type: TrackMic, Channel: ChannelCenter},
			{Type: TrackSystem, Channel: ChannelStereo},
		},
	}
	if enc != nil {
		m.IsEncrypted = true
		m.EncryptionAlgorithm = enc.Algorithm()
		if keyed, ok := enc.(interface{ KeyID() string }); ok {
			m.KeyID = keyed.KeyID()
		}
	}
	return m
}

// RecordingResult is returned by Session.Stop on success.
type RecordingResult struct {
	Path     string
	Duration time.Duration
	Metadata RecordingMetadata
	Checksum string
}

// TransportType classifies the physical/logical transport of an audio
// device, as reported by list_sources.
type TransportType int

const (
	TransportBuiltIn TransportType = iota
	TransportBluetooth
	TransportBluetoothLE
	TransportUSB
	TransportVirtual
	TransportUnknown
)

func (t TransportType) String() string {
	switch t {
	case TransportBuiltIn:
		return "built-in"
	case TransportBluetooth:
		return "bluetooth"
	case TransportBluetoothLE:
		return "bluetooth-le"
	case TransportUSB:
		return "usb"
	case TransportVirtual:
		return "virtual"
	default:
		return "unknown"
	}
}

// AudioSource describes one enumerable capture source.
type AudioSource struct {
	ID        string
	Name      string
	Transport TransportType
}
