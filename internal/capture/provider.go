package capture

// BufferCallback is invoked by a Provider on an arbitrary goroutine for
// every delivered PCM buffer. samples is interleaved with channels
// samples per frame; the session averages mic buffers down to mono,
// treats system buffers as interleaved stereo, and duplicates mono
// system buffers to both sides. sourceRate is the rate
// the provider reports for this buffer (possibly wrong, see Session's
// system callback handling); channels is the channel count of samples
// as delivered (1 or 2) before any session-level up/down-mixing.
type BufferCallback func(samples []float32, sourceRate float64, channels int)

// Provider is the abstract capture source contract both the mic and
// system providers implement. Concrete OS-specific backends are
// external collaborators; this package only depends on the interface.
type Provider interface {
	// IsAvailable reports whether the underlying device can currently
	// be opened.
	IsAvailable() bool
	// Start begins delivering buffers to callback. The callback may be
	// invoked on any goroutine and must not block on file I/O. Start
	// must not call callback after Stop has returned.
	Start(callback BufferCallback) error
	// Stop halts buffer delivery. After Stop returns, no further
	// callback invocations will occur.
	Stop() error
	// DeviceInfo describes the device currently backing this provider.
	DeviceInfo() AudioSource
}

// Delegate receives capture session lifecycle notifications. All
// methods may be called from any goroutine; implementations must not
// block and should hand off to their own serialization if needed.
type Delegate interface {
	OnStateChanged(state State, elapsed float64)
	OnLevelsUpdated(levels AudioLevels)
	OnEncounteredError(err error)
	OnFinished(result RecordingResult)
}

// Encryptor is the capture-level view of a sealed-box encryptor,
// matching wavwriter.Encryptor so any implementation (such as
// cryptoseal.Encryptor) can be plugged into Configuration directly.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Algorithm() string
}
