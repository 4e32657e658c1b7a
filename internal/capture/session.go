// Package capture implements the dual-source capture session: the
// state machine that sequences configuration, capture, pause/resume,
// and finalization; the mic-rate probe and the "system drives the
// clock" processing loop; and the models/errors shared across the
// core.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/jamcapture/internal/mix"
	"github.com/audiolibrelab/jamcapture/internal/ringbuffer"
	"github.com/audiolibrelab/jamcapture/internal/wavwriter"
)

const (
	processingTick = 100 * time.Millisecond
	durationTick   = 250 * time.Millisecond
	ringSeconds    = 5.0
)

type bufferMsg struct {
	samples    []float32
	sourceRate float64
	channels   int
}

// Session is the dual-source capture state machine. A Session owns a
// single mic/system provider pair and the rings, mixer, and writer for
// exactly one capture at a time; it is not reusable past a terminal
// state.
type Session struct {
	mu sync.Mutex

	state           State
	config          Configuration
	delegate        Delegate
	levels          AudioLevels
	captureStart    time.Time
	pausedDuration  time.Duration
	lastPauseTime   time.Time
	outputPath      string
	diagnostics     Diagnostics
	detectedMicRate float64
	terminalErr     error

	micProvider    Provider
	systemProvider Provider
	systemActive   bool

	mixer     *mix.StereoMixer
	micRing   *ringbuffer.RingBuffer
	systemRing *ringbuffer.RingBuffer
	writer    *wavwriter.Writer

	micChan    chan bufferMsg
	systemChan chan bufferMsg

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSession constructs an idle Session over the given mic and system
// providers, notifying delegate of every lifecycle event. Either
// provider may be nil if its corresponding source is never enabled.
func NewSession(micProvider, systemProvider Provider, delegate Delegate) *Session {
	return &Session{
		state:          StateIdle,
		micProvider:    micProvider,
		systemProvider: systemProvider,
		delegate:       delegate,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Diagnostics returns a snapshot of the session's live diagnostics.
func (s *Session) Diagnostics() Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostics
}

// Levels returns the most recently measured audio levels.
func (s *Session) Levels() AudioLevels {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.levels
}

// ListSources returns the mic provider's device when it is available
// and appends a synthetic "system-audio" entry when the system provider
// reports availability.
func (s *Session) ListSources() []AudioSource {
	var sources []AudioSource
	if s.micProvider != nil && s.micProvider.IsAvailable() {
		sources = append(sources, s.micProvider.DeviceInfo())
	}
	if s.systemProvider != nil && s.systemProvider.IsAvailable() {
		sources = append(sources, AudioSource{
			ID:        "system-audio",
			Name:      "System Audio",
			Transport: TransportVirtual,
		})
	}
	return sources
}

// Configure validates cfg and transitions Idle -> Configuring -> Ready.
// It is only valid from Idle.
func (s *Session) Configure(cfg Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return s.wrongStateErr("configure")
	}

	s.setStateLocked(StateConfiguring)

	if err := cfg.Validate(); err != nil {
		s.failLocked(err)
		return err
	}

	s.config = cfg
	s.setStateLocked(StateReady)
	return nil
}

// Start runs the mic-rate probe (if mic is enabled), opens the writer,
// starts both providers, and launches the processing and duration
// loops. It is only valid from Ready.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != StateReady {
		err := s.wrongStateErr("start")
		s.mu.Unlock()
		return err
	}
	cfg := s.config
	s.mu.Unlock()

	// Phase A: mic-rate negotiation.
	outputRate := cfg.SampleRate
	detectedMicRate := 0.0
	if cfg.EnableMic && s.micProvider != nil {
		probe := NewMicRateProbe()
		rate, err := probe.Run(s.micProvider, cfg.SampleRate)
		if err != nil {
			s.mu.Lock()
			s.failLocked(err)
			s.mu.Unlock()
			return err
		}
		detectedMicRate = rate
		outputRate = math.Min(rate, cfg.SampleRate)
	}

	// Phase B: mixer, rings, writer.
	mixer := mix.New(outputRate)
	micCap := int(outputRate * ringSeconds)
	systemCap := micCap * 2

	ext := "wav"
	if cfg.Encryptor != nil {
		ext = "enc.wav"
	}
	path := filepath.Join(cfg.OutputDir, fmt.Sprintf("recording_%s.%s", uuid.New().String(), ext))

	writer := wavwriter.New()
	var writerEncryptor wavwriter.Encryptor
	if cfg.Encryptor != nil {
		writerEncryptor = cfg.Encryptor
	}
	if err := writer.Open(path, wavwriter.Config{
		SampleRate: int(outputRate),
		Channels:   cfg.Channels,
		BitDepth:   cfg.BitDepth,
		Encryptor:  writerEncryptor,
	}); err != nil {
		wrapped := newError(ErrKindStorageError, "failed to open writer", err)
		s.mu.Lock()
		s.failLocked(wrapped)
		s.mu.Unlock()
		return wrapped
	}

	s.mu.Lock()
	s.mixer = mixer
	s.micRing = ringbuffer.New(micCap)
	s.systemRing = ringbuffer.New(systemCap)
	s.writer = writer
	s.outputPath = path
	s.detectedMicRate = detectedMicRate
	s.micChan = make(chan bufferMsg, 64)
	s.systemChan = make(chan bufferMsg, 64)
	s.levels = AudioLevels{}
	s.diagnostics = Diagnostics{}
	s.systemActive = false
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(2)
	go s.drainLoop(ctx, s.micChan, s.micRing)
	go s.drainLoop(ctx, s.systemChan, s.systemRing)

	// Phase C: start providers.
	if cfg.EnableMic && s.micProvider != nil {
		if err := s.micProvider.Start(s.micCallback); err != nil {
			wrapped := newError(ErrKindDeviceNotAvailable, "mic capture failed to start", err)
			s.mu.Lock()
			s.failLocked(wrapped)
			s.mu.Unlock()
			cancel()
			return wrapped
		}
	}

	if cfg.EnableSystem && s.systemProvider != nil && s.systemProvider.IsAvailable() {
		if err := s.systemProvider.Start(s.systemCallback); err != nil {
			slog.Warn("system audio capture unavailable, continuing mic-only", "error", err)
			s.mu.Lock()
			s.delegateErrLocked(newError(ErrKindConfigurationFailed, "System audio unavailable, continuing mic-only", err))
			s.mu.Unlock()
		} else {
			s.mu.Lock()
			s.systemActive = true
			s.mu.Unlock()
		}
	}

	// Phase D.
	s.mu.Lock()
	s.captureStart = time.Now()
	s.pausedDuration = 0
	s.lastPauseTime = time.Time{}
	s.setStateLocked(StateCapturing)
	s.mu.Unlock()

	s.wg.Add(2)
	go s.durationLoop(ctx)
	go s.processingLoop(ctx)

	return nil
}

// Pause transitions Capturing -> Paused. Providers keep running and
// their samples keep filling the rings (dropping the oldest on
// overflow); the duration timer stops advancing and the processing
// loop skips its ticks until Resume, or until the final flush in Stop.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateCapturing {
		return s.wrongStateErr("pause")
	}
	s.lastPauseTime = time.Now()
	s.setStateLocked(StatePaused)
	return nil
}

// Resume transitions Paused -> Capturing, folding the paused interval
// into the accumulated paused duration.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return s.wrongStateErr("resume")
	}
	if !s.lastPauseTime.IsZero() {
		s.pausedDuration += time.Since(s.lastPauseTime)
		s.lastPauseTime = time.Time{}
	}
	s.setStateLocked(StateCapturing)
	return nil
}

// Stop transitions Capturing/Paused -> Stopping -> Completed (or
// Failed), stopping both providers, flushing remaining buffered
// samples, and finalizing the writer.
func (s *Session) Stop() (RecordingResult, error) {
	s.mu.Lock()
	if s.state != StateCapturing && s.state != StatePaused {
		err := s.wrongStateErr("stop")
		s.mu.Unlock()
		return RecordingResult{}, err
	}
	s.setStateLocked(StateStopping)
	elapsed := s.elapsedLocked()
	cfg := s.config
	detectedMicRate := s.detectedMicRate
	systemActive := s.systemActive
	s.mu.Unlock()

	if s.micProvider != nil && cfg.EnableMic {
		if err := s.micProvider.Stop(); err != nil {
			slog.Warn("mic provider stop reported an error", "error", err)
		}
	}
	if systemActive && s.systemProvider != nil {
		if err := s.systemProvider.Stop(); err != nil {
			slog.Warn("system provider stop reported an error", "error", err)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	// Final flush.
	s.processBuffersOnce()

	actualRate := 0.0
	if cfg.EnableMic && detectedMicRate != 0 {
		actualRate = math.Min(detectedMicRate, cfg.SampleRate)
	}

	checksum, err := s.writer.Close(int(actualRate), cfg.Channels, cfg.BitDepth)
	if err != nil {
		wrapped := newError(ErrKindStorageError, "failed to finalize writer", err)
		s.mu.Lock()
		s.failLocked(wrapped)
		s.mu.Unlock()
		return RecordingResult{}, wrapped
	}

	metadata := NewStereoRecordingMetadata(s.outputPath, elapsed, checksum, cfg.Encryptor)
	result := RecordingResult{
		Path:     s.outputPath,
		Duration: elapsed,
		Metadata: metadata,
		Checksum: checksum,
	}

	s.mu.Lock()
	s.setStateLocked(StateCompleted)
	delegate := s.delegate
	s.mu.Unlock()

	if delegate != nil {
		delegate.OnFinished(result)
	}
	return result, nil
}

// --- internal helpers ---

func (s *Session) wrongStateErr(op string) *Error {
	return newError(ErrKindConfigurationFailed, fmt.Sprintf("cannot %s when not in a valid state", op), nil)
}

// setStateLocked updates state and notifies the delegate. Caller must
// hold s.mu.
func (s *Session) setStateLocked(state State) {
	s.state = state
	delegate := s.delegate
	elapsed := s.elapsedLocked()
	if delegate != nil {
		go delegate.OnStateChanged(state, elapsed.Seconds())
	}
}

// failLocked transitions to Failed and records the terminal error.
// Caller must hold s.mu.
func (s *Session) failLocked(err error) {
	s.terminalErr = err
	s.setStateLocked(StateFailed)
}

func (s *Session) delegateErrLocked(err error) {
	delegate := s.delegate
	if delegate != nil {
		go delegate.OnEncounteredError(err)
	}
}

// elapsedLocked computes the elapsed-duration formula. Caller must
// hold s.mu.
func (s *Session) elapsedLocked() time.Duration {
	if s.captureStart.IsZero() {
		return 0
	}
	elapsed := time.Since(s.captureStart) - s.pausedDuration
	if !s.lastPauseTime.IsZero() {
		elapsed -= time.Since(s.lastPauseTime)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// drainLoop is the dedicated per-provider ring-writer goroutine: it
// drains bufferMsg sends from a provider callback and performs the
// actual (mutex-guarded) ring write off the audio callback's thread.
func (s *Session) drainLoop(ctx context.Context, ch chan bufferMsg, ring *ringbuffer.RingBuffer) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			ring.Write(msg.samples)
		}
	}
}

func monoAverage(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// micCallback downmixes to mono, resamples to the mixer's target
// rate, meters the result, and hands it off to the mic ring.
func (s *Session) micCallback(samples []float32, sourceRate float64, channels int) {
	s.mu.Lock()
	mixer := s.mixer
	s.mu.Unlock()
	if mixer == nil {
		return
	}

	mono := monoAverage(samples, channels)
	resampled := mixer.ResampleMono(mono, sourceRate)
	peak := mix.PeakLevel(resampled)
	rms := mix.RMSLevel(resampled)

	s.mu.Lock()
	if peak > s.levels.MicPeak {
		s.levels.MicPeak = peak
	}
	s.levels.MicRMS = rms
	s.diagnostics.MicCallbackCount++
	s.diagnostics.TotalMicSamples += int64(len(samples))
	s.diagnostics.LastMicFormat = fmt.Sprintf("%d ch @ %.0f Hz", channels, sourceRate)
	levels := s.levels
	delegate := s.delegate
	ch := s.micChan
	s.mu.Unlock()

	if delegate != nil {
		go delegate.OnLevelsUpdated(levels)
	}
	if ch != nil {
		select {
		case ch <- bufferMsg{samples: resampled}:
		default:
			slog.Warn("mic ring handoff channel full, dropping buffer")
		}
	}
}

// systemCallback never trusts the system buffer's reported rate. The
// aggregate/tap layer can misreport the rate when the output device
// has renegotiated (e.g. Bluetooth HFP), so the effective source rate
// used for resampling is always the mixer's own target rate, making
// the resample step an identity transform.
func (s *Session) systemCallback(samples []float32, sourceRate float64, channels int) {
	s.mu.Lock()
	mixer := s.mixer
	s.mu.Unlock()
	if mixer == nil {
		return
	}

	var interleaved []float32
	if channels == 1 {
		mono := mixer.ResampleMono(samples, mixer.TargetSampleRate())
		interleaved = mix.Interleave(mono, mono)
	} else {
		interleaved = mixer.ResampleStereo(samples, mixer.TargetSampleRate())
	}

	peak := mix.PeakLevel(interleaved)
	rms := mix.RMSLevel(interleaved)

	s.mu.Lock()
	if peak > s.levels.SystemPeak {
		s.levels.SystemPeak = peak
	}
	s.levels.SystemRMS = rms
	s.diagnostics.SystemCallbackCount++
	s.diagnostics.TotalSystemSamples += int64(len(samples))
	s.diagnostics.LastSystemFormat = fmt.Sprintf("%d ch @ %.0f Hz", channels, sourceRate)
	levels := s.levels
	delegate := s.delegate
	ch := s.systemChan
	s.mu.Unlock()

	if delegate != nil {
		go delegate.OnLevelsUpdated(levels)
	}
	if ch != nil {
		select {
		case ch <- bufferMsg{samples: interleaved}:
		default:
			slog.Warn("system ring handoff channel full, dropping buffer")
		}
	}
}

// durationLoop polls the elapsed capture duration and stops the
// session once it reaches the configured max duration.
func (s *Session) durationLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(durationTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.state != StateCapturing {
				s.mu.Unlock()
				continue
			}
			elapsed := s.elapsedLocked()
			maxDuration := s.config.MaxDuration
			s.setStateLocked(StateCapturing)
			s.mu.Unlock()

			if maxDuration > 0 && elapsed >= maxDuration {
				go s.Stop()
				return
			}
		}
	}
}

// processingLoop drains the mic and system rings on a fixed tick,
// mixing and writing each batch while the session is capturing.
func (s *Session) processingLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(processingTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			capturing := s.state == StateCapturing
			s.mu.Unlock()
			if !capturing {
				continue
			}
			s.processBuffersOnce()
		}
	}
}

// processBuffersOnce drains one tick's worth of samples, mixes,
// converts, and writes (the shared body of the periodic loop and the
// final flush in Stop).
func (s *Session) processBuffersOnce() {
	s.mu.Lock()
	systemActive := s.systemActive
	sampleRate := s.config.SampleRate
	micRing := s.micRing
	systemRing := s.systemRing
	writer := s.writer
	delegate := s.delegate
	s.mu.Unlock()

	if micRing == nil && systemRing == nil {
		return
	}

	tickSamples := int(sampleRate * 0.1)

	var micSamples, systemSamples []float32
	if systemActive && systemRing != nil {
		framesAvailable := systemRing.Count() / 2
		frames := framesAvailable
		if frames > tickSamples {
			frames = tickSamples
		}
		if frames == 0 {
			return
		}
		systemSamples = systemRing.Read(frames * 2)
		if micRing != nil {
			micSamples = micRing.Read(frames)
		}
	} else {
		if micRing == nil {
			return
		}
		micSamples = micRing.Read(tickSamples)
		if len(micSamples) == 0 {
			return
		}
	}

	mixed := mix.MixMonoMicWithStereoSystem(micSamples, systemSamples)
	pcm := mix.ToInt16PCM(mixed)

	s.mu.Lock()
	s.diagnostics.MixCycles++
	s.mu.Unlock()

	if writer == nil {
		return
	}
	if err := writer.Write(pcm); err != nil {
		wrapped := newError(ErrKindEncodingFailed, "failed to write mixed samples", err)
		if delegate != nil {
			go delegate.OnEncounteredError(wrapped)
		}
		return
	}

	s.mu.Lock()
	s.diagnostics.BytesWritten = writer.BytesWritten()
	s.mu.Unlock()
}
