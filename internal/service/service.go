// Package service is the ambient orchestration layer: it owns the
// loaded configuration, constructs and drives a capture.Session, and
// wires a logging delegate that also fans events out to any server
// subscribers.
package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/audiolibrelab/jamcapture/internal/capture"
	"github.com/audiolibrelab/jamcapture/internal/config"
	"github.com/audiolibrelab/jamcapture/internal/storage"
)

// Service is the capture façade the CLI and HTTP server both drive.
type Service interface {
	Sources() []capture.AudioSource
	Start() error
	Pause() error
	Resume() error
	Stop() (capture.RecordingResult, error)
	State() capture.State
	Levels() capture.AudioLevels
	Diagnostics() capture.Diagnostics
	Config() *config.Config
	LastError() string
	Subscribe(sub EventSubscriber) (unsubscribe func())
}

// EventSubscriber receives the same delegate notifications the
// session itself emits; the server package uses this to fan events
// out over a websocket.
type EventSubscriber interface {
	OnStateChanged(state capture.State, elapsed float64)
	OnLevelsUpdated(levels capture.AudioLevels)
	OnEncounteredError(err error)
	OnFinished(result capture.RecordingResult)
}

type captureService struct {
	cfg     *config.Config
	session *capture.Session

	mu   sync.RWMutex
	subs map[EventSubscriber]struct{}

	lastErrMu sync.RWMutex
	lastErr   string
}

// New constructs a Service wired to the given mic/system providers and
// configuration. Either provider may be nil if its source is disabled.
func New(cfg *config.Config, micProvider, systemProvider capture.Provider) (Service, error) {
	svc := &captureService{
		cfg:  cfg,
		subs: make(map[EventSubscriber]struct{}),
	}

	session := capture.NewSession(micProvider, systemProvider, svc)
	svc.session = session

	captureCfg, err := cfg.ToCaptureConfiguration()
	if err != nil {
		return nil, fmt.Errorf("build capture configuration: %w", err)
	}
	if err := session.Configure(captureCfg); err != nil {
		return nil, fmt.Errorf("configure capture session: %w", err)
	}

	return svc, nil
}

func (s *captureService) Sources() []capture.AudioSource {
	return s.session.ListSources()
}

func (s *captureService) Start() error {
	s.clearLastError()
	if err := s.session.Start(); err != nil {
		s.setLastError(err)
		return err
	}
	return nil
}

func (s *captureService) Pause() error {
	if err := s.session.Pause(); err != nil {
		s.setLastError(err)
		return err
	}
	return nil
}

func (s *captureService) Resume() error {
	if err := s.session.Resume(); err != nil {
		s.setLastError(err)
		return err
	}
	return nil
}

func (s *captureService) Stop() (capture.RecordingResult, error) {
	result, err := s.session.Stop()
	if err != nil {
		s.setLastError(err)
		return capture.RecordingResult{}, err
	}
	if err := storage.WriteMetadata(result.Metadata, result.Path); err != nil {
		slog.Error("failed to write metadata sidecar", "error", err)
	}
	return result, nil
}

func (s *captureService) State() capture.State            { return s.session.State() }
func (s *captureService) Levels() capture.AudioLevels      { return s.session.Levels() }
func (s *captureService) Diagnostics() capture.Diagnostics { return s.session.Diagnostics() }
func (s *captureService) Config() *config.Config           { return s.cfg }

func (s *captureService) LastError() string {
	s.lastErrMu.RLock()
	defer s.lastErrMu.RUnlock()
	return s.lastErr
}

func (s *captureService) setLastError(err error) {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	s.lastErr = err.Error()
}

func (s *captureService) clearLastError() {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	s.lastErr = ""
}

// Subscribe registers sub to receive every delegate event forwarded
// from the underlying session. The returned func removes it.
func (s *captureService) Subscribe(sub EventSubscriber) func() {
	s.mu.Lock()
	s.subs[sub] = struct{}{}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, sub)
		s.mu.Unlock()
	}
}

func (s *captureService) subscribers() []EventSubscriber {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]EventSubscriber, 0, len(s.subs))
	for sub := range s.subs {
		out = append(out, sub)
	}
	return out
}

// --- capture.Delegate implementation: logs, then fans out ---

func (s *captureService) OnStateChanged(state capture.State, elapsed float64) {
	slog.Info("capture state changed", "state", state.String(), "elapsed_s", elapsed)
	for _, sub := range s.subscribers() {
		sub.OnStateChanged(state, elapsed)
	}
}

func (s *captureService) OnLevelsUpdated(levels capture.AudioLevels) {
	slog.Debug("levels updated", "mic_rms", levels.MicRMS, "system_rms", levels.SystemRMS)
	for _, sub := range s.subscribers() {
		sub.OnLevelsUpdated(levels)
	}
}

func (s *captureService) OnEncounteredError(err error) {
	slog.Warn("capture encountered a non-fatal error", "error", err)
	for _, sub := range s.subscribers() {
		sub.OnEncounteredError(err)
	}
}

func (s *captureService) OnFinished(result capture.RecordingResult) {
	slog.Info("capture finished", "path", result.Path, "checksum", result.Checksum)
	for _, sub := range s.subscribers() {
		sub.OnFinished(result)
	}
}
