package capture_test

import (
	"testing"
	"time"

	"github.com/audiolibrelab/jamcapture/internal/capture"
	"github.com/audiolibrelab/jamcapture/internal/capture/providertest"
)

type recordingDelegate struct{}

func newRecordingDelegate() *recordingDelegate {
	return &recordingDelegate{}
}

func (d *recordingDelegate) OnStateChanged(state capture.State, elapsed float64) {}
func (d *recordingDelegate) OnLevelsUpdated(levels capture.AudioLevels)          {}
func (d *recordingDelegate) OnEncounteredError(err error)                        {}
func (d *recordingDelegate) OnFinished(result capture.RecordingResult)           {}

func micBuffers() [][]float32 {
	return [][]float32{
		{0.1, 0.2, 0.3, 0.4, 0.5},
		{0.1, 0.2, 0.3, 0.4, 0.5},
	}
}

func systemBuffers() [][]float32 {
	return [][]float32{
		{0.05, 0.06, 0.05, 0.06, 0.05, 0.06, 0.05, 0.06},
		{0.05, 0.06, 0.05, 0.06, 0.05, 0.06, 0.05, 0.06},
	}
}

func TestConfigureRequiresIdle(t *testing.T) {
	s := capture.NewSession(nil, nil, nil)
	if err := s.Configure(capture.DefaultConfiguration()); err != nil {
		t.Fatalf("Configure from Idle: %v", err)
	}
	if s.State() != capture.StateReady {
		t.Fatalf("state = %v, want Ready", s.State())
	}
	if err := s.Configure(capture.DefaultConfiguration()); err == nil {
		t.Errorf("expected error configuring a non-Idle session")
	}
}

func TestConfigureInvalidGoesToFailed(t *testing.T) {
	s := capture.NewSession(nil, nil, nil)
	bad := capture.Configuration{SampleRate: -1, BitDepth: 16, Channels: 2}
	if err := s.Configure(bad); err == nil {
		t.Fatalf("expected error for invalid configuration")
	}
	if s.State() != capture.StateFailed {
		t.Fatalf("state = %v, want Failed", s.State())
	}
}

func TestPauseRequiresCapturing(t *testing.T) {
	s := capture.NewSession(nil, nil, nil)
	if err := s.Pause(); err == nil {
		t.Errorf("expected error pausing an Idle session")
	}
}

func TestResumeRequiresPaused(t *testing.T) {
	s := capture.NewSession(nil, nil, nil)
	if err := s.Resume(); err == nil {
		t.Errorf("expected error resuming a non-Paused session")
	}
}

func TestFullCaptureLifecycle(t *testing.T) {
	dir := t.TempDir()

	mic := providertest.NewFixtureProvider(
		capture.AudioSource{ID: "mic", Name: "Test Mic"},
		micBuffers(), 48000, 1, 5*time.Millisecond,
	)
	sys := providertest.NewFixtureProvider(
		capture.AudioSource{ID: "system-audio", Name: "System"},
		systemBuffers(), 48000, 2, 5*time.Millisecond,
	)

	delegate := newRecordingDelegate()
	s := capture.NewSession(mic, sys, delegate)

	cfg := capture.DefaultConfiguration()
	cfg.OutputDir = dir
	if err := s.Configure(cfg); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != capture.StateCapturing {
		t.Fatalf("state after Start = %v, want Capturing", s.State())
	}

	if err := s.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if s.State() != capture.StatePaused {
		t.Fatalf("state after Pause = %v, want Paused", s.State())
	}
	if err := s.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.State() != capture.StateCapturing {
		t.Fatalf("state after Resume = %v, want Capturing", s.State())
	}

	time.Sleep(150 * time.Millisecond)

	result, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.State() != capture.StateCompleted {
		t.Fatalf("state after Stop = %v, want Completed", s.State())
	}
	if result.Path == "" {
		t.Errorf("expected a non-empty output path")
	}
	if result.Checksum == "" {
		t.Errorf("expected a non-empty checksum")
	}
	if len(result.Metadata.Tracks) != 2 {
		t.Errorf("expected two tracks in metadata, got %d", len(result.Metadata.Tracks))
	}
}

func TestStateMachineLinearityCannotSkipConfiguring(t *testing.T) {
	s := capture.NewSession(nil, nil, nil)
	if err := s.Start(); err == nil {
		t.Errorf("expected error starting a session that was never configured")
	}
	if s.State() == capture.StateCapturing {
		t.Errorf("session must not reach Capturing without Configuring -> Ready")
	}
}
