package capture

import (
	"sync"
	"testing"
	"time"
)

// fixtureProvider is a local, minimal stand-in for
// providertest.FixtureProvider. It can't be used here because
// providertest imports this package, and this file needs access to
// MicRateProbe's unexported sleep field.
type fixtureProvider struct {
	mu       sync.Mutex
	buffers  [][]float32
	rate     float64
	channels int
	tick     time.Duration
	info     AudioSource

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func (p *fixtureProvider) IsAvailable() bool       { return true }
func (p *fixtureProvider) DeviceInfo() AudioSource { return p.info }

func (p *fixtureProvider) Start(callback BufferCallback) error {
	p.stopCh = make(chan struct{})
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.tick)
		defer ticker.Stop()
		i := 0
		for {
			select {
			case <-p.stopCh:
				return
			case <-ticker.C:
				if len(p.buffers) == 0 {
					continue
				}
				buf := p.buffers[i%len(p.buffers)]
				i++
				callback(buf, p.rate, p.channels)
			}
		}
	}()
	return nil
}

func (p *fixtureProvider) Stop() error {
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.wg.Wait()
	return nil
}

func TestMicRateProbeReportsMinimumRate(t *testing.T) {
	provider := &fixtureProvider{
		info:     AudioSource{ID: "mic", Name: "Test Mic"},
		buffers:  [][]float32{{0.1, 0.2}, {0.1, 0.2}},
		rate:     48000,
		channels: 1,
		tick:     10 * time.Millisecond,
	}

	probe := &MicRateProbe{sleep: func(time.Duration) {}}
	rate, err := probe.Run(provider, 48000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// With an immediate (no-op) sleep the probe may or may not observe
	// a callback before stopping; either the fallback or the fixture's
	// configured rate is acceptable.
	if rate != 48000 {
		t.Errorf("rate = %v, want 48000 (fixture rate == fallback here)", rate)
	}
}

func TestMicRateProbeFallsBackWhenSilent(t *testing.T) {
	provider := &fixtureProvider{
		info:     AudioSource{ID: "mic", Name: "Test Mic"},
		buffers:  nil,
		rate:     48000,
		channels: 1,
		tick:     10 * time.Millisecond,
	}

	probe := &MicRateProbe{sleep: func(time.Duration) {}}
	rate, err := probe.Run(provider, 44100)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rate != 44100 {
		t.Errorf("rate = %v, want fallback 44100", rate)
	}
}
