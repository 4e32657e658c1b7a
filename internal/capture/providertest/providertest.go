// Package providertest provides fixture CaptureProvider implementations
// that replay fixed PCM buffers on a ticking goroutine. These are test
// doubles for exercising the capture session end-to-end; they are not
// production capture backends.
package providertest

import (
	"sync"
	"time"

	"github.com/audiolibrelab/jamcapture/internal/capture"
)

// FixtureProvider replays a fixed list of buffers, one per tick, in
// order, looping if it runs out before Stop is called.
type FixtureProvider struct {
	mu        sync.Mutex
	buffers   [][]float32
	rate      float64
	channels  int
	tick      time.Duration
	info      capture.AudioSource
	available bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFixtureProvider builds a provider that delivers buffers at rate
// Hz with the given channel count, one buffer per tick.
func NewFixtureProvider(info capture.AudioSource, buffers [][]float32, rate float64, channels int, tick time.Duration) *FixtureProvider {
	return &FixtureProvider{
		buffers:   buffers,
		rate:      rate,
		channels:  channels,
		tick:      tick,
		info:      info,
		available: true,
	}
}

// SetAvailable controls the result of IsAvailable, for exercising the
// "system audio unavailable" path.
func (p *FixtureProvider) SetAvailable(available bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = available
}

func (p *FixtureProvider) IsAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

func (p *FixtureProvider) DeviceInfo() capture.AudioSource {
	return p.info
}

func (p *FixtureProvider) Start(callback capture.BufferCallback) error {
	if !p.IsAvailable() {
		return errUnavailable{}
	}
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

func (p *FixtureProvider) Stop() error {
	if p.stopCh != nil {
		close(p.stopCh)
	}
	p.wg.Wait()
	return nil
}

type errUnavailable struct{}

func (errUnavailable) Error() string { return "providertest: device unavailable" }
