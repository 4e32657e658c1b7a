package capture

import (
	"math"
	"sync"
	"time"
)

// settleDuration is how long the probe listens before reporting the
// settled mic rate. Bluetooth HFP renegotiation typically completes
// well within this window.
const settleDuration = 500 * time.Millisecond

// MicRateProbe starts a mic provider briefly before the real capture
// begins and reports the minimum sample rate seen across delivered
// buffers. Querying the device before opening it is not sufficient:
// opening a Bluetooth headset's mic can force the whole link into HFP
// mode several buffers after capture starts, dropping the rate (e.g.
// 48kHz to ~16kHz) with no advance warning.
type MicRateProbe struct {
	sleep func(time.Duration)
}

// NewMicRateProbe constructs a probe using real wall-clock sleep.
func NewMicRateProbe() *MicRateProbe {
	return &MicRateProbe{sleep: time.Sleep}
}

// Run starts provider, observes buffers for settleDuration, stops the
// provider, and returns the minimum sample rate observed. If the
// provider never fired a callback, it returns fallback.
func (p *MicRateProbe) Run(provider Provider, fallback float64) (float64, error) {
	var mu sync.Mutex
	minRate := math.Inf(1)
	seen := false

	err := provider.Start(func(samples []float32, sourceRate float64, channels int) {
		mu.Lock()
		defer mu.Unlock()
		if !seen || sourceRate < minRate {
			minRate = sourceRate
			seen = true
		}
	})
	if err != nil {
		return 0, newError(ErrKindDeviceNotAvailable, "mic probe failed to start", err)
	}

	sleep := p.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(settleDuration)

	if stopErr := provider.Stop(); stopErr != nil {
		return 0, newError(ErrKindDeviceNotAvailable, "mic probe failed to stop", stopErr)
	}

	mu.Lock()
	defer mu.Unlock()
	if !seen {
		return fallback, nil
	}
	return minRate, nil
}
