// Package mix implements the pure, stateless sample-rate conversion and
// stereo mixing math that turns independently captured mic and system
// audio buffers into a single interleaved stereo PCM stream.
package mix

import "math"

// StereoMixer converts and combines mono mic samples with interleaved
// stereo system samples, all referenced to a single target sample
// rate. It holds no mutable state and every method is deterministic
// given its arguments.
type StereoMixer struct {
	targetSampleRate float64
}

// New returns a StereoMixer targeting the given sample rate in Hz.
func New(targetSampleRate float64) *StereoMixer {
	return &StereoMixer{targetSampleRate: targetSampleRate}
}

// TargetSampleRate returns the mixer's configured target rate.
func (m *StereoMixer) TargetSampleRate() float64 {
	return m.targetSampleRate
}

// ResampleMono linearly resamples a mono sample sequence from
// sourceRate to the mixer's target rate. If the rates are equal or
// samples is empty, it returns samples unchanged.
func (m *StereoMixer) ResampleMono(samples []float32, sourceRate float64) []float32 {
	if len(samples) == 0 || sourceRate == m.targetSampleRate {
		return samples
	}
	outLen := int(float64(len(samples)) * m.targetSampleRate / sourceRate)
	out := make([]float32, outLen)
	ratio := sourceRate / m.targetSampleRate
	last := len(samples) - 1
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		if idx >= last {
			out[i] = samples[last]
			continue
		}
		frac := srcPos - float64(idx)
		out[i] = samples[idx] + float32(frac)*(samples[idx+1]-samples[idx])
	}
	return out
}

// ResampleStereo linearly resamples an interleaved stereo sample
// sequence from sourceRate to the mixer's target rate, operating on
// whole frames.
func (m *StereoMixer) ResampleStereo(interleaved []float32, sourceRate float64) []float32 {
	if len(interleaved) == 0 || sourceRate == m.targetSampleRate {
		return interleaved
	}
	frames := len(interleaved) / 2
	outFrames := int(float64(frames) * m.targetSampleRate / sourceRate)
	out := make([]float32, outFrames*2)
	ratio := sourceRate / m.targetSampleRate
	lastFrame := frames - 1
	for i := 0; i < outFrames; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		if idx >= lastFrame {
			out[2*i] = interleaved[2*lastFrame]
			out[2*i+1] = interleaved[2*lastFrame+1]
			continue
		}
		frac := float32(srcPos - float64(idx))
		l0, r0 := interleaved[2*idx], interleaved[2*idx+1]
		l1, r1 := interleaved[2*idx+2], interleaved[2*idx+3]
		out[2*i] = l0 + frac*(l1-l0)
		out[2*i+1] = r0 + frac*(r1-r0)
	}
	return out
}

// Interleave combines independent left and right channels into
// interleaved stereo [L0,R0,L1,R1,...]. The shorter channel is
// zero-padded to the longer channel's frame count.
func Interleave(left, right []float32) []float32 {
	frames := len(left)
	if len(right) > frames {
		frames = len(right)
	}
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		if i < len(left) {
			out[2*i] = left[i]
		}
		if i < len(right) {
			out[2*i+1] = right[i]
		}
	}
	return out
}

// MixMonoMicWithStereoSystem sums a mono mic signal into an
// interleaved stereo system signal: L = mic[i] + system[2i],
// R = mic[i] + system[2i+1]. Missing samples on either side are
// treated as zero. No clamping/saturation is applied here.
func MixMonoMicWithStereoSystem(mic, system []float32) []float32 {
	systemFrames := len(system) / 2
	frames := len(mic)
	if systemFrames > frames {
		frames = systemFrames
	}
	out := make([]float32, frames*2)
	for i := 0; i < frames; i++ {
		var micSample float32
		if i < len(mic) {
			micSample = mic[i]
		}
		var sysL, sysR float32
		if i < systemFrames {
			sysL = system[2*i]
			sysR = system[2*i+1]
		}
		out[2*i] = micSample + sysL
		out[2*i+1] = micSample + sysR
	}
	return out
}

// ToInt16PCM clamps each sample to [-1, 1], scales to the int16 range,
// and emits little-endian 16-bit PCM bytes, two bytes per sample.
func ToInt16PCM(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		clamped := s
		if clamped > 1 {
			clamped = 1
		} else if clamped < -1 {
			clamped = -1
		}
		v := int16(math.Round(float64(clamped) * float64(math.MaxInt16)))
		out[2*i] = byte(uint16(v))
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}

// RMSLevel computes the root-mean-square level of samples, in [0, 1]
// for normalized PCM input.
func RMSLevel(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sumSquares float64
	for _, s := range samples {
		sumSquares += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sumSquares / float64(len(samples))))
}

// PeakLevel computes the maximum absolute sample value.
func PeakLevel(samples []float32) float32 {
	var peak float32
	for _, s := range samples {
		abs := s
		if abs < 0 {
			abs = -abs
		}
		if abs > peak {
			peak = abs
		}
	}
	return peak
}
