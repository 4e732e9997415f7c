package engine

import (
	"math"
	"math/rand"
)

// SubOscillator is a sine generator read from the shared internal sine
// table, optionally hard-clipped to a square wave. It tracks its own
// phase independently of the two morphing oscillators since it runs at a
// different (typically sub-octave) frequency.
type SubOscillator struct {
	sine  *Wavetable
	phase float64
}

// NewSubOscillator creates a sub-oscillator reading the given sine table.
func NewSubOscillator(sine *Wavetable) *SubOscillator {
	return &SubOscillator{sine: sine}
}

// Reset zeroes the phase accumulator.
func (s *SubOscillator) Reset() { s.phase = 0 }

// Render advances phase and returns the raw sine sample in [-1,1]; the
// caller applies isSquare hard-sign and volume scaling (step 11 of the
// voice render order), since the ×3 sine-mode boost and squaring are
// volume/shape decisions, not oscillator internals.
func (s *SubOscillator) Render(freqHz, sampleRate float64) float64 {
	out := s.sine.at(s.phase)
	s.phase += freqHz / sampleRate
	if s.phase >= 1 {
		s.phase -= math.Floor(s.phase)
	}
	return out
}

// FMOscillator is a two-operator sine FM generator: a unit-ratio
// modulator phase-modulates a unit-ratio carrier by indx radians/2π.
// Equivalent to a classic 1:1 Chowning FM oscillator.
type FMOscillator struct {
	phase float64
}

// NewFMOscillator creates an FM oscillator at phase zero.
func NewFMOscillator() *FMOscillator { return &FMOscillator{} }

// Reset zeroes the phase accumulator.
func (f *FMOscillator) Reset() { f.phase = 0 }

// Render advances phase by freqHz/sampleRate and returns
// sin(2π·phase + index·sin(2π·phase)).
func (f *FMOscillator) Render(freqHz, sampleRate, index float64) float64 {
	modulator := math.Sin(2 * math.Pi * f.phase)
	out := math.Sin(2*math.Pi*f.phase + index*modulator)
	f.phase += freqHz / sampleRate
	if f.phase >= 1 {
		f.phase -= math.Floor(f.phase)
	}
	return out
}

// NoiseSource is a per-sample white noise generator in [-1,1], seeded
// deterministically so that test renders are reproducible.
type NoiseSource struct {
	rng *rand.Rand
}

// NewNoiseSource creates a noise source with a fixed seed.
func NewNoiseSource(seed int64) *NoiseSource {
	return &NoiseSource{rng: rand.New(rand.NewSource(seed))}
}

// Render returns the next white noise sample in [-1,1].
func (n *NoiseSource) Render() float64 {
	return n.rng.Float64()*2 - 1
}
