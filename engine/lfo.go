package engine

import "math"

// LFOShape selects the waveform a LFOPhasor outputs.
type LFOShape int

const (
	LFOSine LFOShape = iota
	LFOSquare
	LFOSaw
	LFOReverseSaw
)

// LFOPhasor is a [0,1)-ramping phase accumulator shaped into one of four
// bipolar waveforms, output range [-1,1].
type LFOPhasor struct {
	phase float64
}

// NewLFOPhasor returns a phasor starting at phase 0.
func NewLFOPhasor() *LFOPhasor { return &LFOPhasor{} }

// Render advances the phasor by rateHz/sampleRate and returns the shaped
// bipolar sample.
func (l *LFOPhasor) Render(rateHz, sampleRate float64, shape LFOShape) float64 {
	x := l.phase
	l.phase += rateHz / sampleRate
	if l.phase >= 1 {
		l.phase -= math.Floor(l.phase)
	}
	switch shape {
	case LFOSquare:
		if x >= 0.5 {
			return 1
		}
		return -1
	case LFOSaw:
		return 2 * (x - 0.5)
	case LFOReverseSaw:
		return 2 * (0.5 - x)
	default:
		return math.Sin(2 * math.Pi * x)
	}
}

// Unipolar converts a bipolar LFO sample into the [0, amplitude] range
// used to scale modulation targets: 0.5*(1+lfo)*amplitude.
func Unipolar(lfoValue, amplitude float64) float64 {
	return 0.5 * (1 + lfoValue) * amplitude
}

// PortamentoSmoother is a one-pole low-pass parameterized by half-time:
// the number of seconds for the output to close half the remaining
// distance to a newly set target.
type PortamentoSmoother struct {
	value float64
}

// NewPortamentoSmoother returns a smoother initialized to the given
// starting value (so the very first Process call does not glide from 0).
func NewPortamentoSmoother(initial float64) *PortamentoSmoother {
	return &PortamentoSmoother{value: initial}
}

// Value returns the current smoothed output without advancing it.
func (s *PortamentoSmoother) Value() float64 { return s.value }

// SetImmediate forces the smoother's output to v with no glide, used when
// a hard reset (not a glide) is required.
func (s *PortamentoSmoother) SetImmediate(v float64) { s.value = v }

// Process advances the smoother one sample toward target, per halfTimeSec.
// A non-positive half-time snaps immediately to target (no glide).
func (s *PortamentoSmoother) Process(target, halfTimeSec, sampleRate float64) float64 {
	if halfTimeSec <= 0 {
		s.value = target
		return s.value
	}
	coeff := math.Pow(0.5, 1.0/(halfTimeSec*sampleRate))
	s.value = target + (s.value-target)*coeff
	return s.value
}
