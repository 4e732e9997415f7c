package engine

import "math"

// adsrStage is the internal stage of an ADSR envelope generator.
type adsrStage int

const (
	adsrIdle adsrStage = iota
	adsrAttack
	adsrDecay
	adsrSustain
	adsrRelease
)

// minEnvelopeTime floors a duration parameter so that dividing by it (or
// deriving an exponential coefficient from it) never produces an
// infinite or NaN step.
const minEnvelopeTime = 1e-4

// ADSR is a four-stage amplitude/cutoff envelope generator gated by a 0/1
// signal. Attack ramps linearly to 1; decay and release are one-pole
// exponential approaches (to sustain, and to 0, respectively). The release
// coefficient is scaled so that a value of 1 falls to
// ReleaseAmplitudeThreshold after release*sampleRate samples, so a
// releasing envelope crosses the threshold within its release time.
type ADSR struct {
	stage    adsrStage
	value    float64
	prevGate float64
}

// NewADSR returns an idle envelope at value 0.
func NewADSR() *ADSR { return &ADSR{} }

// Reset forces the envelope back to idle at value 0, as on voice clear.
func (e *ADSR) Reset() {
	e.stage = adsrIdle
	e.value = 0
	e.prevGate = 0
}

// Value returns the last computed envelope output without advancing it.
func (e *ADSR) Value() float64 { return e.value }

// Process advances the envelope by one sample given the current gate and
// stage durations (seconds) / sustain level (linear), and returns the new
// envelope value.
func (e *ADSR) Process(gate, attack, decay, sustain, release, sampleRate float64) float64 {
	if gate > 0.5 && e.prevGate <= 0.5 {
		e.stage = adsrAttack
	} else if gate <= 0.5 && e.prevGate > 0.5 {
		e.stage = adsrRelease
	}
	e.prevGate = gate

	attack = math.Max(attack, minEnvelopeTime)
	decay = math.Max(decay, minEnvelopeTime)
	release = math.Max(release, minEnvelopeTime)

	switch e.stage {
	case adsrAttack:
		e.value += 1.0 / (attack * sampleRate)
		if e.value >= 1 {
			e.value = 1
			e.stage = adsrDecay
		}
	case adsrDecay:
		coeff := math.Exp(-1.0 / (decay * sampleRate))
		e.value = sustain + (e.value-sustain)*coeff
		if math.Abs(e.value-sustain) < 1e-6 {
			e.value = sustain
			e.stage = adsrSustain
		}
	case adsrSustain:
		e.value = sustain
	case adsrRelease:
		coeff := math.Exp(math.Log(ReleaseAmplitudeThreshold) / (release * sampleRate))
		e.value *= coeff
	default:
		e.value = 0
	}
	return e.value
}
