package engine

import (
	"math"

	"github.com/cwbudde/polysynth-engine/dsp/core"
	"github.com/cwbudde/polysynth-engine/dsp/filter/biquad"
	"github.com/cwbudde/polysynth-engine/dsp/filter/design"
	"github.com/cwbudde/polysynth-engine/dsp/filter/moog"
)

// Stage is the lifecycle state of a voice.
type Stage int

const (
	StageOff Stage = iota
	StageOn
	StageRelease
)

// ReleaseAmplitudeThreshold is the amplitude below which a releasing
// voice is considered finished and returned to the pool.
const ReleaseAmplitudeThreshold = 1e-5

// FilterType selects which of the three per-voice filters routes the
// voice's dry signal (step 15 of the render order).
type FilterType int

const (
	FilterLowPass FilterType = iota
	FilterBandPass
	FilterHighPass
)

// LFOTarget is a 3-valued modulation selector: 0=none, 1=LFO1, 2=LFO2.
type LFOTarget int

const (
	LFOTargetNone LFOTarget = iota
	LFOTargetLFO1
	LFOTargetLFO2
)

func lfoTargetValue(sel LFOTarget, lfo1u, lfo2u float64) float64 {
	switch sel {
	case LFOTargetLFO1:
		return lfo1u
	case LFOTargetLFO2:
		return lfo2u
	default:
		return 0
	}
}

// VoiceContext is the borrowed, read-only view a voice needs to render
// one sample: the shared parameter vector, shared wavetable bank, the
// two per-sample LFO values (bipolar and already-selected unipolar
// variants are derived from these), the five globally-smoothed
// portamento outputs, and the sample rate. It stands in for the "cyclic
// ownership" back-pointer a C++ voice would hold onto its engine: the
// voice never stores this, it only receives it for the duration of one
// Render call.
type VoiceContext struct {
	Params     *ParameterVector
	SampleRate float64

	LFO1, LFO2 float64 // bipolar [-1,1] LFO outputs for this sample

	MorphBalanceSmooth float64
	DetuneMultSmooth   float64
	CutoffSmooth       float64
	ResonanceSmooth    float64

	// BaseFreq is the voice's unmodulated note frequency: the per-voice
	// oscillator frequency in poly mode, or MonoFrequencySmooth in mono
	// mode.
	BaseFreq float64
}

// Voice is one polyphonic voice (NoteState): oscillators, filters, and
// amp/filter envelopes for a single sounding note. Voices are allocated
// once and reused; Clear returns a voice to the idle pool without
// deallocating anything.
type Voice struct {
	Stage          Stage
	RootNoteNumber int
	InternalGate   float64

	// BaseFreq is the note frequency cached at StartNote time (poly), or
	// continuously overwritten by the engine from the mono portamento
	// smoother (mono voice only). Never recomputed from the tuning table
	// inside Render.
	BaseFreq float64

	amp       float64
	filterEnv float64

	velocityAmp float64

	ampEnv     *ADSR
	filterADSR *ADSR

	osc1, osc2 *MorphOscillator
	sub        *SubOscillator
	fm         *FMOscillator
	noise      *NoiseSource

	lp *moog.Filter
	bp *biquad.Section
	hp *biquad.Section
}

// NewVoice allocates one voice's unit generators against the shared
// wavetable bank. sampleRate configures the low-pass ladder filter; the
// band-pass and high-pass filter coefficients are recomputed every
// sample they're selected, so they need no fixed construction-time
// cutoff.
func NewVoice(bank *WavetableBank, sampleRate float64) (*Voice, error) {
	lp, err := moog.New(sampleRate)
	if err != nil {
		return nil, err
	}
	v := &Voice{
		RootNoteNumber: -1,
		ampEnv:         NewADSR(),
		filterADSR:     NewADSR(),
		osc1:           NewMorphOscillator(bank),
		osc2:           NewMorphOscillator(bank),
		sub:            NewSubOscillator(bank.Sine),
		fm:             NewFMOscillator(),
		noise:          NewNoiseSource(1),
		lp:             lp,
		bp:             biquad.NewSection(biquad.Coefficients{B0: 1}),
		hp:             biquad.NewSection(biquad.Coefficients{B0: 1}),
	}
	return v, nil
}

// Clear returns the voice to Off: rootNoteNumber=-1, amp=0, gate=0. The
// unit generators themselves are left as-is; they are retriggered with
// fresh phase on the next StartNote.
func (v *Voice) Clear() {
	v.Stage = StageOff
	v.RootNoteNumber = -1
	v.InternalGate = 0
	v.amp = 0
	v.filterEnv = 0
	v.ampEnv.Reset()
	v.filterADSR.Reset()
}

// StartNote implements startNoteHelper: caches the note frequency
// (looked up once, at note-on, never in the per-sample hot path), resets
// oscillator phases, sets the velocity-derived amplitude, and opens the
// gate.
func (v *Voice) StartNote(noteNumber int, velocity int, freqHz float64) {
	v.osc1.Reset()
	v.osc2.Reset()
	v.sub.Reset()
	v.fm.Reset()
	vel := float64(velocity) / 127
	v.velocityAmp = vel * vel
	v.Stage = StageOn
	v.InternalGate = 1
	v.RootNoteNumber = noteNumber
	v.BaseFreq = freqHz
}

// ForceReleaseReset zeroes the gate and advances both envelopes by one
// sample, implementing the mono retrigger "force release" step that
// precedes a fresh StartNote when legato is off.
func (v *Voice) ForceReleaseReset(ctx *VoiceContext) {
	v.InternalGate = 0
	p := ctx.Params
	v.ampEnv.Process(0,
		p.Get(ParamAttackDuration), p.Get(ParamDecayDuration),
		p.Get(ParamSustainLevel), p.Get(ParamReleaseDuration), ctx.SampleRate)
	v.filterADSR.Process(0,
		p.Get(ParamFilterAttackDuration), p.Get(ParamFilterDecayDuration),
		p.Get(ParamFilterSustainLevel), p.Get(ParamFilterReleaseDuration), ctx.SampleRate)
}

// Revoice implements the mono CACA hand-off: re-enter stage=On with the
// gate reopened and a new root note/frequency, without resetting
// oscillator phases or re-deriving velocity amplitude (unlike
// StartNote). Used when a key releases while other keys are still held
// and the previously-sounding note must "come back".
func (v *Voice) Revoice(noteNumber int, freqHz float64) {
	v.RootNoteNumber = noteNumber
	v.BaseFreq = freqHz
	v.Stage = StageOn
	v.InternalGate = 1
}

// Release moves the voice into Release with the gate closed.
func (v *Voice) Release() {
	v.Stage = StageRelease
	v.InternalGate = 0
}

// RetireIfFinished clears a Release-stage voice whose amplitude envelope
// has decayed below ReleaseAmplitudeThreshold, returning true if it did.
func (v *Voice) RetireIfFinished() bool {
	if v.Stage == StageRelease && v.amp < ReleaseAmplitudeThreshold {
		v.Clear()
		return true
	}
	return false
}

func clampFreq(f, sampleRate float64) float64 {
	return core.Clamp(f, 0, sampleRate/2)
}

// Render performs the full per-sample voice algorithm (component design
// §4.2, steps 1-17) and returns the voice's mono contribution.
func (v *Voice) Render(ctx *VoiceContext) float64 {
	p := ctx.Params
	sr := ctx.SampleRate
	lfo1u := Unipolar(ctx.LFO1, p.Get(ParamLFO1Amplitude))
	lfo2u := Unipolar(ctx.LFO2, p.Get(ParamLFO2Amplitude))

	// 1. Pitch tracking.
	pitchSel := LFOTarget(p.Get(ParamPitchLFO))
	pitchLFOMult := 1.0
	if pitchSel != LFOTargetNone {
		pitchLFOMult = 1 + lfoTargetValue(pitchSel, lfo1u, lfo2u)
	}

	base := ctx.BaseFreq
	detuneMult := ctx.DetuneMultSmooth

	osc1Freq := clampFreq(base*math.Pow(2, p.Get(ParamMorph1SemitoneOffset)/12)*detuneMult*pitchLFOMult, sr)

	osc2Pristine := base * math.Pow(2, p.Get(ParamMorph2SemitoneOffset)/12) * detuneMult
	detuneAdd := p.Get(ParamMorph2Detuning) * (base / 261)
	detuneSel := LFOTarget(p.Get(ParamDetuneLFO))
	if detuneSel != LFOTargetNone {
		detuneAdd *= lfoTargetValue(detuneSel, lfo1u, lfo2u)
	}
	osc2Freq := clampFreq(osc2Pristine*pitchLFOMult+detuneAdd, sr)

	subFreq := clampFreq(base*detuneMult/(2*(1+p.Get(ParamSubOctaveDown)))*pitchLFOMult, sr)
	fmFreq := clampFreq(base*detuneMult*pitchLFOMult, sr)

	// 2. Wavetable positions.
	v.osc1.SetWavetablePosition(p.Get(ParamIndex1))
	v.osc2.SetWavetablePosition(p.Get(ParamIndex2))

	// 3. FM index.
	fmAmount := p.Get(ParamFMAmount)
	fmSel := LFOTarget(p.Get(ParamFMLFO))
	if fmSel != LFOTargetNone {
		fmAmount *= lfoTargetValue(fmSel, lfo1u, lfo2u)
	}
	fmAmount = clampParam(ParamFMAmount, fmAmount)

	// 4. Amp ADSR inputs.
	attack := p.Get(ParamAttackDuration)
	release := p.Get(ParamReleaseDuration)
	decay := p.Get(ParamDecayDuration)
	decaySel := LFOTarget(p.Get(ParamDecayLFO))
	if decaySel != LFOTargetNone {
		decay *= lfoTargetValue(decaySel, lfo1u, lfo2u)
	}
	sustain := p.Get(ParamSustainLevel)
	sustainSel := LFOTarget(p.Get(ParamSustainLFO))
	if sustainSel != LFOTargetNone {
		sustain *= lfoTargetValue(sustainSel, lfo1u, lfo2u)
	}
	decay = clampParam(ParamDecayDuration, decay)
	sustain = clampParam(ParamSustainLevel, sustain)

	// 5. Filter ADSR inputs (no LFO).
	fAttack := p.Get(ParamFilterAttackDuration)
	fDecay := p.Get(ParamFilterDecayDuration)
	fSustain := p.Get(ParamFilterSustainLevel)
	fRelease := p.Get(ParamFilterReleaseDuration)

	// 6. Oscillator crossfade position.
	mixPos := ctx.MorphBalanceSmooth
	mixSel := LFOTarget(p.Get(ParamOscMixLFO))
	if mixSel != LFOTargetNone {
		mixPos += lfoTargetValue(mixSel, lfo1u, lfo2u)
	}
	mixPos = clamp01(mixPos)

	// 7. Filter resonance.
	resonance := ctx.ResonanceSmooth
	resSel := LFOTarget(p.Get(ParamResonanceLFO))
	if resSel != LFOTargetNone {
		resonance *= lfoTargetValue(resSel, lfo1u, lfo2u)
	}
	resonance = clampParam(ParamResonance, resonance)

	// 8. Envelope compute.
	v.amp = v.ampEnv.Process(v.InternalGate, attack, decay, sustain, release, sr)
	v.filterEnv = v.filterADSR.Process(v.InternalGate, fAttack, fDecay, fSustain, fRelease, sr)

	// 9. Filter cutoff.
	cutoff := ctx.CutoffSmooth
	cutoffSel := LFOTarget(p.Get(ParamCutoffLFO))
	if cutoffSel != LFOTargetNone {
		cutoff *= lfoTargetValue(cutoffSel, lfo1u, lfo2u)
	}
	envLFOMix := p.Get(ParamFilterADSRMix)
	filterEnvLFOSel := LFOTarget(p.Get(ParamFilterEnvLFO))
	if filterEnvLFOSel != LFOTargetNone {
		envLFOMix *= lfoTargetValue(filterEnvLFOSel, lfo1u, lfo2u)
	}
	cutoff -= cutoff * envLFOMix * (1 - v.filterEnv)
	cutoff = clampParam(ParamCutoff, cutoff)

	// 10. Run morph oscillators.
	osc1Out := v.osc1.Render(osc1Freq, sr) * p.Get(ParamMorph1Volume) * v.velocityAmp
	osc2Out := v.osc2.Render(osc2Freq, sr) * p.Get(ParamMorph2Volume) * v.velocityAmp
	oscMorph := morphCrossfade(osc1Out, osc2Out, mixPos)

	// 11. Sub oscillator.
	subRaw := v.sub.Render(subFreq, sr)
	var subOut float64
	if p.Get(ParamSubIsSquare) != 0 {
		subOut = math.Copysign(1, subRaw) * p.Get(ParamSubVolume)
	} else {
		// Sine-mode boost: the original applies *2*1.5 (=3x) "to make
		// sine louder"; preserved verbatim.
		subOut = subRaw * p.Get(ParamSubVolume) * 3 * v.velocityAmp
	}

	// 12. FM oscillator.
	fmOut := v.fm.Render(fmFreq, sr, fmAmount) * p.Get(ParamFMVolume) * v.velocityAmp

	// 13. Noise.
	noiseVol := p.Get(ParamNoiseVolume)
	noiseSel := LFOTarget(p.Get(ParamNoiseLFO))
	if noiseSel != LFOTargetNone {
		noiseVol *= lfoTargetValue(noiseSel, lfo1u, lfo2u)
	}
	noiseOut := v.noise.Render() * noiseVol * v.velocityAmp

	// 14. Sum.
	synthOut := v.amp * (oscMorph + subOut + fmOut + noiseOut)

	// 15. Filter.
	filterType := FilterType(p.Get(ParamFilterType))
	var filterOut float64
	switch filterType {
	case FilterBandPass:
		bw := (1.0 / 16.0) * sr * (math.Pow(2, 1-resonance) - 1)
		if bw < 1 {
			bw = 1
		}
		q := cutoff / bw
		v.bp.Coefficients = design.Bandpass(cutoff, q, sr)
		filterOut = v.bp.ProcessSample(synthOut)
	case FilterHighPass:
		v.hp.Coefficients = design.Highpass(cutoff, 0.707, sr)
		filterOut = v.hp.ProcessSample(synthOut)
	default:
		_ = v.lp.SetCutoffHz(cutoff)
		_ = v.lp.SetResonance(resonance)
		filterOut = v.lp.ProcessSample(synthOut)
	}

	// 16. Dry/filter crossfade.
	finalOut := filterCrossFade(synthOut, filterOut, p.Get(ParamFilterMix))

	return finalOut
}
