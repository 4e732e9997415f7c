package engine

import (
	"fmt"

	"github.com/cwbudde/polysynth-engine/dsp/core"
)

// ParamIndex identifies one slot of the flat parameter vector.
type ParamIndex int

// Parameter indices, in the order the underlying render algorithm expects
// them. Renumbering breaks ABI compatibility with hosts that address
// parameters positionally, so the sequence below is considered fixed.
const (
	ParamIndex1 ParamIndex = iota
	ParamIndex2
	ParamMorphBalance
	ParamMorph1SemitoneOffset
	ParamMorph2SemitoneOffset
	ParamMorph1Volume
	ParamMorph2Volume
	ParamSubVolume
	ParamSubOctaveDown
	ParamSubIsSquare
	ParamFMVolume
	ParamFMAmount
	ParamNoiseVolume
	ParamLFO1Index
	ParamLFO1Amplitude
	ParamLFO1Rate
	ParamCutoff
	ParamResonance
	ParamFilterMix
	ParamFilterADSRMix
	ParamIsMono
	ParamGlide
	ParamFilterAttackDuration
	ParamFilterDecayDuration
	ParamFilterSustainLevel
	ParamFilterReleaseDuration
	ParamAttackDuration
	ParamDecayDuration
	ParamSustainLevel
	ParamReleaseDuration
	ParamMorph2Detuning
	ParamDetuningMultiplier
	ParamMasterVolume
	ParamBitCrushDepth
	ParamBitCrushSampleRate
	ParamAutoPanAmount
	ParamAutoPanFrequency
	ParamReverbOn
	ParamReverbFeedback
	ParamReverbHighPass
	ParamReverbMix
	ParamDelayOn
	ParamDelayFeedback
	ParamDelayTime
	ParamDelayMix
	ParamLFO2Index
	ParamLFO2Amplitude
	ParamLFO2Rate
	ParamCutoffLFO
	ParamResonanceLFO
	ParamOscMixLFO
	ParamSustainLFO
	ParamDecayLFO
	ParamNoiseLFO
	ParamFMLFO
	ParamDetuneLFO
	ParamFilterEnvLFO
	ParamPitchLFO
	ParamBitcrushLFO
	ParamAutopanLFO
	ParamArpDirection
	ParamArpInterval
	ParamArpIsOn
	ParamArpOctave
	ParamArpRate
	ParamArpIsSequencer
	ParamArpTotalSteps
	ParamArpSeqPattern00
	ParamArpSeqPattern01
	ParamArpSeqPattern02
	ParamArpSeqPattern03
	ParamArpSeqPattern04
	ParamArpSeqPattern05
	ParamArpSeqPattern06
	ParamArpSeqPattern07
	ParamArpSeqPattern08
	ParamArpSeqPattern09
	ParamArpSeqPattern10
	ParamArpSeqPattern11
	ParamArpSeqPattern12
	ParamArpSeqPattern13
	ParamArpSeqPattern14
	ParamArpSeqPattern15
	ParamArpSeqOctBoost00
	ParamArpSeqOctBoost01
	ParamArpSeqOctBoost02
	ParamArpSeqOctBoost03
	ParamArpSeqOctBoost04
	ParamArpSeqOctBoost05
	ParamArpSeqOctBoost06
	ParamArpSeqOctBoost07
	ParamArpSeqOctBoost08
	ParamArpSeqOctBoost09
	ParamArpSeqOctBoost10
	ParamArpSeqOctBoost11
	ParamArpSeqOctBoost12
	ParamArpSeqOctBoost13
	ParamArpSeqOctBoost14
	ParamArpSeqOctBoost15
	ParamArpSeqNoteOn00
	ParamArpSeqNoteOn01
	ParamArpSeqNoteOn02
	ParamArpSeqNoteOn03
	ParamArpSeqNoteOn04
	ParamArpSeqNoteOn05
	ParamArpSeqNoteOn06
	ParamArpSeqNoteOn07
	ParamArpSeqNoteOn08
	ParamArpSeqNoteOn09
	ParamArpSeqNoteOn10
	ParamArpSeqNoteOn11
	ParamArpSeqNoteOn12
	ParamArpSeqNoteOn13
	ParamArpSeqNoteOn14
	ParamArpSeqNoteOn15
	ParamFilterType
	ParamPhaserMix
	ParamPhaserRate
	ParamPhaserFeedback
	ParamPhaserNotchWidth
	ParamMonoIsLegato

	paramCount
)

// ArpSeqSteps is the number of sequencer pattern/octBoost/noteOn slots.
const ArpSeqSteps = 16

// paramRecord is the static {min, default, max, name} record for one slot.
type paramRecord struct {
	min, defaultValue, max float64
	name                   string
}

var paramTable = buildParamTable()

func buildParamTable() [paramCount]paramRecord {
	t := [paramCount]paramRecord{}
	set := func(idx ParamIndex, min, def, max float64, name string) {
		t[idx] = paramRecord{min: min, defaultValue: def, max: max, name: name}
	}

	set(ParamIndex1, 0, 0, 1, "index1")
	set(ParamIndex2, 0, 0, 1, "index2")
	set(ParamMorphBalance, 0, 0.5, 1, "morphBalance")
	set(ParamMorph1SemitoneOffset, -12, 0, 12, "morph1SemitoneOffset")
	set(ParamMorph2SemitoneOffset, -12, 0, 12, "morph2SemitoneOffset")
	set(ParamMorph1Volume, 0, 0.8, 1, "morph1Volume")
	set(ParamMorph2Volume, 0, 0.8, 1, "morph2Volume")
	set(ParamSubVolume, 0, 0, 1, "subVolume")
	set(ParamSubOctaveDown, 0, 0, 1, "subOctaveDown")
	set(ParamSubIsSquare, 0, 0, 1, "subIsSquare")
	set(ParamFMVolume, 0, 0, 1, "fmVolume")
	set(ParamFMAmount, 0, 0, 15, "fmAmount")
	set(ParamNoiseVolume, 0, 0, 0.25, "noiseVolume")
	set(ParamLFO1Index, 0, 0, 3, "lfo1Index")
	set(ParamLFO1Amplitude, 0, 0, 1, "lfo1Amplitude")
	set(ParamLFO1Rate, 0, 0.25, 10, "lfo1Rate")
	set(ParamCutoff, 256, 2000, 28000, "cutoff")
	set(ParamResonance, 0, 0.1, 0.75, "resonance")
	set(ParamFilterMix, 0, 1, 1, "filterMix")
	set(ParamFilterADSRMix, 0, 0, 1.2, "filterADSRMix")
	set(ParamIsMono, 0, 0, 1, "isMono")
	set(ParamGlide, 0, 0, 0.2, "glide")
	set(ParamFilterAttackDuration, 0.0005, 0.05, 2, "filterAttackDuration")
	set(ParamFilterDecayDuration, 0.005, 0.05, 2, "filterDecayDuration")
	set(ParamFilterSustainLevel, 0, 1, 1, "filterSustainLevel")
	set(ParamFilterReleaseDuration, 0, 0.5, 2, "filterReleaseDuration")
	set(ParamAttackDuration, 0.0005, 0.05, 2, "attackDuration")
	set(ParamDecayDuration, 0, 0.005, 2, "decayDuration")
	set(ParamSustainLevel, 0, 0.8, 1, "sustainLevel")
	set(ParamReleaseDuration, 0.004, 0.05, 2, "releaseDuration")
	set(ParamMorph2Detuning, -4, 0, 4, "morph2Detuning")
	set(ParamDetuningMultiplier, 1, 1, 2, "detuningMultiplier")
	set(ParamMasterVolume, 0, 0.5, 2, "masterVolume")
	set(ParamBitCrushDepth, 1, 24, 24, "bitCrushDepth")
	set(ParamBitCrushSampleRate, 4096, 44100, 44100, "bitCrushSampleRate")
	set(ParamAutoPanAmount, 0, 0, 1, "autoPanAmount")
	set(ParamAutoPanFrequency, 0, 0.25, 10, "autoPanFrequency")
	set(ParamReverbOn, 0, 1, 1, "reverbOn")
	set(ParamReverbFeedback, 0, 0.5, 1, "reverbFeedback")
	set(ParamReverbHighPass, 80, 700, 900, "reverbHighPass")
	set(ParamReverbMix, 0, 0, 1, "reverbMix")
	set(ParamDelayOn, 0, 0, 1, "delayOn")
	set(ParamDelayFeedback, 0, 0.1, 0.9, "delayFeedback")
	set(ParamDelayTime, 0.1, 0.5, 1.5, "delayTime")
	set(ParamDelayMix, 0, 0.125, 1, "delayMix")
	set(ParamLFO2Index, 0, 0, 3, "lfo2Index")
	set(ParamLFO2Amplitude, 0, 0, 1, "lfo2Amplitude")
	set(ParamLFO2Rate, 0, 0.25, 10, "lfo2Rate")
	set(ParamCutoffLFO, 0, 0, 2, "cutoffLFO")
	set(ParamResonanceLFO, 0, 0, 2, "resonanceLFO")
	set(ParamOscMixLFO, 0, 0, 2, "oscMixLFO")
	set(ParamSustainLFO, 0, 0, 2, "sustainLFO")
	set(ParamDecayLFO, 0, 0, 2, "decayLFO")
	set(ParamNoiseLFO, 0, 0, 2, "noiseLFO")
	set(ParamFMLFO, 0, 0, 2, "fmLFO")
	set(ParamDetuneLFO, 0, 0, 2, "detuneLFO")
	set(ParamFilterEnvLFO, 0, 0, 2, "filterEnvLFO")
	set(ParamPitchLFO, 0, 0, 2, "pitchLFO")
	set(ParamBitcrushLFO, 0, 0, 2, "bitcrushLFO")
	set(ParamAutopanLFO, 0, 0, 2, "autopanLFO")
	set(ParamArpDirection, 0, 1, 2, "arpDirection")
	set(ParamArpInterval, 0, 12, 12, "arpInterval")
	set(ParamArpIsOn, 0, 0, 1, "arpIsOn")
	set(ParamArpOctave, 0, 1, 3, "arpOctave")
	set(ParamArpRate, 1, 64, 256, "arpRate")
	set(ParamArpIsSequencer, 0, 0, 1, "arpIsSequencer")
	set(ParamArpTotalSteps, 1, 4, 16, "arpTotalSteps")

	for i := 0; i < ArpSeqSteps; i++ {
		set(ParamArpSeqPattern00+ParamIndex(i), -24, 0, 24, fmt.Sprintf("arpSeqPattern%02d", i))
		set(ParamArpSeqOctBoost00+ParamIndex(i), 0, 0, 1, fmt.Sprintf("arpSeqOctBoost%02d", i))
		set(ParamArpSeqNoteOn00+ParamIndex(i), 0, 0, 1, fmt.Sprintf("arpSeqNoteOn%02d", i))
	}

	set(ParamFilterType, 0, 0, 2, "filterType")
	set(ParamPhaserMix, 0, 0, 1, "phaserMix")
	set(ParamPhaserRate, 12, 12, 300, "phaserRate")
	set(ParamPhaserFeedback, 0, 0.0, 0.8, "phaserFeedback")
	set(ParamPhaserNotchWidth, 100, 800, 1000, "phaserNotchWidth")
	set(ParamMonoIsLegato, 0, 0, 1, "monoIsLegato")

	return t
}

// clampParam clamps v into [min_i, max_i] for parameter i.
func clampParam(i ParamIndex, v float64) float64 {
	rec := paramTable[i]
	return core.Clamp(v, rec.min, rec.max)
}

// ParameterVector is the fixed-length, clamp-on-write store shared between
// the control thread and the audio thread. Writes are per-slot; the audio
// thread only ever reads it, so no lock is needed beyond Go's guarantee
// that a float64 store/load is not torn on every platform this targets in
// practice. The vector itself uses no atomics.
type ParameterVector struct {
	values [paramCount]float64
}

// NewParameterVector returns a vector initialized to every parameter's
// documented default.
func NewParameterVector() *ParameterVector {
	pv := &ParameterVector{}
	for i := ParamIndex(0); i < paramCount; i++ {
		pv.values[i] = paramTable[i].defaultValue
	}
	return pv
}

// Set clamps v into range and stores it at i. Out-of-range indices are
// silently ignored per the engine's defensive error-handling policy.
func (pv *ParameterVector) Set(i ParamIndex, v float64) {
	if i < 0 || i >= paramCount {
		return
	}
	pv.values[i] = clampParam(i, v)
}

// SetAll bulk-loads values without clamping, for fast preset restore. The
// caller is responsible for supplying already-valid values; out-of-range
// entries will violate the clamp invariant until the next Set.
func (pv *ParameterVector) SetAll(values []float64) {
	n := len(values)
	if n > int(paramCount) {
		n = int(paramCount)
	}
	copy(pv.values[:n], values[:n])
}

// Get returns the raw stored value at i.
func (pv *ParameterVector) Get(i ParamIndex) float64 {
	if i < 0 || i >= paramCount {
		return 0
	}
	return pv.values[i]
}

// Min returns the documented minimum for parameter i.
func (pv *ParameterVector) Min(i ParamIndex) float64 { return paramTable[i].min }

// Max returns the documented maximum for parameter i.
func (pv *ParameterVector) Max(i ParamIndex) float64 { return paramTable[i].max }

// Default returns the documented default for parameter i.
func (pv *ParameterVector) Default(i ParamIndex) float64 { return paramTable[i].defaultValue }

// Name returns the stable string key for parameter i.
func (pv *ParameterVector) Name(i ParamIndex) string { return paramTable[i].name }

// ParameterCount is the number of enumerated parameter slots.
func ParameterCount() int { return int(paramCount) }

// Snapshot copies every parameter value into dst, growing dst if needed,
// and returns the (possibly reallocated) slice. Intended for bulk preset
// readback on the control thread, never on the audio thread.
func (pv *ParameterVector) Snapshot(dst []float64) []float64 {
	if cap(dst) < int(paramCount) {
		dst = make([]float64, paramCount)
	}
	dst = dst[:paramCount]
	copy(dst, pv.values[:])
	return dst
}
