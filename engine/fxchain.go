package engine

import (
	"math"

	"github.com/cwbudde/polysynth-engine/dsp/delay"
	"github.com/cwbudde/polysynth-engine/dsp/effects"
	"github.com/cwbudde/polysynth-engine/dsp/effects/dynamics"
	"github.com/cwbudde/polysynth-engine/dsp/effects/modulation"
	"github.com/cwbudde/polysynth-engine/dsp/filter/biquad"
	"github.com/cwbudde/polysynth-engine/dsp/filter/design"
)

// delayEpsilon keeps every delay time strictly positive so a degenerate
// zero-length read never collapses onto the live write position.
const delayEpsilon = 1e-3

// FXChain implements the fixed global effects chain of component design
// §4.6: bitcrush, autopan, phaser, a four-line ping-pong delay network,
// reverb with a pre-emphasis high-pass, and a per-channel compressor,
// applied in that order to the mono voice-mix sum before it is split to
// stereo.
type FXChain struct {
	sampleRate float64

	crush *effects.BitCrusher

	panPhase float64

	phaser *modulation.Phaser

	delayL, delayR, delayRR, delayFillIn *delay.Line

	reverbHPL, reverbHPR *biquad.Section
	reverbL, reverbR     *effects.Reverb

	compL, compR *dynamics.Compressor
}

// NewFXChain allocates every effect stage against sampleRate.
func NewFXChain(sampleRate float64) (*FXChain, error) {
	crush, err := effects.NewBitCrusher(sampleRate)
	if err != nil {
		return nil, err
	}
	phaser, err := modulation.NewPhaser(sampleRate, modulation.WithPhaserMix(1))
	if err != nil {
		return nil, err
	}

	maxDelaySamples := int(2*1.5*sampleRate) + int(sampleRate) // 2*maxDelayTime + margin
	delayL, err := delay.New(maxDelaySamples)
	if err != nil {
		return nil, err
	}
	delayR, err := delay.New(maxDelaySamples)
	if err != nil {
		return nil, err
	}
	delayRR, err := delay.New(maxDelaySamples)
	if err != nil {
		return nil, err
	}
	delayFillIn, err := delay.New(maxDelaySamples)
	if err != nil {
		return nil, err
	}

	compL, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, err
	}
	compR, err := dynamics.NewCompressor(sampleRate)
	if err != nil {
		return nil, err
	}
	for _, c := range []*dynamics.Compressor{compL, compR} {
		_ = c.SetAutoMakeup(false)
		_ = c.SetThreshold(-3)
		_ = c.SetRatio(10)
		_ = c.SetKnee(0)
		_ = c.SetAttack(1)
		_ = c.SetRelease(10)
	}

	fx := &FXChain{
		sampleRate:  sampleRate,
		crush:       crush,
		phaser:      phaser,
		delayL:      delayL,
		delayR:      delayR,
		delayRR:     delayRR,
		delayFillIn: delayFillIn,
		reverbHPL:   biquad.NewSection(biquad.Coefficients{B0: 1}),
		reverbHPR:   biquad.NewSection(biquad.Coefficients{B0: 1}),
		reverbL:     effects.NewReverb(),
		reverbR:     effects.NewReverb(),
		compL:       compL,
		compR:       compR,
	}
	fx.reverbL.SetWet(1)
	fx.reverbL.SetDry(0)
	fx.reverbR.SetWet(1)
	fx.reverbR.SetDry(0)
	return fx, nil
}

// Reset clears every stage's internal state, used by the engine's
// reset() fast path.
func (fx *FXChain) Reset() {
	fx.crush.Reset()
	fx.panPhase = 0
	fx.phaser.Reset()
	fx.delayL.Reset()
	fx.delayR.Reset()
	fx.delayRR.Reset()
	fx.delayFillIn.Reset()
	fx.reverbHPL.Reset()
	fx.reverbHPR.Reset()
	fx.reverbL.Reset()
	fx.reverbR.Reset()
	fx.compL.Reset()
	fx.compR.Reset()
}

// Process runs the mono voice-mix sample through the full chain and
// returns the stereo output (left, right).
func (fx *FXChain) Process(sample float64, p *ParameterVector, lfo1, lfo2 float64) (float64, float64) {
	lfo1u := Unipolar(lfo1, p.Get(ParamLFO1Amplitude))
	lfo2u := Unipolar(lfo2, p.Get(ParamLFO2Amplitude))

	// 1. Bitcrush.
	crushRate := p.Get(ParamBitCrushSampleRate)
	crushSel := LFOTarget(p.Get(ParamBitcrushLFO))
	if crushSel != LFOTargetNone {
		lfo1bi := lfo1 * p.Get(ParamLFO1Amplitude)
		lfo2bi := lfo2 * p.Get(ParamLFO2Amplitude)
		crushRate *= 1 + 0.5*lfoTargetValue(crushSel, lfo1bi, lfo2bi)
		crushRate = clampParam(ParamBitCrushSampleRate, crushRate)
	}
	_ = fx.crush.SetDownsample(bitCrushDownsampleFactor(fx.sampleRate, crushRate))
	_ = fx.crush.SetBitDepth(p.Get(ParamBitCrushDepth))
	crushed := fx.crush.ProcessSample(sample)

	// 2. Autopan.
	panAmount := p.Get(ParamAutoPanAmount)
	panSel := LFOTarget(p.Get(ParamAutopanLFO))
	if panSel != LFOTargetNone {
		panAmount *= lfoTargetValue(panSel, lfo1u, lfo2u)
	}
	panRate := p.Get(ParamAutoPanFrequency)
	pan := math.Sin(2*math.Pi*fx.panPhase) * panAmount
	fx.panPhase += panRate / fx.sampleRate
	if fx.panPhase >= 1 {
		fx.panPhase -= math.Floor(fx.panPhase)
	}
	left, right := pan2(crushed, pan)

	// 3. Phaser (manual inverted-mix crossfade).
	phaserMix := p.Get(ParamPhaserMix)
	if phaserMix > 0 {
		_ = fx.phaser.SetFeedback(p.Get(ParamPhaserFeedback))
		rateHz := phaserRateFromNotchRate(p.Get(ParamPhaserRate))
		_ = fx.phaser.SetRateHz(rateHz)
		lo, hi := phaserNotchRange(p.Get(ParamPhaserNotchWidth))
		_ = fx.phaser.SetFrequencyRangeHz(lo, hi)

		m := 1 - phaserMix
		left = (1-m)*fx.phaser.Process(left) + m*left
		right = (1-m)*fx.phaser.Process(right) + m*right
	}

	// 4. Four-line ping-pong delay.
	delayTime := p.Get(ParamDelayTime)
	longSamples := delayTime*2*fx.sampleRate + delayEpsilon
	shortSamples := delayTime*fx.sampleRate + delayEpsilon
	fb := p.Get(ParamDelayFeedback)

	delayOutL := fx.delayL.ReadFractional(longSamples)
	fx.delayL.Write(left + delayOutL*fb)

	delayOutR := fx.delayR.ReadFractional(longSamples)
	fx.delayR.Write(right + delayOutR*fb)

	fillInOut := fx.delayFillIn.ReadFractional(shortSamples)
	fx.delayFillIn.Write(right + fillInOut*fb)

	delayOutRR := fx.delayRR.ReadFractional(shortSamples)
	fx.delayRR.Write(delayOutR + delayOutRR*fb)
	delayOutRR += fillInOut

	mixAmt := p.Get(ParamDelayMix) * p.Get(ParamDelayOn)
	left = filterCrossFade(left, delayOutL, mixAmt)
	right = filterCrossFade(right, delayOutRR, mixAmt)

	// 5. Reverb pre-emphasis.
	fx.reverbHPL.Coefficients = design.Highpass(p.Get(ParamReverbHighPass), 0.707, fx.sampleRate)
	fx.reverbHPR.Coefficients = design.Highpass(p.Get(ParamReverbHighPass), 0.707, fx.sampleRate)
	preL := fx.reverbHPL.ProcessSample(left) * 2
	preR := fx.reverbHPR.ProcessSample(right) * 2

	// 6. Reverb.
	fx.reverbL.SetRoomSize(p.Get(ParamReverbFeedback))
	fx.reverbR.SetRoomSize(p.Get(ParamReverbFeedback))
	reverbMixAmt := p.Get(ParamReverbMix) * p.Get(ParamReverbOn)
	left = filterCrossFade(left, fx.reverbL.ProcessSample(preL), reverbMixAmt)
	right = filterCrossFade(right, fx.reverbR.ProcessSample(preR), reverbMixAmt)

	// 7. Post-gain.
	left *= 2
	right *= 2

	// 8. Compression.
	left = fx.compL.ProcessSample(left)
	right = fx.compR.ProcessSample(right)

	// 9. Master.
	master := p.Get(ParamMasterVolume)
	return left * master, right * master
}

// pan2 splits a mono sample into left/right using a constant-power-ish
// linear pan law: pos in [-1,1], 0 is centered.
func pan2(sample, pos float64) (float64, float64) {
	left := sample * (1 - math.Max(0, pos))
	right := sample * (1 + math.Min(0, pos))
	return left, right
}

// bitCrushDownsampleFactor converts a target "bit-crush sample rate"
// parameter into the integer sample-and-hold factor BitCrusher expects.
func bitCrushDownsampleFactor(engineSampleRate, crushRate float64) int {
	if crushRate <= 0 {
		return 1
	}
	factor := int(math.Round(engineSampleRate / crushRate))
	if factor < 1 {
		factor = 1
	}
	if factor > 256 {
		factor = 256
	}
	return factor
}

// phaserRateFromNotchRate maps the phaserRate parameter (12..300) onto a
// sub-audio LFO rate in Hz suitable for the allpass-cascade phaser.
func phaserRateFromNotchRate(rate float64) float64 {
	hz := rate / 300
	if hz < 0.01 {
		hz = 0.01
	}
	return hz
}

// phaserNotchRange derives a modulation frequency range centered a
// musical octave either side of phaserNotchWidth.
func phaserNotchRange(notchWidth float64) (float64, float64) {
	lo := notchWidth / 2
	if lo < 20 {
		lo = 20
	}
	hi := notchWidth * 2
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}
