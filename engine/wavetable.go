package engine

import (
	"math"

	"github.com/cwbudde/polysynth-engine/dsp/core"
)

// WavetableSize is the fixed sample count of every wavetable slot
// (FTABLE_SIZE).
const WavetableSize = 4096

// UserWavetableCount is the number of host-editable wavetable slots
// (NUM_FTABLES). A fifth, internal sine table backs the sub and FM
// oscillators and is not host-editable.
const UserWavetableCount = 4

// Wavetable is a single fixed-length cyclic waveform buffer, read with
// linear interpolation between adjacent samples.
type Wavetable struct {
	samples [WavetableSize]float64
}

// NewSineWavetable returns a table pre-filled with one cycle of a sine.
func NewSineWavetable() *Wavetable {
	wt := &Wavetable{}
	for i := range wt.samples {
		wt.samples[i] = math.Sin(2 * math.Pi * float64(i) / float64(WavetableSize))
	}
	return wt
}

// Setup reinitializes the table to size WavetableSize filled with zeros,
// implementing the setupWaveform(slot, size) external interface. Only
// WavetableSize is actually honored; a different requested size still
// yields a table of WavetableSize samples, since tables are fixed-size
// buffers reused across notes, never reallocated on the audio thread.
func (wt *Wavetable) Setup(_ int) {
	for i := range wt.samples {
		wt.samples[i] = 0
	}
}

// SetValue writes one sample, implementing setWaveformValue(slot, index,
// value). Out-of-range indices are silently ignored.
func (wt *Wavetable) SetValue(index int, value float64) {
	if index < 0 || index >= WavetableSize {
		return
	}
	wt.samples[index] = value
}

// at returns a linearly-interpolated sample for a phase in [0,1).
func (wt *Wavetable) at(phase float64) float64 {
	p := phase - math.Floor(phase)
	pos := p * float64(WavetableSize)
	i0 := int(pos)
	i1 := (i0 + 1) % WavetableSize
	frac := pos - float64(i0)
	a, b := wt.samples[i0], wt.samples[i1]
	return a + frac*(b-a)
}

// WavetableBank holds the four user-editable wavetables plus the shared
// internal sine table used by the sub and FM oscillators.
type WavetableBank struct {
	User [UserWavetableCount]*Wavetable
	Sine *Wavetable
}

// NewWavetableBank allocates a fresh bank: four empty user slots and an
// internally generated sine table.
func NewWavetableBank() *WavetableBank {
	b := &WavetableBank{Sine: NewSineWavetable()}
	for i := range b.User {
		b.User[i] = &Wavetable{}
	}
	return b
}

// MorphOscillator is a phase-accumulating oscillator whose timbre is
// crossfaded across the user wavetable bank according to wtpos in [0,1].
// Adjacent integer positions select adjacent tables; wtpos interpolates
// linearly between them (the "wavetable morphing oscillator" of the
// glossary).
type MorphOscillator struct {
	bank  *WavetableBank
	phase float64
	wtpos float64
}

// NewMorphOscillator creates an oscillator reading from the given shared
// wavetable bank. The bank is a borrowed, read-only view; the oscillator
// does not own it.
func NewMorphOscillator(bank *WavetableBank) *MorphOscillator {
	return &MorphOscillator{bank: bank}
}

// SetWavetablePosition sets wtpos for the next Render call.
func (o *MorphOscillator) SetWavetablePosition(pos float64) {
	o.wtpos = clamp01(pos)
}

// Reset zeroes the phase accumulator, used when a voice is retriggered.
func (o *MorphOscillator) Reset() { o.phase = 0 }

// Render advances the phase by freqHz/sampleRate and returns the
// interpolated, table-crossfaded sample in [-1,1].
func (o *MorphOscillator) Render(freqHz, sampleRate float64) float64 {
	out := o.sampleAt(o.phase)
	o.phase += freqHz / sampleRate
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return out
}

func (o *MorphOscillator) sampleAt(phase float64) float64 {
	n := UserWavetableCount
	span := o.wtpos * float64(n-1)
	lo := int(span)
	if lo >= n-1 {
		lo = n - 2
	}
	if lo < 0 {
		lo = 0
	}
	frac := span - float64(lo)
	a := o.bank.User[lo].at(phase)
	b := o.bank.User[lo+1].at(phase)
	return a + frac*(b-a)
}

func clamp01(v float64) float64 {
	return core.Clamp(v, 0, 1)
}

// morphCrossfade linearly blends two oscillator outputs by position in
// [0,1]: 0 is all a, 1 is all b.
func morphCrossfade(a, b, pos float64) float64 {
	return a + pos*(b-a)
}

// filterCrossFade blends dry and filtered signal by mix in [0,1]: 0 is
// fully dry, 1 is fully filtered.
func filterCrossFade(dry, filtered, mix float64) float64 {
	return dry + mix*(filtered-dry)
}
