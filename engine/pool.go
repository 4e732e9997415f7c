package engine

// MaxPolyphony is the number of simultaneously sounding poly voices.
const MaxPolyphony = 6

// HeldNoteRegistry is the MRU-ordered set of currently pressed MIDI
// notes: most recently pressed at index 0, no duplicates. It is written
// by the control thread and read by the audio thread's arp scheduler
// through Snapshot; the type itself holds no locks.
type HeldNoteRegistry struct {
	notes []int
}

// NewHeldNoteRegistry returns an empty registry with pre-reserved
// capacity, so Press never grows the backing array on a hot path.
func NewHeldNoteRegistry() *HeldNoteRegistry {
	return &HeldNoteRegistry{notes: make([]int, 0, 128)}
}

// Press moves noteNumber to the head, inserting it if not already held.
func (h *HeldNoteRegistry) Press(noteNumber int) {
	for i, n := range h.notes {
		if n == noteNumber {
			copy(h.notes[1:i+1], h.notes[:i])
			h.notes[0] = noteNumber
			return
		}
	}
	h.notes = append(h.notes, 0)
	copy(h.notes[1:], h.notes[:len(h.notes)-1])
	h.notes[0] = noteNumber
}

// Release removes noteNumber if present.
func (h *HeldNoteRegistry) Release(noteNumber int) {
	for i, n := range h.notes {
		if n == noteNumber {
			h.notes = append(h.notes[:i], h.notes[i+1:]...)
			return
		}
	}
}

// Clear empties the registry, used by stopAllNotes / all-notes-off.
func (h *HeldNoteRegistry) Clear() { h.notes = h.notes[:0] }

// Len returns the number of currently held notes.
func (h *HeldNoteRegistry) Len() int { return len(h.notes) }

// Head returns the most recently pressed note and true, or 0, false if
// the registry is empty.
func (h *HeldNoteRegistry) Head() (int, bool) {
	if len(h.notes) == 0 {
		return 0, false
	}
	return h.notes[0], true
}

// Snapshot returns the held notes oldest-first (the reverse of press
// order), used by the arp/seq scheduler when expanding arp patterns.
func (h *HeldNoteRegistry) Snapshot(dst []int) []int {
	dst = dst[:0]
	for i := len(h.notes) - 1; i >= 0; i-- {
		dst = append(dst, h.notes[i])
	}
	return dst
}

// VoicePool owns the fixed array of poly voices plus one dedicated mono
// voice, and implements the note allocation / stealing / release rules
// of component design §4.3.
type VoicePool struct {
	voices       [MaxPolyphony]*Voice
	playingIndex int

	mono       *Voice
	monoFreqSm *PortamentoSmoother

	bank *WavetableBank
}

// NewVoicePool allocates MaxPolyphony poly voices and one mono voice
// against the shared wavetable bank.
func NewVoicePool(bank *WavetableBank, sampleRate float64) (*VoicePool, error) {
	pool := &VoicePool{bank: bank, monoFreqSm: NewPortamentoSmoother(0)}
	for i := range pool.voices {
		v, err := NewVoice(bank, sampleRate)
		if err != nil {
			return nil, err
		}
		pool.voices[i] = v
	}
	mono, err := NewVoice(bank, sampleRate)
	if err != nil {
		return nil, err
	}
	pool.mono = mono
	return pool, nil
}

// Voices returns the fixed poly voice array for the render driver to
// iterate when mixing down and retiring finished voices.
func (vp *VoicePool) Voices() [MaxPolyphony]*Voice { return vp.voices }

// MonoVoice returns the dedicated mono voice.
func (vp *VoicePool) MonoVoice() *Voice { return vp.mono }

// NoteOnPoly implements the poly note-allocation algorithm: revoice a
// matching rootNoteNumber if present, else claim an idle voice, else
// steal the next round-robin slot.
func (vp *VoicePool) NoteOnPoly(noteNumber, velocity int, freqHz float64) *Voice {
	for _, v := range vp.voices {
		if v.RootNoteNumber == noteNumber {
			v.StartNote(noteNumber, velocity, freqHz)
			return v
		}
	}

	n := len(vp.voices)
	for i := 0; i < n; i++ {
		idx := (vp.playingIndex + 1 + i) % n
		if vp.voices[idx].RootNoteNumber == -1 {
			vp.playingIndex = idx
			v := vp.voices[idx]
			v.StartNote(noteNumber, velocity, freqHz)
			return v
		}
	}

	vp.playingIndex = (vp.playingIndex + 1) % n
	v := vp.voices[vp.playingIndex]
	v.StartNote(noteNumber, velocity, freqHz)
	return v
}

// NoteOffPoly locates the voice holding noteNumber and releases it. If
// the voice was already stolen, this is a no-op.
func (vp *VoicePool) NoteOffPoly(noteNumber int) {
	for _, v := range vp.voices {
		if v.RootNoteNumber == noteNumber {
			v.Release()
			return
		}
	}
}

// ActiveCount returns the number of poly voices with Stage != Off, for
// the max-polyphony invariant test.
func (vp *VoicePool) ActiveCount() int {
	n := 0
	for _, v := range vp.voices {
		if v.Stage != StageOff {
			n++
		}
	}
	return n
}

// RetireFinished clears any Release-stage voice (poly and mono) whose
// envelope has decayed below threshold. Returns true if any voice
// transitioned, so the caller can post a playingNotesDidChange
// notification.
func (vp *VoicePool) RetireFinished() bool {
	changed := false
	for _, v := range vp.voices {
		if v.RetireIfFinished() {
			changed = true
		}
	}
	if vp.mono.RetireIfFinished() {
		changed = true
	}
	return changed
}

// StopAll forces every live voice into Release with a closed gate,
// implementing stopAllNotes. It does not touch the held-note registry;
// the caller (Engine) clears that separately.
func (vp *VoicePool) StopAll() {
	for _, v := range vp.voices {
		if v.Stage != StageOff {
			v.Release()
		}
	}
	if vp.mono.Stage != StageOff {
		vp.mono.Release()
	}
}

// AdvanceMonoFrequency steps the mono-frequency portamento smoother one
// sample toward target and returns its new value, for the render
// driver's per-sample loop.
func (vp *VoicePool) AdvanceMonoFrequency(target, halfTimeSec, sampleRate float64) float64 {
	return vp.monoFreqSm.Process(target, halfTimeSec, sampleRate)
}

// SetMonoFrequencyImmediate snaps the mono-frequency smoother to freq
// with no glide, used by the CACA hand-off which moves "directly" to
// the newly-exposed held note rather than portamento-sliding to it.
func (vp *VoicePool) SetMonoFrequencyImmediate(freq float64) {
	vp.monoFreqSm.SetImmediate(freq)
}

// MonoFrequency returns the mono smoother's current output without
// advancing it.
func (vp *VoicePool) MonoFrequency() float64 { return vp.monoFreqSm.Value() }

// Reset hard-clears every voice with no release (may click), used only
// by the engine's reset() fast path.
func (vp *VoicePool) Reset() {
	for _, v := range vp.voices {
		v.Clear()
	}
	vp.mono.Clear()
}
