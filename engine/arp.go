package engine

import "math"

// ArpDirection selects how Scheduler expands held notes into a pattern
// when arpIsSequencer is off.
type ArpDirection int

const (
	ArpUp ArpDirection = iota
	ArpUpDown
	ArpDown
)

// arpStep is one expanded pattern slot: either an absolute note number
// (arp mode) or a scale-step offset from each held note (sequencer
// mode), paired with its on/off flag.
type arpStep struct {
	noteNumber int
	onOff      int
}

// Scheduler is the tempo-driven clock described in component design
// §4.4: every audio frame it advances a beat-time accumulator and, on
// crossing a beat boundary, rebuilds the active note pattern (arp or
// sequencer) and fires synthetic note on/off events through NoteOn and
// NoteOff. It never allocates on Advance; seqNotes, seqNotes2, and
// lastNotes are pre-reserved to capacity 1024 at construction and only
// ever truncated, never grown past that on the audio thread.
type Scheduler struct {
	params *ParameterVector
	tuning Tuning
	held   *HeldNoteRegistry

	// NoteOn and NoteOff drive voice allocation directly; they must NOT
	// touch the held-note registry, since synthetic arp/seq notes are not
	// pressed keys.
	NoteOn  func(noteNumber, velocity int)
	NoteOff func(noteNumber int)

	sampleCounter int64
	oldArpTime    float64
	beatCounter   int

	seqNotes  []arpStep
	seqNotes2 []int
	lastNotes []int

	// BeatChanged latches true when Advance fires a new step; the bridge
	// drains and clears it to post beatCounterDidChange.
	BeatChanged bool
	// RegistryReset latches true when the held-note registry emptied out
	// and arpBeatCounter was reset to 0.
	RegistryReset bool
}

// NewScheduler wires a scheduler against the shared parameter vector,
// tuning table, and held-note registry. NoteOn/NoteOff must be assigned
// by the caller before the first Advance.
func NewScheduler(params *ParameterVector, tuning Tuning, held *HeldNoteRegistry) *Scheduler {
	return &Scheduler{
		params:    params,
		tuning:    tuning,
		held:      held,
		seqNotes:  make([]arpStep, 0, 1024),
		seqNotes2: make([]int, 0, 1024),
		lastNotes: make([]int, 0, 1024),
	}
}

// Reset zeroes the beat clock and clears every scratch buffer without
// releasing their backing arrays, used by the engine's reset() path.
func (s *Scheduler) Reset() {
	s.sampleCounter = 0
	s.oldArpTime = 0
	s.beatCounter = 0
	s.seqNotes = s.seqNotes[:0]
	s.seqNotes2 = s.seqNotes2[:0]
	s.lastNotes = s.lastNotes[:0]
	s.BeatChanged = false
	s.RegistryReset = false
}

// Advance steps the beat clock by one sample at sampleRate. The
// scheduler only runs (time advances, boundaries can fire) while arp is
// on, or while residual notes from a previous beat still need
// releasing after arp was switched off.
func (s *Scheduler) Advance(sampleRate float64) {
	isOn := s.params.Get(ParamArpIsOn) != 0
	if !isOn && len(s.lastNotes) == 0 {
		return
	}

	secondsPerBeat := 60 / (4 * s.params.Get(ParamArpRate))
	arpTime := float64(s.sampleCounter) / sampleRate
	s.sampleCounter++

	boundary := math.Mod(arpTime, secondsPerBeat) < math.Mod(s.oldArpTime, secondsPerBeat) || s.oldArpTime >= arpTime
	s.oldArpTime = arpTime
	if !boundary {
		return
	}

	if isOn {
		s.rebuildPattern()
	}

	for _, n := range s.lastNotes {
		s.NoteOff(n)
	}
	s.lastNotes = s.lastNotes[:0]

	if s.held.Len() == 0 {
		if s.beatCounter != 0 {
			s.beatCounter = 0
			s.RegistryReset = true
		}
		return
	}
	if len(s.seqNotes) == 0 {
		return
	}

	pos := s.beatCounter % len(s.seqNotes)
	s.beatCounter++
	s.BeatChanged = true

	step := s.seqNotes[pos]
	if s.params.Get(ParamArpIsSequencer) != 0 {
		if step.onOff == 1 {
			for _, base := range s.seqNotes2 {
				nn := base + step.noteNumber
				if nn >= 0 && nn < 128 {
					s.NoteOn(nn, 127)
					s.lastNotes = append(s.lastNotes, nn)
				}
			}
		}
		return
	}

	if step.noteNumber >= 0 && step.noteNumber < 128 {
		s.NoteOn(step.noteNumber, 127)
		s.lastNotes = append(s.lastNotes, step.noteNumber)
	}
}

// rebuildPattern re-expands arpSeqNotes (and refreshes the arpSeqNotes2
// held-note snapshot) from the current parameters. Called only at a
// beat boundary while arp is on.
func (s *Scheduler) rebuildPattern() {
	npo := s.tuning.NotesPerOctave()
	npof := float64(npo) / 12

	s.seqNotes = s.seqNotes[:0]
	s.seqNotes2 = s.held.Snapshot(s.seqNotes2)

	if s.params.Get(ParamArpIsSequencer) != 0 {
		total := int(s.params.Get(ParamArpTotalSteps))
		if total > ArpSeqSteps {
			total = ArpSeqSteps
		}
		for i := 0; i < total; i++ {
			pattern := s.params.Get(ParamArpSeqPattern00 + ParamIndex(i))
			octBoost := s.params.Get(ParamArpSeqOctBoost00 + ParamIndex(i))
			noteOn := s.params.Get(ParamArpSeqNoteOn00 + ParamIndex(i))

			note := int(math.Round(pattern * npof))
			boost := int(octBoost) * npo
			if note < 0 {
				boost = -boost
			}
			s.seqNotes = append(s.seqNotes, arpStep{noteNumber: note + boost, onOff: int(noteOn)})
		}
		return
	}

	h := len(s.seqNotes2)
	if h == 0 {
		return
	}
	u := int(math.Round(s.params.Get(ParamArpInterval) * npof))
	o := int(s.params.Get(ParamArpOctave)) + 1

	switch ArpDirection(s.params.Get(ParamArpDirection)) {
	case ArpUp:
		s.appendUpPass(h, o, u)
	case ArpDown:
		s.appendDownPass(h, o, u, -1, -1)
	default: // ArpUpDown
		s.appendUpPass(h, o, u)
		// Skip the down pass's own first step (oct=O-1,i=H-1 — the tail
		// just emitted by the up pass) and its own last step (oct=0,i=0 —
		// the head emitted at the very start of the up pass).
		s.appendDownPass(h, o, u, o-1, h-1)
	}
}

func (s *Scheduler) appendUpPass(h, o, u int) {
	for oct := 0; oct < o; oct++ {
		for i := 0; i < h; i++ {
			s.seqNotes = append(s.seqNotes, arpStep{noteNumber: s.seqNotes2[i] + oct*u, onOff: 1})
		}
	}
}

// appendDownPass walks the down pass (oct=O-1..0, i=H-1..0), excluding
// the (skipOct, skipI) position at its own start and the (0,0) position
// at its own end. Passing skipOct<0 disables the head/tail dedup
// entirely, used by the plain Down direction.
func (s *Scheduler) appendDownPass(h, o, u, skipOct, skipI int) {
	for oct := o - 1; oct >= 0; oct-- {
		for i := h - 1; i >= 0; i-- {
			if skipOct >= 0 && ((oct == skipOct && i == skipI) || (oct == 0 && i == 0)) {
				continue
			}
			s.seqNotes = append(s.seqNotes, arpStep{noteNumber: s.seqNotes2[i] + oct*u, onOff: 1})
		}
	}
}
