package engine

// portamentoDeclickHalfTime is the fixed half-time used by the four
// non-pitch portamento smoothers (morph balance, detune multiplier,
// cutoff, resonance). Only the mono-frequency smoother's half-time is
// exposed as a host parameter (p[glide]); the other four exist purely
// to declick buffer-latched parameter jumps, so a small fixed
// half-time is used instead of adding four more host parameters.
const portamentoDeclickHalfTime = 0.01

// Engine is the realtime synthesis engine: the render driver that owns
// every unit generator and wires the parameter vector, held-note
// registry, voice pool, arp/seq scheduler, and global FX chain together
// per component design §4. One Engine instance is exclusively owned by
// a single audio thread during Process; SetParameter/SetParameters/
// NoteOn/NoteOff/StopAllNotes/Reset are the only entry points a control
// thread may call concurrently with Process (see §5).
type Engine struct {
	SampleRate float64

	params *ParameterVector
	held   *HeldNoteRegistry
	pool   *VoicePool
	sched  *Scheduler
	fx     *FXChain
	bank   *WavetableBank
	tuning Tuning

	lfo1, lfo2 *LFOPhasor

	morphBalanceSm *PortamentoSmoother
	detuneMultSm   *PortamentoSmoother
	cutoffSm       *PortamentoSmoother
	resonanceSm    *PortamentoSmoother

	monoFreqTarget float64

	notify *NotificationQueue
}

// NewEngine allocates every unit generator and wires the control/audio
// bridge structures. tuning supplies note-to-frequency mapping; pass
// NewTwelveTET() for the documented default.
func NewEngine(sampleRate float64, tuning Tuning) (*Engine, error) {
	params := NewParameterVector()
	bank := NewWavetableBank()
	pool, err := NewVoicePool(bank, sampleRate)
	if err != nil {
		return nil, err
	}
	fx, err := NewFXChain(sampleRate)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		SampleRate:     sampleRate,
		params:         params,
		held:           NewHeldNoteRegistry(),
		pool:           pool,
		fx:             fx,
		bank:           bank,
		tuning:         tuning,
		lfo1:           NewLFOPhasor(),
		lfo2:           NewLFOPhasor(),
		morphBalanceSm: NewPortamentoSmoother(params.Get(ParamMorphBalance)),
		detuneMultSm:   NewPortamentoSmoother(params.Get(ParamDetuningMultiplier)),
		cutoffSm:       NewPortamentoSmoother(params.Get(ParamCutoff)),
		resonanceSm:    NewPortamentoSmoother(params.Get(ParamResonance)),
		notify:         NewNotificationQueue(),
	}
	e.sched = NewScheduler(params, tuning, e.held)
	e.sched.NoteOn = e.fireNoteOn
	e.sched.NoteOff = e.fireNoteOff
	return e, nil
}

// Reset implements the hard-mute fast path (§5 Cancellation): every
// voice, the arp/seq scheduler, the FX chain's internal state, and the
// held-note registry are cleared immediately. May click.
func (e *Engine) Reset() {
	e.pool.Reset()
	e.sched.Reset()
	e.fx.Reset()
	e.held.Clear()
	e.notify.Post(NotificationPlayingNotesDidChange)
	e.notify.Post(NotificationHeldNotesDidChange)
}

// StopAllNotes implements the smooth-release fast path: every held key
// is forgotten and every live voice (poly and mono) is sent to Release,
// with no discontinuity in the envelope (unlike Reset). Routed here from
// MIDI CC #123.
func (e *Engine) StopAllNotes() {
	e.held.Clear()
	e.pool.StopAll()
	e.notify.Post(NotificationHeldNotesDidChange)
	e.notify.Post(NotificationPlayingNotesDidChange)
}

// NoteOn handles a real (keyboard-originated) note-on: it is the MIDI
// note-on entry point and the only caller that mutates the held-note
// registry. Synthetic arp/seq note-ons bypass the registry entirely by
// calling fireNoteOn directly (see Scheduler.NoteOn).
func (e *Engine) NoteOn(noteNumber, velocity int) {
	if noteNumber < 0 || noteNumber >= 128 {
		return
	}
	e.held.Press(noteNumber)
	e.notify.Post(NotificationHeldNotesDidChange)
	e.fireNoteOn(noteNumber, velocity)
}

// NoteOff handles a real note-off: removes the note from the held
// registry, then runs the poly/mono turnOffKey logic against the
// registry's new state (enabling mono CACA hand-off).
func (e *Engine) NoteOff(noteNumber int) {
	if noteNumber < 0 || noteNumber >= 128 {
		return
	}
	e.held.Release(noteNumber)
	e.notify.Post(NotificationHeldNotesDidChange)
	e.fireNoteOff(noteNumber)
}

// fireNoteOn implements startNoteHelper dispatch (component design
// §4.3) without touching the held-note registry, so it is safe to call
// both from NoteOn and from the arp/seq scheduler's synthetic note
// stream.
func (e *Engine) fireNoteOn(noteNumber, velocity int) {
	if noteNumber < 0 || noteNumber >= 128 {
		return
	}
	freq := e.tuning.FrequencyForNoteNumber(noteNumber)

	if e.params.Get(ParamIsMono) != 0 {
		e.monoFreqTarget = freq
		mono := e.pool.MonoVoice()
		if e.params.Get(ParamMonoIsLegato) == 0 {
			mono.ForceReleaseReset(e.voiceContext())
		}
		mono.StartNote(noteNumber, velocity, freq)
		e.notify.Post(NotificationPlayingNotesDidChange)
		return
	}

	e.pool.NoteOnPoly(noteNumber, velocity, freq)
	e.notify.Post(NotificationPlayingNotesDidChange)
}

// fireNoteOff implements turnOffKey (component design §4.3) without
// touching the held-note registry; callers (NoteOff and the scheduler)
// are responsible for the registry's state beforehand.
func (e *Engine) fireNoteOff(noteNumber int) {
	if e.params.Get(ParamIsMono) != 0 {
		mono := e.pool.MonoVoice()
		if e.held.Len() == 0 || e.params.Get(ParamArpIsOn) != 0 {
			mono.Release()
			e.notify.Post(NotificationPlayingNotesDidChange)
			return
		}

		head, _ := e.held.Head()
		freq := e.tuning.FrequencyForNoteNumber(head)
		e.monoFreqTarget = freq
		e.pool.SetMonoFrequencyImmediate(freq)
		if e.params.Get(ParamMonoIsLegato) == 0 {
			mono.ForceReleaseReset(e.voiceContext())
		}
		mono.Revoice(head, freq)
		e.notify.Post(NotificationPlayingNotesDidChange)
		return
	}

	e.pool.NoteOffPoly(noteNumber)
	e.notify.Post(NotificationPlayingNotesDidChange)
}

// voiceContext builds a minimal VoiceContext for calls that need one
// outside the per-sample render loop (ForceReleaseReset only reads
// Params and SampleRate).
func (e *Engine) voiceContext() *VoiceContext {
	return &VoiceContext{Params: e.params, SampleRate: e.SampleRate}
}

// SetParameter clamps value into parameter i's documented range and
// stores it.
func (e *Engine) SetParameter(i ParamIndex, value float64) { e.params.Set(i, value) }

// GetParameter returns the raw stored value of parameter i.
func (e *Engine) GetParameter(i ParamIndex) float64 { return e.params.Get(i) }

// SetParameters bulk-loads the parameter vector without clamping, for a
// fast preset-restore path.
func (e *Engine) SetParameters(values []float64) { e.params.SetAll(values) }

// SetupWaveform (re)initializes one user wavetable slot. size is
// accepted for interface compatibility but every table is fixed at
// WavetableSize samples (see Wavetable.Setup).
func (e *Engine) SetupWaveform(slot, size int) {
	if slot < 0 || slot >= UserWavetableCount {
		return
	}
	e.bank.User[slot].Setup(size)
}

// SetWaveformValue writes one sample of one user wavetable slot.
func (e *Engine) SetWaveformValue(slot, index int, value float64) {
	if slot < 0 || slot >= UserWavetableCount {
		return
	}
	e.bank.User[slot].SetValue(index, value)
}

// DrainNotifications copies every pending audio-to-control notification
// into dst and empties the queue. Call only from the control thread.
func (e *Engine) DrainNotifications(dst []Notification) []Notification {
	return e.notify.Drain(dst)
}

// ActiveVoiceCount returns the number of poly voices currently sounding
// (Stage != Off), or at most 1 in mono mode, for the max-polyphony
// invariant.
func (e *Engine) ActiveVoiceCount() int {
	if e.params.Get(ParamIsMono) != 0 {
		if e.pool.MonoVoice().Stage != StageOff {
			return 1
		}
		return 0
	}
	return e.pool.ActiveCount()
}

// Process renders frameCount stereo samples into left/right starting at
// bufferOffset, implementing the per-buffer preamble and per-sample
// loop of component design §2 and §4.5-§4.6. It never fails: out-of-
// range unit generator state still produces a (possibly silent) output
// rather than propagating an error.
func (e *Engine) Process(left, right []float64, frameCount, bufferOffset int) {
	if e.pool.RetireFinished() {
		e.notify.Post(NotificationPlayingNotesDidChange)
	}

	glide := e.params.Get(ParamGlide)
	sr := e.SampleRate
	mono := e.params.Get(ParamIsMono) != 0

	for i := 0; i < frameCount; i++ {
		e.sched.Advance(sr)
		if e.sched.BeatChanged {
			e.sched.BeatChanged = false
			e.notify.Post(NotificationBeatCounterDidChange)
		}
		if e.sched.RegistryReset {
			e.sched.RegistryReset = false
			e.notify.Post(NotificationBeatCounterDidChange)
		}

		lfo1 := e.lfo1.Render(e.params.Get(ParamLFO1Rate), sr, LFOShape(e.params.Get(ParamLFO1Index)))
		lfo2 := e.lfo2.Render(e.params.Get(ParamLFO2Rate), sr, LFOShape(e.params.Get(ParamLFO2Index)))

		ctx := &VoiceContext{
			Params:             e.params,
			SampleRate:         sr,
			LFO1:               lfo1,
			LFO2:               lfo2,
			MorphBalanceSmooth: e.morphBalanceSm.Process(e.params.Get(ParamMorphBalance), portamentoDeclickHalfTime, sr),
			DetuneMultSmooth:   e.detuneMultSm.Process(e.params.Get(ParamDetuningMultiplier), portamentoDeclickHalfTime, sr),
			CutoffSmooth:       e.cutoffSm.Process(e.params.Get(ParamCutoff), portamentoDeclickHalfTime, sr),
			ResonanceSmooth:    e.resonanceSm.Process(e.params.Get(ParamResonance), portamentoDeclickHalfTime, sr),
		}

		var sum float64
		if mono {
			ctx.BaseFreq = e.pool.AdvanceMonoFrequency(e.monoFreqTarget, glide, sr)
			if v := e.pool.MonoVoice(); v.Stage != StageOff {
				sum = v.Render(ctx)
			}
		} else {
			for _, v := range e.pool.voices {
				if v.Stage == StageOff {
					continue
				}
				ctx.BaseFreq = v.BaseFreq
				sum += v.Render(ctx)
			}
		}

		l, r := e.fx.Process(sum, e.params, lfo1, lfo2)
		idx := bufferOffset + i
		left[idx] = l
		right[idx] = r
	}
}
