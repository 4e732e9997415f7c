package dynamics

// Limiter is a fast-attack, high-ratio peak limiter built on dynamicsCore.
// It is intended as a final safety stage on a mix or master bus rather than
// a musical compressor.
type Limiter struct {
	core *dynamicsCore
}

// NewLimiter creates a limiter with a 0 dB ceiling, ratio 100:1, and a fast
// peak detector appropriate for catching transients before they clip.
func NewLimiter(sampleRate float64) (*Limiter, error) {
	core, err := newDynamicsCore(dynamicsCoreConfig{
		sampleRate:   sampleRate,
		topology:     DynamicsTopologyFeedforward,
		detectorMode: DetectorModePeak,
		thresholdDB:  0,
		ratio:        100,
		kneeDB:       0,
		attackMs:     0.1,
		releaseMs:    50,
		autoMakeup:   false,
	})
	if err != nil {
		return nil, err
	}
	return &Limiter{core: core}, nil
}

// SetCeiling sets the limiting threshold in dB.
func (l *Limiter) SetCeiling(dB float64) error {
	return l.core.SetThreshold(dB)
}

// SetRelease sets the release time in milliseconds.
func (l *Limiter) SetRelease(ms float64) error {
	return l.core.SetRelease(ms)
}

// ProcessSample processes one sample through the limiter.
func (l *Limiter) ProcessSample(input float64) float64 {
	out, _ := l.core.ProcessSample(input, input)
	return out
}

// Reset clears internal envelope state.
func (l *Limiter) Reset() {
	l.core.Reset()
}
