package engine

import "testing"

// TestLFOPhasorShapes checks each waveform's value at the start, quarter,
// and half points of its cycle.
func TestLFOPhasorShapes(t *testing.T) {
	tests := []struct {
		name  string
		shape LFOShape
		steps int // samples to advance before sampling
		want  float64
		tol   float64
	}{
		{"sine at phase 0", LFOSine, 0, 0, 1e-9},
		{"square first half", LFOSquare, 0, -1, 0},
		{"square second half", LFOSquare, 7, 1, 0},
		{"saw rising", LFOSaw, 0, -1, 0},
		{"reverse saw falling", LFOReverseSaw, 0, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLFOPhasor()
			const sr = 10.0
			const rate = 1.0 // one full cycle every 10 samples
			var got float64
			for i := 0; i <= tt.steps; i++ {
				got = l.Render(rate, sr, tt.shape)
			}
			if d := got - tt.want; d < -tt.tol-1e-9 || d > tt.tol+1e-9 {
				t.Fatalf("Render() = %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

// TestLFOPhasorWrapsContinuously checks the phase accumulator never
// escapes [0,1) even after many cycles.
func TestLFOPhasorWrapsContinuously(t *testing.T) {
	l := NewLFOPhasor()
	for i := 0; i < 100000; i++ {
		l.Render(7, 44100, LFOSine)
	}
	if l.phase < 0 || l.phase >= 1 {
		t.Fatalf("phase = %v, want [0,1)", l.phase)
	}
}

// TestUnipolarRange checks Unipolar maps a bipolar [-1,1] input to
// [0,amplitude].
func TestUnipolarRange(t *testing.T) {
	if got := Unipolar(-1, 2); got != 0 {
		t.Errorf("Unipolar(-1,2) = %v, want 0", got)
	}
	if got := Unipolar(1, 2); got != 2 {
		t.Errorf("Unipolar(1,2) = %v, want 2", got)
	}
	if got := Unipolar(0, 2); got != 1 {
		t.Errorf("Unipolar(0,2) = %v, want 1", got)
	}
}

// TestPortamentoSmootherHalfTime checks that after exactly one half-time's
// worth of samples, the smoother has closed half the distance to target.
func TestPortamentoSmootherHalfTime(t *testing.T) {
	const sr = 1000.0
	const halfTime = 0.1 // 100 samples
	s := NewPortamentoSmoother(0)
	var v float64
	for i := 0; i < int(halfTime*sr); i++ {
		v = s.Process(1, halfTime, sr)
	}
	if d := v - 0.5; d < -0.01 || d > 0.01 {
		t.Fatalf("value after one half-time = %v, want ~0.5", v)
	}
}

// TestPortamentoSmootherZeroHalfTimeSnaps checks the documented instant
// snap behavior for a non-positive half-time.
func TestPortamentoSmootherZeroHalfTimeSnaps(t *testing.T) {
	s := NewPortamentoSmoother(0)
	if got := s.Process(5, 0, 44100); got != 5 {
		t.Fatalf("Process with zero half-time = %v, want 5 (immediate snap)", got)
	}
}

// TestPortamentoSmootherSetImmediate checks SetImmediate bypasses the
// glide entirely.
func TestPortamentoSmootherSetImmediate(t *testing.T) {
	s := NewPortamentoSmoother(0)
	s.SetImmediate(3)
	if got := s.Value(); got != 3 {
		t.Fatalf("Value() after SetImmediate = %v, want 3", got)
	}
}
