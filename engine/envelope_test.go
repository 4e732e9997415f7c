package engine

import "testing"

// TestADSRAttackDecaySustain drives a full attack-decay-sustain cycle and
// checks the stage transitions land where the timing parameters say they
// should, within a couple of samples.
func TestADSRAttackDecaySustain(t *testing.T) {
	const sr = 1000.0
	e := NewADSR()

	// attack=0.01s -> steps of 0.1; ten of them sum to just under 1.0 in
	// floating point, so the 11th sample clamps to 1.0 and enters decay.
	var v float64
	for i := 0; i < 11; i++ {
		v = e.Process(1, 0.01, 0.05, 0.3, 0.02, sr)
	}
	if v < 0.999 {
		t.Fatalf("value after attack window = %v, want ~1", v)
	}
	if e.stage != adsrDecay && e.stage != adsrSustain {
		t.Fatalf("stage after attack window = %v, want decay or sustain", e.stage)
	}

	// decay=0.05s is a 50-sample time constant; the snap to sustain
	// (|v-0.3| < 1e-6) comes after 50*ln(0.7/1e-6) ≈ 673 samples.
	for i := 0; i < 1000; i++ {
		v = e.Process(1, 0.01, 0.05, 0.3, 0.02, sr)
	}
	if d := v - 0.3; d < -0.01 || d > 0.01 {
		t.Fatalf("value after long decay window = %v, want ~0.3 (sustain)", v)
	}
	if e.stage != adsrSustain {
		t.Fatalf("stage after long decay window = %v, want sustain", e.stage)
	}
}

// TestADSRReleaseReachesThreshold checks that gating off drives the
// envelope below ReleaseAmplitudeThreshold within a bounded number of
// samples proportional to the release time (the property voice retirement
// depends on).
func TestADSRReleaseReachesThreshold(t *testing.T) {
	const sr = 44100.0
	e := NewADSR()
	for i := 0; i < 100; i++ {
		e.Process(1, 0.001, 0.001, 1, 0.01, sr)
	}
	if e.Value() < 0.99 {
		t.Fatalf("value before release = %v, want ~1", e.Value())
	}

	const maxSamples = 5000
	released := false
	for i := 0; i < maxSamples; i++ {
		v := e.Process(0, 0.001, 0.001, 1, 0.01, sr)
		if v < ReleaseAmplitudeThreshold {
			released = true
			break
		}
	}
	if !released {
		t.Fatalf("envelope did not fall below %v within %d samples of release", ReleaseAmplitudeThreshold, maxSamples)
	}
}

// TestADSRGateRetrigger checks that raising the gate again mid-release
// restarts the attack stage rather than continuing to decay toward zero.
func TestADSRGateRetrigger(t *testing.T) {
	e := NewADSR()
	e.Process(1, 0.01, 0.01, 0.5, 0.01, 1000)
	e.Process(0, 0.01, 0.01, 0.5, 0.01, 1000)
	if e.stage != adsrRelease {
		t.Fatalf("stage after gate-off = %v, want release", e.stage)
	}
	e.Process(1, 0.01, 0.01, 0.5, 0.01, 1000)
	if e.stage != adsrAttack {
		t.Fatalf("stage after gate-on retrigger = %v, want attack", e.stage)
	}
}

// TestADSRZeroDurationDoesNotProduceNaN covers the minEnvelopeTime floor:
// a zero or negative stage duration must never divide by zero.
func TestADSRZeroDurationDoesNotProduceNaN(t *testing.T) {
	e := NewADSR()
	v := e.Process(1, 0, 0, 0.5, 0, 44100)
	if v != v {
		t.Fatal("Process with zero durations produced NaN")
	}
}
