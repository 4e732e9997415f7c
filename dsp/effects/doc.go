// Package effects provides reusable non-I/O DSP effect kernels.
//
// Subpackages:
//   - github.com/cwbudde/polysynth-engine/dsp/effects/dynamics
//   - github.com/cwbudde/polysynth-engine/dsp/effects/modulation
//
// Effects remaining in this package:
//   - BitCrusher: Sample rate and bit-depth reduction for lo-fi aesthetics.
//   - Delay: Feedback delay with dry/wet mix.
//   - Reverb: Schroeder/Freeverb-style comb+allpass reverb tank.
//
// All effects are designed for real-time processing with zero-allocation
// hot paths and support both single-sample and buffer-based processing.
package effects
