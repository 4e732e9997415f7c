// Package modulation provides reusable non-I/O modulation effects.
//
// Included processors:
//   - Phaser: Allpass-cascade modulation effect.
package modulation
