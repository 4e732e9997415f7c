// Package dynamics provides reusable non-I/O dynamics processors.
//
// Included processors:
//   - Compressor: Soft-knee compressor with log2-domain gain computation.
//   - Limiter: Fast-attack high-ratio peak limiter built on the shared
//     feedforward/feedback detector core.
package dynamics
