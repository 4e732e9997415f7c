//go:build !amd64 && !arm64

package biquad

import (
	_ "github.com/cwbudde/polysynth-engine/dsp/filter/biquad/internal/arch/generic"
	_ "github.com/cwbudde/polysynth-engine/dsp/filter/biquad/internal/arch/registry"
)
