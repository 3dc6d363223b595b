// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"

	"spectra/internal/config"
	"spectra/internal/dft"
	"spectra/internal/fft"
	"spectra/internal/spectrum"
)

// Engine is the standard interface for spectral transforms. Implementations
// take a block interleaved by channel and return one spectrum per channel.
type Engine interface {
	Name() string
	Transform(samples []float64, channels int) (*spectrum.Spectrum, error)
}

// NewEngine builds the engine registered under name. parallel only affects
// the fft engine; maxPoints of zero keeps the engine's default limit.
func NewEngine(name string, parallel bool, maxPoints int) (Engine, error) {
	switch name {
	case config.EngineFFT:
		e := fft.New(parallel)
		e.MaxPoints = maxPoints
		return e, nil
	case config.EngineDFT:
		e := dft.New()
		e.MaxPoints = maxPoints
		return e, nil
	case config.EngineGonum:
		e := fft.NewGonum()
		e.MaxPoints = maxPoints
		return e, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}

var (
	_ Engine = (*fft.Engine)(nil)
	_ Engine = (*fft.GonumEngine)(nil)
	_ Engine = (*dft.Engine)(nil)
)
