// SPDX-License-Identifier: MIT
/*
Package dft implements the direct O(N²) discrete Fourier transform.

	X[k,c] = Σ x[n,c] · (cos(2πkn/N) − i·sin(2πkn/N))

It is the reference the FFT is checked against, so it favours a literal
rendering of the formula over speed. Real and imaginary parts are summed in
separate float64 accumulators.
*/
package dft

import (
	"math"

	"spectra/internal/spectrum"
)

// Engine computes exact N-point transforms. The zero value is ready to use.
type Engine struct {
	// MaxPoints limits the output allocation; zero means
	// spectrum.DefaultMaxPoints.
	MaxPoints int
}

// New returns an Engine with the default allocation limit.
func New() *Engine {
	return &Engine{}
}

// Name identifies the engine in logs and configuration.
func (e *Engine) Name() string { return "dft" }

// Transform computes the spectrum of interleaved samples. Every channel gets
// N = len(samples)/channels bins.
func (e *Engine) Transform(samples []float64, channels int) (*spectrum.Spectrum, error) {
	n, err := spectrum.CheckInput(samples, channels)
	if err != nil {
		return nil, err
	}
	if err := spectrum.CheckSize(n, channels, e.MaxPoints); err != nil {
		return nil, err
	}

	out := spectrum.New(n, channels, n)
	step := 2 * math.Pi / float64(n)
	for k := range n {
		for c := range channels {
			var re, im float64
			for i := range n {
				x := samples[i*channels+c]
				// Reduce k*i modulo n before scaling to keep the angle small.
				theta := step * float64((k*i)%n)
				re += x * math.Cos(theta)
				im -= x * math.Sin(theta)
			}
			out.Set(k, c, complex(re, im))
		}
	}

	return out, nil
}
