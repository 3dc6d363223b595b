// SPDX-License-Identifier: MIT
package fft

import (
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"spectra/internal/spectrum"
	"spectra/pkg/bitint"
)

// GonumEngine computes the same padded spectrum as Engine using gonum's
// complex FFT. It exists as an independent implementation to cross-check
// against and is selectable as the "gonum" engine.
type GonumEngine struct {
	MaxPoints int

	mu   sync.Mutex
	ffts map[int]*fourier.CmplxFFT
}

// NewGonum creates a GonumEngine.
func NewGonum() *GonumEngine {
	return &GonumEngine{ffts: make(map[int]*fourier.CmplxFFT)}
}

// Name identifies the engine in logs and configuration.
func (e *GonumEngine) Name() string { return "gonum" }

// Transform zero-pads each channel to the next power of two, transforms it
// and keeps the first N bins.
func (e *GonumEngine) Transform(samples []float64, channels int) (*spectrum.Spectrum, error) {
	n, err := spectrum.CheckInput(samples, channels)
	if err != nil {
		return nil, err
	}

	size := bitint.NextPowerOfTwo(n)
	if err := spectrum.CheckSize(size, channels, e.MaxPoints); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ffts == nil {
		e.ffts = make(map[int]*fourier.CmplxFFT)
	}
	fft, ok := e.ffts[size]
	if !ok {
		fft = fourier.NewCmplxFFT(size)
		e.ffts[size] = fft
	}

	out := spectrum.New(n, channels, size)
	seq := make([]complex128, size)
	coeff := make([]complex128, size)
	for c := range channels {
		clear(seq)
		for i := range n {
			seq[i] = complex(samples[i*channels+c], 0)
		}
		fft.Coefficients(coeff, seq)
		for k := range n {
			out.Set(k, c, coeff[k])
		}
	}

	return out, nil
}
