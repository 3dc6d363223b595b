// SPDX-License-Identifier: MIT
/*
Package spectrum holds the result of a forward transform: complex bins for
one or more channels, stored with the same interleaving as the input
samples (bin k of channel c lives at index k*Channels + c).

Magnitude and power of whole channels go through algo-vecmath so the
square roots are vectorised where the CPU allows it.
*/
package spectrum

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-vecmath"
)

// Errors shared by every transform engine.
var (
	ErrInvalidInput = errors.New("spectrum: invalid input")
	ErrOutOfMemory  = errors.New("spectrum: transform buffer exceeds limit")
)

// DefaultMaxPoints caps the padded complex buffer an engine may allocate,
// summed over channels.
const DefaultMaxPoints = 1 << 26

// Spectrum is the immutable output of one transform call.
type Spectrum struct {
	Channels int          // Number of interleaved channels.
	Bins     int          // Bins per channel (the caller's N).
	Size     int          // Transform length actually computed (N, or the padded M).
	Data     []complex128 // Interleaved bins, len = Bins*Channels.
}

// New allocates an empty spectrum of bins*channels values.
func New(bins, channels, size int) *Spectrum {
	return &Spectrum{
		Channels: channels,
		Bins:     bins,
		Size:     size,
		Data:     make([]complex128, bins*channels),
	}
}

// CheckInput validates a transform request and returns the per-channel
// sample count.
func CheckInput(samples []float64, channels int) (int, error) {
	if channels <= 0 {
		return 0, fmt.Errorf("%w: channel count %d", ErrInvalidInput, channels)
	}
	if len(samples)%channels != 0 {
		return 0, fmt.Errorf("%w: %d samples is not a multiple of %d channels", ErrInvalidInput, len(samples), channels)
	}
	n := len(samples) / channels
	if n == 0 {
		return 0, fmt.Errorf("%w: zero-length transform", ErrInvalidInput)
	}
	return n, nil
}

// CheckSize guards the padded scratch allocation against maxPoints.
func CheckSize(size, channels, maxPoints int) error {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	if size > maxPoints/channels {
		return fmt.Errorf("%w: %d points x %d channels > %d", ErrOutOfMemory, size, channels, maxPoints)
	}
	return nil
}

// At returns bin k of channel c.
func (s *Spectrum) At(k, c int) complex128 {
	return s.Data[k*s.Channels+c]
}

// Set stores bin k of channel c.
func (s *Spectrum) Set(k, c int, v complex128) {
	s.Data[k*s.Channels+c] = v
}

// Channel returns a de-interleaved copy of channel c's bins.
func (s *Spectrum) Channel(c int) []complex128 {
	out := make([]complex128, s.Bins)
	for k := range out {
		out[k] = s.Data[k*s.Channels+c]
	}
	return out
}

// Magnitude returns |X[k,c]|.
func (s *Spectrum) Magnitude(k, c int) float64 {
	return cmplx.Abs(s.At(k, c))
}

// Phase returns arg(X[k,c]) in radians.
func (s *Spectrum) Phase(k, c int) float64 {
	v := s.At(k, c)
	return math.Atan2(imag(v), real(v))
}

// Magnitudes returns |X[k]| for every bin of channel c.
func (s *Spectrum) Magnitudes(c int) []float64 {
	re, im := s.parts(c)
	out := make([]float64, s.Bins)
	vecmath.Magnitude(out, re, im)
	return out
}

// Powers returns |X[k]|^2 for every bin of channel c.
func (s *Spectrum) Powers(c int) []float64 {
	re, im := s.parts(c)
	out := make([]float64, s.Bins)
	vecmath.Power(out, re, im)
	return out
}

// Phases returns arg(X[k]) for every bin of channel c.
func (s *Spectrum) Phases(c int) []float64 {
	out := make([]float64, s.Bins)
	for k := range out {
		out[k] = s.Phase(k, c)
	}
	return out
}

func (s *Spectrum) parts(c int) (re, im []float64) {
	re = make([]float64, s.Bins)
	im = make([]float64, s.Bins)
	for k := range re {
		v := s.Data[k*s.Channels+c]
		re[k] = real(v)
		im[k] = imag(v)
	}
	return re, im
}

// Frequency returns the centre frequency in Hz of bin k for a signal
// sampled at sampleRate. Resolution is sampleRate/Size, so padded
// transforms have finer bins than the input length suggests.
func (s *Spectrum) Frequency(k int, sampleRate float64) float64 {
	if k < 0 || k >= s.Bins || s.Size == 0 {
		return 0
	}
	return float64(k) * sampleRate / float64(s.Size)
}
