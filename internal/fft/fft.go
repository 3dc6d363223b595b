// SPDX-License-Identifier: MIT
/*
Package fft implements the iterative radix-2 Cooley–Tukey transform.

Blocks whose per-channel length N is not a power of two are zero-padded to
M = 2^ceil(log2 N). The butterflies run on M points and the first N bins of
each channel are returned, so bin k sits at k*sampleRate/M Hz rather than
k*sampleRate/N. For power-of-two N the output equals the DFT.

Steps per channel:
 1. scatter x[i] into slot reverse(i) of a zeroed M-point buffer
 2. for each stage s = 1..exp, combine pairs (m, m+G/2) inside groups of
    G = 2^s with twiddle w = e^{-2πij/G}
 3. copy the first N bins out

The bit-reversal and twiddle tables depend only on exp and are cached per
Engine.
*/
package fft

import (
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"spectra/internal/spectrum"
	"spectra/pkg/bitint"
)

// plan holds the size-dependent tables for one transform length.
type plan struct {
	exp     uint
	reverse []int        // reverse[i] is i with its exp low bits reversed.
	twiddle []complex128 // twiddle[k] = e^{-2πik/M} for k < M/2.
}

// Engine is a radix-2 FFT with a per-instance table cache.
type Engine struct {
	// MaxPoints limits the padded buffer summed over channels; zero means
	// spectrum.DefaultMaxPoints.
	MaxPoints int

	// Parallel shards channels across goroutines. Channels never share
	// state, so the result is identical either way.
	Parallel bool

	mu    sync.Mutex
	plans map[uint]*plan
}

// New creates an Engine. parallel enables per-channel sharding.
func New(parallel bool) *Engine {
	return &Engine{
		Parallel: parallel,
		plans:    make(map[uint]*plan),
	}
}

// Name identifies the engine in logs and configuration.
func (e *Engine) Name() string { return "fft" }

// BitReversalTable maps each index in [0, 2^exp) to its bit-reversed
// counterpart. The mapping is its own inverse.
func BitReversalTable(exp uint) []int {
	table := make([]int, 1<<exp)
	for i := range table {
		table[i] = int(bitint.ReverseBits(uint(i), exp))
	}
	return table
}

func newPlan(exp uint) *plan {
	size := 1 << exp
	twiddle := make([]complex128, size/2)
	for k := range twiddle {
		theta := 2 * math.Pi * float64(k) / float64(size)
		twiddle[k] = complex(math.Cos(theta), -math.Sin(theta))
	}
	return &plan{
		exp:     exp,
		reverse: BitReversalTable(exp),
		twiddle: twiddle,
	}
}

// plan returns the cached tables for 2^exp points, building them once.
func (e *Engine) plan(exp uint) *plan {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.plans == nil {
		e.plans = make(map[uint]*plan)
	}
	p, ok := e.plans[exp]
	if !ok {
		p = newPlan(exp)
		e.plans[exp] = p
	}
	return p
}

// Transform computes the spectrum of interleaved samples. Each channel gets
// N = len(samples)/channels bins; see the package doc for the padding rule.
// On error no spectrum is returned.
func (e *Engine) Transform(samples []float64, channels int) (*spectrum.Spectrum, error) {
	n, err := spectrum.CheckInput(samples, channels)
	if err != nil {
		return nil, err
	}

	exp := bitint.CeilLog2(n)
	size := 1 << exp
	if err := spectrum.CheckSize(size, channels, e.MaxPoints); err != nil {
		return nil, err
	}

	p := e.plan(exp)
	out := spectrum.New(n, channels, size)

	// Each channel writes only its own interleaved slots of out.Data.
	if e.Parallel && channels > 1 {
		var g errgroup.Group
		for c := range channels {
			g.Go(func() error {
				transformChannel(out, samples, c, n, p)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return out, nil
	}

	for c := range channels {
		transformChannel(out, samples, c, n, p)
	}
	return out, nil
}

func transformChannel(out *spectrum.Spectrum, samples []float64, c, n int, p *plan) {
	channels := out.Channels
	buf := make([]complex128, len(p.reverse))

	for i := range n {
		buf[p.reverse[i]] = complex(samples[i*channels+c], 0)
	}

	butterfly(buf, p)

	for k := range n {
		out.Set(k, c, buf[k])
	}
}

// butterfly runs exp in-place combine stages over a bit-reversed buffer,
// leaving the spectrum in natural order.
func butterfly(buf []complex128, p *plan) {
	size := len(buf)
	for stage := uint(1); stage <= p.exp; stage++ {
		group := 1 << stage
		half := group / 2
		stride := size / group // twiddle[j*stride] = e^{-2πij/group}

		for start := 0; start < size; start += group {
			for j := range half {
				m := start + j
				n := m + half

				// Both outputs must come from the pre-update top value.
				w := p.twiddle[j*stride]
				top := buf[m]
				delta := w * buf[n]
				buf[n] = top - delta
				buf[m] = top + delta
			}
		}
	}
}
