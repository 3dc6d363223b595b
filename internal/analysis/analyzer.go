// SPDX-License-Identifier: MIT

// Package analysis drives the pipeline over a WAVE file: open the container,
// fill a block of normalized samples, transform it and publish one frame per
// channel. Blocks are processed in file order; a short final block is
// transformed as is.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spectra/internal/config"
	applog "spectra/internal/log"
	"spectra/internal/spectrum"
	"spectra/internal/transport"
	"spectra/internal/wave"
)

// ErrNoSamples is returned when a file holds no complete frame.
var ErrNoSamples = errors.New("no samples")

// Options configures an Analyzer.
type Options struct {
	Engine    Engine
	Block     time.Duration       // Audio analysed per transform.
	Channel   int                 // config.AllChannels or one channel index.
	Transport transport.Transport // Optional; nil disables publishing.
}

// Result is the spectrum of one block.
type Result struct {
	File     string
	Format   wave.Format
	Index    int           // Block number, from 0.
	Start    time.Duration // Offset of the block in the file.
	Frames   int           // Frames actually read; below the block size at the end of the file.
	Channels []int         // Channels[i] is the file channel behind spectrum channel i.
	Spectrum *spectrum.Spectrum
}

// SampleRate of the source file in Hz.
func (r *Result) SampleRate() float64 {
	return float64(r.Format.SampleRate)
}

// BinHz is the spacing between bins of the computed transform.
func (r *Result) BinHz() float64 {
	return r.SampleRate() / float64(r.Spectrum.Size)
}

// HalfBins is the number of leading bins reported for real input.
func (r *Result) HalfBins() int {
	return r.Spectrum.Bins / 2
}

// Bands returns band energies for every spectrum channel.
func (r *Result) Bands(bands []spectrum.FrequencyBand) [][]spectrum.BandEnergy {
	out := make([][]spectrum.BandEnergy, len(r.Channels))
	for i := range r.Channels {
		out[i] = r.Spectrum.Bands(i, r.SampleRate(), bands)
	}
	return out
}

// Analyzer runs the pipeline. Frames it publishes share a session id and
// carry increasing sequence numbers. An Analyzer may be reused across files
// and is safe for concurrent use.
type Analyzer struct {
	opts    Options
	session uuid.UUID
	seq     atomic.Uint32
}

// New validates opts and creates an Analyzer with a fresh session id.
func New(opts Options) (*Analyzer, error) {
	if opts.Engine == nil {
		return nil, errors.New("analysis: engine is required")
	}
	if opts.Block <= 0 {
		return nil, fmt.Errorf("analysis: %w", wave.ErrInvalidDuration)
	}
	if opts.Channel < config.AllChannels {
		return nil, fmt.Errorf("analysis: %w: %d", wave.ErrChannelRange, opts.Channel)
	}

	a := &Analyzer{opts: opts, session: uuid.New()}
	applog.Debugf("Analysis: session %s (engine: %s, block: %s)", a.session, opts.Engine.Name(), opts.Block)
	return a, nil
}

// Session identifies the frames published by this Analyzer.
func (a *Analyzer) Session() uuid.UUID {
	return a.session
}

// AnalyzeFile transforms the first block of the file at path.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) (*Result, error) {
	var first *Result
	err := a.run(ctx, path, 1, func(r *Result) error {
		first = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return first, nil
}

// Stream transforms the file block by block until its payload ends,
// calling fn with each result. An error from fn stops the stream and is
// returned. fn may be nil when only publishing matters.
func (a *Analyzer) Stream(ctx context.Context, path string, fn func(*Result) error) error {
	return a.run(ctx, path, 0, fn)
}

// run processes at most limit blocks, or all of them when limit is zero.
func (a *Analyzer) run(ctx context.Context, path string, limit int, fn func(*Result) error) error {
	c, err := wave.Open(path)
	if err != nil {
		return err
	}
	defer c.Close()

	f := c.Format()
	channels, err := a.selectChannels(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	block, err := wave.Allocate(f, a.opts.Block)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	defer block.Release()

	if block.Frames() == 0 {
		return fmt.Errorf("%s: %s block holds no frame at %d Hz: %w",
			path, a.opts.Block, f.SampleRate, wave.ErrInvalidDuration)
	}

	applog.Infof("Analysis: %s (%d ch, %d Hz, %d-bit, %s) with %s engine",
		filepath.Base(path), f.Channels, f.SampleRate, f.BitsPerSample, f.Duration(), a.opts.Engine.Name())

	width := block.Channels
	// A single channel of a multi-channel file is read raw and extracted,
	// so only the selected channel is ever normalized.
	var raw []byte
	if len(channels) == 1 && width > 1 {
		raw = make([]byte, block.Frames()*width*f.BytesPerSample())
	}

	for index := 0; limit == 0 || index < limit; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		samples, count, err := readBlock(c, block, raw, channels[0])
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		frames := len(samples) / count
		if frames == 0 {
			if index == 0 {
				return fmt.Errorf("%s: %w", path, ErrNoSamples)
			}
			return nil
		}

		s, err := a.opts.Engine.Transform(samples, count)
		if err != nil {
			return fmt.Errorf("%s: block %d: %w", path, index, err)
		}

		res := &Result{
			File:     path,
			Format:   f,
			Index:    index,
			Start:    time.Duration(index) * a.opts.Block,
			Frames:   frames,
			Channels: channels,
			Spectrum: s,
		}
		applog.Debugf("Analysis: block %d, %d frames, %d bins of %d", index, frames, s.Bins, s.Size)

		if err := a.Publish(res); err != nil {
			applog.Errorf("Analysis: dropped block %d: %v", index, err)
		}
		if fn != nil {
			if err := fn(res); err != nil {
				return err
			}
		}

		if frames < block.Frames() {
			return nil
		}
	}
	return nil
}

func (a *Analyzer) selectChannels(f wave.Format) ([]int, error) {
	if a.opts.Channel == config.AllChannels {
		channels := make([]int, f.Channels)
		for i := range channels {
			channels[i] = i
		}
		return channels, nil
	}
	if a.opts.Channel >= int(f.Channels) {
		return nil, fmt.Errorf("%w: channel %d of %d", wave.ErrChannelRange, a.opts.Channel, f.Channels)
	}
	return []int{a.opts.Channel}, nil
}

// readBlock returns the next block of interleaved samples and their channel
// count. With raw set, one channel is extracted from the raw frames instead
// of filling the whole block.
func readBlock(c *wave.Container, block *wave.SampleBlock, raw []byte, ch int) ([]float64, int, error) {
	if raw == nil {
		n, err := c.Fill(block)
		if err != nil {
			return nil, 0, err
		}
		frames := n / block.Channels
		return block.Samples[:frames*block.Channels], block.Channels, nil
	}

	n, err := io.ReadFull(c, raw)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, 0, fmt.Errorf("raw read: %w", err)
	}
	samples, err := wave.ExtractChannel(c.Format(), raw[:n], ch)
	if err != nil {
		return nil, 0, err
	}
	return samples, 1, nil
}

// Frame builds the published form of spectrum channel i of r. Only the
// leading half of the bins is carried since real input mirrors the rest.
func (a *Analyzer) Frame(r *Result, i int) transport.Frame {
	mags := r.Spectrum.Magnitudes(i)
	return transport.Frame{
		Session:    a.session.String(),
		Seq:        a.seq.Add(1),
		Timestamp:  time.Now().UnixNano(),
		File:       filepath.Base(r.File),
		Engine:     a.opts.Engine.Name(),
		Channel:    r.Channels[i],
		SampleRate: r.SampleRate(),
		Size:       r.Spectrum.Size,
		BinHz:      r.BinHz(),
		Magnitudes: mags[:r.HalfBins()],
	}
}

// Publish sends one frame per channel of r to the configured transport.
func (a *Analyzer) Publish(r *Result) error {
	if a.opts.Transport == nil {
		return nil
	}
	for i := range r.Channels {
		if err := a.opts.Transport.Send(a.Frame(r, i)); err != nil {
			return fmt.Errorf("publish channel %d: %w", r.Channels[i], err)
		}
	}
	return nil
}
