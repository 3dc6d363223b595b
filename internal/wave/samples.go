// SPDX-License-Identifier: MIT
package wave

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"math/bits"
	"time"
)

// Normalization divisors. 8-bit PCM is unsigned and is scaled by its maximum
// without re-centering, so it lands in [0, 1]. 16-bit PCM is scaled by 2^15,
// giving [-1, 1).
const (
	uint8Scale = float64(math.MaxUint8)
	int16Scale = float64(math.MaxInt16) + 1
)

// MaxBlockSamples bounds the normalized samples one block may hold, summed
// over channels. Header fields are untrusted, so a block above this fails
// with ErrBlockTooLarge instead of allocating.
const MaxBlockSamples = 1 << 26

// perDuration returns rate*d/time.Second, or false if the result does not
// fit in an int64.
func perDuration(rate uint32, d time.Duration) (int64, bool) {
	hi, lo := bits.Mul64(uint64(rate), uint64(d))
	if hi >= uint64(time.Second) {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, uint64(time.Second))
	if q > math.MaxInt64 {
		return 0, false
	}
	return int64(q), true
}

// SampleBlock is a caller-owned window of normalized samples interleaved by
// channel: [ch0_s0, ch1_s0, ..., ch0_s1, ch1_s1, ...]. A block can be filled
// repeatedly from the same container.
type SampleBlock struct {
	Channels int
	Samples  []float64
}

// Allocate sizes a block for channels*sampleRate*d samples. d is truncated
// to whole frames.
func Allocate(f Format, d time.Duration) (*SampleBlock, error) {
	if d <= 0 {
		return nil, ErrInvalidDuration
	}
	if f.Channels == 0 {
		return nil, fmt.Errorf("%w: channel count is zero", ErrMalformedHeader)
	}
	if err := f.Supported(); err != nil {
		return nil, err
	}

	frames, ok := perDuration(f.SampleRate, d)
	if !ok || frames > MaxBlockSamples/int64(f.Channels) {
		return nil, fmt.Errorf("%w: %d Hz x %d channels for %s (limit %d samples)",
			ErrBlockTooLarge, f.SampleRate, f.Channels, d, MaxBlockSamples)
	}

	return &SampleBlock{
		Channels: int(f.Channels),
		Samples:  make([]float64, frames*int64(f.Channels)),
	}, nil
}

// Frames returns the number of multi-channel frames the block can hold.
func (b *SampleBlock) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Release drops the backing storage. The block must not be filled again.
func (b *SampleBlock) Release() {
	b.Samples = nil
	b.Channels = 0
}

// Fill reads enough raw PCM to fill b and converts it in place. It returns
// the number of samples converted; a count below len(b.Samples) means the
// payload ended and is not an error. Samples past the count are zeroed so a
// short block never carries values from a previous fill. b must have been
// allocated for a format with the container's channel count.
func (c *Container) Fill(b *SampleBlock) (int, error) {
	if b == nil || b.Samples == nil {
		return 0, ErrReleased
	}
	if err := c.format.Supported(); err != nil {
		return 0, err
	}
	if b.Channels != int(c.format.Channels) {
		return 0, fmt.Errorf("%w: block holds %d channels, file has %d",
			ErrChannelRange, b.Channels, c.format.Channels)
	}

	bps := c.format.BytesPerSample()
	need := len(b.Samples) * bps
	if cap(c.scratch) < need {
		c.scratch = make([]byte, need)
	}
	raw := c.scratch[:need]

	n, err := io.ReadFull(c, raw)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return 0, fmt.Errorf("wave: fill: %w", err)
	}

	count := n / bps
	decode(b.Samples[:count], raw[:count*bps], c.format.BitsPerSample)
	clear(b.Samples[count:])

	return count, nil
}

// decode converts raw little-endian PCM into normalized samples. len(dst)
// samples are produced from the first len(dst)*bytesPerSample bytes of raw.
func decode(dst []float64, raw []byte, bitsPerSample uint16) {
	switch bitsPerSample {
	case BitsPerSample8:
		for i := range dst {
			dst[i] = NormalizeUint8(raw[i])
		}
	case BitsPerSample16:
		for i := range dst {
			dst[i] = NormalizeInt16(int16(binary.LittleEndian.Uint16(raw[2*i:])))
		}
	}
}

// NormalizeUint8 maps an unsigned 8-bit sample to [0, 1].
func NormalizeUint8(v uint8) float64 {
	return float64(v) / uint8Scale
}

// NormalizeInt16 maps a signed 16-bit sample to [-1, 1).
func NormalizeInt16(v int16) float64 {
	return float64(v) / int16Scale
}

// ExtractChannel returns the normalized samples of a single channel from a
// raw interleaved buffer such as the one returned by ReadRaw. Trailing bytes
// that do not form a whole frame are ignored.
func ExtractChannel(f Format, raw []byte, ch int) ([]float64, error) {
	if err := f.Supported(); err != nil {
		return nil, err
	}
	if ch < 0 || ch >= int(f.Channels) {
		return nil, fmt.Errorf("%w: channel %d of %d", ErrChannelRange, ch, f.Channels)
	}

	bps := f.BytesPerSample()
	frameSize := bps * int(f.Channels)
	frames := len(raw) / frameSize
	out := make([]float64, frames)

	for i := range out {
		off := i*frameSize + ch*bps
		decode(out[i:i+1], raw[off:off+bps], f.BitsPerSample)
	}

	return out, nil
}
