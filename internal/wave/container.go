// SPDX-License-Identifier: MIT
/*
Package wave reads canonical RIFF/WAVE files holding 8-bit unsigned or
16-bit signed little-endian PCM and converts the payload into normalized
float64 samples.

The reader is strict: the file must be RIFF, WAVE, a fmt chunk and then a
data chunk, in that order. Any deviation fails the open with
ErrMalformedHeader or ErrTruncatedFile. There is no recovery mode.

Layout:

	| 4B | "RIFF"                 |
	| 4B | file size - 8          | (not validated)
	| 4B | "WAVE"                 |
	| 4B | "fmt "                 |
	| 4B | fmt chunk size         |
	| 16B| canonical PCM record   |
	| nB | extension (discarded)  |
	| 4B | "data"                 |
	| 4B | data length            |
	| nB | interleaved PCM        |
*/
package wave

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	chunkIDRIFF = "RIFF"
	chunkIDWAVE = "WAVE"
	chunkIDFmt  = "fmt "
	chunkIDData = "data"

	// fmtBodySize is the size of the canonical PCM format record.
	fmtBodySize = 16
)

type riffHeader struct {
	ID     [4]byte
	Size   uint32
	Format [4]byte
}

type chunkHeader struct {
	ID   [4]byte
	Size uint32
}

type fmtBody struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Container is an opened WAVE file positioned at the start of its PCM
// payload. Reads are sequential and never cross the end of the data chunk.
// A Container is not safe for concurrent use.
type Container struct {
	format  Format
	data    *io.LimitedReader
	closer  io.Closer
	closed  bool
	scratch []byte // Reused raw byte window for Fill.
}

// Open opens the file at path and parses its header. The returned container
// owns the file handle; Close releases it.
func Open(path string) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wave: open %s: %w", path, err)
	}

	c, err := NewContainer(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.closer = f

	return c, nil
}

// NewContainer parses a WAVE header from r. The container reads the payload
// from r but does not own it; Close will not close r.
func NewContainer(r io.Reader) (*Container, error) {
	var riff riffHeader
	if err := readHeader(r, &riff, "RIFF header"); err != nil {
		return nil, err
	}
	if err := expectID(riff.ID, chunkIDRIFF); err != nil {
		return nil, err
	}
	if err := expectID(riff.Format, chunkIDWAVE); err != nil {
		return nil, err
	}

	var fmtHeader chunkHeader
	if err := readHeader(r, &fmtHeader, "fmt chunk header"); err != nil {
		return nil, err
	}
	if err := expectID(fmtHeader.ID, chunkIDFmt); err != nil {
		return nil, err
	}
	if fmtHeader.Size < fmtBodySize {
		return nil, fmt.Errorf("%w: fmt chunk size %d is smaller than %d", ErrMalformedHeader, fmtHeader.Size, fmtBodySize)
	}

	var body fmtBody
	if err := readHeader(r, &body, "fmt chunk body"); err != nil {
		return nil, err
	}

	// Extension bytes beyond the canonical record are read and dropped.
	if extra := int64(fmtHeader.Size) - fmtBodySize; extra > 0 {
		if n, err := io.CopyN(io.Discard, r, extra); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: fmt extension: read %d of %d bytes", ErrTruncatedFile, n, extra)
			}
			return nil, fmt.Errorf("wave: fmt extension: %w", err)
		}
	}

	if body.Channels < 1 {
		return nil, fmt.Errorf("%w: channel count is zero", ErrMalformedHeader)
	}
	if body.SampleRate == 0 {
		return nil, fmt.Errorf("%w: sample rate is zero", ErrMalformedHeader)
	}

	var dataHeader chunkHeader
	if err := readHeader(r, &dataHeader, "data chunk header"); err != nil {
		return nil, err
	}
	if err := expectID(dataHeader.ID, chunkIDData); err != nil {
		return nil, err
	}

	return &Container{
		format: Format{
			AudioFormat:   body.AudioFormat,
			Channels:      body.Channels,
			SampleRate:    body.SampleRate,
			ByteRate:      body.ByteRate,
			BlockAlign:    body.BlockAlign,
			BitsPerSample: body.BitsPerSample,
			DataLength:    dataHeader.Size,
		},
		data: &io.LimitedReader{R: r, N: int64(dataHeader.Size)},
	}, nil
}

// readHeader decodes a fixed-size little-endian record, mapping short reads
// to ErrTruncatedFile.
func readHeader(r io.Reader, v any, what string) error {
	err := binary.Read(r, binary.LittleEndian, v)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return fmt.Errorf("%w: %s", ErrTruncatedFile, what)
	default:
		return fmt.Errorf("wave: reading %s: %w", what, err)
	}
}

func expectID(got [4]byte, want string) error {
	if string(got[:]) != want {
		return fmt.Errorf("%w: expected %q, found %q", ErrMalformedHeader, want, got[:])
	}
	return nil
}

// Format returns the parsed header. The value remains valid after Close.
func (c *Container) Format() Format {
	return c.format
}

// Remaining returns the number of payload bytes not yet read.
func (c *Container) Remaining() int64 {
	return c.data.N
}

// Read reads raw interleaved PCM bytes from the data chunk. It returns
// io.EOF once DataLength bytes have been consumed.
func (c *Container) Read(p []byte) (int, error) {
	if c.closed {
		return 0, os.ErrClosed
	}
	return c.data.Read(p)
}

// ReadRaw reads up to ByteRate*d bytes of raw PCM. Running out of payload is
// not an error: the returned slice is shortened to what was available.
func (c *Container) ReadRaw(d time.Duration) ([]byte, error) {
	if d <= 0 {
		return nil, ErrInvalidDuration
	}

	length, ok := perDuration(c.format.ByteRate, d)
	if rest := c.Remaining(); !ok || length > rest {
		length = rest
	}
	buf := make([]byte, length)
	n, err := io.ReadFull(c, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("wave: raw read: %w", err)
	}

	return buf[:n], nil
}

// Close releases the underlying file, if the container owns one. Calling
// Close again is a no-op.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.scratch = nil

	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
