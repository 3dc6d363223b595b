// SPDX-License-Identifier: MIT
package wave

import (
	"fmt"
	"strings"
	"time"
)

// Supported PCM bit depths.
const (
	BitsPerSample8  = 8
	BitsPerSample16 = 16
)

// Format describes the PCM stream declared by the fmt and data chunks. It is
// a plain value: it stays valid after the container that produced it is
// closed.
type Format struct {
	AudioFormat   uint16 // Format code, informational only (1 = PCM).
	Channels      uint16 // Interleaved channel count.
	SampleRate    uint32 // Frames per second (Hz).
	ByteRate      uint32 // SampleRate * BlockAlign as declared by the file.
	BlockAlign    uint16 // Bytes per multi-channel frame.
	BitsPerSample uint16 // Bits per single-channel sample.
	DataLength    uint32 // Bytes of PCM payload in the data chunk.
}

// BytesPerSample returns the size of one single-channel sample in bytes.
func (f Format) BytesPerSample() int {
	return int(f.BitsPerSample) / 8
}

// Frames returns the number of complete multi-channel frames in the payload.
func (f Format) Frames() int {
	if f.BlockAlign == 0 {
		return 0
	}
	return int(f.DataLength) / int(f.BlockAlign)
}

// Duration returns the playback length of the payload.
func (f Format) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.Frames()) * time.Second / time.Duration(f.SampleRate)
}

// Supported reports whether the sample converter can handle this bit depth.
func (f Format) Supported() error {
	switch f.BitsPerSample {
	case BitsPerSample8, BitsPerSample16:
		return nil
	default:
		return fmt.Errorf("%w: %d bits per sample", ErrUnsupportedFormat, f.BitsPerSample)
	}
}

// String renders the header fields one per line in "name value" form.
func (f Format) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "length %d\n", f.DataLength)
	fmt.Fprintf(&sb, "num_channels %d\n", f.Channels)
	fmt.Fprintf(&sb, "sample_rate %d\n", f.SampleRate)
	fmt.Fprintf(&sb, "byte_rate %d\n", f.ByteRate)
	fmt.Fprintf(&sb, "block_size %d\n", f.BlockAlign)
	fmt.Fprintf(&sb, "bits_per_sample %d", f.BitsPerSample)
	return sb.String()
}
