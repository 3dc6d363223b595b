// SPDX-License-Identifier: MIT
package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WaveHeader holds the fields written by BuildWave. Derived fields left at
// zero are computed from Channels, SampleRate and BitsPerSample.
type WaveHeader struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Extension     []byte // Appended to the 16-byte fmt record.
}

// BuildWave assembles a canonical RIFF/WAVE image byte by byte, so tests can
// corrupt or truncate any field precisely.
func BuildWave(h WaveHeader, payload []byte) []byte {
	if h.AudioFormat == 0 {
		h.AudioFormat = 1
	}
	if h.BlockAlign == 0 {
		h.BlockAlign = h.Channels * h.BitsPerSample / 8
	}
	if h.ByteRate == 0 {
		h.ByteRate = h.SampleRate * uint32(h.BlockAlign)
	}

	fmtSize := uint32(16 + len(h.Extension))
	riffSize := 4 + (8 + fmtSize) + (8 + uint32(len(payload)))

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, riffSize)
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, fmtSize)
	binary.Write(&buf, binary.LittleEndian, h.AudioFormat)
	binary.Write(&buf, binary.LittleEndian, h.Channels)
	binary.Write(&buf, binary.LittleEndian, h.SampleRate)
	binary.Write(&buf, binary.LittleEndian, h.ByteRate)
	binary.Write(&buf, binary.LittleEndian, h.BlockAlign)
	binary.Write(&buf, binary.LittleEndian, h.BitsPerSample)
	buf.Write(h.Extension)
	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(payload)))
	buf.Write(payload)

	return buf.Bytes()
}

// PCM16 packs signed 16-bit samples little-endian.
func PCM16(samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// QuantizePCM16 scales normalized samples to 16-bit integers, clipping to
// the representable range.
func QuantizePCM16(samples []float64) []int {
	out := make([]int, len(samples))
	for i, s := range samples {
		v := int(s * 32768)
		if v > 32767 {
			v = 32767
		}
		if v < -32768 {
			v = -32768
		}
		out[i] = v
	}
	return out
}

// WriteWAV encodes interleaved integer samples to path with go-audio's
// encoder, producing the file layout a typical recorder writes.
func WriteWAV(path string, sampleRate, bitDepth, channels int, data []int) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fixture: create %s: %w", path, err)
	}
	defer out.Close()

	encoder := wav.NewEncoder(out, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: bitDepth,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("fixture: encode %s: %w", path, err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("fixture: finalize %s: %w", path, err)
	}
	return nil
}
