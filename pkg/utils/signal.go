// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// MockTransport records every payload it is handed instead of sending it.
type MockTransport struct {
	mu     sync.Mutex
	Sent   []any
	Closed bool
}

// Send stores the payload for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, data)
	return nil
}

// Close marks the transport closed.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Count returns the number of payloads received so far.
func (m *MockTransport) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// GenerateSineWave returns size samples of a sine completing cycles full
// periods over the block, scaled by amplitude.
func GenerateSineWave(size int, cycles, amplitude float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = amplitude * math.Sin(2*math.Pi*cycles*float64(i)/float64(size))
	}
	return buffer
}

// GenerateComplexWave returns a fundamental of cycles periods plus its second
// and third harmonics at decreasing amplitude.
func GenerateComplexWave(size int, cycles float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		phase := 2 * math.Pi * cycles * float64(i) / float64(size)
		buffer[i] = math.Sin(phase)*0.5 +
			math.Sin(2*phase)*0.3 +
			math.Sin(3*phase)*0.2
	}
	return buffer
}

// GenerateConstant returns size copies of value.
func GenerateConstant(size int, value float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		buffer[i] = value
	}
	return buffer
}

// Interleave merges equally sized channel slices into frame order.
func Interleave(channels ...[]float64) []float64 {
	if len(channels) == 0 {
		return nil
	}
	frames := len(channels[0])
	out := make([]float64, frames*len(channels))
	for c, samples := range channels {
		for i := 0; i < frames && i < len(samples); i++ {
			out[i*len(channels)+c] = samples[i]
		}
	}
	return out
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin+1], clamping the range to the slice.
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
