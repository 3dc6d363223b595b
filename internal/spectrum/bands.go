// SPDX-License-Identifier: MIT
package spectrum

import "math"

// FrequencyBand defines the name and frequency range for an energy band.
type FrequencyBand struct {
	Name   string  `yaml:"name"`
	LowHz  float64 `yaml:"low_hz"`
	HighHz float64 `yaml:"high_hz"`
}

// BandEnergy is the result for one band on one channel.
type BandEnergy struct {
	Name   string  `json:"name"`
	Energy float64 `json:"energy"` // RMS magnitude of the bins in the band
	Bins   int     `json:"bins"`
}

// DefaultBands splits the audible range the way a mixing desk would. The
// top band is open-ended and stops at Nyquist.
func DefaultBands() []FrequencyBand {
	return []FrequencyBand{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: math.Inf(1)},
	}
}

// Bands sums bin energy for channel c into each band. Only bins below
// Nyquist are considered since the upper half mirrors them for real input.
// A bin belongs to the first band whose [LowHz, HighHz) contains it.
func (s *Spectrum) Bands(c int, sampleRate float64, bands []FrequencyBand) []BandEnergy {
	out := make([]BandEnergy, len(bands))
	for i, b := range bands {
		out[i].Name = b.Name
	}

	powers := s.Powers(c)
	nyquist := sampleRate / 2
	for k, p := range powers {
		freq := s.Frequency(k, sampleRate)
		if freq >= nyquist {
			break
		}
		for i, b := range bands {
			if freq >= b.LowHz && freq < b.HighHz {
				out[i].Energy += p
				out[i].Bins++
				break
			}
		}
	}

	for i := range out {
		if out[i].Bins > 0 {
			out[i].Energy = math.Sqrt(out[i].Energy / float64(out[i].Bins))
		}
	}
	return out
}
