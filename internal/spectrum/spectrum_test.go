// SPDX-License-Identifier: MIT
package spectrum

import (
	"errors"
	"math"
	"testing"
)

func TestCheckInput(t *testing.T) {
	tests := []struct {
		name     string
		samples  int
		channels int
		want     int
		wantErr  bool
	}{
		{"mono", 8, 1, 8, false},
		{"stereo", 8, 2, 4, false},
		{"empty", 0, 1, 0, true},
		{"zero channels", 8, 0, 0, true},
		{"ragged", 7, 2, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := CheckInput(make([]float64, tt.samples), tt.channels)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Errorf("CheckInput() error = %v, want ErrInvalidInput", err)
				}
				return
			}
			if err != nil || n != tt.want {
				t.Errorf("CheckInput() = %d, %v; want %d, nil", n, err, tt.want)
			}
		})
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(1024, 2, 2048); err != nil {
		t.Errorf("CheckSize() at the limit error = %v", err)
	}
	if err := CheckSize(2048, 2, 2048); !errors.Is(err, ErrOutOfMemory) {
		t.Errorf("CheckSize() over the limit error = %v, want ErrOutOfMemory", err)
	}
	if err := CheckSize(1<<20, 1, 0); err != nil {
		t.Errorf("CheckSize() with default limit error = %v", err)
	}
}

func TestMagnitudePhasePower(t *testing.T) {
	s := New(3, 2, 4)
	s.Set(0, 0, 3+4i)
	s.Set(1, 0, -1-1i)
	s.Set(0, 1, 1i)

	mag := s.Magnitudes(0)
	if math.Abs(mag[0]-5) > 1e-12 || math.Abs(mag[1]-math.Sqrt2) > 1e-12 || mag[2] != 0 {
		t.Errorf("Magnitudes(0) = %v", mag)
	}
	pow := s.Powers(0)
	if math.Abs(pow[0]-25) > 1e-12 {
		t.Errorf("Powers(0)[0] = %v, want 25", pow[0])
	}
	if math.Abs(s.Phase(0, 0)-math.Atan2(4, 3)) > 1e-12 {
		t.Errorf("Phase(0,0) = %v", s.Phase(0, 0))
	}
	if math.Abs(s.Phases(1)[0]-math.Pi/2) > 1e-12 {
		t.Errorf("Phases(1)[0] = %v, want pi/2", s.Phases(1)[0])
	}
	if s.Magnitude(0, 1) != 1 {
		t.Errorf("Magnitude(0,1) = %v, want 1", s.Magnitude(0, 1))
	}
}

func TestChannelDeinterleaves(t *testing.T) {
	s := New(2, 2, 2)
	s.Data = []complex128{1, 10, 2, 20}

	left, right := s.Channel(0), s.Channel(1)
	if left[0] != 1 || left[1] != 2 || right[0] != 10 || right[1] != 20 {
		t.Errorf("Channel() = %v / %v", left, right)
	}
}

func TestFrequency(t *testing.T) {
	s := New(1000, 1, 1024)

	if got := s.Frequency(512, 1024); got != 512 {
		t.Errorf("Frequency(512) = %v, want 512", got)
	}
	if got := s.Frequency(1, 44100); math.Abs(got-44100.0/1024) > 1e-12 {
		t.Errorf("Frequency(1) = %v", got)
	}
	if s.Frequency(-1, 44100) != 0 || s.Frequency(1000, 44100) != 0 {
		t.Error("out-of-range bins should map to 0 Hz")
	}
}

func TestBands(t *testing.T) {
	// 16 bins at 16 Hz sampling: bin k is k Hz.
	s := New(16, 1, 16)
	s.Set(1, 0, 2)  // 1 Hz
	s.Set(5, 0, 3)  // 5 Hz
	s.Set(6, 0, 4)  // 6 Hz
	s.Set(12, 0, 9) // above Nyquist, mirrored half

	bands := []FrequencyBand{
		{Name: "low", LowHz: 0, HighHz: 4},
		{Name: "high", LowHz: 4, HighHz: math.Inf(1)},
	}
	got := s.Bands(0, 16, bands)

	if got[0].Bins != 4 || math.Abs(got[0].Energy-math.Sqrt(4.0/4)) > 1e-12 {
		t.Errorf("low band = %+v", got[0])
	}
	if got[1].Bins != 4 || math.Abs(got[1].Energy-math.Sqrt(25.0/4)) > 1e-12 {
		t.Errorf("high band = %+v", got[1])
	}
}

func TestDefaultBandsAreOrdered(t *testing.T) {
	bands := DefaultBands()
	for i := 1; i < len(bands); i++ {
		if bands[i].LowHz != bands[i-1].HighHz {
			t.Errorf("band %q does not start where %q ends", bands[i].Name, bands[i-1].Name)
		}
	}
}
