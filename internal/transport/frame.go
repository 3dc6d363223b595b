// SPDX-License-Identifier: MIT
package transport

// Frame is the published form of one channel's magnitude spectrum.
// Magnitudes[k] belongs to frequency k*BinHz.
type Frame struct {
	Session    string    `json:"session"`
	Seq        uint32    `json:"seq"`
	Timestamp  int64     `json:"timestamp"` // Nanoseconds since epoch
	File       string    `json:"file,omitempty"`
	Engine     string    `json:"engine"`
	Channel    int       `json:"channel"`
	SampleRate float64   `json:"sampleRate"`
	Size       int       `json:"size"` // Transform length the bins were computed on
	BinHz      float64   `json:"binHz"`
	Magnitudes []float64 `json:"magnitudes"`
}

// AsFrame accepts a Frame by value or pointer.
func AsFrame(data any) (*Frame, bool) {
	switch f := data.(type) {
	case Frame:
		return &f, true
	case *Frame:
		return f, f != nil
	default:
		return nil, false
	}
}
