// SPDX-License-Identifier: MIT
package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
		ok   bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"Warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"fatal", LevelFatal, true},
		{"loud", LevelInfo, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("ParseLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)
	defer SetLevel(GetLevel())

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("SetLevelString() error = %v", err)
	}
	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below WARN were logged: %q", out)
	}
	if !strings.Contains(out, "[WARN]  shown 3") || !strings.Contains(out, "[ERROR] shown 4") {
		t.Errorf("missing expected lines: %q", out)
	}

	if err := SetLevelString("nope"); err == nil {
		t.Error("SetLevelString() accepted an unknown level")
	}
	if GetLevel() != LevelWarn {
		t.Errorf("unknown level changed the level to %v", GetLevel())
	}
}

func TestSetOutputNilRestoresStderr(t *testing.T) {
	defer SetLevel(GetLevel())
	SetLevel(LevelError)

	SetOutput(nil)
	Errorf("written to stderr after a nil writer")
}
