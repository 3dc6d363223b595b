package cmd

import (
	"bytes"
	"context"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"spectra/internal/transport/udp"
	"spectra/pkg/utils"
)

const (
	fixtureRate = 2048
	fixtureTone = 256
)

func writeFixture(t *testing.T, channels int) string {
	t.Helper()
	tones := make([][]float64, channels)
	for c := range tones {
		tones[c] = utils.GenerateSineWave(fixtureRate, float64(fixtureTone*(c+1)), 0.5)
	}
	path := filepath.Join(t.TempDir(), "tone.wav")
	data := utils.QuantizePCM16(utils.Interleave(tones...))
	if err := utils.WriteWAV(path, fixtureRate, 16, channels, data); err != nil {
		t.Fatalf("WriteWAV() error = %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// peakFrequency returns the frequency on the line with the largest
// magnitude, skipping comment lines.
func peakFrequency(t *testing.T, out string) (float64, int) {
	t.Helper()
	var best, bestMag float64
	lines := 0
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			t.Fatalf("line %q does not hold frequency, magnitude and phase", line)
		}
		freq, err1 := strconv.ParseFloat(fields[0], 64)
		mag, err2 := strconv.ParseFloat(fields[1], 64)
		if err1 != nil || err2 != nil {
			t.Fatalf("line %q does not parse", line)
		}
		if mag > bestMag {
			best, bestMag = freq, mag
		}
		lines++
	}
	return best, lines
}

func TestInfoCommand(t *testing.T) {
	path := writeFixture(t, 2)

	out, err := run(t, "info", "--plain", path)
	if err != nil {
		t.Fatalf("info --plain error = %v", err)
	}
	want := "length 8192\nnum_channels 2\nsample_rate 2048\nbyte_rate 8192\nblock_size 4\nbits_per_sample 16\n"
	if out != want {
		t.Errorf("info --plain = %q, want %q", out, want)
	}

	out, err = run(t, "info", path)
	if err != nil {
		t.Fatalf("info error = %v", err)
	}
	for _, s := range []string{"tone.wav", "sample_rate", "2048", "duration", "1s"} {
		if !strings.Contains(out, s) {
			t.Errorf("styled info is missing %q:\n%s", s, out)
		}
	}
}

func TestTransformCommands(t *testing.T) {
	path := writeFixture(t, 1)

	for _, engine := range []string{"fft", "dft"} {
		t.Run(engine, func(t *testing.T) {
			out, err := run(t, engine, path)
			if err != nil {
				t.Fatalf("%s error = %v", engine, err)
			}
			peak, lines := peakFrequency(t, out)
			if lines != fixtureRate/2 {
				t.Errorf("%d lines, want %d", lines, fixtureRate/2)
			}
			if peak != fixtureTone {
				t.Errorf("peak at %v Hz, want %d", peak, fixtureTone)
			}
			if strings.Contains(out, "# channel") {
				t.Error("mono output should not carry channel comments")
			}
		})
	}
}

func TestTransformCommand_HelpNotesDFTCost(t *testing.T) {
	out, err := run(t, "dft", "--help")
	if err != nil {
		t.Fatalf("dft --help error = %v", err)
	}
	if !strings.Contains(out, "O(N²)") || !strings.Contains(out, "fft command") {
		t.Errorf("dft help does not describe its cost:\n%s", out)
	}

	out, err = run(t, "fft", "--help")
	if err != nil {
		t.Fatalf("fft --help error = %v", err)
	}
	if strings.Contains(out, "O(N²)") {
		t.Errorf("fft help carries the dft cost note:\n%s", out)
	}
}

func TestTransformCommand_ChannelSelection(t *testing.T) {
	path := writeFixture(t, 2)

	out, err := run(t, "fft", path)
	if err != nil {
		t.Fatalf("fft error = %v", err)
	}
	if strings.Count(out, "# channel") != 2 {
		t.Errorf("expected one comment per channel:\n%.200s", out)
	}

	out, err = run(t, "fft", "--channel", "1", path)
	if err != nil {
		t.Fatalf("fft --channel 1 error = %v", err)
	}
	if peak, _ := peakFrequency(t, out); peak != 2*fixtureTone {
		t.Errorf("channel 1 peak at %v Hz, want %d", peak, 2*fixtureTone)
	}

	if _, err := run(t, "fft", "--channel", "2", path); err == nil {
		t.Error("channel 2 of a stereo file: no error")
	}
}

func TestBandsCommand(t *testing.T) {
	path := writeFixture(t, 1)

	out, err := run(t, "bands", "--engine", "gonum", path)
	if err != nil {
		t.Fatalf("bands error = %v", err)
	}
	for _, s := range []string{"# block 0 (0s) channel 0", "bass", "treble"} {
		if !strings.Contains(out, s) {
			t.Errorf("bands output is missing %q:\n%s", s, out)
		}
	}
}

func TestCommandErrors(t *testing.T) {
	path := writeFixture(t, 1)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero seconds", []string{"fft", "--seconds", "0", path}, "analysis.seconds"},
		{"unknown engine", []string{"bands", "--engine", "wavelet", path}, "analysis.engine"},
		{"bad log level", []string{"fft", "--log-level", "chatty", path}, "log_level"},
		{"missing file", []string{"fft", filepath.Join(t.TempDir(), "none.wav")}, "none.wav"},
		{"missing config", []string{"fft", "--config", "nope.yaml", path}, "config"},
		{"no args", []string{"info"}, "arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want one mentioning %q", err, tt.want)
			}
		})
	}
}

func TestServeCommand_UDP(t *testing.T) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP() error = %v", err)
	}
	defer conn.Close()

	path := writeFixture(t, 2)
	if _, err := run(t, "serve", "--udp-target", conn.LocalAddr().String(), "--send-rate", "500", path); err != nil {
		t.Fatalf("serve error = %v", err)
	}

	buf := make([]byte, 65536)
	for _, wantChannel := range []uint16{0, 1} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			t.Fatalf("ReadFromUDP() error = %v", err)
		}
		pkt, err := udp.DecodePacket(buf[:n])
		if err != nil {
			t.Fatalf("DecodePacket() error = %v", err)
		}
		if pkt.Channel != wantChannel || len(pkt.Magnitudes) != fixtureRate/2 {
			t.Errorf("packet channel %d with %d magnitudes", pkt.Channel, len(pkt.Magnitudes))
		}
	}
}

func TestVersionFlag(t *testing.T) {
	out, err := run(t, "--version")
	if err != nil {
		t.Fatalf("--version error = %v", err)
	}
	if !strings.Contains(out, "commit") {
		t.Errorf("--version = %q", out)
	}
}
