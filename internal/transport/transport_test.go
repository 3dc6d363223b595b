// SPDX-License-Identifier: MIT
package transport

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"spectra/pkg/utils"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial(%s) error = %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	var f Frame
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return f
}

func newTestServer(t *testing.T, sendRate float64, replay int) (*WebSocketTransport, string) {
	t.Helper()
	wst, err := NewWebSocketTransport("", sendRate, replay)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	srv := httptest.NewServer(wst.Handler())
	t.Cleanup(func() {
		wst.Close()
		srv.Close()
	})
	return wst, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestAsFrame(t *testing.T) {
	f := Frame{Seq: 7}
	if got, ok := AsFrame(f); !ok || got.Seq != 7 {
		t.Errorf("AsFrame(value) = %v, %v", got, ok)
	}
	if got, ok := AsFrame(&f); !ok || got != &f {
		t.Errorf("AsFrame(pointer) = %v, %v", got, ok)
	}
	if _, ok := AsFrame((*Frame)(nil)); ok {
		t.Error("AsFrame(nil pointer) reported a frame")
	}
	if _, ok := AsFrame("text"); ok {
		t.Error("AsFrame(string) reported a frame")
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	for _, data := range []any{Frame{Seq: 1}, &Frame{Seq: 2}, 42} {
		if err := lt.Send(data); err != nil {
			t.Fatalf("Send(%v) error = %v", data, err)
		}
	}
	if lt.Sent() != 3 {
		t.Errorf("Sent() = %d, want 3", lt.Sent())
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

type failingTransport struct{ err error }

func (f failingTransport) Send(any) error { return f.err }
func (f failingTransport) Close() error   { return f.err }

func TestMulti(t *testing.T) {
	a, b := &utils.MockTransport{}, &utils.MockTransport{}
	boom := errors.New("boom")
	m := Multi{a, failingTransport{boom}, b}

	if err := m.Send(Frame{Seq: 1}); !errors.Is(err, boom) {
		t.Errorf("Send() error = %v, want %v", err, boom)
	}
	if a.Count() != 1 || b.Count() != 1 {
		t.Errorf("fan-out reached %d and %d transports, want 1 and 1", a.Count(), b.Count())
	}
	if err := m.Close(); !errors.Is(err, boom) {
		t.Errorf("Close() error = %v, want %v", err, boom)
	}
	if !a.Closed || !b.Closed {
		t.Error("Close() skipped a transport after an error")
	}
}

func TestWebSocketTransport_Broadcast(t *testing.T) {
	wst, url := newTestServer(t, 1000, DefaultReplay)

	c1, c2 := dial(t, url), dial(t, url)
	waitFor(t, func() bool { return wst.Clients() == 2 })

	want := Frame{Session: "s", Seq: 3, Channel: 1, Size: 8, Magnitudes: []float64{1, 2, 3}}
	if err := wst.Send(want); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	for _, conn := range []*websocket.Conn{c1, c2} {
		got := readFrame(t, conn)
		if got.Seq != want.Seq || got.Channel != want.Channel || len(got.Magnitudes) != 3 || got.Magnitudes[2] != 3 {
			t.Errorf("received %+v, want %+v", got, want)
		}
	}
}

func TestWebSocketTransport_ReplaysLatest(t *testing.T) {
	wst, url := newTestServer(t, 1000, 2)

	for seq := uint32(1); seq <= 3; seq++ {
		if err := wst.Send(Frame{Seq: seq}); err != nil {
			t.Fatalf("Send(%d) error = %v", seq, err)
		}
	}
	waitFor(t, func() bool {
		latest := wst.Latest()
		return len(latest) == 2 && latest[1].(Frame).Seq == 3
	})

	conn := dial(t, url)
	for _, want := range []uint32{2, 3} {
		if got := readFrame(t, conn); got.Seq != want {
			t.Errorf("replayed seq %d, want %d", got.Seq, want)
		}
	}
}

func TestWebSocketTransport_DropsDisconnectedClients(t *testing.T) {
	wst, url := newTestServer(t, 1000, 0)

	conn := dial(t, url)
	waitFor(t, func() bool { return wst.Clients() == 1 })
	conn.Close()
	waitFor(t, func() bool { return wst.Clients() == 0 })

	if latest := wst.Latest(); len(latest) != 0 {
		t.Errorf("replay disabled but history holds %d payloads", len(latest))
	}
}

func TestWebSocketTransport_RateLimit(t *testing.T) {
	wst, _ := newTestServer(t, 20, 0)

	start := time.Now()
	for range 3 {
		if err := wst.Send(Frame{}); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}
	// One token is available up front, the next two arrive 50ms apart.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three sends at 20/s took %v", elapsed)
	}
}

func TestWebSocketTransport_Close(t *testing.T) {
	wst, url := newTestServer(t, 1000, 1)

	conn := dial(t, url)
	waitFor(t, func() bool { return wst.Clients() == 1 })

	if err := wst.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := wst.Send(Frame{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after Close error = %v, want ErrClosed", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("client still connected after Close")
	}
	if _, _, err := websocket.DefaultDialer.Dial(url, nil); err == nil {
		t.Error("new client accepted after Close")
	}
}

func TestWebSocketTransport_BuiltInServer(t *testing.T) {
	wst, err := NewWebSocketTransport("127.0.0.1:0", 1000, 1)
	if err != nil {
		t.Fatalf("NewWebSocketTransport() error = %v", err)
	}
	defer wst.Close()

	if err := wst.Send(Frame{Seq: 9}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	waitFor(t, func() bool { return len(wst.Latest()) == 1 })

	conn := dial(t, "ws://"+wst.Addr().String()+"/ws")
	if got := readFrame(t, conn); got.Seq != 9 {
		t.Errorf("replayed seq %d, want 9", got.Seq)
	}
}

func TestNewWebSocketTransport_Errors(t *testing.T) {
	if _, err := NewWebSocketTransport("", 0, 1); err == nil {
		t.Error("zero send rate accepted")
	}
	if _, err := NewWebSocketTransport("256.0.0.1:99999", 10, 1); err == nil {
		t.Error("invalid listen address accepted")
	}
}
