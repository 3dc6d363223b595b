// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	applog "spectra/internal/log"
)

const (
	// DefaultReplay is how many recent payloads a new client receives on connect.
	DefaultReplay = 16

	writeTimeout = 5 * time.Second
)

// WebSocketTransport broadcasts JSON payloads to every client connected to
// /ws. Sends are paced by a token bucket and clients joining late first
// receive the most recent payloads.
type WebSocketTransport struct {
	upgrader websocket.Upgrader
	limiter  *rate.Limiter
	replay   int

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]bool
	history   []any

	broadcast chan any
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once

	listener net.Listener
	server   *http.Server
}

// NewWebSocketTransport creates a transport sending at most sendRate
// payloads per second and replaying the last replay payloads to new
// clients. With a non-empty addr it also starts an HTTP server there;
// otherwise the caller mounts Handler itself.
func NewWebSocketTransport(addr string, sendRate float64, replay int) (*WebSocketTransport, error) {
	if sendRate <= 0 {
		return nil, fmt.Errorf("WebSocketTransport: send rate must be positive, got %v", sendRate)
	}
	if replay < 0 {
		replay = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	wst := &WebSocketTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Spectrum viewers are served from anywhere.
			},
		},
		limiter:   rate.NewLimiter(rate.Limit(sendRate), 1),
		replay:    replay,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		ctx:       ctx,
		cancel:    cancel,
	}

	if addr != "" {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("WebSocketTransport: listen on %s: %w", addr, err)
		}
		wst.listener = ln
		wst.server = &http.Server{
			Handler:           wst.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			applog.Infof("WebSocketTransport: Serving on ws://%s/ws", ln.Addr())
			if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				applog.Errorf("WebSocketTransport: Server error: %v", err)
			}
		}()
	}

	wst.wg.Add(1)
	go wst.handleBroadcasts()

	return wst, nil
}

// Handler returns the HTTP handler serving the /ws endpoint.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	return mux
}

// Addr is the address the built-in server listens on, or nil without one.
func (wst *WebSocketTransport) Addr() net.Addr {
	if wst.listener == nil {
		return nil
	}
	return wst.listener.Addr()
}

// Clients reports the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

// Latest returns the payloads a newly connected client would be replayed,
// oldest first.
func (wst *WebSocketTransport) Latest() []any {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return append([]any(nil), wst.history...)
}

// handleWebSocket upgrades HTTP connections, replays history and registers
// the client for broadcasts.
func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if wst.ctx.Err() != nil {
		http.Error(w, "transport closed", http.StatusServiceUnavailable)
		return
	}

	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	// Replay and registration happen under one lock so no broadcast can
	// slip in between them.
	wst.clientsMu.Lock()
	for _, data := range wst.history {
		if err := writeJSON(conn, data); err != nil {
			wst.clientsMu.Unlock()
			applog.Warnf("WebSocketTransport: Replay to %s failed: %v", conn.RemoteAddr(), err)
			conn.Close()
			return
		}
	}
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	applog.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send anything meaningful; a read error means they left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if ok {
		applog.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

func writeJSON(conn *websocket.Conn, data any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(data)
}

// handleBroadcasts records each payload for replay and sends it to all
// connected clients.
func (wst *WebSocketTransport) handleBroadcasts() {
	defer wst.wg.Done()
	for {
		select {
		case data := <-wst.broadcast:
			wst.publish(data)
		case <-wst.ctx.Done():
			return
		}
	}
}

func (wst *WebSocketTransport) publish(data any) {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()

	if wst.replay > 0 {
		if len(wst.history) == wst.replay {
			copy(wst.history, wst.history[1:])
			wst.history = wst.history[:wst.replay-1]
		}
		wst.history = append(wst.history, data)
	}

	for client := range wst.clients {
		if err := writeJSON(client, data); err != nil {
			applog.Warnf("WebSocketTransport: Error sending to client: %v", err)
			client.Close()
			delete(wst.clients, client)
		}
	}
}

// Send waits for the rate limiter and queues data for broadcast. A full
// queue drops the payload with a warning rather than blocking the analysis.
func (wst *WebSocketTransport) Send(data any) error {
	if err := wst.limiter.Wait(wst.ctx); err != nil {
		return ErrClosed
	}
	select {
	case wst.broadcast <- data:
	default:
		applog.Warnf("WebSocketTransport: Broadcast queue full, dropping payload")
	}
	return nil
}

// Close stops broadcasting, disconnects all clients and shuts the server
// down. Later calls return nil.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		applog.Debugf("WebSocketTransport: Closing")
		wst.cancel()
		wst.wg.Wait()

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]bool)
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

// Ensure WebSocketTransport satisfies the interface.
var _ Transport = (*WebSocketTransport)(nil)
