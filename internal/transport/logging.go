// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "spectra/internal/log"
)

// LoggingTransport implements the Transport interface by logging a summary
// of each payload at debug level.
type LoggingTransport struct {
	sent atomic.Int64
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data. It never fails.
func (lt *LoggingTransport) Send(data any) error {
	n := lt.sent.Add(1)
	if f, ok := AsFrame(data); ok {
		applog.Debugf("LOG_TRANSPORT: frame %d session=%s channel=%d bins=%d size=%d binHz=%.3f",
			f.Seq, f.Session, f.Channel, len(f.Magnitudes), f.Size, f.BinHz)
		return nil
	}
	applog.Debugf("LOG_TRANSPORT: payload %d (%T)", n, data)
	return nil
}

// Sent reports how many payloads have passed through.
func (lt *LoggingTransport) Sent() int64 {
	return lt.sent.Load()
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called after %d payloads.", lt.sent.Load())
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)
