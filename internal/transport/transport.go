// SPDX-License-Identifier: MIT
package transport

import "errors"

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

// ErrUnsupportedPayload is returned by transports that only carry Frames.
var ErrUnsupportedPayload = errors.New("unsupported payload")

// Transport defines a generic interface for publishing analysis results.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans every Send out to a list of transports. The first error is
// returned after all transports have been tried.
type Multi []Transport

// Send forwards data to each transport in order.
func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every transport and joins their errors.
func (m Multi) Close() error {
	errs := make([]error, 0, len(m))
	for _, t := range m {
		errs = append(errs, t.Close())
	}
	return errors.Join(errs...)
}

var _ Transport = Multi(nil)
