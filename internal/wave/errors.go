// SPDX-License-Identifier: MIT
package wave

import "errors"

// Errors returned while opening a container or converting its samples. They
// are always wrapped with context, so compare with errors.Is.
var (
	ErrMalformedHeader   = errors.New("wave: malformed header")
	ErrTruncatedFile     = errors.New("wave: truncated file")
	ErrUnsupportedFormat = errors.New("wave: unsupported format")
	ErrReleased          = errors.New("wave: sample block used after release")
	ErrChannelRange      = errors.New("wave: channel out of range")
	ErrInvalidDuration   = errors.New("wave: duration must be positive")
	ErrBlockTooLarge     = errors.New("wave: block exceeds sample limit")
)
