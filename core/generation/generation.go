// Package generation holds the types shared by reply generation transports.
package generation

import "errors"

var (
	// ErrTransport classifies network failures and non-success statuses.
	ErrTransport = errors.New("generation transport failed")
	// ErrInvalidResponse classifies replies that could not be decoded.
	ErrInvalidResponse = errors.New("invalid generation response")
)

// Reply is the outcome of one generation request.
type Reply struct {
	Text string
	// AudioRef points at synthesized narration of Text. Empty when the
	// service did not synthesize audio.
	AudioRef string
}
