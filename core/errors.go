package dialogue

import (
	"errors"
	"fmt"
)

var (
	// ErrCapabilityUnavailable is returned by every capture start when no
	// speech recognizer was configured. The mic control should be disabled.
	ErrCapabilityUnavailable = errors.New("speech recognition capability unavailable")
	// ErrAlreadyListening is returned when a capture session is already running.
	ErrAlreadyListening = errors.New("capture session already listening")
	// ErrDispatchBusy is returned while an agent turn is still pending.
	ErrDispatchBusy = errors.New("dispatch busy: a reply is still pending")
	// ErrInvalidTransition is returned when resolving a turn that is not pending.
	ErrInvalidTransition = errors.New("invalid turn transition")
	// ErrTurnNotFound is returned when resolving an unknown turn.
	ErrTurnNotFound = fmt.Errorf("%w: turn not found", ErrInvalidTransition)
	// ErrClosed is returned when the dialogue event loop is no longer running.
	ErrClosed = errors.New("dialogue closed")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("dialogue already running")
)

// CaptureError reports a recognition error. It is non-fatal: the session
// returns to idle and the user may start listening again.
type CaptureError struct {
	Code string
}

func (e *CaptureError) Error() string {
	return "speech capture failed: " + e.Code
}
