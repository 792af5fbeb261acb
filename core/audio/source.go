// Package audio holds the encoding metadata and device contracts shared by
// the capture and playback clients.
package audio

import "context"

// Source streams microphone audio. StartCapture delivers chunks encoded as
// reported by EncodingInfo until StopCapture is called or ctx is done.
type Source interface {
	StartCapture(ctx context.Context, onAudio func(audio []byte)) error
	StopCapture() error
	EncodingInfo() EncodingInfo
}
