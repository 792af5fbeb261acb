package dialogue

import (
	"context"
	"reflect"
	"time"

	"github.com/koscakluka/ema-hal/core/events"
	"github.com/koscakluka/ema-hal/core/generation"
	"github.com/koscakluka/ema-hal/core/speechtotext"
)

type Option func(*Dialogue)

// Recognizer converts microphone audio into hypotheses. Start begins one
// recognition pass and reports results through the callbacks in opts; Stop
// ends the pass early.
type Recognizer interface {
	Start(ctx context.Context, opts ...speechtotext.RecognitionOption) error
	Stop() error
}

func WithRecognizer(recognizer Recognizer) Option {
	return func(d *Dialogue) {
		if isNilCapability(recognizer) {
			d.recognizer = nil
			return
		}
		d.recognizer = recognizer
	}
}

// WithRecognitionOptions adds options passed to every recognition pass, e.g.
// speechtotext.WithLanguage. Callbacks set here are overridden.
func WithRecognitionOptions(opts ...speechtotext.RecognitionOption) Option {
	return func(d *Dialogue) {
		d.recognitionOptions = append(d.recognitionOptions, opts...)
	}
}

// Transport requests a reply for one utterance from the generation service.
type Transport interface {
	Generate(ctx context.Context, utterance string) (generation.Reply, error)
}

func WithTransport(transport Transport) Option {
	return func(d *Dialogue) {
		if isNilCapability(transport) {
			d.transport = nil
			return
		}
		d.transport = transport
	}
}

// AudioPlayer narrates a reply. Load attaches the audio behind ref, Play
// starts it. Players that fail asynchronously may also implement
// AudioFailureReporter.
type AudioPlayer interface {
	Load(ref string) error
	Play() error
	Mute(muted bool)
	Stop()
}

// AudioFailureReporter is implemented by players that fail after Load or
// Play has returned. The callback names the ref that failed.
type AudioFailureReporter interface {
	SetFailureCallback(func(ref string, err error))
}

func WithAudioPlayer(player AudioPlayer) Option {
	return func(d *Dialogue) {
		if isNilCapability(player) {
			d.audioPlayer = nil
			return
		}
		d.audioPlayer = player
	}
}

// WithTimer replaces the wall clock used by the reveal.
func WithTimer(timer Timer) Option {
	return func(d *Dialogue) {
		if !isNilCapability(timer) {
			d.timer = timer
		}
	}
}

// WithRevealSpeed sets the delay between revealed characters. Non-positive
// values reveal on consecutive ticks without delay.
func WithRevealSpeed(speed time.Duration) Option {
	return func(d *Dialogue) { d.revealSpeed = speed }
}

func WithMuted(muted bool) Option {
	return func(d *Dialogue) { d.initiallyMuted = muted }
}

// WithReadyCallback registers a callback for ready indicator changes. It is
// invoked on the dialogue goroutine and must not call blocking Dialogue
// methods.
func WithReadyCallback(callback func(ready bool)) Option {
	return func(d *Dialogue) { d.onReady = callback }
}

// WithRevealCallback registers a callback receiving every revealed prefix of
// an agent reply. It is invoked on the dialogue goroutine.
func WithRevealCallback(callback func(turnID, text string)) Option {
	return func(d *Dialogue) { d.onReveal = callback }
}

// WithEventHandler registers a handler for all dialogue events. It is invoked
// on the dialogue goroutine and must not call blocking Dialogue methods.
func WithEventHandler(handler func(events.Event)) Option {
	return func(d *Dialogue) {
		if handler == nil {
			d.emitEvent = noopEventEmitter
			return
		}
		d.emitEvent = handler
	}
}

// isNilCapability treats typed-nil interface values as unconfigured.
func isNilCapability(client any) bool {
	if client == nil {
		return true
	}

	v := reflect.ValueOf(client)
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
