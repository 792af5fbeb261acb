// Package dialogue sequences one spoken conversation: speech capture,
// reply generation, text reveal and narration.
//
// A Dialogue owns the transcript and runs every state change on a single
// goroutine started by New. Capabilities (recognizer, transport, audio
// player, timer) are injected with options and may be absent; the dialogue
// degrades to text-only use without them.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-hal/core/events"
	"github.com/koscakluka/ema-hal/core/speechtotext"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Dialogue struct {
	recognizer         Recognizer
	recognitionOptions []speechtotext.RecognitionOption
	transport          Transport
	audioPlayer        AudioPlayer
	timer              Timer
	revealSpeed        time.Duration
	initiallyMuted     bool

	onReady   func(bool)
	onReveal  func(turnID, text string)
	emitEvent eventEmitter

	loop         *eventLoop
	transcript   *transcript
	capture      *captureSession
	dispatcher   *dispatcher
	revealer     *revealer
	synchronizer *synchronizer

	// baseContext is replaced by Run and only touched on the loop goroutine.
	baseContext context.Context

	ready     atomic.Bool
	muted     atomic.Bool
	running   atomic.Bool
	closeOnce sync.Once
}

func New(opts ...Option) *Dialogue {
	d := &Dialogue{
		timer:       systemTimer{},
		revealSpeed: DefaultRevealSpeed,
		emitEvent:   noopEventEmitter,
		loop:        newEventLoop(),
		transcript:  newTranscript(),
		baseContext: context.Background(),
	}
	for _, opt := range opts {
		opt(d)
	}

	emitEvent := newCallbackEventEmitter(d.onReveal, d.onReady, d.emitEvent)

	d.revealer = newRevealer(loopTimer{timer: d.timer, post: d.loop.post})
	d.synchronizer = newSynchronizer(d.audioPlayer, d.revealer, d.revealSpeed, d.loop.post)
	d.synchronizer.muted = d.initiallyMuted
	d.synchronizer.onRevealDone = d.refreshReadiness
	d.synchronizer.setEventEmitter(emitEvent)
	if d.audioPlayer != nil {
		d.audioPlayer.Mute(d.initiallyMuted)
	}

	d.dispatcher = newDispatcher(d.transcript, d.transport, d.loop.post, d.synchronizer.begin)
	d.dispatcher.setEventEmitter(emitEvent)

	d.capture = newCaptureSession(d.recognizer, d.loop.post, d.handleUtterance, d.recognitionOptions...)
	d.capture.setEventEmitter(emitEvent)

	d.emitEvent = emitEvent
	d.ready.Store(true)
	d.muted.Store(d.initiallyMuted)
	d.transcript.subscribe(func([]Turn) { d.refreshReadiness() })

	d.loop.start(d.teardown)
	return d
}

// Run ties the dialogue to ctx: requests started after Run use it, and the
// dialogue shuts down when it is cancelled. Run blocks until then or until
// Close is called, and may be called once. Methods called before Run are
// served with a background context.
func (d *Dialogue) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	err := d.loop.do(func() error {
		d.baseContext = ctx
		return nil
	})
	if errors.Is(err, ErrClosed) {
		return nil
	}

	select {
	case <-ctx.Done():
		d.loop.close()
	case <-d.loop.done:
	}
	d.loop.wait()
	return nil
}

// Close stops the dialogue, cancels any outstanding request and waits for
// the event loop to exit.
func (d *Dialogue) Close() {
	d.closeOnce.Do(func() {
		d.loop.close()
		d.loop.wait()

		if err := closeCapability(d.recognizer); err != nil {
			recordedErr := fmt.Errorf("failed to close recognizer: %w", err)
			span := trace.SpanFromContext(d.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}
		if err := closeCapability(d.audioPlayer); err != nil {
			recordedErr := fmt.Errorf("failed to close audio player: %w", err)
			span := trace.SpanFromContext(d.baseContext)
			span.RecordError(recordedErr)
			span.SetStatus(codes.Error, recordedErr.Error())
		}
	})
}

func (d *Dialogue) teardown() {
	d.capture.stop()
	d.dispatcher.cancel()
	d.synchronizer.stop()
}

// SubmitUtterance sends text typed or spoken by the user. Blank text is
// ignored. While a reply is pending it returns ErrDispatchBusy and the
// transcript is left unchanged.
func (d *Dialogue) SubmitUtterance(text string) error {
	return d.loop.do(func() error {
		return d.dispatcher.submit(d.baseContext, text)
	})
}

// StartListening begins one recognition pass. Final utterances are submitted
// automatically.
func (d *Dialogue) StartListening() error {
	return d.loop.do(func() error {
		return d.capture.start(d.baseContext)
	})
}

func (d *Dialogue) StopListening() {
	_ = d.loop.do(func() error {
		d.capture.stop()
		return nil
	})
}

// CaptureAvailable reports whether a recognizer is configured. When false
// the microphone control should be disabled.
func (d *Dialogue) CaptureAvailable() bool {
	return d.capture.available()
}

// SubscribeTranscript registers fn to receive a transcript snapshot after
// every change. fn runs on the dialogue goroutine.
func (d *Dialogue) SubscribeTranscript(fn func([]Turn)) (unsubscribe func()) {
	return d.transcript.subscribe(fn)
}

// Transcript returns a snapshot of all turns in order.
func (d *Dialogue) Transcript() []Turn {
	return d.transcript.snapshot()
}

// SetMuted toggles narration. Muting never affects the text reveal.
func (d *Dialogue) SetMuted(muted bool) {
	_ = d.loop.do(func() error {
		d.synchronizer.setMuted(muted)
		d.muted.Store(muted)
		return nil
	})
}

func (d *Dialogue) IsMuted() bool {
	return d.muted.Load()
}

// IsReady reports whether nothing is pending and the latest reply has been
// fully revealed.
func (d *Dialogue) IsReady() bool {
	return d.ready.Load()
}

func (d *Dialogue) handleUtterance(utterance string) {
	if err := d.dispatcher.submit(d.baseContext, utterance); err != nil {
		logger.Warn("failed to dispatch spoken utterance", "error", err)
	}
}

func (d *Dialogue) refreshReadiness() {
	ready := isReady(d.transcript.snapshot(), d.revealer.status())
	if d.ready.Swap(ready) != ready {
		d.emitEvent(events.NewReadinessChanged(ready))
	}
}

func closeCapability(client any) error {
	switch c := client.(type) {
	case interface{ Close() error }:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
