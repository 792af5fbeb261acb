package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-hal/core/events"
	"github.com/koscakluka/ema-hal/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// captureSession turns one recognizer pass into final utterances. All
// methods run on the event loop; recognizer callbacks are posted to it.
type captureSession struct {
	recognizer Recognizer
	options    []speechtotext.RecognitionOption

	post        func(func()) bool
	onUtterance func(string)
	emitEvent   eventEmitter

	listening bool
	// generation identifies the current pass so late callbacks from an
	// earlier pass are dropped.
	generation uint64
}

func newCaptureSession(recognizer Recognizer, post func(func()) bool, onUtterance func(string), opts ...speechtotext.RecognitionOption) *captureSession {
	if isNilCapability(recognizer) {
		recognizer = nil
	}
	if onUtterance == nil {
		onUtterance = func(string) {}
	}

	return &captureSession{
		recognizer:  recognizer,
		options:     opts,
		post:        post,
		onUtterance: onUtterance,
		emitEvent:   noopEventEmitter,
	}
}

func (s *captureSession) available() bool {
	return s != nil && s.recognizer != nil
}

func (s *captureSession) isListening() bool {
	return s != nil && s.listening
}

// start begins a recognizer pass. The session is listening as soon as start
// returns; the recognizer connects on its own goroutine and a failure to
// start is reported as CaptureFailed followed by CaptureEnded.
func (s *captureSession) start(ctx context.Context) error {
	if !s.available() {
		return ErrCapabilityUnavailable
	}
	if s.listening {
		return ErrAlreadyListening
	}

	ctx, span := tracer.Start(ctx, "start capture")

	s.listening = true
	s.generation++
	generation := s.generation
	span.SetAttributes(attribute.Int64("capture.generation", int64(generation)))

	opts := append([]speechtotext.RecognitionOption{}, s.options...)
	opts = append(opts,
		speechtotext.WithResultCallback(func(hypotheses []speechtotext.Hypothesis) {
			s.post(func() { s.handleResult(generation, hypotheses) })
		}),
		speechtotext.WithErrorCallback(func(code string) {
			s.post(func() { s.handleError(generation, code) })
		}),
		speechtotext.WithEndCallback(func() {
			s.post(func() { s.handleEnd(generation) })
		}),
	)

	recognizer := s.recognizer
	go func() {
		defer span.End()

		err := recognizer.Start(ctx, opts...)
		if err != nil {
			err = fmt.Errorf("failed to start recognition: %w", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		s.post(func() { s.handleStarted(generation, err) })
	}()

	s.emitEvent(events.NewCaptureStarted())
	return nil
}

func (s *captureSession) handleStarted(generation uint64, err error) {
	if !s.current(generation) {
		// Stopped while connecting. A pass that came up anyway is ended
		// unless a newer one has taken over.
		if err == nil && !s.listening {
			if stopErr := s.recognizer.Stop(); stopErr != nil {
				logger.Warn("failed to stop recognizer", "error", stopErr)
			}
		}
		return
	}
	if err == nil {
		return
	}

	s.listening = false
	logger.Warn("speech capture failed", "error", err)
	s.emitEvent(events.NewCaptureFailed(err))
	s.emitEvent(events.NewCaptureEnded())
}

// stop ends the current pass. It is a no-op when idle.
func (s *captureSession) stop() {
	if !s.isListening() {
		return
	}

	s.listening = false
	if err := s.recognizer.Stop(); err != nil {
		logger.Warn("failed to stop recognizer", "error", err)
	}
	s.emitEvent(events.NewCaptureEnded())
}

func (s *captureSession) handleResult(generation uint64, hypotheses []speechtotext.Hypothesis) {
	if !s.current(generation) {
		return
	}

	interim := strings.Builder{}
	for _, hypothesis := range hypotheses {
		if !hypothesis.IsFinal {
			interim.WriteString(hypothesis.Text)
			continue
		}

		utterance := strings.TrimSpace(hypothesis.Text)
		if utterance == "" {
			continue
		}
		s.emitEvent(events.NewUserTranscriptFinal(utterance))
		s.onUtterance(utterance)
	}

	if interim.Len() > 0 {
		s.emitEvent(events.NewUserTranscriptInterimUpdated(interim.String()))
	}
}

func (s *captureSession) handleError(generation uint64, code string) {
	if !s.current(generation) {
		return
	}

	s.listening = false
	err := &CaptureError{Code: code}
	logger.Warn("speech capture failed", "error", err)
	s.emitEvent(events.NewCaptureFailed(err))
	s.emitEvent(events.NewCaptureEnded())
}

func (s *captureSession) handleEnd(generation uint64) {
	if !s.current(generation) {
		return
	}

	s.listening = false
	s.emitEvent(events.NewCaptureEnded())
}

func (s *captureSession) current(generation uint64) bool {
	return s.listening && s.generation == generation
}

func (s *captureSession) setEventEmitter(emitEvent eventEmitter) {
	if s == nil {
		return
	}
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	s.emitEvent = emitEvent
}
