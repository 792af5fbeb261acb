package dialogue

import (
	"context"
	"time"

	"github.com/koscakluka/ema-hal/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// synchronizer starts narration and reveal of a resolved reply together.
// Audio failures never affect the reveal.
type synchronizer struct {
	player   AudioPlayer
	revealer *revealer
	speed    time.Duration

	emitEvent    eventEmitter
	onRevealDone func()

	muted     bool
	loadedRef string
	started   bool
}

func newSynchronizer(player AudioPlayer, revealer *revealer, speed time.Duration, post func(func()) bool) *synchronizer {
	if isNilCapability(player) {
		player = nil
	}

	s := &synchronizer{
		player:       player,
		revealer:     revealer,
		speed:        speed,
		emitEvent:    noopEventEmitter,
		onRevealDone: func() {},
	}

	if reporter, ok := player.(AudioFailureReporter); ok && post != nil {
		reporter.SetFailureCallback(func(ref string, err error) {
			post(func() { s.failAsync(ref, err) })
		})
	}

	return s
}

// begin narrates and reveals turn in one loop step.
func (s *synchronizer) begin(turn Turn) {
	if turn.AudioRef != "" && s.player != nil {
		s.play(turn.AudioRef)
	}

	turnID := turn.ID
	s.emitEvent(events.NewRevealStarted(turnID))
	s.revealer.reveal(turnID, turn.Text, s.speed,
		func(text string) {
			s.emitEvent(events.NewRevealFrame(turnID, text))
		},
		func() {
			s.emitEvent(events.NewRevealCompleted(turnID))
			s.onRevealDone()
		},
	)
}

// play replaces the current audio with ref. While muted the audio is only
// loaded; it starts when unmuted.
func (s *synchronizer) play(ref string) {
	_, span := tracer.Start(context.Background(), "play reply audio")
	defer span.End()
	span.SetAttributes(attribute.Bool("audio.muted", s.muted))

	if s.loadedRef != "" {
		s.player.Stop()
	}
	s.loadedRef = ""
	s.started = false

	if err := s.player.Load(ref); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.fail(ref, err)
		return
	}
	s.loadedRef = ref
	s.player.Mute(s.muted)

	if s.muted {
		s.emitEvent(events.NewAssistantPlaybackLoaded(ref))
		return
	}

	if err := s.start(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (s *synchronizer) start() error {
	ref := s.loadedRef
	if err := s.player.Play(); err != nil {
		s.fail(ref, err)
		return err
	}
	s.started = true
	s.emitEvent(events.NewAssistantPlaybackStarted(ref))
	return nil
}

func (s *synchronizer) setMuted(muted bool) {
	if s.muted == muted {
		return
	}
	s.muted = muted
	s.emitEvent(events.NewAssistantPlaybackMuteChanged(muted))

	if s.player == nil {
		return
	}
	s.player.Mute(muted)

	if !muted && s.loadedRef != "" && !s.started {
		_ = s.start()
	}
}

func (s *synchronizer) fail(ref string, err error) {
	if err == nil {
		return
	}

	logger.Warn("reply audio failed", "audio_ref", ref, "error", err)
	if ref == s.loadedRef {
		s.loadedRef = ""
		s.started = false
	}
	s.emitEvent(events.NewAssistantPlaybackFailed(ref, err))
}

// failAsync handles a failure the player reported after Load or Play
// returned. Failures of audio that has since been replaced are dropped.
func (s *synchronizer) failAsync(ref string, err error) {
	if ref != s.loadedRef {
		logger.Debug("dropping failure of replaced reply audio", "audio_ref", ref, "error", err)
		return
	}
	s.fail(ref, err)
}

// stop silences narration and cancels the reveal.
func (s *synchronizer) stop() {
	s.revealer.cancel()
	if s.player != nil && s.loadedRef != "" {
		s.player.Stop()
	}
	s.loadedRef = ""
	s.started = false
}

func (s *synchronizer) setEventEmitter(emitEvent eventEmitter) {
	if s == nil {
		return
	}
	if emitEvent == nil {
		emitEvent = noopEventEmitter
	}
	s.emitEvent = emitEvent
}
