package dialogue

import (
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/koscakluka/ema-hal/core/events"
)

func newTestSynchronizer(player AudioPlayer) (*synchronizer, *manualTimer, *eventRecorder) {
	timer := &manualTimer{}
	recorder := &eventRecorder{}
	s := newSynchronizer(player, newRevealer(timer), time.Millisecond, syncPost)
	s.setEventEmitter(recorder.emit)
	return s, timer, recorder
}

func TestSynchronizerStartsAudioAndRevealTogether(t *testing.T) {
	player := &recordingPlayer{}
	s, timer, recorder := newTestSynchronizer(player)

	s.begin(Turn{ID: "a1", Speaker: SpeakerAgent, Text: "Hi", Status: StatusFinal, AudioRef: "hi.wav"})

	if expected := []string{"load:hi.wav", "mute:false", "play"}; !slices.Equal(player.recorded(), expected) {
		t.Fatalf("expected calls %q, got %q", expected, player.recorded())
	}
	if timer.pending() != 1 {
		t.Fatalf("expected reveal to be scheduled in the same step")
	}

	for timer.fireNext() {
	}
	if recorder.count(events.KindRevealCompleted) != 1 || recorder.count(events.KindAssistantPlaybackStarted) != 1 {
		t.Fatalf("unexpected events %v", recorder.kinds())
	}
}

func TestSynchronizerMutedNeverPlays(t *testing.T) {
	player := &recordingPlayer{}
	s, timer, recorder := newTestSynchronizer(player)
	s.muted = true

	s.begin(Turn{ID: "a1", Text: "Hi", AudioRef: "hi.wav"})
	for timer.fireNext() {
	}

	if player.count("play") != 0 {
		t.Fatalf("expected no play while muted, got %q", player.recorded())
	}
	if player.count("load:hi.wav") != 1 {
		t.Fatalf("expected audio to be loaded")
	}
	if recorder.count(events.KindRevealCompleted) != 1 {
		t.Fatalf("expected reveal to complete while muted")
	}
	if recorder.count(events.KindAssistantPlaybackLoaded) != 1 {
		t.Fatalf("expected playback loaded event, got %v", recorder.kinds())
	}
}

func TestSynchronizerUnmuteResumesLoadedAudio(t *testing.T) {
	player := &recordingPlayer{}
	s, _, _ := newTestSynchronizer(player)
	s.muted = true

	s.begin(Turn{ID: "a1", Text: "Hi", AudioRef: "hi.wav"})
	s.setMuted(false)
	s.setMuted(false)

	if player.count("play") != 1 {
		t.Fatalf("expected one play after unmute, got %q", player.recorded())
	}

	s.setMuted(true)
	s.setMuted(false)
	if player.count("play") != 1 {
		t.Fatalf("expected started audio not to be restarted, got %q", player.recorded())
	}
}

func TestSynchronizerMuteDoesNotAffectReveal(t *testing.T) {
	player := &recordingPlayer{}
	s, timer, _ := newTestSynchronizer(player)

	frames := []string{}
	s.setEventEmitter(func(event events.Event) {
		if frame, ok := event.(events.RevealFrame); ok {
			frames = append(frames, frame.Text)
		}
	})

	s.begin(Turn{ID: "a1", Text: "HAL", AudioRef: "hal.wav"})
	timer.fireNext()
	s.setMuted(true)
	for timer.fireNext() {
	}

	if expected := []string{"H", "HA", "HAL"}; !slices.Equal(frames, expected) {
		t.Fatalf("expected frames %q, got %q", expected, frames)
	}
	if player.count("mute:true") != 1 {
		t.Fatalf("expected mute to be forwarded, got %q", player.recorded())
	}
}

func TestSynchronizerAudioFailureDoesNotStopReveal(t *testing.T) {
	testCases := []struct {
		name   string
		player *recordingPlayer
	}{
		{name: "load", player: &recordingPlayer{loadErr: errors.New("404")}},
		{name: "play", player: &recordingPlayer{playErr: errors.New("device busy")}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			s, timer, recorder := newTestSynchronizer(testCase.player)

			s.begin(Turn{ID: "a1", Text: "Hi", AudioRef: "hi.wav"})
			for timer.fireNext() {
			}

			if recorder.count(events.KindAssistantPlaybackFailed) != 1 {
				t.Fatalf("expected playback failed event, got %v", recorder.kinds())
			}
			if recorder.count(events.KindRevealCompleted) != 1 {
				t.Fatalf("expected reveal to complete, got %v", recorder.kinds())
			}
		})
	}
}

func TestSynchronizerReportsAsyncFailures(t *testing.T) {
	player := &recordingPlayer{}
	s, _, recorder := newTestSynchronizer(player)

	s.begin(Turn{ID: "a1", Text: "Hi", AudioRef: "hi.wav"})
	player.onFailure("hi.wav", errors.New("decode failed"))

	if recorder.count(events.KindAssistantPlaybackFailed) != 1 {
		t.Fatalf("expected playback failed event, got %v", recorder.kinds())
	}
	if s.loadedRef != "" {
		t.Fatalf("expected failed audio to be released")
	}
}

func TestSynchronizerIgnoresLateFailureOfReplacedAudio(t *testing.T) {
	player := &recordingPlayer{}
	s, _, recorder := newTestSynchronizer(player)
	s.setMuted(true)

	s.begin(Turn{ID: "a1", Text: "one", AudioRef: "one.wav"})
	s.begin(Turn{ID: "a2", Text: "two", AudioRef: "two.wav"})
	player.onFailure("one.wav", errors.New("fetch failed"))

	if recorder.count(events.KindAssistantPlaybackFailed) != 0 {
		t.Fatalf("expected no playback failure for replaced audio, got %v", recorder.kinds())
	}
	if s.loadedRef != "two.wav" {
		t.Fatalf("expected two.wav to stay loaded, got %q", s.loadedRef)
	}

	s.setMuted(false)
	calls := player.recorded()
	if calls[len(calls)-1] != "play" {
		t.Fatalf("expected two.wav to start on unmute, got %q", calls)
	}
}

func TestSynchronizerReplacesPreviousAudio(t *testing.T) {
	player := &recordingPlayer{}
	s, _, _ := newTestSynchronizer(player)

	s.begin(Turn{ID: "a1", Text: "one", AudioRef: "one.wav"})
	s.begin(Turn{ID: "a2", Text: "two", AudioRef: "two.wav"})

	expected := []string{"load:one.wav", "mute:false", "play", "stop", "load:two.wav", "mute:false", "play"}
	if !slices.Equal(player.recorded(), expected) {
		t.Fatalf("expected calls %q, got %q", expected, player.recorded())
	}
}

func TestSynchronizerWithoutAudioOnlyReveals(t *testing.T) {
	s, timer, recorder := newTestSynchronizer(nil)

	s.begin(Turn{ID: "a1", Text: "Hi", AudioRef: "hi.wav"})
	s.setMuted(true)
	for timer.fireNext() {
	}

	if recorder.count(events.KindRevealCompleted) != 1 {
		t.Fatalf("expected reveal without audio, got %v", recorder.kinds())
	}
}
