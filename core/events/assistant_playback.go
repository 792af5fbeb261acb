package events

const (
	// KindAssistantPlaybackStarted identifies playback start for the current reply.
	KindAssistantPlaybackStarted Kind = "assistant_playback.started"
	// KindAssistantPlaybackLoaded identifies audio attached while muted.
	KindAssistantPlaybackLoaded Kind = "assistant_playback.loaded"
	// KindAssistantPlaybackFailed identifies a non-fatal playback failure.
	KindAssistantPlaybackFailed Kind = "assistant_playback.failed"
	// KindAssistantPlaybackMuteChanged identifies a mute toggle.
	KindAssistantPlaybackMuteChanged Kind = "assistant_playback.mute_changed"
)

// AssistantPlaybackStarted marks the start of reply narration.
type AssistantPlaybackStarted struct {
	Base
	AudioRef string
}

// NewAssistantPlaybackStarted creates an assistant playback started event.
func NewAssistantPlaybackStarted(audioRef string) AssistantPlaybackStarted {
	return AssistantPlaybackStarted{Base: NewBase(KindAssistantPlaybackStarted), AudioRef: audioRef}
}

// AssistantPlaybackLoaded marks narration that was attached but not started
// because output is muted.
type AssistantPlaybackLoaded struct {
	Base
	AudioRef string
}

// NewAssistantPlaybackLoaded creates an assistant playback loaded event.
func NewAssistantPlaybackLoaded(audioRef string) AssistantPlaybackLoaded {
	return AssistantPlaybackLoaded{Base: NewBase(KindAssistantPlaybackLoaded), AudioRef: audioRef}
}

// AssistantPlaybackFailed carries a playback failure. The reveal is not
// affected.
type AssistantPlaybackFailed struct {
	Base
	AudioRef string
	Err      error
}

// NewAssistantPlaybackFailed creates an assistant playback failed event.
func NewAssistantPlaybackFailed(audioRef string, err error) AssistantPlaybackFailed {
	return AssistantPlaybackFailed{Base: NewBase(KindAssistantPlaybackFailed), AudioRef: audioRef, Err: err}
}

// AssistantPlaybackMuteChanged carries the new mute state.
type AssistantPlaybackMuteChanged struct {
	Base
	Muted bool
}

// NewAssistantPlaybackMuteChanged creates a mute changed event.
func NewAssistantPlaybackMuteChanged(muted bool) AssistantPlaybackMuteChanged {
	return AssistantPlaybackMuteChanged{Base: NewBase(KindAssistantPlaybackMuteChanged), Muted: muted}
}
