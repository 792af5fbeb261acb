package dialogue

import "time"

type Speaker string

const (
	SpeakerUser  Speaker = "You"
	SpeakerAgent Speaker = "H.A.L."
)

type Status string

const (
	StatusFinal   Status = "final"
	StatusPending Status = "pending"
	StatusErrored Status = "errored"
)

const (
	// PendingText is shown in place of an agent reply while the request is
	// outstanding.
	PendingText = "Processing"
	// ErrorText replaces the placeholder when the request fails.
	ErrorText = "Error generating response."
	// EmptyReplyText replaces an empty reply from the generation service.
	EmptyReplyText = "No response"
)

// Turn is one utterance-or-reply unit of the transcript.
type Turn struct {
	ID      string
	Speaker Speaker
	// Text holds the utterance or reply. For a pending agent turn it is the
	// PendingText placeholder, not real content.
	Text   string
	Status Status
	// AudioRef is an opaque handle to synthesized audio, empty when none.
	AudioRef  string
	CreatedAt time.Time
}

func (t Turn) IsPending() bool { return t.Status == StatusPending }

func newUserTurn(text string) Turn {
	return Turn{Speaker: SpeakerUser, Text: text, Status: StatusFinal, CreatedAt: time.Now()}
}

func newPendingAgentTurn() Turn {
	return Turn{Speaker: SpeakerAgent, Text: PendingText, Status: StatusPending, CreatedAt: time.Now()}
}
