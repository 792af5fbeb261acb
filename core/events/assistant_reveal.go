package events

const (
	// KindRevealStarted identifies the start of a reply reveal.
	KindRevealStarted Kind = "assistant_reveal.started"
	// KindRevealFrame identifies a cumulative revealed prefix.
	KindRevealFrame Kind = "assistant_reveal.frame"
	// KindRevealCompleted identifies a fully revealed reply.
	KindRevealCompleted Kind = "assistant_reveal.completed"
)

// RevealStarted marks the start of a reply reveal.
type RevealStarted struct {
	Base
	TurnID string
}

// NewRevealStarted creates a reveal started event.
func NewRevealStarted(turnID string) RevealStarted {
	return RevealStarted{Base: NewBase(KindRevealStarted), TurnID: turnID}
}

// RevealFrame carries the text revealed so far.
type RevealFrame struct {
	Base
	TurnID string
	Text   string
}

// NewRevealFrame creates a reveal frame event.
func NewRevealFrame(turnID, text string) RevealFrame {
	return RevealFrame{Base: NewBase(KindRevealFrame), TurnID: turnID, Text: text}
}

// RevealCompleted marks a reply that is fully revealed.
type RevealCompleted struct {
	Base
	TurnID string
}

// NewRevealCompleted creates a reveal completed event.
func NewRevealCompleted(turnID string) RevealCompleted {
	return RevealCompleted{Base: NewBase(KindRevealCompleted), TurnID: turnID}
}
