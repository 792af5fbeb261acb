package events

const (
	// KindTurnPending identifies an agent turn waiting for its reply.
	KindTurnPending Kind = "turn_state.pending"
	// KindTurnCompleted identifies an agent turn resolved with a reply.
	KindTurnCompleted Kind = "turn_state.completed"
	// KindTurnFailed identifies an agent turn resolved with an error.
	KindTurnFailed Kind = "turn_state.failed"
	// KindDispatchRejected identifies an utterance rejected while busy.
	KindDispatchRejected Kind = "turn_state.dispatch_rejected"
)

// TurnPending marks an agent turn as waiting for its reply.
type TurnPending struct {
	Base
	TurnID    string
	Utterance string
}

// NewTurnPending creates a turn pending event.
func NewTurnPending(turnID, utterance string) TurnPending {
	return TurnPending{Base: NewBase(KindTurnPending), TurnID: turnID, Utterance: utterance}
}

// TurnCompleted marks an agent turn resolved with a reply.
type TurnCompleted struct {
	Base
	TurnID   string
	Reply    string
	AudioRef string
}

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted(turnID, reply, audioRef string) TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted), TurnID: turnID, Reply: reply, AudioRef: audioRef}
}

// TurnFailed marks an agent turn resolved with an error.
type TurnFailed struct {
	Base
	TurnID string
	Err    error
}

// NewTurnFailed creates a turn failed event.
func NewTurnFailed(turnID string, err error) TurnFailed {
	return TurnFailed{Base: NewBase(KindTurnFailed), TurnID: turnID, Err: err}
}

// DispatchRejected marks an utterance that was dropped because a reply was
// still pending.
type DispatchRejected struct {
	Base
	Utterance string
}

// NewDispatchRejected creates a dispatch rejected event.
func NewDispatchRejected(utterance string) DispatchRejected {
	return DispatchRejected{Base: NewBase(KindDispatchRejected), Utterance: utterance}
}
