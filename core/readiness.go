package dialogue

// isReady reports whether the dialogue can take the next utterance: nothing
// is pending and the latest reply has been revealed in full. An empty
// transcript is ready. An errored reply is never revealed, so it counts as
// finished.
func isReady(turns []Turn, reveal revealStatus) bool {
	if len(turns) == 0 {
		return true
	}

	latestAgent := -1
	for i, turn := range turns {
		if turn.IsPending() {
			return false
		}
		if turn.Speaker == SpeakerAgent {
			latestAgent = i
		}
	}
	if latestAgent < 0 {
		return true
	}

	turn := turns[latestAgent]
	if turn.Status == StatusErrored {
		return true
	}
	return reveal.TurnID == turn.ID && reveal.Done
}
