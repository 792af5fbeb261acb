package dialogue

import "testing"

func TestIsReady(t *testing.T) {
	user := Turn{ID: "u1", Speaker: SpeakerUser, Text: "hello", Status: StatusFinal}
	pending := Turn{ID: "a1", Speaker: SpeakerAgent, Text: PendingText, Status: StatusPending}
	final := Turn{ID: "a1", Speaker: SpeakerAgent, Text: "Hi there", Status: StatusFinal}
	errored := Turn{ID: "a1", Speaker: SpeakerAgent, Text: ErrorText, Status: StatusErrored}

	testCases := []struct {
		name     string
		turns    []Turn
		reveal   revealStatus
		expected bool
	}{
		{name: "empty transcript", expected: true},
		{name: "user turn only", turns: []Turn{user}, expected: true},
		{name: "pending reply", turns: []Turn{user, pending}, expected: false},
		{name: "reply not revealed", turns: []Turn{user, final}, expected: false},
		{name: "reply revealing", turns: []Turn{user, final}, reveal: revealStatus{TurnID: "a1"}, expected: false},
		{name: "reply revealed", turns: []Turn{user, final}, reveal: revealStatus{TurnID: "a1", Done: true}, expected: true},
		{name: "other reply revealed", turns: []Turn{user, final}, reveal: revealStatus{TurnID: "a0", Done: true}, expected: false},
		{name: "errored reply", turns: []Turn{user, errored}, expected: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := isReady(testCase.turns, testCase.reveal); got != testCase.expected {
				t.Fatalf("expected ready=%v, got %v", testCase.expected, got)
			}
		})
	}
}
