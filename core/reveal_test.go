package dialogue

import (
	"slices"
	"testing"
	"time"
)

func TestRevealDisclosesOneCharacterPerTick(t *testing.T) {
	timer := &manualTimer{}
	r := newRevealer(timer)

	frames := []string{}
	doneCount := 0
	r.reveal("t1", "HAL", 10*time.Millisecond,
		func(text string) { frames = append(frames, text) },
		func() { doneCount++ },
	)

	for timer.fireNext() {
	}

	if expected := []string{"H", "HA", "HAL"}; !slices.Equal(frames, expected) {
		t.Fatalf("expected frames %q, got %q", expected, frames)
	}
	if doneCount != 1 {
		t.Fatalf("expected onDone exactly once, got %d", doneCount)
	}
	if expected := []time.Duration{0, 10 * time.Millisecond, 10 * time.Millisecond}; !slices.Equal(timer.delays(), expected) {
		t.Fatalf("expected delays %v, got %v", expected, timer.delays())
	}
	if status := r.status(); status.TurnID != "t1" || !status.Done {
		t.Fatalf("expected t1 to be done, got %+v", status)
	}
}

func TestRevealCancelBeforeFirstTickProducesNothing(t *testing.T) {
	timer := &manualTimer{}
	r := newRevealer(timer)

	frames := 0
	done := false
	r.reveal("t1", "HAL", 10*time.Millisecond,
		func(string) { frames++ },
		func() { done = true },
	)
	r.cancel()

	for timer.fireNext() {
	}

	if frames != 0 || done {
		t.Fatalf("expected no frames and no completion, got %d frames, done=%v", frames, done)
	}
	if r.status().Done {
		t.Fatalf("expected cancelled reveal not to be done")
	}
}

func TestRevealIgnoresTickThatAlreadyFiredBeforeCancel(t *testing.T) {
	timer := &manualTimer{}
	r := newRevealer(timer)

	frames := []string{}
	done := false
	r.reveal("t1", "HAL", 10*time.Millisecond,
		func(text string) { frames = append(frames, text) },
		func() { done = true },
	)
	timer.fireNext()

	// Simulate a callback that was already in flight when cancel ran.
	inFlight := timer.lastTask()
	r.cancel()
	inFlight.fn()

	if expected := []string{"H"}; !slices.Equal(frames, expected) {
		t.Fatalf("expected frames %q, got %q", expected, frames)
	}
	if done {
		t.Fatalf("expected cancelled reveal never to complete")
	}
}

func TestRevealCancelIsIdempotent(t *testing.T) {
	r := newRevealer(&manualTimer{})

	r.cancel()
	r.reveal("t1", "hi", 0, nil, nil)
	r.cancel()
	r.cancel()

	if r.active != nil {
		t.Fatalf("expected no active reveal")
	}
}

func TestRevealSupersedesPreviousReveal(t *testing.T) {
	timer := &manualTimer{}
	r := newRevealer(timer)

	firstFrames := 0
	firstDone := false
	r.reveal("t1", "first", time.Millisecond,
		func(string) { firstFrames++ },
		func() { firstDone = true },
	)
	timer.fireNext()

	secondFrames := []string{}
	secondDone := 0
	r.reveal("t2", "ok", time.Millisecond,
		func(text string) { secondFrames = append(secondFrames, text) },
		func() { secondDone++ },
	)
	for timer.fireNext() {
	}

	if firstFrames != 1 || firstDone {
		t.Fatalf("expected first reveal to stop after one frame, got %d frames, done=%v", firstFrames, firstDone)
	}
	if expected := []string{"o", "ok"}; !slices.Equal(secondFrames, expected) {
		t.Fatalf("expected frames %q, got %q", expected, secondFrames)
	}
	if secondDone != 1 {
		t.Fatalf("expected second reveal to complete once, got %d", secondDone)
	}
	if status := r.status(); status.TurnID != "t2" || !status.Done {
		t.Fatalf("expected t2 to be done, got %+v", status)
	}
}

func TestRevealEmptyTextCompletesOnFirstTick(t *testing.T) {
	timer := &manualTimer{}
	r := newRevealer(timer)

	frames := 0
	done := 0
	r.reveal("t1", "", time.Millisecond,
		func(string) { frames++ },
		func() { done++ },
	)

	if done != 0 {
		t.Fatalf("expected completion to wait for the first tick")
	}
	timer.fireNext()

	if frames != 0 || done != 1 {
		t.Fatalf("expected no frames and one completion, got %d frames and %d completions", frames, done)
	}
	if timer.pending() != 0 {
		t.Fatalf("expected nothing scheduled after completion")
	}
}

func TestRevealSplitsOnUserPerceivedCharacters(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{name: "ascii", text: "Hi!", expected: []string{"H", "Hi", "Hi!"}},
		{name: "combining accent", text: "e\u0301a", expected: []string{"e\u0301", "e\u0301a"}},
		{name: "flag emoji", text: "\U0001F1ED\U0001F1F7!", expected: []string{"\U0001F1ED\U0001F1F7", "\U0001F1ED\U0001F1F7!"}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			timer := &manualTimer{}
			r := newRevealer(timer)

			frames := []string{}
			r.reveal("t1", testCase.text, 0, func(text string) { frames = append(frames, text) }, nil)
			for timer.fireNext() {
			}

			if !slices.Equal(frames, testCase.expected) {
				t.Fatalf("expected frames %q, got %q", testCase.expected, frames)
			}
		})
	}
}
