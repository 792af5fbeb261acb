package tui

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	dialogue "github.com/koscakluka/ema-hal/core"
	"github.com/koscakluka/ema-hal/core/events"
)

type stubController struct {
	mu sync.Mutex

	submitted   []string
	submitErr   error
	listenCalls int
	listenErr   error
	muted       bool
	ready       bool
	available   bool
	turns       []dialogue.Turn
}

func (c *stubController) SubmitUtterance(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitted = append(c.submitted, text)
	return c.submitErr
}

func (c *stubController) StartListening() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listenCalls++
	return c.listenErr
}

func (c *stubController) StopListening() {}

func (c *stubController) CaptureAvailable() bool { return c.available }

func (c *stubController) SetMuted(muted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.muted = muted
}

func (c *stubController) IsMuted() bool { return c.muted }

func (c *stubController) IsReady() bool { return c.ready }

func (c *stubController) Transcript() []dialogue.Turn { return c.turns }

func newTestModel(controller *stubController) *Model {
	m := NewModel(controller)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, inner := range batch {
			if result := runCmd(inner); result != nil {
				return result
			}
		}
		return nil
	}
	return msg
}

func typeText(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestEmptyTranscriptShowsReady(t *testing.T) {
	m := newTestModel(&stubController{ready: true})

	if content := m.renderTranscript(); !strings.Contains(content, "READY") {
		t.Fatalf("expected Ready prompt, got %q", content)
	}
}

func TestSubmitSendsTrimmedInput(t *testing.T) {
	controller := &stubController{ready: true}
	m := newTestModel(controller)

	typeText(m, "  hello  ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(cmd)

	if len(controller.submitted) != 1 || controller.submitted[0] != "hello" {
		t.Fatalf("expected one trimmed submission, got %v", controller.submitted)
	}
	if m.input.Value() != "" {
		t.Fatalf("expected input to be cleared, got %q", m.input.Value())
	}
}

func TestSubmitBlankDoesNothing(t *testing.T) {
	controller := &stubController{ready: true}
	m := newTestModel(controller)

	typeText(m, "   ")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	runCmd(cmd)

	if len(controller.submitted) != 0 {
		t.Fatalf("expected no submission, got %v", controller.submitted)
	}
}

func TestBusySubmissionShowsNotice(t *testing.T) {
	controller := &stubController{submitErr: dialogue.ErrDispatchBusy}
	m := newTestModel(controller)

	typeText(m, "again")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m.Update(runCmd(cmd))

	if m.notice != "H.A.L. is still answering." {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestRevealLifecycle(t *testing.T) {
	m := newTestModel(&stubController{ready: true})

	user := dialogue.Turn{ID: "u1", Speaker: dialogue.SpeakerUser, Text: "hello", Status: dialogue.StatusFinal}
	pending := dialogue.Turn{ID: "a1", Speaker: dialogue.SpeakerAgent, Text: dialogue.PendingText, Status: dialogue.StatusPending}

	m.Update(dialogueEventMsg{event: events.NewReadinessChanged(false)})
	m.Update(transcriptMsg{turns: []dialogue.Turn{user, pending}})
	content := m.renderTranscript()
	if !strings.Contains(content, "YOU › Hello") || !strings.Contains(content, "PROCESSING") {
		t.Fatalf("expected user turn and placeholder, got %q", content)
	}
	if strings.Contains(content, "READY") {
		t.Fatalf("expected no Ready prompt while pending, got %q", content)
	}

	final := pending
	final.Text = "Hi there"
	final.Status = dialogue.StatusFinal
	m.Update(transcriptMsg{turns: []dialogue.Turn{user, final}})
	if content := m.renderTranscript(); strings.Contains(content, "Hi there") {
		t.Fatalf("expected reply hidden until revealed, got %q", content)
	}

	m.Update(dialogueEventMsg{event: events.NewRevealStarted("a1")})
	m.Update(dialogueEventMsg{event: events.NewRevealFrame("a1", "Hi t")})
	content = m.renderTranscript()
	if !strings.Contains(content, "H.A.L. › Hi t") || strings.Contains(content, "Hi there") {
		t.Fatalf("expected partial reveal, got %q", content)
	}

	m.Update(dialogueEventMsg{event: events.NewRevealFrame("a1", "Hi there")})
	m.Update(dialogueEventMsg{event: events.NewRevealCompleted("a1")})
	m.Update(dialogueEventMsg{event: events.NewReadinessChanged(true)})
	content = m.renderTranscript()
	if !strings.Contains(content, "H.A.L. › Hi there") || !strings.Contains(content, "READY") {
		t.Fatalf("expected full reply and Ready prompt, got %q", content)
	}
}

func TestErroredReplyShowsImmediately(t *testing.T) {
	m := newTestModel(&stubController{})

	errored := dialogue.Turn{ID: "a1", Speaker: dialogue.SpeakerAgent, Text: dialogue.ErrorText, Status: dialogue.StatusErrored}
	m.Update(transcriptMsg{turns: []dialogue.Turn{errored}})

	if content := m.renderTranscript(); !strings.Contains(content, dialogue.ErrorText) {
		t.Fatalf("expected error text, got %q", content)
	}
}

func TestSupersededRevealShowsFullText(t *testing.T) {
	m := newTestModel(&stubController{})

	first := dialogue.Turn{ID: "a1", Speaker: dialogue.SpeakerAgent, Text: "First reply", Status: dialogue.StatusFinal}
	second := dialogue.Turn{ID: "a2", Speaker: dialogue.SpeakerAgent, Text: "Second reply", Status: dialogue.StatusFinal}

	m.Update(transcriptMsg{turns: []dialogue.Turn{first}})
	m.Update(dialogueEventMsg{event: events.NewRevealStarted("a1")})
	m.Update(dialogueEventMsg{event: events.NewRevealFrame("a1", "Fi")})
	m.Update(transcriptMsg{turns: []dialogue.Turn{first, second}})
	m.Update(dialogueEventMsg{event: events.NewRevealStarted("a2")})

	if content := m.renderTranscript(); !strings.Contains(content, "First reply") {
		t.Fatalf("expected superseded reply in full, got %q", content)
	}
}

func TestListenKeyDisabled(t *testing.T) {
	testCases := []struct {
		name      string
		available bool
		listening bool
		expected  int
	}{
		{name: "available", available: true, expected: 1},
		{name: "unavailable", available: false, expected: 0},
		{name: "already listening", available: true, listening: true, expected: 0},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			controller := &stubController{available: testCase.available}
			m := newTestModel(controller)
			if testCase.listening {
				m.Update(dialogueEventMsg{event: events.NewCaptureStarted()})
			}

			_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
			runCmd(cmd)

			if controller.listenCalls != testCase.expected {
				t.Fatalf("expected %d listen calls, got %d", testCase.expected, controller.listenCalls)
			}
		})
	}
}

func TestCaptureEventsTrackInterim(t *testing.T) {
	m := newTestModel(&stubController{available: true})

	m.Update(dialogueEventMsg{event: events.NewCaptureStarted()})
	m.Update(dialogueEventMsg{event: events.NewUserTranscriptInterimUpdated("open the")})
	if !m.listening || !strings.Contains(m.renderInterim(), "open the") {
		t.Fatalf("expected interim transcript while listening, got %q", m.renderInterim())
	}

	m.Update(dialogueEventMsg{event: events.NewCaptureFailed(&dialogue.CaptureError{Code: "network"})})
	m.Update(dialogueEventMsg{event: events.NewCaptureEnded()})
	if m.listening || m.renderInterim() != "" {
		t.Fatal("expected capture to be idle")
	}
	if m.notice != "Microphone error: network" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestMuteKeyToggles(t *testing.T) {
	controller := &stubController{}
	m := newTestModel(controller)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	runCmd(cmd)
	if !controller.muted {
		t.Fatal("expected controller to be muted")
	}

	m.Update(dialogueEventMsg{event: events.NewAssistantPlaybackMuteChanged(true)})
	if !m.muted || !strings.Contains(m.renderStatus(), "audio muted") {
		t.Fatalf("expected muted status, got %q", m.renderStatus())
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	runCmd(cmd)
	if controller.muted {
		t.Fatal("expected controller to be unmuted")
	}
}

func TestDescribeError(t *testing.T) {
	testCases := []struct {
		err      error
		expected string
	}{
		{err: dialogue.ErrCapabilityUnavailable, expected: "That is not available right now."},
		{err: dialogue.ErrClosed, expected: "Session closed."},
		{err: errors.New("boom"), expected: "Error: boom"},
	}
	for _, testCase := range testCases {
		if got := describeError(testCase.err); got != testCase.expected {
			t.Fatalf("describeError(%v) = %q, expected %q", testCase.err, got, testCase.expected)
		}
	}
}
