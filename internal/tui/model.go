// Package tui is the terminal front-end of a dialogue: a transcript monitor
// with typed reveal, a Ready prompt, and controls for the microphone and
// narration.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	dialogue "github.com/koscakluka/ema-hal/core"
	"github.com/koscakluka/ema-hal/core/events"
)

const (
	blinkInterval = 530 * time.Millisecond

	// header, interim line, input, help, status and the monitor border
	chromeHeight = 7
	minViewport  = 3
)

// Controller is the part of a dialogue the terminal drives.
type Controller interface {
	SubmitUtterance(text string) error
	StartListening() error
	StopListening()
	CaptureAvailable() bool
	SetMuted(muted bool)
	IsMuted() bool
	IsReady() bool
	Transcript() []dialogue.Turn
}

type blinkMsg struct{}

type commandErrMsg struct{ err error }

type Model struct {
	dialogue Controller
	keys     keyMap
	help     help.Model
	input    textinput.Model
	monitor  viewport.Model

	turns []dialogue.Turn
	// revealing is the agent turn currently being typed out; revealed holds
	// its visible prefix. Turns in shown have finished revealing.
	revealing string
	revealed  string
	shown     map[string]bool

	ready     bool
	muted     bool
	listening bool
	interim   string
	notice    string

	cursorOn bool
	width    int
	height   int
}

func NewModel(controller Controller) *Model {
	input := textinput.New()
	input.Placeholder = "Talk to H.A.L."
	input.Prompt = "> "
	input.CharLimit = 500
	input.Focus()

	m := &Model{
		dialogue: controller,
		keys:     newKeyMap(),
		help:     help.New(),
		input:    input,
		monitor:  viewport.New(0, 0),
		shown:    map[string]bool{},
		ready:    controller.IsReady(),
		muted:    controller.IsMuted(),
		cursorOn: true,
	}
	m.turns = controller.Transcript()
	for _, turn := range m.turns {
		m.shown[turn.ID] = true
	}
	m.syncKeys()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, blink())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if text != "" {
				m.notice = ""
				cmds = append(cmds, submit(m.dialogue, text))
			}
		case key.Matches(msg, m.keys.Listen):
			m.notice = ""
			cmds = append(cmds, startListening(m.dialogue))
		case key.Matches(msg, m.keys.Mute):
			cmds = append(cmds, setMuted(m.dialogue, !m.muted))
		case key.Matches(msg, m.keys.Scroll):
			var cmd tea.Cmd
			m.monitor, cmd = m.monitor.Update(msg)
			cmds = append(cmds, cmd)
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			cmds = append(cmds, cmd)
		}

	case transcriptMsg:
		m.turns = msg.turns

	case dialogueEventMsg:
		m.handleEvent(msg.event)

	case commandErrMsg:
		m.notice = describeError(msg.err)

	case blinkMsg:
		m.cursorOn = !m.cursorOn
		cmds = append(cmds, blink())

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.syncKeys()
	m.refreshMonitor()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleEvent(event events.Event) {
	switch e := event.(type) {
	case events.RevealStarted:
		if m.revealing != "" && m.revealing != e.TurnID {
			m.shown[m.revealing] = true
		}
		m.revealing = e.TurnID
		m.revealed = ""
	case events.RevealFrame:
		if e.TurnID == m.revealing {
			m.revealed = e.Text
		}
	case events.RevealCompleted:
		m.shown[e.TurnID] = true
		if e.TurnID == m.revealing {
			m.revealing = ""
			m.revealed = ""
		}
	case events.ReadinessChanged:
		m.ready = e.Ready
	case events.CaptureStarted:
		m.listening = true
		m.interim = ""
	case events.CaptureEnded:
		m.listening = false
		m.interim = ""
	case events.CaptureFailed:
		m.notice = describeError(e.Err)
	case events.UserTranscriptInterimUpdated:
		m.interim = e.Transcript
	case events.UserTranscriptFinal:
		m.interim = ""
	case events.DispatchRejected:
		m.notice = "H.A.L. is still answering."
	case events.TurnFailed:
		m.shown[e.TurnID] = true
	case events.AssistantPlaybackFailed:
		m.notice = "Narration unavailable."
	case events.AssistantPlaybackMuteChanged:
		m.muted = e.Muted
	}
}

// syncKeys disables the microphone control while listening or when no
// recognizer is configured.
func (m *Model) syncKeys() {
	m.keys.Listen.SetEnabled(m.dialogue.CaptureAvailable() && !m.listening)
	if m.muted {
		m.keys.Mute.SetHelp("ctrl+t", "unmute")
	} else {
		m.keys.Mute.SetHelp("ctrl+t", "mute")
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width
	m.input.Width = max(width-4, 1)

	m.monitor.Width = max(width-monitorStyle.GetHorizontalFrameSize(), 1)
	m.monitor.Height = max(height-chromeHeight, minViewport)
}

func (m *Model) refreshMonitor() {
	atBottom := m.monitor.AtBottom()
	m.monitor.SetContent(m.renderTranscript())
	if atBottom {
		m.monitor.GotoBottom()
	}
}

func blink() tea.Cmd {
	return tea.Tick(blinkInterval, func(time.Time) tea.Msg { return blinkMsg{} })
}

func submit(controller Controller, text string) tea.Cmd {
	return func() tea.Msg {
		if err := controller.SubmitUtterance(text); err != nil {
			return commandErrMsg{err: err}
		}
		return nil
	}
}

func startListening(controller Controller) tea.Cmd {
	return func() tea.Msg {
		if err := controller.StartListening(); err != nil && !errors.Is(err, dialogue.ErrAlreadyListening) {
			return commandErrMsg{err: err}
		}
		return nil
	}
}

func setMuted(controller Controller, muted bool) tea.Cmd {
	return func() tea.Msg {
		controller.SetMuted(muted)
		return nil
	}
}

func describeError(err error) string {
	var captureErr *dialogue.CaptureError
	switch {
	case errors.Is(err, dialogue.ErrDispatchBusy):
		return "H.A.L. is still answering."
	case errors.Is(err, dialogue.ErrCapabilityUnavailable):
		return "That is not available right now."
	case errors.Is(err, dialogue.ErrClosed):
		return "Session closed."
	case errors.As(err, &captureErr):
		return fmt.Sprintf("Microphone error: %s", captureErr.Code)
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}
