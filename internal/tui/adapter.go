package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	dialogue "github.com/koscakluka/ema-hal/core"
	"github.com/koscakluka/ema-hal/core/events"
)

type transcriptMsg struct{ turns []dialogue.Turn }

type dialogueEventMsg struct{ event events.Event }

// EventAdapter forwards dialogue callbacks to the running program. The
// dialogue is built before the program, so callbacks arriving before
// SetProgram are dropped.
type EventAdapter struct {
	program atomic.Pointer[tea.Program]
}

func NewEventAdapter() *EventAdapter {
	return &EventAdapter{}
}

func (a *EventAdapter) SetProgram(program *tea.Program) {
	a.program.Store(program)
}

// HandleEvent is meant for dialogue.WithEventHandler.
func (a *EventAdapter) HandleEvent(event events.Event) {
	a.send(dialogueEventMsg{event: event})
}

// HandleTranscript is meant for Dialogue.SubscribeTranscript.
func (a *EventAdapter) HandleTranscript(turns []dialogue.Turn) {
	a.send(transcriptMsg{turns: turns})
}

func (a *EventAdapter) send(msg tea.Msg) {
	if program := a.program.Load(); program != nil {
		program.Send(msg)
	}
}
