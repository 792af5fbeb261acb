package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	dialogue "github.com/koscakluka/ema-hal/core"
)

const (
	cursorBlock = "█"
	separator   = " › "
)

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("H.A.L. 9000"))
	b.WriteString("  ")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(monitorStyle.Render(m.monitor.View()))
	b.WriteString("\n")
	b.WriteString(m.renderInterim())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderStatus() string {
	var mic string
	switch {
	case !m.dialogue.CaptureAvailable():
		mic = statusStyle.Render("mic unavailable")
	case m.listening:
		mic = activeStyle.Render("● listening")
	default:
		mic = statusStyle.Render("mic idle")
	}

	audio := statusStyle.Render("audio on")
	if m.muted {
		audio = statusStyle.Render("audio muted")
	}

	parts := []string{mic, audio}
	if m.notice != "" {
		parts = append(parts, noticeStyle.Render(m.notice))
	}
	return strings.Join(parts, statusStyle.Render(" · "))
}

func (m *Model) renderInterim() string {
	if !m.listening {
		return ""
	}
	if m.interim == "" {
		return statusStyle.Render("Listening…")
	}
	return statusStyle.Render(m.interim)
}

func (m *Model) renderTranscript() string {
	blocks := make([]string, 0, len(m.turns)+1)
	for _, turn := range m.turns {
		blocks = append(blocks, m.renderTurn(turn))
	}
	if m.ready {
		blocks = append(blocks, m.withCursor("READY"))
	}

	content := strings.Join(blocks, "\n\n")
	if m.monitor.Width > 0 {
		content = wordwrap.String(content, m.monitor.Width)
	}
	return content
}

func (m *Model) renderTurn(turn dialogue.Turn) string {
	if turn.IsPending() {
		return m.withCursor(strings.ToUpper(turn.Text))
	}

	label := speakerStyle.Render(strings.ToUpper(string(turn.Speaker)))
	if turn.Speaker == dialogue.SpeakerUser {
		return label + separator + capitalize(turn.Text)
	}
	return label + separator + m.visibleReply(turn)
}

// visibleReply returns the part of an agent reply the reveal has reached.
// A reply that has resolved but whose reveal has not started yet shows
// nothing.
func (m *Model) visibleReply(turn dialogue.Turn) string {
	switch {
	case turn.ID == m.revealing:
		return m.revealed
	case m.shown[turn.ID], turn.Status == dialogue.StatusErrored:
		return turn.Text
	case m.isLatest(turn):
		return ""
	default:
		return turn.Text
	}
}

func (m *Model) isLatest(turn dialogue.Turn) bool {
	return len(m.turns) > 0 && m.turns[len(m.turns)-1].ID == turn.ID
}

func (m *Model) withCursor(text string) string {
	cursor := " "
	if m.cursorOn {
		cursor = cursorBlock
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, text, " ", cursor)
}

func capitalize(text string) string {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}
