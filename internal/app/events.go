package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leadboard/internal/board"
)

// boardEventMsg carries one event from the board's subscription channel.
type boardEventMsg struct {
	event board.Event
}

// clearNoticeMsg expires the notice with the matching sequence number.
type clearNoticeMsg struct {
	seq int
}

// waitForEvent blocks until the board publishes. Handle the message and
// call it again to keep listening.
func (m Model) waitForEvent() tea.Cmd {
	events := m.board.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return boardEventMsg{event: ev}
	}
}
