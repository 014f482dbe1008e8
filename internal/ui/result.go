package ui

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leadboard/internal/board"
)

// ResultMsg reports how a board action settled. Err is nil on success.
type ResultMsg struct {
	Action string
	Err    error
}

// NoticeMsg puts a message in the status bar.
type NoticeMsg string

// Await waits for every ticket and reports the first failure. Nil
// tickets are skipped; a call with none reports success at once.
func Await(action string, timeout time.Duration, tickets ...*board.Ticket) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var errs []error
		for _, t := range tickets {
			if t == nil {
				continue
			}
			if err := t.Wait(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return ResultMsg{Action: action, Err: errors.Join(errs...)}
	}
}

// Fail reports err for action without waiting on anything.
func Fail(action string, err error) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Action: action, Err: err}
	}
}
