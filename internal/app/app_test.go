package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/ui"
	"github.com/nhle/leadboard/internal/ui/boardview"
	"github.com/nhle/leadboard/internal/ui/command"
	"github.com/nhle/leadboard/internal/ui/leadform"
	"github.com/nhle/leadboard/tests/testutil"
)

func newApp(t *testing.T) (Model, *board.Board) {
	t.Helper()

	b := testutil.NewTestBoard(t, testutil.NewTestStore(t))
	m := New(Options{Board: b, Timeout: 2 * time.Second})
	m = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	return m, b
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func updateCmd(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewBeforeAndAfterResize(t *testing.T) {
	b := testutil.NewTestBoard(t, testutil.NewTestStore(t))
	m := New(Options{Board: b})
	assert.Equal(t, "Loading...", m.View())

	m = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	view := m.View()
	assert.Contains(t, view, "Leadboard")
	assert.Contains(t, view, "0 open")
}

func TestNewLeadRequestOpensForm(t *testing.T) {
	m, _ := newApp(t)

	m = update(t, m, boardview.RequestMsg{Action: boardview.ActionNewLead})
	assert.Equal(t, ViewLeadForm, m.currentView)
	assert.Equal(t, leadform.ModeCreate, m.leadForm.Mode())

	m = update(t, m, leadform.CancelMsg{})
	assert.Equal(t, ViewBoard, m.currentView)
}

func TestLeadSubmitCreatesLead(t *testing.T) {
	m, b := newApp(t)

	m, cmd := updateCmd(t, m, leadform.SubmitMsg{
		Mode: leadform.ModeCreate,
		Lead: board.NewLead{Title: "ravi kumar"},
	})
	assert.Equal(t, ViewBoard, m.currentView)
	require.NotNil(t, cmd)

	res, ok := cmd().(ui.ResultMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)

	first := b.State().Columns()[0]
	leads := b.State().LeadsInColumn(first.ID)
	require.Len(t, leads, 1)
	assert.Equal(t, "RAVI KUMAR", leads[0].Title)
}

func TestConfirmedDeleteRemovesLead(t *testing.T) {
	m, b := newApp(t)
	ticket, err := b.AddLead(board.NewLead{Title: "Meera"})
	require.NoError(t, err)
	require.NoError(t, ticket.Wait(context.Background()))
	testutil.Settle(t, b)
	id := b.Controller().Resolve(model.KindLead, ticket.ID())

	_, cmd := updateCmd(t, m, leadform.SubmitMsg{
		Mode:      leadform.ModeConfirm,
		Purpose:   confirmDeleteLead,
		Target:    id,
		Confirmed: false,
	})
	assert.Nil(t, cmd)
	_, ok := b.State().Lead(id)
	assert.True(t, ok)

	_, cmd = updateCmd(t, m, leadform.SubmitMsg{
		Mode:      leadform.ModeConfirm,
		Purpose:   confirmDeleteLead,
		Target:    id,
		Confirmed: true,
	})
	require.NotNil(t, cmd)
	res := cmd().(ui.ResultMsg)
	require.NoError(t, res.Err)
	_, ok = b.State().Lead(id)
	assert.False(t, ok)
}

func TestColumnCommandAddsColumn(t *testing.T) {
	m, b := newApp(t)

	_, cmd := updateCmd(t, m, command.CommandMsg{Name: "column", Args: []string{"Site", "Visit"}})
	require.NotNil(t, cmd)
	res := cmd().(ui.ResultMsg)
	require.NoError(t, res.Err)

	cols := b.State().Columns()
	require.Len(t, cols, 5)
	assert.Equal(t, "Site Visit", cols[4].Title)
}

func TestUnknownCommandSetsNotice(t *testing.T) {
	m, _ := newApp(t)

	m = update(t, m, command.CommandMsg{Name: "teleport"})
	assert.Contains(t, m.notice, "Unknown command")
	assert.Contains(t, m.View(), "teleport")
}

func TestIntakeWithoutMailbox(t *testing.T) {
	m, _ := newApp(t)

	m = update(t, m, command.CommandMsg{Name: "intake"})
	assert.Equal(t, "Mail intake is not configured.", m.notice)
}

func TestExportCommandWritesFile(t *testing.T) {
	m, _ := newApp(t)
	path := filepath.Join(t.TempDir(), "board.yaml")

	_, cmd := updateCmd(t, m, command.CommandMsg{Name: "export", Args: []string{path}})
	require.NotNil(t, cmd)
	notice, ok := cmd().(ui.NoticeMsg)
	require.True(t, ok)
	assert.Contains(t, string(notice), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "columns:")
	assert.Contains(t, string(data), "Follow Up")
}

func TestFailedResultShowsNotice(t *testing.T) {
	m, _ := newApp(t)

	m = update(t, m, ui.ResultMsg{Action: "rename column", Err: errors.New("offline")})
	assert.Equal(t, "rename column failed: offline", m.notice)

	// A stale clear does not wipe a newer notice.
	m = update(t, m, ui.NoticeMsg("second"))
	m = update(t, m, clearNoticeMsg{seq: 1})
	assert.Equal(t, "second", m.notice)
	m = update(t, m, clearNoticeMsg{seq: m.noticeSeq})
	assert.Empty(t, m.notice)
}

func TestHelpAndPanelKeys(t *testing.T) {
	m, _ := newApp(t)

	m = update(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.currentView)

	m = update(t, m, runes("c"))
	assert.Equal(t, ViewPanel, m.currentView)
	// Board-only keys do nothing inside a panel.
	m = update(t, m, runes("H"))
	assert.Equal(t, ViewPanel, m.currentView)
}

func TestQuitOnlyFromBoard(t *testing.T) {
	m, _ := newApp(t)

	m, cmd := updateCmd(t, m, runes("q"))
	require.NotNil(t, cmd)
	_, ok := cmd().(tea.QuitMsg)
	assert.True(t, ok)

	m = update(t, m, boardview.RequestMsg{Action: boardview.ActionNewLead})
	require.Equal(t, ViewLeadForm, m.currentView)
	m = update(t, m, runes("q"))
	assert.Equal(t, ViewLeadForm, m.currentView)
}
