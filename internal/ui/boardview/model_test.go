package boardview

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/keys"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/ui"
	"github.com/nhle/leadboard/tests/testutil"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	space = tea.KeyMsg{Type: tea.KeySpace}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func newView(t *testing.T, titles ...string) (Model, *board.Board) {
	t.Helper()

	b := testutil.NewTestBoard(t, testutil.NewTestStore(t))
	for _, title := range titles {
		ticket, err := b.AddLead(board.NewLead{Title: title})
		require.NoError(t, err)
		require.NoError(t, ticket.Wait(context.Background()))
	}
	testutil.Settle(t, b)

	m := New(b, keys.DefaultKeyMap(), time.Second, 120, 30)
	m.Refresh()
	return m, b
}

func result(t *testing.T, cmd tea.Cmd) ui.ResultMsg {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(ui.ResultMsg)
	require.True(t, ok)
	return msg
}

func TestKeyboardDragMovesLead(t *testing.T) {
	m, b := newView(t, "RAVI", "MEERA")
	cols := b.State().Columns()

	m, _ = m.Update(space)
	assert.True(t, m.Dragging())

	m, _ = m.Update(runes("l"))
	l, _ := b.State().Lead(b.State().LeadsInColumn(cols[1].ID)[0].ID)
	assert.Equal(t, "RAVI", l.Title, "preview shows the lead in the next column")

	m, cmd := m.Update(space)
	assert.False(t, m.Dragging())
	assert.NoError(t, result(t, cmd).Err)
	testutil.Settle(t, b)

	moved := b.State().LeadsInColumn(cols[1].ID)
	require.Len(t, moved, 1)
	assert.Equal(t, "RAVI", moved[0].Title)
	assert.Equal(t, 0, moved[0].Order)

	focused, ok := m.FocusedLead()
	require.True(t, ok)
	assert.Equal(t, "RAVI", focused.Title, "cursor follows the dropped lead")
}

func TestDragCancelKeepsColumn(t *testing.T) {
	m, b := newView(t, "RAVI")
	first := b.State().Columns()[0].ID

	m, _ = m.Update(space)
	m, _ = m.Update(runes("l"))
	m, _ = m.Update(esc)

	assert.False(t, m.Dragging())
	require.Len(t, b.State().LeadsInColumn(first), 1)
}

func TestRequestsCarryFocusedLead(t *testing.T) {
	m, b := newView(t, "RAVI")
	lead := b.State().LeadsInColumn(b.State().Columns()[0].ID)[0]

	_, cmd := m.Update(runes("e"))
	require.NotNil(t, cmd)
	assert.Equal(t, RequestMsg{Action: ActionEditLead, LeadID: lead.ID, ColumnID: lead.ColumnID}, cmd())

	m.moveColumn(1)
	_, cmd = m.Update(runes("e"))
	assert.Nil(t, cmd, "no lead under the cursor")
}

func TestToggleEmergencyFromKeyboard(t *testing.T) {
	m, b := newView(t, "RAVI")

	_, cmd := m.Update(runes("!"))
	assert.NoError(t, result(t, cmd).Err)
	testutil.Settle(t, b)

	l := b.State().LeadsInColumn(b.State().Columns()[0].ID)[0]
	assert.True(t, l.IsEmergency)
	assert.Contains(t, m.View(), "RAVI")
}

func TestViewShowsDefaultColumns(t *testing.T) {
	m, _ := newView(t)

	out := m.View()
	for _, title := range model.DefaultColumnTitles {
		assert.Contains(t, out, title)
	}
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "AK", initials("asha kumar rao"))
	assert.Equal(t, "M", initials("meera"))
	assert.Equal(t, "", initials(""))
}
