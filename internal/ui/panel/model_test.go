package panel

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/keys"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/tests/testutil"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func wait(t *testing.T, ticket *board.Ticket, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, ticket.Wait(context.Background()))
}

func TestCustomerSearchNarrowsList(t *testing.T) {
	b := testutil.NewTestBoard(t, testutil.NewTestStore(t))
	for _, name := range []string{"acme travel", "beta tours"} {
		ticket, err := b.CreateCustomer(model.Customer{Name: name})
		wait(t, ticket, err)
	}
	testutil.Settle(t, b)

	m := New(b, keys.DefaultKeyMap(), KindCustomers, 80, 24)
	assert.Len(t, m.list.Items(), 2)

	m, _ = m.Update(runes("/"))
	require.True(t, m.Searching())
	m, _ = m.Update(runes("acme"))

	require.Len(t, m.list.Items(), 1)
	assert.Equal(t, "ACME TRAVEL", m.list.Items()[0].(Item).Name)

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.Searching())
	assert.Len(t, m.list.Items(), 2)
}

func TestHistoryRestoreAction(t *testing.T) {
	b := testutil.NewTestBoard(t, testutil.NewTestStore(t))
	ticket, err := b.AddLead(board.NewLead{Title: "ravi"})
	wait(t, ticket, err)
	testutil.Settle(t, b)
	id := b.Controller().Resolve(model.KindLead, ticket.ID())
	ticket, err = b.Complete(id)
	wait(t, ticket, err)
	testutil.Settle(t, b)

	m := New(b, keys.DefaultKeyMap(), KindHistory, 80, 24)
	require.Len(t, m.list.Items(), 1)

	_, cmd := m.Update(runes("u"))
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Kind: KindHistory, Action: ActionRestore, ID: id}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, SelectMsg{Kind: KindHistory, ID: id}, cmd())
}

func TestEmptyPanelView(t *testing.T) {
	b := testutil.NewTestBoard(t, testutil.NewTestStore(t))
	m := New(b, keys.DefaultKeyMap(), KindReminders, 80, 24)
	assert.Contains(t, m.View(), "No reminders set.")

	_, cmd := m.Update(runes("x"))
	assert.Nil(t, cmd, "no item to act on")
}
