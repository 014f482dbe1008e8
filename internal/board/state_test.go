package board_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/model"
)

func TestLeadsInColumnStableOrder(t *testing.T) {
	f := newFakeStore()
	f.addColumn("A", "Lead", 0)
	f.addColumn("B", "Follow Up", 1)
	f.addLead(lead("X", "A", 1))
	f.addLead(lead("Y", "A", 0))
	f.addLead(lead("Z", "A", 1))
	f.addLead(lead("W", "A", 2))
	f.addLead(lead("other", "B", 0))

	b := newTestBoard(t, f)

	assert.Equal(t, []string{"Y", "X", "Z", "W"}, leadIDs(b.State().LeadsInColumn("A")))
}

func TestCompletedLeadsExcludedFromColumns(t *testing.T) {
	f := newFakeStore()
	f.addColumn("A", "Lead", 0)
	done := lead("done", "A", 0)
	done.IsCompleted = true
	f.addLead(done)
	f.addLead(lead("open", "A", 1))

	b := newTestBoard(t, f)

	assert.Equal(t, []string{"open"}, leadIDs(b.State().LeadsInColumn("A")))
	assert.Equal(t, []string{"done"}, leadIDs(b.State().CompletedLeads()))
}

func TestApplyPatchAbsentEntityIsNoop(t *testing.T) {
	f := newFakeStore()
	f.addColumn("A", "Lead", 0)
	b := newTestBoard(t, f)

	ok := b.State().ApplyPatch(model.KindLead, "ghost", model.Patch{model.FieldTitle: "X"})
	assert.False(t, ok)
	assert.Empty(t, b.State().Leads())
}

func TestRemindersOrdering(t *testing.T) {
	f := newFakeStore()
	f.addColumn("A", "Lead", 0)

	late := lead("late", "A", 0)
	late.ReminderText = model.StringPtr("call")
	late.ReminderAt = model.Int64Ptr(testNow.Add(time.Hour).UnixMilli())
	early := lead("early", "A", 1)
	early.ReminderText = model.StringPtr("email")
	early.ReminderAt = model.Int64Ptr(testNow.Add(-time.Hour).UnixMilli())
	untimed := lead("untimed", "A", 2)
	untimed.ReminderText = model.StringPtr("someday")
	blank := lead("blank", "A", 3)
	blank.ReminderText = model.StringPtr("")

	for _, l := range []model.Lead{untimed, late, blank, early} {
		f.addLead(l)
	}
	b := newTestBoard(t, f)

	reminders := b.State().Reminders()
	require.Len(t, reminders, 3)
	assert.Equal(t, "early", reminders[0].Lead.ID)
	assert.Equal(t, "late", reminders[1].Lead.ID)
	assert.Equal(t, "untimed", reminders[2].Lead.ID)
	assert.Equal(t, "Lead", reminders[0].ColumnTitle)

	due := b.State().DueReminders(testNow)
	require.Len(t, due, 1)
	assert.Equal(t, "early", due[0].Lead.ID)
}

func TestSearchCustomersCaseInsensitive(t *testing.T) {
	f := newFakeStore()
	f.addColumn("A", "Lead", 0)
	f.customers = []model.Customer{
		{ID: "c1", Name: "ACME TRAVEL"},
		{ID: "c2", Name: "BETA"},
	}
	b := newTestBoard(t, f)

	found := b.SearchCustomers("acme")
	require.Len(t, found, 1)
	assert.Equal(t, "c1", found[0].ID)
	assert.Empty(t, b.SearchCustomers("  "))
}
