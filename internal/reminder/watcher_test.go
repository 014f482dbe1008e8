package reminder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/reminder"
)

type staticSource []board.Reminder

func (s *staticSource) DueReminders(now time.Time) []board.Reminder {
	var out []board.Reminder
	for _, r := range *s {
		if at, ok := r.Lead.ReminderTime(); ok && !at.After(now) {
			out = append(out, r)
		}
	}
	return out
}

func timed(id string, at time.Time) board.Reminder {
	return board.Reminder{
		Lead: model.Lead{
			ID:           id,
			Title:        "ACME",
			ReminderText: model.StringPtr("call back"),
			ReminderAt:   model.Int64Ptr(at.UnixMilli()),
		},
		ColumnTitle: "Follow Up",
	}
}

func TestCheckFiresOncePerReminderTime(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	src := &staticSource{
		timed("past", now.Add(-time.Minute)),
		timed("future", now.Add(time.Hour)),
	}
	w := reminder.New(src, time.Minute)

	due := w.Check(now)
	require.Len(t, due, 1)
	assert.Equal(t, "past", due[0].Reminder.Lead.ID)
	assert.Equal(t, "Reminder for ACME (Follow Up): call back", due[0].Text())

	assert.Empty(t, w.Check(now), "already fired")

	due = w.Check(now.Add(2 * time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, "future", due[0].Reminder.Lead.ID)
}

func TestCheckRefiresWhenTimeChanges(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	src := &staticSource{timed("a", now.Add(-time.Minute))}
	w := reminder.New(src, 0)
	require.Len(t, w.Check(now), 1)

	(*src)[0] = timed("a", now.Add(-30*time.Second))
	require.Len(t, w.Check(now), 1, "rescheduled reminder fires again")
	assert.Empty(t, w.Check(now))
}

func TestStartDeliversDueMessage(t *testing.T) {
	src := &staticSource{timed("a", time.Now().Add(-time.Minute))}
	w := reminder.New(src, time.Hour)
	defer w.Stop()

	cmd := w.Start()
	require.NotNil(t, cmd)
	assert.Nil(t, w.Start(), "second start is a no-op")

	msg, ok := cmd().(reminder.DueMsg)
	require.True(t, ok)
	assert.Equal(t, "a", msg.Reminder.Lead.ID)
}
