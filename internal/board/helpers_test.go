package board_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/model"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestBoard loads a board over f.
func newTestBoard(t *testing.T, f *fakeStore, opts ...func(*board.Options)) *board.Board {
	t.Helper()

	o := board.Options{
		Logger:  quietLogger(),
		Timeout: time.Second,
		Now:     func() time.Time { return testNow },
	}
	for _, fn := range opts {
		fn(&o)
	}

	b := board.New(f, o)
	t.Cleanup(b.Close)
	require.NoError(t, b.Load(context.Background()))
	settle(t, b)
	return b
}

func settle(t *testing.T, b *board.Board) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, b.Settle(ctx))
}

func wait(t *testing.T, ticket *board.Ticket) error {
	t.Helper()
	require.NotNil(t, ticket)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return ticket.Wait(ctx)
}

func leadIDs(leads []model.Lead) []string {
	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.ID)
	}
	return ids
}

// drainEvents returns every event currently buffered.
func drainEvents(b *board.Board) []board.Event {
	var out []board.Event
	for {
		select {
		case ev := <-b.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func hasNotice(events []board.Event) bool {
	for _, ev := range events {
		if ev.Type == board.EventNotice {
			return true
		}
	}
	return false
}

// seedTwoColumns stores columns A and B with leads A1, A2 in A and B1 in B.
func seedTwoColumns(f *fakeStore) {
	f.addColumn("A", "Lead", 0)
	f.addColumn("B", "Follow Up", 1)
	f.addLead(lead("A1", "A", 0))
	f.addLead(lead("A2", "A", 1))
	f.addLead(lead("B1", "B", 0))
}
