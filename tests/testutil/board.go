package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/store"
)

// NewTestBoard loads a board over s with a silent logger. The board is
// closed when the test completes.
func NewTestBoard(t *testing.T, s store.Store) *board.Board {
	t.Helper()

	b := board.New(s, board.Options{
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Timeout: 2 * time.Second,
	})
	t.Cleanup(b.Close)

	if err := b.Load(context.Background()); err != nil {
		t.Fatalf("loading test board: %v", err)
	}
	Settle(t, b)
	return b
}

// Settle waits for every queued board write to finish.
func Settle(t *testing.T, b *board.Board) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Settle(ctx); err != nil {
		t.Fatalf("settling board: %v", err)
	}
}
