package export_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/export"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/tests/testutil"
)

func loadedBoard(t *testing.T) *board.Board {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	col, err := s.CreateColumn(ctx, model.Column{Title: "Lead", Order: 0})
	require.NoError(t, err)
	_, err = s.CreateLead(ctx, model.Lead{Title: "SECOND", ColumnID: col.ID, Order: 1})
	require.NoError(t, err)
	_, err = s.CreateLead(ctx, model.Lead{Title: "FIRST", ColumnID: col.ID, Order: 0})
	require.NoError(t, err)
	_, err = s.CreateLead(ctx, model.Lead{Title: "DONE", ColumnID: col.ID, IsCompleted: true})
	require.NoError(t, err)
	_, err = s.CreateCustomer(ctx, model.Customer{Name: "RAVI"})
	require.NoError(t, err)

	b := board.New(s, board.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	t.Cleanup(b.Close)
	require.NoError(t, b.Load(ctx))
	return b
}

func TestWriteJSON(t *testing.T) {
	b := loadedBoard(t)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.Take(b.State(), now), export.FormatJSON))

	var got export.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Columns, 1)
	require.Len(t, got.Columns[0].Leads, 2)
	assert.Equal(t, "FIRST", got.Columns[0].Leads[0].Title)
	assert.Equal(t, "SECOND", got.Columns[0].Leads[1].Title)
	require.Len(t, got.Completed, 1)
	assert.Equal(t, "DONE", got.Completed[0].Title)
	require.Len(t, got.Customers, 1)
	assert.True(t, got.ExportedAt.Equal(now))
}

func TestWriteYAML(t *testing.T) {
	b := loadedBoard(t)

	var buf bytes.Buffer
	require.NoError(t, export.Write(&buf, export.Take(b.State(), time.Now()), export.FormatYAML))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got, "columns")
	assert.Contains(t, buf.String(), "title: FIRST")
}

func TestParseFormat(t *testing.T) {
	f, err := export.ParseFormat("yml")
	require.NoError(t, err)
	assert.Equal(t, export.FormatYAML, f)

	f, err = export.ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, export.FormatJSON, f)

	_, err = export.ParseFormat("csv")
	assert.Error(t, err)
}
