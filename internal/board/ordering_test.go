package board_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/model"
)

func lead(id, columnID string, order int) model.Lead {
	return model.Lead{ID: id, Title: id, ColumnID: columnID, Order: order}
}

func twoColumns() []model.Column {
	return []model.Column{
		{ID: "A", Title: "Lead", Order: 0},
		{ID: "B", Title: "Follow Up", Order: 1},
	}
}

func TestComputeMoveAppendsToTargetColumn(t *testing.T) {
	leads := []model.Lead{
		lead("L", "A", 0),
		lead("A2", "A", 1),
		lead("B1", "B", 0),
		lead("B2", "B", 1),
		lead("B3", "B", 2),
	}

	move, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "B"})
	require.True(t, ok)
	assert.Equal(t, "L", move.LeadID)
	assert.Equal(t, "A", move.FromColumnID)
	assert.Equal(t, "B", move.TargetColumnID)
	assert.Equal(t, 3, move.TargetOrder)
	assert.Empty(t, move.Renumber)
}

func TestComputeMoveResolvesLeadDropTarget(t *testing.T) {
	leads := []model.Lead{
		lead("L", "A", 0),
		lead("B1", "B", 0),
	}

	move, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "B1"})
	require.True(t, ok)
	assert.Equal(t, "B", move.TargetColumnID)
	assert.Equal(t, 1, move.TargetOrder)
}

func TestComputeMoveUnknownTargetKeepsColumn(t *testing.T) {
	leads := []model.Lead{
		lead("L", "A", 0),
		lead("A2", "A", 1),
	}

	move, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "nowhere"})
	require.True(t, ok, "L is not last in A, so the drop appends it")
	assert.Equal(t, "A", move.TargetColumnID)
	assert.Equal(t, 1, move.TargetOrder)
	assert.Equal(t, []board.OrderAssignment{{LeadID: "A2", Order: 0}}, move.Renumber)
}

func TestComputeMoveMissingLeadIsNoop(t *testing.T) {
	_, ok := board.ComputeMove(twoColumns(), nil, board.DragEvent{LeadID: "gone", OverID: "B"})
	assert.False(t, ok)
}

func TestComputeMoveSameColumnLastIsNoop(t *testing.T) {
	leads := []model.Lead{
		lead("A1", "A", 0),
		lead("L", "A", 1),
	}

	for _, over := range []string{"A", "A1", "", "nowhere"} {
		_, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: over})
		assert.False(t, ok, "drop over %q", over)
	}
}

func TestComputeMoveUsesOriginAfterPreview(t *testing.T) {
	// L started last in A and was previewed into B, then dragged back.
	leads := []model.Lead{
		lead("A1", "A", 0),
		lead("L", "B", 1),
	}
	origin := &board.Origin{ColumnID: "A", WasLast: true}

	_, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "A", Origin: origin})
	assert.False(t, ok)

	move, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "B", Origin: origin})
	require.True(t, ok)
	assert.Equal(t, "A", move.FromColumnID)
	assert.Equal(t, "B", move.TargetColumnID)
	assert.Equal(t, 0, move.TargetOrder)
}

func TestComputeMoveEmptyDropIsNoop(t *testing.T) {
	// L was previewed into B and released over nothing.
	leads := []model.Lead{
		lead("A1", "A", 0),
		lead("A2", "A", 1),
		lead("L", "B", 0),
	}
	origin := &board.Origin{ColumnID: "A", WasLast: false}

	_, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", Origin: origin})
	assert.False(t, ok)
}

func TestComputeMoveRenumbersDuplicateOrders(t *testing.T) {
	leads := []model.Lead{
		lead("L", "A", 0),
		lead("B1", "B", 0),
		lead("B2", "B", 0),
		lead("B3", "B", 7),
	}

	move, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "B"})
	require.True(t, ok)
	assert.Equal(t, 3, move.TargetOrder)
	assert.Equal(t, []board.OrderAssignment{
		{LeadID: "B2", Order: 1},
		{LeadID: "B3", Order: 2},
	}, move.Renumber)
}

func TestComputeMoveIgnoresCompletedLeads(t *testing.T) {
	done := lead("B0", "B", 0)
	done.IsCompleted = true
	leads := []model.Lead{lead("L", "A", 0), done, lead("B1", "B", 1)}

	move, ok := board.ComputeMove(twoColumns(), leads, board.DragEvent{LeadID: "L", OverID: "B"})
	require.True(t, ok)
	assert.Equal(t, 1, move.TargetOrder)
	assert.Equal(t, []board.OrderAssignment{{LeadID: "B1", Order: 0}}, move.Renumber)
}

func TestPreviewColumn(t *testing.T) {
	leads := []model.Lead{lead("L", "A", 0), lead("B1", "B", 0)}

	target, ok := board.PreviewColumn(twoColumns(), leads, "L", "B1")
	require.True(t, ok)
	assert.Equal(t, "B", target)

	_, ok = board.PreviewColumn(twoColumns(), leads, "L", "A")
	assert.False(t, ok)

	_, ok = board.PreviewColumn(twoColumns(), leads, "L", "")
	assert.False(t, ok)
}

func TestSwapColumns(t *testing.T) {
	cols := []model.Column{
		{ID: "A", Order: 0},
		{ID: "B", Order: 1},
		{ID: "C", Order: 2},
	}

	changed := board.SwapColumns(cols, "B", -1)
	require.Len(t, changed, 2)
	orders := map[string]int{}
	for _, c := range changed {
		orders[c.ID] = c.Order
	}
	assert.Equal(t, map[string]int{"A": 1, "B": 0}, orders)

	assert.Nil(t, board.SwapColumns(cols, "A", -1))
	assert.Nil(t, board.SwapColumns(cols, "C", 1))
	assert.Nil(t, board.SwapColumns(cols, "missing", 1))
}

func TestDenseOrders(t *testing.T) {
	leads := []model.Lead{lead("X", "A", 4), lead("Y", "A", 4), lead("Z", "A", 9)}

	assert.Equal(t, []board.OrderAssignment{
		{LeadID: "X", Order: 0},
		{LeadID: "Y", Order: 1},
		{LeadID: "Z", Order: 2},
	}, board.DenseOrders(leads, "A"))
	assert.Equal(t, 3, board.AppendOrder(leads, "A"))
	assert.Equal(t, 0, board.AppendOrder(leads, "B"))
}
