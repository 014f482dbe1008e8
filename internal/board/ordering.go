package board

import "github.com/nhle/leadboard/internal/model"

// DragEvent is a drop gesture in terms of ids only, independent of the
// input device that produced it. OverID names a column, a lead, or nothing
// (dropped on empty space or cancelled).
type DragEvent struct {
	LeadID string
	OverID string

	// Origin is where the lead sat when the drag started. Drag-over
	// previews change the lead's column locally, so the no-op check
	// compares against Origin when it is known.
	Origin *Origin
}

// Origin records a lead's column at drag start and whether it was the last
// open lead there.
type Origin struct {
	ColumnID string
	WasLast  bool
}

// OrderAssignment sets one lead's order value.
type OrderAssignment struct {
	LeadID string
	Order  int
}

// Move is the outcome of a drop: the lead lands at TargetOrder, the end of
// TargetColumnID. Renumber lists siblings whose order must change so the
// target column holds unique values.
type Move struct {
	LeadID         string
	FromColumnID   string
	FromOrder      int
	TargetColumnID string
	TargetOrder    int
	Renumber       []OrderAssignment
}

// Patch returns the lead fields the move changes.
func (m Move) Patch() model.Patch {
	return model.Patch{
		model.FieldColumnID: m.TargetColumnID,
		model.FieldOrder:    m.TargetOrder,
	}
}

// OriginOf captures the drag-start position of a lead.
func OriginOf(leads []model.Lead, leadID string) *Origin {
	lead, ok := findLead(leads, leadID)
	if !ok {
		return nil
	}
	siblings := leadsInColumn(leads, lead.ColumnID, "")
	return &Origin{
		ColumnID: lead.ColumnID,
		WasLast:  len(siblings) > 0 && siblings[len(siblings)-1].ID == leadID,
	}
}

// ComputeMove resolves a drop into a Move. The second result is false when
// the drop changes nothing: the lead is gone, it was dropped on empty space,
// or it was dropped back at the end of the column it started in.
//
// The lead is always appended to the target column rather than inserted at
// the pointer position; the store keeps a single integer order per lead.
func ComputeMove(columns []model.Column, leads []model.Lead, ev DragEvent) (Move, bool) {
	active, ok := findLead(leads, ev.LeadID)
	if !ok || ev.OverID == "" {
		return Move{}, false
	}

	target := resolveTargetColumn(columns, leads, active, ev.OverID)
	siblings := leadsInColumn(leads, target, active.ID)

	origin := ev.Origin
	if origin == nil {
		origin = OriginOf(leads, active.ID)
	}
	if origin != nil && origin.ColumnID == target && origin.WasLast {
		return Move{}, false
	}

	move := Move{
		LeadID:         active.ID,
		FromColumnID:   active.ColumnID,
		FromOrder:      active.Order,
		TargetColumnID: target,
		TargetOrder:    len(siblings),
	}
	if origin != nil {
		move.FromColumnID = origin.ColumnID
	}

	// Siblings are renumbered densely in display order whenever their
	// values are not already 0..n-1.
	for i, l := range siblings {
		if l.Order != i {
			move.Renumber = append(move.Renumber, OrderAssignment{LeadID: l.ID, Order: i})
		}
	}
	return move, true
}

// PreviewColumn returns the column a lead would join if dropped over overID
// right now, for drag-over feedback. It reports false when the hover does
// not change the lead's column.
func PreviewColumn(columns []model.Column, leads []model.Lead, leadID, overID string) (string, bool) {
	active, ok := findLead(leads, leadID)
	if !ok || overID == "" {
		return "", false
	}
	target := resolveTargetColumn(columns, leads, active, overID)
	if target == active.ColumnID {
		return "", false
	}
	return target, true
}

// resolveTargetColumn maps a drop target id onto a column: a column id is
// used directly, a lead id resolves to that lead's column, anything else
// keeps the lead where it is.
func resolveTargetColumn(columns []model.Column, leads []model.Lead, active model.Lead, overID string) string {
	for _, c := range columns {
		if c.ID == overID {
			return c.ID
		}
	}
	if over, ok := findLead(leads, overID); ok {
		return over.ColumnID
	}
	return active.ColumnID
}

// DenseOrders renumbers a column's open leads 0..n-1 in display order and
// returns only the assignments that change a value.
func DenseOrders(leads []model.Lead, columnID string) []OrderAssignment {
	var out []OrderAssignment
	for i, l := range leadsInColumn(leads, columnID, "") {
		if l.Order != i {
			out = append(out, OrderAssignment{LeadID: l.ID, Order: i})
		}
	}
	return out
}

// AppendOrder is the order a new lead takes at the end of a column.
func AppendOrder(leads []model.Lead, columnID string) int {
	return len(leadsInColumn(leads, columnID, ""))
}

// SwapColumns returns the order assignments that exchange a column with its
// neighbour in direction delta (-1 left, +1 right). Columns sharing an
// order value are first spread out so the swap is visible.
func SwapColumns(columns []model.Column, columnID string, delta int) []model.Column {
	cols := append([]model.Column(nil), columns...)
	sortColumns(cols)

	idx := -1
	for i, c := range cols {
		if c.ID == columnID {
			idx = i
			break
		}
	}
	j := idx + delta
	if idx < 0 || j < 0 || j >= len(cols) {
		return nil
	}

	cols[idx], cols[j] = cols[j], cols[idx]
	var changed []model.Column
	for i := range cols {
		if cols[i].Order != i {
			c := cols[i]
			c.Order = i
			changed = append(changed, c)
		}
	}
	return changed
}

func findLead(leads []model.Lead, id string) (model.Lead, bool) {
	for _, l := range leads {
		if l.ID == id {
			return l, true
		}
	}
	return model.Lead{}, false
}
