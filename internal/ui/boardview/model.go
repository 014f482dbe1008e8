package boardview

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/keys"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/theme"
	"github.com/nhle/leadboard/internal/ui"
)

// Action names a request the board view hands to its parent.
type Action string

const (
	ActionNewLead      Action = "new-lead"
	ActionEditLead     Action = "edit-lead"
	ActionNote         Action = "note"
	ActionReminder     Action = "reminder"
	ActionAssign       Action = "assign"
	ActionDetail       Action = "detail"
	ActionDeleteLead   Action = "delete-lead"
	ActionRenameColumn Action = "rename-column"
	ActionDeleteColumn Action = "delete-column"
)

// RequestMsg asks the parent to open a form or panel for a lead or column.
type RequestMsg struct {
	Action   Action
	LeadID   string
	ColumnID string
}

// cardHeight is the number of lines one lead card takes.
const cardHeight = 2

// Model renders the board as columns side by side and turns key presses
// into board actions. Dragging is done with the keyboard: grab a lead,
// move it across columns, then drop or cancel.
type Model struct {
	board   *board.Board
	keys    *keys.KeyMap
	timeout time.Duration
	now     func() time.Time

	col      int
	row      int
	offset   int
	selected string

	width  int
	height int
}

// New creates a board view over b.
func New(b *board.Board, km *keys.KeyMap, timeout time.Duration, width, height int) Model {
	return Model{
		board:   b,
		keys:    km,
		timeout: timeout,
		now:     time.Now,
		width:   width,
		height:  height,
	}
}

// Init returns the initial command for the board view.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.clamp()
}

// Refresh re-reads the board after a change and keeps the cursor on the
// selected lead when it is still visible.
func (m *Model) Refresh() {
	if m.selected != "" {
		cols := m.board.State().Columns()
		for ci, c := range cols {
			for ri, l := range m.board.State().LeadsInColumn(c.ID) {
				if l.ID == m.selected {
					m.col, m.row = ci, ri
					m.clamp()
					return
				}
			}
		}
	}
	m.clamp()
}

// FocusedColumn returns the column under the cursor.
func (m Model) FocusedColumn() (model.Column, bool) {
	cols := m.board.State().Columns()
	if m.col < 0 || m.col >= len(cols) {
		return model.Column{}, false
	}
	return cols[m.col], true
}

// FocusedLead returns the lead under the cursor.
func (m Model) FocusedLead() (model.Lead, bool) {
	col, ok := m.FocusedColumn()
	if !ok {
		return model.Lead{}, false
	}
	leads := m.board.State().LeadsInColumn(col.ID)
	if m.row < 0 || m.row >= len(leads) {
		return model.Lead{}, false
	}
	return leads[m.row], true
}

// Dragging reports whether a lead is currently grabbed.
func (m Model) Dragging() bool {
	_, ok := m.board.Dragging()
	return ok
}

// Update handles messages for the board view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if m.Dragging() {
		return m.updateDrag(keyMsg)
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		m.moveColumn(-1)
	case key.Matches(keyMsg, m.keys.Right):
		m.moveColumn(1)
	case key.Matches(keyMsg, m.keys.Up):
		m.moveRow(-1)
	case key.Matches(keyMsg, m.keys.Down):
		m.moveRow(1)

	case key.Matches(keyMsg, m.keys.Grab):
		if l, ok := m.FocusedLead(); ok && m.board.DragStart(l.ID) {
			m.selected = l.ID
		}

	case key.Matches(keyMsg, m.keys.Select):
		return m, m.requestLead(ActionDetail)
	case key.Matches(keyMsg, m.keys.NewLead):
		return m, m.request(RequestMsg{Action: ActionNewLead})
	case key.Matches(keyMsg, m.keys.Edit):
		return m, m.requestLead(ActionEditLead)
	case key.Matches(keyMsg, m.keys.Note):
		return m, m.requestLead(ActionNote)
	case key.Matches(keyMsg, m.keys.Reminder):
		return m, m.requestLead(ActionReminder)
	case key.Matches(keyMsg, m.keys.Assign):
		return m, m.requestLead(ActionAssign)
	case key.Matches(keyMsg, m.keys.Delete):
		return m, m.requestLead(ActionDeleteLead)

	case key.Matches(keyMsg, m.keys.QuickLead):
		col, ok := m.FocusedColumn()
		if !ok {
			return m, nil
		}
		t, err := m.board.AddQuickLead(col.ID)
		if err != nil {
			return m, ui.Fail("add quick lead", err)
		}
		m.selected = t.ID()
		return m, ui.Await("add quick lead", m.timeout, t)

	case key.Matches(keyMsg, m.keys.Emergency):
		return m, m.leadAction("toggle emergency", m.board.ToggleEmergency)
	case key.Matches(keyMsg, m.keys.Complete):
		return m, m.leadAction("complete lead", m.board.Complete)

	case key.Matches(keyMsg, m.keys.AddColumn):
		t := m.board.AddColumn("")
		return m, ui.Await("add column", m.timeout, t)
	case key.Matches(keyMsg, m.keys.RenameColumn):
		return m, m.requestColumn(ActionRenameColumn)
	case key.Matches(keyMsg, m.keys.DeleteColumn):
		return m, m.requestColumn(ActionDeleteColumn)
	case key.Matches(keyMsg, m.keys.ColumnLeft):
		return m, m.shiftColumn(-1)
	case key.Matches(keyMsg, m.keys.ColumnRight):
		return m, m.shiftColumn(1)
	}
	return m, nil
}

// updateDrag handles keys while a lead is grabbed. Moving across columns
// previews the lead there; nothing is written until the drop.
func (m Model) updateDrag(msg tea.KeyMsg) (Model, tea.Cmd) {
	cols := m.board.State().Columns()
	switch {
	case key.Matches(msg, m.keys.Left), key.Matches(msg, m.keys.Right):
		delta := 1
		if key.Matches(msg, m.keys.Left) {
			delta = -1
		}
		next := m.col + delta
		if next < 0 || next >= len(cols) {
			return m, nil
		}
		m.col = next
		m.board.DragOver(cols[next].ID)
		m.Refresh()

	case key.Matches(msg, m.keys.Back):
		m.board.DragCancel()
		m.Refresh()

	case key.Matches(msg, m.keys.Grab), key.Matches(msg, m.keys.Drop):
		if m.col >= len(cols) {
			m.board.DragCancel()
			return m, nil
		}
		t, err := m.board.DragEnd(cols[m.col].ID)
		m.Refresh()
		if err != nil {
			return m, ui.Fail("move lead", err)
		}
		return m, ui.Await("move lead", m.timeout, t)
	}
	return m, nil
}

func (m *Model) moveColumn(delta int) {
	n := len(m.board.State().Columns())
	if n == 0 {
		return
	}
	m.col = (m.col + delta + n) % n
	m.row = 0
	m.syncSelected()
	m.clamp()
}

func (m *Model) moveRow(delta int) {
	m.row += delta
	m.clamp()
	m.syncSelected()
}

func (m *Model) syncSelected() {
	if l, ok := m.FocusedLead(); ok {
		m.selected = l.ID
	} else {
		m.selected = ""
	}
}

// clamp keeps the cursor and the horizontal scroll inside the board.
func (m *Model) clamp() {
	cols := m.board.State().Columns()
	if len(cols) == 0 {
		m.col, m.row, m.offset = 0, 0, 0
		return
	}
	if m.col >= len(cols) {
		m.col = len(cols) - 1
	}
	if m.col < 0 {
		m.col = 0
	}

	n := len(m.board.State().LeadsInColumn(cols[m.col].ID))
	if m.row >= n {
		m.row = n - 1
	}
	if m.row < 0 {
		m.row = 0
	}

	visible := ui.NewLayout(m.width, m.height).VisibleColumns(len(cols))
	if m.col < m.offset {
		m.offset = m.col
	}
	if m.col >= m.offset+visible {
		m.offset = m.col - visible + 1
	}
}

func (m Model) request(r RequestMsg) tea.Cmd {
	return func() tea.Msg { return r }
}

func (m Model) requestLead(a Action) tea.Cmd {
	l, ok := m.FocusedLead()
	if !ok {
		return nil
	}
	return m.request(RequestMsg{Action: a, LeadID: l.ID, ColumnID: l.ColumnID})
}

func (m Model) requestColumn(a Action) tea.Cmd {
	col, ok := m.FocusedColumn()
	if !ok {
		return nil
	}
	return m.request(RequestMsg{Action: a, ColumnID: col.ID})
}

func (m Model) leadAction(action string, fn func(string) (*board.Ticket, error)) tea.Cmd {
	l, ok := m.FocusedLead()
	if !ok {
		return nil
	}
	t, err := fn(l.ID)
	if err != nil {
		return ui.Fail(action, err)
	}
	return ui.Await(action, m.timeout, t)
}

func (m *Model) shiftColumn(delta int) tea.Cmd {
	col, ok := m.FocusedColumn()
	if !ok {
		return nil
	}
	tickets, err := m.board.MoveColumn(col.ID, delta)
	if err != nil {
		return ui.Fail("move column", err)
	}
	if len(tickets) > 0 {
		m.col += delta
		m.clamp()
	}
	return ui.Await("move column", m.timeout, tickets...)
}

// View renders the visible columns side by side.
func (m Model) View() string {
	cols := m.board.State().Columns()
	if len(cols) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No columns yet. Press + to add one.")
	}

	layout := ui.NewLayout(m.width, m.height)
	visible := layout.VisibleColumns(len(cols))
	width := layout.ColumnWidth(visible)

	end := m.offset + visible
	if end > len(cols) {
		end = len(cols)
	}

	dragID, _ := m.board.Dragging()
	rendered := make([]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		rendered = append(rendered, m.renderColumn(cols[i], i == m.col, dragID, width))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumn(col model.Column, focused bool, dragID string, width int) string {
	style := theme.ColumnStyle
	if focused {
		style = theme.FocusedColumnStyle
	}
	// border and padding
	inner := width - 4
	if inner < 8 {
		inner = 8
	}

	leads := m.board.State().LeadsInColumn(col.ID)
	title := fmt.Sprintf("%s (%d)", col.Title, len(leads))
	if board.IsProvisional(col.ID) {
		title += " …"
	}

	lines := []string{theme.ColumnTitleStyle.Render(truncate(title, inner)), ""}

	capacity := (m.height - 4) / cardHeight
	if capacity < 1 {
		capacity = 1
	}
	start := 0
	if focused && m.row >= capacity {
		start = m.row - capacity + 1
	}
	for i := start; i < len(leads) && i < start+capacity; i++ {
		l := leads[i]
		selected := focused && i == m.row
		lines = append(lines, m.renderCard(l, selected, l.ID == dragID, inner))
	}
	if len(leads) == 0 {
		lines = append(lines, theme.MutedStyle.Render("  empty"))
	}

	return style.
		Width(width - 2).
		Height(m.height - 2).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderCard(l model.Lead, selected, grabbed bool, width int) string {
	var head strings.Builder
	if l.IsEmergency {
		head.WriteString(theme.EmergencyStyle.Render("! "))
	}
	head.WriteString(truncate(l.Title, width-4))
	if board.IsProvisional(l.ID) {
		head.WriteString(theme.MutedStyle.Render(" …"))
	}

	var badges []string
	if l.HasReminder() {
		badge := "⏰"
		if at, ok := l.ReminderTime(); ok {
			badge += " " + at.Local().Format("02-01 15:04")
			if !at.After(m.now()) {
				badges = append(badges, theme.DueReminderStyle.Render(badge))
			} else {
				badges = append(badges, theme.ReminderStyle.Render(badge))
			}
		} else {
			badges = append(badges, theme.ReminderStyle.Render(badge))
		}
	}
	if l.Note != nil {
		badges = append(badges, theme.MutedStyle.Render("✎"))
	}
	if l.AssignedUserID != nil {
		if u, ok := m.board.State().User(*l.AssignedUserID); ok {
			badges = append(badges, theme.AssigneeStyle.Render("@"+initials(u.DisplayName())))
		}
	}

	sub := theme.MutedStyle.Render(truncate(firstLine(l.Details), width-4))
	if len(badges) > 0 {
		sub = strings.Join(badges, " ")
	}

	body := head.String() + "\n" + sub
	switch {
	case grabbed:
		return theme.GrabbedCardStyle.Width(width).Render(body)
	case selected:
		return theme.SelectedCardStyle.Width(width).Render(body)
	case l.IsEmergency:
		return theme.CardStyle.Width(width).Foreground(theme.ColorRed).Render(body)
	default:
		return theme.CardStyle.Width(width).Render(body)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n < 1 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func initials(name string) string {
	var out []rune
	for _, f := range strings.Fields(name) {
		out = append(out, []rune(strings.ToUpper(f))[0])
		if len(out) == 2 {
			break
		}
	}
	return string(out)
}
