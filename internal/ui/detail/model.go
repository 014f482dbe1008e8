package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/keys"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/theme"
)

// BackMsg signals the parent to navigate back.
type BackMsg struct{}

// ActionMsg signals the parent to run an action on the shown lead or
// customer.
type ActionMsg struct {
	Action     string
	LeadID     string
	CustomerID string
}

// Action names carried by ActionMsg.
const (
	ActionEdit      = "edit"
	ActionNote      = "note"
	ActionReminder  = "reminder"
	ActionAssign    = "assign"
	ActionComplete  = "complete"
	ActionEmergency = "emergency"
	ActionDelete    = "delete"
	ActionAttach    = "attach"
	ActionDetach    = "detach"
	ActionNewLead   = "new-lead"
)

// Model shows one lead or one customer profile. It re-reads the board on
// every render so confirmed changes show up while it is open.
type Model struct {
	board      *board.Board
	keys       *keys.KeyMap
	viewport   viewport.Model
	leadID     string
	customerID string
	width      int
	height     int
}

// New creates a new detail view model.
func New(b *board.Board, keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		board:    b,
		keys:     keys,
		viewport: vp,
		width:    width,
		height:   height,
	}
}

// ShowLead switches the view to a lead.
func (m *Model) ShowLead(id string) {
	m.leadID, m.customerID = id, ""
	m.Refresh()
	m.viewport.GotoTop()
}

// ShowCustomer switches the view to a customer profile.
func (m *Model) ShowCustomer(id string) {
	m.leadID, m.customerID = "", id
	m.Refresh()
	m.viewport.GotoTop()
}

// Refresh re-renders from the current board state.
func (m *Model) Refresh() {
	m.viewport.SetContent(m.renderContent())
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if key.Matches(keyMsg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
		if action := m.actionFor(keyMsg); action != "" {
			out := ActionMsg{Action: action, LeadID: m.leadID, CustomerID: m.customerID}
			return m, func() tea.Msg { return out }
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) actionFor(msg tea.KeyMsg) string {
	if m.leadID != "" {
		switch {
		case key.Matches(msg, m.keys.Edit):
			return ActionEdit
		case key.Matches(msg, m.keys.Note):
			return ActionNote
		case key.Matches(msg, m.keys.Reminder):
			return ActionReminder
		case key.Matches(msg, m.keys.Assign):
			return ActionAssign
		case key.Matches(msg, m.keys.Complete):
			return ActionComplete
		case key.Matches(msg, m.keys.Emergency):
			return ActionEmergency
		case key.Matches(msg, m.keys.Delete):
			return ActionDelete
		}
		return ""
	}
	if m.customerID != "" {
		switch {
		case key.Matches(msg, m.keys.Edit):
			return ActionEdit
		case key.Matches(msg, m.keys.Attach):
			return ActionAttach
		case key.Matches(msg, m.keys.Detach):
			return ActionDetach
		case key.Matches(msg, m.keys.NewLead):
			return ActionNewLead
		case key.Matches(msg, m.keys.Delete):
			return ActionDelete
		}
	}
	return ""
}

// View renders the detail view.
func (m Model) View() string {
	if m.leadID == "" && m.customerID == "" {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("Nothing selected")
	}
	return m.viewport.View()
}

func (m Model) renderContent() string {
	if m.leadID != "" {
		l, ok := m.board.State().Lead(m.leadID)
		if !ok {
			return theme.MutedStyle.Render("This lead is no longer on the board.")
		}
		return m.renderLead(l)
	}
	c, ok := m.board.State().Customer(m.customerID)
	if !ok {
		return theme.MutedStyle.Render("This customer no longer exists.")
	}
	return m.renderCustomer(c)
}

func (m Model) renderLead(l model.Lead) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	title := titleStyle.Render(l.Title)
	if l.IsEmergency {
		title = theme.EmergencyStyle.Render("! ") + title
	}
	sections := []string{title, ""}

	st := m.board.State()
	if col, ok := st.Column(l.ColumnID); ok {
		sections = append(sections, field("Stage", col.Title))
	}
	if l.IsCompleted {
		sections = append(sections, field("Status", "completed"))
	}
	assignee := "unassigned"
	if l.AssignedUserID != nil {
		assignee = *l.AssignedUserID
		if u, ok := st.User(*l.AssignedUserID); ok {
			assignee = u.DisplayName()
		}
	}
	sections = append(sections, field("Assigned", assignee))
	if l.HasReminder() {
		when := "no time set"
		if at, ok := l.ReminderTime(); ok {
			when = at.Local().Format(model.ReminderLayout)
		}
		sections = append(sections, field("Reminder", fmt.Sprintf("%s (%s)", *l.ReminderText, when)))
	}
	if !l.CreatedAt.IsZero() {
		sections = append(sections, field("Created", l.CreatedAt.Local().Format("2006-01-02 15:04")))
	}

	sections = append(sections, m.separator(), "", l.Details)
	if note := board.NoteText(l); note != "" {
		sections = append(sections, "", theme.LabelStyle.Render("Note"), note)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderCustomer(c model.Customer) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections := []string{titleStyle.Render(c.Name), ""}

	if c.Phone != "" {
		sections = append(sections, field("Phone", c.Phone))
	}
	if c.Email != "" {
		sections = append(sections, field("Email", c.Email))
	}
	if len(c.MemberNames) > 0 {
		sections = append(sections, field("Members", strings.Join(c.MemberNames, ", ")))
	}
	if len(c.AssignedUserIDs) > 0 {
		names := make([]string, 0, len(c.AssignedUserIDs))
		for _, id := range c.AssignedUserIDs {
			if u, ok := m.board.State().User(id); ok {
				names = append(names, u.DisplayName())
			} else {
				names = append(names, id)
			}
		}
		sections = append(sections, field("Assigned", strings.Join(names, ", ")))
	}

	sections = append(sections, m.separator(), "", theme.LabelStyle.Render("Documents"))
	for _, kind := range model.DocumentKinds {
		preview, ok := m.board.DocumentURL(c, kind, blob.ModePreview)
		if !ok {
			sections = append(sections, field(string(kind), theme.MutedStyle.Render("none")))
			continue
		}
		download, _ := m.board.DocumentURL(c, kind, blob.ModeDownload)
		sections = append(sections,
			field(string(kind), preview),
			field("", download))
	}

	if c.Details != "" {
		sections = append(sections, m.separator(), "", c.Details)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) separator() string {
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	return "\n" + sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 1)))
}

func field(label, value string) string {
	return fmt.Sprintf("%s %s", theme.LabelStyle.Render(fmt.Sprintf("%-9s", label)), value)
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.Refresh()
}
