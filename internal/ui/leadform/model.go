package leadform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/theme"
)

// Mode selects which form is showing.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
	ModeNote
	ModeReminder
	ModeAssign
	ModeColumnTitle
	ModeConfirm
)

// SubmitMsg is dispatched when the form completes. Only the fields the
// mode collects are set.
type SubmitMsg struct {
	Mode     Mode
	LeadID   string
	ColumnID string

	Lead board.NewLead

	Title   string
	Details string
	Note    string

	ReminderText string
	ReminderAt   *time.Time

	UserID string

	Confirmed bool
	Purpose   string
	Target    string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title          string
	details        string
	saveAsCustomer bool
	note           string
	reminderText   string
	reminderAt     string
	userID         string
	confirmed      bool
}

// Model is the Bubble Tea model for every lead and column form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	mode     Mode
	heading  string
	leadID   string
	columnID string
	purpose  string
	target   string
	width    int
	height   int
}

// New creates a new lead form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

func (m *Model) reset(mode Mode, heading string) {
	*m.fb = formBindings{}
	m.mode = mode
	m.heading = heading
	m.leadID = ""
	m.columnID = ""
	m.purpose = ""
	m.target = ""
}

// StartCreate initializes the form for a new lead.
func (m *Model) StartCreate() tea.Cmd {
	m.reset(ModeCreate, "New Lead")
	m.form = m.build(
		huh.NewInput().
			Title("Name").
			Placeholder(model.DefaultLeadTitle).
			Value(&m.fb.title),
		huh.NewText().
			Title("Details").
			Placeholder(model.DefaultLeadDetails).
			Value(&m.fb.details),
		huh.NewConfirm().
			Title("Save as customer?").
			Value(&m.fb.saveAsCustomer),
	)
	return m.form.Init()
}

// StartEdit initializes the form for editing a lead's title and details.
func (m *Model) StartEdit(l model.Lead) tea.Cmd {
	m.reset(ModeEdit, "Edit Lead")
	m.leadID = l.ID
	m.fb.title = l.Title
	m.fb.details = l.Details
	m.form = m.build(
		huh.NewInput().
			Title("Name").
			Value(&m.fb.title),
		huh.NewText().
			Title("Details").
			Value(&m.fb.details),
	)
	return m.form.Init()
}

// StartNote initializes the note form. Clearing the text removes the note.
func (m *Model) StartNote(l model.Lead) tea.Cmd {
	m.reset(ModeNote, "Note: "+l.Title)
	m.leadID = l.ID
	m.fb.note = board.NoteText(l)
	m.form = m.build(
		huh.NewText().
			Title("Note").
			Placeholder("Leave empty to remove").
			Value(&m.fb.note),
	)
	return m.form.Init()
}

// StartReminder initializes the reminder form. Clearing the text removes
// the reminder.
func (m *Model) StartReminder(l model.Lead) tea.Cmd {
	m.reset(ModeReminder, "Reminder: "+l.Title)
	m.leadID = l.ID
	if l.ReminderText != nil {
		m.fb.reminderText = *l.ReminderText
	}
	if at, ok := l.ReminderTime(); ok {
		m.fb.reminderAt = at.Local().Format(model.ReminderInputLayout)
	}
	m.form = m.build(
		huh.NewInput().
			Title("Reminder").
			Placeholder("Leave empty to remove").
			Value(&m.fb.reminderText),
		huh.NewInput().
			Title("When").
			Placeholder("YYYY-MM-DD HH:MM (optional)").
			Value(&m.fb.reminderAt).
			Validate(validateOptionalTime),
	)
	return m.form.Init()
}

// StartAssign initializes the assignee picker.
func (m *Model) StartAssign(l model.Lead, users []model.User) tea.Cmd {
	m.reset(ModeAssign, "Assign: "+l.Title)
	m.leadID = l.ID
	if l.AssignedUserID != nil {
		m.fb.userID = *l.AssignedUserID
	}
	opts := []huh.Option[string]{huh.NewOption("Unassigned", "")}
	for _, u := range users {
		opts = append(opts, huh.NewOption(u.DisplayName(), u.ID))
	}
	m.form = m.build(
		huh.NewSelect[string]().
			Title("Assignee").
			Options(opts...).
			Value(&m.fb.userID),
	)
	return m.form.Init()
}

// StartColumnTitle initializes the form for naming a column. An empty
// columnID means a new column.
func (m *Model) StartColumnTitle(columnID, current string) tea.Cmd {
	heading := "New Column"
	if columnID != "" {
		heading = "Rename Column"
	}
	m.reset(ModeColumnTitle, heading)
	m.columnID = columnID
	m.fb.title = current
	field := huh.NewInput().
		Title("Title").
		Value(&m.fb.title)
	if columnID != "" {
		field = field.Validate(validateRequired("Title"))
	}
	m.form = m.build(field)
	return m.form.Init()
}

// StartConfirm asks a yes/no question. Purpose and target are echoed
// back in the SubmitMsg so the parent knows what was confirmed.
func (m *Model) StartConfirm(purpose, question, target string) tea.Cmd {
	m.reset(ModeConfirm, "Confirm")
	m.purpose = purpose
	m.target = target
	m.form = m.build(
		huh.NewConfirm().
			Title(question).
			Affirmative("Yes").
			Negative("No").
			Value(&m.fb.confirmed),
	)
	return m.form.Init()
}

// Mode reports which form is showing.
func (m Model) Mode() Mode {
	return m.mode
}

// Update handles messages for the lead form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the lead form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(m.heading) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build(fields ...huh.Field) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) handleSubmit() tea.Cmd {
	out := SubmitMsg{
		Mode:     m.mode,
		LeadID:   m.leadID,
		ColumnID: m.columnID,
		Purpose:  m.purpose,
		Target:   m.target,
	}

	switch m.mode {
	case ModeCreate:
		out.Lead = board.NewLead{
			Title:          m.fb.title,
			Details:        m.fb.details,
			SaveAsCustomer: m.fb.saveAsCustomer,
		}
	case ModeEdit, ModeColumnTitle:
		out.Title = m.fb.title
		out.Details = m.fb.details
	case ModeNote:
		out.Note = m.fb.note
	case ModeReminder:
		out.ReminderText = m.fb.reminderText
		if at, ok := parseReminderTime(m.fb.reminderAt); ok {
			out.ReminderAt = &at
		}
	case ModeAssign:
		out.UserID = m.fb.userID
	case ModeConfirm:
		out.Confirmed = m.fb.confirmed
	}

	return func() tea.Msg { return out }
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func parseReminderTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(model.ReminderInputLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func validateOptionalTime(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, ok := parseReminderTime(s); !ok {
		return fmt.Errorf("invalid time, use YYYY-MM-DD HH:MM")
	}
	return nil
}
