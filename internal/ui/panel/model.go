package panel

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/keys"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/theme"
)

// Kind selects what a panel lists.
type Kind int

const (
	KindCustomers Kind = iota
	KindHistory
	KindReminders
)

func (k Kind) String() string {
	switch k {
	case KindHistory:
		return "History"
	case KindReminders:
		return "Reminders"
	default:
		return "Customers"
	}
}

// BackMsg signals the parent to close the panel.
type BackMsg struct{}

// SelectMsg is sent when the user opens an item.
type SelectMsg struct {
	Kind Kind
	ID   string
}

// ActionMsg asks the parent to act on an item. ID is empty for actions
// that do not need one.
type ActionMsg struct {
	Kind   Kind
	Action string
	ID     string
}

// Action names carried by ActionMsg.
const (
	ActionRestore     = "restore"
	ActionDelete      = "delete"
	ActionNewCustomer = "new-customer"
	ActionLeadFrom    = "lead-from-customer"
	ActionEdit        = "edit"
	ActionReminder    = "reminder"
	ActionComplete    = "complete"
)

// Model is a list panel over the board: the customer directory, completed
// leads, or pending reminders.
type Model struct {
	list        list.Model
	board       *board.Board
	keys        *keys.KeyMap
	kind        Kind
	query       string
	searchMode  bool
	searchInput textinput.Model
	now         func() time.Time
	width       int
	height      int
}

// New creates a panel of the given kind.
func New(b *board.Board, k *keys.KeyMap, kind Kind, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = kind.String()
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search customers..."
	si.Prompt = "/ "
	si.Width = width - 4

	m := Model{
		list:        l,
		board:       b,
		keys:        k,
		kind:        kind,
		searchInput: si,
		now:         time.Now,
		width:       width,
		height:      height,
	}
	m.Refresh()
	return m
}

// Kind reports what the panel lists.
func (m Model) Kind() Kind {
	return m.kind
}

// Refresh rebuilds the items from the current board state.
func (m *Model) Refresh() {
	var items []list.Item
	switch m.kind {
	case KindCustomers:
		customers := m.board.State().Customers()
		if strings.TrimSpace(m.query) != "" {
			customers = m.board.SearchCustomers(m.query)
		}
		for _, c := range customers {
			items = append(items, customerItem(c))
		}
	case KindHistory:
		for _, l := range m.board.State().CompletedLeads() {
			items = append(items, Item{ID: l.ID, Name: l.Title, Info: l.Details})
		}
	case KindReminders:
		now := m.now()
		for _, r := range m.board.State().Reminders() {
			items = append(items, reminderItem(r, now))
		}
	}
	m.list.SetItems(items)
}

func customerItem(c model.Customer) Item {
	var info []string
	if c.Phone != "" {
		info = append(info, c.Phone)
	}
	if c.Email != "" {
		info = append(info, c.Email)
	}
	docs := 0
	for _, k := range model.DocumentKinds {
		if c.Documents.Get(k) != nil {
			docs++
		}
	}
	if docs > 0 {
		info = append(info, fmt.Sprintf("%d document(s)", docs))
	}
	return Item{ID: c.ID, Name: c.Name, Info: strings.Join(info, " | ")}
}

func reminderItem(r board.Reminder, now time.Time) Item {
	it := Item{ID: r.Lead.ID, Name: r.Lead.Title}
	when := "no time set"
	if at, ok := r.Lead.ReminderTime(); ok {
		when = at.Local().Format(model.ReminderLayout)
		if !at.After(now) {
			it.Tone = ToneDue
		}
	}
	text := ""
	if r.Lead.ReminderText != nil {
		text = *r.Lead.ReminderText
	}
	it.Info = fmt.Sprintf("%s | %s | %s", when, r.ColumnTitle, text)
	return it
}

// Selected returns the ID under the cursor.
func (m Model) Selected() (string, bool) {
	it, ok := m.list.SelectedItem().(Item)
	if !ok {
		return "", false
	}
	return it.ID, true
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the panel.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(keyMsg)
		}
		if mm, cmd, handled := m.handleKeys(keyMsg); handled {
			return mm, cmd
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys narrows the customer list as the user types.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		return m, nil
	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.query = ""
		m.Refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.query = m.searchInput.Value()
	m.Refresh()
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	id, selected := m.Selected()
	action := func(a string) tea.Cmd {
		out := ActionMsg{Kind: m.kind, Action: a, ID: id}
		return func() tea.Msg { return out }
	}

	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return BackMsg{} }, true
	case key.Matches(msg, m.keys.Select) && selected:
		out := SelectMsg{Kind: m.kind, ID: id}
		return m, func() tea.Msg { return out }, true
	}

	switch m.kind {
	case KindCustomers:
		switch {
		case key.Matches(msg, m.keys.Search):
			m.searchMode = true
			return m, m.searchInput.Focus(), true
		case key.Matches(msg, m.keys.NewCustomer):
			return m, action(ActionNewCustomer), true
		case !selected:
		case key.Matches(msg, m.keys.QuickLead):
			return m, action(ActionLeadFrom), true
		case key.Matches(msg, m.keys.Edit):
			return m, action(ActionEdit), true
		case key.Matches(msg, m.keys.Delete):
			return m, action(ActionDelete), true
		}

	case KindHistory:
		switch {
		case !selected:
		case key.Matches(msg, m.keys.Restore):
			return m, action(ActionRestore), true
		case key.Matches(msg, m.keys.Delete):
			return m, action(ActionDelete), true
		}

	case KindReminders:
		switch {
		case !selected:
		case key.Matches(msg, m.keys.Reminder):
			return m, action(ActionReminder), true
		case key.Matches(msg, m.keys.Complete):
			return m, action(ActionComplete), true
		}
	}
	return m, nil, false
}

// View renders the panel.
func (m Model) View() string {
	if len(m.list.Items()) == 0 && !m.searchMode && m.query == "" {
		empty := map[Kind]string{
			KindCustomers: "No customers yet. Press n to add one.",
			KindHistory:   "No completed leads.",
			KindReminders: "No reminders set.",
		}[m.kind]
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render(empty)
	}

	if m.kind == KindCustomers && (m.searchMode || m.query != "") {
		return lipgloss.JoinVertical(lipgloss.Left, m.searchInput.View(), m.list.View())
	}
	return m.list.View()
}

// SetSize updates the panel dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
