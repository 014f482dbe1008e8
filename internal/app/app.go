package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/intake"
	"github.com/nhle/leadboard/internal/keys"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/reminder"
	"github.com/nhle/leadboard/internal/ui"
	"github.com/nhle/leadboard/internal/ui/boardview"
	"github.com/nhle/leadboard/internal/ui/command"
	"github.com/nhle/leadboard/internal/ui/customerform"
	"github.com/nhle/leadboard/internal/ui/detail"
	helpview "github.com/nhle/leadboard/internal/ui/help"
	"github.com/nhle/leadboard/internal/ui/leadform"
	"github.com/nhle/leadboard/internal/ui/panel"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewPanel
	ViewHelp
	ViewCommand
	ViewLeadForm
	ViewCustomerForm
)

// noticeTTL is how long a notice replaces the key hints.
const noticeTTL = 6 * time.Second

// Options wires the root model to the board and its helpers.
type Options struct {
	Board   *board.Board
	Watcher *reminder.Watcher
	User    *model.User
	// Importer runs the intake palette command. Nil when no mailbox is
	// configured.
	Importer *intake.Importer
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Model is the root Bubble Tea model that manages view routing and
// layout over a loaded board.
type Model struct {
	currentView  ViewState
	previousView ViewState
	detailReturn ViewState
	layout       ui.Layout
	board        *board.Board
	watcher      *reminder.Watcher
	importer     *intake.Importer
	user         *model.User
	timeout      time.Duration
	log          *slog.Logger
	keys         *keys.KeyMap

	boardView    boardview.Model
	detail       detail.Model
	panel        panel.Model
	helpView     helpview.Model
	commandView  command.Model
	leadForm     leadform.Model
	customerForm customerform.Model

	ready     bool
	notice    string
	noticeSeq int
}

// New creates a new root application model.
func New(opts Options) Model {
	if opts.Timeout <= 0 {
		opts.Timeout = board.DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	km := keys.DefaultKeyMap()

	return Model{
		currentView:  ViewBoard,
		board:        opts.Board,
		watcher:      opts.Watcher,
		importer:     opts.Importer,
		user:         opts.User,
		timeout:      opts.Timeout,
		log:          opts.Logger,
		keys:         km,
		boardView:    boardview.New(opts.Board, km, opts.Timeout, 80, 24),
		detail:       detail.New(opts.Board, km, 80, 24),
		panel:        panel.New(opts.Board, km, panel.KindCustomers, 80, 24),
		helpView:     helpview.New(km, 80, 24),
		commandView:  command.New(80, 24),
		leadForm:     leadform.New(80, 24),
		customerForm: customerform.New(80, 24),
	}
}

// Init subscribes to board events and starts the reminder watcher.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.waitForEvent()}
	if m.watcher != nil {
		cmds = append(cmds, m.watcher.Start())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.boardView.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.panel.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.leadForm.SetSize(w, h)
		m.customerForm.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case boardEventMsg:
		if msg.event.Type == board.EventNotice {
			m.refresh()
			return m, tea.Batch(m.setNotice(msg.event.Message), m.waitForEvent())
		}
		m.refresh()
		return m, m.waitForEvent()

	case reminder.DueMsg:
		return m, tea.Batch(m.setNotice(msg.Text()), m.watcher.Wait())

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case ui.NoticeMsg:
		return m, m.setNotice(string(msg))

	case ui.ResultMsg:
		m.refresh()
		if msg.Err != nil {
			m.log.Warn("action failed", "action", msg.Action, "error", msg.Err)
			return m, m.setNotice(fmt.Sprintf("%s failed: %v", msg.Action, msg.Err))
		}
		return m, nil

	case boardview.RequestMsg:
		return m, m.handleBoardRequest(msg)

	case leadform.SubmitMsg:
		m.currentView = m.previousView
		return m, m.handleLeadSubmit(msg)

	case leadform.CancelMsg, customerform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case customerform.SavedMsg:
		m.currentView = m.previousView
		return m, m.saveCustomer(msg)

	case customerform.AttachMsg:
		m.currentView = m.previousView
		return m, m.attachDocument(msg)

	case customerform.DetachMsg:
		m.currentView = m.previousView
		return m, m.removeDocument(msg)

	case detail.BackMsg:
		m.currentView = m.detailReturn
		return m, nil

	case detail.ActionMsg:
		return m, m.handleDetailAction(msg)

	case panel.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case panel.SelectMsg:
		m.showDetail(func() {
			if msg.Kind == panel.KindCustomers {
				m.detail.ShowCustomer(msg.ID)
			} else {
				m.detail.ShowLead(msg.ID)
			}
		})
		return m, nil

	case panel.ActionMsg:
		return m, m.handlePanelAction(msg)

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if cmd, handled := m.handleGlobalKey(msg); handled {
			return m, cmd
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleGlobalKey runs keys that work outside text input. It reports
// false when the key belongs to the active view.
func (m *Model) handleGlobalKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m.quit(), true
	}
	if m.capturesInput() {
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.currentView == ViewBoard {
			return m.quit(), true
		}
	case key.Matches(msg, m.keys.Help):
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return nil, true
		}
		m.open(ViewHelp)
		return nil, true
	case key.Matches(msg, m.keys.Command):
		if m.currentView == ViewCommand {
			m.currentView = m.previousView
			return nil, true
		}
		m.open(ViewCommand)
		return m.commandView.Focus(), true
	case key.Matches(msg, m.keys.Refresh):
		return m.resync(), true
	}

	if m.currentView != ViewBoard {
		if m.currentView == ViewHelp && key.Matches(msg, m.keys.Back) {
			m.currentView = m.previousView
			return nil, true
		}
		return nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Customers):
		return m.openPanel(panel.KindCustomers), true
	case key.Matches(msg, m.keys.History):
		return m.openPanel(panel.KindHistory), true
	case key.Matches(msg, m.keys.Reminders):
		return m.openPanel(panel.KindReminders), true
	}
	return nil, false
}

// capturesInput reports whether the active view consumes every key.
func (m Model) capturesInput() bool {
	switch m.currentView {
	case ViewLeadForm, ViewCustomerForm:
		return true
	case ViewCommand:
		return true
	case ViewPanel:
		return m.panel.Searching()
	case ViewBoard:
		return m.boardView.Dragging()
	}
	return false
}

// open switches to v and remembers where to return.
func (m *Model) open(v ViewState) {
	if m.currentView != v {
		m.previousView = m.currentView
	}
	m.currentView = v
}

func (m *Model) openPanel(kind panel.Kind) tea.Cmd {
	m.panel = panel.New(m.board, m.keys, kind, m.layout.ContentWidth(), m.layout.ContentHeight())
	m.open(ViewPanel)
	return nil
}

func (m *Model) quit() tea.Cmd {
	if m.watcher != nil {
		m.watcher.Stop()
	}
	return tea.Quit
}

// refresh re-reads the board into every view that shows it.
func (m *Model) refresh() {
	m.boardView.Refresh()
	m.detail.Refresh()
	m.panel.Refresh()
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	seq := m.noticeSeq
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.currentView {
	case ViewBoard:
		m.boardView, cmd = m.boardView.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewPanel:
		m.panel, cmd = m.panel.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, m.keys.Back) {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewLeadForm:
		m.leadForm, cmd = m.leadForm.Update(msg)
	case ViewCustomerForm:
		m.customerForm, cmd = m.customerForm.Update(msg)
	}
	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Leadboard", m.status())
	content := m.renderContent()

	statusBar := m.layout.RenderStatusBar(m.keyHints())
	if m.notice != "" {
		statusBar = m.layout.RenderNotice(m.notice)
	}
	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.boardView.View()
	case ViewDetail:
		return m.detail.View()
	case ViewPanel:
		return m.panel.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewLeadForm:
		return m.leadForm.View()
	case ViewCustomerForm:
		return m.customerForm.View()
	default:
		return ""
	}
}

// status returns the right side of the header.
func (m Model) status() string {
	st := m.board.State()
	open := len(st.Leads()) - len(st.CompletedLeads())
	s := fmt.Sprintf("%d open", open)
	if due := len(st.DueReminders(time.Now())); due > 0 {
		s += fmt.Sprintf(" | %d due", due)
	}
	if orphans := len(st.OrphanedLeads()); orphans > 0 {
		s += fmt.Sprintf(" | %d orphaned", orphans)
	}
	if m.user != nil {
		s += " | " + m.user.DisplayName()
	}
	return s
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return ": close command | enter execute | esc back"
	case ViewDetail:
		return "esc back | e edit | j/k scroll"
	case ViewPanel:
		switch m.panel.Kind() {
		case panel.KindCustomers:
			return "enter open | / search | n new | N lead | e edit | D delete | esc back"
		case panel.KindHistory:
			return "enter open | u restore | D delete | esc back"
		default:
			return "enter open | r edit | x complete | esc back"
		}
	case ViewLeadForm, ViewCustomerForm:
		return "enter submit | esc cancel"
	default:
		if m.boardView.Dragging() {
			return "h/l move | space/enter drop | esc cancel"
		}
		return "q quit | ? help | space grab | n new | e edit | c customers | : command"
	}
}
