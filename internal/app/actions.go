package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/export"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/ui"
	"github.com/nhle/leadboard/internal/ui/boardview"
	"github.com/nhle/leadboard/internal/ui/command"
	"github.com/nhle/leadboard/internal/ui/customerform"
	"github.com/nhle/leadboard/internal/ui/detail"
	"github.com/nhle/leadboard/internal/ui/leadform"
	"github.com/nhle/leadboard/internal/ui/panel"
)

// Confirmation purposes echoed back by the confirm form.
const (
	confirmDeleteLead     = "delete-lead"
	confirmDeleteColumn   = "delete-column"
	confirmDeleteCustomer = "delete-customer"
)

// DefaultExportPath is used by the export command when no path is given.
const DefaultExportPath = "leadboard-export.yaml"

func (m *Model) openLeadForm(start func() tea.Cmd) tea.Cmd {
	m.open(ViewLeadForm)
	return start()
}

// showDetail opens the detail view and remembers where esc returns to.
func (m *Model) showDetail(show func()) {
	if m.currentView != ViewDetail {
		m.detailReturn = m.currentView
	}
	m.open(ViewDetail)
	show()
}

func (m *Model) openCustomerForm(start func() tea.Cmd) tea.Cmd {
	m.open(ViewCustomerForm)
	return start()
}

// withLead runs fn on a lead that is still on the board.
func (m *Model) withLead(id string, fn func(model.Lead) tea.Cmd) tea.Cmd {
	l, ok := m.board.State().Lead(id)
	if !ok {
		return m.setNotice("That lead is no longer on the board.")
	}
	return fn(l)
}

func (m *Model) withCustomer(id string, fn func(model.Customer) tea.Cmd) tea.Cmd {
	c, ok := m.board.State().Customer(id)
	if !ok {
		return m.setNotice("That customer no longer exists.")
	}
	return fn(c)
}

// leadFormFor opens the form matching a lead action.
func (m *Model) leadFormFor(action, leadID string) tea.Cmd {
	return m.withLead(leadID, func(l model.Lead) tea.Cmd {
		switch action {
		case "edit":
			return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartEdit(l) })
		case "note":
			return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartNote(l) })
		case "reminder":
			return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartReminder(l) })
		case "assign":
			users := m.board.State().Users()
			return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartAssign(l, users) })
		case "delete":
			return m.openLeadForm(func() tea.Cmd {
				return m.leadForm.StartConfirm(confirmDeleteLead, fmt.Sprintf("Delete lead %s?", l.Title), l.ID)
			})
		}
		return nil
	})
}

func (m *Model) handleBoardRequest(r boardview.RequestMsg) tea.Cmd {
	switch r.Action {
	case boardview.ActionNewLead:
		return m.openLeadForm(m.leadForm.StartCreate)
	case boardview.ActionEditLead:
		return m.leadFormFor("edit", r.LeadID)
	case boardview.ActionNote:
		return m.leadFormFor("note", r.LeadID)
	case boardview.ActionReminder:
		return m.leadFormFor("reminder", r.LeadID)
	case boardview.ActionAssign:
		return m.leadFormFor("assign", r.LeadID)
	case boardview.ActionDeleteLead:
		return m.leadFormFor("delete", r.LeadID)
	case boardview.ActionDetail:
		m.showDetail(func() { m.detail.ShowLead(r.LeadID) })
		return nil
	case boardview.ActionRenameColumn:
		col, ok := m.board.State().Column(r.ColumnID)
		if !ok {
			return nil
		}
		return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartColumnTitle(col.ID, col.Title) })
	case boardview.ActionDeleteColumn:
		col, ok := m.board.State().Column(r.ColumnID)
		if !ok {
			return nil
		}
		n := len(m.board.State().LeadsInColumn(col.ID))
		q := fmt.Sprintf("Delete column %s and its %d lead(s)?", col.Title, n)
		return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartConfirm(confirmDeleteColumn, q, col.ID) })
	}
	return nil
}

func (m *Model) handleLeadSubmit(msg leadform.SubmitMsg) tea.Cmd {
	b := m.board
	switch msg.Mode {
	case leadform.ModeCreate:
		return m.await("add lead")(b.AddLead(msg.Lead))
	case leadform.ModeEdit:
		return m.await("edit lead")(b.EditLead(msg.LeadID, msg.Title, msg.Details))
	case leadform.ModeNote:
		return m.await("save note")(b.SetNote(msg.LeadID, msg.Note))
	case leadform.ModeReminder:
		return m.await("set reminder")(b.SetReminder(msg.LeadID, msg.ReminderText, msg.ReminderAt))
	case leadform.ModeAssign:
		return m.await("assign lead")(b.Assign(msg.LeadID, msg.UserID))
	case leadform.ModeColumnTitle:
		if msg.ColumnID == "" {
			return ui.Await("add column", m.timeout, b.AddColumn(msg.Title))
		}
		return m.await("rename column")(b.RenameColumn(msg.ColumnID, msg.Title))
	case leadform.ModeConfirm:
		if !msg.Confirmed {
			return nil
		}
		return m.confirmed(msg)
	}
	return nil
}

func (m *Model) confirmed(msg leadform.SubmitMsg) tea.Cmd {
	b := m.board
	switch msg.Purpose {
	case confirmDeleteLead:
		if m.currentView == ViewDetail {
			m.currentView = ViewBoard
		}
		return ui.Await("delete lead", m.timeout, b.DeleteLead(msg.Target))
	case confirmDeleteColumn:
		return m.await("delete column")(b.DeleteColumn(msg.Target))
	case confirmDeleteCustomer:
		if m.currentView == ViewDetail {
			m.currentView = m.detailReturn
		}
		id, timeout := msg.Target, m.timeout
		return func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			return ui.ResultMsg{Action: "delete customer", Err: b.DeleteCustomer(ctx, id)}
		}
	}
	return nil
}

// await adapts a (ticket, error) board call to a command.
func (m *Model) await(action string) func(*board.Ticket, error) tea.Cmd {
	return func(t *board.Ticket, err error) tea.Cmd {
		if err != nil {
			return ui.Fail(action, err)
		}
		return ui.Await(action, m.timeout, t)
	}
}

func (m *Model) handleDetailAction(msg detail.ActionMsg) tea.Cmd {
	if msg.LeadID != "" {
		switch msg.Action {
		case detail.ActionComplete:
			m.currentView = ViewBoard
			return m.await("complete lead")(m.board.Complete(msg.LeadID))
		case detail.ActionEmergency:
			return m.await("toggle emergency")(m.board.ToggleEmergency(msg.LeadID))
		default:
			return m.leadFormFor(msg.Action, msg.LeadID)
		}
	}

	return m.withCustomer(msg.CustomerID, func(c model.Customer) tea.Cmd {
		switch msg.Action {
		case detail.ActionEdit:
			users := m.board.State().Users()
			return m.openCustomerForm(func() tea.Cmd { return m.customerForm.StartEdit(c, users) })
		case detail.ActionAttach:
			return m.openCustomerForm(func() tea.Cmd { return m.customerForm.StartAttach(c) })
		case detail.ActionDetach:
			if !hasDocuments(c) {
				return m.setNotice(c.Name + " has no documents.")
			}
			return m.openCustomerForm(func() tea.Cmd { return m.customerForm.StartDetach(c) })
		case detail.ActionNewLead:
			return m.await("add lead")(m.board.AddLeadFromCustomer(c.ID))
		case detail.ActionDelete:
			return m.confirmCustomerDelete(c)
		}
		return nil
	})
}

func hasDocuments(c model.Customer) bool {
	for _, k := range model.DocumentKinds {
		if c.Documents.Get(k) != nil {
			return true
		}
	}
	return false
}

func (m *Model) confirmCustomerDelete(c model.Customer) tea.Cmd {
	q := fmt.Sprintf("Delete customer %s and their documents?", c.Name)
	return m.openLeadForm(func() tea.Cmd {
		return m.leadForm.StartConfirm(confirmDeleteCustomer, q, c.ID)
	})
}

func (m *Model) handlePanelAction(msg panel.ActionMsg) tea.Cmd {
	b := m.board
	switch msg.Action {
	case panel.ActionRestore:
		return m.await("restore lead")(b.Restore(msg.ID))
	case panel.ActionComplete:
		return m.await("complete lead")(b.Complete(msg.ID))
	case panel.ActionReminder:
		return m.leadFormFor("reminder", msg.ID)
	case panel.ActionNewCustomer:
		users := b.State().Users()
		return m.openCustomerForm(func() tea.Cmd { return m.customerForm.StartCreate(users) })
	case panel.ActionLeadFrom:
		return m.await("add lead")(b.AddLeadFromCustomer(msg.ID))
	case panel.ActionEdit:
		return m.withCustomer(msg.ID, func(c model.Customer) tea.Cmd {
			users := b.State().Users()
			return m.openCustomerForm(func() tea.Cmd { return m.customerForm.StartEdit(c, users) })
		})
	case panel.ActionDelete:
		if msg.Kind == panel.KindCustomers {
			return m.withCustomer(msg.ID, m.confirmCustomerDelete)
		}
		return m.leadFormFor("delete", msg.ID)
	}
	return nil
}

func (m *Model) saveCustomer(msg customerform.SavedMsg) tea.Cmd {
	if msg.ID == "" {
		return m.await("create customer")(m.board.CreateCustomer(msg.Customer))
	}
	return m.await("update customer")(m.board.UpdateCustomer(msg.ID, msg.Patch))
}

// attachDocument reads the chosen file and uploads it off the UI loop.
func (m *Model) attachDocument(msg customerform.AttachMsg) tea.Cmd {
	b, timeout := m.board, m.timeout
	return func() tea.Msg {
		action := "attach " + string(msg.Kind)
		data, err := os.ReadFile(msg.Path)
		if err != nil {
			return ui.ResultMsg{Action: action, Err: err}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		mime := blob.DetectType(filepath.Base(msg.Path), data)
		return ui.ResultMsg{Action: action, Err: b.AttachDocument(ctx, msg.CustomerID, msg.Kind, data, mime)}
	}
}

func (m *Model) removeDocument(msg customerform.DetachMsg) tea.Cmd {
	b, timeout := m.board, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ui.ResultMsg{Action: "remove " + string(msg.Kind), Err: b.RemoveDocument(ctx, msg.CustomerID, msg.Kind)}
	}
}

func (m *Model) resync() tea.Cmd {
	b, timeout := m.board, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return ui.ResultMsg{Action: "resync", Err: b.Resync(ctx)}
	}
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case "new":
		return m.openLeadForm(m.leadForm.StartCreate)
	case "quick":
		col, ok := m.boardView.FocusedColumn()
		if !ok {
			return m.setNotice("No column to add to.")
		}
		return m.await("add quick lead")(m.board.AddQuickLead(col.ID))
	case "column":
		if c.Arg() == "" {
			return m.openLeadForm(func() tea.Cmd { return m.leadForm.StartColumnTitle("", "") })
		}
		return ui.Await("add column", m.timeout, m.board.AddColumn(c.Arg()))
	case "customers":
		return m.openPanel(panel.KindCustomers)
	case "history":
		return m.openPanel(panel.KindHistory)
	case "reminders":
		return m.openPanel(panel.KindReminders)
	case "adopt":
		n, tickets := m.board.AdoptOrphans()
		if n == 0 {
			return m.setNotice("No orphaned leads.")
		}
		return tea.Batch(
			m.setNotice(fmt.Sprintf("Moving %d orphaned lead(s) to the first column.", n)),
			ui.Await("adopt orphans", m.timeout, tickets...),
		)
	case "intake":
		return m.runIntake()
	case "resync", "refresh":
		return m.resync()
	case "export":
		return m.exportTo(c.Arg())
	case "quit", "q":
		return m.quit()
	default:
		return m.setNotice(fmt.Sprintf("Unknown command %q", c.Name))
	}
}

// runIntake imports unseen mail off the UI loop.
func (m *Model) runIntake() tea.Cmd {
	if m.importer == nil {
		return m.setNotice("Mail intake is not configured.")
	}
	im := m.importer
	return func() tea.Msg {
		res, err := im.Run(context.Background())
		if err != nil {
			return ui.ResultMsg{Action: "intake", Err: err}
		}
		return ui.NoticeMsg(fmt.Sprintf("Imported %d lead(s), %d failed.", res.Imported, res.Failed))
	}
}

// exportTo writes a YAML snapshot of the board to path.
func (m *Model) exportTo(path string) tea.Cmd {
	if path == "" {
		path = DefaultExportPath
	}
	st := m.board.State()
	return func() tea.Msg {
		f, err := os.Create(path)
		if err != nil {
			return ui.ResultMsg{Action: "export", Err: err}
		}
		defer f.Close()

		if err := export.Write(f, export.Take(st, time.Now()), export.FormatYAML); err != nil {
			return ui.ResultMsg{Action: "export", Err: err}
		}
		return ui.NoticeMsg("Exported board to " + path)
	}
}
