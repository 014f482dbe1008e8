package customerform

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/theme"
)

// SavedMsg is dispatched when the profile form completes. ID is empty for
// a new customer; Patch then holds every field.
type SavedMsg struct {
	ID       string
	Customer model.Customer
	Patch    model.Patch
}

// AttachMsg is dispatched when a document file has been chosen.
type AttachMsg struct {
	CustomerID string
	Kind       model.DocumentKind
	Path       string
}

// DetachMsg is dispatched when a linked document is chosen for removal.
type DetachMsg struct {
	CustomerID string
	Kind       model.DocumentKind
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

type formBindings struct {
	name     string
	phone    string
	email    string
	details  string
	members  string
	assigned []string
	kind     model.DocumentKind
	path     string
}

// Model is the Bubble Tea model for the customer profile and document
// forms.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	attach   bool
	detach   bool
	editID   string
	original model.Customer
	heading  string
	width    int
	height   int
}

// New creates a new customer form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new customer.
func (m *Model) StartCreate(users []model.User) tea.Cmd {
	return m.startProfile(model.Customer{}, users, "New Customer")
}

// StartEdit initializes the form for editing a customer's profile.
func (m *Model) StartEdit(c model.Customer, users []model.User) tea.Cmd {
	return m.startProfile(c, users, "Edit "+c.Name)
}

func (m *Model) startProfile(c model.Customer, users []model.User, heading string) tea.Cmd {
	m.attach, m.detach = false, false
	m.editID = c.ID
	m.original = c
	m.heading = heading
	*m.fb = formBindings{
		name:     c.Name,
		phone:    c.Phone,
		email:    c.Email,
		details:  c.Details,
		members:  strings.Join(c.MemberNames, ", "),
		assigned: append([]string(nil), c.AssignedUserIDs...),
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Name").
			Value(&m.fb.name).
			Validate(validateRequired("Name")),
		huh.NewInput().
			Title("Phone").
			Value(&m.fb.phone),
		huh.NewInput().
			Title("Email").
			Value(&m.fb.email),
		huh.NewText().
			Title("Details").
			Value(&m.fb.details),
		huh.NewInput().
			Title("Family members").
			Placeholder("Comma separated").
			Value(&m.fb.members),
	}
	if len(users) > 0 {
		opts := make([]huh.Option[string], len(users))
		for i, u := range users {
			opts[i] = huh.NewOption(u.DisplayName(), u.ID)
		}
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Assigned to").
			Options(opts...).
			Value(&m.fb.assigned))
	}

	m.form = m.build(fields...)
	return m.form.Init()
}

// StartAttach initializes the document upload form.
func (m *Model) StartAttach(c model.Customer) tea.Cmd {
	m.attach, m.detach = true, false
	m.editID = c.ID
	m.original = c
	m.heading = "Attach document: " + c.Name
	*m.fb = formBindings{kind: model.DocPassport}

	opts := make([]huh.Option[model.DocumentKind], len(model.DocumentKinds))
	for i, k := range model.DocumentKinds {
		label := strings.ToUpper(string(k)[:1]) + string(k)[1:]
		if c.Documents.Get(k) != nil {
			label += " (replace)"
		}
		opts[i] = huh.NewOption(label, k)
	}

	m.form = m.build(
		huh.NewSelect[model.DocumentKind]().
			Title("Document").
			Options(opts...).
			Value(&m.fb.kind),
		huh.NewInput().
			Title("File").
			Placeholder("/path/to/scan.pdf").
			Value(&m.fb.path).
			Validate(validateFile),
	)
	return m.form.Init()
}

// StartDetach initializes the form for removing a linked document. It
// returns nil when the customer has no documents.
func (m *Model) StartDetach(c model.Customer) tea.Cmd {
	var opts []huh.Option[model.DocumentKind]
	for _, k := range model.DocumentKinds {
		if c.Documents.Get(k) != nil {
			opts = append(opts, huh.NewOption(string(k), k))
		}
	}
	if len(opts) == 0 {
		return nil
	}

	m.attach, m.detach = false, true
	m.editID = c.ID
	m.original = c
	m.heading = "Remove document: " + c.Name
	*m.fb = formBindings{kind: opts[0].Value}

	m.form = m.build(
		huh.NewSelect[model.DocumentKind]().
			Title("Document").
			Options(opts...).
			Value(&m.fb.kind),
	)
	return m.form.Init()
}

// Update handles messages for the customer form.
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

// View renders the customer form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render(m.heading) + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build(fields ...huh.Field) *huh.Form {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithWidth(w).WithHeight(h)
}

func (m Model) handleSubmit() tea.Cmd {
	if m.detach {
		out := DetachMsg{CustomerID: m.editID, Kind: m.fb.kind}
		return func() tea.Msg { return out }
	}
	if m.attach {
		out := AttachMsg{CustomerID: m.editID, Kind: m.fb.kind, Path: strings.TrimSpace(m.fb.path)}
		return func() tea.Msg { return out }
	}

	c := model.Customer{
		ID:              m.editID,
		Name:            strings.TrimSpace(m.fb.name),
		Phone:           strings.TrimSpace(m.fb.phone),
		Email:           strings.TrimSpace(m.fb.email),
		Details:         strings.TrimSpace(m.fb.details),
		MemberNames:     SplitMembers(m.fb.members),
		AssignedUserIDs: append([]string(nil), m.fb.assigned...),
	}
	out := SavedMsg{ID: m.editID, Customer: c, Patch: ProfilePatch(m.original, c)}
	return func() tea.Msg { return out }
}

// SplitMembers turns a comma separated list into trimmed names.
func SplitMembers(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// ProfilePatch returns the profile fields of updated that differ from
// original.
func ProfilePatch(original, updated model.Customer) model.Patch {
	p := model.Patch{}
	if updated.Name != original.Name {
		p[model.FieldName] = updated.Name
	}
	if updated.Phone != original.Phone {
		p[model.FieldPhone] = updated.Phone
	}
	if updated.Email != original.Email {
		p[model.FieldEmail] = updated.Email
	}
	if updated.Details != original.Details {
		p[model.FieldDetails] = updated.Details
	}
	if !equalStrings(updated.MemberNames, original.MemberNames) {
		p[model.FieldMemberNames] = updated.MemberNames
	}
	if !equalStrings(updated.AssignedUserIDs, original.AssignedUserIDs) {
		p[model.FieldAssignedUserIDs] = updated.AssignedUserIDs
	}
	return p
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateFile(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("file is required")
	}
	info, err := os.Stat(s)
	if err != nil {
		return fmt.Errorf("cannot read %s", s)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", s)
	}
	return nil
}
