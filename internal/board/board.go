package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// DefaultColumnTitle is used when a new column is added without a title.
const DefaultColumnTitle = "New Stage"

// UserDirectory lists the accounts leads and customers can be assigned to.
type UserDirectory interface {
	ListUsers(ctx context.Context) ([]model.User, error)
}

// Options configures a Board.
type Options struct {
	Blobs   blob.Store
	Users   UserDirectory
	Logger  *slog.Logger
	Timeout time.Duration
	Now     func() time.Time
}

// Board wires user gestures and actions to the ordering engine and the
// controller. It validates input before anything reaches the store.
type Board struct {
	ctl   *Controller
	state *State
	store store.Store
	blobs blob.Store
	users UserDirectory
	log   *slog.Logger
	now   func() time.Time

	mu   sync.Mutex
	drag *dragState
}

type dragState struct {
	leadID string
	origin *Origin
}

// New builds a board over st with empty state. Call Load before use.
func New(st store.Store, opts Options) *Board {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	state := NewState()
	return &Board{
		ctl:   NewController(state, st, ControllerOptions{Timeout: opts.Timeout, Logger: opts.Logger}),
		state: state,
		store: st,
		blobs: opts.Blobs,
		users: opts.Users,
		log:   opts.Logger,
		now:   opts.Now,
	}
}

// State returns the board's read-only projection.
func (b *Board) State() *State { return b.state }

// Controller returns the board's controller.
func (b *Board) Controller() *Controller { return b.ctl }

// Events returns the controller's event channel.
func (b *Board) Events() <-chan Event { return b.ctl.Events() }

// Settle waits for every queued write to settle.
func (b *Board) Settle(ctx context.Context) error { return b.ctl.Settle(ctx) }

// Close stops background persistence.
func (b *Board) Close() { b.ctl.Close() }

// Load reads the board from the store. An empty board gets the default
// columns first. Orphaned leads left by an interrupted column delete are
// moved to the first column.
//
// Two sessions loading an empty board at the same time can both create the
// default columns; nothing guards against that.
func (b *Board) Load(ctx context.Context) error {
	if err := b.ctl.Load(ctx); err != nil {
		return err
	}

	created, err := b.bootstrap(ctx)
	if err != nil {
		return err
	}
	if created > 0 {
		if err := b.ctl.Load(ctx); err != nil {
			return err
		}
	}

	b.loadUsers(ctx)

	if n, _ := b.AdoptOrphans(); n > 0 {
		b.log.Info("adopted orphaned leads", "count", n)
	}
	return nil
}

// Bootstrap creates the default columns when the store has none and
// reports how many were created.
func (b *Board) Bootstrap(ctx context.Context) (int, error) {
	if err := b.ctl.Load(ctx); err != nil {
		return 0, err
	}
	n, err := b.bootstrap(ctx)
	if err != nil || n == 0 {
		return n, err
	}
	return n, b.ctl.Load(ctx)
}

func (b *Board) bootstrap(ctx context.Context) (int, error) {
	if len(b.state.Columns()) > 0 {
		return 0, nil
	}
	for i, title := range model.DefaultColumnTitles {
		if _, err := b.store.CreateColumn(ctx, model.Column{Title: title, Order: i}); err != nil {
			return i, fmt.Errorf("creating default column %q: %w", title, err)
		}
	}
	b.log.Info("created default columns", "count", len(model.DefaultColumnTitles))
	return len(model.DefaultColumnTitles), nil
}

func (b *Board) loadUsers(ctx context.Context) {
	if b.users == nil {
		return
	}
	users, err := b.users.ListUsers(ctx)
	if err != nil {
		b.log.Warn("listing users failed", "error", err)
		return
	}
	b.ctl.SetUsers(users)
}

// Resync discards unconfirmed changes and reloads the board.
func (b *Board) Resync(ctx context.Context) error {
	return b.ctl.Resync(ctx)
}

// DragStart begins dragging a lead. It reports false if the lead is not on
// the board.
func (b *Board) DragStart(leadID string) bool {
	origin := OriginOf(b.state.Leads(), leadID)
	if origin == nil {
		return false
	}
	b.mu.Lock()
	b.drag = &dragState{leadID: leadID, origin: origin}
	b.mu.Unlock()
	return true
}

// Dragging returns the lead being dragged, if any.
func (b *Board) Dragging() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drag == nil {
		return "", false
	}
	return b.drag.leadID, true
}

// DragOver shows the dragged lead in the column under the pointer. The
// change is local until the drop.
func (b *Board) DragOver(overID string) {
	leadID, ok := b.Dragging()
	if !ok {
		return
	}
	target, ok := PreviewColumn(b.state.Columns(), b.state.Leads(), leadID, overID)
	if !ok {
		return
	}
	b.ctl.Preview(model.KindLead, leadID, model.Patch{model.FieldColumnID: target})
}

// DragEnd drops the dragged lead over overID and persists the move. It
// returns a nil ticket when the drop changes nothing. An empty overID is a
// drop on empty space and puts the lead back like DragCancel.
func (b *Board) DragEnd(overID string) (*Ticket, error) {
	b.mu.Lock()
	d := b.drag
	b.drag = nil
	b.mu.Unlock()
	if d == nil {
		return nil, nil
	}
	defer b.ctl.ClearPreview(model.KindLead, d.leadID)

	move, ok := ComputeMove(b.state.Columns(), b.state.Leads(), DragEvent{
		LeadID: d.leadID,
		OverID: overID,
		Origin: d.origin,
	})
	if !ok {
		b.revertPreview(d)
		return nil, nil
	}
	if IsProvisional(move.TargetColumnID) {
		b.revertPreview(d)
		return nil, invalid("move lead", "column is still being saved")
	}
	if b.ctl.Removing(model.KindColumn, move.TargetColumnID) {
		b.revertPreview(d)
		return nil, invalid("move lead", "column is being deleted")
	}

	for _, r := range move.Renumber {
		b.ctl.Update(model.KindLead, r.LeadID, model.Patch{model.FieldOrder: r.Order}, "renumber lead")
	}
	return b.ctl.Update(model.KindLead, move.LeadID, move.Patch(), "move lead"), nil
}

// DragCancel abandons the drag and puts the lead back where it started.
func (b *Board) DragCancel() {
	b.mu.Lock()
	d := b.drag
	b.drag = nil
	b.mu.Unlock()
	if d != nil {
		b.revertPreview(d)
		b.ctl.ClearPreview(model.KindLead, d.leadID)
	}
}

func (b *Board) revertPreview(d *dragState) {
	lead, ok := b.state.Lead(d.leadID)
	if !ok || lead.ColumnID == d.origin.ColumnID {
		return
	}
	b.ctl.Preview(model.KindLead, d.leadID, model.Patch{model.FieldColumnID: d.origin.ColumnID})
}

// MoveLead moves a lead to the end of a column without a drag gesture.
func (b *Board) MoveLead(leadID, columnID string) (*Ticket, error) {
	if !b.DragStart(leadID) {
		return nil, invalid("move lead", "lead not found")
	}
	return b.DragEnd(columnID)
}

// NewLead is the input for AddLead.
type NewLead struct {
	Title          string
	Details        string
	SaveAsCustomer bool
	Email          string
}

// AddLead creates a lead at the end of the first column. Titles are
// upper-cased. With SaveAsCustomer set, a customer of the same name is
// created unless one already exists.
func (b *Board) AddLead(in NewLead) (*Ticket, error) {
	first, err := b.firstColumn("add lead")
	if err != nil {
		return nil, err
	}

	title := strings.ToUpper(strings.TrimSpace(in.Title))
	if title == "" {
		title = model.DefaultLeadTitle
	}
	details := strings.TrimSpace(in.Details)
	if details == "" {
		details = model.DefaultLeadDetails
	}

	t := b.createLead(title, details, first.ID)

	if in.SaveAsCustomer {
		if _, exists := b.state.CustomerByName(title); !exists {
			b.ctl.Create(b.stampCustomer(model.Customer{
				Name:    title,
				Email:   strings.TrimSpace(in.Email),
				Details: details,
			}), "create customer")
		}
	}
	return t, nil
}

// AddQuickLead appends a placeholder lead to a column.
func (b *Board) AddQuickLead(columnID string) (*Ticket, error) {
	col, ok := b.state.Column(b.ctl.Resolve(model.KindColumn, columnID))
	if !ok {
		return nil, invalid("add lead", "column not found")
	}
	if IsProvisional(col.ID) {
		return nil, invalid("add lead", "column is still being saved")
	}
	if b.ctl.Removing(model.KindColumn, col.ID) {
		return nil, invalid("add lead", "column is being deleted")
	}
	return b.createLead(model.QuickLeadTitle, model.QuickLeadDetails, col.ID), nil
}

// AddLeadFromCustomer creates a lead in the first column from a customer's
// profile. Details fall back to the customer's phone and email.
func (b *Board) AddLeadFromCustomer(customerID string) (*Ticket, error) {
	c, ok := b.state.Customer(b.ctl.Resolve(model.KindCustomer, customerID))
	if !ok {
		return nil, invalid("add lead", "select a customer first")
	}
	first, err := b.firstColumn("add lead")
	if err != nil {
		return nil, err
	}
	return b.createLead(c.Name, CustomerLeadDetails(c), first.ID), nil
}

// CustomerLeadDetails is the lead details text derived from a customer.
func CustomerLeadDetails(c model.Customer) string {
	if d := strings.TrimSpace(c.Details); d != "" {
		return d
	}
	var parts []string
	if c.Phone != "" {
		parts = append(parts, "Phone: "+c.Phone)
	}
	if c.Email != "" {
		parts = append(parts, "Email: "+c.Email)
	}
	if len(parts) == 0 {
		return model.DefaultLeadDetails
	}
	return strings.Join(parts, " | ")
}

func (b *Board) createLead(title, details, columnID string) *Ticket {
	now := b.now()
	return b.ctl.Create(model.Lead{
		Title:     title,
		Details:   details,
		ColumnID:  columnID,
		Order:     b.endOf(columnID),
		CreatedAt: now,
		UpdatedAt: now,
	}, "create lead")
}

// endOf renumbers a column's open leads densely if needed and returns the
// order that appends after them.
func (b *Board) endOf(columnID string) int {
	leads := b.state.Leads()
	for _, r := range DenseOrders(leads, columnID) {
		b.ctl.Update(model.KindLead, r.LeadID, model.Patch{model.FieldOrder: r.Order}, "renumber lead")
	}
	return AppendOrder(leads, columnID)
}

func (b *Board) firstColumn(action string) (model.Column, error) {
	cols := b.state.Columns()
	if len(cols) == 0 {
		return model.Column{}, invalid(action, "board has no columns")
	}
	if IsProvisional(cols[0].ID) {
		return model.Column{}, invalid(action, "column is still being saved")
	}
	return cols[0], nil
}

// EditLead changes a lead's title and details. Empty input keeps the
// current value.
func (b *Board) EditLead(leadID, title, details string) (*Ticket, error) {
	lead, err := b.lead("edit lead", leadID)
	if err != nil {
		return nil, err
	}
	patch := model.Patch{}
	if t := strings.TrimSpace(title); t != "" && t != lead.Title {
		patch[model.FieldTitle] = t
	}
	if d := strings.TrimSpace(details); d != "" && d != lead.Details {
		patch[model.FieldDetails] = d
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return b.ctl.Update(model.KindLead, lead.ID, patch, "edit lead"), nil
}

var notePrefix = regexp.MustCompile(`^Note:\s*`)

// NoteText returns a lead's note without the "Note:" prefix older records
// carry.
func NoteText(l model.Lead) string {
	if l.Note == nil {
		return ""
	}
	return notePrefix.ReplaceAllString(*l.Note, "")
}

// SetNote sets or clears a lead's note.
func (b *Board) SetNote(leadID, note string) (*Ticket, error) {
	lead, err := b.lead("set note", leadID)
	if err != nil {
		return nil, err
	}
	note = strings.TrimSpace(notePrefix.ReplaceAllString(strings.TrimSpace(note), ""))

	var value *string
	if note != "" {
		value = &note
	}
	return b.ctl.Update(model.KindLead, lead.ID, model.Patch{model.FieldNote: value}, "set note"), nil
}

// SetReminder sets a lead's reminder. Empty text clears both the text and
// the time; a nil time keeps the reminder but without a popup.
func (b *Board) SetReminder(leadID, text string, at *time.Time) (*Ticket, error) {
	lead, err := b.lead("set reminder", leadID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	patch := model.Patch{
		model.FieldReminderText: (*string)(nil),
		model.FieldReminderAt:   (*int64)(nil),
	}
	if text != "" {
		patch[model.FieldReminderText] = &text
		if at != nil {
			patch[model.FieldReminderAt] = model.Int64Ptr(at.UnixMilli())
		}
	}
	return b.ctl.Update(model.KindLead, lead.ID, patch, "set reminder"), nil
}

// ToggleEmergency flips a lead's emergency flag.
func (b *Board) ToggleEmergency(leadID string) (*Ticket, error) {
	lead, err := b.lead("toggle emergency", leadID)
	if err != nil {
		return nil, err
	}
	return b.ctl.Update(model.KindLead, lead.ID, model.Patch{model.FieldEmergency: !lead.IsEmergency}, "toggle emergency"), nil
}

// Assign assigns a lead to a user. An empty userID unassigns it.
func (b *Board) Assign(leadID, userID string) (*Ticket, error) {
	lead, err := b.lead("assign lead", leadID)
	if err != nil {
		return nil, err
	}

	var value *string
	if userID != "" {
		if users := b.state.Users(); len(users) > 0 {
			if _, ok := b.state.User(userID); !ok {
				return nil, invalid("assign lead", "unknown user")
			}
		}
		value = &userID
	}
	return b.ctl.Update(model.KindLead, lead.ID, model.Patch{model.FieldAssignedUserID: value}, "assign lead"), nil
}

// Complete soft-deletes a lead into history.
func (b *Board) Complete(leadID string) (*Ticket, error) {
	lead, err := b.lead("complete lead", leadID)
	if err != nil {
		return nil, err
	}
	return b.ctl.Update(model.KindLead, lead.ID, model.Patch{model.FieldCompleted: true}, "complete lead"), nil
}

// Restore brings a completed lead back to the end of its column, or of the
// first column if its own is gone.
func (b *Board) Restore(leadID string) (*Ticket, error) {
	lead, err := b.lead("restore lead", leadID)
	if err != nil {
		return nil, err
	}
	if !lead.IsCompleted {
		return nil, nil
	}

	columnID := lead.ColumnID
	if _, ok := b.state.Column(columnID); !ok {
		first, err := b.firstColumn("restore lead")
		if err != nil {
			return nil, err
		}
		columnID = first.ID
	}
	return b.ctl.Update(model.KindLead, lead.ID, model.Patch{
		model.FieldCompleted: false,
		model.FieldColumnID:  columnID,
		model.FieldOrder:     b.endOf(columnID),
	}, "restore lead"), nil
}

// DeleteLead permanently deletes a lead.
func (b *Board) DeleteLead(leadID string) *Ticket {
	return b.ctl.Delete(model.KindLead, leadID, "delete lead")
}

// AdoptOrphans moves leads whose column no longer exists to the end of the
// first column.
func (b *Board) AdoptOrphans() (int, []*Ticket) {
	orphans := b.state.OrphanedLeads()
	if len(orphans) == 0 {
		return 0, nil
	}
	first, err := b.firstColumn("adopt leads")
	if err != nil {
		return 0, nil
	}

	order := b.endOf(first.ID)
	tickets := make([]*Ticket, 0, len(orphans))
	for _, l := range orphans {
		tickets = append(tickets, b.ctl.Update(model.KindLead, l.ID, model.Patch{
			model.FieldColumnID: first.ID,
			model.FieldOrder:    order,
		}, "adopt lead"))
		order++
	}
	return len(orphans), tickets
}

// AddColumn appends a column to the right of the board.
func (b *Board) AddColumn(title string) *Ticket {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultColumnTitle
	}
	order := 0
	for _, c := range b.state.Columns() {
		if c.Order >= order {
			order = c.Order + 1
		}
	}
	now := b.now()
	return b.ctl.Create(model.Column{Title: title, Order: order, CreatedAt: now, UpdatedAt: now}, "create column")
}

// RenameColumn changes a column's title.
func (b *Board) RenameColumn(columnID, title string) (*Ticket, error) {
	col, ok := b.state.Column(b.ctl.Resolve(model.KindColumn, columnID))
	if !ok {
		return nil, invalid("rename column", "column not found")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("rename column", "title cannot be empty")
	}
	if title == col.Title {
		return nil, nil
	}
	return b.ctl.Update(model.KindColumn, col.ID, model.Patch{model.FieldTitle: title}, "rename column"), nil
}

// DeleteColumn deletes a column and its leads. The last column cannot be
// deleted.
func (b *Board) DeleteColumn(columnID string) (*Ticket, error) {
	columnID = b.ctl.Resolve(model.KindColumn, columnID)
	if _, ok := b.state.Column(columnID); !ok {
		return nil, invalid("delete column", "column not found")
	}
	if len(b.state.Columns()) <= 1 {
		return nil, invalid("delete column", "at least one column is required")
	}
	if IsProvisional(columnID) {
		return nil, invalid("delete column", "column is still being saved")
	}
	return b.ctl.DeleteColumn(columnID), nil
}

// MoveColumn swaps a column with its left (delta -1) or right (delta +1)
// neighbour.
func (b *Board) MoveColumn(columnID string, delta int) ([]*Ticket, error) {
	changed := SwapColumns(b.state.Columns(), b.ctl.Resolve(model.KindColumn, columnID), delta)
	if len(changed) == 0 {
		return nil, nil
	}
	tickets := make([]*Ticket, 0, len(changed))
	for _, c := range changed {
		tickets = append(tickets, b.ctl.Update(model.KindColumn, c.ID, model.Patch{model.FieldOrder: c.Order}, "move column"))
	}
	return tickets, nil
}

// SearchCustomers filters the loaded customer directory by name.
func (b *Board) SearchCustomers(query string) []model.Customer {
	return b.state.SearchCustomers(query)
}

// CreateCustomer adds a customer to the directory. Names are upper-cased.
func (b *Board) CreateCustomer(c model.Customer) (*Ticket, error) {
	c.Name = strings.ToUpper(strings.TrimSpace(c.Name))
	if c.Name == "" {
		return nil, invalid("create customer", "name is required")
	}
	return b.ctl.Create(b.stampCustomer(c), "create customer"), nil
}

func (b *Board) stampCustomer(c model.Customer) model.Customer {
	now := b.now()
	c.CreatedAt, c.UpdatedAt = now, now
	return c
}

// UpdateCustomer applies profile changes to a customer.
func (b *Board) UpdateCustomer(customerID string, patch model.Patch) (*Ticket, error) {
	c, ok := b.state.Customer(b.ctl.Resolve(model.KindCustomer, customerID))
	if !ok {
		return nil, invalid("update customer", "customer not found")
	}
	patch = patch.Clone()
	if patch.Has(model.FieldName) {
		name, _ := patch[model.FieldName].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, invalid("update customer", "name is required")
		}
		patch[model.FieldName] = name
	}
	if len(patch) == 0 {
		return nil, nil
	}
	return b.ctl.Update(model.KindCustomer, c.ID, patch, "update customer"), nil
}

// AttachDocument uploads a document and links it to the customer. A
// previous file in the same slot is deleted once the link is confirmed; if
// linking fails, the new upload is deleted instead.
func (b *Board) AttachDocument(ctx context.Context, customerID string, kind model.DocumentKind, data []byte, mime string) error {
	if b.blobs == nil {
		return invalid("attach document", "no file storage configured")
	}
	c, ok := b.state.Customer(b.ctl.Resolve(model.KindCustomer, customerID))
	if !ok {
		return invalid("attach document", "customer not found")
	}
	if IsProvisional(c.ID) {
		return invalid("attach document", "customer is still being saved")
	}

	fileID, err := b.blobs.Upload(ctx, data, mime)
	if err != nil {
		if errors.Is(err, blob.ErrRejected) {
			return &ValidationError{Action: "attach document", Reason: err.Error()}
		}
		return fmt.Errorf("uploading %s: %w", kind, err)
	}

	old := c.Documents.Get(kind)
	t := b.ctl.Update(model.KindCustomer, c.ID, model.Patch{kind.Field(): &fileID}, "attach "+string(kind))
	if err := t.Wait(ctx); err != nil {
		b.deleteFile(ctx, fileID)
		return fmt.Errorf("linking %s: %w", kind, err)
	}
	if old != nil {
		b.deleteFile(ctx, *old)
	}
	return nil
}

// RemoveDocument unlinks a customer's document and deletes the file.
func (b *Board) RemoveDocument(ctx context.Context, customerID string, kind model.DocumentKind) error {
	c, ok := b.state.Customer(b.ctl.Resolve(model.KindCustomer, customerID))
	if !ok {
		return invalid("remove document", "customer not found")
	}
	old := c.Documents.Get(kind)
	if old == nil {
		return nil
	}

	t := b.ctl.Update(model.KindCustomer, c.ID, model.Patch{kind.Field(): (*string)(nil)}, "remove "+string(kind))
	if err := t.Wait(ctx); err != nil {
		return fmt.Errorf("unlinking %s: %w", kind, err)
	}
	b.deleteFile(ctx, *old)
	return nil
}

// DocumentURL returns a preview or download link for a customer document.
func (b *Board) DocumentURL(c model.Customer, kind model.DocumentKind, mode blob.Mode) (string, bool) {
	ref := c.Documents.Get(kind)
	if ref == nil || b.blobs == nil {
		return "", false
	}
	return b.blobs.URLFor(*ref, mode), true
}

// DeleteCustomer removes a customer and then its document files.
func (b *Board) DeleteCustomer(ctx context.Context, customerID string) error {
	c, ok := b.state.Customer(b.ctl.Resolve(model.KindCustomer, customerID))
	if !ok {
		return invalid("delete customer", "customer not found")
	}

	t := b.ctl.Delete(model.KindCustomer, c.ID, "delete customer")
	if err := t.Wait(ctx); err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}
	for _, kind := range model.DocumentKinds {
		if ref := c.Documents.Get(kind); ref != nil {
			b.deleteFile(ctx, *ref)
		}
	}
	return nil
}

func (b *Board) deleteFile(ctx context.Context, fileID string) {
	if b.blobs == nil {
		return
	}
	if err := b.blobs.Delete(ctx, fileID); err != nil && !errors.Is(err, blob.ErrNotFound) {
		b.log.Warn("deleting file failed", "file", fileID, "error", err)
	}
}

func (b *Board) lead(action, leadID string) (model.Lead, error) {
	lead, ok := b.state.Lead(b.ctl.Resolve(model.KindLead, leadID))
	if !ok {
		return model.Lead{}, invalid(action, "lead not found")
	}
	return lead, nil
}
