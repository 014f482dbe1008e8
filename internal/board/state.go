package board

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nhle/leadboard/internal/model"
)

// Snapshot is a full copy of the board's entities, as loaded from the store.
type Snapshot struct {
	Columns   []model.Column
	Leads     []model.Lead
	Customers []model.Customer
	Users     []model.User
}

// Reminder is a lead carrying reminder text, resolved against its column.
type Reminder struct {
	Lead        model.Lead
	ColumnTitle string
}

// State is the local projection of the board. Reads are safe from any
// goroutine; writes are made only by the Controller.
//
// Leads are kept in insertion order, which is the tie-breaker for leads
// sharing an order value.
type State struct {
	mu        sync.RWMutex
	epoch     uint64
	columns   []model.Column
	leads     []model.Lead
	customers []model.Customer
	users     []model.User
}

// NewState returns an empty board at epoch zero.
func NewState() *State {
	return &State{}
}

// Epoch identifies the current generation of the board. It advances on
// every resync; responses issued under an older epoch are stale.
func (s *State) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Columns returns the columns in display order (order, then id).
func (s *State) Columns() []model.Column {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]model.Column(nil), s.columns...)
	sortColumns(out)
	return out
}

// Column returns the column with the given id.
func (s *State) Column(id string) (model.Column, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.columns {
		if c.ID == id {
			return c, true
		}
	}
	return model.Column{}, false
}

// Leads returns every lead, completed ones included, in insertion order.
func (s *State) Leads() []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLeads(s.leads)
}

// Lead returns the lead with the given id.
func (s *State) Lead(id string) (model.Lead, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.leadIndex(id); i >= 0 {
		return s.leads[i].Clone(), true
	}
	return model.Lead{}, false
}

// LeadsInColumn returns the open leads of a column sorted ascending by
// order. Leads with equal order keep their insertion order.
func (s *State) LeadsInColumn(columnID string) []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return leadsInColumn(s.leads, columnID, "")
}

// CompletedLeads returns the soft-deleted leads, most recently updated first.
func (s *State) CompletedLeads() []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Lead
	for _, l := range s.leads {
		if l.IsCompleted {
			out = append(out, l.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// OrphanedLeads returns open leads whose column no longer exists.
func (s *State) OrphanedLeads() []model.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()

	known := make(map[string]bool, len(s.columns))
	for _, c := range s.columns {
		known[c.ID] = true
	}
	var out []model.Lead
	for _, l := range s.leads {
		if !l.IsCompleted && !known[l.ColumnID] {
			out = append(out, l.Clone())
		}
	}
	return out
}

// Reminders returns leads with reminder text, earliest timed reminder
// first; reminders without a time come last.
func (s *State) Reminders() []Reminder {
	s.mu.RLock()
	defer s.mu.RUnlock()

	titles := make(map[string]string, len(s.columns))
	for _, c := range s.columns {
		titles[c.ID] = c.Title
	}

	var out []Reminder
	for _, l := range s.leads {
		if !l.HasReminder() {
			continue
		}
		title, ok := titles[l.ColumnID]
		if !ok {
			title = "Unknown"
		}
		out = append(out, Reminder{Lead: l.Clone(), ColumnTitle: title})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Lead.ReminderAt, out[j].Lead.ReminderAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return out
}

// DueReminders returns timed reminders at or before now.
func (s *State) DueReminders(now time.Time) []Reminder {
	var due []Reminder
	for _, r := range s.Reminders() {
		at, ok := r.Lead.ReminderTime()
		if ok && !at.After(now) {
			due = append(due, r)
		}
	}
	return due
}

// Customers returns the customer directory ordered by name.
func (s *State) Customers() []model.Customer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Customer returns the customer with the given id.
func (s *State) Customer(id string) (model.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.ID == id {
			return c.Clone(), true
		}
	}
	return model.Customer{}, false
}

// CustomerByName finds a customer by exact name.
func (s *State) CustomerByName(name string) (model.Customer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if c.Name == name {
			return c.Clone(), true
		}
	}
	return model.Customer{}, false
}

// SearchCustomers filters the directory by a case-insensitive name substring.
func (s *State) SearchCustomers(query string) []model.Customer {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}
	var out []model.Customer
	for _, c := range s.Customers() {
		if strings.Contains(strings.ToLower(c.Name), query) {
			out = append(out, c)
		}
	}
	return out
}

// Users returns the identity provider's user projection.
func (s *State) Users() []model.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.User(nil), s.users...)
}

// User returns the user with the given id.
func (s *State) User(id string) (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return model.User{}, false
}

// ApplyPatch replaces the patched fields of the matching entity. It is a
// no-op, returning false, when the entity is absent.
func (s *State) ApplyPatch(kind model.EntityKind, id string, patch model.Patch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyPatchLocked(kind, id, patch)
}

func (s *State) applyPatchLocked(kind model.EntityKind, id string, patch model.Patch) bool {
	switch kind {
	case model.KindColumn:
		for i := range s.columns {
			if s.columns[i].ID == id {
				s.columns[i].Apply(patch)
				return true
			}
		}
	case model.KindLead:
		if i := s.leadIndex(id); i >= 0 {
			s.leads[i].Apply(patch)
			return true
		}
	case model.KindCustomer:
		for i := range s.customers {
			if s.customers[i].ID == id {
				s.customers[i].Apply(patch)
				return true
			}
		}
	}
	return false
}

// update runs fn under the write lock and returns the epoch it ran in.
func (s *State) update(fn func()) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	return s.epoch
}

// updateAt runs fn only if the board is still at epoch. Confirmations of
// superseded mutations go through here and are dropped.
func (s *State) updateAt(epoch uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return false
	}
	fn()
	return true
}

// replace swaps in a fresh snapshot and advances the epoch.
func (s *State) replace(snap Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.columns = append([]model.Column(nil), snap.Columns...)
	s.leads = cloneLeads(snap.Leads)
	s.customers = make([]model.Customer, 0, len(snap.Customers))
	for _, c := range snap.Customers {
		s.customers = append(s.customers, c.Clone())
	}
	if snap.Users != nil {
		s.users = append([]model.User(nil), snap.Users...)
	}
	s.epoch++
	return s.epoch
}

// advance bumps the epoch without touching data, invalidating every
// response still in flight.
func (s *State) advance() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	return s.epoch
}

func (s *State) setUsers(users []model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append([]model.User(nil), users...)
}

func (s *State) insertLocked(entity any) {
	switch e := entity.(type) {
	case model.Column:
		s.columns = append(s.columns, e)
	case model.Lead:
		s.leads = append(s.leads, e.Clone())
	case model.Customer:
		s.customers = append(s.customers, e.Clone())
	}
}

func (s *State) removeLocked(kind model.EntityKind, id string) bool {
	switch kind {
	case model.KindColumn:
		for i := range s.columns {
			if s.columns[i].ID == id {
				s.columns = append(s.columns[:i], s.columns[i+1:]...)
				return true
			}
		}
	case model.KindLead:
		if i := s.leadIndex(id); i >= 0 {
			s.leads = append(s.leads[:i], s.leads[i+1:]...)
			return true
		}
	case model.KindCustomer:
		for i := range s.customers {
			if s.customers[i].ID == id {
				s.customers = append(s.customers[:i], s.customers[i+1:]...)
				return true
			}
		}
	}
	return false
}

// removeColumnLocked drops a column and every lead that belongs to it.
func (s *State) removeColumnLocked(columnID string) {
	s.removeLocked(model.KindColumn, columnID)
	kept := s.leads[:0]
	for _, l := range s.leads {
		if l.ColumnID != columnID {
			kept = append(kept, l)
		}
	}
	s.leads = kept
}

// rekeyLocked replaces the provisional id of a created entity with the id
// the store assigned, keeping its position and any local edits.
func (s *State) rekeyLocked(kind model.EntityKind, oldID, newID string) bool {
	switch kind {
	case model.KindColumn:
		for i := range s.columns {
			if s.columns[i].ID == oldID {
				s.columns[i].ID = newID
				for j := range s.leads {
					if s.leads[j].ColumnID == oldID {
						s.leads[j].ColumnID = newID
					}
				}
				return true
			}
		}
	case model.KindLead:
		if i := s.leadIndex(oldID); i >= 0 {
			s.leads[i].ID = newID
			return true
		}
	case model.KindCustomer:
		for i := range s.customers {
			if s.customers[i].ID == oldID {
				s.customers[i].ID = newID
				return true
			}
		}
	}
	return false
}

func (s *State) leadIndex(id string) int {
	for i := range s.leads {
		if s.leads[i].ID == id {
			return i
		}
	}
	return -1
}

// leadsInColumn filters open leads of columnID, skipping exclude, and
// stable-sorts them by order.
func leadsInColumn(leads []model.Lead, columnID, exclude string) []model.Lead {
	var out []model.Lead
	for _, l := range leads {
		if l.ColumnID == columnID && !l.IsCompleted && l.ID != exclude {
			out = append(out, l.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func sortColumns(cols []model.Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		if cols[i].Order != cols[j].Order {
			return cols[i].Order < cols[j].Order
		}
		return cols[i].ID < cols[j].ID
	})
}

func cloneLeads(leads []model.Lead) []model.Lead {
	out := make([]model.Lead, 0, len(leads))
	for _, l := range leads {
		out = append(out, l.Clone())
	}
	return out
}
