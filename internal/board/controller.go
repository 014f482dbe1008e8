package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// Phase is where an entity stands in its mutation lifecycle. An entity is
// Applied from the moment a local change is made until every queued remote
// write for it has settled.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseApplied
)

func (p Phase) String() string {
	if p == PhaseApplied {
		return "applied"
	}
	return "idle"
}

// DefaultCallTimeout bounds a single store call made by the controller.
const DefaultCallTimeout = 15 * time.Second

const provisionalPrefix = "pending-"

// IsProvisional reports whether id is a local placeholder for an entity
// whose create has not been confirmed yet.
func IsProvisional(id string) bool {
	return strings.HasPrefix(id, provisionalPrefix)
}

func newProvisionalID() string {
	return provisionalPrefix + uuid.New().String()
}

type laneKey struct {
	kind model.EntityKind
	id   string
}

// lane serializes remote writes for one entity. queue[0] is the mutation
// in flight; the rest wait behind it.
type lane struct {
	key   laneKey
	queue []*mutation
}

// outcome is what a confirmed remote write reports back: the id the store
// holds the entity under and the server's view of its fields.
type outcome struct {
	id     string
	fields model.Patch
}

type mutation struct {
	key     laneKey
	action  string
	epoch   uint64
	touched model.Patch
	persist func(ctx context.Context, id string) (outcome, error)

	// removes marks a delete of the entity itself.
	removes bool

	// cascade mutations report errors to the mutation that queued them
	// instead of triggering their own resync.
	cascade bool
	ticket  *Ticket
}

// Ticket follows one mutation until it settles.
type Ticket struct {
	done chan struct{}
	err  error
	id   string
}

func newTicket(id string) *Ticket {
	return &Ticket{done: make(chan struct{}), id: id}
}

func settled(id string, err error) *Ticket {
	t := newTicket(id)
	t.resolve(err)
	return t
}

func (t *Ticket) resolve(err error) {
	t.err = err
	close(t.done)
}

// ID is the id the mutation was issued for. For creates it is the
// provisional id.
func (t *Ticket) ID() string { return t.id }

// Done is closed once the mutation is confirmed, failed or superseded.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the mutation settles and returns its outcome.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	Timeout time.Duration
	Logger  *slog.Logger
}

// Controller is the only writer of board State. Every user action goes
// through it: the change is applied locally, then persisted in the
// background, one write at a time per entity. Any failed write triggers a
// full resync instead of a targeted rollback.
type Controller struct {
	state   *State
	store   store.Store
	log     *slog.Logger
	timeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	lanes   map[laneKey]*lane
	aliases map[laneKey]string
	// previews holds fields changed by Preview that no write carries yet.
	previews map[laneKey]model.Patch
	busy     int
	idle     chan struct{}

	resyncMu sync.Mutex

	events chan Event
}

// NewController returns a controller writing to s and persisting to st.
func NewController(s *State, st store.Store, opts ControllerOptions) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)

	return &Controller{
		state:    s,
		store:    st,
		log:      opts.Logger,
		timeout:  opts.Timeout,
		ctx:      ctx,
		cancel:   cancel,
		lanes:    make(map[laneKey]*lane),
		aliases:  make(map[laneKey]string),
		previews: make(map[laneKey]model.Patch),
		idle:     idle,
		events:   make(chan Event, eventBuffer),
	}
}

// State returns the board state the controller writes to.
func (c *Controller) State() *State { return c.state }

// Events returns the subscription channel for board changes and notices.
func (c *Controller) Events() <-chan Event { return c.events }

// Close abandons queued writes. Writes already sent to the store may still
// land.
func (c *Controller) Close() {
	c.cancel()
}

// Pending reports whether the entity has unsettled local changes.
func (c *Controller) Pending(kind model.EntityKind, id string) Phase {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := laneKey{kind, c.resolveLocked(kind, id)}
	if l, ok := c.lanes[key]; ok && len(l.queue) > 0 {
		return PhaseApplied
	}
	return PhaseIdle
}

// Removing reports whether a delete of the entity is queued or in flight.
func (c *Controller) Removing(kind model.EntityKind, id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.lanes[laneKey{kind, c.resolveLocked(kind, id)}]
	if !ok {
		return false
	}
	for _, m := range l.queue {
		if m.removes {
			return true
		}
	}
	return false
}

// Settle blocks until no write or resync is outstanding.
func (c *Controller) Settle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resolve maps a provisional id onto the store id once its create is
// confirmed. Other ids are returned unchanged.
func (c *Controller) Resolve(kind model.EntityKind, id string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveLocked(kind, id)
}

func (c *Controller) resolveLocked(kind model.EntityKind, id string) string {
	if real, ok := c.aliases[laneKey{kind, id}]; ok {
		return real
	}
	return id
}

// Preview changes local state only. Drag-over feedback uses it; nothing is
// persisted. Confirmed writes leave previewed fields alone until
// ClearPreview; a resync discards them.
func (c *Controller) Preview(kind model.EntityKind, id string, patch model.Patch) bool {
	patch = patch.Clone()
	id, _, ok := c.applyResolved(kind, id, func(id string) bool {
		return c.state.applyPatchLocked(kind, id, patch)
	})
	if !ok {
		return false
	}

	c.mu.Lock()
	key := laneKey{kind, c.resolveLocked(kind, id)}
	held := c.previews[key]
	if held == nil {
		held = make(model.Patch, len(patch))
		c.previews[key] = held
	}
	for f, v := range patch {
		held[f] = v
	}
	c.mu.Unlock()

	c.publish(Event{Type: EventChanged, Kind: kind, ID: id})
	return true
}

// ClearPreview stops protecting the entity's previewed fields.
func (c *Controller) ClearPreview(kind model.EntityKind, id string) {
	c.mu.Lock()
	delete(c.previews, laneKey{kind, c.resolveLocked(kind, id)})
	c.mu.Unlock()
}

// applyResolved runs apply under the state lock for the entity's current
// id. A create confirmed between resolving and applying is retried once
// under the store id.
func (c *Controller) applyResolved(kind model.EntityKind, id string, apply func(id string) bool) (string, uint64, bool) {
	id = c.Resolve(kind, id)
	var ok bool
	epoch := c.state.update(func() { ok = apply(id) })
	if !ok && IsProvisional(id) {
		if real := c.Resolve(kind, id); real != id {
			id = real
			epoch = c.state.update(func() { ok = apply(id) })
		}
	}
	return id, epoch, ok
}

// Update applies patch locally and queues it for the store. An entity that
// is no longer on the board is left alone.
func (c *Controller) Update(kind model.EntityKind, id string, patch model.Patch, action string) *Ticket {
	patch = patch.Clone()

	id, epoch, applied := c.applyResolved(kind, id, func(id string) bool {
		return c.state.applyPatchLocked(kind, id, patch)
	})
	if !applied {
		c.log.Debug("skipping update of absent entity", "kind", kind, "id", id, "action", action)
		return settled(id, nil)
	}
	c.publish(Event{Type: EventChanged, Kind: kind, ID: id, Epoch: epoch})

	return c.enqueue(&mutation{
		key:     laneKey{kind, id},
		action:  action,
		epoch:   epoch,
		touched: patch,
		persist: func(ctx context.Context, id string) (outcome, error) {
			return c.updateRemote(ctx, kind, id, patch)
		},
	})
}

// Create inserts entity under a provisional id and queues the store
// create. The provisional id is swapped for the store's id on confirmation;
// writes queued against the provisional id follow it.
func (c *Controller) Create(entity any, action string) *Ticket {
	id := newProvisionalID()

	var kind model.EntityKind
	switch e := entity.(type) {
	case model.Column:
		kind = model.KindColumn
		e.ID = id
		entity = e
	case model.Lead:
		kind = model.KindLead
		e.ID = id
		entity = e
	case model.Customer:
		kind = model.KindCustomer
		e.ID = id
		entity = e
	default:
		return settled("", fmt.Errorf("creating %T: unsupported entity", entity))
	}

	epoch := c.state.update(func() { c.state.insertLocked(entity) })
	c.publish(Event{Type: EventChanged, Kind: kind, ID: id, Epoch: epoch})

	return c.enqueue(&mutation{
		key:    laneKey{kind, id},
		action: action,
		epoch:  epoch,
		persist: func(ctx context.Context, _ string) (outcome, error) {
			return c.createRemote(ctx, entity)
		},
	})
}

// Delete removes the entity locally and queues the store delete. A store
// NotFound counts as success.
func (c *Controller) Delete(kind model.EntityKind, id string, action string) *Ticket {
	id, epoch, removed := c.applyResolved(kind, id, func(id string) bool {
		return c.state.removeLocked(kind, id)
	})
	if removed {
		c.publish(Event{Type: EventChanged, Kind: kind, ID: id, Epoch: epoch})
	}

	return c.enqueue(&mutation{
		key:     laneKey{kind, id},
		action:  action,
		epoch:   epoch,
		removes: true,
		persist: func(ctx context.Context, id string) (outcome, error) {
			return outcome{}, c.deleteRemote(ctx, kind, id)
		},
	})
}

// DeleteColumn deletes every lead of the column concurrently, waits for
// all of them, then deletes the column. Local state loses the column and
// its leads in one step, after the column delete succeeds. The column
// delete is attempted even if some lead deletes fail; the failure then
// triggers a resync, which surfaces any surviving leads as orphans.
//
// The leads deleted are those in the column when DeleteColumn is called.
// Callers keep new leads out of the column while Removing reports true.
func (c *Controller) DeleteColumn(columnID string) *Ticket {
	columnID = c.Resolve(model.KindColumn, columnID)
	epoch := c.state.Epoch()

	var leadIDs []string
	for _, l := range c.state.Leads() {
		if l.ColumnID == columnID {
			leadIDs = append(leadIDs, l.ID)
		}
	}

	return c.enqueue(&mutation{
		key:     laneKey{model.KindColumn, columnID},
		action:  "delete column",
		epoch:   epoch,
		removes: true,
		persist: func(ctx context.Context, id string) (outcome, error) {
			var g errgroup.Group
			for _, leadID := range leadIDs {
				t := c.enqueue(&mutation{
					key:     laneKey{model.KindLead, leadID},
					action:  "delete lead",
					epoch:   epoch,
					cascade: true,
					persist: func(ctx context.Context, id string) (outcome, error) {
						return outcome{}, c.deleteRemote(ctx, model.KindLead, id)
					},
				})
				g.Go(func() error { return t.Wait(ctx) })
			}
			leadErr := g.Wait()
			if leadErr != nil {
				leadErr = fmt.Errorf("deleting leads of column %s: %w", id, leadErr)
			}

			if err := c.deleteRemote(ctx, model.KindColumn, id); err != nil {
				return outcome{}, errors.Join(leadErr, err)
			}
			if c.state.updateAt(epoch, func() { c.state.removeColumnLocked(id) }) {
				c.publish(Event{Type: EventChanged, Kind: model.KindColumn, ID: id, Epoch: epoch})
			}
			return outcome{}, leadErr
		},
	})
}

// Load replaces the board with a fresh read of every collection.
func (c *Controller) Load(ctx context.Context) error {
	c.enter()
	defer c.leave()

	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()
	return c.reload(ctx)
}

// Resync discards all unconfirmed local state and reloads the board.
// Responses to writes issued before the resync are ignored.
func (c *Controller) Resync(ctx context.Context) error {
	c.enter()
	defer c.leave()

	c.resyncMu.Lock()
	defer c.resyncMu.Unlock()

	c.state.advance()
	if err := c.reload(ctx); err != nil {
		c.notice("board reload failed", err)
		return err
	}
	return nil
}

func (c *Controller) reload(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cols, err := c.store.ListColumns(gctx, store.ListOptions{SortBy: "order"})
		snap.Columns = cols
		return err
	})
	g.Go(func() error {
		leads, err := c.store.ListLeads(gctx, store.ListOptions{SortBy: "order"})
		snap.Leads = leads
		return err
	})
	g.Go(func() error {
		customers, err := c.store.ListCustomers(gctx, store.ListOptions{SortBy: "name"})
		snap.Customers = customers
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading board: %w", err)
	}

	epoch := c.state.replace(snap)

	c.mu.Lock()
	c.aliases = make(map[laneKey]string)
	c.previews = make(map[laneKey]model.Patch)
	c.mu.Unlock()

	c.log.Debug("board loaded",
		"epoch", epoch,
		"columns", len(snap.Columns),
		"leads", len(snap.Leads),
		"customers", len(snap.Customers),
	)
	c.publish(Event{Type: EventResynced, Epoch: epoch})
	return nil
}

// SetUsers replaces the user projection used for assignment.
func (c *Controller) SetUsers(users []model.User) {
	c.state.setUsers(users)
	c.publish(Event{Type: EventChanged})
}

func (c *Controller) enqueue(m *mutation) *Ticket {
	m.ticket = newTicket(m.key.id)

	c.mu.Lock()
	m.key.id = c.resolveLocked(m.key.kind, m.key.id)
	c.enterLocked()
	l, running := c.lanes[m.key]
	if !running {
		l = &lane{key: m.key}
		c.lanes[m.key] = l
	}
	l.queue = append(l.queue, m)
	c.mu.Unlock()

	if !running {
		go c.drain(l)
	}
	return m.ticket
}

// drain runs a lane's mutations in order until the queue is empty.
func (c *Controller) drain(l *lane) {
	for {
		c.mu.Lock()
		if len(l.queue) == 0 {
			if c.lanes[l.key] == l {
				delete(c.lanes, l.key)
			}
			c.mu.Unlock()
			return
		}
		m := l.queue[0]
		c.mu.Unlock()

		c.run(l, m)

		c.mu.Lock()
		l.queue = l.queue[1:]
		c.leaveLocked()
		c.mu.Unlock()
	}
}

func (c *Controller) run(l *lane, m *mutation) {
	if m.epoch != c.state.Epoch() {
		c.log.Debug("dropping superseded mutation", "kind", m.key.kind, "id", m.key.id, "action", m.action, "epoch", m.epoch)
		m.ticket.resolve(ErrSuperseded)
		return
	}

	id := c.Resolve(m.key.kind, m.key.id)
	out, err := m.persist(c.ctx, id)
	if err != nil {
		if !m.cascade {
			c.fail(m, id, err)
		}
		m.ticket.resolve(err)
		return
	}

	if out.id != "" && out.id != id {
		c.confirmCreate(l, m, id, out.id)
		id = out.id
	}
	if len(out.fields) > 0 {
		c.merge(l, m, id, out.fields)
	}
	m.ticket.resolve(nil)
}

// confirmCreate moves a created entity, its lane and its alias from the
// provisional id to the store id in one step. c.mu is held across the
// state rekey so no caller can see the store id in State before it
// resolves to this lane.
func (c *Controller) confirmCreate(l *lane, m *mutation, provisional, real string) {
	c.mu.Lock()
	rekeyed := c.state.updateAt(m.epoch, func() { c.state.rekeyLocked(m.key.kind, provisional, real) })
	if rekeyed {
		old := laneKey{m.key.kind, provisional}
		c.aliases[old] = real
		if c.lanes[l.key] == l {
			delete(c.lanes, l.key)
		}
		l.key = laneKey{m.key.kind, real}
		c.lanes[l.key] = l
		if p, ok := c.previews[old]; ok {
			delete(c.previews, old)
			c.previews[l.key] = p
		}
	}
	c.mu.Unlock()
	if !rekeyed {
		return
	}

	c.publish(Event{Type: EventChanged, Kind: m.key.kind, ID: real, Epoch: m.epoch})
}

// merge folds server fields into local state, skipping fields that writes
// still queued behind m or an active preview have changed locally.
func (c *Controller) merge(l *lane, m *mutation, id string, fields model.Patch) {
	later := make(map[model.Field]struct{})
	c.mu.Lock()
	for _, next := range l.queue[1:] {
		for f := range next.touched {
			later[f] = struct{}{}
		}
	}
	for f := range c.previews[laneKey{m.key.kind, id}] {
		later[f] = struct{}{}
	}
	c.mu.Unlock()

	patch := fields.Without(later)
	if c.state.updateAt(m.epoch, func() { c.state.applyPatchLocked(m.key.kind, id, patch) }) {
		c.publish(Event{Type: EventChanged, Kind: m.key.kind, ID: id, Epoch: m.epoch})
	}
}

func (c *Controller) fail(m *mutation, id string, err error) {
	c.log.Warn("persisting change failed",
		"kind", m.key.kind,
		"id", id,
		"action", m.action,
		"epoch", m.epoch,
		"error", err,
	)
	if c.ctx.Err() != nil {
		return
	}
	c.notice(fmt.Sprintf("change reverted: %s failed", m.action), err)

	// A newer epoch means a resync started after this write was issued
	// and already covers it.
	if c.state.Epoch() != m.epoch {
		return
	}
	_ = c.Resync(c.ctx)
}

func (c *Controller) notice(msg string, err error) {
	c.publish(Event{Type: EventNotice, Message: msg, Err: err, Epoch: c.state.Epoch()})
}

// publish sends an event without blocking.
func (c *Controller) publish(ev Event) {
	select {
	case c.events <- ev:
	default:
		// Drop if the subscriber is behind; State is always current.
	}
}

func (c *Controller) enter() {
	c.mu.Lock()
	c.enterLocked()
	c.mu.Unlock()
}

func (c *Controller) leave() {
	c.mu.Lock()
	c.leaveLocked()
	c.mu.Unlock()
}

func (c *Controller) enterLocked() {
	if c.busy == 0 {
		c.idle = make(chan struct{})
	}
	c.busy++
}

func (c *Controller) leaveLocked() {
	c.busy--
	if c.busy == 0 {
		close(c.idle)
	}
}

func (c *Controller) call(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Controller) updateRemote(ctx context.Context, kind model.EntityKind, id string, patch model.Patch) (outcome, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	switch kind {
	case model.KindColumn:
		col, err := c.store.UpdateColumn(ctx, id, patch)
		if err != nil {
			return outcome{}, err
		}
		return outcome{fields: col.AsPatch()}, nil
	case model.KindLead:
		if patch.Has(model.FieldColumnID) {
			patch = patch.Clone()
			patch[model.FieldColumnID] = c.Resolve(model.KindColumn, columnOf(patch))
		}
		lead, err := c.store.UpdateLead(ctx, id, patch)
		if err != nil {
			return outcome{}, err
		}
		return outcome{fields: lead.AsPatch()}, nil
	case model.KindCustomer:
		cust, err := c.store.UpdateCustomer(ctx, id, patch)
		if err != nil {
			return outcome{}, err
		}
		return outcome{fields: cust.AsPatch()}, nil
	}
	return outcome{}, fmt.Errorf("updating %s %s: unsupported kind", kind, id)
}

func (c *Controller) createRemote(ctx context.Context, entity any) (outcome, error) {
	ctx, cancel := c.call(ctx)
	defer cancel()

	switch e := entity.(type) {
	case model.Column:
		e.ID = ""
		col, err := c.store.CreateColumn(ctx, e)
		if err != nil {
			return outcome{}, err
		}
		return outcome{id: col.ID, fields: col.AsPatch()}, nil
	case model.Lead:
		e.ID = ""
		e.ColumnID = c.Resolve(model.KindColumn, e.ColumnID)
		lead, err := c.store.CreateLead(ctx, e)
		if err != nil {
			return outcome{}, err
		}
		return outcome{id: lead.ID, fields: lead.AsPatch()}, nil
	case model.Customer:
		e.ID = ""
		cust, err := c.store.CreateCustomer(ctx, e)
		if err != nil {
			return outcome{}, err
		}
		return outcome{id: cust.ID, fields: cust.AsPatch()}, nil
	}
	return outcome{}, fmt.Errorf("creating %T: unsupported entity", entity)
}

func (c *Controller) deleteRemote(ctx context.Context, kind model.EntityKind, id string) error {
	ctx, cancel := c.call(ctx)
	defer cancel()

	var err error
	switch kind {
	case model.KindColumn:
		err = c.store.DeleteColumn(ctx, id)
	case model.KindLead:
		err = c.store.DeleteLead(ctx, id)
	case model.KindCustomer:
		err = c.store.DeleteCustomer(ctx, id)
	default:
		return fmt.Errorf("deleting %s %s: unsupported kind", kind, id)
	}
	if store.IsNotFound(err) {
		return nil
	}
	return err
}

func columnOf(p model.Patch) string {
	if s, ok := p[model.FieldColumnID].(string); ok {
		return s
	}
	return ""
}
