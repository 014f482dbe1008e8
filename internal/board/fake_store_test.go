package board_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// call is one recorded store request.
type call struct {
	Op    string
	Kind  model.EntityKind
	ID    string
	Patch model.Patch
}

func (c call) key() string { return fmt.Sprintf("%s %s %s", c.Op, c.Kind, c.ID) }

// fakeStore is a scripted in-memory store. Calls can be gated (held until
// the test releases them) or made to fail, and every call is recorded.
type fakeStore struct {
	mu        sync.Mutex
	columns   []model.Column
	leads     []model.Lead
	customers []model.Customer
	calls     []call
	failures  map[string]error
	gates     map[string]chan struct{}
	seq       int

	started chan call
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		failures: make(map[string]error),
		gates:    make(map[string]chan struct{}),
		started:  make(chan call, 256),
	}
}

func (f *fakeStore) addColumn(id, title string, order int) {
	f.columns = append(f.columns, model.Column{ID: id, Title: title, Order: order})
}

func (f *fakeStore) addLead(l model.Lead) {
	if l.Title == "" {
		l.Title = l.ID
	}
	f.leads = append(f.leads, l)
}

// gate holds the matching call until the returned function is called.
func (f *fakeStore) gate(op string, kind model.EntityKind, id string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[call{Op: op, Kind: kind, ID: id}.key()] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// fail makes every matching call return err.
func (f *fakeStore) fail(op string, kind model.EntityKind, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[call{Op: op, Kind: kind, ID: id}.key()] = err
}

func (f *fakeStore) clearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]error)
}

func (f *fakeStore) record(c call) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	gate := f.gates[c.key()]
	f.mu.Unlock()

	select {
	case f.started <- c:
	default:
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[c.key()]; ok {
		return err
	}
	return nil
}

// Calls returns every recorded call.
func (f *fakeStore) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

// Mutations returns recorded calls other than reads.
func (f *fakeStore) Mutations() []call {
	var out []call
	for _, c := range f.Calls() {
		if c.Op != "list" && c.Op != "get" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeStore) count(op string, kind model.EntityKind) int {
	n := 0
	for _, c := range f.Calls() {
		if c.Op == op && c.Kind == kind {
			n++
		}
	}
	return n
}

// waitStarted blocks until a call matching op, kind and id has been issued.
func (f *fakeStore) waitStarted(t *testing.T, op string, kind model.EntityKind, id string) call {
	t.Helper()
	want := call{Op: op, Kind: kind, ID: id}.key()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c := <-f.started:
			if c.key() == want {
				return c
			}
		case <-timeout:
			require.FailNow(t, "call never started", want)
			return call{}
		}
	}
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func notFound(op string, kind model.EntityKind, id string) error {
	return store.NewError(op, kind, id, store.ErrNotFound, nil)
}

func (f *fakeStore) ListColumns(ctx context.Context, _ store.ListOptions) ([]model.Column, error) {
	if err := f.record(call{Op: "list", Kind: model.KindColumn}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Column(nil), f.columns...), nil
}

func (f *fakeStore) GetColumn(ctx context.Context, id string) (*model.Column, error) {
	if err := f.record(call{Op: "get", Kind: model.KindColumn, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.columns {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, notFound("getting", model.KindColumn, id)
}

func (f *fakeStore) CreateColumn(ctx context.Context, col model.Column) (*model.Column, error) {
	if err := f.record(call{Op: "create", Kind: model.KindColumn, Patch: col.AsPatch()}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	col.ID = f.nextID("col")
	f.columns = append(f.columns, col)
	return &col, nil
}

func (f *fakeStore) UpdateColumn(ctx context.Context, id string, patch model.Patch) (*model.Column, error) {
	if err := f.record(call{Op: "update", Kind: model.KindColumn, ID: id, Patch: patch.Clone()}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.columns {
		if f.columns[i].ID == id {
			f.columns[i].Apply(patch)
			c := f.columns[i]
			return &c, nil
		}
	}
	return nil, notFound("updating", model.KindColumn, id)
}

func (f *fakeStore) DeleteColumn(ctx context.Context, id string) error {
	if err := f.record(call{Op: "delete", Kind: model.KindColumn, ID: id}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.columns {
		if f.columns[i].ID == id {
			f.columns = append(f.columns[:i], f.columns[i+1:]...)
			return nil
		}
	}
	return notFound("deleting", model.KindColumn, id)
}

func (f *fakeStore) ListLeads(ctx context.Context, _ store.ListOptions) ([]model.Lead, error) {
	if err := f.record(call{Op: "list", Kind: model.KindLead}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Lead, 0, len(f.leads))
	for _, l := range f.leads {
		out = append(out, l.Clone())
	}
	return out, nil
}

func (f *fakeStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	if err := f.record(call{Op: "get", Kind: model.KindLead, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.leads {
		if l.ID == id {
			c := l.Clone()
			return &c, nil
		}
	}
	return nil, notFound("getting", model.KindLead, id)
}

func (f *fakeStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if err := f.record(call{Op: "create", Kind: model.KindLead, Patch: lead.AsPatch()}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lead.ID = f.nextID("lead")
	f.leads = append(f.leads, lead.Clone())
	return &lead, nil
}

func (f *fakeStore) UpdateLead(ctx context.Context, id string, patch model.Patch) (*model.Lead, error) {
	if err := f.record(call{Op: "update", Kind: model.KindLead, ID: id, Patch: patch.Clone()}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads[i].Apply(patch)
			c := f.leads[i].Clone()
			return &c, nil
		}
	}
	return nil, notFound("updating", model.KindLead, id)
}

func (f *fakeStore) DeleteLead(ctx context.Context, id string) error {
	if err := f.record(call{Op: "delete", Kind: model.KindLead, ID: id}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.leads {
		if f.leads[i].ID == id {
			f.leads = append(f.leads[:i], f.leads[i+1:]...)
			return nil
		}
	}
	return notFound("deleting", model.KindLead, id)
}

func (f *fakeStore) ListCustomers(ctx context.Context, _ store.ListOptions) ([]model.Customer, error) {
	if err := f.record(call{Op: "list", Kind: model.KindCustomer}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Customer, 0, len(f.customers))
	for _, c := range f.customers {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (f *fakeStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	if err := f.record(call{Op: "get", Kind: model.KindCustomer, ID: id}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.ID == id {
			cc := c.Clone()
			return &cc, nil
		}
	}
	return nil, notFound("getting", model.KindCustomer, id)
}

func (f *fakeStore) CreateCustomer(ctx context.Context, c model.Customer) (*model.Customer, error) {
	if err := f.record(call{Op: "create", Kind: model.KindCustomer, Patch: c.AsPatch()}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("cust")
	f.customers = append(f.customers, c.Clone())
	return &c, nil
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, id string, patch model.Patch) (*model.Customer, error) {
	if err := f.record(call{Op: "update", Kind: model.KindCustomer, ID: id, Patch: patch.Clone()}); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.customers {
		if f.customers[i].ID == id {
			f.customers[i].Apply(patch)
			c := f.customers[i].Clone()
			return &c, nil
		}
	}
	return nil, notFound("updating", model.KindCustomer, id)
}

func (f *fakeStore) DeleteCustomer(ctx context.Context, id string) error {
	if err := f.record(call{Op: "delete", Kind: model.KindCustomer, ID: id}); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.customers {
		if f.customers[i].ID == id {
			f.customers = append(f.customers[:i], f.customers[i+1:]...)
			return nil
		}
	}
	return notFound("deleting", model.KindCustomer, id)
}

func (f *fakeStore) SearchCustomers(ctx context.Context, query string, limit int) ([]model.Customer, error) {
	return nil, nil
}

// fakeBlobs records uploads and deletes.
type fakeBlobs struct {
	mu      sync.Mutex
	seq     int
	files   map[string][]byte
	deleted []string
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{files: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	id := fmt.Sprintf("file-%d", b.seq)
	b.files[id] = data
	return id, nil
}

func (b *fakeBlobs) Delete(ctx context.Context, fileID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.files, fileID)
	b.deleted = append(b.deleted, fileID)
	return nil
}

func (b *fakeBlobs) URLFor(fileID string, mode blob.Mode) string {
	return "mem://" + fileID + "/" + mode.String()
}
