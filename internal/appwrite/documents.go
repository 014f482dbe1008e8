package appwrite

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

// Collections names the three collections inside a database.
type Collections struct {
	Columns   string
	Leads     string
	Customers string
}

// Documents is a store.Store over the hosted document database.
type Documents struct {
	client      *Client
	database    string
	collections Collections
}

var _ store.Store = (*Documents)(nil)

// NewDocuments returns a store over the given database and collections.
func NewDocuments(c *Client, databaseID string, cols Collections) *Documents {
	return &Documents{client: c, database: databaseID, collections: cols}
}

type documentList[T any] struct {
	Total     int `json:"total"`
	Documents []T `json:"documents"`
}

type createBody struct {
	DocumentID string         `json:"documentId"`
	Data       map[string]any `json:"data"`
}

type updateBody struct {
	Data map[string]any `json:"data"`
}

func (d *Documents) path(collection string, id ...string) string {
	p := "/databases/" + url.PathEscape(d.database) + "/collections/" + url.PathEscape(collection) + "/documents"
	if len(id) > 0 {
		p += "/" + url.PathEscape(id[0])
	}
	return p
}

var sortAttrs = map[string]string{
	"order":      "order",
	"name":       "name",
	"title":      "title",
	"created_at": "$createdAt",
	"updated_at": "$updatedAt",
}

func listQueries(opts store.ListOptions, def string) (url.Values, error) {
	attr, ok := sortAttrs[opts.SortBy]
	if !ok {
		attr = def
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = store.DefaultListLimit
	}
	return encodeQueries(orderQuery(attr, opts.Desc), limitQuery(limit))
}

// list, get, create, update and remove are shared by the three kinds.

func list[T any](ctx context.Context, d *Documents, kind model.EntityKind, collection string, q url.Values) ([]T, error) {
	var out documentList[T]
	if err := d.client.doJSON(ctx, http.MethodGet, d.path(collection), q, nil, &out); err != nil {
		return nil, classify("listing", kind, "", err)
	}
	return out.Documents, nil
}

func get[T any](ctx context.Context, d *Documents, kind model.EntityKind, collection, id string) (*T, error) {
	var out T
	if err := d.client.doJSON(ctx, http.MethodGet, d.path(collection, id), nil, nil, &out); err != nil {
		return nil, classify("getting", kind, id, err)
	}
	return &out, nil
}

func create[T any](ctx context.Context, d *Documents, kind model.EntityKind, collection string, data map[string]any) (*T, error) {
	var out T
	body := createBody{DocumentID: "unique()", Data: data}
	if err := d.client.doJSON(ctx, http.MethodPost, d.path(collection), nil, body, &out); err != nil {
		return nil, classify("creating", kind, "", err)
	}
	return &out, nil
}

func update[T any](ctx context.Context, d *Documents, kind model.EntityKind, collection, id string, data map[string]any) (*T, error) {
	var out T
	if err := d.client.doJSON(ctx, http.MethodPatch, d.path(collection, id), nil, updateBody{Data: data}, &out); err != nil {
		return nil, classify("updating", kind, id, err)
	}
	return &out, nil
}

func (d *Documents) remove(ctx context.Context, kind model.EntityKind, collection, id string) error {
	if err := d.client.doJSON(ctx, http.MethodDelete, d.path(collection, id), nil, nil, nil); err != nil {
		return classify("deleting", kind, id, err)
	}
	return nil
}

// ListColumns returns columns sorted by order unless opts says otherwise.
func (d *Documents) ListColumns(ctx context.Context, opts store.ListOptions) ([]model.Column, error) {
	q, err := listQueries(opts, "order")
	if err != nil {
		return nil, err
	}
	docs, err := list[columnDoc](ctx, d, model.KindColumn, d.collections.Columns, q)
	if err != nil {
		return nil, err
	}
	cols := make([]model.Column, 0, len(docs))
	for _, doc := range docs {
		cols = append(cols, doc.toModel())
	}
	return cols, nil
}

func (d *Documents) GetColumn(ctx context.Context, id string) (*model.Column, error) {
	doc, err := get[columnDoc](ctx, d, model.KindColumn, d.collections.Columns, id)
	if err != nil {
		return nil, err
	}
	col := doc.toModel()
	return &col, nil
}

func (d *Documents) CreateColumn(ctx context.Context, col model.Column) (*model.Column, error) {
	doc, err := create[columnDoc](ctx, d, model.KindColumn, d.collections.Columns, encodePatch(col.AsPatch(), columnAttrs))
	if err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (d *Documents) UpdateColumn(ctx context.Context, id string, patch model.Patch) (*model.Column, error) {
	doc, err := update[columnDoc](ctx, d, model.KindColumn, d.collections.Columns, id, encodePatch(patch, columnAttrs))
	if err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (d *Documents) DeleteColumn(ctx context.Context, id string) error {
	return d.remove(ctx, model.KindColumn, d.collections.Columns, id)
}

// ListLeads returns leads, completed ones included, sorted by order.
func (d *Documents) ListLeads(ctx context.Context, opts store.ListOptions) ([]model.Lead, error) {
	q, err := listQueries(opts, "order")
	if err != nil {
		return nil, err
	}
	docs, err := list[leadDoc](ctx, d, model.KindLead, d.collections.Leads, q)
	if err != nil {
		return nil, err
	}
	leads := make([]model.Lead, 0, len(docs))
	for _, doc := range docs {
		leads = append(leads, doc.toModel())
	}
	return leads, nil
}

func (d *Documents) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	doc, err := get[leadDoc](ctx, d, model.KindLead, d.collections.Leads, id)
	if err != nil {
		return nil, err
	}
	l := doc.toModel()
	return &l, nil
}

func (d *Documents) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	doc, err := create[leadDoc](ctx, d, model.KindLead, d.collections.Leads, encodePatch(lead.AsPatch(), leadAttrs))
	if err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (d *Documents) UpdateLead(ctx context.Context, id string, patch model.Patch) (*model.Lead, error) {
	doc, err := update[leadDoc](ctx, d, model.KindLead, d.collections.Leads, id, encodePatch(patch, leadAttrs))
	if err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (d *Documents) DeleteLead(ctx context.Context, id string) error {
	return d.remove(ctx, model.KindLead, d.collections.Leads, id)
}

// ListCustomers returns customers sorted by name.
func (d *Documents) ListCustomers(ctx context.Context, opts store.ListOptions) ([]model.Customer, error) {
	q, err := listQueries(opts, "name")
	if err != nil {
		return nil, err
	}
	docs, err := list[customerDoc](ctx, d, model.KindCustomer, d.collections.Customers, q)
	if err != nil {
		return nil, err
	}
	return customers(docs), nil
}

// SearchCustomers runs a full-text search on the name attribute.
func (d *Documents) SearchCustomers(ctx context.Context, text string, limit int) ([]model.Customer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	q, err := encodeQueries(searchQuery("name", text), limitQuery(limit))
	if err != nil {
		return nil, err
	}
	docs, err := list[customerDoc](ctx, d, model.KindCustomer, d.collections.Customers, q)
	if err != nil {
		return nil, err
	}
	return customers(docs), nil
}

func (d *Documents) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	doc, err := get[customerDoc](ctx, d, model.KindCustomer, d.collections.Customers, id)
	if err != nil {
		return nil, err
	}
	c := doc.toModel()
	return &c, nil
}

// CreateCustomer stores c with its name uppercased.
func (d *Documents) CreateCustomer(ctx context.Context, c model.Customer) (*model.Customer, error) {
	c.Name = strings.ToUpper(c.Name)
	doc, err := create[customerDoc](ctx, d, model.KindCustomer, d.collections.Customers, encodePatch(c.AsPatch(), customerAttrs))
	if err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (d *Documents) UpdateCustomer(ctx context.Context, id string, patch model.Patch) (*model.Customer, error) {
	doc, err := update[customerDoc](ctx, d, model.KindCustomer, d.collections.Customers, id, encodePatch(patch, customerAttrs))
	if err != nil {
		return nil, err
	}
	out := doc.toModel()
	return &out, nil
}

func (d *Documents) DeleteCustomer(ctx context.Context, id string) error {
	return d.remove(ctx, model.KindCustomer, d.collections.Customers, id)
}

func customers(docs []customerDoc) []model.Customer {
	out := make([]model.Customer, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toModel())
	}
	return out
}
