package store

import (
	"context"

	"github.com/nhle/leadboard/internal/model"
)

// DefaultListLimit bounds list reads. The hosted backend caps pages at this size.
const DefaultListLimit = 1000

// ListOptions controls sorting and the page size of list reads.
type ListOptions struct {
	SortBy string // "order", "name", "title", "created_at", "updated_at"
	Desc   bool
	Limit  int
}

func (o ListOptions) limit() int {
	if o.Limit <= 0 {
		return DefaultListLimit
	}
	return o.Limit
}

// Store is the typed CRUD facade over the column, lead and customer
// collections. Each call is an independent round-trip; there are no
// multi-record transactions. Errors wrap ErrStoreUnavailable, ErrNotFound
// or ErrStoreConflict.
type Store interface {
	ListColumns(ctx context.Context, opts ListOptions) ([]model.Column, error)
	GetColumn(ctx context.Context, id string) (*model.Column, error)
	CreateColumn(ctx context.Context, col model.Column) (*model.Column, error)
	UpdateColumn(ctx context.Context, id string, patch model.Patch) (*model.Column, error)
	DeleteColumn(ctx context.Context, id string) error

	ListLeads(ctx context.Context, opts ListOptions) ([]model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	UpdateLead(ctx context.Context, id string, patch model.Patch) (*model.Lead, error)
	DeleteLead(ctx context.Context, id string) error

	ListCustomers(ctx context.Context, opts ListOptions) ([]model.Customer, error)
	GetCustomer(ctx context.Context, id string) (*model.Customer, error)
	CreateCustomer(ctx context.Context, c model.Customer) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id string, patch model.Patch) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	SearchCustomers(ctx context.Context, query string, limit int) ([]model.Customer, error)
}
