package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/nhle/leadboard/internal/model"
)

type columnRow struct {
	ID        string `db:"id"`
	Title     string `db:"title"`
	Order     int    `db:"sort_order"`
	CreatedAt int64  `db:"created_at"`
	UpdatedAt int64  `db:"updated_at"`
}

func (r columnRow) toModel() model.Column {
	return model.Column{
		ID:        r.ID,
		Title:     r.Title,
		Order:     r.Order,
		CreatedAt: fromMillis(r.CreatedAt),
		UpdatedAt: fromMillis(r.UpdatedAt),
	}
}

var columnFields = map[model.Field]string{
	model.FieldTitle: "title",
	model.FieldOrder: "sort_order",
}

var columnSorts = map[string]string{
	"order":      "sort_order",
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// ListColumns returns every column, ordered by sort_order unless opts says otherwise.
func (s *SQLStore) ListColumns(ctx context.Context, opts ListOptions) ([]model.Column, error) {
	query := "SELECT * FROM columns " + orderClause(opts, columnSorts, "sort_order") + " LIMIT ?"

	var rows []columnRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), opts.limit()); err != nil {
		return nil, classify("listing", model.KindColumn, "", err)
	}

	columns := make([]model.Column, 0, len(rows))
	for _, r := range rows {
		columns = append(columns, r.toModel())
	}
	return columns, nil
}

// GetColumn retrieves a single column by ID.
func (s *SQLStore) GetColumn(ctx context.Context, id string) (*model.Column, error) {
	var r columnRow
	if err := s.db.GetContext(ctx, &r, s.q("SELECT * FROM columns WHERE id = ?"), id); err != nil {
		return nil, classify("getting", model.KindColumn, id, err)
	}
	col := r.toModel()
	return &col, nil
}

// CreateColumn inserts a column under a freshly generated ID.
func (s *SQLStore) CreateColumn(ctx context.Context, col model.Column) (*model.Column, error) {
	now := s.stamp()
	r := columnRow{
		ID:        uuid.New().String(),
		Title:     col.Title,
		Order:     col.Order,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO columns (id, title, sort_order, created_at, updated_at)
		VALUES (:id, :title, :sort_order, :created_at, :updated_at)`, r)
	if err != nil {
		return nil, classify("creating", model.KindColumn, r.ID, err)
	}

	created := r.toModel()
	return &created, nil
}

// UpdateColumn applies a partial update and returns the stored column.
func (s *SQLStore) UpdateColumn(ctx context.Context, id string, patch model.Patch) (*model.Column, error) {
	if err := s.updateRow(ctx, model.KindColumn, "columns", id, encodePatch(patch, columnFields)); err != nil {
		return nil, err
	}
	return s.GetColumn(ctx, id)
}

// DeleteColumn removes a column. Its leads are not touched; callers
// cascade explicitly.
func (s *SQLStore) DeleteColumn(ctx context.Context, id string) error {
	return s.deleteRow(ctx, model.KindColumn, "columns", id)
}
