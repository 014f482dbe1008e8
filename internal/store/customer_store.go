package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/nhle/leadboard/internal/model"
)

type customerRow struct {
	ID              string         `db:"id"`
	Name            string         `db:"name"`
	Phone           string         `db:"phone"`
	Email           string         `db:"email"`
	Details         string         `db:"details"`
	MemberNames     string         `db:"member_names"`
	PassportFileID  sql.NullString `db:"passport_file_id"`
	AadhaarFileID   sql.NullString `db:"aadhaar_file_id"`
	PanFileID       sql.NullString `db:"pan_file_id"`
	AssignedUserIDs string         `db:"assigned_user_ids"`
	CreatedAt       int64          `db:"created_at"`
	UpdatedAt       int64          `db:"updated_at"`
}

func (r customerRow) toModel() (model.Customer, error) {
	members, err := decodeList(r.MemberNames)
	if err != nil {
		return model.Customer{}, err
	}
	assigned, err := decodeList(r.AssignedUserIDs)
	if err != nil {
		return model.Customer{}, err
	}
	return model.Customer{
		ID:          r.ID,
		Name:        r.Name,
		Phone:       r.Phone,
		Email:       r.Email,
		Details:     r.Details,
		MemberNames: members,
		Documents: model.DocumentRefs{
			Passport: nullString(r.PassportFileID),
			Aadhaar:  nullString(r.AadhaarFileID),
			Pan:      nullString(r.PanFileID),
		},
		AssignedUserIDs: assigned,
		CreatedAt:       fromMillis(r.CreatedAt),
		UpdatedAt:       fromMillis(r.UpdatedAt),
	}, nil
}

var customerFields = map[model.Field]string{
	model.FieldName:            "name",
	model.FieldPhone:           "phone",
	model.FieldEmail:           "email",
	model.FieldDetails:         "details",
	model.FieldMemberNames:     "member_names",
	model.FieldPassportFile:    "passport_file_id",
	model.FieldAadhaarFile:     "aadhaar_file_id",
	model.FieldPanFile:         "pan_file_id",
	model.FieldAssignedUserIDs: "assigned_user_ids",
}

var customerSorts = map[string]string{
	"name":       "name",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// ListCustomers returns the customer directory, ordered by name by default.
func (s *SQLStore) ListCustomers(ctx context.Context, opts ListOptions) ([]model.Customer, error) {
	query := "SELECT * FROM customers " + orderClause(opts, customerSorts, "name") + " LIMIT ?"
	return s.selectCustomers(ctx, "listing", query, opts.limit())
}

// SearchCustomers returns customers whose name contains query,
// case-insensitively. A blank query matches nothing.
func (s *SQLStore) SearchCustomers(ctx context.Context, query string, limit int) ([]model.Customer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	q := "SELECT * FROM customers WHERE UPPER(name) LIKE ? ORDER BY name ASC, id ASC LIMIT ?"
	return s.selectCustomers(ctx, "searching", q, "%"+strings.ToUpper(query)+"%", limit)
}

func (s *SQLStore) selectCustomers(ctx context.Context, op, query string, args ...any) ([]model.Customer, error) {
	var rows []customerRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), args...); err != nil {
		return nil, classify(op, model.KindCustomer, "", err)
	}

	customers := make([]model.Customer, 0, len(rows))
	for _, r := range rows {
		c, err := r.toModel()
		if err != nil {
			return nil, NewError(op, model.KindCustomer, r.ID, ErrStoreUnavailable, err)
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// GetCustomer retrieves a single customer by ID.
func (s *SQLStore) GetCustomer(ctx context.Context, id string) (*model.Customer, error) {
	var r customerRow
	if err := s.db.GetContext(ctx, &r, s.q("SELECT * FROM customers WHERE id = ?"), id); err != nil {
		return nil, classify("getting", model.KindCustomer, id, err)
	}
	c, err := r.toModel()
	if err != nil {
		return nil, NewError("getting", model.KindCustomer, id, ErrStoreUnavailable, err)
	}
	return &c, nil
}

// CreateCustomer inserts a customer under a freshly generated ID.
// Names are stored upper-cased.
func (s *SQLStore) CreateCustomer(ctx context.Context, c model.Customer) (*model.Customer, error) {
	now := s.stamp()
	r := customerRow{
		ID:              uuid.New().String(),
		Name:            strings.ToUpper(c.Name),
		Phone:           c.Phone,
		Email:           c.Email,
		Details:         c.Details,
		MemberNames:     encodeList(c.MemberNames),
		PassportFileID:  toNullString(c.Documents.Passport),
		AadhaarFileID:   toNullString(c.Documents.Aadhaar),
		PanFileID:       toNullString(c.Documents.Pan),
		AssignedUserIDs: encodeList(c.AssignedUserIDs),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO customers (
			id, name, phone, email, details, member_names,
			passport_file_id, aadhaar_file_id, pan_file_id,
			assigned_user_ids, created_at, updated_at
		) VALUES (
			:id, :name, :phone, :email, :details, :member_names,
			:passport_file_id, :aadhaar_file_id, :pan_file_id,
			:assigned_user_ids, :created_at, :updated_at
		)`, r)
	if err != nil {
		return nil, classify("creating", model.KindCustomer, r.ID, err)
	}

	created, err := r.toModel()
	if err != nil {
		return nil, NewError("creating", model.KindCustomer, r.ID, ErrStoreUnavailable, err)
	}
	return &created, nil
}

// UpdateCustomer applies a partial update and returns the stored customer.
func (s *SQLStore) UpdateCustomer(ctx context.Context, id string, patch model.Patch) (*model.Customer, error) {
	if err := s.updateRow(ctx, model.KindCustomer, "customers", id, encodePatch(patch, customerFields)); err != nil {
		return nil, err
	}
	return s.GetCustomer(ctx, id)
}

// DeleteCustomer removes a customer record. Document files are left to the
// caller.
func (s *SQLStore) DeleteCustomer(ctx context.Context, id string) error {
	return s.deleteRow(ctx, model.KindCustomer, "customers", id)
}
