package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/nhle/leadboard/internal/model"
)

type leadRow struct {
	ID             string         `db:"id"`
	Title          string         `db:"title"`
	Details        string         `db:"details"`
	ColumnID       string         `db:"column_id"`
	Order          int            `db:"sort_order"`
	AssignedUserID sql.NullString `db:"assigned_user_id"`
	IsEmergency    int            `db:"is_emergency"`
	IsCompleted    int            `db:"is_completed"`
	Note           sql.NullString `db:"note"`
	ReminderText   sql.NullString `db:"reminder_text"`
	ReminderAt     sql.NullInt64  `db:"reminder_at"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
}

func (r leadRow) toModel() model.Lead {
	return model.Lead{
		ID:             r.ID,
		Title:          r.Title,
		Details:        r.Details,
		ColumnID:       r.ColumnID,
		Order:          r.Order,
		AssignedUserID: nullString(r.AssignedUserID),
		IsEmergency:    r.IsEmergency != 0,
		IsCompleted:    r.IsCompleted != 0,
		Note:           nullString(r.Note),
		ReminderText:   nullString(r.ReminderText),
		ReminderAt:     nullInt64(r.ReminderAt),
		CreatedAt:      fromMillis(r.CreatedAt),
		UpdatedAt:      fromMillis(r.UpdatedAt),
	}
}

func leadToRow(l model.Lead) leadRow {
	return leadRow{
		ID:             l.ID,
		Title:          l.Title,
		Details:        l.Details,
		ColumnID:       l.ColumnID,
		Order:          l.Order,
		AssignedUserID: toNullString(l.AssignedUserID),
		IsEmergency:    boolToInt(l.IsEmergency),
		IsCompleted:    boolToInt(l.IsCompleted),
		Note:           toNullString(l.Note),
		ReminderText:   toNullString(l.ReminderText),
		ReminderAt:     toNullInt64(l.ReminderAt),
	}
}

var leadFields = map[model.Field]string{
	model.FieldTitle:          "title",
	model.FieldDetails:        "details",
	model.FieldColumnID:       "column_id",
	model.FieldOrder:          "sort_order",
	model.FieldAssignedUserID: "assigned_user_id",
	model.FieldEmergency:      "is_emergency",
	model.FieldCompleted:      "is_completed",
	model.FieldNote:           "note",
	model.FieldReminderText:   "reminder_text",
	model.FieldReminderAt:     "reminder_at",
}

var leadSorts = map[string]string{
	"order":      "sort_order",
	"title":      "title",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

// ListLeads returns leads across all columns, completed ones included.
func (s *SQLStore) ListLeads(ctx context.Context, opts ListOptions) ([]model.Lead, error) {
	query := "SELECT * FROM leads " + orderClause(opts, leadSorts, "sort_order") + " LIMIT ?"

	var rows []leadRow
	if err := s.db.SelectContext(ctx, &rows, s.q(query), opts.limit()); err != nil {
		return nil, classify("listing", model.KindLead, "", err)
	}

	leads := make([]model.Lead, 0, len(rows))
	for _, r := range rows {
		leads = append(leads, r.toModel())
	}
	return leads, nil
}

// GetLead retrieves a single lead by ID.
func (s *SQLStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	var r leadRow
	if err := s.db.GetContext(ctx, &r, s.q("SELECT * FROM leads WHERE id = ?"), id); err != nil {
		return nil, classify("getting", model.KindLead, id, err)
	}
	lead := r.toModel()
	return &lead, nil
}

// CreateLead inserts a lead under a freshly generated ID.
func (s *SQLStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	r := leadToRow(lead)
	r.ID = uuid.New().String()
	r.CreatedAt = s.stamp()
	r.UpdatedAt = r.CreatedAt

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO leads (
			id, title, details, column_id, sort_order,
			assigned_user_id, is_emergency, is_completed,
			note, reminder_text, reminder_at,
			created_at, updated_at
		) VALUES (
			:id, :title, :details, :column_id, :sort_order,
			:assigned_user_id, :is_emergency, :is_completed,
			:note, :reminder_text, :reminder_at,
			:created_at, :updated_at
		)`, r)
	if err != nil {
		return nil, classify("creating", model.KindLead, r.ID, err)
	}

	created := r.toModel()
	return &created, nil
}

// UpdateLead applies a partial update and returns the stored lead.
func (s *SQLStore) UpdateLead(ctx context.Context, id string, patch model.Patch) (*model.Lead, error) {
	if err := s.updateRow(ctx, model.KindLead, "leads", id, encodePatch(patch, leadFields)); err != nil {
		return nil, err
	}
	return s.GetLead(ctx, id)
}

// DeleteLead permanently removes a lead.
func (s *SQLStore) DeleteLead(ctx context.Context, id string) error {
	return s.deleteRow(ctx, model.KindLead, "leads", id)
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullInt64(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}
