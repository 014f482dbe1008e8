package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
	"github.com/nhle/leadboard/tests/testutil"
)

func TestColumns_CreateListUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	for i, title := range model.DefaultColumnTitles {
		_, err := s.CreateColumn(ctx, model.Column{Title: title, Order: len(model.DefaultColumnTitles) - 1 - i})
		require.NoError(t, err)
	}

	cols, err := s.ListColumns(ctx, store.ListOptions{SortBy: "order"})
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, "Payment Collection", cols[0].Title)
	assert.Equal(t, "Lead", cols[3].Title)
	assert.NotEmpty(t, cols[0].ID)

	updated, err := s.UpdateColumn(ctx, cols[0].ID, model.Patch{model.FieldTitle: "Paid"})
	require.NoError(t, err)
	assert.Equal(t, "Paid", updated.Title)
	assert.Equal(t, cols[0].Order, updated.Order)

	require.NoError(t, s.DeleteColumn(ctx, cols[0].ID))
	_, err = s.GetColumn(ctx, cols[0].ID)
	assert.True(t, store.IsNotFound(err))
}

func TestLeads_PatchOnlyTouchesListedFields(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	created, err := s.CreateLead(ctx, model.Lead{
		Title:    "ACME",
		Details:  "Phone: 123",
		ColumnID: "col-1",
		Note:     model.StringPtr("call back"),
	})
	require.NoError(t, err)

	got, err := s.UpdateLead(ctx, created.ID, model.Patch{
		model.FieldEmergency:    true,
		model.FieldNote:         (*string)(nil),
		model.FieldReminderText: "Follow up",
		model.FieldReminderAt:   int64(1700000000000),
	})
	require.NoError(t, err)

	assert.Equal(t, "ACME", got.Title)
	assert.Equal(t, "col-1", got.ColumnID)
	assert.True(t, got.IsEmergency)
	assert.False(t, got.IsCompleted)
	assert.Nil(t, got.Note)
	require.NotNil(t, got.ReminderText)
	assert.Equal(t, "Follow up", *got.ReminderText)
	require.NotNil(t, got.ReminderAt)
	assert.Equal(t, int64(1700000000000), *got.ReminderAt)
}

func TestLeads_MissingIDsReportNotFound(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	_, err := s.UpdateLead(ctx, "nope", model.Patch{model.FieldTitle: "x"})
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
	assert.False(t, store.IsUnavailable(err))

	err = s.DeleteLead(ctx, "nope")
	assert.True(t, store.IsNotFound(err))

	var storeErr *store.Error
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, model.KindLead, storeErr.Kind)
	assert.Equal(t, "nope", storeErr.ID)
}

func TestCustomers_ListsRoundTripAndSearch(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	c, err := s.CreateCustomer(ctx, model.Customer{
		Name:            "ravi kumar",
		Phone:           "98450",
		MemberNames:     []string{"ASHA"},
		AssignedUserIDs: []string{"u1", "u2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "RAVI KUMAR", c.Name)

	_, err = s.CreateCustomer(ctx, model.Customer{Name: "Meera"})
	require.NoError(t, err)

	got, err := s.UpdateCustomer(ctx, c.ID, model.Patch{
		model.FieldPassportFile:    "file-1",
		model.FieldAssignedUserIDs: []string{"u2"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ASHA"}, got.MemberNames)
	assert.Equal(t, []string{"u2"}, got.AssignedUserIDs)
	require.NotNil(t, got.Documents.Passport)
	assert.Equal(t, "file-1", *got.Documents.Passport)
	assert.Nil(t, got.Documents.Pan)

	found, err := s.SearchCustomers(ctx, "kum", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, c.ID, found[0].ID)

	none, err := s.SearchCustomers(ctx, "  ", 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := s.ListCustomers(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MEERA", all[0].Name)
}

func TestFiles_UploadReadDelete(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	files := s.Files("board.db")

	id, err := files.Upload(ctx, []byte("%PDF-1.4"), "application/pdf")
	require.NoError(t, err)

	data, mimeType, err := files.Read(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
	assert.Equal(t, "application/pdf", mimeType)
	assert.Contains(t, files.URLFor(id, blob.ModeDownload), id)

	require.NoError(t, files.Delete(ctx, id))
	assert.ErrorIs(t, files.Delete(ctx, id), blob.ErrNotFound)
}

func TestAccounts_SessionsResolveUsers(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)

	u, err := s.CreateAccount(ctx, "Priya", "Priya@Example.com", "hash")
	require.NoError(t, err)
	assert.Equal(t, "priya@example.com", u.Email)

	_, err = s.CreateAccount(ctx, "Other", "priya@example.com", "hash")
	assert.True(t, store.IsConflict(err))

	acct, err := s.AccountByEmail(ctx, "PRIYA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", acct.PasswordHash)
}
