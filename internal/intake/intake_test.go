package intake_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/board"
	"github.com/nhle/leadboard/internal/intake"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
	"github.com/nhle/leadboard/tests/testutil"
)

func TestLeadFromMessage(t *testing.T) {
	tests := []struct {
		name    string
		msg     intake.Message
		title   string
		details string
	}{
		{
			name:    "display name",
			msg:     intake.Message{FromName: "Ravi Kumar", FromAddr: "ravi@example.com", Subject: "Goa trip", Text: "Hi,\n\n  need 4 tickets "},
			title:   "Ravi Kumar",
			details: "Email: ravi@example.com | Subject: Goa trip\nHi, need 4 tickets",
		},
		{
			name:    "address only",
			msg:     intake.Message{FromAddr: "meera@example.com"},
			title:   "meera",
			details: "Email: meera@example.com",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := intake.LeadFromMessage(tt.msg, true)
			assert.Equal(t, tt.title, got.Title)
			assert.Equal(t, tt.details, got.Details)
			assert.True(t, got.SaveAsCustomer)
			assert.Equal(t, tt.msg.FromAddr, got.Email)
		})
	}
}

func TestLeadFromMessageTruncatesBody(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	got := intake.LeadFromMessage(intake.Message{FromAddr: "a@b.c", Text: string(long)}, false)
	assert.Less(t, len([]rune(got.Details)), 200)
}

type fakeMailbox struct {
	msgs []intake.Message
	seen []uint32
}

func (f *fakeMailbox) FetchUnseen(context.Context) ([]intake.Message, error) {
	return f.msgs, nil
}

func (f *fakeMailbox) MarkSeen(_ context.Context, uids []uint32) error {
	f.seen = append(f.seen, uids...)
	return nil
}

// rejectingStore fails lead creates whose title matches reject.
type rejectingStore struct {
	*store.SQLStore
	reject string
}

func (s rejectingStore) CreateLead(ctx context.Context, l model.Lead) (*model.Lead, error) {
	if l.Title == s.reject {
		return nil, store.NewError("creating", model.KindLead, "", store.ErrStoreUnavailable, errors.New("boom"))
	}
	return s.SQLStore.CreateLead(ctx, l)
}

func TestImporterMarksOnlyConfirmedMessagesSeen(t *testing.T) {
	ctx := context.Background()
	st := rejectingStore{SQLStore: testutil.NewTestStore(t), reject: "BROKEN"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := board.New(st, board.Options{Logger: logger, Timeout: time.Second})
	t.Cleanup(b.Close)
	require.NoError(t, b.Load(ctx))

	mb := &fakeMailbox{msgs: []intake.Message{
		{UID: 7, FromName: "Ravi", FromAddr: "ravi@example.com", Subject: "Goa"},
		{UID: 8, FromName: "Broken", FromAddr: "x@example.com"},
		{UID: 9, FromName: "Meera", FromAddr: "meera@example.com"},
	}}
	im := &intake.Importer{Board: b, Mailbox: mb, SaveCustomers: true, Logger: logger, Timeout: time.Second}

	res, err := im.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []uint32{7, 9}, mb.seen)

	settleCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, b.Settle(settleCtx))

	first := b.State().Columns()[0]
	var titles []string
	for _, l := range b.State().LeadsInColumn(first.ID) {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"RAVI", "MEERA"}, titles)

	customers, err := st.SearchCustomers(ctx, "RAVI", 10)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "ravi@example.com", customers[0].Email)
}
