package appwrite_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/leadboard/internal/appwrite"
	"github.com/nhle/leadboard/internal/blob"
	"github.com/nhle/leadboard/internal/identity"
	"github.com/nhle/leadboard/internal/model"
	"github.com/nhle/leadboard/internal/store"
)

const leadsPath = "/databases/crm_db/collections/leads/documents"

func newDocuments(t *testing.T, h http.Handler) *appwrite.Documents {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := appwrite.NewClient(srv.URL, "proj")
	c.SetSession("sess")
	return appwrite.NewDocuments(c, "crm_db", appwrite.Collections{
		Columns:   "columns",
		Leads:     "leads",
		Customers: "customers",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestDocuments_CreateLeadUsesWireNames(t *testing.T) {
	var got map[string]any
	d := newDocuments(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, leadsPath, r.URL.Path)
		assert.Equal(t, "proj", r.Header.Get("X-Appwrite-Project"))
		assert.Equal(t, "sess", r.Header.Get("X-Appwrite-Session"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		data := got["data"].(map[string]any)
		data["$id"] = "lead-1"
		data["$createdAt"] = "2026-03-14T09:30:00.000+00:00"
		data["$updatedAt"] = "2026-03-14T09:30:00.000+00:00"
		writeJSON(w, http.StatusCreated, data)
	}))

	created, err := d.CreateLead(context.Background(), model.Lead{
		Title:        "ACME",
		Details:      "Details...",
		ColumnID:     "col-1",
		Order:        2,
		ReminderText: model.StringPtr("call"),
		ReminderAt:   model.Int64Ptr(1700000000000),
	})
	require.NoError(t, err)

	assert.Equal(t, "unique()", got["documentId"])
	data := got["data"].(map[string]any)
	assert.Equal(t, "col-1", data["status"])
	assert.Equal(t, "call", data["reminder"])
	assert.EqualValues(t, 1700000000000, data["reminder_time"])
	assert.Nil(t, data["assigned_to"])
	assert.NotContains(t, data, "column_id")
	assert.NotContains(t, data, "updated_at")

	assert.Equal(t, "lead-1", created.ID)
	assert.Equal(t, "col-1", created.ColumnID)
	assert.Equal(t, 2, created.Order)
	assert.Equal(t, 2026, created.CreatedAt.Year())
}

func TestDocuments_ListSendsQueries(t *testing.T) {
	d := newDocuments(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries := r.URL.Query()["queries[]"]
		require.Len(t, queries, 2)
		assert.JSONEq(t, `{"method":"orderAsc","attribute":"order"}`, queries[0])
		assert.JSONEq(t, `{"method":"limit","values":[1000]}`, queries[1])
		writeJSON(w, http.StatusOK, map[string]any{
			"total": 2,
			"documents": []map[string]any{
				{"$id": "a", "title": "Lead", "order": 0},
				{"$id": "b", "title": "Follow Up", "order": 1},
			},
		})
	}))

	cols, err := d.ListColumns(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "Follow Up", cols[1].Title)
}

func TestDocuments_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusNotFound, store.IsNotFound},
		{http.StatusConflict, store.IsConflict},
		{http.StatusUnauthorized, store.IsUnavailable},
		{http.StatusInternalServerError, store.IsUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			d := newDocuments(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, map[string]any{"message": "nope", "code": tt.status, "type": "x"})
			}))
			err := d.DeleteLead(context.Background(), "lead-1")
			require.Error(t, err)
			assert.True(t, tt.check(err), "%v", err)
			assert.Equal(t, tt.status, appwrite.StatusOf(err))
		})
	}
}

func TestDocuments_NetworkErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	d := appwrite.NewDocuments(appwrite.NewClient(srv.URL, "proj"), "crm_db", appwrite.Collections{Leads: "leads"})

	_, err := d.GetLead(context.Background(), "x")
	assert.True(t, store.IsUnavailable(err))
}

func TestDocuments_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	d := newDocuments(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, d.DeleteColumn(context.Background(), "col-1"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDocuments_CustomerListsAreJSONStrings(t *testing.T) {
	var got map[string]any
	d := newDocuments(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"$id":            "c1",
			"name":           "RAVI",
			"members":        `[{"name":"Meera"},{"name":"Kabir"}]`,
			"assigned_users": `["u1"]`,
			"pan_file_id":    "f1",
		})
	}))

	c, err := d.UpdateCustomer(context.Background(), "c1", model.Patch{
		model.FieldMemberNames:     []string{"Meera", "Kabir"},
		model.FieldAssignedUserIDs: []string{"u1"},
	})
	require.NoError(t, err)

	data := got["data"].(map[string]any)
	assert.JSONEq(t, `[{"name":"Meera"},{"name":"Kabir"}]`, data["members"].(string))
	assert.JSONEq(t, `["u1"]`, data["assigned_users"].(string))

	assert.Equal(t, []string{"Meera", "Kabir"}, c.MemberNames)
	assert.Equal(t, []string{"u1"}, c.AssignedUserIDs)
	require.NotNil(t, c.Documents.Pan)
	assert.Equal(t, "f1", *c.Documents.Pan)
}

func TestDocuments_SearchCustomers(t *testing.T) {
	var hits atomic.Int32
	d := newDocuments(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		queries := r.URL.Query()["queries[]"]
		require.NotEmpty(t, queries)
		assert.JSONEq(t, `{"method":"search","attribute":"name","values":["acme"]}`, queries[0])
		writeJSON(w, http.StatusOK, map[string]any{"total": 0, "documents": []any{}})
	}))

	found, err := d.SearchCustomers(context.Background(), "  ", 0)
	require.NoError(t, err)
	assert.Empty(t, found)
	assert.Zero(t, hits.Load())

	_, err = d.SearchCustomers(context.Background(), "acme", 0)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestStorage_UploadDeleteURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/storage/buckets/customer-documents/files", r.URL.Path)
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "unique()", r.FormValue("fileId"))
			f, hdr, err := r.FormFile("file")
			require.NoError(t, err)
			data, _ := io.ReadAll(f)
			assert.Equal(t, "%PDF", string(data))
			assert.Equal(t, "application/pdf", hdr.Header.Get("Content-Type"))
			writeJSON(w, http.StatusCreated, map[string]any{"$id": "file-9"})
		case http.MethodDelete:
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "missing", "code": 404})
		}
	}))
	t.Cleanup(srv.Close)

	s := appwrite.NewStorage(appwrite.NewClient(srv.URL, "proj"), "customer-documents")
	id, err := s.Upload(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "file-9", id)

	assert.ErrorIs(t, s.Delete(context.Background(), "gone"), blob.ErrNotFound)

	assert.Equal(t, srv.URL+"/storage/buckets/customer-documents/files/file-9/preview?project=proj",
		s.URLFor("file-9", blob.ModePreview))
	assert.True(t, strings.HasSuffix(s.URLFor("file-9", blob.ModeDownload), "/file-9/download?project=proj"))
}

func TestAccount_LoginCurrentUserLogout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method + " " + r.URL.Path {
		case "POST /account/sessions/email":
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body["password"] != "correct horse" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials", "code": 401})
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "a_session_proj", Value: "cookie-secret"})
			writeJSON(w, http.StatusCreated, map[string]any{"$id": "s1", "userId": "u1", "secret": ""})
		case "GET /account":
			if r.Header.Get("X-Appwrite-Session") != "cookie-secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "guest", "code": 401})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"$id": "u1", "name": "Asha", "email": "asha@example.com"})
		case "DELETE /account/sessions/current":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	sessions := &identity.MemorySessionStore{}
	acct := appwrite.NewAccount(appwrite.NewClient(srv.URL, "proj"), sessions)
	ctx := context.Background()

	_, err := acct.Login(ctx, "asha@example.com", "wrong")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	sess, err := acct.Login(ctx, "asha@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "cookie-secret", sess.Secret)
	stored, _ := sessions.Load()
	assert.Equal(t, "cookie-secret", stored)

	u, err := acct.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Asha", u.Name)

	require.NoError(t, acct.Logout(ctx))
	stored, _ = sessions.Load()
	assert.Empty(t, stored)
	_, err = acct.CurrentUser(ctx)
	assert.ErrorIs(t, err, identity.ErrNoSession)
}

func TestAccount_RejectedSessionIsCleared(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "expired", "code": 401})
	}))
	t.Cleanup(srv.Close)

	sessions := &identity.MemorySessionStore{}
	require.NoError(t, sessions.Save("old"))
	acct := appwrite.NewAccount(appwrite.NewClient(srv.URL, "proj"), sessions)

	_, err := acct.CurrentUser(context.Background())
	assert.ErrorIs(t, err, identity.ErrNoSession)
	stored, _ := sessions.Load()
	assert.Empty(t, stored)
}

func TestAccount_ListUsersWithAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("X-Appwrite-Key"))
		assert.Empty(t, r.Header.Get("X-Appwrite-Session"))
		writeJSON(w, http.StatusOK, map[string]any{
			"total": 2,
			"users": []map[string]any{
				{"$id": "u1", "name": "Asha", "email": "asha@example.com"},
				{"$id": "u2", "name": "", "email": "ravi@example.com"},
			},
		})
	}))
	t.Cleanup(srv.Close)

	c := appwrite.NewClient(srv.URL, "proj", appwrite.WithAPIKey("secret-key"))
	c.SetSession("sess")
	users, err := appwrite.NewAccount(c, &identity.MemorySessionStore{}).ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ravi@example.com", users[1].DisplayName())
}
