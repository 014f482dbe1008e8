package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/leadboard/internal/blob"
)

// FileStore keeps uploaded documents in the files table. It implements
// blob.Store for local boards.
type FileStore struct {
	s   *SQLStore
	dsn string
}

// Files returns the blob store backed by this database.
func (s *SQLStore) Files(dsn string) *FileStore {
	return &FileStore{s: s, dsn: dsn}
}

// Upload stores data and returns the new file ID.
func (f *FileStore) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	id := uuid.New().String()
	_, err := f.s.db.ExecContext(ctx, f.s.q(`
		INSERT INTO files (id, mime_type, size, data, created_at)
		VALUES (?, ?, ?, ?, ?)`),
		id, mimeType, len(data), data, f.s.stamp(),
	)
	if err != nil {
		return "", fmt.Errorf("uploading file: %w", err)
	}
	return id, nil
}

// Delete removes a file. A missing file reports blob.ErrNotFound.
func (f *FileStore) Delete(ctx context.Context, fileID string) error {
	result, err := f.s.db.ExecContext(ctx, f.s.q("DELETE FROM files WHERE id = ?"), fileID)
	if err != nil {
		return fmt.Errorf("deleting file %s: %w", fileID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("deleting file %s: %w", fileID, blob.ErrNotFound)
	}
	return nil
}

// Read returns the stored bytes and MIME type of a file.
func (f *FileStore) Read(ctx context.Context, fileID string) ([]byte, string, error) {
	var row struct {
		MimeType string `db:"mime_type"`
		Data     []byte `db:"data"`
	}
	err := f.s.db.GetContext(ctx, &row, f.s.q("SELECT mime_type, data FROM files WHERE id = ?"), fileID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("reading file %s: %w", fileID, blob.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("reading file %s: %w", fileID, err)
	}
	return row.Data, row.MimeType, nil
}

// URLFor addresses a file inside the local database.
func (f *FileStore) URLFor(fileID string, mode blob.Mode) string {
	return fmt.Sprintf("file://%s#%s?mode=%s", f.dsn, fileID, mode)
}
