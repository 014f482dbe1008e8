package appwrite

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"github.com/nhle/leadboard/internal/blob"
)

// Storage is a blob.Store over one storage bucket.
type Storage struct {
	client *Client
	bucket string
}

var _ blob.Store = (*Storage)(nil)

// NewStorage returns a blob store for bucketID.
func NewStorage(c *Client, bucketID string) *Storage {
	return &Storage{client: c, bucket: bucketID}
}

func (s *Storage) path(id ...string) string {
	p := "/storage/buckets/" + url.PathEscape(s.bucket) + "/files"
	if len(id) > 0 {
		p += "/" + url.PathEscape(id[0])
	}
	return p
}

// Upload stores data as a new file and returns its ID.
func (s *Storage) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("fileId", "unique()"); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName(mimeType)))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("writing upload form: %w", err)
	}

	var out meta
	_, err = s.client.send(ctx, request{
		method:      http.MethodPost,
		path:        s.path(),
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}, &out)
	if err != nil {
		return "", fmt.Errorf("uploading file: %w", err)
	}
	return out.ID, nil
}

// Delete removes a file. A missing file reports blob.ErrNotFound.
func (s *Storage) Delete(ctx context.Context, fileID string) error {
	err := s.client.doJSON(ctx, http.MethodDelete, s.path(fileID), nil, nil, nil)
	if StatusOf(err) == http.StatusNotFound {
		return fmt.Errorf("deleting file %s: %w", fileID, blob.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("deleting file %s: %w", fileID, err)
	}
	return nil
}

// URLFor returns the preview or download URL of a file.
func (s *Storage) URLFor(fileID string, mode blob.Mode) string {
	return fmt.Sprintf("%s%s/%s?project=%s",
		s.client.Endpoint(), s.path(fileID), mode, url.QueryEscape(s.client.Project()))
}

func fileName(mimeType string) string {
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		return "document" + exts[0]
	}
	return "document"
}
