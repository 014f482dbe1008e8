// Package blob defines the file storage used for customer documents.
package blob

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// Mode selects how a stored file is served.
type Mode int

const (
	ModePreview Mode = iota
	ModeDownload
)

func (m Mode) String() string {
	if m == ModeDownload {
		return "download"
	}
	return "preview"
}

var (
	// ErrRejected means the file violates the upload policy.
	ErrRejected = errors.New("file rejected")
	// ErrNotFound means no file exists under the given ID.
	ErrNotFound = errors.New("file not found")
)

// Store uploads, deletes and addresses files.
type Store interface {
	Upload(ctx context.Context, data []byte, mimeType string) (string, error)
	Delete(ctx context.Context, fileID string) error
	URLFor(fileID string, mode Mode) string
}

// Policy is the upload allow-list: a size cap and accepted MIME types.
type Policy struct {
	MaxBytes     int64
	AllowedTypes []string
}

// Check returns an error wrapping ErrRejected if a file of the given size
// and type may not be stored.
func (p Policy) Check(size int64, mimeType string) error {
	if size == 0 {
		return fmt.Errorf("%w: empty file", ErrRejected)
	}
	if p.MaxBytes > 0 && size > p.MaxBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrRejected, size, p.MaxBytes)
	}
	if len(p.AllowedTypes) == 0 {
		return nil
	}
	base := baseType(mimeType)
	for _, t := range p.AllowedTypes {
		if strings.EqualFold(strings.TrimSpace(t), base) {
			return nil
		}
	}
	return fmt.Errorf("%w: type %q not allowed", ErrRejected, base)
}

// DetectType guesses a MIME type from the file name, falling back to
// content sniffing.
func DetectType(name string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		return baseType(t)
	}
	return baseType(http.DetectContentType(data))
}

func baseType(t string) string {
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// Guarded wraps a Store so every upload is checked against a Policy first.
type Guarded struct {
	Store
	Policy Policy
}

// Upload checks the policy before delegating.
func (g Guarded) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := g.Policy.Check(int64(len(data)), mimeType); err != nil {
		return "", err
	}
	return g.Store.Upload(ctx, data, mimeType)
}
