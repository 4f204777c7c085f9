// Package storage keeps uploaded images addressed by filename only. Two
// backends exist: a local directory and an S3 bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/thucvatbm/species-catalog/config"
)

var (
	// ErrNotExist is returned when no stored object has the requested name.
	ErrNotExist = errors.New("stored file does not exist")
	// ErrExist is returned by Save when the name is already taken.
	ErrExist = errors.New("stored file already exists")
)

// Store persists uploaded files under flat names.
type Store interface {
	// Save writes r under name. It never replaces an existing object.
	Save(ctx context.Context, name string, r io.Reader) error
	// Open returns the stored object; the caller closes it.
	Open(ctx context.Context, name string) (*Object, error)
	// List returns the names of every stored object.
	List(ctx context.Context) ([]string, error)
}

// Object is an opened stored file.
type Object struct {
	io.ReadCloser
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// ValidName reports whether name is a plain filename that cannot address
// anything outside the store.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return true
}

// ContentType guesses a MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// New builds the store selected by the UPLOAD_BACKEND setting.
func New(ctx context.Context) (Store, error) {
	switch backend := config.GetUploadBackend(); backend {
	case config.UploadBackendLocal:
		return NewLocalStore(config.GetUploadFolder())
	case config.UploadBackendS3:
		return NewS3Store(ctx, config.GetS3Config())
	default:
		return nil, fmt.Errorf("unknown upload backend: %s", backend)
	}
}
