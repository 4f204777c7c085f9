package service

import (
	"context"
	"errors"
	"mime/multipart"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/thucvatbm/species-catalog/logger"
	"github.com/thucvatbm/species-catalog/storage"
	"github.com/thucvatbm/species-catalog/util/common"
	"github.com/thucvatbm/species-catalog/util/metrics"
)

const uploadTimeFormat = "20060102150405"

var allowedExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"gif":  {},
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// UploadService validates uploaded images and writes them to the store.
type UploadService struct {
	store storage.Store
	now   func() time.Time
}

func NewUploadService(store storage.Store) *UploadService {
	return &UploadService{store: store, now: time.Now}
}

// WithClock replaces the time source used for the filename prefix.
func (s *UploadService) WithClock(now func() time.Time) *UploadService {
	s.now = now
	return s
}

// AllowedFile reports whether filename carries an allowed image extension.
func AllowedFile(filename string) bool {
	_, ext := splitExt(filename)
	if ext == "" {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(ext)]
	return ok
}

func splitExt(filename string) (string, string) {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return filename, ""
	}
	return filename[:i], filename[i+1:]
}

// SecureFilename reduces filename to ASCII letters, digits, '_', '.' and '-'
// so it is safe to use as a single path element. It may return "".
func SecureFilename(filename string) string {
	filename = norm.NFKD.String(filename)

	var b strings.Builder
	for _, r := range filename {
		switch {
		case r == '/' || r == '\\':
			b.WriteByte(' ')
		case r < unicode.MaxASCII:
			b.WriteRune(r)
		}
	}

	filename = strings.Join(strings.Fields(b.String()), "_")
	filename = unsafeFilenameChars.ReplaceAllString(filename, "")
	return strings.Trim(filename, "._")
}

// StoredName builds the name an upload is stored under.
func (s *UploadService) StoredName(original string) string {
	name := SecureFilename(original)
	if name == "" || !AllowedFile(name) {
		_, ext := splitExt(original)
		name = "image." + strings.ToLower(SecureFilename(ext))
	}
	return s.now().UTC().Format(uploadTimeFormat) + "_" + name
}

// Accept stores file and returns the stored filename. A missing file, an
// empty filename, a disallowed extension or a name already taken within the
// same second returns "" with no error: the image is optional and such
// uploads are dropped.
func (s *UploadService) Accept(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if file == nil || file.Filename == "" {
		return "", nil
	}
	if !AllowedFile(file.Filename) {
		logger.Debugf("ignored upload %q: extension not allowed", file.Filename)
		metrics.UploadRejected()
		return "", nil
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	name := s.StoredName(file.Filename)
	if err := s.store.Save(ctx, name, src); err != nil {
		if errors.Is(err, storage.ErrExist) {
			logger.Warningf("dropped upload %q: %s already stored", file.Filename, name)
			metrics.UploadRejected()
			return "", nil
		}
		return "", err
	}
	metrics.UploadAccepted()
	logger.Debugf("stored upload %q as %s (%s)", file.Filename, name, common.FormatSize(file.Size))
	return name, nil
}

// Open returns a previously stored upload.
func (s *UploadService) Open(ctx context.Context, name string) (*storage.Object, error) {
	return s.store.Open(ctx, name)
}
