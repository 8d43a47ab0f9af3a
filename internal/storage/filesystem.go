// Package storage keeps uploaded driver documents on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental/internal/domain"
	"rental/internal/service"
)

// MaxDocumentSize bounds a single upload.
const MaxDocumentSize = 10 << 20

var allowedContentTypes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
}

// ErrDocumentTooLarge is returned when an upload exceeds MaxDocumentSize.
var ErrDocumentTooLarge = fmt.Errorf("%w: document exceeds %d bytes", domain.ErrValidation, MaxDocumentSize)

// FileStore implements service.DocumentUploadPort. Files are written under
// dir/<driver id>/ and referenced as "documents/<driver id>/<file>".
type FileStore struct {
	dir    string
	logger *zap.Logger
}

var _ service.DocumentUploadPort = (*FileStore)(nil)

// NewFileStore creates the root directory if needed.
func NewFileStore(dir string, logger *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

// Store writes the upload and returns its reference.
func (s *FileStore) Store(ctx context.Context, upload service.DocumentUpload) (string, error) {
	if _, err := domain.ParseDocumentType(upload.Type); err != nil {
		return "", err
	}
	if upload.DriverID == "" || strings.ContainsAny(upload.DriverID, `/\.`) {
		return "", &domain.ValidationError{Field: "driver_id", Reason: "is invalid"}
	}
	ext, ok := allowedContentTypes[upload.ContentType]
	if !ok {
		return "", &domain.ValidationError{Field: "file", Reason: "must be a PDF, JPEG, PNG or WebP document"}
	}

	driverDir := filepath.Join(s.dir, upload.DriverID)
	if err := os.MkdirAll(driverDir, 0o750); err != nil {
		return "", fmt.Errorf("create driver dir: %w", err)
	}

	name := upload.Type + "-" + uuid.New().String() + ext

	tmp, err := os.CreateTemp(driverDir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, io.LimitReader(upload.Body, MaxDocumentSize+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("write document: %w", err)
	}
	if n > MaxDocumentSize {
		return "", ErrDocumentTooLarge
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), filepath.Join(driverDir, name)); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}

	ref := path.Join("documents", upload.DriverID, name)
	s.logger.Info("document stored",
		zap.String("driver_id", upload.DriverID),
		zap.String("type", upload.Type),
		zap.String("ref", ref),
		zap.Int64("bytes", n),
	)
	return ref, nil
}

// Open returns the stored file for a reference produced by Store.
func (s *FileStore) Open(ref string) (*os.File, error) {
	rel, ok := strings.CutPrefix(ref, "documents/")
	if !ok || strings.Contains(rel, "..") {
		return nil, &domain.NotFoundError{Entity: "document", ID: ref}
	}
	f, err := os.Open(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, &domain.NotFoundError{Entity: "document", ID: ref}
	}
	return f, err
}
