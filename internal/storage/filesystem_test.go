package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rental/internal/domain"
	"rental/internal/service"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestFileStore_StoreAndOpen(t *testing.T) {
	s := newStore(t)

	ref, err := s.Store(context.Background(), service.DocumentUpload{
		DriverID:    "d1",
		Type:        "license",
		FileName:    "scan.pdf",
		ContentType: "application/pdf",
		Body:        strings.NewReader("%PDF-1.4"),
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "documents/d1/license-"))
	assert.True(t, strings.HasSuffix(ref, ".pdf"))

	f, err := s.Open(ref)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Join(s.dir, "d1"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_Rejects(t *testing.T) {
	s := newStore(t)

	tests := []struct {
		name   string
		upload service.DocumentUpload
	}{
		{"unknown type", service.DocumentUpload{DriverID: "d1", Type: "passport", ContentType: "image/png", Body: strings.NewReader("x")}},
		{"bad content type", service.DocumentUpload{DriverID: "d1", Type: "license", ContentType: "text/html", Body: strings.NewReader("x")}},
		{"path in driver id", service.DocumentUpload{DriverID: "../etc", Type: "license", ContentType: "image/png", Body: strings.NewReader("x")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Store(context.Background(), tt.upload)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestFileStore_TooLarge(t *testing.T) {
	s := newStore(t)

	_, err := s.Store(context.Background(), service.DocumentUpload{
		DriverID:    "d1",
		Type:        "insurance",
		ContentType: "image/png",
		Body:        bytes.NewReader(make([]byte, MaxDocumentSize+1)),
	})
	assert.ErrorIs(t, err, ErrDocumentTooLarge)

	entries, err := os.ReadDir(filepath.Join(s.dir, "d1"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFileStore_OpenUnknown(t *testing.T) {
	s := newStore(t)

	_, err := s.Open("documents/d1/missing.pdf")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Open("documents/../secret")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
