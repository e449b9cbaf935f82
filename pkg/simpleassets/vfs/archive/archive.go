// Package archive provides a read-only file system over a zip archive.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// Backend serves documents from a zip archive. Writes and removals fail with
// simpleassets.ErrReadOnly.
type Backend struct {
	files  map[string]*zip.File
	closer io.Closer
}

// Open opens the zip archive at name
func Open(name string) (*Backend, error) {
	rc, err := zip.OpenReader(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return newBackend(&rc.Reader, rc), nil
}

// New serves the zip archive readable from r
func New(r io.ReaderAt, size int64) (*Backend, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return newBackend(zr, nil), nil
}

// NewFromBytes serves the zip archive held in data
func NewFromBytes(data []byte) (*Backend, error) {
	return New(bytes.NewReader(data), int64(len(data)))
}

func newBackend(zr *zip.Reader, closer io.Closer) *Backend {
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		files[normalize(f.Name)] = f
	}
	return &Backend{files: files, closer: closer}
}

func normalize(location string) string {
	return strings.Trim(location, "/")
}

// Close releases the underlying archive file, if any
func (b *Backend) Close() error {
	closer := b.closer
	if closer == nil {
		return nil
	}
	b.closer = nil
	return closer.Close()
}

// Open decompresses an archive entry
func (b *Backend) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	f, ok := b.files[normalize(location)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", simpleassets.ErrNotFound, location)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open archive entry: %w", err)
	}
	return rc, nil
}

// WriteFile always fails; archives are immutable
func (b *Backend) WriteFile(ctx context.Context, location string, r io.Reader) error {
	return fmt.Errorf("%w: %s", simpleassets.ErrReadOnly, location)
}

// Exists reports whether an archive entry exists
func (b *Backend) Exists(ctx context.Context, location string) (bool, error) {
	_, ok := b.files[normalize(location)]
	return ok, nil
}

// Remove always fails; archives are immutable
func (b *Backend) Remove(ctx context.Context, location string) error {
	return fmt.Errorf("%w: %s", simpleassets.ErrReadOnly, location)
}

// List returns every entry under prefix in sorted order
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	prefix = normalize(prefix)
	var out []string
	for name := range b.files {
		if prefix == "" || name == prefix || strings.HasPrefix(name, prefix+"/") {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}
