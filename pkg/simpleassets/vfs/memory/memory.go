package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// Backend is an in-memory implementation of the simpleassets.FileSystem interface
type Backend struct {
	mu        sync.RWMutex
	documents map[string][]byte
}

// New creates a new in-memory file system backend
func New() *Backend {
	return &Backend{
		documents: make(map[string][]byte),
	}
}

func normalize(location string) string {
	return strings.Trim(location, "/")
}

// Open returns a reader over a snapshot of the document
func (b *Backend) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.documents[normalize(location)]
	if !exists {
		return nil, fmt.Errorf("%w: %s", simpleassets.ErrNotFound, location)
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// WriteFile reads r fully before swapping the document in
func (b *Backend) WriteFile(ctx context.Context, location string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.documents[normalize(location)] = data
	return nil
}

// Put stores data at location
func (b *Backend) Put(location string, data []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.documents[normalize(location)] = slices.Clone(data)
}

// Exists reports whether a document exists
func (b *Backend) Exists(ctx context.Context, location string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	_, exists := b.documents[normalize(location)]
	return exists, nil
}

// Remove deletes a document
func (b *Backend) Remove(ctx context.Context, location string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	key := normalize(location)
	if _, exists := b.documents[key]; !exists {
		return fmt.Errorf("%w: %s", simpleassets.ErrNotFound, location)
	}

	delete(b.documents, key)
	return nil
}

// List returns every location under prefix in sorted order
func (b *Backend) List(ctx context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	prefix = normalize(prefix)
	var out []string
	for key := range b.documents {
		if prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/") {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out, nil
}
