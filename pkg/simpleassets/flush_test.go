package simpleassets_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/codec"
	"github.com/tendant/simple-assets/pkg/simpleassets/vfs/memory"
)

// blockingStore holds the first Save until release is closed
type blockingStore struct {
	simpleassets.ManifestStore
	saving  chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingStore) Save(ctx context.Context, m *simpleassets.Manifest) error {
	s.once.Do(func() { close(s.saving) })
	<-s.release
	return s.ManifestStore.Save(ctx, m)
}

type failingStore struct {
	simpleassets.ManifestStore
	err error
}

func (s *failingStore) Save(ctx context.Context, m *simpleassets.Manifest) error {
	if s.err != nil {
		return s.err
	}
	return s.ManifestStore.Save(ctx, m)
}

func fileStore(backend *memory.Backend) simpleassets.ManifestStore {
	return simpleassets.NewFileManifestStore(backend, "memory://.manifest", codec.YAML())
}

func TestFlushWritesSnapshot(t *testing.T) {
	backend := memory.New()
	backend.Put("a.json", []byte(`{"value": 1}`))
	backend.Put("b.json", []byte(`{"value": 2}`))
	store := &blockingStore{
		ManifestStore: fileStore(backend),
		saving:        make(chan struct{}),
		release:       make(chan struct{}),
	}
	db := openMemory(t, backend, simpleassets.WithManifestStore(store))
	simpleassets.AddImporter[resource](db, &countingImporter{})
	ctx := context.Background()

	_, err := simpleassets.Load[resource](ctx, db, "memory://a.json")
	require.NoError(t, err)

	flushed := make(chan error, 1)
	go func() { flushed <- db.FlushChanges(ctx) }()
	<-store.saving

	// Imports keep committing while the snapshot is being written
	_, err = simpleassets.Load[resource](ctx, db, "memory://b.json")
	require.NoError(t, err)
	close(store.release)
	require.NoError(t, <-flushed)

	assert.True(t, db.HasChanges())
	persisted := openMemory(t, backend)
	require.Len(t, persisted.Records(), 1)
	assert.Equal(t, simpleassets.AssetPath("memory://a.json"), persisted.Records()[0].Path)

	require.NoError(t, db.FlushChanges(ctx))
	assert.False(t, db.HasChanges())
	assert.Len(t, openMemory(t, backend).Records(), 2)
}

func TestFlushFailureKeepsChanges(t *testing.T) {
	backend := memory.New()
	backend.Put("a.json", []byte(`{"value": 1}`))
	backend.Put("b.json", []byte(`{"value": 2}`))
	store := &failingStore{ManifestStore: fileStore(backend)}
	db := openMemory(t, backend, simpleassets.WithManifestStore(store))
	simpleassets.AddImporter[resource](db, &countingImporter{})
	ctx := context.Background()

	_, err := simpleassets.Load[resource](ctx, db, "memory://a.json")
	require.NoError(t, err)
	require.NoError(t, db.FlushChanges(ctx))
	saved := openMemory(t, backend).Records()

	_, err = simpleassets.Load[resource](ctx, db, "memory://b.json")
	require.NoError(t, err)
	store.err = errors.New("manifest volume full")

	err = db.FlushChanges(ctx)
	var dbErr *simpleassets.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "flush", dbErr.Op)
	assert.ErrorIs(t, err, store.err)
	assert.True(t, db.HasChanges())

	assert.Equal(t, saved, openMemory(t, backend).Records())

	store.err = nil
	require.NoError(t, db.FlushChanges(ctx))
	assert.False(t, db.HasChanges())
	assert.Len(t, openMemory(t, backend).Records(), 2)
}

// gatedExistsBackend reports a.json as missing once the gate opens
type gatedExistsBackend struct {
	*memory.Backend
	entered chan struct{}
	release chan struct{}
}

func (b *gatedExistsBackend) Exists(ctx context.Context, location string) (bool, error) {
	if location == "a.json" {
		close(b.entered)
		<-b.release
		return false, nil
	}
	return b.Backend.Exists(ctx, location)
}

func TestSweepDoesNotDropConcurrentImport(t *testing.T) {
	backend := memory.New()
	backend.Put("a.json", []byte(`{"value": 1}`))
	fs := &gatedExistsBackend{Backend: backend, entered: make(chan struct{}), release: make(chan struct{})}
	db := openMemory(t, backend, simpleassets.WithFileSystem("memory", fs))
	simpleassets.AddImporter[resource](db, &countingImporter{})
	ctx := context.Background()

	_, err := simpleassets.Load[resource](ctx, db, "memory://a.json")
	require.NoError(t, err)
	backend.Put("a.json", []byte(`{"value": 2}`))

	flushed := make(chan error, 1)
	go func() { flushed <- db.FlushChanges(ctx, simpleassets.WithSweep()) }()
	<-fs.entered

	loaded := make(chan error, 1)
	go func() {
		_, err := simpleassets.Load[resource](ctx, db, "memory://a.json")
		loaded <- err
	}()
	close(fs.release)
	require.NoError(t, <-flushed)
	require.NoError(t, <-loaded)

	rec, ok := db.Record("memory://a.json")
	require.True(t, ok)
	assert.Equal(t, simpleassets.HashBytes([]byte(`{"value": 2}`)), rec.Hash)
}

type closingBackend struct {
	*memory.Backend
	closed int
}

func (b *closingBackend) Close() error {
	b.closed++
	return nil
}

type closingStore struct {
	simpleassets.ManifestStore
	closed int
	err    error
}

func (s *closingStore) Close() error {
	s.closed++
	return s.err
}

func TestClose(t *testing.T) {
	backend := memory.New()
	fs := &closingBackend{Backend: backend}
	store := &closingStore{ManifestStore: fileStore(backend)}
	db := openMemory(t, backend,
		simpleassets.WithFileSystem("memory", fs),
		simpleassets.WithFileSystem("scratch", memory.New()),
		simpleassets.WithManifestStore(store))

	require.NoError(t, db.Close())
	assert.Equal(t, 1, fs.closed)
	assert.Equal(t, 1, store.closed)

	store.err = errors.New("pool already closed")
	err := db.Close()
	var dbErr *simpleassets.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "close", dbErr.Op)
	assert.ErrorIs(t, err, store.err)
}
