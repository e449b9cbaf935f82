package simpleassets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tendant/simple-assets/pkg/simpleassets/codec"
)

// DefaultManifestName is the manifest document name under a database root.
const DefaultManifestName = ".manifest"

// Database owns the importer registry, manifest and cache for one root
// scope, e.g. "local://assets".
type Database struct {
	root         AssetPath
	manifestName string
	fileSystems  map[string]FileSystem
	codec        Codec
	store        ManifestStore
	logger       *slog.Logger

	registry *Registry
	cache    *Cache
	locks    pathLocks

	// mu guards manifest and the generation counters. generation counts
	// manifest mutations; flushed is the generation last persisted.
	mu         sync.Mutex
	manifest   *Manifest
	generation uint64
	flushed    uint64

	flushMu sync.Mutex
}

// Option represents a functional option for configuring the database
type Option func(*Database)

// WithFileSystem registers a file system backend for scheme
func WithFileSystem(scheme string, fs FileSystem) Option {
	return func(db *Database) {
		if db.fileSystems == nil {
			db.fileSystems = make(map[string]FileSystem)
		}
		db.fileSystems[scheme] = fs
	}
}

// WithCodec sets the codec used by the default manifest store
func WithCodec(c Codec) Option {
	return func(db *Database) {
		db.codec = c
	}
}

// WithManifestStore replaces the default file manifest store
func WithManifestStore(store ManifestStore) Option {
	return func(db *Database) {
		db.store = store
	}
}

// WithManifestName sets the manifest document name under the root
func WithManifestName(name string) Option {
	return func(db *Database) {
		db.manifestName = name
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(db *Database) {
		db.logger = logger
	}
}

// Open binds a database to root and loads the manifest persisted there. A
// missing manifest starts empty. A malformed manifest is discarded and every
// asset is treated as never imported.
func Open(ctx context.Context, root AssetPath, options ...Option) (*Database, error) {
	if err := root.Validate(); err != nil {
		return nil, &DatabaseError{Root: root, Op: "open", Err: err}
	}

	db := &Database{
		root:         root.Canonical(),
		manifestName: DefaultManifestName,
		fileSystems:  make(map[string]FileSystem),
		codec:        codec.YAML(),
		registry:     NewRegistry(),
		cache:        NewCache(),
	}
	for _, option := range options {
		option(db)
	}
	if db.logger == nil {
		db.logger = slog.Default()
	}
	if db.manifestName == "" {
		return nil, &DatabaseError{Root: db.root, Op: "open", Err: errors.New("manifest name cannot be empty")}
	}

	fs, ok := db.fileSystems[db.root.Scheme()]
	if !ok {
		return nil, &DatabaseError{Root: db.root, Op: "open", Err: fmt.Errorf("%w %q", ErrUnknownScheme, db.root.Scheme())}
	}
	if db.store == nil {
		db.store = NewFileManifestStore(fs, db.ManifestPath(), db.codec)
	}

	manifest, err := db.store.Load(ctx)
	switch {
	case err == nil:
		manifest.root = db.root
		db.logger.Debug("Manifest loaded", "root", db.root, "records", manifest.Len())
	case errors.Is(err, ErrManifestNotFound):
		manifest = NewManifest(db.root)
		db.logger.Debug("No manifest found, starting empty", "root", db.root)
	case errors.Is(err, ErrManifestMalformed):
		manifest = NewManifest(db.root)
		db.generation = 1
		db.logger.Warn("Discarding malformed manifest", "root", db.root, "error", err)
	default:
		return nil, &DatabaseError{Root: db.root, Op: "open", Err: err}
	}
	db.manifest = manifest

	return db, nil
}

// AddImporter registers an importer for assets of type A
func AddImporter[A any](db *Database, imp Importer[A]) {
	RegisterImporter(db.registry, imp)
}

// AddExporter registers an exporter for assets of type A
func AddExporter[A any](db *Database, exp Exporter[A]) {
	RegisterExporter(db.registry, exp)
}

// Root returns the root scope
func (db *Database) Root() AssetPath {
	return db.root
}

// ManifestPath returns the manifest document location, "<root>/.manifest"
// unless WithManifestName was given.
func (db *Database) ManifestPath() AssetPath {
	return db.root.Join(db.manifestName)
}

// Registry returns the importer registry
func (db *Database) Registry() *Registry {
	return db.registry
}

// Cache returns the asset cache
func (db *Database) Cache() *Cache {
	return db.cache
}

// Record returns the manifest record for path
func (db *Database) Record(path AssetPath) (AssetRecord, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.manifest.Get(path.Canonical())
}

// Records returns every manifest record ordered by path
func (db *Database) Records() []AssetRecord {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.manifest.Records()
}

// HasChanges reports whether the in-memory manifest differs from the last
// flushed or loaded one.
func (db *Database) HasChanges() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.generation != db.flushed
}

// Close releases the manifest store and every file system that implements
// io.Closer, such as open archives and connection pools. Unflushed changes
// are not written.
func (db *Database) Close() error {
	var errs []error
	if c, ok := db.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close manifest store: %w", err))
		}
	}
	for scheme, fs := range db.fileSystems {
		if c, ok := fs.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close file system %s: %w", scheme, err))
			}
		}
	}
	if err := errors.Join(errs...); err != nil {
		return &DatabaseError{Root: db.root, Op: "close", Err: err}
	}
	return nil
}

// Unload evicts every cached value for path. The manifest is untouched.
func (db *Database) Unload(path AssetPath) {
	path = path.Canonical()
	if n := db.cache.Invalidate(path); n > 0 {
		db.logger.Debug("Asset unloaded", "path", path, "entries", n)
	}
}

func (db *Database) resolve(path AssetPath) (FileSystem, error) {
	if err := path.Validate(); err != nil {
		return nil, &FileSystemError{Path: path, Op: "resolve", Err: err}
	}
	fs, ok := db.fileSystems[path.Scheme()]
	if !ok {
		return nil, &FileSystemError{Path: path, Op: "resolve", Err: fmt.Errorf("%w %q", ErrUnknownScheme, path.Scheme())}
	}
	return fs, nil
}

// pathLocks hands out one mutex per path, dropping it when unused.
type pathLocks struct {
	mu    sync.Mutex
	locks map[AssetPath]*pathLock
}

type pathLock struct {
	mu   sync.Mutex
	refs int
}

func (l *pathLocks) lock(path AssetPath) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[AssetPath]*pathLock)
	}
	pl, ok := l.locks[path]
	if !ok {
		pl = &pathLock{}
		l.locks[path] = pl
	}
	pl.refs++
	l.mu.Unlock()

	pl.mu.Lock()
	return func() {
		pl.mu.Unlock()
		l.mu.Lock()
		pl.refs--
		if pl.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}
