package simpleassets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Hash reads the current bytes at path and hashes them. It does not touch
// the cache or the manifest.
func (db *Database) Hash(ctx context.Context, path AssetPath) (ContentHash, error) {
	path = path.Canonical()
	rc, err := db.open(ctx, path)
	if err != nil {
		return ContentHash{}, err
	}
	defer rc.Close()

	h, err := HashReader(rc)
	if err != nil {
		return ContentHash{}, &FileSystemError{Path: path, Op: "read", Err: err}
	}
	return h, nil
}

// Changed reports whether the content at path differs from its manifest
// record. A path with no record has changed.
func (db *Database) Changed(ctx context.Context, path AssetPath) (bool, error) {
	h, err := db.Hash(ctx, path)
	if err != nil {
		return false, err
	}
	rec, ok := db.Record(path)
	return !ok || rec.Hash != h, nil
}

// Load returns the asset of type T at path, importing it when the cache has
// no entry for the current content hash. Repeat loads of unchanged content
// return the same pointer.
func Load[T any](ctx context.Context, db *Database, path AssetPath) (*T, error) {
	t := TypeOf[T]()
	v, err := db.LoadErased(ctx, t, path)
	if err != nil {
		return nil, err
	}
	typed, ok := v.(*T)
	if !ok {
		return nil, &ImportError{Path: path, Type: t, Err: fmt.Errorf("%w: got %T", ErrTypeMismatch, v)}
	}
	return typed, nil
}

// LoadAll loads every path as T with at most concurrency loads in flight
// (no limit when concurrency <= 0). The first error cancels the rest.
func LoadAll[T any](ctx context.Context, db *Database, paths []AssetPath, concurrency int) (map[AssetPath]*T, error) {
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	var mu sync.Mutex
	out := make(map[AssetPath]*T, len(paths))
	for _, p := range paths {
		p := p
		g.Go(func() error {
			asset, err := Load[T](gctx, db, p)
			if err != nil {
				return err
			}
			mu.Lock()
			out[p] = asset
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadErased is the untyped form of Load. The returned value is a pointer to
// the asset type identified by t. An importer returning any other type fails
// the load before the cache or manifest are touched.
func (db *Database) LoadErased(ctx context.Context, t TypeID, path AssetPath) (any, error) {
	path = path.Canonical()
	unlock := db.locks.lock(path)
	defer unlock()

	data, err := db.readAll(ctx, path)
	if err != nil {
		return nil, &ImportError{Path: path, Type: t, Err: err}
	}
	hash := HashBytes(data)

	if v, cached, ok := db.cache.Get(t, path); ok && cached == hash {
		if rec, ok := db.Record(path); ok && rec.Hash == hash {
			db.logger.Debug("Asset cache hit", "path", path, "type", t.Name(), "hash", hash.Short())
			return v, nil
		}
	}

	importer, ok := db.registry.FindImporter(t, path)
	if !ok {
		return nil, &ImportError{Path: path, Type: t, Err: ErrNoImporterFound}
	}

	start := time.Now()
	value, err := importer.Import(ContextWithPath(ctx, path), bytes.NewReader(data))
	if err != nil {
		db.logger.Error("Asset import failed", "path", path, "type", t.Name(), "error", err)
		return nil, &ImportError{Path: path, Type: t, Err: err}
	}
	if want := t.Reflect(); want == nil || reflect.TypeOf(value) != reflect.PointerTo(want) {
		return nil, &ImportError{Path: path, Type: t, Err: fmt.Errorf("%w: importer returned %T", ErrTypeMismatch, value)}
	}

	db.commit(t, path, hash, value)
	db.logger.Info("Asset imported", "path", path, "type", t.Name(), "hash", hash.Short(), "bytes", len(data), "duration", time.Since(start))
	return value, nil
}

// commit records a successful import in the manifest and cache.
func (db *Database) commit(t TypeID, path AssetPath, hash ContentHash, value any) {
	db.mu.Lock()
	prev, had := db.manifest.Get(path)
	if had && prev.Hash != hash {
		if n := db.cache.Invalidate(path); n > 0 {
			db.logger.Debug("Invalidated stale cache entries", "path", path, "entries", n, "previous", prev.Hash.Short())
		}
	}
	if !had || prev.Hash != hash || prev.Type != t.Name() {
		rec := AssetRecord{
			ID:         uuid.New(),
			Path:       path,
			Hash:       hash,
			Type:       t.Name(),
			ImportedAt: time.Now().UTC(),
		}
		if had {
			rec.ID = prev.ID
		}
		db.manifest.Put(rec)
		db.generation++
	}
	db.cache.Put(t, path, hash, value)
	db.mu.Unlock()
}

func (db *Database) open(ctx context.Context, path AssetPath) (io.ReadCloser, error) {
	fs, err := db.resolve(path)
	if err != nil {
		return nil, err
	}
	rc, err := fs.Open(ctx, path.Location())
	if err != nil {
		return nil, &FileSystemError{Path: path, Op: "open", Err: err}
	}
	return rc, nil
}

func (db *Database) readAll(ctx context.Context, path AssetPath) ([]byte, error) {
	rc, err := db.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &FileSystemError{Path: path, Op: "read", Err: err}
	}
	return data, nil
}
