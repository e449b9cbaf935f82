package simpleassets

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

type flushOptions struct {
	sweep bool
}

// FlushOption configures FlushChanges
type FlushOption func(*flushOptions)

// WithSweep removes records, and their cache entries, whose source document
// no longer exists before the manifest is written.
func WithSweep() FlushOption {
	return func(o *flushOptions) {
		o.sweep = true
	}
}

// FlushChanges writes a snapshot of the whole in-memory manifest through the
// manifest store. Loads may continue while the snapshot is written; imports
// that finish after the snapshot are left for the next flush.
func (db *Database) FlushChanges(ctx context.Context, opts ...FlushOption) error {
	var o flushOptions
	for _, opt := range opts {
		opt(&o)
	}

	db.flushMu.Lock()
	defer db.flushMu.Unlock()

	if o.sweep {
		if _, err := db.sweep(ctx); err != nil {
			return &DatabaseError{Root: db.root, Op: "sweep", Err: err}
		}
	}

	db.mu.Lock()
	snapshot := db.manifest.Clone()
	gen := db.generation
	db.mu.Unlock()

	if err := db.store.Save(ctx, snapshot); err != nil {
		db.logger.Error("Manifest flush failed", "root", db.root, "error", err)
		return &DatabaseError{Root: db.root, Op: "flush", Err: err}
	}

	db.mu.Lock()
	if gen > db.flushed {
		db.flushed = gen
	}
	db.mu.Unlock()

	db.logger.Info("Manifest flushed", "root", db.root, "records", snapshot.Len())
	return nil
}

// sweep drops records whose source is gone. Records on schemes without a
// registered file system are kept. Each path is checked and removed under
// its path lock so a concurrent load of a recreated source is not lost.
func (db *Database) sweep(ctx context.Context) ([]AssetPath, error) {
	db.mu.Lock()
	paths := db.manifest.Paths()
	db.mu.Unlock()

	var gone []AssetPath
	for _, p := range paths {
		removed, err := db.sweepPath(ctx, p)
		if err != nil {
			return gone, err
		}
		if removed {
			gone = append(gone, p)
		}
	}

	if len(gone) > 0 {
		db.logger.Info("Swept deleted assets", "root", db.root, "removed", len(gone))
	}
	return gone, nil
}

func (db *Database) sweepPath(ctx context.Context, p AssetPath) (bool, error) {
	unlock := db.locks.lock(p)
	defer unlock()

	fs, err := db.resolve(p)
	if err != nil {
		if errors.Is(err, ErrUnknownScheme) {
			db.logger.Warn("Keeping record on unregistered scheme", "path", p)
			return false, nil
		}
		return false, err
	}
	exists, err := fs.Exists(ctx, p.Location())
	if err != nil {
		return false, &FileSystemError{Path: p, Op: "exists", Err: err}
	}
	if exists {
		return false, nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	removed := db.manifest.Remove(p)
	if removed {
		db.generation++
	}
	db.cache.Invalidate(p)
	return removed, nil
}

// Scan lists documents under the root whose root-relative location matches
// the doublestar pattern, e.g. "**/*.json". The manifest itself is skipped.
func (db *Database) Scan(ctx context.Context, pattern string) ([]AssetPath, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, &DatabaseError{Root: db.root, Op: "scan", Err: fmt.Errorf("%w: bad pattern %q", ErrInvalidPath, pattern)}
	}
	fs, err := db.resolve(db.root)
	if err != nil {
		return nil, &DatabaseError{Root: db.root, Op: "scan", Err: err}
	}
	locations, err := fs.List(ctx, db.root.Location())
	if err != nil {
		return nil, &DatabaseError{Root: db.root, Op: "scan", Err: &FileSystemError{Path: db.root, Op: "list", Err: err}}
	}

	manifestPath := db.ManifestPath()
	var out []AssetPath
	for _, loc := range locations {
		p := NewAssetPath(db.root.Scheme(), loc)
		if p == manifestPath {
			continue
		}
		rel, ok := p.Rel(db.root)
		if !ok {
			continue
		}
		if matched, _ := doublestar.Match(pattern, rel); matched {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	return out, nil
}
