// Package postgres persists asset manifests as rows in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// Schema creates the manifest table. Rows are scoped by database root so one
// table can hold manifests for several roots.
const Schema = `
CREATE TABLE IF NOT EXISTS asset_manifest (
	root        VARCHAR(1024) NOT NULL,
	path        VARCHAR(2048) NOT NULL,
	hash        CHAR(64) NOT NULL,
	type_name   VARCHAR(512) NOT NULL,
	asset_id    UUID NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (root, path)
)`

// DBTX is an interface that allows us to use either a connection pool or a
// single connection
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	Begin(context.Context) (pgx.Tx, error)
}

// Store implements simpleassets.ManifestStore using PostgreSQL
type Store struct {
	db   DBTX
	pool *pgxpool.Pool
	root simpleassets.AssetPath
}

// New creates a manifest store for root
func New(db DBTX, root simpleassets.AssetPath) *Store {
	return &Store{db: db, root: root}
}

// NewWithPool creates a manifest store for root with a connection pool. The
// store owns the pool and closes it in Close.
func NewWithPool(pool *pgxpool.Pool, root simpleassets.AssetPath) *Store {
	return &Store{db: pool, pool: pool, root: root}
}

// Close closes the pool passed to NewWithPool. Stores built with New leave
// their DBTX open.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// EnsureSchema creates the manifest table if it does not exist
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return handlePostgresError("ensure schema", err)
	}
	return nil
}

// Error handling helper
func handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate manifest record")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Load reads every row for the store's root. No rows means no manifest has
// been saved, and an unparsable row fails the whole manifest.
func (s *Store) Load(ctx context.Context) (*simpleassets.Manifest, error) {
	query := `
		SELECT path, hash, type_name, asset_id, imported_at
		FROM asset_manifest WHERE root = $1
		ORDER BY path`

	rows, err := s.db.Query(ctx, query, string(s.root))
	if err != nil {
		return nil, &simpleassets.ManifestError{Op: "load", Err: handlePostgresError("load manifest", err)}
	}
	defer rows.Close()

	m := simpleassets.NewManifest(s.root)
	for rows.Next() {
		var (
			path, hash, typeName string
			id                   uuid.UUID
			importedAt           time.Time
		)
		if err := rows.Scan(&path, &hash, &typeName, &id, &importedAt); err != nil {
			return nil, &simpleassets.ManifestError{Op: "load", Err: handlePostgresError("scan manifest row", err)}
		}
		rec, err := record(path, hash, typeName, id, importedAt)
		if err != nil {
			return nil, &simpleassets.ManifestError{Op: "load", Err: fmt.Errorf("%w: %v", simpleassets.ErrManifestMalformed, err)}
		}
		m.Put(rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &simpleassets.ManifestError{Op: "load", Err: handlePostgresError("load manifest", err)}
	}

	if m.Len() == 0 {
		return nil, &simpleassets.ManifestError{Op: "load", Err: fmt.Errorf("%w: no rows for %s", simpleassets.ErrManifestNotFound, s.root)}
	}
	return m, nil
}

func record(path, hash, typeName string, id uuid.UUID, importedAt time.Time) (simpleassets.AssetRecord, error) {
	p, err := simpleassets.ParseAssetPath(path)
	if err != nil {
		return simpleassets.AssetRecord{}, err
	}
	h, err := simpleassets.ParseContentHash(hash)
	if err != nil {
		return simpleassets.AssetRecord{}, err
	}
	if typeName == "" {
		return simpleassets.AssetRecord{}, fmt.Errorf("empty type name for %s", p)
	}
	return simpleassets.AssetRecord{
		ID:         id,
		Path:       p,
		Hash:       h,
		Type:       simpleassets.TypeName(typeName),
		ImportedAt: importedAt.UTC(),
	}, nil
}

// Save replaces every row for the store's root in a single transaction, so
// readers see either the previous manifest or m.
func (s *Store) Save(ctx context.Context, m *simpleassets.Manifest) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return &simpleassets.ManifestError{Op: "save", Err: handlePostgresError("begin", err)}
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM asset_manifest WHERE root = $1`, string(s.root)); err != nil {
		return &simpleassets.ManifestError{Op: "save", Err: handlePostgresError("delete manifest", err)}
	}

	insert := `
		INSERT INTO asset_manifest (root, path, hash, type_name, asset_id, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	batch := &pgx.Batch{}
	for _, rec := range m.Records() {
		batch.Queue(insert, string(s.root), string(rec.Path), rec.Hash.String(), string(rec.Type), rec.ID, rec.ImportedAt.UTC())
	}
	if batch.Len() > 0 {
		if err = tx.SendBatch(ctx, batch).Close(); err != nil {
			return &simpleassets.ManifestError{Op: "save", Err: handlePostgresError("insert manifest", err)}
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return &simpleassets.ManifestError{Op: "save", Err: handlePostgresError("commit", err)}
	}
	return nil
}
