package simpleassets

import (
	"context"
	"io"
)

// FileSystem defines the interface for virtual file system backends.
// Locations are backend-specific and never include the scheme.
type FileSystem interface {
	// Open opens a document for reading
	Open(ctx context.Context, location string) (io.ReadCloser, error)

	// WriteFile replaces a document with everything read from r. Readers
	// observe either the previous or the new content, never a mix.
	WriteFile(ctx context.Context, location string, r io.Reader) error

	// Exists reports whether a document exists
	Exists(ctx context.Context, location string) (bool, error)

	// Remove deletes a document
	Remove(ctx context.Context, location string) error

	// List returns the locations of all documents under prefix
	List(ctx context.Context, prefix string) ([]string, error)
}

// Codec defines the serialization contract used to persist manifests
type Codec interface {
	// Name identifies the codec, e.g. "yaml"
	Name() string

	// Encode writes v to w
	Encode(w io.Writer, v any) error

	// Decode reads a value from r into v
	Decode(r io.Reader, v any) error
}

// ManifestStore defines where a database's manifest is persisted
type ManifestStore interface {
	// Load returns the persisted manifest, or an error wrapping
	// ErrManifestNotFound when none exists yet
	Load(ctx context.Context) (*Manifest, error)

	// Save replaces the persisted manifest with m as a whole document
	Save(ctx context.Context, m *Manifest) error
}

// Importer converts raw bytes into an asset of type A
type Importer[A any] interface {
	// CanImport returns whether this importer handles the given path
	CanImport(path AssetPath) bool

	// Import decodes an asset from r
	Import(ctx context.Context, r io.Reader) (A, error)
}

// Exporter writes an asset of type A as raw bytes
type Exporter[A any] interface {
	// CanExport returns whether this exporter handles the given path
	CanExport(path AssetPath) bool

	// Export encodes asset to w
	Export(ctx context.Context, asset *A, w io.Writer) error
}

// AnyPath can be embedded in an Importer or Exporter to accept every path.
type AnyPath struct{}

// CanImport always returns true
func (AnyPath) CanImport(AssetPath) bool { return true }

// CanExport always returns true
func (AnyPath) CanExport(AssetPath) bool { return true }

type pathKey struct{}

// ContextWithPath returns a context carrying the asset path being imported or
// exported. The database sets it before calling an Importer or Exporter.
func ContextWithPath(ctx context.Context, path AssetPath) context.Context {
	return context.WithValue(ctx, pathKey{}, path)
}

// PathFromContext returns the asset path set by ContextWithPath.
func PathFromContext(ctx context.Context) (AssetPath, bool) {
	p, ok := ctx.Value(pathKey{}).(AssetPath)
	return p, ok
}
