package simpleassets

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// ErasedImporter dispatches an Importer without knowing its asset type at
// compile time. Import returns a *A boxed in an any.
type ErasedImporter interface {
	AssetType() TypeID
	CanImport(t TypeID, path AssetPath) bool
	Import(ctx context.Context, r io.Reader) (any, error)
}

// ErasedExporter is the export-side counterpart of ErasedImporter.
type ErasedExporter interface {
	AssetType() TypeID
	CanExport(t TypeID, path AssetPath) bool
	Export(ctx context.Context, asset any, w io.Writer) error
}

type erasedImporter[A any] struct {
	typ      TypeID
	importer Importer[A]
}

func (e *erasedImporter[A]) AssetType() TypeID {
	return e.typ
}

func (e *erasedImporter[A]) CanImport(t TypeID, path AssetPath) bool {
	return t == e.typ && e.importer.CanImport(path)
}

func (e *erasedImporter[A]) Import(ctx context.Context, r io.Reader) (any, error) {
	asset, err := e.importer.Import(ctx, r)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

type erasedExporter[A any] struct {
	typ      TypeID
	exporter Exporter[A]
}

func (e *erasedExporter[A]) AssetType() TypeID {
	return e.typ
}

func (e *erasedExporter[A]) CanExport(t TypeID, path AssetPath) bool {
	return t == e.typ && e.exporter.CanExport(path)
}

func (e *erasedExporter[A]) Export(ctx context.Context, asset any, w io.Writer) error {
	typed, ok := asset.(*A)
	if !ok {
		return fmt.Errorf("%w: exporter for %s given %T", ErrTypeMismatch, e.typ, asset)
	}
	return e.exporter.Export(ctx, typed, w)
}

// Registry holds erased importers and exporters in registration order.
type Registry struct {
	mu        sync.RWMutex
	importers []ErasedImporter
	exporters []ErasedExporter
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// RegisterImporter wraps imp in an ErasedImporter keyed by TypeOf[A] and
// appends it to r.
func RegisterImporter[A any](r *Registry, imp Importer[A]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.importers = append(r.importers, &erasedImporter[A]{typ: TypeOf[A](), importer: imp})
}

// RegisterExporter wraps exp in an ErasedExporter keyed by TypeOf[A] and
// appends it to r.
func RegisterExporter[A any](r *Registry, exp Exporter[A]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exporters = append(r.exporters, &erasedExporter[A]{typ: TypeOf[A](), exporter: exp})
}

// FindImporter returns the first registered importer accepting (t, path).
func (r *Registry) FindImporter(t TypeID, path AssetPath) (ErasedImporter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, imp := range r.importers {
		if imp.CanImport(t, path) {
			return imp, true
		}
	}
	return nil, false
}

// FindExporter returns the first registered exporter accepting (t, path).
func (r *Registry) FindExporter(t TypeID, path AssetPath) (ErasedExporter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, exp := range r.exporters {
		if exp.CanExport(t, path) {
			return exp, true
		}
	}
	return nil, false
}

// ImporterCount returns the number of registered importers
func (r *Registry) ImporterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.importers)
}

// ExporterCount returns the number of registered exporters
func (r *Registry) ExporterCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.exporters)
}

// ImporterFunc adapts a function and a path predicate into an Importer.
type ImporterFunc[A any] struct {
	Match func(AssetPath) bool
	Fn    func(ctx context.Context, r io.Reader) (A, error)
}

// NewImporter creates an ImporterFunc. A nil match accepts every path.
func NewImporter[A any](match func(AssetPath) bool, fn func(ctx context.Context, r io.Reader) (A, error)) *ImporterFunc[A] {
	return &ImporterFunc[A]{Match: match, Fn: fn}
}

func (f *ImporterFunc[A]) CanImport(path AssetPath) bool {
	return f.Match == nil || f.Match(path)
}

func (f *ImporterFunc[A]) Import(ctx context.Context, r io.Reader) (A, error) {
	return f.Fn(ctx, r)
}

// ExporterFunc adapts a function and a path predicate into an Exporter.
type ExporterFunc[A any] struct {
	Match func(AssetPath) bool
	Fn    func(ctx context.Context, asset *A, w io.Writer) error
}

// NewExporter creates an ExporterFunc. A nil match accepts every path.
func NewExporter[A any](match func(AssetPath) bool, fn func(ctx context.Context, asset *A, w io.Writer) error) *ExporterFunc[A] {
	return &ExporterFunc[A]{Match: match, Fn: fn}
}

func (f *ExporterFunc[A]) CanExport(path AssetPath) bool {
	return f.Match == nil || f.Match(path)
}

func (f *ExporterFunc[A]) Export(ctx context.Context, asset *A, w io.Writer) error {
	return f.Fn(ctx, asset, w)
}

// MatchExtensions returns a predicate accepting paths with any of the given
// extensions, compared case-insensitively and without a leading dot.
func MatchExtensions(exts ...string) func(AssetPath) bool {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		normalized = append(normalized, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return func(p AssetPath) bool {
		return slices.Contains(normalized, p.Extension())
	}
}
