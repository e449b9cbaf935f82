package simpleassets

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrNotFound indicates a document does not exist on a file system
	ErrNotFound = errors.New("not found")

	// ErrReadOnly indicates a file system does not accept writes
	ErrReadOnly = errors.New("file system is read-only")

	// ErrUnknownScheme indicates no file system is registered for a path's scheme
	ErrUnknownScheme = errors.New("no file system registered for scheme")

	// ErrInvalidPath indicates an asset path could not be parsed
	ErrInvalidPath = errors.New("invalid asset path")

	// ErrNoImporterFound indicates no registered importer accepts a type and path
	ErrNoImporterFound = errors.New("no importer found")

	// ErrNoExporterFound indicates no registered exporter accepts a type and path
	ErrNoExporterFound = errors.New("no exporter found")

	// ErrMalformedAsset is returned by importers when bytes do not parse
	ErrMalformedAsset = errors.New("malformed asset")

	// ErrTypeMismatch indicates an erased value did not have the requested type
	ErrTypeMismatch = errors.New("asset type mismatch")

	// ErrManifestMalformed indicates a manifest document is corrupt or partial
	ErrManifestMalformed = errors.New("manifest malformed")

	// ErrManifestNotFound indicates no manifest has been persisted yet
	ErrManifestNotFound = errors.New("manifest not found")
)

// FileSystemError represents an error raised by a file system backend
type FileSystemError struct {
	Path AssetPath
	Op   string
	Err  error
}

func (e *FileSystemError) Error() string {
	return fmt.Sprintf("file system operation %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileSystemError) Unwrap() error {
	return e.Err
}

// ImportError represents a failed load of an asset
type ImportError struct {
	Path AssetPath
	Type TypeID
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import of %s as %s failed: %v", e.Path, e.Type, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// ExportError represents a failed export of an asset
type ExportError struct {
	Path AssetPath
	Type TypeID
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export of %s to %s failed: %v", e.Type, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ManifestError represents an error reading or writing a manifest document
type ManifestError struct {
	Op  string
	Err error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("manifest operation %s failed: %v", e.Op, e.Err)
}

func (e *ManifestError) Unwrap() error {
	return e.Err
}

// DatabaseError represents an open or flush level failure
type DatabaseError struct {
	Root AssetPath
	Op   string
	Err  error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("asset database operation %s failed for root %s: %v", e.Op, e.Root, e.Err)
}

func (e *DatabaseError) Unwrap() error {
	return e.Err
}

func malformed(format string, args ...any) error {
	return &ManifestError{Op: "decode", Err: fmt.Errorf("%w: %s", ErrManifestMalformed, fmt.Sprintf(format, args...))}
}
