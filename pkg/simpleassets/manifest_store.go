package simpleassets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// FileManifestStore persists a manifest as a single document on a
// FileSystem. Atomicity of Save is delegated to FileSystem.WriteFile.
type FileManifestStore struct {
	fs    FileSystem
	path  AssetPath
	codec Codec
}

// NewFileManifestStore creates a store writing path on fs with codec
func NewFileManifestStore(fs FileSystem, path AssetPath, codec Codec) *FileManifestStore {
	return &FileManifestStore{fs: fs, path: path, codec: codec}
}

// Path returns the manifest document location
func (s *FileManifestStore) Path() AssetPath {
	return s.path
}

// Load reads and decodes the manifest document.
func (s *FileManifestStore) Load(ctx context.Context) (*Manifest, error) {
	rc, err := s.fs.Open(ctx, s.path.Location())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &ManifestError{Op: "load", Err: fmt.Errorf("%w: %s", ErrManifestNotFound, s.path)}
		}
		return nil, &FileSystemError{Path: s.path, Op: "open", Err: err}
	}
	defer rc.Close()

	return LoadManifest(rc, s.codec)
}

// Save encodes m fully in memory before handing it to the file system, so a
// failed encode never touches the existing document.
func (s *FileManifestStore) Save(ctx context.Context, m *Manifest) error {
	var buf bytes.Buffer
	if err := m.SaveTo(&buf, s.codec); err != nil {
		return err
	}
	if err := s.fs.WriteFile(ctx, s.path.Location(), &buf); err != nil {
		return &FileSystemError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}
