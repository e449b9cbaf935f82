package simpleassets

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ManifestVersion is the document version written by SaveTo.
const ManifestVersion = 1

// Manifest is an ordered mapping of asset paths to their last imported
// record. It performs no I/O and is not safe for concurrent use.
type Manifest struct {
	root    AssetPath
	records map[AssetPath]AssetRecord
}

// NewManifest creates an empty manifest for root
func NewManifest(root AssetPath) *Manifest {
	return &Manifest{
		root:    root,
		records: make(map[AssetPath]AssetRecord),
	}
}

// Root returns the database root the manifest was written for
func (m *Manifest) Root() AssetPath {
	return m.root
}

// Get returns the record for path
func (m *Manifest) Get(path AssetPath) (AssetRecord, bool) {
	rec, ok := m.records[path.Canonical()]
	return rec, ok
}

// Put inserts or replaces the record for rec.Path
func (m *Manifest) Put(rec AssetRecord) {
	rec.Path = rec.Path.Canonical()
	m.records[rec.Path] = rec
}

// Remove deletes the record for path and reports whether one existed
func (m *Manifest) Remove(path AssetPath) bool {
	path = path.Canonical()
	if _, ok := m.records[path]; !ok {
		return false
	}
	delete(m.records, path)
	return true
}

// Len returns the number of records
func (m *Manifest) Len() int {
	return len(m.records)
}

// Paths returns all recorded paths in order
func (m *Manifest) Paths() []AssetPath {
	paths := make([]AssetPath, 0, len(m.records))
	for p := range m.records {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Records returns all records ordered by path
func (m *Manifest) Records() []AssetRecord {
	paths := m.Paths()
	out := make([]AssetRecord, 0, len(paths))
	for _, p := range paths {
		out = append(out, m.records[p])
	}
	return out
}

// Clone returns an independent copy
func (m *Manifest) Clone() *Manifest {
	return &Manifest{
		root:    m.root,
		records: maps.Clone(m.records),
	}
}

// manifestDocument is the serialized shape of a Manifest.
type manifestDocument struct {
	Version int              `json:"version" yaml:"version" msgpack:"version" cbor:"version"`
	Root    string           `json:"root" yaml:"root" msgpack:"root" cbor:"root"`
	Records []recordDocument `json:"records" yaml:"records" msgpack:"records" cbor:"records"`
}

type recordDocument struct {
	Path       string    `json:"path" yaml:"path" msgpack:"path" cbor:"path"`
	Hash       string    `json:"hash" yaml:"hash" msgpack:"hash" cbor:"hash"`
	TypeName   string    `json:"type_name" yaml:"type_name" msgpack:"type_name" cbor:"type_name"`
	ID         string    `json:"id" yaml:"id" msgpack:"id" cbor:"id"`
	ImportedAt time.Time `json:"imported_at" yaml:"imported_at" msgpack:"imported_at" cbor:"imported_at"`
}

// SaveTo encodes the whole manifest to w using codec.
func (m *Manifest) SaveTo(w io.Writer, codec Codec) error {
	doc := manifestDocument{
		Version: ManifestVersion,
		Root:    string(m.root),
		Records: make([]recordDocument, 0, len(m.records)),
	}
	for _, rec := range m.Records() {
		doc.Records = append(doc.Records, recordDocument{
			Path:       string(rec.Path),
			Hash:       rec.Hash.String(),
			TypeName:   string(rec.Type),
			ID:         rec.ID.String(),
			ImportedAt: rec.ImportedAt.UTC(),
		})
	}
	if err := codec.Encode(w, &doc); err != nil {
		return &ManifestError{Op: "encode", Err: fmt.Errorf("%s: %w", codec.Name(), err)}
	}
	return nil
}

// LoadManifest decodes a manifest document from r. Any decode failure or
// invalid record fails the whole document with ErrManifestMalformed.
func LoadManifest(r io.Reader, codec Codec) (*Manifest, error) {
	var doc manifestDocument
	if err := codec.Decode(r, &doc); err != nil {
		return nil, malformed("%s: %v", codec.Name(), err)
	}
	if doc.Version != ManifestVersion {
		return nil, malformed("unsupported version %d", doc.Version)
	}

	m := NewManifest(AssetPath(doc.Root))
	for i, rd := range doc.Records {
		rec, err := rd.record()
		if err != nil {
			return nil, malformed("record %d: %v", i, err)
		}
		if _, dup := m.records[rec.Path]; dup {
			return nil, malformed("record %d: duplicate path %s", i, rec.Path)
		}
		m.records[rec.Path] = rec
	}
	return m, nil
}

func (rd recordDocument) record() (AssetRecord, error) {
	path, err := ParseAssetPath(rd.Path)
	if err != nil {
		return AssetRecord{}, err
	}
	hash, err := ParseContentHash(rd.Hash)
	if err != nil {
		return AssetRecord{}, err
	}
	if rd.TypeName == "" {
		return AssetRecord{}, fmt.Errorf("empty type name for %s", path)
	}
	id, err := uuid.Parse(rd.ID)
	if err != nil {
		return AssetRecord{}, fmt.Errorf("invalid id for %s: %w", path, err)
	}
	return AssetRecord{
		ID:         id,
		Path:       path,
		Hash:       hash,
		Type:       TypeName(rd.TypeName),
		ImportedAt: rd.ImportedAt,
	}, nil
}
