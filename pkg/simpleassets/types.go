package simpleassets

import (
	"fmt"
	"path"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
)

const schemeSeparator = "://"

// AssetPath is a scheme-qualified virtual location, e.g. "local://assets/test.ase"
// or "memory://test1.json". The scheme selects the file system backend and the
// location is interpreted by that backend.
//
// Paths built with NewAssetPath or ParseAssetPath are canonical: the location
// is slash-cleaned, relative and never climbs above the scheme root, so
// "memory:///a.json", "memory://./a.json" and "memory://a.json" are one path.
type AssetPath string

// NewAssetPath builds a canonical AssetPath from a scheme and a backend location.
func NewAssetPath(scheme, location string) AssetPath {
	return AssetPath(scheme + schemeSeparator + cleanLocation(location))
}

// ParseAssetPath validates s and returns its canonical form.
func ParseAssetPath(s string) (AssetPath, error) {
	p := AssetPath(s)
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p.Canonical(), nil
}

func cleanLocation(location string) string {
	return strings.TrimPrefix(path.Clean("/"+location), "/")
}

// Canonical returns p with its location cleaned. Paths without a scheme are
// returned unchanged.
func (p AssetPath) Canonical() AssetPath {
	scheme, location, ok := strings.Cut(string(p), schemeSeparator)
	if !ok || scheme == "" {
		return p
	}
	return AssetPath(scheme + schemeSeparator + cleanLocation(location))
}

// Validate reports whether the path has a non-empty scheme.
func (p AssetPath) Validate() error {
	idx := strings.Index(string(p), schemeSeparator)
	if idx <= 0 {
		return fmt.Errorf("%w: %q has no scheme", ErrInvalidPath, string(p))
	}
	for _, r := range string(p)[:idx] {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '+' || r == '.') {
			return fmt.Errorf("%w: invalid scheme in %q", ErrInvalidPath, string(p))
		}
	}
	return nil
}

// Scheme returns the part before "://", or "" when there is none.
func (p AssetPath) Scheme() string {
	scheme, _, ok := strings.Cut(string(p), schemeSeparator)
	if !ok {
		return ""
	}
	return scheme
}

// Location returns the backend-specific part after "://".
func (p AssetPath) Location() string {
	_, location, ok := strings.Cut(string(p), schemeSeparator)
	if !ok {
		return string(p)
	}
	return location
}

// Extension returns the lowercase file extension without the leading dot.
func (p AssetPath) Extension() string {
	ext := path.Ext(p.Location())
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Join appends path elements to the location, keeping the scheme.
func (p AssetPath) Join(elem ...string) AssetPath {
	parts := append([]string{p.Location()}, elem...)
	return NewAssetPath(p.Scheme(), path.Join(parts...))
}

// Rel returns the location of p relative to root, and false when p is not
// under root.
func (p AssetPath) Rel(root AssetPath) (string, bool) {
	if p.Scheme() != root.Scheme() {
		return "", false
	}
	base := strings.Trim(root.Location(), "/")
	loc := strings.Trim(p.Location(), "/")
	if base == "" {
		return loc, true
	}
	if loc == base {
		return "", true
	}
	if !strings.HasPrefix(loc, base+"/") {
		return "", false
	}
	return loc[len(base)+1:], true
}

func (p AssetPath) String() string {
	return string(p)
}

// TypeID identifies an asset type within one process. Two TypeIDs are equal
// only when they wrap the same Go type, so same-named types declared in
// different scopes never collide. Use Name for the persisted form.
type TypeID struct {
	rt reflect.Type
}

// TypeOf returns the TypeID for T.
func TypeOf[T any]() TypeID {
	return TypeID{rt: reflect.TypeOf((*T)(nil)).Elem()}
}

// Reflect returns the underlying Go type, or nil for the zero TypeID.
func (t TypeID) Reflect() reflect.Type {
	return t.rt
}

// Name returns the type's persisted name, "<import path>.<type name>".
func (t TypeID) Name() TypeName {
	if t.rt == nil {
		return ""
	}
	if t.rt.Name() != "" && t.rt.PkgPath() != "" {
		return TypeName(t.rt.PkgPath() + "." + t.rt.Name())
	}
	return TypeName(t.rt.String())
}

func (t TypeID) String() string {
	return string(t.Name())
}

// TypeName is the form of a TypeID stored in manifests and compared across
// process runs. It is not unique: function-local types with equal names
// share one.
type TypeName string

func (n TypeName) String() string {
	return string(n)
}

// AssetRecord is the manifest entry for one successfully imported path.
type AssetRecord struct {
	ID         uuid.UUID
	Path       AssetPath
	Hash       ContentHash
	Type       TypeName
	ImportedAt time.Time
}
