package simpleassets

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// ContentHashSize is the width in bytes of a ContentHash.
const ContentHashSize = 32

// ContentHash is a keyed BLAKE3 digest of an asset's raw bytes.
type ContentHash [ContentHashSize]byte

// contentDomainKey separates asset content hashes from any other BLAKE3
// hashes an application might compute over the same bytes. Changing it
// invalidates every persisted manifest.
var contentDomainKey = [32]byte{
	's', 'i', 'm', 'p', 'l', 'e', '-', 'a', 's', 's', 'e', 't', 's', '.',
	'c', 'o', 'n', 't', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// hashBufferSize is the read size used when hashing a stream.
const hashBufferSize = 32 * 1024

func newContentHasher() *blake3.Hasher {
	h, err := blake3.NewKeyed(contentDomainKey[:])
	if err != nil {
		// Only fails for a key that is not 32 bytes.
		panic("simpleassets: blake3 keyed hasher: " + err.Error())
	}
	return h
}

// HashBytes computes the ContentHash of data.
func HashBytes(data []byte) ContentHash {
	h := newContentHasher()
	_, _ = h.Write(data)
	return sumOf(h)
}

// HashReader computes the ContentHash of everything readable from r. The
// result equals HashBytes over the same bytes.
func HashReader(r io.Reader) (ContentHash, error) {
	h := newContentHasher()
	buf := make([]byte, hashBufferSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return ContentHash{}, err
	}
	return sumOf(h), nil
}

func sumOf(h *blake3.Hasher) ContentHash {
	var out ContentHash
	copy(out[:], h.Sum(nil))
	return out
}

// ParseContentHash parses the hex form produced by ContentHash.String.
func ParseContentHash(s string) (ContentHash, error) {
	var h ContentHash
	if len(s) != hex.EncodedLen(ContentHashSize) {
		return h, fmt.Errorf("content hash must be %d hex characters, got %d", hex.EncodedLen(ContentHashSize), len(s))
	}
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return h, fmt.Errorf("invalid content hash: %w", err)
	}
	return h, nil
}

// IsZero reports whether h is the zero value.
func (h ContentHash) IsZero() bool {
	return h == ContentHash{}
}

func (h ContentHash) String() string {
	return hex.EncodeToString(h[:])
}

// Short returns the first 12 hex characters, for log lines.
func (h ContentHash) Short() string {
	return h.String()[:12]
}

// MarshalText implements encoding.TextMarshaler.
func (h ContentHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *ContentHash) UnmarshalText(text []byte) error {
	parsed, err := ParseContentHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
