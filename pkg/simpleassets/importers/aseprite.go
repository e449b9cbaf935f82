package importers

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// AsepriteFile holds the leading header fields of an Aseprite document.
type AsepriteFile struct {
	Magic  uint8
	Frames uint16
	Width  uint16
	Height uint16
}

// AsepriteImporter reads the little-endian header of .ase and .aseprite files.
type AsepriteImporter struct{}

func (AsepriteImporter) CanImport(path simpleassets.AssetPath) bool {
	switch path.Extension() {
	case "ase", "aseprite":
		return true
	}
	return false
}

func (AsepriteImporter) Import(ctx context.Context, r io.Reader) (AsepriteFile, error) {
	var f AsepriteFile
	if err := binary.Read(r, binary.LittleEndian, &f); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return AsepriteFile{}, fmt.Errorf("%w: aseprite header truncated", simpleassets.ErrMalformedAsset)
		}
		return AsepriteFile{}, err
	}
	return f, nil
}
