package importers

import (
	"context"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/tendant/simple-assets/pkg/simpleassets"
)

// TextAsset is a UTF-8 document kept verbatim.
type TextAsset struct {
	Text string
}

// TextImporter accepts .txt and .md files, or any path when Extensions is set
// to the list it should match instead.
type TextImporter struct {
	Extensions []string
}

func (i TextImporter) CanImport(path simpleassets.AssetPath) bool {
	exts := i.Extensions
	if len(exts) == 0 {
		exts = []string{"txt", "md"}
	}
	return simpleassets.MatchExtensions(exts...)(path)
}

func (TextImporter) Import(ctx context.Context, r io.Reader) (TextAsset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return TextAsset{}, err
	}
	if !utf8.Valid(data) {
		return TextAsset{}, fmt.Errorf("%w: not valid UTF-8", simpleassets.ErrMalformedAsset)
	}
	return TextAsset{Text: string(data)}, nil
}

// TextExporter writes a TextAsset verbatim.
type TextExporter struct {
	simpleassets.AnyPath
}

func (TextExporter) Export(ctx context.Context, asset *TextAsset, w io.Writer) error {
	_, err := io.WriteString(w, asset.Text)
	return err
}
