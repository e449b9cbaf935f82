package importers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tendant/simple-assets/pkg/simpleassets"
	"gopkg.in/yaml.v3"
)

// JSONImporter decodes .json documents into T.
type JSONImporter[T any] struct{}

func (JSONImporter[T]) CanImport(path simpleassets.AssetPath) bool {
	return path.Extension() == "json"
}

func (JSONImporter[T]) Import(ctx context.Context, r io.Reader) (T, error) {
	var v T
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", simpleassets.ErrMalformedAsset, err)
	}
	return v, nil
}

// JSONExporter writes T as indented JSON to .json documents.
type JSONExporter[T any] struct{}

func (JSONExporter[T]) CanExport(path simpleassets.AssetPath) bool {
	return path.Extension() == "json"
}

func (JSONExporter[T]) Export(ctx context.Context, asset *T, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(asset)
}

// YAMLImporter decodes .yaml and .yml documents into T.
type YAMLImporter[T any] struct{}

func (YAMLImporter[T]) CanImport(path simpleassets.AssetPath) bool {
	ext := path.Extension()
	return ext == "yaml" || ext == "yml"
}

func (YAMLImporter[T]) Import(ctx context.Context, r io.Reader) (T, error) {
	var v T
	if err := yaml.NewDecoder(r).Decode(&v); err != nil {
		return v, fmt.Errorf("%w: %v", simpleassets.ErrMalformedAsset, err)
	}
	return v, nil
}

// YAMLExporter writes T to .yaml and .yml documents.
type YAMLExporter[T any] struct{}

func (YAMLExporter[T]) CanExport(path simpleassets.AssetPath) bool {
	ext := path.Extension()
	return ext == "yaml" || ext == "yml"
}

func (YAMLExporter[T]) Export(ctx context.Context, asset *T, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(asset); err != nil {
		return err
	}
	return enc.Close()
}
