package simpleassets

import (
	"bytes"
	"context"
)

// Export encodes asset with the first exporter registered for (T, path) and
// replaces the document at path.
func Export[T any](ctx context.Context, db *Database, path AssetPath, asset *T) error {
	t := TypeOf[T]()
	path = path.Canonical()

	fs, err := db.resolve(path)
	if err != nil {
		return &ExportError{Path: path, Type: t, Err: err}
	}
	exporter, ok := db.registry.FindExporter(t, path)
	if !ok {
		return &ExportError{Path: path, Type: t, Err: ErrNoExporterFound}
	}

	var buf bytes.Buffer
	if err := exporter.Export(ContextWithPath(ctx, path), asset, &buf); err != nil {
		return &ExportError{Path: path, Type: t, Err: err}
	}
	size := buf.Len()
	if err := fs.WriteFile(ctx, path.Location(), &buf); err != nil {
		return &ExportError{Path: path, Type: t, Err: &FileSystemError{Path: path, Op: "write", Err: err}}
	}

	db.logger.Info("Asset exported", "path", path, "type", t.Name(), "bytes", size)
	return nil
}
