package archive_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/vfs/archive"
)

var _ simpleassets.FileSystem = (*archive.Backend)(nil)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	_, err := zw.Create("sprites/")
	require.NoError(t, err)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestArchiveBackend(t *testing.T) {
	ctx := context.Background()
	b, err := archive.NewFromBytes(buildZip(t, map[string]string{
		"level.json":       `{"value": 1}`,
		"sprites/hero.ase": "hero",
	}))
	require.NoError(t, err)
	defer b.Close()

	rc, err := b.Open(ctx, "sprites/hero.ase")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hero", string(data))

	_, err = b.Open(ctx, "missing")
	assert.ErrorIs(t, err, simpleassets.ErrNotFound)

	exists, err := b.Exists(ctx, "/level.json")
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := b.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"level.json", "sprites/hero.ase"}, list)

	list, err = b.List(ctx, "sprites")
	require.NoError(t, err)
	assert.Equal(t, []string{"sprites/hero.ase"}, list)

	assert.ErrorIs(t, b.WriteFile(ctx, "new.txt", strings.NewReader("x")), simpleassets.ErrReadOnly)
	assert.ErrorIs(t, b.Remove(ctx, "level.json"), simpleassets.ErrReadOnly)
}

func TestArchiveOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, map[string]string{"a.txt": "a"}), 0o644))

	b, err := archive.Open(path)
	require.NoError(t, err)
	defer b.Close()

	exists, err := b.Exists(context.Background(), "a.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = archive.Open(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}

func TestArchiveAsDatabaseSource(t *testing.T) {
	ctx := context.Background()
	b, err := archive.NewFromBytes(buildZip(t, map[string]string{"a.txt": "packed"}))
	require.NoError(t, err)

	db, err := simpleassets.Open(ctx, "pak://", simpleassets.WithFileSystem("pak", b))
	require.NoError(t, err)

	h, err := db.Hash(ctx, "pak://a.txt")
	require.NoError(t, err)
	assert.Equal(t, simpleassets.HashBytes([]byte("packed")), h)

	// Flushing to a read-only root fails without losing the in-memory state
	simpleassets.AddImporter[string](db, simpleassets.NewImporter(nil, func(ctx context.Context, r io.Reader) (string, error) {
		data, err := io.ReadAll(r)
		return string(data), err
	}))
	s, err := simpleassets.Load[string](ctx, db, "pak://a.txt")
	require.NoError(t, err)
	assert.Equal(t, "packed", *s)

	err = db.FlushChanges(ctx)
	assert.ErrorIs(t, err, simpleassets.ErrReadOnly)
	assert.True(t, db.HasChanges())
}
