package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets"
	"github.com/tendant/simple-assets/pkg/simpleassets/vfs/memory"
)

func setupWorkspace(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	assets := filepath.Join(dir, "assets")
	require.NoError(t, os.MkdirAll(filepath.Join(assets, "sprites"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "level.json"), []byte(`{"name":"intro","enemies":3}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "readme.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "sprites", "hero.ase"), []byte{0x41, 0x02, 0x00, 0x10, 0x00, 0x10, 0x00}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(assets, "notes.bin"), []byte{0x00}, 0o644))

	t.Setenv("ASSETS_LOCAL_DIR", dir)
	t.Setenv("ASSETS_ROOT", "local://assets")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportAndManifest(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 3 assets")
	assert.FileExists(t, filepath.Join(dir, "assets", simpleassets.DefaultManifestName))

	out, err = run(t, "manifest")
	require.NoError(t, err)
	assert.Contains(t, out, "local://assets/level.json")
	assert.Contains(t, out, "local://assets/sprites/hero.ase")
	assert.Contains(t, out, "3 records in local://assets/.manifest")
	assert.NotContains(t, out, "notes.bin")
}

func TestImportExplicitPathNeedsKnownType(t *testing.T) {
	setupWorkspace(t)

	_, err := run(t, "import", "notes.bin")
	assert.Error(t, err)

	out, err := run(t, "import", "--type", "text", "readme.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded 1 assets")
}

func TestChanged(t *testing.T) {
	dir := setupWorkspace(t)

	out, err := run(t, "changed", "readme.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "changed   local://assets/readme.txt")

	_, err = run(t, "import", "readme.txt")
	require.NoError(t, err)

	out, err = run(t, "changed", "readme.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged local://assets/readme.txt")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "readme.txt"), []byte("hello again"), 0o644))
	out, err = run(t, "changed", "readme.txt")
	require.NoError(t, err)
	assert.Contains(t, out, "changed   local://assets/readme.txt")
}

func TestHash(t *testing.T) {
	setupWorkspace(t)

	out, err := run(t, "hash", "readme.txt")
	require.NoError(t, err)
	assert.Equal(t, simpleassets.HashBytes([]byte("hello")).String()+"  local://assets/readme.txt\n", out)
}

func TestScan(t *testing.T) {
	setupWorkspace(t)

	out, err := run(t, "scan", "**/*.ase")
	require.NoError(t, err)
	assert.Equal(t, "local://assets/sprites/hero.ase\n", out)
}

func TestSweep(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := run(t, "import")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "assets", "readme.txt")))

	out, err := run(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 records, 2 remain")

	out, err = run(t, "manifest")
	require.NoError(t, err)
	assert.NotContains(t, out, "readme.txt")
}

func TestConvert(t *testing.T) {
	dir := setupWorkspace(t)

	_, err := run(t, "convert", "level.json", "level.yaml")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "assets", "level.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "name: intro")
	assert.Contains(t, string(data), "enemies: 3")
}

func TestResolvePath(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	db, err := simpleassets.Open(ctx, "memory://root", simpleassets.WithFileSystem("memory", memory.New()))
	require.NoError(t, err)

	tests := []struct {
		arg  string
		want simpleassets.AssetPath
	}{
		{"a.json", "memory://root/a.json"},
		{"sprites/hero.ase", "memory://root/sprites/hero.ase"},
		{"local://elsewhere/b.txt", "local://elsewhere/b.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := resolvePath(db, tt.arg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = resolvePath(db, "://missing-scheme")
	assert.ErrorIs(t, err, simpleassets.ErrInvalidPath)
}
