package simpleassets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets"
)

type sprite struct{}

func TestAssetPath(t *testing.T) {
	tests := []struct {
		path      simpleassets.AssetPath
		scheme    string
		location  string
		extension string
	}{
		{"local://assets/test.ase", "local", "assets/test.ase", "ase"},
		{"memory://test1.json", "memory", "test1.json", "json"},
		{"s3://bucket/Level.YAML", "s3", "bucket/Level.YAML", "yaml"},
		{"local://assets/noext", "local", "assets/noext", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path.String(), func(t *testing.T) {
			require.NoError(t, tt.path.Validate())
			assert.Equal(t, tt.scheme, tt.path.Scheme())
			assert.Equal(t, tt.location, tt.path.Location())
			assert.Equal(t, tt.extension, tt.path.Extension())
		})
	}
}

func TestParseAssetPathInvalid(t *testing.T) {
	for _, s := range []string{"", "assets/test.ase", "://x", "bad scheme://x"} {
		_, err := simpleassets.ParseAssetPath(s)
		assert.ErrorIs(t, err, simpleassets.ErrInvalidPath, s)
	}
}

func TestAssetPathJoinAndRel(t *testing.T) {
	root := simpleassets.AssetPath("local://assets")

	p := root.Join("sprites", "hero.ase")
	assert.Equal(t, simpleassets.AssetPath("local://assets/sprites/hero.ase"), p)
	assert.Equal(t, simpleassets.NewAssetPath("local", "/assets/sprites/hero.ase"), p)

	rel, ok := p.Rel(root)
	assert.True(t, ok)
	assert.Equal(t, "sprites/hero.ase", rel)

	_, ok = simpleassets.AssetPath("local://other/x").Rel(root)
	assert.False(t, ok)
	_, ok = simpleassets.AssetPath("memory://assets/x").Rel(root)
	assert.False(t, ok)
	_, ok = simpleassets.AssetPath("local://assetsx/y").Rel(root)
	assert.False(t, ok)

	rel, ok = simpleassets.AssetPath("memory://a/b").Rel("memory://")
	assert.True(t, ok)
	assert.Equal(t, "a/b", rel)
}

func TestAssetPathCanonical(t *testing.T) {
	tests := []struct {
		in   simpleassets.AssetPath
		want simpleassets.AssetPath
	}{
		{"memory://a.json", "memory://a.json"},
		{"memory:///a.json", "memory://a.json"},
		{"memory://./a.json", "memory://a.json"},
		{"local://assets//sprites/./hero.ase", "local://assets/sprites/hero.ase"},
		{"local://assets/../../etc/passwd", "local://etc/passwd"},
		{"local://assets/", "local://assets"},
		{"memory://", "memory://"},
		{"no-scheme/a.json", "no-scheme/a.json"},
	}

	for _, tt := range tests {
		t.Run(tt.in.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Canonical())
		})
	}

	p, err := simpleassets.ParseAssetPath("memory:///dir/../a.json")
	require.NoError(t, err)
	assert.Equal(t, simpleassets.AssetPath("memory://a.json"), p)
	assert.Equal(t, p, simpleassets.NewAssetPath("memory", "./a.json"))
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, simpleassets.TypeName("github.com/tendant/simple-assets/pkg/simpleassets_test.sprite"), simpleassets.TypeOf[sprite]().Name())
	assert.Equal(t, simpleassets.TypeOf[sprite](), simpleassets.TypeOf[sprite]())
	assert.NotEqual(t, simpleassets.TypeOf[sprite](), simpleassets.TypeOf[*sprite]())
	assert.Equal(t, simpleassets.TypeName("string"), simpleassets.TypeOf[string]().Name())
	assert.Equal(t, "", simpleassets.TypeID{}.String())
}

func localSpriteType() simpleassets.TypeID {
	type sprite struct{ Frames int }
	return simpleassets.TypeOf[sprite]()
}

func TestTypeOfDistinguishesSameNamedTypes(t *testing.T) {
	type sprite struct{ Name string }

	outer := localSpriteType()
	inner := simpleassets.TypeOf[sprite]()

	assert.Equal(t, outer.Name(), inner.Name())
	assert.NotEqual(t, outer, inner)
	assert.NotEqual(t, outer.Reflect(), inner.Reflect())
}
