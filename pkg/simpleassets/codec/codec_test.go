package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-assets/pkg/simpleassets/codec"
)

type document struct {
	Name  string   `json:"name" yaml:"name" msgpack:"name" cbor:"name"`
	Count int      `json:"count" yaml:"count" msgpack:"count" cbor:"count"`
	Tags  []string `json:"tags" yaml:"tags" msgpack:"tags" cbor:"tags"`
}

func TestRoundTrip(t *testing.T) {
	in := document{Name: "hero", Count: 3, Tags: []string{"sprite", "player"}}

	for _, c := range []codec.Codec{
		codec.JSON(),
		codec.YAML(),
		codec.CBOR(),
		codec.MessagePack(),
		codec.Zstd(codec.CBOR()),
	} {
		t.Run(c.Name(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, c.Encode(&buf, &in))

			var out document
			require.NoError(t, c.Decode(&buf, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCBORDeterministic(t *testing.T) {
	c := codec.CBOR()
	m := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}

	var first, second bytes.Buffer
	require.NoError(t, c.Encode(&first, m))
	require.NoError(t, c.Encode(&second, m))
	assert.Equal(t, first.Bytes(), second.Bytes())
}

func TestZstdCompresses(t *testing.T) {
	in := document{Name: strings.Repeat("a", 4096)}

	var plain, compressed bytes.Buffer
	require.NoError(t, codec.JSON().Encode(&plain, &in))
	require.NoError(t, codec.Zstd(codec.JSON()).Encode(&compressed, &in))
	assert.Less(t, compressed.Len(), plain.Len())
}

func TestStrictDecoding(t *testing.T) {
	var out document
	assert.Error(t, codec.JSON().Decode(strings.NewReader(`{"name":"x","extra":1}`), &out))
	assert.Error(t, codec.YAML().Decode(strings.NewReader("name: x\nextra: 1\n"), &out))
}

func TestByName(t *testing.T) {
	tests := []struct {
		name      string
		want      string
		wantError bool
	}{
		{"json", "json", false},
		{"YAML", "yaml", false},
		{"yml", "yaml", false},
		{"cbor", "cbor", false},
		{"messagepack", "msgpack", false},
		{"yaml+zstd", "yaml+zstd", false},
		{"toml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := codec.ByName(tt.name)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Name())
		})
	}
}
