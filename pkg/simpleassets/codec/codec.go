// Package codec provides the serialization formats used to persist asset
// manifests.
package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"
)

// Codec encodes and decodes whole documents
type Codec interface {
	Name() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

type jsonCodec struct{}

// JSON returns an indented JSON codec
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (jsonCodec) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

type yamlCodec struct{}

// YAML returns a YAML codec
func YAML() Codec { return yamlCodec{} }

func (yamlCodec) Name() string { return "yaml" }

func (yamlCodec) Encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (yamlCodec) Decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	return dec.Decode(v)
}

// cborEncMode uses Core Deterministic Encoding so the same manifest always
// produces identical bytes.
var cborEncMode cbor.EncMode

var cborDecMode cbor.DecMode

func init() {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	var err error
	cborEncMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

// CBOR returns a deterministic CBOR codec
func CBOR() Codec { return cborCodec{} }

func (cborCodec) Name() string { return "cbor" }

func (cborCodec) Encode(w io.Writer, v any) error {
	return cborEncMode.NewEncoder(w).Encode(v)
}

func (cborCodec) Decode(r io.Reader, v any) error {
	return cborDecMode.NewDecoder(r).Decode(v)
}

type msgpackCodec struct{}

// MessagePack returns a MessagePack codec
func MessagePack() Codec { return msgpackCodec{} }

func (msgpackCodec) Name() string { return "msgpack" }

func (msgpackCodec) Encode(w io.Writer, v any) error {
	return msgpack.NewEncoder(w).Encode(v)
}

func (msgpackCodec) Decode(r io.Reader, v any) error {
	return msgpack.NewDecoder(r).Decode(v)
}

type zstdCodec struct {
	inner Codec
}

// Zstd wraps inner so documents are zstd-compressed on disk.
func Zstd(inner Codec) Codec { return zstdCodec{inner: inner} }

func (c zstdCodec) Name() string { return c.inner.Name() + "+zstd" }

func (c zstdCodec) Encode(w io.Writer, v any) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := c.inner.Encode(zw, v); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func (c zstdCodec) Decode(r io.Reader, v any) error {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return err
	}
	defer zr.Close()
	return c.inner.Decode(zr, v)
}

// ByName returns the codec for name: "json", "yaml", "cbor" or "msgpack",
// optionally suffixed with "+zstd".
func ByName(name string) (Codec, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(strings.TrimSpace(name)), "+zstd")
	var c Codec
	switch base {
	case "json":
		c = JSON()
	case "yaml", "yml":
		c = YAML()
	case "cbor":
		c = CBOR()
	case "msgpack", "messagepack":
		c = MessagePack()
	default:
		return nil, fmt.Errorf("unsupported codec: %s", name)
	}
	if compressed {
		c = Zstd(c)
	}
	return c, nil
}
