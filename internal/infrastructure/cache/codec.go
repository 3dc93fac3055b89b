package cache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// NullSentinel is stored in place of a result that legitimately was "nothing".
// It is not valid JSON and not a single msgpack value, so no payload can collide with it.
const NullSentinel = "__CACHE_NONE__"

var nullSentinel = []byte(NullSentinel)

// Codec serializes cached values to the store's wire format
type Codec interface {
	Name() string
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error
}

// NewCodec returns the codec registered under name ("json" or "msgpack")
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unknown cache codec %q", name)
	}
}

// JSONCodec stores values as JSON documents
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// MsgpackCodec stores values as msgpack, honoring json struct tags so both codecs
// produce the same field names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string { return "msgpack" }

func (MsgpackCodec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(v)
}

// IsNullSentinel reports whether data is the cached "nothing" marker
func IsNullSentinel(data []byte) bool {
	return bytes.Equal(data, nullSentinel)
}

// EncodeValue encodes v, or the sentinel when found is false.
func EncodeValue(codec Codec, v interface{}, found bool) ([]byte, error) {
	if !found {
		return append([]byte(nil), nullSentinel...), nil
	}
	data, err := codec.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%s encode: %w", codec.Name(), err)
	}
	if IsNullSentinel(data) {
		return nil, fmt.Errorf("%s encode: value collides with null sentinel", codec.Name())
	}
	return data, nil
}

// DecodeValue decodes a cached payload. The sentinel decodes to (zero, false, nil)
// so callers never observe it as data.
func DecodeValue[T any](codec Codec, data []byte) (T, bool, error) {
	var out T
	if IsNullSentinel(data) {
		return out, false, nil
	}
	if err := codec.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, false, fmt.Errorf("%s decode: %w", codec.Name(), err)
	}
	return out, true, nil
}
