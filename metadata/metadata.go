package metadata

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Metadata is an immutable key/value set attached to a message
type Metadata interface {
	// Value returns the value stored for key or nil
	Value(key string) interface{}

	// AsMap returns a copy of the data as a map
	AsMap() map[string]interface{}
}

// New returns an empty Metadata
func New() Metadata {
	return new(emptyData)
}

// FromMap returns a Metadata instance containing all entries of data
func FromMap(data map[string]interface{}) Metadata {
	meta := New()
	for k, v := range data {
		meta = WithValue(meta, k, v)
	}

	return meta
}

// WithValue returns a copy of parent in which the value associated with key is val.
func WithValue(parent Metadata, key string, val interface{}) Metadata {
	return &valueData{parent, key, val}
}

type emptyData int

var (
	_ Metadata       = new(emptyData)
	_ json.Marshaler = new(emptyData)
)

func (*emptyData) Value(string) interface{} {
	return nil
}

func (*emptyData) AsMap() map[string]interface{} {
	return map[string]interface{}{}
}

func (*emptyData) MarshalJSON() ([]byte, error) {
	return []byte("{}"), nil
}

// valueData is one link of the metadata chain
type valueData struct {
	Metadata
	key string
	val interface{}
}

var (
	_ Metadata       = new(valueData)
	_ json.Marshaler = new(valueData)
)

func (v *valueData) Value(key string) interface{} {
	if v.key == key {
		return v.val
	}
	if v.Metadata == nil {
		return nil
	}

	return v.Metadata.Value(key)
}

func (v *valueData) AsMap() map[string]interface{} {
	var m map[string]interface{}
	if v.Metadata == nil {
		m = map[string]interface{}{}
	} else {
		m = v.Metadata.AsMap()
	}

	m[v.key] = v.val

	return m
}

func (v *valueData) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.AsMap())
}

// JSONMetadata wraps Metadata so it can be decoded from a JSON object
type JSONMetadata struct {
	Metadata Metadata
}

var (
	_ json.Marshaler   = &JSONMetadata{}
	_ json.Unmarshaler = &JSONMetadata{}
)

// MarshalJSON returns the JSON object of the wrapped Metadata
func (j JSONMetadata) MarshalJSON() ([]byte, error) {
	if j.Metadata == nil {
		return []byte("{}"), nil
	}

	return json.Marshal(j.Metadata)
}

// UnmarshalJSON decodes a JSON object into Metadata.
// Numbers are kept as json.Number so integer versions survive the round trip.
func (j *JSONMetadata) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		j.Metadata = New()
		return nil
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "failed to parse metadata an object was expected")
	}

	meta := New()
	for k, raw := range m {
		var v interface{}
		if err := decodeValue(raw, &v); err != nil {
			return errors.Wrapf(err, "failed to parse metadata key %s", k)
		}
		meta = WithValue(meta, k, normalizeNumber(v))
	}

	j.Metadata = meta
	return nil
}
