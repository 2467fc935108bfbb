package metadata

import (
	"bytes"
	"encoding/json"
)

func decodeValue(raw json.RawMessage, v *interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	return dec.Decode(v)
}

// normalizeNumber turns integral json.Number values into int64 and the rest into float64
func normalizeNumber(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}

	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}

	return n.String()
}
