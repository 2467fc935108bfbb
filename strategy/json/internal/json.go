package internal

import (
	"encoding/json"

	"github.com/mailru/easyjson"
)

// MarshalJSON encodes v, preferring the generated easyjson marshaller when v has one
func MarshalJSON(v interface{}) ([]byte, error) {
	switch m := v.(type) {
	case easyjson.Marshaler:
		return easyjson.Marshal(m)
	case json.Marshaler:
		return m.MarshalJSON()
	default:
		return json.Marshal(v)
	}
}

// UnmarshalJSON decodes data into v, preferring the generated easyjson unmarshaller when v has one
func UnmarshalJSON(data []byte, v interface{}) error {
	switch u := v.(type) {
	case easyjson.Unmarshaler:
		return easyjson.Unmarshal(data, u)
	case json.Unmarshaler:
		return u.UnmarshalJSON(data)
	default:
		return json.Unmarshal(data, v)
	}
}
