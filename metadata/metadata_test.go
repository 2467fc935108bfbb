//go:build unit
// +build unit

package metadata_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hellofresh/bankengine/metadata"
)

func TestWithValue(t *testing.T) {
	t.Run("chained values", func(t *testing.T) {
		asserts := assert.New(t)

		m := metadata.New()
		asserts.Nil(m.Value("_aggregate_id"))

		m = metadata.WithValue(m, "_aggregate_id", "0c9b8c9b-2a35-4a1f-9d37-0a7b3d83b1c5")
		m2 := metadata.WithValue(m, "_aggregate_version", 3)

		asserts.Equal("0c9b8c9b-2a35-4a1f-9d37-0a7b3d83b1c5", m2.Value("_aggregate_id"))
		asserts.Equal(3, m2.Value("_aggregate_version"))
		asserts.Nil(m.Value("_aggregate_version"), "parent must not change")
	})

	t.Run("nil parent", func(t *testing.T) {
		m := metadata.WithValue(nil, "key", "value")

		assert.Equal(t, "value", m.Value("key"))
		assert.Nil(t, m.Value("other"))
	})

	t.Run("override", func(t *testing.T) {
		m := metadata.WithValue(metadata.New(), "key", "a")
		m = metadata.WithValue(m, "key", "b")

		assert.Equal(t, map[string]interface{}{"key": "b"}, m.AsMap())
	})
}

func TestJSONMetadata(t *testing.T) {
	testCases := []struct {
		title    string
		json     string
		expected map[string]interface{}
	}{
		{
			"empty object",
			`{}`,
			map[string]interface{}{},
		},
		{
			"aggregate keys",
			`{"_aggregate_type":"bank_account","_aggregate_id":"abc","_aggregate_version":12}`,
			map[string]interface{}{
				"_aggregate_type":    "bank_account",
				"_aggregate_id":      "abc",
				"_aggregate_version": int64(12),
			},
		},
		{
			"nested values",
			`{"rate":0.5,"tags":["a","b"],"ok":true}`,
			map[string]interface{}{
				"rate": 0.5,
				"tags": []interface{}{"a", "b"},
				"ok":   true,
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.title, func(t *testing.T) {
			var m metadata.JSONMetadata
			err := json.Unmarshal([]byte(testCase.json), &m)

			require.NoError(t, err)
			assert.Equal(t, testCase.expected, m.Metadata.AsMap())
		})
	}

	t.Run("invalid json", func(t *testing.T) {
		var m metadata.JSONMetadata
		err := json.Unmarshal([]byte(`["a"]`), &m)

		assert.Error(t, err)
	})

	t.Run("marshal", func(t *testing.T) {
		m := metadata.WithValue(metadata.New(), "_aggregate_version", 2)

		data, err := json.Marshal(metadata.JSONMetadata{Metadata: m})

		require.NoError(t, err)
		assert.JSONEq(t, `{"_aggregate_version":2}`, string(data))
	})
}
