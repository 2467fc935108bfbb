// Package versioning groups appended messages per aggregate so event stores can enforce
// optimistic concurrency on the aggregate version carried in message metadata.
package versioning

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
)

// ErrNonContiguousVersions occurs when the versions of an aggregate within one append are not consecutive
var ErrNonContiguousVersions = errors.New("bankengine: appended aggregate versions must be contiguous")

type (
	// Key identifies an aggregate within a stream
	Key struct {
		Type string
		ID   string
	}

	// Batch is the version range appended for one aggregate
	Batch struct {
		Key
		First int
		Last  int
	}
)

// Conflict returns the ConcurrencyConflictError for a batch given the highest stored version
func (b Batch) Conflict(actual int) error {
	return &bankengine.ConcurrencyConflictError{
		AggregateType: b.Type,
		AggregateID:   b.ID,
		Expected:      b.First - 1,
		Actual:        actual,
	}
}

// Group returns the version ranges per aggregate in the order the aggregates first appear.
// Messages without aggregate metadata are ignored.
func Group(messages []bankengine.Message) ([]Batch, error) {
	var batches []Batch
	index := map[Key]int{}
	for _, msg := range messages {
		meta := msg.Metadata()
		if meta == nil {
			continue
		}

		aggregateType, typeOK := meta.Value(aggregate.TypeKey).(string)
		aggregateID, idOK := meta.Value(aggregate.IDKey).(string)
		if !typeOK || !idOK {
			continue
		}

		version, err := AsInt(meta.Value(aggregate.VersionKey))
		if err != nil {
			return nil, err
		}

		key := Key{Type: aggregateType, ID: aggregateID}
		i, found := index[key]
		if !found {
			index[key] = len(batches)
			batches = append(batches, Batch{Key: key, First: version, Last: version})
			continue
		}

		if batches[i].Last+1 != version {
			return nil, ErrNonContiguousVersions
		}
		batches[i].Last = version
	}

	return batches, nil
}

// AsInt converts a metadata version value into an int
func AsInt(value interface{}) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case float64:
		return int(v), nil
	case json.Number:
		i, err := v.Int64()
		return int(i), err
	}

	return 0, fmt.Errorf("bankengine: unsupported aggregate version %v (%T)", value, value)
}
