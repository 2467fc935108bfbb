package sql

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	driverSQL "github.com/hellofresh/bankengine/driver/sql"
	"github.com/hellofresh/bankengine/internal/versioning"
	"github.com/hellofresh/bankengine/metadata"
)

var (
	_ driverSQL.MessageFactory = &AggregateChangedFactory{}
	_ bankengine.EventStream   = &changeRows{}
)

// AggregateChangedFactory turns event rows into aggregate.Changed messages.
// The rows must hold no, event_id, event_name, payload, metadata and created_at in that order.
type AggregateChangedFactory struct {
	payloads bankengine.MessagePayloadFactory
}

// NewAggregateChangedFactory returns a factory decoding payloads with payloads
func NewAggregateChangedFactory(payloads bankengine.MessagePayloadFactory) (*AggregateChangedFactory, error) {
	if payloads == nil {
		return nil, bankengine.InvalidArgumentError("factory")
	}

	return &AggregateChangedFactory{payloads: payloads}, nil
}

// CreateEventStream wraps rows, closing the stream closes the rows
func (f *AggregateChangedFactory) CreateEventStream(rows *sql.Rows) (bankengine.EventStream, error) {
	if rows == nil {
		return nil, bankengine.InvalidArgumentError("rows")
	}

	return &changeRows{Rows: rows, payloads: f.payloads}, nil
}

// changeRows gets Next, Err and Close from the embedded rows
type changeRows struct {
	*sql.Rows

	payloads bankengine.MessagePayloadFactory
}

func (r *changeRows) Message() (bankengine.Message, int64, error) {
	var (
		number    int64
		eventID   bankengine.UUID
		eventName string
		payload   []byte
		rawMeta   []byte
		createdAt time.Time
	)
	if err := r.Scan(&number, &eventID, &eventName, &payload, &rawMeta, &createdAt); err != nil {
		return nil, 0, err
	}

	var meta metadata.JSONMetadata
	if err := json.Unmarshal(rawMeta, &meta); err != nil {
		return nil, 0, err
	}

	event, err := r.payloads.CreatePayload(eventName, payload)
	if err != nil {
		return nil, 0, err
	}

	id, version, err := aggregateIdentity(meta.Metadata)
	if err != nil {
		return nil, 0, err
	}

	change, err := aggregate.ReconstituteChange(id, eventID, event, meta.Metadata, createdAt, version)

	return change, number, err
}

// aggregateIdentity reads the aggregate id and version every stored change carries in its metadata
func aggregateIdentity(meta metadata.Metadata) (aggregate.ID, int, error) {
	rawID := meta.Value(aggregate.IDKey)
	if rawID == nil {
		return "", 0, MissingMetadataError(aggregate.IDKey)
	}
	idString, ok := rawID.(string)
	if !ok {
		return "", 0, &InvalidMetadataValueTypeError{key: aggregate.IDKey, value: rawID, expected: "string"}
	}
	id, err := aggregate.IDFromString(idString)
	if err != nil {
		return "", 0, err
	}

	rawVersion := meta.Value(aggregate.VersionKey)
	if rawVersion == nil {
		return "", 0, MissingMetadataError(aggregate.VersionKey)
	}
	version, err := versioning.AsInt(rawVersion)
	if err != nil {
		return "", 0, &InvalidMetadataValueTypeError{key: aggregate.VersionKey, value: rawVersion, expected: "integer"}
	}
	if version < 0 {
		return "", 0, aggregate.ErrInvalidChangeVersion
	}

	return id, version, nil
}

// MissingMetadataError reports a metadata key that is absent or nil
type MissingMetadataError string

func (e MissingMetadataError) Error() string {
	return "bankengine: metadata key " + string(e) + " is not set or nil"
}

// InvalidMetadataValueTypeError reports a metadata value of the wrong type
type InvalidMetadataValueTypeError struct {
	key      string
	value    interface{}
	expected string
}

func (e *InvalidMetadataValueTypeError) Error() string {
	return fmt.Sprintf("bankengine: metadata key %s with value %v was expected to be of type %s", e.key, e.value, e.expected)
}
