package aggregate

import (
	"errors"
	"time"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/metadata"
)

var (
	// ErrMissingAggregateID occurs when a change has no aggregate ID
	ErrMissingAggregateID = errors.New("bankengine: no or empty aggregate ID was provided")
	// ErrMissingChangeUUID occurs when a change has the zero UUID
	ErrMissingChangeUUID = errors.New("bankengine: no or empty message UUID was provided")
	// ErrInvalidChangeVersion occurs when a change version is negative
	ErrInvalidChangeVersion = errors.New("bankengine: a changed event must have a version number of zero or greater")
	// ErrInvalidChangePayload occurs when a change has no payload
	ErrInvalidChangePayload = errors.New("bankengine: a changed event must have a payload that is not nil")
)

var _ bankengine.Message = &Changed{}

// Changed is one event of an aggregate stream together with the aggregate version it produced.
// Instances are immutable, the With* methods return copies.
type Changed struct {
	uuid        bankengine.UUID
	aggregateID ID
	payload     interface{}
	metadata    metadata.Metadata
	createdAt   time.Time
	version     int
}

// ReconstituteChange rebuilds a stored change, it is used by the message factories of the event stores
func ReconstituteChange(
	aggregateID ID,
	uuid bankengine.UUID,
	payload interface{},
	metadata metadata.Metadata,
	createdAt time.Time,
	version int,
) (*Changed, error) {
	switch {
	case aggregateID == "":
		return nil, ErrMissingAggregateID
	case uuid == (bankengine.UUID{}):
		return nil, ErrMissingChangeUUID
	case payload == nil:
		return nil, ErrInvalidChangePayload
	case version < 0:
		return nil, ErrInvalidChangeVersion
	}

	return &Changed{
		uuid:        uuid,
		aggregateID: aggregateID,
		payload:     payload,
		metadata:    metadata,
		createdAt:   createdAt,
		version:     version,
	}, nil
}

func (c *Changed) UUID() bankengine.UUID { return c.uuid }
func (c *Changed) AggregateID() ID { return c.aggregateID }
func (c *Changed) CreatedAt() time.Time { return c.createdAt }
func (c *Changed) Payload() interface{} { return c.payload }
func (c *Changed) Metadata() metadata.Metadata { return c.metadata }

// Version is the aggregate version this change produced, the first change has version 0
func (c *Changed) Version() int { return c.version }

// WithMetadata returns a copy of the change with key set in its metadata
func (c *Changed) WithMetadata(key string, value interface{}) bankengine.Message {
	cp := *c
	cp.metadata = metadata.WithValue(c.metadata, key, value)

	return &cp
}

func (c *Changed) withVersion(version int) *Changed {
	cp := *c
	cp.version = version

	return &cp
}
