package bankengine

import (
	"time"

	"github.com/google/uuid"

	"github.com/hellofresh/bankengine/metadata"
)

type (
	// UUID identifies a stored message
	UUID = uuid.UUID

	// Message is a domain event in its envelope: identity, time of recording and metadata
	Message interface {
		UUID() UUID
		CreatedAt() time.Time
		Payload() interface{}
		Metadata() metadata.Metadata

		// WithMetadata returns a copy of the message with key set to value
		WithMetadata(key string, value interface{}) Message
	}

	// MessagePayloadConverter encodes a payload for storage or publishing
	MessagePayloadConverter interface {
		ConvertPayload(payload interface{}) (name string, data []byte, err error)
	}

	// MessagePayloadFactory decodes a stored payload by its event name
	MessagePayloadFactory interface {
		CreatePayload(name string, data interface{}) (interface{}, error)
	}

	// MessagePayloadResolver returns the event name of a payload
	MessagePayloadResolver interface {
		ResolveName(payload interface{}) (string, error)
	}
)

// GenerateUUID returns a new random message id
func GenerateUUID() UUID {
	return uuid.New()
}
