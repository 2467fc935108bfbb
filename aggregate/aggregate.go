package aggregate

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidID occurs when a string is not a valid aggregate ID
var ErrInvalidID = errors.New("bankengine: an aggregate ID must be a UUID")

type (
	// ID an UUID for a aggregate.Root instance
	ID string
)

// GenerateID creates a new random UUID or panics
func GenerateID() ID {
	return ID(uuid.New().String())
}

// IDFromString returns the ID when str is a valid UUID
func IDFromString(str string) (ID, error) {
	id, err := uuid.Parse(str)
	if err != nil {
		return "", ErrInvalidID
	}

	return ID(id.String()), nil
}
