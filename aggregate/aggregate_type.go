package aggregate

import (
	"errors"
	"reflect"
)

var (
	// ErrTypeNameRequired occurs when a Type is created without a name
	ErrTypeNameRequired = errors.New("bankengine: aggregate type name may not be empty")
	// ErrInitiatorMustReturnRoot occurs when an Initiator does not return a non nil pointer
	ErrInitiatorMustReturnRoot = errors.New("bankengine: the aggregate.Initiator must return a pointer to the aggregate.Root")
)

// Initiator returns an empty aggregate root for history to be replayed onto
type Initiator func() Root

// Type binds the name stored in the aggregate_type column to the Go type of the root
type Type struct {
	name      string
	initiator Initiator
	rootType  reflect.Type
}

// NewType returns the Type called name whose roots are created by initiator
func NewType(name string, initiator Initiator) (*Type, error) {
	if name == "" {
		return nil, ErrTypeNameRequired
	}

	sample := reflect.ValueOf(initiator())
	if sample.Kind() != reflect.Ptr || sample.IsNil() {
		return nil, ErrInitiatorMustReturnRoot
	}

	return &Type{name: name, initiator: initiator, rootType: sample.Type()}, nil
}

func (t *Type) String() string {
	return t.name
}

// IsImplementedBy reports whether root is a pointer to this type's root
func (t *Type) IsImplementedBy(root interface{}) bool {
	return root != nil && reflect.TypeOf(root) == t.rootType
}

// CreateInstance returns a new empty root
func (t *Type) CreateInstance() Root {
	return t.initiator()
}
