package json

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/strategy/json/internal"
)

var (
	// ErrUnsupportedJSONPayloadData occurs when the data type is not supported by the PayloadTransformer
	ErrUnsupportedJSONPayloadData = errors.New("bankengine: payload data was expected to be a []byte, json.RawMessage or string")
	// ErrPayloadCannotBeSerialized occurs when the payload cannot be serialized
	ErrPayloadCannotBeSerialized = errors.New("bankengine: payload cannot be serialized")
	// ErrPayloadNotRegistered occurs when the payload is not registered
	ErrPayloadNotRegistered = errors.New("bankengine: payload is not registered")
	// ErrInitiatorInvalidResult occurs when a PayloadInitiator returns nil
	ErrInitiatorInvalidResult = errors.New("bankengine: initializer must return a value or a pointer that is not nil")
	// ErrDuplicatePayloadType occurs when an event name or payload type is already registered
	ErrDuplicatePayloadType = errors.New("bankengine: payload type is already registered")

	_ bankengine.MessagePayloadFactory   = &PayloadTransformer{}
	_ bankengine.MessagePayloadConverter = &PayloadTransformer{}
	_ bankengine.MessagePayloadResolver  = &PayloadTransformer{}
)

type (
	// PayloadInitiator returns an empty event payload to decode into
	PayloadInitiator func() interface{}

	// PayloadTransformer maps event names to payload types and back, and converts payloads from and to JSON.
	// It is safe for concurrent use.
	PayloadTransformer struct {
		mu     sync.RWMutex
		byName map[string]registeredPayload
		byType map[reflect.Type]string
	}

	registeredPayload struct {
		initiator PayloadInitiator
		typ       reflect.Type
	}
)

// NewPayloadTransformer returns a PayloadTransformer without any registered events
func NewPayloadTransformer() *PayloadTransformer {
	return &PayloadTransformer{
		byName: map[string]registeredPayload{},
		byType: map[reflect.Type]string{},
	}
}

// RegisterPayload registers the event name of the payload type returned by initiator
func (p *PayloadTransformer) RegisterPayload(name string, initiator PayloadInitiator) error {
	payload := initiator()
	if payload == nil {
		return ErrInitiatorInvalidResult
	}

	rv := reflect.ValueOf(payload)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return ErrInitiatorInvalidResult
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, known := p.byName[name]; known {
		return ErrDuplicatePayloadType
	}
	if _, known := p.byType[rv.Type()]; known {
		return ErrDuplicatePayloadType
	}

	p.byName[name] = registeredPayload{initiator: initiator, typ: rv.Type()}
	p.byType[rv.Type()] = name

	return nil
}

// RegisterPayloads registers every event name of payloads
func (p *PayloadTransformer) RegisterPayloads(payloads map[string]PayloadInitiator) error {
	for name, initiator := range payloads {
		if err := p.RegisterPayload(name, initiator); err != nil {
			return err
		}
	}

	return nil
}

// ResolveName returns the event name the type of payload was registered with
func (p *PayloadTransformer) ResolveName(payload interface{}) (string, error) {
	if payload == nil {
		return "", ErrPayloadNotRegistered
	}

	p.mu.RLock()
	name, ok := p.byType[reflect.TypeOf(payload)]
	p.mu.RUnlock()

	if !ok {
		return "", ErrPayloadNotRegistered
	}

	return name, nil
}

// ConvertPayload returns the event name and the JSON of payload
func (p *PayloadTransformer) ConvertPayload(payload interface{}) (string, []byte, error) {
	name, err := p.ResolveName(payload)
	if err != nil {
		return "", nil, err
	}

	data, err := internal.MarshalJSON(payload)
	if err != nil {
		return "", nil, ErrPayloadCannotBeSerialized
	}

	return name, data, nil
}

// CreatePayload decodes data into a new payload of the type registered for name.
// An unregistered name is reported as a *bankengine.UnknownEventKindError.
func (p *PayloadTransformer) CreatePayload(name string, data interface{}) (interface{}, error) {
	var raw []byte
	switch d := data.(type) {
	case []byte:
		raw = d
	case json.RawMessage:
		raw = d
	case string:
		raw = []byte(d)
	default:
		return nil, ErrUnsupportedJSONPayloadData
	}

	p.mu.RLock()
	registered, found := p.byName[name]
	p.mu.RUnlock()

	if !found {
		return nil, &bankengine.UnknownEventKindError{Kind: name}
	}

	payload := registered.initiator()
	if registered.typ.Kind() == reflect.Ptr {
		if err := internal.UnmarshalJSON(raw, payload); err != nil {
			return nil, err
		}

		return payload, nil
	}

	// value payloads are decoded through a pointer to a copy
	target := reflect.New(registered.typ)
	target.Elem().Set(reflect.ValueOf(payload))
	if err := internal.UnmarshalJSON(raw, target.Interface()); err != nil {
		return nil, err
	}

	return target.Elem().Interface(), nil
}
