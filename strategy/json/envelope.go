package json

import (
	"encoding/json"
	"time"

	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/internal/versioning"
)

// Envelope is the broker representation of a committed event
type Envelope struct {
	EventID          string
	EventName        string
	AggregateType    string
	AggregateID      string
	AggregateVersion int
	CreatedAt        time.Time
	Payload          json.RawMessage
}

// NewEnvelope wraps a committed message using the converter to serialize its payload
func NewEnvelope(msg bankengine.Message, converter bankengine.MessagePayloadConverter) (*Envelope, error) {
	name, data, err := converter.ConvertPayload(msg.Payload())
	if err != nil {
		return nil, err
	}

	meta := msg.Metadata()
	env := &Envelope{
		EventID:   msg.UUID().String(),
		EventName: name,
		CreatedAt: msg.CreatedAt().UTC(),
		Payload:   data,
	}
	if v, ok := meta.Value(aggregate.TypeKey).(string); ok {
		env.AggregateType = v
	}
	if v, ok := meta.Value(aggregate.IDKey).(string); ok {
		env.AggregateID = v
	}
	if v := meta.Value(aggregate.VersionKey); v != nil {
		if env.AggregateVersion, err = versioning.AsInt(v); err != nil {
			return nil, err
		}
	}

	return env, nil
}

// DecodePayload reconstructs the payload of the envelope
func (e *Envelope) DecodePayload(factory bankengine.MessagePayloadFactory) (interface{}, error) {
	return factory.CreatePayload(e.EventName, e.Payload)
}

// MarshalJSON supports json.Marshaler interface
func (e Envelope) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	e.MarshalEasyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (e Envelope) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"event_id":`)
	out.String(e.EventID)
	out.RawString(`,"event_name":`)
	out.String(e.EventName)
	out.RawString(`,"aggregate_type":`)
	out.String(e.AggregateType)
	out.RawString(`,"aggregate_id":`)
	out.String(e.AggregateID)
	out.RawString(`,"aggregate_version":`)
	out.Int(e.AggregateVersion)
	out.RawString(`,"created_at":`)
	out.String(e.CreatedAt.Format(time.RFC3339Nano))
	out.RawString(`,"payload":`)
	if len(e.Payload) == 0 {
		out.RawString("null")
	} else {
		out.Raw(e.Payload, nil)
	}
	out.RawByte('}')
}

// UnmarshalJSON supports json.Unmarshaler interface
func (e *Envelope) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	e.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (e *Envelope) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "event_id":
			e.EventID = in.String()
		case "event_name":
			e.EventName = in.String()
		case "aggregate_type":
			e.AggregateType = in.String()
		case "aggregate_id":
			e.AggregateID = in.String()
		case "aggregate_version":
			e.AggregateVersion = in.Int()
		case "created_at":
			if ts, err := time.Parse(time.RFC3339Nano, in.String()); err != nil {
				in.AddError(err)
			} else {
				e.CreatedAt = ts
			}
		case "payload":
			e.Payload = append(json.RawMessage(nil), in.Raw()...)
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}
}
