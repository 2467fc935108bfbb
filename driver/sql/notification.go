package sql

import (
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// ProjectionNotification is the payload of the notification sent by the database after an event was appended
type ProjectionNotification struct {
	No          int64  `json:"no"`
	EventName   string `json:"event_name"`
	AggregateID string `json:"aggregate_id"`
}

// MarshalJSON supports json.Marshaler interface
func (p ProjectionNotification) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	p.MarshalEasyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (p ProjectionNotification) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"no":`)
	out.Int64(p.No)
	out.RawString(`,"event_name":`)
	out.String(p.EventName)
	out.RawString(`,"aggregate_id":`)
	out.String(p.AggregateID)
	out.RawByte('}')
}

// UnmarshalJSON supports json.Unmarshaler interface
func (p *ProjectionNotification) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	p.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (p *ProjectionNotification) UnmarshalEasyJSON(in *jlexer.Lexer) {
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
		case "no":
			p.No = in.Int64()
		case "event_name":
			p.EventName = in.String()
		case "aggregate_id":
			p.AggregateID = in.String()
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
