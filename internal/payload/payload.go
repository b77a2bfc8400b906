// Package payload turns raw device message bytes into a structured value.
//
// A payload is either Structured (a JSON object) or Raw (anything else).
// Parsing never fails: input that does not decode as an object degrades to Raw.
package payload

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
)

// Payload is the parsed form of a device message. It is implemented only by
// Structured and Raw.
type Payload interface {
	// Text returns the original message text.
	Text() string

	sealed()
}

// Structured is a payload that decoded as a JSON object.
type Structured struct {
	Fields map[string]any
	text   string
}

// Raw wraps a payload that is not a JSON object.
type Raw struct {
	Value string
}

func (s Structured) Text() string { return s.text }
func (Structured) sealed()        {}

func (r Raw) Text() string { return r.Value }
func (Raw) sealed()         {}

// Flag reports whether the named field is present and is the boolean true.
func (s Structured) Flag(name string) bool {
	v, ok := s.Fields[name].(bool)
	return ok && v
}

// String returns the named field rendered as a string, or "" when absent.
func (s Structured) String(name string) string {
	v, ok := s.Fields[name]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Parse interprets data as a JSON object when it looks like one and falls back
// to Raw otherwise.
func Parse(data []byte) Payload {
	text := string(data)
	if !bytes.HasPrefix(data, []byte("{")) {
		return Raw{Value: text}
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Raw{Value: text}
	}
	return Structured{Fields: fields, text: text}
}

// NewStructured builds a Structured payload from fields, rendering its text as JSON.
func NewStructured(fields map[string]any) Structured {
	text, err := json.Marshal(fields)
	if err != nil {
		text = []byte("{}")
	}
	return Structured{Fields: fields, text: string(text)}
}
