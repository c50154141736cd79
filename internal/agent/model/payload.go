package model

import (
	"encoding/json"
	"fmt"
)

const (
	PayloadRawResponse = "raw_response"
	PayloadParseError  = "parse_error"
)

// Payload is the decoded JSON object produced by a responder.
type Payload map[string]any

// ParseFailure wraps text that could not be decoded into a Payload.
func ParseFailure(raw string) Payload {
	return Payload{PayloadRawResponse: raw, PayloadParseError: true}
}

// ParseError reports whether the payload is the parse-failure shape.
func (p Payload) ParseError() bool {
	v, ok := p[PayloadParseError].(bool)
	return ok && v
}

// RawResponse returns the text kept by a parse failure.
func (p Payload) RawResponse() string {
	return p.String(PayloadRawResponse)
}

// String returns p[key] when it is a string.
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p[key].(string)
	return s
}

// Get walks nested objects and returns the value at path, if any.
func (p Payload) Get(path ...string) (any, bool) {
	var cur any = map[string]any(p)
	for _, key := range path {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Text renders the value at path for inclusion in a prompt context.
func (p Payload) Text(path ...string) string {
	v, ok := p.Get(path...)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Payload:
		return m, true
	default:
		return nil, false
	}
}
