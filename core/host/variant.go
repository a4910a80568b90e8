package host

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeVariant splits an externally tagged JSON message such as
// {"swap":{...}} into its tag and body.
func DecodeVariant(msg json.RawMessage) (string, json.RawMessage, error) {
	var raw map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(msg))
	if err := dec.Decode(&raw); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if len(raw) != 1 {
		return "", nil, fmt.Errorf("%w: expected a single variant, got %d", ErrInvalidMessage, len(raw))
	}
	for tag, body := range raw {
		if len(body) == 0 || string(body) == "null" {
			body = json.RawMessage("{}")
		}
		return tag, body, nil
	}
	return "", nil, ErrInvalidMessage
}

// DecodeBody unmarshals a variant body, rejecting unknown fields.
func DecodeBody(body json.RawMessage, out any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// EncodeVariant builds {"tag": body}.
func EncodeVariant(tag string, body any) (json.RawMessage, error) {
	if body == nil {
		body = struct{}{}
	}
	return json.Marshal(map[string]any{tag: body})
}

// MustEncodeVariant is EncodeVariant for statically known bodies.
func MustEncodeVariant(tag string, body any) json.RawMessage {
	out, err := EncodeVariant(tag, body)
	if err != nil {
		panic(err)
	}
	return out
}

// actionOf returns the tag of msg or "unknown".
func actionOf(msg json.RawMessage) string {
	tag, _, err := DecodeVariant(msg)
	if err != nil {
		return "unknown"
	}
	return tag
}
