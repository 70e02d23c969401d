package serialization

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ContentTypeJSON is the content type produced by JSONCodec
const ContentTypeJSON = "application/json"

// JSONCodec encodes payloads as JSON
type JSONCodec struct {
	disallowUnknownFields bool
}

// JSONCodecOption configures the JSON codec
type JSONCodecOption func(*JSONCodec)

// WithDisallowUnknownFields makes Decode reject fields the target type lacks
func WithDisallowUnknownFields(disallow bool) JSONCodecOption {
	return func(c *JSONCodec) {
		c.disallowUnknownFields = disallow
	}
}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec(opts ...JSONCodecOption) *JSONCodec {
	c := &JSONCodec{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Encode serializes v
func (c *JSONCodec) Encode(v any) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("payload cannot be nil")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return data, nil
}

// Decode deserializes data into target, which must be a non-nil pointer
func (c *JSONCodec) Decode(data []byte, target any) error {
	if len(data) == 0 {
		return fmt.Errorf("data cannot be empty")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if c.disallowUnknownFields {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("failed to unmarshal payload into %T: %w", target, err)
	}
	return nil
}

// ContentType returns the MIME type of encoded payloads
func (c *JSONCodec) ContentType() string {
	return ContentTypeJSON
}
