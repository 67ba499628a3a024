// Package codec serializes values to strings for storage, e.g. the
// remembered identity kept by a remember-me manager.
package codec

import "encoding/json"

type (
	Encoder interface {
		Encode(v any) (string, error)
	}

	Decoder interface {
		Decode(data string, v any) error
	}

	Codec interface {
		Encoder
		Decoder
	}

	jsonCodec struct {
	}
)

// JSON is the ready-to-use JSON codec
var JSON Codec = &jsonCodec{}

var _ Codec = (*jsonCodec)(nil)

func (c *jsonCodec) Encode(v any) (string, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(bytes), nil
}

func (c *jsonCodec) Decode(data string, v any) error {
	return json.Unmarshal([]byte(data), v)
}
