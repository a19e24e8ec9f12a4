// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Format names a wire format in configuration.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// Codec turns envelopes into frames and back. Payloads stay encoded
// after DecodeEnvelope so the subscriber for an event decides the
// concrete type.
type Codec interface {
	// Format returns the configuration name of this codec.
	Format() Format

	// Binary reports whether frames must be sent as binary WebSocket
	// messages rather than text.
	Binary() bool

	// EncodeEnvelope encodes payload under event.
	EncodeEnvelope(event string, payload any) ([]byte, error)

	// DecodeEnvelope splits a frame into its event name and still
	// encoded payload.
	DecodeEnvelope(frame []byte) (event string, data []byte, err error)

	// Unmarshal decodes a payload returned by DecodeEnvelope.
	Unmarshal(data []byte, v any) error
}

// ForFormat returns the codec for a configured format. The empty
// format selects JSON.
func ForFormat(format Format) (Codec, error) {
	switch format {
	case FormatJSON, "":
		return JSON, nil
	case FormatCBOR:
		return CBOR, nil
	default:
		return nil, fmt.Errorf("codec: unknown wire format %q", format)
	}
}

var (
	// JSON is the text-frame codec.
	JSON Codec = jsonCodec{}

	// CBOR is the binary-frame codec.
	CBOR Codec = cborCodec{}
)

type jsonCodec struct{}

type jsonEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func (jsonCodec) Format() Format { return FormatJSON }

func (jsonCodec) Binary() bool { return false }

func (jsonCodec) EncodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: encoding %s payload: %w", event, err)
	}
	return json.Marshal(jsonEnvelope{Event: event, Data: data})
}

func (jsonCodec) DecodeEnvelope(frame []byte) (string, []byte, error) {
	var envelope jsonEnvelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return "", nil, fmt.Errorf("codec: decoding JSON envelope: %w", err)
	}
	if envelope.Event == "" {
		return "", nil, fmt.Errorf("codec: envelope has no event name")
	}
	return envelope.Event, envelope.Data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// encMode sorts map keys and writes times as RFC 3339 text so CBOR and
// JSON frames carry the same timestamp representation.
var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	options := cbor.CoreDetEncOptions()
	options.Time = cbor.TimeRFC3339Nano
	var err error
	encMode, err = options.EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

type cborCodec struct{}

type cborEnvelope struct {
	Event string          `cbor:"event"`
	Data  cbor.RawMessage `cbor:"data,omitempty"`
}

func (cborCodec) Format() Format { return FormatCBOR }

func (cborCodec) Binary() bool { return true }

func (cborCodec) EncodeEnvelope(event string, payload any) ([]byte, error) {
	data, err := encMode.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("codec: encoding %s payload: %w", event, err)
	}
	return encMode.Marshal(cborEnvelope{Event: event, Data: data})
}

func (cborCodec) DecodeEnvelope(frame []byte) (string, []byte, error) {
	var envelope cborEnvelope
	if err := decMode.Unmarshal(frame, &envelope); err != nil {
		return "", nil, fmt.Errorf("codec: decoding CBOR envelope: %w", err)
	}
	if envelope.Event == "" {
		return "", nil, fmt.Errorf("codec: envelope has no event name")
	}
	return envelope.Event, envelope.Data, nil
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}
