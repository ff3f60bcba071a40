// Package connect provides the Connect RPC conversion service and its client.
package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// codecName replaces Connect's built-in protojson codec, which only accepts
// protobuf messages.
const codecName = "json"

// jsonCodec marshals plain Go messages with encoding/json.
type jsonCodec struct{}

func (jsonCodec) Name() string {
	return codecName
}

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}
