// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cluster

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// codecName is the gRPC content subtype carried by every cluster call.
const codecName = "json"

// jsonCodec marshals the plain Go request and response structs. The messages
// are a handful of integers, so a schema compiler buys nothing here.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return codecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
