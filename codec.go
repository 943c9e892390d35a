package main

import (
	"encoding/json"
)

// jsonCodec lets connect carry plain Go structs as JSON, so the service
// needs no generated protobuf code.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
