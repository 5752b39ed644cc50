package server

import (
	"encoding/json"
	"fmt"
)

// Codec carries glyph messages as JSON inside gRPC frames, so the service
// needs no generated protobuf stubs. Both ends must force it: the server via
// grpc.ForceServerCodec and clients via grpc.ForceCodec.
type Codec struct{}

// Name is used as the content-subtype ("application/grpc+json").
func (Codec) Name() string {
	return "json"
}

func (Codec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal %T: %w", v, err)
	}
	return b, nil
}

func (Codec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal %T: %w", v, err)
	}
	return nil
}
