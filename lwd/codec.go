package lwd

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// rawCodec passes already-encoded protobuf wire bytes straight through.
// The sync engine decodes compact blocks itself via compact.DecodeBlock
// (spec.md §6), so there is no generated message type for grpc's default
// codec to marshal against; forcing this codec on every call lets grpcClient
// drive the server with google.golang.org/grpc's transport and flow control
// without a protoc-generated service stub.
type rawCodec struct{}

const rawCodecName = "shieldsync-raw"

func init() {
	encoding.RegisterCodec(rawCodec{})
}

func (rawCodec) Name() string { return rawCodecName }

func (rawCodec) Marshal(v any) ([]byte, error) {
	b, ok := v.(*rawMessage)
	if !ok {
		return nil, fmt.Errorf("lwd: rawCodec cannot marshal %T", v)
	}
	return b.b, nil
}

func (rawCodec) Unmarshal(data []byte, v any) error {
	b, ok := v.(*rawMessage)
	if !ok {
		return fmt.Errorf("lwd: rawCodec cannot unmarshal into %T", v)
	}
	b.b = append([]byte(nil), data...)
	return nil
}

// rawMessage adapts a plain byte slice to grpc's proto.Message-shaped
// Marshal/Unmarshal contract.
type rawMessage struct{ b []byte }

func forceRawCodec() grpc.CallOption {
	return grpc.ForceCodec(rawCodec{})
}
