package grpc

import (
	"github.com/bytedance/sonic"
	"google.golang.org/grpc/encoding"
)

// jsonCodec carries the management messages as JSON so the service needs no
// protobuf codegen. Health checks keep the default proto codec.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error)   { return sonic.ConfigStd.Marshal(v) }
func (jsonCodec) Unmarshal(b []byte, v interface{}) error { return sonic.ConfigStd.Unmarshal(b, v) }
func (jsonCodec) Name() string                            { return "json" }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
