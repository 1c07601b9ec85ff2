package grpctransport

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// envelopeServer is the handler-side interface the hand-written
// ServiceDesc below dispatches to. It mirrors the shape protoc-gen-go-grpc
// would generate for a service with one unary "Send" method.
type envelopeServer interface {
	Send(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
}

func sendHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.BytesValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(envelopeServer).Send(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/hostmesh.transport.Envelope/Send"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(envelopeServer).Send(ctx, req.(*wrapperspb.BytesValue))
	}
	return interceptor(ctx, in, info, handler)
}

// envelopeServiceDesc is the ServiceDesc protoc-gen-go-grpc would emit
// for a service with a single unary Send method exchanging
// wrapperspb.BytesValue, written by hand since no .proto file for this
// envelope exists in the retrieval pack.
var envelopeServiceDesc = grpc.ServiceDesc{
	ServiceName: "hostmesh.transport.Envelope",
	HandlerType: (*envelopeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Send",
			Handler:    sendHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hostmesh/transport/envelope.proto",
}

// envelopeClient is the hand-written counterpart to what
// protoc-gen-go-grpc would emit for the client stub.
type envelopeClient struct {
	cc grpc.ClientConnInterface
}

func newEnvelopeClient(cc grpc.ClientConnInterface) *envelopeClient {
	return &envelopeClient{cc: cc}
}

func (c *envelopeClient) Send(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	err := c.cc.Invoke(ctx, "/hostmesh.transport.Envelope/Send", in, out, opts...)
	if err != nil {
		return nil, err
	}
	return out, nil
}
