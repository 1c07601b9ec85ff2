// Package grpctransport is the default transport.Transport: a single
// gRPC unary method, Send, carrying a length-prefixed envelope (sender,
// subject, payload) packed into a pre-generated wrapperspb.BytesValue.
// No protoc-generated stubs are required; the service descriptor and
// client stub below are written by hand the way protoc-gen-go-grpc
// would emit them.
package grpctransport
