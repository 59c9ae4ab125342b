// Package bridge implements the BridgeService gRPC API.
//
// The service is declared with a hand-written grpc.ServiceDesc over
// protobuf well-known types, so no generated code is needed: Subscribe
// streams hub envelopes as google.protobuf.Struct and SendCommand takes a
// google.protobuf.StringValue.
package bridge
