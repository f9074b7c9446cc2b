package rpcapi

import (
	"context"

	"google.golang.org/grpc"
)

// NodeService is the node's RPC surface. grpcserver.Server
// implements it against an internal/orchestrator.Engine; ServiceDesc
// below is the hand-built grpc.ServiceDesc that dispatches onto it
// without a protoc-generated stub.
type NodeService interface {
	Decrypt(ctx context.Context, req *DecryptRequest) (*DecryptResponse, error)
	DecryptSync(ctx context.Context, req *DecryptRequest) (*DecryptSyncResponse, error)
	GetDecryptResult(ctx context.Context, req *GetDecryptResultRequest) (*GetDecryptResultResponse, error)
	GetPublicKeysForEncryption(ctx context.Context, req *Empty) (*GetPublicKeysResponse, error)
	GetPublicKeysForSignature(ctx context.Context, req *Empty) (*GetPublicKeysResponse, error)
	PushDecryptionShare(ctx context.Context, req *PushDecryptionShareRequest) (*Empty, error)
}

func _NodeService_Decrypt_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DecryptRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeService).Decrypt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/thetacrypt.NodeService/Decrypt"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeService).Decrypt(ctx, req.(*DecryptRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_DecryptSync_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DecryptRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeService).DecryptSync(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/thetacrypt.NodeService/DecryptSync"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeService).DecryptSync(ctx, req.(*DecryptRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_GetDecryptResult_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetDecryptResultRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeService).GetDecryptResult(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/thetacrypt.NodeService/GetDecryptResult"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeService).GetDecryptResult(ctx, req.(*GetDecryptResultRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_GetPublicKeysForEncryption_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeService).GetPublicKeysForEncryption(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/thetacrypt.NodeService/GetPublicKeysForEncryption"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeService).GetPublicKeysForEncryption(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_GetPublicKeysForSignature_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeService).GetPublicKeysForSignature(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/thetacrypt.NodeService/GetPublicKeysForSignature"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeService).GetPublicKeysForSignature(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _NodeService_PushDecryptionShare_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PushDecryptionShareRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NodeService).PushDecryptionShare(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/thetacrypt.NodeService/PushDecryptionShare"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(NodeService).PushDecryptionShare(ctx, req.(*PushDecryptionShareRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc that would normally be emitted by
// protoc-gen-go-grpc; it is hand-written here because no protoc run is
// part of this build, and registered with RegisterNodeServiceServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "thetacrypt.NodeService",
	HandlerType: (*NodeService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Decrypt", Handler: _NodeService_Decrypt_Handler},
		{MethodName: "DecryptSync", Handler: _NodeService_DecryptSync_Handler},
		{MethodName: "GetDecryptResult", Handler: _NodeService_GetDecryptResult_Handler},
		{MethodName: "GetPublicKeysForEncryption", Handler: _NodeService_GetPublicKeysForEncryption_Handler},
		{MethodName: "GetPublicKeysForSignature", Handler: _NodeService_GetPublicKeysForSignature_Handler},
		{MethodName: "PushDecryptionShare", Handler: _NodeService_PushDecryptionShare_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pkg/rpcapi/service.go",
}

// RegisterNodeServiceServer registers srv's implementation of NodeService
// onto s, mirroring the generated RegisterXxxServer function protoc would
// otherwise produce.
func RegisterNodeServiceServer(s grpc.ServiceRegistrar, srv NodeService) {
	s.RegisterService(&ServiceDesc, srv)
}
