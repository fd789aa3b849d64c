// Package bridge exposes the shell to the UI as a gRPC service on a local
// socket. Requests are structpb.Struct values and responses are
// structpb.Value, so no generated code is needed.
package bridge

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "qrfactory.bridge.v1.Bridge"

// Method names of the bridge service.
const (
	MethodAPIGet       = "ApiGet"
	MethodAPIPost      = "ApiPost"
	MethodOpenExternal = "OpenExternal"
	MethodSavePNG      = "SavePng"
	MethodSavePDF      = "SavePdf"
	MethodToDataURL    = "ToDataUrl"
)

// BridgeServer is the server API of the bridge service.
type BridgeServer interface {
	APIGet(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	APIPost(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	OpenExternal(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	SavePNG(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	SavePDF(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
	ToDataURL(ctx context.Context, req *structpb.Struct) (*structpb.Value, error)
}

type unaryCall func(srv BridgeServer, ctx context.Context, req *structpb.Struct) (*structpb.Value, error)

func unaryHandler(method string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(BridgeServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: FullMethod(method),
		}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(BridgeServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ServiceDesc describes the bridge service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BridgeServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodAPIGet, Handler: unaryHandler(MethodAPIGet, BridgeServer.APIGet)},
		{MethodName: MethodAPIPost, Handler: unaryHandler(MethodAPIPost, BridgeServer.APIPost)},
		{MethodName: MethodOpenExternal, Handler: unaryHandler(MethodOpenExternal, BridgeServer.OpenExternal)},
		{MethodName: MethodSavePNG, Handler: unaryHandler(MethodSavePNG, BridgeServer.SavePNG)},
		{MethodName: MethodSavePDF, Handler: unaryHandler(MethodSavePDF, BridgeServer.SavePDF)},
		{MethodName: MethodToDataURL, Handler: unaryHandler(MethodToDataURL, BridgeServer.ToDataURL)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "qrfactory/bridge/v1/bridge.proto",
}

// RegisterBridgeServer registers srv on s.
func RegisterBridgeServer(s grpc.ServiceRegistrar, srv BridgeServer) {
	s.RegisterService(&ServiceDesc, srv)
}
