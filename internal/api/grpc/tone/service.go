package tone

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "light_orchestra.v1.ToneService"

// Method names of the tone service.
const (
	MethodPlayNote = "PlayNote"
	MethodTone     = "Tone"
	MethodMelody   = "Melody"
	MethodStop     = "Stop"
	MethodHealth   = "Health"
	MethodSensor   = "Sensor"
	MethodStatus   = "Status"
)

// ToneServiceServer is the server API of the tone service.
type ToneServiceServer interface {
	PlayNote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Tone(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Melody(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Stop(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Health(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Sensor(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	Status(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// call dispatches one unary method on a ToneServiceServer.
type call func(srv ToneServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// ToneServiceDesc describes the tone service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package level by convention.
var ToneServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ToneServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method(MethodPlayNote, ToneServiceServer.PlayNote),
		method(MethodTone, ToneServiceServer.Tone),
		method(MethodMelody, ToneServiceServer.Melody),
		method(MethodStop, ToneServiceServer.Stop),
		method(MethodHealth, ToneServiceServer.Health),
		method(MethodSensor, ToneServiceServer.Sensor),
		method(MethodStatus, ToneServiceServer.Status),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "light_orchestra/v1/tone.proto",
}

// RegisterToneServiceServer registers srv on s.
func RegisterToneServiceServer(s grpc.ServiceRegistrar, srv ToneServiceServer) {
	s.RegisterService(&ToneServiceDesc, srv)
}

// method builds a unary method descriptor that honors server interceptors.
func method(name string, fn call) grpc.MethodDesc {
	fullMethod := FullMethod(name)

	handler := func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		server, _ := srv.(ToneServiceServer)

		if interceptor == nil {
			return fn(server, ctx, in)
		}

		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: fullMethod,
		}

		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			typed, _ := req.(*structpb.Struct)
			return fn(server, ctx, typed)
		})
	}

	return grpc.MethodDesc{
		MethodName: name,
		Handler:    handler,
	}
}

// FullMethod returns the "/service/method" path of a method.
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// ToneServiceClient is the client API of the tone service.
type ToneServiceClient struct {
	// cc carries the calls.
	cc grpc.ClientConnInterface
}

// NewToneServiceClient returns a client using cc.
func NewToneServiceClient(cc grpc.ClientConnInterface) *ToneServiceClient {
	return &ToneServiceClient{
		cc: cc,
	}
}

// Call invokes a method by name. A nil request is sent as an empty object.
func (c *ToneServiceClient) Call(
	ctx context.Context,
	name string,
	req *structpb.Struct,
	opts ...grpc.CallOption,
) (*structpb.Struct, error) {
	if req == nil {
		req = new(structpb.Struct)
	}

	out := new(structpb.Struct)

	if err := c.cc.Invoke(ctx, FullMethod(name), req, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
