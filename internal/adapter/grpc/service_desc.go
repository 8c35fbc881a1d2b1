package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "wealthflow.portfolio.v1.PortfolioService"

// RPC method names
const (
	MethodGetValuation       = "GetValuation"
	MethodGetAnalytics       = "GetAnalytics"
	MethodGetGoalProgress    = "GetGoalProgress"
	MethodAddHolding         = "AddHolding"
	MethodRecordTransaction  = "RecordTransaction"
	MethodReverseTransaction = "ReverseTransaction"
	MethodCreateGoal         = "CreateGoal"
	MethodRecordQuote        = "RecordQuote"
)

// PortfolioServer is the server API for the PortfolioService.
// Requests and responses are google.protobuf.Struct messages.
type PortfolioServer interface {
	GetValuation(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAnalytics(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetGoalProgress(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AddHolding(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ReverseTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateGoal(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecordQuote(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(PortfolioServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// PortfolioServiceDesc describes the PortfolioService for grpc.ServiceRegistrar
var PortfolioServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PortfolioServer)(nil),
	Methods: []grpc.MethodDesc{
		methodDesc(MethodGetValuation, PortfolioServer.GetValuation),
		methodDesc(MethodGetAnalytics, PortfolioServer.GetAnalytics),
		methodDesc(MethodGetGoalProgress, PortfolioServer.GetGoalProgress),
		methodDesc(MethodAddHolding, PortfolioServer.AddHolding),
		methodDesc(MethodRecordTransaction, PortfolioServer.RecordTransaction),
		methodDesc(MethodReverseTransaction, PortfolioServer.ReverseTransaction),
		methodDesc(MethodCreateGoal, PortfolioServer.CreateGoal),
		methodDesc(MethodRecordQuote, PortfolioServer.RecordQuote),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wealthflow/portfolio/v1/portfolio.proto",
}

// RegisterPortfolioServer registers srv with the gRPC server
func RegisterPortfolioServer(s grpc.ServiceRegistrar, srv PortfolioServer) {
	s.RegisterService(&PortfolioServiceDesc, srv)
}

// fullMethod returns the /service/method path of an RPC
func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func methodDesc(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(PortfolioServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(PortfolioServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
