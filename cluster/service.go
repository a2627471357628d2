// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package cluster

import (
	"context"

	"google.golang.org/grpc"
)

const (
	serviceName  = "pertmc.cluster.v1.Reducer"
	reduceMethod = "/" + serviceName + "/Reduce"
)

// ReduceRequest carries one rank's partial count.
type ReduceRequest struct {
	Rank      int   `json:"rank"`
	Size      int   `json:"size"`
	Trials    int64 `json:"trials"`
	Successes int64 `json:"successes"`
	ElapsedNS int64 `json:"elapsed_ns"`
}

// ReduceResponse carries the global total once every rank has contributed.
type ReduceResponse struct {
	Trials       int64 `json:"trials"`
	Successes    int64 `json:"successes"`
	Contributors int   `json:"contributors"`
}

// reducerServer is the server side of the Reducer service.
type reducerServer interface {
	Reduce(context.Context, *ReduceRequest) (*ReduceResponse, error)
}

func reduceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReduceRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(reducerServer).Reduce(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: reduceMethod,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(reducerServer).Reduce(ctx, req.(*ReduceRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*reducerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Reduce",
			Handler:    reduceHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "cluster/service.go",
}

// Register attaches c to s as the Reducer service.
func Register(s grpc.ServiceRegistrar, c *Coordinator) {
	s.RegisterService(&serviceDesc, c)
}
