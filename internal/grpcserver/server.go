// Package grpcserver serves the standard gRPC health checking protocol for the
// users API. The serving status follows the health of the user storage.
package grpcserver

import (
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patric-chuzhbe/usersapi/internal/grpcserver/interceptor"
)

// ServiceName is the health service name reported for the users API. The
// empty name reports the overall server status.
const ServiceName = "usersapi.Users"

// NewGRPCServer listens on addr and registers healthServer on a new gRPC
// server. The caller is responsible for calling Serve.
func NewGRPCServer(addr string, healthServer *health.Server) (*grpc.Server, net.Listener, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, err
	}

	server := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptor.UnaryLoggingInterceptor([]string{
				healthpb.Health_Check_FullMethodName,
			}),
		),
	)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, lis, nil
}
