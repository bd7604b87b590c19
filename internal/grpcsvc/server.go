package grpcsvc

import (
	"context"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/signalsfoundry/qos-dashboard/internal/logging"
	"github.com/signalsfoundry/qos-dashboard/internal/observability"
)

// Options configures NewServer.
type Options struct {
	Logger  logging.Logger
	Metrics *observability.DashboardCollector
}

// NewServer builds a gRPC server with health, reflection, tracing and
// request-id interceptors. Metrics interceptors are added when set.
func NewServer(h *Health, opts Options) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(opts.Logger),
		TracingUnaryServerInterceptor(),
	}
	if opts.Metrics != nil {
		interceptors = append(interceptors, opts.Metrics.UnaryServerInterceptor())
	}

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	)
	healthpb.RegisterHealthServer(server, h.Server())
	reflection.Register(server)
	return server
}

// Serve runs server on lis until ctx is cancelled, then stops gracefully.
func Serve(ctx context.Context, server *grpc.Server, lis net.Listener, log logging.Logger) error {
	if log == nil {
		log = logging.Noop()
	}
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(lis) }()

	log.Info(ctx, "gRPC server listening", logging.String("addr", lis.Addr().String()))
	select {
	case <-ctx.Done():
		server.GracefulStop()
		<-errCh
		log.Info(context.Background(), "gRPC server stopped")
		return nil
	case err := <-errCh:
		return err
	}
}
