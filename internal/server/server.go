package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/middleware"
	"github.com/cockroachdb/cmux"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Server multiplexes gRPC (health and reflection) and HTTP on one port.
type Server struct {
	listener   net.Listener
	mux        cmux.CMux
	grpcServer *grpc.Server
	httpServer *http.Server
	health     *health.Server
	closing    atomic.Bool
}

func NewServer(configs *configs.AppConfigs, handler http.Handler) (*Server, error) {
	address := fmt.Sprintf(":%d", configs.Configs.ApplicationPort)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(middleware.RecoveryInterceptor, middleware.WrappedGRPCMiddleware),
	)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	return &Server{
		listener:   listener,
		mux:        cmux.New(listener),
		grpcServer: grpcServer,
		httpServer: &http.Server{Handler: handler},
		health:     healthServer,
	}, nil
}

func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve blocks until the listener stops. It returns nil after Shutdown.
func (s *Server) Serve() error {
	// match gRPC requests, otherwise regular HTTP requests
	grpcListener := s.mux.Match(cmux.HTTP2HeaderField("content-type", "application/grpc"))
	httpListener := s.mux.Match(cmux.Any())

	eps := make(chan error, 2)
	go func() { eps <- s.grpcServer.Serve(grpcListener) }()
	go func() { eps <- s.httpServer.Serve(httpListener) }()

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.Info(fmt.Sprintf("modelgateway started on %s", s.listener.Addr()))
	return s.handleErrors(eps)
}

func (s *Server) handleErrors(eps chan error) error {
	var failed error
	if err := s.mux.Serve(); err != nil && !s.closing.Load() {
		logger.Error("cmux serve error", err)
		failed = err
	}
	for i := 0; i < cap(eps); i++ {
		err := <-eps
		if err == nil || s.closing.Load() || errors.Is(err, http.ErrServerClosed) {
			continue
		}
		logger.Error("protocol serve error", err)
		if failed == nil {
			failed = err
		}
	}
	return failed
}

// Shutdown reports NOT_SERVING, drains HTTP within ctx, then stops gRPC.
func (s *Server) Shutdown(ctx context.Context) error {
	if !s.closing.CompareAndSwap(false, true) {
		return nil
	}
	s.health.Shutdown()
	err := s.httpServer.Shutdown(ctx)

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
	}
	_ = s.listener.Close()
	return err
}
