package modelserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/metrics"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

const (
	rpcLatencyMetric = "modelgateway.backend.rpc.latency"
	rpcTotalMetric   = "modelgateway.backend.rpc.total"

	noBackendConfigured = "no backend configured"
)

// Connection is one channel to the model server. The empty connection (no
// target) exists so callers can run without a backend and get a clean
// Unavailable from Predict. Reference counts are kept by the owning Pool.
type Connection struct {
	target  string
	adapter Adapter

	mu       sync.RWMutex
	conn     *grpc.ClientConn
	client   PredictionServiceClient
	disposed bool

	// guarded by the owning pool's mutex
	refs int
}

func emptyConnection() *Connection {
	return &Connection{}
}

func newConnection(config Config) (*Connection, error) {
	policy := config.LoadBalancingPolicy
	if policy == "" {
		policy = defaultLoadBalancingPolicy
	}
	var creds credentials.TransportCredentials
	if config.PlainText {
		creds = insecure.NewCredentials()
	} else {
		creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: true})
	}
	gConn, err := grpc.NewClient(config.Target(),
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultServiceConfig(`{"loadBalancingPolicy":"`+policy+`"}`),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	)
	if err != nil {
		return nil, err
	}
	c := &Connection{target: config.Target(), conn: gConn}
	c.client = NewPredictionServiceClient(c)
	return c, nil
}

func (c *Connection) IsEmpty() bool {
	return c.target == ""
}

func (c *Connection) Target() string {
	return c.target
}

func (c *Connection) IsDisposed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disposed
}

// Predict makes one call bounded by ctx. Every failure, including a request
// that cannot be encoded or a response that cannot be decoded, comes back as
// *errors.RpcError.
func (c *Connection) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if c.IsEmpty() {
		return nil, &errs.RpcError{Code: codes.Unavailable, Message: noBackendConfigured}
	}
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client == nil {
		return nil, &errs.RpcError{Code: codes.Unavailable, Message: fmt.Sprintf("connection to %s is disposed", c.target)}
	}

	in, err := c.adapter.MapRequestToProto(req)
	if err != nil {
		return nil, &errs.RpcError{Code: codes.InvalidArgument, Message: err.Error(), Cause: err}
	}
	out, err := client.Predict(ctx, in)
	if err != nil {
		st := status.Convert(err)
		return nil, &errs.RpcError{Code: st.Code(), Message: st.Message(), Cause: err}
	}
	resp, err := c.adapter.MapProtoToResponse(out)
	if err != nil {
		return nil, &errs.RpcError{Code: codes.Internal, Message: "malformed predict response: " + err.Error(), Cause: err}
	}
	return resp, nil
}

// Dispose closes the channel. Calling it again is a no-op.
func (c *Connection) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed || c.IsEmpty() {
		return nil
	}
	c.disposed = true
	c.client = nil
	return c.conn.Close()
}

// Invoke wraps grpc.ClientConn.Invoke with backend latency and count metrics.
func (c *Connection) Invoke(ctx context.Context, method string, args any, reply any, opts ...grpc.CallOption) error {
	startTime := time.Now()
	err := c.conn.Invoke(ctx, method, args, reply, opts...)
	code := status.Code(err)
	latency := time.Since(startTime)
	tags := []string{"method:" + method, "code:" + code.String()}
	metrics.Timing(rpcLatencyMetric, latency, tags)
	metrics.Count(rpcTotalMetric, 1, tags)
	if err != nil {
		log.Debug().Str("target", c.target).Str("method", method).Str("code", code.String()).
			Dur("latency", latency).Msg("model server call failed")
	}
	return err
}

func (c *Connection) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return c.conn.NewStream(ctx, desc, method, opts...)
}
