package modelserver

import (
	"context"
	"fmt"
	"sync"

	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/set"
	"google.golang.org/grpc/codes"
)

// Pool owns the connections to the model server. At most one live
// connection is handed out at a time; it is created on first use and again
// whenever the previous one has been disposed. Every connection created is
// kept in an ordered registry until it is disposed and released, so that
// Shutdown closes them in creation order.
type Pool struct {
	config Config
	empty  *Connection

	mu       sync.Mutex
	current  *Connection
	registry *set.ThreadSafeSet
	closed   bool
	inflight sync.WaitGroup

	shutdownOnce sync.Once
	disposed     int
	shutdownErr  error
}

func NewPool(config Config) *Pool {
	return &Pool{
		config:   config,
		empty:    emptyConnection(),
		registry: set.NewThreadSafeSet(),
	}
}

// Acquire returns the live connection and takes a reference on it. Without a
// configured host and port it returns the empty connection.
func (p *Pool) Acquire() (*Connection, error) {
	if !p.config.Configured() {
		return p.empty, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, &errs.RpcError{Code: codes.Unavailable, Message: "connection pool is shut down"}
	}
	if p.current == nil || p.current.IsDisposed() {
		if p.current != nil && p.current.refs == 0 {
			p.registry.Remove(p.current)
		}
		conn, err := newConnection(p.config)
		if err != nil {
			return nil, &errs.RpcError{Code: codes.Unavailable, Message: err.Error(), Cause: err}
		}
		p.registry.Add(conn)
		p.current = conn
		logger.Info(fmt.Sprintf("Created gRPC connection to model server at %s", conn.Target()))
	}
	p.current.refs++
	p.inflight.Add(1)
	return p.current, nil
}

// Release drops a reference taken by Acquire.
func (p *Pool) Release(conn *Connection) {
	if conn == nil || conn.IsEmpty() {
		return
	}
	p.mu.Lock()
	if conn.refs <= 0 {
		p.mu.Unlock()
		return
	}
	conn.refs--
	if conn.refs == 0 && conn.IsDisposed() {
		p.registry.Remove(conn)
	}
	p.mu.Unlock()
	p.inflight.Done()
}

// Size is the number of connections still registered.
func (p *Pool) Size() int {
	return p.registry.Size()
}

// Shutdown stops new acquisitions, waits for outstanding references until ctx
// is done, then disposes every registered connection that is still live.
// Only the first call does any work; later calls return its result.
func (p *Pool) Shutdown(ctx context.Context) (int, error) {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		drained := make(chan struct{})
		go func() {
			p.inflight.Wait()
			close(drained)
		}()
		select {
		case <-drained:
		case <-ctx.Done():
			p.shutdownErr = ctx.Err()
			logger.Warn("Connection references still held at shutdown, disposing anyway")
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		for _, entry := range p.registry.Drain() {
			conn := entry.(*Connection)
			if conn.IsDisposed() {
				continue
			}
			if err := conn.Dispose(); err != nil {
				logger.Error(fmt.Sprintf("Error while disposing gRPC connection to %s", conn.Target()), err)
			}
			p.disposed++
		}
		p.current = nil
		logger.Info(fmt.Sprintf("Successfully disposed %d gRPC connections", p.disposed))
	})
	return p.disposed, p.shutdownErr
}
