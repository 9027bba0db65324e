package etcd

import (
	"context"
	"sync"
	"time"
)

const (
	connectionTimeout = 30 * time.Second
	readTimeout       = 10 * time.Second
)

var (
	once sync.Once
)

// Etcd reads documents stored under a single key.
type Etcd interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}
