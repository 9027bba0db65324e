package etcd

import (
	"context"
	"fmt"
	"strings"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	clientv3 "go.etcd.io/etcd/client/v3"
)

type V1 struct {
	conn *clientv3.Client
}

func newV1Etcd(configs *configs.AppConfigs) Etcd {
	if configs.Configs.ETCD_SERVER == "" {
		logger.Panic("ETCD_SERVER is not set", nil)
	}
	servers := strings.Split(configs.Configs.ETCD_SERVER, ",")
	conn, err := clientv3.New(clientv3.Config{
		Endpoints:           servers,
		Username:            configs.Configs.ETCD_USERNAME,
		Password:            configs.Configs.ETCD_PASSWORD,
		DialTimeout:         connectionTimeout,
		DialKeepAliveTime:   connectionTimeout,
		PermitWithoutStream: true,
	})
	if err != nil {
		logger.Panic("failed to create etcd client", err)
	}
	return &V1{conn: conn}
}

func (v *V1) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()
	resp, err := v.conn.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("etcd get %s: %w", key, err)
	}
	if len(resp.Kvs) == 0 {
		return nil, fmt.Errorf("etcd key %s not found", key)
	}
	return resp.Kvs[0].Value, nil
}

func (v *V1) Close() error {
	return v.conn.Close()
}
