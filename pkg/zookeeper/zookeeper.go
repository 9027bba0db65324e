package zookeeper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/go-zookeeper/zk"
)

const sessionTimeout = 5 * time.Second

var (
	instance *Zookeeper
	once     sync.Once
)

// Zookeeper reads pipeline documents stored as znode data.
type Zookeeper struct {
	conn *zk.Conn
}

// Init connects to the comma separated servers in ZOOKEEPER_SERVER, to be
// called from main.go
func Init(configs *configs.AppConfigs) {
	once.Do(func() {
		servers := strings.Split(configs.Configs.ZK_SERVER, ",")
		conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogInfo(false))
		if err != nil {
			logger.Panic("Unable to connect to zk server ", err)
		}
		instance = &Zookeeper{conn: conn}
	})
}

// Instance returns the zookeeper client. Ensure that Init is called before calling this function
func Instance() *Zookeeper {
	if instance == nil {
		logger.Panic("zookeeper client not initialized, call Init first", nil)
	}
	return instance
}

// Get returns the data of the znode at nodePath. zk has no per-call
// deadline, so ctx is only checked before the call.
func (z *Zookeeper) Get(ctx context.Context, nodePath string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, _, err := z.conn.Get(nodePath)
	if err != nil {
		logger.Error(fmt.Sprintf("Error getting config from zk path %s ", nodePath), err)
		return nil, err
	}
	return data, nil
}

func (z *Zookeeper) Close() error {
	z.conn.Close()
	return nil
}
