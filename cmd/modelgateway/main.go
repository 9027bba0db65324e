package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/external/modelserver"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/pipeline"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/rest"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	"github.com/Meesho/BharatMLStack/modelgateway/internal/server"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/etcd"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/logger"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/metrics"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/middleware"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/zookeeper"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	_ "go.uber.org/automaxprocs"
)

var AppConfigs configs.AppConfigs

func main() {
	pflag.StringP("spec", "s", "", "pipeline document, a JSON/YAML path, etcd://<key> or zk://<path>")
	pflag.Parse()

	viper.AutomaticEnv()
	if err := viper.BindPFlag("pipeline_specPath", pflag.Lookup("spec")); err != nil {
		fmt.Println("Error binding --spec flag")
	}
	configs.InitConfig(&AppConfigs)
	logger.InitLogger(&AppConfigs)
	metrics.InitMetrics(&AppConfigs)
	middleware.InitMiddleware("x-request-id", "user-agent", "content-type")

	source := AppConfigs.Configs.PipelineSpecPath
	scheme, _ := spec.Remote(source)
	switch scheme {
	case spec.EtcdScheme:
		etcd.Init(etcd.DefaultVersion, &AppConfigs)
	case spec.ZookeeperScheme:
		zookeeper.Init(&AppConfigs)
	}
	state, err := pipeline.Initialize(source, transform.Default())
	if err != nil {
		logger.Panic("Error while loading pipeline spec", err)
	}

	poolConfig := modelserver.NewConfig(&AppConfigs)
	if !poolConfig.Configured() {
		logger.Warn("MODEL_SERVER_HOST or MODEL_SERVER_PORT not set, predictions will fail with Unavailable")
	}
	pool := modelserver.NewPool(poolConfig)
	flow := pipeline.NewFlowFromConfig(state, pool, &AppConfigs)

	srv, err := server.NewServer(&AppConfigs, rest.NewRouter(AppConfigs.Configs.ApplicationEnv, flow))
	if err != nil {
		logger.Panic("Failed to start modelgateway application!", err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	exitCode := 0
	select {
	case sig := <-stop:
		logger.Info(fmt.Sprintf("Received %s, shutting down", sig))
	case err := <-served:
		logger.Error("Server stopped unexpectedly", err)
		exitCode = 1
	}

	grace := time.Duration(AppConfigs.Configs.ShutdownGracePeriod) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Error during server shutdown", err)
	}
	if _, err := pool.Shutdown(ctx); err != nil {
		logger.Error("Error during connection pool shutdown", err)
	}
	switch scheme {
	case spec.EtcdScheme:
		if err := etcd.Instance().Close(); err != nil {
			logger.Error("Error closing etcd client", err)
		}
	case spec.ZookeeperScheme:
		if err := zookeeper.Instance().Close(); err != nil {
			logger.Error("Error closing zookeeper client", err)
		}
	}
	if exitCode != 0 {
		cancel()
		os.Exit(exitCode)
	}
}
