package configs

import (
	"log"

	"github.com/spf13/viper"
)

const (
	defaultAppName              = "modelgateway"
	defaultAppPort              = 5001
	defaultLogLevel             = "INFO"
	defaultRpcTimeoutMs         = 30000
	defaultShutdownGraceMs      = 10000
	defaultMetricsSamplingRate  = "1"
	defaultModelServerPlainText = true
)

func InitConfig(appConfigs *AppConfigs) {
	staticConfig := appConfigs.GetStaticConfig()
	cfg, ok := staticConfig.(*Configs)
	if !ok {
		log.Fatal("Failed to cast static config to *Configs")
	}

	setDefaults()
	bindEnvVars()

	if err := viper.Unmarshal(cfg); err != nil {
		log.Fatalf("Failed to unmarshal config from environment: %v", err)
	}

	log.Println("Configuration loaded from environment variables")
}

func setDefaults() {
	viper.SetDefault("app_name", defaultAppName)
	viper.SetDefault("app_port", defaultAppPort)
	viper.SetDefault("app_log_level", defaultLogLevel)
	viper.SetDefault("prediction_rpcTimeoutMs", defaultRpcTimeoutMs)
	viper.SetDefault("modelServer_plainText", defaultModelServerPlainText)
	viper.SetDefault("metrics_sampling_rate", defaultMetricsSamplingRate)
	viper.SetDefault("shutdown_gracePeriodMs", defaultShutdownGraceMs)
}

func bindEnvVars() {
	// Application config
	viper.BindEnv("app_env", "APP_ENV")
	viper.BindEnv("app_log_level", "APP_LOG_LEVEL")
	viper.BindEnv("app_name", "APP_NAME")
	viper.BindEnv("app_port", "APP_PORT")
	viper.BindEnv("shutdown_gracePeriodMs", "SHUTDOWN_GRACE_PERIOD_MS")

	// Pipeline config, --spec on the command line wins
	viper.BindEnv("pipeline_specPath", "PIPELINE_SPEC_PATH")

	// Model server config
	viper.BindEnv("modelServer_host", "MODEL_SERVER_HOST")
	viper.BindEnv("modelServer_port", "MODEL_SERVER_PORT")
	viper.BindEnv("modelServer_plainText", "MODEL_SERVER_PLAINTEXT")
	viper.BindEnv("prediction_rpcTimeoutMs", "PREDICTION_RPC_TIMEOUT_MS")

	// ETCD config
	viper.BindEnv("etcd_server", "ETCD_SERVER")
	viper.BindEnv("etcd_username", "ETCD_USERNAME")
	viper.BindEnv("etcd_password", "ETCD_PASSWORD")

	// Zookeeper config
	viper.BindEnv("zookeeper_server", "ZOOKEEPER_SERVER")

	// Metrics / Telegraf config
	viper.BindEnv("metrics_sampling_rate", "METRIC_SAMPLING_RATE")
	viper.BindEnv("telegraf_host", "TELEGRAF_HOST")
	viper.BindEnv("telegraf_port", "TELEGRAF_PORT")
}
