package configs

type Configs struct {
	ApplicationEnv      string `mapstructure:"app_env"`
	ApplicationLogLevel string `mapstructure:"app_log_level"`
	ApplicationName     string `mapstructure:"app_name"`
	ApplicationPort     int    `mapstructure:"app_port"`

	//pipeline-config
	PipelineSpecPath string `mapstructure:"pipeline_specPath"`

	//model-server-config
	ModelServer_Host      string `mapstructure:"modelServer_host"`
	ModelServer_Port      string `mapstructure:"modelServer_port"`
	ModelServer_PlainText bool   `mapstructure:"modelServer_plainText"`
	PredictionRpcTimeout  int    `mapstructure:"prediction_rpcTimeoutMs"`

	//telegraf-config
	MetricsSamplingRate string `mapstructure:"metrics_sampling_rate"`
	Telegraf_Host       string `mapstructure:"telegraf_host"`
	Telegraf_Port       string `mapstructure:"telegraf_port"`

	ETCD_SERVER   string `mapstructure:"etcd_server"`
	ETCD_USERNAME string `mapstructure:"etcd_username"`
	ETCD_PASSWORD string `mapstructure:"etcd_password"`

	ZK_SERVER string `mapstructure:"zookeeper_server"`

	ShutdownGracePeriod int `mapstructure:"shutdown_gracePeriodMs"`
}

type AppConfigs struct {
	Configs Configs
}

func (a *AppConfigs) GetStaticConfig() interface{} {
	return &a.Configs
}
