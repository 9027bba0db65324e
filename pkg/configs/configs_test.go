package configs

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestInitConfigDefaults(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	var appConfigs AppConfigs
	InitConfig(&appConfigs)

	assert.Equal(t, "modelgateway", appConfigs.Configs.ApplicationName)
	assert.Equal(t, 5001, appConfigs.Configs.ApplicationPort)
	assert.Equal(t, 30000, appConfigs.Configs.PredictionRpcTimeout)
	assert.True(t, appConfigs.Configs.ModelServer_PlainText)
	assert.Empty(t, appConfigs.Configs.ModelServer_Host)
}

func TestInitConfigFromEnv(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Setenv("MODEL_SERVER_HOST", "10.0.0.7")
	t.Setenv("MODEL_SERVER_PORT", "9000")
	t.Setenv("PREDICTION_RPC_TIMEOUT_MS", "250")
	t.Setenv("PIPELINE_SPEC_PATH", "/etc/modelgateway/spec.yaml")

	var appConfigs AppConfigs
	InitConfig(&appConfigs)

	assert.Equal(t, "10.0.0.7", appConfigs.Configs.ModelServer_Host)
	assert.Equal(t, "9000", appConfigs.Configs.ModelServer_Port)
	assert.Equal(t, 250, appConfigs.Configs.PredictionRpcTimeout)
	assert.Equal(t, "/etc/modelgateway/spec.yaml", appConfigs.Configs.PipelineSpecPath)
}
