package modelserver

import (
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
)

const (
	fieldModelSpec     = "model_spec"
	fieldName          = "name"
	fieldVersion       = "version"
	fieldSignatureName = "signature_name"
	fieldInputs        = "inputs"
	fieldOutputs       = "outputs"
	fieldDType         = "dtype"
	fieldTensorShape   = "tensor_shape"
	fieldTensorContent = "tensor_content"
	fieldStringVal     = "string_val"

	defaultLoadBalancingPolicy = "round_robin"
)

// ModelSpec routes a call to a model. Version 0 and an empty signature are
// left off the wire.
type ModelSpec struct {
	Name          string
	Version       int64
	SignatureName string
}

type PredictRequest struct {
	ModelSpec ModelSpec
	Inputs    map[string]*tensor.Tensor
}

type PredictResponse struct {
	ModelSpec ModelSpec
	Outputs   map[string]*tensor.Tensor
}

type Config struct {
	Host                string
	Port                string
	PlainText           bool
	LoadBalancingPolicy string
}

func NewConfig(configs *configs.AppConfigs) Config {
	return Config{
		Host:                configs.Configs.ModelServer_Host,
		Port:                configs.Configs.ModelServer_Port,
		PlainText:           configs.Configs.ModelServer_PlainText,
		LoadBalancingPolicy: defaultLoadBalancingPolicy,
	}
}

// Configured is false when either host or port is unset, in which case the
// pool hands out the empty connection.
func (c Config) Configured() bool {
	return c.Host != "" && c.Port != ""
}

func (c Config) Target() string {
	return c.Host + ":" + c.Port
}
