package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/external/modelserver"
	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/configs"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/metrics"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/codes"
)

const (
	stageLatencyMetric = "modelgateway.pipeline.stage.latency"
	stageTotalMetric   = "modelgateway.pipeline.stage.total"

	statusSuccess = "success"
	statusFailure = "failure"
)

// Flow runs one prediction: convert every input, call the model server once,
// convert every output, then apply the model-level transform if there is one.
// Any failure ends the run with a *errors.PredictionError naming the stage
// and no partial result.
type Flow struct {
	state   *State
	pool    *modelserver.Pool
	timeout time.Duration
}

func NewFlow(state *State, pool *modelserver.Pool, timeout time.Duration) *Flow {
	return &Flow{state: state, pool: pool, timeout: timeout}
}

func NewFlowFromConfig(state *State, pool *modelserver.Pool, configs *configs.AppConfigs) *Flow {
	return NewFlow(state, pool, time.Duration(configs.Configs.PredictionRpcTimeout)*time.Millisecond)
}

func (f *Flow) State() *State {
	return f.state
}

// Run takes raw values keyed by input name: an io.Reader for file and image
// inputs, a string for text inputs.
func (f *Flow) Run(ctx context.Context, raw map[string]any) (any, error) {
	logger := log.With().
		Str("request_id", uuid.NewString()).
		Str("model", f.state.modelSpec.Name).
		Logger()

	var req *modelserver.PredictRequest
	err := instrument(errs.StagePreprocess, func() (err error) {
		req, err = f.convertInputs(raw)
		return err
	})
	if err != nil {
		return nil, fail(logger, errs.StagePreprocess, err)
	}

	var resp *modelserver.PredictResponse
	err = instrument(errs.StageRpc, func() (err error) {
		resp, err = f.call(ctx, req)
		return err
	})
	if err != nil {
		return nil, fail(logger, errs.StageRpc, err)
	}

	var result any
	err = instrument(errs.StagePostprocess, func() (err error) {
		result, err = f.convertOutputs(resp)
		return err
	})
	if err != nil {
		return nil, fail(logger, errs.StagePostprocess, err)
	}
	logger.Debug().Msg("prediction done")
	return result, nil
}

func (f *Flow) convertInputs(raw map[string]any) (*modelserver.PredictRequest, error) {
	inputs := make(map[string]*tensor.Tensor, len(f.state.inputs))
	for _, c := range f.state.inputs {
		value, ok := raw[c.Name()]
		if !ok {
			return nil, fmt.Errorf("missing input %q", c.Name())
		}
		t, err := c.Convert(value)
		if err != nil {
			return nil, err
		}
		inputs[c.Name()] = t
	}
	return &modelserver.PredictRequest{ModelSpec: f.state.modelSpec, Inputs: inputs}, nil
}

// call is not cancelled by the caller's context; only the configured timeout
// bounds it.
func (f *Flow) call(ctx context.Context, req *modelserver.PredictRequest) (*modelserver.PredictResponse, error) {
	conn, err := f.pool.Acquire()
	if err != nil {
		return nil, err
	}
	defer f.pool.Release(conn)

	callCtx := context.WithoutCancel(ctx)
	if f.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, f.timeout)
		defer cancel()
	}
	resp, err := conn.Predict(callCtx, req)
	if err != nil {
		var rpcErr *errs.RpcError
		if !errors.As(err, &rpcErr) {
			err = &errs.RpcError{Code: codes.Unknown, Message: err.Error(), Cause: err}
		}
		return nil, err
	}
	return resp, nil
}

func (f *Flow) convertOutputs(resp *modelserver.PredictResponse) (any, error) {
	result := make(map[string]any, len(f.state.outputs))
	for _, c := range f.state.outputs {
		t, ok := resp.Outputs[c.Name()]
		if !ok {
			return nil, fmt.Errorf("model response has no output %q", c.Name())
		}
		value, err := c.Convert(t)
		if err != nil {
			return nil, err
		}
		result[c.Name()] = value
	}
	if f.state.model == nil {
		return result, nil
	}
	return f.state.model.Convert(result)
}

func instrument(stage errs.Stage, fn func() error) error {
	start := time.Now()
	err := fn()
	status := statusSuccess
	if err != nil {
		status = statusFailure
	}
	tags := []string{"stage:" + string(stage), "status:" + status}
	metrics.Timing(stageLatencyMetric, time.Since(start), tags)
	metrics.Count(stageTotalMetric, 1, tags)
	return err
}

func fail(logger zerolog.Logger, stage errs.Stage, cause error) error {
	logger.Warn().Str("stage", string(stage)).Err(cause).Msg("prediction failed")
	return &errs.PredictionError{Stage: stage, Cause: cause}
}
