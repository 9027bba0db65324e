package errors

import (
	"fmt"

	"google.golang.org/grpc/codes"
)

type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

type Stage string

const (
	StagePreprocess  Stage = "preprocess"
	StageRpc         Stage = "rpc"
	StagePostprocess Stage = "postprocess"
)

// SpecError reports a malformed pipeline document. It is raised at load time.
type SpecError struct {
	ErrorMsg string
}

func (m *SpecError) Error() string {
	return m.ErrorMsg
}

type BadRequestError struct {
	ErrorMsg string
}

func (m *BadRequestError) Error() string {
	return m.ErrorMsg
}

// BadTransformError is returned for restricted expressions that fail
// validation or evaluation. It is never degraded to the identity transform.
type BadTransformError struct {
	Expression string
	Reason     string
}

func (m *BadTransformError) Error() string {
	return fmt.Sprintf("bad transform expression %q: %s", m.Expression, m.Reason)
}

type ConversionError struct {
	Direction Direction
	Field     string
	Cause     error
}

func (m *ConversionError) Error() string {
	return fmt.Sprintf("%s conversion failed for %q: %v", m.Direction, m.Field, m.Cause)
}

func (m *ConversionError) Unwrap() error {
	return m.Cause
}

// RpcError carries the backend status for a failed prediction call.
type RpcError struct {
	Code    codes.Code
	Message string
	Cause   error
}

func (m *RpcError) Error() string {
	return fmt.Sprintf("model server call failed with code %s: %s", m.Code, m.Message)
}

func (m *RpcError) Unwrap() error {
	return m.Cause
}

func (m *RpcError) Timeout() bool {
	return m.Code == codes.DeadlineExceeded
}

// PredictionError is the terminal Failed(stage, cause) state of a prediction run.
type PredictionError struct {
	Stage Stage
	Cause error
}

func (m *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed at %s: %v", m.Stage, m.Cause)
}

func (m *PredictionError) Unwrap() error {
	return m.Cause
}
