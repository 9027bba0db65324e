package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestPredictionErrorUnwrapsToCause(t *testing.T) {
	rpcErr := &RpcError{Code: codes.DeadlineExceeded, Message: "deadline exceeded"}
	err := fmt.Errorf("run: %w", &PredictionError{Stage: StageRpc, Cause: rpcErr})

	var predictionErr *PredictionError
	assert.True(t, errors.As(err, &predictionErr))
	assert.Equal(t, StageRpc, predictionErr.Stage)

	var target *RpcError
	assert.True(t, errors.As(err, &target))
	assert.True(t, target.Timeout())
}

func TestConversionErrorMessage(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := &ConversionError{Direction: Input, Field: "photo", Cause: cause}

	assert.Equal(t, `input conversion failed for "photo": unexpected EOF`, err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestBadTransformErrorMessage(t *testing.T) {
	err := &BadTransformError{Expression: "x: os", Reason: "unknown identifier os"}
	assert.Contains(t, err.Error(), `"x: os"`)
	assert.Contains(t, err.Error(), "unknown identifier os")
}
