package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Meesho/BharatMLStack/modelgateway/handlers/external/modelserver"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/spec"
	"github.com/Meesho/BharatMLStack/modelgateway/handlers/transform"
	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

const reviewSpec = `
model:
  name: sentiment
inputs:
  - name: review
    kind: text
outputs:
  - name: review
`

const photoSpec = `
model:
  name: resnet
  version: 3
  signature_name: serving_default
inputs:
  - name: photo
    kind: image
    dtype: uint8
    shape: [1, 224, 224, 3]
    colorspace: rgb
outputs:
  - name: score
`

func loadState(t *testing.T, document string, resolver transform.Resolver) *State {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))
	s, err := spec.Load(context.Background(), path, nil)
	require.NoError(t, err)
	state, err := NewState(s, resolver)
	require.NoError(t, err)
	return state
}

func serve(t *testing.T, backend modelserver.Backend) *modelserver.Pool {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	server := grpc.NewServer()
	modelserver.RegisterPredictionServiceServer(server, backend)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	_, port, err := net.SplitHostPort(lis.Addr().String())
	require.NoError(t, err)
	pool := modelserver.NewPool(modelserver.Config{Host: "127.0.0.1", Port: port, PlainText: true})
	t.Cleanup(func() { _, _ = pool.Shutdown(context.Background()) })
	return pool
}

func grayPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x % 256)})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func requireFailure(t *testing.T, err error, stage errs.Stage) *errs.PredictionError {
	t.Helper()
	var predictionErr *errs.PredictionError
	require.ErrorAs(t, err, &predictionErr)
	assert.Equal(t, stage, predictionErr.Stage)
	return predictionErr
}

func TestTextRoundTripThroughEcho(t *testing.T) {
	flow := NewFlow(loadState(t, reviewSpec, transform.Default()), serve(t, modelserver.Echo), time.Second)

	result, err := flow.Run(context.Background(), map[string]any{"review": "fits well, would buy again"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"review": "fits well, would buy again"}, result)
}

func TestImagePredictionSendsBatchedRGB(t *testing.T) {
	var mu sync.Mutex
	var seen *modelserver.PredictRequest
	backend := func(_ context.Context, req *modelserver.PredictRequest) (*modelserver.PredictResponse, error) {
		mu.Lock()
		seen = req
		mu.Unlock()
		score, err := tensor.FromValue(0.87)
		if err != nil {
			return nil, err
		}
		return &modelserver.PredictResponse{ModelSpec: req.ModelSpec, Outputs: map[string]*tensor.Tensor{"score": score}}, nil
	}
	flow := NewFlow(loadState(t, photoSpec, transform.Default()), serve(t, backend), time.Second)

	result, err := flow.Run(context.Background(), map[string]any{"photo": bytes.NewReader(grayPNG(t, 224, 224))})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"score": 0.87}, result)

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, seen)
	assert.Equal(t, modelserver.ModelSpec{Name: "resnet", Version: 3, SignatureName: "serving_default"}, seen.ModelSpec)
	photo := seen.Inputs["photo"]
	assert.Equal(t, tensor.Uint8, photo.DType)
	assert.Equal(t, []int64{1, 224, 224, 3}, photo.Shape)
	// pixel (7, 0) is gray 7 in every channel
	assert.Equal(t, []byte{7, 7, 7}, photo.Content[21:24])
}

func TestBackendTimeoutFailsAtRpc(t *testing.T) {
	slow := func(ctx context.Context, req *modelserver.PredictRequest) (*modelserver.PredictResponse, error) {
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
		}
		return modelserver.Echo(ctx, req)
	}
	flow := NewFlow(loadState(t, reviewSpec, transform.Default()), serve(t, slow), 50*time.Millisecond)

	result, err := flow.Run(context.Background(), map[string]any{"review": "slow"})
	assert.Nil(t, result)
	failure := requireFailure(t, err, errs.StageRpc)

	var rpcErr *errs.RpcError
	require.ErrorAs(t, failure, &rpcErr)
	assert.Equal(t, codes.DeadlineExceeded, rpcErr.Code)
}

func TestCallerCancellationDoesNotAbortCall(t *testing.T) {
	flow := NewFlow(loadState(t, reviewSpec, transform.Default()), serve(t, modelserver.Echo), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := flow.Run(ctx, map[string]any{"review": "still answered"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"review": "still answered"}, result)
}

func TestMissingOutputFailsAtPostprocess(t *testing.T) {
	document := strings.Replace(reviewSpec, "outputs:\n  - name: review", "outputs:\n  - name: review\n  - name: label", 1)
	flow := NewFlow(loadState(t, document, transform.Default()), serve(t, modelserver.Echo), time.Second)

	result, err := flow.Run(context.Background(), map[string]any{"review": "ok"})
	assert.Nil(t, result)
	failure := requireFailure(t, err, errs.StagePostprocess)
	assert.ErrorContains(t, failure, `"label"`)
}

func TestMissingInputFailsAtPreprocess(t *testing.T) {
	flow := NewFlow(loadState(t, reviewSpec, transform.Default()), serve(t, modelserver.Echo), time.Second)

	_, err := flow.Run(context.Background(), map[string]any{"title": "wrong key"})
	failure := requireFailure(t, err, errs.StagePreprocess)
	assert.ErrorContains(t, failure, `"review"`)
}

func TestUndecodableImageFailsAtPreprocess(t *testing.T) {
	flow := NewFlow(loadState(t, photoSpec, transform.Default()), serve(t, modelserver.Echo), time.Second)

	_, err := flow.Run(context.Background(), map[string]any{"photo": strings.NewReader("GIF89a but not really")})
	failure := requireFailure(t, err, errs.StagePreprocess)
	var conversionErr *errs.ConversionError
	require.ErrorAs(t, failure, &conversionErr)
	assert.Equal(t, "photo", conversionErr.Field)
}

func TestNoBackendFailsAtRpc(t *testing.T) {
	flow := NewFlow(loadState(t, reviewSpec, transform.Default()), modelserver.NewPool(modelserver.Config{}), time.Second)

	_, err := flow.Run(context.Background(), map[string]any{"review": "anyone there?"})
	failure := requireFailure(t, err, errs.StageRpc)
	var rpcErr *errs.RpcError
	require.ErrorAs(t, failure, &rpcErr)
	assert.Equal(t, codes.Unavailable, rpcErr.Code)
}

func TestModelTransformReplacesResponse(t *testing.T) {
	r := transform.NewRegistry()
	r.RegisterFunction("test.first_word", func(v any) (any, error) {
		review := v.(map[string]any)["review"].(string)
		return strings.Fields(review)[0], nil
	})
	document := strings.Replace(reviewSpec, "name: sentiment", "name: sentiment\n  postprocessor_function: test.first_word", 1)
	flow := NewFlow(loadState(t, document, r), serve(t, modelserver.Echo), time.Second)

	result, err := flow.Run(context.Background(), map[string]any{"review": "excellent product"})
	require.NoError(t, err)
	assert.Equal(t, "excellent", result)
}

func TestNewStateRejectsBadExpression(t *testing.T) {
	document := strings.Replace(reviewSpec, "outputs:\n  - name: review", "outputs:\n  - name: review\n    postprocessor_lambda: \"x: exec(x)\"", 1)
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(document), 0o600))
	s, err := spec.Load(context.Background(), path, nil)
	require.NoError(t, err)

	_, err = NewState(s, transform.Default())
	var badTransform *errs.BadTransformError
	assert.ErrorAs(t, err, &badTransform)
}

func TestInitializeLoadsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(reviewSpec), 0o600))

	first, err := Initialize(path, transform.Default())
	require.NoError(t, err)
	second, err := Initialize("/does/not/exist.yaml", transform.Default())
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Equal(t, []string{"review"}, first.Spec().InputNames())
	_, ok := first.Input("review")
	assert.True(t, ok)
	assert.Nil(t, first.Model())
}
