package spec

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	os.Exit(m.Run())
}

const photoSpec = `
model:
  name: resnet
  version: 2
  signature_name: serving_default
  postprocessor_function: transforms.to_list
inputs:
  - name: photo
    kind: image
    dtype: uint8
    shape: [1, 224, 224, 3]
    colorspace: RGB
  - name: caption
    kind: text
outputs:
  - name: score
  - name: label
    postprocessor_lambda: "x: x + 1"
`

type memoryStore map[string]string

func (m memoryStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(v), nil
}

func (m memoryStore) Close() error { return nil }

func writeSpec(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	s, err := Load(context.Background(), writeSpec(t, "spec.yaml", photoSpec), nil)
	require.NoError(t, err)

	assert.Equal(t, Model{
		Name:          "resnet",
		Version:       2,
		SignatureName: "serving_default",
		DataFormat:    ChannelsLast,
		Transform:     TransformRef{Function: "transforms.to_list"},
	}, s.Model)
	assert.Equal(t, []string{"photo", "caption"}, s.InputNames())
	assert.Equal(t, []string{"score", "label"}, s.OutputNames())

	photo, ok := s.Input("photo")
	require.True(t, ok)
	assert.Equal(t, KindImage, photo.Kind)
	assert.Equal(t, tensor.Uint8, photo.DType)
	assert.Equal(t, []int64{1, 224, 224, 3}, photo.Shape)
	assert.Equal(t, RGB, photo.Colorspace)
	assert.False(t, photo.Resizes())

	caption, ok := s.Input("caption")
	require.True(t, ok)
	assert.Equal(t, tensor.String, caption.DType)

	label, ok := s.Output("label")
	require.True(t, ok)
	assert.Equal(t, "x: x + 1", label.Transform.Expression)
}

func TestLoadJSONKeepsDocumentOrder(t *testing.T) {
	doc := `{
		"model": {"name": "ranker", "data_format": "channels_first"},
		"inputs": [
			{"name": "zeta", "kind": "file", "dtype": "string"},
			{"name": "alpha", "kind": "text"},
			{"name": "mid", "kind": "image", "dtype": "float32", "shape": [3, 32, 32], "target_width": 32, "target_height": 32}
		],
		"outputs": [{"name": "b"}, {"name": "a"}]
	}`
	s, err := Load(context.Background(), writeSpec(t, "spec.json", doc), nil)
	require.NoError(t, err)

	assert.Equal(t, ChannelsFirst, s.Model.DataFormat)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, s.InputNames())
	assert.Equal(t, []string{"b", "a"}, s.OutputNames())
	mid, _ := s.Input("mid")
	assert.True(t, mid.Resizes())
}

func TestLoadFromRemoteStore(t *testing.T) {
	store := memoryStore{"/config/modelgateway/spec": photoSpec}

	for _, source := range []string{"etcd:///config/modelgateway/spec", "zk:///config/modelgateway/spec"} {
		s, err := Load(context.Background(), source, store)
		require.NoError(t, err)
		assert.Equal(t, "resnet", s.Model.Name)
	}

	_, err := Load(context.Background(), "zk:///config/modelgateway/spec", nil)
	var specErr *errs.SpecError
	require.ErrorAs(t, err, &specErr)
	assert.Contains(t, specErr.ErrorMsg, "zk client")

	_, err = Load(context.Background(), "etcd:///missing", store)
	assert.Error(t, err)

	scheme, remote := Remote("/etc/modelgateway/spec.yaml")
	assert.False(t, remote)
	assert.Empty(t, scheme)
}

func TestLoadRejectsMalformedSpecs(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "empty input name",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "", "kind": "text"}]}`,
		},
		{
			name: "duplicate input name",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "text"}, {"name": "a", "kind": "text"}]}`,
		},
		{
			name: "empty output name",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "text"}], "outputs": [{"name": " "}]}`,
		},
		{
			name: "duplicate output name",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "text"}], "outputs": [{"name": "o"}, {"name": "o"}]}`,
		},
		{
			name: "more than one transform reference",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "text", "preprocessor_function": "transforms.utf8_text", "preprocessor_lambda": "x: x + 1"}]}`,
		},
		{
			name: "model level transform conflict",
			doc:  `{"model": {"name": "m", "postprocessor_class": "transforms.Softmax", "postprocessor_function": "transforms.softmax"}, "inputs": [{"name": "a", "kind": "text"}]}`,
		},
		{
			name: "unknown kind",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "audio"}]}`,
		},
		{
			name: "image shape rank",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "image", "dtype": "uint8", "shape": [224, 224]}]}`,
		},
		{
			name: "unknown colorspace",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "image", "dtype": "uint8", "shape": [224, 224, 3], "colorspace": "cmyk"}]}`,
		},
		{
			name: "unknown dtype",
			doc:  `{"model": {"name": "m"}, "inputs": [{"name": "a", "kind": "file", "dtype": "complex128"}]}`,
		},
		{
			name: "missing model name",
			doc:  `{"model": {}, "inputs": [{"name": "a", "kind": "text"}]}`,
		},
		{
			name: "negative version",
			doc:  `{"model": {"name": "m", "version": -1}, "inputs": [{"name": "a", "kind": "text"}]}`,
		},
		{
			name: "unknown data format",
			doc:  `{"model": {"name": "m", "data_format": "nchw"}, "inputs": [{"name": "a", "kind": "text"}]}`,
		},
		{
			name: "no inputs",
			doc:  `{"model": {"name": "m"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeSpec(t, "spec.json", tt.doc), nil)
			var specErr *errs.SpecError
			assert.ErrorAs(t, err, &specErr)
		})
	}
}

func TestLoadWithoutSource(t *testing.T) {
	_, err := Load(context.Background(), "", nil)
	var specErr *errs.SpecError
	assert.ErrorAs(t, err, &specErr)
}
