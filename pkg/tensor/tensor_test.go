package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDataType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DataType
		wantErr bool
	}{
		{name: "wire name", input: "DT_UINT8", want: Uint8},
		{name: "short name", input: "float32", want: Float},
		{name: "mixed case", input: "Float16", want: Half},
		{name: "fp alias", input: "fp64", want: Double},
		{name: "lower wire name", input: "dt_string", want: String},
		{name: "unknown", input: "complex64", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDataType(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFloat64RoundTripPerDType(t *testing.T) {
	for _, dtype := range []DataType{Half, Float, Double, Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64} {
		t.Run(string(dtype), func(t *testing.T) {
			tensor, err := FromFloat64s(dtype, []int64{3}, []float64{0, 1, 100})
			require.NoError(t, err)
			assert.Len(t, tensor.Content, 3*dtype.Size())

			values, err := tensor.Float64s()
			require.NoError(t, err)
			assert.Equal(t, []float64{0, 1, 100}, values)
		})
	}
}

func TestFromFloat64sRejectsWrongCount(t *testing.T) {
	_, err := FromFloat64s(Float, []int64{2, 2}, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestExpandDims(t *testing.T) {
	tensor, err := New(Uint8, []int64{4, 5, 3})
	require.NoError(t, err)

	leading, err := tensor.ExpandDims(0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4, 5, 3}, leading.Shape)

	trailing, err := tensor.ExpandDims(-1)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5, 3, 1}, trailing.Shape)

	_, err = tensor.ExpandDims(5)
	assert.Error(t, err)
}

func TestMoveAxisChannelsFirst(t *testing.T) {
	// 2x2 image with 3 channels, value = 100*row + 10*col + channel
	values := make([]float64, 0, 12)
	for row := 0; row < 2; row++ {
		for col := 0; col < 2; col++ {
			for ch := 0; ch < 3; ch++ {
				values = append(values, float64(100*row+10*col+ch))
			}
		}
	}
	hwc, err := FromFloat64s(Int32, []int64{2, 2, 3}, values)
	require.NoError(t, err)

	chw, err := hwc.MoveAxis(-1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 2}, chw.Shape)

	got, err := chw.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 10, 100, 110, 1, 11, 101, 111, 2, 12, 102, 112}, got)

	back, err := chw.MoveAxis(0, -1)
	require.NoError(t, err)
	assert.Equal(t, hwc.Content, back.Content)
}

func TestMoveAxisStrings(t *testing.T) {
	tensor, err := FromStrings([]int64{2, 1}, [][]byte{[]byte("a"), []byte("b")})
	require.NoError(t, err)

	moved, err := tensor.MoveAxis(1, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, moved.Shape)
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, moved.Strings)
}

func TestFromValue(t *testing.T) {
	scalar, err := FromValue("great product")
	require.NoError(t, err)
	assert.Equal(t, String, scalar.DType)
	assert.Empty(t, scalar.Shape)

	vector, err := FromValue([]float32{0.5, 0.25})
	require.NoError(t, err)
	assert.Equal(t, Float, vector.DType)
	assert.Equal(t, []int64{2}, vector.Shape)

	nested, err := FromValue([]any{[]any{1.0, 2.0}, []any{3.0, 4.0}})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 2}, nested.Shape)

	_, err = FromValue([]any{[]any{1.0}, 2.0})
	assert.Error(t, err)

	_, err = FromValue(struct{}{})
	assert.Error(t, err)
}

func TestNative(t *testing.T) {
	scalar, err := FromFloat64s(Double, nil, []float64{0.87})
	require.NoError(t, err)
	native, err := scalar.Native()
	require.NoError(t, err)
	assert.Equal(t, 0.87, native)

	matrix, err := FromFloat64s(Int64, []int64{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	native, err = matrix.Native()
	require.NoError(t, err)
	assert.Equal(t, []any{[]any{int64(1), int64(2)}, []any{int64(3), int64(4)}}, native)

	text, err := FromValue("hello")
	require.NoError(t, err)
	native, err = text.Native()
	require.NoError(t, err)
	assert.Equal(t, "hello", native)
}

func TestCast(t *testing.T) {
	pixels, err := FromFloat64s(Uint8, []int64{2}, []float64{0, 255})
	require.NoError(t, err)

	floats, err := pixels.Cast(Float)
	require.NoError(t, err)
	assert.Equal(t, Float, floats.DType)
	values, err := floats.Float64s()
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 255}, values)
}
