package transform

import (
	"fmt"
	"io"
	"math"

	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
)

// RegisterBuiltins adds the transforms every deployment can reference from a
// pipeline document.
func RegisterBuiltins(r *Registry) {
	r.RegisterFunction("transforms.identity", Func(Identity.Apply))
	r.RegisterFunction("transforms.read_bytes", readBytes)
	r.RegisterFunction("transforms.utf8_text", utf8Text)
	r.RegisterFunction("transforms.scale_unit", scaleUnit)
	r.RegisterFunction("transforms.softmax", Softmax{}.Apply)
	r.RegisterFunction("transforms.argmax", argmax)
	r.RegisterFunction("transforms.to_list", toList)

	r.RegisterClass("transforms.Softmax", func() (any, error) { return Softmax{}, nil })
	r.RegisterClass("transforms.TopScore", func() (any, error) { return TopScore{}, nil })
}

func readBytes(value any) (any, error) {
	reader, ok := value.(io.Reader)
	if !ok {
		return nil, fmt.Errorf("expected a readable file, got %T", value)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	return tensor.FromStrings(nil, [][]byte{content})
}

func utf8Text(value any) (any, error) {
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected text, got %T", value)
	}
	return tensor.FromStrings([]int64{1}, [][]byte{[]byte(text)})
}

func scaleUnit(value any) (any, error) {
	t, err := tensor.FromValue(value)
	if err != nil {
		return nil, err
	}
	values, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	for i := range values {
		values[i] /= 255
	}
	return tensor.FromFloat64s(tensor.Float, t.Shape, values)
}

// Softmax normalises the last axis of a numeric tensor into probabilities.
type Softmax struct{}

func (Softmax) Apply(value any) (any, error) {
	t, err := tensor.FromValue(value)
	if err != nil {
		return nil, err
	}
	values, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	width := lastDim(t)
	for start := 0; start+width <= len(values) && width > 0; start += width {
		row := values[start : start+width]
		peak := math.Inf(-1)
		for _, v := range row {
			peak = math.Max(peak, v)
		}
		sum := 0.0
		for i, v := range row {
			row[i] = math.Exp(v - peak)
			sum += row[i]
		}
		for i := range row {
			row[i] /= sum
		}
	}
	dtype := t.DType
	if !dtype.IsFloat() {
		dtype = tensor.Float
	}
	return tensor.FromFloat64s(dtype, t.Shape, values)
}

func argmax(value any) (any, error) {
	t, err := tensor.FromValue(value)
	if err != nil {
		return nil, err
	}
	values, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	width := lastDim(t)
	if width == 0 {
		return nil, fmt.Errorf("argmax of an empty axis")
	}
	indices := make([]float64, 0, len(values)/width)
	for start := 0; start < len(values); start += width {
		best := 0
		for i := 1; i < width; i++ {
			if values[start+i] > values[start+best] {
				best = i
			}
		}
		indices = append(indices, float64(best))
	}
	shape := []int64{}
	if t.Rank() > 0 {
		shape = t.Shape[:t.Rank()-1]
	}
	return tensor.FromFloat64s(tensor.Int64, shape, indices)
}

// TopScore reports the index and value of the largest element.
type TopScore struct{}

func (TopScore) Apply(value any) (any, error) {
	t, err := tensor.FromValue(value)
	if err != nil {
		return nil, err
	}
	values, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("top score of an empty tensor")
	}
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return map[string]any{"index": best, "score": values[best]}, nil
}

func toList(value any) (any, error) {
	switch v := value.(type) {
	case *tensor.Tensor:
		return v.Native()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			native, err := toList(item)
			if err != nil {
				return nil, err
			}
			out[key] = native
		}
		return out, nil
	default:
		return value, nil
	}
}

func lastDim(t *tensor.Tensor) int {
	if t.Rank() == 0 {
		return 1
	}
	return int(t.Shape[t.Rank()-1])
}
