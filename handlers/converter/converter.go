package converter

import (
	"fmt"

	errs "github.com/Meesho/BharatMLStack/modelgateway/internal/errors"
	"github.com/Meesho/BharatMLStack/modelgateway/pkg/tensor"
)

// InputConverter turns one raw request value into the tensor sent to the
// model server. Implementations hold no per-request state.
type InputConverter interface {
	Name() string
	Convert(raw any) (*tensor.Tensor, error)
}

// OutputConverter turns one response tensor into a JSON-representable value.
type OutputConverter interface {
	Name() string
	Convert(t *tensor.Tensor) (any, error)
}

// ModelConverter post-processes the assembled response mapping as a whole.
type ModelConverter interface {
	Convert(response map[string]any) (any, error)
}

// guard runs fn and reports any failure, panics included, as a ConversionError.
func guard[T any](direction errs.Direction, field string, fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = &errs.ConversionError{Direction: direction, Field: field, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()
	out, err = fn()
	if err != nil {
		var zero T
		return zero, &errs.ConversionError{Direction: direction, Field: field, Cause: err}
	}
	return out, nil
}

// render makes transform results JSON friendly.
func render(value any) (any, error) {
	switch v := value.(type) {
	case *tensor.Tensor:
		return v.Native()
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			rendered, err := render(item)
			if err != nil {
				return nil, err
			}
			out[key] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := render(item)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case []byte:
		return string(v), nil
	default:
		return value, nil
	}
}

// withBatch prepends the batch dimension a 4-d declared shape calls for when
// the tensor is still 3-d. Tensors of any other rank are left alone.
func withBatch(t *tensor.Tensor, declared []int64) (*tensor.Tensor, error) {
	if len(declared) == 4 && t.Rank() == 3 {
		return t.ExpandDims(0)
	}
	return t, nil
}
