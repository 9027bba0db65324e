package tensor

import (
	"fmt"
)

// FromValue coerces a transform result into a tensor. Supported values are
// tensors, Go scalars, strings, byte slices (a single DT_STRING element),
// flat numeric or string slices, rectangular [][]float32/[][]float64 and
// rectangular nested []any of numbers or strings.
func FromValue(v any) (*Tensor, error) {
	switch value := v.(type) {
	case *Tensor:
		if value == nil {
			return nil, fmt.Errorf("nil tensor")
		}
		return value, value.Validate()
	case Tensor:
		return &value, value.Validate()
	case string:
		return FromStrings(nil, [][]byte{[]byte(value)})
	case []byte:
		return FromStrings(nil, [][]byte{value})
	case []string:
		elements := make([][]byte, len(value))
		for i, s := range value {
			elements[i] = []byte(s)
		}
		return FromStrings([]int64{int64(len(value))}, elements)
	case bool:
		if value {
			return FromFloat64s(Bool, nil, []float64{1})
		}
		return FromFloat64s(Bool, nil, []float64{0})
	case float64:
		return FromFloat64s(Double, nil, []float64{value})
	case float32:
		return FromFloat64s(Float, nil, []float64{float64(value)})
	case int:
		return FromFloat64s(Int64, nil, []float64{float64(value)})
	case int64:
		return FromFloat64s(Int64, nil, []float64{float64(value)})
	case int32:
		return FromFloat64s(Int32, nil, []float64{float64(value)})
	case uint8:
		return FromFloat64s(Uint8, nil, []float64{float64(value)})
	case []float64:
		return FromFloat64s(Double, []int64{int64(len(value))}, value)
	case []float32:
		return fromSlice(Float, value)
	case []int:
		return fromSlice(Int64, value)
	case []int64:
		return fromSlice(Int64, value)
	case []int32:
		return fromSlice(Int32, value)
	case [][]float64:
		return fromMatrix(Double, value)
	case [][]float32:
		return fromMatrix(Float, value)
	case []any:
		return fromNested(value)
	case nil:
		return nil, fmt.Errorf("cannot build a tensor from nil")
	default:
		return nil, fmt.Errorf("cannot build a tensor from %T", v)
	}
}

type number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

func fromSlice[N number](dtype DataType, values []N) (*Tensor, error) {
	flat := make([]float64, len(values))
	for i, v := range values {
		flat[i] = float64(v)
	}
	return FromFloat64s(dtype, []int64{int64(len(values))}, flat)
}

func fromMatrix[N number](dtype DataType, rows [][]N) (*Tensor, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	flat := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix: row of %d elements, expected %d", len(row), cols)
		}
		for _, v := range row {
			flat = append(flat, float64(v))
		}
	}
	return FromFloat64s(dtype, []int64{int64(len(rows)), int64(cols)}, flat)
}

// fromNested flattens rectangular []any trees, the shape JSON decoding produces.
func fromNested(values []any) (*Tensor, error) {
	var shape []int64
	var numbers []float64
	var strings [][]byte

	var walk func(level int, node any) error
	walk = func(level int, node any) error {
		list, ok := node.([]any)
		if !ok {
			if level != len(shape) {
				return fmt.Errorf("ragged nesting at depth %d", level)
			}
			switch leaf := node.(type) {
			case string:
				strings = append(strings, []byte(leaf))
			case float64:
				numbers = append(numbers, leaf)
			case float32:
				numbers = append(numbers, float64(leaf))
			case int:
				numbers = append(numbers, float64(leaf))
			case int64:
				numbers = append(numbers, float64(leaf))
			default:
				return fmt.Errorf("unsupported element %T", node)
			}
			return nil
		}
		if level == len(shape) {
			if len(numbers) > 0 || len(strings) > 0 {
				return fmt.Errorf("ragged nesting at depth %d", level)
			}
			shape = append(shape, int64(len(list)))
		} else if level > len(shape) || shape[level] != int64(len(list)) {
			return fmt.Errorf("ragged nesting at depth %d", level)
		}
		for _, child := range list {
			if err := walk(level+1, child); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, values); err != nil {
		return nil, err
	}
	if len(strings) > 0 && len(numbers) > 0 {
		return nil, fmt.Errorf("mixed string and numeric elements")
	}
	if len(strings) > 0 {
		return FromStrings(shape, strings)
	}
	return FromFloat64s(Double, shape, numbers)
}

// Native renders the tensor as plain Go values: a scalar for rank 0,
// otherwise nested []any following the shape. DT_STRING elements become
// Go strings.
func (t *Tensor) Native() (any, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	size := t.DType.Size()
	element := func(i int) any {
		if t.DType == String {
			return string(t.Strings[i])
		}
		return nativeElement(t.DType, t.Content[i*size:(i+1)*size])
	}
	if t.Rank() == 0 {
		return element(0), nil
	}
	next := 0
	var build func(level int) []any
	build = func(level int) []any {
		out := make([]any, t.Shape[level])
		for i := range out {
			if level == t.Rank()-1 {
				out[i] = element(next)
				next++
			} else {
				out[i] = build(level + 1)
			}
		}
		return out
	}
	return build(0), nil
}
