package tensor

import (
	"fmt"
)

// Tensor is a typed, shaped array in the layout exchanged with the model
// server: numeric elements packed little-endian in Content, DT_STRING
// elements as raw byte strings in Strings. Tensors are treated as immutable
// once handed to another component; layout helpers return new values.
type Tensor struct {
	DType   DataType
	Shape   []int64
	Content []byte
	Strings [][]byte
}

// NumElements is the product of shape, 1 for a scalar.
func NumElements(shape []int64) int {
	n := 1
	for _, dim := range shape {
		n *= int(dim)
	}
	return n
}

func New(dtype DataType, shape []int64) (*Tensor, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("unsupported dtype %q", dtype)
	}
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("negative dimension in shape %v", shape)
		}
	}
	t := &Tensor{DType: dtype, Shape: append([]int64{}, shape...)}
	if dtype == String {
		t.Strings = make([][]byte, NumElements(shape))
	} else {
		t.Content = make([]byte, NumElements(shape)*dtype.Size())
	}
	return t, nil
}

func FromFloat64s(dtype DataType, shape []int64, values []float64) (*Tensor, error) {
	if !dtype.IsNumeric() {
		return nil, fmt.Errorf("dtype %s is not numeric", dtype)
	}
	if NumElements(shape) != len(values) {
		return nil, fmt.Errorf("shape %v holds %d elements, got %d", shape, NumElements(shape), len(values))
	}
	t, err := New(dtype, shape)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		t.SetFloat64(i, v)
	}
	return t, nil
}

func FromStrings(shape []int64, values [][]byte) (*Tensor, error) {
	if NumElements(shape) != len(values) {
		return nil, fmt.Errorf("shape %v holds %d elements, got %d", shape, NumElements(shape), len(values))
	}
	return &Tensor{DType: String, Shape: append([]int64{}, shape...), Strings: values}, nil
}

func (t *Tensor) Rank() int {
	return len(t.Shape)
}

func (t *Tensor) Len() int {
	return NumElements(t.Shape)
}

// Validate checks that the payload matches dtype and shape.
func (t *Tensor) Validate() error {
	if !t.DType.Valid() {
		return fmt.Errorf("unsupported dtype %q", t.DType)
	}
	if t.DType == String {
		if len(t.Strings) != t.Len() {
			return fmt.Errorf("string tensor of shape %v has %d elements", t.Shape, len(t.Strings))
		}
		return nil
	}
	if want := t.Len() * t.DType.Size(); len(t.Content) != want {
		return fmt.Errorf("%s tensor of shape %v needs %d bytes, has %d", t.DType, t.Shape, want, len(t.Content))
	}
	return nil
}

func (t *Tensor) Float64At(i int) float64 {
	size := t.DType.Size()
	return getFloat64(t.DType, t.Content[i*size:(i+1)*size])
}

func (t *Tensor) SetFloat64(i int, v float64) {
	size := t.DType.Size()
	putFloat64(t.DType, t.Content[i*size:(i+1)*size], v)
}

func (t *Tensor) Float64s() ([]float64, error) {
	if !t.DType.IsNumeric() {
		return nil, fmt.Errorf("dtype %s is not numeric", t.DType)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	values := make([]float64, t.Len())
	for i := range values {
		values[i] = t.Float64At(i)
	}
	return values, nil
}

// Cast converts every element to dtype, keeping the shape.
func (t *Tensor) Cast(dtype DataType) (*Tensor, error) {
	if t.DType == dtype {
		return t, nil
	}
	values, err := t.Float64s()
	if err != nil {
		return nil, err
	}
	return FromFloat64s(dtype, t.Shape, values)
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%s, %v)", t.DType, t.Shape)
}
