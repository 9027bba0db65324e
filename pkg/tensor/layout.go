package tensor

import (
	"fmt"
)

// ExpandDims inserts a dimension of size 1 at axis. Negative axes count from
// the end, so -1 appends a trailing dimension. Content is shared.
func (t *Tensor) ExpandDims(axis int) (*Tensor, error) {
	rank := t.Rank()
	if axis < 0 {
		axis += rank + 1
	}
	if axis < 0 || axis > rank {
		return nil, fmt.Errorf("axis %d out of range for rank %d", axis, rank)
	}
	shape := make([]int64, 0, rank+1)
	shape = append(shape, t.Shape[:axis]...)
	shape = append(shape, 1)
	shape = append(shape, t.Shape[axis:]...)
	return &Tensor{DType: t.DType, Shape: shape, Content: t.Content, Strings: t.Strings}, nil
}

// MoveAxis moves axis src to position dst, keeping the order of the others.
func (t *Tensor) MoveAxis(src, dst int) (*Tensor, error) {
	rank := t.Rank()
	if src < 0 {
		src += rank
	}
	if dst < 0 {
		dst += rank
	}
	if src < 0 || src >= rank || dst < 0 || dst >= rank {
		return nil, fmt.Errorf("cannot move axis %d to %d for rank %d", src, dst, rank)
	}
	order := make([]int, 0, rank)
	for axis := 0; axis < rank; axis++ {
		if axis != src {
			order = append(order, axis)
		}
	}
	perm := make([]int, 0, rank)
	perm = append(perm, order[:dst]...)
	perm = append(perm, src)
	perm = append(perm, order[dst:]...)
	return t.Transpose(perm)
}

// Transpose reorders axes so that axis i of the result is axis perm[i] of t.
func (t *Tensor) Transpose(perm []int) (*Tensor, error) {
	rank := t.Rank()
	if len(perm) != rank {
		return nil, fmt.Errorf("permutation %v does not match rank %d", perm, rank)
	}
	seen := make([]bool, rank)
	for _, axis := range perm {
		if axis < 0 || axis >= rank || seen[axis] {
			return nil, fmt.Errorf("invalid permutation %v", perm)
		}
		seen[axis] = true
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	srcStrides := strides(t.Shape)
	shape := make([]int64, rank)
	for i, axis := range perm {
		shape[i] = t.Shape[axis]
	}
	out, err := New(t.DType, shape)
	if err != nil {
		return nil, err
	}

	size := t.DType.Size()
	index := make([]int64, rank)
	for dst := 0; dst < out.Len(); dst++ {
		src := int64(0)
		for i, axis := range perm {
			src += index[i] * srcStrides[axis]
		}
		if t.DType == String {
			out.Strings[dst] = t.Strings[src]
		} else {
			copy(out.Content[dst*size:(dst+1)*size], t.Content[int(src)*size:(int(src)+1)*size])
		}
		for i := rank - 1; i >= 0; i-- {
			index[i]++
			if index[i] < shape[i] {
				break
			}
			index[i] = 0
		}
	}
	return out, nil
}

func strides(shape []int64) []int64 {
	out := make([]int64, len(shape))
	step := int64(1)
	for i := len(shape) - 1; i >= 0; i-- {
		out[i] = step
		step *= shape[i]
	}
	return out
}
