package backend

import "fmt"

// Tensor is a minimal dense float32 buffer with row-major layout. It
// carries shape bookkeeping only; implementations own whatever math they
// run over Data.
type Tensor struct {
	shape []int

	// Data is the flat row-major backing slice, length = product of dims.
	Data []float32
}

// NewTensor allocates a zeroed tensor with the given dimensions.
// Panics if no dimensions are given or any dimension is not positive,
// matching the convention of numeric constructors elsewhere.
func NewTensor(shape ...int) *Tensor {
	if len(shape) == 0 {
		panic("backend: NewTensor called without dimensions")
	}
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("backend: NewTensor dimension %d is not positive", d))
		}
		n *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &Tensor{shape: s, Data: make([]float32, n)}
}

// Shape returns a copy of the dimensions.
func (t *Tensor) Shape() []int {
	s := make([]int, len(t.shape))
	copy(s, t.shape)
	return s
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int { return len(t.shape) }

// Dim returns the size of dimension i.
func (t *Tensor) Dim(i int) int { return t.shape[i] }

// Len returns the total element count.
func (t *Tensor) Len() int { return len(t.Data) }

// At returns the element at the given indices.
func (t *Tensor) At(idx ...int) float32 {
	return t.Data[t.offset(idx)]
}

// Set stores v at the given indices.
func (t *Tensor) Set(v float32, idx ...int) {
	t.Data[t.offset(idx)] = v
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	c := NewTensor(t.shape...)
	copy(c.Data, t.Data)
	return c
}

// SameShape reports whether a and b have identical dimensions.
func SameShape(a, b *Tensor) bool {
	if a.Rank() != b.Rank() {
		return false
	}
	for i, d := range a.shape {
		if b.shape[i] != d {
			return false
		}
	}
	return true
}

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("backend: %d indices for rank-%d tensor", len(idx), len(t.shape)))
	}
	off := 0
	for i, x := range idx {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("backend: index %d out of range for dimension %d (size %d)", x, i, t.shape[i]))
		}
		off = off*t.shape[i] + x
	}
	return off
}
