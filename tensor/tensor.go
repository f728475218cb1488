// Package tensor implements dense real tensors and the factorizations
// needed by matrix product state algorithms.
//
// A Dense is a shape plus a row-major []float64 backing slice.
// Contractions, QR/LQ and SVD are thin wrappers around gonum.
package tensor

import (
	"fmt"
	"iter"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// Dense is a dense tensor of arbitrary rank.
type Dense struct {
	shape []int
	data  []float64
}

// Zeros returns a zero tensor of the given shape.
func Zeros(shape ...int) *Dense {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			panic(fmt.Sprintf("%#v", shape))
		}
		n *= d
	}
	return &Dense{shape: slices.Clone(shape), data: make([]float64, n)}
}

// T1 creates a rank 1 tensor.
func T1(v []float64) *Dense {
	t := Zeros(len(v))
	copy(t.data, v)
	return t
}

// T2 creates a rank 2 tensor.
func T2(v [][]float64) *Dense {
	t := Zeros(len(v), len(v[0]))
	for i, row := range v {
		if len(row) != len(v[0]) {
			panic(fmt.Sprintf("%d %d %d", i, len(row), len(v[0])))
		}
		copy(t.data[i*len(row):], row)
	}
	return t
}

// T4 creates a rank 4 tensor.
func T4(v [][][][]float64) *Dense {
	t := Zeros(len(v), len(v[0]), len(v[0][0]), len(v[0][0][0]))
	ix := 0
	for _, vi := range v {
		for _, vij := range vi {
			for _, vijk := range vij {
				copy(t.data[ix:], vijk)
				ix += len(vijk)
			}
		}
	}
	return t
}

// Shape returns the tensor's shape. The returned slice must not be modified.
func (t *Dense) Shape() []int { return t.shape }

// Size returns the number of elements.
func (t *Dense) Size() int { return len(t.data) }

// Data returns the row-major backing slice. It must not be resized.
func (t *Dense) Data() []float64 { return t.data }

// At returns the element at the given multi-index.
func (t *Dense) At(ix ...int) float64 { return t.data[t.offset(ix)] }

// SetAt sets the element at the given multi-index.
func (t *Dense) SetAt(ix []int, v float64) { t.data[t.offset(ix)] = v }

func (t *Dense) offset(ix []int) int {
	if len(ix) != len(t.shape) {
		panic(fmt.Sprintf("%#v %#v", ix, t.shape))
	}
	off := 0
	for i, x := range ix {
		if x < 0 || x >= t.shape[i] {
			panic(fmt.Sprintf("%#v %#v", ix, t.shape))
		}
		off = off*t.shape[i] + x
	}
	return off
}

// All iterates over all elements in row-major order.
// The yielded index slice is reused across iterations.
func (t *Dense) All() iter.Seq2[[]int, float64] {
	return func(yield func([]int, float64) bool) {
		ix := make([]int, len(t.shape))
		for _, v := range t.data {
			if !yield(ix, v) {
				return
			}
			for i := len(ix) - 1; i >= 0; i-- {
				ix[i]++
				if ix[i] < t.shape[i] {
					break
				}
				ix[i] = 0
			}
		}
	}
}

// Clone returns a deep copy.
func (t *Dense) Clone() *Dense {
	return &Dense{shape: slices.Clone(t.shape), data: slices.Clone(t.data)}
}

// Reshape returns a tensor of the given shape sharing t's backing data.
// At most one dimension may be -1, in which case it is inferred.
func (t *Dense) Reshape(shape ...int) *Dense {
	shape = slices.Clone(shape)
	infer, n := -1, 1
	for i, d := range shape {
		switch {
		case d == -1:
			if infer >= 0 {
				panic(fmt.Sprintf("%#v", shape))
			}
			infer = i
		case d <= 0:
			panic(fmt.Sprintf("%#v", shape))
		default:
			n *= d
		}
	}
	if infer >= 0 {
		if len(t.data)%n != 0 {
			panic(fmt.Sprintf("%#v %d", shape, len(t.data)))
		}
		shape[infer] = len(t.data) / n
		n *= shape[infer]
	}
	if n != len(t.data) {
		panic(fmt.Sprintf("%#v %d", shape, len(t.data)))
	}
	return &Dense{shape: shape, data: t.data}
}

// Transpose returns a new tensor with axes permuted so that axis i of the
// result is axis perm[i] of t.
func (t *Dense) Transpose(perm ...int) *Dense {
	if len(perm) != len(t.shape) {
		panic(fmt.Sprintf("%#v %#v", perm, t.shape))
	}
	seen := make([]bool, len(perm))
	outShape := make([]int, len(perm))
	for i, p := range perm {
		if p < 0 || p >= len(perm) || seen[p] {
			panic(fmt.Sprintf("%#v", perm))
		}
		seen[p] = true
		outShape[i] = t.shape[p]
	}
	out := Zeros(outShape...)

	outStride := strides(outShape)
	// dstStride[j] is the output stride of t's axis j.
	dstStride := make([]int, len(perm))
	for i, p := range perm {
		dstStride[p] = outStride[i]
	}

	ix := make([]int, len(t.shape))
	for _, v := range t.data {
		dst := 0
		for j, x := range ix {
			dst += x * dstStride[j]
		}
		out.data[dst] = v
		for i := len(ix) - 1; i >= 0; i-- {
			ix[i]++
			if ix[i] < t.shape[i] {
				break
			}
			ix[i] = 0
		}
	}
	return out
}

// Slice returns a copy of the subtensor bounded by the half-open ranges.
func (t *Dense) Slice(ranges [][2]int) *Dense {
	if len(ranges) != len(t.shape) {
		panic(fmt.Sprintf("%#v %#v", ranges, t.shape))
	}
	outShape := make([]int, len(ranges))
	for i, r := range ranges {
		if r[0] < 0 || r[1] > t.shape[i] || r[0] >= r[1] {
			panic(fmt.Sprintf("%#v %#v", ranges, t.shape))
		}
		outShape[i] = r[1] - r[0]
	}
	out := Zeros(outShape...)
	srcIx := make([]int, len(t.shape))
	i := 0
	for ix := range out.All() {
		for j, x := range ix {
			srcIx[j] = ranges[j][0] + x
		}
		out.data[i] = t.At(srcIx...)
		i++
	}
	return out
}

// Scale multiplies all elements by c in place and returns t.
func (t *Dense) Scale(c float64) *Dense {
	for i := range t.data {
		t.data[i] *= c
	}
	return t
}

// AddScaled adds c*b to t in place. Shapes must match.
func (t *Dense) AddScaled(c float64, b *Dense) *Dense {
	if !slices.Equal(t.shape, b.shape) {
		panic(fmt.Sprintf("%#v %#v", t.shape, b.shape))
	}
	for i, v := range b.data {
		t.data[i] += c * v
	}
	return t
}

// Norm returns the Frobenius norm.
func (t *Dense) Norm() float64 {
	return mat.Norm(mat.NewVecDense(len(t.data), t.data), 2)
}

// Dot returns the Frobenius inner product of a and b.
func Dot(a, b *Dense) float64 {
	if !slices.Equal(a.shape, b.shape) {
		panic(fmt.Sprintf("%#v %#v", a.shape, b.shape))
	}
	return mat.Dot(mat.NewVecDense(len(a.data), a.data), mat.NewVecDense(len(b.data), b.data))
}

// Product contracts a and b along the given axis pairs {axisOfA, axisOfB}.
// The result's axes are the free axes of a followed by the free axes of b.
func Product(a, b *Dense, axes [][2]int) *Dense {
	contrA := make([]int, 0, len(axes))
	contrB := make([]int, 0, len(axes))
	for _, ab := range axes {
		if a.shape[ab[0]] != b.shape[ab[1]] {
			panic(fmt.Sprintf("%#v %#v %#v", a.shape, b.shape, axes))
		}
		contrA = append(contrA, ab[0])
		contrB = append(contrB, ab[1])
	}

	freeA := freeAxes(len(a.shape), contrA)
	freeB := freeAxes(len(b.shape), contrB)

	ta := a.Transpose(append(slices.Clone(freeA), contrA...)...)
	tb := b.Transpose(append(slices.Clone(contrB), freeB...)...)

	fa, c, fb := 1, 1, 1
	outShape := make([]int, 0, len(freeA)+len(freeB))
	for _, ax := range freeA {
		fa *= a.shape[ax]
		outShape = append(outShape, a.shape[ax])
	}
	for _, ax := range contrA {
		c *= a.shape[ax]
	}
	for _, ax := range freeB {
		fb *= b.shape[ax]
		outShape = append(outShape, b.shape[ax])
	}
	if len(outShape) == 0 {
		outShape = []int{1}
	}

	am := mat.NewDense(fa, c, ta.data)
	bm := mat.NewDense(c, fb, tb.data)
	out := Zeros(outShape...)
	cm := mat.NewDense(fa, fb, out.data)
	cm.Mul(am, bm)
	return out
}

func freeAxes(rank int, contracted []int) []int {
	free := make([]int, 0, rank-len(contracted))
	for ax := range rank {
		if !slices.Contains(contracted, ax) {
			free = append(free, ax)
		}
	}
	return free
}

func strides(shape []int) []int {
	s := make([]int, len(shape))
	st := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = st
		st *= shape[i]
	}
	return s
}
