package cpu

import (
	"fmt"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Reshape returns a tensor with the same data but different shape.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}

	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			t.Shape(), newShape))
	}

	result, err := tensor.RawFromSlice(t.Data(), newShape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("reshape: %v", err))
	}
	return result
}

// Transpose swaps the two dimensions of a matrix.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	shape := t.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("transpose: expected 2D tensor, got %dD", len(shape)))
	}
	rows, cols := shape[0], shape[1]

	result := tensor.MustRaw(tensor.Shape{cols, rows}, cpu.device)
	src, dst := t.Data(), result.Data()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			dst[j*rows+i] = src[i*cols+j]
		}
	}
	return result
}

// Expand broadcasts x to the target shape.
func (cpu *CPUBackend) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	out, _, err := tensor.BroadcastShapes(x.Shape(), shape)
	if err != nil || !out.Equal(shape) {
		panic(fmt.Sprintf("expand: cannot expand %v to %v", x.Shape(), shape))
	}

	result := tensor.MustRaw(shape, cpu.device)
	src, dst := x.Data(), result.Data()
	outStrides := shape.ComputeStrides()
	inStrides := computeBroadcastStridesForShape(x.Shape(), shape)
	for i := range dst {
		dst[i] = src[computeFlatIndex(i, outStrides, inStrides)]
	}
	return result
}

// Cat concatenates tensors along dim. All other dimensions must match.
func (cpu *CPUBackend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: no tensors")
	}
	first := tensors[0].Shape()
	ndim := len(first)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: dim %d out of range for %dD tensor", dim, ndim))
	}

	outShape := first.Clone()
	outShape[dim] = 0
	for _, t := range tensors {
		s := t.Shape()
		if len(s) != ndim {
			panic(fmt.Sprintf("cat: rank mismatch %v vs %v", first, s))
		}
		for i := range s {
			if i != dim && s[i] != first[i] {
				panic(fmt.Sprintf("cat: shape mismatch %v vs %v at dim %d", first, s, i))
			}
		}
		outShape[dim] += s[dim]
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= first[i]
	}
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= first[i]
	}

	result := tensor.MustRaw(outShape, cpu.device)
	dst := result.Data()
	outRow := outShape[dim] * inner
	offset := 0
	for _, t := range tensors {
		chunk := t.Shape()[dim] * inner
		src := t.Data()
		for o := 0; o < outer; o++ {
			copy(dst[o*outRow+offset:o*outRow+offset+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += chunk
	}
	return result
}

// Narrow returns length slices of x along dim starting at start.
func (cpu *CPUBackend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("narrow: dim %d out of range for %dD tensor", dim, ndim))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for size %d", start, start+length, shape[dim]))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result := tensor.MustRaw(outShape, cpu.device)
	src, dst := x.Data(), result.Data()
	inRow := shape[dim] * inner
	chunk := length * inner
	for o := 0; o < outer; o++ {
		copy(dst[o*chunk:(o+1)*chunk], src[o*inRow+start*inner:o*inRow+start*inner+chunk])
	}
	return result
}
