package cpu

import (
	"fmt"
	"math"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Sum computes the total sum of all elements, returning a scalar tensor.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := tensor.MustRaw(tensor.Shape{}, cpu.device)
	sum := 0.0
	for _, v := range x.Data() {
		sum += v
	}
	result.Data()[0] = sum
	return result
}

// Mean computes the mean of all elements, returning a scalar tensor.
func (cpu *CPUBackend) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.Sum(x)
	result.Data()[0] /= float64(x.NumElements())
	return result
}

// Norm computes the Frobenius 2-norm of all elements.
func (cpu *CPUBackend) Norm(x *tensor.RawTensor) *tensor.RawTensor {
	result := tensor.MustRaw(tensor.Shape{}, cpu.device)
	sq := 0.0
	for _, v := range x.Data() {
		sq += v * v
	}
	result.Data()[0] = math.Sqrt(sq)
	return result
}

// RowNorms computes the 2-norm of each row of a matrix.
// A 1-D input is treated as a column, so every element is its own row.
func (cpu *CPUBackend) RowNorms(x *tensor.RawTensor) *tensor.RawTensor {
	rows, cols := matrixDims(x.Shape())
	result := tensor.MustRaw(tensor.Shape{rows}, cpu.device)
	src, dst := x.Data(), result.Data()
	for i := 0; i < rows; i++ {
		sq := 0.0
		for _, v := range src[i*cols : (i+1)*cols] {
			sq += v * v
		}
		dst[i] = math.Sqrt(sq)
	}
	return result
}

// matrixDims views a tensor as rows x cols.
func matrixDims(shape tensor.Shape) (rows, cols int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], 1
	case 2:
		return shape[0], shape[1]
	default:
		panic(fmt.Sprintf("row norms: expected 1D or 2D tensor, got %dD", len(shape)))
	}
}

// SumDim sums tensor elements along the specified dimension.
//
// Parameters:
//   - x: Input tensor
//   - dim: Dimension to reduce (supports negative indexing: -1 = last dim)
//   - keepDim: If true, keep the reduced dimension with size 1
func (cpu *CPUBackend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)
	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("sumdim: dim %d out of range for %dD tensor", dim, ndim))
	}

	outer := 1
	for i := 0; i < dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := dim + 1; i < ndim; i++ {
		inner *= shape[i]
	}
	size := shape[dim]

	outShape := make(tensor.Shape, 0, ndim)
	for i, d := range shape {
		switch {
		case i != dim:
			outShape = append(outShape, d)
		case keepDim:
			outShape = append(outShape, 1)
		}
	}

	result := tensor.MustRaw(outShape, cpu.device)
	src, dst := x.Data(), result.Data()
	for o := 0; o < outer; o++ {
		for s := 0; s < size; s++ {
			base := (o*size + s) * inner
			for in := 0; in < inner; in++ {
				dst[o*inner+in] += src[base+in]
			}
		}
	}
	return result
}
