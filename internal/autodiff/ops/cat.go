package ops

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// CatOp represents a concatenation operation along a dimension.
//
// Forward: output = Cat([input1, input2, ...], dim)
//
// Backward:
//
//	Split gradOutput along dim at input boundaries and distribute to each input.
//
// Example:
//
//	inputs: [2,1] and [3,1] along dim=0
//	gradOutput: [5,1]
//	gradInput1: rows 0..1, gradInput2: rows 2..4
type CatOp struct {
	inputs []*tensor.RawTensor
	dim    int
	output *tensor.RawTensor
}

// NewCatOp creates a new cat operation.
func NewCatOp(inputs []*tensor.RawTensor, dim int, output *tensor.RawTensor) *CatOp {
	if dim < 0 {
		dim += len(output.Shape())
	}
	return &CatOp{
		inputs: inputs,
		dim:    dim,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward narrows the output gradient back into one slice per input.
func (op *CatOp) Backward(gradOutput *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, in := range op.inputs {
		size := in.Shape()[op.dim]
		grads[i] = backend.Narrow(gradOutput, op.dim, offset, size)
		offset += size
	}
	return grads
}

// NarrowOp represents slicing a contiguous range along one dimension.
//
// Backward scatters the gradient into a zero tensor of the input shape.
type NarrowOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
	dim    int
	start  int
}

// NewNarrowOp creates a new NarrowOp.
func NewNarrowOp(input, output *tensor.RawTensor, dim, start int) *NarrowOp {
	if dim < 0 {
		dim += len(input.Shape())
	}
	return &NarrowOp{input: input, output: output, dim: dim, start: start}
}

// Inputs returns the input tensor.
func (op *NarrowOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the narrowed tensor.
func (op *NarrowOp) Output() *tensor.RawTensor { return op.output }

// Backward places the output gradient at its original offset.
func (op *NarrowOp) Backward(gradOutput *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.input.Shape()
	grad := tensor.MustRaw(shape, op.input.Device())

	outer := 1
	for i := 0; i < op.dim; i++ {
		outer *= shape[i]
	}
	inner := 1
	for i := op.dim + 1; i < len(shape); i++ {
		inner *= shape[i]
	}

	dst, src := grad.Data(), gradOutput.Data()
	inRow := shape[op.dim] * inner
	chunk := gradOutput.Shape()[op.dim] * inner
	for o := 0; o < outer; o++ {
		copy(dst[o*inRow+op.start*inner:o*inRow+op.start*inner+chunk], src[o*chunk:(o+1)*chunk])
	}
	return []*tensor.RawTensor{grad}
}
