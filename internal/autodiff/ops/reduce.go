package ops

import "github.com/ZitiLiu/Psi-NN/internal/tensor"

// SumOp represents a total reduction: output = sum(x), shape [].
// Backward broadcasts the scalar gradient to the input shape.
type SumOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward computes input gradients for sum.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{fillLike(op.input.Shape(), outputGrad.Item(), op.input.Device())}
}

// Inputs returns the input tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns sum(x).
func (op *SumOp) Output() *tensor.RawTensor { return op.output }

// MeanOp represents output = mean(x), shape [].
// Backward: grad_x = grad / N everywhere.
type MeanOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewMeanOp creates a new MeanOp.
func NewMeanOp(input, output *tensor.RawTensor) *MeanOp {
	return &MeanOp{input: input, output: output}
}

// Backward computes input gradients for mean.
func (op *MeanOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	n := float64(op.input.NumElements())
	return []*tensor.RawTensor{fillLike(op.input.Shape(), outputGrad.Item()/n, op.input.Device())}
}

// Inputs returns the input tensor.
func (op *MeanOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns mean(x).
func (op *MeanOp) Output() *tensor.RawTensor { return op.output }

// SumDimOp represents a reduction sum operation along a dimension: output = sum(x, dim).
//
// Backward:
//
//	grad_x = broadcast(grad_y, x.shape)
//
// If keepDim=false, grad_y is reshaped with a size-1 dimension first.
type SumDimOp struct {
	input   *tensor.RawTensor
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	if dim < 0 {
		dim += len(x.Shape())
	}
	return &SumDimOp{
		input:   x,
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward computes input gradients for sum reduction.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := outputGrad
	if !op.keepDim {
		kept := op.input.Shape().Clone()
		kept[op.dim] = 1
		grad = backend.Reshape(grad, kept)
	}
	return []*tensor.RawTensor{backend.Expand(grad, op.input.Shape())}
}

// Inputs returns the input tensors [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor sum(x, dim).
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}

// NormOp represents the Frobenius norm: output = sqrt(sum(x²)).
//
// Backward: grad_x = grad * x / ||x||, and zero when ||x|| == 0 (the
// subgradient at the origin), so zero-initialized biases stay finite.
type NormOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewNormOp creates a new NormOp.
func NewNormOp(input, output *tensor.RawTensor) *NormOp {
	return &NormOp{input: input, output: output}
}

// Backward computes input gradients for the norm.
func (op *NormOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	norm := op.output.Item()
	if norm == 0 {
		return []*tensor.RawTensor{tensor.MustRaw(op.input.Shape(), op.input.Device())}
	}
	scale := outputGrad.Item() / norm
	grad := tensor.MustRaw(op.input.Shape(), op.input.Device())
	dst := grad.Data()
	for i, v := range op.input.Data() {
		dst[i] = scale * v
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *NormOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns ||x||.
func (op *NormOp) Output() *tensor.RawTensor { return op.output }

// RowNormsOp represents output[i] = ||x[i, :]||.
//
// Backward: grad_x[i, j] = grad[i] * x[i, j] / output[i], zero for zero rows.
type RowNormsOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewRowNormsOp creates a new RowNormsOp.
func NewRowNormsOp(input, output *tensor.RawTensor) *RowNormsOp {
	return &RowNormsOp{input: input, output: output}
}

// Backward computes input gradients for row norms.
func (op *RowNormsOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	rows := op.output.NumElements()
	cols := op.input.NumElements() / rows

	grad := tensor.MustRaw(op.input.Shape(), op.input.Device())
	dst, src := grad.Data(), op.input.Data()
	g, norms := outputGrad.Data(), op.output.Data()
	for i := 0; i < rows; i++ {
		if norms[i] == 0 {
			continue
		}
		scale := g[i] / norms[i]
		for j := 0; j < cols; j++ {
			dst[i*cols+j] = scale * src[i*cols+j]
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the input tensor.
func (op *RowNormsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the row norms.
func (op *RowNormsOp) Output() *tensor.RawTensor { return op.output }
