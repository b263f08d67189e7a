package ops

import (
	"math"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// TanhOp represents the hyperbolic tangent activation.
type TanhOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new tanh operation.
func NewTanhOp(input, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{
		input:  input,
		output: output,
	}
}

// Inputs returns the input tensors.
func (op *TanhOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *TanhOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient for tanh.
//
// d(tanh(x))/dx = 1 - tanh²(x), and tanh(x) is the recorded output:
// grad_input = grad_output * (1 - output²).
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapPair(outputGrad, op.output, func(g, y float64) float64 {
		return g * (1 - y*y)
	})}
}

// SinOp represents y = sin(x). Backward: grad * cos(x).
type SinOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewSinOp creates a new SinOp.
func NewSinOp(input, output *tensor.RawTensor) *SinOp {
	return &SinOp{input: input, output: output}
}

// Backward computes grad * cos(x).
func (op *SinOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapPair(outputGrad, op.input, func(g, x float64) float64 {
		return g * math.Cos(x)
	})}
}

// Inputs returns the input tensor.
func (op *SinOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns sin(x).
func (op *SinOp) Output() *tensor.RawTensor { return op.output }

// CosOp represents y = cos(x). Backward: -grad * sin(x).
type CosOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewCosOp creates a new CosOp.
func NewCosOp(input, output *tensor.RawTensor) *CosOp {
	return &CosOp{input: input, output: output}
}

// Backward computes -grad * sin(x).
func (op *CosOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapPair(outputGrad, op.input, func(g, x float64) float64 {
		return -g * math.Sin(x)
	})}
}

// Inputs returns the input tensor.
func (op *CosOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns cos(x).
func (op *CosOp) Output() *tensor.RawTensor { return op.output }

// SqrtOp represents the square root operation: y = sqrt(x).
//
// Backward pass:
//   - d(sqrt(x))/dx = 0.5 / y
//   - the gradient is zero where y == 0
type SqrtOp struct {
	input  *tensor.RawTensor // x
	output *tensor.RawTensor // sqrt(x)
}

// NewSqrtOp creates a new SqrtOp.
func NewSqrtOp(input, output *tensor.RawTensor) *SqrtOp {
	return &SqrtOp{
		input:  input,
		output: output,
	}
}

// Backward computes input gradient for sqrt.
func (op *SqrtOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapPair(outputGrad, op.output, func(g, y float64) float64 {
		if y == 0 {
			return 0
		}
		return g * 0.5 / y
	})}
}

// Inputs returns the input tensor [x].
func (op *SqrtOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor sqrt(x).
func (op *SqrtOp) Output() *tensor.RawTensor {
	return op.output
}

// AbsOp represents y = |x|. Backward: grad * sign(x), with sign(0) = 0.
type AbsOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor
}

// NewAbsOp creates a new AbsOp.
func NewAbsOp(input, output *tensor.RawTensor) *AbsOp {
	return &AbsOp{input: input, output: output}
}

// Backward computes grad * sign(x).
func (op *AbsOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{mapPair(outputGrad, op.input, func(g, x float64) float64 {
		switch {
		case x > 0:
			return g
		case x < 0:
			return -g
		default:
			return 0
		}
	})}
}

// Inputs returns the input tensor.
func (op *AbsOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns |x|.
func (op *AbsOp) Output() *tensor.RawTensor { return op.output }
