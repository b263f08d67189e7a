// Package autodiff implements automatic differentiation using the decorator pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient
// tracking through a GradientTape.
//
// Architecture:
//   - Decorator pattern: AutodiffBackend[B] wraps any Backend implementation
//   - GradientTape: Records operations during forward pass
//   - Operation interface: Each op implements its backward pass
//   - Reverse-mode AD: Computes gradients with the chain rule
//
// The tape differentiates first order only. Input derivatives needed by
// physics residuals are built in the forward pass from recorded ops (see
// nn.Jet), so one reverse sweep gives exact parameter gradients of them.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	x, _ := tensor.FromSlice([]float64{2.0}, tensor.Shape{1}, backend)
//	y := x.Mul(x).Sum() // y = x²
//	grads := autodiff.Backward(y, backend)
//	fmt.Println(grads[x.Raw()].Data()) // dy/dx = 2x = 4.0
package autodiff

import (
	"github.com/ZitiLiu/Psi-NN/internal/autodiff/ops"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a GradientTape.
//
// Type parameter B must satisfy the tensor.Backend interface.
type AutodiffBackend[B tensor.Backend] struct {
	inner B             // Wrapped backend
	tape  *GradientTape // Records operations for backpropagation
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control.
// Useful for:
//   - Starting/stopping recording
//   - Clearing tape between iterations
//   - Inspecting recorded operations
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// record appends op to the tape when recording is on.
func (b *AutodiffBackend[B]) record(op func() ops.Operation) {
	if b.tape.IsRecording() {
		b.tape.Record(op())
	}
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(a, c)
	b.record(func() ops.Operation { return ops.NewAddOp(a, c, result) })
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(a, c)
	b.record(func() ops.Operation { return ops.NewSubOp(a, c, result) })
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(a, c)
	b.record(func() ops.Operation { return ops.NewMulOp(a, c, result) })
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(a, c)
	b.record(func() ops.Operation { return ops.NewDivOp(a, c, result) })
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(a, c *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(a, c)
	b.record(func() ops.Operation { return ops.NewMatMulOp(a, c, result) })
	return result
}

// Reshape reshapes a tensor and records the operation.
//
// The backend copies data, so without ReshapeOp on the tape the gradient of
// the reshaped tensor would never reach the original.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.record(func() ops.Operation { return ops.NewReshapeOp(t, result) })
	return result
}

// Transpose transposes a matrix and records the operation.
//
// In a Linear layer the weight is used as W^T: the optimizer looks up the
// gradient of W, so TransposeOp must carry the gradient of W^T back to it.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Transpose(t)
	b.record(func() ops.Operation { return ops.NewTransposeOp(t, result) })
	return result
}

// Expand broadcasts x to shape and records the operation.
func (b *AutodiffBackend[B]) Expand(x *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Expand(x, shape)
	b.record(func() ops.Operation { return ops.NewExpandOp(x, result) })
	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(x, scalar)
	b.record(func() ops.Operation { return ops.NewMulScalarOp(x, result, scalar) })
	return result
}

// AddScalar adds a constant and records the operation.
func (b *AutodiffBackend[B]) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.AddScalar(x, scalar)
	b.record(func() ops.Operation { return ops.NewAddScalarOp(x, result) })
	return result
}

// Tanh applies hyperbolic tangent and records the operation.
func (b *AutodiffBackend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Tanh(x)
	b.record(func() ops.Operation { return ops.NewTanhOp(x, result) })
	return result
}

// Sin computes sine and records the operation.
func (b *AutodiffBackend[B]) Sin(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sin(x)
	b.record(func() ops.Operation { return ops.NewSinOp(x, result) })
	return result
}

// Cos computes cosine and records the operation.
func (b *AutodiffBackend[B]) Cos(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Cos(x)
	b.record(func() ops.Operation { return ops.NewCosOp(x, result) })
	return result
}

// Sqrt computes the square root and records the operation.
func (b *AutodiffBackend[B]) Sqrt(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sqrt(x)
	b.record(func() ops.Operation { return ops.NewSqrtOp(x, result) })
	return result
}

// Abs computes the absolute value and records the operation.
func (b *AutodiffBackend[B]) Abs(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Abs(x)
	b.record(func() ops.Operation { return ops.NewAbsOp(x, result) })
	return result
}

// Sum reduces to a scalar and records the operation.
func (b *AutodiffBackend[B]) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(x)
	b.record(func() ops.Operation { return ops.NewSumOp(x, result) })
	return result
}

// Mean reduces to the scalar mean and records the operation.
func (b *AutodiffBackend[B]) Mean(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mean(x)
	b.record(func() ops.Operation { return ops.NewMeanOp(x, result) })
	return result
}

// SumDim sums along dim and records the operation.
func (b *AutodiffBackend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	b.record(func() ops.Operation { return ops.NewSumDimOp(x, result, dim, keepDim) })
	return result
}

// Norm computes the Frobenius norm and records the operation.
func (b *AutodiffBackend[B]) Norm(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Norm(x)
	b.record(func() ops.Operation { return ops.NewNormOp(x, result) })
	return result
}

// RowNorms computes per-row norms and records the operation.
func (b *AutodiffBackend[B]) RowNorms(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.RowNorms(x)
	b.record(func() ops.Operation { return ops.NewRowNormsOp(x, result) })
	return result
}

// Cat concatenates tensors and records the operation.
func (b *AutodiffBackend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Cat(tensors, dim)
	inputs := append([]*tensor.RawTensor(nil), tensors...)
	b.record(func() ops.Operation { return ops.NewCatOp(inputs, dim, result) })
	return result
}

// Narrow slices along dim and records the operation.
func (b *AutodiffBackend[B]) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	result := b.inner.Narrow(x, dim, start, length)
	b.record(func() ops.Operation { return ops.NewNarrowOp(x, result, dim, start) })
	return result
}

// NoGrad runs fn with recording disabled and restores the previous state.
// Used to evaluate a frozen network, such as the teacher during distillation.
func (b *AutodiffBackend[B]) NoGrad(fn func()) {
	was := b.tape.IsRecording()
	b.tape.StopRecording()
	defer func() {
		if was {
			b.tape.StartRecording()
		}
	}()
	fn()
}
