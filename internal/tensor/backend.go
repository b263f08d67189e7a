package tensor

// Backend defines the interface that all compute backends must implement.
// Backends handle the actual computation for tensor operations and must
// never mutate their inputs.
//
// Implementations:
//   - cpu.CPUBackend: pure Go kernels
//   - autodiff.AutodiffBackend: decorator recording operations on a tape
type Backend interface {
	// Element-wise binary operations (NumPy broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul multiplies 2-D matrices: [M, K] @ [K, N] -> [M, N].
	MatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor) *RawTensor // 2-D transpose
	Expand(x *RawTensor, shape Shape) *RawTensor

	// Scalar operations (element-wise with scalar)
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor

	// Math operations (element-wise)
	Tanh(x *RawTensor) *RawTensor
	Sin(x *RawTensor) *RawTensor
	Cos(x *RawTensor) *RawTensor
	Sqrt(x *RawTensor) *RawTensor
	Abs(x *RawTensor) *RawTensor

	// Reductions
	Sum(x *RawTensor) *RawTensor                           // total sum, shape []
	Mean(x *RawTensor) *RawTensor                          // total mean, shape []
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor // sum along dimension
	Norm(x *RawTensor) *RawTensor                          // Frobenius 2-norm, shape []
	RowNorms(x *RawTensor) *RawTensor                      // 2-norm of each row of a matrix, shape [rows]

	// Manipulation
	Cat(tensors []*RawTensor, dim int) *RawTensor
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
