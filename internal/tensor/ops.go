package tensor

// Add performs element-wise addition with broadcasting.
//
// Example:
//
//	a := tensor.Ones(Shape{3, 1}, backend)
//	b := tensor.Ones(Shape{3, 5}, backend)
//	c := a.Add(b) // Shape: [3, 5] (broadcasted)
func (t *Tensor[B]) Add(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Add(t.raw, other.raw), t.backend)
}

// Sub performs element-wise subtraction with broadcasting.
func (t *Tensor[B]) Sub(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Sub(t.raw, other.raw), t.backend)
}

// Mul performs element-wise multiplication with broadcasting.
func (t *Tensor[B]) Mul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Mul(t.raw, other.raw), t.backend)
}

// Div performs element-wise division with broadcasting.
func (t *Tensor[B]) Div(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.Div(t.raw, other.raw), t.backend)
}

// MatMul performs 2-D matrix multiplication: (M, K) @ (K, N) → (M, N).
func (t *Tensor[B]) MatMul(other *Tensor[B]) *Tensor[B] {
	return New(t.backend.MatMul(t.raw, other.raw), t.backend)
}

// Reshape returns a tensor with the same data but different shape.
// The new shape must have the same number of elements.
func (t *Tensor[B]) Reshape(newShape ...int) *Tensor[B] {
	return New(t.backend.Reshape(t.raw, Shape(newShape)), t.backend)
}

// Transpose swaps the two dimensions of a matrix.
func (t *Tensor[B]) Transpose() *Tensor[B] {
	return New(t.backend.Transpose(t.raw), t.backend)
}

// Expand broadcasts the tensor to shape.
func (t *Tensor[B]) Expand(shape Shape) *Tensor[B] {
	return New(t.backend.Expand(t.raw, shape), t.backend)
}

// MulScalar multiplies every element by s.
func (t *Tensor[B]) MulScalar(s float64) *Tensor[B] {
	return New(t.backend.MulScalar(t.raw, s), t.backend)
}

// AddScalar adds s to every element.
func (t *Tensor[B]) AddScalar(s float64) *Tensor[B] {
	return New(t.backend.AddScalar(t.raw, s), t.backend)
}

// Neg returns -t.
func (t *Tensor[B]) Neg() *Tensor[B] {
	return t.MulScalar(-1)
}

// Square returns t * t.
func (t *Tensor[B]) Square() *Tensor[B] {
	return t.Mul(t)
}

// Tanh applies the hyperbolic tangent element-wise.
func (t *Tensor[B]) Tanh() *Tensor[B] {
	return New(t.backend.Tanh(t.raw), t.backend)
}

// Sin applies sine element-wise.
func (t *Tensor[B]) Sin() *Tensor[B] {
	return New(t.backend.Sin(t.raw), t.backend)
}

// Cos applies cosine element-wise.
func (t *Tensor[B]) Cos() *Tensor[B] {
	return New(t.backend.Cos(t.raw), t.backend)
}

// Sqrt applies the square root element-wise.
func (t *Tensor[B]) Sqrt() *Tensor[B] {
	return New(t.backend.Sqrt(t.raw), t.backend)
}

// Abs applies the absolute value element-wise.
func (t *Tensor[B]) Abs() *Tensor[B] {
	return New(t.backend.Abs(t.raw), t.backend)
}

// Sum reduces all elements to a scalar.
func (t *Tensor[B]) Sum() *Tensor[B] {
	return New(t.backend.Sum(t.raw), t.backend)
}

// Mean reduces all elements to their scalar mean.
func (t *Tensor[B]) Mean() *Tensor[B] {
	return New(t.backend.Mean(t.raw), t.backend)
}

// SumDim sums along dim.
func (t *Tensor[B]) SumDim(dim int, keepDim bool) *Tensor[B] {
	return New(t.backend.SumDim(t.raw, dim, keepDim), t.backend)
}

// Norm returns the Frobenius 2-norm as a scalar.
func (t *Tensor[B]) Norm() *Tensor[B] {
	return New(t.backend.Norm(t.raw), t.backend)
}

// RowNorms returns the 2-norm of every row of a matrix.
func (t *Tensor[B]) RowNorms() *Tensor[B] {
	return New(t.backend.RowNorms(t.raw), t.backend)
}

// Narrow returns length slices of dim starting at start.
func (t *Tensor[B]) Narrow(dim, start, length int) *Tensor[B] {
	return New(t.backend.Narrow(t.raw, dim, start, length), t.backend)
}

// Column returns column j of a matrix as an [N, 1] tensor.
func (t *Tensor[B]) Column(j int) *Tensor[B] {
	return t.Narrow(1, j, 1)
}

// Cat concatenates tensors along dim. All tensors must share the backend.
func Cat[B Backend](tensors []*Tensor[B], dim int) *Tensor[B] {
	if len(tensors) == 0 {
		panic("Cat: no tensors")
	}
	raws := make([]*RawTensor, len(tensors))
	for i, t := range tensors {
		raws[i] = t.raw
	}
	b := tensors[0].backend
	return New(b.Cat(raws, dim), b)
}

// MSE returns mean((a - b)^2) as a scalar.
func MSE[B Backend](a, b *Tensor[B]) *Tensor[B] {
	return a.Sub(b).Square().Mean()
}
