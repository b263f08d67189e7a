package nn

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Parameter represents a trainable parameter in a neural network.
//
// Parameters are tensors that require gradient computation during training:
// weights and biases of layers, and the unknown coefficients of inverse
// problems.
//
// Example:
//
//	weight := nn.NewParameter("weight", weightTensor)
//	w := weight.Tensor()
//	grad := weight.Grad() // after a backward pass
type Parameter[B tensor.Backend] struct {
	name   string             // Parameter name (e.g., "layers.0.weight")
	tensor *tensor.Tensor[B]  // The parameter tensor
	grad   *tensor.Tensor[B]  // Gradient tensor (computed during backward pass)
}

// NewParameter creates a new trainable parameter.
//
// Gradient will be allocated during the first backward pass.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// Grad returns the gradient tensor.
//
// Returns nil if no gradient has been computed yet (before backward pass).
func (p *Parameter[B]) Grad() *tensor.Tensor[B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
//
// This should be called before each training iteration to avoid
// accumulating gradients from previous iterations.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}

// IsWeight reports whether the parameter is a weight matrix rather than a
// bias or a scalar coefficient.
func (p *Parameter[B]) IsWeight() bool {
	return len(p.tensor.Shape()) == 2
}
