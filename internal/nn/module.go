// Package nn implements the neural network building blocks used as trainable
// surrogate functions:
//   - Module and Network interfaces
//   - Parameter: trainable tensors with gradient tracking
//   - Linear and Tanh layers
//   - MLP: plain and residual tanh multilayer perceptrons
//   - Jet: Taylor-mode propagation of per-axis input derivatives
//   - Registry of named architectures and .born checkpoints
package nn

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor
	// of shape [batch, in_features].
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all trainable parameters of this module.
	// Returns an empty slice for modules without trainable parameters.
	Parameters() []*Parameter[B]
}

// Network is a trainable function of the coordinates: a Module that can
// also propagate input derivatives and round-trip its weights.
//
// A Network holds no training history; counters and loss trajectories live
// in the trainer's state.
type Network[B tensor.Backend] interface {
	Module[B]

	// ForwardJet propagates a value together with its pure per-axis input
	// derivatives.
	ForwardJet(j *Jet[B]) *Jet[B]

	// StateDict returns parameter names mapped to their raw tensors.
	StateDict() map[string]*tensor.RawTensor

	// LoadStateDict copies matching tensors into the parameters.
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error

	// Layers returns the layer widths, input first.
	Layers() []int

	// Kind returns the registered architecture name.
	Kind() Kind

	// Specs describes the dense layers in evaluation order.
	Specs() []LayerSpec[B]
}

// LayerSpec describes one dense layer of a Network.
type LayerSpec[B tensor.Backend] struct {
	Linear     *Linear[B]
	Activation bool // tanh applied after the affine map
	Residual   bool // layer output added to its input
}
