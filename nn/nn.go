// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the networks trained by Psi-NN.
//
// Networks are tanh multilayer perceptrons, optionally with residual
// hidden layers, registered by kind. Besides the plain forward pass they
// propagate Taylor jets, which yields exact input derivatives of any order
// along one axis for the equation residuals.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	net, err := nn.Build(nn.KindPINN, []int{2, 20, 20, 1}, rand.New(rand.NewSource(1234)), backend)
//	jet := nn.NewJet(x, []int{1, 2}) // first derivative along axis 0, second along axis 1
//	u := net.ForwardJet(jet)
//	uxx := u.D(1, 2)
package nn

import (
	"math/rand"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/tensor"
)

// Kind names a registered network architecture.
type Kind = nn.Kind

// Registered architectures.
const (
	KindPINN    Kind = nn.KindPINN
	KindResPINN Kind = nn.KindResPINN
	KindDivFree Kind = nn.KindDivFree
)

// Network is a trainable function from coordinates to fields.
type Network[B tensor.Backend] = nn.Network[B]

// MLP is a tanh multilayer perceptron.
type MLP[B tensor.Backend] = nn.MLP[B]

// Parameter is a named trainable tensor.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Jet carries a tensor together with its input derivatives.
type Jet[B tensor.Backend] = nn.Jet[B]

// Checkpoint is a snapshot of a trained network.
type Checkpoint[B tensor.Backend] = nn.Checkpoint[B]

// OptimizerState is an optimizer whose state is saved with checkpoints.
type OptimizerState = nn.OptimizerState

// NewParameter creates a named parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// NewMLP creates a plain MLP with the given layer widths.
func NewMLP[B tensor.Backend](layers []int, rng *rand.Rand, backend B) *MLP[B] {
	return nn.NewMLP(layers, rng, backend)
}

// NewResMLP creates an MLP whose equal-width hidden layers are residual.
func NewResMLP[B tensor.Backend](layers []int, rng *rand.Rand, backend B) *MLP[B] {
	return nn.NewResMLP(layers, rng, backend)
}

// Build constructs a network of a registered kind.
func Build[B tensor.Backend](kind Kind, layers []int, rng *rand.Rand, backend B) (Network[B], error) {
	return nn.Build(kind, layers, rng, backend)
}

// Predict evaluates the field a network models; divergence-free networks
// return their velocity.
func Predict[B tensor.Backend](net Network[B], input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return nn.Predict(net, input)
}

// Lookup resolves a model name.
func Lookup(name string) (Kind, bool) {
	return nn.Lookup(name)
}

// Kinds lists the registered architecture names.
func Kinds() []string {
	return nn.Kinds()
}

// NewJet seeds a jet on input: orders[a] derivatives are tracked along
// input axis a.
func NewJet[B tensor.Backend](input *tensor.Tensor[B], orders []int) *Jet[B] {
	return nn.NewJet(input, orders)
}

// LoadCheckpoint restores a .born checkpoint into model, extra and
// (optionally) optimizer.
func LoadCheckpoint[B tensor.Backend](path string, backend B, model Network[B], extra []*Parameter[B], optimizer OptimizerState) (*Checkpoint[B], error) {
	return nn.LoadCheckpoint(path, backend, model, extra, optimizer)
}
