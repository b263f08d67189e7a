package nn

import (
	"fmt"
	"math/rand"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// MLP is a tanh multilayer perceptron: every hidden layer is Linear
// followed by Tanh, and the output layer is affine.
//
// The residual variant adds a skip connection around each hidden layer
// whose input and output widths match: h ← h + tanh(W·h + b).
//
// Example:
//
//	rng := rand.New(rand.NewSource(1234))
//	net := nn.NewMLP([]int{2, 20, 20, 1}, rng, backend)
//	u := net.Forward(points) // [N, 1]
type MLP[B tensor.Backend] struct {
	layers   []int
	linears  []*Linear[B]
	tanh     *Tanh[B]
	residual bool
	kind     Kind
}

// NewMLP creates a plain tanh MLP with the given widths (input first).
func NewMLP[B tensor.Backend](layers []int, rng *rand.Rand, backend B) *MLP[B] {
	return newMLP(layers, false, KindPINN, rng, backend)
}

// NewResMLP creates a tanh MLP with skip connections around equal-width
// hidden layers.
func NewResMLP[B tensor.Backend](layers []int, rng *rand.Rand, backend B) *MLP[B] {
	return newMLP(layers, true, KindResPINN, rng, backend)
}

func newMLP[B tensor.Backend](layers []int, residual bool, kind Kind, rng *rand.Rand, backend B) *MLP[B] {
	if len(layers) < 2 {
		panic(fmt.Sprintf("MLP: need at least input and output widths, got %v", layers))
	}
	for _, w := range layers {
		if w <= 0 {
			panic(fmt.Sprintf("MLP: invalid layer widths %v", layers))
		}
	}

	m := &MLP[B]{
		layers:   append([]int(nil), layers...),
		linears:  make([]*Linear[B], len(layers)-1),
		tanh:     NewTanh[B](),
		residual: residual,
		kind:     kind,
	}
	for i := range m.linears {
		m.linears[i] = NewLinear(fmt.Sprintf("layers.%d.", i), layers[i], layers[i+1], rng, backend)
	}
	return m
}

// Specs describes the dense layers in evaluation order.
func (m *MLP[B]) Specs() []LayerSpec[B] {
	specs := make([]LayerSpec[B], len(m.linears))
	last := len(m.linears) - 1
	for i, l := range m.linears {
		specs[i] = LayerSpec[B]{
			Linear:     l,
			Activation: i < last,
			Residual:   m.residual && i > 0 && i < last && l.InFeatures() == l.OutFeatures(),
		}
	}
	return specs
}

// Forward evaluates the network on points of shape [N, layers[0]].
func (m *MLP[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	h := input
	for _, spec := range m.Specs() {
		out := spec.Linear.Forward(h)
		if spec.Activation {
			out = m.tanh.Forward(out)
		}
		if spec.Residual {
			out = h.Add(out)
		}
		h = out
	}
	return h
}

// ForwardJet evaluates the network and its input derivatives.
func (m *MLP[B]) ForwardJet(j *Jet[B]) *Jet[B] {
	h := j
	for _, spec := range m.Specs() {
		out := spec.Linear.ForwardJet(h)
		if spec.Activation {
			out = m.tanh.ForwardJet(out)
		}
		if spec.Residual {
			out = h.add(out)
		}
		h = out
	}
	return h
}

// Parameters returns all weights and biases, layer by layer.
func (m *MLP[B]) Parameters() []*Parameter[B] {
	params := make([]*Parameter[B], 0, 2*len(m.linears))
	for _, l := range m.linears {
		params = append(params, l.Parameters()...)
	}
	return params
}

// StateDict returns parameter names mapped to their raw tensors.
func (m *MLP[B]) StateDict() map[string]*tensor.RawTensor {
	stateDict := make(map[string]*tensor.RawTensor)
	for _, p := range m.Parameters() {
		stateDict[p.Name()] = p.Tensor().Raw()
	}
	return stateDict
}

// LoadStateDict loads every parameter from stateDict.
func (m *MLP[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	for _, p := range m.Parameters() {
		if err := loadParameter(p, stateDict); err != nil {
			return err
		}
	}
	return nil
}

// Layers returns the layer widths, input first.
func (m *MLP[B]) Layers() []int {
	return append([]int(nil), m.layers...)
}

// Kind returns the registered architecture name.
func (m *MLP[B]) Kind() Kind {
	return m.kind
}
