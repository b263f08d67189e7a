package nn

import (
	"fmt"
	"math/rand"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the bias vector with shape [out_features]
//   - y is the output tensor with shape [batch_size, out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a new Linear layer whose parameters are named
// prefix+"weight" and prefix+"bias".
func NewLinear[B tensor.Backend](prefix string, inFeatures, outFeatures int, rng *rand.Rand, backend B) *Linear[B] {
	weightShape := tensor.Shape{outFeatures, inFeatures}
	weight := NewParameter(prefix+"weight", Xavier(rng, inFeatures, outFeatures, weightShape, backend))
	bias := NewParameter(prefix+"bias", Zeros(tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes the output of the linear layer.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	l.checkInput(input)
	return l.affine(input, l.weight.Tensor().Transpose())
}

// ForwardJet maps every derivative order through the weight; the bias only
// shifts the value.
func (l *Linear[B]) ForwardJet(j *Jet[B]) *Jet[B] {
	l.checkInput(j.Value)
	wT := l.weight.Tensor().Transpose()

	out := &Jet[B]{
		Value:  l.affine(j.Value, wT),
		Derivs: make([][]*tensor.Tensor[B], len(j.Derivs)),
	}
	for axis, orders := range j.Derivs {
		out.Derivs[axis] = make([]*tensor.Tensor[B], len(orders))
		for k, d := range orders {
			if d != nil {
				out.Derivs[axis][k] = d.MatMul(wT)
			}
		}
	}
	return out
}

func (l *Linear[B]) affine(input, wT *tensor.Tensor[B]) *tensor.Tensor[B] {
	// Reshape is recorded so the bias gradient reaches the [out] parameter.
	b := l.bias.Tensor().Reshape(1, l.outFeatures)
	return input.MatMul(wT).Add(b)
}

func (l *Linear[B]) checkInput(input *tensor.Tensor[B]) {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// loadParameter copies raw into p after checking the shape.
func loadParameter[B tensor.Backend](p *Parameter[B], stateDict map[string]*tensor.RawTensor) error {
	raw, ok := stateDict[p.Name()]
	if !ok {
		return fmt.Errorf("missing %s in state dict", p.Name())
	}
	if !raw.Shape().Equal(p.Tensor().Shape()) {
		return fmt.Errorf("%s shape mismatch: expected %v, got %v", p.Name(), p.Tensor().Shape(), raw.Shape())
	}
	copy(p.Tensor().Data(), raw.Data())
	return nil
}
