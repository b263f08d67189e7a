package nn

import (
	"fmt"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Jet carries a value together with its pure partial derivatives with
// respect to selected input axes, up to third order.
//
// Derivs[axis][k-1] holds ∂ᵏ/∂x_axisᵏ of Value. A nil entry is identically
// zero and is skipped by every layer. Derivative tensors may have a leading
// dimension of 1 and broadcast against Value.
//
// Every operation on a jet is an ordinary recorded tensor op, so a single
// reverse sweep of the tape yields exact parameter gradients of any
// expression built from the derivatives.
type Jet[B tensor.Backend] struct {
	Value  *tensor.Tensor[B]
	Derivs [][]*tensor.Tensor[B]
}

// MaxJetOrder is the highest derivative order a jet propagates.
const MaxJetOrder = 3

// NewJet seeds a jet at the network input. orders[axis] is the highest
// derivative order required along that input column (0 for none).
func NewJet[B tensor.Backend](input *tensor.Tensor[B], orders []int) *Jet[B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("NewJet: expected 2D input, got shape %v", shape))
	}
	if len(orders) > shape[1] {
		panic(fmt.Sprintf("NewJet: %d axes requested for %d input columns", len(orders), shape[1]))
	}

	j := &Jet[B]{
		Value:  input,
		Derivs: make([][]*tensor.Tensor[B], len(orders)),
	}
	for axis, order := range orders {
		if order < 0 || order > MaxJetOrder {
			panic(fmt.Sprintf("NewJet: order %d out of range [0, %d]", order, MaxJetOrder))
		}
		if order == 0 {
			continue
		}
		seed := make([]float64, shape[1])
		seed[axis] = 1
		d1, err := tensor.FromSlice(seed, tensor.Shape{1, shape[1]}, input.Backend())
		if err != nil {
			panic(err)
		}
		j.Derivs[axis] = make([]*tensor.Tensor[B], order)
		j.Derivs[axis][0] = d1
	}
	return j
}

// MaxOrder returns the highest order carried along any axis.
func (j *Jet[B]) MaxOrder() int {
	order := 0
	for _, d := range j.Derivs {
		order = max(order, len(d))
	}
	return order
}

// D returns ∂ᵒʳᵈᵉʳ Value / ∂x_axisᵒʳᵈᵉʳ expanded to the value's shape.
// Order 0 returns the value itself. Derivatives that are identically zero,
// or were not requested, come back as zeros.
func (j *Jet[B]) D(axis, order int) *tensor.Tensor[B] {
	if order == 0 {
		return j.Value
	}
	var d *tensor.Tensor[B]
	if axis < len(j.Derivs) {
		d = at(j.Derivs[axis], order-1)
	}
	if d == nil {
		return tensor.Zeros(j.Value.Shape(), j.Value.Backend())
	}
	if !d.Shape().Equal(j.Value.Shape()) {
		d = d.Expand(j.Value.Shape())
	}
	return d
}

// Column restricts the jet to output column c, giving [N, 1] tensors.
func (j *Jet[B]) Column(c int) *Jet[B] {
	out := &Jet[B]{
		Value:  j.Value.Column(c),
		Derivs: make([][]*tensor.Tensor[B], len(j.Derivs)),
	}
	for axis, orders := range j.Derivs {
		out.Derivs[axis] = make([]*tensor.Tensor[B], len(orders))
		for k, d := range orders {
			if d != nil {
				out.Derivs[axis][k] = d.Column(c)
			}
		}
	}
	return out
}

// add sums two jets term by term (residual connections).
func (j *Jet[B]) add(other *Jet[B]) *Jet[B] {
	out := &Jet[B]{
		Value:  j.Value.Add(other.Value),
		Derivs: make([][]*tensor.Tensor[B], max(len(j.Derivs), len(other.Derivs))),
	}
	for axis := range out.Derivs {
		var a, b []*tensor.Tensor[B]
		if axis < len(j.Derivs) {
			a = j.Derivs[axis]
		}
		if axis < len(other.Derivs) {
			b = other.Derivs[axis]
		}
		sum := make([]*tensor.Tensor[B], max(len(a), len(b)))
		for k := range sum {
			sum[k] = addOpt(at(a, k), at(b, k))
		}
		out.Derivs[axis] = sum
	}
	return out
}

// at returns d[k] or nil when k is out of range.
func at[B tensor.Backend](d []*tensor.Tensor[B], k int) *tensor.Tensor[B] {
	if k < len(d) {
		return d[k]
	}
	return nil
}

func mulOpt[B tensor.Backend](a, b *tensor.Tensor[B]) *tensor.Tensor[B] {
	if a == nil || b == nil {
		return nil
	}
	return a.Mul(b)
}

func addOpt[B tensor.Backend](a, b *tensor.Tensor[B]) *tensor.Tensor[B] {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	default:
		return a.Add(b)
	}
}

func squareOpt[B tensor.Backend](a *tensor.Tensor[B]) *tensor.Tensor[B] {
	if a == nil {
		return nil
	}
	return a.Square()
}
