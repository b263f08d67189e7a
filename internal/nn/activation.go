package nn

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Tanh is a hyperbolic tangent activation module.
//
// Applies the element-wise function: tanh(x)
//
// Example:
//
//	tanh := nn.NewTanh[Backend]()
//	output := tanh.Forward(input)  // Values in range (-1, 1)
type Tanh[B tensor.Backend] struct{}

// NewTanh creates a new Tanh activation module.
func NewTanh[B tensor.Backend]() *Tanh[B] {
	return &Tanh[B]{}
}

// Forward applies Tanh activation.
func (t *Tanh[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	return input.Tanh()
}

// Parameters returns an empty slice (Tanh has no trainable parameters).
func (t *Tanh[B]) Parameters() []*Parameter[B] {
	return nil
}

// ForwardJet composes tanh with the incoming jet using Faà di Bruno's
// formula. With s = tanh(z) the derivatives of tanh are
//
//	t1 = 1 - s²
//	t2 = -2·s·t1
//	t3 = -2·(t1² + s·t2)
//
// and for one axis with incoming derivatives z1, z2, z3:
//
//	y1 = t1·z1
//	y2 = t2·z1² + t1·z2
//	y3 = t3·z1³ + 3·t2·z1·z2 + t1·z3
func (t *Tanh[B]) ForwardJet(j *Jet[B]) *Jet[B] {
	s := j.Value.Tanh()
	out := &Jet[B]{
		Value:  s,
		Derivs: make([][]*tensor.Tensor[B], len(j.Derivs)),
	}

	order := j.MaxOrder()
	if order == 0 {
		return out
	}

	t1 := s.Square().Neg().AddScalar(1)
	var t2, t3 *tensor.Tensor[B]
	if order >= 2 {
		t2 = s.Mul(t1).MulScalar(-2)
	}
	if order >= 3 {
		t3 = t1.Square().Add(s.Mul(t2)).MulScalar(-2)
	}

	for axis, d := range j.Derivs {
		z1, z2, z3 := at(d, 0), at(d, 1), at(d, 2)
		y := make([]*tensor.Tensor[B], len(d))
		if len(d) >= 1 {
			y[0] = mulOpt(t1, z1)
		}
		if len(d) >= 2 {
			y[1] = addOpt(mulOpt(t2, squareOpt(z1)), mulOpt(t1, z2))
		}
		if len(d) >= 3 {
			cross := mulOpt(mulOpt(t2, z1), z2)
			if cross != nil {
				cross = cross.MulScalar(3)
			}
			y[2] = addOpt(addOpt(mulOpt(t3, mulOpt(squareOpt(z1), z1)), cross), mulOpt(t1, z3))
		}
		out.Derivs[axis] = y
	}
	return out
}
