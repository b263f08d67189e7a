package nn

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Velocity evaluates net as a stream function on planar points. With ψ the
// sum of the network outputs it returns the [N, 2] divergence-free velocity
// (−∂ψ/∂y, ∂ψ/∂x). The input needs at least two columns (x, y).
func Velocity[B tensor.Backend](net Network[B], input *tensor.Tensor[B]) *tensor.Tensor[B] {
	j := net.ForwardJet(NewJet(input, []int{1, 1}))
	psiX := j.D(0, 1).SumDim(1, true)
	psiY := j.D(1, 1).SumDim(1, true)
	return tensor.Cat([]*tensor.Tensor[B]{psiY.Neg(), psiX}, 1)
}

// Predict evaluates the field net models: the velocity for
// divergence-free networks, the raw outputs otherwise.
func Predict[B tensor.Backend](net Network[B], input *tensor.Tensor[B]) *tensor.Tensor[B] {
	if net.Kind() == KindDivFree {
		return Velocity(net, input)
	}
	return net.Forward(input)
}
