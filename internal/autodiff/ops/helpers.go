package ops

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape.
// This is necessary when broadcasting was used in the forward pass.
//
// Example:
//
//	Forward: a[3,1] + b[3,4] -> c[3,4]  (a was broadcast along dim 1)
//	Backward: grad_c[3,4] -> grad_a[3,1] (sum along dim 1)
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	gradShape := grad.Shape()

	if gradShape.Equal(targetShape) {
		return grad
	}

	if len(targetShape) == 0 {
		return backend.Sum(grad)
	}

	// NumPy broadcasting aligns shapes from the right: sum leading dims first.
	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	for i := range targetShape {
		if targetShape[i] == 1 && result.Shape()[i] > 1 {
			result = backend.SumDim(result, i, true)
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}

	return result
}

// mapPair builds a tensor of x's shape from f(grad[i], x[i]).
// grad and x must have the same shape.
func mapPair(grad, x *tensor.RawTensor, f func(g, v float64) float64) *tensor.RawTensor {
	result := tensor.MustRaw(x.Shape(), x.Device())
	dst, g, src := result.Data(), grad.Data(), x.Data()
	for i := range dst {
		dst[i] = f(g[i], src[i])
	}
	return result
}

// fillLike returns a tensor of shape filled with value.
func fillLike(shape tensor.Shape, value float64, device tensor.Device) *tensor.RawTensor {
	result := tensor.MustRaw(shape, device)
	result.Fill(value)
	return result
}
