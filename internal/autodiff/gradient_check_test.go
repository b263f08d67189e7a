package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/internal/autodiff"
	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// checkGradient compares the tape gradient of f at x with central differences.
func checkGradient(t *testing.T, name string, data []float64, shape tensor.Shape, f func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend]) {
	t.Helper()
	backend := autodiff.New(cpu.New())

	backend.Tape().StartRecording()
	x, err := tensor.FromSlice(data, shape, backend)
	require.NoError(t, err)
	y := f(x)
	grads := autodiff.Backward(y, backend)
	grad, ok := grads[x.Raw()]
	require.True(t, ok, "%s: no gradient for input", name)

	backend.Tape().StopRecording()
	backend.Tape().Clear()

	const eps = 1e-6
	for i := range data {
		plus := append([]float64(nil), data...)
		minus := append([]float64(nil), data...)
		plus[i] += eps
		minus[i] -= eps
		xp, _ := tensor.FromSlice(plus, shape, backend)
		xm, _ := tensor.FromSlice(minus, shape, backend)
		numerical := (f(xp).Item() - f(xm).Item()) / (2 * eps)
		assert.InDelta(t, numerical, grad.Data()[i], 1e-5, "%s: d/dx[%d]", name, i)
	}
}

func TestGradient_Elementwise(t *testing.T) {
	data := []float64{0.3, -0.7, 1.2, 0.5, -0.1, 0.9}
	shape := tensor.Shape{2, 3}

	checkGradient(t, "tanh", data, shape, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Tanh().Sum()
	})
	checkGradient(t, "sin*cos", data, shape, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Sin().Mul(x.Cos()).Mean()
	})
	checkGradient(t, "div", data, shape, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Div(x.Square().AddScalar(1)).Sum()
	})
	checkGradient(t, "sub scalar", data, shape, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.MulScalar(3).Sub(x.Square()).Sum()
	})
	checkGradient(t, "abs", data, shape, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Abs().Sum()
	})
	checkGradient(t, "sqrt", []float64{0.5, 1, 2}, tensor.Shape{3}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Sqrt().Sum()
	})
}

func TestGradient_MatMulTranspose(t *testing.T) {
	w := []float64{0.1, -0.2, 0.3, 0.4, 0.5, -0.6}
	checkGradient(t, "linear", w, tensor.Shape{2, 3}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		in, _ := tensor.FromSlice([]float64{1, 2, 3, -1, 0.5, 2}, tensor.Shape{2, 3}, x.Backend())
		return in.MatMul(x.Transpose()).Tanh().Sum()
	})
}

func TestGradient_Broadcast(t *testing.T) {
	bias := []float64{0.2, -0.4}
	checkGradient(t, "bias", bias, tensor.Shape{1, 2}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		in, _ := tensor.FromSlice([]float64{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2}, x.Backend())
		return in.Add(x).Square().Mean()
	})
	checkGradient(t, "expand", bias, tensor.Shape{1, 2}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Expand(tensor.Shape{4, 2}).Sin().Sum()
	})
}

func TestGradient_Manipulation(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6}
	checkGradient(t, "cat narrow", data, tensor.Shape{3, 2}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		c := tensor.Cat([]*tensor.Tensor[Backend]{x.Column(1), x.Column(0).MulScalar(2)}, 0)
		return c.Square().Sum()
	})
	checkGradient(t, "reshape sumdim", data, tensor.Shape{3, 2}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Reshape(2, 3).SumDim(1, false).Square().Sum()
	})
}

func TestGradient_Norms(t *testing.T) {
	data := []float64{3, 4, 1, -2, 0.5, 0.5}
	checkGradient(t, "norm", data, tensor.Shape{3, 2}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		return x.Norm()
	})
	checkGradient(t, "row norms", data, tensor.Shape{3, 2}, func(x *tensor.Tensor[Backend]) *tensor.Tensor[Backend] {
		weights, _ := tensor.FromSlice([]float64{1, 0.55, 0.1}, tensor.Shape{3}, x.Backend())
		return x.RowNorms().Mul(weights).Sum()
	})
}

func TestGradient_NormAtZeroIsZero(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x := tensor.Zeros(tensor.Shape{4}, backend)
	y := x.Norm().Add(x.RowNorms().Sum())
	grads := autodiff.Backward(y, backend)

	grad := grads[x.Raw()]
	require.NotNil(t, grad)
	assert.True(t, grad.IsFinite())
	for _, v := range grad.Data() {
		assert.Zero(t, v)
	}
}
