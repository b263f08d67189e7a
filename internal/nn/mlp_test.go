package nn_test

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

func TestMLP_Shapes(t *testing.T) {
	backend := cpu.New()
	net := nn.NewMLP([]int{3, 10, 10, 2}, rand.New(rand.NewSource(1)), backend)

	in := tensor.Ones(tensor.Shape{5, 3}, backend)
	out := net.Forward(in)

	assert.Equal(t, tensor.Shape{5, 2}, out.Shape())
	assert.Len(t, net.Parameters(), 6)
	assert.Equal(t, []int{3, 10, 10, 2}, net.Layers())
	assert.Equal(t, nn.KindPINN, net.Kind())

	names := make([]string, 0, 6)
	for _, p := range net.Parameters() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{
		"layers.0.weight", "layers.0.bias",
		"layers.1.weight", "layers.1.bias",
		"layers.2.weight", "layers.2.bias",
	}, names)
}

func TestMLP_SeedReproducible(t *testing.T) {
	backend := cpu.New()
	a := nn.NewMLP([]int{2, 6, 1}, rand.New(rand.NewSource(1234)), backend)
	b := nn.NewMLP([]int{2, 6, 1}, rand.New(rand.NewSource(1234)), backend)
	c := nn.NewMLP([]int{2, 6, 1}, rand.New(rand.NewSource(99)), backend)

	in := samplePoints(t, backend)
	assert.Equal(t, a.Forward(in).Data(), b.Forward(in).Data())
	assert.NotEqual(t, a.Forward(in).Data(), c.Forward(in).Data())
}

func TestMLP_BiasesStartAtZero(t *testing.T) {
	backend := cpu.New()
	net := nn.NewMLP([]int{2, 4, 1}, rand.New(rand.NewSource(1)), backend)

	for _, p := range net.Parameters() {
		if p.IsWeight() {
			continue
		}
		for _, v := range p.Tensor().Data() {
			assert.Zero(t, v)
		}
	}
}

func TestResMLP_Specs(t *testing.T) {
	backend := cpu.New()
	net := nn.NewResMLP([]int{2, 8, 8, 4, 1}, rand.New(rand.NewSource(1)), backend)

	specs := net.Specs()
	require.Len(t, specs, 4)

	residual := make([]bool, len(specs))
	activation := make([]bool, len(specs))
	for i, s := range specs {
		residual[i] = s.Residual
		activation[i] = s.Activation
	}
	assert.Equal(t, []bool{false, true, false, false}, residual)
	assert.Equal(t, []bool{true, true, true, false}, activation)
	assert.Equal(t, nn.KindResPINN, net.Kind())
}

func TestResMLP_SkipConnection(t *testing.T) {
	backend := cpu.New()
	net := nn.NewResMLP([]int{2, 3, 3, 1}, rand.New(rand.NewSource(1)), backend)

	// Zero the residual block: the hidden state passes through unchanged,
	// so the residual network equals a plain one without that layer.
	specs := net.Specs()
	specs[1].Linear.Weight().Tensor().Raw().Fill(0)

	in := samplePoints(t, backend)
	h := specs[0].Linear.Forward(in).Tanh()
	h = h.Add(specs[1].Linear.Forward(h).Tanh())
	want := specs[2].Linear.Forward(h)

	assert.InDeltaSlice(t, want.Data(), net.Forward(in).Data(), 1e-15)
}

func TestMLP_InvalidLayers(t *testing.T) {
	backend := cpu.New()
	assert.Panics(t, func() { nn.NewMLP([]int{2}, rand.New(rand.NewSource(1)), backend) })
	assert.Panics(t, func() { nn.NewMLP([]int{2, 0, 1}, rand.New(rand.NewSource(1)), backend) })
}

func TestLinear_RejectsWrongWidth(t *testing.T) {
	backend := cpu.New()
	l := nn.NewLinear("", 3, 2, rand.New(rand.NewSource(1)), backend)
	assert.Panics(t, func() { l.Forward(tensor.Ones(tensor.Shape{4, 2}, backend)) })
}

func TestStateDict_RoundTrip(t *testing.T) {
	backend := cpu.New()
	src := nn.NewMLP([]int{2, 5, 1}, rand.New(rand.NewSource(1)), backend)
	dst := nn.NewMLP([]int{2, 5, 1}, rand.New(rand.NewSource(2)), backend)

	require.NoError(t, dst.LoadStateDict(src.StateDict()))

	in := samplePoints(t, backend)
	assert.Equal(t, src.Forward(in).Data(), dst.Forward(in).Data())
}

func TestStateDict_Errors(t *testing.T) {
	backend := cpu.New()
	net := nn.NewMLP([]int{2, 5, 1}, rand.New(rand.NewSource(1)), backend)
	other := nn.NewMLP([]int{2, 6, 1}, rand.New(rand.NewSource(1)), backend)

	assert.Error(t, net.LoadStateDict(other.StateDict()))

	sd := net.StateDict()
	delete(sd, "layers.1.bias")
	assert.ErrorContains(t, net.LoadStateDict(sd), "layers.1.bias")
}

func TestRegistry(t *testing.T) {
	kind, ok := nn.Lookup("PINN")
	assert.True(t, ok)
	assert.Equal(t, nn.KindPINN, kind)

	_, ok = nn.Lookup("ResPINN")
	assert.True(t, ok)

	_, ok = nn.Lookup("Transformer")
	assert.False(t, ok)

	kind, ok = nn.Lookup("PINN_post_divfree")
	assert.True(t, ok)
	assert.Equal(t, nn.KindDivFree, kind)

	assert.Equal(t, []string{"PINN", "PINN_post_divfree", "ResPINN"}, nn.Kinds())

	_, err := nn.Build(nn.Kind("KAN"), []int{2, 1}, rand.New(rand.NewSource(1)), cpu.New())
	assert.Error(t, err)
}
