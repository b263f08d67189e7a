package nn_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/optim"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

func TestCheckpoint_RoundTrip(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "Burgers_inv_1_PINN_step_10.born")

	net := nn.NewMLP([]int{2, 6, 6, 1}, rand.New(rand.NewSource(1)), backend)
	theta := nn.NewParameter("theta", tensor.Full(tensor.Shape{1}, 0.42, backend))
	params := append(net.Parameters(), theta)
	opt := optim.NewAdam(params, optim.AdamConfig{LR: 1e-3}, backend)

	grads := make(map[*tensor.RawTensor]*tensor.RawTensor)
	for _, p := range params {
		g := tensor.Ones(p.Tensor().Shape(), backend)
		grads[p.Tensor().Raw()] = g.Raw()
	}
	opt.Step(grads)

	ckpt := &nn.Checkpoint[CPUBackend]{
		Model:     net,
		Extra:     []*nn.Parameter[CPUBackend]{theta},
		Optimizer: opt,
		Iteration: 10,
		Loss:      0.125,
		Metadata:  map[string]string{"problem": "Burgers_inv", "mode": "teacher"},
	}
	require.NoError(t, ckpt.Save(path))

	loadedNet := nn.NewMLP([]int{2, 6, 6, 1}, rand.New(rand.NewSource(2)), backend)
	loadedTheta := nn.NewParameter("theta", tensor.Zeros(tensor.Shape{1}, backend))
	loadedOpt := optim.NewAdam(append(loadedNet.Parameters(), loadedTheta), optim.AdamConfig{LR: 1e-3}, backend)

	loaded, err := nn.LoadCheckpoint(path, backend, nn.Network[CPUBackend](loadedNet),
		[]*nn.Parameter[CPUBackend]{loadedTheta}, loadedOpt)
	require.NoError(t, err)

	assert.Equal(t, 10, loaded.Iteration)
	assert.Equal(t, 0.125, loaded.Loss)
	assert.Equal(t, "Burgers_inv", loaded.Metadata["problem"])
	assert.Equal(t, "2,6,6,1", loaded.Metadata["layers"])
	assert.Equal(t, theta.Tensor().Item(), loadedTheta.Tensor().Item())
	assert.Equal(t, 1, loadedOpt.GetTimestep())

	in := samplePoints(t, backend)
	assert.Equal(t, net.Forward(in).Data(), loadedNet.Forward(in).Data())
}

func TestCheckpoint_WithoutOptimizer(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.born")

	net := nn.NewResMLP([]int{2, 4, 4, 1}, rand.New(rand.NewSource(1)), backend)
	require.NoError(t, (&nn.Checkpoint[CPUBackend]{Model: net}).Save(path))

	loadedNet := nn.NewResMLP([]int{2, 4, 4, 1}, rand.New(rand.NewSource(5)), backend)
	_, err := nn.LoadCheckpoint[CPUBackend](path, backend, loadedNet, nil, nil)
	require.NoError(t, err)

	in := samplePoints(t, backend)
	assert.Equal(t, net.Forward(in).Data(), loadedNet.Forward(in).Data())
}

func TestCheckpoint_RejectsMismatchedNetwork(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.born")

	net := nn.NewMLP([]int{2, 4, 1}, rand.New(rand.NewSource(1)), backend)
	require.NoError(t, (&nn.Checkpoint[CPUBackend]{Model: net}).Save(path))

	res := nn.NewResMLP([]int{2, 4, 1}, rand.New(rand.NewSource(1)), backend)
	_, err := nn.LoadCheckpoint[CPUBackend](path, backend, res, nil, nil)
	assert.ErrorContains(t, err, "ResPINN")

	wide := nn.NewMLP([]int{2, 8, 1}, rand.New(rand.NewSource(1)), backend)
	_, err = nn.LoadCheckpoint[CPUBackend](path, backend, wide, nil, nil)
	assert.ErrorContains(t, err, "layers")
}

func TestCheckpoint_MissingExtraParameter(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "model.born")

	net := nn.NewMLP([]int{2, 4, 1}, rand.New(rand.NewSource(1)), backend)
	require.NoError(t, (&nn.Checkpoint[CPUBackend]{Model: net}).Save(path))

	theta := nn.NewParameter("theta", tensor.Zeros(tensor.Shape{1}, backend))
	_, err := nn.LoadCheckpoint[CPUBackend](path, backend, net, []*nn.Parameter[CPUBackend]{theta}, nil)
	assert.ErrorContains(t, err, "theta")
}
