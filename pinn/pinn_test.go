// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package pinn_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/pinn"
)

const laplaceTable = `x_min,0
x_max,1
y_min,0
y_max,1
coord_num,2
output_num,1
node_num,4
grid_node_num,4
bun_node_num,4
figure_node_num,3
hidden_layers_group,"1"
para_ctrl,"1"
step_num,1
train_steps,3
regularization_state,1
data_serial,1
pace_record_state,0
load_state,0
model,PINN
`

func options(t *testing.T) pinn.Options {
	t.Helper()
	root := t.TempDir()
	opts := pinn.DefaultOptions()
	opts.ConfigDir = filepath.Join(root, "Config")
	opts.DataDir = filepath.Join(root, "Database")
	opts.ResultsDir = filepath.Join(root, "Results")
	opts.Out = &bytes.Buffer{}
	opts.Logger = log.New(io.Discard, "", 0)
	require.NoError(t, os.MkdirAll(opts.ConfigDir, 0o750))
	return opts
}

func TestRun(t *testing.T) {
	opts := options(t)
	require.NoError(t, os.WriteFile(filepath.Join(opts.ConfigDir, "Laplace_1.csv"), []byte(laplaceTable), 0o600))

	cfg, err := pinn.LoadConfig(opts.ConfigDir, "Laplace", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 1}, cfg.Layers())

	results, err := pinn.RunConfig(context.Background(), cfg, opts)
	require.NoError(t, err)
	require.Len(t, results, 1)

	var state *pinn.State = results[0].State
	assert.Equal(t, 3, state.History.Len())
	for _, r := range state.History.Records {
		assert.Positive(t, r.Regularization)
	}
	assert.FileExists(t, filepath.Join(opts.ResultsDir, "Laplace_1", "Loss", "Laplace_1_loss_PINN.csv"))
}

func TestRun_Errors(t *testing.T) {
	opts := options(t)
	bad := laplaceTable + "model,PINN MLP-Mixer\n"
	require.NoError(t, os.WriteFile(filepath.Join(opts.ConfigDir, "Laplace_2.csv"), []byte(bad), 0o600))

	_, err := pinn.Run(context.Background(), "Laplace", 2, opts)
	assert.ErrorIs(t, err, pinn.ErrUnknownModel)
	var cfgErr *pinn.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "model", cfgErr.Key)
}

func TestLoadPlan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 7\nruns:\n  - problem: Laplace\n    run: 1\n"), 0o600))

	plan, err := pinn.LoadPlan(path)
	require.NoError(t, err)
	require.NotNil(t, plan.Seed)
	assert.Equal(t, int64(7), *plan.Seed)
	assert.NotEmpty(t, pinn.Banner())
}
