// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package onnx_test

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/nn"
	"github.com/ZitiLiu/Psi-NN/onnx"
	"github.com/ZitiLiu/Psi-NN/tensor"
)

// mockModel implements onnx.Model for callers that only need the interface.
type mockModel struct {
	metadata map[string]string
}

func (m *mockModel) Forward(input *tensor.RawTensor, _ tensor.Backend) (*tensor.RawTensor, error) {
	return input, nil
}

func (m *mockModel) InputNames() []string        { return []string{"input"} }
func (m *mockModel) OutputNames() []string       { return []string{"output"} }
func (m *mockModel) OpsetVersion() int64         { return 13 }
func (m *mockModel) Metadata() map[string]string { return m.metadata }

func TestModelInterface(t *testing.T) {
	var m onnx.Model = &mockModel{metadata: map[string]string{"kind": "PINN"}}
	assert.Equal(t, "PINN", m.Metadata()["kind"])

	_, err := onnx.ToNetwork(m, cpu.New())
	assert.Error(t, err)
}

func TestExportLoad(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "Laplace_1_ResPINN.onnx")

	net := nn.NewResMLP([]int{2, 8, 8, 1}, rand.New(rand.NewSource(3)), backend)
	require.NoError(t, onnx.ExportFile(path, net, map[string]string{"problem": "Laplace"}))

	model, err := onnx.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"input"}, model.InputNames())
	assert.Equal(t, []string{"output"}, model.OutputNames())
	assert.Equal(t, int64(13), model.OpsetVersion())
	assert.Equal(t, "Laplace", model.Metadata()["problem"])
	assert.Equal(t, "ResPINN", model.Metadata()["kind"])

	in, err := tensor.FromSlice([]float64{0.1, 0.9, -0.4, 0.3}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	out, err := model.Forward(in.Raw(), backend)
	require.NoError(t, err)
	assert.InDeltaSlice(t, net.Forward(in).Data(), out.Data(), 1e-12)

	rebuilt, err := onnx.ToNetwork(model, backend)
	require.NoError(t, err)
	assert.Equal(t, nn.KindResPINN, rebuilt.Kind())
	assert.InDeltaSlice(t, net.Forward(in).Data(), rebuilt.Forward(in).Data(), 1e-12)
}
