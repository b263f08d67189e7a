// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package onnx exports trained Psi-NN networks to ONNX and loads them
// back for inference.
//
// Exported graphs use MatMul, Add and Tanh nodes with float64
// initializers; the network kind and layer widths are stored in the
// model metadata so that a file can be turned back into a trainable
// network.
//
// Example:
//
//	err := onnx.ExportFile("Burgers_1_PINN.onnx", net, map[string]string{"problem": "Burgers"})
//	model, err := onnx.Load("Burgers_1_PINN.onnx")
//	u, err := model.Forward(points, cpu.New())
package onnx

import (
	"errors"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	internalonnx "github.com/ZitiLiu/Psi-NN/internal/onnx"
	"github.com/ZitiLiu/Psi-NN/tensor"
)

// Model is a loaded ONNX model.
type Model interface {
	// Forward evaluates the graph on a single [N, in] input.
	Forward(input *tensor.RawTensor, backend tensor.Backend) (*tensor.RawTensor, error)

	// InputNames returns the names of model inputs.
	InputNames() []string

	// OutputNames returns the names of model outputs.
	OutputNames() []string

	// OpsetVersion returns the default-domain opset version.
	OpsetVersion() int64

	// Metadata returns the metadata_props of the model.
	Metadata() map[string]string
}

var _ Model = (*internalonnx.Model)(nil)

var errUnsupportedModel = errors.New("onnx: model was not loaded by Load")

// Load parses an ONNX file.
func Load(path string) (Model, error) {
	return internalonnx.Load(path)
}

// ExportFile writes net as an ONNX model. metadata is stored in the
// model's metadata_props.
func ExportFile[B tensor.Backend](path string, net nn.Network[B], metadata map[string]string) error {
	return internalonnx.ExportFile(path, net, metadata)
}

// ToNetwork rebuilds a trainable network from a model exported by
// ExportFile.
func ToNetwork[B tensor.Backend](m Model, backend B) (nn.Network[B], error) {
	im, ok := m.(*internalonnx.Model)
	if !ok {
		return nil, errUnsupportedModel
	}
	return internalonnx.ToNetwork(im, backend)
}
