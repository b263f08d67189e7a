// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor is the public tensor API of Psi-NN.
//
// Tensors hold float64 data in row-major order. A Tensor[B] binds a
// RawTensor to the backend that computes its operations; wrapping the
// backend with autodiff records those operations for backpropagation.
//
// Example:
//
//	backend := cpu.New()
//	x, _ := tensor.FromSlice([]float64{0, 0.5, 1}, tensor.Shape{3, 1}, backend)
//	y := x.Square().Mean()
package tensor

import (
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Shape represents the dimensions of a tensor.
type Shape = tensor.Shape

// Device represents the device where tensor data resides.
type Device = tensor.Device

// CPU is the only device tensors live on.
const CPU Device = tensor.CPU

// RawTensor is the backend-independent storage of a tensor.
type RawTensor = tensor.RawTensor

// Backend computes tensor operations.
type Backend = tensor.Backend

// Tensor is a tensor bound to a backend.
type Tensor[B Backend] = tensor.Tensor[B]

// New binds raw storage to a backend.
func New[B Backend](raw *RawTensor, b B) *Tensor[B] {
	return tensor.New(raw, b)
}

// FromSlice creates a tensor from row-major data.
func FromSlice[B Backend](data []float64, shape Shape, b B) (*Tensor[B], error) {
	return tensor.FromSlice(data, shape, b)
}

// RawFromSlice creates raw storage from row-major data.
func RawFromSlice(data []float64, shape Shape) (*RawTensor, error) {
	return tensor.RawFromSlice(data, shape, tensor.CPU)
}

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Zeros(shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Ones(shape, b)
}

// Full creates a tensor filled with value.
func Full[B Backend](shape Shape, value float64, b B) *Tensor[B] {
	return tensor.Full(shape, value, b)
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	return tensor.Linspace(start, stop, n)
}

// MSE returns the mean squared difference of a and b.
func MSE[B Backend](a, b *Tensor[B]) *Tensor[B] {
	return tensor.MSE(a, b)
}
