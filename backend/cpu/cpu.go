// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure-Go float64 compute backend.
package cpu

import (
	internalcpu "github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/tensor"
)

// Backend is the CPU backend with NumPy-style broadcasting.
type Backend = internalcpu.CPUBackend

var _ tensor.Backend = (*Backend)(nil)

// New creates a CPU backend.
func New() *Backend {
	return internalcpu.New()
}
