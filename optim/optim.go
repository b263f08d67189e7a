// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the optimizers and learning-rate schedules used
// to train Psi-NN networks.
package optim

import (
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/optim"
	"github.com/ZitiLiu/Psi-NN/tensor"
)

// Optimizer is the common interface of all optimizers.
type Optimizer = optim.Optimizer

// StatefulOptimizer is an optimizer whose state can be saved.
type StatefulOptimizer = optim.StatefulOptimizer

// SGD is stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig configures SGD.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// Adam is the Adam optimizer with bias correction.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig configures Adam.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}

// New creates the optimizer registered under name ("Adam" or "SGD").
func New[B tensor.Backend](name string, params []*nn.Parameter[B], lr float64, backend B) (StatefulOptimizer, error) {
	return optim.New(name, params, lr, backend)
}

// MultiStepLR decays the learning rate by gamma at each milestone.
type MultiStepLR = optim.MultiStepLR

// NewMultiStepLR creates a multi-step schedule.
func NewMultiStepLR(milestones []int, gamma float64) *MultiStepLR {
	return optim.NewMultiStepLR(milestones, gamma)
}

// Schedule binds a scheduler to an optimizer.
type Schedule = optim.Schedule

// NewSchedule starts a schedule at the optimizer's learning rate.
func NewSchedule(scheduler optim.LRScheduler, optimizer Optimizer) *Schedule {
	return optim.NewSchedule(scheduler, optimizer)
}
