// Package optim implements the optimization algorithms used to train
// surrogate networks and inverse-problem coefficients.
//
// This package provides:
//   - Optimizer interface: Base interface for all optimizers
//   - SGD: Stochastic Gradient Descent with momentum
//   - Adam: Adaptive Moment Estimation
//   - MultiStepLR: step decay of the learning rate at fixed milestones
//
// Example usage:
//
//	optimizer := optim.NewAdam(params, optim.AdamConfig{LR: 1e-4}, backend)
//	schedule := optim.NewSchedule(optim.NewMultiStepLR([]int{5000, 10000}, 0.5), optimizer)
//
//	for range steps {
//	    optimizer.ZeroGrad()
//	    loss := computeLoss()
//	    grads := autodiff.Backward(loss, backend)
//	    optimizer.Step(grads)
//	    schedule.Step()
//	}
package optim

import (
	"fmt"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
//
// All optimizers must implement:
//   - Step: Apply gradient updates to parameters
//   - ZeroGrad: Clear gradients before next iteration
//   - GetLR/SetLR: Read and adjust the learning rate (for scheduling)
type Optimizer interface {
	// Step applies gradient updates to all parameters.
	//
	// Takes a gradient map from Backward() and updates parameters in-place,
	// so the parameters keep their identity on the gradient tape.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float64

	// SetLR replaces the learning rate.
	SetLR(lr float64)
}

// Stateful optimizers can persist their moment estimates alongside the
// model weights in a checkpoint.
type Stateful interface {
	StateDict() map[string]*tensor.RawTensor
	LoadStateDict(stateDict map[string]*tensor.RawTensor) error
	Type() string
	Config() map[string]any
}

// StatefulOptimizer is an Optimizer whose state can be checkpointed.
type StatefulOptimizer interface {
	Optimizer
	Stateful
}

// New creates the optimizer registered under name ("Adam" or "SGD") with
// default hyperparameters and the given learning rate.
func New[B tensor.Backend](name string, params []*nn.Parameter[B], lr float64, backend B) (StatefulOptimizer, error) {
	switch name {
	case "Adam":
		return NewAdam(params, AdamConfig{LR: lr}, backend), nil
	case "SGD":
		return NewSGD(params, SGDConfig{LR: lr}, backend), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

// Config is the base configuration for all optimizers.
type Config struct {
	LR float64 // Learning rate
}

// getGradient safely retrieves gradient for a parameter.
//
// Returns nil if no gradient is found (parameter wasn't part of computation graph).
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
