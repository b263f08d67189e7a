// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package pinn is the public entry point of Psi-NN: it trains
// physics-informed neural networks described by configuration tables.
//
// A configuration table Config/<problem>_<run>.csv names the problem
// domain, the network widths, the step budget and the models to train.
// Run trains every model it names in sequence and writes weights, loss
// tables and fields under Results/<problem>_<run>/.
//
// Example:
//
//	opts := pinn.DefaultOptions()
//	results, err := pinn.Run(ctx, "Burgers_inv", 1, opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(results[0].State.History.Len())
package pinn

import (
	"context"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/orchestrator"
	"github.com/ZitiLiu/Psi-NN/internal/residual"
	"github.com/ZitiLiu/Psi-NN/internal/trainer"
)

// Version is the release of the module.
const Version = "v0.1.0"

// Config is the immutable configuration of one (problem, run) pair.
type Config = config.Config

// Plan is a study plan of several (problem, run) pairs.
type Plan = config.Plan

// Options configures the directories, seed and output of a run.
type Options = orchestrator.Options

// Result describes one trained model.
type Result = orchestrator.Result

// State is the training state of one model.
type State = trainer.State

// Errors a run can fail with.
var (
	ErrUnknownModel = config.ErrUnknownModel
	ErrMissingKey   = config.ErrMissingKey
	ErrInvalidValue = config.ErrInvalidValue
	ErrNonFinite    = trainer.ErrNonFinite
	ErrEmptyDataset = residual.ErrEmptyDataset
)

// ConfigError is a configuration failure.
type ConfigError = config.ConfigError

// StepError is a failure at one training step.
type StepError = trainer.StepError

// ShapeMismatchError is a dataset row of the wrong width.
type ShapeMismatchError = residual.ShapeMismatchError

// DefaultOptions returns the conventional Config/, Database/ and Results/
// layout with seed 1234.
func DefaultOptions() Options {
	return orchestrator.DefaultOptions()
}

// LoadConfig reads Config/<problem>_<run>.csv from dir.
func LoadConfig(dir, problem string, run int) (*Config, error) {
	return config.Load(dir, problem, run)
}

// LoadPlan reads a YAML study plan.
func LoadPlan(path string) (*Plan, error) {
	return config.LoadPlan(path)
}

// Run trains every model of one configuration table.
func Run(ctx context.Context, problem string, run int, opts Options) ([]Result, error) {
	return orchestrator.Run(ctx, problem, run, opts)
}

// RunConfig trains every model of an already loaded configuration.
func RunConfig(ctx context.Context, cfg *Config, opts Options) ([]Result, error) {
	return orchestrator.RunConfig(ctx, cfg, opts)
}

// RunPlan trains every (problem, run) pair of a study plan.
func RunPlan(ctx context.Context, plan *Plan, opts Options) ([][]Result, error) {
	return orchestrator.RunPlan(ctx, plan, opts)
}

// Banner describes the host CPU.
func Banner() string {
	return orchestrator.Banner()
}
