package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Plan is a study plan: several (problem, run) pairs trained in sequence
// with shared directories.
//
// Example plan.yaml:
//
//	config: Config
//	data: Database
//	results: Results
//	seed: 1234
//	runs:
//	  - problem: Burgers_inv
//	    run: 1
//	  - problem: Laplace
//	    run: 2
type Plan struct {
	ConfigDir  string    `yaml:"config"`
	DataDir    string    `yaml:"data"`
	ResultsDir string    `yaml:"results"`
	Seed       *int64    `yaml:"seed"`
	Runs       []PlanRun `yaml:"runs"`
}

// PlanRun names one configuration table.
type PlanRun struct {
	Problem string `yaml:"problem"`
	Run     int    `yaml:"run"`
}

// LoadPlan reads a YAML study plan. Unknown fields are rejected.
func LoadPlan(path string) (*Plan, error) {
	//nolint:gosec // G304: plan path is chosen by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}

	p, err := ParsePlan(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParsePlan decodes a YAML study plan.
func ParsePlan(data []byte) (*Plan, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p Plan
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	if len(p.Runs) == 0 {
		return nil, &ConfigError{Key: "runs", Wrapped: ErrMissingKey}
	}
	for i, r := range p.Runs {
		if r.Problem == "" {
			return nil, &ConfigError{Key: fmt.Sprintf("runs[%d].problem", i), Wrapped: ErrMissingKey}
		}
	}
	return &p, nil
}
