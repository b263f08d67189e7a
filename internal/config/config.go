// Package config loads per-problem training configurations.
//
// A configuration is a headerless two-column CSV table stored as
// Config/<problem>_<run>.csv. Values are typed from their key names (see
// KindOf); lists use spaces (model names), commas (numbers) and semicolons
// (groups of control parameters).
package config

import (
	"fmt"
	"math"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ZitiLiu/Psi-NN/internal/nn"
)

// Defaults for optional keys.
const (
	DefaultGamma        = 0.5
	DefaultTrainRatio   = 0.5
	DefaultPaceGap      = 100
	DefaultLearningRate = 1e-4
	PoissonLearningRate = 1e-3
	DefaultOptimizer    = "Adam"

	DefaultRegularizationNorm   = "l2"
	DefaultRegularizationSubset = "all"
	DefaultRegularizationLambda = 1e-3
)

// Regularization norms and teacher parameter subsets accepted by
// regularization_norm and regularization_subset.
var (
	RegularizationNorms   = []string{"l2", "l1", "growl"}
	RegularizationSubsets = []string{"all", "weight"}
)

// Config is the immutable configuration of one (problem, run) pair.
type Config struct {
	Problem Problem
	Run     int
	Path    string // Source table, copied next to the results
	Table   *Table

	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64

	CoordNum  int // Number of spatial coordinates (2 or 3)
	OutputNum int
	InputNum  int // CoordNum plus the control parameters when ParaCtrlAdd

	GridNodeNum   int
	BunNodeNum    int
	FigureNodeNum int
	NodeNum       int // Width multiplier for hidden layer groups

	HiddenLayersGroup        []float64
	HiddenLayersGroupStudent []float64

	ParaCtrl    [][]float64 // Control parameter groups
	ParaCtrlAdd bool        // Append control parameters to the network input

	StepNum    int // Number of teacher step groups
	TrainSteps int // Teacher inner steps per group

	Milestones   []int
	Gamma        float64
	LearningRate float64
	Optimizer    string // "Adam" or "SGD"

	Regularization       bool
	RegularizationNorm   string  // "l2", "l1" or "growl"
	RegularizationSubset string  // Teacher parameters penalized: "all" or "weight"
	RegularizationLambda float64 // Penalty weight of the l1 and l2 norms
	DataSerials          []string

	PaceRecordSkip  []int
	PaceRecordGap   []int
	PaceRecordState bool

	LoadState      bool
	LoadStudyState bool
	TrainRatio     float64

	Models []string
}

// FileName returns the configuration file name for a problem and run.
func FileName(problem string, run int) string {
	return fmt.Sprintf("%s_%d.csv", problem, run)
}

// Load reads <dir>/<problem>_<run>.csv.
func Load(dir, problem string, run int) (*Config, error) {
	t, err := ReadTable(filepath.Join(dir, FileName(problem, run)))
	if err != nil {
		return nil, err
	}
	return FromTable(problem, run, t)
}

// FromTable builds a configuration from a parsed table.
//
//nolint:gocognit,gocyclo,cyclop,funlen // one block per configuration key
func FromTable(problem string, run int, t *Table) (*Config, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	c := &Config{
		Problem:    ParseProblem(problem),
		Run:        run,
		Path:       t.Path,
		Table:      t,
		Gamma:      DefaultGamma,
		TrainRatio: DefaultTrainRatio,
		Optimizer:  DefaultOptimizer,

		RegularizationNorm:   DefaultRegularizationNorm,
		RegularizationSubset: DefaultRegularizationSubset,
		RegularizationLambda: DefaultRegularizationLambda,
	}

	var err error
	get := func(dst *float64, key string) {
		if err == nil {
			*dst, err = t.Float(key)
		}
	}
	geti := func(dst *int, key string) {
		if err == nil {
			*dst, err = t.Int(key)
		}
	}
	getb := func(dst *bool, key string) {
		var v int
		geti(&v, key)
		*dst = v != 0
	}

	get(&c.XMin, "x_min")
	get(&c.XMax, "x_max")
	get(&c.YMin, "y_min")
	get(&c.YMax, "y_max")
	if t.Has("z_min") {
		get(&c.ZMin, "z_min")
	}
	if t.Has("z_max") {
		get(&c.ZMax, "z_max")
	}

	if t.Has("coord_num") {
		geti(&c.CoordNum, "coord_num")
	} else {
		geti(&c.CoordNum, "input_num")
	}
	geti(&c.OutputNum, "output_num")
	geti(&c.NodeNum, "node_num")
	geti(&c.GridNodeNum, "grid_node_num")
	geti(&c.BunNodeNum, "bun_node_num")
	geti(&c.FigureNodeNum, "figure_node_num")
	getb(&c.PaceRecordState, "pace_record_state")
	getb(&c.Regularization, "regularization_state")
	getb(&c.LoadState, "load_state")
	if t.Has("load_study_state") {
		getb(&c.LoadStudyState, "load_study_state")
	}
	if t.Has("para_ctrl_add") {
		getb(&c.ParaCtrlAdd, "para_ctrl_add")
	}
	if err != nil {
		return nil, err
	}

	if c.ParaCtrl, err = t.Groups("para_ctrl"); err != nil {
		return nil, err
	}
	if c.HiddenLayersGroup, err = t.Floats("hidden_layers_group"); err != nil {
		return nil, err
	}
	if c.Problem.Distill {
		if c.HiddenLayersGroupStudent, err = t.Floats("hidden_layers_group_student"); err != nil {
			return nil, err
		}
	}

	models, err := t.String("model")
	if err != nil {
		return nil, err
	}
	c.Models = strings.Fields(models)
	if len(c.Models) == 0 {
		return nil, t.errorf("model", models, ErrInvalidValue)
	}

	serials, err := t.String("data_serial")
	if err != nil {
		return nil, err
	}
	for _, s := range strings.Split(serials, ",") {
		c.DataSerials = append(c.DataSerials, strings.TrimSpace(s))
	}

	if err := c.stepBudget(t); err != nil {
		return nil, err
	}

	if t.Has("milestone") {
		if c.Milestones, err = t.Ints("milestone"); err != nil {
			return nil, err
		}
	}
	if t.Has("gamma") {
		if c.Gamma, err = t.Float("gamma"); err != nil {
			return nil, err
		}
	}
	if t.Has("train_ratio") {
		if c.TrainRatio, err = t.Float("train_ratio"); err != nil {
			return nil, err
		}
	}

	c.PaceRecordSkip = []int{0}
	c.PaceRecordGap = []int{DefaultPaceGap}
	if t.Has("pace_record_skip") {
		if c.PaceRecordSkip, err = t.Ints("pace_record_skip"); err != nil {
			return nil, err
		}
	}
	if t.Has("pace_record_gap") {
		if c.PaceRecordGap, err = t.Ints("pace_record_gap"); err != nil {
			return nil, err
		}
	}

	c.LearningRate = DefaultLearningRate
	if c.Problem.Family == FamilyPoisson {
		c.LearningRate = PoissonLearningRate
	}
	if t.Has("learning_rate") {
		if c.LearningRate, err = t.Float("learning_rate"); err != nil {
			return nil, err
		}
	}
	if t.Has("optimizer") {
		if c.Optimizer, err = t.String("optimizer"); err != nil {
			return nil, err
		}
	}
	if err := c.regularizer(t); err != nil {
		return nil, err
	}

	c.InputNum = c.CoordNum
	if c.ParaCtrlAdd {
		c.InputNum += len(c.ParaCtrl)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// stepBudget applies the group/step rule: step_num below 10 is the number
// of groups, otherwise a single group runs. Inner steps come from
// train_steps when step_num < 1000, equal step_num when it exceeds 10000,
// and are 100000 in between.
func (c *Config) stepBudget(t *Table) error {
	stepNum, err := t.Int("step_num")
	if err != nil {
		return err
	}

	c.StepNum = 1
	if stepNum < 10 {
		c.StepNum = stepNum
	}

	switch {
	case stepNum > 10000:
		c.TrainSteps = stepNum
	case stepNum < 1000:
		if c.TrainSteps, err = t.Int("train_steps"); err != nil {
			return err
		}
	default:
		c.TrainSteps = 100000
	}
	return nil
}

// regularizer reads the optional penalty keys. Names are case-insensitive.
func (c *Config) regularizer(t *Table) error {
	var err error
	if t.Has("regularization_norm") {
		if c.RegularizationNorm, err = t.String("regularization_norm"); err != nil {
			return err
		}
		c.RegularizationNorm = strings.ToLower(strings.TrimSpace(c.RegularizationNorm))
	}
	if t.Has("regularization_subset") {
		if c.RegularizationSubset, err = t.String("regularization_subset"); err != nil {
			return err
		}
		c.RegularizationSubset = strings.ToLower(strings.TrimSpace(c.RegularizationSubset))
	}
	if t.Has("regularization_lambda") {
		if c.RegularizationLambda, err = t.Float("regularization_lambda"); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // flat list of independent checks
func (c *Config) validate() error {
	type axis struct {
		name   string
		lo, hi float64
	}
	axes := []axis{{"x", c.XMin, c.XMax}, {"y", c.YMin, c.YMax}}
	if c.CoordNum == 3 {
		axes = append(axes, axis{"z", c.ZMin, c.ZMax})
	}
	for _, a := range axes {
		if !(a.lo < a.hi) || math.IsInf(a.lo, 0) || math.IsInf(a.hi, 0) {
			return &ConfigError{Path: c.Path, Key: a.name + "_min", Value: fmt.Sprintf("%g >= %g", a.lo, a.hi), Wrapped: ErrInvalidBounds}
		}
	}

	positive := []struct {
		key string
		v   int
	}{
		{"coord_num", c.CoordNum},
		{"output_num", c.OutputNum},
		{"node_num", c.NodeNum},
		{"grid_node_num", c.GridNodeNum},
		{"bun_node_num", c.BunNodeNum},
		{"figure_node_num", c.FigureNodeNum},
		{"step_num", c.StepNum},
		{"train_steps", c.TrainSteps},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return &ConfigError{Path: c.Path, Key: p.key, Value: fmt.Sprint(p.v), Wrapped: ErrInvalidValue}
		}
	}
	if c.CoordNum != 2 && c.CoordNum != 3 {
		return &ConfigError{Path: c.Path, Key: "coord_num", Value: fmt.Sprint(c.CoordNum), Wrapped: ErrInvalidValue}
	}
	if len(c.PaceRecordSkip) != len(c.PaceRecordGap) {
		return &ConfigError{Path: c.Path, Key: "pace_record_gap",
			Value:   fmt.Sprintf("%d skips, %d gaps", len(c.PaceRecordSkip), len(c.PaceRecordGap)),
			Wrapped: ErrInvalidValue}
	}
	for _, g := range c.PaceRecordGap {
		if g <= 0 {
			return &ConfigError{Path: c.Path, Key: "pace_record_gap", Value: fmt.Sprint(g), Wrapped: ErrInvalidValue}
		}
	}
	if !(c.Gamma > 0) {
		return &ConfigError{Path: c.Path, Key: "gamma", Value: fmt.Sprint(c.Gamma), Wrapped: ErrInvalidValue}
	}
	if c.TrainRatio < 0 {
		return &ConfigError{Path: c.Path, Key: "train_ratio", Value: fmt.Sprint(c.TrainRatio), Wrapped: ErrInvalidValue}
	}
	if c.Optimizer != "Adam" && c.Optimizer != "SGD" {
		return &ConfigError{Path: c.Path, Key: "optimizer", Value: c.Optimizer, Wrapped: ErrInvalidValue}
	}
	if !slices.Contains(RegularizationNorms, c.RegularizationNorm) {
		return &ConfigError{Path: c.Path, Key: "regularization_norm", Value: c.RegularizationNorm, Wrapped: ErrInvalidValue}
	}
	if !slices.Contains(RegularizationSubsets, c.RegularizationSubset) {
		return &ConfigError{Path: c.Path, Key: "regularization_subset", Value: c.RegularizationSubset, Wrapped: ErrInvalidValue}
	}
	if !(c.RegularizationLambda > 0) || math.IsInf(c.RegularizationLambda, 0) {
		return &ConfigError{Path: c.Path, Key: "regularization_lambda", Value: fmt.Sprint(c.RegularizationLambda), Wrapped: ErrInvalidValue}
	}
	for _, layers := range [][]int{c.Layers(), c.StudentLayers()} {
		for _, w := range layers {
			if w <= 0 {
				return &ConfigError{Path: c.Path, Key: "hidden_layers_group", Value: fmt.Sprint(layers), Wrapped: ErrInvalidValue}
			}
		}
	}
	return nil
}

// ResolveModels maps every requested model name to a registered network
// kind. Any unknown name fails with ErrUnknownModel. Divergence-free
// models predict a planar velocity, so they need two outputs.
func (c *Config) ResolveModels() ([]nn.Kind, error) {
	kinds := make([]nn.Kind, 0, len(c.Models))
	for _, name := range c.Models {
		kind, ok := nn.Lookup(name)
		if !ok {
			return nil, &ConfigError{Path: c.Path, Key: "model", Value: name,
				Wrapped: fmt.Errorf("%w (registered: %s)", ErrUnknownModel, strings.Join(nn.Kinds(), ", "))}
		}
		if kind == nn.KindDivFree && c.OutputNum != 2 {
			return nil, &ConfigError{Path: c.Path, Key: "output_num", Value: fmt.Sprint(c.OutputNum),
				Wrapped: fmt.Errorf("%w: %s predicts 2 velocity components", ErrInvalidValue, kind)}
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// Layers returns the teacher layer widths:
// [input_num, hidden_layers_group·node_num..., output_num].
func (c *Config) Layers() []int {
	return c.layers(c.HiddenLayersGroup)
}

// StudentLayers returns the student layer widths, or nil when not
// distilling.
func (c *Config) StudentLayers() []int {
	if !c.Problem.Distill {
		return nil
	}
	return c.layers(c.HiddenLayersGroupStudent)
}

func (c *Config) layers(groups []float64) []int {
	out := make([]int, 0, len(groups)+2)
	out = append(out, c.InputNum)
	for _, g := range groups {
		out = append(out, int(g*float64(c.NodeNum)))
	}
	return append(out, c.OutputNum)
}

// StudentSteps returns the student inner steps per group.
func (c *Config) StudentSteps() int {
	return int(float64(c.TrainSteps) * c.TrainRatio)
}

// ParaCtrlNum returns the number of control parameter groups, which is
// also the number of unknown coefficients of an inverse problem.
func (c *Config) ParaCtrlNum() int {
	return len(c.ParaCtrl)
}

// Name returns "<problem>_<run>".
func (c *Config) Name() string {
	return fmt.Sprintf("%s_%d", c.Problem.Name, c.Run)
}
