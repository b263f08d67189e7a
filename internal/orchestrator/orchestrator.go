// Package orchestrator runs the per-model training workflow of a
// (problem, run) pair and aggregates the models for comparison.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"

	"github.com/ZitiLiu/Psi-NN/internal/autodiff"
	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/recorder"
	"github.com/ZitiLiu/Psi-NN/internal/residual"
	"github.com/ZitiLiu/Psi-NN/internal/sampler"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
	"github.com/ZitiLiu/Psi-NN/internal/trainer"
)

// Default directories and seed.
const (
	DefaultConfigDir  = "Config"
	DefaultDataDir    = "Database"
	DefaultResultsDir = "Results"
	DefaultSeed       = 1234
)

// Backend is the differentiable CPU backend every model trains on.
type Backend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

// Options configures a run.
type Options struct {
	ConfigDir  string
	DataDir    string
	ResultsDir string
	Seed       int64

	// Out receives the console progress. Defaults to os.Stdout.
	Out io.Writer
	// Logger receives warnings. Defaults to a logger on os.Stderr.
	Logger *log.Logger
}

// DefaultOptions returns the conventional directory layout.
func DefaultOptions() Options {
	return Options{
		ConfigDir:  DefaultConfigDir,
		DataDir:    DefaultDataDir,
		ResultsDir: DefaultResultsDir,
		Seed:       DefaultSeed,
	}
}

func (o Options) withDefaults() Options {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stderr, "psinn: ", log.LstdFlags)
	}
	return o
}

// Result describes one trained model.
type Result struct {
	Model nn.Kind
	RunID uuid.UUID
	Dir   string
	State *trainer.State
}

// Banner describes the host CPU.
func Banner() string {
	return fmt.Sprintf("CPU: %s (%d cores, %d threads)",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores)
}

// Run loads Config/<problem>_<run>.csv and trains every model it names.
func Run(ctx context.Context, problem string, run int, opts Options) ([]Result, error) {
	cfg, err := config.Load(opts.ConfigDir, problem, run)
	if err != nil {
		return nil, err
	}
	return RunConfig(ctx, cfg, opts)
}

// RunConfig trains every model of cfg in order. Model names are resolved
// before any training starts.
func RunConfig(ctx context.Context, cfg *config.Config, opts Options) ([]Result, error) {
	opts = opts.withDefaults()

	kinds, err := cfg.ResolveModels()
	if err != nil {
		return nil, err
	}

	runID := uuid.New()
	cmp := recorder.NewComparison()
	results := make([]Result, 0, len(kinds))
	for _, kind := range kinds {
		fmt.Fprintf(opts.Out, "\nRunning Model: %s\n\n", kind)

		res, err := runModel(ctx, cfg, kind, runID, opts)
		if err != nil {
			return results, fmt.Errorf("%s model %s: %w", cfg.Name(), kind, err)
		}
		results = append(results, res)
		cmp.Add(string(kind), res.State)
	}

	if cmp.Len() > 1 {
		if err := cmp.Write(recorder.RunDir(opts.ResultsDir, cfg), cfg); err != nil {
			return results, err
		}
	}
	return results, nil
}

// RunPlan trains every (problem, run) pair of a study plan in sequence.
// Directories and seed set by the plan override opts.
func RunPlan(ctx context.Context, plan *config.Plan, opts Options) ([][]Result, error) {
	if plan.ConfigDir != "" {
		opts.ConfigDir = plan.ConfigDir
	}
	if plan.DataDir != "" {
		opts.DataDir = plan.DataDir
	}
	if plan.ResultsDir != "" {
		opts.ResultsDir = plan.ResultsDir
	}
	if plan.Seed != nil {
		opts.Seed = *plan.Seed
	}

	all := make([][]Result, 0, len(plan.Runs))
	for _, r := range plan.Runs {
		results, err := Run(ctx, r.Problem, r.Run, opts)
		if err != nil {
			return all, err
		}
		all = append(all, results)
	}
	return all, nil
}

func runModel(ctx context.Context, cfg *config.Config, kind nn.Kind, runID uuid.UUID, opts Options) (Result, error) {
	backend := autodiff.New(cpu.New())
	rng := rand.New(rand.NewSource(opts.Seed))

	teacher, err := nn.Build(kind, cfg.Layers(), rng, backend)
	if err != nil {
		return Result{}, err
	}
	nets := recorder.Networks[Backend]{Teacher: teacher, Kind: kind}
	if cfg.Problem.Monitored() {
		nets.Theta = nn.NewParameter(residual.ThetaName, tensor.Zeros(tensor.Shape{cfg.ParaCtrlNum()}, backend))
	}
	if cfg.LoadState {
		if err := recorder.LoadTeacher(opts.ResultsDir, cfg, backend, nets); err != nil {
			return Result{}, err
		}
	}
	if cfg.Problem.Distill {
		nets.Student = nn.NewMLP(cfg.StudentLayers(), rng, backend)
	}

	batch := sampler.New(cfg)
	eval, err := residual.New(cfg, batch, backend, residual.Options[Backend]{
		DataDir: opts.DataDir,
		Theta:   nets.Theta,
		Logger:  opts.Logger,
	})
	if err != nil {
		return Result{}, err
	}

	rec, err := recorder.New(opts.ResultsDir, cfg, runID, nets)
	if err != nil {
		return Result{}, err
	}
	tr, err := trainer.New(cfg, eval, backend, nets.Teacher, nets.Student, trainer.Options{
		Out:          opts.Out,
		Checkpointer: rec,
	})
	if err != nil {
		return Result{}, err
	}
	var studentOpt nn.OptimizerState
	if opt := tr.StudentOptimizer(); opt != nil {
		studentOpt = opt
	}
	rec.Bind(tr.Optimizer(), studentOpt)

	state, err := tr.Run(ctx)
	res := Result{Model: kind, RunID: runID, Dir: rec.Dir(), State: state}
	if err != nil {
		return res, err
	}

	if err := save(rec, state); err != nil {
		return res, err
	}
	if batch.Sweeping() {
		return res, nil
	}
	return res, writeFields(rec, eval, nets, cfg)
}

func save(rec *recorder.Recorder[Backend], state *trainer.State) error {
	if err := rec.SaveModels(state); err != nil {
		return err
	}
	if err := rec.CopyConfig(); err != nil {
		return err
	}
	if err := rec.WriteClock(state); err != nil {
		return err
	}
	return rec.WriteHistory(state)
}

func writeFields(rec *recorder.Recorder[Backend], eval *residual.Evaluator[Backend], nets recorder.Networks[Backend], cfg *config.Config) error {
	grid := sampler.FigureGrid(cfg)
	if err := rec.WriteField(trainer.Teacher, grid, eval.Field(nets.Teacher, grid)); err != nil {
		return err
	}
	if nets.Student == nil {
		return nil
	}
	return rec.WriteField(trainer.Student, grid, eval.Field(nets.Student, grid))
}
