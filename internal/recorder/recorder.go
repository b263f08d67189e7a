// Package recorder writes the artifacts of a training run: weights,
// loss and coefficient tables, the clock log, field tables and
// multi-model comparison tables.
//
// Everything for one (problem, run) pair lives under
// <results>/<problem>_<run>/.
package recorder

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/onnx"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
	"github.com/ZitiLiu/Psi-NN/internal/trainer"
)

// Artifact subdirectories.
const (
	ModelsDir     = "Models"
	LossDir       = "Loss"
	ParametersDir = "Parameters"
	FieldsDir     = "Fields"

	ClockFile = "Clock time.csv"
)

// Checkpoint metadata keys.
const (
	MetaProblem   = "problem"
	MetaRun       = "run"
	MetaModel     = "model"
	MetaMode      = "mode"
	MetaRole      = "role"
	MetaIteration = "iteration"
	MetaRunID     = "run_id"
)

// Networks are the trained objects of one model.
type Networks[B tensor.Backend] struct {
	Teacher nn.Network[B]
	Student nn.Network[B]    // nil unless distilling
	Theta   *nn.Parameter[B] // nil unless monitored
	Kind    nn.Kind          // teacher architecture
}

// Recorder writes the artifacts of one model of a run. It implements
// trainer.Checkpointer.
type Recorder[B tensor.Backend] struct {
	cfg   *config.Config
	dir   string
	runID uuid.UUID
	nets  Networks[B]

	teacherOpt nn.OptimizerState
	studentOpt nn.OptimizerState

	priorParams [][]string // coefficient rows of the run being resumed
}

// New creates the run directory under root and returns a recorder for
// one model. When resuming (load_state) the coefficient table already on
// disk is read once so that later writes extend it.
func New[B tensor.Backend](root string, cfg *config.Config, runID uuid.UUID, nets Networks[B]) (*Recorder[B], error) {
	dir := RunDir(root, cfg)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	r := &Recorder[B]{cfg: cfg, dir: dir, runID: runID, nets: nets}
	if cfg.LoadState && cfg.Problem.Monitored() {
		prior, err := readPrior(r.ParametersPath())
		if err != nil {
			return nil, err
		}
		r.priorParams = prior
	}
	return r, nil
}

// RunDir returns <root>/<problem>_<run>.
func RunDir(root string, cfg *config.Config) string {
	return filepath.Join(root, cfg.Name())
}

// ModelPath returns the .born path of a network. A positive step names an
// intermediate checkpoint.
func ModelPath(dir string, cfg *config.Config, kind nn.Kind, role trainer.Role, step int) string {
	name := fmt.Sprintf("%s_%s%s", cfg.Name(), kind, roleSuffix(role))
	if step > 0 {
		name += "_step_" + strconv.Itoa(step)
	}
	return filepath.Join(dir, ModelsDir, name+".born")
}

// Dir returns the run directory.
func (r *Recorder[B]) Dir() string {
	return r.dir
}

// RunID returns the identifier stamped into every artifact of the run.
func (r *Recorder[B]) RunID() uuid.UUID {
	return r.runID
}

// Bind attaches the optimizers whose state is saved with the weights.
// Either may be nil.
func (r *Recorder[B]) Bind(teacher, student nn.OptimizerState) {
	r.teacherOpt = teacher
	r.studentOpt = student
}

// Checkpoint saves intermediate weights at a reporting iteration and
// rewrites the history tables of role, so an interrupted run keeps its
// trajectory up to the last checkpoint. The clock log is only written at
// the end of a run.
func (r *Recorder[B]) Checkpoint(role trainer.Role, iter int, state *trainer.State) error {
	if err := r.save(role, iter, iter, lastLoss(role, state)); err != nil {
		return err
	}
	return r.writeHistory(role, state)
}

// SaveModels writes the final weights of every trained network as .born
// and .onnx files.
func (r *Recorder[B]) SaveModels(state *trainer.State) error {
	if err := r.save(trainer.Teacher, 0, state.TeacherIter, lastLoss(trainer.Teacher, state)); err != nil {
		return err
	}
	if r.nets.Student != nil {
		if err := r.save(trainer.Student, 0, state.StudentIter, lastLoss(trainer.Student, state)); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder[B]) save(role trainer.Role, step, iter int, loss float64) error {
	net, kind, opt := r.nets.Teacher, r.kind(role), r.teacherOpt
	var extra []*nn.Parameter[B]
	if role == trainer.Student {
		net, opt = r.nets.Student, r.studentOpt
	} else if r.nets.Theta != nil {
		extra = append(extra, r.nets.Theta)
	}

	path := ModelPath(r.dir, r.cfg, kind, role, step)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}

	meta := r.metadata(kind, role, iter)
	ckpt := &nn.Checkpoint[B]{
		Model:     net,
		Extra:     extra,
		Optimizer: opt,
		Iteration: iter,
		Loss:      loss,
		Metadata:  meta,
	}
	if err := ckpt.Save(path); err != nil {
		return fmt.Errorf("recorder: save %s: %w", path, err)
	}
	if step > 0 {
		return nil
	}

	onnxPath := path[:len(path)-len(".born")] + ".onnx"
	if err := onnx.ExportFile(onnxPath, net, meta); err != nil {
		return fmt.Errorf("recorder: export %s: %w", onnxPath, err)
	}
	return nil
}

func (r *Recorder[B]) metadata(kind nn.Kind, role trainer.Role, iter int) map[string]string {
	return map[string]string{
		MetaProblem:   r.cfg.Problem.Name,
		MetaRun:       strconv.Itoa(r.cfg.Run),
		MetaModel:     string(kind),
		MetaMode:      r.cfg.Problem.Mode.String(),
		MetaRole:      role.String(),
		MetaIteration: strconv.Itoa(iter),
		MetaRunID:     r.runID.String(),
	}
}

// LoadTeacher restores the final teacher weights (and unknown
// coefficients) saved by an earlier run of the same model.
func LoadTeacher[B tensor.Backend](root string, cfg *config.Config, backend B, nets Networks[B]) error {
	path := ModelPath(RunDir(root, cfg), cfg, nets.Kind, trainer.Teacher, 0)
	var extra []*nn.Parameter[B]
	if nets.Theta != nil {
		extra = append(extra, nets.Theta)
	}
	if _, err := nn.LoadCheckpoint(path, backend, nets.Teacher, extra, nil); err != nil {
		return fmt.Errorf("recorder: load %s: %w", path, err)
	}
	return nil
}

// kind names the architecture of a role; students are always plain PINNs.
func (r *Recorder[B]) kind(role trainer.Role) nn.Kind {
	if role == trainer.Student {
		return nn.KindPINN
	}
	return r.nets.Kind
}

func roleSuffix(role trainer.Role) string {
	if role == trainer.Student {
		return "_student"
	}
	return ""
}

func lastLoss(role trainer.Role, state *trainer.State) float64 {
	if role == trainer.Student {
		if n := len(state.Student.Records); n > 0 {
			return state.Student.Records[n-1].Loss
		}
		return 0
	}
	last, _ := state.Last()
	return last.Loss
}
