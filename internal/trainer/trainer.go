// Package trainer runs the alternating teacher/student optimization loop.
//
// Each of step_num groups runs train_steps teacher steps. When distilling,
// every group is followed by int(train_steps·train_ratio) student steps
// against the frozen teacher. All counters, histories and timings live in
// an explicit State owned by the Trainer.
package trainer

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/ZitiLiu/Psi-NN/internal/autodiff"
	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/optim"
	"github.com/ZitiLiu/Psi-NN/internal/residual"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Checkpointer saves intermediate weights at reporting iterations when
// pace_record_state is set.
type Checkpointer interface {
	Checkpoint(role Role, iter int, state *State) error
}

// Options configures a Trainer.
type Options struct {
	// Out receives progress lines. Defaults to os.Stdout.
	Out io.Writer
	// Checkpointer receives intermediate checkpoints. May be nil.
	Checkpointer Checkpointer
}

// Trainer owns the optimizers and the training state of one model.
type Trainer[B autodiff.BackwardCapable] struct {
	cfg     *config.Config
	eval    *residual.Evaluator[B]
	backend B

	teacher nn.Network[B]
	student nn.Network[B]

	optimizer optim.StatefulOptimizer
	schedule  *optim.Schedule
	studentOp optim.StatefulOptimizer

	state *State
	out   io.Writer
	ckpt  Checkpointer

	reportedLR float64
}

// New creates a trainer. student must be non-nil exactly when the problem
// distills. The teacher optimizer covers the teacher parameters and the
// evaluator's unknown coefficients.
func New[B autodiff.BackwardCapable](
	cfg *config.Config,
	eval *residual.Evaluator[B],
	backend B,
	teacher, student nn.Network[B],
	opts Options,
) (*Trainer[B], error) {
	if cfg.Problem.Distill && student == nil {
		return nil, fmt.Errorf("trainer: %s distills but no student network was given", cfg.Problem.Name)
	}

	params := append([]*nn.Parameter[B](nil), teacher.Parameters()...)
	if theta := eval.Theta(); theta != nil {
		params = append(params, theta)
	}
	optimizer, err := optim.New(cfg.Optimizer, params, cfg.LearningRate, backend)
	if err != nil {
		return nil, fmt.Errorf("trainer: %w", err)
	}

	t := &Trainer[B]{
		cfg:        cfg,
		eval:       eval,
		backend:    backend,
		teacher:    teacher,
		optimizer:  optimizer,
		schedule:   optim.NewSchedule(optim.NewMultiStepLR(cfg.Milestones, cfg.Gamma), optimizer),
		state:      &State{},
		out:        opts.Out,
		ckpt:       opts.Checkpointer,
		reportedLR: optimizer.GetLR(),
	}
	if t.out == nil {
		t.out = os.Stdout
	}

	if cfg.Problem.Distill {
		t.student = student
		t.studentOp, err = optim.New(cfg.Optimizer, student.Parameters(), cfg.LearningRate, backend)
		if err != nil {
			return nil, fmt.Errorf("trainer: %w", err)
		}
	}
	return t, nil
}

// State returns the training state.
func (t *Trainer[B]) State() *State {
	return t.state
}

// Optimizer returns the teacher optimizer.
func (t *Trainer[B]) Optimizer() optim.StatefulOptimizer {
	return t.optimizer
}

// StudentOptimizer returns the student optimizer, or nil.
func (t *Trainer[B]) StudentOptimizer() optim.StatefulOptimizer {
	return t.studentOp
}

// Run trains until every group is done. The context is checked between
// inner steps; a step always runs to completion.
func (t *Trainer[B]) Run(ctx context.Context) (*State, error) {
	tape := t.backend.GetTape()
	tape.StartRecording()
	defer func() {
		tape.StopRecording()
		tape.Clear()
	}()

	teacherCadence := NewCadence(t.cfg.PaceRecordSkip, t.cfg.PaceRecordGap)
	studentCadence := NewCadence(t.cfg.PaceRecordSkip, t.cfg.PaceRecordGap)

	for group := range t.cfg.StepNum {
		t.state.Group = group
		t.state.Phase = PhaseTeacherGroup

		if !t.cfg.LoadStudyState {
			for range t.cfg.TrainSteps {
				if err := ctx.Err(); err != nil {
					return t.state, err
				}
				start := time.Now()
				if err := t.teacherStep(teacherCadence); err != nil {
					return t.state, err
				}
				t.state.TeacherElapsed += time.Since(start)
			}
		}

		if t.student == nil {
			continue
		}
		t.state.Phase = PhaseStudentGroup
		for range t.cfg.StudentSteps() {
			if err := ctx.Err(); err != nil {
				return t.state, err
			}
			start := time.Now()
			if err := t.studentStep(studentCadence); err != nil {
				return t.state, err
			}
			t.state.StudentElapsed += time.Since(start)
		}
	}

	t.state.Phase = PhaseCompleted
	fmt.Fprintf(t.out, "\nTime occupied: %.5e s.\n\n", t.state.TeacherElapsed.Seconds())
	if t.student != nil {
		fmt.Fprintf(t.out, "\nTime occupied (student): %.5e s.\n\n", t.state.StudentElapsed.Seconds())
	}
	return t.state, nil
}

func (t *Trainer[B]) teacherStep(cadence *Cadence) error {
	t.state.Phase = PhaseTeacherStep
	iter := t.state.TeacherIter + 1

	t.optimizer.ZeroGrad()
	terms := t.eval.Teacher(t.teacher)
	total := t.total(terms)

	rec := LossRecord{
		Iter:           iter,
		Loss:           total.Item(),
		Equation:       terms.Equation.Item(),
		Boundary:       terms.Boundary.Item(),
		Data:           terms.Data.Item(),
		Regularization: terms.Regularization.Item(),
	}
	if !finite(rec.Loss) {
		return &StepError{Phase: PhaseTeacherStep, Iter: iter, Loss: rec.Loss, Err: ErrNonFinite}
	}

	t.update(total, t.optimizer)
	t.schedule.Step()

	t.state.TeacherIter = iter
	t.state.History.Records = append(t.state.History.Records, rec)
	if t.cfg.Problem.Monitored() {
		if theta := t.eval.Theta(); theta != nil {
			t.state.History.Theta = append(t.state.History.Theta, append([]float64(nil), theta.Tensor().Data()...))
		}
	}

	if !cadence.Due(iter) {
		return nil
	}
	fmt.Fprintln(t.out, t.teacherLine(rec))
	if t.cfg.PaceRecordState && t.ckpt != nil {
		t.state.Phase = PhaseTeacherCheckpoint
		if err := t.ckpt.Checkpoint(Teacher, iter, t.state); err != nil {
			return &StepError{Phase: PhaseTeacherCheckpoint, Iter: iter, Loss: rec.Loss, Err: err}
		}
	}
	if lr := t.optimizer.GetLR(); lr != t.reportedLR {
		fmt.Fprintf(t.out, "Learning rate changed from %.6f to %.6f\n", t.reportedLR, lr)
		t.reportedLR = lr
	}
	return nil
}

func (t *Trainer[B]) studentStep(cadence *Cadence) error {
	t.state.Phase = PhaseStudentStep
	iter := t.state.StudentIter + 1

	t.studentOp.ZeroGrad()
	terms := t.eval.Student(t.teacher, t.student)
	total := terms.Teach.Add(terms.Regularization)

	rec := StudentRecord{
		Iter:           iter,
		Loss:           total.Item(),
		Teach:          terms.Teach.Item(),
		Regularization: terms.Regularization.Item(),
	}
	if !finite(rec.Loss) {
		return &StepError{Phase: PhaseStudentStep, Iter: iter, Loss: rec.Loss, Err: ErrNonFinite}
	}

	t.update(total, t.studentOp)

	t.state.StudentIter = iter
	t.state.Student.Records = append(t.state.Student.Records, rec)

	if !cadence.Due(iter) {
		return nil
	}
	fmt.Fprintf(t.out, "Iter (student): {%d/%d}, loss_student: %.5e, loss_teach: %.5e, loss_rgl: %.5e\n",
		iter, t.cfg.StepNum*t.cfg.StudentSteps(), rec.Loss, rec.Teach, rec.Regularization)
	if t.cfg.PaceRecordState && t.ckpt != nil {
		t.state.Phase = PhaseStudentCheckpoint
		if err := t.ckpt.Checkpoint(Student, iter, t.state); err != nil {
			return &StepError{Phase: PhaseStudentCheckpoint, Iter: iter, Loss: rec.Loss, Err: err}
		}
	}
	return nil
}

// total combines the teacher terms: global problems fit data only,
// inverse problems fit data and equation, forward problems fit equation
// and boundary. Regularization is added when enabled.
func (t *Trainer[B]) total(terms residual.Terms[B]) *tensor.Tensor[B] {
	var total *tensor.Tensor[B]
	switch t.cfg.Problem.Mode {
	case config.ModeGlobal:
		total = terms.Data
	case config.ModeInverse:
		total = terms.Data.Add(terms.Equation)
	default:
		total = terms.Equation.Add(terms.Boundary)
	}
	if t.cfg.Regularization {
		total = total.Add(terms.Regularization)
	}
	return total
}

// update backpropagates loss and steps the optimizer, then clears the
// tape. A loss with nothing recorded is constant and leaves the
// parameters untouched.
func (t *Trainer[B]) update(loss *tensor.Tensor[B], optimizer optim.Optimizer) {
	tape := t.backend.GetTape()
	defer tape.Clear()
	if tape.NumOps() == 0 {
		return
	}
	optimizer.Step(autodiff.Backward(loss, t.backend))
}

func (t *Trainer[B]) teacherLine(rec LossRecord) string {
	fields := []struct {
		name string
		v    float64
	}{
		{"Loss", rec.Loss},
		{"Loss_f", rec.Equation},
		{"Loss_b", rec.Boundary},
		{"Loss_d", rec.Data},
		{"Loss_rgl", rec.Regularization},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Iter: {%d/%d}", rec.Iter, t.cfg.StepNum*t.cfg.TrainSteps)
	for _, f := range fields {
		if f.v != 0 {
			fmt.Fprintf(&b, ", %s: %.5e", f.name, f.v)
		}
	}
	return b.String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
