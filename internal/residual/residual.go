// Package residual evaluates the loss terms a physics-informed network is
// trained on: PDE residuals at interior points, boundary conditions,
// supervision against analytic solutions or datasets, parameter
// regularization and the teacher-student distillation gap.
//
// The equation, boundary and supervision forms are chosen once from the
// problem tag when the Evaluator is built. Every term is an MSE-style
// scalar built from recorded tensor ops, so a single backward pass of the
// autodiff tape gives exact gradients for the network parameters and for
// the unknown coefficients of inverse problems.
package residual

import (
	"errors"
	"fmt"
	"log"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/sampler"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// ThetaName is the parameter name of the unknown coefficients.
const ThetaName = "theta"

// Options configures an Evaluator.
type Options[B tensor.Backend] struct {
	// DataDir holds reference and calibration datasets.
	DataDir string
	// Theta holds the unknown coefficients of inverse problems, shape [k].
	Theta *nn.Parameter[B]
	// Logger receives warnings. Defaults to log.Default().
	Logger *log.Logger
}

// Terms are the teacher loss components of one step. Inactive components
// are zero scalars.
type Terms[B tensor.Backend] struct {
	Equation       *tensor.Tensor[B]
	Boundary       *tensor.Tensor[B]
	Data           *tensor.Tensor[B]
	Regularization *tensor.Tensor[B]
}

// StudentTerms are the student loss components of one step.
type StudentTerms[B tensor.Backend] struct {
	Teach          *tensor.Tensor[B]
	Regularization *tensor.Tensor[B]
}

type lossFunc[B tensor.Backend] func(net nn.Network[B], combo int) *tensor.Tensor[B]

// Evaluator computes loss terms over a fixed sample batch.
type Evaluator[B tensor.Backend] struct {
	cfg      *config.Config
	batch    *sampler.Batch
	backend  B
	theta    *nn.Parameter[B]
	logger   *log.Logger
	dataPath string

	interior    []*tensor.RawTensor // one input per combination
	edges       [4][]*tensor.RawTensor
	edgeTargets [4]*tensor.RawTensor // Dirichlet targets, nil where unused
	source      *tensor.RawTensor    // Poisson source term at interior points

	equation lossFunc[B]
	boundary lossFunc[B]

	teacherReg Regularizer
	studentReg Regularizer

	supervision       []*tensor.RawTensor // supervision inputs, one per combination
	supervisionTarget *tensor.RawTensor
}

// New builds an evaluator for cfg over batch. Supervision datasets are
// read here, once per run.
func New[B tensor.Backend](cfg *config.Config, batch *sampler.Batch, backend B, opts Options[B]) (*Evaluator[B], error) {
	e := &Evaluator[B]{
		cfg:      cfg,
		batch:    batch,
		backend:  backend,
		theta:    opts.Theta,
		logger:   opts.Logger,
		dataPath: opts.DataDir,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}

	if cfg.Problem.Mode == config.ModeInverse {
		if e.theta == nil {
			return nil, errors.New("residual: inverse problem requires unknown coefficients")
		}
		if n := e.theta.Tensor().NumElements(); n < 1 {
			return nil, fmt.Errorf("residual: %d unknown coefficients", n)
		}
	}

	e.interior = batch.Inputs(batch.Interior)
	for _, edge := range sampler.Edges {
		e.edges[edge] = batch.Inputs(batch.Edge(edge))
	}

	var err error
	if e.teacherReg, e.studentReg, err = Regularizers(cfg); err != nil {
		return nil, err
	}

	e.selectEquation()
	e.selectBoundary()
	if err = e.selectSupervision(); err != nil {
		return nil, err
	}
	return e, nil
}

// Theta returns the unknown coefficients, or nil for forward problems.
func (e *Evaluator[B]) Theta() *nn.Parameter[B] {
	return e.theta
}

// Equation returns the PDE residual loss of net, averaged over control
// combinations.
func (e *Evaluator[B]) Equation(net nn.Network[B]) *tensor.Tensor[B] {
	return e.average(e.equation, net)
}

// Boundary returns the boundary loss of net, averaged over control
// combinations.
func (e *Evaluator[B]) Boundary(net nn.Network[B]) *tensor.Tensor[B] {
	return e.average(e.boundary, net)
}

// Data returns the supervision loss of net. It is zero for forward
// problems. Divergence-free networks are compared through their velocity.
func (e *Evaluator[B]) Data(net nn.Network[B]) *tensor.Tensor[B] {
	if e.supervisionTarget == nil {
		return e.zero()
	}
	target := e.constant(e.supervisionTarget)
	total := e.zero()
	for _, in := range e.supervision {
		total = total.Add(tensor.MSE(nn.Predict(net, e.constant(in)), target))
	}
	return e.mean(total, len(e.supervision))
}

// Regularization returns the penalty of reg over the parameters of net.
func (e *Evaluator[B]) Regularization(net nn.Network[B], reg Regularizer) *tensor.Tensor[B] {
	return Penalty(net.Parameters(), reg, e.backend)
}

// Distill returns mean((u_teacher - u_student)²) over the interior points,
// averaged over control combinations. The teacher is evaluated with
// recording disabled, so no gradient reaches it.
func (e *Evaluator[B]) Distill(teacher, student nn.Network[B]) *tensor.Tensor[B] {
	total := e.zero()
	for _, in := range e.interior {
		var uTeacher *tensor.Tensor[B]
		e.noGrad(func() {
			uTeacher = e.forward(teacher, in)
		})
		total = total.Add(tensor.MSE(uTeacher, e.forward(student, in)))
	}
	return e.mean(total, len(e.interior))
}

// Teacher evaluates the teacher terms for one step. Problems that learn
// from data (inverse or global) skip the boundary loss; regularization is
// applied when enabled in the configuration.
func (e *Evaluator[B]) Teacher(net nn.Network[B]) Terms[B] {
	t := Terms[B]{
		Equation:       e.Equation(net),
		Data:           e.Data(net),
		Boundary:       e.zero(),
		Regularization: e.zero(),
	}
	if !e.cfg.Problem.Monitored() {
		t.Boundary = e.Boundary(net)
	}
	if e.cfg.Regularization {
		t.Regularization = e.Regularization(net, e.teacherReg)
	}
	return t
}

// Student evaluates the distillation terms for one student step.
func (e *Evaluator[B]) Student(teacher, student nn.Network[B]) StudentTerms[B] {
	return StudentTerms[B]{
		Teach:          e.Distill(teacher, student),
		Regularization: e.Regularization(student, e.studentReg),
	}
}

// Field evaluates the field net models on points with recording
// disabled: raw outputs, or the velocity of a divergence-free network.
func (e *Evaluator[B]) Field(net nn.Network[B], points *tensor.RawTensor) *tensor.RawTensor {
	var out *tensor.Tensor[B]
	e.noGrad(func() {
		out = nn.Predict(net, e.constant(points))
	})
	return out.Raw()
}

func (e *Evaluator[B]) average(fn lossFunc[B], net nn.Network[B]) *tensor.Tensor[B] {
	if fn == nil {
		return e.zero()
	}
	n := len(e.interior)
	total := fn(net, 0)
	for i := 1; i < n; i++ {
		total = total.Add(fn(net, i))
	}
	return e.mean(total, n)
}

func (e *Evaluator[B]) mean(total *tensor.Tensor[B], n int) *tensor.Tensor[B] {
	if n <= 1 {
		return total
	}
	return total.MulScalar(1 / float64(n))
}

func (e *Evaluator[B]) forward(net nn.Network[B], in *tensor.RawTensor) *tensor.Tensor[B] {
	return net.Forward(e.constant(in))
}

// jet evaluates net with input derivatives along x (axis 0) and y
// (axis 1) up to the given orders, restricted to the first output.
func (e *Evaluator[B]) jet(net nn.Network[B], in *tensor.RawTensor, xOrder, yOrder int) *nn.Jet[B] {
	j := net.ForwardJet(nn.NewJet(e.constant(in), []int{xOrder, yOrder}))
	if j.Value.Shape()[1] > 1 {
		j = j.Column(0)
	}
	return j
}

func (e *Evaluator[B]) constant(raw *tensor.RawTensor) *tensor.Tensor[B] {
	return tensor.New(raw, e.backend)
}

func (e *Evaluator[B]) scalar(v float64) *tensor.Tensor[B] {
	return tensor.Full(tensor.Shape{1}, v, e.backend)
}

func (e *Evaluator[B]) zero() *tensor.Tensor[B] {
	return tensor.Scalar(0, e.backend)
}

// noGrad runs fn with tape recording disabled when the backend records.
func (e *Evaluator[B]) noGrad(fn func()) {
	if r, ok := any(e.backend).(interface{ NoGrad(func()) }); ok {
		r.NoGrad(fn)
		return
	}
	fn()
}

// thetaAt returns the i-th unknown coefficient as a [1] tensor.
func (e *Evaluator[B]) thetaAt(i int) *tensor.Tensor[B] {
	return e.theta.Tensor().Narrow(0, i, 1)
}

// pointwise builds an [N, 1] tensor from f(x, y) over the rows of m.
func pointwise(m *tensor.RawTensor, f func(x, y float64) float64) *tensor.RawTensor {
	shape := m.Shape()
	n, d := shape[0], shape[1]
	out := tensor.MustRaw(tensor.Shape{n, 1}, m.Device())
	dst, src := out.Data(), m.Data()
	for i := range n {
		dst[i] = f(src[i*d], src[i*d+1])
	}
	return out
}
