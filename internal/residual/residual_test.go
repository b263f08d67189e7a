package residual

import (
	"bytes"
	"errors"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/internal/autodiff"
	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/sampler"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

type adBackend = *autodiff.AutodiffBackend[*cpu.CPUBackend]

func testConfig(problem string) *config.Config {
	return &config.Config{
		Problem:       config.ParseProblem(problem),
		XMin:          -1,
		XMax:          1,
		YMin:          -1,
		YMax:          1,
		CoordNum:      2,
		InputNum:      2,
		OutputNum:     1,
		GridNodeNum:   6,
		BunNodeNum:    8,
		FigureNodeNum: 5,
		ParaCtrl:      [][]float64{{0.01}},
		DataSerials:   []string{"1"},
	}
}

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func newEvaluator(t *testing.T, cfg *config.Config, backend adBackend, opts Options[adBackend]) *Evaluator[adBackend] {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	e, err := New(cfg, sampler.New(cfg), backend, opts)
	require.NoError(t, err)
	return e
}

func newTheta(backend adBackend, values ...float64) *nn.Parameter[adBackend] {
	t, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	if err != nil {
		panic(err)
	}
	return nn.NewParameter(ThetaName, t)
}

func mlp(backend adBackend, layers ...int) *nn.MLP[adBackend] {
	return nn.NewMLP(layers, rand.New(rand.NewSource(1234)), backend)
}

// fieldNet is a parameter-free network with an analytic field and known
// derivatives.
type fieldNet struct {
	u, ux, uy, uxx, uyy func(x, y float64) float64
}

func (f *fieldNet) eval(in *tensor.Tensor[adBackend], fn func(x, y float64) float64) *tensor.Tensor[adBackend] {
	n, d := in.Shape()[0], in.Shape()[1]
	data := in.Data()
	out := make([]float64, n)
	for i := range n {
		out[i] = fn(data[i*d], data[i*d+1])
	}
	t, err := tensor.FromSlice(out, tensor.Shape{n, 1}, in.Backend())
	if err != nil {
		panic(err)
	}
	return t
}

func (f *fieldNet) Forward(in *tensor.Tensor[adBackend]) *tensor.Tensor[adBackend] {
	return f.eval(in, f.u)
}

func (f *fieldNet) ForwardJet(j *nn.Jet[adBackend]) *nn.Jet[adBackend] {
	out := &nn.Jet[adBackend]{Value: f.eval(j.Value, f.u), Derivs: make([][]*tensor.Tensor[adBackend], len(j.Derivs))}
	derivs := [][]func(x, y float64) float64{{f.ux, f.uxx}, {f.uy, f.uyy}}
	for axis, orders := range j.Derivs {
		out.Derivs[axis] = make([]*tensor.Tensor[adBackend], len(orders))
		for k := range orders {
			out.Derivs[axis][k] = f.eval(j.Value, derivs[axis][k])
		}
	}
	return out
}

func (f *fieldNet) Parameters() []*nn.Parameter[adBackend]         { return nil }
func (f *fieldNet) StateDict() map[string]*tensor.RawTensor         { return nil }
func (f *fieldNet) LoadStateDict(map[string]*tensor.RawTensor) error { return nil }
func (f *fieldNet) Layers() []int                                   { return []int{2, 1} }
func (f *fieldNet) Kind() nn.Kind                                   { return "Field" }
func (f *fieldNet) Specs() []nn.LayerSpec[adBackend]                { return nil }

func laplaceField() *fieldNet {
	return &fieldNet{
		u:   LaplaceSolution,
		ux:  func(x, y float64) float64 { return 3*x*x - 3*y*y },
		uy:  func(x, y float64) float64 { return -6 * x * y },
		uxx: func(x, _ float64) float64 { return 6 * x },
		uyy: func(x, _ float64) float64 { return -6 * x },
	}
}

func TestLaplace_ExactSolutionHasZeroResiduals(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net := laplaceField()

	e := newEvaluator(t, testConfig("Laplace"), backend, Options[adBackend]{})
	assert.InDelta(t, 0, e.Equation(net).Item(), 1e-20)
	assert.InDelta(t, 0, e.Boundary(net).Item(), 1e-20)
	assert.Equal(t, 0.0, e.Data(net).Item())

	e = newEvaluator(t, testConfig("Laplace_global"), backend, Options[adBackend]{})
	assert.InDelta(t, 0, e.Data(net).Item(), 1e-20)
	assert.Equal(t, 0.0, e.Equation(net).Item())
}

func TestLaplace_WrongFieldIsPenalized(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net := laplaceField()
	net.uyy = func(x, _ float64) float64 { return -5 * x } // u_xx + u_yy = x

	e := newEvaluator(t, testConfig("Laplace"), backend, Options[adBackend]{})

	// mean(x²) over a 6-point grid on [-1, 1]
	want := 0.0
	for _, x := range tensor.Linspace(-1, 1, 6) {
		want += x * x
	}
	want /= 6
	assert.InDelta(t, want, e.Equation(net).Item(), 1e-12)
}

func TestBurgers_ExactBoundary(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net := &fieldNet{
		u:   func(_, y float64) float64 { return -math.Sin(math.Pi * y) },
		ux:  func(_, _ float64) float64 { return 0 },
		uy:  func(_, y float64) float64 { return -math.Pi * math.Cos(math.Pi*y) },
		uxx: func(_, _ float64) float64 { return 0 },
		uyy: func(_, y float64) float64 { return math.Pi * math.Pi * math.Sin(math.Pi*y) },
	}

	e := newEvaluator(t, testConfig("Burgers"), backend, Options[adBackend]{})
	assert.InDelta(t, 0, e.Boundary(net).Item(), 1e-20)

	// residual: u·u_y − ν·u_yy with ν = 0.01/π
	nu := 0.01 / math.Pi
	want := 0.0
	for range 6 {
		for _, y := range tensor.Linspace(-1, 1, 6) {
			r := net.u(0, y)*net.uy(0, y) - nu*net.uyy(0, y)
			want += r * r
		}
	}
	want /= 36
	assert.InDelta(t, want, e.Equation(net).Item(), 1e-10)
}

func TestTermsAreNonNegativeAndDeterministic(t *testing.T) {
	for _, problem := range []string{"Burgers", "AC", "Laplace", "Poisson", "Poisson_global_lf", "Laplace_inv"} {
		t.Run(problem, func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			net := mlp(backend, 2, 8, 8, 1)
			cfg := testConfig(problem)
			e := newEvaluator(t, cfg, backend, Options[adBackend]{Theta: newTheta(backend, 0.3), DataDir: writeCalibration(t, cfg)})

			a := e.Teacher(net)
			b := e.Teacher(net)
			for _, pair := range [][2]*tensor.Tensor[adBackend]{
				{a.Equation, b.Equation},
				{a.Boundary, b.Boundary},
				{a.Data, b.Data},
				{a.Regularization, b.Regularization},
			} {
				assert.GreaterOrEqual(t, pair[0].Item(), 0.0)
				assert.Equal(t, pair[0].Item(), pair[1].Item())
			}
		})
	}
}

func TestTeacher_ModeSelection(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net := mlp(backend, 2, 6, 1)

	cfg := testConfig("Poisson_inv")
	cfg.Regularization = true
	e := newEvaluator(t, cfg, backend, Options[adBackend]{Theta: newTheta(backend, 1)})
	terms := e.Teacher(net)

	assert.Equal(t, 0.0, terms.Boundary.Item(), "inverse problems skip the boundary loss")
	assert.Greater(t, terms.Data.Item(), 0.0)
	assert.Greater(t, terms.Equation.Item(), 0.0)
	assert.Greater(t, terms.Regularization.Item(), 0.0)

	cfg = testConfig("Poisson")
	e = newEvaluator(t, cfg, backend, Options[adBackend]{})
	terms = e.Teacher(net)
	assert.Equal(t, 0.0, terms.Data.Item())
	assert.Equal(t, 0.0, terms.Regularization.Item())
	assert.Greater(t, terms.Boundary.Item(), 0.0)
}

func TestPoissonBoundary_UsesFixedEdgeCount(t *testing.T) {
	backend := autodiff.New(cpu.New())
	one := &fieldNet{u: func(_, _ float64) float64 { return 2 }}

	e := newEvaluator(t, testConfig("Poisson"), backend, Options[adBackend]{})
	assert.Equal(t, 4*sampler.PoissonEdgeNodes, e.batch.BoundaryPoints())
	assert.InDelta(t, 4, e.Boundary(one).Item(), 1e-12)
}

func TestInverse_ThetaGradientMatchesFiniteDifference(t *testing.T) {
	for _, problem := range []string{"Burgers_inv", "Laplace_inv"} {
		t.Run(problem, func(t *testing.T) {
			backend := autodiff.New(cpu.New())
			net := mlp(backend, 2, 6, 6, 1)
			theta := newTheta(backend, 0.2, 0.7)
			cfg := testConfig(problem)
			cfg.ParaCtrl = [][]float64{{1}, {2}}

			e, err := New(cfg, sampler.New(cfg), backend, Options[adBackend]{Theta: theta, Logger: quietLogger(), DataDir: writeCalibration(t, cfg)})
			require.NoError(t, err)

			backend.Tape().StartRecording()
			loss := e.Equation(net)
			grads := autodiff.Backward(loss, backend)
			backend.Tape().StopRecording()
			backend.Tape().Clear()

			g := grads[theta.Tensor().Raw()]
			require.NotNil(t, g)
			assert.Equal(t, 0.0, g.Data()[1], "only θ₀ enters the equation")

			const h = 1e-6
			data := theta.Tensor().Raw().Data()
			data[0] += h
			plus := e.Equation(net).Item()
			data[0] -= 2 * h
			minus := e.Equation(net).Item()
			data[0] += h

			assert.InDelta(t, (plus-minus)/(2*h), g.Data()[0], 1e-6)
		})
	}
}

func writeCalibration(t *testing.T, cfg *config.Config) string {
	t.Helper()
	dir := t.TempDir()
	for _, path := range CalibrationPaths(dir, cfg.Problem, cfg.DataSerials) {
		require.NoError(t, os.WriteFile(path, []byte("0.1,0.2,0.3\n0.4,0.5,0.6\n"), 0o600))
	}
	return dir
}

func TestInverse_RequiresTheta(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cfg := testConfig("Poisson_inv")
	_, err := New(cfg, sampler.New(cfg), backend, Options[adBackend]{Logger: quietLogger()})
	assert.Error(t, err)
}

func TestDistill(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cfg := testConfig("Burgers_distill")
	e := newEvaluator(t, cfg, backend, Options[adBackend]{})

	teacher := mlp(backend, 2, 8, 1)
	same := mlp(backend, 2, 8, 1)
	assert.InDelta(t, 0, e.Distill(teacher, same).Item(), 1e-24)

	student := nn.NewMLP([]int{2, 4, 1}, rand.New(rand.NewSource(7)), backend)

	backend.Tape().StartRecording()
	terms := e.Student(teacher, student)
	total := terms.Teach.Add(terms.Regularization)
	grads := autodiff.Backward(total, backend)
	backend.Tape().StopRecording()
	backend.Tape().Clear()

	assert.Greater(t, terms.Teach.Item(), 0.0)
	for _, p := range teacher.Parameters() {
		assert.Nil(t, grads[p.Tensor().Raw()], "teacher %s must stay frozen", p.Name())
	}
	for _, p := range student.Parameters() {
		assert.NotNil(t, grads[p.Tensor().Raw()], "student %s", p.Name())
	}
	assert.False(t, backend.Tape().IsRecording())
}

func TestSweeping_AveragesOverCombinations(t *testing.T) {
	backend := autodiff.New(cpu.New())
	net := mlp(backend, 3, 6, 1)

	eval := func(values ...float64) float64 {
		cfg := testConfig("Burgers")
		cfg.ParaCtrlAdd = true
		cfg.InputNum = 3
		cfg.ParaCtrl = [][]float64{values}
		e := newEvaluator(t, cfg, backend, Options[adBackend]{})
		require.Len(t, e.interior, len(values))
		return e.Equation(net).Item() + e.Boundary(net).Item()
	}

	a, b := eval(0.01), eval(0.05)
	assert.InDelta(t, (a+b)/2, eval(0.01, 0.05), 1e-12)
}

func TestUnknownFamily_ZeroResidualLoggedOnce(t *testing.T) {
	backend := autodiff.New(cpu.New())
	var buf bytes.Buffer
	cfg := testConfig("Heat")
	e := newEvaluator(t, cfg, backend, Options[adBackend]{Logger: log.New(&buf, "", 0)})

	net := mlp(backend, 2, 4, 1)
	for range 3 {
		assert.Equal(t, 0.0, e.Equation(net).Item())
		assert.Equal(t, 0.0, e.Boundary(net).Item())
	}
	assert.Equal(t, 1, strings.Count(buf.String(), "no equation residual"))
	assert.Equal(t, 1, strings.Count(buf.String(), "no boundary conditions"))

	// Allen-Cahn has boundary conditions but no equation form.
	buf.Reset()
	e = newEvaluator(t, testConfig("AC"), backend, Options[adBackend]{Logger: log.New(&buf, "", 0)})
	assert.Equal(t, 0.0, e.Equation(net).Item())
	assert.Greater(t, e.Boundary(net).Item(), 0.0)
	assert.Contains(t, buf.String(), "no equation residual")
}

func TestCalibrationData(t *testing.T) {
	backend := autodiff.New(cpu.New())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Burgers_inv_data_1.csv"), []byte("x,t,u\n0,0,1\n0.5,0.5,2\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Burgers_inv_data_2.csv"), []byte("1,1,3\n"), 0o600))

	cfg := testConfig("Burgers_inv")
	cfg.DataSerials = []string{"1", "2"}
	e := newEvaluator(t, cfg, backend, Options[adBackend]{Theta: newTheta(backend, 0), DataDir: dir})

	require.Len(t, e.supervision, 1)
	assert.Equal(t, []float64{0, 0, 0.5, 0.5, 1, 1}, e.supervision[0].Data())
	assert.Equal(t, []float64{1, 2, 3}, e.supervisionTarget.Data())

	zero := &fieldNet{u: func(_, _ float64) float64 { return 0 }}
	assert.InDelta(t, (1.0+4+9)/3, e.Data(zero).Item(), 1e-12)
}

func TestCalibrationData_ShapeMismatch(t *testing.T) {
	backend := autodiff.New(cpu.New())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Laplace_inv_data_1.csv"), []byte("0,0,1\n0,0,1,9\n"), 0o600))

	cfg := testConfig("Laplace_inv")
	_, err := New(cfg, sampler.New(cfg), backend, Options[adBackend]{Theta: newTheta(backend, 0), DataDir: dir, Logger: quietLogger()})

	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 2, mismatch.Row)
	assert.Equal(t, 4, mismatch.Got)
	assert.Equal(t, 3, mismatch.Want)
}

func TestReferenceData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AC_global_data.csv"), []byte("x,y,u\n0,0,1\n1,1,2\n"), 0o600))

	backend := autodiff.New(cpu.New())
	e := newEvaluator(t, testConfig("AC_global"), backend, Options[adBackend]{DataDir: dir})
	assert.Equal(t, []float64{0, 0, 1, 1}, e.supervision[0].Data())
	assert.Equal(t, []float64{1, 2}, e.supervisionTarget.Data())

	_, err := New(testConfig("Burgers_global"), sampler.New(testConfig("Burgers_global")), backend,
		Options[adBackend]{DataDir: dir, Logger: quietLogger()})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReferenceData_ExtraColumns(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AC_global_data.csv"), []byte("0,0,1,7,9\n1,1,2,7,9\n"), 0o600))

	backend := autodiff.New(cpu.New())
	cfg := testConfig("AC_global")
	_, err := New(cfg, sampler.New(cfg), backend, Options[adBackend]{DataDir: dir, Logger: quietLogger()})

	var mismatch *ShapeMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 1, mismatch.Row)
	assert.Equal(t, 5, mismatch.Got)
	assert.Equal(t, 3, mismatch.Want)
}

func TestLoadDataset_Widths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("0,0,1,7,9\n"), 0o600))

	_, err := LoadDataset([]string{path}, Layout{Inputs: 2, Outputs: 1})
	var mismatch *ShapeMismatchError
	assert.True(t, errors.As(err, &mismatch))

	d, err := LoadDataset([]string{path}, Layout{Inputs: 2, Outputs: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, []float64{1, 7, 9}, d.Targets.Data())
}

func TestLoadDataset_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y,u\n"), 0o600))

	_, err := LoadDataset([]string{path}, Layout{Inputs: 2, Outputs: 1})
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestPenalty(t *testing.T) {
	backend := cpu.New()
	w, _ := tensor.FromSlice([]float64{3, 4, 0, 0}, tensor.Shape{2, 2}, backend)
	b, _ := tensor.FromSlice([]float64{-1, 1}, tensor.Shape{2}, backend)
	params := []*nn.Parameter[*cpu.CPUBackend]{nn.NewParameter("layers.0.weight", w), nn.NewParameter("layers.0.bias", b)}

	assert.InDelta(t, 1e-3*(5+math.Sqrt2), Penalty(params, TeacherRegularizer, backend).Item(), 1e-15)
	assert.InDelta(t, 1e-3*5, Penalty(params, StudentRegularizer, backend).Item(), 1e-15)
	assert.InDelta(t, 0.5*(7+2), Penalty(params, Regularizer{Norm: L1, Lambda: 0.5}, backend).Item(), 1e-15)

	// GrOWL: rows norms [5, 0] weighted by [1, 0.1]; biases skipped.
	assert.InDelta(t, 5, Penalty(params, Regularizer{Norm: GrOWL}, backend).Item(), 1e-15)
}

func TestRegularizers(t *testing.T) {
	cfg := testConfig("Laplace")
	teacher, student, err := Regularizers(cfg)
	require.NoError(t, err)
	assert.Equal(t, TeacherRegularizer, teacher)
	assert.Equal(t, StudentRegularizer, student)

	cfg.RegularizationNorm = "growl"
	cfg.RegularizationSubset = "weight"
	cfg.RegularizationLambda = 0.1
	teacher, student, err = Regularizers(cfg)
	require.NoError(t, err)
	assert.Equal(t, Regularizer{Norm: GrOWL, Subset: WeightsOnly, Lambda: 0.1}, teacher)
	assert.Equal(t, Regularizer{Norm: GrOWL, Subset: WeightsOnly, Lambda: 0.1}, student)

	cfg.RegularizationNorm = "l3"
	_, _, err = Regularizers(cfg)
	assert.ErrorContains(t, err, "l3")

	cfg.RegularizationNorm = "l1"
	cfg.RegularizationSubset = "biases"
	_, _, err = Regularizers(cfg)
	assert.ErrorContains(t, err, "biases")
}

func TestTeacher_ConfiguredNorm(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cfg := testConfig("Laplace")
	cfg.Regularization = true
	cfg.RegularizationNorm = "l1"
	cfg.RegularizationLambda = 0.5
	e := newEvaluator(t, cfg, backend, Options[adBackend]{})

	net := mlp(backend, 2, 4, 1)
	want := Penalty(net.Parameters(), Regularizer{Norm: L1, Lambda: 0.5}, backend).Item()
	assert.InDelta(t, want, e.Teacher(net).Regularization.Item(), 1e-12)
}

func TestGrowlWeights(t *testing.T) {
	got := growlWeights([]float64{1, 3, 2})
	assert.InDelta(t, 0.1, got[0], 1e-12)
	assert.InDelta(t, 1, got[1], 1e-12)
	assert.InDelta(t, 0.55, got[2], 1e-12)

	assert.Equal(t, []float64{1}, growlWeights([]float64{7}))
}

func TestPenalty_GradientAtZeroIsZero(t *testing.T) {
	backend := autodiff.New(cpu.New())
	zero := nn.NewParameter("layers.0.bias", tensor.Zeros(tensor.Shape{3}, backend))

	backend.Tape().StartRecording()
	for _, reg := range []Regularizer{TeacherRegularizer, {Norm: L1, Lambda: 1}} {
		loss := Penalty([]*nn.Parameter[adBackend]{zero}, reg, backend)
		grads := autodiff.Backward(loss, backend)
		assert.Equal(t, []float64{0, 0, 0}, grads[zero.Tensor().Raw()].Data(), reg.Norm.String())
		backend.Tape().Clear()
	}
}

func TestField(t *testing.T) {
	backend := autodiff.New(cpu.New())
	cfg := testConfig("Laplace")
	e := newEvaluator(t, cfg, backend, Options[adBackend]{})

	backend.Tape().StartRecording()
	out := e.Field(laplaceField(), sampler.FigureGrid(cfg))
	assert.Equal(t, tensor.Shape{25, 1}, out.Shape())
	assert.Equal(t, 0, backend.Tape().NumOps())
	assert.True(t, backend.Tape().IsRecording())
}

func TestReferenceSolutions(t *testing.T) {
	assert.InDelta(t, 0, PoissonSolution(0, 0.3), 1e-15)
	assert.InDelta(t, 0.5/(2*math.Pi*math.Pi)*(1+3), PoissonSolution(0.5, 0.5), 1e-12)
	assert.InDelta(t, 1, PoissonLowFrequencySolution(0.5, 0.5), 1e-12)
	assert.InDelta(t, 0.5*(1+9), PoissonSource(0.5, 0.5), 1e-12)
	assert.Equal(t, 1.0-3*1*4, LaplaceSolution(1, 2))
}

func TestDivFree_SupervisesVelocity(t *testing.T) {
	backend := autodiff.New(cpu.New())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Laplace_inv_data_1.csv"),
		[]byte("0.1,0.2,1,-1\n-0.3,0.5,0.5,2\n"), 0o600))

	cfg := testConfig("Laplace_inv")
	cfg.OutputNum = 2
	e := newEvaluator(t, cfg, backend, Options[adBackend]{Theta: newTheta(backend, 0), DataDir: dir})

	net, err := nn.Build(nn.KindDivFree, []int{2, 6, 2}, rand.New(rand.NewSource(5)), backend)
	require.NoError(t, err)

	in, err := tensor.FromSlice([]float64{0.1, 0.2, -0.3, 0.5}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	velocity := nn.Velocity(net, in).Data()
	target := []float64{1, -1, 0.5, 2}
	want := 0.0
	for i := range target {
		want += (velocity[i] - target[i]) * (velocity[i] - target[i])
	}
	want /= float64(len(target))

	assert.InDelta(t, want, e.Data(net).Item(), 1e-12)

	field := e.Field(net, sampler.FigureGrid(cfg))
	assert.Equal(t, tensor.Shape{25, 2}, field.Shape())
}
