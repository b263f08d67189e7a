package recorder

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZitiLiu/Psi-NN/internal/backend/cpu"
	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/onnx"
	"github.com/ZitiLiu/Psi-NN/internal/optim"
	"github.com/ZitiLiu/Psi-NN/internal/serialization"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
	"github.com/ZitiLiu/Psi-NN/internal/trainer"
)

type cpuBackend = *cpu.CPUBackend

func testConfig(problem string) *config.Config {
	return &config.Config{
		Problem:   config.ParseProblem(problem),
		Run:       1,
		CoordNum:  2,
		InputNum:  2,
		OutputNum: 1,
		ParaCtrl:  [][]float64{{0.01}},
	}
}

func testNetworks(cfg *config.Config, backend cpuBackend) Networks[cpuBackend] {
	nets := Networks[cpuBackend]{
		Teacher: nn.NewMLP([]int{2, 6, 6, 1}, rand.New(rand.NewSource(1)), backend),
		Kind:    nn.KindPINN,
	}
	if cfg.Problem.Distill {
		nets.Student = nn.NewMLP([]int{2, 4, 1}, rand.New(rand.NewSource(2)), backend)
	}
	if cfg.Problem.Monitored() {
		nets.Theta = nn.NewParameter("theta", tensor.Full(tensor.Shape{1}, 0.37, backend))
	}
	return nets
}

func testState() *trainer.State {
	s := &trainer.State{
		TeacherIter:    3,
		StudentIter:    1,
		TeacherElapsed: 1500 * time.Millisecond,
		StudentElapsed: 250 * time.Millisecond,
	}
	for i := 1; i <= 3; i++ {
		s.History.Records = append(s.History.Records, trainer.LossRecord{
			Iter: i, Loss: 1 / float64(i), Equation: 0.5 / float64(i), Data: 0.5 / float64(i),
		})
		s.History.Theta = append(s.History.Theta, []float64{0.1 * float64(i)})
	}
	s.Student.Records = []trainer.StudentRecord{{Iter: 1, Loss: 0.2, Teach: 0.15, Regularization: 0.05}}
	return s
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleInput(t *testing.T, backend cpuBackend) *tensor.Tensor[cpuBackend] {
	t.Helper()
	in, err := tensor.FromSlice([]float64{0.1, 0.2, -0.5, 0.7, 0.9, -0.3}, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)
	return in
}

func raw(t *testing.T, data []float64, shape ...int) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.RawFromSlice(data, tensor.Shape(shape), tensor.CPU)
	require.NoError(t, err)
	return r
}

func TestSaveModels_RoundTrip(t *testing.T) {
	backend := cpu.New()
	root := t.TempDir()
	cfg := testConfig("Burgers_inv_distill")
	nets := testNetworks(cfg, backend)
	runID := uuid.New()

	rec, err := New(root, cfg, runID, nets)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "Burgers_inv_distill_1"), rec.Dir())

	opt := optim.NewAdam(nets.Teacher.Parameters(), optim.AdamConfig{LR: 1e-3}, backend)
	rec.Bind(opt, nil)
	require.NoError(t, rec.SaveModels(testState()))

	teacherPath := filepath.Join(rec.Dir(), "Models", "Burgers_inv_distill_1_PINN.born")
	assert.FileExists(t, teacherPath)
	assert.FileExists(t, filepath.Join(rec.Dir(), "Models", "Burgers_inv_distill_1_PINN.onnx"))
	assert.FileExists(t, filepath.Join(rec.Dir(), "Models", "Burgers_inv_distill_1_PINN_student.born"))
	assert.FileExists(t, filepath.Join(rec.Dir(), "Models", "Burgers_inv_distill_1_PINN_student.onnx"))

	reader, err := serialization.NewBornReader(teacherPath)
	require.NoError(t, err)
	meta := reader.Metadata()
	require.NoError(t, reader.Close())
	assert.Equal(t, "Burgers_inv_distill", meta[MetaProblem])
	assert.Equal(t, "1", meta[MetaRun])
	assert.Equal(t, "inverse", meta[MetaMode])
	assert.Equal(t, "teacher", meta[MetaRole])
	assert.Equal(t, "3", meta[MetaIteration])
	assert.Equal(t, runID.String(), meta[MetaRunID])

	restored := Networks[cpuBackend]{
		Teacher: nn.NewMLP([]int{2, 6, 6, 1}, rand.New(rand.NewSource(9)), backend),
		Theta:   nn.NewParameter("theta", tensor.Zeros(tensor.Shape{1}, backend)),
		Kind:    nn.KindPINN,
	}
	require.NoError(t, LoadTeacher(root, cfg, backend, restored))
	in := sampleInput(t, backend)
	assert.Equal(t, nets.Teacher.Forward(in).Data(), restored.Teacher.Forward(in).Data())
	assert.Equal(t, 0.37, restored.Theta.Tensor().Item())

	model, err := onnx.Load(filepath.Join(rec.Dir(), "Models", "Burgers_inv_distill_1_PINN_student.onnx"))
	require.NoError(t, err)
	out, err := model.Forward(in.Raw(), backend)
	require.NoError(t, err)
	assert.InDeltaSlice(t, nets.Student.Forward(in).Data(), out.Data(), 1e-12)
	assert.Equal(t, "student", model.Metadata()[MetaRole])
}

func TestLoadTeacher_Missing(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace")
	err := LoadTeacher(t.TempDir(), cfg, backend, testNetworks(cfg, backend))
	assert.ErrorContains(t, err, "Laplace_1_PINN.born")
}

func TestCheckpoint_IntermediateStep(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace_distill")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)

	var _ trainer.Checkpointer = rec
	require.NoError(t, rec.Checkpoint(trainer.Teacher, 100, testState()))
	require.NoError(t, rec.Checkpoint(trainer.Student, 50, testState()))

	assert.FileExists(t, filepath.Join(rec.Dir(), "Models", "Laplace_distill_1_PINN_step_100.born"))
	assert.FileExists(t, filepath.Join(rec.Dir(), "Models", "Laplace_distill_1_PINN_student_step_50.born"))
	assert.NoFileExists(t, filepath.Join(rec.Dir(), "Models", "Laplace_distill_1_PINN_step_100.onnx"))
}

func TestWriteHistory(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Burgers_inv_distill")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)
	require.NoError(t, rec.WriteHistory(testState()))

	loss := readCSV(t, rec.LossPath(trainer.Teacher))
	assert.Equal(t, []string{"iter", "loss", "loss_f", "loss_d"}, loss[0])
	require.Len(t, loss, 4)
	assert.Equal(t, []string{"1", "1", "0.5", "0.5"}, loss[1])
	assert.Equal(t, "3", loss[3][0])

	student := readCSV(t, rec.LossPath(trainer.Student))
	assert.Equal(t, []string{"iter", "loss", "loss_teach", "loss_rgl"}, student[0])
	assert.Equal(t, []string{"1", "0.2", "0.15", "0.05"}, student[1])

	paras := readCSV(t, rec.ParametersPath())
	assert.Equal(t, []string{"iter", "parameters_1"}, paras[0])
	assert.Len(t, paras, 4)
}

func TestWriteHistory_AppendsCoefficientsWhenResuming(t *testing.T) {
	backend := cpu.New()
	root := t.TempDir()
	cfg := testConfig("Burgers_inv")
	first, err := New(root, cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)
	require.NoError(t, first.WriteHistory(testState()))

	resumed := *cfg
	resumed.LoadState = true
	rec, err := New(root, &resumed, uuid.New(), testNetworks(&resumed, backend))
	require.NoError(t, err)

	// Repeated writes rewrite this run's rows after the earlier run's.
	require.NoError(t, rec.Checkpoint(trainer.Teacher, 2, testState()))
	require.NoError(t, rec.WriteHistory(testState()))

	paras := readCSV(t, rec.ParametersPath())
	assert.Len(t, paras, 7)
	assert.Equal(t, "iter", paras[0][0])
	assert.Equal(t, "3", paras[3][0])
	assert.Equal(t, "1", paras[4][0])
	assert.NoFileExists(t, rec.LossPath(trainer.Student))
}

func TestCheckpoint_WritesHistoryTables(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Burgers_inv_distill")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)

	require.NoError(t, rec.Checkpoint(trainer.Teacher, 3, testState()))
	assert.Len(t, readCSV(t, rec.LossPath(trainer.Teacher)), 4)
	assert.Len(t, readCSV(t, rec.ParametersPath()), 4)
	assert.NoFileExists(t, rec.LossPath(trainer.Student))
	assert.NoFileExists(t, filepath.Join(rec.Dir(), ClockFile))

	require.NoError(t, rec.Checkpoint(trainer.Student, 1, testState()))
	student := readCSV(t, rec.LossPath(trainer.Student))
	assert.Equal(t, []string{"iter", "loss", "loss_teach", "loss_rgl"}, student[0])
	assert.Len(t, student, 2)
}

func TestWriteHistory_ForwardHasNoCoefficients(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)

	s := testState()
	s.History.Theta = nil
	require.NoError(t, rec.WriteHistory(s))
	assert.NoFileExists(t, rec.ParametersPath())
}

func TestWriteClock(t *testing.T) {
	backend := cpu.New()
	root := t.TempDir()
	cfg := testConfig("Laplace_distill")
	runID := uuid.New()
	rec, err := New(root, cfg, runID, testNetworks(cfg, backend))
	require.NoError(t, err)

	require.NoError(t, rec.WriteClock(testState()))
	require.NoError(t, rec.WriteClock(testState()))

	rows := readCSV(t, filepath.Join(rec.Dir(), ClockFile))
	require.Len(t, rows, 3)
	assert.Equal(t, ClockHeader, rows[0])
	assert.Equal(t, []string{"Laplace_distill", "1", "PINN", "1.5", "0.25", runID.String()}, rows[1])
}

func TestWriteClock_NoStudent(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)
	require.NoError(t, rec.WriteClock(testState()))

	rows := readCSV(t, filepath.Join(rec.Dir(), ClockFile))
	assert.Equal(t, "0", rows[1][4])
}

func TestCopyConfig(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace")
	src := filepath.Join(t.TempDir(), "Laplace_1.csv")
	require.NoError(t, os.WriteFile(src, []byte("x_min,0\nx_max,1\n"), 0o600))
	cfg.Path = src

	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)
	require.NoError(t, rec.CopyConfig())

	data, err := os.ReadFile(filepath.Join(rec.Dir(), "Laplace_1.csv"))
	require.NoError(t, err)
	assert.Equal(t, "x_min,0\nx_max,1\n", string(data))
}

func TestCopyConfig_FromTable(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace")
	table, err := config.ParseTable(strings.NewReader("x_min,0\nmodel,PINN ResPINN\n"))
	require.NoError(t, err)
	cfg.Table = table

	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)
	require.NoError(t, rec.CopyConfig())

	rows := readCSV(t, filepath.Join(rec.Dir(), "Laplace_1.csv"))
	assert.Contains(t, rows, []string{"model", "PINN ResPINN"})
	assert.Contains(t, rows, []string{"x_min", "0"})
}

func TestWriteField(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace_distill")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)

	points := raw(t, []float64{0, 0, 0.5, 1}, 2, 2)
	values := raw(t, []float64{0.25, -1}, 2, 1)
	require.NoError(t, rec.WriteField(trainer.Student, points, values))

	rows := readCSV(t, rec.FieldPath(trainer.Student))
	assert.Equal(t, [][]string{{"x", "y", "u"}, {"0", "0", "0.25"}, {"0.5", "1", "-1"}}, rows)
	assert.True(t, strings.HasSuffix(rec.FieldPath(trainer.Student), "Laplace_distill_1_field_PINN_student.csv"))
}

func TestWriteField_MultiOutput3D(t *testing.T) {
	backend := cpu.New()
	cfg := testConfig("Laplace")
	rec, err := New(t.TempDir(), cfg, uuid.New(), testNetworks(cfg, backend))
	require.NoError(t, err)

	points := raw(t, []float64{1, 2, 3}, 1, 3)
	values := raw(t, []float64{4, 5}, 1, 2)
	require.NoError(t, rec.WriteField(trainer.Teacher, points, values))

	rows := readCSV(t, rec.FieldPath(trainer.Teacher))
	assert.Equal(t, []string{"x", "y", "z", "u_1", "u_2"}, rows[0])
}

func TestDropZero(t *testing.T) {
	cols := DropZero([]trainer.Column{
		{Name: "iter", Values: []float64{1, 2}},
		{Name: "loss", Values: []float64{0, 0}},
		{Name: "loss_f", Values: []float64{0, 1e-9}},
		{Name: "loss_rgl", Values: []float64{0, 0}},
	})
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"iter", "loss", "loss_f"}, names)
}

func TestComparison(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig("Burgers_inv")

	short := testState()
	short.History.Records = short.History.Records[:2]
	short.History.Theta = short.History.Theta[:2]

	cmp := NewComparison()
	cmp.Add("PINN", testState())
	cmp.Add("ResPINN", short)
	assert.Equal(t, 2, cmp.Len())
	require.NoError(t, cmp.Write(dir, cfg))

	loss := readCSV(t, filepath.Join(dir, LossDir, "Burgers_inv_1_loss_comparison.csv"))
	assert.Equal(t, []string{"iter", "PINN", "ResPINN"}, loss[0])
	require.Len(t, loss, 4)
	assert.Equal(t, []string{"3", "0.3333333333333333", ""}, loss[3])

	assert.FileExists(t, filepath.Join(dir, LossDir, "Burgers_inv_1_loss_f_comparison.csv"))
	assert.FileExists(t, filepath.Join(dir, LossDir, "Burgers_inv_1_loss_d_comparison.csv"))
	assert.NoFileExists(t, filepath.Join(dir, LossDir, "Burgers_inv_1_loss_b_comparison.csv"))

	paras := readCSV(t, filepath.Join(dir, ParametersDir, "Burgers_inv_1_parameters_1_comparison.csv"))
	assert.Equal(t, []string{"2", "0.2", "0.2"}, paras[2])
}
