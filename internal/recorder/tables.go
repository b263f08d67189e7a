package recorder

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
	"github.com/ZitiLiu/Psi-NN/internal/trainer"
)

// ClockHeader is the header row of the clock log.
var ClockHeader = []string{"Question", "Number", "Module", "Training Time", "Student Training Time", "Run ID"}

// LossPath returns the loss table path of a network.
func (r *Recorder[B]) LossPath(role trainer.Role) string {
	return filepath.Join(r.dir, LossDir, fmt.Sprintf("%s_loss_%s%s.csv", r.cfg.Name(), r.kind(role), roleSuffix(role)))
}

// ParametersPath returns the coefficient table path.
func (r *Recorder[B]) ParametersPath() string {
	return filepath.Join(r.dir, ParametersDir, fmt.Sprintf("%s_paras_%s.csv", r.cfg.Name(), r.nets.Kind))
}

// FieldPath returns the field table path of a network.
func (r *Recorder[B]) FieldPath(role trainer.Role) string {
	return filepath.Join(r.dir, FieldsDir, fmt.Sprintf("%s_field_%s%s.csv", r.cfg.Name(), r.kind(role), roleSuffix(role)))
}

// WriteHistory writes the loss tables and, for problems that learn
// coefficients, the coefficient table. Teacher loss columns that are zero
// throughout are dropped. When resuming from saved weights the coefficient
// rows of the earlier run are kept ahead of this run's.
func (r *Recorder[B]) WriteHistory(state *trainer.State) error {
	if err := r.writeHistory(trainer.Teacher, state); err != nil {
		return err
	}
	if r.nets.Student != nil {
		return r.writeHistory(trainer.Student, state)
	}
	return nil
}

// writeHistory rewrites the tables of one role from the full history: the
// student loss table, or the teacher loss and coefficient tables.
func (r *Recorder[B]) writeHistory(role trainer.Role, state *trainer.State) error {
	if role == trainer.Student {
		return writeColumns(r.LossPath(trainer.Student), state.Student.Columns(), nil)
	}
	if err := writeColumns(r.LossPath(trainer.Teacher), DropZero(state.History.Columns()), nil); err != nil {
		return err
	}
	if !r.cfg.Problem.Monitored() {
		return nil
	}
	cols := state.History.ThetaColumns()
	if cols == nil {
		return nil
	}
	return writeColumns(r.ParametersPath(), cols, r.priorParams)
}

// readPrior returns the data rows of an existing table, or nil when the
// file does not exist.
func readPrior(path string) ([][]string, error) {
	//nolint:gosec // G304: path is derived from the results directory
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recorder: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("recorder: %s: %w", path, err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// WriteClock appends one row to the clock log, writing the header when
// the file is new.
func (r *Recorder[B]) WriteClock(state *trainer.State) error {
	student := 0.0
	if r.nets.Student != nil {
		student = state.StudentElapsed.Seconds()
	}
	return appendRows(filepath.Join(r.dir, ClockFile), ClockHeader, [][]string{{
		r.cfg.Problem.Name,
		strconv.Itoa(r.cfg.Run),
		string(r.nets.Kind),
		formatFloat(state.TeacherElapsed.Seconds()),
		formatFloat(student),
		r.runID.String(),
	}})
}

// CopyConfig copies the configuration table next to the results as
// <problem>_<run>.csv.
func (r *Recorder[B]) CopyConfig() error {
	dst := filepath.Join(r.dir, r.cfg.Name()+".csv")
	if r.cfg.Path != "" {
		data, err := os.ReadFile(r.cfg.Path)
		if err != nil {
			return fmt.Errorf("recorder: copy config: %w", err)
		}
		return os.WriteFile(dst, data, 0o600)
	}
	if r.cfg.Table == nil {
		return nil
	}

	rows := make([][]string, 0, len(r.cfg.Table.Keys()))
	for _, key := range r.cfg.Table.Keys() {
		v, _ := r.cfg.Table.String(key)
		rows = append(rows, []string{key, v})
	}
	return writeRows(dst, nil, rows)
}

// WriteField writes the predictions of a network on the figure grid:
// one column per coordinate followed by u (or u_1..u_n).
func (r *Recorder[B]) WriteField(role trainer.Role, points, values *tensor.RawTensor) error {
	n, d := points.Shape()[0], points.Shape()[1]
	out := values.Shape()[1]

	coords := []string{"x", "y", "z"}
	header := make([]string, 0, d+out)
	header = append(header, coords[:min(d, len(coords))]...)
	for i := len(header); i < d; i++ {
		header = append(header, fmt.Sprintf("x_%d", i+1))
	}
	if out == 1 {
		header = append(header, "u")
	} else {
		for j := 1; j <= out; j++ {
			header = append(header, fmt.Sprintf("u_%d", j))
		}
	}

	p, v := points.Data(), values.Data()
	rows := make([][]string, n)
	for i := range n {
		row := make([]string, 0, d+out)
		for j := range d {
			row = append(row, formatFloat(p[i*d+j]))
		}
		for j := range out {
			row = append(row, formatFloat(v[i*out+j]))
		}
		rows[i] = row
	}
	return writeRows(r.FieldPath(role), header, rows)
}

// DropZero removes every column other than iter and loss whose values are
// all zero.
func DropZero(cols []trainer.Column) []trainer.Column {
	kept := make([]trainer.Column, 0, len(cols))
	for _, c := range cols {
		if c.Name == "iter" || c.Name == "loss" || !allZero(c.Values) {
			kept = append(kept, c)
		}
	}
	return kept
}

func allZero(vs []float64) bool {
	for _, v := range vs {
		if v != 0 {
			return false
		}
	}
	return true
}

// writeColumns writes header and prior rows followed by one row per
// history entry.
func writeColumns(path string, cols []trainer.Column, prior [][]string) error {
	header := make([]string, len(cols))
	for j, c := range cols {
		header[j] = c.Name
	}
	var n int
	if len(cols) > 0 {
		n = len(cols[0].Values)
	}
	rows := make([][]string, len(prior), len(prior)+n)
	copy(rows, prior)
	for i := range n {
		row := make([]string, len(cols))
		for j, c := range cols {
			if j == 0 && c.Name == "iter" {
				row[j] = strconv.Itoa(int(c.Values[i]))
				continue
			}
			row[j] = formatFloat(c.Values[i])
		}
		rows = append(rows, row)
	}
	return writeRows(path, header, rows)
}

func writeRows(path string, header []string, rows [][]string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return encode(f, header, rows)
}

func appendRows(path string, header []string, rows [][]string) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if !fresh {
		header = nil
	}
	return encode(f, header, rows)
}

func encode(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("recorder: %w", err)
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("recorder: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
