package residual

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Dataset is a fixed supervision set: network inputs and target outputs.
type Dataset struct {
	Inputs  *tensor.RawTensor // [N, inputs]
	Targets *tensor.RawTensor // [N, outputs]
}

// Layout describes how dataset columns split into inputs and targets.
// Every row has exactly Inputs+Outputs columns.
type Layout struct {
	Inputs  int
	Outputs int
}

func (l Layout) width() int {
	return l.Inputs + l.Outputs
}

// ReferencePath returns the reference solution file of a global problem.
func ReferencePath(dir string, p config.Problem) string {
	return filepath.Join(dir, p.Name+"_data.csv")
}

// CalibrationPaths returns the calibration files of an inverse problem, one
// per data serial.
func CalibrationPaths(dir string, p config.Problem, serials []string) []string {
	paths := make([]string, len(serials))
	for i, s := range serials {
		paths[i] = filepath.Join(dir, fmt.Sprintf("%s_inv_data_%s.csv", p.Base, s))
	}
	return paths
}

// LoadDataset reads every file and concatenates the rows in order.
//
// Files are row-major CSV. A first row that does not parse as numbers is
// treated as a header and skipped.
func LoadDataset(paths []string, layout Layout) (*Dataset, error) {
	var inputs, targets []float64
	for _, path := range paths {
		in, out, err := readRows(path, layout)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in...)
		targets = append(targets, out...)
	}

	n := len(inputs) / max(layout.Inputs, 1)
	if n == 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(paths, ", "), ErrEmptyDataset)
	}

	in, err := tensor.RawFromSlice(inputs, tensor.Shape{n, layout.Inputs}, tensor.CPU)
	if err != nil {
		return nil, err
	}
	out, err := tensor.RawFromSlice(targets, tensor.Shape{n, layout.Outputs}, tensor.CPU)
	if err != nil {
		return nil, err
	}
	return &Dataset{Inputs: in, Targets: out}, nil
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return d.Inputs.Shape()[0]
}

func readRows(path string, layout Layout) (inputs, targets []float64, err error) {
	//nolint:gosec // G304: dataset paths come from the run configuration
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	want := layout.width()
	values := make([]float64, want)
	for row := 1; ; row++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("%s: failed to read CSV: %w", path, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}

		if len(record) != want {
			return nil, nil, &ShapeMismatchError{Path: path, Row: row, Got: len(record), Want: want}
		}

		parsed := true
		for i := range want {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
			if err != nil {
				parsed = false
				break
			}
			values[i] = v
		}
		if !parsed {
			if row == 1 {
				continue // header
			}
			return nil, nil, fmt.Errorf("%s: row %d: non-numeric value", path, row)
		}

		inputs = append(inputs, values[:layout.Inputs]...)
		targets = append(targets, values[layout.Inputs:]...)
	}
	return inputs, targets, nil
}
