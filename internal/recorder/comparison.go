package recorder

import (
	"fmt"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/trainer"
)

// Comparison aggregates the histories of several models of one run into
// wide tables with one column per model.
type Comparison struct {
	models []string
	loss   [][]trainer.Column
	theta  [][]trainer.Column
}

// NewComparison returns an empty aggregator.
func NewComparison() *Comparison {
	return &Comparison{}
}

// Add records the teacher history of a model.
func (c *Comparison) Add(model string, state *trainer.State) {
	c.models = append(c.models, model)
	c.loss = append(c.loss, DropZero(state.History.Columns()))
	c.theta = append(c.theta, state.History.ThetaColumns())
}

// Len returns the number of models added.
func (c *Comparison) Len() int {
	return len(c.models)
}

// Write writes Loss/<problem>_<run>_<column>_comparison.csv for every loss
// column and Parameters/<problem>_<run>_<column>_comparison.csv for every
// coefficient column. Models with shorter histories leave empty cells.
func (c *Comparison) Write(dir string, cfg *config.Config) error {
	if err := c.write(filepath.Join(dir, LossDir), cfg, c.loss); err != nil {
		return err
	}
	return c.write(filepath.Join(dir, ParametersDir), cfg, c.theta)
}

func (c *Comparison) write(dir string, cfg *config.Config, tables [][]trainer.Column) error {
	for _, name := range columnNames(tables) {
		header := append([]string{"iter"}, c.models...)

		series := make([][]float64, len(tables))
		rowsN := 0
		for m, cols := range tables {
			i := slices.IndexFunc(cols, func(col trainer.Column) bool { return col.Name == name })
			if i < 0 {
				continue
			}
			series[m] = cols[i].Values
			rowsN = max(rowsN, len(series[m]))
		}

		rows := make([][]string, rowsN)
		for i := range rowsN {
			row := make([]string, 0, len(header))
			row = append(row, strconv.Itoa(i+1))
			for _, s := range series {
				if i < len(s) {
					row = append(row, formatFloat(s[i]))
				} else {
					row = append(row, "")
				}
			}
			rows[i] = row
		}

		path := filepath.Join(dir, fmt.Sprintf("%s_%s_comparison.csv", cfg.Name(), name))
		if err := writeRows(path, header, rows); err != nil {
			return err
		}
	}
	return nil
}

// columnNames lists every non-iter column in first-seen order.
func columnNames(tables [][]trainer.Column) []string {
	var names []string
	for _, cols := range tables {
		for _, col := range cols {
			if col.Name != "iter" && !slices.Contains(names, col.Name) {
				names = append(names, col.Name)
			}
		}
	}
	return names
}
