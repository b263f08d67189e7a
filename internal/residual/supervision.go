package residual

import (
	"math"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// selectSupervision fixes the supervision set of the run:
//   - Laplace and Poisson global problems, and inverse Poisson, fit the
//     analytic solution at the interior points
//   - other global problems fit Database/<problem>_data.csv
//   - other inverse problems fit the calibration datasets of every serial
//   - forward problems have no supervision
func (e *Evaluator[B]) selectSupervision() error {
	p := e.cfg.Problem
	if p.Mode == config.ModeForward {
		return nil
	}

	switch {
	case p.Family == config.FamilyLaplace && p.Mode == config.ModeGlobal:
		e.analytic(LaplaceSolution)
	case p.Family == config.FamilyPoisson:
		if p.LowFrequency {
			e.analytic(PoissonLowFrequencySolution)
		} else {
			e.analytic(PoissonSolution)
		}
	default:
		paths := CalibrationPaths(e.dataDir(), p, e.cfg.DataSerials)
		if p.Mode == config.ModeGlobal {
			paths = []string{ReferencePath(e.dataDir(), p)}
		}

		data, err := LoadDataset(paths, Layout{Inputs: e.cfg.InputNum, Outputs: e.cfg.OutputNum})
		if err != nil {
			return err
		}
		e.supervision = []*tensor.RawTensor{data.Inputs}
		e.supervisionTarget = data.Targets
	}
	return nil
}

func (e *Evaluator[B]) analytic(solution func(x, y float64) float64) {
	e.supervision = e.interior
	e.supervisionTarget = pointwise(e.batch.Interior, solution)
}

func (e *Evaluator[B]) dataDir() string {
	if e.dataPath == "" {
		return "Database"
	}
	return e.dataPath
}

// LaplaceSolution is the harmonic reference u = x³ − 3xy².
func LaplaceSolution(x, y float64) float64 {
	return x*x*x - 3*x*y*y
}

// PoissonSolution is the reference solution of the Poisson source:
// (0.5 / 2π²)·Σ_{k=1..4} (−1)^{k+1} k sin(kπx) sin(kπy).
func PoissonSolution(x, y float64) float64 {
	u := 0.0
	for k := 1.0; k <= 4; k++ {
		sign := 1.0
		if int(k)%2 == 0 {
			sign = -1
		}
		u += sign * k * math.Sin(k*math.Pi*x) * math.Sin(k*math.Pi*y)
	}
	return 0.5 / (2 * math.Pi * math.Pi) * u
}

// PoissonLowFrequencySolution is sin(πx)sin(πy) + sin(2πx)sin(2πy).
func PoissonLowFrequencySolution(x, y float64) float64 {
	return math.Sin(math.Pi*x)*math.Sin(math.Pi*y) + math.Sin(2*math.Pi*x)*math.Sin(2*math.Pi*y)
}
