package residual

import (
	"math"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// selectEquation picks the PDE residual for the problem. Global problems
// have no equation term. Families without a registered form train with a
// zero residual, which is reported once here.
func (e *Evaluator[B]) selectEquation() {
	if e.cfg.Problem.Mode == config.ModeGlobal {
		return
	}

	switch e.cfg.Problem.Family {
	case config.FamilyBurgers:
		e.equation = e.burgers
	case config.FamilyLaplace:
		e.equation = e.laplace
	case config.FamilyPoisson:
		e.source = pointwise(e.batch.Interior, PoissonSource)
		e.equation = e.poisson
	default:
		e.logger.Printf("warning: no equation residual for problem %q (family %s), using zero", e.cfg.Problem.Name, e.cfg.Problem.Family)
	}
}

// burgers is the convection-diffusion residual u_x + u·u_y − ν·u_yy with
// ν = p₀/π for forward problems and ν = θ₀ for inverse ones.
func (e *Evaluator[B]) burgers(net nn.Network[B], combo int) *tensor.Tensor[B] {
	j := e.jet(net, e.interior[combo], 1, 2)
	u, ux, uy, uyy := j.Value, j.D(0, 1), j.D(1, 1), j.D(1, 2)

	var nu *tensor.Tensor[B]
	if e.cfg.Problem.Mode == config.ModeInverse {
		nu = e.thetaAt(0)
	} else {
		nu = e.scalar(e.control(combo) / math.Pi)
	}

	r := ux.Add(u.Mul(uy)).Sub(uyy.Mul(nu))
	return r.Square().Mean()
}

// laplace is the harmonic residual u_xx + c·u_yy, c = 1 or θ₀.
func (e *Evaluator[B]) laplace(net nn.Network[B], combo int) *tensor.Tensor[B] {
	return e.harmonic(net, combo).Square().Mean()
}

// poisson is the source-driven residual u_xx + c·u_yy − f.
func (e *Evaluator[B]) poisson(net nn.Network[B], combo int) *tensor.Tensor[B] {
	r := e.harmonic(net, combo).Sub(e.constant(e.source))
	return r.Square().Mean()
}

func (e *Evaluator[B]) harmonic(net nn.Network[B], combo int) *tensor.Tensor[B] {
	j := e.jet(net, e.interior[combo], 2, 2)
	uxx, uyy := j.D(0, 2), j.D(1, 2)
	if e.cfg.Problem.Mode == config.ModeInverse {
		uyy = uyy.Mul(e.thetaAt(0))
	}
	return uxx.Add(uyy)
}

// control returns the first control value of a combination, or of the
// first para_ctrl group when control parameters are not swept.
func (e *Evaluator[B]) control(combo int) float64 {
	if e.batch.Sweeping() {
		return e.batch.Combinations[combo][0]
	}
	if len(e.cfg.ParaCtrl) == 0 || len(e.cfg.ParaCtrl[0]) == 0 {
		return 0
	}
	return e.cfg.ParaCtrl[0][0]
}

// PoissonSource is f(x, y) = Σ_{k=1..4} ½(−1)^{k+1} k² sin(kπx) sin(kπy).
func PoissonSource(x, y float64) float64 {
	f := 0.0
	for k := 1.0; k <= 4; k++ {
		sign := 1.0
		if int(k)%2 == 0 {
			sign = -1
		}
		f += 0.5 * sign * k * k * math.Sin(k*math.Pi*x) * math.Sin(k*math.Pi*y)
	}
	return f
}
