package residual

import (
	"math"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/sampler"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// selectBoundary picks the boundary conditions for the problem family.
func (e *Evaluator[B]) selectBoundary() {
	if e.cfg.Problem.Monitored() {
		return
	}

	left := e.batch.Edge(sampler.XMin)
	switch e.cfg.Problem.Family {
	case config.FamilyBurgers:
		e.edgeTargets[sampler.XMin] = pointwise(left, func(_, y float64) float64 { return -math.Sin(math.Pi * y) })
		e.boundary = e.burgersBoundary
	case config.FamilyAllenCahn:
		e.edgeTargets[sampler.XMin] = pointwise(left, func(_, y float64) float64 { return y * y * math.Cos(math.Pi*y) })
		e.boundary = e.allenCahnBoundary
	case config.FamilyLaplace:
		for _, edge := range sampler.Edges {
			e.edgeTargets[edge] = pointwise(e.batch.Edge(edge), LaplaceSolution)
		}
		e.boundary = e.laplaceBoundary
	case config.FamilyPoisson:
		e.boundary = e.poissonBoundary
	default:
		e.logger.Printf("warning: no boundary conditions for problem %q, using zero", e.cfg.Problem.Name)
	}
}

// burgersBoundary enforces u(x_min, y) = −sin(πy) and u = 0 on the y_min
// and y_max edges.
func (e *Evaluator[B]) burgersBoundary(net nn.Network[B], combo int) *tensor.Tensor[B] {
	loss := e.edgeMSE(net, sampler.XMin, combo)
	loss = loss.Add(e.forward(net, e.edges[sampler.YMin][combo]).Square().Mean())
	return loss.Add(e.forward(net, e.edges[sampler.YMax][combo]).Square().Mean())
}

// allenCahnBoundary enforces u(x_min, y) = y²cos(πy) and periodicity in y:
// u and u_y match between the y_min and y_max edges.
func (e *Evaluator[B]) allenCahnBoundary(net nn.Network[B], combo int) *tensor.Tensor[B] {
	loss := e.edgeMSE(net, sampler.XMin, combo)

	down := e.jet(net, e.edges[sampler.YMin][combo], 0, 1)
	up := e.jet(net, e.edges[sampler.YMax][combo], 0, 1)
	loss = loss.Add(tensor.MSE(up.Value, down.Value))
	return loss.Add(tensor.MSE(down.D(1, 1), up.D(1, 1)))
}

// laplaceBoundary enforces u = x³ − 3xy² on all four edges.
func (e *Evaluator[B]) laplaceBoundary(net nn.Network[B], combo int) *tensor.Tensor[B] {
	loss := e.zero()
	for _, edge := range sampler.Edges {
		loss = loss.Add(e.edgeMSE(net, edge, combo))
	}
	return loss
}

func (e *Evaluator[B]) edgeMSE(net nn.Network[B], edge sampler.Edge, combo int) *tensor.Tensor[B] {
	return tensor.MSE(e.forward(net, e.edges[edge][combo]), e.constant(e.edgeTargets[edge]))
}

// poissonBoundary enforces u = 0 on the concatenation of all edges.
func (e *Evaluator[B]) poissonBoundary(net nn.Network[B], combo int) *tensor.Tensor[B] {
	outs := make([]*tensor.Tensor[B], len(sampler.Edges))
	for i, edge := range sampler.Edges {
		outs[i] = e.forward(net, e.edges[edge][combo])
	}
	return tensor.Cat(outs, 0).Square().Mean()
}
