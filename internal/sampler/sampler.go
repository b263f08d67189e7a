// Package sampler builds the fixed collocation points a run trains on:
// the interior grid, the four boundary edges, the control-parameter
// combinations and the evaluation grid used for field export.
//
// Sampling is deterministic. A Batch is built once per run and only read
// afterwards.
package sampler

import (
	"fmt"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// PoissonEdgeNodes is the per-edge point count used by Poisson problems
// regardless of bun_node_num.
const PoissonEdgeNodes = 1000

// Edge identifies one side of the rectangular domain.
type Edge int

// Boundary edges in evaluation order.
const (
	XMin Edge = iota // x = x_min, y varies
	YMin             // y = y_min, x varies
	YMax             // y = y_max, x varies
	XMax             // x = x_max, y varies
)

// Edges lists every edge in evaluation order.
var Edges = [...]Edge{XMin, YMin, YMax, XMax}

func (e Edge) String() string {
	switch e {
	case XMin:
		return "x_min"
	case YMin:
		return "y_min"
	case YMax:
		return "y_max"
	case XMax:
		return "x_max"
	default:
		return fmt.Sprintf("Edge(%d)", int(e))
	}
}

// Batch holds every point set of a run.
type Batch struct {
	Interior     *tensor.RawTensor    // [grid_node_num^d, d]
	Boundary     [4]*tensor.RawTensor // indexed by Edge, [M, d] each
	Combinations [][]float64          // nil unless para_ctrl_add
}

// New samples the interior, the boundary and the control combinations
// for cfg.
func New(cfg *config.Config) *Batch {
	return &Batch{
		Interior:     Interior(cfg),
		Boundary:     Boundary(cfg),
		Combinations: Combinations(cfg),
	}
}

// Edge returns the points of one boundary edge.
func (b *Batch) Edge(e Edge) *tensor.RawTensor {
	return b.Boundary[e]
}

// BoundaryPoints returns the total number of boundary points.
func (b *Batch) BoundaryPoints() int {
	n := 0
	for _, e := range b.Boundary {
		n += e.Shape()[0]
	}
	return n
}

// Sweeping reports whether control parameters are appended to the inputs.
func (b *Batch) Sweeping() bool {
	return len(b.Combinations) > 0
}

// Inputs expands points into one network input per control combination.
// Without sweeping it returns points alone.
func (b *Batch) Inputs(points *tensor.RawTensor) []*tensor.RawTensor {
	if !b.Sweeping() {
		return []*tensor.RawTensor{points}
	}
	out := make([]*tensor.RawTensor, len(b.Combinations))
	for i, combo := range b.Combinations {
		out[i] = WithParameters(points, combo)
	}
	return out
}

// Interior returns the tensor-product grid with grid_node_num points per
// axis, endpoints included.
//
// 2-D grids are x-major (ij indexing): row i·n+j holds (x_i, y_j).
// 3-D grids use xy meshgrid ordering: y slowest, then x, then z.
func Interior(cfg *config.Config) *tensor.RawTensor {
	n := cfg.GridNodeNum
	xs := tensor.Linspace(cfg.XMin, cfg.XMax, n)
	ys := tensor.Linspace(cfg.YMin, cfg.YMax, n)

	if cfg.CoordNum == 3 {
		zs := tensor.Linspace(cfg.ZMin, cfg.ZMax, n)
		return meshXY3(xs, ys, zs)
	}

	data := make([]float64, 0, n*n*2)
	for _, x := range xs {
		for _, y := range ys {
			data = append(data, x, y)
		}
	}
	return rows(data, 2)
}

// FigureGrid returns the evaluation grid with figure_node_num points per
// axis in xy meshgrid ordering (y slowest).
func FigureGrid(cfg *config.Config) *tensor.RawTensor {
	n := cfg.FigureNodeNum
	xs := tensor.Linspace(cfg.XMin, cfg.XMax, n)
	ys := tensor.Linspace(cfg.YMin, cfg.YMax, n)

	if cfg.CoordNum == 3 {
		zs := tensor.Linspace(cfg.ZMin, cfg.ZMax, n)
		return meshXY3(xs, ys, zs)
	}

	data := make([]float64, 0, n*n*2)
	for _, y := range ys {
		for _, x := range xs {
			data = append(data, x, y)
		}
	}
	return rows(data, 2)
}

func meshXY3(xs, ys, zs []float64) *tensor.RawTensor {
	data := make([]float64, 0, len(xs)*len(ys)*len(zs)*3)
	for _, y := range ys {
		for _, x := range xs {
			for _, z := range zs {
				data = append(data, x, y, z)
			}
		}
	}
	return rows(data, 3)
}

// Boundary returns the four edges in Edges order. Each edge has
// bun_node_num points (PoissonEdgeNodes for Poisson problems). For 3-D
// domains the edges lie in the z = z_min plane.
func Boundary(cfg *config.Config) [4]*tensor.RawTensor {
	n := cfg.BunNodeNum
	if cfg.Problem.Family == config.FamilyPoisson {
		n = PoissonEdgeNodes
	}
	xs := tensor.Linspace(cfg.XMin, cfg.XMax, n)
	ys := tensor.Linspace(cfg.YMin, cfg.YMax, n)

	d := 2
	if cfg.CoordNum == 3 {
		d = 3
	}
	edge := func(x func(i int) float64, y func(i int) float64) *tensor.RawTensor {
		data := make([]float64, 0, n*d)
		for i := range n {
			data = append(data, x(i), y(i))
			if d == 3 {
				data = append(data, cfg.ZMin)
			}
		}
		return rows(data, d)
	}
	fixed := func(v float64) func(int) float64 { return func(int) float64 { return v } }
	along := func(vs []float64) func(int) float64 { return func(i int) float64 { return vs[i] } }

	var out [4]*tensor.RawTensor
	out[XMin] = edge(fixed(cfg.XMin), along(ys))
	out[YMin] = edge(along(xs), fixed(cfg.YMin))
	out[YMax] = edge(along(xs), fixed(cfg.YMax))
	out[XMax] = edge(fixed(cfg.XMax), along(ys))
	return out
}

// Combinations returns the cartesian product of the para_ctrl groups when
// para_ctrl_add is set, and nil otherwise.
func Combinations(cfg *config.Config) [][]float64 {
	if !cfg.ParaCtrlAdd {
		return nil
	}
	return Product(cfg.ParaCtrl)
}

// Product returns the cartesian product of groups in order: the first
// group varies slowest.
func Product(groups [][]float64) [][]float64 {
	if len(groups) == 0 {
		return nil
	}
	out := [][]float64{{}}
	for _, group := range groups {
		next := make([][]float64, 0, len(out)*len(group))
		for _, prefix := range out {
			for _, v := range group {
				combo := make([]float64, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		out = next
	}
	return out
}

// WithParameters appends combo to every row of points.
func WithParameters(points *tensor.RawTensor, combo []float64) *tensor.RawTensor {
	shape := points.Shape()
	n, d := shape[0], shape[1]
	width := d + len(combo)

	src := points.Data()
	data := make([]float64, 0, n*width)
	for i := range n {
		data = append(data, src[i*d:(i+1)*d]...)
		data = append(data, combo...)
	}
	return rows(data, width)
}

func rows(data []float64, width int) *tensor.RawTensor {
	r, err := tensor.RawFromSlice(data, tensor.Shape{len(data) / width, width}, tensor.CPU)
	if err != nil {
		panic(err)
	}
	return r
}
