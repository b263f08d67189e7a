package residual

import (
	"fmt"
	"slices"

	"github.com/ZitiLiu/Psi-NN/internal/config"
	"github.com/ZitiLiu/Psi-NN/internal/nn"
	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Norm selects the regularization penalty.
type Norm int

// Regularization norms.
const (
	// L2 is λ·‖p‖ with the non-squared Frobenius norm.
	L2 Norm = iota
	// L1 is λ·Σ|p|.
	L1
	// GrOWL weights the descending row 2-norms of each weight matrix by
	// linspace(1, 0.1, rows). λ is not applied.
	GrOWL
)

func (n Norm) String() string {
	switch n {
	case L2:
		return "l2"
	case L1:
		return "l1"
	case GrOWL:
		return "growl"
	default:
		return fmt.Sprintf("Norm(%d)", int(n))
	}
}

// Subset selects the parameters a penalty applies to.
type Subset int

// Parameter subsets.
const (
	AllParameters Subset = iota
	WeightsOnly
)

// Regularizer is a penalty over network parameters.
type Regularizer struct {
	Norm   Norm
	Subset Subset
	Lambda float64
}

// DefaultLambda is the penalty weight used by both phases.
const DefaultLambda = config.DefaultRegularizationLambda

// Default penalties: L2 over every teacher parameter and over the student
// weights.
var (
	TeacherRegularizer = Regularizer{Norm: L2, Subset: AllParameters, Lambda: DefaultLambda}
	StudentRegularizer = Regularizer{Norm: L2, Subset: WeightsOnly, Lambda: DefaultLambda}
)

// ParseNorm resolves a regularization_norm value. The empty string is L2.
func ParseNorm(name string) (Norm, error) {
	switch name {
	case "", "l2":
		return L2, nil
	case "l1":
		return L1, nil
	case "growl":
		return GrOWL, nil
	default:
		return 0, fmt.Errorf("residual: unknown regularization norm %q", name)
	}
}

// ParseSubset resolves a regularization_subset value. The empty string
// selects all parameters.
func ParseSubset(name string) (Subset, error) {
	switch name {
	case "", "all":
		return AllParameters, nil
	case "weight":
		return WeightsOnly, nil
	default:
		return 0, fmt.Errorf("residual: unknown regularization subset %q", name)
	}
}

// Regularizers returns the teacher and student penalties of cfg. Both use
// the configured norm and weight; the teacher penalizes the configured
// subset and the student its weights only. A zero weight means
// DefaultLambda.
func Regularizers(cfg *config.Config) (teacher, student Regularizer, err error) {
	norm, err := ParseNorm(cfg.RegularizationNorm)
	if err != nil {
		return teacher, student, err
	}
	subset, err := ParseSubset(cfg.RegularizationSubset)
	if err != nil {
		return teacher, student, err
	}
	lambda := cfg.RegularizationLambda
	if lambda == 0 {
		lambda = DefaultLambda
	}
	teacher = Regularizer{Norm: norm, Subset: subset, Lambda: lambda}
	student = Regularizer{Norm: norm, Subset: WeightsOnly, Lambda: lambda}
	return teacher, student, nil
}

// Penalty sums the regularization term over params as a scalar tensor.
// GrOWL only applies to weight matrices.
func Penalty[B tensor.Backend](params []*nn.Parameter[B], reg Regularizer, backend B) *tensor.Tensor[B] {
	total := tensor.Scalar(0, backend)
	for _, p := range params {
		if reg.Subset == WeightsOnly && !p.IsWeight() {
			continue
		}

		w := p.Tensor()
		switch reg.Norm {
		case L2:
			total = total.Add(w.Norm().MulScalar(reg.Lambda))
		case L1:
			total = total.Add(w.Abs().Sum().MulScalar(reg.Lambda))
		case GrOWL:
			if !p.IsWeight() {
				continue
			}
			norms := w.RowNorms()
			weights, err := tensor.FromSlice(growlWeights(norms.Data()), norms.Shape(), backend)
			if err != nil {
				panic(err)
			}
			total = total.Add(norms.Mul(weights).Sum())
		}
	}
	return total
}

// growlWeights places linspace(1, 0.1, n) on the rows in descending order
// of their norms, so Σ weights[i]·norms[i] equals the sorted weighted sum.
func growlWeights(norms []float64) []float64 {
	order := make([]int, len(norms))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case norms[a] > norms[b]:
			return -1
		case norms[a] < norms[b]:
			return 1
		default:
			return 0
		}
	})

	lambdas := tensor.Linspace(1, 0.1, len(norms))
	out := make([]float64, len(norms))
	for rank, row := range order {
		out[row] = lambdas[rank]
	}
	return out
}
