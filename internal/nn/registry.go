package nn

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/ZitiLiu/Psi-NN/internal/tensor"
)

// Kind names a registered network architecture.
type Kind string

// Registered architectures.
const (
	KindPINN    Kind = "PINN"
	KindResPINN Kind = "ResPINN"
	// KindDivFree is a plain MLP whose outputs sum to a stream function ψ.
	// Its predicted field is the velocity (−∂ψ/∂y, ∂ψ/∂x), see Velocity.
	KindDivFree Kind = "PINN_post_divfree"
)

var registry = map[Kind]struct{}{
	KindPINN:    {},
	KindResPINN: {},
	KindDivFree: {},
}

// Lookup resolves a model name from a configuration table.
func Lookup(name string) (Kind, bool) {
	_, ok := registry[Kind(name)]
	return Kind(name), ok
}

// Kinds lists the registered architecture names in sorted order.
func Kinds() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Build constructs a network of the given kind.
func Build[B tensor.Backend](kind Kind, layers []int, rng *rand.Rand, backend B) (Network[B], error) {
	switch kind {
	case KindPINN:
		return NewMLP(layers, rng, backend), nil
	case KindResPINN:
		return NewResMLP(layers, rng, backend), nil
	case KindDivFree:
		return newMLP(layers, false, KindDivFree, rng, backend), nil
	default:
		return nil, fmt.Errorf("unknown network kind %q (registered: %v)", kind, Kinds())
	}
}
