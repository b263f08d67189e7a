package config

import (
	"slices"
	"strings"
)

// Family is the PDE family a problem belongs to.
type Family int

// Problem families.
const (
	FamilyUnknown Family = iota
	FamilyBurgers
	FamilyAllenCahn
	FamilyLaplace
	FamilyPoisson
)

func (f Family) String() string {
	switch f {
	case FamilyBurgers:
		return "Burgers"
	case FamilyAllenCahn:
		return "AllenCahn"
	case FamilyLaplace:
		return "Laplace"
	case FamilyPoisson:
		return "Poisson"
	default:
		return "Unknown"
	}
}

// Mode selects which losses drive teacher training.
type Mode int

// Problem modes.
const (
	// ModeForward trains on equation and boundary residuals.
	ModeForward Mode = iota
	// ModeInverse fits data and equation, learning unknown coefficients.
	ModeInverse
	// ModeGlobal fits a known global solution or reference dataset.
	ModeGlobal
)

func (m Mode) String() string {
	switch m {
	case ModeInverse:
		return "inverse"
	case ModeGlobal:
		return "global"
	default:
		return "forward"
	}
}

// Problem is the tagged description of a problem name such as
// "Burgers_inv_distill". It is computed once when the configuration is
// loaded.
type Problem struct {
	Name         string // Full problem name
	Base         string // Leading name segment ("Burgers")
	Family       Family
	Mode         Mode
	Distill      bool // Train a student network after every teacher group
	LowFrequency bool // Low-frequency Poisson reference solution
}

// ParseProblem tags a problem name.
//
// Family markers are matched as substrings in the order Burgers, AC,
// Laplace, Poisson. "global" takes precedence over "inv".
func ParseProblem(name string) Problem {
	p := Problem{Name: name, Base: name}
	if i := strings.IndexByte(name, '_'); i >= 0 {
		p.Base = name[:i]
	}

	switch {
	case strings.Contains(name, "Burgers"):
		p.Family = FamilyBurgers
	case strings.Contains(name, "AC"):
		p.Family = FamilyAllenCahn
	case strings.Contains(name, "Laplace"):
		p.Family = FamilyLaplace
	case strings.Contains(name, "Poisson"):
		p.Family = FamilyPoisson
	}

	switch {
	case strings.Contains(name, "global"):
		p.Mode = ModeGlobal
	case strings.Contains(name, "inv"):
		p.Mode = ModeInverse
	}

	p.Distill = strings.Contains(name, "distill")
	p.LowFrequency = slices.Contains(strings.Split(name, "_"), "lf")
	return p
}

// Monitored reports whether the problem learns from data (inverse or
// global): such problems skip the boundary loss and record coefficients.
func (p Problem) Monitored() bool {
	return p.Mode != ModeForward
}
