package optim

import (
	"math"
	"slices"
)

// LRScheduler computes the learning rate for a given step from the base rate.
// Implementations are pure functions of their arguments.
type LRScheduler interface {
	// GetLR returns the learning rate after step scheduler steps.
	GetLR(step int, baseLR float64) float64

	// GetName returns the scheduler name for logging.
	GetName() string
}

// MultiStepLR decays the learning rate by Gamma once the step count reaches
// each milestone.
type MultiStepLR struct {
	Milestones []int   // Sorted step counts at which the rate decays
	Gamma      float64 // Multiplicative factor of LR decay
}

// NewMultiStepLR creates a multi-step scheduler. Milestones are sorted;
// gamma is used as given.
func NewMultiStepLR(milestones []int, gamma float64) *MultiStepLR {
	ms := slices.Clone(milestones)
	slices.Sort(ms)
	return &MultiStepLR{
		Milestones: ms,
		Gamma:      gamma,
	}
}

// GetLR returns baseLR·gamma^k where k counts the milestones ≤ step.
func (s *MultiStepLR) GetLR(step int, baseLR float64) float64 {
	times := 0
	for _, m := range s.Milestones {
		if m <= step {
			times++
		}
	}
	return baseLR * math.Pow(s.Gamma, float64(times))
}

// GetName returns "MultiStepLR".
func (s *MultiStepLR) GetName() string {
	return "MultiStepLR"
}

// Schedule binds a scheduler to an optimizer and advances it once per
// optimizer step.
type Schedule struct {
	scheduler LRScheduler
	optimizer Optimizer
	baseLR    float64
	step      int
}

// NewSchedule starts a schedule at the optimizer's current learning rate.
func NewSchedule(scheduler LRScheduler, optimizer Optimizer) *Schedule {
	return &Schedule{
		scheduler: scheduler,
		optimizer: optimizer,
		baseLR:    optimizer.GetLR(),
	}
}

// Step advances the schedule and applies the new rate to the optimizer.
// It reports whether the rate changed.
func (s *Schedule) Step() bool {
	s.step++
	lr := s.scheduler.GetLR(s.step, s.baseLR)
	if lr == s.optimizer.GetLR() {
		return false
	}
	s.optimizer.SetLR(lr)
	return true
}

// Steps returns the number of scheduler steps taken.
func (s *Schedule) Steps() int {
	return s.step
}

// LR returns the optimizer's current learning rate.
func (s *Schedule) LR() float64 {
	return s.optimizer.GetLR()
}
