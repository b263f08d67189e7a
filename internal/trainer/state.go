package trainer

import (
	"fmt"
	"time"
)

// Phase is the position of the training state machine.
type Phase int

// Training phases.
const (
	PhaseInitializing Phase = iota
	PhaseTeacherGroup
	PhaseTeacherStep
	PhaseTeacherCheckpoint
	PhaseStudentGroup
	PhaseStudentStep
	PhaseStudentCheckpoint
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseTeacherGroup:
		return "teacher group"
	case PhaseTeacherStep:
		return "teacher step"
	case PhaseTeacherCheckpoint:
		return "teacher checkpoint"
	case PhaseStudentGroup:
		return "student group"
	case PhaseStudentStep:
		return "student step"
	case PhaseStudentCheckpoint:
		return "student checkpoint"
	case PhaseCompleted:
		return "completed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Role identifies which network a checkpoint belongs to.
type Role int

// Network roles.
const (
	Teacher Role = iota
	Student
)

func (r Role) String() string {
	if r == Student {
		return "student"
	}
	return "teacher"
}

// LossRecord is the snapshot of one teacher step.
type LossRecord struct {
	Iter           int
	Loss           float64
	Equation       float64 // loss_f
	Boundary       float64 // loss_b
	Data           float64 // loss_d
	Regularization float64 // loss_rgl
}

// StudentRecord is the snapshot of one student step.
type StudentRecord struct {
	Iter           int
	Loss           float64
	Teach          float64
	Regularization float64
}

// Column is a named history column.
type Column struct {
	Name   string
	Values []float64
}

// History is the teacher trajectory: one record per inner step and, for
// problems that learn coefficients, one coefficient vector per step.
type History struct {
	Records []LossRecord
	Theta   [][]float64
}

// Len returns the number of recorded steps.
func (h *History) Len() int {
	return len(h.Records)
}

// Columns returns iter, loss, loss_f, loss_b, loss_d and loss_rgl.
func (h *History) Columns() []Column {
	n := len(h.Records)
	cols := []Column{
		{Name: "iter", Values: make([]float64, n)},
		{Name: "loss", Values: make([]float64, n)},
		{Name: "loss_f", Values: make([]float64, n)},
		{Name: "loss_b", Values: make([]float64, n)},
		{Name: "loss_d", Values: make([]float64, n)},
		{Name: "loss_rgl", Values: make([]float64, n)},
	}
	for i, r := range h.Records {
		cols[0].Values[i] = float64(r.Iter)
		cols[1].Values[i] = r.Loss
		cols[2].Values[i] = r.Equation
		cols[3].Values[i] = r.Boundary
		cols[4].Values[i] = r.Data
		cols[5].Values[i] = r.Regularization
	}
	return cols
}

// ThetaColumns returns iter followed by parameters_1..k.
func (h *History) ThetaColumns() []Column {
	if len(h.Theta) == 0 {
		return nil
	}
	k := len(h.Theta[0])
	cols := make([]Column, k+1)
	cols[0] = Column{Name: "iter", Values: make([]float64, len(h.Theta))}
	for j := 1; j <= k; j++ {
		cols[j] = Column{Name: fmt.Sprintf("parameters_%d", j), Values: make([]float64, len(h.Theta))}
	}
	for i, theta := range h.Theta {
		cols[0].Values[i] = float64(h.Records[i].Iter)
		for j, v := range theta {
			cols[j+1].Values[i] = v
		}
	}
	return cols
}

// StudentHistory is the student trajectory.
type StudentHistory struct {
	Records []StudentRecord
}

// Len returns the number of recorded student steps.
func (h *StudentHistory) Len() int {
	return len(h.Records)
}

// Columns returns iter, loss, loss_teach and loss_rgl.
func (h *StudentHistory) Columns() []Column {
	n := len(h.Records)
	cols := []Column{
		{Name: "iter", Values: make([]float64, n)},
		{Name: "loss", Values: make([]float64, n)},
		{Name: "loss_teach", Values: make([]float64, n)},
		{Name: "loss_rgl", Values: make([]float64, n)},
	}
	for i, r := range h.Records {
		cols[0].Values[i] = float64(r.Iter)
		cols[1].Values[i] = r.Loss
		cols[2].Values[i] = r.Teach
		cols[3].Values[i] = r.Regularization
	}
	return cols
}

// State is owned by the training loop and handed to the recorder.
type State struct {
	Phase Phase
	Group int

	TeacherIter int
	StudentIter int

	History History
	Student StudentHistory

	TeacherElapsed time.Duration
	StudentElapsed time.Duration
}

// Last returns the most recent teacher record, if any.
func (s *State) Last() (LossRecord, bool) {
	if len(s.History.Records) == 0 {
		return LossRecord{}, false
	}
	return s.History.Records[len(s.History.Records)-1], true
}
