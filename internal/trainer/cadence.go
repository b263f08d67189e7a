package trainer

// Cadence decides at which iterations progress is reported.
//
// skip[i] pairs with gap[i]: once iteration skip[i]+1 is reached the
// reporting gap becomes gap[i]. Before any threshold matches, the first
// gap applies.
type Cadence struct {
	skip    []int
	gap     []int
	current int
}

// NewCadence returns a cadence over paired thresholds and gaps. Both
// slices must be non-empty and of equal length, with positive gaps.
func NewCadence(skip, gap []int) *Cadence {
	return &Cadence{
		skip:    append([]int(nil), skip...),
		gap:     append([]int(nil), gap...),
		current: gap[0],
	}
}

// Due updates the active gap for iteration iter (1-based) and reports
// whether iter is a reporting iteration.
func (c *Cadence) Due(iter int) bool {
	for i, s := range c.skip {
		if iter-1 == s {
			c.current = c.gap[i]
			break
		}
	}
	return iter%c.current == 0
}

// Gap returns the active gap.
func (c *Cadence) Gap() int {
	return c.current
}
