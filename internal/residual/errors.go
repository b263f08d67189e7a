package residual

import (
	"errors"
	"fmt"
)

// ErrEmptyDataset indicates a supervision file without data rows.
var ErrEmptyDataset = errors.New("residual: dataset has no rows")

// ShapeMismatchError reports a dataset row whose column count does not
// match the configured input and output widths.
type ShapeMismatchError struct {
	Path string
	Row  int // 1-based CSV row
	Got  int
	Want int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: row %d has %d columns, want %d", e.Path, e.Row, e.Got, e.Want)
}
