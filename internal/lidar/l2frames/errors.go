package l2frames

import (
	"errors"
	"fmt"
)

// ErrMissingColumn is the cause of a MalformedDataError when a row is too
// short to contain a spatial column.
var ErrMissingColumn = errors.New("missing spatial column")

// ErrNonFinite is the cause of a MalformedDataError when a spatial value
// parses to NaN or ±Inf.
var ErrNonFinite = errors.New("non-finite spatial value")

// maxReportedGaps bounds the Missing slice of a DiscontinuityError so a
// sparse directory (e.g. frames 0 and 1000000) cannot allocate a huge list.
const maxReportedGaps = 64

// DiscontinuityError reports that the frame indices in a directory do not
// form a contiguous range.
type DiscontinuityError struct {
	Dir          string
	Min, Max     int
	Missing      []int // first maxReportedGaps missing indices, ascending
	MissingCount int   // total number of missing indices
	Duplicates   []int // indices present under more than one filename
}

func (e *DiscontinuityError) Error() string {
	msg := fmt.Sprintf("frame indices in %s are not contiguous between %d and %d", e.Dir, e.Min, e.Max)
	if e.MissingCount > 0 {
		msg += fmt.Sprintf(": %d missing %v", e.MissingCount, e.Missing)
		if e.MissingCount > len(e.Missing) {
			msg += "..."
		}
	}
	if len(e.Duplicates) > 0 {
		msg += fmt.Sprintf(": duplicated %v", e.Duplicates)
	}
	return msg
}

// FrameNotFoundError reports that a frame file does not exist.
// It unwraps to the underlying filesystem error, so
// errors.Is(err, fs.ErrNotExist) holds.
type FrameNotFoundError struct {
	Path string
	Err  error
}

func (e *FrameNotFoundError) Error() string {
	return fmt.Sprintf("frame file not found: %s", e.Path)
}

func (e *FrameNotFoundError) Unwrap() error { return e.Err }

// MalformedDataError reports a frame file that is not valid tabular data or
// whose spatial columns are missing or non-numeric.
// Line and Column are 1-based; zero means unknown.
type MalformedDataError struct {
	Path   string
	Line   int
	Column int
	Err    error
}

func (e *MalformedDataError) Error() string {
	switch {
	case e.Line > 0 && e.Column > 0:
		return fmt.Sprintf("malformed frame %s at line %d, column %d: %v", e.Path, e.Line, e.Column, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("malformed frame %s at line %d: %v", e.Path, e.Line, e.Err)
	default:
		return fmt.Sprintf("malformed frame %s: %v", e.Path, e.Err)
	}
}

func (e *MalformedDataError) Unwrap() error { return e.Err }
