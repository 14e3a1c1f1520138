package textpatch

import "fmt"

// Range is the half-open interval [Start, End) of byte offsets into a document.
type Range struct {
	Start int `json:"startIndex"`
	End   int `json:"endIndex"`
}

// NewRange returns the range [start, end) or an error if it is malformed.
func NewRange(start, end int) (Range, error) {
	r := Range{Start: start, End: end}
	if !r.valid() {
		return Range{}, &ConflictError{Ranges: []Range{r}, Reason: "malformed range"}
	}
	return r, nil
}

// Len returns the number of bytes covered by the range.
func (r Range) Len() int {
	return r.End - r.Start
}

// Empty reports whether the range covers no bytes, i.e. it is an insertion point.
func (r Range) Empty() bool {
	return r.Start == r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d, %d)", r.Start, r.End)
}

func (r Range) valid() bool {
	return r.Start >= 0 && r.Start <= r.End
}

// conflicts reports whether two ranges cannot both be applied to the same
// document. Ranges that share a byte conflict; adjacent ranges do not. An
// insertion point conflicts with a range that strictly contains it, and two
// insertions at the same offset conflict because their order is undefined.
func (r Range) conflicts(o Range) bool {
	switch {
	case r.Empty() && o.Empty():
		return r.Start == o.Start
	case r.Empty():
		return o.Start < r.Start && r.Start < o.End
	case o.Empty():
		return r.Start < o.Start && o.Start < r.End
	default:
		return r.Start < o.End && o.Start < r.End
	}
}
