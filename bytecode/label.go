package bytecode

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Label is an opaque jump target. A well-formed body attaches each label it
// references to exactly one instruction.
type Label int

// NoLabel is the zero Label. Allocators never issue it.
const NoLabel Label = 0

// String returns the label in its textual form, e.g. "L3".
func (l Label) String() string {
	return "L" + strconv.Itoa(int(l))
}

// ParseLabel parses the textual form produced by Label.String.
func ParseLabel(s string) (Label, error) {
	if !strings.HasPrefix(s, "L") {
		return NoLabel, fmt.Errorf("invalid label %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return NoLabel, fmt.Errorf("invalid label %q", s)
	}
	return Label(n), nil
}

// LabelSet is an unordered set of labels.
type LabelSet map[Label]struct{}

// NewLabelSet returns a set holding the given labels.
func NewLabelSet(labels ...Label) LabelSet {
	s := make(LabelSet, len(labels))
	for _, l := range labels {
		s[l] = struct{}{}
	}
	return s
}

// Add inserts labels into the set.
func (s LabelSet) Add(labels ...Label) {
	for _, l := range labels {
		s[l] = struct{}{}
	}
}

// Has reports whether l is in the set.
func (s LabelSet) Has(l Label) bool {
	_, ok := s[l]
	return ok
}

// Len returns the number of labels in the set.
func (s LabelSet) Len() int {
	return len(s)
}

// Sorted returns the labels in ascending order.
func (s LabelSet) Sorted() []Label {
	out := make([]Label, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
