package rewrite

import "github.com/deepnoodle-ai/splice/bytecode"

// Span tracks a contiguous run of instructions by identity. Its bounds stay
// correct when instructions are inserted before or inside it; code that
// appends to the run must move Last.
type Span struct {
	First *bytecode.Instruction
	Last  *bytecode.Instruction
}

// NewSpan returns the span covering [start, end) of the body.
func NewSpan(body *bytecode.MethodBody, start, end int) *Span {
	return &Span{First: body.At(start), Last: body.At(end - 1)}
}

// Bounds returns the current half-open index range of the span. It returns
// (-1, -1) if either end is no longer part of the body.
func (s *Span) Bounds(body *bytecode.MethodBody) (start, end int) {
	start = body.IndexOf(s.First)
	last := body.IndexOf(s.Last)
	if start < 0 || last < start {
		return -1, -1
	}
	return start, last + 1
}

// Labels returns the labels attached inside the span.
func (s *Span) Labels(body *bytecode.MethodBody) bytecode.LabelSet {
	start, end := s.Bounds(body)
	if start < 0 {
		return bytecode.LabelSet{}
	}
	return body.LabelsIn(start, end)
}

// Extend makes ins the last instruction of the span.
func (s *Span) Extend(ins *bytecode.Instruction) {
	s.Last = ins
}
