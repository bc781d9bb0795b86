package bytecode

import (
	"strconv"
	"strings"

	"github.com/deepnoodle-ai/splice/op"
)

// Operand is the argument of an instruction. The concrete type must match
// the operand kind declared for the opcode in the op package.
type Operand interface {
	Kind() op.OperandKind
	String() string
	isOperand()
}

// None is the operand of opcodes that take no argument.
type None struct{}

// Literal is an immediate integer value.
type Literal struct {
	Value int64
}

// Target is the single jump target of a branch or leave.
type Target struct {
	Label Label
}

// Targets is the ordered jump table of a multi-way dispatch.
type Targets struct {
	Labels []Label
}

// LocalRef names a local slot explicitly.
type LocalRef struct {
	Slot LocalSlot
}

// Ref is an opaque method or field reference.
type Ref struct {
	Name string
}

func (None) Kind() op.OperandKind { return op.NoOperand }
func (Literal) Kind() op.OperandKind { return op.LiteralOperand }
func (Target) Kind() op.OperandKind { return op.LabelOperand }
func (Targets) Kind() op.OperandKind { return op.LabelsOperand }
func (LocalRef) Kind() op.OperandKind { return op.LocalOperand }
func (Ref) Kind() op.OperandKind { return op.RefOperand }

func (None) isOperand() {}
func (Literal) isOperand() {}
func (Target) isOperand() {}
func (Targets) isOperand() {}
func (LocalRef) isOperand() {}
func (Ref) isOperand() {}

func (None) String() string { return "" }

func (o Literal) String() string { return strconv.FormatInt(o.Value, 10) }

func (o Target) String() string { return o.Label.String() }

func (o Targets) String() string {
	parts := make([]string, len(o.Labels))
	for i, l := range o.Labels {
		parts[i] = l.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (o LocalRef) String() string { return o.Slot.String() }

func (o Ref) String() string { return o.Name }

// cloneOperand returns a copy of o that shares no mutable state with it.
func cloneOperand(o Operand) Operand {
	if t, ok := o.(Targets); ok {
		labels := make([]Label, len(t.Labels))
		copy(labels, t.Labels)
		return Targets{Labels: labels}
	}
	return o
}

// operandsEqual compares two operands by value.
func operandsEqual(a, b Operand) bool {
	switch a := a.(type) {
	case Targets:
		b, ok := b.(Targets)
		if !ok || len(a.Labels) != len(b.Labels) {
			return false
		}
		for i := range a.Labels {
			if a.Labels[i] != b.Labels[i] {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}
