package bytecode

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/splice/op"
)

// Instruction is one operation of a method body. Labels resolve jump targets
// to this instruction; markers open or close exception regions here.
//
// Instructions are identified by pointer. Rewrites mutate them in place so
// that references held by other passes stay valid.
type Instruction struct {
	Code    op.Code
	Operand Operand

	labels  []Label
	markers []RegionMarker
}

// New returns an instruction with the given opcode and operand. A nil
// operand is stored as None.
func New(code op.Code, operand Operand) *Instruction {
	if operand == nil {
		operand = None{}
	}
	return &Instruction{Code: code, Operand: operand}
}

// Op returns an instruction that takes no operand.
func Op(code op.Code) *Instruction {
	return New(code, None{})
}

// Lit returns an instruction with an integer literal operand.
func Lit(code op.Code, value int64) *Instruction {
	return New(code, Literal{Value: value})
}

// Br returns a branch or leave instruction targeting l.
func Br(code op.Code, l Label) *Instruction {
	return New(code, Target{Label: l})
}

// Sw returns a SWITCH instruction with the given jump table.
func Sw(labels ...Label) *Instruction {
	table := make([]Label, len(labels))
	copy(table, labels)
	return New(op.Switch, Targets{Labels: table})
}

// Local returns an explicit local access to slot.
func Local(code op.Code, slot LocalSlot) *Instruction {
	return New(code, LocalRef{Slot: slot})
}

// Call returns an instruction with an opaque method reference.
func Call(code op.Code, name string) *Instruction {
	return New(code, Ref{Name: name})
}

// WithLabels attaches labels and returns the instruction, for building
// bodies in literal form.
func (i *Instruction) WithLabels(labels ...Label) *Instruction {
	i.AddLabel(labels...)
	return i
}

// WithMarkers attaches region markers and returns the instruction.
func (i *Instruction) WithMarkers(markers ...RegionMarker) *Instruction {
	i.markers = append(i.markers, markers...)
	return i
}

// Info returns the opcode metadata.
func (i *Instruction) Info() op.Info {
	return op.GetInfo(i.Code)
}

// Flow returns how the instruction transfers control.
func (i *Instruction) Flow() op.Flow {
	return op.GetInfo(i.Code).Flow
}

// Is reports whether the instruction performs the given operation, treating
// short and long encodings as the same.
func (i *Instruction) Is(code op.Code) bool {
	return op.Equivalent(i.Code, code)
}

// Validate checks that the operand matches the opcode.
func (i *Instruction) Validate() error {
	info := op.GetInfo(i.Code)
	if info.Name == "" {
		return fmt.Errorf("invalid opcode %d", i.Code)
	}
	if i.Operand == nil {
		return fmt.Errorf("%s: missing operand", info.Name)
	}
	if got := i.Operand.Kind(); got != info.Operand {
		return fmt.Errorf("%s: expected %s operand, got %s", info.Name, info.Operand, got)
	}
	return nil
}

// Labels returns a copy of the labels attached to the instruction.
func (i *Instruction) Labels() []Label {
	if len(i.labels) == 0 {
		return nil
	}
	out := make([]Label, len(i.labels))
	copy(out, i.labels)
	return out
}

// HasLabels reports whether any label is attached.
func (i *Instruction) HasLabels() bool {
	return len(i.labels) > 0
}

// HasLabel reports whether l is attached to the instruction.
func (i *Instruction) HasLabel(l Label) bool {
	for _, have := range i.labels {
		if have == l {
			return true
		}
	}
	return false
}

// AddLabel attaches labels that are not already attached.
func (i *Instruction) AddLabel(labels ...Label) {
	for _, l := range labels {
		if !i.HasLabel(l) {
			i.labels = append(i.labels, l)
		}
	}
}

// FirstLabel returns one attached label, if any.
func (i *Instruction) FirstLabel() (Label, bool) {
	if len(i.labels) == 0 {
		return NoLabel, false
	}
	return i.labels[0], true
}

// Markers returns a copy of the region markers, in order.
func (i *Instruction) Markers() []RegionMarker {
	if len(i.markers) == 0 {
		return nil
	}
	out := make([]RegionMarker, len(i.markers))
	copy(out, i.markers)
	return out
}

// AddMarker appends a region marker.
func (i *Instruction) AddMarker(m RegionMarker) {
	i.markers = append(i.markers, m)
}

// HasMarker reports whether marker m is attached.
func (i *Instruction) HasMarker(m RegionMarker) bool {
	for _, have := range i.markers {
		if have == m {
			return true
		}
	}
	return false
}

// HasMarkers reports whether any region marker is attached.
func (i *Instruction) HasMarkers() bool {
	return len(i.markers) > 0
}

// Target returns the single jump target of a branch or leave.
func (i *Instruction) Target() (Label, bool) {
	t, ok := i.Operand.(Target)
	return t.Label, ok
}

// Targets returns every jump target of the instruction: one for a branch or
// leave, the jump table for a switch, none otherwise.
func (i *Instruction) Targets() []Label {
	switch o := i.Operand.(type) {
	case Target:
		return []Label{o.Label}
	case Targets:
		out := make([]Label, len(o.Labels))
		copy(out, o.Labels)
		return out
	default:
		return nil
	}
}

// SetTarget replaces the jump target at the given entry. Entry is ignored
// for single-target instructions and indexes the jump table of a switch.
func (i *Instruction) SetTarget(entry int, l Label) error {
	switch o := i.Operand.(type) {
	case Target:
		i.Operand = Target{Label: l}
		return nil
	case Targets:
		if entry < 0 || entry >= len(o.Labels) {
			return fmt.Errorf("%s: jump table entry %d out of range", i.Code, entry)
		}
		table := make([]Label, len(o.Labels))
		copy(table, o.Labels)
		table[entry] = l
		i.Operand = Targets{Labels: table}
		return nil
	default:
		return fmt.Errorf("%s: instruction has no jump target", i.Code)
	}
}

// Local returns the slot referenced by an explicit local access.
func (i *Instruction) Local() (LocalSlot, bool) {
	r, ok := i.Operand.(LocalRef)
	return r.Slot, ok
}

// Rewrite changes the operation performed by the instruction while keeping
// its labels and markers.
func (i *Instruction) Rewrite(code op.Code, operand Operand) {
	if operand == nil {
		operand = None{}
	}
	i.Code = code
	i.Operand = operand
}

// Clone duplicates the opcode and operand. The copy carries no labels and no
// markers.
func (i *Instruction) Clone() *Instruction {
	return &Instruction{Code: i.Code, Operand: cloneOperand(i.Operand)}
}

// Copy duplicates the instruction including its labels and markers.
func (i *Instruction) Copy() *Instruction {
	c := i.Clone()
	c.labels = i.Labels()
	c.markers = i.Markers()
	return c
}

// SameEffect reports whether two instructions perform the same operation on
// the same operand. Labels, markers and short/long encoding are ignored.
func (i *Instruction) SameEffect(other *Instruction) bool {
	if other == nil {
		return false
	}
	return op.Equivalent(i.Code, other.Code) && operandsEqual(i.Operand, other.Operand)
}

// Equal reports whether two instructions are identical: same opcode
// encoding, same operand, same label set and same marker sequence.
func (i *Instruction) Equal(other *Instruction) bool {
	if other == nil {
		return false
	}
	if i.Code != other.Code || !operandsEqual(i.Operand, other.Operand) {
		return false
	}
	if len(i.labels) != len(other.labels) {
		return false
	}
	for _, l := range i.labels {
		if !other.HasLabel(l) {
			return false
		}
	}
	if len(i.markers) != len(other.markers) {
		return false
	}
	for k := range i.markers {
		if i.markers[k] != other.markers[k] {
			return false
		}
	}
	return true
}

// String returns a one-line textual form, e.g. "L2: BR_TRUE L5".
func (i *Instruction) String() string {
	var sb strings.Builder
	for _, l := range i.labels {
		sb.WriteString(l.String())
		sb.WriteString(": ")
	}
	sb.WriteString(i.Code.String())
	if i.Operand != nil {
		if s := i.Operand.String(); s != "" {
			sb.WriteString(" ")
			sb.WriteString(s)
		}
	}
	for _, m := range i.markers {
		sb.WriteString(" [")
		sb.WriteString(m.String())
		sb.WriteString("]")
	}
	return sb.String()
}
