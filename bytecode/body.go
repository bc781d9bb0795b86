package bytecode

import "fmt"

// MethodBody is the unit the rewriter operates on: an ordered instruction
// sequence plus the method shape needed to rewrite it.
//
// Unlike compiled code objects, a MethodBody is mutable. Rewrites insert and
// modify instructions in place; callers that need to recover from a failed
// rewrite should operate on a Clone.
type MethodBody struct {
	// ID correlates log output for this body. It is optional.
	ID string

	// Name is the method name, used for diagnostics only.
	Name string

	// ReturnType is Void for methods that return no value.
	ReturnType Type

	// ArgCount is the number of arguments the method accepts.
	ArgCount int

	// Locals is the declared-locals table. Nil means the table is not known.
	Locals *LocalTable

	Instructions []*Instruction
}

// Len returns the number of instructions.
func (b *MethodBody) Len() int {
	return len(b.Instructions)
}

// At returns the instruction at the given index, or nil if out of range.
func (b *MethodBody) At(index int) *Instruction {
	if index < 0 || index >= len(b.Instructions) {
		return nil
	}
	return b.Instructions[index]
}

// IndexOf returns the current position of ins, or -1 if it is not part of
// the body. Positions shift on every insertion and are never cached by the
// rewriter.
func (b *MethodBody) IndexOf(ins *Instruction) int {
	for i, candidate := range b.Instructions {
		if candidate == ins {
			return i
		}
	}
	return -1
}

// Insert places instructions at the given index, shifting later
// instructions up.
func (b *MethodBody) Insert(index int, ins ...*Instruction) {
	if index < 0 || index > len(b.Instructions) {
		panic(fmt.Sprintf("bytecode: insert index %d out of range [0, %d]", index, len(b.Instructions)))
	}
	if len(ins) == 0 {
		return
	}
	tail := append([]*Instruction{}, b.Instructions[index:]...)
	b.Instructions = append(append(b.Instructions[:index], ins...), tail...)
}

// InsertAfter places instructions immediately after anchor.
func (b *MethodBody) InsertAfter(anchor *Instruction, ins ...*Instruction) {
	index := b.IndexOf(anchor)
	if index < 0 {
		panic("bytecode: anchor instruction is not part of the body")
	}
	b.Insert(index+1, ins...)
}

// InsertBefore places instructions immediately before anchor.
func (b *MethodBody) InsertBefore(anchor *Instruction, ins ...*Instruction) {
	index := b.IndexOf(anchor)
	if index < 0 {
		panic("bytecode: anchor instruction is not part of the body")
	}
	b.Insert(index, ins...)
}

// Append adds instructions at the end of the body.
func (b *MethodBody) Append(ins ...*Instruction) {
	b.Instructions = append(b.Instructions, ins...)
}

// Resolve returns the index of the instruction carrying l.
func (b *MethodBody) Resolve(l Label) (int, bool) {
	for i, ins := range b.Instructions {
		if ins.HasLabel(l) {
			return i, true
		}
	}
	return -1, false
}

// LabelIndex maps every attached label to the index of its instruction. If a
// label is attached more than once, the first occurrence wins.
func (b *MethodBody) LabelIndex() map[Label]int {
	index := map[Label]int{}
	for i, ins := range b.Instructions {
		for _, l := range ins.labels {
			if _, ok := index[l]; !ok {
				index[l] = i
			}
		}
	}
	return index
}

// LabelsIn returns the labels attached to instructions in [start, end).
func (b *MethodBody) LabelsIn(start, end int) LabelSet {
	return LabelsOf(b.Instructions[start:end])
}

// LabelsOf returns the labels attached to the given instructions.
func LabelsOf(instructions []*Instruction) LabelSet {
	set := LabelSet{}
	for _, ins := range instructions {
		set.Add(ins.labels...)
	}
	return set
}

// MaxLabel returns the highest label attached to or referenced by any
// instruction.
func MaxLabel(instructions []*Instruction) Label {
	var highest Label
	for _, ins := range instructions {
		for _, l := range ins.labels {
			if l > highest {
				highest = l
			}
		}
		for _, l := range ins.Targets() {
			if l > highest {
				highest = l
			}
		}
	}
	return highest
}

// ReturnsValue reports whether the method returns a value.
func (b *MethodBody) ReturnsValue() bool {
	return !b.ReturnType.IsVoid()
}

// Validate checks every instruction's operand against its opcode.
func (b *MethodBody) Validate() error {
	for i, ins := range b.Instructions {
		if err := ins.Validate(); err != nil {
			return fmt.Errorf("instruction %d: %w", i, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the body. Labels and markers are preserved.
func (b *MethodBody) Clone() *MethodBody {
	c := &MethodBody{
		ID:         b.ID,
		Name:       b.Name,
		ReturnType: b.ReturnType,
		ArgCount:   b.ArgCount,
		Locals:     b.Locals.Clone(),
	}
	c.Instructions = copyInstructions(b.Instructions)
	return c
}

// Equal reports whether two bodies have the same shape and identical
// instruction sequences.
func (b *MethodBody) Equal(other *MethodBody) bool {
	if other == nil {
		return false
	}
	if b.Name != other.Name || b.ReturnType != other.ReturnType || b.ArgCount != other.ArgCount {
		return false
	}
	if b.Locals.Len() != other.Locals.Len() || (b.Locals == nil) != (other.Locals == nil) {
		return false
	}
	for i := 0; i < b.Locals.Len(); i++ {
		x, _ := b.Locals.Lookup(i)
		y, _ := other.Locals.Lookup(i)
		if x != y {
			return false
		}
	}
	if len(b.Instructions) != len(other.Instructions) {
		return false
	}
	for i := range b.Instructions {
		if !b.Instructions[i].Equal(other.Instructions[i]) {
			return false
		}
	}
	return true
}

// String returns one instruction per line, prefixed by its index.
func (b *MethodBody) String() string {
	var out []byte
	for i, ins := range b.Instructions {
		out = append(out, fmt.Sprintf("%4d  %s\n", i, ins)...)
	}
	return string(out)
}
