package bytecode

import "fmt"

// Type describes the value type stored in a local slot or returned by a
// method. The rewriter treats it as opaque.
type Type string

// Void is the return type of methods that return no value.
const Void Type = ""

// IsVoid reports whether t is the void type.
func (t Type) IsVoid() bool {
	return t == Void
}

// LocalSlot identifies a local variable storage location.
type LocalSlot struct {
	Index int
	Type  Type
}

// String returns a short description of the slot, e.g. "V_2:int32".
func (s LocalSlot) String() string {
	if s.Type.IsVoid() {
		return fmt.Sprintf("V_%d", s.Index)
	}
	return fmt.Sprintf("V_%d:%s", s.Index, s.Type)
}

// LocalTable is the declared-locals table of a method body.
type LocalTable struct {
	slots []LocalSlot
}

// NewLocalTable declares one slot per given type, in order.
func NewLocalTable(types ...Type) *LocalTable {
	t := &LocalTable{}
	for _, typ := range types {
		t.Declare(typ)
	}
	return t
}

// Declare appends a new slot of the given type and returns it.
func (t *LocalTable) Declare(typ Type) LocalSlot {
	slot := LocalSlot{Index: len(t.slots), Type: typ}
	t.slots = append(t.slots, slot)
	return slot
}

// Lookup returns the slot with the given index.
func (t *LocalTable) Lookup(index int) (LocalSlot, bool) {
	if t == nil || index < 0 || index >= len(t.slots) {
		return LocalSlot{}, false
	}
	return t.slots[index], true
}

// Len returns the number of declared slots.
func (t *LocalTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.slots)
}

// Slots returns a copy of the declared slots.
func (t *LocalTable) Slots() []LocalSlot {
	if t == nil {
		return nil
	}
	out := make([]LocalSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Types returns the declared slot types in index order.
func (t *LocalTable) Types() []Type {
	if t == nil {
		return nil
	}
	out := make([]Type, len(t.slots))
	for i, s := range t.slots {
		out[i] = s.Type
	}
	return out
}

// Clone returns an independent copy of the table. A nil table clones to nil.
func (t *LocalTable) Clone() *LocalTable {
	if t == nil {
		return nil
	}
	return &LocalTable{slots: t.Slots()}
}
