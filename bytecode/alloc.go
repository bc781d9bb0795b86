package bytecode

import "github.com/deepnoodle-ai/splice/op"

// Allocator issues fresh labels and local slots. Every value it returns is
// distinct from every other value it returned for the same body.
type Allocator interface {
	NewLabel() Label
	NewLocalSlot(typ Type) LocalSlot
}

// LabelReserver is implemented by allocators that can be told about labels
// that exist outside the body they were created for, such as the labels of a
// finally block that has not been inserted yet.
type LabelReserver interface {
	Reserve(labels ...Label)
}

// SequentialAllocator issues labels above the highest label already in use
// and declares new slots at the end of the body's locals table. It is not
// safe for concurrent use.
type SequentialAllocator struct {
	body *MethodBody
	next Label
}

// NewAllocator returns an allocator for body. Labels used by the optional
// extra instruction lists are reserved as well.
func NewAllocator(body *MethodBody, extra ...[]*Instruction) *SequentialAllocator {
	a := &SequentialAllocator{body: body, next: MaxLabel(body.Instructions) + 1}
	for _, instructions := range extra {
		a.Reserve(MaxLabel(instructions))
	}
	return a
}

// NewLabel returns a label not used anywhere in the body.
func (a *SequentialAllocator) NewLabel() Label {
	l := a.next
	a.next++
	return l
}

// NewLocalSlot declares a new local of the given type. A body without a
// locals table gets one. Slots the instructions use but the table does not
// declare are declared first, so the new slot never aliases them.
func (a *SequentialAllocator) NewLocalSlot(typ Type) LocalSlot {
	if a.body.Locals == nil {
		a.body.Locals = NewLocalTable()
	}
	a.declareUsed()
	return a.body.Locals.Declare(typ)
}

func (a *SequentialAllocator) declareUsed() {
	used := map[int]Type{}
	highest := -1
	for _, ins := range a.body.Instructions {
		index := -1
		if slot, ok := ins.Local(); ok {
			index = slot.Index
			used[index] = slot.Type
		} else if compact, _, ok := op.CompactLocal(ins.Code); ok {
			index = compact
		}
		if index > highest {
			highest = index
		}
	}
	for a.body.Locals.Len() <= highest {
		a.body.Locals.Declare(used[a.body.Locals.Len()])
	}
}

// Reserve ensures future labels are greater than the given labels.
func (a *SequentialAllocator) Reserve(labels ...Label) {
	for _, l := range labels {
		if l >= a.next {
			a.next = l + 1
		}
	}
}
