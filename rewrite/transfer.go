package rewrite

import (
	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

// ConvertReturns rewrites every RETURN inside the span into a LEAVE to a
// single trailing return placed directly after the span.
//
// In a void method the trailing instruction is a plain RETURN. In a method
// with a return type each RETURN becomes STORE_LOCAL S followed by LEAVE L,
// and the trailing pattern is "L: LOAD_LOCAL S; RETURN". An existing trailing
// pattern is reused when the span already stores into its slot and leaves to
// its label.
//
// The span's Last is advanced when the last instruction is rewritten into
// two instructions.
func ConvertReturns(body *bytecode.MethodBody, span *Span, alloc bytecode.Allocator) error {
	if body.ReturnsValue() {
		return convertValued(body, span, alloc)
	}
	return convertVoid(body, span, alloc, op.FlowReturn)
}

// ConvertJumps rewrites every JMP inside the span into a LEAVE to a trailing
// JMP with the same method reference. Distinct references get distinct
// trailing instructions.
func ConvertJumps(body *bytecode.MethodBody, span *Span, alloc bytecode.Allocator) error {
	return convertVoid(body, span, alloc, op.FlowJump)
}

// occurrences returns the instructions in the span with the given flow.
func occurrences(body *bytecode.MethodBody, span *Span, flow op.Flow) ([]*bytecode.Instruction, error) {
	start, end := span.Bounds(body)
	if start < 0 {
		return nil, errz.Violationf(errz.C304, -1, "span is no longer part of the body")
	}
	var found []*bytecode.Instruction
	for _, ins := range body.Instructions[start:end] {
		if ins.Flow() == flow {
			found = append(found, ins)
		}
	}
	return found, nil
}

func convertVoid(body *bytecode.MethodBody, span *Span, alloc bytecode.Allocator, flow op.Flow) error {
	found, err := occurrences(body, span, flow)
	if err != nil || len(found) == 0 {
		return err
	}
	for _, ins := range found {
		exit := trailingExit(body, span, ins, flow)
		if exit == nil {
			exit = ins.Clone()
			body.InsertAfter(span.Last, exit)
		}
		l, ok := exit.FirstLabel()
		if !ok {
			l = alloc.NewLabel()
			exit.AddLabel(l)
		}
		ins.Rewrite(op.Leave, bytecode.Target{Label: l})
	}
	return nil
}

// trailingExit searches the run of instructions with the given flow that
// directly follows the span for one with the same effect as ins.
func trailingExit(body *bytecode.MethodBody, span *Span, ins *bytecode.Instruction, flow op.Flow) *bytecode.Instruction {
	for i := body.IndexOf(span.Last) + 1; i < body.Len(); i++ {
		candidate := body.At(i)
		if candidate.Flow() != flow {
			return nil
		}
		if candidate.SameEffect(ins) {
			return candidate
		}
	}
	return nil
}

func convertValued(body *bytecode.MethodBody, span *Span, alloc bytecode.Allocator) error {
	found, err := occurrences(body, span, op.FlowReturn)
	if err != nil || len(found) == 0 {
		return err
	}
	slot, exit, ok := trailingReturn(body, span)
	if !ok {
		slot = alloc.NewLocalSlot(body.ReturnType)
		if err := checkFreshSlot(body, slot); err != nil {
			return err
		}
		exit = alloc.NewLabel()
		load := bytecode.Local(op.LoadLocal, slot).WithLabels(exit)
		body.InsertAfter(span.Last, load, bytecode.Op(op.Return))
	}
	for _, ins := range found {
		ins.Rewrite(op.StoreLocal, bytecode.LocalRef{Slot: slot})
		leave := bytecode.Br(op.Leave, exit)
		body.InsertAfter(ins, leave)
		if ins == span.Last {
			span.Extend(leave)
		}
	}
	return nil
}

// trailingReturn looks for "L: LOAD_LOCAL S; RETURN" directly after the span
// and accepts it only if some instruction pair in the span is
// "STORE_LOCAL S; LEAVE L".
func trailingReturn(body *bytecode.MethodBody, span *Span) (bytecode.LocalSlot, bytecode.Label, bool) {
	after := body.IndexOf(span.Last) + 1
	load, ret := body.At(after), body.At(after+1)
	if load == nil || ret == nil || load.Code != op.LoadLocal || ret.Code != op.Return {
		return bytecode.LocalSlot{}, bytecode.NoLabel, false
	}
	slot, ok := load.Local()
	if !ok {
		return bytecode.LocalSlot{}, bytecode.NoLabel, false
	}
	start, end := span.Bounds(body)
	for i := start; i+1 < end; i++ {
		store, leave := body.At(i), body.At(i+1)
		if store.Code != op.StoreLocal {
			continue
		}
		if s, ok := store.Local(); !ok || s.Index != slot.Index {
			continue
		}
		if l, ok := leave.Target(); ok && load.HasLabel(l) && IsBranchTo(leave, op.Leave, l) {
			return slot, l, true
		}
	}
	return bytecode.LocalSlot{}, bytecode.NoLabel, false
}

// checkFreshSlot rejects an allocated slot that the body already uses.
func checkFreshSlot(body *bytecode.MethodBody, slot bytecode.LocalSlot) error {
	if slot.Index < 0 {
		return errz.Violationf(errz.C107, -1, "allocator returned invalid slot %d", slot.Index)
	}
	for i, ins := range body.Instructions {
		index, _, uses := op.CompactLocal(ins.Code)
		if s, ok := ins.Local(); ok {
			index, uses = s.Index, true
		}
		if uses && index == slot.Index {
			return errz.Violationf(errz.C107, i, "allocator returned slot %d, which is already in use", slot.Index)
		}
	}
	return nil
}
