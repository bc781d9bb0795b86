package rewrite

import (
	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

// SlotDescriber constructs descriptors for local slots. It is consulted when
// the body's locals table is missing or does not declare a slot that a
// compact opcode refers to.
type SlotDescriber interface {
	DescribeSlot(index int) (bytecode.LocalSlot, error)
}

// Canonicalize rewrites every compact local access (LOAD_LOCAL_0 through
// STORE_LOCAL_3) into the explicit form with a LocalRef operand. Slot
// descriptors come from the body's locals table, then from the configured
// SlotDescriber. If neither can describe a slot, the body is left untouched
// and a *errz.ToolingUnavailable is returned.
//
// Canonicalize is idempotent.
func Canonicalize(body *bytecode.MethodBody, opts ...Option) error {
	cfg := newConfig(opts)
	slots := map[int]bytecode.LocalSlot{}
	// Resolve every descriptor first so that a failure leaves no partial
	// rewrite behind.
	for _, ins := range body.Instructions {
		index, _, ok := op.CompactLocal(ins.Code)
		if !ok {
			continue
		}
		if _, done := slots[index]; done {
			continue
		}
		slot, err := describeSlot(body, cfg.describer, index)
		if err != nil {
			return err
		}
		slots[index] = slot
	}
	count := 0
	for _, ins := range body.Instructions {
		index, explicit, ok := op.CompactLocal(ins.Code)
		if !ok {
			continue
		}
		ins.Rewrite(explicit, bytecode.LocalRef{Slot: slots[index]})
		count++
	}
	cfg.logger.Debug().
		Str("method", body.Name).
		Int("rewritten", count).
		Msg("canonicalized local accesses")
	return nil
}

func describeSlot(body *bytecode.MethodBody, d SlotDescriber, index int) (bytecode.LocalSlot, error) {
	if slot, ok := body.Locals.Lookup(index); ok {
		return slot, nil
	}
	if d == nil {
		if body.Locals == nil {
			return bytecode.LocalSlot{}, errz.Unavailable(index, "no locals table and no slot describer")
		}
		return bytecode.LocalSlot{}, errz.Unavailable(index, "slot is not declared and no slot describer is configured")
	}
	slot, err := d.DescribeSlot(index)
	if err != nil {
		return bytecode.LocalSlot{}, errz.Unavailable(index, "slot describer failed: %v", err)
	}
	if slot.Index != index {
		return bytecode.LocalSlot{}, errz.Unavailable(index, "slot describer returned slot %d", slot.Index)
	}
	return slot, nil
}

// Decanonicalize rewrites every explicit local access to slots 0 through 3
// back into its compact opcode with no operand. It reverses Canonicalize.
func Decanonicalize(body *bytecode.MethodBody) {
	for _, ins := range body.Instructions {
		if ins.Code != op.LoadLocal && ins.Code != op.StoreLocal {
			continue
		}
		slot, ok := ins.Local()
		if !ok {
			continue
		}
		if compact, ok := op.CompactForm(ins.Code, slot.Index); ok {
			ins.Rewrite(compact, bytecode.None{})
		}
	}
}
