package vm

import (
	"fmt"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
)

// code is a method body prepared for execution: labels resolved to indices
// and the region table built.
type code struct {
	body        *bytecode.MethodBody
	targets     map[bytecode.Label]int
	regions     []bytecode.Region
	localsCount int
}

func loadCode(body *bytecode.MethodBody) (*code, error) {
	if err := body.Validate(); err != nil {
		return nil, err
	}
	regions, err := body.Regions()
	if err != nil {
		return nil, err
	}
	c := &code{
		body:        body,
		targets:     body.LabelIndex(),
		regions:     regions,
		localsCount: body.Locals.Len(),
	}
	for i, ins := range body.Instructions {
		for _, l := range ins.Targets() {
			if _, ok := c.targets[l]; !ok {
				return nil, fmt.Errorf("instruction %d: label %s is not attached to any instruction", i, l)
			}
		}
		// Bodies without a locals table still get storage for the slots
		// they touch.
		if slot, ok := localIndex(ins); ok && slot >= c.localsCount {
			c.localsCount = slot + 1
		}
	}
	return c, nil
}

func localIndex(ins *bytecode.Instruction) (int, bool) {
	if index, _, ok := op.CompactLocal(ins.Code); ok {
		return index, true
	}
	if slot, ok := ins.Local(); ok {
		return slot.Index, true
	}
	return 0, false
}

// enclosing returns the regions whose try block contains ip, innermost
// first.
func (c *code) enclosing(ip int) []bytecode.Region {
	var out []bytecode.Region
	for i := len(c.regions) - 1; i >= 0; i-- {
		if c.regions[i].InTry(ip) {
			out = append(out, c.regions[i])
		}
	}
	return out
}

// protected reports whether ip is inside any try or finally block.
func (c *code) protected(ip int) bool {
	for _, r := range c.regions {
		if r.Contains(ip) {
			return true
		}
	}
	return false
}

// finallyAt reports whether ip is the first instruction of a finally block.
func (c *code) finallyAt(ip int) bool {
	for _, r := range c.regions {
		if r.FinallyStart == ip {
			return true
		}
	}
	return false
}

// checkBranch rejects a non-leave transfer from ip to target that crosses a
// region boundary. Entering a try block at its first instruction is allowed.
func (c *code) checkBranch(ip, target int) error {
	for _, r := range c.regions {
		from, to := r.InTry(ip), r.InTry(target)
		if from != to && !(to && target == r.TryStart) {
			return fmt.Errorf("branch from %d to %d crosses the try block at %d", ip, target, r.TryStart)
		}
		if r.InFinally(ip) != r.InFinally(target) {
			return fmt.Errorf("branch from %d to %d crosses the finally block at %d", ip, target, r.FinallyStart)
		}
	}
	return nil
}

// checkLeave rejects a leave that enters a block or exits a finally block.
func (c *code) checkLeave(ip, target int) error {
	for _, r := range c.regions {
		if r.InTry(target) && !r.InTry(ip) && target != r.TryStart {
			return fmt.Errorf("leave from %d enters the try block at %d", ip, r.TryStart)
		}
		if r.InFinally(ip) != r.InFinally(target) {
			return fmt.Errorf("leave from %d to %d crosses the finally block at %d", ip, target, r.FinallyStart)
		}
	}
	return nil
}
