package rewrite

import (
	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
)

// Violation is one jump target that failed a scan. A switch produces one
// Violation per offending jump table entry.
type Violation struct {
	Instruction *bytecode.Instruction
	Index       int            // Position of Instruction at scan time
	Entry       int            // Jump table position, or -1 for single-target branches
	Target      bytecode.Label // The offending target
}

// ScanOptions adjusts which instructions a scan considers.
type ScanOptions struct {
	// IgnoreLeave skips LEAVE and LEAVE_S, which may legally exit a region.
	IgnoreLeave bool
}

// FindForbiddenBranches returns every jump target in instructions[start:end]
// that is a member of forbidden.
func FindForbiddenBranches(instructions []*bytecode.Instruction, start, end int, forbidden bytecode.LabelSet, opts ScanOptions) []Violation {
	return scan(instructions, start, end, opts, forbidden.Has)
}

// FindUnresolvedBranches returns every jump target in instructions[start:end]
// that is not a member of required.
func FindUnresolvedBranches(instructions []*bytecode.Instruction, start, end int, required bytecode.LabelSet, opts ScanOptions) []Violation {
	return scan(instructions, start, end, opts, func(l bytecode.Label) bool {
		return !required.Has(l)
	})
}

func scan(instructions []*bytecode.Instruction, start, end int, opts ScanOptions, bad func(bytecode.Label) bool) []Violation {
	if start < 0 {
		start = 0
	}
	if end > len(instructions) {
		end = len(instructions)
	}
	var found []Violation
	for i := start; i < end; i++ {
		ins := instructions[i]
		if !isTransfer(ins, opts) {
			continue
		}
		switch o := ins.Operand.(type) {
		case bytecode.Target:
			if bad(o.Label) {
				found = append(found, Violation{Instruction: ins, Index: i, Entry: -1, Target: o.Label})
			}
		case bytecode.Targets:
			for entry, l := range o.Labels {
				if bad(l) {
					found = append(found, Violation{Instruction: ins, Index: i, Entry: entry, Target: l})
				}
			}
		}
	}
	return found
}

func isTransfer(ins *bytecode.Instruction, opts ScanOptions) bool {
	flow := ins.Flow()
	if flow == op.FlowLeave {
		return !opts.IgnoreLeave
	}
	return flow.IsBranch()
}

// IsBranchTo reports whether ins performs code, in either encoding, with l as
// its target.
func IsBranchTo(ins *bytecode.Instruction, code op.Code, l bytecode.Label) bool {
	if ins == nil || !ins.Is(code) {
		return false
	}
	target, ok := ins.Target()
	return ok && target == l
}
