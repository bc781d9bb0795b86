package rewrite

import (
	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

// Rewriter inserts try/finally regions. A Rewriter holds only configuration
// and may be reused, but a single body must not be rewritten concurrently.
type Rewriter struct {
	cfg *config
}

// New returns a Rewriter configured with the given options.
func New(opts ...Option) *Rewriter {
	return &Rewriter{cfg: newConfig(opts)}
}

// WrapWithFinally protects body[tryStart:tryEnd] with a try region and
// inserts finally as its handler. The finally instructions are moved into
// the body and modified; pass bytecode.CopyInstructions(finally) to keep
// the originals.
//
// Returns inside the range become leaves to one trailing return, with the
// return value threaded through a new local slot. Branches that exit the
// range become leaves, or are routed through a leave trampoline when they
// are conditional. The returned Region holds the final positions of the
// region markers.
//
// All violations are reported as *errz.ContractViolation, either singly or
// aggregated. The body may be partially rewritten when an error is returned
// after validation has passed; callers work on a clone.
func (r *Rewriter) WrapWithFinally(body *bytecode.MethodBody, tryStart, tryEnd int, finally []*bytecode.Instruction) (bytecode.Region, error) {
	log := r.cfg.logger.With().
		Str("method", body.Name).
		Str("body_id", body.ID).
		Int("try_start", tryStart).
		Int("try_end", tryEnd).
		Logger()

	if err := checkRange(body, tryStart, tryEnd, finally); err != nil {
		return bytecode.Region{}, err
	}

	// Step 1: labels internal to the try range.
	internal := body.LabelsIn(tryStart, tryEnd)
	log.Debug().Int("step", 1).Int("internal_labels", internal.Len()).Msg("collected internal labels")

	// Step 2: the finally block must be self-contained.
	if err := checkFinally(body, finally); err != nil {
		return bytecode.Region{}, err
	}

	// Step 3: nothing outside may jump into the range.
	if err := checkOuter(body, tryStart, tryEnd, internal); err != nil {
		return bytecode.Region{}, err
	}
	log.Debug().Int("step", 3).Msg("validated inputs")

	alloc := r.allocator(body, finally)
	continuation := body.At(tryEnd)
	span := NewSpan(body, tryStart, tryEnd)

	// Step 4.
	span.First.AddMarker(bytecode.BeginTry)

	// Steps 5 and 6.
	if err := ConvertReturns(body, span, alloc); err != nil {
		return bytecode.Region{}, err
	}
	if err := ConvertJumps(body, span, alloc); err != nil {
		return bytecode.Region{}, err
	}
	log.Debug().Int("step", 6).Int("len", body.Len()).Msg("converted returns and jumps")

	// Step 7: the try block must not fall through into the handler.
	if err := terminateTry(body, span, continuation, alloc); err != nil {
		return bytecode.Region{}, err
	}

	// Step 8: branches that still exit the try block.
	repaired := repairExits(body, span, alloc)
	log.Debug().Int("step", 8).Int("repaired", repaired).Msg("repaired exiting branches")

	// Steps 9 to 11.
	last := placeFinally(body, span, finally)

	region := bytecode.Region{
		TryStart:     body.IndexOf(span.First),
		FinallyStart: body.IndexOf(finally[0]),
		End:          body.IndexOf(last),
	}
	log.Debug().
		Int("region_try", region.TryStart).
		Int("region_finally", region.FinallyStart).
		Int("region_end", region.End).
		Msg("inserted try/finally region")
	return region, nil
}

func (r *Rewriter) allocator(body *bytecode.MethodBody, finally []*bytecode.Instruction) bytecode.Allocator {
	if r.cfg.allocator == nil {
		return bytecode.NewAllocator(body, finally)
	}
	if reserver, ok := r.cfg.allocator.(bytecode.LabelReserver); ok {
		reserver.Reserve(bytecode.LabelsOf(finally).Sorted()...)
	}
	return r.cfg.allocator
}

func checkRange(body *bytecode.MethodBody, tryStart, tryEnd int, finally []*bytecode.Instruction) error {
	switch {
	case tryStart < 0:
		return errz.Violationf(errz.C101, tryStart, "try range starts at %d", tryStart)
	case tryEnd > body.Len():
		return errz.Violationf(errz.C102, tryEnd, "try range ends at %d but the body has %d instructions", tryEnd, body.Len())
	case tryStart >= tryEnd:
		return errz.Violationf(errz.C103, tryStart, "try range [%d, %d) is empty", tryStart, tryEnd)
	case len(finally) == 0:
		return errz.Violation(errz.C104, -1)
	}
	for i := tryStart; i < tryEnd; i++ {
		if body.At(i).HasMarkers() {
			return errz.Violationf(errz.C105, i, "instruction %s is already a region boundary", body.At(i))
		}
	}
	for i, ins := range body.Instructions {
		if err := ins.Validate(); err != nil {
			return errz.Violationf(errz.C107, i, "%v", err)
		}
	}
	return nil
}

func checkFinally(body *bytecode.MethodBody, finally []*bytecode.Instruction) error {
	var violations errz.Violations
	used := bytecode.LabelsOf(body.Instructions)
	for i, ins := range finally {
		if err := ins.Validate(); err != nil {
			violations.Add(errz.Violationf(errz.C107, i, "finally: %v", err))
			continue
		}
		switch {
		case ins.Flow() == op.FlowReturn:
			violations.Add(errz.Violationf(errz.C201, i, "finally: %s", ins))
		case ins.Flow() == op.FlowJump:
			violations.Add(errz.Violationf(errz.C202, i, "finally: %s", ins))
		case ins.Code == op.Rethrow:
			violations.Add(errz.Violationf(errz.C203, i, "finally: %s", ins))
		}
		if ins.HasMarkers() {
			violations.Add(errz.Violationf(errz.C105, i, "finally: instruction %s carries region markers", ins))
		}
		for _, l := range ins.Labels() {
			if used.Has(l) {
				violations.Add(errz.Violationf(errz.C205, i, "finally: label %s is already attached in the body", l))
			}
		}
	}
	own := bytecode.LabelsOf(finally)
	for _, v := range FindUnresolvedBranches(finally, 0, len(finally), own, ScanOptions{}) {
		violations.Add(errz.Violationf(errz.C204, v.Index, "finally: %s targets %s outside the block", v.Instruction, v.Target))
	}
	return violations.ToError()
}

func checkOuter(body *bytecode.MethodBody, tryStart, tryEnd int, internal bytecode.LabelSet) error {
	var violations errz.Violations
	found := FindForbiddenBranches(body.Instructions, 0, tryStart, internal, ScanOptions{})
	found = append(found, FindForbiddenBranches(body.Instructions, tryEnd, body.Len(), internal, ScanOptions{})...)
	for _, v := range found {
		violations.Add(errz.Violationf(errz.C301, v.Index, "%s jumps into the try range at %s", v.Instruction, v.Target))
	}
	return violations.ToError()
}

// terminateTry ends the span with a LEAVE unless it already ends with a
// leave or a throw. The leave goes to the instruction that originally
// followed the range, or to the first trailing instruction when the range
// ran to the end of the body.
func terminateTry(body *bytecode.MethodBody, span *Span, continuation *bytecode.Instruction, alloc bytecode.Allocator) error {
	last := span.Last
	if last.Is(op.Leave) || last.Code == op.Throw {
		return nil
	}
	next := continuation
	if next == nil {
		next = body.At(body.IndexOf(last) + 1)
	}
	if next == nil {
		return errz.Violationf(errz.C106, body.IndexOf(last), "%s falls through past the end of the body", last)
	}
	target := labelOf(next, alloc)
	if last.Code == op.Nop {
		last.Rewrite(op.Leave, bytecode.Target{Label: target})
		return nil
	}
	leave := bytecode.Br(op.Leave, target)
	body.InsertAfter(last, leave)
	span.Extend(leave)
	return nil
}

// repairExits turns every non-leave branch that exits the span into a leave.
// Unconditional branches are rewritten in place. Conditional branches and
// switch entries are pointed at a trampoline "T: LEAVE target" appended to
// the span; targets share one trampoline. It returns the number of jump
// targets repaired.
func repairExits(body *bytecode.MethodBody, span *Span, alloc bytecode.Allocator) int {
	start, end := span.Bounds(body)
	internal := body.LabelsIn(start, end)
	exits := FindUnresolvedBranches(body.Instructions, start, end, internal, ScanOptions{IgnoreLeave: true})
	trampolines := map[bytecode.Label]bytecode.Label{}
	for _, v := range exits {
		if v.Instruction.Flow() == op.FlowBranch {
			v.Instruction.Rewrite(op.WithForm(op.Leave, v.Instruction.Code), bytecode.Target{Label: v.Target})
			continue
		}
		t, ok := trampolines[v.Target]
		if !ok {
			t = alloc.NewLabel()
			trampoline := bytecode.Br(op.Leave, v.Target).WithLabels(t)
			body.InsertAfter(span.Last, trampoline)
			span.Extend(trampoline)
			trampolines[v.Target] = t
		}
		// Entry is always in range for a violation reported by the scanner.
		_ = v.Instruction.SetTarget(v.Entry, t)
	}
	return len(exits)
}

// placeFinally inserts the handler after the span and marks its bounds. It
// returns the last instruction of the handler.
func placeFinally(body *bytecode.MethodBody, span *Span, finally []*bytecode.Instruction) *bytecode.Instruction {
	body.InsertAfter(span.Last, finally...)
	finally[0].AddMarker(bytecode.BeginFinally)
	last := finally[len(finally)-1]
	switch last.Code {
	case op.Nop:
		last.Rewrite(op.EndFinally, bytecode.None{})
	case op.Throw, op.EndFinally:
	default:
		end := bytecode.Op(op.EndFinally)
		body.InsertAfter(last, end)
		last = end
	}
	last.AddMarker(bytecode.EndRegion)
	return last
}

// labelOf returns a label attached to ins, attaching a fresh one if needed.
func labelOf(ins *bytecode.Instruction, alloc bytecode.Allocator) bytecode.Label {
	if l, ok := ins.FirstLabel(); ok {
		return l
	}
	l := alloc.NewLabel()
	ins.AddLabel(l)
	return l
}
