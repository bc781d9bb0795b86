package rewrite

import (
	"errors"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

// Verify checks that a body is structurally valid:
//
//   - every operand matches its opcode
//   - every referenced label is attached to exactly one instruction
//   - region markers form properly nested try/finally regions
//   - only LEAVE exits a try block, and nothing branches into the middle of
//     one or into a finally block at all
//   - try blocks hold no RETURN or JMP and end in LEAVE or THROW
//   - finally blocks hold no RETURN, JMP or RETHROW, never branch out, and
//     end in END_FINALLY or THROW
//
// All problems found are returned together.
func Verify(body *bytecode.MethodBody) error {
	var violations errz.Violations
	for i, ins := range body.Instructions {
		if err := ins.Validate(); err != nil {
			violations.Add(errz.Violationf(errz.C107, i, "%v", err))
		}
	}
	verifyLabels(body, &violations)

	regions, err := body.Regions()
	if err != nil {
		var cv *errz.ContractViolation
		if errors.As(err, &cv) {
			violations.Add(cv)
		} else {
			violations.Add(errz.Violationf(errz.C403, -1, "%v", err))
		}
		return violations.ToError()
	}
	targets := body.LabelIndex()
	for _, r := range regions {
		verifyTry(body, r, targets, &violations)
		verifyFinally(body, r, targets, &violations)
	}
	return violations.ToError()
}

func verifyLabels(body *bytecode.MethodBody, violations *errz.Violations) {
	attached := map[bytecode.Label]int{}
	for i, ins := range body.Instructions {
		for _, l := range ins.Labels() {
			if _, dup := attached[l]; dup {
				violations.Add(errz.Violationf(errz.C402, i, "label %s is also attached at %d", l, attached[l]))
				continue
			}
			attached[l] = i
		}
	}
	for i, ins := range body.Instructions {
		for _, l := range ins.Targets() {
			if _, ok := attached[l]; !ok {
				violations.Add(errz.Violationf(errz.C401, i, "%s targets %s", ins, l))
			}
		}
	}
}

func verifyTry(body *bytecode.MethodBody, r bytecode.Region, targets map[bytecode.Label]int, violations *errz.Violations) {
	for i := r.TryStart; i < r.FinallyStart; i++ {
		switch body.At(i).Flow() {
		case op.FlowReturn, op.FlowJump:
			violations.Add(errz.Violationf(errz.C303, i, "%s inside the try block at %d", body.At(i), r.TryStart))
		}
	}
	if last := body.At(r.FinallyStart - 1); !last.Is(op.Leave) && last.Code != op.Throw {
		violations.Add(errz.Violationf(errz.C406, r.FinallyStart-1, "try block ends with %s", last))
	}
	for i, ins := range body.Instructions {
		from := r.InTry(i)
		for _, l := range ins.Targets() {
			j, ok := targets[l]
			if !ok {
				continue
			}
			switch to := r.InTry(j); {
			case !from && to && j != r.TryStart:
				violations.Add(errz.Violationf(errz.C301, i, "%s enters the try block at %d", ins, r.TryStart))
			case from && !to && !ins.Is(op.Leave):
				violations.Add(errz.Violationf(errz.C302, i, "%s exits the try block at %d", ins, r.TryStart))
			}
		}
	}
}

func verifyFinally(body *bytecode.MethodBody, r bytecode.Region, targets map[bytecode.Label]int, violations *errz.Violations) {
	for i := r.FinallyStart; i <= r.End; i++ {
		ins := body.At(i)
		switch {
		case ins.Flow() == op.FlowReturn:
			violations.Add(errz.Violationf(errz.C201, i, "%s", ins))
		case ins.Flow() == op.FlowJump:
			violations.Add(errz.Violationf(errz.C202, i, "%s", ins))
		case ins.Code == op.Rethrow:
			violations.Add(errz.Violationf(errz.C203, i, "%s", ins))
		}
	}
	if last := body.At(r.End); last.Code != op.EndFinally && last.Code != op.Throw {
		violations.Add(errz.Violationf(errz.C206, r.End, "finally block ends with %s", last))
	}
	for i, ins := range body.Instructions {
		from := r.InFinally(i)
		for _, l := range ins.Targets() {
			j, ok := targets[l]
			if !ok {
				continue
			}
			switch to := r.InFinally(j); {
			case !from && to:
				violations.Add(errz.Violationf(errz.C301, i, "%s enters the finally block at %d", ins, r.FinallyStart))
			case from && !to:
				violations.Add(errz.Violationf(errz.C204, i, "%s exits the finally block at %d", ins, r.FinallyStart))
			}
		}
	}
}
