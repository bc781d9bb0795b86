// Package errz defines the errors reported by the splice rewriter.
//
// Every failure is either a ContractViolation, meaning the caller supplied a
// range or finally block the rewriter cannot accept, or ToolingUnavailable,
// meaning the environment could not describe a local slot. Neither is
// retryable and neither leaves the method body in a usable state.
package errz

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

var (
	// ErrContractViolation matches any *ContractViolation via errors.Is.
	ErrContractViolation = errors.New("contract violation")

	// ErrToolingUnavailable matches any *ToolingUnavailable via errors.Is.
	ErrToolingUnavailable = errors.New("tooling unavailable")
)

// ContractViolation reports a caller error: a malformed range, a forbidden
// instruction, or a branch the rewriter cannot repair.
type ContractViolation struct {
	Rule    Rule
	Index   int // Offending instruction index, or -1
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ContractViolation) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Rule.Description()
	}
	if e.Index < 0 {
		return fmt.Sprintf("contract violation %s: %s", e.Rule, msg)
	}
	return fmt.Sprintf("contract violation %s at instruction %d: %s", e.Rule, e.Index, msg)
}

// Unwrap returns the underlying cause of the error.
func (e *ContractViolation) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match ErrContractViolation.
func (e *ContractViolation) Is(target error) bool {
	return target == ErrContractViolation
}

// WithCause wraps the error with a cause.
func (e *ContractViolation) WithCause(cause error) *ContractViolation {
	e.Cause = cause
	return e
}

// Violation creates a ContractViolation using the rule's description.
func Violation(rule Rule, index int) *ContractViolation {
	return &ContractViolation{Rule: rule, Index: index}
}

// Violationf creates a ContractViolation with a formatted message.
func Violationf(rule Rule, index int, format string, args ...any) *ContractViolation {
	return &ContractViolation{
		Rule:    rule,
		Index:   index,
		Message: fmt.Sprintf(format, args...),
	}
}

// ToolingUnavailable reports that no slot descriptor could be obtained for a
// local slot.
type ToolingUnavailable struct {
	Slot    int
	Message string
}

// Error implements the error interface.
func (e *ToolingUnavailable) Error() string {
	return fmt.Sprintf("tooling unavailable for local slot %d: %s", e.Slot, e.Message)
}

// Is lets errors.Is match ErrToolingUnavailable.
func (e *ToolingUnavailable) Is(target error) bool {
	return target == ErrToolingUnavailable
}

// Unavailable creates a ToolingUnavailable error with a formatted message.
func Unavailable(slot int, format string, args ...any) *ToolingUnavailable {
	return &ToolingUnavailable{Slot: slot, Message: fmt.Sprintf(format, args...)}
}

// Violations collects contract violations found by a single validation pass.
type Violations struct {
	errs *multierror.Error
}

// Add appends a violation.
func (v *Violations) Add(err *ContractViolation) {
	v.errs = multierror.Append(v.errs, err)
}

// Count returns the number of collected violations.
func (v *Violations) Count() int {
	if v.errs == nil {
		return 0
	}
	return len(v.errs.Errors)
}

// HasErrors returns true if there are any violations.
func (v *Violations) HasErrors() bool {
	return v.Count() > 0
}

// ToError returns the violations as a single error, or nil if empty. A lone
// violation is returned unwrapped.
func (v *Violations) ToError() error {
	switch v.Count() {
	case 0:
		return nil
	case 1:
		return v.errs.Errors[0]
	default:
		return v.errs.ErrorOrNil()
	}
}

// All returns the individual violations contained in err, which may be a
// single *ContractViolation or an aggregate produced by Violations.
func All(err error) []*ContractViolation {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*ContractViolation
		for _, e := range merr.Errors {
			out = append(out, All(e)...)
		}
		return out
	}
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return []*ContractViolation{cv}
	}
	return nil
}

// HasRule reports whether err contains a violation of the given rule.
func HasRule(err error, rule Rule) bool {
	for _, cv := range All(err) {
		if cv.Rule == rule {
			return true
		}
	}
	return false
}
