// Package splice injects try/finally regions into stack-machine method
// bodies.
//
// Wrap is the usual entry point. It works on a copy of the body and runs
// the full pipeline: canonicalize local accesses, insert the region, compact
// local accesses again and verify the result.
//
//	result, err := splice.Wrap(body, 2, 9, []*bytecode.Instruction{
//		bytecode.Call(op.Call, "release"),
//	})
//
// The rewrite and bytecode packages expose each pass on its own.
package splice

import (
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/rewrite"
)

// Result is a rewritten body and the region inserted into it.
type Result struct {
	Body   *bytecode.MethodBody
	Region bytecode.Region
}

// Wrap protects body[tryStart:tryEnd] with a try region whose handler is a
// copy of finally. Neither body nor finally is modified; on error nothing
// is returned but the error.
func Wrap(body *bytecode.MethodBody, tryStart, tryEnd int, finally []*bytecode.Instruction, opts ...Option) (*Result, error) {
	o := collectOptions(opts...)

	clone := body.Clone()
	if clone.ID == "" && o.assignID {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("generating body id: %w", err)
		}
		clone.ID = id.String()
	}
	block := bytecode.CopyInstructions(finally)

	rewriteOpts := o.rewriteOpts()
	if err := rewrite.Canonicalize(clone, rewriteOpts...); err != nil {
		return nil, err
	}
	region, err := rewrite.New(rewriteOpts...).WrapWithFinally(clone, tryStart, tryEnd, block)
	if err != nil {
		return nil, err
	}
	if !o.explicitLocals {
		rewrite.Decanonicalize(clone)
	}
	if o.verify {
		if err := rewrite.Verify(clone); err != nil {
			return nil, fmt.Errorf("rewritten body failed verification: %w", err)
		}
	}
	return &Result{Body: clone, Region: region}, nil
}

// MustWrap is like Wrap but panics on error. It is intended for building
// fixtures.
func MustWrap(body *bytecode.MethodBody, tryStart, tryEnd int, finally []*bytecode.Instruction, opts ...Option) *Result {
	result, err := Wrap(body, tryStart, tryEnd, finally, opts...)
	if err != nil {
		panic(err)
	}
	return result
}
