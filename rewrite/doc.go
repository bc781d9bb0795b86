// Package rewrite injects try/finally regions into method bodies.
//
// A rewrite runs in three phases that callers must keep in order:
//
//	rewrite.Canonicalize(body)           // compact local opcodes become explicit
//	rewriter.WrapWithFinally(body, ...)  // insert the region
//	rewrite.Decanonicalize(body)         // explicit slots 0..3 become compact
//
// The package also exposes the building blocks WrapWithFinally is made of:
// the branch scanner ([FindForbiddenBranches], [FindUnresolvedBranches]),
// the control-transfer converter ([ConvertReturns], [ConvertJumps]) and a
// whole-body checker ([Verify]).
//
// All functions mutate the body in place and make no attempt to roll back
// on failure. Operate on a [bytecode.MethodBody.Clone] when the original must
// survive an error.
package rewrite
