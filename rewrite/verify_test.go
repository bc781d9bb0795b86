package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/errz"
	"github.com/deepnoodle-ai/splice/op"
)

// guarded builds a body with one try/finally region at [1, 5].
//
//	0     LOAD_ARG 0
//	1 L1: CALL a        [BEGIN_TRY]
//	2     BR_TRUE L2
//	3 L2: LEAVE L3
//	4     CALL fin      [BEGIN_FINALLY]
//	5     END_FINALLY   [END_REGION]
//	6 L3: RETURN
func guarded() *bytecode.MethodBody {
	return voidBody(
		bytecode.Lit(op.LoadArg, 0),
		bytecode.Call(op.Call, "a").WithLabels(1).WithMarkers(bytecode.BeginTry),
		bytecode.Br(op.BranchTrue, 2),
		bytecode.Br(op.Leave, 3).WithLabels(2),
		bytecode.Call(op.Call, "fin").WithMarkers(bytecode.BeginFinally),
		bytecode.Op(op.EndFinally).WithMarkers(bytecode.EndRegion),
		bytecode.Op(op.Return).WithLabels(3),
	)
}

func TestVerifyValid(t *testing.T) {
	require.NoError(t, Verify(guarded()))

	// Entering a try block at its first instruction is allowed.
	body := guarded()
	body.Instructions[0] = bytecode.Br(op.Branch, 1)
	require.NoError(t, Verify(body))
}

func TestVerifyViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *bytecode.MethodBody)
		rule   errz.Rule
		index  int
	}{
		{
			name:   "unresolved label",
			mutate: func(b *bytecode.MethodBody) { b.Instructions[2] = bytecode.Br(op.BranchTrue, 9) },
			rule:   errz.C401,
			index:  2,
		},
		{
			name:   "duplicate label",
			mutate: func(b *bytecode.MethodBody) { b.At(0).AddLabel(3) },
			rule:   errz.C402,
			index:  6,
		},
		{
			name:   "operand mismatch",
			mutate: func(b *bytecode.MethodBody) { b.At(0).Operand = bytecode.None{} },
			rule:   errz.C107,
			index:  0,
		},
		{
			name: "branch into try",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[0] = bytecode.Br(op.BranchShort, 2)
			},
			rule:  errz.C301,
			index: 0,
		},
		{
			name: "branch out of try",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[2] = bytecode.Br(op.BranchTrue, 3)
			},
			rule:  errz.C302,
			index: 2,
		},
		{
			name:   "return in try",
			mutate: func(b *bytecode.MethodBody) { b.Instructions[2] = bytecode.Op(op.Return) },
			rule:   errz.C303,
			index:  2,
		},
		{
			name: "try falls through",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[3] = bytecode.Op(op.Nop).WithLabels(2)
			},
			rule:  errz.C406,
			index: 3,
		},
		{
			name: "rethrow in finally",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[4] = bytecode.Op(op.Rethrow).WithMarkers(bytecode.BeginFinally)
			},
			rule:  errz.C203,
			index: 4,
		},
		{
			name: "finally without end",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[5] = bytecode.Op(op.Nop).WithMarkers(bytecode.EndRegion)
			},
			rule:  errz.C206,
			index: 5,
		},
		{
			name: "leave out of finally",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[4] = bytecode.Br(op.Leave, 3).WithMarkers(bytecode.BeginFinally)
			},
			rule:  errz.C204,
			index: 4,
		},
		{
			name:   "region not closed",
			mutate: func(b *bytecode.MethodBody) { b.Instructions[5] = bytecode.Op(op.EndFinally) },
			rule:   errz.C404,
			index:  1,
		},
		{
			name: "finally before try",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[0] = bytecode.Lit(op.LoadArg, 0).WithMarkers(bytecode.BeginFinally)
			},
			rule:  errz.C403,
			index: 0,
		},
		{
			name: "catch region",
			mutate: func(b *bytecode.MethodBody) {
				b.Instructions[4] = bytecode.Call(op.Call, "fin").WithMarkers(bytecode.BeginCatch)
			},
			rule:  errz.C405,
			index: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := guarded()
			tt.mutate(body)
			err := Verify(body)
			require.Error(t, err)
			var found *errz.ContractViolation
			for _, cv := range errz.All(err) {
				if cv.Rule == tt.rule {
					found = cv
					break
				}
			}
			require.NotNil(t, found, "expected %s in %v", tt.rule, err)
			assert.Equal(t, tt.index, found.Index)
		})
	}
}

func TestVerifyAggregates(t *testing.T) {
	body := guarded()
	body.Instructions[0] = bytecode.Br(op.BranchShort, 2)
	body.Instructions[2] = bytecode.Op(op.Return)
	err := Verify(body)
	require.Error(t, err)
	assert.True(t, errz.HasRule(err, errz.C301))
	assert.True(t, errz.HasRule(err, errz.C303))
	assert.Len(t, errz.All(err), 2)
}
