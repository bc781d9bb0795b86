package rewrite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
)

func scanBody() []*bytecode.Instruction {
	return []*bytecode.Instruction{
		bytecode.Lit(op.LoadArg, 0),               // 0
		bytecode.Br(op.BranchTrue, 1),             // 1
		bytecode.Sw(1, 2, 3, 2),                   // 2
		bytecode.Br(op.LeaveShort, 3),             // 3
		bytecode.Br(op.BranchShort, 2),            // 4
		bytecode.Op(op.Nop).WithLabels(1),         // 5
		bytecode.Call(op.Call, "f").WithLabels(2), // 6
		bytecode.Op(op.Return).WithLabels(3),      // 7
	}
}

func TestFindForbiddenBranches(t *testing.T) {
	instructions := scanBody()
	found := FindForbiddenBranches(instructions, 0, len(instructions), bytecode.NewLabelSet(2), ScanOptions{})
	require.Len(t, found, 3)

	assert.Equal(t, Violation{Instruction: instructions[2], Index: 2, Entry: 1, Target: 2}, found[0])
	assert.Equal(t, Violation{Instruction: instructions[2], Index: 2, Entry: 3, Target: 2}, found[1])
	assert.Equal(t, Violation{Instruction: instructions[4], Index: 4, Entry: -1, Target: 2}, found[2])
}

func TestFindUnresolvedBranches(t *testing.T) {
	instructions := scanBody()
	required := bytecode.NewLabelSet(1, 2)

	found := FindUnresolvedBranches(instructions, 0, len(instructions), required, ScanOptions{})
	require.Len(t, found, 2)
	assert.Equal(t, 2, found[0].Index)
	assert.Equal(t, 2, found[0].Entry)
	assert.Equal(t, bytecode.Label(3), found[0].Target)
	assert.Equal(t, 3, found[1].Index)
	assert.Equal(t, -1, found[1].Entry)

	found = FindUnresolvedBranches(instructions, 0, len(instructions), required, ScanOptions{IgnoreLeave: true})
	require.Len(t, found, 1)
	assert.Equal(t, op.Switch, found[0].Instruction.Code)
}

func TestScanRange(t *testing.T) {
	instructions := scanBody()
	all := bytecode.NewLabelSet(1, 2, 3)

	assert.Len(t, FindForbiddenBranches(instructions, 0, 2, all, ScanOptions{}), 1)
	assert.Len(t, FindForbiddenBranches(instructions, 2, 3, all, ScanOptions{}), 4)
	assert.Empty(t, FindForbiddenBranches(instructions, 5, 8, all, ScanOptions{}))
	assert.Empty(t, FindForbiddenBranches(instructions, 0, 8, bytecode.LabelSet{}, ScanOptions{}))

	// Bounds are clamped.
	assert.Len(t, FindForbiddenBranches(instructions, -3, 100, all, ScanOptions{}), 7)
}

func TestScanDoesNotMutate(t *testing.T) {
	instructions := scanBody()
	before := bytecode.CopyInstructions(instructions)
	FindUnresolvedBranches(instructions, 0, len(instructions), bytecode.LabelSet{}, ScanOptions{})
	for i := range instructions {
		require.True(t, before[i].Equal(instructions[i]))
	}
}

func TestIsBranchTo(t *testing.T) {
	tests := []struct {
		ins  *bytecode.Instruction
		code op.Code
		want bool
	}{
		{bytecode.Br(op.Leave, 4), op.Leave, true},
		{bytecode.Br(op.LeaveShort, 4), op.Leave, true},
		{bytecode.Br(op.Leave, 4), op.LeaveShort, true},
		{bytecode.Br(op.BranchTrueShort, 4), op.BranchTrue, true},
		{bytecode.Br(op.BranchTrue, 4), op.BranchFalse, false},
		{bytecode.Br(op.Branch, 4), op.Leave, false},
		{bytecode.Br(op.Leave, 5), op.Leave, false},
		{bytecode.Sw(4), op.Switch, false},
		{nil, op.Leave, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsBranchTo(tt.ins, tt.code, 4), "%v %s", tt.ins, tt.code)
	}
}
