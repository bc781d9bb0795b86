package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/splice/op"
)

func sample() *MethodBody {
	return &MethodBody{
		Name:       "sample",
		ReturnType: "int32",
		ArgCount:   1,
		Locals:     NewLocalTable("int32"),
		Instructions: []*Instruction{
			Lit(op.LoadArg, 0),
			Br(op.BranchTrueShort, 2),
			Lit(op.LoadConst, 1),
			Op(op.StoreLocal0),
			Op(op.LoadLocal0).WithLabels(2),
			Op(op.Return),
		},
	}
}

func TestBodyAccess(t *testing.T) {
	body := sample()
	assert.Equal(t, 6, body.Len())
	assert.Nil(t, body.At(-1))
	assert.Nil(t, body.At(6))
	assert.Equal(t, op.Return, body.At(5).Code)
	assert.True(t, body.ReturnsValue())
	assert.False(t, (&MethodBody{}).ReturnsValue())
}

func TestBodyIdentity(t *testing.T) {
	body := sample()
	ins := body.At(3)
	body.Insert(0, Op(op.Nop))
	assert.Equal(t, 4, body.IndexOf(ins))
	assert.Equal(t, -1, body.IndexOf(Op(op.Nop)))
}

func TestBodyInsert(t *testing.T) {
	body := sample()
	anchor := body.At(2)

	body.InsertAfter(anchor, Op(op.Dup), Op(op.Pop))
	body.InsertBefore(anchor, Op(op.Nop))
	body.Append(Op(op.Nop))
	body.Insert(body.Len(), Op(op.Nop))

	var codes []op.Code
	for _, ins := range body.Instructions {
		codes = append(codes, ins.Code)
	}
	assert.Equal(t, []op.Code{
		op.LoadArg, op.BranchTrueShort, op.Nop, op.LoadConst, op.Dup, op.Pop,
		op.StoreLocal0, op.LoadLocal0, op.Return, op.Nop, op.Nop,
	}, codes)

	assert.Panics(t, func() { body.Insert(-1, Op(op.Nop)) })
	assert.Panics(t, func() { body.Insert(body.Len()+1, Op(op.Nop)) })
	assert.Panics(t, func() { body.InsertAfter(Op(op.Nop), Op(op.Nop)) })
}

func TestBodyInsertDoesNotAlias(t *testing.T) {
	instructions := make([]*Instruction, 0, 16)
	instructions = append(instructions, Op(op.Nop), Op(op.Return))
	body := &MethodBody{Instructions: instructions}
	body.Insert(1, Op(op.Dup))
	body.Insert(1, Op(op.Pop))
	assert.Equal(t, "NOP", body.At(0).String())
	assert.Equal(t, "POP", body.At(1).String())
	assert.Equal(t, "DUP", body.At(2).String())
	assert.Equal(t, "RETURN", body.At(3).String())
}

func TestBodyLabels(t *testing.T) {
	body := sample()
	body.At(0).AddLabel(7)

	idx, ok := body.Resolve(2)
	require.True(t, ok)
	assert.Equal(t, 4, idx)
	_, ok = body.Resolve(3)
	assert.False(t, ok)

	assert.Equal(t, map[Label]int{7: 0, 2: 4}, body.LabelIndex())
	assert.Equal(t, []Label{7}, body.LabelsIn(0, 4).Sorted())
	assert.Equal(t, 2, LabelsOf(body.Instructions).Len())

	// Targets count towards the highest label, not only attached labels.
	body.Append(Br(op.Leave, 12))
	assert.Equal(t, Label(12), MaxLabel(body.Instructions))
	assert.Equal(t, NoLabel, MaxLabel(nil))
}

func TestBodyValidate(t *testing.T) {
	body := sample()
	require.NoError(t, body.Validate())

	body.At(1).Operand = None{}
	err := body.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "instruction 1")
}

func TestBodyClone(t *testing.T) {
	body := sample()
	body.At(0).AddMarker(BeginTry)
	clone := body.Clone()
	require.True(t, clone.Equal(body))

	clone.At(4).AddLabel(9)
	clone.Locals.Declare("int64")
	require.NoError(t, clone.At(1).SetTarget(0, 9))

	assert.False(t, body.At(4).HasLabel(9))
	assert.Equal(t, 1, body.Locals.Len())
	assert.Equal(t, []Label{2}, body.At(1).Targets())
	assert.False(t, clone.Equal(body))
}

func TestBodyEqual(t *testing.T) {
	a := sample()
	b := sample()
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(nil))

	b.Locals = nil
	assert.False(t, a.Equal(b))

	b = sample()
	b.Locals = NewLocalTable("int64")
	assert.False(t, a.Equal(b))

	b = sample()
	b.Append(Op(op.Nop))
	assert.False(t, a.Equal(b))

	b = sample()
	b.Name = "other"
	assert.False(t, a.Equal(b))
}

func TestBodyString(t *testing.T) {
	body := &MethodBody{Instructions: []*Instruction{
		Op(op.Nop),
		Op(op.Return).WithLabels(1),
	}}
	assert.Equal(t, "   0  NOP\n   1  L1: RETURN\n", body.String())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "L3", Label(3).String())

	l, err := ParseLabel("L12")
	require.NoError(t, err)
	assert.Equal(t, Label(12), l)

	for _, bad := range []string{"", "12", "L", "L0", "L-1", "Lx"} {
		_, err := ParseLabel(bad)
		assert.Error(t, err, bad)
	}

	set := NewLabelSet(3, 1)
	set.Add(2, 3)
	assert.Equal(t, 3, set.Len())
	assert.True(t, set.Has(2))
	assert.False(t, set.Has(4))
	assert.Equal(t, []Label{1, 2, 3}, set.Sorted())
}

func TestLocalTable(t *testing.T) {
	table := NewLocalTable("int32", "string")
	assert.Equal(t, 2, table.Len())

	slot := table.Declare("int64")
	assert.Equal(t, LocalSlot{Index: 2, Type: "int64"}, slot)
	assert.Equal(t, []Type{"int32", "string", "int64"}, table.Types())

	got, ok := table.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "V_1:string", got.String())
	_, ok = table.Lookup(3)
	assert.False(t, ok)

	var missing *LocalTable
	assert.Equal(t, 0, missing.Len())
	assert.Nil(t, missing.Slots())
	assert.Nil(t, missing.Clone())
	_, ok = missing.Lookup(0)
	assert.False(t, ok)

	clone := table.Clone()
	clone.Declare("bool")
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, "V_0", LocalSlot{Index: 0}.String())
}
