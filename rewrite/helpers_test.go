package rewrite

import (
	"github.com/stretchr/testify/mock"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
)

func listing(body *bytecode.MethodBody) []string {
	out := make([]string, body.Len())
	for i, ins := range body.Instructions {
		out[i] = ins.String()
	}
	return out
}

func countCode(body *bytecode.MethodBody, code op.Code) int {
	n := 0
	for _, ins := range body.Instructions {
		if ins.Is(code) {
			n++
		}
	}
	return n
}

func voidBody(instructions ...*bytecode.Instruction) *bytecode.MethodBody {
	return &bytecode.MethodBody{
		Name:         "test",
		Locals:       bytecode.NewLocalTable(),
		Instructions: instructions,
	}
}

func cleanup() []*bytecode.Instruction {
	return []*bytecode.Instruction{bytecode.Call(op.Call, "fin")}
}

// classify returns 10, 20 or 30 depending on whether its argument is 0, 1
// or anything else.
func classify() *bytecode.MethodBody {
	return &bytecode.MethodBody{
		Name:       "classify",
		ReturnType: "int32",
		ArgCount:   1,
		Locals:     bytecode.NewLocalTable(),
		Instructions: []*bytecode.Instruction{
			bytecode.Lit(op.LoadArg, 0),
			bytecode.Lit(op.LoadConst, 0),
			bytecode.Op(op.CmpEq),
			bytecode.Br(op.BranchFalseShort, 1),
			bytecode.Lit(op.LoadConst, 10),
			bytecode.Op(op.Return),
			bytecode.Lit(op.LoadArg, 0).WithLabels(1),
			bytecode.Lit(op.LoadConst, 1),
			bytecode.Op(op.CmpEq),
			bytecode.Br(op.BranchFalseShort, 2),
			bytecode.Lit(op.LoadConst, 20),
			bytecode.Op(op.Return),
			bytecode.Lit(op.LoadConst, 30).WithLabels(2),
			bytecode.Op(op.Return),
		},
	}
}

type mockDescriber struct {
	mock.Mock
}

func (m *mockDescriber) DescribeSlot(index int) (bytecode.LocalSlot, error) {
	args := m.Called(index)
	return args.Get(0).(bytecode.LocalSlot), args.Error(1)
}
