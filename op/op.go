// Package op defines the opcodes understood by the splice rewriter, the
// disassembler and the reference virtual machine.
package op

// Code is an integer opcode that indicates an operation to execute.
type Code uint16

const (
	Invalid Code = 0

	// Execution
	Nop  Code = 1
	Call Code = 2

	// Constants and arguments
	LoadConst Code = 10
	LoadArg   Code = 11

	// Locals. The numbered forms are the compact encodings for the first
	// CompactLocals slots; LoadLocal and StoreLocal carry an explicit slot.
	LoadLocal0  Code = 20
	LoadLocal1  Code = 21
	LoadLocal2  Code = 22
	LoadLocal3  Code = 23
	LoadLocal   Code = 24
	StoreLocal0 Code = 30
	StoreLocal1 Code = 31
	StoreLocal2 Code = 32
	StoreLocal3 Code = 33
	StoreLocal  Code = 34

	// Stack
	Pop Code = 40
	Dup Code = 41

	// Operations
	Add   Code = 50
	Sub   Code = 51
	Mul   Code = 52
	CmpEq Code = 53
	CmpLt Code = 54

	// Branches. Each *Short opcode is the short-offset encoding of the
	// opcode that follows it.
	Branch           Code = 60
	BranchShort      Code = 61
	BranchTrue       Code = 62
	BranchTrueShort  Code = 63
	BranchFalse      Code = 64
	BranchFalseShort Code = 65
	Switch           Code = 66

	// Protected regions
	Leave      Code = 70
	LeaveShort Code = 71
	EndFinally Code = 72
	Throw      Code = 73
	Rethrow    Code = 74

	// Method exit
	Return Code = 80
	Jmp    Code = 81
)

// CompactLocals is the number of local slots that have compact load and
// store encodings.
const CompactLocals = 4

// OperandKind describes which operand an opcode takes.
type OperandKind uint8

const (
	NoOperand OperandKind = iota
	LiteralOperand
	LabelOperand
	LabelsOperand
	LocalOperand
	RefOperand
)

// String returns a short name for the operand kind.
func (k OperandKind) String() string {
	switch k {
	case NoOperand:
		return "none"
	case LiteralOperand:
		return "literal"
	case LabelOperand:
		return "label"
	case LabelsOperand:
		return "labels"
	case LocalOperand:
		return "local"
	case RefOperand:
		return "ref"
	default:
		return "unknown"
	}
}

// Flow classifies how an instruction transfers control.
type Flow uint8

const (
	// FlowNext falls through to the following instruction.
	FlowNext Flow = iota
	// FlowBranch unconditionally jumps to its label.
	FlowBranch
	// FlowCondBranch jumps to its label or falls through.
	FlowCondBranch
	// FlowMultiBranch jumps to one of its labels or falls through.
	FlowMultiBranch
	// FlowLeave exits protected regions on the way to its label.
	FlowLeave
	// FlowReturn exits the method, carrying the return value if any.
	FlowReturn
	// FlowJump exits the method by transferring to another method.
	FlowJump
	// FlowThrow raises an exception.
	FlowThrow
	// FlowEndFinally ends a finally region.
	FlowEndFinally
)

// String returns a short name for the flow kind.
func (f Flow) String() string {
	switch f {
	case FlowNext:
		return "next"
	case FlowBranch:
		return "branch"
	case FlowCondBranch:
		return "cond-branch"
	case FlowMultiBranch:
		return "multi-branch"
	case FlowLeave:
		return "leave"
	case FlowReturn:
		return "return"
	case FlowJump:
		return "jump"
	case FlowThrow:
		return "throw"
	case FlowEndFinally:
		return "end-finally"
	default:
		return "unknown"
	}
}

// IsBranch reports whether the flow kind jumps to a label operand. Leave is
// not included.
func (f Flow) IsBranch() bool {
	return f == FlowBranch || f == FlowCondBranch || f == FlowMultiBranch
}

// Terminates reports whether control never falls through to the next
// instruction.
func (f Flow) Terminates() bool {
	switch f {
	case FlowBranch, FlowLeave, FlowReturn, FlowJump, FlowThrow, FlowEndFinally:
		return true
	default:
		return false
	}
}

// Info contains information about an opcode.
type Info struct {
	Code    Code
	Name    string
	Operand OperandKind
	Flow    Flow
	// Pops and Pushes describe the stack effect. Call and Return depend on
	// their context and report zero here.
	Pops   int
	Pushes int
}

var (
	infos  = make([]Info, 256)
	byName = map[string]Code{}
)

func init() {
	type opInfo struct {
		op      Code
		name    string
		operand OperandKind
		flow    Flow
		pops    int
		pushes  int
	}
	ops := []opInfo{
		{Nop, "NOP", NoOperand, FlowNext, 0, 0},
		{Call, "CALL", RefOperand, FlowNext, 0, 0},
		{LoadConst, "LOAD_CONST", LiteralOperand, FlowNext, 0, 1},
		{LoadArg, "LOAD_ARG", LiteralOperand, FlowNext, 0, 1},
		{LoadLocal0, "LOAD_LOCAL_0", NoOperand, FlowNext, 0, 1},
		{LoadLocal1, "LOAD_LOCAL_1", NoOperand, FlowNext, 0, 1},
		{LoadLocal2, "LOAD_LOCAL_2", NoOperand, FlowNext, 0, 1},
		{LoadLocal3, "LOAD_LOCAL_3", NoOperand, FlowNext, 0, 1},
		{LoadLocal, "LOAD_LOCAL", LocalOperand, FlowNext, 0, 1},
		{StoreLocal0, "STORE_LOCAL_0", NoOperand, FlowNext, 1, 0},
		{StoreLocal1, "STORE_LOCAL_1", NoOperand, FlowNext, 1, 0},
		{StoreLocal2, "STORE_LOCAL_2", NoOperand, FlowNext, 1, 0},
		{StoreLocal3, "STORE_LOCAL_3", NoOperand, FlowNext, 1, 0},
		{StoreLocal, "STORE_LOCAL", LocalOperand, FlowNext, 1, 0},
		{Pop, "POP", NoOperand, FlowNext, 1, 0},
		{Dup, "DUP", NoOperand, FlowNext, 1, 2},
		{Add, "ADD", NoOperand, FlowNext, 2, 1},
		{Sub, "SUB", NoOperand, FlowNext, 2, 1},
		{Mul, "MUL", NoOperand, FlowNext, 2, 1},
		{CmpEq, "CMP_EQ", NoOperand, FlowNext, 2, 1},
		{CmpLt, "CMP_LT", NoOperand, FlowNext, 2, 1},
		{Branch, "BR", LabelOperand, FlowBranch, 0, 0},
		{BranchShort, "BR_S", LabelOperand, FlowBranch, 0, 0},
		{BranchTrue, "BR_TRUE", LabelOperand, FlowCondBranch, 1, 0},
		{BranchTrueShort, "BR_TRUE_S", LabelOperand, FlowCondBranch, 1, 0},
		{BranchFalse, "BR_FALSE", LabelOperand, FlowCondBranch, 1, 0},
		{BranchFalseShort, "BR_FALSE_S", LabelOperand, FlowCondBranch, 1, 0},
		{Switch, "SWITCH", LabelsOperand, FlowMultiBranch, 1, 0},
		{Leave, "LEAVE", LabelOperand, FlowLeave, 0, 0},
		{LeaveShort, "LEAVE_S", LabelOperand, FlowLeave, 0, 0},
		{EndFinally, "END_FINALLY", NoOperand, FlowEndFinally, 0, 0},
		{Throw, "THROW", NoOperand, FlowThrow, 1, 0},
		{Rethrow, "RETHROW", NoOperand, FlowThrow, 0, 0},
		{Return, "RETURN", NoOperand, FlowReturn, 0, 0},
		{Jmp, "JMP", RefOperand, FlowJump, 0, 0},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:    o.op,
			Name:    o.name,
			Operand: o.operand,
			Flow:    o.flow,
			Pops:    o.pops,
			Pushes:  o.pushes,
		}
		byName[o.name] = o.op
	}
}

// GetInfo returns information about the given opcode.
func GetInfo(op Code) Info {
	if int(op) >= len(infos) {
		return Info{}
	}
	return infos[op]
}

// Lookup returns the opcode with the given name.
func Lookup(name string) (Code, bool) {
	code, ok := byName[name]
	return code, ok
}

// Names returns the names of all defined opcodes in opcode order.
func Names() []string {
	var names []string
	for _, info := range infos {
		if info.Name != "" {
			names = append(names, info.Name)
		}
	}
	return names
}

// String returns the opcode name, or a placeholder for unknown opcodes.
func (c Code) String() string {
	if name := GetInfo(c).Name; name != "" {
		return name
	}
	return "INVALID"
}

// Valid reports whether the opcode is defined.
func (c Code) Valid() bool {
	return GetInfo(c).Name != ""
}
