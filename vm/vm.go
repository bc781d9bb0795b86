// Package vm provides a reference evaluator for method bodies. It executes
// int64 stack code with try/finally semantics and rejects control transfers
// that cross region boundaries illegally, which makes it a runtime check for
// rewritten bodies.
package vm

import (
	"context"
	"fmt"
	"sync"

	"github.com/deepnoodle-ai/splice/bytecode"
	"github.com/deepnoodle-ai/splice/op"
)

const (
	// DefaultContextCheckInterval is the number of instructions between
	// checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000

	// DefaultStepLimit bounds a single run.
	DefaultStepLimit = 1_000_000
)

// Native is a host function reachable through CALL and JMP. It may read the
// caller's arguments and use its stack.
type Native func(ctx context.Context, f *Frame) error

// pending is a finally block in progress and what to do once it ends.
type pending struct {
	region    bytecode.Region
	remaining []bytecode.Region // further finally blocks to run, innermost first
	target    int               // leave target
	thrown    *ThrownError      // set when unwinding an exception
}

type VirtualMachine struct {
	code     *code
	natives  map[string]Native
	running  bool
	runMutex sync.Mutex

	contextCheckInterval int
	stepLimit            int

	observer  Observer
	obsConfig ObserverConfig
}

// New prepares body for execution. The body must be structurally valid:
// operands match opcodes, labels resolve and region markers nest.
func New(body *bytecode.MethodBody, options ...Option) (*VirtualMachine, error) {
	c, err := loadCode(body)
	if err != nil {
		return nil, err
	}
	vm := &VirtualMachine{
		code:                 c,
		natives:              map[string]Native{},
		contextCheckInterval: DefaultContextCheckInterval,
		stepLimit:            DefaultStepLimit,
	}
	for _, opt := range options {
		opt(vm)
	}
	return vm, nil
}

func (vm *VirtualMachine) start() error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	vm.running = true
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	vm.running = false
}

// Run executes the method with the given arguments. It returns the value of
// the RETURN that ended the method, or zero for void methods.
func (vm *VirtualMachine) Run(ctx context.Context, args ...int64) (result int64, err error) {
	body := vm.code.body
	if err := checkCallArgs(body.Name, body.ArgCount, len(args)); err != nil {
		return 0, err
	}
	if err := vm.start(); err != nil {
		return 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		vm.stop()
	}()
	if vm.observer != nil {
		vm.obsConfig = NormalizeConfig(vm.observer.Config())
	}
	return vm.eval(ctx, newFrame(args, vm.code.localsCount))
}

func (vm *VirtualMachine) eval(ctx context.Context, f *Frame) (int64, error) {
	var (
		instructionCount int
		steps            int
		finallies        []pending
	)
	instructions := vm.code.body.Instructions
	checkInterval := vm.contextCheckInterval
	doneChan := ctx.Done()
	ip := 0

	for {
		if ip >= len(instructions) {
			return 0, &RuntimeError{IP: ip, Code: op.Invalid, Message: "execution fell off the end of the body"}
		}

		// Deterministic check of ctx.Done() every N instructions.
		if checkInterval > 0 && doneChan != nil {
			instructionCount++
			if instructionCount >= checkInterval {
				instructionCount = 0
				select {
				case <-doneChan:
					return 0, ctx.Err()
				default:
				}
			}
		}
		steps++
		if vm.stepLimit > 0 && steps > vm.stepLimit {
			return 0, ErrStepLimit
		}

		ins := instructions[ip]
		if vm.observer != nil && vm.shouldStep(steps) {
			event := StepEvent{
				IP:           ip,
				Opcode:       ins.Code,
				OpcodeName:   ins.Code.String(),
				StackDepth:   f.Depth(),
				FinallyDepth: len(finallies),
			}
			if !vm.observer.OnStep(event) {
				return 0, ErrHalted
			}
		}

		fail := func(format string, args ...any) error {
			return &RuntimeError{IP: ip, Code: ins.Code, Message: fmt.Sprintf(format, args...)}
		}
		next, jumped := ip+1, false

		switch ins.Code {
		case op.Nop:
		case op.LoadConst:
			if err := f.Push(ins.Operand.(bytecode.Literal).Value); err != nil {
				return 0, fail("%v", err)
			}
		case op.LoadArg:
			v, err := f.Arg(int(ins.Operand.(bytecode.Literal).Value))
			if err != nil {
				return 0, fail("%v", err)
			}
			if err := f.Push(v); err != nil {
				return 0, fail("%v", err)
			}
		case op.LoadLocal0, op.LoadLocal1, op.LoadLocal2, op.LoadLocal3, op.LoadLocal:
			slot, _ := localIndex(ins)
			v, err := f.load(slot)
			if err != nil {
				return 0, fail("%v", err)
			}
			if err := f.Push(v); err != nil {
				return 0, fail("%v", err)
			}
		case op.StoreLocal0, op.StoreLocal1, op.StoreLocal2, op.StoreLocal3, op.StoreLocal:
			slot, _ := localIndex(ins)
			v, err := f.Pop()
			if err != nil {
				return 0, fail("%v", err)
			}
			if err := f.store(slot, v); err != nil {
				return 0, fail("%v", err)
			}
		case op.Pop:
			if _, err := f.Pop(); err != nil {
				return 0, fail("%v", err)
			}
		case op.Dup:
			v, ok := f.Peek()
			if !ok {
				return 0, fail("stack underflow")
			}
			if err := f.Push(v); err != nil {
				return 0, fail("%v", err)
			}
		case op.Add, op.Sub, op.Mul, op.CmpEq, op.CmpLt:
			b, errB := f.Pop()
			a, errA := f.Pop()
			if errA != nil || errB != nil {
				return 0, fail("stack underflow")
			}
			if err := f.Push(binaryOp(ins.Code, a, b)); err != nil {
				return 0, fail("%v", err)
			}
		case op.Call:
			if err := vm.callNative(ctx, f, ins, ip, false); err != nil {
				return 0, err
			}
		case op.Branch, op.BranchShort:
			target := vm.code.targets[ins.Operand.(bytecode.Target).Label]
			if err := vm.code.checkBranch(ip, target); err != nil {
				return 0, fail("%v", err)
			}
			next, jumped = target, true
		case op.BranchTrue, op.BranchTrueShort, op.BranchFalse, op.BranchFalseShort:
			v, err := f.Pop()
			if err != nil {
				return 0, fail("%v", err)
			}
			want := ins.Is(op.BranchTrue)
			if (v != 0) == want {
				target := vm.code.targets[ins.Operand.(bytecode.Target).Label]
				if err := vm.code.checkBranch(ip, target); err != nil {
					return 0, fail("%v", err)
				}
				next, jumped = target, true
			}
		case op.Switch:
			v, err := f.Pop()
			if err != nil {
				return 0, fail("%v", err)
			}
			table := ins.Operand.(bytecode.Targets).Labels
			if v >= 0 && v < int64(len(table)) {
				target := vm.code.targets[table[v]]
				if err := vm.code.checkBranch(ip, target); err != nil {
					return 0, fail("%v", err)
				}
				next, jumped = target, true
			}
		case op.Leave, op.LeaveShort:
			target := vm.code.targets[ins.Operand.(bytecode.Target).Label]
			if err := vm.code.checkLeave(ip, target); err != nil {
				return 0, fail("%v", err)
			}
			f.clear()
			next, jumped = target, true
			if exited := exitedRegions(vm.code.enclosing(ip), target); len(exited) > 0 {
				finallies = append(finallies, pending{region: exited[0], remaining: exited[1:], target: target})
				next = exited[0].FinallyStart
			}
		case op.EndFinally:
			if len(finallies) == 0 {
				return 0, fail("END_FINALLY outside a finally block")
			}
			p := finallies[len(finallies)-1]
			finallies = finallies[:len(finallies)-1]
			switch {
			case len(p.remaining) > 0:
				following := p.remaining[0]
				finallies = append(finallies, pending{region: following, remaining: p.remaining[1:], target: p.target, thrown: p.thrown})
				next = following.FinallyStart
			case p.thrown != nil:
				return 0, p.thrown
			default:
				next = p.target
			}
			jumped = true
		case op.Throw:
			v, err := f.Pop()
			if err != nil {
				return 0, fail("%v", err)
			}
			thrown := &ThrownError{IP: ip, Value: v}
			// A throw inside a finally block abandons that block.
			for len(finallies) > 0 && finallies[len(finallies)-1].region.InFinally(ip) {
				finallies = finallies[:len(finallies)-1]
			}
			exited := vm.code.enclosing(ip)
			if len(exited) == 0 {
				return 0, thrown
			}
			f.clear()
			finallies = append(finallies, pending{region: exited[0], remaining: exited[1:], thrown: thrown})
			next, jumped = exited[0].FinallyStart, true
		case op.Rethrow:
			return 0, fail("RETHROW outside a catch block")
		case op.Return:
			if vm.code.protected(ip) {
				return 0, fail("RETURN inside a protected region")
			}
			return vm.ret(f, ip)
		case op.Jmp:
			if vm.code.protected(ip) {
				return 0, fail("JMP inside a protected region")
			}
			// The callee sees the same arguments and a fresh stack.
			callee := newFrame(f.args, 0)
			if err := vm.callNative(ctx, callee, ins, ip, true); err != nil {
				return 0, err
			}
			return vm.ret(callee, ip)
		default:
			return 0, fail("unsupported opcode")
		}

		if !jumped && vm.code.finallyAt(next) {
			return 0, fail("execution falls through into a finally block")
		}
		ip = next
	}
}

func (vm *VirtualMachine) shouldStep(steps int) bool {
	switch vm.obsConfig.StepMode {
	case StepAll:
		return true
	case StepSampled:
		return steps%vm.obsConfig.SampleInterval == 0
	default:
		return false
	}
}

func (vm *VirtualMachine) callNative(ctx context.Context, f *Frame, ins *bytecode.Instruction, ip int, tail bool) error {
	name := ins.Operand.(bytecode.Ref).Name
	fn, ok := vm.natives[name]
	if !ok {
		return &RuntimeError{IP: ip, Code: ins.Code, Message: fmt.Sprintf("unknown native %q", name)}
	}
	if vm.observer != nil && vm.obsConfig.ObserveCalls {
		if !vm.observer.OnCall(CallEvent{Name: name, IP: ip, Tail: tail}) {
			return ErrHalted
		}
	}
	if err := fn(ctx, f); err != nil {
		return fmt.Errorf("native %q: %w", name, err)
	}
	return nil
}

func (vm *VirtualMachine) ret(f *Frame, ip int) (int64, error) {
	body := vm.code.body
	var value int64
	if body.ReturnsValue() {
		v, err := f.Pop()
		if err != nil {
			return 0, &RuntimeError{IP: ip, Code: op.Return, Message: "no return value on the stack"}
		}
		value = v
	}
	if vm.observer != nil && vm.obsConfig.ObserveReturns {
		if !vm.observer.OnReturn(ReturnEvent{Method: body.Name, IP: ip, Value: value}) {
			return 0, ErrHalted
		}
	}
	return value, nil
}

// exitedRegions returns the regions in enclosing, innermost first, whose try
// block does not contain target.
func exitedRegions(enclosing []bytecode.Region, target int) []bytecode.Region {
	var out []bytecode.Region
	for _, r := range enclosing {
		if !r.InTry(target) {
			out = append(out, r)
		}
	}
	return out
}

func binaryOp(code op.Code, a, b int64) int64 {
	switch code {
	case op.Add:
		return a + b
	case op.Sub:
		return a - b
	case op.Mul:
		return a * b
	case op.CmpEq:
		return boolValue(a == b)
	case op.CmpLt:
		return boolValue(a < b)
	}
	return 0
}
