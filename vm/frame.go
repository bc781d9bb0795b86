package vm

import "fmt"

// MaxStackDepth bounds the value stack of a single frame.
const MaxStackDepth = 1024

// Frame holds the arguments, locals and value stack of one method
// activation. Native functions receive the frame of their caller.
type Frame struct {
	args   []int64
	locals []int64
	stack  []int64
}

func newFrame(args []int64, localsCount int) *Frame {
	f := &Frame{
		args:   make([]int64, len(args)),
		locals: make([]int64, localsCount),
		stack:  make([]int64, 0, 16),
	}
	copy(f.args, args)
	return f
}

// Arg returns the argument at the given index.
func (f *Frame) Arg(index int) (int64, error) {
	if index < 0 || index >= len(f.args) {
		return 0, fmt.Errorf("argument %d out of range (%d given)", index, len(f.args))
	}
	return f.args[index], nil
}

// ArgCount returns the number of arguments.
func (f *Frame) ArgCount() int {
	return len(f.args)
}

// Push pushes a value onto the stack.
func (f *Frame) Push(v int64) error {
	if len(f.stack) >= MaxStackDepth {
		return fmt.Errorf("stack overflow")
	}
	f.stack = append(f.stack, v)
	return nil
}

// Pop removes and returns the top of the stack.
func (f *Frame) Pop() (int64, error) {
	n := len(f.stack)
	if n == 0 {
		return 0, fmt.Errorf("stack underflow")
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, nil
}

// Peek returns the top of the stack without removing it.
func (f *Frame) Peek() (int64, bool) {
	if len(f.stack) == 0 {
		return 0, false
	}
	return f.stack[len(f.stack)-1], true
}

// Depth returns the number of values on the stack.
func (f *Frame) Depth() int {
	return len(f.stack)
}

func (f *Frame) clear() {
	f.stack = f.stack[:0]
}

func (f *Frame) load(slot int) (int64, error) {
	if slot < 0 || slot >= len(f.locals) {
		return 0, fmt.Errorf("local slot %d out of range (%d declared)", slot, len(f.locals))
	}
	return f.locals[slot], nil
}

func (f *Frame) store(slot int, v int64) error {
	if slot < 0 || slot >= len(f.locals) {
		return fmt.Errorf("local slot %d out of range (%d declared)", slot, len(f.locals))
	}
	f.locals[slot] = v
	return nil
}
