package vm

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithNatives registers functions that CALL and JMP instructions can reach
// by name.
func WithNatives(natives map[string]Native) Option {
	return func(vm *VirtualMachine) {
		for name, fn := range natives {
			vm.natives[name] = fn
		}
	}
}

// WithNative registers a single native function.
func WithNative(name string, fn Native) Option {
	return func(vm *VirtualMachine) {
		vm.natives[name] = fn
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution. The interval is specified in number of instructions. A value of
// 0 disables checking. The default is DefaultContextCheckInterval.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithStepLimit bounds the number of instructions a single Run may execute.
// A value of 0 removes the limit. The default is DefaultStepLimit.
func WithStepLimit(limit int) Option {
	return func(vm *VirtualMachine) {
		vm.stepLimit = limit
	}
}

// WithObserver sets an observer for VM execution events.
//
// Observer methods are called synchronously during execution, so
// implementations should be fast. Returning false from any observer method
// halts execution immediately.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}
