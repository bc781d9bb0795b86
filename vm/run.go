package vm

import (
	"context"

	"github.com/deepnoodle-ai/splice/bytecode"
)

// Run executes body once in a new Virtual Machine and returns the result.
func Run(ctx context.Context, body *bytecode.MethodBody, args []int64, options ...Option) (int64, error) {
	machine, err := New(body, options...)
	if err != nil {
		return 0, err
	}
	return machine.Run(ctx, args...)
}
