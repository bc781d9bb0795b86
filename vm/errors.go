package vm

import (
	"errors"
	"fmt"

	"github.com/deepnoodle-ai/splice/op"
)

var (
	// ErrHalted is returned when an observer stops execution.
	ErrHalted = errors.New("execution halted by observer")

	// ErrStepLimit is returned when a run executes more instructions than
	// the configured step limit.
	ErrStepLimit = errors.New("step limit exceeded")
)

// RuntimeError reports an instruction that could not be executed.
type RuntimeError struct {
	IP      int
	Code    op.Code
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error at %d (%s): %s", e.IP, e.Code, e.Message)
}

// ThrownError is returned when a THROW is not caught. Every finally block
// between the throw and the method boundary has run by the time it is
// returned.
type ThrownError struct {
	IP    int
	Value int64
}

func (e *ThrownError) Error() string {
	return fmt.Sprintf("uncaught exception %d thrown at %d", e.Value, e.IP)
}
